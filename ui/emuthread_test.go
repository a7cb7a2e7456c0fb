package ui

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/user-none/emapu/emu"
)

func TestSharedMutes(t *testing.T) {
	var sm SharedMutes
	sm.Toggle(emu.ChannelNoise)
	sm.Toggle(emu.ChannelPulse1)
	sm.Toggle(emu.ChannelPulse1)
	sm.Toggle(-1)
	sm.Toggle(emu.NumChannels)
	assert.Equal(t, uint8(1<<emu.ChannelNoise), sm.Mask())

	e, err := emu.NewEmulator(emu.NewTrace(), emu.QualityLow)
	require.NoError(t, err)
	defer e.Shutdown()

	sm.Apply(e)
	assert.True(t, e.ChannelMuted(emu.ChannelNoise))
	assert.False(t, e.ChannelMuted(emu.ChannelPulse1))
}

func TestSharedScope(t *testing.T) {
	tr := emu.NewTrace()
	require.NoError(t, tr.Add(0, 0x4011, 0x40))
	e, err := emu.NewEmulator(tr, emu.QualityLow)
	require.NoError(t, err)
	defer e.Shutdown()

	e.SetChannelMute(emu.ChannelTriangle, true)
	e.RunFrame()

	ss := NewSharedScope(300)
	ss.Update(e)
	snap := ss.Read()

	assert.Equal(t, 1, snap.Frame)
	assert.Equal(t, uint8(1<<emu.ChannelTriangle), snap.Muted)
	for ch := 0; ch < emu.NumChannels; ch++ {
		assert.Equal(t, e.GetChannelSamples(ch), snap.Samples[ch])
	}

	// The snapshot is a copy
	e.RunFrame()
	assert.Equal(t, 1, snap.Frame)
}

func TestEmuControl_PauseResume(t *testing.T) {
	ec := NewEmuControl()
	frames := make(chan struct{}, 100)
	done := make(chan struct{})
	go func() {
		defer close(done)
		for ec.CheckPause() {
			select {
			case frames <- struct{}{}:
			default:
			}
			time.Sleep(time.Millisecond)
		}
	}()

	ec.RequestPause()
	assert.True(t, ec.IsPaused())

	ec.TogglePause()
	assert.Eventually(t, func() bool { return !ec.IsPaused() }, time.Second, 5*time.Millisecond)

	ec.Stop()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("emulation loop did not exit after Stop")
	}
	assert.False(t, ec.IsPaused())
}

func TestEmuControl_StopWhilePaused(t *testing.T) {
	ec := NewEmuControl()
	done := make(chan bool, 1)
	go func() {
		for ec.CheckPause() {
			time.Sleep(time.Millisecond)
		}
		done <- true
	}()

	ec.RequestPause()
	ec.Stop()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("paused loop did not exit after Stop")
	}

	// Pausing a stopped loop returns immediately
	ec.RequestPause()
	assert.False(t, ec.IsPaused())
}

func TestEmuControl_PauseAfterExit(t *testing.T) {
	ec := NewEmuControl()
	done := make(chan struct{})
	go func() {
		defer close(done)
		defer ec.Exit()
		for i := 0; i < 3 && ec.CheckPause(); i++ {
			time.Sleep(time.Millisecond)
		}
	}()
	<-done
	assert.True(t, ec.Exited())

	returned := make(chan struct{})
	go func() {
		ec.TogglePause()
		close(returned)
	}()
	select {
	case <-returned:
	case <-time.After(time.Second):
		t.Fatal("pause request blocked after the loop exited")
	}
	assert.False(t, ec.IsPaused())
}

func TestEmuControl_ExitReleasesWaitingPause(t *testing.T) {
	ec := NewEmuControl()
	returned := make(chan struct{})
	go func() {
		ec.RequestPause()
		close(returned)
	}()

	// No loop ever acknowledges; exiting must release the waiter
	time.Sleep(10 * time.Millisecond)
	ec.Exit()
	select {
	case <-returned:
	case <-time.After(time.Second):
		t.Fatal("pause request still blocked after Exit")
	}
	ec.Exit()
	assert.False(t, ec.IsPaused())
}

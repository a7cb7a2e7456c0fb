package ui

import (
	"sync"
	"time"

	"github.com/user-none/emapu/emu"
)

// SharedMutes holds the channel mute mask toggled by the Ebiten thread and
// applied by the emulation goroutine before each frame.
type SharedMutes struct {
	mu   sync.Mutex
	mask uint8
}

// Toggle flips the mute state of ch.
func (sm *SharedMutes) Toggle(ch int) {
	if ch < 0 || ch >= emu.NumChannels {
		return
	}
	sm.mu.Lock()
	sm.mask ^= 1 << ch
	sm.mu.Unlock()
}

// Mask returns the current mute mask.
func (sm *SharedMutes) Mask() uint8 {
	sm.mu.Lock()
	m := sm.mask
	sm.mu.Unlock()
	return m
}

// Apply copies the mask onto e.
func (sm *SharedMutes) Apply(e *emu.Emulator) {
	m := sm.Mask()
	for ch := 0; ch < emu.NumChannels; ch++ {
		e.SetChannelMute(ch, m&(1<<ch) != 0)
	}
}

// ScopeSnapshot is one frame of per-channel output plus the channel status.
type ScopeSnapshot struct {
	Samples [emu.NumChannels][]uint8
	Status  [emu.NumChannels]emu.ChannelStatus
	Muted   uint8
	Frame   int
}

// SharedScope holds the last frame's channel samples written by the
// emulation goroutine and read by Ebiten's Draw() method. Update copies
// into a write snapshot; Read copies that into a separate read snapshot so
// the caller can use it without holding the lock.
type SharedScope struct {
	mu    sync.Mutex
	write ScopeSnapshot
	read  ScopeSnapshot
}

// NewSharedScope creates a scope with room for size samples per channel.
func NewSharedScope(size int) *SharedScope {
	ss := &SharedScope{}
	for ch := 0; ch < emu.NumChannels; ch++ {
		ss.write.Samples[ch] = make([]uint8, 0, size)
		ss.read.Samples[ch] = make([]uint8, 0, size)
	}
	return ss
}

// Update captures the current frame of e.
func (ss *SharedScope) Update(e *emu.Emulator) {
	ss.mu.Lock()
	for ch := 0; ch < emu.NumChannels; ch++ {
		ss.write.Samples[ch] = append(ss.write.Samples[ch][:0], e.GetChannelSamples(ch)...)
		if e.ChannelMuted(ch) {
			ss.write.Muted |= 1 << ch
		} else {
			ss.write.Muted &^= 1 << ch
		}
	}
	ss.write.Status = e.Status()
	ss.write.Frame = e.Frame()
	ss.mu.Unlock()
}

// Read returns a snapshot of the last update. The snapshot is reused by
// the next Read.
func (ss *SharedScope) Read() *ScopeSnapshot {
	ss.mu.Lock()
	for ch := 0; ch < emu.NumChannels; ch++ {
		ss.read.Samples[ch] = append(ss.read.Samples[ch][:0], ss.write.Samples[ch]...)
	}
	ss.read.Status = ss.write.Status
	ss.read.Muted = ss.write.Muted
	ss.read.Frame = ss.write.Frame
	ss.mu.Unlock()
	return &ss.read
}

// EmuControl manages pause/resume/stop coordination between
// the Ebiten thread and the emulation goroutine.
type EmuControl struct {
	mu       sync.Mutex
	pauseReq bool
	paused   bool
	stopReq  bool
	ackCh    chan struct{}
	doneCh   chan struct{}
	doneOnce sync.Once
}

// NewEmuControl creates a new emulation control.
func NewEmuControl() *EmuControl {
	return &EmuControl{
		ackCh:  make(chan struct{}, 1),
		doneCh: make(chan struct{}),
	}
}

// Exit is called by the emulation goroutine when it returns. Pause
// requests made after it, or waiting on it, return immediately.
func (ec *EmuControl) Exit() {
	ec.doneOnce.Do(func() { close(ec.doneCh) })
}

// Exited reports whether the emulation goroutine has returned.
func (ec *EmuControl) Exited() bool {
	select {
	case <-ec.doneCh:
		return true
	default:
		return false
	}
}

// RequestPause asks the emulation goroutine to pause and blocks
// until it acknowledges the pause or exits.
func (ec *EmuControl) RequestPause() {
	ec.mu.Lock()
	if ec.paused || ec.pauseReq || ec.stopReq || ec.Exited() {
		ec.mu.Unlock()
		return
	}
	ec.pauseReq = true
	ec.mu.Unlock()

	select {
	case <-ec.ackCh:
	case <-ec.doneCh:
		ec.mu.Lock()
		ec.pauseReq = false
		ec.mu.Unlock()
	}
}

// RequestResume tells the emulation goroutine to resume.
func (ec *EmuControl) RequestResume() {
	ec.mu.Lock()
	ec.pauseReq = false
	ec.paused = false
	ec.mu.Unlock()
}

// TogglePause pauses a running goroutine or resumes a paused one.
func (ec *EmuControl) TogglePause() {
	if ec.IsPaused() {
		ec.RequestResume()
		return
	}
	ec.RequestPause()
}

// CheckPause is called by the emulation goroutine between frames.
// If a pause has been requested, it sends an acknowledgment and
// polls until resumed or stopped. Returns false if the goroutine
// should exit.
func (ec *EmuControl) CheckPause() bool {
	ec.mu.Lock()
	if ec.stopReq {
		ec.mu.Unlock()
		return false
	}
	if !ec.pauseReq {
		ec.mu.Unlock()
		return true
	}
	ec.paused = true
	ec.mu.Unlock()

	select {
	case ec.ackCh <- struct{}{}:
	default:
	}

	for {
		ec.mu.Lock()
		if ec.stopReq {
			ec.mu.Unlock()
			return false
		}
		if !ec.pauseReq {
			ec.paused = false
			ec.mu.Unlock()
			return true
		}
		ec.mu.Unlock()
		time.Sleep(10 * time.Millisecond)
	}
}

// Stop signals the emulation goroutine to exit.
func (ec *EmuControl) Stop() {
	ec.mu.Lock()
	ec.stopReq = true
	ec.pauseReq = false
	ec.paused = false
	ec.mu.Unlock()
}

// IsPaused returns true if the emulation goroutine is currently paused.
func (ec *EmuControl) IsPaused() bool {
	ec.mu.Lock()
	p := ec.paused
	ec.mu.Unlock()
	return p
}

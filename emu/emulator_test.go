package emu

import "testing"

// newPulseTrace returns a trace that starts pulse 1 at cycle 0 and stops
// it in the second frame.
func newPulseTrace(t *testing.T) *Trace {
	t.Helper()
	tr := NewTrace()
	writes := []TraceWrite{
		{0, 0x4000, 0x9F},
		{0, 0x4001, 0x00},
		{0, 0x4002, 0x00},
		{0, 0x4003, 0x02 | 5<<3},
		{5, 0x4015, 0x01},
		{40000, 0x4015, 0x00},
	}
	for _, w := range writes {
		if err := tr.Add(w.Cycle, w.Addr, w.Value); err != nil {
			t.Fatalf("Add: %v", err)
		}
	}
	return tr
}

func createTestEmulator(t *testing.T, tr *Trace) *Emulator {
	t.Helper()
	e, err := NewEmulator(tr, QualityHigh)
	if err != nil {
		t.Fatalf("NewEmulator: %v", err)
	}
	t.Cleanup(e.Shutdown)
	return e
}

func countNonZero(s []int16) int {
	n := 0
	for _, v := range s {
		if v != 0 {
			n++
		}
	}
	return n
}

func TestNewEmulator_NilTrace(t *testing.T) {
	if _, err := NewEmulator(nil, QualityHigh); err == nil {
		t.Error("expected error for nil trace")
	}
}

func TestNewEmulator_InvalidQuality(t *testing.T) {
	if _, err := NewEmulator(NewTrace(), Quality(7)); err == nil {
		t.Error("expected error for invalid quality")
	}
}

func TestEmulator_RunFrame(t *testing.T) {
	e := createTestEmulator(t, newPulseTrace(t))
	e.RunFrame()

	if e.Frame() != 1 {
		t.Errorf("Frame: got %d, want 1", e.Frame())
	}
	audio := e.GetAudioSamples()
	if len(audio) != 733*2 {
		t.Fatalf("audio samples: got %d, want %d", len(audio), 733*2)
	}
	if countNonZero(audio) == 0 {
		t.Error("expected pulse output in first frame")
	}
	if got := len(e.GetChannelSamples(ChannelPulse1)); got != 733 {
		t.Errorf("channel samples: got %d, want 733", got)
	}
	if e.GetChannelSamples(-1) != nil || e.GetChannelSamples(NumChannels) != nil {
		t.Error("out of range channel should return nil")
	}
	if !e.Status()[ChannelPulse1].Enabled {
		t.Error("pulse 1 should be enabled after first frame")
	}
	if e.Done() {
		t.Error("trace should not be done after one frame")
	}
	if e.Cycles() != NTSCTiming.CycleAtDot(uint64(NTSCTiming.DotsPerFrame())) {
		t.Errorf("Cycles: got %d, want %d", e.Cycles(), NTSCTiming.CycleAtDot(uint64(NTSCTiming.DotsPerFrame())))
	}
}

func TestEmulator_PlaysToEnd(t *testing.T) {
	tr := newPulseTrace(t)
	e := createTestEmulator(t, tr)
	frames := tr.Frames(e.Timing())
	for i := 0; i < frames; i++ {
		e.RunFrame()
	}
	if !e.Done() {
		t.Fatalf("trace not done after %d frames", frames)
	}
	if e.Status()[ChannelPulse1].Enabled {
		t.Error("pulse 1 should be disabled at end of trace")
	}

	// A frame after the last write is silent once the filter settles
	e.RunFrame()
	audio := e.GetAudioSamples()
	if tail := audio[len(audio)-2:]; tail[0] != 0 || tail[1] != 0 {
		t.Errorf("expected silence after trace end, got %v", tail)
	}
}

func TestEmulator_ChannelMute(t *testing.T) {
	e := createTestEmulator(t, newPulseTrace(t))
	e.SetChannelMute(ChannelPulse1, true)
	if !e.ChannelMuted(ChannelPulse1) {
		t.Fatal("pulse 1 should be muted")
	}
	e.RunFrame()
	if n := countNonZero(e.GetAudioSamples()); n != 0 {
		t.Errorf("muted frame has %d non-zero samples", n)
	}
	// The scope still sees the raw channel output
	nonZero := false
	for _, v := range e.GetChannelSamples(ChannelPulse1) {
		if v != 0 {
			nonZero = true
			break
		}
	}
	if !nonZero {
		t.Error("scope should show pulse 1 while muted")
	}
}

func TestEmulator_Reset(t *testing.T) {
	e := createTestEmulator(t, newPulseTrace(t))
	e.RunFrame()
	first := append([]int16(nil), e.GetAudioSamples()...)

	e.Reset()
	if e.Frame() != 0 || e.Cycles() != 0 {
		t.Fatalf("after Reset: frame %d cycle %d", e.Frame(), e.Cycles())
	}
	e.RunFrame()
	again := e.GetAudioSamples()
	if len(again) != len(first) {
		t.Fatalf("length after Reset: got %d, want %d", len(again), len(first))
	}
	for i := range first {
		if first[i] != again[i] {
			t.Fatalf("sample %d differs after Reset: %d vs %d", i, again[i], first[i])
		}
	}
}

func TestEmulator_SetQuality(t *testing.T) {
	e := createTestEmulator(t, newPulseTrace(t))
	e.SetChannelMute(ChannelNoise, true)
	if err := e.SetQuality(QualityLow); err != nil {
		t.Fatalf("SetQuality: %v", err)
	}
	if e.SampleRate() != 11025 {
		t.Errorf("SampleRate: got %d, want 11025", e.SampleRate())
	}
	if !e.ChannelMuted(ChannelNoise) {
		t.Error("mute mask lost across quality change")
	}
	e.RunFrame()
	// 45888 * 262 / 65536 = 183.4
	if got := len(e.GetAudioSamples()); got != 183*2 {
		t.Errorf("audio samples at low quality: got %d, want %d", got, 183*2)
	}
	if err := e.SetQuality(Quality(0)); err == nil {
		t.Error("expected error for invalid quality")
	}
}

func TestEmulator_OpenRejectsInvalidFormat(t *testing.T) {
	e := createTestEmulator(t, NewTrace())
	if err := e.Open(0, 44100); err == nil {
		t.Error("expected error for zero samples per sync")
	}
	if err := e.Open(3, 0); err == nil {
		t.Error("expected error for zero sample rate")
	}
}

func TestEmulator_OutputRespectsCapacity(t *testing.T) {
	e := createTestEmulator(t, NewTrace())
	if err := e.Open(1, 44100); err != nil {
		t.Fatalf("Open: %v", err)
	}
	var bufs [NumChannels][]uint8
	for ch := range bufs {
		bufs[ch] = make([]uint8, 300)
	}
	if got := e.Output(&bufs, 300); got != 262 {
		t.Errorf("first Output: got %d, want 262", got)
	}
	if got := e.Output(&bufs, 1); got != 0 {
		t.Errorf("Output when full: got %d, want 0", got)
	}
}

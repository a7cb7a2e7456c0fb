package emu

import "fmt"

// Compile-time interface checks.
var _ Clock = (*Emulator)(nil)
var _ Sink = (*Emulator)(nil)
var _ Memory = (*Trace)(nil)

// Emulator plays a register trace through the APU. It stands in for the
// host CPU: trace writes are issued at their recorded cycle within each
// scanline, followed by an hsync, with a vsync at the end of every frame.
type Emulator struct {
	apu    *APU
	trace  *Trace
	timing Timing
	mixer  *Mixer

	traceCRC uint32

	dot   uint64 // Absolute PPU dot position
	cycle uint64 // CPU cycle reported to the APU
	next  int    // Index of the next trace write
	frame int

	// Pre-allocated audio buffer for external consumption
	audioBuffer []int16

	// Per-channel samples of the last frame, for visualization
	scope    [NumChannels][]uint8
	scopeLen int
}

// NewEmulator creates an emulator that plays trace at quality q.
func NewEmulator(trace *Trace, q Quality) (*Emulator, error) {
	if trace == nil {
		return nil, fmt.Errorf("nil trace")
	}
	e := &Emulator{
		trace:    trace,
		timing:   NTSCTiming,
		traceCRC: trace.CRC32(),
	}
	apu, err := NewAPU(q, e, trace, e)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize APU: %w", err)
	}
	e.apu = apu
	return e, nil
}

// Cycles implements Clock.
func (e *Emulator) Cycles() uint64 {
	return e.cycle
}

// Open implements Sink. It sizes the frame buffers for samplesPerSync
// samples per scanline and rebuilds the mixer for sampleRate, keeping the
// mute mask.
func (e *Emulator) Open(samplesPerSync, sampleRate int) error {
	if samplesPerSync <= 0 || sampleRate <= 0 {
		return fmt.Errorf("invalid audio format: %d samples/sync at %d Hz", samplesPerSync, sampleRate)
	}
	var mask uint8
	if e.mixer != nil {
		mask = e.mixer.MuteMask()
	}
	e.mixer = NewMixer(sampleRate)
	for ch := 0; ch < NumChannels; ch++ {
		e.mixer.SetMute(ch, mask&(1<<ch) != 0)
	}

	perFrame := samplesPerSync * e.timing.Scanlines
	e.audioBuffer = make([]int16, 0, perFrame*2)
	for ch := range e.scope {
		e.scope[ch] = make([]uint8, perFrame)
	}
	e.scopeLen = 0
	return nil
}

// Output implements Sink. Samples beyond the frame buffer capacity are
// refused.
func (e *Emulator) Output(bufs *[NumChannels][]uint8, n int) int {
	free := (cap(e.audioBuffer) - len(e.audioBuffer)) / 2
	n = min(n, free)
	if n <= 0 {
		return 0
	}
	e.audioBuffer = e.mixer.Mix(e.audioBuffer, bufs, n)
	for ch := range e.scope {
		copy(e.scope[ch][e.scopeLen:], bufs[ch][:n])
	}
	e.scopeLen += n
	return n
}

// Close implements Sink.
func (e *Emulator) Close() {
	e.audioBuffer = e.audioBuffer[:0]
	e.scopeLen = 0
}

// RunFrame plays one frame of the trace.
func (e *Emulator) RunFrame() {
	e.audioBuffer = e.audioBuffer[:0]
	e.scopeLen = 0

	writes := e.trace.Writes
	lineDots := uint64(e.timing.DotsPerScanline)
	for line := 0; line < e.timing.Scanlines; line++ {
		e.dot += lineDots
		lineEnd := e.timing.CycleAtDot(e.dot)

		// Issue this scanline's writes at their exact cycle
		for e.next < len(writes) && writes[e.next].Cycle < lineEnd {
			w := writes[e.next]
			e.cycle = max(e.cycle, w.Cycle)
			e.apu.Write(w.Addr, w.Value)
			e.next++
		}

		e.cycle = lineEnd
		e.apu.HSync()
	}
	e.apu.VSync()
	e.frame++
}

// Done reports whether every trace write has been issued.
func (e *Emulator) Done() bool {
	return e.next >= len(e.trace.Writes)
}

// Frame returns the number of frames played.
func (e *Emulator) Frame() int {
	return e.frame
}

// Reset rewinds playback to the start of the trace.
func (e *Emulator) Reset() {
	e.dot = 0
	e.cycle = 0
	e.next = 0
	e.frame = 0
	e.apu.Reset()
	e.mixer.Reset()
	e.audioBuffer = e.audioBuffer[:0]
	e.scopeLen = 0
}

// SetQuality re-initializes the APU at a new quality level. Channel state
// is reset; trace position is kept.
func (e *Emulator) SetQuality(q Quality) error {
	return e.apu.Init(q)
}

// GetAudioSamples returns the last frame's audio as 16-bit stereo PCM.
func (e *Emulator) GetAudioSamples() []int16 {
	return e.audioBuffer
}

// SampleRate returns the output rate.
func (e *Emulator) SampleRate() int {
	return e.apu.Settings().SampleRate
}

// GetChannelSamples returns the last frame's raw samples for ch.
func (e *Emulator) GetChannelSamples(ch int) []uint8 {
	if ch < 0 || ch >= NumChannels {
		return nil
	}
	return e.scope[ch][:e.scopeLen]
}

// SetChannelMute mutes or unmutes a channel in the mix.
func (e *Emulator) SetChannelMute(ch int, muted bool) {
	e.mixer.SetMute(ch, muted)
}

// ChannelMuted reports whether ch is muted.
func (e *Emulator) ChannelMuted(ch int) bool {
	return e.mixer.Muted(ch)
}

// Status returns the APU channel status.
func (e *Emulator) Status() [NumChannels]ChannelStatus {
	return e.apu.Status()
}

// APU returns the underlying engine.
func (e *Emulator) APU() *APU {
	return e.apu
}

// Timing returns the video timing in use.
func (e *Emulator) Timing() Timing {
	return e.timing
}

// Trace returns the trace being played.
func (e *Emulator) Trace() *Trace {
	return e.trace
}

// Shutdown closes the APU.
func (e *Emulator) Shutdown() {
	e.apu.Close()
}

package emu

import (
	"errors"
	"math"
)

// Clock supplies the host CPU cycle counter used to timestamp register
// writes. It must be monotonic.
type Clock interface {
	Cycles() uint64
}

// Memory supplies program memory reads for DPCM sample fetches.
type Memory interface {
	Read(addr uint16) uint8
}

// Sink receives the rendered per-channel sample buffers once per hsync.
type Sink interface {
	// Open is called on Init with the per-hsync buffer size and the
	// nominal sample rate.
	Open(samplesPerSync, sampleRate int) error
	// Output consumes the first n samples of every buffer and returns how
	// many it accepted. Samples not accepted are dropped.
	Output(bufs *[NumChannels][]uint8, n int) int
	Close()
}

// channel is the per-channel state driven by the APU.
type channel interface {
	// registers returns the write handlers for sub-registers 0-3.
	registers() [slotsPerChannel]func(v uint8)
	// control is called when a control register write is replayed.
	control(on bool)
	// sample advances one output sample. on is the staged enable bit.
	sample(on bool) uint8
	vsync()
	status() ChannelStatus
}

// ChannelStatus is a read-only view of one channel for diagnostics.
type ChannelStatus struct {
	Period  uint32 // Raw timer period (DPCM: remaining DMA bits)
	Length  int    // Active time left in frames (triangle: also gated by Linear)
	Linear  int    // Triangle linear counter, 0 for other channels
	Volume  uint8  // Current 4-bit volume (DPCM: 7-bit output level)
	Enabled bool   // Committed control register bit
}

// APU is the five-channel sound engine. Register writes are timestamped
// against the host clock and replayed while rendering on the next hsync.
type APU struct {
	quality  Quality
	settings QualitySettings

	clock Clock
	mem   Memory
	sink  Sink

	pulse1 pulse
	pulse2 pulse
	tri    triangle
	noise  noise
	dpcm   dpcm

	channels [NumChannels]channel
	handlers [NumChannels][slotsPerChannel]func(v uint8)

	events    eventLog
	enterTime uint64

	// ctrl is committed at the end of each hsync. ctrlNew is staged by
	// replayed control writes and gates rendering within the pass.
	ctrl    uint8
	ctrlNew uint8

	leftSamples16  uint32
	bufs           [NumChannels][]uint8
	droppedSamples uint64
	open           bool
}

var (
	errNilClock = errors.New("apu: nil clock")
	errNilMem   = errors.New("apu: nil memory")
	errNilSink  = errors.New("apu: nil sink")
)

// NewAPU creates an engine and initializes it at quality q.
func NewAPU(q Quality, clock Clock, mem Memory, sink Sink) (*APU, error) {
	switch {
	case clock == nil:
		return nil, errNilClock
	case mem == nil:
		return nil, errNilMem
	case sink == nil:
		return nil, errNilSink
	}

	a := &APU{clock: clock, mem: mem, sink: sink}
	a.channels = [NumChannels]channel{&a.pulse1, &a.pulse2, &a.tri, &a.noise, &a.dpcm}
	for ch, c := range a.channels {
		a.handlers[ch] = c.registers()
	}
	if err := a.Init(q); err != nil {
		return nil, err
	}
	return a, nil
}

// Init selects the constant set for q, resets every channel and opens the
// sink. A previously opened sink is closed first.
func (a *APU) Init(q Quality) error {
	s, err := q.Settings()
	if err != nil {
		return err
	}
	if a.open {
		a.Close()
	}

	a.quality = q
	a.settings = s
	size := s.MaxSamplesPerSync()
	for ch := range a.bufs {
		a.bufs[ch] = make([]uint8, size)
	}
	a.Reset()

	if err := a.sink.Open(size, s.SampleRate); err != nil {
		return err
	}
	a.open = true
	return nil
}

// Reset returns every channel to its power-on state and discards pending
// events. The quality level and sink are unchanged.
func (a *APU) Reset() {
	a.pulse1.reset(a.settings.PulseMagic, false)
	a.pulse2.reset(a.settings.PulseMagic, true)
	a.tri.reset(a.settings.TriangleMagic)
	a.noise.reset(a.settings.NoiseMagic)
	a.dpcm.reset(a.settings.CycleRate, a.mem)

	a.ctrl = 0
	a.ctrlNew = 0
	a.leftSamples16 = 0
	a.droppedSamples = 0
	a.events.flush()
	a.events.dropped = 0
	for ch := range a.bufs {
		clear(a.bufs[ch])
	}
	a.enterTime = a.clock.Cycles()
}

// Close closes the sink. The engine must be re-initialized before use.
func (a *APU) Close() {
	if !a.open {
		return
	}
	a.sink.Close()
	a.open = false
}

// Quality returns the active quality level.
func (a *APU) Quality() Quality {
	return a.quality
}

// Settings returns the active constant set.
func (a *APU) Settings() QualitySettings {
	return a.settings
}

// Write records a CPU write to addr. Addresses outside $4000-$4013 and
// $4015 are ignored.
func (a *APU) Write(addr uint16, v uint8) {
	if slot, ok := SlotForAddress(addr); ok {
		a.WriteSlot(slot, v)
	}
}

// WriteSlot records a write to a register slot, stamped with the cycles
// elapsed since the last hsync.
func (a *APU) WriteSlot(slot Slot, v uint8) {
	if slot > SlotControl {
		return
	}
	elapsed := a.clock.Cycles() - a.enterTime
	if elapsed > math.MaxUint32 {
		elapsed = math.MaxUint32
	}
	a.events.record(uint32(elapsed), slot, v)
}

// HSync renders the samples owed for the elapsed interval, hands them to
// the sink and flushes the event log.
func (a *APU) HSync() {
	n16 := a.settings.SamplesPerSync16 + a.leftSamples16
	n := int(n16 >> 16)
	a.leftSamples16 = n16 & 0xFFFF

	for ch := 0; ch < NumChannels; ch++ {
		a.render(ch, n)
	}
	a.ctrl = a.ctrlNew

	if a.open {
		accepted := a.sink.Output(&a.bufs, n)
		if accepted < n {
			a.droppedSamples += uint64(n - max(accepted, 0))
		}
	}

	a.enterTime = a.clock.Cycles()
	a.events.flush()
}

// render replays the event log against one channel while producing n
// samples. Events stamped before the end of sample i are applied before it
// is produced; the remainder is applied after the last sample.
func (a *APU) render(ch, n int) {
	c := a.channels[ch]
	bit := uint8(1) << ch
	cps := uint64(a.settings.CyclesPerSample)
	buf := a.bufs[ch][:n]

	a.ctrlNew = a.ctrl
	a.events.rewind(ch)
	for i := range buf {
		a.dispatch(ch, uint64(i+1)*cps)
		buf[i] = c.sample(a.ctrlNew&bit != 0)
	}
	a.dispatch(ch, math.MaxUint64)
}

// dispatch applies every unconsumed event for ch stamped before until.
func (a *APU) dispatch(ch int, until uint64) {
	for {
		ev, ok := a.events.next(ch, until)
		if !ok {
			return
		}
		if ev.Slot == SlotControl {
			a.ctrlNew = ev.Value
			a.channels[ch].control(ev.Value&(1<<ch) != 0)
			continue
		}
		if ev.Slot.Channel() == ch {
			a.handlers[ch][ev.Slot.Register()](ev.Value)
		}
	}
}

// VSync clocks the frame-rate units: length counters, envelopes, sweeps and
// the triangle linear counter.
func (a *APU) VSync() {
	for _, c := range a.channels {
		c.vsync()
	}
}

// DroppedEvents returns the number of register writes discarded because
// the event log was full.
func (a *APU) DroppedEvents() uint64 {
	return a.events.dropped
}

// DroppedSamples returns the number of samples the sink refused.
func (a *APU) DroppedSamples() uint64 {
	return a.droppedSamples
}

// PendingEvents returns the number of writes waiting for the next hsync.
func (a *APU) PendingEvents() int {
	return a.events.Len()
}

// Control returns the committed control register.
func (a *APU) Control() uint8 {
	return a.ctrl
}

// Status returns a snapshot of every channel.
func (a *APU) Status() [NumChannels]ChannelStatus {
	var out [NumChannels]ChannelStatus
	for ch, c := range a.channels {
		out[ch] = c.status()
		out[ch].Enabled = a.ctrl&(1<<ch) != 0
	}
	return out
}

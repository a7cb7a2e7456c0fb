package emu

import (
	"math"
	"testing"
)

var highQuality = qualityTable[QualityHigh]

// newTestPulse returns a pulse channel with the given registers written in
// order 0-3.
func newTestPulse(rampSubtract bool, r0, r1, r2, r3 uint8) *pulse {
	p := &pulse{}
	p.reset(highQuality.PulseMagic, rampSubtract)
	w := p.registers()
	w[0](r0)
	w[1](r1)
	w[2](r2)
	w[3](r3)
	return p
}

func TestPulse_PeriodMatchesPhaseStep(t *testing.T) {
	for _, freq := range []uint16{8, 100, 512, 2047} {
		// Negate set so the frequency ceiling does not silence long periods
		p := newTestPulse(false, 0xBF, 0x08, uint8(freq), uint8(freq>>8))
		expected := float64(phaseMask+1) / float64(p.skip)

		var edges []int
		prev := uint8(0)
		for i := 0; i < 3000; i++ {
			v := p.sample(true)
			if v != 0 && prev == 0 {
				edges = append(edges, i)
			}
			prev = v
		}
		if len(edges) < 3 {
			t.Fatalf("freq %d: only %d rising edges", freq, len(edges))
		}
		for i := 1; i < len(edges); i++ {
			interval := float64(edges[i] - edges[i-1])
			if math.Abs(interval-expected) > 1 {
				t.Errorf("freq %d: edge interval %v, want %.2f +/- 1", freq, interval, expected)
				break
			}
		}
	}
}

func TestPulse_PhaseStep(t *testing.T) {
	tests := []struct {
		freq uint16
		skip uint32
	}{
		{0, 0},
		{1, 0},
		{2, highQuality.PulseMagic},
		{0x200, highQuality.PulseMagic / 0x100},
		{0x7FF, highQuality.PulseMagic / 0x3FF},
	}
	for _, tt := range tests {
		p := newTestPulse(false, 0xBF, 0, uint8(tt.freq), uint8(tt.freq>>8))
		if p.skip != tt.skip {
			t.Errorf("freq %d: skip got %d, want %d", tt.freq, p.skip, tt.skip)
		}
	}
}

func TestPulse_SilentBelowMinimumPeriod(t *testing.T) {
	p := newTestPulse(false, 0xBF, 0x08, 7, 0x08)
	for i := 0; i < 50; i++ {
		if v := p.sample(true); v != 0 {
			t.Fatalf("sample %d: got %d, want 0", i, v)
		}
	}
	if p.index != 0 {
		t.Errorf("phase advanced while silent: %#x", p.index)
	}
}

func TestPulse_FrequencyCeiling(t *testing.T) {
	// Shift 0 ceiling is 0x3FF. Sweep direction add with a higher period is silent.
	p := newTestPulse(false, 0xBF, 0x00, 0x00, 0x04|0x08)
	for i := 0; i < 50; i++ {
		if v := p.sample(true); v != 0 {
			t.Fatalf("sample %d above ceiling: got %d, want 0", i, v)
		}
	}
	// Shift 7 raises the ceiling to 0x7F0
	p.writeSweep(0x07)
	heard := false
	for i := 0; i < 200; i++ {
		if p.sample(true) != 0 {
			heard = true
		}
	}
	if !heard {
		t.Error("expected output below the shift 7 ceiling")
	}
}

func TestPulse_DutyCycles(t *testing.T) {
	tests := []struct {
		duty uint8
		high int
	}{
		{0, 28},
		{1, 24},
		{2, 16},
		{3, 8},
	}
	for _, tt := range tests {
		p := newTestPulse(false, tt.duty<<6|0x1F, 0, 0, 0x01)
		if p.wave != pulseWaves[tt.duty] {
			t.Errorf("duty %d: wrong waveform selected", tt.duty)
		}
		high := 0
		for _, v := range p.wave {
			if v != 0 {
				high++
			}
		}
		if high != tt.high {
			t.Errorf("duty %d: %d/32 high steps, want %d", tt.duty, high, tt.high)
		}
	}
}

func TestPulse_HoldIgnoresLength(t *testing.T) {
	p := newTestPulse(false, 0xBF, 0, 0x00, 0x02) // hold, length index 0 (5 frames)
	for i := 0; i < 10; i++ {
		p.vsync()
	}
	if p.atl != 0 {
		t.Fatalf("atl: got %d, want 0", p.atl)
	}
	heard := false
	for i := 0; i < 300; i++ {
		if p.sample(true) != 0 {
			heard = true
		}
	}
	if !heard {
		t.Error("hold flag set: expected output after length expiry")
	}
}

func TestPulse_DisabledIsSilent(t *testing.T) {
	p := newTestPulse(false, 0x9F, 0, 0x00, 0x02)
	for i := 0; i < 50; i++ {
		if v := p.sample(false); v != 0 {
			t.Fatalf("sample %d: got %d, want 0", i, v)
		}
	}
	p.control(false)
	if p.atl != 0 {
		t.Errorf("atl after disable: got %d, want 0", p.atl)
	}
}

func TestPulse_LowWriteKeepsLength(t *testing.T) {
	p := newTestPulse(false, 0x80, 0, 0x00, 0x02|1<<3) // length 127
	p.vsync()
	p.writeLow(0x40)
	if p.atl != 126 {
		t.Errorf("atl after low write: got %d, want 126", p.atl)
	}
	if p.freq != 0x240 {
		t.Errorf("freq: got %#x, want 0x240", p.freq)
	}
}

func TestPulse_EnvelopeDecay(t *testing.T) {
	p := newTestPulse(false, 0x80, 0, 0x00, 0x02) // decaying, delay 0, no hold
	if p.envVol != 15 {
		t.Fatalf("envVol after reg3 write: got %d, want 15", p.envVol)
	}
	for want := 14; want >= 0; want-- {
		p.vsync()
		if int(p.envVol) != want {
			t.Fatalf("envVol: got %d, want %d", p.envVol, want)
		}
	}
	for i := 0; i < 5; i++ {
		p.vsync()
		if p.envVol != 0 {
			t.Fatalf("envVol after reaching 0: got %d", p.envVol)
		}
	}
}

func TestPulse_EnvelopeHoldWraps(t *testing.T) {
	p := newTestPulse(false, 0xA0, 0, 0x00, 0x02) // decaying, delay 0, hold
	for i := 0; i < 15; i++ {
		p.vsync()
	}
	if p.envVol != 0 {
		t.Fatalf("envVol: got %d, want 0", p.envVol)
	}
	p.vsync()
	if p.envVol != 15 {
		t.Errorf("envVol after wrap: got %d, want 15", p.envVol)
	}
}

func TestPulse_EnvelopeDelay(t *testing.T) {
	p := newTestPulse(false, 0x83, 0, 0x00, 0x02) // delay 3
	got := []uint8{}
	for i := 0; i < 8; i++ {
		p.vsync()
		got = append(got, p.envVol)
	}
	want := []uint8{14, 14, 14, 14, 13, 13, 13, 13}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("envVol sequence: got %v, want %v", got, want)
		}
	}
}

func TestPulse_EnvelopeScalesOutput(t *testing.T) {
	p := newTestPulse(false, 0x85, 0, 0x00, 0x02) // decaying; register volume ignored
	p.envVol = 7
	if v := p.sample(true); v != 0x11*7 {
		t.Errorf("decaying output: got %d, want %d", v, 0x11*7)
	}
	p.writeControl(0x95) // constant volume 5
	if v := p.sample(true); v != 0x11*5 {
		t.Errorf("constant output: got %d, want %d", v, 0x11*5)
	}
}

func TestPulse_Sweep(t *testing.T) {
	tests := []struct {
		name         string
		rampSubtract bool
		sweep        uint8
		want         uint32
	}{
		{"ch1 up", false, 0x89, 0xFF},    // 0x200 + ^0x100
		{"ch2 up", true, 0x89, 0x100},    // 0x200 - 0x100
		{"ch1 down", false, 0x81, 0x300}, // 0x200 + 0x100
		{"ch2 down", true, 0x81, 0x300},
		{"disabled", false, 0x09, 0x200},
		{"zero shift", false, 0x88, 0x200},
	}
	for _, tt := range tests {
		p := newTestPulse(tt.rampSubtract, 0xBF, tt.sweep, 0x00, 0x02)
		p.vsync()
		if p.freq != tt.want {
			t.Errorf("%s: freq got %#x, want %#x", tt.name, p.freq, tt.want)
		}
		if want := highQuality.PulseMagic / (tt.want / 2); p.skip != want {
			t.Errorf("%s: skip got %d, want %d", tt.name, p.skip, want)
		}
	}
}

func TestPulse_SweepStopsAtPeriodCeiling(t *testing.T) {
	// Held note, sweep down every frame with shift 1 from 0x400
	p := newTestPulse(false, 0xBF, 0x81, 0x00, 0x04)
	p.vsync()
	if p.freq != 0x600 {
		t.Fatalf("first step: freq got %#x, want 0x600", p.freq)
	}
	for frame := 1; frame < 300; frame++ {
		p.vsync()
		if p.freq != 0x600 {
			t.Fatalf("frame %d: freq got %#x, want 0x600", frame, p.freq)
		}
		for i := 0; i < 10; i++ {
			if v := p.sample(true); v != 0 {
				t.Fatalf("frame %d sample %d: got %d, want 0", frame, i, v)
			}
		}
	}
}

func TestPulse_SweepUpFloorsAtZero(t *testing.T) {
	// Channel 1 sweep up with shift 1 from period 1 reaches 0 and stays there
	p := newTestPulse(false, 0xBF, 0x89, 0x01, 0x00)
	for frame := 0; frame < 10; frame++ {
		p.vsync()
		if p.freq != 0 {
			t.Fatalf("frame %d: freq got %#x, want 0", frame, p.freq)
		}
		if v := p.sample(true); v != 0 {
			t.Fatalf("frame %d: got %d, want 0", frame, v)
		}
	}
}

func TestPulse_SweepDelay(t *testing.T) {
	p := newTestPulse(false, 0xBF, 0x81|2<<4, 0x00, 0x01) // delay 2, shift 1
	freqs := []uint32{}
	for i := 0; i < 6; i++ {
		p.vsync()
		freqs = append(freqs, p.freq)
	}
	want := []uint32{0x180, 0x180, 0x180, 0x240, 0x240, 0x240}
	for i := range want {
		if freqs[i] != want[i] {
			t.Fatalf("sweep sequence: got %#x, want %#x", freqs, want)
		}
	}
}

func newTestTriangle(r0, r2, r3 uint8) *triangle {
	tr := &triangle{}
	tr.reset(highQuality.TriangleMagic)
	w := tr.registers()
	w[0](r0)
	w[2](r2)
	w[3](r3)
	return tr
}

func TestTriangle_SilentUntilLinearReload(t *testing.T) {
	tr := newTestTriangle(0x7F, 0x00, 0x02|1<<3)
	for i := 0; i < 20; i++ {
		if v := tr.sample(true); v != 0 {
			t.Fatalf("sample %d before vsync: got %d, want 0", i, v)
		}
	}
	tr.vsync()
	if tr.llc != 127<<6 {
		t.Fatalf("llc after reload: got %d, want %d", tr.llc, 127<<6)
	}
	if tr.reloadFlag {
		t.Error("reload flag should clear without hold note")
	}

	skip := highQuality.TriangleMagic / 0x200
	if tr.skip != skip {
		t.Fatalf("skip: got %d, want %d", tr.skip, skip)
	}
	var index uint32
	for i := 0; i < 400; i++ {
		index = (index + skip) & phaseMask
		want := triangleWave[index>>phaseShift]
		if got := tr.sample(true); got != want {
			t.Fatalf("sample %d: got %d, want %d", i, got, want)
		}
	}
}

func TestTriangle_WriteLatency(t *testing.T) {
	tr := newTestTriangle(0x10, 0x00, 0x02|1<<3)
	for i := 1; i <= triangleWriteLatency; i++ {
		if tr.counterStarted {
			t.Fatalf("counter started after %d samples", i-1)
		}
		tr.sample(true)
	}
	if !tr.counterStarted {
		t.Fatal("counter not started after latency")
	}
	if tr.writeLatency != 0 {
		t.Errorf("writeLatency: got %d, want 0", tr.writeLatency)
	}
}

func TestTriangle_HoldNoteDefersCounter(t *testing.T) {
	tr := newTestTriangle(0x90, 0x00, 0x02|1<<3)
	for i := 0; i < 10; i++ {
		tr.sample(true)
	}
	if tr.counterStarted {
		t.Error("counter started while hold note set")
	}
	tr.vsync()
	tr.vsync()
	if !tr.reloadFlag {
		t.Error("reload flag cleared while hold note set")
	}
	if tr.atl != 127 {
		t.Errorf("atl with hold note: got %d, want 127", tr.atl)
	}
	if tr.llc != 0x10<<6 {
		t.Errorf("llc with hold note: got %d, want %d", tr.llc, 0x10<<6)
	}
}

func TestTriangle_LinearCounterDecay(t *testing.T) {
	tr := newTestTriangle(0x08, 0x00, 0x02|1<<3) // linear reload 8 -> 512
	tr.vsync()                                   // reload
	for i := 0; i < triangleWriteLatency; i++ {
		tr.sample(true)
	}
	tr.vsync()
	if tr.llc != 512-linearStep {
		t.Errorf("llc: got %d, want %d", tr.llc, 512-linearStep)
	}
	if tr.atl != 126 {
		t.Errorf("atl: got %d, want 126", tr.atl)
	}
	tr.vsync()
	tr.vsync()
	if tr.llc != 0 {
		t.Errorf("llc clamps at zero: got %d", tr.llc)
	}
	for i := 0; i < 20; i++ {
		if v := tr.sample(true); v != 0 {
			t.Fatalf("sample after linear expiry: got %d, want 0", v)
		}
	}
}

func TestTriangle_MinimumPeriodDoesNotAdvance(t *testing.T) {
	tr := newTestTriangle(0x7F, 0x07, 0x08)
	tr.vsync()
	for i := 0; i < 20; i++ {
		if v := tr.sample(true); v != 0 {
			t.Fatalf("sample %d: got %d, want 0", i, v)
		}
	}
	if tr.index != 0 {
		t.Errorf("index advanced: %#x", tr.index)
	}
	if tr.writeLatency != triangleWriteLatency {
		t.Errorf("write latency consumed below minimum period")
	}
}

func TestTriangle_DisableClearsCounters(t *testing.T) {
	tr := newTestTriangle(0x7F, 0x00, 0x02|1<<3)
	tr.vsync()
	tr.control(false)
	if tr.atl != 0 || tr.llc != 0 {
		t.Errorf("after disable: atl %d llc %d, want 0 0", tr.atl, tr.llc)
	}
	tr.control(true)
	if tr.atl != 0 || tr.llc != 0 {
		t.Errorf("enable must not reload: atl %d llc %d", tr.atl, tr.llc)
	}
}

func newTestNoise(r0, r2, r3 uint8) *noise {
	n := &noise{}
	n.reset(highQuality.NoiseMagic)
	w := n.registers()
	w[0](r0)
	w[2](r2)
	w[3](r3)
	return n
}

// lfsrPeriod clocks n from its current state until the state repeats.
func lfsrPeriod(t *testing.T, n *noise) int {
	t.Helper()
	start := n.sr
	for i := 1; i <= 1<<15; i++ {
		n.clock()
		if n.sr == 0 {
			t.Fatalf("shift register reached 0 after %d clocks", i)
		}
		if n.sr == start {
			return i
		}
	}
	t.Fatal("shift register did not cycle")
	return 0
}

func TestNoise_LFSRLongPeriod(t *testing.T) {
	n := newTestNoise(0x1F, 0x00, 0x08)
	if got := lfsrPeriod(t, n); got != 32767 {
		t.Errorf("long mode period: got %d, want 32767", got)
	}
}

func TestNoise_LFSRShortPeriod(t *testing.T) {
	n := newTestNoise(0x1F, 0x80, 0x08)
	if got := lfsrPeriod(t, n); got != 93 {
		t.Errorf("short mode period from seed 1: got %d, want 93", got)
	}
}

func TestNoise_ClockOncePerWrap(t *testing.T) {
	n := newTestNoise(0x1F, 0x0F, 0x08) // slowest period
	want := highQuality.NoiseMagic / 4068
	if n.skip != want {
		t.Fatalf("skip: got %d, want %d", n.skip, want)
	}
	clocks := 0
	prev := n.sr
	var index uint32
	for i := 0; i < 1000; i++ {
		n.sample(true)
		index += want
		if index > noiseWrap {
			index &= noiseWrap
			clocks++
		}
		if n.index != index {
			t.Fatalf("sample %d: index got %#x, want %#x", i, n.index, index)
		}
	}
	if clocks == 0 || n.sr == prev {
		t.Errorf("expected the shift register to clock, got %d wraps", clocks)
	}
}

func TestNoise_Output(t *testing.T) {
	n := newTestNoise(0x1A, 0x00, 0x08) // constant volume 10
	for i := 0; i < 500; i++ {
		v := n.sample(true)
		want := uint8(0)
		if n.sr&1 == 0 {
			want = 10 * 0x11
		}
		if v != want {
			t.Fatalf("sample %d: got %d, want %d (sr %#04x)", i, v, want, n.sr)
		}
	}
	n.regs[0] = 0x00
	n.envVol = 3
	n.sr = 2
	n.index = 0
	n.skip = 0
	if v := n.sample(true); v != 3*0x11 {
		t.Errorf("envelope output: got %d, want %d", v, 3*0x11)
	}
	if v := n.sample(false); v != 0 {
		t.Errorf("disabled output: got %d, want 0", v)
	}
}

func TestNoise_LengthAndEnvelope(t *testing.T) {
	n := newTestNoise(0x00, 0x00, 0x18) // length index 3 = 1 frame
	if n.atl != 1 || n.envVol != 15 {
		t.Fatalf("after reg3: atl %d envVol %d, want 1 15", n.atl, n.envVol)
	}
	n.vsync()
	if n.atl != 0 || n.envVol != 14 {
		t.Errorf("after vsync: atl %d envVol %d, want 0 14", n.atl, n.envVol)
	}
	n.writePeriod(0x03)
	if n.atl != 1 {
		t.Errorf("period write reloads length: got %d, want 1", n.atl)
	}

	n.regs[0] = 0x20 // hold
	n.vsync()
	if n.atl != 1 {
		t.Errorf("hold: atl got %d, want 1", n.atl)
	}
	n.control(false)
	if n.atl != 0 {
		t.Errorf("disable: atl got %d, want 0", n.atl)
	}
}

func newTestDPCM(mem Memory) *dpcm {
	d := &dpcm{}
	d.reset(highQuality.CycleRate, mem)
	return d
}

// runDPCM samples d until its transfer ends or limit samples elapse.
func runDPCM(d *dpcm, limit int) int {
	for i := 0; i < limit; i++ {
		if d.dmaLength == 0 {
			return i
		}
		d.sample(true)
	}
	return limit
}

func TestDPCM_RegisterDecode(t *testing.T) {
	d := newTestDPCM(&fakeMemory{})
	d.writeRate(0x4F)
	if d.freq != 54<<16 || !d.looping {
		t.Errorf("rate: freq %d looping %v", d.freq, d.looping)
	}
	d.writeLevel(0xFF)
	if d.value != 0x3F {
		t.Errorf("level: got %#x, want 0x3f", d.value)
	}
	if d.output() != 0x7F {
		t.Errorf("output: got %#x, want 0x7f", d.output())
	}
	d.writeAddress(0x01)
	if d.cacheAddr != 0xC040 {
		t.Errorf("address: got %#04x, want 0xc040", d.cacheAddr)
	}
	d.writeLength(0x01)
	if d.cacheLength != 17*8 {
		t.Errorf("length: got %d, want %d", d.cacheLength, 17*8)
	}
}

func TestDPCM_AddressWrapAndTermination(t *testing.T) {
	mem := &fakeMemory{}
	d := newTestDPCM(mem)
	d.writeRate(0x0F)
	d.writeAddress(0xFF) // $FFC0
	d.writeLength(0x04)  // 65 bytes
	d.control(true)

	if d.address != 0xFFC0 || d.dmaLength != 65*8 {
		t.Fatalf("transfer start: address %#04x length %d", d.address, d.dmaLength)
	}
	if n := runDPCM(d, 100000); n == 100000 {
		t.Fatal("transfer did not terminate")
	}

	if len(mem.reads) != 65 {
		t.Fatalf("bytes read: got %d, want 65", len(mem.reads))
	}
	for i := 0; i < 64; i++ {
		if mem.reads[i] != uint16(0xFFC0+i) {
			t.Fatalf("read %d: got %#04x, want %#04x", i, mem.reads[i], 0xFFC0+i)
		}
	}
	if mem.reads[64] != 0x8000 {
		t.Errorf("read after $FFFF: got %#04x, want 0x8000", mem.reads[64])
	}
	if d.dmaLength != 0 {
		t.Errorf("transfer still active after non-looping end: length %d", d.dmaLength)
	}
}

func TestDPCM_Loop(t *testing.T) {
	mem := &fakeMemory{}
	d := newTestDPCM(mem)
	d.writeRate(0x4F) // loop, fastest
	d.writeAddress(0x00)
	d.writeLength(0x00) // 1 byte
	d.control(true)

	for i := 0; i < 2000; i++ {
		d.sample(true)
	}
	if d.dmaLength == 0 {
		t.Fatal("looping transfer ended")
	}
	if len(mem.reads) < 10 {
		t.Fatalf("expected repeated reads, got %d", len(mem.reads))
	}
	for i, addr := range mem.reads {
		if addr != 0xC000 {
			t.Fatalf("read %d: got %#04x, want 0xc000", i, addr)
		}
	}
}

func TestDPCM_DeltaClamps(t *testing.T) {
	mem := &fakeMemory{}
	for i := 0xC000; i < 0xC000+17; i++ {
		mem.data[i] = 0xFF
	}
	d := newTestDPCM(mem)
	d.writeRate(0x0F)
	d.writeLevel(0x7E) // value 0x3F
	d.writeAddress(0x00)
	d.writeLength(0x01)
	d.control(true)
	runDPCM(d, 100000)
	if d.value != dpcmMaxLevel {
		t.Errorf("all ones: value got %#x, want %#x", d.value, dpcmMaxLevel)
	}

	for i := 0xC000; i < 0xC000+17; i++ {
		mem.data[i] = 0x00
	}
	d.control(true)
	runDPCM(d, 100000)
	if d.value != 1 {
		t.Errorf("all zeros: value got %d, want 1", d.value)
	}
}

func TestDPCM_BitOrder(t *testing.T) {
	mem := &fakeMemory{}
	mem.data[0xC000] = 0x01 // bit 0 is consumed first
	d := newTestDPCM(mem)
	d.writeRate(0x0F)
	d.writeLevel(0x20) // value 0x10
	d.writeAddress(0x00)
	d.writeLength(0x00)
	d.control(true)

	// Step one bit at a time
	d.phaseAcc = 0
	d.cycleRate = 1
	d.step()
	if d.value != 0x11 {
		t.Fatalf("after first bit: got %#x, want 0x11", d.value)
	}
	d.phaseAcc = 0
	d.step()
	if d.value != 0x10 {
		t.Errorf("after second bit: got %#x, want 0x10", d.value)
	}
}

func TestDPCM_ControlDoesNotRestartActiveTransfer(t *testing.T) {
	d := newTestDPCM(&fakeMemory{})
	d.writeAddress(0x10)
	d.writeLength(0x02)
	d.control(true)
	d.address = 0xC500
	d.dmaLength = 100
	d.control(true)
	if d.address != 0xC500 || d.dmaLength != 100 {
		t.Errorf("active transfer restarted: address %#04x length %d", d.address, d.dmaLength)
	}
	d.control(false)
	if d.dmaLength != 0 {
		t.Errorf("disable: length %d, want 0", d.dmaLength)
	}
}

func TestDPCM_DirectLevelWithoutTransfer(t *testing.T) {
	d := newTestDPCM(&fakeMemory{})
	d.writeLevel(0x41)
	if v := d.sample(true); v != 0x41 {
		t.Errorf("direct level: got %#x, want 0x41", v)
	}
	if v := d.sample(false); v != 0 {
		t.Errorf("disabled: got %#x, want 0", v)
	}
}

func TestDPCM_HoldsLevelAfterTransfer(t *testing.T) {
	mem := &fakeMemory{}
	for i := 0xC000; i < 0xC000+17; i++ {
		mem.data[i] = 0xFF
	}
	d := newTestDPCM(mem)
	d.writeRate(0x0F)
	d.writeLevel(0x21) // value 0x10, low bit 1
	d.writeAddress(0x00)
	d.writeLength(0x01)
	d.control(true)
	if n := runDPCM(d, 100000); n == 100000 {
		t.Fatal("transfer did not terminate")
	}

	reads := len(mem.reads)
	for i := 0; i < 100; i++ {
		if v := d.sample(true); v != 0x7F {
			t.Fatalf("sample %d after transfer: got %#x, want 0x7f", i, v)
		}
	}
	if len(mem.reads) != reads {
		t.Errorf("memory read after transfer ended: %d reads, want %d", len(mem.reads), reads)
	}
}

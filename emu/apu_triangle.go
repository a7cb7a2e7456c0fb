package emu

// triangleWriteLatency is the number of samples a non-held note waits before
// its length and linear counters start counting down.
const triangleWriteLatency = 3

// linearStep is the linear counter decrement per vsync. The counter holds
// the register value scaled by 64, four quarter-frame clocks per frame.
const linearStep = 4 * 64

// triangle is the triangle channel.
//
// Register layout:
//
//	reg0  HLLL LLLL  hold note (length halt / linear control), linear reload
//	reg1  ---- ----  unused
//	reg2  PPPP PPPP  period low
//	reg3  AAAA AHHH  length index, period high
type triangle struct {
	regs [4]uint8

	magic uint32
	skip  uint32
	index uint32

	atl            int
	llc            int
	reloadFlag     bool
	writeLatency   int
	counterStarted bool
}

func (t *triangle) reset(magic uint32) {
	*t = triangle{
		magic:        magic,
		writeLatency: triangleWriteLatency,
	}
}

func (t *triangle) holdNote() bool     { return t.regs[0]&0x80 != 0 }
func (t *triangle) linearLength() int  { return int(t.regs[0]&0x7f) << 6 }
func (t *triangle) lengthCounter() int { return int(activeTimeTable[t.regs[3]>>3]) }
func (t *triangle) freq() uint32       { return uint32(t.regs[3]&0x07)<<8 | uint32(t.regs[2]) }

func (t *triangle) registers() [slotsPerChannel]func(v uint8) {
	return [slotsPerChannel]func(v uint8){
		func(v uint8) { t.regs[0] = v },
		func(v uint8) { t.regs[1] = v },
		t.writeLow,
		t.writeHigh,
	}
}

func (t *triangle) writeLow(v uint8) {
	t.regs[2] = v
	t.updateSkip()
}

func (t *triangle) writeHigh(v uint8) {
	t.regs[3] = v
	t.atl = t.lengthCounter()
	t.reloadFlag = true
	t.updateSkip()
}

func (t *triangle) updateSkip() {
	if f := t.freq(); f != 0 {
		t.skip = t.magic / f
	} else {
		t.skip = 0
	}
}

func (t *triangle) control(on bool) {
	if !on {
		t.atl = 0
		t.llc = 0
	}
}

func (t *triangle) sample(on bool) uint8 {
	if t.freq() < 8 {
		return 0
	}
	if !t.counterStarted && !t.holdNote() && t.writeLatency > 0 {
		t.writeLatency--
		if t.writeLatency == 0 {
			t.counterStarted = true
		}
	}
	if !on || (t.atl == 0 && !t.holdNote()) || t.llc == 0 {
		return 0
	}
	t.index = (t.index + t.skip) & phaseMask
	return triangleWave[t.index>>phaseShift]
}

func (t *triangle) vsync() {
	if t.reloadFlag {
		t.llc = t.linearLength()
	} else if t.counterStarted {
		t.llc = max(0, t.llc-linearStep)
	}
	if !t.holdNote() {
		t.reloadFlag = false
	}
	if t.counterStarted && t.atl > 0 && !t.holdNote() {
		t.atl--
	}
}

func (t *triangle) status() ChannelStatus {
	return ChannelStatus{
		Period: t.freq(),
		Length: t.atl,
		Linear: t.llc >> 6,
	}
}

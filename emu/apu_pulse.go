package emu

// pulsePeriodMax is the largest period the 11-bit timer holds.
const pulsePeriodMax = 0x7FF

// pulse is one of the two rectangle channels.
//
// Register layout:
//
//	reg0  DDHE VVVV  duty, hold (length halt / envelope loop), constant volume, volume/delay
//	reg1  SPPP NTTT  sweep on, sweep delay, negate, shift
//	reg2  LLLL LLLL  period low
//	reg3  AAAA AHHH  length index, period high
type pulse struct {
	regs [4]uint8

	// rampSubtract selects the second channel's sweep-up rule (direct
	// subtraction) instead of the one's-complement addition of the first.
	rampSubtract bool

	magic uint32
	wave  *[32]uint8
	freq  uint32
	skip  uint32
	index uint32

	atl        uint8
	envVol     uint8
	envPhase   int32
	sweepPhase int32
}

func (p *pulse) reset(magic uint32, rampSubtract bool) {
	*p = pulse{
		rampSubtract: rampSubtract,
		magic:        magic,
		wave:         &pulse50,
	}
}

func (p *pulse) volume() uint8     { return p.regs[0] & 0x0f }
func (p *pulse) constVolume() bool { return p.regs[0]&0x10 != 0 }
func (p *pulse) hold() bool        { return p.regs[0]&0x20 != 0 }
func (p *pulse) duty() uint8       { return p.regs[0] >> 6 }

// envDelay is the envelope phase reload. Four phase units elapse per vsync
// so a delay field of n decrements the volume once every n+1 frames.
func (p *pulse) envDelay() int32 { return (int32(p.regs[0]&0x0f) + 1) << 2 }

func (p *pulse) sweepOn() bool    { return p.regs[1]&0x80 != 0 }
func (p *pulse) sweepUp() bool    { return p.regs[1]&0x08 != 0 }
func (p *pulse) sweepShift() uint { return uint(p.regs[1] & 0x07) }

// sweepDelay is the sweep phase reload. Two phase units elapse per vsync.
func (p *pulse) sweepDelay() int32 { return (int32(p.regs[1]&0x70>>4) + 1) << 1 }

func (p *pulse) freqLimit() uint32 { return pulseFreqLimit[p.sweepShift()] }

func (p *pulse) registers() [slotsPerChannel]func(v uint8) {
	return [slotsPerChannel]func(v uint8){p.writeControl, p.writeSweep, p.writeLow, p.writeHigh}
}

func (p *pulse) writeControl(v uint8) {
	p.regs[0] = v
	p.wave = pulseWaves[p.duty()]
}

func (p *pulse) writeSweep(v uint8) {
	p.regs[1] = v
}

func (p *pulse) writeLow(v uint8) {
	p.regs[2] = v
	p.setPeriod()
}

func (p *pulse) writeHigh(v uint8) {
	p.regs[3] = v
	p.setPeriod()
	p.atl = activeTimeTable[v>>3]
	p.envVol = 15
}

func (p *pulse) setPeriod() {
	p.freq = uint32(p.regs[3]&0x07)<<8 | uint32(p.regs[2])
	p.updateSkip()
}

// updateSkip recomputes the phase step. Periods below 2 give a zero step.
func (p *pulse) updateSkip() {
	if half := p.freq / 2; half != 0 {
		p.skip = p.magic / half
	} else {
		p.skip = 0
	}
}

func (p *pulse) control(on bool) {
	if !on {
		p.atl = 0
	}
}

func (p *pulse) sample(on bool) uint8 {
	if p.freq < 8 || (!p.sweepUp() && p.freq > p.freqLimit()) {
		return 0
	}
	if !on || (p.atl == 0 && !p.hold()) {
		return 0
	}
	p.index = (p.index + p.skip) & phaseMask
	vol := p.envVol
	if p.constVolume() {
		vol = p.volume()
	}
	return p.wave[p.index>>phaseShift] * vol
}

func (p *pulse) vsync() {
	if p.atl != 0 {
		p.atl--
	}

	p.envPhase -= 4
	for p.envPhase < 0 {
		p.envPhase += p.envDelay()
		if p.hold() {
			p.envVol = (p.envVol - 1) & 0x0f
		} else if p.envVol > 0 {
			p.envVol--
		}
	}

	if !p.sweepOn() || p.sweepShift() == 0 {
		return
	}
	p.sweepPhase -= 2
	for p.sweepPhase < 0 {
		p.sweepPhase += p.sweepDelay()
		delta := p.freq >> p.sweepShift()
		var next uint32
		switch {
		case !p.sweepUp():
			next = p.freq + delta
		case p.rampSubtract:
			next = p.freq - delta
		case delta < p.freq:
			next = p.freq + ^delta // one's complement: freq - delta - 1
		}
		// The period register is 11 bits. A step past it is not applied.
		if next > pulsePeriodMax {
			continue
		}
		p.freq = next
		p.updateSkip()
	}
}

func (p *pulse) status() ChannelStatus {
	vol := p.envVol
	if p.constVolume() {
		vol = p.volume()
	}
	return ChannelStatus{Period: p.freq, Length: int(p.atl), Volume: vol}
}

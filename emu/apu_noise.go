package emu

// noise is the noise channel, a 15-bit LFSR clocked from a phase
// accumulator.
//
// Register layout:
//
//	reg0  --HE VVVV  hold, constant volume, volume/delay
//	reg1  ---- ----  unused
//	reg2  S--- PPPP  short mode, period index
//	reg3  AAAA A---  length index
type noise struct {
	regs [4]uint8

	magic uint32
	skip  uint32
	index uint32
	sr    uint16

	atl      uint8
	envVol   uint8
	envPhase int32
}

func (n *noise) reset(magic uint32) {
	*n = noise{magic: magic, sr: 1}
}

func (n *noise) volume() uint8     { return n.regs[0] & 0x0f }
func (n *noise) constVolume() bool { return n.regs[0]&0x10 != 0 }
func (n *noise) hold() bool        { return n.regs[0]&0x20 != 0 }
func (n *noise) envDelay() int32   { return (int32(n.regs[0]&0x0f) + 1) << 2 }
func (n *noise) short() bool       { return n.regs[2]&0x80 != 0 }
func (n *noise) freq() uint32      { return noisePeriodTable[n.regs[2]&0x0f] }
func (n *noise) lengthCounter() uint8 {
	return activeTimeTable[n.regs[3]>>3]
}

func (n *noise) registers() [slotsPerChannel]func(v uint8) {
	return [slotsPerChannel]func(v uint8){
		func(v uint8) { n.regs[0] = v },
		func(v uint8) { n.regs[1] = v },
		n.writePeriod,
		n.writeLength,
	}
}

func (n *noise) writePeriod(v uint8) {
	n.regs[2] = v
	n.updateSkip()
	n.atl = n.lengthCounter()
}

func (n *noise) writeLength(v uint8) {
	n.regs[3] = v
	n.updateSkip()
	n.atl = n.lengthCounter()
	n.envVol = 15
}

func (n *noise) updateSkip() {
	if f := n.freq(); f != 0 {
		n.skip = n.magic / f
	} else {
		n.skip = 0
	}
}

func (n *noise) control(on bool) {
	if !on {
		n.atl = 0
	}
}

// clock shifts the LFSR once. The feedback tap is bit 6 in short mode and
// bit 1 otherwise.
func (n *noise) clock() {
	tap := n.sr >> 1
	if n.short() {
		tap = n.sr >> 6
	}
	f := (n.sr ^ tap) & 1
	n.sr = n.sr>>1 | f<<14
}

func (n *noise) sample(on bool) uint8 {
	if !on {
		return 0
	}
	n.index += n.skip
	if n.index > noiseWrap {
		n.clock()
		n.index &= noiseWrap
	}
	if n.atl == 0 || n.sr&1 != 0 {
		return 0
	}
	if n.constVolume() {
		return n.volume() * 0x11
	}
	return n.envVol * 0x11
}

func (n *noise) vsync() {
	if n.atl != 0 && !n.hold() {
		n.atl--
	}
	n.envPhase -= 4
	for n.envPhase < 0 {
		n.envPhase += n.envDelay()
		if n.hold() {
			n.envVol = (n.envVol - 1) & 0x0f
		} else if n.envVol > 0 {
			n.envVol--
		}
	}
}

func (n *noise) status() ChannelStatus {
	vol := n.envVol
	if n.constVolume() {
		vol = n.volume()
	}
	return ChannelStatus{Period: n.freq(), Length: int(n.atl), Volume: vol}
}

package emu

// DPCM sample addressing. Samples start at $C000 + 64*reg2 and the fetch
// address wraps from $FFFF to $8000.
const (
	dpcmBaseAddr = 0xC000
	dpcmWrapAddr = 0x8000
	dpcmMaxLevel = 0x3F
)

// dpcm is the delta modulation channel. It streams 1-bit deltas from
// program memory through a DMA cursor.
//
// Register layout:
//
//	reg0  -L-- RRRR  loop, rate index
//	reg1  -DDD DDDD  direct output level
//	reg2  AAAA AAAA  sample address
//	reg3  LLLL LLLL  sample length
type dpcm struct {
	regs [4]uint8
	mem  Memory

	cycleRate int32
	freq      int32
	phaseAcc  int32

	looping   bool
	curByte   uint8
	value     uint8
	address   uint16
	dmaLength int

	cacheAddr   uint16
	cacheLength int
}

func (d *dpcm) reset(cycleRate int32, mem Memory) {
	*d = dpcm{
		mem:       mem,
		cycleRate: cycleRate,
		freq:      dpcmPeriodTable[0] << 16,
	}
}

func (d *dpcm) registers() [slotsPerChannel]func(v uint8) {
	return [slotsPerChannel]func(v uint8){d.writeRate, d.writeLevel, d.writeAddress, d.writeLength}
}

func (d *dpcm) writeRate(v uint8) {
	d.regs[0] = v
	d.freq = dpcmPeriodTable[v&0x0f] << 16
	d.looping = v&0x40 != 0
}

func (d *dpcm) writeLevel(v uint8) {
	d.regs[1] = v
	d.value = (v & 0x7f) >> 1
}

func (d *dpcm) writeAddress(v uint8) {
	d.regs[2] = v
	d.cacheAddr = dpcmBaseAddr + uint16(v)<<6
}

// writeLength caches the transfer length in bits: 16*v+1 bytes.
func (d *dpcm) writeLength(v uint8) {
	d.regs[3] = v
	d.cacheLength = (int(v)<<4 + 1) << 3
}

// control starts a transfer from the cached address and length when the
// channel is enabled while idle. Disabling stops any transfer in progress.
// The DAC keeps its level either way.
func (d *dpcm) control(on bool) {
	if !on {
		d.dmaLength = 0
		return
	}
	if d.dmaLength == 0 {
		d.address = d.cacheAddr
		d.dmaLength = d.cacheLength
	}
}

func (d *dpcm) sample(on bool) uint8 {
	if d.dmaLength != 0 {
		d.step()
	}
	if !on {
		return 0
	}
	return d.output()
}

// output is the 7-bit level with the low bit taken from the direct load
// register.
func (d *dpcm) output() uint8 {
	return d.regs[1]&0x01 + d.value<<1
}

// step runs the bit clock for one output sample. A byte is fetched every
// eighth bit; the bit used is (remaining & 7) ^ 7 after the decrement. A
// non-looping transfer ends idle with dmaLength at zero and the DAC holding
// its last level.
func (d *dpcm) step() {
	d.phaseAcc -= d.cycleRate
	for d.phaseAcc < 0 {
		d.phaseAcc += d.freq
		if d.dmaLength&7 == 0 {
			d.curByte = d.mem.Read(d.address)
			if d.address == 0xFFFF {
				d.address = dpcmWrapAddr
			} else {
				d.address++
			}
		}

		d.dmaLength--
		if d.dmaLength == 0 {
			if !d.looping {
				break
			}
			d.address = d.cacheAddr
			d.dmaLength = d.cacheLength
		}

		if d.curByte&(1<<((d.dmaLength&7)^7)) != 0 {
			if d.value < dpcmMaxLevel {
				d.value++
			}
		} else if d.value > 1 {
			d.value--
		}
	}
}

func (d *dpcm) vsync() {}

func (d *dpcm) status() ChannelStatus {
	return ChannelStatus{Period: uint32(d.dmaLength), Volume: d.output()}
}

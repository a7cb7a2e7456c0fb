package emu

import (
	"encoding/binary"
	"errors"
)

const (
	apuSerializeVersion = 1
	// Pulse: regs(4) + wave(1) + freq(4) + skip(4) + index(4) +
	// atl(1) + envVol(1) + envPhase(4) + sweepPhase(4) = 27
	pulseSerializeSize = 27
	// Triangle: regs(4) + skip(4) + index(4) + atl(4) + llc(4) +
	// reloadFlag(1) + writeLatency(1) + counterStarted(1) = 23
	triangleSerializeSize = 23
	// Noise: regs(4) + skip(4) + index(4) + sr(2) + atl(1) + envVol(1) + envPhase(4) = 20
	noiseSerializeSize = 20
	// DPCM: regs(4) + freq(4) + phaseAcc(4) + looping(1) + curByte(1) +
	// value(1) + address(2) + dmaLength(4) + cacheAddr(2) + cacheLength(4) = 27
	dpcmSerializeSize = 27
	// Global: quality(1) + ctrl(1) + ctrlNew(1) + leftSamples16(4) = 7
	apuGlobalSerializeSize = 7
	// APUSerializeSize is the total bytes needed for APU serialization.
	// version(1) + 2 pulses * 27 + triangle(23) + noise(20) + dpcm(27) + global(7) = 132
	APUSerializeSize = 1 + 2*pulseSerializeSize + triangleSerializeSize +
		noiseSerializeSize + dpcmSerializeSize + apuGlobalSerializeSize
)

// Serialize writes APU state to buf. buf must be at least APUSerializeSize
// bytes. Register writes still pending in the event log are not saved.
func (a *APU) Serialize(buf []byte) error {
	if len(buf) < APUSerializeSize {
		return errors.New("APU serialize buffer too small")
	}

	offset := 0
	buf[offset] = apuSerializeVersion
	offset++

	offset = serializePulse(&a.pulse1, buf, offset)
	offset = serializePulse(&a.pulse2, buf, offset)
	offset = serializeTriangle(&a.tri, buf, offset)
	offset = serializeNoise(&a.noise, buf, offset)
	offset = serializeDPCM(&a.dpcm, buf, offset)

	buf[offset] = uint8(a.quality)
	offset++
	buf[offset] = a.ctrl
	offset++
	buf[offset] = a.ctrlNew
	offset++
	binary.LittleEndian.PutUint32(buf[offset:], a.leftSamples16)

	return nil
}

// Deserialize reads APU state from buf. The state must have been saved at
// the engine's current quality level. Pending register writes are
// discarded.
func (a *APU) Deserialize(buf []byte) error {
	if len(buf) < APUSerializeSize {
		return errors.New("APU deserialize buffer too small")
	}

	offset := 0
	version := buf[offset]
	offset++
	if version > apuSerializeVersion {
		return errors.New("unsupported APU state version")
	}

	globals := offset + 2*pulseSerializeSize + triangleSerializeSize + noiseSerializeSize + dpcmSerializeSize
	if Quality(buf[globals]) != a.quality {
		return errors.New("APU state quality mismatch")
	}

	offset = deserializePulse(&a.pulse1, buf, offset)
	offset = deserializePulse(&a.pulse2, buf, offset)
	offset = deserializeTriangle(&a.tri, buf, offset)
	offset = deserializeNoise(&a.noise, buf, offset)
	offset = deserializeDPCM(&a.dpcm, buf, offset)

	offset++ // quality
	a.ctrl = buf[offset]
	offset++
	a.ctrlNew = buf[offset]
	offset++
	a.leftSamples16 = binary.LittleEndian.Uint32(buf[offset:])

	a.events.flush()
	a.enterTime = a.clock.Cycles()
	return nil
}

func waveIndex(w *[32]uint8) uint8 {
	for i, pw := range pulseWaves {
		if pw == w {
			return uint8(i)
		}
	}
	return 2
}

func serializePulse(p *pulse, buf []byte, offset int) int {
	offset += copy(buf[offset:], p.regs[:])
	buf[offset] = waveIndex(p.wave)
	offset++
	binary.LittleEndian.PutUint32(buf[offset:], p.freq)
	offset += 4
	binary.LittleEndian.PutUint32(buf[offset:], p.skip)
	offset += 4
	binary.LittleEndian.PutUint32(buf[offset:], p.index)
	offset += 4
	buf[offset] = p.atl
	offset++
	buf[offset] = p.envVol
	offset++
	binary.LittleEndian.PutUint32(buf[offset:], uint32(p.envPhase))
	offset += 4
	binary.LittleEndian.PutUint32(buf[offset:], uint32(p.sweepPhase))
	offset += 4
	return offset
}

func deserializePulse(p *pulse, buf []byte, offset int) int {
	offset += copy(p.regs[:], buf[offset:offset+4])
	p.wave = pulseWaves[buf[offset]&3]
	offset++
	p.freq = binary.LittleEndian.Uint32(buf[offset:])
	offset += 4
	p.skip = binary.LittleEndian.Uint32(buf[offset:])
	offset += 4
	p.index = binary.LittleEndian.Uint32(buf[offset:]) & phaseMask
	offset += 4
	p.atl = buf[offset]
	offset++
	p.envVol = buf[offset] & 0x0f
	offset++
	p.envPhase = int32(binary.LittleEndian.Uint32(buf[offset:]))
	offset += 4
	p.sweepPhase = int32(binary.LittleEndian.Uint32(buf[offset:]))
	offset += 4
	return offset
}

func serializeTriangle(t *triangle, buf []byte, offset int) int {
	offset += copy(buf[offset:], t.regs[:])
	binary.LittleEndian.PutUint32(buf[offset:], t.skip)
	offset += 4
	binary.LittleEndian.PutUint32(buf[offset:], t.index)
	offset += 4
	binary.LittleEndian.PutUint32(buf[offset:], uint32(t.atl))
	offset += 4
	binary.LittleEndian.PutUint32(buf[offset:], uint32(t.llc))
	offset += 4
	buf[offset] = boolByte(t.reloadFlag)
	offset++
	buf[offset] = uint8(t.writeLatency)
	offset++
	buf[offset] = boolByte(t.counterStarted)
	offset++
	return offset
}

func deserializeTriangle(t *triangle, buf []byte, offset int) int {
	offset += copy(t.regs[:], buf[offset:offset+4])
	t.skip = binary.LittleEndian.Uint32(buf[offset:])
	offset += 4
	t.index = binary.LittleEndian.Uint32(buf[offset:]) & phaseMask
	offset += 4
	t.atl = int(binary.LittleEndian.Uint32(buf[offset:]))
	offset += 4
	t.llc = int(binary.LittleEndian.Uint32(buf[offset:]))
	offset += 4
	t.reloadFlag = buf[offset] != 0
	offset++
	t.writeLatency = int(buf[offset])
	offset++
	t.counterStarted = buf[offset] != 0
	offset++
	return offset
}

func serializeNoise(n *noise, buf []byte, offset int) int {
	offset += copy(buf[offset:], n.regs[:])
	binary.LittleEndian.PutUint32(buf[offset:], n.skip)
	offset += 4
	binary.LittleEndian.PutUint32(buf[offset:], n.index)
	offset += 4
	binary.LittleEndian.PutUint16(buf[offset:], n.sr)
	offset += 2
	buf[offset] = n.atl
	offset++
	buf[offset] = n.envVol
	offset++
	binary.LittleEndian.PutUint32(buf[offset:], uint32(n.envPhase))
	offset += 4
	return offset
}

func deserializeNoise(n *noise, buf []byte, offset int) int {
	offset += copy(n.regs[:], buf[offset:offset+4])
	n.skip = binary.LittleEndian.Uint32(buf[offset:])
	offset += 4
	n.index = binary.LittleEndian.Uint32(buf[offset:])
	offset += 4
	n.sr = binary.LittleEndian.Uint16(buf[offset:]) & 0x7fff
	if n.sr == 0 {
		n.sr = 1
	}
	offset += 2
	n.atl = buf[offset]
	offset++
	n.envVol = buf[offset] & 0x0f
	offset++
	n.envPhase = int32(binary.LittleEndian.Uint32(buf[offset:]))
	offset += 4
	return offset
}

func serializeDPCM(d *dpcm, buf []byte, offset int) int {
	offset += copy(buf[offset:], d.regs[:])
	binary.LittleEndian.PutUint32(buf[offset:], uint32(d.freq))
	offset += 4
	binary.LittleEndian.PutUint32(buf[offset:], uint32(d.phaseAcc))
	offset += 4
	buf[offset] = boolByte(d.looping)
	offset++
	buf[offset] = d.curByte
	offset++
	buf[offset] = d.value
	offset++
	binary.LittleEndian.PutUint16(buf[offset:], d.address)
	offset += 2
	binary.LittleEndian.PutUint32(buf[offset:], uint32(d.dmaLength))
	offset += 4
	binary.LittleEndian.PutUint16(buf[offset:], d.cacheAddr)
	offset += 2
	binary.LittleEndian.PutUint32(buf[offset:], uint32(d.cacheLength))
	offset += 4
	return offset
}

func deserializeDPCM(d *dpcm, buf []byte, offset int) int {
	offset += copy(d.regs[:], buf[offset:offset+4])
	d.freq = int32(binary.LittleEndian.Uint32(buf[offset:]))
	if d.freq <= 0 {
		d.freq = dpcmPeriodTable[0] << 16
	}
	offset += 4
	d.phaseAcc = int32(binary.LittleEndian.Uint32(buf[offset:]))
	offset += 4
	d.looping = buf[offset] != 0
	offset++
	d.curByte = buf[offset]
	offset++
	d.value = min(buf[offset], dpcmMaxLevel)
	offset++
	d.address = binary.LittleEndian.Uint16(buf[offset:])
	offset += 2
	d.dmaLength = int(binary.LittleEndian.Uint32(buf[offset:]))
	offset += 4
	d.cacheAddr = binary.LittleEndian.Uint16(buf[offset:])
	offset += 2
	d.cacheLength = int(binary.LittleEndian.Uint32(buf[offset:]))
	offset += 4
	return offset
}

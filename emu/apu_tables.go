package emu

import (
	"errors"
	"fmt"
)

// Quality selects one of the precomputed output rate constant sets.
type Quality int

const (
	QualityLow    Quality = iota + 1 // 11025 Hz
	QualityMedium                    // 22050 Hz
	QualityHigh                      // 44100 Hz
)

// ErrInvalidQuality is returned when a quality level outside the table is
// requested.
var ErrInvalidQuality = errors.New("apu: invalid quality level")

// QualitySettings holds the rate-dependent constants used by the renderers
// and the sample scheduler.
type QualitySettings struct {
	PulseMagic       uint32 // Phase step numerator for the pulse channels
	TriangleMagic    uint32 // Phase step numerator for the triangle channel
	NoiseMagic       uint32 // Phase step numerator for the noise channel
	SamplesPerSync16 uint32 // Samples owed per hsync, 16.16 fixed point
	CyclesPerSample  uint32 // CPU cycles between consecutive output samples
	SampleRate       int    // Nominal output rate in Hz
	CycleRate        int32  // DPCM phase decrement per output sample
}

// 21477273 / (262*341*4) = 60.0985 frames per second.
// 44100 / 60.0985 / 262 * 65536 = 183551.19 samples per hsync (16.16).
var qualityTable = [...]QualitySettings{
	QualityLow:    {0xa2567000, 0xa2567000, 0xa2567000, 45888, 164, 11025, 1062658},
	QualityMedium: {0x512b3800, 0x512b3800, 0x512b3800, 91776, 82, 22050, 531329},
	QualityHigh:   {0x289d9c00, 0x289d9c00, 0x289d9c00, 183552, 41, 44100, 265664},
}

// Settings returns the constant set for q.
func (q Quality) Settings() (QualitySettings, error) {
	if q < QualityLow || q > QualityHigh {
		return QualitySettings{}, fmt.Errorf("%w: %d", ErrInvalidQuality, int(q))
	}
	return qualityTable[q], nil
}

// SampleRate returns the nominal output rate for q, or 0 if q is invalid.
func (q Quality) SampleRate() int {
	s, err := q.Settings()
	if err != nil {
		return 0
	}
	return s.SampleRate
}

// MaxSamplesPerSync is the size of each per-channel sample buffer: the most
// samples a single hsync can owe at the highest quality.
func (s QualitySettings) MaxSamplesPerSync() int {
	return int((s.SamplesPerSync16 + 0xFFFF) >> 16)
}

// Waveforms are 32 steps indexed by the top bits of a 29-bit phase
// accumulator.
const (
	phaseMask  = 0x1fffffff
	phaseShift = 24
	noiseWrap  = 0xffffff
)

var pulse25 = [32]uint8{
	0x11, 0x11, 0x11, 0x11, 0x11, 0x11, 0x11, 0x11,
}

var pulse50 = [32]uint8{
	0x11, 0x11, 0x11, 0x11, 0x11, 0x11, 0x11, 0x11,
	0x11, 0x11, 0x11, 0x11, 0x11, 0x11, 0x11, 0x11,
}

var pulse75 = [32]uint8{
	0x11, 0x11, 0x11, 0x11, 0x11, 0x11, 0x11, 0x11,
	0x11, 0x11, 0x11, 0x11, 0x11, 0x11, 0x11, 0x11,
	0x11, 0x11, 0x11, 0x11, 0x11, 0x11, 0x11, 0x11,
}

var pulse87 = [32]uint8{
	0x11, 0x11, 0x11, 0x11, 0x11, 0x11, 0x11, 0x11,
	0x11, 0x11, 0x11, 0x11, 0x11, 0x11, 0x11, 0x11,
	0x11, 0x11, 0x11, 0x11, 0x11, 0x11, 0x11, 0x11,
	0x11, 0x11, 0x11, 0x11,
}

// pulseWaves is indexed by the duty field (register 0 bits 7-6). The order
// is inverted relative to the hardware duty table; the waveforms are phase
// inverted copies and sound the same.
var pulseWaves = [4]*[32]uint8{&pulse87, &pulse75, &pulse50, &pulse25}

var triangleWave = [32]uint8{
	0x00, 0x10, 0x20, 0x30, 0x40, 0x50, 0x60, 0x70,
	0x80, 0x90, 0xa0, 0xb0, 0xc0, 0xd0, 0xe0, 0xf0,
	0xff, 0xef, 0xdf, 0xcf, 0xbf, 0xaf, 0x9f, 0x8f,
	0x7f, 0x6f, 0x5f, 0x4f, 0x3f, 0x2f, 0x1f, 0x0f,
}

// activeTimeTable decodes the 5-bit length index (register 3 bits 7-3) to a
// frame count.
var activeTimeTable = [32]uint8{
	5, 127, 10, 1, 19, 2, 40, 3,
	80, 4, 30, 5, 7, 6, 13, 7,
	6, 8, 12, 9, 24, 10, 48, 11,
	96, 12, 36, 13, 8, 14, 16, 15,
}

// pulseFreqLimit is the largest period that does not overflow the sweep
// adder, indexed by sweep shift count. A table check stands in for the
// chip's overflow detection.
var pulseFreqLimit = [8]uint32{
	0x3FF, 0x555, 0x666, 0x71C, 0x787, 0x7C1, 0x7E0, 0x7F0,
}

// noisePeriodTable is the noise timer period in CPU cycles.
var noisePeriodTable = [16]uint32{
	4, 8, 16, 32, 64, 96, 128, 160,
	202, 254, 380, 508, 762, 1016, 2034, 4068,
}

// dpcmPeriodTable is the DPCM bit period in CPU cycles.
var dpcmPeriodTable = [16]int32{
	428, 380, 340, 320, 286, 254, 226, 214,
	190, 160, 142, 128, 106, 85, 72, 54,
}

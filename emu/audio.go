package emu

import "math"

// lpfCutoffHz approximates the output stage roll-off of the console.
const lpfCutoffHz = 14000.0

// Stereo mixing weights per channel. Pulse 1 leans left and pulse 2 leans
// right; the rest are centered. The relative levels approximate the chip's
// non-linear mixer with a linear blend.
var (
	mixWeightsL = [NumChannels]int32{6, 3, 5, 3 * 17, 2 * 32}
	mixWeightsR = [NumChannels]int32{3, 6, 5, 3 * 17, 2 * 32}
)

// Mixer folds the five channel buffers into 16-bit stereo PCM and applies
// a first-order RC low-pass filter whose state persists across calls.
type Mixer struct {
	sampleRate int
	lpfAlpha   float64
	muted      uint8

	filterPrevL float64
	filterPrevR float64
}

// NewMixer creates a mixer for the given output rate.
func NewMixer(sampleRate int) *Mixer {
	m := &Mixer{sampleRate: sampleRate}
	m.SetFilter(true)
	return m
}

// SetFilter enables or bypasses the low-pass filter. A bypassed filter
// passes the clamped mix through unchanged.
func (m *Mixer) SetFilter(on bool) {
	m.lpfAlpha = 1
	if on && m.sampleRate > 0 {
		// alpha = dt / (RC + dt) where RC = 1/(2*pi*fc).
		m.lpfAlpha = 1.0 / (float64(m.sampleRate)/(2*math.Pi*lpfCutoffHz) + 1)
	}
}

// SampleRate returns the output rate the filter was designed for.
func (m *Mixer) SampleRate() int {
	return m.sampleRate
}

// SetMute mutes or unmutes one channel.
func (m *Mixer) SetMute(ch int, muted bool) {
	if ch < 0 || ch >= NumChannels {
		return
	}
	if muted {
		m.muted |= 1 << ch
	} else {
		m.muted &^= 1 << ch
	}
}

// Muted reports whether ch is muted.
func (m *Mixer) Muted(ch int) bool {
	return ch >= 0 && ch < NumChannels && m.muted&(1<<ch) != 0
}

// MuteMask returns the muted channels as a bit mask.
func (m *Mixer) MuteMask() uint8 {
	return m.muted
}

// Reset clears the filter state.
func (m *Mixer) Reset() {
	m.filterPrevL = 0
	m.filterPrevR = 0
}

// Mix appends n interleaved L/R samples built from bufs to dst and returns
// the extended slice.
func (m *Mixer) Mix(dst []int16, bufs *[NumChannels][]uint8, n int) []int16 {
	for i := 0; i < n; i++ {
		var l, r int32
		for ch := 0; ch < NumChannels; ch++ {
			if m.muted&(1<<ch) != 0 {
				continue
			}
			s := int32(bufs[ch][i])
			l += s * mixWeightsL[ch]
			r += s * mixWeightsR[ch]
		}
		l = clampInt32(l, math.MinInt16, math.MaxInt16)
		r = clampInt32(r, math.MinInt16, math.MaxInt16)
		m.filterPrevL = m.lpfAlpha*float64(l) + (1-m.lpfAlpha)*m.filterPrevL
		m.filterPrevR = m.lpfAlpha*float64(r) + (1-m.lpfAlpha)*m.filterPrevR
		dst = append(dst, int16(math.Round(m.filterPrevL)), int16(math.Round(m.filterPrevR)))
	}
	return dst
}

// clampInt32 clamps v to [min, max].
func clampInt32(v, min, max int32) int32 {
	if v < min {
		return min
	}
	if v > max {
		return max
	}
	return v
}

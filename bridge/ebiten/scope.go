package ebiten

import "github.com/user-none/emapu/emu"

// Scope geometry in native pixels.
const (
	ScopeWidth  = 256
	LaneHeight  = 48
	ScopeHeight = LaneHeight * emu.NumChannels
)

var (
	scopeBackground = [4]uint8{0x10, 0x10, 0x18, 0xFF}
	scopeDivider    = [4]uint8{0x30, 0x30, 0x40, 0xFF}
	scopeMuted      = [4]uint8{0x50, 0x50, 0x50, 0xFF}

	laneColors = [emu.NumChannels][4]uint8{
		{0xFF, 0x60, 0x60, 0xFF}, // pulse 1
		{0xFF, 0xB0, 0x40, 0xFF}, // pulse 2
		{0x60, 0xD0, 0xFF, 0xFF}, // triangle
		{0xE0, 0xE0, 0xE0, 0xFF}, // noise
		{0x80, 0xFF, 0x80, 0xFF}, // dpcm
	}
)

// laneFullScale is the largest raw sample each channel produces.
var laneFullScale = [emu.NumChannels]int{255, 255, 255, 255, 127}

// RenderScope draws one lane per channel into pixels, an RGBA buffer of
// ScopeWidth*ScopeHeight*4 bytes. Each lane spans the whole frame of
// samples; muted channels are drawn in grey.
func RenderScope(pixels []byte, samples *[emu.NumChannels][]uint8, muted uint8) {
	if len(pixels) < ScopeWidth*ScopeHeight*4 {
		return
	}
	for i := 0; i < ScopeWidth*ScopeHeight; i++ {
		copy(pixels[i*4:], scopeBackground[:])
	}

	for ch := 0; ch < emu.NumChannels; ch++ {
		top := ch * LaneHeight
		for x := 0; x < ScopeWidth; x++ {
			setPixel(pixels, x, top+LaneHeight-1, scopeDivider)
		}

		s := samples[ch]
		if len(s) == 0 {
			continue
		}
		color := laneColors[ch]
		if muted&(1<<ch) != 0 {
			color = scopeMuted
		}

		prev := -1
		for x := 0; x < ScopeWidth; x++ {
			v := min(int(s[x*len(s)/ScopeWidth]), laneFullScale[ch])
			// Two rows of margin: the divider and one blank row above it
			y := top + (LaneHeight-2)*(laneFullScale[ch]-v)/laneFullScale[ch]
			if prev < 0 {
				prev = y
			}
			// Join steps with a vertical run so edges stay visible
			lo, hi := min(prev, y), max(prev, y)
			for yy := lo; yy <= hi; yy++ {
				setPixel(pixels, x, yy, color)
			}
			prev = y
		}
	}
}

func setPixel(pixels []byte, x, y int, c [4]uint8) {
	copy(pixels[(y*ScopeWidth+x)*4:], c[:])
}

// Package ebiten provides an Ebiten-specific oscilloscope view of the
// sound engine.
package ebiten

import (
	"fmt"

	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/ebitenutil"
	"github.com/user-none/emapu/emu"
)

var channelNames = [emu.NumChannels]string{"PULSE1", "PULSE2", "TRI", "NOISE", "DPCM"}

// Scope draws the per-channel waveforms of the last frame.
type Scope struct {
	pixels    []byte
	offscreen *ebiten.Image           // Offscreen buffer for native resolution rendering
	drawOpts  ebiten.DrawImageOptions // Pre-allocated draw options to avoid per-frame allocation
}

// NewScope creates a scope view.
func NewScope() *Scope {
	return &Scope{
		pixels: make([]byte, ScopeWidth*ScopeHeight*4),
	}
}

// Layout implements ebiten.Game.
func (s *Scope) Layout(outsideWidth, outsideHeight int) (int, int) {
	return outsideWidth, outsideHeight
}

// Draw renders samples to the screen scaled to fit the window while
// preserving the aspect ratio.
func (s *Scope) Draw(screen *ebiten.Image, samples *[emu.NumChannels][]uint8, muted uint8, paused bool) {
	RenderScope(s.pixels, samples, muted)

	if s.offscreen == nil {
		s.offscreen = ebiten.NewImage(ScopeWidth, ScopeHeight)
	}
	s.offscreen.WritePixels(s.pixels)

	screenW, screenH := screen.Bounds().Dx(), screen.Bounds().Dy()
	nativeW := float64(ScopeWidth)
	nativeH := float64(ScopeHeight)

	scaleX := float64(screenW) / nativeW
	scaleY := float64(screenH) / nativeH
	scale := scaleX
	if scaleY < scaleX {
		scale = scaleY
	}

	scaledW := nativeW * scale
	scaledH := nativeH * scale
	offsetX := (float64(screenW) - scaledW) / 2
	offsetY := (float64(screenH) - scaledH) / 2

	s.drawOpts = ebiten.DrawImageOptions{}
	s.drawOpts.GeoM.Scale(scale, scale)
	s.drawOpts.GeoM.Translate(offsetX, offsetY)
	s.drawOpts.Filter = ebiten.FilterNearest
	screen.DrawImage(s.offscreen, &s.drawOpts)

	for ch := 0; ch < emu.NumChannels; ch++ {
		label := fmt.Sprintf("%d %s", ch+1, channelNames[ch])
		if muted&(1<<ch) != 0 {
			label += " (muted)"
		}
		y := offsetY + float64(ch*LaneHeight)*scale
		ebitenutil.DebugPrintAt(screen, label, int(offsetX)+4, int(y)+2)
	}
	if paused {
		ebitenutil.DebugPrintAt(screen, "PAUSED", int(offsetX+scaledW)-48, int(offsetY)+2)
	}
}

package emu

// Timing holds the video timing that paces the hsync and vsync callbacks.
// Position within a frame is tracked in PPU dots so the fractional CPU
// cycle length of a scanline does not drift.
type Timing struct {
	CPUClockHz      float64 // 6502 clock frequency
	Scanlines       int     // Total scanlines per frame
	DotsPerScanline int     // PPU dots per scanline
	DotsPerCycle    int     // PPU dots per CPU cycle
}

// NTSC timing: CPU 1.789773 MHz, 262 scanlines of 341 dots, 3 dots per CPU
// cycle (~60.0988 Hz).
var NTSCTiming = Timing{
	CPUClockHz:      1789772.5,
	Scanlines:       262,
	DotsPerScanline: 341,
	DotsPerCycle:    3,
}

// DotsPerFrame returns the number of PPU dots in one frame.
func (t Timing) DotsPerFrame() int {
	return t.DotsPerScanline * t.Scanlines
}

// CyclesPerScanline returns the (fractional) CPU cycles per scanline.
func (t Timing) CyclesPerScanline() float64 {
	return float64(t.DotsPerScanline) / float64(t.DotsPerCycle)
}

// CyclesPerFrame returns the (fractional) CPU cycles per frame.
func (t Timing) CyclesPerFrame() float64 {
	return float64(t.DotsPerFrame()) / float64(t.DotsPerCycle)
}

// FPS returns the frame rate.
func (t Timing) FPS() float64 {
	return t.CPUClockHz / t.CyclesPerFrame()
}

// CycleAtDot converts an absolute dot count to the CPU cycle in progress.
func (t Timing) CycleAtDot(dot uint64) uint64 {
	return dot / uint64(t.DotsPerCycle)
}

// FrameOfCycle returns the frame containing CPU cycle c.
func (t Timing) FrameOfCycle(c uint64) int {
	return int(c * uint64(t.DotsPerCycle) / uint64(t.DotsPerFrame()))
}

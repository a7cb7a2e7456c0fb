package cli

import (
	"errors"

	"github.com/user-none/emapu/emu"
)

// SampleWriter consumes interleaved 16-bit stereo frames and reports how
// many it accepted.
type SampleWriter interface {
	QueueSamples(samples []int16) int
}

// errReporter is implemented by writers that keep their first write error.
type errReporter interface {
	Err() error
}

// Render plays frames frames of e into w without pacing. With frames at 0
// the whole trace is rendered plus one frame for its last writes. It
// returns the number of stereo frames accepted by w. Rendering stops at the
// first error w reports through an Err method.
func Render(e *emu.Emulator, w SampleWriter, frames int, status *StatusPrinter) (int, error) {
	if w == nil {
		return 0, errors.New("nil sample writer")
	}
	if frames <= 0 {
		frames = e.Trace().Frames(e.Timing()) + 1
	}

	total := 0
	for i := 0; i < frames; i++ {
		e.RunFrame()
		total += w.QueueSamples(e.GetAudioSamples())
		if er, ok := w.(errReporter); ok {
			if err := er.Err(); err != nil {
				return total, err
			}
		}
		if status != nil && (i+1)%statusInterval == 0 {
			status.Print(e.Frame(), e.Status(), muteMask(e), e.APU().DroppedEvents()+e.APU().DroppedSamples())
		}
	}
	if status != nil {
		status.Finish()
	}
	return total, nil
}

func muteMask(e *emu.Emulator) uint8 {
	var m uint8
	for ch := 0; ch < emu.NumChannels; ch++ {
		if e.ChannelMuted(ch) {
			m |= 1 << ch
		}
	}
	return m
}

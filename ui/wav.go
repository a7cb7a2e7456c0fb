package ui

import (
	"fmt"
	"os"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"
)

// wavFormatPCM is the WAVE format tag for integer PCM.
const wavFormatPCM = 1

// WAVRecorder writes the mixed 16-bit stereo output to a WAV file.
type WAVRecorder struct {
	f      *os.File
	enc    *wav.Encoder
	buf    audio.IntBuffer
	frames int
	err    error
}

// NewWAVRecorder creates path and prepares it for sampleRate audio.
func NewWAVRecorder(path string, sampleRate int) (*WAVRecorder, error) {
	if sampleRate <= 0 {
		return nil, fmt.Errorf("invalid sample rate %d", sampleRate)
	}
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("failed to create WAV file: %w", err)
	}
	return &WAVRecorder{
		f:   f,
		enc: wav.NewEncoder(f, sampleRate, 16, 2, wavFormatPCM),
		buf: audio.IntBuffer{
			Format:         &audio.Format{NumChannels: 2, SampleRate: sampleRate},
			SourceBitDepth: 16,
		},
	}, nil
}

// QueueSamples appends interleaved stereo samples and returns the number
// of frames written. After the first write error nothing more is written;
// the error is available from Err and returned by Close.
func (w *WAVRecorder) QueueSamples(samples []int16) int {
	n := len(samples) / 2
	if n == 0 || w.f == nil || w.err != nil {
		return 0
	}
	w.buf.Data = w.buf.Data[:0]
	for _, s := range samples[:2*n] {
		w.buf.Data = append(w.buf.Data, int(s))
	}
	if err := w.enc.Write(&w.buf); err != nil {
		w.err = fmt.Errorf("failed to write WAV samples: %w", err)
		return 0
	}
	w.frames += n
	return n
}

// Frames returns the number of stereo frames written so far.
func (w *WAVRecorder) Frames() int {
	return w.frames
}

// Err returns the first write error, if any.
func (w *WAVRecorder) Err() error {
	return w.err
}

// Close finalizes the WAV header and closes the file. An earlier write
// error is returned in preference to any error from finalizing.
func (w *WAVRecorder) Close() error {
	if w.f == nil {
		return w.err
	}
	defer func() { w.f = nil }()

	if w.err != nil {
		w.f.Close()
		return w.err
	}

	var err error
	if w.frames == 0 {
		// The encoder emits its headers on the first write
		w.buf.Data = w.buf.Data[:0]
		err = w.enc.Write(&w.buf)
	}
	if err == nil {
		err = w.enc.Close()
	}
	if cerr := w.f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return fmt.Errorf("failed to finalize WAV file: %w", err)
	}
	return nil
}

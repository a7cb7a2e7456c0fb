package ui

import (
	"fmt"
	"sync"
	"time"

	"github.com/ebitengine/oto/v3"
)

// ringBufferMillis is how much audio the ring buffer holds.
const ringBufferMillis = 200

// AudioPlayer plays 16-bit stereo PCM through oto. Samples are queued into
// a ring buffer that oto's player pulls from.
type AudioPlayer struct {
	player     *oto.Player
	ringBuffer *AudioRingBuffer
	sampleRate int
	audioBytes []byte // Pre-allocated buffer for int16-to-byte conversion
}

// oto allows a single context per process, so its rate is fixed by the
// first player.
var (
	otoCtx      *oto.Context
	otoRate     int
	otoInitOnce sync.Once
	otoInitErr  error
)

// ensureOtoContext initializes the oto audio context on first use.
func ensureOtoContext(sampleRate int) (*oto.Context, error) {
	otoInitOnce.Do(func() {
		op := &oto.NewContextOptions{
			SampleRate:   sampleRate,
			ChannelCount: 2,
			Format:       oto.FormatSignedInt16LE,
			BufferSize:   50 * time.Millisecond,
		}
		var readyChan chan struct{}
		otoCtx, readyChan, otoInitErr = oto.NewContext(op)
		if otoInitErr != nil {
			return
		}
		otoRate = sampleRate
		<-readyChan
	})
	if otoInitErr != nil {
		return nil, otoInitErr
	}
	if otoRate != sampleRate {
		return nil, fmt.Errorf("audio context already running at %d Hz, requested %d Hz", otoRate, sampleRate)
	}
	return otoCtx, nil
}

// ringBufferBytes returns the ring buffer size for sampleRate.
func ringBufferBytes(sampleRate int) int {
	return sampleRate * ringBufferMillis / 1000 * frameBytes
}

// NewAudioPlayer creates and starts playback at sampleRate.
func NewAudioPlayer(sampleRate int, volume float64) (*AudioPlayer, error) {
	if sampleRate <= 0 {
		return nil, fmt.Errorf("invalid sample rate %d", sampleRate)
	}
	ctx, err := ensureOtoContext(sampleRate)
	if err != nil {
		return nil, fmt.Errorf("oto audio not available: %w", err)
	}

	rb := NewAudioRingBuffer(ringBufferBytes(sampleRate))
	player := ctx.NewPlayer(rb)
	player.SetBufferSize(adtHighWater(sampleRate))
	player.SetVolume(volume)
	player.Play()

	return &AudioPlayer{
		player:     player,
		ringBuffer: rb,
		sampleRate: sampleRate,
		audioBytes: make([]byte, 0, 4096),
	}, nil
}

// QueueSamples converts interleaved int16 stereo samples to bytes and
// writes what fits to the ring buffer. It returns the number of stereo
// frames accepted.
func (a *AudioPlayer) QueueSamples(samples []int16) int {
	if len(samples) == 0 {
		return 0
	}
	a.audioBytes = appendPCM(a.audioBytes[:0], samples)
	return a.ringBuffer.Write(a.audioBytes) / frameBytes
}

// appendPCM appends samples to dst as little-endian bytes.
func appendPCM(dst []byte, samples []int16) []byte {
	for _, sample := range samples {
		dst = append(dst, byte(sample), byte(sample>>8))
	}
	return dst
}

// GetBufferLevel returns the total bytes of audio data currently buffered
// (ring buffer + oto player internal buffer). Used for ADT pacing.
func (a *AudioPlayer) GetBufferLevel() int {
	return a.ringBuffer.Buffered() + a.player.BufferedSize()
}

// Dropped returns the stereo frames refused because the buffer was full.
func (a *AudioPlayer) Dropped() uint64 {
	return a.ringBuffer.Dropped()
}

// SampleRate returns the playback rate.
func (a *AudioPlayer) SampleRate() int {
	return a.sampleRate
}

// SetVolume sets the playback volume (0.0 = silent, 1.0 = full).
func (a *AudioPlayer) SetVolume(vol float64) {
	a.player.SetVolume(vol)
}

// Clear discards queued audio, used when pausing.
func (a *AudioPlayer) Clear() {
	a.ringBuffer.Clear()
}

// Close cleans up audio resources.
func (a *AudioPlayer) Close() {
	if a.ringBuffer != nil {
		a.ringBuffer.Close()
	}
	if a.player != nil {
		a.player.Close()
	}
}

// ADT (audio-driven timing) thresholds scale with the rate: the emulation
// loop speeds up below 50ms buffered and slows down above 100ms.
func adtLowWater(sampleRate int) int  { return sampleRate / 20 * frameBytes }
func adtHighWater(sampleRate int) int { return sampleRate / 10 * frameBytes }

// ADTSleep scales the nominal frame sleep by the buffer level in bytes.
func ADTSleep(sleep time.Duration, level, sampleRate int) time.Duration {
	switch {
	case level < adtLowWater(sampleRate):
		return time.Duration(float64(sleep) * 0.9)
	case level > adtHighWater(sampleRate):
		return time.Duration(float64(sleep) * 1.1)
	}
	return sleep
}

// Package cli provides a command-line runner for the sound engine.
// It plays a trace in a window that shows the channel waveforms, or
// renders it headless to a sample writer.
package cli

import (
	"log"
	"sync/atomic"
	"time"

	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/inpututil"
	emubridge "github.com/user-none/emapu/bridge/ebiten"
	"github.com/user-none/emapu/emu"
	"github.com/user-none/emapu/ui"
)

// statusInterval is how often, in frames, the status line is refreshed.
const statusInterval = 15

var muteKeys = [emu.NumChannels]ebiten.Key{ebiten.Key1, ebiten.Key2, ebiten.Key3, ebiten.Key4, ebiten.Key5}

// RunnerConfig configures windowed playback.
type RunnerConfig struct {
	Volume float64
	Frames int  // Stop after this many frames; 0 plays to the end of the trace
	Loop   bool // Restart the trace instead of stopping
	Status *StatusPrinter
}

// Runner plays an emulator in a window. The emulator runs on a dedicated
// goroutine with audio-driven timing; the Ebiten thread polls the keyboard
// and draws the shared scope snapshot.
type Runner struct {
	emulator    *emu.Emulator
	scope       *emubridge.Scope
	audioPlayer *ui.AudioPlayer
	cfg         RunnerConfig

	// ADT goroutine control
	emuControl  *ui.EmuControl
	sharedMutes *ui.SharedMutes
	sharedScope *ui.SharedScope
	emuDone     chan struct{}
	finished    atomic.Bool
}

// NewRunner creates a new Runner wrapping the given emulator.
// Audio initialization failure is non-fatal; the runner will work without sound.
func NewRunner(e *emu.Emulator, cfg RunnerConfig) *Runner {
	player, err := ui.NewAudioPlayer(e.SampleRate(), cfg.Volume)
	if err != nil {
		log.Printf("Warning: audio initialization failed: %v", err)
	}

	perFrame := e.APU().Settings().MaxSamplesPerSync() * e.Timing().Scanlines
	r := &Runner{
		emulator:    e,
		scope:       emubridge.NewScope(),
		audioPlayer: player,
		cfg:         cfg,
		emuControl:  ui.NewEmuControl(),
		sharedMutes: &ui.SharedMutes{},
		sharedScope: ui.NewSharedScope(perFrame),
		emuDone:     make(chan struct{}),
	}

	// Start emulation goroutine
	go r.emulationLoop()

	return r
}

// Close cleans up the runner's resources.
func (r *Runner) Close() {
	if r.emuControl != nil {
		r.emuControl.Stop()
		<-r.emuDone
	}

	if r.audioPlayer != nil {
		r.audioPlayer.Close()
		r.audioPlayer = nil
	}
	if r.cfg.Status != nil {
		r.cfg.Status.Finish()
	}
}

// emulationLoop runs on a dedicated goroutine with ADT.
func (r *Runner) emulationLoop() {
	defer close(r.emuDone)
	defer r.emuControl.Exit()

	frameTime := time.Duration(float64(time.Second) / r.emulator.Timing().FPS())
	sampleRate := r.emulator.SampleRate()
	lastFrameTime := time.Now()
	played := 0

	for {
		if !r.emuControl.CheckPause() {
			return
		}

		if r.emulator.Done() && r.cfg.Loop {
			r.emulator.Reset()
		}
		if r.stopAt(played) {
			r.finished.Store(true)
			return
		}

		r.sharedMutes.Apply(r.emulator)
		r.emulator.RunFrame()
		played++

		if r.audioPlayer != nil {
			r.audioPlayer.QueueSamples(r.emulator.GetAudioSamples())
		}
		r.sharedScope.Update(r.emulator)
		if r.cfg.Status != nil && played%statusInterval == 0 {
			r.cfg.Status.Print(r.emulator.Frame(), r.emulator.Status(), r.sharedMutes.Mask(), r.dropped())
		}

		// ADT sleep
		sleepTime := frameTime - time.Since(lastFrameTime)
		if r.audioPlayer != nil {
			sleepTime = ui.ADTSleep(sleepTime, r.audioPlayer.GetBufferLevel(), sampleRate)
		}
		if sleepTime > time.Millisecond {
			time.Sleep(sleepTime)
		}

		lastFrameTime = time.Now()
	}
}

// stopAt reports whether playback ends before frame played+1. Without a
// frame limit a trace plays one extra frame so its last writes are heard.
func (r *Runner) stopAt(played int) bool {
	if r.cfg.Frames > 0 {
		return played >= r.cfg.Frames
	}
	if r.cfg.Loop {
		return false
	}
	return played >= r.emulator.Trace().Frames(r.emulator.Timing())+1
}

// dropped totals samples lost to event overflow and audio backpressure.
func (r *Runner) dropped() uint64 {
	n := r.emulator.APU().DroppedEvents() + r.emulator.APU().DroppedSamples()
	if r.audioPlayer != nil {
		n += r.audioPlayer.Dropped()
	}
	return n
}

// Update implements ebiten.Game.
func (r *Runner) Update() error {
	if r.finished.Load() {
		return ebiten.Termination
	}
	if inpututil.IsKeyJustPressed(ebiten.KeyEscape) {
		return ebiten.Termination
	}
	if !ebiten.IsFocused() {
		return nil
	}

	for ch, key := range muteKeys {
		if inpututil.IsKeyJustPressed(key) {
			r.sharedMutes.Toggle(ch)
		}
	}
	if inpututil.IsKeyJustPressed(ebiten.KeySpace) {
		r.emuControl.TogglePause()
		if r.audioPlayer != nil && r.emuControl.IsPaused() {
			r.audioPlayer.Clear()
		}
	}
	return nil
}

// Draw implements ebiten.Game.
func (r *Runner) Draw(screen *ebiten.Image) {
	snap := r.sharedScope.Read()
	r.scope.Draw(screen, &snap.Samples, snap.Muted, r.emuControl.IsPaused())
}

// Layout implements ebiten.Game.
func (r *Runner) Layout(outsideWidth, outsideHeight int) (int, int) {
	return r.scope.Layout(outsideWidth, outsideHeight)
}

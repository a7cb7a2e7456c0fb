package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strings"

	"github.com/hajimehoshi/ebiten/v2"
	emubridge "github.com/user-none/emapu/bridge/ebiten"
	"github.com/user-none/emapu/cli"
	"github.com/user-none/emapu/emu"
	"github.com/user-none/emapu/script"
	"github.com/user-none/emapu/ui"
)

func parseQuality(s string) (emu.Quality, error) {
	switch strings.ToLower(s) {
	case "low", "11025":
		return emu.QualityLow, nil
	case "medium", "22050":
		return emu.QualityMedium, nil
	case "high", "44100":
		return emu.QualityHigh, nil
	}
	return 0, fmt.Errorf("invalid quality: %s (use low, medium, or high)", s)
}

func main() {
	tracePath := flag.String("trace", "", "path to register trace file")
	scriptPath := flag.String("script", "", "path to Lua score")
	qualityFlag := flag.String("quality", "high", "output quality: low, medium, or high")
	frames := flag.Int("frames", 0, "number of frames to play (0 plays the whole trace)")
	wavPath := flag.String("wav", "", "render to a WAV file instead of playing")
	saveTrace := flag.String("save-trace", "", "write the loaded trace to this path")
	status := flag.Bool("status", false, "print channel status while playing")
	volume := flag.Float64("volume", 1.0, "playback volume (0.0 to 1.0)")
	loop := flag.Bool("loop", false, "restart the trace when it ends")
	flag.Parse()

	if (*tracePath == "") == (*scriptPath == "") {
		log.Fatal("Exactly one of -trace or -script is required. Usage: emapu -trace <path> | -script <path>")
	}

	quality, err := parseQuality(*qualityFlag)
	if err != nil {
		log.Fatal(err)
	}

	var trace *emu.Trace
	if *scriptPath != "" {
		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
		trace, err = script.CompileFile(ctx, *scriptPath)
		stop()
	} else {
		trace, err = emu.LoadTrace(*tracePath)
	}
	if err != nil {
		log.Fatalf("Failed to load trace: %v", err)
	}

	if *saveTrace != "" {
		if err := trace.Save(*saveTrace); err != nil {
			log.Fatalf("Failed to save trace: %v", err)
		}
	}

	e, err := emu.NewEmulator(trace, quality)
	if err != nil {
		log.Fatalf("Failed to initialize emulator: %v", err)
	}
	defer e.Shutdown()

	var sp *cli.StatusPrinter
	if *status {
		sp = cli.NewStatusPrinter(os.Stderr)
	}

	if *wavPath != "" {
		rec, err := ui.NewWAVRecorder(*wavPath, e.SampleRate())
		if err != nil {
			log.Fatal(err)
		}
		n, err := cli.Render(e, rec, *frames, sp)
		if cerr := rec.Close(); err == nil {
			err = cerr
		}
		if err != nil {
			log.Fatalf("Failed to render: %v", err)
		}
		log.Printf("Wrote %d samples (%d frames) to %s", n, e.Frame(), *wavPath)
		return
	}

	ebiten.SetWindowSize(emubridge.ScopeWidth*3, emubridge.ScopeHeight*3)
	ebiten.SetWindowTitle("emapu")
	ebiten.SetWindowResizingMode(ebiten.WindowResizingModeEnabled)
	ebiten.SetWindowSizeLimits(emubridge.ScopeWidth, emubridge.ScopeHeight, -1, -1)
	ebiten.SetTPS(60)

	runner := cli.NewRunner(e, cli.RunnerConfig{
		Volume: *volume,
		Frames: *frames,
		Loop:   *loop,
		Status: sp,
	})
	defer runner.Close()

	if err := ebiten.RunGame(runner); err != nil {
		log.Fatal(err)
	}
}

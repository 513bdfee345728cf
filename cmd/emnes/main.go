// Command emnes is the CLI front-end for the emulator core: load a ROM,
// either drive it in a window or run it headless for a fixed number of
// frames and dump the last one for regression comparison.
package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"

	"github.com/xorllc/emnes/internal/appver"
	"github.com/xorllc/emnes/internal/config"
	"github.com/xorllc/emnes/internal/engine"
	"github.com/xorllc/emnes/internal/graphics"
)

func main() {
	var (
		romPath     = flag.String("rom", "", "path to an iNES ROM file")
		headless    = flag.Bool("headless", false, "run without a window")
		frames      = flag.Int("frames", 120, "frames to run in -headless mode")
		configPath  = flag.String("config", "", "path to a settings JSON file")
		scale       = flag.Int("scale", 0, "window scale override (0 = use config)")
		snapshotOut = flag.String("snapshot", "", "in -headless mode, write the final frame here as a PPM image")
		showVersion = flag.Bool("version", false, "print version information and exit")
	)
	flag.Parse()

	if *showVersion {
		fmt.Println(appver.String())
		return
	}

	if *romPath == "" {
		log.Fatal("emnes: -rom is required")
	}

	path := *configPath
	if path == "" {
		path = config.DefaultPath()
	}
	cfg, err := config.Load(path)
	if err != nil {
		log.Fatalf("emnes: load config: %v", err)
	}
	if *scale > 0 {
		cfg.Window.Scale = *scale
	}

	rom, err := os.ReadFile(*romPath)
	if err != nil {
		log.Fatalf("emnes: read ROM: %v", err)
	}

	eng := engine.New()
	if err := eng.Load(rom); err != nil {
		log.Fatalf("emnes: load ROM: %v", err)
	}

	cfg.LastROM = *romPath
	if err := cfg.Save(); err != nil {
		log.Printf("emnes: save config: %v", err)
	}

	if *headless {
		runHeadless(eng, *frames, *snapshotOut)
		return
	}

	if err := runWindowed(eng, cfg); err != nil {
		log.Fatalf("emnes: %v", err)
	}
}

// runHeadless steps the engine frames times with no display, then prints
// the final frame's RGB CRC32 to stdout (the value a regression check
// compares against a captured reference) and optionally saves it as a PPM.
func runHeadless(eng *engine.Engine, frames int, snapshotPath string) {
	backend, err := graphics.CreateBackend(graphics.BackendHeadless)
	if err != nil {
		log.Fatalf("emnes: create headless backend: %v", err)
	}
	if err := backend.Initialize(graphics.Config{Headless: true}); err != nil {
		log.Fatalf("emnes: initialize headless backend: %v", err)
	}
	window, err := backend.CreateWindow("emnes", 256, 240)
	if err != nil {
		log.Fatalf("emnes: create headless window: %v", err)
	}
	defer window.Cleanup()

	headlessWindow, ok := window.(*graphics.HeadlessWindow)
	if !ok {
		log.Fatal("emnes: headless backend did not return a HeadlessWindow")
	}
	if snapshotPath != "" {
		dir := filepath.Dir(snapshotPath)
		headlessWindow.SetOutputDir(dir)
		headlessWindow.SnapshotFrame(frames)
		defer func() {
			generated := filepath.Join(dir, fmt.Sprintf("frame_%03d.ppm", frames))
			if err := os.Rename(generated, snapshotPath); err != nil {
				log.Printf("emnes: move snapshot to %s: %v", snapshotPath, err)
			}
		}()
	}

	for frame := 1; frame <= frames; frame++ {
		buf, err := eng.RunFrame()
		if err != nil {
			log.Fatalf("emnes: frame %d: %v", frame, err)
		}
		if err := window.RenderFrame(*buf); err != nil {
			log.Fatalf("emnes: render frame %d: %v", frame, err)
		}
	}

	fmt.Printf("frame %d CRC32: %d\n", frames, headlessWindow.LastFrameCRC32())
}

// runWindowed opens an interactive Ebitengine window, wires controller
// input and audio, and blocks until the window is closed.
func runWindowed(eng *engine.Engine, cfg *config.Config) error {
	backend, err := graphics.CreateBackend(graphics.BackendEbitengine)
	if err != nil {
		return fmt.Errorf("create backend: %w", err)
	}
	width, height := cfg.WindowResolution()
	if err := backend.Initialize(graphics.Config{
		WindowTitle:  "emnes",
		WindowWidth:  width,
		WindowHeight: height,
		Fullscreen:   cfg.Window.Fullscreen,
		VSync:        true,
		Filter:       "nearest",
	}); err != nil {
		return fmt.Errorf("initialize backend: %w", err)
	}
	window, err := backend.CreateWindow("emnes", width, height)
	if err != nil {
		return fmt.Errorf("create window: %w", err)
	}
	defer window.Cleanup()

	pad := &padState{}
	updater, ok := window.(interface{ SetEmulatorUpdateFunc(func() error) })
	if !ok {
		return fmt.Errorf("window does not support a drive loop")
	}
	updater.SetEmulatorUpdateFunc(func() error {
		pad.apply(eng, window.PollEvents())
		buf, err := eng.RunFrame()
		if err != nil {
			return err
		}
		return window.RenderFrame(*buf)
	})

	ebitengineWindow, isEbitengine := graphics.AsEbitengineWindow(window)
	if !isEbitengine {
		runner, ok := window.(interface{ Run() error })
		if !ok {
			return fmt.Errorf("window does not implement a blocking run loop")
		}
		return runner.Run()
	}

	sink, err := graphics.NewAudioSink(cfg.Audio.SampleRate)
	if err != nil {
		log.Printf("emnes: audio disabled: %v", err)
		return ebitengineWindow.Run()
	}
	defer sink.Close()

	return ebitengineWindow.RunWithAudio(sink, func() []int16 {
		return eng.AudioSamples(cfg.Audio.SampleRate)
	})
}

// padState tracks the live button mask per controller port, since
// InputEvent reports one button transition at a time but Engine.SetButtons
// wants the full eight-button mask.
type padState struct {
	port1, port2 uint8
}

func (p *padState) apply(eng *engine.Engine, events []graphics.InputEvent) {
	for _, ev := range events {
		if ev.Type != graphics.InputEventTypeButton {
			continue
		}
		port, bit, ok := buttonBit(ev.Button)
		if !ok {
			continue
		}
		target := &p.port1
		if port == 2 {
			target = &p.port2
		}
		if ev.Pressed {
			*target |= bit
		} else {
			*target &^= bit
		}
	}
	eng.SetButtons(1, p.port1)
	eng.SetButtons(2, p.port2)
}

// buttonBit maps a Button to its controller port and its A,B,Select,Start,
// Up,Down,Left,Right bit position.
func buttonBit(button graphics.Button) (port int, bit uint8, ok bool) {
	switch button {
	case graphics.ButtonA:
		return 1, 1 << 0, true
	case graphics.ButtonB:
		return 1, 1 << 1, true
	case graphics.ButtonSelect:
		return 1, 1 << 2, true
	case graphics.ButtonStart:
		return 1, 1 << 3, true
	case graphics.ButtonUp:
		return 1, 1 << 4, true
	case graphics.ButtonDown:
		return 1, 1 << 5, true
	case graphics.ButtonLeft:
		return 1, 1 << 6, true
	case graphics.ButtonRight:
		return 1, 1 << 7, true
	case graphics.Button2A:
		return 2, 1 << 0, true
	case graphics.Button2B:
		return 2, 1 << 1, true
	case graphics.Button2Select:
		return 2, 1 << 2, true
	case graphics.Button2Start:
		return 2, 1 << 3, true
	case graphics.Button2Up:
		return 2, 1 << 4, true
	case graphics.Button2Down:
		return 2, 1 << 5, true
	case graphics.Button2Left:
		return 2, 1 << 6, true
	case graphics.Button2Right:
		return 2, 1 << 7, true
	default:
		return 0, 0, false
	}
}

package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/cjeanneret/photocap/internal/config"
	"github.com/cjeanneret/photocap/internal/debug"
	"github.com/cjeanneret/photocap/internal/gallery"
	"github.com/cjeanneret/photocap/internal/hw/audio"
	"github.com/cjeanneret/photocap/internal/hw/camera"
	"github.com/cjeanneret/photocap/internal/hw/gpio"
	"github.com/cjeanneret/photocap/internal/logic/capture"
	"github.com/cjeanneret/photocap/internal/storage"
	"github.com/cjeanneret/photocap/internal/web"
)

// app owns the hardware and the coordinator for one command run.
type app struct {
	cfg   *config.Config
	gpio  gpio.Driver
	cam   camera.Backend
	sess  *capture.Session
	coord *capture.Coordinator
	index *gallery.Index
}

// newApp loads the config and wires hardware, storage and the coordinator.
func newApp(opts *rootOptions, notifier capture.Notifier) (*app, error) {
	if err := config.ValidateConfigPath(opts.configPath); err != nil {
		return nil, fmt.Errorf("invalid config path: %w", err)
	}
	cfg, err := config.Load(opts.configPath)
	if err != nil {
		return nil, fmt.Errorf("load config failed: %w", err)
	}
	if opts.debugLevel >= 0 {
		cfg.Defaults.DebugLevel = opts.debugLevel
	}

	debug.Init(cfg.Defaults.DebugLevel)
	debug.Section("Initialization")
	debug.Value("Config path", opts.configPath)
	debug.Value("Debug level", debug.Level())
	debug.Value("Mock GPIO", cfg.Defaults.MockGPIO)

	a := &app{cfg: cfg}
	ok := false
	defer func() {
		if !ok {
			a.Close()
		}
	}()

	debug.Step(1, "Initializing GPIO driver")
	a.gpio, err = gpio.NewDriver(cfg.Defaults.MockGPIO)
	if err != nil {
		return nil, fmt.Errorf("init GPIO failed: %w", err)
	}

	debug.Step(2, "Initializing camera")
	a.cam, err = newCameraFromConfig(a.gpio, cfg)
	if err != nil {
		return nil, fmt.Errorf("init camera failed: %w", err)
	}
	debug.Value("Camera", a.cam.Info().Name)
	debug.Value("Has flash", a.cam.Info().HasFlash)
	debug.PrintStruct("Camera config", cfg.Camera)

	a.sess = &capture.Session{
		Camera: a.cam,
		Photo: &capture.PhotoOutput{
			Enabled:        cfg.PhotoEnabled(),
			Mirrored:       cfg.Photo.Mirrored,
			TargetRotation: cfg.Photo.TargetRotationDeg,
		},
	}

	debug.Step(3, "Preparing storage")
	resolver := storage.NewResolver(cfg.Storage.Root)
	if cfg.Storage.GalleryIndex {
		dir, err := resolver.AlbumDir(cfg.Storage.Album)
		if err != nil {
			return nil, err
		}
		if a.index, err = gallery.Open(dir); err != nil {
			return nil, err
		}
	}
	debug.Value("Album", cfg.AlbumDir())
	debug.Value("Gallery index", cfg.Storage.GalleryIndex)

	debug.Step(4, "Creating capture coordinator")
	copts, err := coordinatorOptions(cfg, resolver, notifier)
	if err != nil {
		return nil, err
	}
	if a.index != nil {
		copts.Gallery = a.index
	}
	if a.coord, err = capture.NewCoordinator(copts); err != nil {
		return nil, err
	}

	ok = true
	return a, nil
}

// coordinatorOptions maps the config onto coordinator options.
func coordinatorOptions(cfg *config.Config, resolver *storage.Resolver, notifier capture.Notifier) (capture.Options, error) {
	mode, err := audio.ParseRingerMode(cfg.Device.RingerMode)
	if err != nil {
		return capture.Options{}, err
	}
	player, err := audio.NewPlayer(cfg.Device.ShutterSound, os.Stderr)
	if err != nil {
		return capture.Options{}, err
	}
	policy := capture.PersistLog
	if cfg.Capture.PersistErrors == "surface" {
		policy = capture.PersistSurface
	}
	return capture.Options{
		Album:           cfg.Storage.Album,
		Storage:         resolver,
		RegisterGallery: cfg.Storage.GalleryIndex,
		Notifier:        notifier,
		Player:          player,
		Ringer:          audio.NewStaticRinger(mode),
		Quirk:           capture.DeviceQuirk(cfg.Camera.ExifOrientationUnreliable),
		PersistErrors:   policy,
	}, nil
}

// newCameraFromConfig selects a camera implementation based on configuration.
func newCameraFromConfig(g gpio.Driver, cfg *config.Config) (camera.Backend, error) {
	source := &camera.SyntheticSource{
		Width:    cfg.Camera.WidthPx,
		Height:   cfg.Camera.HeightPx,
		Rotation: cfg.Camera.SensorRotationDeg,
	}
	switch cfg.Camera.Type {
	case config.CameraSimulated:
		sim := &camera.Simulated{Source: source, Flash: cfg.Camera.HasFlash}
		sim.SkipStartSignal = !cfg.HasStartSignal()
		return sim, nil
	case config.CameraNikonD90GPIO:
		return camera.NewNikonD90GPIO(
			g,
			cfg.Camera.FocusPin,
			cfg.Camera.ShutterPin,
			cfg.FocusDelay(),
			cfg.ShutterDelay(),
			source,
		), nil
	default:
		return nil, fmt.Errorf("unsupported camera type: %s", cfg.Camera.Type)
	}
}

// defaultRequest builds a capture request from the config defaults.
func (a *app) defaultRequest() (capture.Request, error) {
	flash, err := capture.ParseFlashMode(a.cfg.Capture.Flash)
	if err != nil {
		return capture.Request{}, err
	}
	return capture.Request{
		Flash:              flash,
		EnableShutterSound: a.cfg.Capture.EnableShutterSound,
		ResolveEarly:       a.cfg.Capture.ResolveEarly,
	}, nil
}

func (a *app) formDefaults() web.FormConfig {
	return web.FormConfig{
		Flash:              a.cfg.Capture.Flash,
		EnableShutterSound: a.cfg.Capture.EnableShutterSound,
		ResolveEarly:       a.cfg.Capture.ResolveEarly,
		HasFlash:           a.cam.Info().HasFlash,
		Album:              a.cfg.Storage.Album,
		TimeoutMs:          a.cfg.Capture.TimeoutMs,
	}
}

func (a *app) captureContext(parent context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(parent, a.cfg.CaptureTimeout())
}

// TakePhoto captures with the app's session.
func (a *app) TakePhoto(ctx context.Context, req capture.Request) (capture.Result, error) {
	return a.coord.TakePhoto(ctx, req, a.sess)
}

// InFlight reports captures still waiting for a terminal callback.
func (a *app) InFlight() int64 { return a.coord.InFlight() }

// Close drains the coordinator, then releases storage and GPIO.
func (a *app) Close() error {
	var errs []error
	if a.coord != nil {
		a.coord.Close()
	}
	if a.index != nil {
		if err := a.index.Close(); err != nil {
			errs = append(errs, fmt.Errorf("closing gallery index: %w", err))
		}
	}
	if a.gpio != nil {
		if err := a.gpio.Close(); err != nil {
			errs = append(errs, fmt.Errorf("closing GPIO driver: %w", err))
		}
	}
	return errors.Join(errs...)
}

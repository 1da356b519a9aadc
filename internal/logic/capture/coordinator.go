// Package capture coordinates single-shot still captures: it validates a
// request against the session, drives the hardware callback sequence,
// persists and corrects the still, and settles the caller's sink once.
package capture

import (
	"context"
	"fmt"
	"image"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/sourcegraph/conc"

	"github.com/cjeanneret/photocap/internal/debug"
	"github.com/cjeanneret/photocap/internal/hw/audio"
	"github.com/cjeanneret/photocap/internal/hw/camera"
	"github.com/cjeanneret/photocap/internal/logic/exif"
	"github.com/cjeanneret/photocap/internal/storage"
)

// Registrar makes a written asset discoverable by gallery viewers.
type Registrar interface {
	Register(path string, capturedAt time.Time) error
}

// Notifier receives the processing-complete signal, once per capture, on
// both the success and the error path.
type Notifier interface {
	ProcessingComplete(path string)
}

// NotifierFunc adapts a function to Notifier.
type NotifierFunc func(path string)

func (f NotifierFunc) ProcessingComplete(path string) { f(path) }

// MetadataCorrector fixes orientation metadata of a written still.
type MetadataCorrector interface {
	Correct(path string, c exif.Correction) error
}

// QuirkFunc reports whether the orientation the platform wrote for img
// cannot be trusted.
type QuirkFunc func(img camera.Image) bool

// DeviceQuirk returns the quirk policy for a device. Non-JPEG stills never
// carry a trustworthy orientation.
func DeviceQuirk(orientationUnreliable bool) QuirkFunc {
	return func(img camera.Image) bool {
		return orientationUnreliable || img.Format() != camera.FormatJPEG
	}
}

// PersistPolicy decides what a caller sees when a captured still could not
// be written or corrected.
type PersistPolicy int

const (
	// PersistLog logs the failure, removes the partial file and still
	// resolves the sink.
	PersistLog PersistPolicy = iota
	// PersistSurface rejects the sink with a *PersistError.
	PersistSurface
)

// Hooks are optional diagnostic callbacks.
type Hooks struct {
	OnTransition   func(id string, from, to State)
	OnPersistError func(id, path string, err error)
}

// Options configures a Coordinator.
type Options struct {
	Album           string
	Storage         *storage.Resolver
	Gallery         Registrar
	RegisterGallery bool
	Notifier        Notifier
	Player          audio.Player
	Ringer          audio.Ringer
	Corrector       MetadataCorrector
	Quirk           QuirkFunc
	PersistErrors   PersistPolicy
	Hooks           Hooks
	Now             func() time.Time
}

// Coordinator owns the capture lifecycle for a camera session. Hardware
// callbacks arrive on its serial camera queue; success processing is handed
// off to background goroutines so file I/O never blocks the queue.
type Coordinator struct {
	opts     Options
	queue    *camera.Queue
	bg       conc.WaitGroup
	inflight atomic.Int64

	closeMu sync.RWMutex
	closed  bool
}

// NewCoordinator builds a coordinator with its own camera queue. Storage is
// required; every other option has a default.
func NewCoordinator(opts Options) (*Coordinator, error) {
	if opts.Storage == nil {
		return nil, ErrNoStorage
	}
	if opts.Album == "" {
		opts.Album = "Light"
	}
	if opts.Player == nil {
		opts.Player = audio.NopPlayer{}
	}
	if opts.Corrector == nil {
		opts.Corrector = exif.Corrector{}
	}
	if opts.Quirk == nil {
		opts.Quirk = DeviceQuirk(false)
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Coordinator{
		opts:  opts,
		queue: camera.NewQueue(16),
	}, nil
}

// InFlight is the number of submitted captures that have not reached a
// terminal callback yet.
func (c *Coordinator) InFlight() int64 { return c.inflight.Load() }

// TakePhoto submits req and waits for its outcome. Ending ctx cancels the
// caller's interest only; the hardware capture runs to completion.
func (c *Coordinator) TakePhoto(ctx context.Context, req Request, sess *Session) (Result, error) {
	p, err := c.Submit(req, sess)
	if err != nil {
		return Result{}, err
	}
	return p.Wait(ctx)
}

// Submit validates the request, resolves the output path and issues the
// hardware capture. Precondition failures return before any hardware call.
func (c *Coordinator) Submit(req Request, sess *Session) (*PendingCapture, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	c.closeMu.RLock()
	defer c.closeMu.RUnlock()
	if c.closed {
		return nil, ErrClosed
	}

	if sess == nil || sess.Camera == nil {
		return nil, ErrCameraNotReady
	}
	if sess.Photo == nil || !sess.Photo.Enabled {
		return nil, ErrPhotoNotEnabled
	}
	if req.Flash != camera.FlashOff && !sess.Camera.Info().HasFlash {
		return nil, ErrFlashUnavailable
	}
	if err := sess.Camera.SetFlashMode(req.Flash); err != nil {
		return nil, fmt.Errorf("configure flash: %w", err)
	}

	capturedAt := c.opts.Now()
	path, err := c.opts.Storage.Resolve(c.opts.Album, capturedAt)
	if err != nil {
		return nil, err
	}

	playSound := req.EnableShutterSound && !audio.IsSilent(c.opts.Ringer)
	if playSound {
		if err := c.opts.Player.Load(); err != nil {
			debug.Errorf("load shutter sound: %v", err)
			playSound = false
		}
	}

	mirrored := sess.Photo.Mirrored
	p := newPendingCapture(uuid.NewString(), path, capturedAt, mirrored, req, Result{
		Path:        path,
		Orientation: NormalizeOrientation(sess.Photo.TargetRotation),
		IsMirrored:  mirrored,
	})
	p.onChange = c.transitioned

	c.inflight.Add(1)
	debug.Info("Capture %s submitted: %s (flash=%s, resolve_early=%t)", p.ID, path, req.Flash, req.ResolveEarly)

	focus := sess.focusLock()
	sess.Camera.TakePicture(c.queue, camera.Callbacks{
		OnCaptureStarted: func() { c.onStarted(p, focus) },
		OnCaptureSuccess: func(img camera.Image) { c.onSuccess(p, img, playSound) },
		OnCaptureProcessProgressed: func(progress int) {
			debug.Live("Capture %s: processing %d%%", p.ID, progress)
		},
		OnPostviewAvailable: func(preview image.Image) {
			debug.Callback(p.ID, "onPostviewAvailable")
			if preview != nil && debug.IsEnabled(debug.LevelVerbose) {
				debug.Verbose("Capture %s: postview %v", p.ID, preview.Bounds().Size())
			}
		},
		OnError: func(err error) { c.onError(p, err) },
	})
	return p, nil
}

func (c *Coordinator) transitioned(p *PendingCapture, from, to State) {
	debug.Transition(p.ID, from, to)
	if c.opts.Hooks.OnTransition != nil {
		c.opts.Hooks.OnTransition(p.ID, from, to)
	}
}

func (c *Coordinator) onStarted(p *PendingCapture, focus camera.FocusLock) {
	debug.Callback(p.ID, "onCaptureStarted")
	if !p.advance(StateStarted) {
		debug.Live("Capture %s: ignoring late or repeated start", p.ID)
		return
	}

	// Release before anything else touches the hardware, so the camera
	// cannot refocus while the shutter is open.
	if focus != nil {
		if err := focus.ReleaseFocusAndExposure(); err != nil {
			debug.Errorf("capture %s: release focus: %v", p.ID, err)
		}
	}

	if err := storage.Touch(p.OutputPath); err != nil {
		debug.Errorf("capture %s: create stub: %v", p.ID, err)
	} else {
		c.register(p)
	}

	if p.Request.ResolveEarly && p.sink.IsOpen() {
		p.sink.Resolve(p.provisional)
		debug.Result(p.ID, p.OutputPath, nil)
	}
}

func (c *Coordinator) onSuccess(p *PendingCapture, img camera.Image, playSound bool) {
	debug.Callback(p.ID, "onCaptureSuccess")
	if !p.claimTerminal() {
		debug.Live("Capture %s: ignoring repeated terminal callback", p.ID)
		_ = img.Close()
		return
	}
	c.bg.Go(func() { c.process(p, img, playSound) })
}

// process runs on a background goroutine.
func (c *Coordinator) process(p *PendingCapture, img camera.Image, playSound bool) {
	defer close(p.finished)
	defer img.Close()

	if playSound {
		if err := c.opts.Player.Play(); err != nil {
			debug.Errorf("capture %s: shutter sound: %v", p.ID, err)
		}
	}

	width, height := img.Width(), img.Height()
	persistErr := c.persist(p, img)
	if persistErr != nil {
		persistErr = &PersistError{Path: p.OutputPath, Err: persistErr}
		debug.Error(persistErr)
		if err := storage.Remove(p.OutputPath); err != nil {
			debug.Errorf("capture %s: remove partial file: %v", p.ID, err)
		}
		if c.opts.Hooks.OnPersistError != nil {
			c.opts.Hooks.OnPersistError(p.ID, p.OutputPath, persistErr)
		}
	}
	surface := persistErr != nil && c.opts.PersistErrors == PersistSurface

	c.inflight.Add(-1)
	c.notify(p)

	if surface {
		p.advance(StateFailed)
	} else {
		p.advance(StateSucceeded)
	}

	// Closed when the start signal already resolved it or the caller gave up.
	if !p.sink.IsOpen() {
		return
	}
	if surface {
		p.sink.Reject(persistErr)
		debug.Result(p.ID, p.OutputPath, persistErr)
		return
	}
	res := p.provisional
	res.Width, res.Height = width, height
	p.sink.Resolve(res)
	debug.Result(p.ID, p.OutputPath, nil)
}

// persist writes the still and corrects its orientation metadata.
func (c *Coordinator) persist(p *PendingCapture, img camera.Image) error {
	data, err := img.Plane()
	if err != nil {
		return fmt.Errorf("read image buffer: %w", err)
	}
	if err := storage.WriteFile(p.OutputPath, data, 0o644); err != nil {
		return fmt.Errorf("write image: %w", err)
	}
	debug.Verbose("Capture %s: saved %s (%dx%d, %d bytes)", p.ID, p.OutputPath, img.Width(), img.Height(), len(data))
	c.register(p)

	corr := exif.Correction{
		UntrustedOrientation: c.opts.Quirk(img),
		RotationDegrees:      img.RotationDegrees(),
		FlipHorizontal:       p.Mirrored,
	}
	if err := c.opts.Corrector.Correct(p.OutputPath, corr); err != nil {
		return fmt.Errorf("correct metadata: %w", err)
	}
	return nil
}

func (c *Coordinator) onError(p *PendingCapture, err error) {
	debug.Callback(p.ID, "onError")
	if !p.claimTerminal() {
		debug.Live("Capture %s: ignoring repeated terminal callback", p.ID)
		return
	}
	defer close(p.finished)

	c.notify(p)
	if rmErr := storage.Remove(p.OutputPath); rmErr != nil {
		debug.Errorf("capture %s: remove stub: %v", p.ID, rmErr)
	}
	c.inflight.Add(-1)
	p.advance(StateFailed)

	if p.sink.IsOpen() {
		p.sink.Reject(err)
		debug.Result(p.ID, p.OutputPath, err)
	}
}

func (c *Coordinator) register(p *PendingCapture) {
	if !c.opts.RegisterGallery || c.opts.Gallery == nil || !p.markRegistered() {
		return
	}
	if err := c.opts.Gallery.Register(p.OutputPath, p.CapturedAt); err != nil {
		debug.Errorf("capture %s: gallery registration: %v", p.ID, err)
	}
}

func (c *Coordinator) notify(p *PendingCapture) {
	if c.opts.Notifier != nil {
		c.opts.Notifier.ProcessingComplete(p.OutputPath)
	}
}

// Close stops accepting captures, waits for queued hardware callbacks and
// for background processing to finish.
func (c *Coordinator) Close() {
	c.closeMu.Lock()
	c.closed = true
	c.closeMu.Unlock()

	c.queue.Close()
	c.bg.Wait()
}

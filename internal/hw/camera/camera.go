package camera

import (
	"errors"
	"image"
	"sync/atomic"
)

// FlashMode selects how the flash fires for a still capture.
type FlashMode int

const (
	FlashOff FlashMode = iota
	FlashOn
	FlashAuto
)

func (f FlashMode) String() string {
	switch f {
	case FlashOn:
		return "on"
	case FlashAuto:
		return "auto"
	default:
		return "off"
	}
}

// Format is the pixel encoding of a delivered image.
type Format int

const (
	FormatJPEG Format = iota
	FormatYUV
)

// ErrImageClosed is returned when reading an image after it was closed.
var ErrImageClosed = errors.New("camera: image already closed")

// Image is a single still delivered by the hardware. Plane returns the
// encoded bytes of the first plane. The consumer must Close it when done.
type Image interface {
	Plane() ([]byte, error)
	Width() int
	Height() int
	Format() Format
	// RotationDegrees is the clockwise rotation the sensor reports for this frame.
	RotationDegrees() int
	Close() error
}

// Callbacks are the slots a backend fires for one TakePicture call.
// A backend fires OnCaptureStarted at most once, then exactly one of
// OnCaptureSuccess or OnError. The progress and postview slots are optional
// and many backends never fire them. Nil slots are skipped.
type Callbacks struct {
	OnCaptureStarted           func()
	OnCaptureSuccess           func(img Image)
	OnCaptureProcessProgressed func(progress int)
	OnPostviewAvailable        func(preview image.Image)
	OnError                    func(err error)
}

// Executor runs callback work on an execution context owned by the caller.
type Executor interface {
	Execute(fn func())
}

// ExecutorFunc adapts a function to Executor.
type ExecutorFunc func(fn func())

func (f ExecutorFunc) Execute(fn func()) { f(fn) }

// Inline runs tasks on the calling goroutine.
var Inline Executor = ExecutorFunc(func(fn func()) { fn() })

// Info describes static capabilities of a backend.
type Info struct {
	Name     string
	HasFlash bool
}

// Backend is the high-level hardware capture API used by the rest of the
// application, regardless of how the camera is driven (GPIO, USB, simulated).
type Backend interface {
	// TakePicture starts one still capture. Callbacks are delivered through
	// exec, and exactly one of OnCaptureSuccess or OnError must eventually
	// fire, even if exec's owner has been closed meanwhile.
	TakePicture(exec Executor, cb Callbacks)
	// SetFlashMode configures the photo output for the next capture.
	SetFlashMode(mode FlashMode) error
	Info() Info
}

// FocusLock is implemented by backends that hold focus and exposure while
// a capture is armed.
type FocusLock interface {
	ReleaseFocusAndExposure() error
}

// CaptureError is a failure reported by the hardware. Its message is
// surfaced to callers verbatim.
type CaptureError struct {
	Code    string
	Message string
	Err     error
}

func (e *CaptureError) Error() string {
	if e.Code == "" {
		return e.Message
	}
	return e.Code + ": " + e.Message
}

func (e *CaptureError) Unwrap() error { return e.Err }

// Frame is an in-memory Image.
type Frame struct {
	Data     []byte
	W, H     int
	Encoding Format
	Rotation int

	closed atomic.Bool
}

func (f *Frame) Plane() ([]byte, error) {
	if f.closed.Load() {
		return nil, ErrImageClosed
	}
	return f.Data, nil
}

func (f *Frame) Width() int           { return f.W }
func (f *Frame) Height() int          { return f.H }
func (f *Frame) Format() Format       { return f.Encoding }
func (f *Frame) RotationDegrees() int { return f.Rotation }

// Close releases the frame buffer. Closing twice is a no-op.
func (f *Frame) Close() error {
	if f.closed.CompareAndSwap(false, true) {
		f.Data = nil
	}
	return nil
}

// Closed reports whether Close was called.
func (f *Frame) Closed() bool { return f.closed.Load() }

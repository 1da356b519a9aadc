package capture

import (
	"errors"
	"fmt"
)

// Precondition failures returned synchronously by Submit.
var (
	ErrCameraNotReady   = errors.New("camera is not ready")
	ErrPhotoNotEnabled  = errors.New("photo output is not enabled")
	ErrFlashUnavailable = errors.New("flash requested but the device has no flash unit")
	ErrInvalidRequest   = errors.New("invalid capture request")
	ErrClosed           = errors.New("capture coordinator is closed")
)

// ErrNoStorage is returned by NewCoordinator when Options.Storage is nil.
var ErrNoStorage = errors.New("capture coordinator needs a storage resolver")

// ErrCancelled is the outcome observed by a caller that abandoned its sink.
var ErrCancelled = errors.New("capture cancelled by caller")

// PersistError reports a still that was captured but could not be written
// or corrected. Only surfaced when the coordinator runs with PersistSurface.
type PersistError struct {
	Path string
	Err  error
}

func (e *PersistError) Error() string {
	return fmt.Sprintf("persist %s: %v", e.Path, e.Err)
}

func (e *PersistError) Unwrap() error { return e.Err }

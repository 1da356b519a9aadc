package capture

import (
	"fmt"
	"strings"

	"github.com/cjeanneret/photocap/internal/hw/camera"
)

// Request describes one photo the caller wants. It is passed by value and
// never modified after Submit.
type Request struct {
	Flash              camera.FlashMode `json:"flash"`
	EnableShutterSound bool             `json:"enable_shutter_sound"`
	// ResolveEarly settles the sink as soon as the hardware reports capture
	// start, before the still is written.
	ResolveEarly bool `json:"resolve_early"`
}

// Validate rejects values outside the known enums.
func (r Request) Validate() error {
	switch r.Flash {
	case camera.FlashOff, camera.FlashOn, camera.FlashAuto:
		return nil
	default:
		return fmt.Errorf("%w: unknown flash mode %d", ErrInvalidRequest, int(r.Flash))
	}
}

// ParseFlashMode accepts "off", "on" or "auto" (case-insensitive).
func ParseFlashMode(s string) (camera.FlashMode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "off":
		return camera.FlashOff, nil
	case "on":
		return camera.FlashOn, nil
	case "auto":
		return camera.FlashAuto, nil
	default:
		return camera.FlashOff, fmt.Errorf("%w: unknown flash mode %q", ErrInvalidRequest, s)
	}
}

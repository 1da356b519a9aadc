package exif

import (
	"fmt"
	"os"

	"github.com/cjeanneret/photocap/internal/debug"
	"github.com/cjeanneret/photocap/internal/storage"
)

// Correction describes what to apply to a freshly written still.
type Correction struct {
	// UntrustedOrientation is the device quirk: the orientation the platform
	// wrote cannot be relied on, so RotationDegrees is applied explicitly.
	UntrustedOrientation bool
	RotationDegrees      int
	FlipHorizontal       bool
	FlipVertical         bool
}

// Apply folds c onto o in the order rotate, horizontal flip, vertical flip.
func (c Correction) Apply(o Orientation) (Orientation, error) {
	if c.UntrustedOrientation {
		var err error
		if o, err = o.Rotate(c.RotationDegrees); err != nil {
			return o, err
		}
	}
	if c.FlipHorizontal {
		o = o.FlipHorizontally()
	}
	if c.FlipVertical {
		o = o.FlipVertically()
	}
	return o, nil
}

// Corrector rewrites the orientation tag of JPEG files on disk.
type Corrector struct{}

// Correct applies c to the file at path and persists the result before
// returning. A no-op correction leaves the file untouched.
func (Corrector) Correct(path string, c Correction) error {
	if !c.UntrustedOrientation && !c.FlipHorizontal && !c.FlipVertical {
		return nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read %s: %w", path, err)
	}
	current, err := ReadOrientation(data)
	if err != nil {
		return fmt.Errorf("read orientation: %w", err)
	}
	next, err := c.Apply(current)
	if err != nil {
		return err
	}
	debug.Verbose("EXIF: %s orientation %s -> %s", path, current, next)
	if next == current {
		return nil
	}

	out, err := SetOrientation(data, next)
	if err != nil {
		return fmt.Errorf("set orientation: %w", err)
	}
	if err := storage.WriteFile(path, out, 0o644); err != nil {
		return fmt.Errorf("save attributes: %w", err)
	}
	return nil
}

// ReadFileOrientation reads the orientation tag of the JPEG at path.
func ReadFileOrientation(path string) (Orientation, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Undefined, err
	}
	return ReadOrientation(data)
}

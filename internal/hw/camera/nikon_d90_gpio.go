package camera

import (
	"sync"
	"time"

	"github.com/cjeanneret/photocap/internal/debug"
	"github.com/cjeanneret/photocap/internal/hw/gpio"
)

// NikonD90GPIO is a Backend for a Nikon D90 controlled via the 3-pin
// remote connector:
// - GND: connected to Raspberry Pi ground
// - FOCUS: autofocus (activate by setting to LOW)
// - SHUTTER: trigger (activate by setting to LOW)
//
// Capture sequence:
// 1. FOCUS to LOW (locks autofocus and exposure)
// 2. Wait for autofocus to complete
// 3. SHUTTER to LOW, report capture started
// 4. Hold for a moment, then SHUTTER back to HIGH
// 5. FOCUS back to HIGH unless already released
// 6. Fetch the still from the frame source
type NikonD90GPIO struct {
	gpio         gpio.Driver
	focusPin     int
	shutterPin   int
	focusDelay   time.Duration // time for autofocus
	shutterDelay time.Duration // shutter hold time
	source       FrameSource
	flash        bool

	mu        sync.Mutex
	focusHeld bool
}

// NewNikonD90GPIO creates a GPIO-controlled Nikon D90 trigger.
// focusPin and shutterPin are the GPIO pin numbers for FOCUS and SHUTTER lines.
// source provides the still once the shutter fired.
func NewNikonD90GPIO(g gpio.Driver, focusPin, shutterPin int, focusDelay, shutterDelay time.Duration, source FrameSource) *NikonD90GPIO {
	// Configure pins as outputs
	_ = g.SetupPin(focusPin, gpio.Output)
	_ = g.SetupPin(shutterPin, gpio.Output)

	// By default, lines are HIGH (inactive)
	_ = g.WritePin(focusPin, gpio.High)
	_ = g.WritePin(shutterPin, gpio.High)

	return &NikonD90GPIO{
		gpio:         g,
		focusPin:     focusPin,
		shutterPin:   shutterPin,
		focusDelay:   focusDelay,
		shutterDelay: shutterDelay,
		source:       source,
		flash:        true, // pop-up flash
	}
}

func (n *NikonD90GPIO) Info() Info {
	return Info{Name: "nikon_d90_gpio", HasFlash: n.flash}
}

// SetFlashMode is accepted but has no effect: the remote connector has no
// flash line, the body's own flash setting applies.
func (n *NikonD90GPIO) SetFlashMode(mode FlashMode) error {
	debug.Verbose("Camera: flash mode %s requested (set on body)", mode)
	return nil
}

// ReleaseFocusAndExposure lets go of the FOCUS line if it is still held.
func (n *NikonD90GPIO) ReleaseFocusAndExposure() error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if !n.focusHeld {
		return nil
	}
	debug.Verbose("Camera: releasing FOCUS (pin %d -> HIGH)", n.focusPin)
	if err := n.gpio.WritePin(n.focusPin, gpio.High); err != nil {
		return err
	}
	n.focusHeld = false
	return nil
}

func (n *NikonD90GPIO) holdFocus() error {
	n.mu.Lock()
	defer n.mu.Unlock()
	debug.Verbose("Camera: activating FOCUS (pin %d -> LOW)", n.focusPin)
	if err := n.gpio.WritePin(n.focusPin, gpio.Low); err != nil {
		return err
	}
	n.focusHeld = true
	return nil
}

func (n *NikonD90GPIO) TakePicture(exec Executor, cb Callbacks) {
	exec.Execute(func() {
		if err := n.shoot(cb.OnCaptureStarted); err != nil {
			if cb.OnError != nil {
				cb.OnError(&CaptureError{Code: "device/gpio", Message: err.Error(), Err: err})
			}
			return
		}

		img, err := n.source.Next()
		if err != nil {
			if cb.OnError != nil {
				cb.OnError(&CaptureError{Code: "capture/no-frame", Message: err.Error(), Err: err})
			}
			return
		}
		if cb.OnCaptureSuccess != nil {
			cb.OnCaptureSuccess(img)
		} else {
			_ = img.Close()
		}
	})
}

// shoot drives the remote connector. started runs right after the shutter
// line goes LOW.
func (n *NikonD90GPIO) shoot(started func()) error {
	debug.Printf("Camera: triggering shot (focus=%d, shutter=%d)", n.focusPin, n.shutterPin)

	if err := n.holdFocus(); err != nil {
		return err
	}

	debug.Verbose("Camera: waiting for autofocus (%v)", n.focusDelay)
	time.Sleep(n.focusDelay)

	debug.Verbose("Camera: activating SHUTTER (pin %d -> LOW)", n.shutterPin)
	if err := n.gpio.WritePin(n.shutterPin, gpio.Low); err != nil {
		_ = n.ReleaseFocusAndExposure()
		return err
	}
	if started != nil {
		started()
	}

	debug.Verbose("Camera: holding shutter (%v)", n.shutterDelay)
	time.Sleep(n.shutterDelay)

	debug.Verbose("Camera: releasing SHUTTER (pin %d -> HIGH)", n.shutterPin)
	if err := n.gpio.WritePin(n.shutterPin, gpio.High); err != nil {
		_ = n.ReleaseFocusAndExposure()
		return err
	}
	if err := n.ReleaseFocusAndExposure(); err != nil {
		return err
	}

	debug.Printf("Camera: shot triggered successfully")
	return nil
}

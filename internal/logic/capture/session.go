package capture

import "github.com/cjeanneret/photocap/internal/hw/camera"

// PhotoOutput is the active still-capture configuration of a session.
type PhotoOutput struct {
	Enabled        bool
	Mirrored       bool
	TargetRotation int // degrees, clockwise
}

// Session is the capture session context the coordinator borrows for one
// submission. It is owned by the caller.
type Session struct {
	Camera camera.Backend
	Photo  *PhotoOutput
	// FocusLock overrides the backend's own lock, if it has one.
	FocusLock camera.FocusLock
}

func (s *Session) focusLock() camera.FocusLock {
	if s.FocusLock != nil {
		return s.FocusLock
	}
	if fl, ok := s.Camera.(camera.FocusLock); ok {
		return fl
	}
	return nil
}

// Result is the value a resolved sink carries.
type Result struct {
	Path        string `json:"path"`
	Width       int    `json:"width"`
	Height      int    `json:"height"`
	Orientation int    `json:"orientation"`
	IsMirrored  bool   `json:"isMirrored"`
}

// NormalizeOrientation maps any rotation in degrees onto 0, 90, 180 or 270.
func NormalizeOrientation(degrees int) int {
	d := ((degrees % 360) + 360) % 360
	return ((d + 45) / 90 * 90) % 360
}

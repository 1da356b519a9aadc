package camera

import (
	"sync"

	"github.com/cjeanneret/photocap/internal/debug"
)

// Simulated is a Backend with no hardware behind it. It replays the
// callback sequence a real capture pipeline produces, which makes it the
// default for development and the fixture for coordinator tests.
type Simulated struct {
	Source FrameSource
	Flash  bool

	// SkipStartSignal models pipelines that never report capture start.
	SkipStartSignal bool
	// Fail, when set, is delivered through OnError instead of a frame.
	Fail error
	// Progress values are reported through OnCaptureProcessProgressed.
	Progress []int

	mu    sync.Mutex
	flash FlashMode
	shots int
}

// NewSimulated returns a simulated camera producing synthetic frames.
func NewSimulated(width, height, rotation int, hasFlash bool) *Simulated {
	return &Simulated{
		Source: &SyntheticSource{Width: width, Height: height, Rotation: rotation},
		Flash:  hasFlash,
	}
}

func (s *Simulated) Info() Info {
	return Info{Name: "simulated", HasFlash: s.Flash}
}

func (s *Simulated) SetFlashMode(mode FlashMode) error {
	s.mu.Lock()
	s.flash = mode
	s.mu.Unlock()
	debug.Verbose("Simulated camera: flash mode %s", mode)
	return nil
}

// FlashMode returns the last configured flash mode.
func (s *Simulated) FlashMode() FlashMode {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.flash
}

// Shots returns how many captures were requested.
func (s *Simulated) Shots() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.shots
}

func (s *Simulated) TakePicture(exec Executor, cb Callbacks) {
	s.mu.Lock()
	s.shots++
	s.mu.Unlock()

	exec.Execute(func() {
		if !s.SkipStartSignal && cb.OnCaptureStarted != nil {
			cb.OnCaptureStarted()
		}
		for _, p := range s.Progress {
			if cb.OnCaptureProcessProgressed != nil {
				cb.OnCaptureProcessProgressed(p)
			}
		}
		if s.Fail != nil {
			if cb.OnError != nil {
				cb.OnError(s.Fail)
			}
			return
		}
		img, err := s.Source.Next()
		if err != nil {
			if cb.OnError != nil {
				cb.OnError(&CaptureError{Code: "capture/unknown", Message: err.Error(), Err: err})
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

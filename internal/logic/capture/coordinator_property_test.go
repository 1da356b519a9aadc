package capture

import (
	"context"
	"errors"
	"os"
	"testing"

	"pgregory.net/rapid"

	"github.com/cjeanneret/photocap/internal/hw/camera"
	"github.com/cjeanneret/photocap/internal/storage"
)

type event int

const (
	evStart event = iota
	evSuccess
	evError
)

var errScripted = errors.New("scripted failure")

// Any interleaving of hardware callbacks settles the sink at most once,
// signals completion once and brings the in-flight counter back to zero.
func TestProperty_CallbackSequences(t *testing.T) {
	root := t.TempDir()
	clock := tickingClock()

	rapid.Check(t, func(rt *rapid.T) {
		script := rapid.SliceOfN(rapid.SampledFrom([]event{evStart, evSuccess, evError}), 0, 6).Draw(rt, "script")
		script = append(script, rapid.SampledFrom([]event{evSuccess, evError}).Draw(rt, "terminal"))
		early := rapid.Bool().Draw(rt, "resolveEarly")

		notif := &countingNotifier{}
		c, err := NewCoordinator(Options{Storage: storage.NewResolver(root), Notifier: notif, Now: clock})
		if err != nil {
			rt.Fatalf("NewCoordinator: %v", err)
		}
		defer c.Close()

		cam := &scriptedCamera{}
		p, err := c.Submit(Request{ResolveEarly: early}, photoSession(cam, false, 0))
		if err != nil {
			rt.Fatalf("Submit: %v", err)
		}
		if c.InFlight() != 1 {
			rt.Fatalf("InFlight after submit = %d", c.InFlight())
		}

		var frames []*camera.Frame
		cam.fire(func(cb camera.Callbacks) {
			for _, ev := range script {
				switch ev {
				case evStart:
					cb.OnCaptureStarted()
				case evSuccess:
					img, _ := (&camera.SyntheticSource{Width: 8, Height: 4}).Next()
					frames = append(frames, img.(*camera.Frame))
					cb.OnCaptureSuccess(img)
				case evError:
					cb.OnError(errScripted)
				}
			}
		})
		<-p.Finished()

		// Work out what the first terminal callback and any preceding start
		// should have produced.
		startedFirst, firstTerminal := false, evStart
		for _, ev := range script {
			if ev == evStart && firstTerminal == evStart {
				startedFirst = true
			}
			if ev != evStart && firstTerminal == evStart {
				firstTerminal = ev
			}
		}

		res, err := p.Wait(context.Background())
		switch {
		case early && startedFirst:
			if err != nil || res.Width != 0 {
				rt.Errorf("early resolve: %+v, %v", res, err)
			}
		case firstTerminal == evSuccess:
			if err != nil || res.Width != 8 || res.Height != 4 {
				rt.Errorf("success: %+v, %v", res, err)
			}
		default:
			if !errors.Is(err, errScripted) {
				rt.Errorf("error path: %v", err)
			}
		}

		wantState := StateFailed
		if firstTerminal == evSuccess {
			wantState = StateSucceeded
		}
		if p.State() != wantState {
			rt.Errorf("state = %s, want %s", p.State(), wantState)
		}

		_, statErr := os.Stat(p.OutputPath)
		if firstTerminal == evSuccess && statErr != nil {
			rt.Errorf("still missing after success: %v", statErr)
		}
		if firstTerminal == evError && !os.IsNotExist(statErr) {
			rt.Errorf("stub left after error: %v", statErr)
		}

		c.Close()
		if c.InFlight() != 0 {
			rt.Errorf("InFlight = %d, want 0", c.InFlight())
		}
		if notif.count() != 1 {
			rt.Errorf("notifications = %d, want 1", notif.count())
		}
		for i, f := range frames {
			if !f.Closed() {
				rt.Errorf("frame %d not released", i)
			}
		}
	})
}

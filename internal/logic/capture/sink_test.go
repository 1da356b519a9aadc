package capture

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func TestSink_FirstSettlementWins(t *testing.T) {
	s := NewSink()
	if !s.IsOpen() {
		t.Fatal("new sink should be open")
	}
	if !s.Resolve(Result{Path: "a.jpg"}) {
		t.Fatal("first Resolve refused")
	}
	if s.Resolve(Result{Path: "b.jpg"}) {
		t.Error("second Resolve accepted")
	}
	if s.Reject(errors.New("late")) {
		t.Error("Reject after Resolve accepted")
	}
	if s.Cancel() {
		t.Error("Cancel after Resolve accepted")
	}

	res, err := s.Wait(context.Background())
	if err != nil || res.Path != "a.jpg" {
		t.Errorf("outcome = %+v, %v", res, err)
	}
}

func TestSink_Reject(t *testing.T) {
	s := NewSink()
	busy := errors.New("device busy")
	s.Reject(busy)

	if _, err := s.Wait(context.Background()); !errors.Is(err, busy) {
		t.Errorf("err = %v, want %v", err, busy)
	}
	if s.Cancelled() {
		t.Error("rejected sink reported as cancelled")
	}
}

func TestSink_WaitDeadline(t *testing.T) {
	s := NewSink()
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	_, err := s.Wait(ctx)
	if !errors.Is(err, ErrCancelled) || !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("err = %v", err)
	}
	if !s.Cancelled() {
		t.Error("sink not cancelled after deadline")
	}
	if s.Resolve(Result{}) {
		t.Error("Resolve accepted after cancel")
	}
}

func TestSink_WaitReturnsResultThatRacedIn(t *testing.T) {
	s := NewSink()
	s.Resolve(Result{Path: "x.jpg"})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	// Both channels are ready; either branch must report the resolution.
	res, err := s.Wait(ctx)
	if err != nil || res.Path != "x.jpg" {
		t.Errorf("outcome = %+v, %v", res, err)
	}
}

func TestSink_ConcurrentSettlement(t *testing.T) {
	s := NewSink()
	var wins atomic.Int32
	var wg sync.WaitGroup
	for i := 0; i < 32; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			var ok bool
			switch i % 3 {
			case 0:
				ok = s.Resolve(Result{Width: i})
			case 1:
				ok = s.Reject(errors.New("x"))
			default:
				ok = s.Cancel()
			}
			if ok {
				wins.Add(1)
			}
		}(i)
	}
	wg.Wait()

	if wins.Load() != 1 {
		t.Errorf("settlements = %d, want 1", wins.Load())
	}
	select {
	case <-s.Done():
	default:
		t.Error("Done not closed")
	}
}

func TestPendingCapture_Transitions(t *testing.T) {
	p := newPendingCapture("id", "/tmp/x.jpg", time.UnixMilli(1700000000123), false, Request{}, Result{})
	if p.CapturedAtEpochMillis() != 1700000000123 {
		t.Errorf("millis = %d", p.CapturedAtEpochMillis())
	}

	if !p.advance(StateStarted) {
		t.Fatal("SUBMITTED -> STARTED refused")
	}
	if p.advance(StateStarted) {
		t.Error("STARTED -> STARTED accepted")
	}
	if !p.advance(StateSucceeded) {
		t.Fatal("STARTED -> SUCCEEDED refused")
	}
	for _, to := range []State{StateStarted, StateSucceeded, StateFailed} {
		if p.advance(to) {
			t.Errorf("SUCCEEDED -> %s accepted", to)
		}
	}
	if p.State() != StateSucceeded {
		t.Errorf("state = %s", p.State())
	}
}

func TestPendingCapture_StartAfterTerminalClaim(t *testing.T) {
	p := newPendingCapture("id", "/tmp/x.jpg", time.Now(), false, Request{}, Result{})
	if !p.claimTerminal() {
		t.Fatal("first claim refused")
	}
	if p.claimTerminal() {
		t.Error("second claim accepted")
	}
	if p.advance(StateStarted) {
		t.Error("start accepted after a terminal callback")
	}
	if !p.advance(StateFailed) {
		t.Error("SUBMITTED -> FAILED refused")
	}
}

func TestNormalizeOrientation(t *testing.T) {
	tests := []struct{ in, want int }{
		{0, 0}, {90, 90}, {180, 180}, {270, 270}, {360, 0},
		{-90, 270}, {44, 0}, {46, 90}, {315, 0}, {450, 90}, {-720, 0},
	}
	for _, tt := range tests {
		if got := NormalizeOrientation(tt.in); got != tt.want {
			t.Errorf("NormalizeOrientation(%d) = %d, want %d", tt.in, got, tt.want)
		}
	}
}

func TestParseFlashMode(t *testing.T) {
	for in, want := range map[string]string{"": "off", "OFF": "off", "on": "on", " Auto ": "auto"} {
		got, err := ParseFlashMode(in)
		if err != nil || got.String() != want {
			t.Errorf("ParseFlashMode(%q) = %s, %v", in, got, err)
		}
	}
	if _, err := ParseFlashMode("torch"); !errors.Is(err, ErrInvalidRequest) {
		t.Errorf("err = %v, want ErrInvalidRequest", err)
	}
}

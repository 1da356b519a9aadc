package audio

import (
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/cjeanneret/photocap/internal/debug"
)

// RingerMode mirrors the device's ringer switch.
type RingerMode int

const (
	RingerNormal RingerMode = iota
	RingerVibrate
	RingerSilent
)

func (m RingerMode) String() string {
	switch m {
	case RingerVibrate:
		return "vibrate"
	case RingerSilent:
		return "silent"
	default:
		return "normal"
	}
}

// ParseRingerMode accepts "normal", "vibrate" or "silent".
func ParseRingerMode(s string) (RingerMode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "normal":
		return RingerNormal, nil
	case "vibrate":
		return RingerVibrate, nil
	case "silent":
		return RingerSilent, nil
	default:
		return RingerNormal, fmt.Errorf("unknown ringer mode: %q", s)
	}
}

// Ringer reports the current ringer mode.
type Ringer interface {
	Mode() RingerMode
}

// StaticRinger is a Ringer whose mode is set by configuration or tests.
type StaticRinger struct {
	mu   sync.RWMutex
	mode RingerMode
}

func NewStaticRinger(mode RingerMode) *StaticRinger {
	return &StaticRinger{mode: mode}
}

func (r *StaticRinger) Mode() RingerMode {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.mode
}

func (r *StaticRinger) Set(mode RingerMode) {
	r.mu.Lock()
	r.mode = mode
	r.mu.Unlock()
}

// IsSilent is true for every mode except RingerNormal.
func IsSilent(r Ringer) bool {
	return r != nil && r.Mode() != RingerNormal
}

// Player plays the shutter click.
type Player interface {
	// Load prepares the sound so Play has no start-up latency.
	Load() error
	Play() error
}

// NopPlayer never makes a sound.
type NopPlayer struct{}

func (NopPlayer) Load() error { return nil }
func (NopPlayer) Play() error { return nil }

// BellPlayer rings the terminal bell on w.
type BellPlayer struct {
	mu sync.Mutex
	w  io.Writer
}

func NewBellPlayer(w io.Writer) *BellPlayer {
	return &BellPlayer{w: w}
}

func (b *BellPlayer) Load() error { return nil }

func (b *BellPlayer) Play() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	debug.Verbose("Shutter sound")
	_, err := b.w.Write([]byte("\a"))
	return err
}

// NewPlayer selects a Player by name: "none" or "bell".
func NewPlayer(name string, w io.Writer) (Player, error) {
	switch name {
	case "", "none":
		return NopPlayer{}, nil
	case "bell":
		return NewBellPlayer(w), nil
	default:
		return nil, fmt.Errorf("unsupported shutter sound: %s", name)
	}
}

package config

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// MaxConfigFileBytes caps the size of a config file read by Load.
const MaxConfigFileBytes = 1 << 20

// Environment variables that override file values.
const (
	EnvStorageRoot = "PHOTOCAP_STORAGE_ROOT"
	EnvDebugLevel  = "PHOTOCAP_DEBUG_LEVEL"
)

// Camera types understood by the command wiring.
const (
	CameraSimulated    = "simulated"
	CameraNikonD90GPIO = "nikon_d90_gpio"
)

// CameraConfig describes how to communicate with the camera.
// Type selects a concrete implementation ("simulated" or "nikon_d90_gpio").
type CameraConfig struct {
	Type           string `yaml:"type"`
	FocusPin       int    `yaml:"focus_pin"`        // GPIO pin for FOCUS line
	ShutterPin     int    `yaml:"shutter_pin"`      // GPIO pin for SHUTTER line
	FocusDelayMs   int    `yaml:"focus_delay_ms"`   // autofocus delay (ms)
	ShutterDelayMs int    `yaml:"shutter_delay_ms"` // shutter hold time (ms)
	HasFlash       bool   `yaml:"has_flash"`
	WidthPx        int    `yaml:"width_px"`
	HeightPx       int    `yaml:"height_px"`
	// SensorRotationDeg is the clockwise rotation the sensor reports for
	// every frame.
	SensorRotationDeg int `yaml:"sensor_rotation_deg"`
	// ExifOrientationUnreliable marks devices whose firmware writes a wrong
	// orientation tag.
	ExifOrientationUnreliable bool `yaml:"exif_orientation_unreliable"`
	// StartSignal is nil when unset, meaning the backend reports capture start.
	StartSignal *bool `yaml:"start_signal,omitempty"`
}

// PhotoConfig is the still-capture output of the session.
type PhotoConfig struct {
	Enabled           *bool `yaml:"enabled,omitempty"` // default true
	Mirrored          bool  `yaml:"mirrored"`
	TargetRotationDeg int   `yaml:"target_rotation_deg"`
}

// StorageConfig locates the output album.
type StorageConfig struct {
	Root         string `yaml:"root"`
	Album        string `yaml:"album"`
	GalleryIndex bool   `yaml:"gallery_index"`
}

// CaptureConfig holds request defaults and coordinator policy.
type CaptureConfig struct {
	Flash              string `yaml:"flash"` // off, on, auto
	EnableShutterSound bool   `yaml:"enable_shutter_sound"`
	ResolveEarly       bool   `yaml:"resolve_early"`
	PersistErrors      string `yaml:"persist_errors"` // log, surface
	TimeoutMs          int    `yaml:"timeout_ms"`
}

// DeviceConfig describes the host device's audio state.
type DeviceConfig struct {
	RingerMode   string `yaml:"ringer_mode"`   // normal, vibrate, silent
	ShutterSound string `yaml:"shutter_sound"` // none, bell
}

// DefaultsConfig contains generic parameters.
type DefaultsConfig struct {
	DebugLevel int  `yaml:"debug_level"` // debug level 0-4 (0=off, 1=info, 2=live, 3=verbose, 4=trace)
	MockGPIO   bool `yaml:"mock_gpio"`   // use mock GPIO (true=dev/test, false=real Raspberry Pi)
}

// Config aggregates all application configuration.
type Config struct {
	Camera   CameraConfig   `yaml:"camera"`
	Photo    PhotoConfig    `yaml:"photo"`
	Storage  StorageConfig  `yaml:"storage"`
	Capture  CaptureConfig  `yaml:"capture"`
	Device   DeviceConfig   `yaml:"device"`
	Defaults DefaultsConfig `yaml:"defaults"`
}

// ValidateConfigPath accepts only .yaml files that live directly in a
// directory named "configs".
func ValidateConfigPath(path string) error {
	if path == "" {
		return errors.New("config path is empty")
	}
	clean := filepath.Clean(path)
	if filepath.Ext(clean) != ".yaml" {
		return fmt.Errorf("config file must have a .yaml extension: %s", path)
	}
	abs, err := filepath.Abs(clean)
	if err != nil {
		return fmt.Errorf("resolve config path: %w", err)
	}
	if filepath.Base(filepath.Dir(abs)) != "configs" {
		return fmt.Errorf("config file must be in a configs/ directory: %s", path)
	}
	if strings.Contains(filepath.ToSlash(path), "../") {
		return fmt.Errorf("config path must not traverse directories: %s", path)
	}
	return nil
}

// LoadDotEnv loads .env files into the process environment. Missing files
// are skipped; variables already set are left alone.
func LoadDotEnv(paths ...string) error {
	if len(paths) == 0 {
		paths = []string{".env"}
	}
	for _, p := range paths {
		if err := godotenv.Load(p); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("load %s: %w", p, err)
		}
	}
	return nil
}

// Load reads a YAML file and returns the configuration.
func Load(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}
	defer f.Close()

	data, err := io.ReadAll(io.LimitReader(f, MaxConfigFileBytes+1))
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}
	if len(data) > MaxConfigFileBytes {
		return nil, fmt.Errorf("config file exceeds %d bytes", MaxConfigFileBytes)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("unmarshal yaml: %w", err)
	}
	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	if err := cfg.normalize(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) applyEnv() error {
	if v := os.Getenv(EnvStorageRoot); v != "" {
		c.Storage.Root = v
	}
	if v := os.Getenv(EnvDebugLevel); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%s must be an integer, got %q", EnvDebugLevel, v)
		}
		c.Defaults.DebugLevel = n
	}
	return nil
}

// normalize fills defaults and validates enums and ranges.
func (c *Config) normalize() error {
	if c.Camera.Type == "" {
		c.Camera.Type = CameraSimulated
	}
	switch c.Camera.Type {
	case CameraSimulated:
	case CameraNikonD90GPIO:
		if c.Camera.FocusPin <= 0 || c.Camera.ShutterPin <= 0 {
			return fmt.Errorf("camera.focus_pin and camera.shutter_pin are required for %s", CameraNikonD90GPIO)
		}
		if c.Camera.FocusPin == c.Camera.ShutterPin {
			return fmt.Errorf("camera.focus_pin and camera.shutter_pin must differ, both are %d", c.Camera.FocusPin)
		}
	default:
		return fmt.Errorf("unknown camera.type %q", c.Camera.Type)
	}
	if c.Camera.FocusDelayMs <= 0 {
		c.Camera.FocusDelayMs = 500 // 500ms for autofocus
	}
	if c.Camera.ShutterDelayMs <= 0 {
		c.Camera.ShutterDelayMs = 200 // 200ms shutter hold
	}
	if c.Camera.WidthPx <= 0 {
		c.Camera.WidthPx = 640
	}
	if c.Camera.HeightPx <= 0 {
		c.Camera.HeightPx = 480
	}
	if c.Camera.SensorRotationDeg%90 != 0 {
		return fmt.Errorf("camera.sensor_rotation_deg must be a multiple of 90, got %d", c.Camera.SensorRotationDeg)
	}

	if c.Storage.Root == "" {
		c.Storage.Root = "./Pictures"
	}
	if c.Storage.Album == "" {
		c.Storage.Album = "Light"
	}
	if strings.ContainsAny(c.Storage.Album, `/\`) || c.Storage.Album == "." || c.Storage.Album == ".." {
		return fmt.Errorf("storage.album must be a plain directory name, got %q", c.Storage.Album)
	}

	c.Capture.Flash = strings.ToLower(c.Capture.Flash)
	switch c.Capture.Flash {
	case "":
		c.Capture.Flash = "off"
	case "off", "on", "auto":
	default:
		return fmt.Errorf("capture.flash must be off, on or auto, got %q", c.Capture.Flash)
	}
	switch c.Capture.PersistErrors {
	case "":
		c.Capture.PersistErrors = "log"
	case "log", "surface":
	default:
		return fmt.Errorf("capture.persist_errors must be log or surface, got %q", c.Capture.PersistErrors)
	}
	if c.Capture.TimeoutMs < 0 {
		return fmt.Errorf("capture.timeout_ms must be >= 0, got %d", c.Capture.TimeoutMs)
	}
	if c.Capture.TimeoutMs == 0 {
		c.Capture.TimeoutMs = 10000
	}

	switch c.Device.RingerMode {
	case "":
		c.Device.RingerMode = "normal"
	case "normal", "vibrate", "silent":
	default:
		return fmt.Errorf("device.ringer_mode must be normal, vibrate or silent, got %q", c.Device.RingerMode)
	}
	switch c.Device.ShutterSound {
	case "":
		c.Device.ShutterSound = "none"
	case "none", "bell":
	default:
		return fmt.Errorf("device.shutter_sound must be none or bell, got %q", c.Device.ShutterSound)
	}

	if c.Defaults.DebugLevel < 0 || c.Defaults.DebugLevel > 4 {
		return fmt.Errorf("defaults.debug_level must be between 0 and 4, got %d", c.Defaults.DebugLevel)
	}
	return nil
}

// PhotoEnabled reports whether the photo output is active. Default true.
func (c *Config) PhotoEnabled() bool {
	return c.Photo.Enabled == nil || *c.Photo.Enabled
}

// HasStartSignal reports whether the backend reports capture start. Default true.
func (c *Config) HasStartSignal() bool {
	return c.Camera.StartSignal == nil || *c.Camera.StartSignal
}

// FocusDelay returns the autofocus delay duration.
func (c *Config) FocusDelay() time.Duration {
	return time.Duration(c.Camera.FocusDelayMs) * time.Millisecond
}

// ShutterDelay returns the shutter hold duration.
func (c *Config) ShutterDelay() time.Duration {
	return time.Duration(c.Camera.ShutterDelayMs) * time.Millisecond
}

// CaptureTimeout bounds how long a caller waits for one capture.
func (c *Config) CaptureTimeout() time.Duration {
	return time.Duration(c.Capture.TimeoutMs) * time.Millisecond
}

// AlbumDir is the directory stills are written to.
func (c *Config) AlbumDir() string {
	return filepath.Join(c.Storage.Root, c.Storage.Album)
}

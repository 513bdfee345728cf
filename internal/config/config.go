// Package config loads and saves the settings a CLI front-end reads before
// it opens a window: window scale, key bindings, audio sample rate, and the
// last ROM path the user opened.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// Config holds the settings cmd/emnes persists between runs.
type Config struct {
	Window  WindowConfig `json:"window"`
	Audio   AudioConfig  `json:"audio"`
	Input   InputConfig  `json:"input"`
	LastROM string       `json:"last_rom"`

	path   string
	loaded bool
}

// WindowConfig contains window-related settings.
type WindowConfig struct {
	Scale      int  `json:"scale"` // NES resolution multiplier
	Fullscreen bool `json:"fullscreen"`
}

// AudioConfig contains audio settings.
type AudioConfig struct {
	SampleRate int `json:"sample_rate"`
}

// InputConfig contains keyboard bindings for both controller ports.
type InputConfig struct {
	Player1Keys KeyMapping `json:"player1_keys"`
	Player2Keys KeyMapping `json:"player2_keys"`
}

// KeyMapping names the keyboard key bound to each NES controller button.
type KeyMapping struct {
	Up     string `json:"up"`
	Down   string `json:"down"`
	Left   string `json:"left"`
	Right  string `json:"right"`
	A      string `json:"a"`
	B      string `json:"b"`
	Start  string `json:"start"`
	Select string `json:"select"`
}

// New returns the default configuration: 2x window scale, 44.1kHz audio,
// WASD/JK bindings for player 1 (the keys the graphics backend's hardcoded
// key map gives player 1) and arrow-keys/NM bindings for player 2. The
// graphics backend does not read these bindings; its hardcoded map puts
// player 2 on number keys 1-8.
func New() *Config {
	return &Config{
		Window: WindowConfig{
			Scale:      2,
			Fullscreen: false,
		},
		Audio: AudioConfig{
			SampleRate: 44100,
		},
		Input: InputConfig{
			Player1Keys: KeyMapping{
				Up: "W", Down: "S", Left: "A", Right: "D",
				A: "J", B: "K", Start: "Return", Select: "Space",
			},
			Player2Keys: KeyMapping{
				Up: "Up", Down: "Down", Left: "Left", Right: "Right",
				A: "N", B: "M", Start: "RShift", Select: "RCtrl",
			},
		},
	}
}

// Load reads path as JSON into a new Config. A missing file is not an
// error: Load writes the defaults to path and returns them, the same
// first-run behavior the donor's app config used.
func Load(path string) (*Config, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		c := New()
		c.path = path
		if err := c.Save(); err != nil {
			return nil, err
		}
		return c, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}

	c := New()
	if err := json.Unmarshal(data, c); err != nil {
		return nil, fmt.Errorf("config: parse %s: %w", path, err)
	}
	c.validate()
	c.path = path
	c.loaded = true
	return c, nil
}

// validate clamps out-of-range values rather than rejecting the whole file
// over one bad field: a non-positive scale becomes 1 and a non-positive
// sample rate becomes 44100.
func (c *Config) validate() {
	if c.Window.Scale <= 0 {
		c.Window.Scale = 1
	}
	if c.Audio.SampleRate <= 0 {
		c.Audio.SampleRate = 44100
	}
}

// Save writes c as indented JSON to its own path, creating the parent
// directory if needed.
func (c *Config) Save() error {
	if c.path == "" {
		return fmt.Errorf("config: no path set")
	}
	if dir := filepath.Dir(c.path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("config: create %s: %w", dir, err)
		}
	}
	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return fmt.Errorf("config: marshal: %w", err)
	}
	if err := os.WriteFile(c.path, data, 0644); err != nil {
		return fmt.Errorf("config: write %s: %w", c.path, err)
	}
	return nil
}

// SaveAs saves c to a new path and remembers it for subsequent Save calls.
func (c *Config) SaveAs(path string) error {
	c.path = path
	return c.Save()
}

// WindowResolution returns the window size in pixels for the configured
// scale, applied to the native 256x240 NES frame.
func (c *Config) WindowResolution() (width, height int) {
	return 256 * c.Window.Scale, 240 * c.Window.Scale
}

// IsLoaded reports whether this Config came from an existing file rather
// than falling back to defaults.
func (c *Config) IsLoaded() bool { return c.loaded }

// Path returns the file path this Config was loaded from or saved to.
func (c *Config) Path() string { return c.path }

// DefaultPath returns the conventional config file location relative to
// the working directory cmd/emnes is run from.
func DefaultPath() string {
	return filepath.Join("config", "emnes.json")
}

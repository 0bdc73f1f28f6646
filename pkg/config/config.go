// Package config loads the radarctl client configuration from a TOML
// file, with defaults for every field and validation before use.
// Command-line flags override file values.
package config

import (
	"fmt"
	"os"

	toml "github.com/pelletier/go-toml/v2"

	"radarlink/pkg/navigation"
)

// Config is the full client configuration.
type Config struct {
	Radar    RadarConfig    `toml:"radar"`
	Log      LogConfig      `toml:"log"`
	Playback PlaybackConfig `toml:"playback"`
	CFAR     CFARConfig     `toml:"cfar"`
	Buffer   BufferConfig   `toml:"buffer"`
	Bridges  BridgesConfig  `toml:"bridges"`
}

type RadarConfig struct {
	IPAddress string `toml:"ipaddress"`
	Port      uint16 `toml:"port"`
}

type LogConfig struct {
	Level string `toml:"level"`
}

type PlaybackConfig struct {
	File string `toml:"file"`
	Mode string `toml:"mode"` // real_time | as_fast_as_possible
}

type CFARConfig struct {
	WindowSize int     `toml:"window_size"`
	GuardCells int     `toml:"guard_cells"`
	Threshold  float64 `toml:"threshold"`
	MinBin     int     `toml:"min_bin"`
	MaxPeaks   int     `toml:"max_peaks"`
	Mode       string  `toml:"mode"`      // curve_fit | centre_of_mass | centre_of_mass_2d
	PeakMode   string  `toml:"peak_mode"` // max | first
}

type BufferConfig struct {
	Mode    string `toml:"mode"` // off | average | max
	Samples int    `toml:"samples"`
}

type BridgesConfig struct {
	Websocket WebsocketConfig `toml:"websocket"`
	NATS      NATSConfig      `toml:"nats"`
}

type WebsocketConfig struct {
	Enabled bool   `toml:"enabled"`
	Addr    string `toml:"addr"`
}

type NATSConfig struct {
	Enabled bool   `toml:"enabled"`
	URL     string `toml:"url"`
	Subject string `toml:"subject"`
}

// Default returns the configuration used when no file exists.
func Default() Config {
	return Config{
		Radar: RadarConfig{
			IPAddress: "127.0.0.1",
			Port:      6317,
		},
		Log: LogConfig{Level: "info"},
		Playback: PlaybackConfig{
			Mode: "real_time",
		},
		CFAR: CFARConfig{
			WindowSize: 11,
			GuardCells: 2,
			Threshold:  30.0,
			MinBin:     50,
			MaxPeaks:   5,
			Mode:       "curve_fit",
			PeakMode:   "max",
		},
		Buffer: BufferConfig{Mode: "off", Samples: 2},
		Bridges: BridgesConfig{
			Websocket: WebsocketConfig{Addr: "127.0.0.1:8765"},
			NATS: NATSConfig{
				URL:     "nats://127.0.0.1:4222",
				Subject: "radar.targets",
			},
		},
	}
}

// LoadOrDefault reads path when it exists, otherwise returns the
// defaults. The second result reports whether a file was found.
func LoadOrDefault(path string) (Config, bool, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, false, nil
		}
		return Config{}, false, fmt.Errorf("read config: %w", err)
	}
	if err := toml.Unmarshal(data, &cfg); err != nil {
		return Config{}, true, fmt.Errorf("parse config: %w", err)
	}
	cfg.normalize()
	if err := cfg.Validate(); err != nil {
		return Config{}, true, err
	}
	return cfg, true, nil
}

func (cfg *Config) normalize() {
	def := Default()
	if cfg.Radar.IPAddress == "" {
		cfg.Radar.IPAddress = def.Radar.IPAddress
	}
	if cfg.Radar.Port == 0 {
		cfg.Radar.Port = def.Radar.Port
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = def.Log.Level
	}
	if cfg.Playback.Mode == "" {
		cfg.Playback.Mode = def.Playback.Mode
	}
	if cfg.CFAR.WindowSize <= 0 {
		cfg.CFAR.WindowSize = def.CFAR.WindowSize
	}
	if cfg.CFAR.MaxPeaks <= 0 {
		cfg.CFAR.MaxPeaks = def.CFAR.MaxPeaks
	}
	if cfg.CFAR.Mode == "" {
		cfg.CFAR.Mode = def.CFAR.Mode
	}
	if cfg.CFAR.PeakMode == "" {
		cfg.CFAR.PeakMode = def.CFAR.PeakMode
	}
	if cfg.Buffer.Mode == "" {
		cfg.Buffer.Mode = def.Buffer.Mode
	}
	if cfg.Buffer.Samples <= 0 {
		cfg.Buffer.Samples = def.Buffer.Samples
	}
	if cfg.Bridges.Websocket.Addr == "" {
		cfg.Bridges.Websocket.Addr = def.Bridges.Websocket.Addr
	}
	if cfg.Bridges.NATS.URL == "" {
		cfg.Bridges.NATS.URL = def.Bridges.NATS.URL
	}
	if cfg.Bridges.NATS.Subject == "" {
		cfg.Bridges.NATS.Subject = def.Bridges.NATS.Subject
	}
}

// Validate rejects contradictory settings before any component is
// built from them.
func (cfg *Config) Validate() error {
	switch cfg.Playback.Mode {
	case "real_time", "as_fast_as_possible":
	default:
		return fmt.Errorf("playback.mode %q is not real_time or as_fast_as_possible", cfg.Playback.Mode)
	}
	if _, err := cfg.SubresolutionMode(); err != nil {
		return err
	}
	if _, err := cfg.PeakMode(); err != nil {
		return err
	}
	if _, err := cfg.BufferMode(); err != nil {
		return err
	}
	if cfg.CFAR.GuardCells < 0 {
		return fmt.Errorf("cfar.guard_cells must not be negative")
	}
	if cfg.CFAR.MinBin < 0 {
		return fmt.Errorf("cfar.min_bin must not be negative")
	}
	return nil
}

// Window builds the CFAR window the configuration describes.
func (cfg *Config) Window() navigation.Window {
	return navigation.NewWindow(cfg.CFAR.WindowSize, cfg.CFAR.GuardCells, cfg.CFAR.Threshold)
}

// SubresolutionMode parses cfar.mode.
func (cfg *Config) SubresolutionMode() (navigation.SubresolutionMode, error) {
	switch cfg.CFAR.Mode {
	case "curve_fit":
		return navigation.CurveFit, nil
	case "centre_of_mass":
		return navigation.CentreOfMass, nil
	case "centre_of_mass_2d":
		return navigation.CentreOfMass2D, nil
	default:
		return 0, fmt.Errorf("cfar.mode %q is unknown", cfg.CFAR.Mode)
	}
}

// PeakMode parses cfar.peak_mode.
func (cfg *Config) PeakMode() (navigation.PeakMode, error) {
	switch cfg.CFAR.PeakMode {
	case "max":
		return navigation.PeakMax, nil
	case "first":
		return navigation.PeakFirst, nil
	default:
		return 0, fmt.Errorf("cfar.peak_mode %q is unknown", cfg.CFAR.PeakMode)
	}
}

// BufferMode parses buffer.mode.
func (cfg *Config) BufferMode() (navigation.BufferMode, error) {
	switch cfg.Buffer.Mode {
	case "off":
		return navigation.BufferOff, nil
	case "average":
		return navigation.BufferAverage, nil
	case "max":
		return navigation.BufferMax, nil
	default:
		return 0, fmt.Errorf("buffer.mode %q is unknown", cfg.Buffer.Mode)
	}
}

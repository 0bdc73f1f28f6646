package main

import (
	"fmt"
	"math"
	"os"

	"gopkg.in/yaml.v3"

	"radarlink/pkg/units"
)

// Scenario describes the radar a mock serves and the synthetic
// returns it paints into every rotation.
type Scenario struct {
	Radar struct {
		AzimuthSamples  uint16 `yaml:"azimuth_samples"`
		EncoderSize     uint16 `yaml:"encoder_size"`
		BinSizeTenthsMM uint32 `yaml:"bin_size_tenths_mm"`
		RangeInBins     uint16 `yaml:"range_in_bins"`
		RotationHz      int    `yaml:"rotation_hz"`
		PacketRate      uint16 `yaml:"packet_rate"`
	} `yaml:"radar"`
	NoiseDB float64          `yaml:"noise_db"`
	Targets []ScenarioTarget `yaml:"targets"`
}

// ScenarioTarget is one painted return.
type ScenarioTarget struct {
	BearingDeg float64 `yaml:"bearing_deg"`
	RangeM     float64 `yaml:"range_m"`
	PowerDB    float64 `yaml:"power_db"`
	WidthBins  int     `yaml:"width_bins"`
}

// DefaultScenario matches the geometry of a mid-range radar.
func DefaultScenario() Scenario {
	var s Scenario
	s.Radar.AzimuthSamples = 400
	s.Radar.EncoderSize = 5600
	s.Radar.BinSizeTenthsMM = 1752
	s.Radar.RangeInBins = 2856
	s.Radar.RotationHz = 4
	s.Radar.PacketRate = 1600
	s.NoiseDB = 10
	s.Targets = []ScenarioTarget{
		{BearingDeg: 45, RangeM: 100, PowerDB: 80, WidthBins: 3},
		{BearingDeg: 220, RangeM: 250, PowerDB: 70, WidthBins: 5},
	}
	return s
}

// LoadScenario reads a YAML scenario file.
func LoadScenario(path string) (Scenario, error) {
	s := DefaultScenario()
	data, err := os.ReadFile(path)
	if err != nil {
		return Scenario{}, fmt.Errorf("read scenario: %w", err)
	}
	if err := yaml.Unmarshal(data, &s); err != nil {
		return Scenario{}, fmt.Errorf("parse scenario: %w", err)
	}
	if err := s.Validate(); err != nil {
		return Scenario{}, err
	}
	return s, nil
}

func (s Scenario) Validate() error {
	if s.Radar.AzimuthSamples == 0 || s.Radar.RangeInBins == 0 {
		return fmt.Errorf("scenario: azimuth_samples and range_in_bins are required")
	}
	if s.Radar.RotationHz <= 0 {
		return fmt.Errorf("scenario: rotation_hz must be positive")
	}
	for _, t := range s.Targets {
		if t.BearingDeg < 0 || t.BearingDeg >= 360 {
			return fmt.Errorf("scenario: bearing %.1f outside [0, 360)", t.BearingDeg)
		}
		if t.RangeM < 0 {
			return fmt.Errorf("scenario: negative range %.1f", t.RangeM)
		}
	}
	return nil
}

// binSize returns metres per bin.
func (s Scenario) binSize() units.Metre {
	return units.Metre(s.Radar.BinSizeTenthsMM) / 10000.0
}

// Spoke paints the 8-bit cells for one azimuth: flat noise plus a
// triangular bump per target whose bearing falls on this azimuth.
func (s Scenario) Spoke(azimuth int) []uint8 {
	cells := make([]uint8, s.Radar.RangeInBins)
	noise := units.FFT8FromDB(s.NoiseDB)
	for i := range cells {
		cells[i] = noise
	}

	degPerAzimuth := 360.0 / float64(s.Radar.AzimuthSamples)
	binSize := s.binSize()
	for _, t := range s.Targets {
		targetAzimuth := int(math.Round(t.BearingDeg / degPerAzimuth))
		if targetAzimuth != azimuth {
			continue
		}
		centre := int(math.Round(t.RangeM / binSize))
		width := t.WidthBins
		if width < 1 {
			width = 1
		}
		for offset := -width / 2; offset <= width/2; offset++ {
			bin := centre + offset
			if bin < 0 || bin >= len(cells) {
				continue
			}
			falloff := float64(abs(offset)) * 6.0
			power := t.PowerDB - falloff
			if power < s.NoiseDB {
				power = s.NoiseDB
			}
			cells[bin] = units.FFT8FromDB(power)
		}
	}
	return cells
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}

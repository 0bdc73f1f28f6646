package config

import (
	"os"
	"path/filepath"
	"testing"

	"radarlink/pkg/navigation"
)

func TestMissingFileYieldsDefaults(t *testing.T) {
	cfg, exists, err := LoadOrDefault(filepath.Join(t.TempDir(), "absent.toml"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if exists {
		t.Fatalf("missing file reported as existing")
	}
	if cfg.Radar.IPAddress != "127.0.0.1" || cfg.Radar.Port != 6317 {
		t.Fatalf("defaults %+v", cfg.Radar)
	}
	if cfg.CFAR.WindowSize != 11 || cfg.CFAR.GuardCells != 2 {
		t.Fatalf("cfar defaults %+v", cfg.CFAR)
	}
}

func TestLoadOverridesAndNormalises(t *testing.T) {
	path := filepath.Join(t.TempDir(), "radar.toml")
	content := `
[radar]
ipaddress = "192.168.2.10"

[cfar]
threshold = 45.0
mode = "centre_of_mass"
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}

	cfg, exists, err := LoadOrDefault(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if !exists {
		t.Fatalf("existing file reported missing")
	}
	if cfg.Radar.IPAddress != "192.168.2.10" {
		t.Fatalf("ipaddress %q", cfg.Radar.IPAddress)
	}
	// Unset fields fall back to defaults.
	if cfg.Radar.Port != 6317 || cfg.CFAR.WindowSize != 11 {
		t.Fatalf("normalised config %+v", cfg)
	}
	mode, err := cfg.SubresolutionMode()
	if err != nil || mode != navigation.CentreOfMass {
		t.Fatalf("mode %v err %v", mode, err)
	}
}

func TestValidateRejectsUnknownModes(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.toml")
	content := `
[cfar]
mode = "parabolic"
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}

	if _, _, err := LoadOrDefault(path); err == nil {
		t.Fatalf("unknown cfar mode accepted")
	}
}

func TestWindowReflectsSettings(t *testing.T) {
	cfg := Default()
	cfg.CFAR.WindowSize = 10 // even: must be bumped
	w := cfg.Window()
	if w.Size != 11 || w.GuardCells != 2 {
		t.Fatalf("window %+v", w)
	}
}

package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"satarecon/internal/common"
)

func TestDefaults(t *testing.T) {
	want := Config{ReorderWindowDepth: 20, NCQSlotCount: 32, SectorSize: 512, DataCRCLength: 4}
	if diff := cmp.Diff(want, NewConfig()); diff != "" {
		t.Errorf("defaults mismatch (-want +got):\n%s", diff)
	}
	if err := NewConfig().Validate(); err != nil {
		t.Errorf("defaults do not validate: %v", err)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		modify func(*Config)
	}{
		{"zero window", func(c *Config) { c.ReorderWindowDepth = 0 }},
		{"16 slots", func(c *Config) { c.NCQSlotCount = 16 }},
		{"odd sector", func(c *Config) { c.SectorSize = 520 }},
		{"negative crc", func(c *Config) { c.DataCRCLength = -1 }},
		{"sector too large", func(c *Config) { c.SectorSize = 65536 }},
		{"negative sync grace", func(c *Config) { c.ReorderSyncGrace = -1 }},
		{"sync grace beyond window", func(c *Config) { c.ReorderSyncGrace = c.ReorderWindowDepth + 1 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := NewConfig()
			tt.modify(&cfg)
			if err := cfg.Validate(); !errors.Is(err, common.ErrInvalidParamVal) {
				t.Errorf("Validate() = %v, want invalid param", err)
			}
		})
	}
}

func TestLoad(t *testing.T) {
	text := `
; capture engine settings
[Reorder]
window_depth = 64   ; deep window for lossy links
sync_grace = 4

[engine]
sector_size = 4096
data_crc_bytes=0
ncq_slots = 32
`
	cfg, err := Load(strings.NewReader(text))
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	want := Config{ReorderWindowDepth: 64, ReorderSyncGrace: 4, NCQSlotCount: 32, SectorSize: 4096, DataCRCLength: 0}
	if diff := cmp.Diff(want, cfg); diff != "" {
		t.Errorf("loaded config mismatch (-want +got):\n%s", diff)
	}
}

func TestLoadErrors(t *testing.T) {
	tests := []struct {
		name string
		text string
	}{
		{"not a number", "[reorder]\nwindow_depth = lots\n"},
		{"bad sector", "[engine]\nsector_size = -1\n"},
		{"slot count", "[engine]\nncq_slots = 8\n"},
		{"huge sector", "[engine]\nsector_size = 131072\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := Load(strings.NewReader(tt.text)); !errors.Is(err, common.ErrInvalidParamVal) {
				t.Errorf("Load() error = %v, want invalid param", err)
			}
		})
	}
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "satarecon.ini")
	if err := os.WriteFile(path, []byte("[reorder]\nwindow_depth = 8\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	cfg, err := LoadFile(path)
	if err != nil {
		t.Fatalf("LoadFile failed: %v", err)
	}
	if cfg.ReorderWindowDepth != 8 {
		t.Errorf("window depth = %d, want 8", cfg.ReorderWindowDepth)
	}

	if _, err := LoadFile(filepath.Join(t.TempDir(), "missing.ini")); err == nil {
		t.Error("expected error for missing file")
	}
}

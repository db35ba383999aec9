package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(body), 0644); err != nil {
		t.Fatalf("writing config: %v", err)
	}
	return path
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load defaults: %v", err)
	}

	if cfg.Engine.MinDistance != 80 {
		t.Errorf("min_distance = %g, want 80", cfg.Engine.MinDistance)
	}
	if !cfg.Engine.LimitConnections || cfg.Engine.MaxConnections != 20 {
		t.Errorf("cap = %v/%d, want true/20", cfg.Engine.LimitConnections, cfg.Engine.MaxConnections)
	}
	if cfg.Field.Layout != LayoutTowers {
		t.Errorf("layout = %q, want %q", cfg.Field.Layout, LayoutTowers)
	}
	if cfg.Derived.ScreenW32 != float32(cfg.Screen.Width) {
		t.Errorf("ScreenW32 = %g, want %d", cfg.Derived.ScreenW32, cfg.Screen.Width)
	}

	r, g, b := cfg.Derived.Palette.Points.RGB255()
	if r != 0xff || g != 0x09 || b != 0xe6 {
		t.Errorf("points color = %02x%02x%02x, want ff09e6", r, g, b)
	}
}

func TestLoadMergesUserFile(t *testing.T) {
	path := writeConfig(t, `
engine:
  min_distance: 120
field:
  layout: anchors
  anchors:
    - pos: {x: 10, y: 0, z: 0}
      label: solo
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.Engine.MinDistance != 120 {
		t.Errorf("min_distance = %g, want 120", cfg.Engine.MinDistance)
	}
	// Untouched keys keep their defaults.
	if cfg.Engine.MaxConnections != 20 {
		t.Errorf("max_connections = %d, want default 20", cfg.Engine.MaxConnections)
	}
	if len(cfg.Field.Anchors) != 1 || cfg.Field.Anchors[0].Label != "solo" {
		t.Errorf("anchors = %+v, want one labelled anchor", cfg.Field.Anchors)
	}
	if got := cfg.Field.Anchors[0].Pos.R3(); got.X != 10 {
		t.Errorf("anchor x = %g, want 10", got.X)
	}
}

func TestLoadRejectsInvalid(t *testing.T) {
	tests := []struct {
		name string
		body string
		want string
	}{
		{"unknown layout", "field: {layout: spiral}", "unknown layout"},
		{"zero particles", "field: {particles: 0}", "field.particles"},
		{"flat region", "field: {half_extent: {x: 40, y: 0, z: 40}}", "field.half_extent"},
		{"negative speed", "field: {speed: -1}", "field.speed"},
		{"negative cap", "engine: {max_connections: -1}", "engine.max_connections"},
		{"opacity range", "engine: {line_opacity: 1.5}", "engine.line_opacity"},
		{"negative link threshold", "engine: {link_threshold: -3}", "engine.link_threshold"},
		{"empty grid axis", "field: {layout: grid, grid: {x: []}}", "field.grid"},
		{"bad color", "palette: {links: \"#zzzzzz\"}", "palette.links"},
		{"bad camera", "camera: {min_distance: 500, max_distance: 100}", "camera"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeConfig(t, tt.body))
			if err == nil {
				t.Fatal("expected error")
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Errorf("error %q does not mention %q", err, tt.want)
			}
		})
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("expected error for missing file")
	}
}

func TestPresetsLoad(t *testing.T) {
	paths, err := filepath.Glob(filepath.Join("..", "configs", "*.yaml"))
	if err != nil {
		t.Fatal(err)
	}
	if len(paths) == 0 {
		t.Skip("no presets found")
	}
	for _, path := range paths {
		t.Run(filepath.Base(path), func(t *testing.T) {
			if _, err := Load(path); err != nil {
				t.Errorf("Load(%s): %v", path, err)
			}
		})
	}
}

func TestWriteYAMLRoundTrip(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatal(err)
	}
	cfg.Engine.MinDistance = 42

	path := filepath.Join(t.TempDir(), "out.yaml")
	if err := cfg.WriteYAML(path); err != nil {
		t.Fatalf("WriteYAML: %v", err)
	}

	back, err := Load(path)
	if err != nil {
		t.Fatalf("Load written file: %v", err)
	}
	if back.Engine.MinDistance != 42 {
		t.Errorf("min_distance = %g, want 42", back.Engine.MinDistance)
	}
}

func TestCfgBeforeInitPanics(t *testing.T) {
	saved := global
	global = nil
	defer func() { global = saved }()

	defer func() {
		if recover() == nil {
			t.Error("expected panic")
		}
	}()
	Cfg()
}

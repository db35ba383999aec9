// Package config provides configuration loading and access for the engine and viewer.
package config

import (
	_ "embed"
	"errors"
	"fmt"
	"math"
	"os"

	"github.com/lucasb-eyer/go-colorful"
	"gonum.org/v1/gonum/spatial/r3"
	"gopkg.in/yaml.v3"
)

//go:embed defaults.yaml
var defaultsYAML []byte

// Layouts understood by the field builder.
const (
	LayoutAnchors = "anchors"
	LayoutGrid    = "grid"
	LayoutTowers  = "towers"
)

// Config holds all configuration parameters.
type Config struct {
	Screen    ScreenConfig    `yaml:"screen"`
	Engine    Tunables        `yaml:"engine"`
	Field     FieldConfig     `yaml:"field"`
	Palette   PaletteConfig   `yaml:"palette"`
	Camera    CameraConfig    `yaml:"camera"`
	Telemetry TelemetryConfig `yaml:"telemetry"`
	Tune      TuneConfig      `yaml:"tune"`

	// Derived values computed after loading
	Derived DerivedConfig `yaml:"-"`
}

// ScreenConfig holds display settings.
type ScreenConfig struct {
	Width     int `yaml:"width"`
	Height    int `yaml:"height"`
	TargetFPS int `yaml:"target_fps"`
}

// Tunables are the parameters read once per frame.
// The viewer panel edits a copy; the field only sees the snapshot it is handed.
type Tunables struct {
	MinDistance      float64 `yaml:"min_distance"`      // edge threshold, strict
	LimitConnections bool    `yaml:"limit_connections"` // enable the degree cap
	MaxConnections   int     `yaml:"max_connections"`   // degree cap per particle per frame
	LinkThreshold    float64 `yaml:"link_threshold"`    // anchor link distance, 0 disables
	ActiveParticles  int     `yaml:"active_particles"`  // per-system draw range, 0 = all

	ShowDots    bool    `yaml:"show_dots"`
	ShowLines   bool    `yaml:"show_lines"`
	LineOpacity float64 `yaml:"line_opacity"`
	MeshOpacity float64 `yaml:"mesh_opacity"`
	LinkOpacity float64 `yaml:"link_opacity"`
}

// Vec3 is a YAML-friendly 3D vector.
type Vec3 struct {
	X float64 `yaml:"x"`
	Y float64 `yaml:"y"`
	Z float64 `yaml:"z"`
}

// R3 converts to the engine vector type.
func (v Vec3) R3() r3.Vec {
	return r3.Vec{X: v.X, Y: v.Y, Z: v.Z}
}

// FieldConfig describes the set of particle systems and how they are laid out.
type FieldConfig struct {
	Layout     string  `yaml:"layout"`      // anchors, grid or towers
	Particles  int     `yaml:"particles"`   // default particles per system
	HalfExtent Vec3    `yaml:"half_extent"` // region half-size per axis
	Speed      float64 `yaml:"speed"`       // per-axis velocity bound
	Lanes      bool    `yaml:"lanes"`       // confine particle i to the i-th x slice

	Workers           int `yaml:"workers"`            // 0 = GOMAXPROCS, 1 = sequential
	ParallelThreshold int `yaml:"parallel_threshold"` // minimum systems before fan-out

	Anchors []AnchorConfig `yaml:"anchors"`
	Grid    GridConfig     `yaml:"grid"`
	Towers  TowersConfig   `yaml:"towers"`
}

// AnchorConfig places one system explicitly.
type AnchorConfig struct {
	Pos       Vec3   `yaml:"pos"`
	Particles int    `yaml:"particles"` // 0 = field default
	Label     string `yaml:"label"`
}

// GridConfig places one system at every combination of offsets.
type GridConfig struct {
	X []float64 `yaml:"x"`
	Y []float64 `yaml:"y"`
	Z []float64 `yaml:"z"`
}

// TowersConfig stacks systems in vertical columns.
type TowersConfig struct {
	Levels  int           `yaml:"levels"`  // default levels per column
	Spacing float64       `yaml:"spacing"` // vertical distance between levels
	BaseY   float64       `yaml:"base_y"`  // height of the plinth under each column
	Columns []TowerConfig `yaml:"columns"`
}

// TowerConfig is one column of a towers layout.
type TowerConfig struct {
	X         float64  `yaml:"x"`
	Z         float64  `yaml:"z"`
	Levels    int      `yaml:"levels"`    // 0 = towers default
	Particles int      `yaml:"particles"` // 0 = field default
	Labels    []string `yaml:"labels"`    // one per level, may be short
	Base      string   `yaml:"base"`
}

// PaletteConfig holds hex colors for the viewer.
type PaletteConfig struct {
	Points     string `yaml:"points"`
	Lines      string `yaml:"lines"`
	Boxes      string `yaml:"boxes"`
	Links      string `yaml:"links"`
	Labels     string `yaml:"labels"`
	Background string `yaml:"background"`
}

// CameraConfig holds orbit camera settings.
type CameraConfig struct {
	FOVY        float64 `yaml:"fovy"`
	Distance    float64 `yaml:"distance"`
	MinDistance float64 `yaml:"min_distance"`
	MaxDistance float64 `yaml:"max_distance"`
	Pitch       float64 `yaml:"pitch"`       // radians
	AutoRotate  float64 `yaml:"auto_rotate"` // radians per second
}

// TelemetryConfig holds telemetry settings.
type TelemetryConfig struct {
	StatsWindow         int `yaml:"stats_window"` // frames per stats window
	PerfCollectorWindow int `yaml:"perf_collector_window"`
}

// TuneConfig holds parameters for cmd/tune.
type TuneConfig struct {
	TargetDegree float64 `yaml:"target_degree"` // desired mean edges per particle
	Frames       int     `yaml:"frames"`        // measured frames per evaluation
	Warmup       int     `yaml:"warmup"`        // frames discarded before measuring
	MaxEvals     int     `yaml:"max_evals"`
	Seeds        int     `yaml:"seeds"` // fields averaged per evaluation
}

// Palette holds parsed viewer colors.
type Palette struct {
	Points     colorful.Color
	Lines      colorful.Color
	Boxes      colorful.Color
	Links      colorful.Color
	Labels     colorful.Color
	Background colorful.Color
}

// DerivedConfig holds values computed from the loaded config.
type DerivedConfig struct {
	ScreenW32 float32 // Screen.Width as float32
	ScreenH32 float32 // Screen.Height as float32
	Palette   Palette
}

// global holds the loaded configuration.
var global *Config

// Init loads configuration from path and sets it as the global config.
// If path is empty, only embedded defaults are used.
func Init(path string) error {
	cfg, err := Load(path)
	if err != nil {
		return err
	}
	global = cfg
	return nil
}

// MustInit is like Init but panics on error.
func MustInit(path string) {
	if err := Init(path); err != nil {
		panic(fmt.Sprintf("config: failed to initialize: %v", err))
	}
}

// Cfg returns the global configuration. Panics if Init was not called.
func Cfg() *Config {
	if global == nil {
		panic("config: Cfg() called before Init()")
	}
	return global
}

// Load loads configuration from a YAML file, merging with embedded defaults.
// If path is empty, only embedded defaults are used.
func Load(path string) (*Config, error) {
	cfg, err := Defaults()
	if err != nil {
		return nil, err
	}

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
		// Only fields present in the file are overwritten; lists are replaced.
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing config file: %w", err)
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	if err := cfg.computeDerived(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Defaults returns the embedded defaults without validation.
func Defaults() (*Config, error) {
	cfg := &Config{}
	if err := yaml.Unmarshal(defaultsYAML, cfg); err != nil {
		return nil, fmt.Errorf("parsing embedded defaults: %w", err)
	}
	return cfg, nil
}

// Validate reports every out-of-range setting.
func (c *Config) Validate() error {
	var errs []error
	add := func(format string, args ...any) {
		errs = append(errs, fmt.Errorf(format, args...))
	}

	if c.Screen.Width <= 0 || c.Screen.Height <= 0 {
		add("screen: size must be positive, got %dx%d", c.Screen.Width, c.Screen.Height)
	}

	if err := c.Engine.Validate(); err != nil {
		errs = append(errs, err)
	}

	f := &c.Field
	if f.Particles <= 0 {
		add("field.particles: must be positive, got %d", f.Particles)
	}
	h := f.HalfExtent
	if !(h.X > 0 && h.Y > 0 && h.Z > 0) || math.IsInf(h.X+h.Y+h.Z, 0) {
		add("field.half_extent: must be positive and finite, got (%g, %g, %g)", h.X, h.Y, h.Z)
	}
	if f.Speed < 0 || math.IsNaN(f.Speed) || math.IsInf(f.Speed, 0) {
		add("field.speed: must be non-negative and finite, got %g", f.Speed)
	}
	if f.Workers < 0 {
		add("field.workers: must not be negative, got %d", f.Workers)
	}

	switch f.Layout {
	case LayoutAnchors:
		if len(f.Anchors) == 0 {
			add("field.anchors: layout %q needs at least one anchor", f.Layout)
		}
		for i, a := range f.Anchors {
			if a.Particles < 0 {
				add("field.anchors[%d].particles: must not be negative, got %d", i, a.Particles)
			}
		}
	case LayoutGrid:
		if len(f.Grid.X) == 0 || len(f.Grid.Y) == 0 || len(f.Grid.Z) == 0 {
			add("field.grid: every axis needs at least one offset")
		}
	case LayoutTowers:
		if len(f.Towers.Columns) == 0 {
			add("field.towers.columns: layout %q needs at least one column", f.Layout)
		}
		if f.Towers.Spacing <= 0 {
			add("field.towers.spacing: must be positive, got %g", f.Towers.Spacing)
		}
		for i, col := range f.Towers.Columns {
			if col.Levels < 0 || col.Particles < 0 {
				add("field.towers.columns[%d]: levels and particles must not be negative", i)
			}
			if col.Levels == 0 && f.Towers.Levels <= 0 {
				add("field.towers.columns[%d]: no level count and no default", i)
			}
		}
	default:
		add("field.layout: unknown layout %q", f.Layout)
	}

	if c.Camera.MinDistance <= 0 || c.Camera.MaxDistance < c.Camera.MinDistance {
		add("camera: need 0 < min_distance <= max_distance, got %g, %g", c.Camera.MinDistance, c.Camera.MaxDistance)
	}
	if c.Telemetry.StatsWindow <= 0 {
		add("telemetry.stats_window: must be positive, got %d", c.Telemetry.StatsWindow)
	}

	return errors.Join(errs...)
}

// Validate checks the tunables snapshot.
func (t Tunables) Validate() error {
	var errs []error
	if math.IsNaN(t.MinDistance) || math.IsInf(t.MinDistance, 0) {
		errs = append(errs, fmt.Errorf("engine.min_distance: must be finite, got %g", t.MinDistance))
	}
	if t.MaxConnections < 0 {
		errs = append(errs, fmt.Errorf("engine.max_connections: must not be negative, got %d", t.MaxConnections))
	}
	if t.ActiveParticles < 0 {
		errs = append(errs, fmt.Errorf("engine.active_particles: must not be negative, got %d", t.ActiveParticles))
	}
	if math.IsNaN(t.LinkThreshold) || t.LinkThreshold < 0 {
		errs = append(errs, fmt.Errorf("engine.link_threshold: must not be negative, got %g", t.LinkThreshold))
	}
	for _, o := range []struct {
		name string
		v    float64
	}{
		{"line_opacity", t.LineOpacity},
		{"mesh_opacity", t.MeshOpacity},
		{"link_opacity", t.LinkOpacity},
	} {
		if !(o.v >= 0 && o.v <= 1) {
			errs = append(errs, fmt.Errorf("engine.%s: must be in [0, 1], got %g", o.name, o.v))
		}
	}
	return errors.Join(errs...)
}

// computeDerived calculates values derived from loaded config.
func (c *Config) computeDerived() error {
	c.Derived.ScreenW32 = float32(c.Screen.Width)
	c.Derived.ScreenH32 = float32(c.Screen.Height)

	pal, err := c.Palette.Parse()
	if err != nil {
		return err
	}
	c.Derived.Palette = pal
	return nil
}

// Parse converts the hex strings to colors.
func (p PaletteConfig) Parse() (Palette, error) {
	var out Palette
	for _, e := range []struct {
		name string
		hex  string
		dst  *colorful.Color
	}{
		{"points", p.Points, &out.Points},
		{"lines", p.Lines, &out.Lines},
		{"boxes", p.Boxes, &out.Boxes},
		{"links", p.Links, &out.Links},
		{"labels", p.Labels, &out.Labels},
		{"background", p.Background, &out.Background},
	} {
		c, err := colorful.Hex(e.hex)
		if err != nil {
			return Palette{}, fmt.Errorf("palette.%s: %w", e.name, err)
		}
		*e.dst = c
	}
	return out, nil
}

// WriteYAML writes the configuration to a YAML file.
func (c *Config) WriteYAML(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("writing config file: %w", err)
	}
	return nil
}

// Package config provides configuration loading and access for the pond.
package config

import (
	_ "embed"
	"fmt"
	"image/color"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

//go:embed defaults.yaml
var defaultsYAML []byte

// Config holds all scene, gallery and host configuration parameters.
type Config struct {
	Screen    ScreenConfig    `yaml:"screen"`
	Sprite    SpriteConfig    `yaml:"sprite"`
	Fish      FishConfig      `yaml:"fish"`
	Bird      BirdConfig      `yaml:"bird"`
	Bait      BaitConfig      `yaml:"bait"`
	Particles ParticlesConfig `yaml:"particles"`
	HitTest   HitTestConfig   `yaml:"hit_test"`
	Gallery   GalleryConfig   `yaml:"gallery"`
	Server    ServerConfig    `yaml:"server"`
	Telemetry TelemetryConfig `yaml:"telemetry"`

	// Derived values computed after loading
	Derived DerivedConfig `yaml:"-"`
}

// ScreenConfig holds display settings.
type ScreenConfig struct {
	Width     int `yaml:"width"`
	Height    int `yaml:"height"`
	TargetFPS int `yaml:"target_fps"`
}

// SpriteConfig holds sprite builder parameters.
type SpriteConfig struct {
	CanonicalWidth  int `yaml:"canonical_width"`   // Every sprite is scaled to this width
	CropPadding     int `yaml:"crop_padding"`      // Padding kept around content when cropping a submission
	MaxPayloadBytes int `yaml:"max_payload_bytes"` // Larger payloads are rejected before decoding
	Workers         int `yaml:"workers"`           // Concurrent sprite builds per scene
}

// FishConfig holds fish tank behavior constants.
type FishConfig struct {
	Background     string  `yaml:"background"`       // Fallback background colour (#rrggbb)
	MinPeduncle    float64 `yaml:"min_peduncle"`     // Tail zone fraction lower bound
	MaxPeduncle    float64 `yaml:"max_peduncle"`     // Tail zone fraction upper bound
	MinAmplitude   float64 `yaml:"min_amplitude"`    // Vertical sway amplitude lower bound
	MaxAmplitude   float64 `yaml:"max_amplitude"`    // Vertical sway amplitude upper bound
	MinSpeed       float64 `yaml:"min_speed"`        // Horizontal speed multiplier lower bound
	MaxSpeed       float64 `yaml:"max_speed"`        // Horizontal speed multiplier upper bound
	SpeedScale     float64 `yaml:"speed_scale"`      // x += vx * speed * speed_scale
	VerticalScale  float64 `yaml:"vertical_scale"`   // y += vy * vertical_scale
	WiggleStrength float64 `yaml:"wiggle_strength"`  // Peak tail displacement in pixels
	TimeScale      float64 `yaml:"time_scale"`       // Wiggle clock units per second
	Margin         float64 `yaml:"margin"`           // Left/right bound inset
}

// BirdConfig holds bird flock behavior constants.
type BirdConfig struct {
	Background   string  `yaml:"background"`    // Fallback background colour (#rrggbb)
	FlapSpeed    float64 `yaml:"flap_speed"`    // Flap phase increment per tick
	BobSpeed     float64 `yaml:"bob_speed"`     // Bob phase increment per tick
	BobHeight    float64 `yaml:"bob_height"`    // Bob amplitude in pixels
	Slices       int     `yaml:"slices"`        // Horizontal slices for the flap filter
	MinSpeed     float64 `yaml:"min_speed"`     // Cruise vx lower bound
	MaxSpeed     float64 `yaml:"max_speed"`     // Cruise vx upper bound
	SpeedScale   float64 `yaml:"speed_scale"`   // x += vx * speed_scale while cruising
	Margin       float64 `yaml:"margin"`        // Left/right bound inset
	AttractRange float64 `yaml:"attract_range"` // Bait attraction radius
	EatRange     float64 `yaml:"eat_range"`     // Bait consumption radius
	SeekSpeed    float64 `yaml:"seek_speed"`    // Steering speed toward bait
}

// BaitConfig holds bait object parameters.
type BaitConfig struct {
	Gravity      float64 `yaml:"gravity"`       // Downward acceleration per tick
	InitialVY    float64 `yaml:"initial_vy"`    // Vertical velocity at spawn
	GroundMargin float64 `yaml:"ground_margin"` // Resting line above the bottom edge (0 = fall through)
	TimeoutSec   float64 `yaml:"timeout_sec"`   // Bait disappears after this long
	Length       float64 `yaml:"length"`        // Drawn body length
	Segments     int     `yaml:"segments"`      // Hash marks along the body
}

// ParticlesConfig holds particle burst parameters.
type ParticlesConfig struct {
	BurstCount   int      `yaml:"burst_count"`   // Particles per burst
	MinSpeed     float64  `yaml:"min_speed"`     // Radial speed lower bound
	MaxSpeed     float64  `yaml:"max_speed"`     // Radial speed upper bound
	OpacityStep  float64  `yaml:"opacity_step"`  // Opacity lost per tick
	MaxParticles int      `yaml:"max_particles"` // Hard cap on live particles
	Size         float64  `yaml:"size"`          // Drawn radius
	Palette      []string `yaml:"palette"`       // Burst colours (#rrggbb)
}

// HitTestConfig holds pointer picking parameters.
type HitTestConfig struct {
	Margin float64 `yaml:"margin"`
}

// GalleryConfig holds gallery service limits.
type GalleryConfig struct {
	ListLimit  int `yaml:"list_limit"`   // Records returned by the feed
	PerUserCap int `yaml:"per_user_cap"` // Oldest drawings beyond this are evicted
	RankLimit  int `yaml:"rank_limit"`   // Records on the ranking view
	MaxScene   int `yaml:"max_scene"`    // Entities a scene keeps alive
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Addr           string  `yaml:"addr"`
	SnapshotPath   string  `yaml:"snapshot_path"`    // Empty = memory only
	ReadTimeoutSec float64 `yaml:"read_timeout_sec"` // Per-request read timeout
	MaxBodyBytes   int64   `yaml:"max_body_bytes"`
}

// TelemetryConfig holds frame telemetry parameters.
type TelemetryConfig struct {
	PerfWindow int     `yaml:"perf_window"` // Frames averaged per perf record
	WindowSec  float64 `yaml:"window_sec"`  // Seconds per stats window (0 = never flush)
}

// DerivedConfig holds computed values derived from the loaded config.
type DerivedConfig struct {
	DT              float64      // 1 / Screen.TargetFPS
	FishBackground  color.RGBA   // Parsed Fish.Background
	BirdBackground  color.RGBA   // Parsed Bird.Background
	ParticlePalette []color.RGBA // Parsed Particles.Palette
	BaitTimeout     int          // Bait.TimeoutSec in ticks
}

// global holds the loaded configuration.
var global *Config

// Init loads configuration from the given path, or uses embedded defaults if path is empty.
// Must be called before Cfg().
func Init(path string) error {
	cfg, err := Load(path)
	if err != nil {
		return err
	}
	global = cfg
	return nil
}

// Cfg returns the global configuration. Panics if Init was not called.
func Cfg() *Config {
	if global == nil {
		panic("config: Cfg() called before Init()")
	}
	return global
}

// Default returns the embedded defaults. Panics if they fail to parse.
func Default() *Config {
	cfg, err := Load("")
	if err != nil {
		panic(fmt.Sprintf("config: embedded defaults: %v", err))
	}
	return cfg
}

// Load loads configuration from a YAML file, merging with embedded defaults.
// If path is empty, only embedded defaults are used.
func Load(path string) (*Config, error) {
	cfg := &Config{}
	if err := yaml.Unmarshal(defaultsYAML, cfg); err != nil {
		return nil, fmt.Errorf("parsing embedded defaults: %w", err)
	}

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
		// Unmarshal into same struct - only overwrites fields present in file
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing config file: %w", err)
		}
	}

	if err := cfg.computeDerived(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// computeDerived calculates values derived from loaded config.
func (c *Config) computeDerived() error {
	if c.Screen.TargetFPS <= 0 {
		c.Screen.TargetFPS = 60
	}
	c.Derived.DT = 1.0 / float64(c.Screen.TargetFPS)
	c.Derived.BaitTimeout = int(c.Bait.TimeoutSec * float64(c.Screen.TargetFPS))

	if c.Sprite.CanonicalWidth <= 0 {
		c.Sprite.CanonicalWidth = 150
	}
	if c.Sprite.Workers <= 0 {
		c.Sprite.Workers = 1
	}
	if c.Bird.Slices <= 0 {
		c.Bird.Slices = 500
	}

	var err error
	if c.Derived.FishBackground, err = ParseHexColor(c.Fish.Background); err != nil {
		return fmt.Errorf("fish.background: %w", err)
	}
	if c.Derived.BirdBackground, err = ParseHexColor(c.Bird.Background); err != nil {
		return fmt.Errorf("bird.background: %w", err)
	}

	c.Derived.ParticlePalette = c.Derived.ParticlePalette[:0]
	for i, s := range c.Particles.Palette {
		col, err := ParseHexColor(s)
		if err != nil {
			return fmt.Errorf("particles.palette[%d]: %w", i, err)
		}
		c.Derived.ParticlePalette = append(c.Derived.ParticlePalette, col)
	}
	if len(c.Derived.ParticlePalette) == 0 {
		c.Derived.ParticlePalette = []color.RGBA{{R: 255, G: 200, B: 60, A: 255}}
	}
	return nil
}

// ParseHexColor parses "#rrggbb" or "#rgb" into an opaque colour.
func ParseHexColor(s string) (color.RGBA, error) {
	s = strings.TrimPrefix(strings.TrimSpace(s), "#")
	if len(s) == 3 {
		s = string([]byte{s[0], s[0], s[1], s[1], s[2], s[2]})
	}
	if len(s) != 6 {
		return color.RGBA{}, fmt.Errorf("invalid colour %q", s)
	}
	v, err := strconv.ParseUint(s, 16, 32)
	if err != nil {
		return color.RGBA{}, fmt.Errorf("invalid colour %q: %w", s, err)
	}
	return color.RGBA{R: uint8(v >> 16), G: uint8(v >> 8), B: uint8(v), A: 255}, nil
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

// Package config loads vizframe session files.
//
// A session file is TOML:
//
//	[view]
//	reference_frame = "world"
//	show_grid = true
//	refresh_interval = "50ms"
//
//	[[static]]
//	source = "laser"
//	target = "body"
//	translation = [0.2, 0, 0.1]
//	rotation = [1, 0, 0, 0]    # w, x, y, z; identity when omitted
//
//	[[port]]
//	task = "laser_driver"
//	port = "scans"
//	frame = "laser"
//
//	[[producer]]
//	task = "odometry"
//	port = "pose_samples"
//	from = "body"
//	to = "odom"
//
//	[[plugin]]
//	name = "scans"
//	port = "laser_driver.scans"
//
//	[store]
//	url = "file:///var/lib/vizframe/run.jsonl"
//
//	[redis]
//	url = "redis://localhost:6379/0"
//	channel = "vizframe:transforms"
//
//	[server]
//	addr = ":8080"
//
// Environment variables prefixed with VIZFRAME_ override file values; see the
// env tags on each field.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/caarlos0/env/v11"
	"github.com/go-gl/mathgl/mgl64"

	verrors "github.com/matzehuels/vizframe/pkg/errors"
	"github.com/matzehuels/vizframe/pkg/pose"
	"github.com/matzehuels/vizframe/pkg/source"
	"github.com/matzehuels/vizframe/pkg/store"
	"github.com/matzehuels/vizframe/pkg/transform"
)

// EnvPrefix prefixes every environment override.
const EnvPrefix = "VIZFRAME_"

// Defaults.
const (
	DefaultRefreshInterval = 50 * time.Millisecond
	DefaultServerAddr      = ":8080"
)

// Config is a parsed session file.
type Config struct {
	View      View               `toml:"view"`
	Static    []Static           `toml:"static"`
	Ports     []source.PortFrame `toml:"port"`
	Producers []source.Producer  `toml:"producer"`
	Plugins   []Plugin           `toml:"plugin"`
	Store     Store              `toml:"store"`
	Redis     Redis              `toml:"redis"`
	Server    Server             `toml:"server"`
}

// View configures the view.
type View struct {
	ReferenceFrame  string        `toml:"reference_frame" env:"REFERENCE_FRAME"`
	ShowGrid        bool          `toml:"show_grid" env:"SHOW_GRID"`
	ShowAxes        bool          `toml:"show_axes" env:"SHOW_AXES"`
	RefreshInterval time.Duration `toml:"refresh_interval" env:"REFRESH_INTERVAL"`
	MaxSamples      int           `toml:"max_samples" env:"MAX_SAMPLES"`
}

// Static is a static transformation source -> target.
type Static struct {
	Source      string     `toml:"source"`
	Target      string     `toml:"target"`
	Translation [3]float64 `toml:"translation"`
	Rotation    [4]float64 `toml:"rotation"`
}

// Pose returns the configured pose. An all-zero rotation means identity.
func (s Static) Pose() pose.Pose {
	q := mgl64.QuatIdent()
	if s.Rotation != [4]float64{} {
		q = mgl64.Quat{W: s.Rotation[0], V: mgl64.Vec3{s.Rotation[1], s.Rotation[2], s.Rotation[3]}}
	}
	return pose.New(s.Translation, q)
}

// Sample returns s as a static store sample.
func (s Static) Sample() store.Sample {
	return store.Sample{Source: s.Source, Target: s.Target, Kind: transform.KindStatic, Pose: s.Pose()}
}

// Plugin is a marker plugin placed in the scene.
type Plugin struct {
	Name      string `toml:"name"`
	DataFrame string `toml:"data_frame"`
	// Port takes the data frame from a port association ("task.port").
	Port string `toml:"port"`
}

// Store selects the recording backend.
type Store struct {
	URL string `toml:"url" env:"STORE_URL"`
}

// Redis configures the live feed.
type Redis struct {
	URL     string `toml:"url" env:"REDIS_URL"`
	Channel string `toml:"channel" env:"REDIS_CHANNEL"`
}

// Server configures the HTTP adapter.
type Server struct {
	Addr string `toml:"addr" env:"SERVER_ADDR"`
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	return &Config{
		View: View{
			ShowGrid:        true,
			RefreshInterval: DefaultRefreshInterval,
			MaxSamples:      transform.DefaultMaxSamples,
		},
		Redis:  Redis{Channel: source.DefaultChannel},
		Server: Server{Addr: DefaultServerAddr},
	}
}

// Load reads the session file at path on top of the defaults, applies
// environment overrides and validates the result. An empty path skips the
// file.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config: %w", err)
		}
		if err := Decode(data, cfg); err != nil {
			return nil, fmt.Errorf("%s: %w", path, err)
		}
	}
	if err := ParseEnv(cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Decode parses TOML data into cfg. Unknown keys are an error.
func Decode(data []byte, cfg *Config) error {
	md, err := toml.Decode(string(data), cfg)
	if err != nil {
		return verrors.Wrap(verrors.ErrCodeInvalidConfig, err, "parse session file")
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, len(undecoded))
		for i, k := range undecoded {
			keys[i] = k.String()
		}
		return verrors.New(verrors.ErrCodeInvalidConfig, "unknown keys: %s", strings.Join(keys, ", "))
	}
	return nil
}

// ParseEnv loads VIZFRAME_* overrides into target.
func ParseEnv(target any) error {
	if err := env.ParseWithOptions(target, env.Options{Prefix: EnvPrefix}); err != nil {
		return fmt.Errorf("parse env: %w", err)
	}
	return nil
}

// Validate checks names, URLs and numeric settings.
func (c *Config) Validate() error {
	if err := verrors.ValidateOptionalFrameName(c.View.ReferenceFrame); err != nil {
		return verrors.Wrap(verrors.ErrCodeInvalidConfig, err, "view.reference_frame")
	}
	if c.View.RefreshInterval <= 0 {
		return verrors.New(verrors.ErrCodeInvalidConfig, "view.refresh_interval must be positive")
	}
	if c.View.MaxSamples <= 0 {
		return verrors.New(verrors.ErrCodeInvalidConfig, "view.max_samples must be positive")
	}
	for i, s := range c.Static {
		if err := s.Sample().Validate(); err != nil {
			return verrors.Wrap(verrors.ErrCodeInvalidConfig, err, "static[%d]", i)
		}
	}
	for i, p := range c.Ports {
		if err := verrors.ValidateFrameName(p.Frame); err != nil {
			return verrors.Wrap(verrors.ErrCodeInvalidConfig, err, "port[%d]", i)
		}
	}
	names := make(map[string]bool, len(c.Plugins))
	for i, p := range c.Plugins {
		if p.Name == "" {
			return verrors.New(verrors.ErrCodeInvalidConfig, "plugin[%d] has no name", i)
		}
		if names[p.Name] {
			return verrors.New(verrors.ErrCodeInvalidConfig, "plugin %q declared twice", p.Name)
		}
		names[p.Name] = true
		if err := verrors.ValidateOptionalFrameName(p.DataFrame); err != nil {
			return verrors.Wrap(verrors.ErrCodeInvalidConfig, err, "plugin %q", p.Name)
		}
	}
	if c.Store.URL != "" {
		if err := verrors.ValidateURL(c.Store.URL, store.Schemes...); err != nil {
			return verrors.Wrap(verrors.ErrCodeInvalidConfig, err, "store.url")
		}
	}
	if c.Redis.URL != "" {
		if err := verrors.ValidateURL(c.Redis.URL, "redis", "rediss"); err != nil {
			return verrors.Wrap(verrors.ErrCodeInvalidConfig, err, "redis.url")
		}
	}
	return nil
}

// Transformer returns the transformer configuration for a source.Connector.
func (c *Config) Transformer() source.Configuration {
	cfg := source.Configuration{Ports: c.Ports, Producers: c.Producers}
	for _, s := range c.Static {
		cfg.Static = append(cfg.Static, s.Sample())
	}
	return cfg
}

package config

import (
	"fmt"
	"net/url"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/meltforce/curlcoach/internal/tracker"
)

type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Database  DatabaseConfig  `yaml:"database"`
	Auth      AuthConfig      `yaml:"auth"`
	Tailscale TailscaleConfig `yaml:"tailscale"`
	Tracker   TrackerConfig   `yaml:"tracker"`
	Sessions  SessionsConfig  `yaml:"sessions"`
}

type ServerConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
}

// DatabaseConfig selects the preset store. Driver is "postgres" (default)
// or "sqlite", which only uses Path.
type DatabaseConfig struct {
	Driver   string `yaml:"driver"`
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Name     string `yaml:"name"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	SSLMode  string `yaml:"sslmode"`
	Path     string `yaml:"path"`
}

type AuthConfig struct {
	APIKey string `yaml:"api_key"`
}

type TailscaleConfig struct {
	Enabled  bool   `yaml:"enabled"`
	Hostname string `yaml:"hostname"`
	StateDir string `yaml:"state_dir"`
}

// TrackerConfig holds the defaults for new sessions. Unset fields fall back
// to tracker.DefaultConfig; an explicit zero is kept and fails validation.
type TrackerConfig struct {
	TargetReps         *int     `yaml:"target_reps"`
	TargetSets         *int     `yaml:"target_sets"`
	RestSeconds        *int     `yaml:"rest_seconds"`
	DownThreshold      *float64 `yaml:"down_threshold"`
	UpThreshold        *float64 `yaml:"up_threshold"`
	PostureDeviation   *float64 `yaml:"posture_deviation"`
	TorsoTolerance     *float64 `yaml:"torso_tolerance"`
	PostureStreakLimit *int     `yaml:"posture_streak_limit"`
}

type SessionsConfig struct {
	// MaxFramesPerSecond caps frames accepted per session; 0 disables the limit.
	MaxFramesPerSecond float64       `yaml:"max_frames_per_second"`
	IdleTimeout        time.Duration `yaml:"idle_timeout"`
}

const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

// DSN returns the connection string for the configured driver.
func (d DatabaseConfig) DSN() string {
	if d.Driver == DriverSQLite {
		return "sqlite://" + d.Path
	}
	sslmode := d.SSLMode
	if sslmode == "" {
		sslmode = "disable"
	}
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s",
		url.PathEscape(d.User), url.PathEscape(d.Password), d.Host, d.Port, d.Name, sslmode)
}

// Config overlays the set fields onto tracker.DefaultConfig.
func (t TrackerConfig) Config() tracker.Config {
	cfg := tracker.DefaultConfig()
	if t.TargetReps != nil {
		cfg.TargetReps = *t.TargetReps
	}
	if t.TargetSets != nil {
		cfg.TargetSets = *t.TargetSets
	}
	if t.RestSeconds != nil {
		cfg.RestDuration = time.Duration(*t.RestSeconds) * time.Second
	}
	if t.DownThreshold != nil {
		cfg.DownThreshold = *t.DownThreshold
	}
	if t.UpThreshold != nil {
		cfg.UpThreshold = *t.UpThreshold
	}
	if t.PostureDeviation != nil {
		cfg.PostureDeviation = *t.PostureDeviation
	}
	if t.TorsoTolerance != nil {
		cfg.TorsoTolerance = *t.TorsoTolerance
	}
	if t.PostureStreakLimit != nil {
		cfg.PostureStreakLimit = *t.PostureStreakLimit
	}
	return cfg
}

// Load reads config from a YAML file, then applies environment variable overrides.
// Env vars use the prefix CURLCOACH_ and underscore-separated paths:
//
//	CURLCOACH_SERVER_HOST, CURLCOACH_SERVER_PORT,
//	CURLCOACH_DB_DRIVER, CURLCOACH_DB_HOST, CURLCOACH_DB_PORT, CURLCOACH_DB_NAME,
//	CURLCOACH_DB_USER, CURLCOACH_DB_PASSWORD, CURLCOACH_DB_SSLMODE, CURLCOACH_DB_PATH,
//	CURLCOACH_AUTH_API_KEY, CURLCOACH_TAILSCALE_ENABLED, CURLCOACH_TAILSCALE_HOSTNAME
func Load(path string) (*Config, error) {
	cfg := &Config{
		Sessions: SessionsConfig{
			MaxFramesPerSecond: 30,
			IdleTimeout:        15 * time.Minute,
		},
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	applyEnvOverrides(cfg)

	if cfg.Database.Driver == "" {
		cfg.Database.Driver = DriverPostgres
	}
	if cfg.Tailscale.Hostname == "" {
		cfg.Tailscale.Hostname = "curlcoach"
	}

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("config validation: %w", err)
	}

	return cfg, nil
}

func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("CURLCOACH_SERVER_HOST"); v != "" {
		cfg.Server.Host = v
	}
	if v := os.Getenv("CURLCOACH_SERVER_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Server.Port = port
		}
	}
	if v := os.Getenv("CURLCOACH_DB_DRIVER"); v != "" {
		cfg.Database.Driver = v
	}
	if v := os.Getenv("CURLCOACH_DB_HOST"); v != "" {
		cfg.Database.Host = v
	}
	if v := os.Getenv("CURLCOACH_DB_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Database.Port = port
		}
	}
	if v := os.Getenv("CURLCOACH_DB_NAME"); v != "" {
		cfg.Database.Name = v
	}
	if v := os.Getenv("CURLCOACH_DB_USER"); v != "" {
		cfg.Database.User = v
	}
	if v := os.Getenv("CURLCOACH_DB_PASSWORD"); v != "" {
		cfg.Database.Password = v
	}
	if v := os.Getenv("CURLCOACH_DB_SSLMODE"); v != "" {
		cfg.Database.SSLMode = v
	}
	if v := os.Getenv("CURLCOACH_DB_PATH"); v != "" {
		cfg.Database.Path = v
	}
	if v := os.Getenv("CURLCOACH_AUTH_API_KEY"); v != "" {
		cfg.Auth.APIKey = v
	}
	if v := os.Getenv("CURLCOACH_TAILSCALE_ENABLED"); v != "" {
		if enabled, err := strconv.ParseBool(v); err == nil {
			cfg.Tailscale.Enabled = enabled
		}
	}
	if v := os.Getenv("CURLCOACH_TAILSCALE_HOSTNAME"); v != "" {
		cfg.Tailscale.Hostname = v
	}
}

func (c *Config) validate() error {
	if c.Server.Port == 0 && !c.Tailscale.Enabled {
		return fmt.Errorf("server.port is required")
	}
	switch c.Database.Driver {
	case DriverPostgres:
		if c.Database.Host == "" {
			return fmt.Errorf("database.host is required")
		}
		if c.Database.Port == 0 {
			return fmt.Errorf("database.port is required")
		}
		if c.Database.Name == "" {
			return fmt.Errorf("database.name is required")
		}
		if c.Database.User == "" {
			return fmt.Errorf("database.user is required")
		}
	case DriverSQLite:
		if c.Database.Path == "" {
			return fmt.Errorf("database.path is required for sqlite")
		}
	default:
		return fmt.Errorf("database.driver %q is not supported", c.Database.Driver)
	}
	if c.Auth.APIKey == "" {
		return fmt.Errorf("auth.api_key is required")
	}
	if c.Sessions.MaxFramesPerSecond < 0 {
		return fmt.Errorf("sessions.max_frames_per_second must not be negative")
	}
	if c.Sessions.IdleTimeout <= 0 {
		return fmt.Errorf("sessions.idle_timeout must be positive")
	}
	if err := c.Tracker.Config().Validate(); err != nil {
		return fmt.Errorf("tracker: %w", err)
	}
	return nil
}

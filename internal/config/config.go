// Package config loads docgen settings from an optional TOML file and the
// environment.
package config

import (
	"errors"
	"fmt"
	"os"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/charmbracelet/log"

	"github.com/sistemadual/docgen/internal/chart"
	"github.com/sistemadual/docgen/internal/notify"
	"github.com/sistemadual/docgen/pkg/docgen"
)

// DefaultFile is read when no file is named and it exists.
const DefaultFile = "docgen.toml"

// Config holds every setting.
type Config struct {
	LogLevel  string    `toml:"log_level"`
	Templates Templates `toml:"templates"`
	Output    Output    `toml:"output"`
	Images    Images    `toml:"images"`
	Converter Converter `toml:"converter"`
	Chart     Chart     `toml:"chart"`
	SMTP      SMTP      `toml:"smtp"`
	Store     Store     `toml:"store"`
	Server    Server    `toml:"server"`
}

type Templates struct {
	Dir string `toml:"dir"`
}

type Output struct {
	Dir     string `toml:"dir"`
	TempDir string `toml:"temp_dir"`
}

type Images struct {
	WidthMM float64 `toml:"width_mm"`
}

type Converter struct {
	Command string        `toml:"command"`
	Timeout time.Duration `toml:"timeout"`
	Enabled bool          `toml:"enabled"`
}

type Chart struct {
	SizePx int     `toml:"size_px"`
	DPI    float64 `toml:"dpi"`
}

type SMTP struct {
	Server   string `toml:"server"`
	Port     int    `toml:"port"`
	Email    string `toml:"email"`
	Password string `toml:"password"`
}

type Store struct {
	DSN string `toml:"dsn"`
}

type Server struct {
	Addr      string        `toml:"addr"`
	Workers   int           `toml:"workers"`
	QueueSize int           `toml:"queue_size"`
	RedisURL  string        `toml:"redis_url"`
	JobTTL    time.Duration `toml:"job_ttl"`
	CacheSize int           `toml:"cache_size"`
	CacheTTL  time.Duration `toml:"cache_ttl"`
}

// Default returns the built-in settings.
func Default() *Config {
	return &Config{
		LogLevel:  "info",
		Templates: Templates{Dir: "templates"},
		Output:    Output{Dir: "output"},
		Images:    Images{WidthMM: 40},
		Converter: Converter{Command: "soffice", Timeout: 2 * time.Minute, Enabled: true},
		Chart:     Chart{SizePx: int(chart.DefaultSize), DPI: chart.DefaultDPI},
		SMTP: SMTP{
			Server: notify.DefaultServer,
			Port:   notify.DefaultPort,
			Email:  notify.MockSender,
		},
		Store: Store{DSN: "file:docgen.db"},
		Server: Server{
			Addr:      ":8080",
			Workers:   2,
			QueueSize: 16,
			JobTTL:    24 * time.Hour,
			CacheSize: 32,
		},
	}
}

// Load reads path over the defaults, then applies the environment and
// validates. An empty path reads DefaultFile when it exists.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path == "" {
		if _, err := os.Stat(DefaultFile); err == nil {
			path = DefaultFile
		}
	}
	if path != "" {
		md, err := toml.DecodeFile(path, cfg)
		if err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
		if undecoded := md.Undecoded(); len(undecoded) > 0 {
			keys := make([]string, len(undecoded))
			for i, k := range undecoded {
				keys[i] = k.String()
			}
			sort.Strings(keys)
			return nil, fmt.Errorf("config %s: unknown keys %s", path, strings.Join(keys, ", "))
		}
	}
	if err := cfg.ApplyEnvironment(os.Getenv); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// ApplyEnvironment overrides settings from DOCGEN_* variables and the SMTP_*
// account variables.
func (c *Config) ApplyEnvironment(getenv func(string) string) error {
	var errs []error
	str := func(key string, dst *string) {
		if v := getenv(key); v != "" {
			*dst = v
		}
	}
	integer := func(key string, dst *int) {
		if v := getenv(key); v != "" {
			n, err := strconv.Atoi(v)
			if err != nil {
				errs = append(errs, fmt.Errorf("%s: %w", key, err))
				return
			}
			*dst = n
		}
	}
	float := func(key string, dst *float64) {
		if v := getenv(key); v != "" {
			f, err := strconv.ParseFloat(v, 64)
			if err != nil {
				errs = append(errs, fmt.Errorf("%s: %w", key, err))
				return
			}
			*dst = f
		}
	}
	duration := func(key string, dst *time.Duration) {
		if v := getenv(key); v != "" {
			d, err := time.ParseDuration(v)
			if err != nil {
				errs = append(errs, fmt.Errorf("%s: %w", key, err))
				return
			}
			*dst = d
		}
	}

	str("DOCGEN_LOG_LEVEL", &c.LogLevel)
	str("DOCGEN_TEMPLATES_DIR", &c.Templates.Dir)
	str("DOCGEN_OUTPUT_DIR", &c.Output.Dir)
	str("DOCGEN_TEMP_DIR", &c.Output.TempDir)
	float("DOCGEN_IMAGE_WIDTH_MM", &c.Images.WidthMM)
	str("DOCGEN_CONVERTER_COMMAND", &c.Converter.Command)
	duration("DOCGEN_CONVERTER_TIMEOUT", &c.Converter.Timeout)
	if v := getenv("DOCGEN_CONVERT"); v != "" {
		c.Converter.Enabled = parseBool(v)
	}
	integer("DOCGEN_CHART_SIZE_PX", &c.Chart.SizePx)
	float("DOCGEN_CHART_DPI", &c.Chart.DPI)

	str("SMTP_SERVER", &c.SMTP.Server)
	integer("SMTP_PORT", &c.SMTP.Port)
	str("SMTP_EMAIL", &c.SMTP.Email)
	str("SMTP_PASSWORD", &c.SMTP.Password)

	str("DOCGEN_STORE_DSN", &c.Store.DSN)

	str("DOCGEN_ADDR", &c.Server.Addr)
	integer("DOCGEN_WORKERS", &c.Server.Workers)
	integer("DOCGEN_QUEUE_SIZE", &c.Server.QueueSize)
	str("DOCGEN_REDIS_URL", &c.Server.RedisURL)
	duration("DOCGEN_JOB_TTL", &c.Server.JobTTL)
	integer("DOCGEN_CACHE_SIZE", &c.Server.CacheSize)
	duration("DOCGEN_CACHE_TTL", &c.Server.CacheTTL)

	return errors.Join(errs...)
}

// Validate checks the settings.
func (c *Config) Validate() error {
	var errs []error
	if _, err := log.ParseLevel(c.LogLevel); err != nil || c.LogLevel == "fatal" {
		errs = append(errs, fmt.Errorf("invalid log level: %q", c.LogLevel))
	}
	if c.Images.WidthMM <= 0 {
		errs = append(errs, errors.New("images.width_mm must be positive"))
	}
	if c.Converter.Timeout <= 0 {
		errs = append(errs, errors.New("converter.timeout must be positive"))
	}
	if c.Chart.SizePx < 0 || c.Chart.DPI <= 0 {
		errs = append(errs, errors.New("chart size and dpi must be positive"))
	}
	if c.SMTP.Port < 1 || c.SMTP.Port > 65535 {
		errs = append(errs, fmt.Errorf("smtp.port %d out of range", c.SMTP.Port))
	}
	if c.Server.Workers < 1 {
		errs = append(errs, errors.New("server.workers must be at least 1"))
	}
	if c.Server.QueueSize < 1 {
		errs = append(errs, errors.New("server.queue_size must be at least 1"))
	}
	if c.Server.CacheSize < 0 || c.Server.CacheTTL < 0 || c.Server.JobTTL < 0 {
		errs = append(errs, errors.New("server cache and ttl settings cannot be negative"))
	}
	return errors.Join(errs...)
}

// Level returns the parsed log level.
func (c *Config) Level() log.Level {
	level, err := log.ParseLevel(c.LogLevel)
	if err != nil {
		return log.InfoLevel
	}
	return level
}

// Notify returns the SMTP account settings.
func (c *Config) Notify() notify.Config {
	return notify.Config{
		Server:   c.SMTP.Server,
		Port:     c.SMTP.Port,
		Email:    c.SMTP.Email,
		Password: c.SMTP.Password,
	}
}

// ChartOptions returns the chart raster settings.
func (c *Config) ChartOptions() chart.Options {
	return chart.Options{SizePx: c.Chart.SizePx, DPI: c.Chart.DPI}
}

// CacheConfig returns the template cache settings.
func (c *Config) CacheConfig() docgen.CacheConfig {
	return docgen.CacheConfig{MaxSize: c.Server.CacheSize, TTL: c.Server.CacheTTL}
}

func parseBool(s string) bool {
	s = strings.ToLower(strings.TrimSpace(s))
	return s == "true" || s == "1" || s == "yes" || s == "on"
}

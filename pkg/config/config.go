// Package config loads the SDK host settings from a .env file, COMMUNITY_*
// environment variables and an optional YAML file, in increasing precedence:
// defaults < file < environment.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/godeps/community-sdk-go/pkg/messages"
)

// EnvPrefix prefixes every environment variable, e.g. COMMUNITY_BASE_URL.
const EnvPrefix = "COMMUNITY"

var ErrInvalid = errors.New("config: invalid")

type Config struct {
	BaseURL           string        `mapstructure:"base_url"`
	SessionFile       string        `mapstructure:"session_file"`
	CookieFile        string        `mapstructure:"cookie_file"`
	Locale            string        `mapstructure:"locale"`
	MessagesFile      string        `mapstructure:"messages_file"`
	HTTPTimeout       time.Duration `mapstructure:"http_timeout"`
	ToastDuration     time.Duration `mapstructure:"toast_duration"`
	InvalidationDelay time.Duration `mapstructure:"invalidation_delay"`
	RateLimit         float64       `mapstructure:"rate_limit"`
	RateBurst         int           `mapstructure:"rate_burst"`
	OTLPEndpoint      string        `mapstructure:"otlp_endpoint"`
	ServiceName       string        `mapstructure:"service_name"`
	LogLevel          string        `mapstructure:"log_level"`
	TraceDir          string        `mapstructure:"trace_dir"`
}

// Options locate the optional files. Empty EnvFile means ".env".
type Options struct {
	ConfigFile string
	EnvFile    string
	// StateDir holds the session and cookie files; defaults to the user
	// config dir.
	StateDir string
}

func defaultStateDir() string {
	if dir, err := os.UserConfigDir(); err == nil {
		return filepath.Join(dir, "community")
	}
	return ".community"
}

func setDefaults(v *viper.Viper, stateDir string) {
	v.SetDefault("base_url", "http://localhost:8000")
	v.SetDefault("session_file", filepath.Join(stateDir, "user.json"))
	v.SetDefault("cookie_file", filepath.Join(stateDir, "cookies.json"))
	v.SetDefault("locale", "ko")
	v.SetDefault("messages_file", "")
	v.SetDefault("http_timeout", 30*time.Second)
	v.SetDefault("toast_duration", 3*time.Second)
	v.SetDefault("invalidation_delay", 1500*time.Millisecond)
	v.SetDefault("rate_limit", 0.0)
	v.SetDefault("rate_burst", 1)
	v.SetDefault("otlp_endpoint", "")
	v.SetDefault("service_name", "community-sdk-go")
	v.SetDefault("log_level", "info")
	v.SetDefault("trace_dir", "")
}

// Load resolves the configuration.
func Load(opts Options) (*Config, error) {
	envFile := opts.EnvFile
	if envFile == "" {
		envFile = ".env"
	}
	if _, err := os.Stat(envFile); err == nil {
		if err := godotenv.Load(envFile); err != nil {
			return nil, fmt.Errorf("config: load %s: %w", envFile, err)
		}
	} else if !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("config: stat %s: %w", envFile, err)
	}

	stateDir := opts.StateDir
	if stateDir == "" {
		stateDir = defaultStateDir()
	}

	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()
	setDefaults(v, stateDir)

	if opts.ConfigFile != "" {
		v.SetConfigFile(opts.ConfigFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("config: read %s: %w", opts.ConfigFile, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("config: decode: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks the values a host cannot start without.
func (c *Config) Validate() error {
	u, err := url.Parse(c.BaseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("%w: base_url %q", ErrInvalid, c.BaseURL)
	}
	if _, err := c.Level(); err != nil {
		return fmt.Errorf("%w: log_level %q", ErrInvalid, c.LogLevel)
	}
	if c.RateLimit < 0 {
		return fmt.Errorf("%w: rate_limit %v", ErrInvalid, c.RateLimit)
	}
	if c.HTTPTimeout < 0 || c.ToastDuration < 0 || c.InvalidationDelay < 0 {
		return fmt.Errorf("%w: negative duration", ErrInvalid)
	}
	return nil
}

// Level parses LogLevel for log/slog.
func (c *Config) Level() (slog.Level, error) {
	var lvl slog.Level
	err := lvl.UnmarshalText([]byte(strings.TrimSpace(c.LogLevel)))
	return lvl, err
}

// Catalog picks the message catalog for Locale and applies MessagesFile.
func (c *Config) Catalog() (messages.Catalog, error) {
	cat := messages.Match(c.Locale)
	if c.MessagesFile == "" {
		return cat, nil
	}
	return messages.LoadFile(c.MessagesFile, cat)
}

func (c *Config) String() string {
	var sb strings.Builder
	sb.WriteString("\n")
	fmt.Fprintf(&sb, "  BaseURL: %s\n", c.BaseURL)
	fmt.Fprintf(&sb, "  SessionFile: %s\n", c.SessionFile)
	fmt.Fprintf(&sb, "  CookieFile: %s\n", c.CookieFile)
	fmt.Fprintf(&sb, "  Locale: %s\n", c.Locale)
	fmt.Fprintf(&sb, "  MessagesFile: %s\n", orEmpty(c.MessagesFile))
	fmt.Fprintf(&sb, "  HTTPTimeout: %s\n", c.HTTPTimeout)
	fmt.Fprintf(&sb, "  ToastDuration: %s\n", c.ToastDuration)
	fmt.Fprintf(&sb, "  InvalidationDelay: %s\n", c.InvalidationDelay)
	fmt.Fprintf(&sb, "  RateLimit: %v/s (burst %d)\n", c.RateLimit, c.RateBurst)
	fmt.Fprintf(&sb, "  OTLPEndpoint: %s\n", orEmpty(c.OTLPEndpoint))
	fmt.Fprintf(&sb, "  ServiceName: %s\n", c.ServiceName)
	fmt.Fprintf(&sb, "  LogLevel: %s\n", c.LogLevel)
	fmt.Fprintf(&sb, "  TraceDir: %s\n", orEmpty(c.TraceDir))
	return sb.String()
}

func orEmpty(s string) string {
	if s == "" {
		return "(empty)"
	}
	return s
}

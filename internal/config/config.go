// Package config loads lingoreview settings from flags, an optional YAML
// file and LINGOREVIEW_ environment variables.
package config

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	"github.com/spf13/pflag"
)

// EnvPrefix is stripped from environment variables; "__" separates nested keys.
const EnvPrefix = "LINGOREVIEW_"

// Config is the fully resolved configuration.
type Config struct {
	Log        LogConfig        `koanf:"log"`
	HTTP       HTTPConfig       `koanf:"http"`
	Curriculum CurriculumConfig `koanf:"curriculum"`
	Local      LocalConfig      `koanf:"local"`
	Remote     RemoteConfig     `koanf:"remote"`
	Deck       DeckConfig       `koanf:"deck"`
}

type LogConfig struct {
	Level  string `koanf:"level" validate:"oneof=debug info warn error"`
	Format string `koanf:"format" validate:"oneof=text json"`
}

type HTTPConfig struct {
	Addr string `koanf:"addr" validate:"required"`
}

// CurriculumConfig locates the curriculum document. When RepoURL is set the
// repository is synced under CacheDir and Path is read relative to it.
type CurriculumConfig struct {
	Path     string `koanf:"path" validate:"required"`
	RepoURL  string `koanf:"repo_url"`
	CacheDir string `koanf:"cache_dir" validate:"required_with=RepoURL"`
}

type LocalConfig struct {
	Path     string `koanf:"path" validate:"required"`
	DeviceID string `koanf:"device_id"`
}

type RemoteConfig struct {
	Driver  string        `koanf:"driver" validate:"oneof=sqlite pgx"`
	DSN     string        `koanf:"dsn" validate:"required"`
	Timeout time.Duration `koanf:"timeout" validate:"gt=0"`
}

type DeckConfig struct {
	FreshLimit int `koanf:"fresh_limit" validate:"min=0"`
	MaxSize    int `koanf:"max_size" validate:"min=0"`
}

// Flags registers every configuration key on fs with its default value.
func Flags(fs *pflag.FlagSet) {
	fs.String("config", "", "path to a YAML config file")
	fs.String("log.level", "info", "log level (debug, info, warn, error)")
	fs.String("log.format", "text", "log format (text, json)")
	fs.String("http.addr", ":8080", "HTTP listen address")
	fs.String("curriculum.path", "curriculum.yaml", "curriculum document")
	fs.String("curriculum.repo_url", "", "git repository holding the curriculum")
	fs.String("curriculum.cache_dir", ".lingoreview/repos", "where curriculum repositories are cloned")
	fs.String("local.path", ".lingoreview/device.json", "device-local progress file")
	fs.String("local.device_id", "", "device identity, minted on first use when empty")
	fs.String("remote.driver", "sqlite", "remote backend driver (sqlite, pgx)")
	fs.String("remote.dsn", "lingoreview.db", "remote backend data source")
	fs.Duration("remote.timeout", 5*time.Second, "per-call timeout for the remote backend")
	fs.Int("deck.fresh_limit", 10, "fresh items added to a deck")
	fs.Int("deck.max_size", 50, "maximum deck size, 0 for unlimited")
}

// Load resolves the configuration from an already parsed flag set. Later
// layers win: flag defaults, the config file, the environment, then flags
// set explicitly on the command line.
func Load(fs *pflag.FlagSet) (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(posflag.Provider(fs, ".", k), nil); err != nil {
		return nil, fmt.Errorf("failed to load flag defaults: %w", err)
	}
	if path, _ := fs.GetString("config"); path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", path, err)
		}
	}
	if err := k.Load(env.Provider(EnvPrefix, ".", envKey), nil); err != nil {
		return nil, fmt.Errorf("failed to load environment: %w", err)
	}
	// Unchanged flags are skipped once their key exists, so only explicit ones override.
	if err := k.Load(posflag.Provider(fs, ".", k), nil); err != nil {
		return nil, fmt.Errorf("failed to load flags: %w", err)
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// envKey maps LINGOREVIEW_REMOTE__DSN to remote.dsn.
func envKey(s string) string {
	s = strings.ToLower(strings.TrimPrefix(s, EnvPrefix))
	return strings.ReplaceAll(s, "__", ".")
}

// Validate reports the first invalid setting.
func (c *Config) Validate() error {
	err := validator.New(validator.WithRequiredStructEnabled()).Struct(c)
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		f := verrs[0]
		return fmt.Errorf("invalid config %s: failed %s check", f.Namespace(), f.Tag())
	}
	return err
}

// Logger builds the process logger described by c.
func (c LogConfig) Logger(w io.Writer) *slog.Logger {
	var level slog.Level
	switch c.Level {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}
	opts := &slog.HandlerOptions{Level: level}
	if c.Format == "json" {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}

package config

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// EnvPrefix namespaces environment overrides, e.g. WASTEBOARD_HTTP_ADDR.
const EnvPrefix = "WASTEBOARD"

// Config is the resolved runtime configuration.
type Config struct {
	HTTP     HTTPConfig
	SQLite   SQLiteConfig
	Session  SessionConfig
	API      APIConfig
	Listing  ListingConfig
	Currency CurrencyConfig
	Log      LogConfig
}

type HTTPConfig struct {
	Addr            string
	ShutdownTimeout time.Duration
}

type SQLiteConfig struct {
	Path          string
	MigrationsDir string
	ReadConns     int
}

type SessionConfig struct {
	TTL          time.Duration
	SecureCookie bool
}

type APIConfig struct {
	JWTSecret   string
	TokenTTL    time.Duration
	CORSOrigins []string
}

type ListingConfig struct {
	DefaultPageSize int
	MaxPageSize     int
}

type CurrencyConfig struct {
	Symbol string
}

type LogConfig struct {
	Level  string
	Format string
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("http.addr", ":8080")
	v.SetDefault("http.shutdown_timeout", "5s")
	v.SetDefault("sqlite.path", "wasteboard.db")
	v.SetDefault("sqlite.migrations_dir", "")
	v.SetDefault("sqlite.read_conns", 8)
	v.SetDefault("session.ttl", "12h")
	v.SetDefault("session.secure_cookie", false)
	v.SetDefault("api.jwt_secret", "")
	v.SetDefault("api.token_ttl", "24h")
	v.SetDefault("api.cors_origins", []string{})
	v.SetDefault("listing.default_page_size", 10)
	v.SetDefault("listing.max_page_size", 100)
	v.SetDefault("currency.symbol", "Rp")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")
}

// Load reads config.yaml from configPath (a file or a directory; empty means the
// working directory), then applies WASTEBOARD_* environment overrides.
// A missing config file is not an error.
func Load(configPath string) (Config, error) {
	v := viper.New()
	setDefaults(v)

	if strings.HasSuffix(configPath, ".yaml") || strings.HasSuffix(configPath, ".yml") {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		if configPath == "" {
			configPath = "."
		}
		v.AddConfigPath(configPath)
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
		slog.Debug("no config.yaml found, using defaults and env vars")
	} else {
		slog.Debug("loaded config", slog.String("file", v.ConfigFileUsed()))
	}

	cfg := Config{
		HTTP: HTTPConfig{
			Addr:            v.GetString("http.addr"),
			ShutdownTimeout: v.GetDuration("http.shutdown_timeout"),
		},
		SQLite: SQLiteConfig{
			Path:          v.GetString("sqlite.path"),
			MigrationsDir: v.GetString("sqlite.migrations_dir"),
			ReadConns:     v.GetInt("sqlite.read_conns"),
		},
		Session: SessionConfig{
			TTL:          v.GetDuration("session.ttl"),
			SecureCookie: v.GetBool("session.secure_cookie"),
		},
		API: APIConfig{
			JWTSecret:   v.GetString("api.jwt_secret"),
			TokenTTL:    v.GetDuration("api.token_ttl"),
			CORSOrigins: splitList(v.GetStringSlice("api.cors_origins")),
		},
		Listing: ListingConfig{
			DefaultPageSize: v.GetInt("listing.default_page_size"),
			MaxPageSize:     v.GetInt("listing.max_page_size"),
		},
		Currency: CurrencyConfig{Symbol: v.GetString("currency.symbol")},
		Log: LogConfig{
			Level:  strings.ToLower(v.GetString("log.level")),
			Format: strings.ToLower(v.GetString("log.format")),
		},
	}
	return cfg, cfg.Validate()
}

// Validate rejects values the server cannot run with.
func (c Config) Validate() error {
	if strings.TrimSpace(c.HTTP.Addr) == "" {
		return errors.New("http.addr is required")
	}
	if strings.TrimSpace(c.SQLite.Path) == "" {
		return errors.New("sqlite.path is required")
	}
	if c.Session.TTL <= 0 {
		return errors.New("session.ttl must be positive")
	}
	if c.API.TokenTTL <= 0 {
		return errors.New("api.token_ttl must be positive")
	}
	if c.Listing.DefaultPageSize <= 0 || c.Listing.MaxPageSize < c.Listing.DefaultPageSize {
		return fmt.Errorf("listing page sizes invalid: default=%d max=%d", c.Listing.DefaultPageSize, c.Listing.MaxPageSize)
	}
	switch c.Log.Format {
	case "text", "json":
	default:
		return fmt.Errorf("log.format must be text or json, got %q", c.Log.Format)
	}
	return nil
}

// SlogLevel maps log.level onto slog levels; unknown values mean info.
func (c Config) SlogLevel() slog.Level {
	switch c.Log.Level {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// Env vars arrive as one comma separated string.
func splitList(values []string) []string {
	out := make([]string, 0, len(values))
	for _, v := range values {
		for _, part := range strings.Split(v, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}

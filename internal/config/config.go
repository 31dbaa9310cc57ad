package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/alanyang/xactlock/internal/adapter/retry"
	"github.com/alanyang/xactlock/internal/domain/lock"
	"github.com/alanyang/xactlock/internal/logger"
)

// Minimum pool sizes. A lock session needs one connection and event publishing
// another; the inspection server also keeps one for LISTEN.
const (
	MinConns       = 2
	MinServerConns = 3
)

type Config struct {
	DatabaseURL string
	MaxConns    int32
	Port        string

	NamespaceTag string
	Retry        retry.Config

	Log logger.Config
}

// Load reads envFilePath when it exists, then the process environment. A
// missing env file is not an error; the environment alone is enough.
func Load(envFilePath string) (*Config, error) {
	if envFilePath != "" {
		if err := godotenv.Load(envFilePath); err != nil && !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("loading env file %s: %w", envFilePath, err)
		}
	}

	var errs []error
	cfg := &Config{
		DatabaseURL:  os.Getenv("DATABASE_URL"),
		MaxConns:     int32(envInt("DB_MAX_CONNS", 4, &errs)),
		Port:         envString("PORT", "8080"),
		NamespaceTag: envString("LOCK_NAMESPACE", "Flyway"),
		Retry: retry.Config{
			Count:       envInt("LOCK_RETRY_COUNT", retry.DefaultConfig.Count, &errs),
			Interval:    envDuration("LOCK_RETRY_INTERVAL", retry.DefaultConfig.Interval, &errs),
			MaxInterval: envDuration("LOCK_RETRY_MAX_INTERVAL", retry.DefaultConfig.MaxInterval, &errs),
			Multiplier:  envFloat("LOCK_RETRY_MULTIPLIER", retry.DefaultConfig.Multiplier, &errs),
		},
		Log: logger.Config{
			Level:  envLevel("LOG_LEVEL", slog.LevelInfo, &errs),
			Format: envString("LOG_FORMAT", "json"),
		},
	}
	if err := errors.Join(errs...); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) Validate() error {
	var errs []error
	if c.DatabaseURL == "" {
		errs = append(errs, errors.New("DATABASE_URL not set"))
	}
	if c.MaxConns < MinConns {
		errs = append(errs, fmt.Errorf("DB_MAX_CONNS must be at least %d, got %d", MinConns, c.MaxConns))
	}
	if _, err := lock.PackTag(c.NamespaceTag); err != nil {
		errs = append(errs, fmt.Errorf("LOCK_NAMESPACE: %w", err))
	}
	if err := c.Retry.Validate(); err != nil {
		errs = append(errs, err)
	}
	switch c.Log.Format {
	case "json", "text":
	default:
		errs = append(errs, fmt.Errorf("LOG_FORMAT must be json or text, got %q", c.Log.Format))
	}
	return errors.Join(errs...)
}

// ValidateServer is Validate plus the headroom the inspection server needs for
// its event subscription.
func (c *Config) ValidateServer() error {
	if err := c.Validate(); err != nil {
		return err
	}
	if c.MaxConns < MinServerConns {
		return fmt.Errorf("DB_MAX_CONNS must be at least %d for the server, got %d", MinServerConns, c.MaxConns)
	}
	return nil
}

// Namespace packs NamespaceTag; call Validate first.
func (c *Config) Namespace() lock.Namespace {
	ns, err := lock.PackTag(c.NamespaceTag)
	if err != nil {
		return lock.DefaultNamespace
	}
	return ns
}

func envString(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func envInt(key string, def int, errs *[]error) int {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		*errs = append(*errs, fmt.Errorf("%s: %w", key, err))
		return def
	}
	return n
}

func envFloat(key string, def float64, errs *[]error) float64 {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		*errs = append(*errs, fmt.Errorf("%s: %w", key, err))
		return def
	}
	return f
}

// envDuration accepts Go durations ("250ms") or a bare number of seconds.
func envDuration(key string, def time.Duration, errs *[]error) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	if secs, err := strconv.Atoi(v); err == nil {
		return time.Duration(secs) * time.Second
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		*errs = append(*errs, fmt.Errorf("%s: %w", key, err))
		return def
	}
	return d
}

func envLevel(key string, def slog.Level, errs *[]error) slog.Level {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	var l slog.Level
	if err := l.UnmarshalText([]byte(strings.ToUpper(v))); err != nil {
		*errs = append(*errs, fmt.Errorf("%s: %w", key, err))
		return def
	}
	return l
}

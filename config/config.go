// Package config loads service settings from an optional YAML file and the
// environment.
package config

import (
	"errors"
	"fmt"
	"net"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/wudi/pdfsnap/fonts"
)

type Config struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	LogLevel string `yaml:"logLevel"`
	// Workers bounds concurrent generations.
	Workers   int    `yaml:"workers"`
	OutputDir string `yaml:"outputDir"`
	// RedisURL switches stored output from OutputDir to Redis.
	RedisURL string        `yaml:"redisUrl"`
	FileTTL  time.Duration `yaml:"fileTtl"`
	// DatabaseURL enables the Postgres verification ledger.
	DatabaseURL string `yaml:"databaseUrl"`
	// JWTSecret enables bearer authentication on the API routes.
	JWTSecret     string        `yaml:"jwtSecret"`
	FooterURL     string        `yaml:"footerUrl"`
	FooterLabel   string        `yaml:"footerLabel"`
	FetchTimeout  time.Duration `yaml:"fetchTimeout"`
	MaxFetchBytes int64         `yaml:"maxFetchBytes"`
	// Lenient repairs damaged templates instead of rejecting them.
	Lenient bool             `yaml:"lenient"`
	Fonts   []fonts.Override `yaml:"fonts"`
}

func Default() Config {
	return Config{
		Host:          "0.0.0.0",
		Port:          6970,
		LogLevel:      "info",
		Workers:       4,
		OutputDir:     "./output",
		FileTTL:       24 * time.Hour,
		FooterLabel:   "Verification Code",
		FetchTimeout:  30 * time.Second,
		MaxFetchBytes: 64 << 20,
	}
}

// Load reads path (skipped when empty) over the defaults and applies
// environment overrides from lookup, which is os.LookupEnv outside tests.
func Load(path string, lookup func(string) (string, bool)) (Config, error) {
	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return cfg, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("parse config %s: %w", path, err)
		}
	}
	if lookup == nil {
		lookup = os.LookupEnv
	}
	if err := applyEnv(&cfg, lookup); err != nil {
		return cfg, err
	}
	return cfg, cfg.Validate()
}

func applyEnv(cfg *Config, lookup func(string) (string, bool)) error {
	strs := map[string]*string{
		"HOST":         &cfg.Host,
		"LOG_LEVEL":    &cfg.LogLevel,
		"OUTPUT_DIR":   &cfg.OutputDir,
		"REDIS_URL":    &cfg.RedisURL,
		"DATABASE_URL": &cfg.DatabaseURL,
		"JWT_SECRET":   &cfg.JWTSecret,
		"FOOTER_URL":   &cfg.FooterURL,
		"FOOTER_LABEL": &cfg.FooterLabel,
	}
	for key, dst := range strs {
		if v, ok := lookup(key); ok {
			*dst = v
		}
	}

	ints := map[string]*int{"PORT": &cfg.Port, "WORKERS": &cfg.Workers}
	for key, dst := range ints {
		if v, ok := lookup(key); ok {
			n, err := strconv.Atoi(v)
			if err != nil {
				return fmt.Errorf("%s: %w", key, err)
			}
			*dst = n
		}
	}

	durations := map[string]*time.Duration{"FETCH_TIMEOUT": &cfg.FetchTimeout, "FILE_TTL": &cfg.FileTTL}
	for key, dst := range durations {
		if v, ok := lookup(key); ok {
			d, err := time.ParseDuration(v)
			if err != nil {
				return fmt.Errorf("%s: %w", key, err)
			}
			*dst = d
		}
	}

	if v, ok := lookup("MAX_FETCH_BYTES"); ok {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return fmt.Errorf("MAX_FETCH_BYTES: %w", err)
		}
		cfg.MaxFetchBytes = n
	}
	if v, ok := lookup("LENIENT"); ok {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("LENIENT: %w", err)
		}
		cfg.Lenient = b
	}
	return nil
}

func (c Config) Validate() error {
	var errs []error
	if c.Port < 1 || c.Port > 65535 {
		errs = append(errs, fmt.Errorf("port %d out of range", c.Port))
	}
	if c.Workers < 1 {
		errs = append(errs, fmt.Errorf("workers must be positive, got %d", c.Workers))
	}
	if c.FetchTimeout <= 0 {
		errs = append(errs, errors.New("fetch timeout must be positive"))
	}
	if c.MaxFetchBytes <= 0 {
		errs = append(errs, errors.New("max fetch bytes must be positive"))
	}
	if c.FileTTL < 0 {
		errs = append(errs, errors.New("file ttl must not be negative"))
	}
	if c.RedisURL == "" && c.OutputDir == "" {
		errs = append(errs, errors.New("either an output dir or a redis url is required"))
	}
	return errors.Join(errs...)
}

// Addr is the listen address.
func (c Config) Addr() string {
	return net.JoinHostPort(c.Host, strconv.Itoa(c.Port))
}

func (c Config) FontConfig() fonts.Config {
	return fonts.Config{Overrides: c.Fonts}
}

package config

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/c2h5oh/datasize"
	"github.com/lmittmann/tint"
	"github.com/thisisjab/docquery/api"
	"github.com/thisisjab/docquery/matcher"
	"github.com/thisisjab/docquery/search"
	"github.com/thisisjab/docquery/storage"
	"go.uber.org/multierr"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Logger   LoggerConfig   `yaml:"logger"`
	Matcher  MatcherConfig  `yaml:"matcher"`
	Search   search.Options `yaml:"search"`
	Document DocumentConfig `yaml:"document"`
	API      api.Config     `yaml:"api"`
	Storage  *StorageConfig `yaml:"storage"`
}

type LoggerConfig struct {
	Level  string `yaml:"level"`
	Type   string `yaml:"type"`
	Output string `yaml:"output"`
}

type MatcherConfig struct {
	Type   string `yaml:"type"`
	Config any    `yaml:"config"`
}

type DocumentConfig struct {
	MaxSize datasize.ByteSize `yaml:"max_size"`
}

type StorageConfig struct {
	Type          string        `yaml:"type"`
	Config        any           `yaml:"config"`
	BufferSize    uint          `yaml:"buffer_size"`
	FlushInterval time.Duration `yaml:"flush_interval"`
}

// VerdictStorage is a verdict store with a connection lifecycle.
type VerdictStorage interface {
	storage.Store
	storage.History
	Connect(ctx context.Context) error
	Close(ctx context.Context) error
}

// Components are the ready to use parts described by a Config.
type Components struct {
	Matcher  matcher.Matcher
	Search   search.Options
	Document DocumentConfig
	API      api.Config

	// Storage is nil when no storage is configured.
	Storage              VerdictStorage
	StorageBufferSize    uint
	StorageFlushInterval time.Duration
}

// Default returns the configuration used when no file is given.
func Default() Config {
	return Config{
		Logger: LoggerConfig{
			Level:  "info",
			Type:   "colored-text",
			Output: "stderr",
		},
		Matcher: MatcherConfig{Type: "substring"},
		Document: DocumentConfig{
			MaxSize: 64 * datasize.MB,
		},
		API: api.Config{
			Addr:            "localhost:8000",
			MaxBodySize:     1 * datasize.MB,
			ShutdownTimeout: 10 * time.Second,
		},
	}
}

// Load reads a YAML file on top of the defaults.
func Load(path string) (Config, error) {
	fileContent, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("cannot read config file content: %w", err)
	}

	cfg := Default()
	if err := yaml.Unmarshal(fileContent, &cfg); err != nil {
		return Config{}, fmt.Errorf("cannot parse config file: %w", err)
	}

	return cfg, nil
}

// Validate reports every problem it finds at once.
func (cfg Config) Validate() error {
	var err error

	switch cfg.Logger.Level {
	case "debug", "info", "warn", "error":
	default:
		err = multierr.Append(err, fmt.Errorf("invalid log level: %s", cfg.Logger.Level))
	}

	switch cfg.Logger.Type {
	case "json", "text", "colored-text":
	default:
		err = multierr.Append(err, fmt.Errorf("invalid log type: %s", cfg.Logger.Type))
	}

	switch cfg.Logger.Output {
	case "", "stdout", "stderr":
	default:
		err = multierr.Append(err, fmt.Errorf("invalid log output: %s", cfg.Logger.Output))
	}

	switch cfg.Matcher.Type {
	case "", "substring", "json", "lua":
	default:
		err = multierr.Append(err, fmt.Errorf("invalid matcher type: %s", cfg.Matcher.Type))
	}

	if cfg.Storage != nil {
		if cfg.Storage.Type != "clickhouse" {
			err = multierr.Append(err, fmt.Errorf("invalid storage type: %s", cfg.Storage.Type))
		}
		if cfg.Storage.BufferSize == 0 && cfg.Storage.FlushInterval == 0 {
			err = multierr.Append(err, errors.New("storage buffer size and flush interval cannot both be zero"))
		}
	}

	return err
}

func (cfg Config) Parse() (*Components, *slog.Logger, error) {
	if err := cfg.Validate(); err != nil {
		return nil, nil, err
	}

	logger, err := parseLoggerConfig(cfg.Logger)
	if err != nil {
		return nil, nil, fmt.Errorf("cannot create logger: %w", err)
	}

	m, err := parseMatcherConfig(cfg.Matcher)
	if err != nil {
		return nil, logger, fmt.Errorf("cannot create matcher: %w", err)
	}

	c := &Components{
		Matcher:  m,
		Search:   cfg.Search,
		Document: cfg.Document,
		API:      cfg.API,
	}

	if cfg.Storage != nil {
		st, err := parseStorageConfig(*cfg.Storage)
		if err != nil {
			return nil, logger, fmt.Errorf("cannot create storage: %w", err)
		}
		c.Storage = st
		c.StorageBufferSize = cfg.Storage.BufferSize
		c.StorageFlushInterval = cfg.Storage.FlushInterval
	}

	return c, logger, nil
}

func parseLoggerConfig(cfg LoggerConfig) (*slog.Logger, error) {
	var handler slog.Handler

	var level slog.Level
	switch cfg.Level {
	case "debug":
		level = slog.LevelDebug
	case "info":
		level = slog.LevelInfo
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		return nil, fmt.Errorf("invalid log level: %s", cfg.Level)
	}

	var w io.Writer = os.Stderr
	if cfg.Output == "stdout" {
		w = os.Stdout
	}

	switch cfg.Type {
	case "json":
		handler = slog.NewJSONHandler(w, &slog.HandlerOptions{Level: level})
	case "text":
		handler = slog.NewTextHandler(w, &slog.HandlerOptions{Level: level})
	case "colored-text":
		handler = tint.NewHandler(w, &tint.Options{Level: level, TimeFormat: time.Kitchen})
	default:
		return nil, fmt.Errorf("invalid log type: %s", cfg.Type)
	}

	return slog.New(handler), nil
}

func parseMatcherConfig(cfg MatcherConfig) (matcher.Matcher, error) {
	switch cfg.Type {
	case "", "substring":
		return matcher.NewSubstring(), nil
	case "json":
		var jsonConfig matcher.JSONConfig
		if err := remarshal(cfg.Config, &jsonConfig); err != nil {
			return nil, fmt.Errorf("cannot parse json matcher config: %w", err)
		}

		m, err := matcher.NewJSON(jsonConfig)
		if err != nil {
			return nil, fmt.Errorf("cannot create json matcher: %w", err)
		}

		return m, nil
	case "lua":
		var luaConfig matcher.LuaConfig
		if err := remarshal(cfg.Config, &luaConfig); err != nil {
			return nil, fmt.Errorf("cannot parse lua matcher config: %w", err)
		}

		m, err := matcher.NewLua(luaConfig)
		if err != nil {
			return nil, fmt.Errorf("cannot create lua matcher: %w", err)
		}

		return m, nil
	default:
		return nil, fmt.Errorf("invalid matcher type: %s", cfg.Type)
	}
}

func parseStorageConfig(cfg StorageConfig) (VerdictStorage, error) {
	switch cfg.Type {
	case "clickhouse":
		var clickHouseConfig storage.ClickHouseStorageConfig

		if err := remarshal(cfg.Config, &clickHouseConfig); err != nil {
			return nil, fmt.Errorf("cannot parse clickhouse storage config: %w", err)
		}

		s, err := storage.NewClickHouseStorage(clickHouseConfig)
		if err != nil {
			return nil, fmt.Errorf("cannot create clickhouse storage: %w", err)
		}

		return s, nil

	default:
		return nil, fmt.Errorf("invalid storage type: %s", cfg.Type)
	}
}

// remarshal takes an input value, marshals it to YAML, and then unmarshals it into a new value of the same type.
// This is useful for converting generic interfaces (like map[string]any) into concrete struct types.
// The output parameter must be a pointer to the target type.
func remarshal(input any, output any) error {
	if input == nil {
		return nil
	}

	yamlBytes, err := yaml.Marshal(input)
	if err != nil {
		return fmt.Errorf("failed to marshal to YAML: %w", err)
	}

	if err := yaml.Unmarshal(yamlBytes, output); err != nil {
		return fmt.Errorf("failed to unmarshal from YAML: %w", err)
	}

	return nil
}

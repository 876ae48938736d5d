// Package config loads writer and reader settings from YAML.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	"gopkg.in/yaml.v3"

	"github.com/ivan-cunha/aspic-format/internal/compression"
	"github.com/ivan-cunha/aspic-format/internal/logging"
	"github.com/ivan-cunha/aspic-format/internal/metrics"
	"github.com/ivan-cunha/aspic-format/internal/storage"
)

var ErrInvalidConfig = errors.New("invalid config")

type Config struct {
	RowGroupSize int            `yaml:"row_group_size"`
	Codec        string         `yaml:"codec"`
	Parallelism  int            `yaml:"parallelism"`
	Log          logging.Config `yaml:"log"`
}

func Default() Config {
	return Config{
		RowGroupSize: storage.DefaultRowGroupSize,
		Codec:        compression.NameLZ4,
		Parallelism:  storage.DefaultParallelism,
		Log:          logging.DefaultConfig(),
	}
}

// Load reads a YAML file over the defaults. ${VAR} references are replaced
// with environment values before parsing.
func Load(path string) (Config, error) {
	data, err := os.ReadFile(path) //nolint:gosec // path is chosen by the caller
	if err != nil {
		return Config{}, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := Default()
	if err := yaml.Unmarshal([]byte(substituteEnvVars(string(data))), &cfg); err != nil {
		return Config{}, fmt.Errorf("failed to parse YAML: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Save writes cfg as YAML.
func Save(path string, cfg Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal YAML: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil { //nolint:gosec
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

func (c Config) Validate() error {
	if c.RowGroupSize <= 0 {
		return fmt.Errorf("%w: row_group_size must be positive, got %d", ErrInvalidConfig, c.RowGroupSize)
	}
	if c.Parallelism <= 0 {
		return fmt.Errorf("%w: parallelism must be positive, got %d", ErrInvalidConfig, c.Parallelism)
	}
	if _, err := compression.ByName(c.Codec); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	return nil
}

// Options converts the config into storage options. Metrics are registered
// on reg when it is not nil.
func (c Config) Options(reg prometheus.Registerer) ([]storage.Option, error) {
	if err := c.Validate(); err != nil {
		return nil, err
	}
	codec, err := compression.ByName(c.Codec)
	if err != nil {
		return nil, err
	}
	logger, err := logging.New(c.Log)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}

	opts := []storage.Option{
		storage.WithRowGroupSize(c.RowGroupSize),
		storage.WithCodec(codec),
		storage.WithParallelism(c.Parallelism),
		storage.WithLogger(logger),
	}
	if reg != nil {
		opts = append(opts, storage.WithMetrics(metrics.New(reg)))
	}
	return opts, nil
}

// substituteEnvVars replaces ${VAR_NAME} with environment variable values.
func substituteEnvVars(content string) string {
	var b strings.Builder
	for {
		start := strings.Index(content, "${")
		if start == -1 {
			break
		}
		end := strings.Index(content[start:], "}")
		if end == -1 {
			break
		}
		end += start

		b.WriteString(content[:start])
		b.WriteString(os.Getenv(content[start+2 : end]))
		content = content[end+1:]
	}
	b.WriteString(content)
	return b.String()
}

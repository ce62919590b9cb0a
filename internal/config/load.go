package config

import (
	"errors"
	"fmt"
	"os"
	"slices"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"go.uber.org/zap/zapcore"
	"gopkg.in/yaml.v2"
)

// Defaults returns the configuration used when nothing else is given.
func Defaults() Config {
	return Config{
		InputDir:  ".",
		Pattern:   "*.csv",
		OutputDir: "out",
		ReadName:  "R.csv",
		WriteName: "W.csv",
		LogLevel:  "info",
	}
}

// LoadYAML reads a YAML config file. Unknown keys are rejected.
func LoadYAML(path string) (Config, error) {
	var cfg Config
	raw, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}
	if err := yaml.UnmarshalStrict(raw, &cfg); err != nil {
		return cfg, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

// LookupFunc resolves an environment variable, like os.LookupEnv.
type LookupFunc func(key string) (string, bool)

// WithDotEnv returns a lookup that consults next first and falls back to the
// variables defined in the .env file at path. A missing file is not an error.
func WithDotEnv(path string, next LookupFunc) (LookupFunc, error) {
	vars, err := godotenv.Read(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return next, nil
		}
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return func(key string) (string, bool) {
		if v, ok := next(key); ok {
			return v, true
		}
		v, ok := vars[key]
		return v, ok
	}, nil
}

// FromEnv reads the TRACESORT_* variables. Unset variables leave fields zero.
func FromEnv(lookup LookupFunc) (Config, error) {
	var cfg Config
	str := func(key string, dst *string) {
		if v, ok := lookup(key); ok {
			*dst = strings.TrimSpace(v)
		}
	}
	str(EnvInputDir, &cfg.InputDir)
	str(EnvPattern, &cfg.Pattern)
	str(EnvOutputDir, &cfg.OutputDir)
	str(EnvReadName, &cfg.ReadName)
	str(EnvWriteName, &cfg.WriteName)
	str(EnvArchive, &cfg.Archive)
	str(EnvLogLevel, &cfg.LogLevel)
	if v, ok := lookup(EnvWorkers); ok && strings.TrimSpace(v) != "" {
		n, err := strconv.Atoi(strings.TrimSpace(v))
		if err != nil {
			return cfg, fmt.Errorf("%s: %w", EnvWorkers, err)
		}
		cfg.Workers = n
	}
	return cfg, nil
}

// Merge overlays over on base. Zero fields in over do not override.
func Merge(base, over Config) Config {
	out := base
	if over.InputDir != "" {
		out.InputDir = over.InputDir
	}
	if over.Pattern != "" {
		out.Pattern = over.Pattern
	}
	if len(over.Sources) > 0 {
		out.Sources = slices.Clone(over.Sources)
	}
	if over.OutputDir != "" {
		out.OutputDir = over.OutputDir
	}
	if over.ReadName != "" {
		out.ReadName = over.ReadName
	}
	if over.WriteName != "" {
		out.WriteName = over.WriteName
	}
	if over.Workers != 0 {
		out.Workers = over.Workers
	}
	if over.Archive != "" {
		out.Archive = over.Archive
	}
	if over.KeepCompressed {
		out.KeepCompressed = true
	}
	if over.LogLevel != "" {
		out.LogLevel = over.LogLevel
	}
	return out
}

// Validate checks a merged configuration.
func (c Config) Validate() error {
	var errs []error
	if c.InputDir == "" && len(c.Sources) == 0 {
		errs = append(errs, errors.New("no input: set input_dir or sources"))
	}
	if c.OutputDir == "" {
		errs = append(errs, errors.New("output_dir is empty"))
	}
	if c.ReadName != "" && c.ReadName == c.WriteName {
		errs = append(errs, fmt.Errorf("read_name and write_name are both %q", c.ReadName))
	}
	if c.Workers < 0 {
		errs = append(errs, fmt.Errorf("workers must not be negative, got %d", c.Workers))
	}
	if _, err := zapcore.ParseLevel(c.LogLevel); err != nil {
		errs = append(errs, fmt.Errorf("log_level: %w", err))
	}
	return errors.Join(errs...)
}

// Level returns the parsed log level, defaulting to info.
func (c Config) Level() zapcore.Level {
	lvl, err := zapcore.ParseLevel(c.LogLevel)
	if err != nil {
		return zapcore.InfoLevel
	}
	return lvl
}

package config

import (
	"fmt"

	"github.com/spf13/pflag"
)

// Flags holds the flag set and the bound values of the tracesort command.
type Flags struct {
	set *pflag.FlagSet

	configPath string
	envFile    string
	cfg        Config
}

// NewFlags defines the command-line flags on a new flag set named name.
func NewFlags(name string) *Flags {
	f := &Flags{set: pflag.NewFlagSet(name, pflag.ContinueOnError)}
	fs := f.set
	fs.StringVarP(&f.configPath, "config", "c", "", "YAML config file")
	fs.StringVar(&f.envFile, "env-file", ".env", "dotenv file with TRACESORT_* defaults")
	fs.StringVarP(&f.cfg.InputDir, "input", "i", "", "directory holding the source trace files")
	fs.StringVarP(&f.cfg.Pattern, "pattern", "p", "", "glob selecting source files inside --input")
	fs.StringVarP(&f.cfg.OutputDir, "output", "o", "", "directory receiving the stream files")
	fs.StringVar(&f.cfg.ReadName, "read-name", "", "file name of the read stream")
	fs.StringVar(&f.cfg.WriteName, "write-name", "", "file name of the write stream")
	fs.IntVarP(&f.cfg.Workers, "workers", "w", 0, "worker count (0 = one per CPU)")
	fs.StringVarP(&f.cfg.Archive, "archive", "a", "", "tar archive to unpack into --input first")
	fs.BoolVar(&f.cfg.KeepCompressed, "keep-compressed", false, "keep .gz/.zst sources after decompression")
	fs.StringVar(&f.cfg.LogLevel, "log-level", "", "debug, info, warn or error")
	return f
}

// FlagSet exposes the underlying flag set, e.g. for usage output.
func (f *Flags) FlagSet() *pflag.FlagSet {
	return f.set
}

// Parse parses args. Positional arguments are taken as explicit source files.
func (f *Flags) Parse(args []string) error {
	if err := f.set.Parse(args); err != nil {
		return err
	}
	f.cfg.Sources = f.set.Args()
	return nil
}

// Resolve merges defaults, the config file, the environment and the parsed
// flags, then validates the result.
func (f *Flags) Resolve(lookup LookupFunc) (Config, error) {
	cfg := Defaults()

	if f.configPath != "" {
		fileCfg, err := LoadYAML(f.configPath)
		if err != nil {
			return Config{}, fmt.Errorf("config file: %w", err)
		}
		cfg = Merge(cfg, fileCfg)
	}

	if f.envFile != "" {
		var err error
		if lookup, err = WithDotEnv(f.envFile, lookup); err != nil {
			return Config{}, fmt.Errorf("env file: %w", err)
		}
	}
	envCfg, err := FromEnv(lookup)
	if err != nil {
		return Config{}, fmt.Errorf("environment: %w", err)
	}
	cfg = Merge(cfg, envCfg)

	cfg = Merge(cfg, f.cfg)
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Package config assembles the tracesort command configuration from
// defaults, an optional YAML file, environment variables (optionally seeded
// from a .env file) and command-line flags, in that order of precedence.
package config

// Config is the full command configuration.
type Config struct {
	// InputDir is scanned for files matching Pattern when Sources is empty.
	InputDir string   `yaml:"input_dir"`
	Pattern  string   `yaml:"pattern"`
	Sources  []string `yaml:"sources"`

	OutputDir string `yaml:"output_dir"`
	ReadName  string `yaml:"read_name"`
	WriteName string `yaml:"write_name"`

	// Workers is the requested worker count; 0 means one per CPU.
	Workers int `yaml:"workers"`

	// Archive is an optional tar archive unpacked into InputDir before the run.
	Archive string `yaml:"archive"`
	// KeepCompressed keeps .gz/.zst sources after decompression.
	KeepCompressed bool `yaml:"keep_compressed"`

	LogLevel string `yaml:"log_level"`
}

// Environment variable names.
const (
	EnvInputDir  = "TRACESORT_INPUT_DIR"
	EnvPattern   = "TRACESORT_PATTERN"
	EnvOutputDir = "TRACESORT_OUTPUT_DIR"
	EnvReadName  = "TRACESORT_READ_NAME"
	EnvWriteName = "TRACESORT_WRITE_NAME"
	EnvWorkers   = "TRACESORT_WORKERS"
	EnvArchive   = "TRACESORT_ARCHIVE"
	EnvLogLevel  = "TRACESORT_LOG_LEVEL"
)

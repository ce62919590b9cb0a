package tracesort

import (
	"io"

	"go.uber.org/zap"
)

const (
	// DefaultReadName and DefaultWriteName are the output file names inside
	// the output directory.
	DefaultReadName  = "R.csv"
	DefaultWriteName = "W.csv"
)

// Option is a functional option for configuring an Engine.
type Option func(*engineConfig)

type engineConfig struct {
	workers  int // 0 means one per CPU
	logger   *zap.Logger
	progress io.Writer
	names    [NumStreams]string
}

func defaultEngineConfig() *engineConfig {
	return &engineConfig{
		logger:   zap.NewNop(),
		progress: io.Discard,
		names:    [NumStreams]string{Reads: DefaultReadName, Writes: DefaultWriteName},
	}
}

// WithWorkers requests n parallel workers. The engine never uses more than
// the CPU count or half the number of source files (but at least one).
// Zero or negative means one per CPU.
func WithWorkers(n int) Option {
	return func(c *engineConfig) {
		c.workers = n
	}
}

// WithLogger sets the structured logger. Nil keeps the no-op default.
func WithLogger(l *zap.Logger) Option {
	return func(c *engineConfig) {
		if l != nil {
			c.logger = l
		}
	}
}

// WithProgress sets where the per-phase timing lines are printed.
// Default discards them.
func WithProgress(w io.Writer) Option {
	return func(c *engineConfig) {
		if w != nil {
			c.progress = w
		}
	}
}

// WithOutputNames overrides the file names of the read and write streams.
// Empty names keep the defaults.
func WithOutputNames(read, write string) Option {
	return func(c *engineConfig) {
		if read != "" {
			c.names[Reads] = read
		}
		if write != "" {
			c.names[Writes] = write
		}
	}
}

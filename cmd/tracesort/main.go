// Tracesort reorganizes a directory of block-I/O trace files into one read
// stream and one write stream, each sorted by size and then timestamp.
//
// Usage:
//
//	tracesort -i traces -o out
//	tracesort -a traces.tar.gz -i traces -o out -w 8
//	tracesort -o out day1.csv day2.csv
//
// Configuration is merged from defaults, a YAML file (-c), TRACESORT_*
// environment variables (optionally from .env) and flags, later winning.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/pflag"
	"go.uber.org/zap"

	"github.com/tamirms/tracesort"
	"github.com/tamirms/tracesort/internal/config"
	"github.com/tamirms/tracesort/unpack"
)

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	flags := config.NewFlags("tracesort")
	if err := flags.Parse(args); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return 0
		}
		fmt.Fprintln(os.Stderr, err)
		return 2
	}
	cfg, err := flags.Resolve(os.LookupEnv)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 2
	}

	logger, err := newLogger(cfg)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	defer func() { _ = logger.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	res, err := sortTraces(ctx, cfg, logger)
	if err != nil {
		logger.Error("run failed", zap.Error(err))
		fmt.Fprintf(os.Stderr, "tracesort: %v\n", err)
		return 1
	}
	for st := range tracesort.Stream(tracesort.NumStreams) {
		s := res.Streams[st]
		logger.Info("output",
			zap.Stringer("stream", st),
			zap.String("path", s.Path),
			zap.Uint64("records", s.Records),
			zap.Int("sizes", len(s.Histogram)),
			zap.Int64("bytes", s.Bytes),
			zap.String("xxhash64", fmt.Sprintf("%016x", s.Checksum)))
	}
	return 0
}

func newLogger(cfg config.Config) (*zap.Logger, error) {
	zc := zap.NewProductionConfig()
	zc.Level = zap.NewAtomicLevelAt(cfg.Level())
	zc.OutputPaths = []string{"stderr"}
	zc.Encoding = "console"
	zc.DisableStacktrace = true
	return zc.Build()
}

func sortTraces(ctx context.Context, cfg config.Config, logger *zap.Logger) (*tracesort.Result, error) {
	progress := os.Stdout
	sources := cfg.Sources

	// Sources given explicitly are used as they are; a directory is first
	// unpacked and then discovered.
	if len(sources) == 0 {
		_, err := tracesort.TimePhase(ctx, progress, logger, tracesort.PhaseUnpack, func(ctx context.Context) error {
			_, err := unpack.Run(ctx, unpack.Options{
				Dir:     cfg.InputDir,
				Archive: cfg.Archive,
				Workers: max(cfg.Workers, 1),
				Keep:    cfg.KeepCompressed,
				Logger:  logger,
			})
			return err
		})
		if err != nil {
			return nil, err
		}
		if sources, err = tracesort.DiscoverSources(cfg.InputDir, cfg.Pattern); err != nil {
			return nil, err
		}
	}

	eng, err := tracesort.New(sources, cfg.OutputDir,
		tracesort.WithWorkers(cfg.Workers),
		tracesort.WithLogger(logger),
		tracesort.WithProgress(progress),
		tracesort.WithOutputNames(cfg.ReadName, cfg.WriteName),
	)
	if err != nil {
		return nil, err
	}
	defer func() { _ = eng.Close() }()
	return eng.Run(ctx)
}

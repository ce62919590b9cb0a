package tracesort

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"go.uber.org/zap"
)

// Phase names as they appear in the progress output.
const (
	PhaseUnpack  = "Unzipping source file"
	PhaseScan    = "Collecting statistics"
	PhaseExtract = "Abstractively reading"
	PhaseSort    = "Sorting lines by heap"
	PhaseWrite   = "Writing and attaching"
)

// PhaseTiming is the wall-clock duration of one completed phase.
type PhaseTiming struct {
	Name     string
	Duration time.Duration
}

// FormatPhaseLine renders the progress line for a finished phase, e.g.
//
//	 Collecting statistics...finished. Takes  0.0123456 secs.
//
// The fractional part is in units of 100ns.
func FormatPhaseLine(name string, d time.Duration) string {
	return phasePrefix(name) + phaseSuffix(d)
}

func phasePrefix(name string) string {
	return fmt.Sprintf(" %21s...", name)
}

func phaseSuffix(d time.Duration) string {
	secs := int64(d / time.Second)
	frac := int64(d%time.Second) / 100
	return fmt.Sprintf("finished. Takes %2d.%07d secs.\n", secs, frac)
}

// TimePhase runs fn as the named phase: it prints the phase prefix before fn
// starts and completes the line when fn returns. A failed phase prints
// "failed." and its error is prefixed with the lower-cased phase name.
func TimePhase(ctx context.Context, progress io.Writer, logger *zap.Logger, name string, fn func(context.Context) error) (PhaseTiming, error) {
	if progress == nil {
		progress = io.Discard
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if err := ctx.Err(); err != nil {
		return PhaseTiming{}, err
	}

	_, _ = io.WriteString(progress, phasePrefix(name))
	logger.Debug("phase started", zap.String("phase", name))
	start := time.Now()
	err := fn(ctx)
	d := time.Since(start)
	if err != nil {
		_, _ = io.WriteString(progress, "failed.\n")
		logger.Error("phase failed", zap.String("phase", name), zap.Duration("elapsed", d), zap.Error(err))
		return PhaseTiming{}, fmt.Errorf("%s: %w", strings.ToLower(name), err)
	}
	_, _ = io.WriteString(progress, phaseSuffix(d))
	logger.Info("phase finished", zap.String("phase", name), zap.Duration("elapsed", d))
	return PhaseTiming{Name: name, Duration: d}, nil
}

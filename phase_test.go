package tracesort

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func TestFormatPhaseLine(t *testing.T) {
	tests := []struct {
		name string
		d    time.Duration
		want string
	}{
		{PhaseScan, 12345600 * time.Nanosecond, " Collecting statistics...finished. Takes  0.0123456 secs.\n"},
		{PhaseSort, 3*time.Second + 250*time.Millisecond, " Sorting lines by heap...finished. Takes  3.2500000 secs.\n"},
		{"short", 42 * time.Second, "                 short...finished. Takes 42.0000000 secs.\n"},
	}
	for _, tc := range tests {
		if got := FormatPhaseLine(tc.name, tc.d); got != tc.want {
			t.Errorf("FormatPhaseLine(%q, %v) = %q, want %q", tc.name, tc.d, got, tc.want)
		}
	}
}

func TestTimePhase(t *testing.T) {
	var progress bytes.Buffer
	core, logs := observer.New(zap.InfoLevel)

	timing, err := TimePhase(context.Background(), &progress, zap.New(core), PhaseExtract, func(context.Context) error {
		return nil
	})
	if err != nil {
		t.Fatal(err)
	}
	if timing.Name != PhaseExtract {
		t.Fatalf("timing name %q", timing.Name)
	}
	if got, want := progress.String(), FormatPhaseLine(PhaseExtract, timing.Duration); got != want {
		t.Fatalf("progress %q, want %q", got, want)
	}
	if logs.FilterMessage("phase finished").Len() != 1 {
		t.Fatalf("expected one phase finished log entry, got %v", logs.All())
	}
}

func TestTimePhaseFailure(t *testing.T) {
	var progress bytes.Buffer
	boom := errors.New("boom")
	_, err := TimePhase(context.Background(), &progress, nil, PhaseWrite, func(context.Context) error {
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("got %v, want wrapped boom", err)
	}
	if !strings.HasPrefix(err.Error(), "writing and attaching: ") {
		t.Fatalf("error %q lacks phase prefix", err)
	}
	if !strings.HasSuffix(progress.String(), "failed.\n") {
		t.Fatalf("progress %q", progress.String())
	}
}

func TestTimePhaseCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	ran := false
	_, err := TimePhase(ctx, nil, nil, PhaseScan, func(context.Context) error {
		ran = true
		return nil
	})
	if !errors.Is(err, context.Canceled) || ran {
		t.Fatalf("got err=%v ran=%v", err, ran)
	}
}

// Package errors defines all exported error sentinels for the tracesort engine.
//
// This is the single source of truth for error values. The top-level
// tracesort package, the internal line parser and the collaborator packages
// import from here, so errors.Is checks work across package boundaries.
package errors

import (
	"errors"
	"fmt"
)

// Engine errors
var (
	ErrNoSources     = errors.New("tracesort: no source files")
	ErrEngineClosed  = errors.New("tracesort: engine is closed")
	ErrCountMismatch = errors.New("tracesort: record count mismatch")
	ErrSourceChanged = errors.New("tracesort: source file changed during run")
)

// Fatal run errors (see FormatError for the per-line form of ErrFormat)
var (
	ErrFormat   = errors.New("tracesort: malformed trace line")
	ErrResource = errors.New("tracesort: resource unavailable")
)

// Collaborator errors
var (
	ErrUnsupportedArchive = errors.New("tracesort: unsupported archive format")
	ErrMissingPhase       = errors.New("tracesort: phase timing not found")
)

// FormatError identifies the source line that failed to parse.
// It unwraps to the parser's error, which itself wraps ErrFormat.
type FormatError struct {
	Path string
	Line int // 1-based, the header is line 1
	Raw  string
	Err  error
}

func (e *FormatError) Error() string {
	return fmt.Sprintf("%s:%d: %v (line %q)", e.Path, e.Line, e.Err, e.Raw)
}

func (e *FormatError) Unwrap() error {
	return e.Err
}

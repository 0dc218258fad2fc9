// Package errors turns command failures into a message, an optional hint
// and an exit code.
package errors

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/julianstephens/devotional/internal/fetcher"
	"github.com/julianstephens/devotional/internal/logger"
	"github.com/julianstephens/devotional/internal/storage"
)

const (
	ExitFailure        = 1
	ExitNotInitialized = 2
	// ExitUpstream means the devotional source could not be reached or read
	ExitUpstream = 3
)

// Format formats an error message with a consistent "Error: " prefix
func Format(err error) string {
	if err == nil {
		return ""
	}
	return fmt.Sprintf("Error: %v", err)
}

// Formatf is Format for a message built from a format string
func Formatf(format string, args ...any) string {
	return fmt.Sprintf("Error: "+format, args...)
}

// ExitCode classifies err
func ExitCode(err error) int {
	switch {
	case errors.Is(err, storage.ErrNotInitialized):
		return ExitNotInitialized
	case errors.Is(err, fetcher.ErrNoConnectivity),
		errors.Is(err, fetcher.ErrTimeout),
		errors.Is(err, fetcher.ErrHTTPStatus),
		errors.Is(err, fetcher.ErrDecode):
		return ExitUpstream
	}
	return ExitFailure
}

// Hint suggests what to do next, or returns "" when there is nothing useful
// to add.
func Hint(err error) string {
	switch {
	case errors.Is(err, storage.ErrNotInitialized):
		return "Run 'devotional init' to create it."
	case errors.Is(err, fetcher.ErrNoConnectivity), errors.Is(err, fetcher.ErrTimeout):
		return "Cached devotionals are unchanged. Try again when the connection is back."
	case errors.Is(err, fetcher.ErrHTTPStatus), errors.Is(err, fetcher.ErrDecode):
		return "Cached devotionals are unchanged. Check --base-url."
	}
	return ""
}

// Report writes the formatted error and its hint to w and returns the exit
// code for err.
func Report(w io.Writer, err error) int {
	if err == nil {
		return 0
	}
	fmt.Fprintln(w, Format(err))
	if hint := Hint(err); hint != "" {
		fmt.Fprintln(w, hint)
	}
	return ExitCode(err)
}

// Fatal logs err, reports it on stderr and exits with its exit code
func Fatal(err error) {
	if err != nil {
		logger.Error("Command execution failed", "error", err)
		os.Exit(Report(os.Stderr, err))
	}
}

// Fatalf logs and reports a formatted message, then exits with ExitFailure
func Fatalf(format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	logger.Error("Command execution failed", "error", msg)
	fmt.Fprintln(os.Stderr, Formatf(format, args...))
	os.Exit(ExitFailure)
}

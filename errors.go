// FILE: errors.go
// Package main – Sentinel errors and error-kind helpers.
//
// The engine distinguishes a handful of error kinds (see spec §7):
// input invalid and unexpected failures are real Go errors returned to
// the caller; data-unavailable/data-corrupt/order-rejected/liquidation
// are NOT errors — they're reflected in RunResult/Fill fields instead.
package main

import (
	"errors"
	"fmt"
)

// ErrInvalidConfig marks a configuration contradiction caught before
// any data is loaded (e.g. start >= end, negative capital).
var ErrInvalidConfig = errors.New("backtest: invalid configuration")

// ErrRunCancelled names the cancellation kind. Engine.Run does not
// return it: a cancelled run returns its partial RunResult (Partial set)
// with a nil error.
var ErrRunCancelled = errors.New("backtest: run cancelled")

// invalidConfigf wraps ErrInvalidConfig with a formatted reason so
// callers can both errors.Is(err, ErrInvalidConfig) and read why.
func invalidConfigf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidConfig, fmt.Sprintf(format, args...))
}

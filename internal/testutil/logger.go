// Package testutil holds fakes shared by package tests.
package testutil

import (
	"io"
	"log/slog"
)

// NopLogger returns a logger that discards everything, debug included, so
// log call sites still run under test.
func NopLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{Level: slog.LevelDebug}))
}

// Package common provides shared utilities used across all services,
// including structured logging setup and build version information.
package common

import (
	"log/slog"
	"os"
)

// LoggingOpts configures the process-wide structured logger.
type LoggingOpts struct {
	// Debug lowers the handler level to slog.LevelDebug.
	Debug bool

	// JSON selects JSON output instead of human-readable text.
	JSON bool

	// Service is attached as a "service" attribute on every record when set.
	Service string

	// Version is attached as a "version" attribute on every record when set.
	Version string
}

// SetupLogger builds the root slog.Logger that all components derive
// their loggers from.
func SetupLogger(opts *LoggingOpts) (log *slog.Logger) {
	logLevel := slog.LevelInfo
	if opts.Debug {
		logLevel = slog.LevelDebug
	}

	if opts.JSON {
		log = slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: logLevel}))
	} else {
		log = slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: logLevel}))
	}

	if opts.Service != "" {
		log = log.With("service", opts.Service)
	}
	if opts.Version != "" {
		log = log.With("version", opts.Version)
	}

	return log
}

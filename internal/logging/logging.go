// Package logging provides stepgraph's logging infrastructure built on
// charmbracelet/log.
//
// It wraps charmbracelet/log to provide a centralized logger factory with
// component prefixes, level configuration, and stderr-only output. All log
// output goes to stderr; stdout is reserved for run results (JSON, plans).
//
// Usage:
//
//	// During CLI initialization (PersistentPreRun):
//	logging.Setup(verbose, quiet, jsonFormat)
//
//	// In each package:
//	logger := logging.New(logging.ComponentEngine)
//	logger.Info("step committed", "step", 3)
//
// Setup must be called before New to ensure child loggers inherit the correct
// level and formatter settings. The charmbracelet/log library creates child
// loggers by copying state at creation time; later changes to the default
// logger do not propagate to existing children.
package logging

import (
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/charmbracelet/log"
)

// Level aliases for charmbracelet/log levels.
// Re-exported so consumers do not need to import charmbracelet/log directly.
const (
	LevelDebug = log.DebugLevel
	LevelInfo  = log.InfoLevel
	LevelWarn  = log.WarnLevel
	LevelError = log.ErrorLevel
	LevelFatal = log.FatalLevel
)

// Component prefixes used across stepgraph.
const (
	ComponentEngine = "engine"
	ComponentConfig = "config"
	ComponentCLI    = "cli"
	ComponentTUI    = "tui"
	ComponentStore  = "checkpoint"
)

// Environment variables read by FromEnv.
const (
	EnvVerbose   = "STEPGRAPH_VERBOSE"
	EnvQuiet     = "STEPGRAPH_QUIET"
	EnvLogFormat = "STEPGRAPH_LOG_FORMAT"
)

// Setup configures the global logging defaults. Call once during CLI initialization.
//
// Parameters:
//   - verbose: sets level to Debug (shows all messages)
//   - quiet: sets level to Error (hides Info and Warn messages)
//   - jsonFormat: switches to JSON formatter (NDJSON, suitable for CI/log aggregation)
//
// If both verbose and quiet are set, quiet wins.
//
// All loggers write to stderr to keep stdout clean for structured output.
func Setup(verbose, quiet, jsonFormat bool) {
	level := log.InfoLevel
	if verbose {
		level = log.DebugLevel
	}
	if quiet {
		level = log.ErrorLevel
	}

	log.SetLevel(level)
	log.SetOutput(os.Stderr)

	if jsonFormat {
		log.SetFormatter(log.JSONFormatter)
	} else {
		log.SetFormatter(log.TextFormatter)
	}
}

// Settings are the logging switches that can come from flags or the
// environment.
type Settings struct {
	Verbose bool
	Quiet   bool
	JSON    bool
}

// FromEnv reads STEPGRAPH_VERBOSE, STEPGRAPH_QUIET and STEPGRAPH_LOG_FORMAT
// through lookup (os.LookupEnv when nil). Boolean variables accept anything
// strconv.ParseBool does; unparsable values are treated as unset.
func FromEnv(lookup func(string) (string, bool)) Settings {
	if lookup == nil {
		lookup = os.LookupEnv
	}
	return Settings{
		Verbose: envBool(lookup, EnvVerbose),
		Quiet:   envBool(lookup, EnvQuiet),
		JSON:    envValue(lookup, EnvLogFormat) == "json",
	}
}

func envBool(lookup func(string) (string, bool), key string) bool {
	b, err := strconv.ParseBool(envValue(lookup, key))
	return err == nil && b
}

func envValue(lookup func(string) (string, bool), key string) string {
	v, ok := lookup(key)
	if !ok {
		return ""
	}
	return strings.ToLower(strings.TrimSpace(v))
}

// New creates a logger with the given component prefix.
//
// The returned logger inherits global level and output settings from the
// default logger at creation time. Call Setup before New to ensure the
// correct configuration is inherited.
//
// An empty component string produces a logger without a prefix.
func New(component string) *log.Logger {
	return log.WithPrefix(component)
}

// SetOutput overrides the output writer for the default logger.
//
// This is primarily useful for testing, where output can be captured
// with a bytes.Buffer. Remember to restore the original output using
// t.Cleanup.
func SetOutput(w io.Writer) {
	log.SetOutput(w)
}

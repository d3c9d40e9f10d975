// Package logging sets up the run logger and writes the per-file analysis
// reports and console summaries.
package logging

import (
	"fmt"
	"io"
	"os"

	"github.com/sirupsen/logrus"
)

// DebugLogName is the log file written while the TUI owns the terminal
const DebugLogName = "accentprep-debug.log"

// ParseLevel validates a level name (panic, fatal, error, warn, info, debug, trace)
func ParseLevel(level string) (logrus.Level, error) {
	lvl, err := logrus.ParseLevel(level)
	if err != nil {
		return 0, fmt.Errorf("invalid log level %q: %w", level, err)
	}
	return lvl, nil
}

// NewLogger returns a text logger writing to out at the given level
func NewLogger(out io.Writer, level string) (*logrus.Logger, error) {
	lvl, err := ParseLevel(level)
	if err != nil {
		return nil, err
	}

	logger := logrus.New()
	logger.SetOutput(out)
	logger.SetLevel(lvl)
	logger.SetFormatter(&logrus.TextFormatter{
		FullTimestamp:   true,
		TimestampFormat: "15:04:05.000",
		DisableColors:   out != os.Stderr,
	})
	return logger, nil
}

// OpenDebugLog creates (or truncates) the debug log file in the working directory
func OpenDebugLog() (*os.File, error) {
	f, err := os.Create(DebugLogName)
	if err != nil {
		return nil, fmt.Errorf("failed to create debug log: %w", err)
	}
	return f, nil
}

package build

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/btcsuite/btclog"
)

// LogWriter is a stub type whose behavior can be changed using the build
// flags "stdlog" and "nolog". The default behavior is to write to both stdout
// and the log rotator pipe.
type LogWriter struct {
	// RotatorPipe is the write-end pipe for writing to the log rotator.
	RotatorPipe *io.PipeWriter

	// Stdout is where log lines are mirrored to, os.Stdout by default.
	Stdout io.Writer
}

// Write writes the data in p to standard out and the log rotator.
func (w *LogWriter) Write(p []byte) (n int, err error) {
	if w.Stdout != nil {
		_, _ = w.Stdout.Write(p)
	}
	if w.RotatorPipe != nil {
		_, _ = w.RotatorPipe.Write(p)
	}

	return len(p), nil
}

// SubLoggers is a type that holds a map of subsystem loggers keyed by their
// subsystem name.
type SubLoggers map[string]btclog.Logger

// LeveledSubLogger provides the ability to retrieve the subsystem loggers of
// a logger and set their log levels individually or all at once.
type LeveledSubLogger interface {
	// SubLoggers returns the map of all registered subsystem loggers.
	SubLoggers() SubLoggers

	// SupportedSubsystems returns a slice of strings containing the names
	// of the supported subsystems. Should ideally correspond to the keys
	// of the subsystem logger map and be sorted.
	SupportedSubsystems() []string

	// SetLogLevel assigns an individual subsystem logger a new log level.
	SetLogLevel(subsystemID string, logLevel string)

	// SetLogLevels assigns all subsystem loggers the same new log level.
	SetLogLevels(logLevel string)
}

// ParseAndSetDebugLevels attempts to parse the specified debug level and set
// the levels accordingly on the given logger. An appropriate error is
// returned if anything is invalid.
func ParseAndSetDebugLevels(level string, logger LeveledSubLogger) error {
	// When the specified string doesn't have any delimiters, treat it as
	// the log level for all subsystems.
	if !strings.Contains(level, ",") && !strings.Contains(level, "=") {
		// Validate debug log level.
		if !validLogLevel(level) {
			str := "the specified debug level [%v] is invalid"
			return fmt.Errorf(str, level)
		}

		// Change the logging level for all subsystems.
		logger.SetLogLevels(level)

		return nil
	}

	// Split the specified string into subsystem/level pairs while
	// detecting issues and update the log levels accordingly.
	for _, logLevelPair := range strings.Split(level, ",") {
		if !strings.Contains(logLevelPair, "=") {
			str := "the specified debug level contains an " +
				"invalid subsystem/level pair [%v]"
			return fmt.Errorf(str, logLevelPair)
		}

		// Extract the specified subsystem and log level.
		fields := strings.Split(logLevelPair, "=")
		if len(fields) != 2 {
			str := "the specified debug level has an invalid " +
				"format [%v] -- use format subsystem1=level1," +
				"subsystem2=level2"
			return fmt.Errorf(str, logLevelPair)
		}
		subsysID, logLevel := fields[0], fields[1]
		subLoggers := logger.SubLoggers()

		// Validate subsystem.
		if _, exists := subLoggers[subsysID]; !exists {
			str := "the specified subsystem [%v] is invalid -- " +
				"supported subsystems are %v"
			return fmt.Errorf(
				str, subsysID, logger.SupportedSubsystems(),
			)
		}

		// Validate log level.
		if !validLogLevel(logLevel) {
			str := "the specified debug level [%v] is invalid"
			return fmt.Errorf(str, logLevel)
		}

		logger.SetLogLevel(subsysID, logLevel)
	}

	return nil
}

// validLogLevel returns whether or not logLevel is a valid debug log level.
func validLogLevel(logLevel string) bool {
	switch logLevel {
	case "trace", "debug", "info", "warn", "error", "critical", "off":
		return true
	}

	return false
}

// newStdoutWriter returns the default writer of a LogWriter.
func newStdoutWriter() *LogWriter {
	return &LogWriter{Stdout: os.Stdout}
}

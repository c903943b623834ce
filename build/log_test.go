package build

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/btcsuite/btclog"
	"github.com/stretchr/testify/require"
)

func newTestWriter(t *testing.T, subsystems ...string) (*RotatingLogWriter,
	*bytes.Buffer) {

	t.Helper()

	var buf bytes.Buffer
	w := newRotatingLogWriter(&LogWriter{Stdout: &buf})
	for _, subsystem := range subsystems {
		w.RegisterSubLogger(subsystem, w.GenSubLogger(subsystem))
	}

	return w, &buf
}

// TestParseAndSetDebugLevels tests that we can properly set the log levels
// for all and individual subsystems.
func TestParseAndSetDebugLevels(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		level    string
		expected map[string]btclog.Level
		err      string
	}{
		{
			name:  "all subsystems",
			level: "debug",
			expected: map[string]btclog.Level{
				"CRTR": btclog.LevelDebug,
				"CHDB": btclog.LevelDebug,
			},
		},
		{
			name:  "single subsystem",
			level: "CRTR=trace",
			expected: map[string]btclog.Level{
				"CRTR": btclog.LevelTrace,
				"CHDB": btclog.LevelInfo,
			},
		},
		{
			name:  "multiple subsystems",
			level: "CRTR=debug,CHDB=off",
			expected: map[string]btclog.Level{
				"CRTR": btclog.LevelDebug,
				"CHDB": btclog.LevelOff,
			},
		},
		{
			name:  "invalid global level",
			level: "loud",
			err:   "the specified debug level [loud] is invalid",
		},
		{
			name:  "invalid pair",
			level: "CRTR=debug,trace",
			err:   "invalid subsystem/level pair [trace]",
		},
		{
			name:  "invalid format",
			level: "CRTR=debug=trace",
			err:   "invalid format",
		},
		{
			name:  "unknown subsystem",
			level: "PEER=debug",
			err:   "supported subsystems are [CHDB CRTR]",
		},
		{
			name:  "invalid subsystem level",
			level: "CRTR=loud",
			err:   "the specified debug level [loud] is invalid",
		},
	}

	for _, testCase := range tests {
		testCase := testCase

		t.Run(testCase.name, func(t *testing.T) {
			t.Parallel()

			w, _ := newTestWriter(t, "CRTR", "CHDB")
			w.SetLogLevels("info")

			err := ParseAndSetDebugLevels(testCase.level, w)
			if testCase.err != "" {
				require.ErrorContains(t, err, testCase.err)
				return
			}
			require.NoError(t, err)

			for subsystem, level := range testCase.expected {
				require.Equal(t, level,
					w.SubLoggers()[subsystem].Level())
			}
		})
	}
}

// TestRotatingLogWriter checks that log lines reach both stdout and the
// rotated log file.
func TestRotatingLogWriter(t *testing.T) {
	t.Parallel()

	w, stdout := newTestWriter(t, "LNRT")
	w.SetLogLevels("debug")

	logFile := filepath.Join(t.TempDir(), "logs", "test.log")
	require.NoError(t, w.InitLogRotator(logFile, 1, 2))

	w.SubLoggers()["LNRT"].Debugf("hello %v", "world")
	w.SubLoggers()["LNRT"].Tracef("not logged")

	require.Contains(t, stdout.String(), "[DBG] LNRT: hello world")
	require.NotContains(t, stdout.String(), "not logged")

	// The rotator writes the file from its own goroutine.
	require.Eventually(t, func() bool {
		content, err := os.ReadFile(logFile)
		if err != nil {
			return false
		}
		return strings.Contains(string(content), "LNRT: hello world")
	}, 5*time.Second, 10*time.Millisecond)
}

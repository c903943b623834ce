package lncfg

import (
	"os/user"
	"path/filepath"
	"testing"
	"time"

	"github.com/btcsuite/btcd/chaincfg"
	flags "github.com/jessevdk/go-flags"
	"github.com/stretchr/testify/require"
)

// TestLoadConfigDefaults checks the values used when no flags are given.
func TestLoadConfigDefaults(t *testing.T) {
	t.Parallel()

	cfg, err := LoadConfig(nil)
	require.NoError(t, err)

	require.Equal(t, &chaincfg.MainNetParams, cfg.ActiveNetParams)
	require.Equal(t, "info", cfg.DebugLevel)
	require.Equal(t, float64(DefaultFeeDivisor), cfg.Routing.FeeDivisor)
	require.Equal(t, float64(DefaultHopPenalty), cfg.Routing.HopPenalty)
	require.Equal(t, uint64(DefaultPaymentMSat),
		cfg.Routing.DefaultPaymentMSat)
	require.Equal(t, DefaultPendingTimeout, cfg.Graph.PendingTimeout)
	require.Equal(t, DefaultFlushInterval, cfg.Graph.FlushInterval)
	require.Equal(t, int64(DefaultMaxVerifiers), cfg.Graph.MaxVerifiers)
	require.Equal(t, filepath.Join(DefaultHomeDir, "logs", "mainnet"),
		cfg.LogDir)
	require.Equal(t,
		filepath.Join(DefaultHomeDir, "data", "graph", "mainnet"),
		cfg.GraphDir(),
	)
}

// TestLoadConfigFlags checks that command line flags override the defaults.
func TestLoadConfigFlags(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	cfg, err := LoadConfig([]string{
		"--datadir=" + dir,
		"--logdir=" + filepath.Join(dir, "mylogs"),
		"--network=regtest",
		"--debuglevel=CRTR=debug,CHDB=trace",
		"--routing.feedivisor=2.5",
		"--routing.hoppenalty=0",
		"--routing.defaultpaymentmsat=1000",
		"--graph.pendingtimeout=30s",
		"--graph.flushinterval=5s",
		"--graph.maxverifiers=2",
	})
	require.NoError(t, err)

	require.Equal(t, &chaincfg.RegressionNetParams, cfg.ActiveNetParams)
	require.Equal(t, "CRTR=debug,CHDB=trace", cfg.DebugLevel)
	require.Equal(t, 2.5, cfg.Routing.FeeDivisor)
	require.Zero(t, cfg.Routing.HopPenalty)
	require.Equal(t, uint64(1000), cfg.Routing.DefaultPaymentMSat)
	require.Equal(t, 30*time.Second, cfg.Graph.PendingTimeout)
	require.Equal(t, 5*time.Second, cfg.Graph.FlushInterval)
	require.Equal(t, int64(2), cfg.Graph.MaxVerifiers)
	require.Equal(t, filepath.Join(dir, "mylogs", "regtest"), cfg.LogDir)
	require.Equal(t, filepath.Join(dir, "mylogs", "regtest",
		DefaultLogFilename), cfg.LogFile())
	require.Equal(t, filepath.Join(dir, "graph", "regtest"), cfg.GraphDir())
}

// TestLoadConfigInvalid checks that invalid settings are rejected.
func TestLoadConfigInvalid(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		args []string
	}{
		{
			name: "unknown network",
			args: []string{"--network=litecoin"},
		},
		{
			name: "unknown flag",
			args: []string{"--rpclisten=localhost"},
		},
		{
			name: "zero fee divisor",
			args: []string{"--routing.feedivisor=0"},
		},
		{
			name: "negative hop penalty",
			args: []string{"--routing.hoppenalty=-1"},
		},
		{
			name: "zero pending timeout",
			args: []string{"--graph.pendingtimeout=0s"},
		},
		{
			name: "zero flush interval",
			args: []string{"--graph.flushinterval=0s"},
		},
		{
			name: "no verifiers",
			args: []string{"--graph.maxverifiers=0"},
		},
		{
			name: "negative log files",
			args: []string{"--maxlogfiles=-1"},
		},
	}

	for _, testCase := range tests {
		testCase := testCase

		t.Run(testCase.name, func(t *testing.T) {
			t.Parallel()

			_, err := LoadConfig(testCase.args)
			require.Error(t, err)
		})
	}
}

// TestLoadConfigHelp checks that a help request is reported as such.
func TestLoadConfigHelp(t *testing.T) {
	t.Parallel()

	_, err := LoadConfig([]string{"--help"})

	flagErr, ok := err.(*flags.Error)
	require.True(t, ok)
	require.Equal(t, flags.ErrHelp, flagErr.Type)
}

// TestCleanAndExpandPath checks home directory and variable expansion.
func TestCleanAndExpandPath(t *testing.T) {
	u, err := user.Current()
	if err != nil {
		t.Skipf("unable to look up current user: %v", err)
	}
	home := u.HomeDir

	t.Setenv("LNROUTER_TEST_DIR", "/tmp/lnrouter")

	require.Empty(t, CleanAndExpandPath(""))
	require.Equal(t, filepath.Join(home, "graph"),
		CleanAndExpandPath("~/graph/"))
	require.Equal(t, "/tmp/lnrouter/logs",
		CleanAndExpandPath("$LNROUTER_TEST_DIR/./logs"))
}

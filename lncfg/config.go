package lncfg

import (
	"os"
	"os/user"
	"path/filepath"
	"strings"
	"time"

	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/chaincfg"
	"github.com/go-errors/errors"
	flags "github.com/jessevdk/go-flags"
)

const (
	// DefaultLogFilename is the name of the rotated log file.
	DefaultLogFilename = "lnrouter.log"

	defaultDataDirname    = "data"
	defaultLogDirname     = "logs"
	defaultGraphDirname   = "graph"
	defaultLogLevel       = "info"
	defaultNetwork        = "mainnet"
	defaultMaxLogFiles    = 3
	defaultMaxLogFileSize = 10

	// DefaultFeeDivisor is the number of satoshis of fees weighing as
	// much as one block of timelock.
	DefaultFeeDivisor = 10

	// DefaultHopPenalty is the cost added for every hop of a path.
	DefaultHopPenalty = 1

	// DefaultPaymentMSat is the payment amount used to estimate fees when
	// none is given.
	DefaultPaymentMSat = 50_000_000

	// DefaultPendingTimeout is how long an announced channel may wait for
	// its on-chain verification.
	DefaultPendingTimeout = 10 * time.Minute

	// DefaultFlushInterval is how often the graph is checked for expired
	// pending channels and unsaved changes.
	DefaultFlushInterval = time.Minute

	// DefaultMaxVerifiers is the number of channel verifications that may
	// run concurrently.
	DefaultMaxVerifiers = 8
)

var (
	// DefaultHomeDir is the default directory for lnrouter's data and
	// logs.
	DefaultHomeDir = btcutil.AppDataDir("lnrouter", false)

	// networks maps the names accepted for --network to their chain
	// parameters.
	networks = map[string]*chaincfg.Params{
		"mainnet": &chaincfg.MainNetParams,
		"testnet": &chaincfg.TestNet3Params,
		"regtest": &chaincfg.RegressionNetParams,
		"simnet":  &chaincfg.SimNetParams,
		"signet":  &chaincfg.SigNetParams,
	}
)

// Routing holds the heuristics path finding weighs channels with.
type Routing struct {
	FeeDivisor         float64 `long:"feedivisor" description:"The number of satoshis of fees that cost as much as one block of timelock"`
	HopPenalty         float64 `long:"hoppenalty" description:"The fixed cost added for every hop of a path"`
	DefaultPaymentMSat uint64  `long:"defaultpaymentmsat" description:"The payment amount in msat used to estimate proportional fees when the amount is unknown"`
}

// Graph holds the configuration of the channel graph store.
type Graph struct {
	PendingTimeout time.Duration `long:"pendingtimeout" description:"How long an announced channel may wait for its on-chain verification before it is dropped"`
	FlushInterval  time.Duration `long:"flushinterval" description:"How often expired pending channels are pruned and unsaved changes are written to disk"`
	MaxVerifiers   int64         `long:"maxverifiers" description:"The maximum number of concurrent channel verifications"`
}

// Config is the configuration of an lnrouter instance.
type Config struct {
	DataDir        string `short:"b" long:"datadir" description:"The directory to store the channel graph within"`
	LogDir         string `long:"logdir" description:"Directory to log output"`
	MaxLogFiles    int    `long:"maxlogfiles" description:"Maximum logfiles to keep (0 for no rotation)"`
	MaxLogFileSize int    `long:"maxlogfilesize" description:"Maximum logfile size in MB"`
	DebugLevel     string `short:"d" long:"debuglevel" description:"Logging level for all subsystems {trace, debug, info, warn, error, critical} -- You may also specify <subsystem>=<level>,<subsystem2>=<level>,... to set the log level for individual subsystems"`
	Network        string `long:"network" description:"The network the channel graph belongs to" choice:"mainnet" choice:"testnet" choice:"regtest" choice:"simnet" choice:"signet"`

	Routing *Routing `group:"routing" namespace:"routing"`
	Graph   *Graph   `group:"graph" namespace:"graph"`

	// ActiveNetParams are the chain parameters of the selected network.
	ActiveNetParams *chaincfg.Params `no-flag:"true"`
}

// DefaultConfig returns all default values for the Config struct.
func DefaultConfig() Config {
	return Config{
		DataDir:        filepath.Join(DefaultHomeDir, defaultDataDirname),
		MaxLogFiles:    defaultMaxLogFiles,
		MaxLogFileSize: defaultMaxLogFileSize,
		DebugLevel:     defaultLogLevel,
		Network:        defaultNetwork,
		Routing: &Routing{
			FeeDivisor:         DefaultFeeDivisor,
			HopPenalty:         DefaultHopPenalty,
			DefaultPaymentMSat: DefaultPaymentMSat,
		},
		Graph: &Graph{
			PendingTimeout: DefaultPendingTimeout,
			FlushInterval:  DefaultFlushInterval,
			MaxVerifiers:   DefaultMaxVerifiers,
		},
	}
}

// LoadConfig initializes and parses the config using command line options.
// The configuration proceeds as follows:
//  1. Start with a default config with sane settings
//  2. Parse the command line options, overwriting the defaults
//  3. Validate the result and expand all paths
func LoadConfig(args []string) (*Config, error) {
	cfg := DefaultConfig()

	parser := flags.NewParser(&cfg, flags.HelpFlag|flags.PassDoubleDash)
	if _, err := parser.ParseArgs(args); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Validate checks the values of the config, resolves the network and expands
// the paths. If no log directory is set, logs are written next to the data.
func (c *Config) Validate() error {
	params, ok := networks[c.Network]
	if !ok {
		return errors.Errorf("unknown network %q", c.Network)
	}
	c.ActiveNetParams = params

	switch {
	case c.Routing.FeeDivisor <= 0:
		return errors.Errorf("routing.feedivisor must be positive, "+
			"got %v", c.Routing.FeeDivisor)

	case c.Routing.HopPenalty < 0:
		return errors.Errorf("routing.hoppenalty must not be "+
			"negative, got %v", c.Routing.HopPenalty)

	case c.Graph.PendingTimeout <= 0:
		return errors.Errorf("graph.pendingtimeout must be positive, "+
			"got %v", c.Graph.PendingTimeout)

	case c.Graph.FlushInterval <= 0:
		return errors.Errorf("graph.flushinterval must be positive, "+
			"got %v", c.Graph.FlushInterval)

	case c.Graph.MaxVerifiers < 1:
		return errors.Errorf("graph.maxverifiers must be at least 1, "+
			"got %v", c.Graph.MaxVerifiers)

	case c.MaxLogFiles < 0 || c.MaxLogFileSize < 0:
		return errors.New("log rotation settings must not be " +
			"negative")
	}

	c.DataDir = CleanAndExpandPath(c.DataDir)
	if c.LogDir == "" {
		c.LogDir = filepath.Join(filepath.Dir(c.DataDir),
			defaultLogDirname)
	}
	c.LogDir = filepath.Join(CleanAndExpandPath(c.LogDir), c.Network)

	return nil
}

// GraphDir returns the directory the channel graph of the active network is
// stored in.
func (c *Config) GraphDir() string {
	return filepath.Join(c.DataDir, defaultGraphDirname, c.Network)
}

// LogFile returns the path of the rotated log file.
func (c *Config) LogFile() string {
	return filepath.Join(c.LogDir, DefaultLogFilename)
}

// CleanAndExpandPath expands environment variables and leading ~ in the
// passed path, cleans the result, and returns it.
// This function is taken from https://github.com/btcsuite/btcd
func CleanAndExpandPath(path string) string {
	if path == "" {
		return ""
	}

	// Expand initial ~ to OS specific home directory.
	if strings.HasPrefix(path, "~") {
		var homeDir string
		u, err := user.Current()
		if err == nil {
			homeDir = u.HomeDir
		} else {
			homeDir = os.Getenv("HOME")
		}

		path = strings.Replace(path, "~", homeDir, 1)
	}

	// NOTE: The os.ExpandEnv doesn't work with Windows-style %VARIABLE%,
	// but the variables can still be expanded via POSIX-style $VARIABLE.
	return filepath.Clean(os.ExpandEnv(path))
}

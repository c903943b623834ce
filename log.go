package lnrouter

import (
	"github.com/btcsuite/btclog"
	"github.com/lightningnetwork/lnrouter/build"
	"github.com/lightningnetwork/lnrouter/channeldb"
	"github.com/lightningnetwork/lnrouter/htlcswitch/hop"
	"github.com/lightningnetwork/lnrouter/routing"
	"github.com/lightningnetwork/lnrouter/sphinx"
)

// Subsystem is the logging tag of the root package.
const Subsystem = "LNRT"

// lnrtLog is the logger of the root package. It's disabled until
// SetupLoggers is called.
var lnrtLog = btclog.Disabled

// SetupLoggers initializes all package-global logger variables.
func SetupLoggers(root *build.RotatingLogWriter) {
	// Define a closure to set the root package's logger.
	setRootLogger := func(logger btclog.Logger) {
		lnrtLog = logger
	}

	AddSubLogger(root, Subsystem, setRootLogger)
	AddSubLogger(root, channeldb.Subsystem, channeldb.UseLogger)
	AddSubLogger(root, routing.Subsystem, routing.UseLogger)
	AddSubLogger(root, sphinx.Subsystem, sphinx.UseLogger)
	AddSubLogger(root, hop.Subsystem, hop.UseLogger)
}

// AddSubLogger is a helper method to conveniently create and register the
// logger of one or more sub systems.
func AddSubLogger(root *build.RotatingLogWriter, subsystem string,
	useLoggers ...func(btclog.Logger)) {

	// Create and register just a single logger to prevent them from
	// overwriting each other internally.
	logger := root.GenSubLogger(subsystem)
	SetSubLogger(root, subsystem, logger, useLoggers...)
}

// SetSubLogger is a helper method to conveniently register the logger of a
// sub system.
func SetSubLogger(root *build.RotatingLogWriter, subsystem string,
	logger btclog.Logger, useLoggers ...func(btclog.Logger)) {

	root.RegisterSubLogger(subsystem, logger)
	for _, useLogger := range useLoggers {
		useLogger(logger)
	}
}

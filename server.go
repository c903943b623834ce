package lnrouter

import (
	"errors"
	"fmt"
	"sync/atomic"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/lightningnetwork/lnd/clock"
	"github.com/lightningnetwork/lnd/ticker"
	"github.com/lightningnetwork/lnrouter/channeldb"
	"github.com/lightningnetwork/lnrouter/fn"
	"github.com/lightningnetwork/lnrouter/htlcswitch/hop"
	"github.com/lightningnetwork/lnrouter/keychain"
	"github.com/lightningnetwork/lnrouter/lncfg"
	"github.com/lightningnetwork/lnrouter/lnwire"
	"github.com/lightningnetwork/lnrouter/monitoring"
	"github.com/lightningnetwork/lnrouter/routing"
	"github.com/lightningnetwork/lnrouter/routing/route"
	"github.com/lightningnetwork/lnrouter/sphinx"
	"github.com/prometheus/client_golang/prometheus"
)

// ErrServerNotConfigured is returned when a mandatory collaborator of the
// server is missing.
var ErrServerNotConfigured = errors.New("server not configured")

// Config holds everything a Server is built from.
type Config struct {
	// Cfg is the parsed configuration.
	Cfg *lncfg.Config

	// NodeKey is the key of our node. Its public key is the source of all
	// routes we find, and it peels the onions forwarded to us.
	NodeKey keychain.SingleKeyECDH

	// Verifier authenticates announced channels.
	Verifier channeldb.ChannelVerifier

	// LocalChannels looks up the live state of our own channels. If nil,
	// no bandwidth hints are used.
	LocalChannels routing.LocalChannelQuery

	// Registerer is where the metrics are registered. If nil, metrics are
	// not exported.
	Registerer prometheus.Registerer

	// Clock is used to age pending channels. Defaults to the wall clock.
	Clock clock.Clock
}

// Server ties the channel graph, its on-disk store, path finding and the
// onion codec together.
type Server struct {
	started int32 // To be used atomically.
	stopped int32 // To be used atomically.

	cfg *Config

	sourceNode route.Vertex

	docStore *channeldb.KVDocStore

	graph *channeldb.ChannelGraph

	pathFinder *routing.PathFinder

	onionProcessor *hop.OnionProcessor
}

// NewServer opens the graph database of the configured network and creates
// the server on top of it.
func NewServer(cfg *Config) (*Server, error) {
	switch {
	case cfg.Cfg == nil:
		return nil, fmt.Errorf("%w: no configuration",
			ErrServerNotConfigured)

	case cfg.NodeKey == nil:
		return nil, fmt.Errorf("%w: no node key",
			ErrServerNotConfigured)

	case cfg.Verifier == nil:
		return nil, fmt.Errorf("%w: no channel verifier",
			ErrServerNotConfigured)
	}

	graphMetrics := monitoring.NewGraphMetrics(prometheus.Labels{
		"network": cfg.Cfg.Network,
	})
	if cfg.Registerer != nil {
		if err := monitoring.Register(cfg.Registerer); err != nil {
			return nil, err
		}
		if err := graphMetrics.Register(cfg.Registerer); err != nil {
			return nil, err
		}
	}

	docStore, err := channeldb.OpenBoltDocStore(cfg.Cfg.GraphDir())
	if err != nil {
		return nil, fmt.Errorf("unable to open graph db: %w", err)
	}

	graph, err := channeldb.NewChannelGraph(&channeldb.GraphConfig{
		ChainHash:      *cfg.Cfg.ActiveNetParams.GenesisHash,
		Store:          docStore,
		Verifier:       cfg.Verifier,
		Clock:          cfg.Clock,
		PendingTimeout: cfg.Cfg.Graph.PendingTimeout,
		MaintenanceTicker: ticker.New(
			cfg.Cfg.Graph.FlushInterval,
		),
		MaxConcurrentVerifications: int(cfg.Cfg.Graph.MaxVerifiers),
		Metrics:                    graphMetrics,
	})
	if err != nil {
		_ = docStore.Close()
		return nil, err
	}

	sourceNode := route.NewVertex(cfg.NodeKey.PubKey())

	costCfg := &routing.CostConfig{
		FeeDivisor: cfg.Cfg.Routing.FeeDivisor,
		HopPenalty: cfg.Cfg.Routing.HopPenalty,
		DefaultPaymentAmount: lnwire.MilliSatoshi(
			cfg.Cfg.Routing.DefaultPaymentMSat,
		),
	}

	pathFinder := routing.NewPathFinder(graph, costCfg, nil)
	if cfg.LocalChannels != nil {
		pathFinder = routing.NewPathFinder(
			graph, costCfg, routing.NewBandwidthManager(
				graph, sourceNode, cfg.LocalChannels,
			),
		)
	}

	return &Server{
		cfg:            cfg,
		sourceNode:     sourceNode,
		docStore:       docStore,
		graph:          graph,
		pathFinder:     pathFinder,
		onionProcessor: hop.NewOnionProcessor(cfg.NodeKey),
	}, nil
}

// Start starts the graph maintenance.
func (s *Server) Start() error {
	if !atomic.CompareAndSwapInt32(&s.started, 0, 1) {
		return nil
	}

	lnrtLog.Infof("Starting lnrouter for node %v on %v", s.sourceNode,
		s.cfg.Cfg.ActiveNetParams.Name)

	return s.graph.Start()
}

// Stop stops the graph, flushes it and closes the database.
func (s *Server) Stop() error {
	if !atomic.CompareAndSwapInt32(&s.stopped, 0, 1) {
		return nil
	}

	lnrtLog.Info("Shutting down lnrouter")

	graphErr := s.graph.Stop()
	if err := s.docStore.Close(); err != nil && graphErr == nil {
		return err
	}

	return graphErr
}

// SourceNode returns our node's vertex, the start of every route.
func (s *Server) SourceNode() route.Vertex {
	return s.sourceNode
}

// Graph returns the channel graph.
func (s *Server) Graph() *channeldb.ChannelGraph {
	return s.graph
}

// PathFinder returns the path finder, e.g. to blacklist failing channels.
func (s *Server) PathFinder() *routing.PathFinder {
	return s.pathFinder
}

// OnionProcessor returns the processor that peels onions sent to us.
func (s *Server) OnionProcessor() *hop.OnionProcessor {
	return s.onionProcessor
}

// ProcessGossip hands a gossip message to the channel graph.
func (s *Server) ProcessGossip(msg lnwire.Message) error {
	switch m := msg.(type) {
	case *lnwire.ChannelAnnouncement:
		return s.graph.OnChannelAnnouncement(m)

	case *lnwire.ChannelUpdate:
		return s.graph.OnChannelUpdate(m)

	default:
		return fmt.Errorf("unexpected gossip message %v", msg.MsgType())
	}
}

// FindRoute finds the cheapest route from our node to the target able to
// deliver amt, and computes the amounts and timelocks of its hops.
func (s *Server) FindRoute(target route.Vertex, amt lnwire.MilliSatoshi,
	finalCltvDelta uint16, currentHeight uint32) (*route.Route, error) {

	path, err := s.pathFinder.FindPath(s.sourceNode, target, fn.Some(amt))
	if err != nil {
		return nil, err
	}

	edges, err := s.pathFinder.CreateRoute(path, s.sourceNode)
	if err != nil {
		return nil, err
	}

	r, err := routing.NewRouteFromEdges(
		s.sourceNode, edges, amt, finalCltvDelta, currentHeight,
	)
	if err != nil {
		return nil, err
	}

	lnrtLog.Debugf("Found route to %v: %v", target, r)

	return r, nil
}

// CreatePaymentOnion builds the onion packet for the route using a fresh
// session key. The returned circuit decrypts failures sent back along the
// route.
func (s *Server) CreatePaymentOnion(r *route.Route,
	paymentHash []byte) (*sphinx.OnionPacket, *sphinx.Circuit, error) {

	path, hops, err := r.ToSphinxPath()
	if err != nil {
		return nil, nil, err
	}

	sessionKey, err := btcec.NewPrivateKey()
	if err != nil {
		return nil, nil, err
	}

	pkt, err := sphinx.NewOnionPacket(path, sessionKey, hops, paymentHash)
	if err != nil {
		return nil, nil, err
	}

	circuit := &sphinx.Circuit{
		SessionKey:  sessionKey,
		PaymentPath: path,
	}

	return pkt, circuit, nil
}

package channeldb

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/lightningnetwork/lnd/clock"
	"github.com/lightningnetwork/lnd/queue"
	"github.com/lightningnetwork/lnd/ticker"
	"github.com/lightningnetwork/lnrouter/channeldb/models"
	"github.com/lightningnetwork/lnrouter/fn"
	"github.com/lightningnetwork/lnrouter/lnwire"
	"github.com/lightningnetwork/lnrouter/monitoring"
	"github.com/lightningnetwork/lnrouter/routing/route"
)

const (
	// DefaultPendingTimeout is the time an announced channel may wait for
	// verification before it's dropped.
	DefaultPendingTimeout = time.Minute * 10

	// DefaultMaintenanceInterval is how often pending channels are
	// pruned and the graph is flushed to disk.
	DefaultMaintenanceInterval = time.Minute

	// DefaultMaxConcurrentVerifications is the number of announcements
	// verified in parallel.
	DefaultMaxConcurrentVerifications = 8

	// verifyQueueBuffer is the size of the buffer in front of the
	// verification queue.
	verifyQueueBuffer = 100
)

// channelState is the stage a channel has reached in the graph.
type channelState uint8

const (
	// statePending channels were announced but not verified yet. They are
	// invisible to readers of the graph, but collect channel updates.
	statePending channelState = iota

	// stateVerified channels are part of the public graph.
	stateVerified
)

// String returns a human readable name of the state.
func (s channelState) String() string {
	switch s {
	case statePending:
		return "pending"
	case stateVerified:
		return "verified"
	default:
		return "unknown"
	}
}

// channelEntry is the graph's record of a single channel.
type channelEntry struct {
	info  *models.ChannelInfo
	state channelState

	// addedAt is the time a pending channel was announced.
	addedAt time.Time

	// cancel aborts the verification of a pending channel.
	cancel context.CancelFunc
}

// GraphConfig holds the collaborators and parameters of a ChannelGraph.
type GraphConfig struct {
	// ChainHash is the genesis hash of the chain whose channels the graph
	// tracks, in wire byte order.
	ChainHash chainhash.Hash

	// Store persists the graph.
	Store DocumentStore

	// Verifier authenticates announced channels.
	Verifier ChannelVerifier

	// Clock is used to age pending channels.
	Clock clock.Clock

	// PendingTimeout is the time after which an unverified channel is
	// dropped.
	PendingTimeout time.Duration

	// MaintenanceTicker drives pruning of pending channels and flushing
	// of the graph to the store.
	MaintenanceTicker ticker.Ticker

	// MaxConcurrentVerifications is the number of workers verifying
	// announcements.
	MaxConcurrentVerifications int

	// Metrics receives the size of the graph. If nil, the graph keeps
	// unregistered gauges of its own.
	Metrics *monitoring.GraphMetrics
}

// verifyRequest is a pending announcement waiting for a verification
// worker.
type verifyRequest struct {
	ctx   context.Context
	entry *channelEntry
	msg   *lnwire.ChannelAnnouncement
}

// ChannelGraph is the in-memory view of the public channel graph. It holds
// every verified channel along with an index from node to the channels it
// participates in. Announced channels are kept pending until the configured
// ChannelVerifier vouches for them.
//
// All state lives behind a single mutex, so readers never see a channel that
// is missing from the node index or the other way round.
type ChannelGraph struct {
	started uint32 // To be used atomically.
	stopped uint32 // To be used atomically.

	cfg *GraphConfig

	mu sync.RWMutex

	// channels holds pending and verified channels.
	channels map[lnwire.ShortChannelID]*channelEntry

	// nodeIndex maps a node to the verified channels it has.
	nodeIndex map[route.Vertex]fn.Set[lnwire.ShortChannelID]

	numPending int

	// dirty is set once the verified set changed since the last flush.
	dirty bool

	// verifyQueue feeds pending announcements to the verification
	// workers.
	verifyQueue *queue.ConcurrentQueue

	ctx    context.Context
	cancel context.CancelFunc

	wg   sync.WaitGroup
	quit chan struct{}
}

// NewChannelGraph creates a graph from the passed config and loads whatever
// was persisted to its store.
func NewChannelGraph(cfg *GraphConfig) (*ChannelGraph, error) {
	switch {
	case cfg.Store == nil:
		return nil, fmt.Errorf("%w: no document store",
			ErrGraphNotConfigured)

	case cfg.Verifier == nil:
		return nil, fmt.Errorf("%w: no channel verifier",
			ErrGraphNotConfigured)
	}

	if cfg.Clock == nil {
		cfg.Clock = clock.NewDefaultClock()
	}
	if cfg.PendingTimeout == 0 {
		cfg.PendingTimeout = DefaultPendingTimeout
	}
	if cfg.MaintenanceTicker == nil {
		cfg.MaintenanceTicker = ticker.New(DefaultMaintenanceInterval)
	}
	if cfg.MaxConcurrentVerifications <= 0 {
		cfg.MaxConcurrentVerifications = DefaultMaxConcurrentVerifications
	}
	if cfg.Metrics == nil {
		cfg.Metrics = monitoring.NewGraphMetrics(nil)
	}

	ctx, cancel := context.WithCancel(context.Background())
	g := &ChannelGraph{
		cfg:       cfg,
		channels:  make(map[lnwire.ShortChannelID]*channelEntry),
		nodeIndex: make(map[route.Vertex]fn.Set[lnwire.ShortChannelID]),
		verifyQueue: queue.NewConcurrentQueue(verifyQueueBuffer),
		ctx:         ctx,
		cancel:      cancel,
		quit:        make(chan struct{}),
	}

	if err := g.load(); err != nil {
		cancel()
		return nil, err
	}

	return g, nil
}

// load adds every persisted channel to the graph.
func (g *ChannelGraph) load() error {
	var records channelRecords
	found, err := g.cfg.Store.Get(channelInfosKey, &records)
	if err != nil {
		return err
	}
	if !found {
		log.Infof("No persisted channel graph found, starting empty")
		return nil
	}

	for key, rec := range records {
		info, err := decodeChannelRecord(rec)
		if err != nil {
			return fmt.Errorf("channel %v: %w", key, err)
		}

		g.AddVerifiedChannelInfo(info.ChannelID, info)
	}

	// Loading doesn't change what's on disk.
	g.mu.Lock()
	g.dirty = false
	g.mu.Unlock()

	log.Infof("Loaded %d channels from disk", len(records))

	return nil
}

// Start launches the maintenance loop and the verification workers of the
// graph. Announcements are refused until the graph is started.
func (g *ChannelGraph) Start() error {
	if !atomic.CompareAndSwapUint32(&g.started, 0, 1) {
		return nil
	}

	log.Info("Channel graph starting")

	g.verifyQueue.Start()
	g.cfg.MaintenanceTicker.Resume()

	g.wg.Add(1)
	go g.maintenanceLoop()

	for i := 0; i < g.cfg.MaxConcurrentVerifications; i++ {
		g.wg.Add(1)
		go g.verificationWorker()
	}

	return nil
}

// Stop aborts pending verifications, waits for all goroutines to exit and
// flushes the graph if it changed.
func (g *ChannelGraph) Stop() error {
	if !atomic.CompareAndSwapUint32(&g.stopped, 0, 1) {
		return nil
	}

	log.Info("Channel graph shutting down")

	// Wait for announcements that raced with the stopped flag, so every
	// pending entry is registered before the verifications are aborted.
	g.mu.Lock()
	g.mu.Unlock() // nolint:staticcheck

	g.cancel()
	close(g.quit)
	g.wg.Wait()

	// The maintenance loop reads the ticker's channel, so it's only
	// stopped once the loop exited.
	g.cfg.MaintenanceTicker.Stop()
	g.verifyQueue.Stop()

	g.mu.RLock()
	dirty := g.dirty
	g.mu.RUnlock()

	if dirty {
		return g.Save()
	}

	return nil
}

// maintenanceLoop prunes stale pending channels and flushes the graph on
// every tick.
//
// NOTE: This MUST be run as a goroutine.
func (g *ChannelGraph) maintenanceLoop() {
	defer g.wg.Done()

	for {
		select {
		case <-g.cfg.MaintenanceTicker.Ticks():
			g.prunePending()

			g.mu.RLock()
			dirty := g.dirty
			g.mu.RUnlock()

			if !dirty {
				continue
			}

			if err := g.Save(); err != nil {
				log.Errorf("Unable to flush channel graph: %v",
					err)
			}

		case <-g.quit:
			return
		}
	}
}

// prunePending drops pending channels that have waited longer than the
// configured timeout.
func (g *ChannelGraph) prunePending() {
	now := g.cfg.Clock.Now()

	g.mu.Lock()
	defer g.mu.Unlock()

	for scid, entry := range g.channels {
		if entry.state != statePending {
			continue
		}
		if now.Sub(entry.addedAt) < g.cfg.PendingTimeout {
			continue
		}

		log.Debugf("Dropping channel %v, not verified within %v",
			scid, g.cfg.PendingTimeout)

		entry.cancel()
		delete(g.channels, scid)
		g.numPending--
	}

	g.updateMetrics()
}

// ChannelInfo returns a copy of the verified channel with the given id.
func (g *ChannelGraph) ChannelInfo(
	scid lnwire.ShortChannelID) fn.Option[models.ChannelInfo] {

	g.mu.RLock()
	defer g.mu.RUnlock()

	entry, ok := g.channels[scid]
	if !ok || entry.state != stateVerified {
		return fn.None[models.ChannelInfo]()
	}

	return fn.Some(*entry.info.Copy())
}

// ChannelsForNode returns the ids of the verified channels the node is an
// endpoint of. The set is empty for unknown nodes.
func (g *ChannelGraph) ChannelsForNode(
	node route.Vertex) fn.Set[lnwire.ShortChannelID] {

	g.mu.RLock()
	defer g.mu.RUnlock()

	chans, ok := g.nodeIndex[node]
	if !ok {
		return fn.NewSet[lnwire.ShortChannelID]()
	}

	return chans.Copy()
}

// AddVerifiedChannelInfo inserts a verified channel into the graph,
// overwriting any channel with the same id.
func (g *ChannelGraph) AddVerifiedChannelInfo(scid lnwire.ShortChannelID,
	info *models.ChannelInfo) {

	info = info.Copy()
	info.ChannelID = scid

	g.mu.Lock()
	defer g.mu.Unlock()

	g.removeLocked(scid)
	g.insertVerifiedLocked(&channelEntry{
		info:  info,
		state: stateVerified,
	})
	g.updateMetrics()
}

// insertVerifiedLocked adds a verified entry to the channel map and the node
// index.
//
// NOTE: The write lock must be held.
func (g *ChannelGraph) insertVerifiedLocked(entry *channelEntry) {
	scid := entry.info.ChannelID
	g.channels[scid] = entry

	for _, node := range []route.Vertex{
		entry.info.NodeKey1Bytes, entry.info.NodeKey2Bytes,
	} {
		chans, ok := g.nodeIndex[node]
		if !ok {
			chans = fn.NewSet[lnwire.ShortChannelID]()
			g.nodeIndex[node] = chans
		}
		chans.Add(scid)
	}

	g.dirty = true
}

// removeLocked removes a channel, pending or verified, from the graph. It
// returns false if the channel wasn't known.
//
// NOTE: The write lock must be held.
func (g *ChannelGraph) removeLocked(scid lnwire.ShortChannelID) bool {
	entry, ok := g.channels[scid]
	if !ok {
		return false
	}
	delete(g.channels, scid)

	if entry.state == statePending {
		entry.cancel()
		g.numPending--
		return true
	}

	for _, node := range []route.Vertex{
		entry.info.NodeKey1Bytes, entry.info.NodeKey2Bytes,
	} {
		chans, ok := g.nodeIndex[node]
		if !ok {
			continue
		}

		chans.Remove(scid)
		if len(chans) == 0 {
			delete(g.nodeIndex, node)
		}
	}

	g.dirty = true

	return true
}

// OnChannelAnnouncement handles a channel announcement received from the
// network. Announcements for other chains are rejected with ErrWrongChain,
// known channels are ignored. New channels are kept pending while the
// ChannelVerifier checks them in the background; once verified they become
// part of the graph, otherwise they are dropped.
func (g *ChannelGraph) OnChannelAnnouncement(
	msg *lnwire.ChannelAnnouncement) error {

	if msg.ChainHash != g.cfg.ChainHash {
		return fmt.Errorf("%w: announcement for channel %v on chain %v",
			ErrWrongChain, msg.ShortChannelID, msg.ChainHash)
	}

	info, err := models.NewChannelInfoFromAnnouncement(msg)
	if err != nil {
		return fmt.Errorf("invalid announcement for channel %v: %w",
			msg.ShortChannelID, err)
	}

	if atomic.LoadUint32(&g.started) == 0 {
		return ErrGraphNotStarted
	}

	g.mu.Lock()

	if atomic.LoadUint32(&g.stopped) == 1 {
		g.mu.Unlock()
		return ErrGraphShuttingDown
	}

	if _, ok := g.channels[msg.ShortChannelID]; ok {
		g.mu.Unlock()
		log.Tracef("Ignoring announcement of known channel %v",
			msg.ShortChannelID)
		return nil
	}

	ctx, cancel := context.WithCancel(g.ctx)
	entry := &channelEntry{
		info:    info,
		state:   statePending,
		addedAt: g.cfg.Clock.Now(),
		cancel:  cancel,
	}
	g.channels[msg.ShortChannelID] = entry
	g.numPending++
	g.updateMetrics()

	g.mu.Unlock()

	log.Debugf("Channel %v pending verification", msg.ShortChannelID)

	req := &verifyRequest{ctx: ctx, entry: entry, msg: msg}
	select {
	case g.verifyQueue.ChanIn() <- req:
		return nil

	case <-g.quit:
		return ErrGraphShuttingDown
	}
}

// verificationWorker verifies queued announcements one at a time.
//
// NOTE: This MUST be run as a goroutine.
func (g *ChannelGraph) verificationWorker() {
	defer g.wg.Done()

	for {
		select {
		case item := <-g.verifyQueue.ChanOut():
			req, ok := item.(*verifyRequest)
			if !ok {
				log.Errorf("Unexpected verification request "+
					"%T", item)
				continue
			}

			g.verifyChannel(req.ctx, req.entry, req.msg)

		case <-g.quit:
			return
		}
	}
}

// verifyChannel asks the verifier to vouch for a pending channel and
// promotes or drops it depending on the outcome.
func (g *ChannelGraph) verifyChannel(ctx context.Context, entry *channelEntry,
	msg *lnwire.ChannelAnnouncement) {

	scid := msg.ShortChannelID

	// The channel was pruned or the graph stopped while it was queued.
	if ctx.Err() != nil {
		log.Debugf("Verification of channel %v aborted", scid)
		return
	}

	capacity, err := g.cfg.Verifier.VerifyChannel(ctx, msg)

	g.mu.Lock()
	defer g.mu.Unlock()

	// The entry may have been pruned or replaced while we were waiting on
	// the verifier.
	if g.channels[scid] != entry || entry.state != statePending {
		log.Debugf("Channel %v no longer pending, discarding "+
			"verification result", scid)
		return
	}

	g.numPending--
	entry.cancel()

	if err != nil {
		log.Warnf("Unable to verify channel %v: %v", scid, err)
		delete(g.channels, scid)
		g.updateMetrics()
		return
	}

	entry.state = stateVerified
	entry.info.SetCapacity(capacity)
	g.insertVerifiedLocked(entry)
	g.updateMetrics()

	log.Debugf("Channel %v verified with capacity %v", scid, capacity)
}

// OnChannelUpdate applies a channel update to a pending or verified channel.
// Updates for other chains are rejected with ErrWrongChain. Updates for
// unknown channels are logged and dropped. The update replaces the policy of
// its direction wholesale.
func (g *ChannelGraph) OnChannelUpdate(msg *lnwire.ChannelUpdate) error {
	if msg.ChainHash != g.cfg.ChainHash {
		return fmt.Errorf("%w: update for channel %v on chain %v",
			ErrWrongChain, msg.ShortChannelID, msg.ChainHash)
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	entry, ok := g.channels[msg.ShortChannelID]
	if !ok {
		log.Debugf("Could not find channel %v for update",
			msg.ShortChannelID)
		return nil
	}

	// TODO: compare timestamps against the stored policy once policies
	// keep the timestamp of the update that created them.
	entry.info.ApplyUpdate(msg)

	if entry.state == stateVerified {
		g.dirty = true
	}

	log.Tracef("Applied update to %v channel %v, direction=%v",
		entry.state, msg.ShortChannelID, msg.Flags.IsDirection2())

	return nil
}

// RemoveChannel removes a channel from the graph. Unknown channels are
// ignored.
func (g *ChannelGraph) RemoveChannel(scid lnwire.ShortChannelID) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if !g.removeLocked(scid) {
		log.Debugf("Cannot remove unknown channel %v", scid)
		return
	}
	g.updateMetrics()
}

// NumChannels returns the number of verified channels.
func (g *ChannelGraph) NumChannels() int {
	g.mu.RLock()
	defer g.mu.RUnlock()

	return len(g.channels) - g.numPending
}

// NumPending returns the number of channels awaiting verification.
func (g *ChannelGraph) NumPending() int {
	g.mu.RLock()
	defer g.mu.RUnlock()

	return g.numPending
}

// ForEachChannel calls cb with a copy of every verified channel. Iteration
// stops at the first error cb returns, which is passed on to the caller.
func (g *ChannelGraph) ForEachChannel(
	cb func(*models.ChannelInfo) error) error {

	g.mu.RLock()
	infos := make([]*models.ChannelInfo, 0, len(g.channels))
	for _, entry := range g.channels {
		if entry.state == stateVerified {
			infos = append(infos, entry.info.Copy())
		}
	}
	g.mu.RUnlock()

	for _, info := range infos {
		if err := cb(info); err != nil {
			return err
		}
	}

	return nil
}

// Save writes every verified channel to the store.
func (g *ChannelGraph) Save() error {
	g.mu.Lock()
	records := make(channelRecords, len(g.channels))
	for scid, entry := range g.channels {
		if entry.state != stateVerified {
			continue
		}
		records[scid.Hex()] = encodeChannelInfo(entry.info)
	}
	err := g.cfg.Store.Put(channelInfosKey, records)
	if err == nil {
		g.dirty = false
	}
	g.mu.Unlock()

	if err != nil {
		return err
	}

	if err := g.cfg.Store.Write(); err != nil {
		g.mu.Lock()
		g.dirty = true
		g.mu.Unlock()

		return err
	}

	log.Debugf("Saved %d channels", len(records))

	return nil
}

// updateMetrics publishes the size of the graph.
//
// NOTE: The lock must be held.
func (g *ChannelGraph) updateMetrics() {
	g.cfg.Metrics.SetSize(len(g.channels)-g.numPending, g.numPending)
}

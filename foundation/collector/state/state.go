// Package state is the core API for the collector and implements all the
// business rules for ingesting, expanding and reporting on the monitored
// node's peers.
package state

import (
	"context"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/p2p"
	"github.com/ethernova/explorer/foundation/collector/database"
	"github.com/ethernova/explorer/foundation/collector/export"
	"github.com/ethernova/explorer/foundation/collector/peer"
)

// EventHandler defines a function that is called when events occur in the
// processing of a poll tick.
type EventHandler func(v string, args ...any)

// Worker interface represents the behavior required to be implemented by any
// package providing support for the periodic poll tick.
type Worker interface {
	Shutdown()
	SignalPoll()
}

// NodeClient represents the behavior required from the monitored node's
// admin RPC surface.
type NodeClient interface {
	Peers(ctx context.Context) ([]p2p.PeerInfo, error)
	NodeInfo(ctx context.Context) (*p2p.NodeInfo, error)
	PeerCount(ctx context.Context) (int, error)
	AddPeer(ctx context.Context, enodeURL string) (bool, error)
}

// GeoLookup resolves a host literal to geolocation metadata. Implementations
// must not fail; an unresolvable host yields the zero value.
type GeoLookup func(host string) peer.Geo

// =============================================================================

// ExpansionConfig controls the outbound peer-expansion scheduler.
type ExpansionConfig struct {
	Enabled       bool
	RateLimit     int
	MaxCandidates int
}

// ExportConfig controls the periodic bootnode file exporter.
type ExportConfig struct {
	Enabled  bool
	Interval time.Duration
	Files    export.Config
}

// Config represents the configuration required to start the collector.
type Config struct {
	DB           *database.DB
	Client       NodeClient
	Geo          GeoLookup
	Source       string
	OnlineWindow time.Duration
	RPCTimeout   time.Duration
	Expansion    ExpansionConfig
	Export       ExportConfig
	EvHandler    EventHandler
}

// State manages the collector's stores, the live node snapshot and the
// expansion rate window.
type State struct {
	db           *database.DB
	client       NodeClient
	geo          GeoLookup
	source       string
	onlineWindow time.Duration
	rpcTimeout   time.Duration
	expansion    ExpansionConfig
	export       ExportConfig
	evHandler    EventHandler

	// polling serializes ticks. A tick that fires while the previous one is
	// still in flight is dropped, not queued.
	polling int32

	// Expansion rate window and export clock. Only ever touched from inside
	// a tick, which the polling guard serializes, so no lock is needed.
	windowStart time.Time
	windowCount int
	lastExport  time.Time

	// Live snapshot for the reporting surface.
	mu            sync.RWMutex
	rpcOK         bool
	lastUpdate    time.Time
	lastPeers     []p2p.PeerInfo
	lastPeerCount int
	nodeInfo      *p2p.NodeInfo

	// Worker is set by the worker package at Run.
	Worker Worker
}

// New constructs a new collector state for managing the peer tables.
func New(cfg Config) *State {

	// Build a safe event handler function for use.
	ev := func(v string, args ...any) {
		if cfg.EvHandler != nil {
			cfg.EvHandler(v, args...)
		}
	}

	geo := cfg.Geo
	if geo == nil {
		geo = func(string) peer.Geo { return peer.Geo{} }
	}

	return &State{
		db:           cfg.DB,
		client:       cfg.Client,
		geo:          geo,
		source:       cfg.Source,
		onlineWindow: cfg.OnlineWindow,
		rpcTimeout:   cfg.RPCTimeout,
		expansion:    cfg.Expansion,
		export:       cfg.Export,
		evHandler:    ev,
	}
}

// Shutdown cleanly brings the collector down.
func (s *State) Shutdown() {
	if s.Worker != nil {
		s.Worker.Shutdown()
	}
}

// onlineCutoff returns the instant a peer's last sighting must fall after to
// be counted as online.
func (s *State) onlineCutoff(now time.Time) time.Time {
	return now.Add(-s.onlineWindow)
}

// callCtx bounds an RPC call so a stalled node can't hang a tick forever.
func (s *State) callCtx(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.rpcTimeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, s.rpcTimeout)
}

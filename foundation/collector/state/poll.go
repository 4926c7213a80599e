package state

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/ethereum/go-ethereum/p2p"
	"github.com/ethernova/explorer/foundation/collector/enode"
	"github.com/ethernova/explorer/foundation/collector/peer"
)

// Poll performs one collection tick: fetch the live peer list and node
// metadata, upsert the sightings, run the expansion scheduler and the
// exporter. Ticks are strictly serialized; a call that overlaps a running
// tick is a no-op.
func (s *State) Poll(ctx context.Context) error {
	if !atomic.CompareAndSwapInt32(&s.polling, 0, 1) {
		return nil
	}
	defer atomic.StoreInt32(&s.polling, 0)

	s.evHandler("state: poll: started")
	defer s.evHandler("state: poll: completed")

	now := time.Now()

	// Step 1: the peer list. Failure here marks the node unreachable and
	// aborts the tick before anything is written.
	peers, err := s.callPeers(ctx)
	if err != nil {
		s.markUnreachable()
		return fmt.Errorf("fetch peers: %w", err)
	}

	// Step 2: node self metadata, best effort.
	info, err := s.callNodeInfo(ctx)
	if err != nil {
		s.evHandler("state: poll: nodeInfo: metadata unavailable: %s", err)
		info = nil
	}

	// Step 3: the node's own peer counter, used as a fallback for the live
	// count when the peer list comes back empty.
	count, err := s.callPeerCount(ctx)
	if err != nil {
		s.markUnreachable()
		return fmt.Errorf("fetch peer count: %w", err)
	}

	s.updateSnapshot(peers, info, count, now)

	// Step 4/5: normalize, dedupe and batch-upsert the sightings in a
	// single transaction. A storage failure aborts the tick but leaves the
	// node marked reachable; this is the one loud failure mode.
	sightings := s.normalize(peers)
	if err := s.db.UpsertSightings(ctx, now, sightings); err != nil {
		return fmt.Errorf("upsert sightings: %w", err)
	}
	s.evHandler("state: poll: upserted %d peers", len(sightings))

	// Step 6: feed the expansion queue, insert-if-absent.
	if s.expansion.Enabled {
		if err := s.db.InsertCandidates(ctx, now, sightings); err != nil {
			return fmt.Errorf("insert candidates: %w", err)
		}
	}

	// Step 7: expansion. Failures are recorded per candidate and never
	// abort the tick.
	s.runExpansion(ctx, time.Now())

	// Step 8: export on its own clock. A failed export only costs this
	// cycle.
	if err := s.maybeExport(ctx, time.Now()); err != nil {
		s.evHandler("state: poll: export: ERROR: %s", err)
	}

	return nil
}

// normalize parses every reported peer and dedupes by node identity so one
// tick can never double-increment a seen count. The last sighting in the
// batch wins for the mutable fields. Unparseable entries are dropped; they
// carry no usable identity.
func (s *State) normalize(peers []p2p.PeerInfo) []peer.Sighting {
	index := make(map[string]int)
	sightings := make([]peer.Sighting, 0, len(peers))

	for _, p := range peers {
		u, err := enode.Parse(p.Enode)
		if err != nil {
			continue
		}

		sighting := peer.Sighting{
			NodeID:     u.ID,
			Enode:      p.Enode,
			Host:       u.Host,
			Port:       u.Port,
			ClientName: p.Name,
			Caps:       p.Caps,
			Geo:        s.geo(u.Host),
			Source:     s.source,
		}

		if i, ok := index[u.ID]; ok {
			sightings[i] = sighting
			continue
		}
		index[u.ID] = len(sightings)
		sightings = append(sightings, sighting)
	}

	return sightings
}

// =============================================================================

func (s *State) callPeers(ctx context.Context) ([]p2p.PeerInfo, error) {
	ctx, cancel := s.callCtx(ctx)
	defer cancel()
	return s.client.Peers(ctx)
}

func (s *State) callNodeInfo(ctx context.Context) (*p2p.NodeInfo, error) {
	ctx, cancel := s.callCtx(ctx)
	defer cancel()
	return s.client.NodeInfo(ctx)
}

func (s *State) callPeerCount(ctx context.Context) (int, error) {
	ctx, cancel := s.callCtx(ctx)
	defer cancel()
	return s.client.PeerCount(ctx)
}

// =============================================================================

func (s *State) markUnreachable() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rpcOK = false
}

func (s *State) updateSnapshot(peers []p2p.PeerInfo, info *p2p.NodeInfo, count int, now time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.rpcOK = true
	s.lastUpdate = now
	s.lastPeers = peers
	s.lastPeerCount = count
	s.nodeInfo = info
}

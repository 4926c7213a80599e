package state

import (
	"context"
	"time"

	"github.com/ethereum/go-ethereum/p2p"
	"github.com/ethernova/explorer/foundation/collector/enode"
	"github.com/ethernova/explorer/foundation/collector/peer"
)

// Health reports the collector's view of the monitored node.
type Health struct {
	RPCReachable bool  `json:"rpc"`
	LastUpdate   int64 `json:"lastUpdate"`
}

// RetrieveHealth returns the health signal for the reporting surface.
func (s *State) RetrieveHealth() Health {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var last int64
	if !s.lastUpdate.IsZero() {
		last = s.lastUpdate.UnixMilli()
	}

	return Health{
		RPCReachable: s.rpcOK,
		LastUpdate:   last,
	}
}

// QueryPeers returns one page of stored peers matching the filter plus the
// total number of matching rows. When mask is set the connection string and
// host are redacted before leaving the process; masked values are never
// persisted.
func (s *State) QueryPeers(ctx context.Context, filter peer.QueryFilter, sort string, asc bool, page peer.Page, mask bool) ([]peer.Peer, int, error) {
	peers, total, err := s.db.Query(ctx, filter, sort, asc, page, s.onlineCutoff(time.Now()))
	if err != nil {
		return nil, 0, err
	}

	if mask {
		for i := range peers {
			peers[i].Enode = enode.MaskURL(peers[i].Enode)
			peers[i].Host = enode.MaskHost(peers[i].Host)
		}
	}

	return peers, total, nil
}

// RetrieveEnodes returns every stored connection string, most recently seen
// first.
func (s *State) RetrieveEnodes(ctx context.Context) ([]string, error) {
	return s.db.Enodes(ctx)
}

// RetrieveCurrentPeers returns the raw peer snapshot from the latest
// successful tick, optionally with the privacy mask applied.
func (s *State) RetrieveCurrentPeers(mask bool) []p2p.PeerInfo {
	s.mu.RLock()
	peers := make([]p2p.PeerInfo, len(s.lastPeers))
	copy(peers, s.lastPeers)
	s.mu.RUnlock()

	if !mask {
		return peers
	}

	for i := range peers {
		peers[i].Enode = enode.MaskURL(peers[i].Enode)
		peers[i].Network.RemoteAddress = enode.MaskAddr(peers[i].Network.RemoteAddress)
		peers[i].Network.LocalAddress = enode.MaskAddr(peers[i].Network.LocalAddress)
	}

	return peers
}

// RetrieveNodeInfo returns the monitored node's self reported metadata from
// the latest successful tick, or nil when none is available.
func (s *State) RetrieveNodeInfo() *p2p.NodeInfo {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.nodeInfo == nil {
		return nil
	}
	info := *s.nodeInfo
	return &info
}

package state

import (
	"context"
	"fmt"
	"time"

	"github.com/ethernova/explorer/foundation/collector/peer"
)

// Stats computes the point-in-time aggregates over the peer store. Nothing
// is cached; every call recomputes against the current table so the result
// is always correct.
func (s *State) Stats(ctx context.Context) (peer.Stats, error) {
	now := time.Now()
	cutoff := s.onlineCutoff(now)

	total, online, err := s.db.Counts(ctx, cutoff)
	if err != nil {
		return peer.Stats{}, fmt.Errorf("counts: %w", err)
	}

	countries, err := s.db.TopCountries(ctx, cutoff)
	if err != nil {
		return peer.Stats{}, fmt.Errorf("top countries: %w", err)
	}

	asns, err := s.db.TopASNs(ctx, cutoff)
	if err != nil {
		return peer.Stats{}, fmt.Errorf("top asns: %w", err)
	}

	clients, err := s.db.TopClients(ctx)
	if err != nil {
		return peer.Stats{}, fmt.Errorf("top clients: %w", err)
	}

	topCountries := make([]peer.CountryCount, len(countries))
	for i, c := range countries {
		label := c.Code
		if c.Name != "" && c.Name != "UNKNOWN" {
			label = fmt.Sprintf("%s (%s)", c.Name, c.Code)
		}
		topCountries[i] = peer.CountryCount{
			Country: label,
			Online:  c.Online,
			Total:   c.Total,
		}
	}

	s.mu.RLock()
	peersNow := len(s.lastPeers)
	if peersNow == 0 {
		peersNow = s.lastPeerCount
	}
	var lastUpdate int64
	if !s.lastUpdate.IsZero() {
		lastUpdate = s.lastUpdate.UnixMilli()
	}
	s.mu.RUnlock()

	return peer.Stats{
		PeersNow:       peersNow,
		NodesSeenTotal: total,
		NodesOnline:    online,
		LastUpdate:     lastUpdate,
		TopCountries:   topCountries,
		TopASNs:        asns,
		TopClients:     clients,
	}, nil
}

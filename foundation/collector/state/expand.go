package state

import (
	"context"
	"time"

	"github.com/ethernova/explorer/foundation/collector/peer"
)

// rateWindow is the length of the expansion scheduler's rolling budget
// window.
const rateWindow = 60 * time.Second

// runExpansion issues outbound connect calls for eligible candidates under
// the per-window rate budget. Candidates are processed one at a time so the
// true connection-attempt rate stays at or below the budget even when the
// RPC is slow. The window counters live for the process lifetime only; a
// restart starts a fresh window.
func (s *State) runExpansion(ctx context.Context, now time.Time) {
	if !s.expansion.Enabled {
		return
	}

	if now.Sub(s.windowStart) >= rateWindow {
		s.windowStart = now
		s.windowCount = 0
	}

	remaining := s.expansion.RateLimit - s.windowCount
	if remaining <= 0 {
		return
	}

	limit := remaining
	if s.expansion.MaxCandidates > 0 && limit > s.expansion.MaxCandidates {
		limit = s.expansion.MaxCandidates
	}

	candidates, err := s.db.EligibleCandidates(ctx, limit)
	if err != nil {
		s.evHandler("state: expansion: select candidates: ERROR: %s", err)
		return
	}

	for _, c := range candidates {
		if s.windowCount >= s.expansion.RateLimit {
			break
		}

		// A candidate still inside its linear backoff is skipped without
		// consuming budget.
		if !c.Eligible(now) {
			continue
		}

		status := peer.StatusFailed
		ok, err := s.addPeer(ctx, c.Enode)
		switch {
		case err != nil:
			s.evHandler("state: expansion: addPeer: %s: ERROR: %s", c.NodeID, err)
		case ok:
			status = peer.StatusAdded
		}

		// The attempt is recorded and the budget consumed on every outcome,
		// including RPC errors, so a dead candidate keeps backing off.
		if err := s.db.RecordAttempt(ctx, c.Enode, time.Now(), status); err != nil {
			s.evHandler("state: expansion: record attempt: %s: ERROR: %s", c.NodeID, err)
		}
		s.windowCount++
	}
}

func (s *State) addPeer(ctx context.Context, enodeURL string) (bool, error) {
	ctx, cancel := s.callCtx(ctx)
	defer cancel()
	return s.client.AddPeer(ctx, enodeURL)
}

package state

import (
	"context"
	"time"

	"github.com/ethernova/explorer/foundation/collector/export"
)

// maybeExport writes the bootnode artifacts when the export interval has
// elapsed. The last-run timestamp is process lifetime only, so a restart may
// trigger one extra early run.
func (s *State) maybeExport(ctx context.Context, now time.Time) error {
	if !s.export.Enabled {
		return nil
	}
	if !s.lastExport.IsZero() && now.Sub(s.lastExport) < s.export.Interval {
		return nil
	}

	if err := export.Write(ctx, s.db, s.export.Files, s.onlineCutoff(now), now); err != nil {
		return err
	}

	s.lastExport = now
	s.evHandler("state: export: wrote %s and %s", s.export.Files.BootnodesPath, s.export.Files.StaticNodesPath)

	return nil
}

// Package export materializes the best-known peer set to bootnode artifact
// files consumed by deployment tooling.
package export

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/ethernova/explorer/foundation/collector/database"
)

// Config describes one export run.
type Config struct {
	Limit           int
	OnlyOnline      bool
	BootnodesPath   string
	StaticNodesPath string
}

// Write selects up to Limit connection strings from the store, merges them
// with the current contents of the bootnodes file and writes both artifacts:
// a line oriented plain-text file with a generated header and a JSON array
// file. Entries already present in the file keep their position; fresh
// entries are appended; the combined list is truncated to Limit.
func Write(ctx context.Context, db *database.DB, cfg Config, onlineCutoff time.Time, now time.Time) error {
	fresh, err := db.ExportEnodes(ctx, cfg.OnlyOnline, onlineCutoff, cfg.Limit)
	if err != nil {
		return fmt.Errorf("select enodes: %w", err)
	}

	existing, err := readList(cfg.BootnodesPath)
	if err != nil {
		return fmt.Errorf("read existing list: %w", err)
	}

	final := Merge(existing, fresh, cfg.Limit)

	header := fmt.Sprintf("# Generated by Ethernova Node Explorer at %s\n", now.UTC().Format(time.RFC3339))
	payload := header + strings.Join(final, "\n") + "\n"
	if err := writeFile(cfg.BootnodesPath, []byte(payload)); err != nil {
		return fmt.Errorf("write bootnodes: %w", err)
	}

	jsonData, err := json.MarshalIndent(final, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal static nodes: %w", err)
	}
	if err := writeFile(cfg.StaticNodesPath, append(jsonData, '\n')); err != nil {
		return fmt.Errorf("write static nodes: %w", err)
	}

	return nil
}

// Merge combines a previously exported list with a fresh selection. Existing
// entries come first in their original order so an operator-curated file is
// never reshuffled, duplicates collapse, and the result is truncated to
// limit. An entry only ever leaves the list by falling past the cutoff.
func Merge(existing []string, fresh []string, limit int) []string {
	combined := make([]string, 0, len(existing)+len(fresh))
	seen := make(map[string]struct{})

	for _, lists := range [][]string{existing, fresh} {
		for _, e := range lists {
			if _, ok := seen[e]; ok {
				continue
			}
			seen[e] = struct{}{}
			combined = append(combined, e)
		}
	}

	if len(combined) > limit {
		combined = combined[:limit]
	}

	return combined
}

// readList loads the current bootnodes file, ignoring blank lines and
// comments. A missing file is an empty list.
func readList(path string) ([]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}

	var list []string
	for _, line := range strings.Split(string(data), "\n") {
		line = strings.TrimSpace(strings.TrimSuffix(line, "\r"))
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		list = append(list, line)
	}

	return list, nil
}

// writeFile writes the artifact, creating parent directories as needed.
func writeFile(path string, data []byte) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

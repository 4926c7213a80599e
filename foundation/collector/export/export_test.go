package export_test

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/ethernova/explorer/foundation/collector/database"
	"github.com/ethernova/explorer/foundation/collector/export"
	"github.com/ethernova/explorer/foundation/collector/peer"
)

// Success and failure markers.
const (
	success = "✓"
	failed  = "✗"
)

// =============================================================================

func Test_Merge(t *testing.T) {
	type table struct {
		name     string
		existing []string
		fresh    []string
		limit    int
		want     []string
	}

	tt := []table{
		{
			name:     "existing kept in order, fresh appended",
			existing: []string{"A", "B"},
			fresh:    []string{"B", "C"},
			limit:    10,
			want:     []string{"A", "B", "C"},
		},
		{
			name:     "truncated to limit",
			existing: []string{"A", "B", "C"},
			fresh:    []string{"D", "E"},
			limit:    4,
			want:     []string{"A", "B", "C", "D"},
		},
		{
			name:     "empty existing",
			existing: nil,
			fresh:    []string{"A", "A", "B"},
			limit:    10,
			want:     []string{"A", "B"},
		},
		{
			name:     "fresh never reorders existing",
			existing: []string{"C", "A"},
			fresh:    []string{"A", "B", "C"},
			limit:    10,
			want:     []string{"C", "A", "B"},
		},
	}

	t.Log("Given the need to merge fresh selections into a curated list.")
	{
		for testID, tst := range tt {
			t.Logf("\tTest %d:\tWhen handling %s.", testID, tst.name)
			{
				got := export.Merge(tst.existing, tst.fresh, tst.limit)
				if !reflect.DeepEqual(got, tst.want) {
					t.Errorf("\t%s\tTest %d:\tShould get the merged list %v: got %v.", failed, testID, tst.want, got)
				} else {
					t.Logf("\t%s\tTest %d:\tShould get the merged list %v.", success, testID, tst.want)
				}
			}
		}
	}
}

func Test_Write(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()

	db, err := database.Open(filepath.Join(dir, "peers.db"))
	if err != nil {
		t.Fatalf("\t%s\tShould be able to open the database: %v", failed, err)
	}
	defer db.Close()

	now := time.Date(2023, time.March, 10, 12, 0, 0, 0, time.UTC)

	sightings := []peer.Sighting{
		{NodeID: "aa01", Enode: "enode://aa01@10.0.0.5:30303", Host: "10.0.0.5", Port: 30303},
		{NodeID: "bb02", Enode: "enode://bb02@10.0.0.6:30303", Host: "10.0.0.6", Port: 30303},
	}
	if err := db.UpsertSightings(ctx, now, sightings); err != nil {
		t.Fatalf("\t%s\tShould be able to seed the store: %v", failed, err)
	}

	cfg := export.Config{
		Limit:           10,
		OnlyOnline:      true,
		BootnodesPath:   filepath.Join(dir, "bootnodes.txt"),
		StaticNodesPath: filepath.Join(dir, "static-nodes.json"),
	}

	t.Log("Given the need to write the bootnode artifact files.")
	{
		t.Logf("\tTest 0:\tWhen exporting with an operator curated file in place.")
		{
			curated := "# my bootnodes\nenode://op01@192.0.2.1:30303\n"
			if err := os.WriteFile(cfg.BootnodesPath, []byte(curated), 0644); err != nil {
				t.Fatalf("\t%s\tTest 0:\tShould be able to seed the bootnodes file: %v", failed, err)
			}

			if err := export.Write(ctx, db, cfg, now.Add(-time.Minute), now); err != nil {
				t.Fatalf("\t%s\tTest 0:\tShould be able to write the artifacts: %v", failed, err)
			}
			t.Logf("\t%s\tTest 0:\tShould be able to write the artifacts.", success)

			data, err := os.ReadFile(cfg.BootnodesPath)
			if err != nil {
				t.Fatalf("\t%s\tTest 0:\tShould be able to read the bootnodes file back: %v", failed, err)
			}

			lines := strings.Split(strings.TrimSpace(string(data)), "\n")
			if !strings.HasPrefix(lines[0], "# Generated by Ethernova Node Explorer at ") {
				t.Errorf("\t%s\tTest 0:\tShould start with the generated header: got %q.", failed, lines[0])
			} else {
				t.Logf("\t%s\tTest 0:\tShould start with the generated header.", success)
			}

			if lines[1] != "enode://op01@192.0.2.1:30303" {
				t.Errorf("\t%s\tTest 0:\tShould keep the curated entry first: got %q.", failed, lines[1])
			} else {
				t.Logf("\t%s\tTest 0:\tShould keep the curated entry first.", success)
			}

			if len(lines) != 4 {
				t.Fatalf("\t%s\tTest 0:\tShould contain the curated entry plus both stored peers: got %d lines.", failed, len(lines))
			}
			t.Logf("\t%s\tTest 0:\tShould contain the curated entry plus both stored peers.", success)
		}

		t.Logf("\tTest 1:\tWhen checking the JSON artifact.")
		{
			data, err := os.ReadFile(cfg.StaticNodesPath)
			if err != nil {
				t.Fatalf("\t%s\tTest 1:\tShould be able to read the static nodes file: %v", failed, err)
			}

			var list []string
			if err := json.Unmarshal(data, &list); err != nil {
				t.Fatalf("\t%s\tTest 1:\tShould contain a JSON array: %v", failed, err)
			}
			if len(list) != 3 || list[0] != "enode://op01@192.0.2.1:30303" {
				t.Fatalf("\t%s\tTest 1:\tShould mirror the merged list: got %v.", failed, list)
			}
			t.Logf("\t%s\tTest 1:\tShould mirror the merged list.", success)
		}

		t.Logf("\tTest 2:\tWhen re-exporting after a peer goes offline.")
		{
			later := now.Add(time.Hour)
			if err := export.Write(ctx, db, cfg, later.Add(-time.Minute), later); err != nil {
				t.Fatalf("\t%s\tTest 2:\tShould be able to re-export: %v", failed, err)
			}

			data, err := os.ReadFile(cfg.BootnodesPath)
			if err != nil {
				t.Fatalf("\t%s\tTest 2:\tShould be able to read the bootnodes file back: %v", failed, err)
			}

			// Nothing fresh qualifies, but everything already in the file stays.
			lines := strings.Split(strings.TrimSpace(string(data)), "\n")
			if len(lines) != 4 {
				t.Fatalf("\t%s\tTest 2:\tShould keep prior entries when nothing fresh qualifies: got %d lines.", failed, len(lines))
			}
			t.Logf("\t%s\tTest 2:\tShould keep prior entries when nothing fresh qualifies.", success)
		}
	}
}

package database_test

import (
	"context"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/ethernova/explorer/foundation/collector/database"
	"github.com/ethernova/explorer/foundation/collector/peer"
)

// Success and failure markers.
const (
	success = "✓"
	failed  = "✗"
)

// =============================================================================

func openDB(t *testing.T) *database.DB {
	t.Helper()

	db, err := database.Open(filepath.Join(t.TempDir(), "peers.db"))
	if err != nil {
		t.Fatalf("\t%s\tShould be able to open the database: %v", failed, err)
	}
	t.Cleanup(func() { db.Close() })

	return db
}

func sighting(id string, host string, port uint16) peer.Sighting {
	return peer.Sighting{
		NodeID:     id,
		Enode:      fmt.Sprintf("enode://%s@%s:%d", id, host, port),
		Host:       host,
		Port:       port,
		ClientName: "Geth/v1.13.0",
		Caps:       []string{"eth/68"},
		Source:     "local-1",
	}
}

func Test_Sightings(t *testing.T) {
	db := openDB(t)
	ctx := context.Background()

	t.Log("Given the need to record peer sightings across poll ticks.")
	{
		t.Logf("\tTest 0:\tWhen sighting a new identity.")
		{
			now := time.Date(2023, time.March, 10, 12, 0, 0, 0, time.UTC)

			if err := db.UpsertSightings(ctx, now, []peer.Sighting{sighting("aa01", "10.0.0.5", 30303)}); err != nil {
				t.Fatalf("\t%s\tTest 0:\tShould be able to upsert a sighting: %v", failed, err)
			}
			t.Logf("\t%s\tTest 0:\tShould be able to upsert a sighting.", success)

			peers, total, err := db.Query(ctx, peer.QueryFilter{}, "last_seen", false, peer.Page{Number: 1, Size: 10}, now)
			if err != nil {
				t.Fatalf("\t%s\tTest 0:\tShould be able to query peers: %v", failed, err)
			}
			if total != 1 || len(peers) != 1 {
				t.Fatalf("\t%s\tTest 0:\tShould have exactly one stored peer: got %d.", failed, total)
			}
			t.Logf("\t%s\tTest 0:\tShould have exactly one stored peer.", success)

			p := peers[0]
			if p.SeenCount != 1 {
				t.Errorf("\t%s\tTest 0:\tShould have a seen count of 1: got %d.", failed, p.SeenCount)
			} else {
				t.Logf("\t%s\tTest 0:\tShould have a seen count of 1.", success)
			}
			if p.FirstSeen != now.UnixMilli() || p.LastSeen != now.UnixMilli() {
				t.Errorf("\t%s\tTest 0:\tShould have first and last seen at the tick instant.", failed)
			} else {
				t.Logf("\t%s\tTest 0:\tShould have first and last seen at the tick instant.", success)
			}
		}

		t.Logf("\tTest 1:\tWhen re-sighting a known identity with a new address.")
		{
			first := time.Date(2023, time.March, 10, 12, 0, 0, 0, time.UTC)
			second := first.Add(15 * time.Second)

			if err := db.UpsertSightings(ctx, second, []peer.Sighting{sighting("aa01", "10.0.0.9", 30304)}); err != nil {
				t.Fatalf("\t%s\tTest 1:\tShould be able to upsert a re-sighting: %v", failed, err)
			}
			t.Logf("\t%s\tTest 1:\tShould be able to upsert a re-sighting.", success)

			peers, total, err := db.Query(ctx, peer.QueryFilter{}, "last_seen", false, peer.Page{Number: 1, Size: 10}, second)
			if err != nil {
				t.Fatalf("\t%s\tTest 1:\tShould be able to query peers: %v", failed, err)
			}
			if total != 1 {
				t.Fatalf("\t%s\tTest 1:\tShould still have exactly one stored peer: got %d.", failed, total)
			}
			t.Logf("\t%s\tTest 1:\tShould still have exactly one stored peer.", success)

			p := peers[0]
			if p.SeenCount != 2 {
				t.Errorf("\t%s\tTest 1:\tShould have a seen count of 2: got %d.", failed, p.SeenCount)
			} else {
				t.Logf("\t%s\tTest 1:\tShould have a seen count of 2.", success)
			}
			if p.FirstSeen != first.UnixMilli() {
				t.Errorf("\t%s\tTest 1:\tShould keep the original first seen instant.", failed)
			} else {
				t.Logf("\t%s\tTest 1:\tShould keep the original first seen instant.", success)
			}
			if p.LastSeen != second.UnixMilli() {
				t.Errorf("\t%s\tTest 1:\tShould advance the last seen instant.", failed)
			} else {
				t.Logf("\t%s\tTest 1:\tShould advance the last seen instant.", success)
			}
			if p.Host != "10.0.0.9" || p.Port != 30304 {
				t.Errorf("\t%s\tTest 1:\tShould overwrite the address fields: got %s:%d.", failed, p.Host, p.Port)
			} else {
				t.Logf("\t%s\tTest 1:\tShould overwrite the address fields.", success)
			}
		}
	}
}

func Test_Query(t *testing.T) {
	db := openDB(t)
	ctx := context.Background()

	now := time.Date(2023, time.March, 10, 12, 0, 0, 0, time.UTC)

	var sightings []peer.Sighting
	for i := 0; i < 25; i++ {
		s := sighting(fmt.Sprintf("node%02d", i), fmt.Sprintf("10.0.0.%d", i+1), 30303)
		sightings = append(sightings, s)
	}
	if err := db.UpsertSightings(ctx, now, sightings); err != nil {
		t.Fatalf("\t%s\tShould be able to seed the store: %v", failed, err)
	}

	t.Log("Given the need to page and sort the stored peer set.")
	{
		t.Logf("\tTest 0:\tWhen paging with a size of 10 over 25 rows.")
		{
			for testID, tst := range []struct{ page, want int }{{1, 10}, {2, 10}, {3, 5}} {
				peers, total, err := db.Query(ctx, peer.QueryFilter{}, "first_seen", true, peer.Page{Number: tst.page, Size: 10}, now)
				if err != nil {
					t.Fatalf("\t%s\tTest 0:\tShould be able to query page %d: %v", failed, tst.page, err)
				}
				if total != 25 {
					t.Errorf("\t%s\tTest 0:\tShould report a total of 25: got %d.", failed, total)
				}
				if len(peers) != tst.want {
					t.Errorf("\t%s\tTest 0:\tShould get %d rows on page %d: got %d.", failed, tst.want, tst.page, len(peers))
				} else {
					t.Logf("\t%s\tTest 0:\tShould get %d rows on page %d. (case %d)", success, tst.want, tst.page, testID)
				}
			}
		}

		t.Logf("\tTest 1:\tWhen sorting on an unknown column.")
		{
			if _, _, err := db.Query(ctx, peer.QueryFilter{}, "evil; DROP TABLE peers", false, peer.Page{Number: 1, Size: 5}, now); err != nil {
				t.Fatalf("\t%s\tTest 1:\tShould fall back to a safe sort column: %v", failed, err)
			}
			t.Logf("\t%s\tTest 1:\tShould fall back to a safe sort column.", success)

			if _, total, err := db.Query(ctx, peer.QueryFilter{}, "last_seen", false, peer.Page{Number: 1, Size: 5}, now); err != nil || total != 25 {
				t.Fatalf("\t%s\tTest 1:\tShould leave the table intact: total %d, %v", failed, total, err)
			}
			t.Logf("\t%s\tTest 1:\tShould leave the table intact.", success)
		}

		t.Logf("\tTest 2:\tWhen filtering on the online window.")
		{
			later := now.Add(20 * time.Minute)
			if err := db.UpsertSightings(ctx, later, []peer.Sighting{sighting("node00", "10.0.0.1", 30303)}); err != nil {
				t.Fatalf("\t%s\tTest 2:\tShould be able to re-sight one peer: %v", failed, err)
			}

			peers, total, err := db.Query(ctx, peer.QueryFilter{Online: true}, "last_seen", false, peer.Page{Number: 1, Size: 50}, later.Add(-10*time.Minute))
			if err != nil {
				t.Fatalf("\t%s\tTest 2:\tShould be able to query online peers: %v", failed, err)
			}
			if total != 1 || len(peers) != 1 || peers[0].NodeID != "node00" {
				t.Fatalf("\t%s\tTest 2:\tShould only match the recently sighted peer: got %d.", failed, total)
			}
			t.Logf("\t%s\tTest 2:\tShould only match the recently sighted peer.", success)

			if !peers[0].Online {
				t.Errorf("\t%s\tTest 2:\tShould flag the row as online.", failed)
			} else {
				t.Logf("\t%s\tTest 2:\tShould flag the row as online.", success)
			}
		}
	}
}

func Test_Candidates(t *testing.T) {
	db := openDB(t)
	ctx := context.Background()

	now := time.Date(2023, time.March, 10, 12, 0, 0, 0, time.UTC)

	t.Log("Given the need to queue peers for outbound expansion.")
	{
		t.Logf("\tTest 0:\tWhen inserting and re-inserting candidates.")
		{
			s := sighting("aa01", "10.0.0.5", 30303)
			if err := db.InsertCandidates(ctx, now, []peer.Sighting{s}); err != nil {
				t.Fatalf("\t%s\tTest 0:\tShould be able to insert a candidate: %v", failed, err)
			}
			t.Logf("\t%s\tTest 0:\tShould be able to insert a candidate.", success)

			if err := db.RecordAttempt(ctx, s.Enode, now.Add(time.Minute), peer.StatusFailed); err != nil {
				t.Fatalf("\t%s\tTest 0:\tShould be able to record an attempt: %v", failed, err)
			}

			if err := db.InsertCandidates(ctx, now.Add(2*time.Minute), []peer.Sighting{s}); err != nil {
				t.Fatalf("\t%s\tTest 0:\tShould be able to re-insert the candidate: %v", failed, err)
			}

			candidates, err := db.EligibleCandidates(ctx, 10)
			if err != nil {
				t.Fatalf("\t%s\tTest 0:\tShould be able to query candidates: %v", failed, err)
			}
			if len(candidates) != 1 {
				t.Fatalf("\t%s\tTest 0:\tShould have exactly one candidate: got %d.", failed, len(candidates))
			}
			t.Logf("\t%s\tTest 0:\tShould have exactly one candidate.", success)

			c := candidates[0]
			if c.Attempts != 1 || c.Status != peer.StatusFailed || c.FirstSeen != now.UnixMilli() {
				t.Errorf("\t%s\tTest 0:\tShould keep attempt history on re-insert: attempts %d status %q.", failed, c.Attempts, c.Status)
			} else {
				t.Logf("\t%s\tTest 0:\tShould keep attempt history on re-insert.", success)
			}
		}

		t.Logf("\tTest 1:\tWhen selecting candidates for an attempt.")
		{
			fresh := sighting("bb02", "10.0.0.6", 30303)
			if err := db.InsertCandidates(ctx, now.Add(3*time.Minute), []peer.Sighting{fresh}); err != nil {
				t.Fatalf("\t%s\tTest 1:\tShould be able to insert a fresh candidate: %v", failed, err)
			}

			candidates, err := db.EligibleCandidates(ctx, 10)
			if err != nil {
				t.Fatalf("\t%s\tTest 1:\tShould be able to query candidates: %v", failed, err)
			}
			if len(candidates) != 2 {
				t.Fatalf("\t%s\tTest 1:\tShould have two candidates: got %d.", failed, len(candidates))
			}
			if candidates[0].NodeID != "bb02" {
				t.Errorf("\t%s\tTest 1:\tShould order never-attempted candidates first: got %s.", failed, candidates[0].NodeID)
			} else {
				t.Logf("\t%s\tTest 1:\tShould order never-attempted candidates first.", success)
			}
		}

		t.Logf("\tTest 2:\tWhen a candidate has been added.")
		{
			if err := db.RecordAttempt(ctx, sighting("bb02", "10.0.0.6", 30303).Enode, now.Add(4*time.Minute), peer.StatusAdded); err != nil {
				t.Fatalf("\t%s\tTest 2:\tShould be able to record a success: %v", failed, err)
			}

			candidates, err := db.EligibleCandidates(ctx, 10)
			if err != nil {
				t.Fatalf("\t%s\tTest 2:\tShould be able to query candidates: %v", failed, err)
			}
			for _, c := range candidates {
				if c.NodeID == "bb02" {
					t.Fatalf("\t%s\tTest 2:\tShould exclude added candidates from selection.", failed)
				}
			}
			t.Logf("\t%s\tTest 2:\tShould exclude added candidates from selection.", success)
		}
	}
}

func Test_Stats(t *testing.T) {
	db := openDB(t)
	ctx := context.Background()

	now := time.Date(2023, time.March, 10, 12, 0, 0, 0, time.UTC)

	s1 := sighting("aa01", "10.0.0.5", 30303)
	s1.Geo = peer.Geo{CountryCode: "DE", CountryName: "Germany", ASNNumber: 24940, ASNOrg: "Hetzner"}

	s2 := sighting("bb02", "10.0.0.6", 30303)
	s2.Geo = peer.Geo{CountryCode: "DE", CountryName: "Germany", ASNNumber: 24940, ASNOrg: "Hetzner"}

	s3 := sighting("cc03", "10.0.0.7", 30303)
	s3.ClientName = ""

	if err := db.UpsertSightings(ctx, now, []peer.Sighting{s1, s2, s3}); err != nil {
		t.Fatalf("\t%s\tShould be able to seed the store: %v", failed, err)
	}

	t.Log("Given the need to aggregate stats over the peer store.")
	{
		t.Logf("\tTest 0:\tWhen counting peers.")
		{
			total, online, err := db.Counts(ctx, now.Add(-time.Minute))
			if err != nil {
				t.Fatalf("\t%s\tTest 0:\tShould be able to count peers: %v", failed, err)
			}
			if total != 3 || online != 3 {
				t.Fatalf("\t%s\tTest 0:\tShould count 3 total and 3 online: got %d/%d.", failed, total, online)
			}
			t.Logf("\t%s\tTest 0:\tShould count 3 total and 3 online.", success)
		}

		t.Logf("\tTest 1:\tWhen grouping by country with missing geo data.")
		{
			countries, err := db.TopCountries(ctx, now.Add(-time.Minute))
			if err != nil {
				t.Fatalf("\t%s\tTest 1:\tShould be able to group countries: %v", failed, err)
			}
			if len(countries) != 2 {
				t.Fatalf("\t%s\tTest 1:\tShould have two country groups: got %d.", failed, len(countries))
			}
			if countries[0].Code != "DE" || countries[0].Total != 2 {
				t.Errorf("\t%s\tTest 1:\tShould rank DE first with 2 peers: got %s/%d.", failed, countries[0].Code, countries[0].Total)
			} else {
				t.Logf("\t%s\tTest 1:\tShould rank DE first with 2 peers.", success)
			}
			if countries[1].Code != "UNKNOWN" {
				t.Errorf("\t%s\tTest 1:\tShould report missing geo data as UNKNOWN: got %s.", failed, countries[1].Code)
			} else {
				t.Logf("\t%s\tTest 1:\tShould report missing geo data as UNKNOWN.", success)
			}
		}

		t.Logf("\tTest 2:\tWhen grouping by client name.")
		{
			clients, err := db.TopClients(ctx)
			if err != nil {
				t.Fatalf("\t%s\tTest 2:\tShould be able to group clients: %v", failed, err)
			}
			if len(clients) != 2 || clients[0].Client != "Geth/v1.13.0" || clients[0].Count != 2 {
				t.Fatalf("\t%s\tTest 2:\tShould rank the geth client first with 2 peers.", failed)
			}
			t.Logf("\t%s\tTest 2:\tShould rank the geth client first with 2 peers.", success)

			if clients[1].Client != "UNKNOWN" {
				t.Errorf("\t%s\tTest 2:\tShould report a missing client name as UNKNOWN: got %s.", failed, clients[1].Client)
			} else {
				t.Logf("\t%s\tTest 2:\tShould report a missing client name as UNKNOWN.", success)
			}
		}
	}
}

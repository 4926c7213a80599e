// Package peer maintains the peer related information recorded by the
// collector such as sightings, stored records and expansion candidates.
package peer

import "time"

// Candidate status values. A candidate with no status yet is treated
// as StatusPending.
const (
	StatusPending = "pending"
	StatusAdded   = "added"
	StatusFailed  = "failed"
)

// Geo carries the geolocation metadata resolved for a sighting. The zero
// value means the lookup resolved nothing.
type Geo struct {
	CountryCode string
	CountryName string
	ASNNumber   uint
	ASNOrg      string
}

// Sighting represents one observation of a peer during one poll tick.
type Sighting struct {
	NodeID     string
	Enode      string
	Host       string
	Port       uint16
	ClientName string
	Caps       []string
	Geo        Geo
	Source     string
}

// Peer represents the stored record for a distinct node identity.
type Peer struct {
	NodeID     string   `json:"node_id"`
	Enode      string   `json:"enode"`
	Host       string   `json:"ip"`
	Port       uint16   `json:"tcp_port"`
	ClientName string   `json:"client_name"`
	Caps       []string `json:"caps"`
	FirstSeen  int64    `json:"first_seen"`
	LastSeen   int64    `json:"last_seen"`
	SeenCount  int      `json:"seen_count"`
	Geo        Geo      `json:"-"`
	Source     string   `json:"last_source"`
	Online     bool     `json:"online"`
}

// Candidate represents a peer queued for active outbound expansion.
type Candidate struct {
	Enode       string
	NodeID      string
	Host        string
	Port        uint16
	FirstSeen   int64
	Attempts    int
	LastAttempt int64
	Status      string
}

// Eligible reports whether the candidate's linear backoff has elapsed at the
// given instant. The backoff grows one minute per prior attempt.
func (c Candidate) Eligible(now time.Time) bool {
	if c.LastAttempt == 0 {
		return true
	}
	backoff := int64(c.Attempts+1) * time.Minute.Milliseconds()
	return now.UnixMilli()-c.LastAttempt >= backoff
}

// =============================================================================

// QueryFilter represents the predicates a peer listing can apply.
type QueryFilter struct {
	Search  string
	Client  string
	Country string
	ASN     uint
	HasASN  bool
	Online  bool
}

// Page represents the offset based pagination of a peer listing.
type Page struct {
	Number int
	Size   int
}

// =============================================================================

// CountryCount is one row of the country breakdown.
type CountryCount struct {
	Country string `json:"country"`
	Online  int    `json:"online"`
	Total   int    `json:"total"`
}

// ASNCount is one row of the ASN breakdown.
type ASNCount struct {
	ASN    uint   `json:"asn"`
	Org    string `json:"org"`
	Online int    `json:"online"`
	Total  int    `json:"total"`
}

// ClientCount is one row of the client breakdown.
type ClientCount struct {
	Client string `json:"client"`
	Count  int    `json:"count"`
}

// Stats carries the point-in-time aggregates computed over the peer store.
type Stats struct {
	PeersNow       int            `json:"peersNow"`
	NodesSeenTotal int            `json:"nodesSeenTotal"`
	NodesOnline    int            `json:"nodesOnline"`
	LastUpdate     int64          `json:"lastUpdate"`
	TopCountries   []CountryCount `json:"topCountries"`
	TopASNs        []ASNCount     `json:"topASNs"`
	TopClients     []ClientCount  `json:"topClients"`
}

package public

import (
	"github.com/ethernova/explorer/foundation/collector/peer"
	"github.com/ethernova/explorer/foundation/validate"
)

// nodesQuery represents the filter, sort and pagination inputs of the
// stored-peer listing.
type nodesQuery struct {
	Page     int    `json:"page"`
	PageSize int    `json:"pageSize"`
	Sort     string `json:"sort"`
	Dir      string `json:"dir" validate:"omitempty,oneof=asc desc"`
	Status   string `json:"status" validate:"omitempty,oneof=online all"`
	Search   string `json:"search"`
	Client   string `json:"client"`
	Country  string `json:"country"`
	ASN      uint   `json:"asn"`
	HideIP   bool   `json:"hideIp"`
}

// Validate checks the query values for correctness.
func (q nodesQuery) Validate() error {
	return validate.Check(q)
}

// nodesResponse is the paginated listing envelope.
type nodesResponse struct {
	Page     int         `json:"page"`
	PageSize int         `json:"pageSize"`
	Total    int         `json:"total"`
	Items    []peer.Peer `json:"items"`
}

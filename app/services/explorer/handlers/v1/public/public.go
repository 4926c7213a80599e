// Package public maintains the group of handlers for public access.
package public

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/ethernova/explorer/foundation/collector/peer"
	"github.com/ethernova/explorer/foundation/collector/state"
	"github.com/ethernova/explorer/foundation/events"
	"github.com/ethernova/explorer/foundation/web"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

// Handlers manages the set of explorer endpoints.
type Handlers struct {
	Log   *zap.SugaredLogger
	State *state.State
	WS    websocket.Upgrader
	Evts  *events.Events
}

// Health reports whether the monitored node was reachable on the latest
// tick and when that tick ran.
func (h Handlers) Health(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	health := h.State.RetrieveHealth()

	resp := struct {
		OK         bool  `json:"ok"`
		RPC        bool  `json:"rpc"`
		LastUpdate int64 `json:"lastUpdate"`
	}{
		OK:         true,
		RPC:        health.RPCReachable,
		LastUpdate: health.LastUpdate,
	}

	return web.Respond(ctx, w, resp, http.StatusOK)
}

// Stats returns the point-in-time aggregates over the peer store.
func (h Handlers) Stats(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	stats, err := h.State.Stats(ctx)
	if err != nil {
		return err
	}

	return web.Respond(ctx, w, stats, http.StatusOK)
}

// Peers returns the raw peer snapshot from the latest successful tick. The
// hideIp query parameter applies the privacy mask per request; masked data
// is never persisted.
func (h Handlers) Peers(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	mask := web.QueryBool(r, "hideIp")
	return web.Respond(ctx, w, h.State.RetrieveCurrentPeers(mask), http.StatusOK)
}

// NodeInfo returns the monitored node's self reported metadata.
func (h Handlers) NodeInfo(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	info := h.State.RetrieveNodeInfo()
	if info == nil {
		return web.Respond(ctx, w, struct{}{}, http.StatusOK)
	}

	return web.Respond(ctx, w, info, http.StatusOK)
}

// Nodes returns one page of the stored peer set.
func (h Handlers) Nodes(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	q := nodesQuery{
		Page:     web.QueryInt(r, "page", 1),
		PageSize: web.QueryInt(r, "pageSize", 25),
		Sort:     web.Query(r, "sort", "last_seen"),
		Dir:      web.Query(r, "dir", "desc"),
		Status:   web.Query(r, "status", "online"),
		Search:   web.Query(r, "search", ""),
		Client:   web.Query(r, "client", ""),
		Country:  web.Query(r, "country", ""),
		ASN:      uint(web.QueryInt(r, "asn", 0)),
		HideIP:   web.QueryBool(r, "hideIp"),
	}
	if err := q.Validate(); err != nil {
		return err
	}

	filter := peer.QueryFilter{
		Search:  q.Search,
		Client:  q.Client,
		Country: q.Country,
		ASN:     q.ASN,
		HasASN:  q.ASN != 0,
		Online:  q.Status != "all",
	}
	page := peer.Page{Number: q.Page, Size: q.PageSize}

	items, total, err := h.State.QueryPeers(ctx, filter, q.Sort, q.Dir == "asc", page, q.HideIP)
	if err != nil {
		return err
	}

	resp := nodesResponse{
		Page:     q.Page,
		PageSize: q.PageSize,
		Total:    total,
		Items:    items,
	}

	return web.Respond(ctx, w, resp, http.StatusOK)
}

// ExportText returns every stored connection string as plain text, one per
// line, most recently seen first.
func (h Handlers) ExportText(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	enodes, err := h.State.RetrieveEnodes(ctx)
	if err != nil {
		return err
	}

	return web.RespondText(ctx, w, []byte(strings.Join(enodes, "\n")), "text/plain", http.StatusOK)
}

// ExportJSON returns every stored connection string as a JSON array.
func (h Handlers) ExportJSON(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	enodes, err := h.State.RetrieveEnodes(ctx)
	if err != nil {
		return err
	}
	if enodes == nil {
		enodes = []string{}
	}

	return web.Respond(ctx, w, enodes, http.StatusOK)
}

// ExportCSV returns every stored connection string as CSV with an enode
// header row. Every value is double-quote escaped.
func (h Handlers) ExportCSV(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	enodes, err := h.State.RetrieveEnodes(ctx)
	if err != nil {
		return err
	}

	var sb strings.Builder
	sb.WriteString("enode")
	for _, e := range enodes {
		sb.WriteString("\n\"")
		sb.WriteString(strings.ReplaceAll(e, `"`, `""`))
		sb.WriteString("\"")
	}

	return web.RespondText(ctx, w, []byte(sb.String()), "text/csv", http.StatusOK)
}

// Events handles a web socket to provide collector events to a client.
func (h Handlers) Events(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	v, err := web.GetValues(ctx)
	if err != nil {
		return web.NewShutdownError("web value missing from context")
	}

	h.WS.CheckOrigin = func(r *http.Request) bool { return true }

	c, err := h.WS.Upgrade(w, r, nil)
	if err != nil {
		return err
	}
	defer c.Close()

	ch := h.Evts.Acquire(v.TraceID)
	defer h.Evts.Release(v.TraceID)

	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()

	for {
		select {
		case msg, wd := <-ch:
			if !wd {
				return nil
			}

			if err := c.WriteMessage(websocket.TextMessage, []byte(msg)); err != nil {
				return err
			}

		case <-ticker.C:
			if err := c.WriteMessage(websocket.PingMessage, []byte("ping")); err != nil {
				return nil
			}
		}
	}
}

// Package v1 contains the full set of handler functions and routes
// supported by the v1 web api.
package v1

import (
	"net/http"

	"github.com/ethernova/explorer/app/services/explorer/handlers/v1/public"
	"github.com/ethernova/explorer/foundation/collector/state"
	"github.com/ethernova/explorer/foundation/events"
	"github.com/ethernova/explorer/foundation/web"
	"go.uber.org/zap"
)

const version = "v1"

// Config contains all the mandatory systems required by handlers.
type Config struct {
	Log   *zap.SugaredLogger
	State *state.State
	Evts  *events.Events
}

// PublicRoutes binds all the version 1 public routes.
func PublicRoutes(app *web.App, cfg Config) {
	pbl := public.Handlers{
		Log:   cfg.Log,
		State: cfg.State,
		Evts:  cfg.Evts,
	}

	app.Handle(http.MethodGet, version, "/health", pbl.Health)
	app.Handle(http.MethodGet, version, "/stats", pbl.Stats)
	app.Handle(http.MethodGet, version, "/peers", pbl.Peers)
	app.Handle(http.MethodGet, version, "/node", pbl.NodeInfo)
	app.Handle(http.MethodGet, version, "/nodes", pbl.Nodes)
	app.Handle(http.MethodGet, version, "/export/enodes.txt", pbl.ExportText)
	app.Handle(http.MethodGet, version, "/export/enodes.json", pbl.ExportJSON)
	app.Handle(http.MethodGet, version, "/export/enodes.csv", pbl.ExportCSV)
	app.Handle(http.MethodGet, version, "/events", pbl.Events)
}

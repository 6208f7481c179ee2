package gateway

import (
	"net/http"
	"time"

	"github.com/flemzord/crew/internal/core"
)

// HealthResponse is the JSON response for GET /health.
type HealthResponse struct {
	Status string  `json:"status"`
	Uptime float64 `json:"uptime_seconds"`

	// Providers lists the adapter modules compiled into the binary.
	Providers []string `json:"providers"`
}

// handleHealth reports liveness. It does not call providers: a provider
// outage surfaces on the run that hits it.
func (g *Gateway) handleHealth() http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		resp := HealthResponse{Status: "ok", Providers: []string{}}
		if !g.startedAt.IsZero() {
			resp.Uptime = time.Since(g.startedAt).Seconds()
		}
		for _, info := range core.GetModulesByNamespace("provider") {
			resp.Providers = append(resp.Providers, string(info.ID))
		}
		writeJSON(w, http.StatusOK, resp)
	}
}

package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/MrSnakeDoc/smartmark/internal/httpserver/deps"
)

type componentStatus struct {
	OK        bool   `json:"ok"`
	Backend   string `json:"backend,omitempty"`
	LatencyMS *int64 `json:"latency_ms,omitempty"`
	Mounted   *int   `json:"mounted,omitempty"`
	Mode      string `json:"mode,omitempty"`
	Impact    string `json:"impact,omitempty"`
	Error     string `json:"error,omitempty"`
}

type infraResponse struct {
	Status     string                     `json:"status"`
	Components map[string]componentStatus `json:"components"`
}

func Infra(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Header().Set("Cache-Control", "no-store")

		mounted := d.Views.Len()
		components := map[string]componentStatus{
			"store": checkStore(r.Context(), d),
			"live_views": {
				OK:      true,
				Mounted: &mounted,
			},
			"auth": {
				OK:      d.Provider != nil,
				Backend: providerName(d),
			},
		}

		w.WriteHeader(http.StatusOK)
		_ = json.NewEncoder(w).Encode(infraResponse{
			Status:     overallStatus(components),
			Components: components,
		})
	}
}

func providerName(d deps.Deps) string {
	if d.Provider == nil {
		return ""
	}
	return d.Provider.Name()
}

// overallStatus is "down" without a store, "degraded" when anything else
// is off, "ok" otherwise.
func overallStatus(components map[string]componentStatus) string {
	if store, ok := components["store"]; ok && !store.OK {
		return "down"
	}
	for _, c := range components {
		if !c.OK {
			return "degraded"
		}
	}
	return "ok"
}

func checkStore(parent context.Context, d deps.Deps) componentStatus {
	if d.Store == nil {
		return componentStatus{
			OK:     false,
			Impact: "bookmarks-unavailable",
			Error:  "store not initialized",
		}
	}

	ctx, cancel := context.WithTimeout(parent, pingTimeout)
	defer cancel()

	start := time.Now()
	err := d.Store.Ping(ctx)
	latency := time.Since(start).Milliseconds()
	if err != nil {
		return componentStatus{
			OK:      false,
			Backend: d.StoreKind,
			Impact:  "bookmarks-unavailable",
			Error:   "ping failed",
		}
	}

	return componentStatus{
		OK:        true,
		Backend:   d.StoreKind,
		LatencyMS: &latency,
		Mode:      "live",
	}
}

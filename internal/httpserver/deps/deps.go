package deps

import (
	"time"

	"github.com/MrSnakeDoc/smartmark/internal/auth"
	"github.com/MrSnakeDoc/smartmark/internal/dashboard"
	"github.com/MrSnakeDoc/smartmark/internal/domain"
	"github.com/MrSnakeDoc/smartmark/internal/logger"
)

type Deps struct {
	Logger       logger.Logger
	StartTime    time.Time
	Version      string
	Commit       string
	BuildDate    string
	GoVersion    string
	TimeNow      func() time.Time    // for testing, defaults to time.Now
	AllowedHosts []string            // Host headers allowed to access the server
	AllowedCIDRS []string            // IPs allowed to access healthz/readyz/infra endpoints
	TrustProxy   bool                // true if running behind a trusted reverse proxy (e.g., cloudflared)
	StoreKind    string              // "redis" | "postgres" | "memory", reported by /infra
	Store        domain.Store        // bookmark rows + change feed
	Sessions     *auth.Sessions      // session cookies / bearer tokens
	Provider     auth.Provider       // OAuth identity provider
	Views        *dashboard.Registry // mounted dashboards, keyed by view id
	APIBurst     int                 // token bucket size per API client
	APIRefill    int                 // tokens per minute per API client
	SSEHeartbeat time.Duration       // keep-alive comment interval on event streams
}

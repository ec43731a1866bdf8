package routes

import (
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/MrSnakeDoc/smartmark/internal/httpserver/deps"
	"github.com/MrSnakeDoc/smartmark/internal/httpserver/handlers"
	"github.com/MrSnakeDoc/smartmark/internal/httpserver/mw"
)

func init() { Register(registerAPI, middleware.Timeout(10*time.Second)) }

func registerAPI(r chi.Router, d deps.Deps) {
	r.Route("/api/bookmarks", func(r chi.Router) {
		r.Use(mw.EnforceHost(d.AllowedHosts, d.Logger))
		r.Use(mw.RateLimit(mw.RateLimitConfig{
			Burst:             d.APIBurst,
			RefillPerIPPerMin: d.APIRefill,
			MaxEntries:        10_000,
			TrustProxy:        d.TrustProxy,
		}))
		r.Use(mw.RequireSession(d.Sessions, mw.Unauthorized(), d.Logger))

		r.Get("/", handlers.ListBookmarks(d))
		r.Post("/", handlers.CreateBookmark(d))
		r.Post("/import", handlers.ImportBookmarks(d))
		r.Delete("/{id}", handlers.DeleteBookmark(d))
	})
}

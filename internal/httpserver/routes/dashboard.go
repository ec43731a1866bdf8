package routes

import (
	"github.com/go-chi/chi/v5"

	"github.com/MrSnakeDoc/smartmark/internal/httpserver/deps"
	"github.com/MrSnakeDoc/smartmark/internal/httpserver/handlers"
	"github.com/MrSnakeDoc/smartmark/internal/httpserver/mw"
)

// No request timeout here: the event stream lives as long as the page.
func init() { Register(registerDashboard) }

func registerDashboard(r chi.Router, d deps.Deps) {
	r = r.With(mw.EnforceHost(d.AllowedHosts, d.Logger))

	// the view decides what to do without a session
	r.Get("/dashboard/events", handlers.Events(d))

	actions := r.With(mw.RequireSession(d.Sessions, mw.Unauthorized(), d.Logger))
	actions.Post("/dashboard/views/{viewID}/add", handlers.AddAction(d))
	actions.Post("/dashboard/views/{viewID}/delete/{bookmarkID}", handlers.DeleteAction(d))
}

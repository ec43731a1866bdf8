package routes

import (
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/MrSnakeDoc/smartmark/internal/httpserver/deps"
	"github.com/MrSnakeDoc/smartmark/internal/httpserver/handlers"
	"github.com/MrSnakeDoc/smartmark/internal/httpserver/mw"
)

func init() { Register(registerPages, middleware.Timeout(10*time.Second)) }

func registerPages(r chi.Router, d deps.Deps) {
	r = r.With(mw.EnforceHost(d.AllowedHosts, d.Logger))

	r.Get("/", handlers.LoginPage(d))
	r.Get("/dashboard", handlers.DashboardPage(d))

	r.Get("/auth/login", handlers.StartLogin(d))
	r.Get("/auth/callback", handlers.Callback(d))
	r.Post("/auth/logout", handlers.Logout(d))
}

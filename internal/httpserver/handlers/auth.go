package handlers

import (
	"errors"
	"net/http"

	"github.com/MrSnakeDoc/smartmark/internal/auth"
	"github.com/MrSnakeDoc/smartmark/internal/dashboard"
	"github.com/MrSnakeDoc/smartmark/internal/httpserver/deps"
	"github.com/MrSnakeDoc/smartmark/internal/logger"
)

// StartLogin sends the browser to the provider with a fresh state value.
func StartLogin(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		state := d.Sessions.NewState(w)
		http.Redirect(w, r, d.Provider.AuthCodeURL(state), http.StatusFound)
	}
}

// Callback finishes the OAuth flow and issues the session cookie. Any
// failure lands back on the login page.
func Callback(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := d.Sessions.CheckState(w, r); err != nil {
			d.Logger.Warn("oauth callback rejected", logger.Error(err))
			http.Redirect(w, r, dashboard.LoginPath, http.StatusSeeOther)
			return
		}

		if reason := r.URL.Query().Get("error"); reason != "" {
			d.Logger.Info("oauth sign-in cancelled", logger.String("reason", reason))
			http.Redirect(w, r, dashboard.LoginPath, http.StatusSeeOther)
			return
		}

		id, err := d.Provider.Exchange(r.Context(), r.URL.Query().Get("code"))
		if err != nil {
			d.Logger.Error("oauth exchange failed", logger.String("provider", d.Provider.Name()), logger.Error(err))
			http.Redirect(w, r, dashboard.LoginPath, http.StatusSeeOther)
			return
		}

		token, exp, err := d.Sessions.Issue(id)
		if err != nil {
			d.Logger.Error("issue session", logger.Error(err))
			http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
			return
		}
		d.Sessions.SetCookie(w, token, exp)

		d.Logger.Info("signed in", logger.String("user_id", id.ID), logger.String("provider", d.Provider.Name()))
		http.Redirect(w, r, "/dashboard", http.StatusSeeOther)
	}
}

// Logout ends the session and goes back to the login page.
func Logout(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := d.Sessions.Clear(w, r); err != nil && !errors.Is(err, auth.ErrNoSession) {
			d.Logger.Warn("session revocation failed", logger.Error(err))
		}
		http.Redirect(w, r, dashboard.LoginPath, http.StatusSeeOther)
	}
}

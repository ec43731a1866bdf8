package handlers

import (
	"bytes"
	"embed"
	"html/template"
	"net/http"

	"github.com/MrSnakeDoc/smartmark/internal/dashboard"
	"github.com/MrSnakeDoc/smartmark/internal/httpserver/deps"
	"github.com/MrSnakeDoc/smartmark/internal/logger"
)

//go:embed templates/*.html
var templateFS embed.FS

var pages = template.Must(template.ParseFS(templateFS, "templates/*.html"))

type dashboardPage struct {
	Email   string
	Initial string
}

func renderPage(w http.ResponseWriter, log logger.Logger, name string, data any) {
	var buf bytes.Buffer
	if err := pages.ExecuteTemplate(&buf, name, data); err != nil {
		log.Error("render page", logger.String("template", name), logger.Error(err))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", contentTypeHTML)
	w.Header().Set("Cache-Control", "no-store")
	_, _ = buf.WriteTo(w)
}

// renderBookmarks renders the list fragment pushed with every state event.
func renderBookmarks(st dashboard.State) (string, error) {
	var buf bytes.Buffer
	if err := pages.ExecuteTemplate(&buf, "bookmarks", st); err != nil {
		return "", err
	}
	return buf.String(), nil
}

// LoginPage shows the sign-in button, or skips straight to the dashboard
// when the browser already has a session.
func LoginPage(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if _, err := d.Sessions.Current(r); err == nil {
			http.Redirect(w, r, "/dashboard", http.StatusSeeOther)
			return
		}
		renderPage(w, d.Logger, "login", nil)
	}
}

// DashboardPage serves the dashboard shell. The list itself arrives over
// the event stream once the view is mounted.
func DashboardPage(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := d.Sessions.Current(r)
		if err != nil {
			http.Redirect(w, r, dashboard.LoginPath, http.StatusSeeOther)
			return
		}
		renderPage(w, d.Logger, "dashboard", dashboardPage{Email: id.Email, Initial: id.Initial()})
	}
}

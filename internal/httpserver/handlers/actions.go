package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/MrSnakeDoc/smartmark/internal/auth"
	"github.com/MrSnakeDoc/smartmark/internal/dashboard"
	"github.com/MrSnakeDoc/smartmark/internal/httpserver/deps"
)

// lookupView finds the caller's own mounted view.
func lookupView(d deps.Deps, r *http.Request) (*dashboard.View, error) {
	id := auth.IdentityFrom(r.Context())
	if id == nil {
		return nil, ErrUnauthorized()
	}
	v, ok := d.Views.Lookup(chi.URLParam(r, "viewID"), id.ID)
	if !ok {
		return nil, ErrNotFound("view not found")
	}
	return v, nil
}

// AddAction forwards the add form to the mounted view. Failures reach the
// browser as an alert on the event stream, so the response is always 204.
func AddAction(d deps.Deps) http.HandlerFunc {
	return MakeHandler(d.Logger, func(w http.ResponseWriter, r *http.Request) error {
		v, err := lookupView(d, r)
		if err != nil {
			return err
		}
		if err := r.ParseForm(); err != nil {
			return ErrBadRequest("invalid form", err)
		}
		_ = v.Add(r.Context(), r.PostForm.Get("title"), r.PostForm.Get("url"))
		w.WriteHeader(http.StatusNoContent)
		return nil
	})
}

// DeleteAction forwards a row delete to the mounted view.
func DeleteAction(d deps.Deps) http.HandlerFunc {
	return MakeHandler(d.Logger, func(w http.ResponseWriter, r *http.Request) error {
		v, err := lookupView(d, r)
		if err != nil {
			return err
		}
		_ = v.Delete(r.Context(), chi.URLParam(r, "bookmarkID"))
		w.WriteHeader(http.StatusNoContent)
		return nil
	})
}

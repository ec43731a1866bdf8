package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/MrSnakeDoc/smartmark/internal/auth"
	"github.com/MrSnakeDoc/smartmark/internal/domain"
	"github.com/MrSnakeDoc/smartmark/internal/httpserver/deps"
	"github.com/MrSnakeDoc/smartmark/internal/logger"
	"github.com/MrSnakeDoc/smartmark/internal/sources/homepage"
)

const maxImportBytes = 1 << 20

type createBookmarkRequest struct {
	Title string `json:"title"`
	URL   string `json:"url"`
}

type importResponse struct {
	Imported int `json:"imported"`
	Skipped  int `json:"skipped"`
}

func ownerOf(r *http.Request) (*domain.Identity, error) {
	id := auth.IdentityFrom(r.Context())
	if id == nil {
		return nil, ErrUnauthorized()
	}
	return id, nil
}

// ListBookmarks returns the caller's bookmarks, newest first.
func ListBookmarks(d deps.Deps) http.HandlerFunc {
	return MakeHandler(d.Logger, func(w http.ResponseWriter, r *http.Request) error {
		id, err := ownerOf(r)
		if err != nil {
			return err
		}
		list, err := d.Store.ListByOwner(r.Context(), id.ID)
		if err != nil {
			return err
		}
		respondJSON(w, http.StatusOK, list)
		return nil
	})
}

// CreateBookmark inserts {"title","url"} for the caller. The url is
// normalized the same way the dashboard does it.
func CreateBookmark(d deps.Deps) http.HandlerFunc {
	return MakeHandler(d.Logger, func(w http.ResponseWriter, r *http.Request) error {
		id, err := ownerOf(r)
		if err != nil {
			return err
		}

		var req createBookmarkRequest
		dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, 64<<10))
		dec.DisallowUnknownFields()
		if err := dec.Decode(&req); err != nil {
			return ErrBadRequest("invalid JSON body", err)
		}
		if req.Title == "" || req.URL == "" {
			return ErrBadRequest("title and url are required", nil)
		}

		b, err := d.Store.Insert(r.Context(), domain.NewBookmark{
			Title:  req.Title,
			URL:    domain.NormalizeURL(req.URL),
			UserID: id.ID,
		})
		if err != nil {
			return err
		}
		respondJSON(w, http.StatusCreated, b)
		return nil
	})
}

// DeleteBookmark removes one of the caller's bookmarks; anything else is 404.
func DeleteBookmark(d deps.Deps) http.HandlerFunc {
	return MakeHandler(d.Logger, func(w http.ResponseWriter, r *http.Request) error {
		id, err := ownerOf(r)
		if err != nil {
			return err
		}
		n, err := d.Store.Delete(r.Context(), chi.URLParam(r, "id"), id.ID)
		if err != nil {
			return err
		}
		if n == 0 {
			return ErrNotFound("bookmark not found")
		}
		w.WriteHeader(http.StatusNoContent)
		return nil
	})
}

// ImportBookmarks reads a Homepage bookmarks.yaml (or services.yaml) body
// and inserts every link the caller does not already have.
func ImportBookmarks(d deps.Deps) http.HandlerFunc {
	return MakeHandler(d.Logger, func(w http.ResponseWriter, r *http.Request) error {
		id, err := ownerOf(r)
		if err != nil {
			return err
		}

		doc, err := homepage.Decode(http.MaxBytesReader(w, r.Body, maxImportBytes))
		if err != nil {
			var tooBig *http.MaxBytesError
			if errors.As(err, &tooBig) {
				return newHTTPError(http.StatusRequestEntityTooLarge, "", err)
			}
			return ErrBadRequest("invalid homepage yaml", err)
		}
		links, err := homepage.Links(doc)
		if err != nil {
			return ErrBadRequest(err.Error(), err)
		}

		existing, err := d.Store.ListByOwner(r.Context(), id.ID)
		if err != nil {
			return err
		}
		have := make(map[string]struct{}, len(existing))
		for _, b := range existing {
			have[strings.TrimSuffix(b.URL, "/")] = struct{}{}
		}

		var resp importResponse
		for _, nb := range homepage.ToNewBookmarks(links, id.ID) {
			if _, dup := have[strings.TrimSuffix(nb.URL, "/")]; dup {
				resp.Skipped++
				continue
			}
			if _, err := d.Store.Insert(r.Context(), nb); err != nil {
				return err
			}
			resp.Imported++
		}

		d.Logger.Info("homepage import",
			logger.String("user_id", id.ID),
			logger.Int("imported", resp.Imported),
			logger.Int("skipped", resp.Skipped))
		respondJSON(w, http.StatusOK, resp)
		return nil
	})
}

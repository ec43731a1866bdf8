package domain

import (
	"errors"
	"strings"
	"time"
)

// ErrInvalidBookmark is returned when an insert payload is missing a field.
var ErrInvalidBookmark = errors.New("invalid bookmark")

// Bookmark is a saved URL owned by exactly one identity.
type Bookmark struct {
	// ─────────────────────────────
	// Identity (server-assigned, immutable)
	// ─────────────────────────────

	// ID is the opaque unique identifier (UUID).
	ID string `json:"id"`

	// ─────────────────────────────
	// Content
	// ─────────────────────────────

	// Title is free text entered by the owner.
	Title string `json:"title"`

	// URL always carries an explicit http:// or https:// scheme.
	// Example: https://go.dev/doc/
	URL string `json:"url"`

	// ─────────────────────────────
	// Ownership & metadata
	// ─────────────────────────────

	// UserID is the owning Identity.ID. Every read and delete filters on it.
	UserID string `json:"user_id"`

	// CreatedAt is assigned by the store on insert; lists are ordered on it, newest first.
	CreatedAt time.Time `json:"created_at"`
}

// NewBookmark is the insert payload. The store assigns ID and CreatedAt.
type NewBookmark struct {
	Title  string `json:"title"`
	URL    string `json:"url"`
	UserID string `json:"user_id"`
}

// Validate rejects payloads with an empty title, url or owner.
func (nb NewBookmark) Validate() error {
	switch {
	case nb.Title == "":
		return errors.Join(ErrInvalidBookmark, errors.New("title is required"))
	case nb.URL == "":
		return errors.Join(ErrInvalidBookmark, errors.New("url is required"))
	case nb.UserID == "":
		return errors.Join(ErrInvalidBookmark, errors.New("owner is required"))
	}
	return nil
}

// NormalizeURL prefixes https:// unless the input already starts with
// http:// or https://. Matching is case-sensitive.
func NormalizeURL(raw string) string {
	if strings.HasPrefix(raw, "http://") || strings.HasPrefix(raw, "https://") {
		return raw
	}
	return "https://" + raw
}

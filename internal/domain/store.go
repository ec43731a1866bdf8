package domain

import (
	"context"
	"time"
)

// BookmarkRepository is the owner-scoped row store. Implementations must
// filter every read and delete by owner themselves.
type BookmarkRepository interface {
	// ListByOwner returns the owner's bookmarks, newest first.
	ListByOwner(ctx context.Context, userID string) ([]Bookmark, error)
	// Insert stores a new bookmark and returns it with ID and CreatedAt set.
	Insert(ctx context.Context, nb NewBookmark) (Bookmark, error)
	// Delete removes the bookmark only if userID owns it. It reports the
	// number of rows removed; a non-owned or unknown id yields 0, nil.
	Delete(ctx context.Context, id, userID string) (int64, error)
}

// ChangeType mirrors the row events emitted by the store.
type ChangeType string

const (
	ChangeInsert ChangeType = "INSERT"
	ChangeUpdate ChangeType = "UPDATE"
	ChangeDelete ChangeType = "DELETE"
)

// ChangeEvent tells a subscriber that one of its rows changed. It carries
// no row data; subscribers re-fetch.
type ChangeEvent struct {
	Type       ChangeType `json:"type"`
	BookmarkID string     `json:"bookmark_id"`
	UserID     string     `json:"user_id"`
	At         time.Time  `json:"at"`
}

// Subscription is a live change stream for one owner.
type Subscription interface {
	// Events is closed once the subscription ends.
	Events() <-chan ChangeEvent
	Close() error
}

// ChangeFeed opens owner-scoped change subscriptions.
type ChangeFeed interface {
	Subscribe(ctx context.Context, userID string) (Subscription, error)
}

// Store is what every backend provides.
type Store interface {
	BookmarkRepository
	ChangeFeed
	// Ping reports backend health for readiness checks.
	Ping(ctx context.Context) error
	Close() error
}

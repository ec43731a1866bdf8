// Package memory is an in-process bookmark store. It backs SMARTMARK_STORE=memory
// for local development and is the store the other packages test against.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/MrSnakeDoc/smartmark/internal/domain"
)

// subscriberBuffer bounds undelivered events per subscriber. Any event
// triggers a full re-fetch, so a full buffer already guarantees one.
const subscriberBuffer = 16

type row struct {
	bookmark domain.Bookmark
	seq      uint64 // insertion order, breaks CreatedAt ties
}

// Store keeps bookmarks and revoked session ids in memory.
type Store struct {
	mu      sync.RWMutex
	rows    map[string]row                       // ID -> row
	subs    map[string]map[*subscription]struct{} // UserID -> subscribers
	revoked map[string]time.Time                 // token ID -> expiry
	seq     uint64
	closed  bool

	now func() time.Time
}

// New creates an empty store.
func New() *Store {
	return &Store{
		rows:    make(map[string]row),
		subs:    make(map[string]map[*subscription]struct{}),
		revoked: make(map[string]time.Time),
		now:     time.Now,
	}
}

// WithClock replaces the time source; tests use it for stable ordering.
func (s *Store) WithClock(now func() time.Time) *Store {
	s.now = now
	return s
}

// ListByOwner returns the owner's bookmarks, newest first.
func (s *Store) ListByOwner(_ context.Context, userID string) ([]domain.Bookmark, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	owned := make([]row, 0)
	for _, r := range s.rows {
		if r.bookmark.UserID == userID {
			owned = append(owned, r)
		}
	}

	sort.Slice(owned, func(i, j int) bool {
		if !owned[i].bookmark.CreatedAt.Equal(owned[j].bookmark.CreatedAt) {
			return owned[i].bookmark.CreatedAt.After(owned[j].bookmark.CreatedAt)
		}
		return owned[i].seq > owned[j].seq
	})

	out := make([]domain.Bookmark, len(owned))
	for i, r := range owned {
		out[i] = r.bookmark
	}
	return out, nil
}

// Insert stores a new bookmark and notifies the owner's subscribers.
func (s *Store) Insert(_ context.Context, nb domain.NewBookmark) (domain.Bookmark, error) {
	if err := nb.Validate(); err != nil {
		return domain.Bookmark{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.seq++
	b := domain.Bookmark{
		ID:        uuid.NewString(),
		Title:     nb.Title,
		URL:       nb.URL,
		UserID:    nb.UserID,
		CreatedAt: s.now().UTC(),
	}
	s.rows[b.ID] = row{bookmark: b, seq: s.seq}

	s.publishLocked(domain.ChangeEvent{
		Type:       domain.ChangeInsert,
		BookmarkID: b.ID,
		UserID:     b.UserID,
		At:         b.CreatedAt,
	})
	return b, nil
}

// Delete removes the bookmark if userID owns it.
func (s *Store) Delete(_ context.Context, id, userID string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	r, ok := s.rows[id]
	if !ok || r.bookmark.UserID != userID {
		return 0, nil
	}
	delete(s.rows, id)

	s.publishLocked(domain.ChangeEvent{
		Type:       domain.ChangeDelete,
		BookmarkID: id,
		UserID:     userID,
		At:         s.now().UTC(),
	})
	return 1, nil
}

// Count returns the number of stored bookmarks across all owners.
func (s *Store) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return len(s.rows)
}

// Ping always succeeds unless the store was closed.
func (s *Store) Ping(context.Context) error {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return errClosed
	}
	return nil
}

// Close ends every open subscription.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil
	}
	s.closed = true
	for _, set := range s.subs {
		for sub := range set {
			sub.closeLocked()
		}
	}
	s.subs = make(map[string]map[*subscription]struct{})
	return nil
}

// ─────────────────────────────────────────────────────────────────
// Session revocation
// ─────────────────────────────────────────────────────────────────

// Revoke marks a session token id as unusable until it would have expired anyway.
func (s *Store) Revoke(_ context.Context, tokenID string, until time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	for id, exp := range s.revoked {
		if now.After(exp) {
			delete(s.revoked, id)
		}
	}
	s.revoked[tokenID] = until
	return nil
}

// IsRevoked reports whether tokenID was revoked and has not expired yet.
func (s *Store) IsRevoked(_ context.Context, tokenID string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	exp, ok := s.revoked[tokenID]
	return ok && s.now().Before(exp), nil
}

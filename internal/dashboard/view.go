// Package dashboard holds the server-side live view behind an open
// dashboard page. A View is mounted for every browser stream, keeps the
// page state, and pushes a snapshot to its Sink on every change.
package dashboard

import (
	"context"
	"errors"
	"sync"

	"github.com/google/uuid"

	"github.com/MrSnakeDoc/smartmark/internal/domain"
	"github.com/MrSnakeDoc/smartmark/internal/logger"
)

const (
	LoginPath = "/"

	AlertInsertFailed = "Insert failed"
	AlertDeleteFailed = "Delete failed"
)

// ErrNotMounted is returned by actions on a view without an identity.
var ErrNotMounted = errors.New("view not mounted")

// IdentitySource resolves who is looking at the page. A nil identity or an
// error both mean there is no session.
type IdentitySource interface {
	Current(ctx context.Context) (*domain.Identity, error)
}

// IdentityFunc adapts a function to IdentitySource.
type IdentityFunc func(ctx context.Context) (*domain.Identity, error)

func (f IdentityFunc) Current(ctx context.Context) (*domain.Identity, error) { return f(ctx) }

// Sink receives what the browser should see. Implementations must not
// block and must not call back into the View.
type Sink interface {
	State(State)
	Alert(message string)
	Navigate(path string)
}

// State is a snapshot of one dashboard.
type State struct {
	ViewID     string            `json:"view_id"`
	Loading    bool              `json:"loading"`
	Redirected bool              `json:"redirected"`
	Identity   *domain.Identity  `json:"identity,omitempty"`
	Bookmarks  []domain.Bookmark `json:"bookmarks"`
	Title      string            `json:"title"`
	URL        string            `json:"url"`
	Adding     bool              `json:"adding"`
	DeletingID string            `json:"deleting_id,omitempty"`
	// FormGen grows by one after every successful add. The page clears its
	// add form whenever it changes.
	FormGen uint64 `json:"form_gen"`
}

// Options wires a View.
type Options struct {
	Repo     domain.BookmarkRepository
	Feed     domain.ChangeFeed
	Identity IdentitySource
	Sink     Sink
	Logger   logger.Logger
}

// View is one mounted dashboard.
type View struct {
	repo     domain.BookmarkRepository
	feed     domain.ChangeFeed
	identity IdentitySource
	sink     Sink
	log      logger.Logger

	mu        sync.Mutex
	state     State
	sub       domain.Subscription
	cancel    context.CancelFunc
	fetches   sync.WaitGroup
	unmounted bool
}

// New creates an unmounted view in the Loading state.
func New(opts Options) *View {
	id := uuid.NewString()
	log := opts.Logger
	if log == nil {
		log = logger.Nop()
	}
	return &View{
		repo:     opts.Repo,
		feed:     opts.Feed,
		identity: opts.Identity,
		sink:     opts.Sink,
		log:      log.With(logger.String("view_id", id)),
		state:    State{ViewID: id, Loading: true, Bookmarks: []domain.Bookmark{}},
	}
}

// ID identifies the view for action requests.
func (v *View) ID() string { return v.state.ViewID }

// Snapshot returns a copy of the current state.
func (v *View) Snapshot() State {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.snapshotLocked()
}

// OwnerID is the mounted identity's id, or "" before mount.
func (v *View) OwnerID() string {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.state.Identity == nil {
		return ""
	}
	return v.state.Identity.ID
}

// Mount resolves the identity once. Without one the view redirects to the
// login page and touches nothing else. With one it fetches the list and
// subscribes to the owner's changes until ctx ends or Unmount is called.
func (v *View) Mount(ctx context.Context) error {
	id, err := v.identity.Current(ctx)
	if err != nil || id == nil {
		v.mu.Lock()
		v.state.Loading = false
		v.state.Redirected = true
		v.mu.Unlock()
		v.log.Debug("no session, redirecting")
		v.sink.Navigate(LoginPath)
		return nil
	}

	live, cancel := context.WithCancel(ctx)

	v.mu.Lock()
	if v.unmounted {
		v.mu.Unlock()
		cancel()
		return ErrNotMounted
	}
	v.cancel = cancel
	v.state.Identity = id
	v.state.Loading = false
	v.emitLocked()
	v.mu.Unlock()

	v.fetch(live, id.ID)

	sub, err := v.feed.Subscribe(live, id.ID)
	if err != nil {
		v.log.Error("failed to subscribe to bookmark changes", logger.Error(err))
		return nil
	}

	v.mu.Lock()
	if v.unmounted {
		v.mu.Unlock()
		_ = sub.Close()
		return nil
	}
	v.sub = sub
	v.fetches.Add(1)
	v.mu.Unlock()

	v.log.Debug("subscribed to bookmark changes", logger.String("user_id", id.ID))
	go v.watch(live, sub, id.ID)
	return nil
}

// watch re-fetches on every event, each fetch on its own goroutine. The
// last response to arrive wins.
func (v *View) watch(ctx context.Context, sub domain.Subscription, userID string) {
	defer v.fetches.Done()
	events := sub.Events()
	for {
		select {
		case <-ctx.Done():
			return
		case _, ok := <-events:
			if !ok {
				return
			}
			v.fetches.Add(1)
			go func() {
				defer v.fetches.Done()
				v.fetch(ctx, userID)
			}()
		}
	}
}

// fetch replaces the whole list. Errors are logged and leave it unchanged.
func (v *View) fetch(ctx context.Context, userID string) {
	list, err := v.repo.ListByOwner(ctx, userID)
	if err != nil {
		if ctx.Err() == nil {
			v.log.Error("fetch bookmarks failed", logger.Error(err))
		}
		return
	}

	v.mu.Lock()
	defer v.mu.Unlock()
	if v.unmounted {
		return
	}
	v.state.Bookmarks = list
	v.emitLocked()
}

// Add inserts a bookmark. It does nothing when a field is empty, the view
// has no identity or an insert is already in flight. The new row shows up
// through the change feed, not here.
func (v *View) Add(ctx context.Context, title, rawURL string) error {
	v.mu.Lock()
	if title == "" || rawURL == "" || v.state.Identity == nil || v.state.Adding {
		v.mu.Unlock()
		return nil
	}
	v.state.Title, v.state.URL = title, rawURL
	v.state.Adding = true
	userID := v.state.Identity.ID
	v.emitLocked()
	v.mu.Unlock()

	_, err := v.repo.Insert(ctx, domain.NewBookmark{
		Title:  title,
		URL:    domain.NormalizeURL(rawURL),
		UserID: userID,
	})

	v.mu.Lock()
	v.state.Adding = false
	if err == nil {
		v.state.Title, v.state.URL = "", ""
		v.state.FormGen++
	}
	v.emitLocked()
	v.mu.Unlock()

	if err != nil {
		v.log.Error("insert bookmark failed", logger.Error(err))
		v.sink.Alert(AlertInsertFailed)
		return err
	}
	return nil
}

// Delete removes one of the owner's bookmarks and drops it from the list
// as soon as the store confirms.
func (v *View) Delete(ctx context.Context, bookmarkID string) error {
	v.mu.Lock()
	if v.state.Identity == nil {
		v.mu.Unlock()
		return ErrNotMounted
	}
	v.state.DeletingID = bookmarkID
	userID := v.state.Identity.ID
	v.emitLocked()
	v.mu.Unlock()

	_, err := v.repo.Delete(ctx, bookmarkID, userID)

	v.mu.Lock()
	v.state.DeletingID = ""
	if err == nil {
		kept := make([]domain.Bookmark, 0, len(v.state.Bookmarks))
		for _, b := range v.state.Bookmarks {
			if b.ID != bookmarkID {
				kept = append(kept, b)
			}
		}
		v.state.Bookmarks = kept
	}
	v.emitLocked()
	v.mu.Unlock()

	if err != nil {
		v.log.Error("delete bookmark failed", logger.String("bookmark_id", bookmarkID), logger.Error(err))
		v.sink.Alert(AlertDeleteFailed)
		return err
	}
	return nil
}

// Unmount releases the subscription and waits for in-flight fetches.
// Safe to call more than once.
func (v *View) Unmount() {
	v.mu.Lock()
	if v.unmounted {
		v.mu.Unlock()
		return
	}
	v.unmounted = true
	sub, cancel := v.sub, v.cancel
	v.sub, v.cancel = nil, nil
	v.mu.Unlock()

	if sub != nil {
		if err := sub.Close(); err != nil {
			v.log.Warn("closing subscription", logger.Error(err))
		}
	}
	if cancel != nil {
		cancel()
	}
	v.fetches.Wait()
	v.log.Debug("view unmounted")
}

func (v *View) emitLocked() {
	if v.unmounted {
		return
	}
	v.sink.State(v.snapshotLocked())
}

func (v *View) snapshotLocked() State {
	s := v.state
	s.Bookmarks = append([]domain.Bookmark(nil), v.state.Bookmarks...)
	if s.Bookmarks == nil {
		s.Bookmarks = []domain.Bookmark{}
	}
	return s
}

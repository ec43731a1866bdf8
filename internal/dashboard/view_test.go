package dashboard

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/MrSnakeDoc/smartmark/internal/domain"
	"github.com/MrSnakeDoc/smartmark/internal/store/memory"
)

var (
	alice = &domain.Identity{ID: "alice", Email: "alice@example.com"}
	bob   = &domain.Identity{ID: "bob", Email: "bob@example.com"}
)

type recordingSink struct {
	mu        sync.Mutex
	states    []State
	alerts    []string
	navigates []string
}

func (s *recordingSink) State(st State) {
	s.mu.Lock()
	s.states = append(s.states, st)
	s.mu.Unlock()
}

func (s *recordingSink) Alert(msg string) {
	s.mu.Lock()
	s.alerts = append(s.alerts, msg)
	s.mu.Unlock()
}

func (s *recordingSink) Navigate(path string) {
	s.mu.Lock()
	s.navigates = append(s.navigates, path)
	s.mu.Unlock()
}

func (s *recordingSink) Alerts() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.alerts...)
}

func (s *recordingSink) Navigates() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.navigates...)
}

// countingStore records calls and can inject failures or block inserts.
type countingStore struct {
	*memory.Store

	lists, inserts, deletes, subscribes atomic.Int32

	failList   atomic.Bool
	failInsert bool
	failDelete bool
	gate       chan struct{} // when set, Insert waits on it
}

func newCountingStore() *countingStore {
	return &countingStore{Store: memory.New()}
}

func (c *countingStore) ListByOwner(ctx context.Context, userID string) ([]domain.Bookmark, error) {
	c.lists.Add(1)
	if c.failList.Load() {
		return nil, errors.New("list unavailable")
	}
	return c.Store.ListByOwner(ctx, userID)
}

func (c *countingStore) Insert(ctx context.Context, nb domain.NewBookmark) (domain.Bookmark, error) {
	c.inserts.Add(1)
	if c.gate != nil {
		<-c.gate
	}
	if c.failInsert {
		return domain.Bookmark{}, errors.New("insert rejected")
	}
	return c.Store.Insert(ctx, nb)
}

func (c *countingStore) Delete(ctx context.Context, id, userID string) (int64, error) {
	c.deletes.Add(1)
	if c.failDelete {
		return 0, errors.New("delete rejected")
	}
	return c.Store.Delete(ctx, id, userID)
}

func (c *countingStore) Subscribe(ctx context.Context, userID string) (domain.Subscription, error) {
	c.subscribes.Add(1)
	return c.Store.Subscribe(ctx, userID)
}

func identityOf(id *domain.Identity) IdentitySource {
	return IdentityFunc(func(context.Context) (*domain.Identity, error) { return id, nil })
}

func mountView(t *testing.T, store *countingStore, id *domain.Identity) (*View, *recordingSink) {
	t.Helper()
	sink := &recordingSink{}
	v := New(Options{Repo: store, Feed: store, Identity: identityOf(id), Sink: sink})
	if err := v.Mount(context.Background()); err != nil {
		t.Fatalf("Mount() error = %v", err)
	}
	t.Cleanup(v.Unmount)
	return v, sink
}

func eventually(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", what)
}

func seed(t *testing.T, s *countingStore, owner, title string) domain.Bookmark {
	t.Helper()
	b, err := s.Store.Insert(context.Background(), domain.NewBookmark{Title: title, URL: "https://" + title + ".example", UserID: owner})
	if err != nil {
		t.Fatalf("seed insert: %v", err)
	}
	return b
}

func TestMountWithoutSession(t *testing.T) {
	tests := []struct {
		name   string
		source IdentitySource
	}{
		{"nil identity", identityOf(nil)},
		{"error", IdentityFunc(func(context.Context) (*domain.Identity, error) {
			return nil, errors.New("no session")
		})},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := newCountingStore()
			sink := &recordingSink{}
			v := New(Options{Repo: store, Feed: store, Identity: tt.source, Sink: sink})

			if err := v.Mount(context.Background()); err != nil {
				t.Fatalf("Mount() error = %v", err)
			}
			defer v.Unmount()

			if got := sink.Navigates(); len(got) != 1 || got[0] != LoginPath {
				t.Errorf("navigations = %v, want [%q]", got, LoginPath)
			}
			if n := store.lists.Load() + store.subscribes.Load(); n != 0 {
				t.Errorf("fetch+subscribe calls = %d, want 0", n)
			}
			st := v.Snapshot()
			if !st.Redirected || st.Loading || st.Identity != nil {
				t.Errorf("state = %+v", st)
			}
		})
	}
}

func TestMountFetchesOwnBookmarksOnly(t *testing.T) {
	store := newCountingStore()
	seed(t, store, alice.ID, "first")
	seed(t, store, bob.ID, "bobs")
	seed(t, store, alice.ID, "second")

	v, _ := mountView(t, store, alice)

	st := v.Snapshot()
	if st.Loading || st.Identity == nil || st.Identity.ID != alice.ID {
		t.Fatalf("state after mount = %+v", st)
	}
	if len(st.Bookmarks) != 2 {
		t.Fatalf("bookmarks = %+v, want 2", st.Bookmarks)
	}
	for _, b := range st.Bookmarks {
		if b.UserID != alice.ID {
			t.Errorf("foreign bookmark leaked: %+v", b)
		}
	}
	if st.Bookmarks[0].Title != "second" {
		t.Errorf("newest first: got %q", st.Bookmarks[0].Title)
	}
	if got := store.Subscribers(alice.ID); got != 1 {
		t.Errorf("Subscribers() = %d, want 1", got)
	}
}

func TestUnmountReleasesSubscription(t *testing.T) {
	store := newCountingStore()
	sink := &recordingSink{}
	v := New(Options{Repo: store, Feed: store, Identity: identityOf(alice), Sink: sink})
	if err := v.Mount(context.Background()); err != nil {
		t.Fatalf("Mount() error = %v", err)
	}

	v.Unmount()
	v.Unmount()

	if got := store.Subscribers(alice.ID); got != 0 {
		t.Errorf("Subscribers() after Unmount = %d, want 0", got)
	}
}

func TestAddAppearsThroughFeed(t *testing.T) {
	store := newCountingStore()
	seed(t, store, alice.ID, "old")
	v, sink := mountView(t, store, alice)

	if err := v.Add(context.Background(), "Go", "go.dev"); err != nil {
		t.Fatalf("Add() error = %v", err)
	}

	st := v.Snapshot()
	if st.Adding || st.Title != "" || st.URL != "" || st.FormGen != 1 {
		t.Errorf("form after add = %+v, want cleared, idle and FormGen 1", st)
	}

	eventually(t, "new row via re-fetch", func() bool {
		list := v.Snapshot().Bookmarks
		return len(list) == 2 && list[0].Title == "Go"
	})

	first := v.Snapshot().Bookmarks[0]
	if first.URL != "https://go.dev" || first.UserID != alice.ID {
		t.Errorf("inserted row = %+v", first)
	}
	if len(sink.Alerts()) != 0 {
		t.Errorf("unexpected alerts %v", sink.Alerts())
	}
}

func TestAddNoop(t *testing.T) {
	tests := []struct {
		name       string
		title, url string
	}{
		{"empty title", "", "go.dev"},
		{"empty url", "Go", ""},
		{"both empty", "", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := newCountingStore()
			v, _ := mountView(t, store, alice)
			if err := v.Add(context.Background(), tt.title, tt.url); err != nil {
				t.Fatalf("Add() error = %v", err)
			}
			if n := store.inserts.Load(); n != 0 {
				t.Errorf("inserts = %d, want 0", n)
			}
		})
	}

	t.Run("not mounted", func(t *testing.T) {
		store := newCountingStore()
		v := New(Options{Repo: store, Feed: store, Identity: identityOf(alice), Sink: &recordingSink{}})
		_ = v.Add(context.Background(), "Go", "go.dev")
		if n := store.inserts.Load(); n != 0 {
			t.Errorf("inserts = %d, want 0", n)
		}
	})
}

func TestAddWhileBusyInsertsOnce(t *testing.T) {
	store := newCountingStore()
	store.gate = make(chan struct{})
	v, _ := mountView(t, store, alice)

	done := make(chan error, 1)
	go func() { done <- v.Add(context.Background(), "Go", "https://go.dev") }()

	eventually(t, "adding flag", func() bool { return v.Snapshot().Adding })

	if err := v.Add(context.Background(), "Go", "https://go.dev"); err != nil {
		t.Fatalf("second Add() error = %v", err)
	}
	close(store.gate)
	if err := <-done; err != nil {
		t.Fatalf("first Add() error = %v", err)
	}

	if n := store.inserts.Load(); n != 1 {
		t.Errorf("inserts = %d, want 1", n)
	}
}

func TestAddFailureAlertsAndKeepsFields(t *testing.T) {
	store := newCountingStore()
	store.failInsert = true
	v, sink := mountView(t, store, alice)

	if err := v.Add(context.Background(), "Go", "go.dev"); err == nil {
		t.Fatal("Add() error = nil, want failure")
	}

	if got := sink.Alerts(); len(got) != 1 || got[0] != AlertInsertFailed {
		t.Errorf("alerts = %v, want [%q]", got, AlertInsertFailed)
	}
	st := v.Snapshot()
	if st.Adding || st.Title != "Go" || st.URL != "go.dev" || st.FormGen != 0 {
		t.Errorf("state after failed add = %+v", st)
	}
}

func TestDeleteRemovesRowImmediately(t *testing.T) {
	store := newCountingStore()
	keep := seed(t, store, alice.ID, "keep")
	gone := seed(t, store, alice.ID, "gone")
	v, _ := mountView(t, store, alice)

	if err := v.Delete(context.Background(), gone.ID); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}

	st := v.Snapshot()
	if st.DeletingID != "" {
		t.Errorf("DeletingID = %q, want cleared", st.DeletingID)
	}
	if len(st.Bookmarks) != 1 || st.Bookmarks[0].ID != keep.ID {
		t.Fatalf("bookmarks right after delete = %+v", st.Bookmarks)
	}

	// the DELETE notification triggers a re-fetch; the row must stay gone
	eventually(t, "re-fetch after delete", func() bool { return store.lists.Load() >= 2 })
	time.Sleep(20 * time.Millisecond)
	for _, b := range v.Snapshot().Bookmarks {
		if b.ID == gone.ID {
			t.Fatalf("deleted row came back: %+v", b)
		}
	}
}

func TestDeleteForeignBookmarkHasNoEffect(t *testing.T) {
	store := newCountingStore()
	theirs := seed(t, store, bob.ID, "bobs")
	v, _ := mountView(t, store, alice)

	if err := v.Delete(context.Background(), theirs.ID); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}

	list, err := store.Store.ListByOwner(context.Background(), bob.ID)
	if err != nil || len(list) != 1 || list[0].ID != theirs.ID {
		t.Errorf("bob's list = (%+v, %v), want his bookmark intact", list, err)
	}
}

func TestDeleteFailureKeepsRow(t *testing.T) {
	store := newCountingStore()
	b := seed(t, store, alice.ID, "stay")
	store.failDelete = true
	v, sink := mountView(t, store, alice)

	if err := v.Delete(context.Background(), b.ID); err == nil {
		t.Fatal("Delete() error = nil, want failure")
	}

	if got := sink.Alerts(); len(got) != 1 || got[0] != AlertDeleteFailed {
		t.Errorf("alerts = %v, want [%q]", got, AlertDeleteFailed)
	}
	st := v.Snapshot()
	if st.DeletingID != "" || len(st.Bookmarks) != 1 {
		t.Errorf("state after failed delete = %+v", st)
	}
}

func TestFetchErrorLeavesListUnchanged(t *testing.T) {
	store := newCountingStore()
	seed(t, store, alice.ID, "one")
	v, sink := mountView(t, store, alice)

	store.failList.Store(true)
	seed(t, store, alice.ID, "two")

	eventually(t, "failed re-fetch", func() bool { return store.lists.Load() >= 2 })

	if got := v.Snapshot().Bookmarks; len(got) != 1 || got[0].Title != "one" {
		t.Errorf("bookmarks after failed fetch = %+v", got)
	}
	if len(sink.Alerts()) != 0 {
		t.Errorf("fetch failure must not alert, got %v", sink.Alerts())
	}
}

func TestOtherSessionChangesPropagate(t *testing.T) {
	store := newCountingStore()
	first, _ := mountView(t, store, alice)
	second, _ := mountView(t, store, alice)

	if err := first.Add(context.Background(), "shared", "shared.example"); err != nil {
		t.Fatalf("Add() error = %v", err)
	}

	eventually(t, "second view sees the row", func() bool {
		return len(second.Snapshot().Bookmarks) == 1
	})
}

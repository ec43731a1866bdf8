package redis

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/MrSnakeDoc/smartmark/internal/domain"
)

// newTestStore connects to SMARTMARK_TEST_REDIS_ADDR or skips.
func newTestStore(t *testing.T) *Store {
	t.Helper()
	addr := os.Getenv("SMARTMARK_TEST_REDIS_ADDR")
	if addr == "" {
		t.Skip("SMARTMARK_TEST_REDIS_ADDR not set")
	}
	client := redis.NewClient(&redis.Options{Addr: addr})
	s := NewStore(client)
	if err := s.Ping(context.Background()); err != nil {
		t.Skipf("redis unavailable: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestKeys(t *testing.T) {
	if got := BookmarkKey("b1"); got != "smartmark:bookmark:b1" {
		t.Errorf("BookmarkKey() = %q", got)
	}
	if got := OwnerIndexKey("u1"); got != "smartmark:user:u1:bookmarks" {
		t.Errorf("OwnerIndexKey() = %q", got)
	}
	if got := ChangesChannel("u1"); got != "smartmark:user:u1:changes" {
		t.Errorf("ChangesChannel() = %q", got)
	}
	if got := RevokedKey("j1"); got != "smartmark:revoked:j1" {
		t.Errorf("RevokedKey() = %q", got)
	}
}

func TestStoreRoundTrip(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	alice, bob := uuid.NewString(), uuid.NewString()

	sub, err := s.Subscribe(ctx, alice)
	if err != nil {
		t.Fatalf("Subscribe() error = %v", err)
	}
	defer sub.Close()

	first, err := s.Insert(ctx, domain.NewBookmark{Title: "first", URL: "https://a.example", UserID: alice})
	if err != nil {
		t.Fatalf("Insert() error = %v", err)
	}
	time.Sleep(2 * time.Millisecond)
	second, _ := s.Insert(ctx, domain.NewBookmark{Title: "second", URL: "https://b.example", UserID: alice})
	bobs, _ := s.Insert(ctx, domain.NewBookmark{Title: "bob's", URL: "https://c.example", UserID: bob})

	select {
	case ev := <-sub.Events():
		if ev.UserID != alice || ev.Type != domain.ChangeInsert {
			t.Errorf("unexpected event %+v", ev)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("no change event received")
	}

	list, err := s.ListByOwner(ctx, alice)
	if err != nil {
		t.Fatalf("ListByOwner() error = %v", err)
	}
	if len(list) != 2 || list[0].ID != second.ID || list[1].ID != first.ID {
		t.Fatalf("ListByOwner() = %+v, want [second first]", list)
	}

	n, err := s.Delete(ctx, bobs.ID, alice)
	if err != nil || n != 0 {
		t.Errorf("foreign Delete() = (%d, %v), want (0, nil)", n, err)
	}
	if list, _ := s.ListByOwner(ctx, bob); len(list) != 1 {
		t.Errorf("bob's bookmark should survive, got %d rows", len(list))
	}

	for _, id := range []string{first.ID, second.ID} {
		if n, err := s.Delete(ctx, id, alice); err != nil || n != 1 {
			t.Errorf("Delete(%s) = (%d, %v), want (1, nil)", id, n, err)
		}
	}
	_, _ = s.Delete(ctx, bobs.ID, bob)
}

func TestStoreRevocation(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	jti := uuid.NewString()

	if err := s.Revoke(ctx, jti, time.Now().Add(time.Minute)); err != nil {
		t.Fatalf("Revoke() error = %v", err)
	}
	ok, err := s.IsRevoked(ctx, jti)
	if err != nil || !ok {
		t.Errorf("IsRevoked() = (%v, %v), want (true, nil)", ok, err)
	}
	if ok, _ := s.IsRevoked(ctx, uuid.NewString()); ok {
		t.Error("unknown token id reported revoked")
	}
}

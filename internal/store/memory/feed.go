package memory

import (
	"context"
	"errors"

	"github.com/MrSnakeDoc/smartmark/internal/domain"
)

var errClosed = errors.New("memory store closed")

type subscription struct {
	store  *Store
	userID string
	ch     chan domain.ChangeEvent
	stop   chan struct{}
	done   bool
}

// Subscribe opens a change stream for userID. It ends when ctx is done or
// Close is called.
func (s *Store) Subscribe(ctx context.Context, userID string) (domain.Subscription, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil, errClosed
	}

	sub := &subscription{
		store:  s,
		userID: userID,
		ch:     make(chan domain.ChangeEvent, subscriberBuffer),
		stop:   make(chan struct{}),
	}
	set, ok := s.subs[userID]
	if !ok {
		set = make(map[*subscription]struct{})
		s.subs[userID] = set
	}
	set[sub] = struct{}{}

	go func() {
		select {
		case <-ctx.Done():
			_ = sub.Close()
		case <-sub.stop:
		}
	}()

	return sub, nil
}

// Subscribers returns how many live subscriptions userID has.
func (s *Store) Subscribers(userID string) int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return len(s.subs[userID])
}

// publishLocked delivers ev to the owner's subscribers without blocking.
func (s *Store) publishLocked(ev domain.ChangeEvent) {
	for sub := range s.subs[ev.UserID] {
		select {
		case sub.ch <- ev:
		default:
		}
	}
}

func (sub *subscription) Events() <-chan domain.ChangeEvent { return sub.ch }

func (sub *subscription) Close() error {
	sub.store.mu.Lock()
	defer sub.store.mu.Unlock()

	if set, ok := sub.store.subs[sub.userID]; ok {
		delete(set, sub)
		if len(set) == 0 {
			delete(sub.store.subs, sub.userID)
		}
	}
	sub.closeLocked()
	return nil
}

func (sub *subscription) closeLocked() {
	if sub.done {
		return
	}
	sub.done = true
	close(sub.stop)
	close(sub.ch)
}

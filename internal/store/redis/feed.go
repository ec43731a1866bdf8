package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/MrSnakeDoc/smartmark/internal/domain"
)

func encodeEvent(t domain.ChangeType, bookmarkID, userID string, at time.Time) (string, error) {
	data, err := json.Marshal(domain.ChangeEvent{
		Type:       t,
		BookmarkID: bookmarkID,
		UserID:     userID,
		At:         at,
	})
	if err != nil {
		return "", fmt.Errorf("failed to marshal change event: %w", err)
	}
	return string(data), nil
}

type subscription struct {
	pubsub *redis.PubSub
	events chan domain.ChangeEvent
	once   sync.Once
}

// Subscribe listens on the owner's change channel. The subscription is
// confirmed before returning, so no event published afterwards is missed.
func (s *Store) Subscribe(ctx context.Context, userID string) (domain.Subscription, error) {
	pubsub := s.client.Subscribe(ctx, ChangesChannel(userID))
	if _, err := pubsub.Receive(ctx); err != nil {
		_ = pubsub.Close()
		return nil, fmt.Errorf("failed to subscribe to changes: %w", err)
	}

	sub := &subscription{
		pubsub: pubsub,
		events: make(chan domain.ChangeEvent, 16),
	}

	msgs := pubsub.Channel()
	go func() {
		defer close(sub.events)
		for {
			select {
			case msg, ok := <-msgs:
				if !ok {
					return
				}
				var ev domain.ChangeEvent
				if err := json.Unmarshal([]byte(msg.Payload), &ev); err != nil {
					// Still a change on this channel; deliver it without details
					ev = domain.ChangeEvent{Type: domain.ChangeUpdate, UserID: userID, At: time.Now().UTC()}
				}
				if ev.UserID != userID {
					continue
				}
				select {
				case sub.events <- ev:
				default:
					// a re-fetch is already pending
				}
			case <-ctx.Done():
				_ = sub.Close()
				return
			}
		}
	}()

	return sub, nil
}

func (sub *subscription) Events() <-chan domain.ChangeEvent { return sub.events }

func (sub *subscription) Close() error {
	var err error
	sub.once.Do(func() {
		err = sub.pubsub.Close()
	})
	return err
}

package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/lib/pq"

	"github.com/MrSnakeDoc/smartmark/internal/domain"
	"github.com/MrSnakeDoc/smartmark/internal/logger"
)

type subscription struct {
	listener *pq.Listener
	events   chan domain.ChangeEvent
	stop     chan struct{}
	once     sync.Once
}

// Subscribe opens a dedicated LISTEN connection on the owner's channel and
// forwards its notifications. A reconnect is reported as an UPDATE so the subscriber
// re-fetches whatever it may have missed.
func (s *Store) Subscribe(ctx context.Context, userID string) (domain.Subscription, error) {
	log := s.logger.With(logger.String("user_id", userID))
	listener := pq.NewListener(s.dsn, listenerMinReconn, listenerMaxReconn, func(ev pq.ListenerEventType, err error) {
		if err != nil {
			log.Warn("postgres listener event", logger.Int("event", int(ev)), logger.Error(err))
		}
	})
	if err := listener.Listen(ownerChannel(userID)); err != nil {
		_ = listener.Close()
		return nil, fmt.Errorf("failed to listen for changes: %w", err)
	}

	sub := &subscription{
		listener: listener,
		events:   make(chan domain.ChangeEvent, 16),
		stop:     make(chan struct{}),
	}

	go sub.forward(ctx, userID)
	return sub, nil
}

func (sub *subscription) forward(ctx context.Context, userID string) {
	defer close(sub.events)
	for {
		select {
		case n, ok := <-sub.listener.Notify:
			if !ok {
				return
			}
			ev, ok := decodeNotification(n, userID)
			if !ok {
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
		case <-sub.stop:
			return
		}
	}
}

// decodeNotification turns a payload from the owner's channel into an
// event, dropping anything that names another owner. A nil notification
// means the connection was re-established.
func decodeNotification(n *pq.Notification, userID string) (domain.ChangeEvent, bool) {
	if n == nil {
		return domain.ChangeEvent{Type: domain.ChangeUpdate, UserID: userID, At: time.Now().UTC()}, true
	}
	var ev domain.ChangeEvent
	if err := json.Unmarshal([]byte(n.Extra), &ev); err != nil {
		return domain.ChangeEvent{}, false
	}
	if ev.UserID != userID {
		return domain.ChangeEvent{}, false
	}
	return ev, true
}

func (sub *subscription) Events() <-chan domain.ChangeEvent { return sub.events }

func (sub *subscription) Close() error {
	var err error
	sub.once.Do(func() {
		close(sub.stop)
		err = sub.listener.Close()
	})
	return err
}

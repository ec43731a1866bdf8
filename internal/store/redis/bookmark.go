package redis

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/MrSnakeDoc/smartmark/internal/domain"
)

// Insert stores a bookmark, indexes it under its owner and publishes an
// INSERT event, all in one MULTI/EXEC
func (s *Store) Insert(ctx context.Context, nb domain.NewBookmark) (domain.Bookmark, error) {
	if err := nb.Validate(); err != nil {
		return domain.Bookmark{}, err
	}

	b := domain.Bookmark{
		ID:        uuid.NewString(),
		Title:     nb.Title,
		URL:       nb.URL,
		UserID:    nb.UserID,
		CreatedAt: s.now().UTC(),
	}

	data, err := json.Marshal(b)
	if err != nil {
		return domain.Bookmark{}, fmt.Errorf("failed to marshal bookmark: %w", err)
	}
	event, err := encodeEvent(domain.ChangeInsert, b.ID, b.UserID, b.CreatedAt)
	if err != nil {
		return domain.Bookmark{}, err
	}

	_, err = s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, BookmarkKey(b.ID), data, 0)
		pipe.ZAdd(ctx, OwnerIndexKey(b.UserID), redis.Z{
			Score:  float64(b.CreatedAt.UnixMicro()),
			Member: b.ID,
		})
		pipe.Publish(ctx, ChangesChannel(b.UserID), event)
		return nil
	})
	if err != nil {
		return domain.Bookmark{}, fmt.Errorf("failed to save bookmark: %w", err)
	}

	return b, nil
}

// ListByOwner returns the owner's bookmarks, newest first
func (s *Store) ListByOwner(ctx context.Context, userID string) ([]domain.Bookmark, error) {
	ids, err := s.client.ZRevRange(ctx, OwnerIndexKey(userID), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to get bookmark IDs: %w", err)
	}

	if len(ids) == 0 {
		return []domain.Bookmark{}, nil
	}

	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = BookmarkKey(id)
	}

	values, err := s.client.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to get bookmarks: %w", err)
	}

	bookmarks := make([]domain.Bookmark, 0, len(values))
	for _, v := range values {
		raw, ok := v.(string)
		if !ok {
			// Index entry without a document; skip it
			continue
		}
		var b domain.Bookmark
		if err := json.Unmarshal([]byte(raw), &b); err != nil {
			return nil, fmt.Errorf("failed to unmarshal bookmark: %w", err)
		}
		if b.UserID != userID {
			continue
		}
		bookmarks = append(bookmarks, b)
	}

	return bookmarks, nil
}

// Delete removes a bookmark only if it sits in userID's index. ZREM on the
// owner's set is the ownership check: it is a no-op for foreign ids.
func (s *Store) Delete(ctx context.Context, id, userID string) (int64, error) {
	removed, err := s.client.ZRem(ctx, OwnerIndexKey(userID), id).Result()
	if err != nil {
		return 0, fmt.Errorf("failed to remove bookmark from index: %w", err)
	}
	if removed == 0 {
		return 0, nil
	}

	event, err := encodeEvent(domain.ChangeDelete, id, userID, s.now().UTC())
	if err != nil {
		return 0, err
	}

	_, err = s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, BookmarkKey(id))
		pipe.Publish(ctx, ChangesChannel(userID), event)
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("failed to delete bookmark: %w", err)
	}

	return removed, nil
}

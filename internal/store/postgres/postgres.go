// Package postgres stores bookmarks in PostgreSQL and turns row triggers
// into change events through LISTEN/NOTIFY.
package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "github.com/lib/pq"

	"github.com/MrSnakeDoc/smartmark/internal/connect"
	"github.com/MrSnakeDoc/smartmark/internal/domain"
	"github.com/MrSnakeDoc/smartmark/internal/logger"
)

const (
	connMaxLifetime   = 5 * time.Minute
	listenerMinReconn = 2 * time.Second
	listenerMaxReconn = time.Minute
)

// Store is a domain.Store backed by a *sql.DB.
type Store struct {
	db     *sql.DB
	dsn    string
	logger logger.Logger
}

// Open connects with retry, applies the schema and returns the store.
func Open(dsn string, maxConns int, retry connect.Options, log logger.Logger) (*Store, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open postgres: %w", err)
	}
	if maxConns > 0 {
		db.SetMaxOpenConns(maxConns)
		db.SetMaxIdleConns(maxConns)
	}
	db.SetConnMaxLifetime(connMaxLifetime)

	if err := connect.WithRetry("postgres", "postgres", retry, db.PingContext, log); err != nil {
		_ = db.Close()
		return nil, err
	}

	s := &Store{db: db, dsn: dsn, logger: log}
	if err := s.Migrate(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

// Migrate applies the idempotent schema.
func (s *Store) Migrate(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("failed to apply schema: %w", err)
	}
	return nil
}

// ListByOwner returns the owner's bookmarks, newest first.
func (s *Store) ListByOwner(ctx context.Context, userID string) ([]domain.Bookmark, error) {
	query := `
		SELECT id, title, url, user_id, created_at
		FROM bookmarks
		WHERE user_id = $1
		ORDER BY created_at DESC
	`
	rows, err := s.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to query bookmarks: %w", err)
	}
	defer rows.Close()

	bookmarks := make([]domain.Bookmark, 0)
	for rows.Next() {
		var b domain.Bookmark
		if err := rows.Scan(&b.ID, &b.Title, &b.URL, &b.UserID, &b.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan bookmark row: %w", err)
		}
		bookmarks = append(bookmarks, b)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating bookmark rows: %w", err)
	}
	return bookmarks, nil
}

// Insert stores a new bookmark; the trigger publishes the INSERT event.
func (s *Store) Insert(ctx context.Context, nb domain.NewBookmark) (domain.Bookmark, error) {
	if err := nb.Validate(); err != nil {
		return domain.Bookmark{}, err
	}

	query := `
		INSERT INTO bookmarks (id, title, url, user_id)
		VALUES ($1, $2, $3, $4)
		RETURNING created_at
	`
	b := domain.Bookmark{
		ID:     uuid.NewString(),
		Title:  nb.Title,
		URL:    nb.URL,
		UserID: nb.UserID,
	}
	if err := s.db.QueryRowContext(ctx, query, b.ID, b.Title, b.URL, b.UserID).Scan(&b.CreatedAt); err != nil {
		return domain.Bookmark{}, fmt.Errorf("failed to insert bookmark: %w", err)
	}
	b.CreatedAt = b.CreatedAt.UTC()
	return b, nil
}

// Delete removes the bookmark only when it belongs to userID.
func (s *Store) Delete(ctx context.Context, id, userID string) (int64, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM bookmarks WHERE id = $1 AND user_id = $2`, id, userID)
	if err != nil {
		return 0, fmt.Errorf("failed to delete bookmark: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to read affected rows: %w", err)
	}
	return n, nil
}

// Revoke records a revoked session token id and prunes lapsed ones.
func (s *Store) Revoke(ctx context.Context, tokenID string, until time.Time) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM revoked_sessions WHERE expires_at < now()`); err != nil {
		s.logger.Warn("failed to prune revoked sessions", logger.Error(err))
	}
	query := `
		INSERT INTO revoked_sessions (token_id, expires_at)
		VALUES ($1, $2)
		ON CONFLICT (token_id) DO UPDATE SET expires_at = EXCLUDED.expires_at
	`
	if _, err := s.db.ExecContext(ctx, query, tokenID, until); err != nil {
		return fmt.Errorf("failed to revoke session: %w", err)
	}
	return nil
}

// IsRevoked reports whether tokenID is revoked and not yet lapsed.
func (s *Store) IsRevoked(ctx context.Context, tokenID string) (bool, error) {
	var revoked bool
	query := `SELECT EXISTS (SELECT 1 FROM revoked_sessions WHERE token_id = $1 AND expires_at > now())`
	if err := s.db.QueryRowContext(ctx, query, tokenID).Scan(&revoked); err != nil {
		return false, fmt.Errorf("failed to check revocation: %w", err)
	}
	return revoked, nil
}

// Ping checks the connection pool.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Close closes the pool.
func (s *Store) Close() error {
	return s.db.Close()
}

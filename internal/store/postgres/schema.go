package postgres

import (
	"crypto/md5"
	"encoding/hex"
)

// changesPrefix starts every per-owner NOTIFY channel. The trigger appends
// md5(user_id) so the name stays a valid identifier of fixed length.
const changesPrefix = "smartmark_changes_"

// ownerChannel must match the channel the trigger computes for userID.
func ownerChannel(userID string) string {
	sum := md5.Sum([]byte(userID))
	return changesPrefix + hex.EncodeToString(sum[:])
}

// schema is idempotent and applied on every start.
const schema = `
CREATE TABLE IF NOT EXISTS bookmarks (
	id         TEXT PRIMARY KEY,
	title      TEXT NOT NULL,
	url        TEXT NOT NULL CHECK (url LIKE 'http://%' OR url LIKE 'https://%'),
	user_id    TEXT NOT NULL,
	created_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS bookmarks_user_created_idx
	ON bookmarks (user_id, created_at DESC);

CREATE TABLE IF NOT EXISTS revoked_sessions (
	token_id   TEXT PRIMARY KEY,
	expires_at TIMESTAMPTZ NOT NULL
);

CREATE OR REPLACE FUNCTION smartmark_notify_bookmark_change() RETURNS trigger AS $$
DECLARE
	rec bookmarks;
BEGIN
	IF TG_OP = 'DELETE' THEN
		rec := OLD;
	ELSE
		rec := NEW;
	END IF;
	PERFORM pg_notify('` + changesPrefix + `' || md5(rec.user_id), json_build_object(
		'type', TG_OP,
		'bookmark_id', rec.id,
		'user_id', rec.user_id,
		'at', now()
	)::text);
	RETURN NULL;
END;
$$ LANGUAGE plpgsql;

DROP TRIGGER IF EXISTS bookmarks_notify ON bookmarks;
CREATE TRIGGER bookmarks_notify
	AFTER INSERT OR UPDATE OR DELETE ON bookmarks
	FOR EACH ROW EXECUTE FUNCTION smartmark_notify_bookmark_change();
`

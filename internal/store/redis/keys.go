package redis

const (
	// KeyPrefixBookmark is the prefix for bookmark JSON documents
	KeyPrefixBookmark = "smartmark:bookmark:"
	// KeyPrefixUser is the prefix for per-owner keys
	KeyPrefixUser = "smartmark:user:"
	// KeyPrefixRevoked is the prefix for revoked session token ids
	KeyPrefixRevoked = "smartmark:revoked:"
)

// BookmarkKey returns the Redis key for a bookmark document
func BookmarkKey(id string) string {
	return KeyPrefixBookmark + id
}

// OwnerIndexKey returns the sorted set of an owner's bookmark ids, scored by
// creation time in microseconds
func OwnerIndexKey(userID string) string {
	return KeyPrefixUser + userID + ":bookmarks"
}

// ChangesChannel returns the Pub/Sub channel carrying an owner's change events
func ChangesChannel(userID string) string {
	return KeyPrefixUser + userID + ":changes"
}

// RevokedKey returns the key marking a session token id as revoked
func RevokedKey(tokenID string) string {
	return KeyPrefixRevoked + tokenID
}

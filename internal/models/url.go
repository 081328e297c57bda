package models

import "time"

// URL is a single short link: a mapping from a short code to the original URL.
// Records are never modified after creation.
type URL struct {
	// ID is the unique identifier assigned by the store.
	ID int64
	// ShortCode is either the base62-encoded counter value or a caller alias.
	ShortCode string
	// OriginalURL is the full-length URL that the short code points to.
	OriginalURL string
	// ExpiresAt is the moment the link stops resolving. Nil means it never expires.
	ExpiresAt *time.Time
	// CreatedAt is the timestamp indicating when the link was created.
	CreatedAt time.Time
}

// IsExpired reports whether the link has an expiration date that is not after now.
func (u *URL) IsExpired(now time.Time) bool {
	return u.ExpiresAt != nil && !u.ExpiresAt.After(now)
}

package models

import "time"

// URL represents a shortened URL and its associated metadata.
type URL struct {
	// ShortCode is the identifier substituted for the target URL. It is the
	// primary key of the record and never changes once created.
	ShortCode string
	// TargetURL is the normalized absolute URL the short code resolves to.
	TargetURL string
	// ClickCount tracks the number of successful resolutions of the short code.
	ClickCount int64
	// CreatedAt is the timestamp indicating when the record was created.
	CreatedAt time.Time
	// ExpiresAt, when set, is the instant at which the record stops being
	// resolvable. A nil value means the record never expires.
	ExpiresAt *time.Time
	// LastAccessed, when set, is the timestamp of the most recent successful
	// resolution.
	LastAccessed *time.Time
}

// ExpiredAt reports whether the record is past its expiry at the given
// instant. Records without an expiry never expire.
func (u *URL) ExpiredAt(now time.Time) bool {
	return u.ExpiresAt != nil && u.ExpiresAt.Before(now)
}

package models

import "time"

type Session struct {
	ID            string     `json:"id"`
	AccountID     string     `json:"userId"`
	CreatedAt     time.Time  `json:"createdAt"`
	ExpiresAt     time.Time  `json:"expiresAt"`
	IsActive      bool       `json:"isActive"`
	DeactivatedAt *time.Time `json:"deactivatedAt,omitempty"`
}

func (s Session) RecordID() string { return s.ID }

// Expired reports whether now is at or past the expiry.
func (s Session) Expired(now time.Time) bool {
	return !now.Before(s.ExpiresAt)
}

// Usable reports whether the session still authenticates its owner.
func (s Session) Usable(now time.Time) bool {
	return s.IsActive && !s.Expired(now)
}

package model

import "time"

// Session resolves a bearer token to a participant. Rows are written by the
// identity provider; this core only reads them.
type Session struct {
	Token         string    `json:"-"`
	ParticipantID int64     `json:"participant_id"`
	ExpiresAt     time.Time `json:"expires_at"`
	CreatedAt     time.Time `json:"created_at"`
}

func (s *Session) IsValid() bool {
	return time.Now().Before(s.ExpiresAt)
}

package model

import "time"

// Conversation pairs a requester with a listing owner for one property.
// Exactly two participants, so unread counts and read cursors are stored
// per side rather than as an open-ended mapping. Conversations are created
// on first contact and never deleted.
type Conversation struct {
	ID              int64     `json:"id"`
	PropertyID      int64     `json:"property_id"`
	RequesterID     int64     `json:"requester_id"`
	OwnerID         int64     `json:"owner_id"`
	LastMessageAt   time.Time `json:"last_message_at"`
	LastSeq         int64     `json:"last_seq"`
	RequesterUnread int64     `json:"requester_unread"`
	OwnerUnread     int64     `json:"owner_unread"`
	RequesterCursor int64     `json:"requester_cursor"`
	OwnerCursor     int64     `json:"owner_cursor"`
	CreatedAt       time.Time `json:"created_at"`
}

// HasParticipant reports whether userID is one of the two parties.
func (c *Conversation) HasParticipant(userID int64) bool {
	return userID == c.RequesterID || userID == c.OwnerID
}

// OtherParticipant returns the counterparty of userID. Callers must have
// checked HasParticipant first.
func (c *Conversation) OtherParticipant(userID int64) int64 {
	if userID == c.RequesterID {
		return c.OwnerID
	}
	return c.RequesterID
}

// UnreadFor returns the unread count for the given participant.
func (c *Conversation) UnreadFor(userID int64) int64 {
	if userID == c.RequesterID {
		return c.RequesterUnread
	}
	return c.OwnerUnread
}

// CursorFor returns the last-read message seq for the given participant.
func (c *Conversation) CursorFor(userID int64) int64 {
	if userID == c.RequesterID {
		return c.RequesterCursor
	}
	return c.OwnerCursor
}

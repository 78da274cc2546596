package store

import (
	"context"
	"errors"
	"time"

	"dwello.app/dealroom/internal/model"
)

var (
	// ErrNotFound is returned when a record does not exist.
	ErrNotFound = errors.New("not found")

	// ErrStaleState is returned when a conditional write finds the record no
	// longer in the expected prior state. The caller must refetch and present
	// the resolved state instead of retrying blindly.
	ErrStaleState = errors.New("stale state")

	// ErrDuplicate is returned when an insert loses a uniqueness race
	// (pending-proposal index, message seq assignment). Safe to retry the
	// enclosing transaction.
	ErrDuplicate = errors.New("duplicate record")
)

type ConversationStore interface {
	Create(ctx context.Context, conv *model.Conversation) error
	GetByID(ctx context.Context, id int64) (*model.Conversation, error)
	GetByPropertyAndParticipants(ctx context.Context, propertyID, requesterID, ownerID int64) (*model.Conversation, error)
	ListForUser(ctx context.Context, userID int64) ([]model.Conversation, error)

	// ApplyMessageStamp folds a newly appended message into the conversation
	// summary: last_message_at takes the max, and the non-sender's unread
	// count bumps unless their cursor already covers the seq.
	ApplyMessageStamp(ctx context.Context, id int64, seq int64, senderID int64, at time.Time) (*model.Conversation, error)

	// MarkRead advances a participant's cursor monotonically and recomputes
	// their unread count. A seq behind the cursor is a no-op.
	MarkRead(ctx context.Context, id int64, participantID int64, upToSeq int64) (*model.Conversation, error)
}

type MessageStore interface {
	// Create assigns the next seq in the conversation and persists the
	// message. Returns ErrDuplicate if a concurrent insert won the seq.
	Create(ctx context.Context, msg *model.Message) error
	GetByID(ctx context.Context, id int64) (*model.Message, error)
	ListAfter(ctx context.Context, conversationID, afterSeq int64, limit int32) ([]model.Message, error)
	ListRange(ctx context.Context, conversationID, fromSeq, toSeq int64) ([]model.Message, error)
}

type ProposalStore interface {
	Create(ctx context.Context, p *model.Proposal) error
	GetByID(ctx context.Context, id int64) (*model.Proposal, error)
	GetPendingByConversation(ctx context.Context, conversationID int64) (*model.Proposal, error)

	// UpdateStatusIfPending is the conditional write every transition goes
	// through: compare-and-swap on (id, status=pending). Returns
	// ErrStaleState when the proposal is no longer pending.
	UpdateStatusIfPending(ctx context.Context, id int64, newStatus model.ProposalStatus, respondedBy *int64) (*model.Proposal, error)

	ListExpiredPending(ctx context.Context, createdBefore time.Time, limit int32) ([]model.Proposal, error)
}

type SessionStore interface {
	GetByToken(ctx context.Context, token string) (*model.Session, error)
}

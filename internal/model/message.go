package model

import "time"

type MessageKind string

const (
	MessageKindText              MessageKind = "text"
	MessageKindProposalOpened    MessageKind = "proposal_opened"
	MessageKindProposalAccepted  MessageKind = "proposal_accepted"
	MessageKindProposalRejected  MessageKind = "proposal_rejected"
	MessageKindProposalWithdrawn MessageKind = "proposal_withdrawn"
	MessageKindProposalCountered MessageKind = "proposal_countered"
	MessageKindProposalExpired   MessageKind = "proposal_expired"

	// System notes are written by external collaborators (support tooling,
	// moderation) straight into the log; nothing in this service emits them.
	MessageKindSystemNote MessageKind = "system_note"
)

// Message is one entry in a conversation's append-only log. Messages are
// immutable once created; all conversation state is derived from them.
//
// ID is globally unique but sparse (snowflake). Seq is the dense position
// within the conversation, assigned at insert. Ordering, read cursors,
// deduplication and gap detection all run on Seq.
type Message struct {
	ID             int64       `json:"id"`
	ConversationID int64       `json:"conversation_id"`
	Seq            int64       `json:"seq"`
	SenderID       int64       `json:"sender_id"`
	Kind           MessageKind `json:"kind"`
	Body           string      `json:"body,omitempty"`
	ProposalID     *int64      `json:"proposal_id,omitempty"`
	NewProposalID  *int64      `json:"new_proposal_id,omitempty"`
	CreatedAt      time.Time   `json:"created_at"`
}

// ResolvesProposal reports whether applying this message changes the status
// of the proposal it references.
func (m *Message) ResolvesProposal() bool {
	switch m.Kind {
	case MessageKindProposalAccepted,
		MessageKindProposalRejected,
		MessageKindProposalWithdrawn,
		MessageKindProposalCountered,
		MessageKindProposalExpired:
		return true
	}
	return false
}

// ResolvedStatus returns the proposal status implied by this message, or ""
// when the message does not resolve a proposal.
func (m *Message) ResolvedStatus() ProposalStatus {
	switch m.Kind {
	case MessageKindProposalAccepted:
		return ProposalStatusAccepted
	case MessageKindProposalRejected:
		return ProposalStatusRejected
	case MessageKindProposalWithdrawn:
		return ProposalStatusWithdrawn
	case MessageKindProposalCountered:
		return ProposalStatusCountered
	case MessageKindProposalExpired:
		return ProposalStatusExpired
	}
	return ""
}

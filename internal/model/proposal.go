package model

import "time"

type ProposalStatus string

const (
	ProposalStatusPending   ProposalStatus = "pending"
	ProposalStatusAccepted  ProposalStatus = "accepted"
	ProposalStatusRejected  ProposalStatus = "rejected"
	ProposalStatusWithdrawn ProposalStatus = "withdrawn"
	ProposalStatusCountered ProposalStatus = "countered"
	ProposalStatusExpired   ProposalStatus = "expired"
)

// Proposal is a structured price offer attached to a conversation.
// Counter-offers link back to the proposal they superseded, so the full
// negotiation history is walkable from the latest proposal via ParentProposalID.
type Proposal struct {
	ID               int64          `json:"id"`
	ConversationID   int64          `json:"conversation_id"`
	Amount           int64          `json:"amount"`
	Currency         string         `json:"currency"`
	CreatedBy        int64          `json:"created_by"`
	Status           ProposalStatus `json:"status"`
	ParentProposalID *int64         `json:"parent_proposal_id,omitempty"`
	CreatedAt        time.Time      `json:"created_at"`
	RespondedAt      *time.Time     `json:"responded_at,omitempty"`
	RespondedBy      *int64         `json:"responded_by,omitempty"`
}

// IsPending reports whether the proposal is still open for a response.
func (p *Proposal) IsPending() bool {
	return p.Status == ProposalStatusPending
}

// IsResolved reports whether the proposal has reached a terminal or
// superseded status. Resolved proposals never transition again.
func (p *Proposal) IsResolved() bool {
	return p.Status != ProposalStatusPending
}

// CanRespond reports whether actorID may accept, reject or counter this
// proposal. Only the counterparty may respond; the creator withdraws instead.
func (p *Proposal) CanRespond(actorID int64) bool {
	return p.IsPending() && actorID != p.CreatedBy
}

// CanWithdraw reports whether actorID may withdraw this proposal.
func (p *Proposal) CanWithdraw(actorID int64) bool {
	return p.IsPending() && actorID == p.CreatedBy
}

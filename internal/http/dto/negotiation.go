package dto

import (
	"time"

	"dwello.app/dealroom/internal/model"
	"dwello.app/dealroom/internal/money"
)

type SendMessageRequest struct {
	ConversationID int64  `json:"conversation_id,string,omitempty"`
	PropertyID     int64  `json:"property_id,string,omitempty"`
	OwnerID        int64  `json:"owner_id,string,omitempty"`
	Body           string `json:"body" binding:"required,max=4000"`
}

type SendProposalRequest struct {
	ConversationID int64 `json:"conversation_id,string,omitempty"`
	PropertyID     int64 `json:"property_id,string,omitempty"`
	OwnerID        int64 `json:"owner_id,string,omitempty"`

	// Amount accepts display formatting, e.g. "500,000".
	Amount   string `json:"amount" binding:"required,max=32"`
	Currency string `json:"currency" binding:"required,len=3"`
}

type CounterProposalRequest struct {
	Amount string `json:"amount" binding:"required,max=32"`
}

type MarkReadRequest struct {
	UpToSeq int64 `json:"up_to_seq" binding:"required,min=1"`
}

type MessageResponse struct {
	ID             int64             `json:"id,string"`
	ConversationID int64             `json:"conversation_id,string"`
	Seq            int64             `json:"seq"`
	SenderID       int64             `json:"sender_id,string"`
	Kind           model.MessageKind `json:"kind"`
	Body           string            `json:"body,omitempty"`
	ProposalID     *int64            `json:"proposal_id,string,omitempty"`
	NewProposalID  *int64            `json:"new_proposal_id,string,omitempty"`
	CreatedAt      time.Time         `json:"created_at"`
}

func ToMessageResponse(m *model.Message) *MessageResponse {
	return &MessageResponse{
		ID:             m.ID,
		ConversationID: m.ConversationID,
		Seq:            m.Seq,
		SenderID:       m.SenderID,
		Kind:           m.Kind,
		Body:           m.Body,
		ProposalID:     m.ProposalID,
		NewProposalID:  m.NewProposalID,
		CreatedAt:      m.CreatedAt,
	}
}

type ProposalResponse struct {
	ID               int64                `json:"id,string"`
	ConversationID   int64                `json:"conversation_id,string"`
	Amount           int64                `json:"amount"`
	AmountDisplay    string               `json:"amount_display"`
	Currency         string               `json:"currency"`
	CreatedBy        int64                `json:"created_by,string"`
	Status           model.ProposalStatus `json:"status"`
	ParentProposalID *int64               `json:"parent_proposal_id,string,omitempty"`
	CreatedAt        time.Time            `json:"created_at"`
	RespondedAt      *time.Time           `json:"responded_at,omitempty"`
	RespondedBy      *int64               `json:"responded_by,string,omitempty"`
}

func ToProposalResponse(p *model.Proposal) *ProposalResponse {
	return &ProposalResponse{
		ID:               p.ID,
		ConversationID:   p.ConversationID,
		Amount:           p.Amount,
		AmountDisplay:    money.Format(p.Amount),
		Currency:         p.Currency,
		CreatedBy:        p.CreatedBy,
		Status:           p.Status,
		ParentProposalID: p.ParentProposalID,
		CreatedAt:        p.CreatedAt,
		RespondedAt:      p.RespondedAt,
		RespondedBy:      p.RespondedBy,
	}
}

// ConversationResponse is viewer-specific: unread and read cursor reflect
// the authenticated participant's side.
type ConversationResponse struct {
	ID            int64     `json:"id,string"`
	PropertyID    int64     `json:"property_id,string"`
	RequesterID   int64     `json:"requester_id,string"`
	OwnerID       int64     `json:"owner_id,string"`
	LastMessageAt time.Time `json:"last_message_at"`
	LastSeq       int64     `json:"last_seq"`
	UnreadCount   int64     `json:"unread_count"`
	LastReadSeq   int64     `json:"last_read_seq"`
	CreatedAt     time.Time `json:"created_at"`
}

func ToConversationResponse(c *model.Conversation, viewerID int64) *ConversationResponse {
	return &ConversationResponse{
		ID:            c.ID,
		PropertyID:    c.PropertyID,
		RequesterID:   c.RequesterID,
		OwnerID:       c.OwnerID,
		LastMessageAt: c.LastMessageAt,
		LastSeq:       c.LastSeq,
		UnreadCount:   c.UnreadFor(viewerID),
		LastReadSeq:   c.CursorFor(viewerID),
		CreatedAt:     c.CreatedAt,
	}
}

type ConversationListResponse struct {
	Conversations []ConversationResponse `json:"conversations"`
}

type MessageListResponse struct {
	Messages []MessageResponse `json:"messages"`
}

type CounterProposalResponse struct {
	Superseded *ProposalResponse `json:"superseded"`
	Proposal   *ProposalResponse `json:"proposal"`
}

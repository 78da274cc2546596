package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"dwello.app/dealroom/common/id"
	"dwello.app/dealroom/common/logger"
	"dwello.app/dealroom/core/config"
	"dwello.app/dealroom/internal/model"
	"dwello.app/dealroom/internal/store"
)

var (
	ErrNotParticipant = errors.New("actor is not a participant in this conversation")
	ErrEmptyMessage   = errors.New("message body must not be empty")
)

// ConversationTarget addresses a conversation either directly by ID or, when
// initiating first contact, by property and owner. The requester is always
// the acting user on the initiating path.
type ConversationTarget struct {
	ConversationID int64
	PropertyID     int64
	OwnerID        int64
}

// NegotiationService is the single entry point for client surfaces. It
// threads free text and proposals through one conversation log and keeps the
// persisted summary in step with every append.
type NegotiationService interface {
	SendText(ctx context.Context, actorID int64, target ConversationTarget, body string) (*model.Message, error)
	SendProposal(ctx context.Context, actorID int64, target ConversationTarget, amount int64, currency string) (*model.Proposal, error)
	AcceptProposal(ctx context.Context, actorID, proposalID int64) (*model.Proposal, error)
	RejectProposal(ctx context.Context, actorID, proposalID int64) (*model.Proposal, error)
	WithdrawProposal(ctx context.Context, actorID, proposalID int64) (*model.Proposal, error)
	CounterProposal(ctx context.Context, actorID, proposalID, newAmount int64) (old, new *model.Proposal, err error)
	MarkRead(ctx context.Context, actorID, conversationID, upToSeq int64) (*model.Conversation, error)
	ListConversations(ctx context.Context, actorID int64) ([]model.Conversation, error)
	GetMessages(ctx context.Context, actorID, conversationID, afterSeq int64, limit int32) ([]model.Message, error)
	GetConversation(ctx context.Context, actorID, conversationID int64) (*model.Conversation, error)
}

type negotiationService struct {
	conversations store.ConversationStore
	messages      store.MessageStore
	proposals     ProposalService
	txRunner      TxRunner
	publisher     EventPublisher
	retryCfg      config.RetryConfig
}

func NewNegotiationService(
	conversations store.ConversationStore,
	messages store.MessageStore,
	proposals ProposalService,
	txRunner TxRunner,
	publisher EventPublisher,
	retryCfg config.RetryConfig,
) NegotiationService {
	return &negotiationService{
		conversations: conversations,
		messages:      messages,
		proposals:     proposals,
		txRunner:      txRunner,
		publisher:     publisher,
		retryCfg:      retryCfg,
	}
}

func (s *negotiationService) SendText(ctx context.Context, actorID int64, target ConversationTarget, body string) (*model.Message, error) {
	if strings.TrimSpace(body) == "" {
		return nil, ErrEmptyMessage
	}

	conv, err := s.resolveTarget(ctx, actorID, target)
	if err != nil {
		return nil, err
	}

	ctx = logger.WithLogFields(ctx, logger.LogFields{
		ConversationID: logger.Ptr(conv.ID),
		ActorID:        logger.Ptr(actorID),
		Component:      "dealroom.service.negotiation",
	})
	ctx = context.WithoutCancel(ctx)

	msg := &model.Message{
		ID:             id.New(),
		ConversationID: conv.ID,
		SenderID:       actorID,
		Kind:           model.MessageKindText,
		Body:           body,
	}
	err = withRetry(ctx, s.retryCfg, func() error {
		return s.txRunner.WithTx(ctx, func(stores StoreProvider) error {
			_, txErr := appendMessage(ctx, stores, msg)
			return txErr
		})
	})
	if err != nil {
		return nil, err
	}

	s.publish(ctx, msg)
	return msg, nil
}

func (s *negotiationService) SendProposal(ctx context.Context, actorID int64, target ConversationTarget, amount int64, currency string) (*model.Proposal, error) {
	// Validate before any persistence, including conversation creation.
	if amount <= 0 {
		return nil, ErrInvalidAmount
	}

	conv, err := s.resolveTarget(ctx, actorID, target)
	if err != nil {
		return nil, err
	}
	return s.proposals.Open(ctx, conv.ID, actorID, amount, currency)
}

func (s *negotiationService) AcceptProposal(ctx context.Context, actorID, proposalID int64) (*model.Proposal, error) {
	return s.proposals.Accept(ctx, proposalID, actorID)
}

func (s *negotiationService) RejectProposal(ctx context.Context, actorID, proposalID int64) (*model.Proposal, error) {
	return s.proposals.Reject(ctx, proposalID, actorID)
}

func (s *negotiationService) WithdrawProposal(ctx context.Context, actorID, proposalID int64) (*model.Proposal, error) {
	return s.proposals.Withdraw(ctx, proposalID, actorID)
}

func (s *negotiationService) CounterProposal(ctx context.Context, actorID, proposalID, newAmount int64) (*model.Proposal, *model.Proposal, error) {
	return s.proposals.Counter(ctx, proposalID, actorID, newAmount)
}

func (s *negotiationService) MarkRead(ctx context.Context, actorID, conversationID, upToSeq int64) (*model.Conversation, error) {
	conv, err := s.GetConversation(ctx, actorID, conversationID)
	if err != nil {
		return nil, err
	}
	// Behind-the-cursor requests are a no-op by contract, handled in SQL.
	updated, err := s.conversations.MarkRead(ctx, conv.ID, actorID, upToSeq)
	if err != nil {
		return nil, fmt.Errorf("marking read: %w", err)
	}
	return updated, nil
}

func (s *negotiationService) ListConversations(ctx context.Context, actorID int64) ([]model.Conversation, error) {
	return s.conversations.ListForUser(ctx, actorID)
}

func (s *negotiationService) GetMessages(ctx context.Context, actorID, conversationID, afterSeq int64, limit int32) ([]model.Message, error) {
	if _, err := s.GetConversation(ctx, actorID, conversationID); err != nil {
		return nil, err
	}
	if limit <= 0 || limit > 500 {
		limit = 100
	}
	return s.messages.ListAfter(ctx, conversationID, afterSeq, limit)
}

func (s *negotiationService) GetConversation(ctx context.Context, actorID, conversationID int64) (*model.Conversation, error) {
	conv, err := s.conversations.GetByID(ctx, conversationID)
	if err != nil {
		return nil, err
	}
	if !conv.HasParticipant(actorID) {
		return nil, ErrNotParticipant
	}
	return conv, nil
}

// resolveTarget loads the addressed conversation, creating it on first
// contact for (property, requester, owner). The conversation row exists
// before the message insert either way; losing the creation race falls back
// to the winner's row.
func (s *negotiationService) resolveTarget(ctx context.Context, actorID int64, target ConversationTarget) (*model.Conversation, error) {
	if target.ConversationID != 0 {
		return s.GetConversation(ctx, actorID, target.ConversationID)
	}

	if target.PropertyID == 0 || target.OwnerID == 0 || target.OwnerID == actorID {
		return nil, ErrNotParticipant
	}

	conv, err := s.conversations.GetByPropertyAndParticipants(ctx, target.PropertyID, actorID, target.OwnerID)
	if err == nil {
		return conv, nil
	}
	if !errors.Is(err, store.ErrNotFound) {
		return nil, err
	}

	conv = &model.Conversation{
		ID:          id.New(),
		PropertyID:  target.PropertyID,
		RequesterID: actorID,
		OwnerID:     target.OwnerID,
	}
	if err := s.conversations.Create(ctx, conv); err != nil {
		if errors.Is(err, store.ErrDuplicate) {
			return s.conversations.GetByPropertyAndParticipants(ctx, target.PropertyID, actorID, target.OwnerID)
		}
		return nil, fmt.Errorf("creating conversation: %w", err)
	}

	slog.InfoContext(ctx, "conversation created",
		"conversation_id", conv.ID,
		"property_id", conv.PropertyID,
		"requester_id", conv.RequesterID,
		"owner_id", conv.OwnerID,
	)
	return conv, nil
}

func (s *negotiationService) publish(ctx context.Context, msg *model.Message) {
	if s.publisher == nil || msg == nil {
		return
	}
	publishCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()
	if err := s.publisher.PublishMessage(publishCtx, msg); err != nil {
		slog.WarnContext(ctx, "publishing message event failed", "error", err, "message_seq", msg.Seq)
	}
}

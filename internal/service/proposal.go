package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"dwello.app/dealroom/common/id"
	"dwello.app/dealroom/common/logger"
	"dwello.app/dealroom/core/config"
	"dwello.app/dealroom/internal/model"
	"dwello.app/dealroom/internal/store"
)

var (
	ErrInvalidAmount           = errors.New("amount must be a positive whole number")
	ErrConflictingOpenProposal = errors.New("an open proposal must be resolved first")
	ErrNotAuthorized           = errors.New("actor may not perform this transition")
	ErrAlreadyResolved         = errors.New("proposal has already been resolved")
)

// EventPublisher announces committed messages to live subscribers. Publish
// failures are not fatal: clients recover through backfill.
type EventPublisher interface {
	PublishMessage(ctx context.Context, msg *model.Message) error
}

// ProposalService owns the proposal lifecycle. Every transition out of
// pending goes through a compare-and-swap on (id, status=pending), so under
// concurrent responses exactly one writer wins and the loser observes
// ErrAlreadyResolved together with the winner's resulting state.
type ProposalService interface {
	Open(ctx context.Context, conversationID, creatorID, amount int64, currency string) (*model.Proposal, error)
	Accept(ctx context.Context, proposalID, actorID int64) (*model.Proposal, error)
	Reject(ctx context.Context, proposalID, actorID int64) (*model.Proposal, error)
	Withdraw(ctx context.Context, proposalID, actorID int64) (*model.Proposal, error)
	Counter(ctx context.Context, proposalID, actorID, newAmount int64) (old, new *model.Proposal, err error)
	Expire(ctx context.Context, proposalID int64) (*model.Proposal, error)
}

type proposalService struct {
	conversations store.ConversationStore
	proposals     store.ProposalStore
	txRunner      TxRunner
	publisher     EventPublisher
	retryCfg      config.RetryConfig
}

func NewProposalService(conversations store.ConversationStore, proposals store.ProposalStore, txRunner TxRunner, publisher EventPublisher, retryCfg config.RetryConfig) ProposalService {
	return &proposalService{
		conversations: conversations,
		proposals:     proposals,
		txRunner:      txRunner,
		publisher:     publisher,
		retryCfg:      retryCfg,
	}
}

func (s *proposalService) Open(ctx context.Context, conversationID, creatorID, amount int64, currency string) (*model.Proposal, error) {
	if amount <= 0 {
		return nil, ErrInvalidAmount
	}

	ctx = logger.WithLogFields(ctx, logger.LogFields{
		ConversationID: logger.Ptr(conversationID),
		ActorID:        logger.Ptr(creatorID),
		Component:      "dealroom.service.proposal",
	})

	// Reject early so the common case never reaches the unique index.
	if existing, err := s.proposals.GetPendingByConversation(ctx, conversationID); err == nil && existing != nil {
		return nil, ErrConflictingOpenProposal
	} else if err != nil && !errors.Is(err, store.ErrNotFound) {
		return nil, fmt.Errorf("checking open proposal: %w", err)
	}

	proposal := &model.Proposal{
		ID:             id.New(),
		ConversationID: conversationID,
		Amount:         amount,
		Currency:       currency,
		CreatedBy:      creatorID,
		Status:         model.ProposalStatusPending,
	}

	// Past this point the write must run to completion even if the caller
	// navigates away.
	ctx = context.WithoutCancel(ctx)

	var msg *model.Message
	err := withRetry(ctx, s.retryCfg, func() error {
		return s.txRunner.WithTx(ctx, func(stores StoreProvider) error {
			if err := stores.Proposals().Create(ctx, proposal); err != nil {
				if errors.Is(err, store.ErrDuplicate) {
					return ErrConflictingOpenProposal
				}
				return fmt.Errorf("creating proposal: %w", err)
			}
			var err error
			msg, err = appendMessage(ctx, stores, &model.Message{
				ID:             id.New(),
				ConversationID: conversationID,
				SenderID:       creatorID,
				Kind:           model.MessageKindProposalOpened,
				ProposalID:     logger.Ptr(proposal.ID),
			})
			return err
		})
	})
	if err != nil {
		return nil, err
	}

	slog.InfoContext(ctx, "proposal opened",
		"proposal_id", proposal.ID,
		"amount", proposal.Amount,
		"currency", proposal.Currency,
	)
	s.publish(ctx, msg)
	return proposal, nil
}

func (s *proposalService) Accept(ctx context.Context, proposalID, actorID int64) (*model.Proposal, error) {
	return s.resolve(ctx, proposalID, actorID, model.ProposalStatusAccepted, model.MessageKindProposalAccepted, false)
}

func (s *proposalService) Reject(ctx context.Context, proposalID, actorID int64) (*model.Proposal, error) {
	return s.resolve(ctx, proposalID, actorID, model.ProposalStatusRejected, model.MessageKindProposalRejected, false)
}

// Withdraw is the creator's own exit from a pending proposal. It is a
// distinct transition, not a reject performed on oneself.
func (s *proposalService) Withdraw(ctx context.Context, proposalID, actorID int64) (*model.Proposal, error) {
	return s.resolve(ctx, proposalID, actorID, model.ProposalStatusWithdrawn, model.MessageKindProposalWithdrawn, true)
}

func (s *proposalService) Counter(ctx context.Context, proposalID, actorID, newAmount int64) (*model.Proposal, *model.Proposal, error) {
	if newAmount <= 0 {
		return nil, nil, ErrInvalidAmount
	}

	ctx = logger.WithLogFields(ctx, logger.LogFields{
		ProposalID: logger.Ptr(proposalID),
		ActorID:    logger.Ptr(actorID),
		Component:  "dealroom.service.proposal",
	})

	// Always validate against a fresh read, never a cached snapshot.
	current, err := s.proposals.GetByID(ctx, proposalID)
	if err != nil {
		return nil, nil, err
	}
	if err := s.requireParticipant(ctx, current, actorID); err != nil {
		return nil, nil, err
	}
	if current.IsResolved() {
		return current, nil, ErrAlreadyResolved
	}
	if !current.CanRespond(actorID) {
		return nil, nil, ErrNotAuthorized
	}

	countered := &model.Proposal{
		ID:             id.New(),
		ConversationID: current.ConversationID,
		Amount:         newAmount,
		Currency:       current.Currency,
		CreatedBy:      actorID,
		Status:         model.ProposalStatusPending,
		ParentProposalID: logger.Ptr(current.ID),
	}

	ctx = context.WithoutCancel(ctx)

	// The status flip and the child creation commit atomically: a losing
	// racer sees a failed conditional write, never a half-applied chain.
	var (
		old *model.Proposal
		msg *model.Message
	)
	err = withRetry(ctx, s.retryCfg, func() error {
		return s.txRunner.WithTx(ctx, func(stores StoreProvider) error {
			var txErr error
			old, txErr = stores.Proposals().UpdateStatusIfPending(ctx, proposalID, model.ProposalStatusCountered, logger.Ptr(actorID))
			if txErr != nil {
				return txErr
			}
			if txErr = stores.Proposals().Create(ctx, countered); txErr != nil {
				return fmt.Errorf("creating counter proposal: %w", txErr)
			}
			msg, txErr = appendMessage(ctx, stores, &model.Message{
				ID:             id.New(),
				ConversationID: current.ConversationID,
				SenderID:       actorID,
				Kind:           model.MessageKindProposalCountered,
				ProposalID:     logger.Ptr(proposalID),
				NewProposalID:  logger.Ptr(countered.ID),
			})
			return txErr
		})
	})
	if err != nil {
		if errors.Is(err, store.ErrStaleState) {
			return s.staleResult(ctx, proposalID, model.ProposalStatusCountered, actorID, err)
		}
		return nil, nil, err
	}

	slog.InfoContext(ctx, "proposal countered",
		"new_proposal_id", countered.ID,
		"new_amount", newAmount,
	)
	s.publish(ctx, msg)
	return old, countered, nil
}

// Expire is driven by the scheduler, not a participant. Same conditional
// write discipline as user transitions; a raced expiry loses cleanly.
func (s *proposalService) Expire(ctx context.Context, proposalID int64) (*model.Proposal, error) {
	ctx = logger.WithLogFields(ctx, logger.LogFields{
		ProposalID: logger.Ptr(proposalID),
		Component:  "dealroom.service.proposal",
	})

	current, err := s.proposals.GetByID(ctx, proposalID)
	if err != nil {
		return nil, err
	}
	if current.IsResolved() {
		return current, ErrAlreadyResolved
	}

	ctx = context.WithoutCancel(ctx)

	var (
		updated *model.Proposal
		msg     *model.Message
	)
	err = withRetry(ctx, s.retryCfg, func() error {
		return s.txRunner.WithTx(ctx, func(stores StoreProvider) error {
			var txErr error
			updated, txErr = stores.Proposals().UpdateStatusIfPending(ctx, proposalID, model.ProposalStatusExpired, nil)
			if txErr != nil {
				return txErr
			}
			msg, txErr = appendMessage(ctx, stores, &model.Message{
				ID:             id.New(),
				ConversationID: current.ConversationID,
				SenderID:       current.CreatedBy,
				Kind:           model.MessageKindProposalExpired,
				ProposalID:     logger.Ptr(proposalID),
			})
			return txErr
		})
	})
	if err != nil {
		if errors.Is(err, store.ErrStaleState) {
			refetched, getErr := s.proposals.GetByID(ctx, proposalID)
			if getErr != nil {
				return nil, getErr
			}
			return refetched, ErrAlreadyResolved
		}
		return nil, err
	}

	slog.InfoContext(ctx, "proposal expired")
	s.publish(ctx, msg)
	return updated, nil
}

// requireParticipant refuses actors who are not party to the proposal's
// conversation. Runs before any state inspection so an outsider learns
// nothing about the proposal, not even that it is resolved.
func (s *proposalService) requireParticipant(ctx context.Context, current *model.Proposal, actorID int64) error {
	conv, err := s.conversations.GetByID(ctx, current.ConversationID)
	if err != nil {
		return fmt.Errorf("loading conversation: %w", err)
	}
	if !conv.HasParticipant(actorID) {
		return ErrNotParticipant
	}
	return nil
}

// resolve applies a pending -> terminal transition: fresh-read validation,
// conditional write, derived message, then publish.
func (s *proposalService) resolve(ctx context.Context, proposalID, actorID int64, status model.ProposalStatus, kind model.MessageKind, byCreator bool) (*model.Proposal, error) {
	ctx = logger.WithLogFields(ctx, logger.LogFields{
		ProposalID: logger.Ptr(proposalID),
		ActorID:    logger.Ptr(actorID),
		Component:  "dealroom.service.proposal",
	})

	current, err := s.proposals.GetByID(ctx, proposalID)
	if err != nil {
		return nil, err
	}
	if err := s.requireParticipant(ctx, current, actorID); err != nil {
		return nil, err
	}
	if current.IsResolved() {
		return current, ErrAlreadyResolved
	}
	if byCreator {
		if !current.CanWithdraw(actorID) {
			return nil, ErrNotAuthorized
		}
	} else if !current.CanRespond(actorID) {
		return nil, ErrNotAuthorized
	}

	ctx = context.WithoutCancel(ctx)

	var (
		updated *model.Proposal
		msg     *model.Message
	)
	err = withRetry(ctx, s.retryCfg, func() error {
		return s.txRunner.WithTx(ctx, func(stores StoreProvider) error {
			var txErr error
			updated, txErr = stores.Proposals().UpdateStatusIfPending(ctx, proposalID, status, logger.Ptr(actorID))
			if txErr != nil {
				return txErr
			}
			msg, txErr = appendMessage(ctx, stores, &model.Message{
				ID:             id.New(),
				ConversationID: current.ConversationID,
				SenderID:       actorID,
				Kind:           kind,
				ProposalID:     logger.Ptr(proposalID),
			})
			return txErr
		})
	})
	if err != nil {
		if errors.Is(err, store.ErrStaleState) {
			refetched, staleErr := s.staleOne(ctx, proposalID, status, actorID)
			return refetched, staleErr
		}
		return nil, err
	}

	slog.InfoContext(ctx, "proposal resolved", "status", status)
	s.publish(ctx, msg)
	return updated, nil
}

// staleOne folds a retried write that lost to its own earlier attempt into
// success: if the stored state already matches the transition we tried to
// apply, the first attempt committed and this one is a duplicate.
func (s *proposalService) staleOne(ctx context.Context, proposalID int64, wanted model.ProposalStatus, actorID int64) (*model.Proposal, error) {
	refetched, err := s.proposals.GetByID(ctx, proposalID)
	if err != nil {
		return nil, err
	}
	if refetched.Status == wanted && refetched.RespondedBy != nil && *refetched.RespondedBy == actorID {
		return refetched, nil
	}
	return refetched, ErrAlreadyResolved
}

func (s *proposalService) staleResult(ctx context.Context, proposalID int64, wanted model.ProposalStatus, actorID int64, cause error) (*model.Proposal, *model.Proposal, error) {
	refetched, err := s.proposals.GetByID(ctx, proposalID)
	if err != nil {
		return nil, nil, err
	}
	if refetched.Status == wanted && refetched.RespondedBy != nil && *refetched.RespondedBy == actorID {
		// Our earlier attempt committed; surface the chain it created.
		pending, pErr := s.proposals.GetPendingByConversation(ctx, refetched.ConversationID)
		if pErr == nil && pending.ParentProposalID != nil && *pending.ParentProposalID == proposalID {
			return refetched, pending, nil
		}
	}
	return refetched, nil, ErrAlreadyResolved
}

// appendMessage persists a derived message and stamps the conversation
// summary within the same transaction.
func appendMessage(ctx context.Context, stores StoreProvider, msg *model.Message) (*model.Message, error) {
	if err := stores.Messages().Create(ctx, msg); err != nil {
		return nil, fmt.Errorf("appending message: %w", err)
	}
	if _, err := stores.Conversations().ApplyMessageStamp(ctx, msg.ConversationID, msg.Seq, msg.SenderID, msg.CreatedAt); err != nil {
		return nil, fmt.Errorf("stamping conversation: %w", err)
	}
	return msg, nil
}

func (s *proposalService) publish(ctx context.Context, msg *model.Message) {
	if s.publisher == nil || msg == nil {
		return
	}
	publishCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()
	if err := s.publisher.PublishMessage(publishCtx, msg); err != nil {
		// Subscribers recover via gap backfill.
		slog.WarnContext(ctx, "publishing message event failed", "error", err, "message_seq", msg.Seq)
	}
}

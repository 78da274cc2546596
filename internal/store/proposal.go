package store

import (
	"context"
	"errors"
	"time"

	"dwello.app/dealroom/core/db/sqlc"
	"dwello.app/dealroom/internal/model"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
)

type proposalStore struct {
	queries *sqlc.Queries
}

func newProposalStore(queries *sqlc.Queries) ProposalStore {
	return &proposalStore{queries: queries}
}

func (s *proposalStore) Create(ctx context.Context, p *model.Proposal) error {
	row, err := s.queries.CreateProposal(ctx, sqlc.CreateProposalParams{
		ID:               p.ID,
		ConversationID:   p.ConversationID,
		Amount:           p.Amount,
		Currency:         p.Currency,
		CreatedBy:        p.CreatedBy,
		ParentProposalID: p.ParentProposalID,
	})
	if err != nil {
		if isUniqueViolation(err) {
			// The partial unique index caught a second pending proposal.
			return ErrDuplicate
		}
		return err
	}
	*p = *toProposalModel(row)
	return nil
}

func (s *proposalStore) GetByID(ctx context.Context, id int64) (*model.Proposal, error) {
	row, err := s.queries.GetProposal(ctx, id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return toProposalModel(row), nil
}

func (s *proposalStore) GetPendingByConversation(ctx context.Context, conversationID int64) (*model.Proposal, error) {
	row, err := s.queries.GetPendingProposalByConversation(ctx, conversationID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return toProposalModel(row), nil
}

func (s *proposalStore) UpdateStatusIfPending(ctx context.Context, id int64, newStatus model.ProposalStatus, respondedBy *int64) (*model.Proposal, error) {
	row, err := s.queries.UpdateProposalStatusIfPending(ctx, sqlc.UpdateProposalStatusIfPendingParams{
		ID:          id,
		Status:      string(newStatus),
		RespondedBy: respondedBy,
	})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			// Zero rows matched: either gone, or no longer pending. The
			// distinction matters to callers, so check existence.
			if _, getErr := s.queries.GetProposal(ctx, id); getErr != nil {
				if errors.Is(getErr, pgx.ErrNoRows) {
					return nil, ErrNotFound
				}
				return nil, getErr
			}
			return nil, ErrStaleState
		}
		return nil, err
	}
	return toProposalModel(row), nil
}

func (s *proposalStore) ListExpiredPending(ctx context.Context, createdBefore time.Time, limit int32) ([]model.Proposal, error) {
	rows, err := s.queries.ListExpiredPendingProposals(ctx, sqlc.ListExpiredPendingProposalsParams{
		CreatedBefore: pgtype.Timestamptz{Time: createdBefore, Valid: true},
		Limit:         limit,
	})
	if err != nil {
		return nil, err
	}
	result := make([]model.Proposal, len(rows))
	for i, row := range rows {
		result[i] = *toProposalModel(row)
	}
	return result, nil
}

func toProposalModel(row sqlc.Proposal) *model.Proposal {
	return &model.Proposal{
		ID:               row.ID,
		ConversationID:   row.ConversationID,
		Amount:           row.Amount,
		Currency:         row.Currency,
		CreatedBy:        row.CreatedBy,
		Status:           model.ProposalStatus(row.Status),
		ParentProposalID: row.ParentProposalID,
		CreatedAt:        row.CreatedAt.Time,
		RespondedAt:      row.RespondedAt,
		RespondedBy:      row.RespondedBy,
	}
}

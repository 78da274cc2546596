package store

import (
	"context"
	"errors"
	"time"

	"dwello.app/dealroom/core/db/sqlc"
	"dwello.app/dealroom/internal/model"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"
)

type conversationStore struct {
	queries *sqlc.Queries
}

func newConversationStore(queries *sqlc.Queries) ConversationStore {
	return &conversationStore{queries: queries}
}

func (s *conversationStore) Create(ctx context.Context, conv *model.Conversation) error {
	row, err := s.queries.CreateConversation(ctx, sqlc.CreateConversationParams{
		ID:          conv.ID,
		PropertyID:  conv.PropertyID,
		RequesterID: conv.RequesterID,
		OwnerID:     conv.OwnerID,
	})
	if err != nil {
		if isUniqueViolation(err) {
			return ErrDuplicate
		}
		return err
	}
	*conv = *toConversationModel(row)
	return nil
}

func (s *conversationStore) GetByID(ctx context.Context, id int64) (*model.Conversation, error) {
	row, err := s.queries.GetConversation(ctx, id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return toConversationModel(row), nil
}

func (s *conversationStore) GetByPropertyAndParticipants(ctx context.Context, propertyID, requesterID, ownerID int64) (*model.Conversation, error) {
	row, err := s.queries.GetConversationByPropertyAndParticipants(ctx, sqlc.GetConversationByPropertyAndParticipantsParams{
		PropertyID:  propertyID,
		RequesterID: requesterID,
		OwnerID:     ownerID,
	})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return toConversationModel(row), nil
}

func (s *conversationStore) ListForUser(ctx context.Context, userID int64) ([]model.Conversation, error) {
	rows, err := s.queries.ListConversationsForUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	return toConversationModels(rows), nil
}

func (s *conversationStore) ApplyMessageStamp(ctx context.Context, id int64, seq int64, senderID int64, at time.Time) (*model.Conversation, error) {
	row, err := s.queries.StampConversationMessage(ctx, sqlc.StampConversationMessageParams{
		ID:            id,
		LastMessageAt: pgtype.Timestamptz{Time: at, Valid: true},
		Seq:           seq,
		SenderID:      senderID,
	})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return toConversationModel(row), nil
}

func (s *conversationStore) MarkRead(ctx context.Context, id int64, participantID int64, upToSeq int64) (*model.Conversation, error) {
	row, err := s.queries.MarkConversationRead(ctx, sqlc.MarkConversationReadParams{
		ID:            id,
		ParticipantID: participantID,
		UpToSeq:       upToSeq,
	})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return toConversationModel(row), nil
}

func toConversationModel(row sqlc.Conversation) *model.Conversation {
	return &model.Conversation{
		ID:              row.ID,
		PropertyID:      row.PropertyID,
		RequesterID:     row.RequesterID,
		OwnerID:         row.OwnerID,
		LastMessageAt:   row.LastMessageAt.Time,
		LastSeq:         row.LastSeq,
		RequesterUnread: row.RequesterUnread,
		OwnerUnread:     row.OwnerUnread,
		RequesterCursor: row.RequesterCursor,
		OwnerCursor:     row.OwnerCursor,
		CreatedAt:       row.CreatedAt.Time,
	}
}

func toConversationModels(rows []sqlc.Conversation) []model.Conversation {
	result := make([]model.Conversation, len(rows))
	for i, row := range rows {
		result[i] = *toConversationModel(row)
	}
	return result
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

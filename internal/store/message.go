package store

import (
	"context"
	"errors"

	"dwello.app/dealroom/core/db/sqlc"
	"dwello.app/dealroom/internal/model"
	"github.com/jackc/pgx/v5"
)

type messageStore struct {
	queries *sqlc.Queries
}

func newMessageStore(queries *sqlc.Queries) MessageStore {
	return &messageStore{queries: queries}
}

func (s *messageStore) Create(ctx context.Context, msg *model.Message) error {
	row, err := s.queries.CreateMessage(ctx, sqlc.CreateMessageParams{
		ID:             msg.ID,
		ConversationID: msg.ConversationID,
		SenderID:       msg.SenderID,
		Kind:           string(msg.Kind),
		Body:           msg.Body,
		ProposalID:     msg.ProposalID,
		NewProposalID:  msg.NewProposalID,
	})
	if err != nil {
		if isUniqueViolation(err) {
			// Lost the seq assignment race; the enclosing tx can retry.
			return ErrDuplicate
		}
		return err
	}
	*msg = *toMessageModel(row)
	return nil
}

func (s *messageStore) GetByID(ctx context.Context, id int64) (*model.Message, error) {
	row, err := s.queries.GetMessage(ctx, id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return toMessageModel(row), nil
}

func (s *messageStore) ListAfter(ctx context.Context, conversationID, afterSeq int64, limit int32) ([]model.Message, error) {
	rows, err := s.queries.ListMessagesAfter(ctx, sqlc.ListMessagesAfterParams{
		ConversationID: conversationID,
		AfterSeq:       afterSeq,
		Limit:          limit,
	})
	if err != nil {
		return nil, err
	}
	return toMessageModels(rows), nil
}

func (s *messageStore) ListRange(ctx context.Context, conversationID, fromSeq, toSeq int64) ([]model.Message, error) {
	rows, err := s.queries.ListMessagesRange(ctx, sqlc.ListMessagesRangeParams{
		ConversationID: conversationID,
		FromSeq:        fromSeq,
		ToSeq:          toSeq,
	})
	if err != nil {
		return nil, err
	}
	return toMessageModels(rows), nil
}

func toMessageModel(row sqlc.Message) *model.Message {
	return &model.Message{
		ID:             row.ID,
		ConversationID: row.ConversationID,
		Seq:            row.Seq,
		SenderID:       row.SenderID,
		Kind:           model.MessageKind(row.Kind),
		Body:           row.Body,
		ProposalID:     row.ProposalID,
		NewProposalID:  row.NewProposalID,
		CreatedAt:      row.CreatedAt.Time,
	}
}

func toMessageModels(rows []sqlc.Message) []model.Message {
	result := make([]model.Message, len(rows))
	for i, row := range rows {
		result[i] = *toMessageModel(row)
	}
	return result
}

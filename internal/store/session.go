package store

import (
	"context"
	"errors"

	"dwello.app/dealroom/core/db/sqlc"
	"dwello.app/dealroom/internal/model"
	"github.com/jackc/pgx/v5"
)

type sessionStore struct {
	queries *sqlc.Queries
}

func newSessionStore(queries *sqlc.Queries) SessionStore {
	return &sessionStore{queries: queries}
}

func (s *sessionStore) GetByToken(ctx context.Context, token string) (*model.Session, error) {
	row, err := s.queries.GetSessionByToken(ctx, token)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &model.Session{
		Token:         row.Token,
		ParticipantID: row.ParticipantID,
		ExpiresAt:     row.ExpiresAt.Time,
		CreatedAt:     row.CreatedAt.Time,
	}, nil
}

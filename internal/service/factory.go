package service

import (
	"dwello.app/dealroom/core/config"
	"dwello.app/dealroom/internal/store"
)

type ServicesConfig struct {
	Stores    *store.Stores
	TxRunner  TxRunner
	Publisher EventPublisher
	Retry     config.RetryConfig
}

type Services struct {
	cfg ServicesConfig
}

func NewServices(cfg ServicesConfig) *Services {
	return &Services{cfg: cfg}
}

func (s *Services) Proposals() ProposalService {
	return NewProposalService(s.cfg.Stores.Conversations(), s.cfg.Stores.Proposals(), s.cfg.TxRunner, s.cfg.Publisher, s.cfg.Retry)
}

func (s *Services) Negotiations() NegotiationService {
	return NewNegotiationService(
		s.cfg.Stores.Conversations(),
		s.cfg.Stores.Messages(),
		s.Proposals(),
		s.cfg.TxRunner,
		s.cfg.Publisher,
		s.cfg.Retry,
	)
}

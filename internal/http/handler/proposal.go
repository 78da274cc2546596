package handler

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"dwello.app/dealroom/internal/http/dto"
	"dwello.app/dealroom/internal/http/middleware"
	"dwello.app/dealroom/internal/model"
	"dwello.app/dealroom/internal/money"
	"dwello.app/dealroom/internal/service"
	"dwello.app/dealroom/internal/store"
)

type ProposalHandler struct {
	negotiations service.NegotiationService
}

func NewProposalHandler(negotiations service.NegotiationService) *ProposalHandler {
	return &ProposalHandler{negotiations: negotiations}
}

func (h *ProposalHandler) Create(c *gin.Context) {
	ctx := c.Request.Context()
	actorID := middleware.ActorID(c)

	var req dto.SendProposalRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request: amount and currency are required"})
		return
	}

	proposal, err := h.negotiations.SendProposal(ctx, actorID, service.ConversationTarget{
		ConversationID: req.ConversationID,
		PropertyID:     req.PropertyID,
		OwnerID:        req.OwnerID,
	}, money.Parse(req.Amount), req.Currency)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	c.JSON(http.StatusCreated, dto.ToProposalResponse(proposal))
}

func (h *ProposalHandler) Accept(c *gin.Context) {
	h.respond(c, func(actorID, proposalID int64) (*model.Proposal, error) {
		return h.negotiations.AcceptProposal(c.Request.Context(), actorID, proposalID)
	})
}

func (h *ProposalHandler) Reject(c *gin.Context) {
	h.respond(c, func(actorID, proposalID int64) (*model.Proposal, error) {
		return h.negotiations.RejectProposal(c.Request.Context(), actorID, proposalID)
	})
}

func (h *ProposalHandler) Withdraw(c *gin.Context) {
	h.respond(c, func(actorID, proposalID int64) (*model.Proposal, error) {
		return h.negotiations.WithdrawProposal(c.Request.Context(), actorID, proposalID)
	})
}

func (h *ProposalHandler) Counter(c *gin.Context) {
	ctx := c.Request.Context()
	actorID := middleware.ActorID(c)

	proposalID, ok := pathID(c, "id")
	if !ok {
		return
	}

	var req dto.CounterProposalRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request: amount is required"})
		return
	}

	old, countered, err := h.negotiations.CounterProposal(ctx, actorID, proposalID, money.Parse(req.Amount))
	if err != nil {
		respondResolutionError(c, err, old)
		return
	}

	c.JSON(http.StatusCreated, dto.CounterProposalResponse{
		Superseded: dto.ToProposalResponse(old),
		Proposal:   dto.ToProposalResponse(countered),
	})
}

// respond runs a proposal transition and maps the outcome, including the
// lost-race case where the refreshed terminal state rides on the 409.
func (h *ProposalHandler) respond(c *gin.Context, fn func(actorID, proposalID int64) (*model.Proposal, error)) {
	actorID := middleware.ActorID(c)

	proposalID, ok := pathID(c, "id")
	if !ok {
		return
	}

	proposal, err := fn(actorID, proposalID)
	if err != nil {
		respondResolutionError(c, err, proposal)
		return
	}

	c.JSON(http.StatusOK, dto.ToProposalResponse(proposal))
}

// respondResolutionError is respondServiceError plus the refreshed proposal
// on conflict, so a losing client can render the winner's outcome without a
// second fetch.
func respondResolutionError(c *gin.Context, err error, refreshed *model.Proposal) {
	if errors.Is(err, service.ErrAlreadyResolved) && refreshed != nil {
		c.JSON(http.StatusConflict, gin.H{
			"error":    "proposal has already been resolved",
			"proposal": dto.ToProposalResponse(refreshed),
		})
		return
	}
	respondServiceError(c, err)
}

func respondServiceError(c *gin.Context, err error) {
	ctx := c.Request.Context()

	switch {
	case errors.Is(err, service.ErrEmptyMessage),
		errors.Is(err, service.ErrInvalidAmount):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, service.ErrNotParticipant),
		errors.Is(err, service.ErrNotAuthorized):
		c.JSON(http.StatusForbidden, gin.H{"error": err.Error()})
	case errors.Is(err, store.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
	case errors.Is(err, service.ErrAlreadyResolved),
		errors.Is(err, service.ErrConflictingOpenProposal),
		errors.Is(err, store.ErrDuplicate):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	case errors.Is(err, service.ErrPersistenceUnavailable):
		slog.ErrorContext(ctx, "persistence unavailable", "error", err)
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "temporarily unavailable, retry shortly"})
	default:
		slog.ErrorContext(ctx, "request failed", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
	}
}

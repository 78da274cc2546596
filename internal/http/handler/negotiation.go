package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"dwello.app/dealroom/internal/http/dto"
	"dwello.app/dealroom/internal/http/middleware"
	"dwello.app/dealroom/internal/service"
)

type NegotiationHandler struct {
	negotiations service.NegotiationService
}

func NewNegotiationHandler(negotiations service.NegotiationService) *NegotiationHandler {
	return &NegotiationHandler{negotiations: negotiations}
}

// SendMessage appends a text message. First contact addresses the
// conversation by property and owner; the row is created on the way in.
func (h *NegotiationHandler) SendMessage(c *gin.Context) {
	ctx := c.Request.Context()
	actorID := middleware.ActorID(c)

	var req dto.SendMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request: body is required"})
		return
	}

	msg, err := h.negotiations.SendText(ctx, actorID, service.ConversationTarget{
		ConversationID: req.ConversationID,
		PropertyID:     req.PropertyID,
		OwnerID:        req.OwnerID,
	}, req.Body)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	c.JSON(http.StatusCreated, dto.ToMessageResponse(msg))
}

func (h *NegotiationHandler) ListConversations(c *gin.Context) {
	ctx := c.Request.Context()
	actorID := middleware.ActorID(c)

	conversations, err := h.negotiations.ListConversations(ctx, actorID)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	resp := dto.ConversationListResponse{
		Conversations: make([]dto.ConversationResponse, len(conversations)),
	}
	for i, conv := range conversations {
		resp.Conversations[i] = *dto.ToConversationResponse(&conv, actorID)
	}

	c.JSON(http.StatusOK, resp)
}

func (h *NegotiationHandler) GetConversation(c *gin.Context) {
	ctx := c.Request.Context()
	actorID := middleware.ActorID(c)

	conversationID, ok := pathID(c, "id")
	if !ok {
		return
	}

	conv, err := h.negotiations.GetConversation(ctx, actorID, conversationID)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.ToConversationResponse(conv, actorID))
}

func (h *NegotiationHandler) GetMessages(c *gin.Context) {
	ctx := c.Request.Context()
	actorID := middleware.ActorID(c)

	conversationID, ok := pathID(c, "id")
	if !ok {
		return
	}
	afterSeq, _ := strconv.ParseInt(c.Query("after_seq"), 10, 64)
	limit, _ := strconv.ParseInt(c.Query("limit"), 10, 32)

	messages, err := h.negotiations.GetMessages(ctx, actorID, conversationID, afterSeq, int32(limit))
	if err != nil {
		respondServiceError(c, err)
		return
	}

	resp := dto.MessageListResponse{Messages: make([]dto.MessageResponse, len(messages))}
	for i, msg := range messages {
		resp.Messages[i] = *dto.ToMessageResponse(&msg)
	}

	c.JSON(http.StatusOK, resp)
}

func (h *NegotiationHandler) MarkRead(c *gin.Context) {
	ctx := c.Request.Context()
	actorID := middleware.ActorID(c)

	conversationID, ok := pathID(c, "id")
	if !ok {
		return
	}

	var req dto.MarkReadRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request: up_to_seq is required"})
		return
	}

	conv, err := h.negotiations.MarkRead(ctx, actorID, conversationID, req.UpToSeq)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.ToConversationResponse(conv, actorID))
}

func pathID(c *gin.Context, name string) (int64, bool) {
	id, err := strconv.ParseInt(c.Param(name), 10, 64)
	if err != nil || id <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid " + name})
		return 0, false
	}
	return id, true
}

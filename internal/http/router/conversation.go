package router

import (
	"github.com/gin-gonic/gin"

	"dwello.app/dealroom/internal/http/handler"
)

// ConversationRouter sets up conversation routes. The events route is a
// long-lived SSE subscription; everything else is request/response.
func ConversationRouter(rg *gin.RouterGroup, h *handler.NegotiationHandler, events *handler.EventsHandler) {
	rg.GET("", h.ListConversations)
	rg.GET("/:id", h.GetConversation)
	rg.GET("/:id/messages", h.GetMessages)
	rg.POST("/:id/read", h.MarkRead)
	rg.GET("/:id/events", events.Stream)
}

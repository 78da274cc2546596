package router

import (
	"github.com/gin-gonic/gin"

	"dwello.app/dealroom/core/config"
	"dwello.app/dealroom/internal/http/handler"
	"dwello.app/dealroom/internal/http/middleware"
	"dwello.app/dealroom/internal/service"
	"dwello.app/dealroom/internal/store"
	"dwello.app/dealroom/internal/stream"
)

type RouterConfig struct {
	Stream config.StreamConfig
}

func SetupRoutes(
	router *gin.Engine,
	services *service.Services,
	stores *store.Stores,
	transport stream.Transport,
	cfg RouterConfig,
) {
	router.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})

	negotiations := services.Negotiations()

	v1 := router.Group("/api/v1")
	v1.Use(middleware.Auth(stores.Sessions()))
	{
		negotiationHandler := handler.NewNegotiationHandler(negotiations)
		eventsHandler := handler.NewEventsHandler(negotiations, transport, stores.Messages(), cfg.Stream)
		ConversationRouter(v1.Group("/conversations"), negotiationHandler, eventsHandler)

		proposalHandler := handler.NewProposalHandler(negotiations)
		ProposalRouter(v1.Group("/proposals"), proposalHandler)

		v1.POST("/messages", negotiationHandler.SendMessage)
	}
}

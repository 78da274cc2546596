package router

import (
	"github.com/gin-gonic/gin"

	"dwello.app/dealroom/internal/http/handler"
)

func ProposalRouter(rg *gin.RouterGroup, h *handler.ProposalHandler) {
	rg.POST("", h.Create)
	rg.POST("/:id/accept", h.Accept)
	rg.POST("/:id/reject", h.Reject)
	rg.POST("/:id/withdraw", h.Withdraw)
	rg.POST("/:id/counter", h.Counter)
}

package http

import "github.com/gin-gonic/gin"

// Register registers the diagnosis routes
func (h *Handler) Register(rg *gin.RouterGroup) {
	rg.POST("/sessions", h.CreateSession)
	rg.GET("/sessions", h.ListSessions)
	rg.GET("/sessions/:id", h.GetSession)
	rg.DELETE("/sessions/:id", h.DeleteSession)
	rg.POST("/sessions/:id/input-mode", h.SelectInput)
	rg.POST("/sessions/:id/submit", h.Submit)
	rg.POST("/sessions/:id/confirm", h.ConfirmExtraction)
	rg.POST("/sessions/:id/confirm/cancel", h.CancelConfirmation)
	rg.POST("/sessions/:id/answers", h.SubmitAnswers)
	rg.POST("/sessions/:id/answers/skip", h.SkipFollowUp)
	rg.POST("/sessions/:id/resolution", h.RecordResolution)
	rg.POST("/sessions/:id/recheck", h.Recheck)
	rg.POST("/sessions/:id/load", h.LoadFromHistory)
	rg.POST("/sessions/:id/reset", h.Reset)

	rg.POST("/sessions/:id/chat", h.OpenChat)
	rg.GET("/sessions/:id/chat", h.ChatMessages)
	rg.POST("/sessions/:id/chat/messages", h.SendChat)
	rg.DELETE("/sessions/:id/chat", h.CloseChat)

	rg.GET("/history", h.ListHistory)
	rg.DELETE("/history", h.ClearHistory)
	rg.GET("/service-centers", h.FindServiceCenters)
	rg.GET("/guided/catalog", h.GuidedCatalog)
	rg.GET("/metrics", h.Metrics)
}

package main

import (
	"voicecall-engine/internal/httpapi"

	"github.com/gin-gonic/gin"
)

// registerRoutes wires HTTP routes to handlers.
// Keep this file free of business logic. Handlers should delegate to internal modules.
func registerRoutes(r *gin.Engine, h httpapi.Handlers, authMW gin.HandlerFunc) {
	// public
	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})

	// Token issuance is public; everything else requires a bearer token.
	// NOTE: This is a placeholder login route; real credential validation is not implemented.
	r.POST("/v1/auth/login", h.Login)

	v1 := r.Group("/v1")
	v1.Use(authMW)
	{
		calls := v1.Group("/calls")
		{
			calls.POST("/start", h.StartCall)
			calls.POST("/answer", h.AnswerCall)
			calls.POST("/end", h.EndCall)
			calls.POST("/mute", h.SetMute)
			calls.GET("/active", h.ActiveCall)
		}

		v1.GET("/history", h.History)

		reports := v1.Group("/reports")
		{
			reports.GET("/calls-summary", h.CallsSummary)
		}
	}
}

package router

import (
	"github.com/gin-gonic/gin"

	"feststay.app/concierge/internal/http/handler/webhook"
	"feststay.app/concierge/internal/service"
	"feststay.app/concierge/internal/twilio"
)

type RouterConfig struct {
	SignatureValidator *twilio.SignatureValidator
}

func SetupRoutes(router *gin.Engine, concierge *service.Concierge, cfg RouterConfig) {
	router.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})

	webhookHandler := webhook.NewTwilioWebhookHandler(concierge, cfg.SignatureValidator)
	WebhookRouter(router.Group("/webhook"), webhookHandler)
}

package router

import (
	"github.com/gin-gonic/gin"

	"feststay.app/concierge/internal/http/handler/webhook"
)

func WebhookRouter(router *gin.RouterGroup, handler *webhook.TwilioWebhookHandler) {
	router.POST("/whatsapp", handler.HandleMessage)
}

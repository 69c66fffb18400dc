// Package webhook implements the messaging-gateway edge of the service.
// The gateway contract is narrow: HTTP 200 with a TwiML body for every
// processed message, 400 for malformed requests, 403 for bad signatures.
package webhook

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"feststay.app/concierge/common/logger"
	"feststay.app/concierge/internal/twilio"
)

const formContentType = "application/x-www-form-urlencoded"

const signatureHeader = "X-Twilio-Signature"

// ConversationService processes one inbound message end to end and returns
// the reply text. It never fails; failure replies are its own concern.
type ConversationService interface {
	HandleMessage(ctx context.Context, msg *twilio.InboundMessage) string
}

type TwilioWebhookHandler struct {
	service   ConversationService
	validator *twilio.SignatureValidator
}

func NewTwilioWebhookHandler(service ConversationService, validator *twilio.SignatureValidator) *TwilioWebhookHandler {
	return &TwilioWebhookHandler{service: service, validator: validator}
}

func (h *TwilioWebhookHandler) HandleMessage(c *gin.Context) {
	ctx := c.Request.Context()

	contentType := c.ContentType()
	if contentType != formContentType {
		slog.WarnContext(ctx, "webhook rejected: unexpected content type", "content_type", contentType)
		c.JSON(http.StatusBadRequest, gin.H{"error": "unsupported content type"})
		return
	}

	if err := c.Request.ParseForm(); err != nil {
		slog.WarnContext(ctx, "webhook rejected: unparseable form", "error", err)
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid form payload"})
		return
	}
	form := c.Request.PostForm

	signature := c.GetHeader(signatureHeader)
	if !h.validator.Valid(signature, requestURL(c), form) {
		slog.WarnContext(ctx, "webhook rejected: invalid signature")
		c.JSON(http.StatusForbidden, gin.H{"error": "invalid signature"})
		return
	}

	msg, err := twilio.ParseInbound(form)
	if err != nil {
		slog.WarnContext(ctx, "webhook rejected: invalid payload", "error", err)
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	slog.InfoContext(ctx, "inbound message accepted",
		"sender", logger.MaskSender(msg.Sender),
		"message_sid", msg.MessageSID,
		"media_count", msg.MediaCount,
		"body_len", len(msg.Body),
	)

	reply := h.service.HandleMessage(ctx, msg)

	c.Data(http.StatusOK, "text/xml; charset=utf-8", []byte(twilio.RenderReply(reply)))
}

// requestURL reconstructs the public URL the gateway signed. The service
// runs behind a TLS-terminating proxy, so the forwarded proto wins over
// the transport the request arrived on.
func requestURL(c *gin.Context) string {
	scheme := "http"
	if proto := c.GetHeader("X-Forwarded-Proto"); proto != "" {
		scheme = proto
	} else if c.Request.TLS != nil {
		scheme = "https"
	}

	var b strings.Builder
	b.WriteString(scheme)
	b.WriteString("://")
	b.WriteString(c.Request.Host)
	b.WriteString(c.Request.URL.RequestURI())
	return b.String()
}

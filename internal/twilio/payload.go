package twilio

import (
	"fmt"
	"net/url"
	"strconv"
)

// InboundMessage is one inbound webhook message, immutable for the duration
// of a request. MessageSID is the idempotency key.
type InboundMessage struct {
	MessageSID string
	Sender     string
	Body       string
	MediaCount int
}

// ValidationError describes a malformed webhook payload. It is a rejection,
// not a panic: handlers turn it into HTTP 400.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid payload field %s: %s", e.Field, e.Reason)
}

// ParseInbound validates the decoded webhook form and builds the inbound
// message. Body may be empty (media-only messages); NumMedia is optional
// but must be numeric when present.
func ParseInbound(form url.Values) (*InboundMessage, error) {
	sid := form.Get("MessageSid")
	if sid == "" {
		return nil, &ValidationError{Field: "MessageSid", Reason: "required"}
	}

	sender := form.Get("From")
	if sender == "" {
		return nil, &ValidationError{Field: "From", Reason: "required"}
	}

	msg := &InboundMessage{
		MessageSID: sid,
		Sender:     sender,
		Body:       form.Get("Body"),
	}

	if raw := form.Get("NumMedia"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			return nil, &ValidationError{Field: "NumMedia", Reason: "must be a non-negative integer"}
		}
		msg.MediaCount = n
	}

	return msg, nil
}

package llm

import (
	"context"

	"feststay.app/concierge/internal/model"
)

// Message is one entry of the chat transcript sent to the model: the system
// prompt first, then alternating user/assistant history, then the current
// user message.
type Message struct {
	Role    model.Role
	Content string
}

// Client is the gateway to the external text-generation service. One call,
// one completion. It has no internal retry: a retry must re-send updated
// instructions, which only the caller can compose.
type Client interface {
	Complete(ctx context.Context, messages []Message) (string, error)
	Model() string
}

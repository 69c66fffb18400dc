package logger

import "context"

type contextKey string

const logFieldsKey contextKey = "log_fields"

// LogFields contains structured fields automatically added to all logs within
// a context. Fields flow through context enrichment so business context
// (sender, inbound message SID, matched event) shows up on every log line
// without each call site repeating it.
type LogFields struct {
	Sender     *string // masked sender identifier (see MaskSender)
	MessageSID *string // inbound message SID (idempotency key)
	EventID    *int64  // matched event ID, once known
	Mode       *string // conversation mode (generic, intake, listed, ambiguous)
	Component  string  // component name, e.g. "concierge.service"
}

// WithLogFields enriches context with structured log fields.
// Multiple calls merge fields, with newer non-nil/non-empty values taking
// precedence. Context timeouts and cancellation are preserved.
func WithLogFields(ctx context.Context, fields LogFields) context.Context {
	merged := mergeFields(GetLogFields(ctx), fields)
	return context.WithValue(ctx, logFieldsKey, merged)
}

// GetLogFields retrieves log fields from context.
// Returns empty LogFields if none are set.
func GetLogFields(ctx context.Context) LogFields {
	if fields, ok := ctx.Value(logFieldsKey).(LogFields); ok {
		return fields
	}
	return LogFields{}
}

func mergeFields(existing, next LogFields) LogFields {
	result := existing

	if next.Sender != nil {
		result.Sender = next.Sender
	}
	if next.MessageSID != nil {
		result.MessageSID = next.MessageSID
	}
	if next.EventID != nil {
		result.EventID = next.EventID
	}
	if next.Mode != nil {
		result.Mode = next.Mode
	}
	if next.Component != "" {
		result.Component = next.Component
	}

	return result
}

// Ptr is a helper to create a pointer from a value, for setting LogFields
// inline: logger.WithLogFields(ctx, logger.LogFields{EventID: logger.Ptr(id)})
func Ptr[T any](v T) *T {
	return &v
}

// MaskSender reduces a sender identifier to its last four characters.
// Sender identifiers are phone numbers; full numbers never reach the logs.
func MaskSender(sender string) string {
	if len(sender) <= 4 {
		return "..." + sender
	}
	return "..." + sender[len(sender)-4:]
}

// Truncate truncates a string to maxLen characters, appending "..." if
// truncated. Useful for logging potentially long model replies.
func Truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}

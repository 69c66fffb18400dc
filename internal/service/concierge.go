// Package service orchestrates one webhook turn: gates, moderation, event
// resolution, the model call and the extraction loop. Every dependency
// access follows an explicit fail-open or fail-closed policy; none of them
// may surface a raw error to the sender.
package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"feststay.app/concierge/common/id"
	"feststay.app/concierge/common/logger"
	"feststay.app/concierge/core/config"
	"feststay.app/concierge/internal/audit"
	"feststay.app/concierge/internal/extract"
	"feststay.app/concierge/internal/gate"
	"feststay.app/concierge/internal/llm"
	"feststay.app/concierge/internal/model"
	"feststay.app/concierge/internal/moderation"
	"feststay.app/concierge/internal/prompt"
	"feststay.app/concierge/internal/store"
	"feststay.app/concierge/internal/twilio"
)

// eventCandidateLimit caps how many catalog matches one message can
// produce; more than a handful is noise, not ambiguity worth listing.
const eventCandidateLimit = 5

type Concierge struct {
	cfg           config.IntakeConfig
	allowlist     *gate.Allowlist
	idempotency   gate.Idempotency
	rateLimiter   gate.RateLimiter
	conversations store.ConversationStore
	events        store.EventStore
	listings      store.ListingStore
	auditor       *audit.Auditor
	llm           llm.Client
	logger        *slog.Logger
	now           func() time.Time
}

type ConciergeConfig struct {
	Intake        config.IntakeConfig
	Allowlist     *gate.Allowlist
	Idempotency   gate.Idempotency
	RateLimiter   gate.RateLimiter
	Conversations store.ConversationStore
	Events        store.EventStore
	Listings      store.ListingStore
	Auditor       *audit.Auditor
	LLM           llm.Client
	Logger        *slog.Logger
	// Now overrides the clock; tests use it to pin "today".
	Now func() time.Time
}

func NewConcierge(cfg ConciergeConfig) *Concierge {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return &Concierge{
		cfg:           cfg.Intake,
		allowlist:     cfg.Allowlist,
		idempotency:   cfg.Idempotency,
		rateLimiter:   cfg.RateLimiter,
		conversations: cfg.Conversations,
		events:        cfg.Events,
		listings:      cfg.Listings,
		auditor:       cfg.Auditor,
		llm:           cfg.LLM,
		logger:        cfg.Logger,
		now:           cfg.Now,
	}
}

// HandleMessage runs one full turn and always returns the user-visible
// reply text. The HTTP layer wraps it in the gateway envelope; business
// failures never escape as errors.
func (c *Concierge) HandleMessage(ctx context.Context, msg *twilio.InboundMessage) string {
	ctx = logger.WithLogFields(ctx, logger.LogFields{
		Sender:     logger.Ptr(logger.MaskSender(msg.Sender)),
		MessageSID: logger.Ptr(msg.MessageSID),
		Component:  "concierge.service",
	})

	if !c.allowlist.IsAllowed(msg.Sender) {
		c.logger.InfoContext(ctx, "sender not on allowlist")
		return replyNotAuthorized
	}

	// Idempotency and rate limiting both fail open: losing a duplicate
	// check is better than losing the message.
	seen, err := c.idempotency.HasSeen(ctx, msg.MessageSID)
	if err != nil {
		c.logger.ErrorContext(ctx, "idempotency check failed, continuing", "error", err)
	} else if seen {
		c.logger.InfoContext(ctx, "duplicate message ignored")
		return replyAlreadyReceived
	}

	decision, err := c.rateLimiter.Check(ctx, msg.Sender, c.cfg.RateLimitMax, c.cfg.RateLimitWindow)
	if err != nil {
		c.logger.ErrorContext(ctx, "rate limit check failed, continuing", "error", err)
	} else if !decision.Allowed {
		c.logger.InfoContext(ctx, "sender rate limited", "retry_after_minutes", decision.RetryAfterMinutes)
		return replyRateLimited(decision.RetryAfterMinutes)
	}

	if result := moderation.CheckInbound(msg.Body); result.Flagged {
		c.logger.WarnContext(ctx, "inbound message flagged", "reason", result.Reason)
		c.markSeen(ctx, msg.MessageSID)
		c.auditor.RecordFlag(ctx, msg.Sender, msg.Body, result.Reason)
		return replyRedirect
	}

	// History read fails closed: the model must not run with missing or
	// partial context.
	history, err := c.conversations.History(ctx, msg.Sender, c.cfg.HistoryLimit)
	if err != nil {
		c.logger.ErrorContext(ctx, "history read failed, aborting turn", "error", err)
		return replyTransientError
	}

	res, err := c.resolveEvent(ctx, msg, history)
	if err != nil {
		c.logger.ErrorContext(ctx, "event resolution failed, aborting turn", "error", err)
		return replyTransientError
	}

	if res.notFound {
		c.logger.InfoContext(ctx, "no event matched an event-like first message")
		c.markSeen(ctx, msg.MessageSID)
		return replyEventNotFound
	}

	ctx = logger.WithLogFields(ctx, logger.LogFields{Mode: logger.Ptr(string(res.mode))})
	if res.event != nil {
		ctx = logger.WithLogFields(ctx, logger.LogFields{EventID: logger.Ptr(res.event.ID)})
	}

	transcript := buildTranscript(res.systemPrompt(), history, msg.Body)

	reply, err := c.llm.Complete(ctx, transcript)
	if err != nil {
		// Model failure aborts the turn with nothing persisted, so a
		// gateway retry gets a clean second attempt.
		c.logger.ErrorContext(ctx, "model call failed, aborting turn", "error", err)
		return replyTransientError
	}

	if res.mode == prompt.ModeSupplierIntake {
		return c.runExtraction(ctx, msg, res.event, transcript, reply)
	}

	return c.finishConversational(ctx, msg, reply)
}

// finishConversational moderates an outbound reply on the plain path and
// persists the completed turn.
func (c *Concierge) finishConversational(ctx context.Context, msg *twilio.InboundMessage, reply string) string {
	if result := moderation.CheckOutbound(reply); result.Flagged {
		c.logger.WarnContext(ctx, "outbound reply flagged, discarded", "reason", result.Reason)
		c.auditor.RecordFlag(ctx, msg.Sender, reply, result.Reason)
		c.markSeen(ctx, msg.MessageSID)
		return replyRedirect
	}

	c.finishTurn(ctx, msg, reply)
	return reply
}

// runExtraction drives the bounded retry loop of §extraction: parse the
// reply, validate, persist, and on failure re-send the growing transcript
// with a corrective instruction. Exhaustion is a terminal outcome with an
// audit flag, never an error.
func (c *Concierge) runExtraction(ctx context.Context, msg *twilio.InboundMessage, event *model.Event, transcript []llm.Message, reply string) string {
	maxAttempts := c.cfg.ExtractAttempts
	if maxAttempts < 1 {
		maxAttempts = 1
	}

	var lastReason string
	for attempt := 1; ; attempt++ {
		outcome := extract.Parse(reply)

		switch outcome.Kind {
		case extract.KindPlain:
			if !isAffirmative(msg.Body) || !soundsLikeConfirmation(reply) {
				// An ordinary intake step: the model asked its next
				// question. Same outbound handling as the generic path.
				return c.finishConversational(ctx, msg, outcome.Reply)
			}
			// The model closed the intake without its data block.
			lastReason = "confirmation reply without a data block"

		case extract.KindCandidate:
			saved, visible, reason := c.persistCandidate(ctx, msg, event, outcome)
			if saved {
				c.finishTurn(ctx, msg, visible)
				return visible
			}
			if reason == "" {
				// Event already over: fallback framing, nothing saved,
				// nothing retried. The data is moot.
				c.finishTurn(ctx, msg, replyReceivedFollowUp)
				return replyReceivedFollowUp
			}
			lastReason = reason

		case extract.KindMalformed:
			lastReason = outcome.Reason
		}

		if attempt >= maxAttempts {
			break
		}

		c.logger.WarnContext(ctx, "extraction attempt failed, retrying",
			"attempt", attempt, "reason", lastReason)

		// The retry carries the whole prior exchange: the model sees its
		// own failed reply above the corrective instruction.
		transcript = append(transcript,
			llm.Message{Role: model.RoleAssistant, Content: reply},
			llm.Message{Role: model.RoleSystem, Content: prompt.RetryExtraction(lastReason)},
		)

		var err error
		reply, err = c.llm.Complete(ctx, transcript)
		if err != nil {
			c.logger.ErrorContext(ctx, "model retry failed, aborting turn", "error", err)
			return replyTransientError
		}
	}

	c.logger.ErrorContext(ctx, "extraction retries exhausted", "reason", lastReason)
	c.auditor.RecordFlag(ctx, msg.Sender, reply, model.FlagExtractionFailed)
	c.finishTurn(ctx, msg, replyReceivedFollowUp)
	return replyReceivedFollowUp
}

// persistCandidate validates and saves one extraction candidate.
// Returns saved=true with the visible reply on success; reason names the
// retryable failure, and an empty reason with saved=false means the event
// has already ended (terminal, not retryable).
func (c *Concierge) persistCandidate(ctx context.Context, msg *twilio.InboundMessage, event *model.Event, outcome extract.Outcome) (saved bool, visible string, reason string) {
	listing := outcome.Listing
	extract.ExpandUniformRooms(listing)

	if err := extract.Validate(listing, event); err != nil {
		return false, "", err.Error()
	}

	if event.EndDate.Before(c.today()) {
		c.logger.InfoContext(ctx, "event already ended, listing not saved")
		return false, "", ""
	}

	listing.EventID = event.ID
	listing.SupplierPhone = msg.Sender

	if err := c.listings.Save(ctx, listing, event); err != nil {
		if errors.Is(err, store.ErrRoomOutsideWindow) {
			return false, "", err.Error()
		}
		c.logger.ErrorContext(ctx, "listing save failed", "error", err)
		return false, "", "listing could not be saved"
	}

	c.logger.InfoContext(ctx, "listing saved", "listing_id", listing.ID, "rooms", len(listing.Rooms))

	visible = outcome.Reply
	if visible == "" {
		visible = replyReceivedFollowUp
	}
	return true, visible, ""
}

// finishTurn persists the completed user/assistant pair and the
// idempotency marker. Both writes fail open: the reply is already decided
// and must not be lost to a storage hiccup.
func (c *Concierge) finishTurn(ctx context.Context, msg *twilio.InboundMessage, reply string) {
	pair := []model.ConversationMessage{
		{ID: id.New(), Sender: msg.Sender, Role: model.RoleUser, Content: msg.Body},
		{ID: id.New(), Sender: msg.Sender, Role: model.RoleAssistant, Content: reply},
	}
	if err := c.conversations.Append(ctx, pair); err != nil {
		c.logger.ErrorContext(ctx, "conversation write failed, reply kept", "error", err)
	}

	c.markSeen(ctx, msg.MessageSID)
}

func (c *Concierge) markSeen(ctx context.Context, messageSID string) {
	if err := c.idempotency.MarkSeen(ctx, messageSID); err != nil {
		c.logger.ErrorContext(ctx, "mark seen failed, continuing", "error", err)
	}
}

func (c *Concierge) today() model.Date {
	now := c.now().UTC()
	return model.NewDate(now.Year(), now.Month(), now.Day())
}

// buildTranscript assembles the ordered message list: system prompt,
// chronological history, then the current user message.
func buildTranscript(systemPrompt string, history []model.ConversationMessage, body string) []llm.Message {
	transcript := make([]llm.Message, 0, len(history)+2)
	transcript = append(transcript, llm.Message{Role: model.RoleSystem, Content: systemPrompt})
	for _, m := range history {
		transcript = append(transcript, llm.Message{Role: m.Role, Content: m.Content})
	}
	transcript = append(transcript, llm.Message{Role: model.RoleUser, Content: body})
	return transcript
}

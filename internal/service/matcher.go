package service

import (
	"context"
	"fmt"

	"feststay.app/concierge/internal/model"
	"feststay.app/concierge/internal/prompt"
	"feststay.app/concierge/internal/twilio"
)

// resolution is the outcome of matching a conversation to a catalog
// event. Exactly one of the modes applies; notFound short-circuits the
// model call entirely.
type resolution struct {
	mode       prompt.Mode
	event      *model.Event
	candidates []model.Event
	notFound   bool
}

func (r resolution) systemPrompt() string {
	switch r.mode {
	case prompt.ModeSupplierIntake:
		return prompt.SupplierIntake(*r.event)
	case prompt.ModeAlreadyListed:
		return prompt.AlreadyListed(*r.event)
	case prompt.ModeAmbiguousEvent:
		return prompt.AmbiguousEvent(r.candidates)
	default:
		return prompt.Generic()
	}
}

// resolveEvent anchors the conversation to an event. The first user
// message of the thread names the event; later messages only matter for
// narrowing an earlier ambiguous match.
func (c *Concierge) resolveEvent(ctx context.Context, msg *twilio.InboundMessage, history []model.ConversationMessage) (resolution, error) {
	anchor := anchorMessage(msg, history)
	firstTurn := len(history) == 0

	matches, err := c.events.FindSimilar(ctx, anchor, eventCandidateLimit)
	if err != nil {
		return resolution{}, fmt.Errorf("finding similar events: %w", err)
	}

	switch len(matches) {
	case 0:
		if firstTurn && looksLikeEventReference(msg.Body, c.now()) {
			return resolution{notFound: true}, nil
		}
		return resolution{mode: prompt.ModeGeneric}, nil

	case 1:
		return c.adoptEvent(ctx, msg.Sender, matches[0])

	default:
		if !firstTurn {
			// The current message may pick one candidate out of an
			// earlier ambiguous set.
			narrowed, err := c.events.FindSimilar(ctx, msg.Body, eventCandidateLimit)
			if err != nil {
				return resolution{}, fmt.Errorf("narrowing event candidates: %w", err)
			}
			if len(narrowed) == 1 {
				return c.adoptEvent(ctx, msg.Sender, narrowed[0])
			}
		}
		return resolution{mode: prompt.ModeAmbiguousEvent, candidates: matches}, nil
	}
}

func (c *Concierge) adoptEvent(ctx context.Context, sender string, event model.Event) (resolution, error) {
	exists, err := c.events.ListingExists(ctx, event.ID, sender)
	if err != nil {
		return resolution{}, fmt.Errorf("checking existing listing: %w", err)
	}
	if exists {
		return resolution{mode: prompt.ModeAlreadyListed, event: &event}, nil
	}
	return resolution{mode: prompt.ModeSupplierIntake, event: &event}, nil
}

// anchorMessage returns the text that names the event: the first user
// message of the thread, or the current body on a fresh conversation.
func anchorMessage(msg *twilio.InboundMessage, history []model.ConversationMessage) string {
	for _, m := range history {
		if m.Role == model.RoleUser {
			return m.Content
		}
	}
	return msg.Body
}

// Package moderation classifies inbound and outbound text against ordered
// pattern tables. Rules are data, not control flow: each table is a list of
// (reason, pattern) pairs checked in order, first match wins.
package moderation

import (
	"regexp"

	"feststay.app/concierge/internal/model"
)

// Result is the outcome of a moderation check. Reason is only set when
// Flagged is true.
type Result struct {
	Flagged bool
	Reason  model.FlagReason
}

type rule struct {
	reason  model.FlagReason
	pattern *regexp.Regexp
}

// CheckInbound classifies a user message before it reaches the model.
func CheckInbound(text string) Result {
	return check(inboundRules, text)
}

// CheckOutbound classifies a model reply before it reaches the user.
func CheckOutbound(text string) Result {
	return check(outboundRules, text)
}

func check(rules []rule, text string) Result {
	for _, r := range rules {
		if r.pattern.MatchString(text) {
			return Result{Flagged: true, Reason: r.reason}
		}
	}
	return Result{}
}

package service

import (
	"regexp"
	"strconv"
	"time"
)

// The three text heuristics of the pipeline, each an ordered pattern table
// so they stay unit-testable and extensible without touching the
// orchestrator. All are approximate by design; see the notes on the
// confirmation detection in DESIGN.md.

var yearPattern = regexp.MustCompile(`\b(20\d{2})\b`)

// looksLikeEventReference guesses whether free text was meant to name an
// event: a 4-digit year in the near future is the cheapest reliable signal
// ("Glastonbury 2026"). Only used to pick the "event not found" shortcut
// over the generic greeting.
func looksLikeEventReference(text string, now time.Time) bool {
	for _, m := range yearPattern.FindAllString(text, -1) {
		year, err := strconv.Atoi(m)
		if err != nil {
			continue
		}
		if year >= now.Year() && year <= now.Year()+2 {
			return true
		}
	}
	return false
}

var affirmativePatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)^\s*(yes|yep|yeah|yup|sure|ok|okay)\b`),
	regexp.MustCompile(`(?i)\b(confirm|confirmed|i confirm)\b`),
	regexp.MustCompile(`(?i)\b(looks|sounds) (good|great|right|correct)\b`),
	regexp.MustCompile(`(?i)\b(that'?s|all) (right|correct)\b`),
	regexp.MustCompile(`(?i)\bgo ahead\b`),
}

// isAffirmative reports whether a user message reads as a confirmation.
func isAffirmative(text string) bool {
	for _, p := range affirmativePatterns {
		if p.MatchString(text) {
			return true
		}
	}
	return false
}

var confirmationPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)\byour listing\b.{0,40}\b(recorded|submitted|received|confirmed|complete)\b`),
	regexp.MustCompile(`(?i)\b(thank you|thanks)\b.{0,60}\b(listing|confirm)\b`),
	regexp.MustCompile(`(?i)\b(all set|you'?re all set)\b`),
	regexp.MustCompile(`(?i)\bwe'?(ve| have) (received|recorded) (your|the) (listing|details)\b`),
}

// soundsLikeConfirmation reports whether an assistant reply reads like the
// end-of-intake confirmation. Combined with isAffirmative on the user side
// it detects a confirmation the model closed without emitting its data
// block, which must be retried rather than accepted.
func soundsLikeConfirmation(text string) bool {
	for _, p := range confirmationPatterns {
		if p.MatchString(text) {
			return true
		}
	}
	return false
}

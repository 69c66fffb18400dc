package service

import "fmt"

// Canned user-facing replies. These are the fixed texts of the policy and
// failure paths; tests assert on them, so wording changes belong here only.
const (
	replyNotAuthorized = "This FestStay number is only available to registered suppliers. To get access, please sign up at feststay.app and verify your WhatsApp number."

	replyAlreadyReceived = "We've already received this message and are on it. No need to resend."

	replyRedirect = "I can only help with FestStay accommodation listings and events. Let's get back to that - which event would you like to talk about?"

	replyTransientError = "Sorry, something went wrong on our side. Please send your message again in a few minutes."

	replyEventNotFound = "I couldn't find that event in our catalogue. Please check the event name and year and try again, or browse upcoming events at feststay.app."

	replyReceivedFollowUp = "Thanks, we've received your listing details. Our team will review them and follow up with you shortly."
)

func replyRateLimited(retryAfterMinutes int) string {
	return fmt.Sprintf("You're sending messages a little too quickly. Please wait about %d minutes and try again.", retryAfterMinutes)
}

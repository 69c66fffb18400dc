package model

import "time"

// FlagReason labels why a piece of content was flagged.
type FlagReason string

const (
	// Inbound reasons.
	FlagPromptInjection  FlagReason = "prompt_injection"
	FlagPromptExtraction FlagReason = "prompt_extraction"

	// Outbound reasons.
	FlagSystemPromptLeak    FlagReason = "system_prompt_leak"
	FlagOutOfScopeService   FlagReason = "out_of_scope_service"
	FlagPersonalDataHarvest FlagReason = "personal_data_harvest"
	FlagIdentityChange      FlagReason = "identity_change"
	FlagProfessionalAdvice  FlagReason = "professional_advice"

	// Pipeline reasons.
	FlagExtractionFailed FlagReason = "extraction_failed"
)

// ContentFlag is one audit record of flagged content. Append-only.
type ContentFlag struct {
	ID        int64
	Sender    string
	Content   string
	Reason    FlagReason
	CreatedAt time.Time
}

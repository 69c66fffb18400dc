package moderation

import (
	"regexp"

	"feststay.app/concierge/internal/model"
)

// inboundRules catch attempts to subvert the assistant before the model is
// ever called. Order matters: the first matching rule names the reason.
var inboundRules = []rule{
	{model.FlagPromptInjection, regexp.MustCompile(`(?i)\b(ignore|disregard|forget)\b.{0,40}\b(previous|prior|above|earlier|all)\b.{0,20}\b(instructions?|prompts?|rules?|context)\b`)},
	{model.FlagPromptInjection, regexp.MustCompile(`(?i)\byou\s+are\s+now\b.{0,40}\b(a|an|the)\b`)},
	{model.FlagPromptInjection, regexp.MustCompile(`(?i)\b(new|override|replace)\b.{0,20}\b(instructions?|system\s+prompt|persona)\b`)},
	{model.FlagPromptExtraction, regexp.MustCompile(`(?i)\b(show|reveal|print|repeat|tell)\b.{0,30}\b(your|the)\b.{0,20}\b(system\s+prompt|instructions?|initial\s+prompt|guidelines)\b`)},
	{model.FlagPromptExtraction, regexp.MustCompile(`(?i)\bwhat\b.{0,20}\b(is|are)\b.{0,20}\byour\b.{0,20}\b(system\s+prompt|instructions?|rules)\b`)},
}

// outboundRules catch model replies that must never reach a sender. These
// run on every reply that skips listing extraction.
var outboundRules = []rule{
	{model.FlagSystemPromptLeak, regexp.MustCompile(`(?i)(^|\n)\s*#{1,4}\s*(system|instructions?|checklist|confirmation protocol)\b`)},
	{model.FlagSystemPromptLeak, regexp.MustCompile(`(?i)\bmy\s+(system\s+prompt|instructions)\s+(is|are|say)\b`)},
	{model.FlagOutOfScopeService, regexp.MustCompile(`(?i)\bi\s+(can|will|could)\s+(book|arrange|order)\b.{0,40}\b(flights?|taxis?|restaurants?|tickets?|visas?)\b`)},
	{model.FlagPersonalDataHarvest, regexp.MustCompile(`(?i)\b(send|give|share)\s+(me\s+)?your\b.{0,30}\b(password|passport|credit\s+card|card\s+number|bank\s+details|national\s+insurance)\b`)},
	{model.FlagIdentityChange, regexp.MustCompile(`(?i)\b(i\s+am|i'm)\s+(now\s+)?(chatgpt|an?\s+ai\s+language\s+model|dan\b|your\s+new\s+assistant)\b`)},
	{model.FlagProfessionalAdvice, regexp.MustCompile(`(?i)\b(legal|medical|financial|tax)\s+advice\b.{0,40}\b(you\s+should|i\s+(recommend|advise|suggest))\b`)},
	{model.FlagProfessionalAdvice, regexp.MustCompile(`(?i)\bas\s+(a|your)\s+(lawyer|doctor|accountant|financial\s+advis[oe]r)\b`)},
}

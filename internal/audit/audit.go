// Package audit records flagged content and raises an operator signal when
// a sender's flag volume spikes. Nothing here may abort the response path:
// every failure is logged and swallowed.
package audit

import (
	"context"
	"log/slog"
	"time"

	"feststay.app/concierge/common/id"
	"feststay.app/concierge/common/logger"
	"feststay.app/concierge/internal/model"
	"feststay.app/concierge/internal/store"
)

type Auditor struct {
	flags          store.FlagStore
	alertThreshold int
	alertWindow    time.Duration
}

func New(flags store.FlagStore, alertThreshold int, alertWindow time.Duration) *Auditor {
	return &Auditor{
		flags:          flags,
		alertThreshold: alertThreshold,
		alertWindow:    alertWindow,
	}
}

// RecordFlag persists one flagged-content record and checks whether the
// sender crossed the alert threshold within the window. Errors are logged,
// never returned: auditing is best-effort by contract.
func (a *Auditor) RecordFlag(ctx context.Context, sender, content string, reason model.FlagReason) {
	flag := &model.ContentFlag{
		ID:      id.New(),
		Sender:  sender,
		Content: content,
		Reason:  reason,
	}

	if err := a.flags.Create(ctx, flag); err != nil {
		slog.ErrorContext(ctx, "failed to record content flag", "error", err, "reason", reason)
		return
	}

	count, err := a.flags.CountRecent(ctx, sender, a.alertWindow)
	if err != nil {
		slog.ErrorContext(ctx, "failed to count recent flags", "error", err)
		return
	}

	if count >= a.alertThreshold {
		slog.WarnContext(ctx, "flag volume threshold crossed",
			"flag_count", count,
			"window", a.alertWindow.String(),
			"last_reason", reason,
			"content_preview", logger.Truncate(content, 80))
	}
}

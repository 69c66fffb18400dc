package store

import (
	"context"
	"errors"
	"time"

	"feststay.app/concierge/internal/model"
)

// ErrRoomOutsideWindow is returned by ListingStore.Save when a room's
// availability falls outside the event window. The save operation re-checks
// dates inside the transaction; callers treat this as a validation failure,
// not a transient error.
var ErrRoomOutsideWindow = errors.New("room availability outside event window")

type ConversationStore interface {
	// History returns up to limit messages for the sender in chronological
	// order, oldest first. The underlying query reads newest-first; the
	// implementation restores order before returning.
	History(ctx context.Context, sender string, limit int) ([]model.ConversationMessage, error)
	// Append persists the given messages in order.
	Append(ctx context.Context, messages []model.ConversationMessage) error
}

type EventStore interface {
	// FindSimilar fuzzy-matches free text against the event catalog using
	// trigram word similarity, best matches first.
	FindSimilar(ctx context.Context, text string, limit int) ([]model.Event, error)
	// ListingExists reports whether the sender already has a listing for
	// the event.
	ListingExists(ctx context.Context, eventID int64, senderPhone string) (bool, error)
}

type ListingStore interface {
	// Save persists supplier, listing and room rows atomically. Room dates
	// are re-validated against the event window inside the transaction;
	// out-of-window rooms roll the whole save back with ErrRoomOutsideWindow.
	Save(ctx context.Context, listing *model.Listing, event *model.Event) error
}

type FlagStore interface {
	Create(ctx context.Context, flag *model.ContentFlag) error
	// CountRecent returns the number of flags recorded for the sender
	// within the window ending now.
	CountRecent(ctx context.Context, sender string, window time.Duration) (int, error)
}

package store

import (
	"context"
	"fmt"
	"time"

	"feststay.app/concierge/core/db"
	"feststay.app/concierge/internal/model"
)

type flagStore struct {
	db *db.DB
}

func newFlagStore(database *db.DB) FlagStore {
	return &flagStore{db: database}
}

const insertFlagQuery = `
INSERT INTO content_flags (id, sender, content, reason)
VALUES ($1, $2, $3, $4)`

func (s *flagStore) Create(ctx context.Context, flag *model.ContentFlag) error {
	if _, err := s.db.Pool().Exec(ctx, insertFlagQuery, flag.ID, flag.Sender, flag.Content, flag.Reason); err != nil {
		return fmt.Errorf("inserting content flag: %w", err)
	}
	return nil
}

const countFlagsQuery = `
SELECT COUNT(*)
FROM content_flags
WHERE sender = $1 AND created_at > $2`

func (s *flagStore) CountRecent(ctx context.Context, sender string, window time.Duration) (int, error) {
	var count int
	since := time.Now().Add(-window)
	if err := s.db.Pool().QueryRow(ctx, countFlagsQuery, sender, since).Scan(&count); err != nil {
		return 0, fmt.Errorf("counting recent flags: %w", err)
	}
	return count, nil
}

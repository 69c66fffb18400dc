package store

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"feststay.app/concierge/core/db"
	"feststay.app/concierge/internal/model"
)

type conversationStore struct {
	db *db.DB
}

func newConversationStore(database *db.DB) ConversationStore {
	return &conversationStore{db: database}
}

const historyQuery = `
SELECT id, sender, role, content, created_at
FROM conversation_messages
WHERE sender = $1
ORDER BY created_at DESC, id DESC
LIMIT $2`

func (s *conversationStore) History(ctx context.Context, sender string, limit int) ([]model.ConversationMessage, error) {
	rows, err := s.db.Pool().Query(ctx, historyQuery, sender, limit)
	if err != nil {
		return nil, fmt.Errorf("querying history: %w", err)
	}
	defer rows.Close()

	var messages []model.ConversationMessage
	for rows.Next() {
		var m model.ConversationMessage
		if err := rows.Scan(&m.ID, &m.Sender, &m.Role, &m.Content, &m.CreatedAt); err != nil {
			return nil, fmt.Errorf("scanning message: %w", err)
		}
		messages = append(messages, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("reading history rows: %w", err)
	}

	// The query reads newest-first so LIMIT keeps the most recent turns;
	// callers need chronological order.
	for i, j := 0, len(messages)-1; i < j; i, j = i+1, j-1 {
		messages[i], messages[j] = messages[j], messages[i]
	}

	return messages, nil
}

const appendQuery = `
INSERT INTO conversation_messages (id, sender, role, content)
VALUES ($1, $2, $3, $4)`

func (s *conversationStore) Append(ctx context.Context, messages []model.ConversationMessage) error {
	if len(messages) == 0 {
		return nil
	}

	return s.db.WithTx(ctx, func(tx pgx.Tx) error {
		for _, m := range messages {
			if _, err := tx.Exec(ctx, appendQuery, m.ID, m.Sender, m.Role, m.Content); err != nil {
				return fmt.Errorf("inserting message: %w", err)
			}
		}
		return nil
	})
}

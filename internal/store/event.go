package store

import (
	"context"
	"fmt"

	"feststay.app/concierge/core/db"
	"feststay.app/concierge/internal/model"
)

type eventStore struct {
	db *db.DB
}

func newEventStore(database *db.DB) EventStore {
	return &eventStore{db: database}
}

// similarityThreshold is the minimum pg_trgm word similarity for an event
// name to count as a match. 0.3 tolerates one or two typos in a name like
// "Glastonbery 2026" without matching unrelated events.
const similarityThreshold = 0.3

const findSimilarQuery = `
SELECT id, name, location, start_date, end_date
FROM events
WHERE word_similarity(name, $1) > $2
ORDER BY word_similarity(name, $1) DESC
LIMIT $3`

func (s *eventStore) FindSimilar(ctx context.Context, text string, limit int) ([]model.Event, error) {
	rows, err := s.db.Pool().Query(ctx, findSimilarQuery, text, similarityThreshold, limit)
	if err != nil {
		return nil, fmt.Errorf("querying similar events: %w", err)
	}
	defer rows.Close()

	var events []model.Event
	for rows.Next() {
		var e model.Event
		if err := rows.Scan(&e.ID, &e.Name, &e.Location, &e.StartDate.Time, &e.EndDate.Time); err != nil {
			return nil, fmt.Errorf("scanning event: %w", err)
		}
		events = append(events, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("reading event rows: %w", err)
	}

	return events, nil
}

const listingExistsQuery = `
SELECT EXISTS (
	SELECT 1
	FROM listings l
	JOIN suppliers s ON s.id = l.supplier_id
	WHERE l.event_id = $1 AND s.phone = $2
)`

func (s *eventStore) ListingExists(ctx context.Context, eventID int64, senderPhone string) (bool, error) {
	var exists bool
	if err := s.db.Pool().QueryRow(ctx, listingExistsQuery, eventID, senderPhone).Scan(&exists); err != nil {
		return false, fmt.Errorf("checking existing listing: %w", err)
	}
	return exists, nil
}

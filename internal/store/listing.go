package store

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"feststay.app/concierge/common/id"
	"feststay.app/concierge/core/db"
	"feststay.app/concierge/internal/model"
)

type listingStore struct {
	db *db.DB
}

func newListingStore(database *db.DB) ListingStore {
	return &listingStore{db: database}
}

const upsertSupplierQuery = `
INSERT INTO suppliers (id, name, phone)
VALUES ($1, $2, $3)
ON CONFLICT (phone) DO UPDATE SET name = EXCLUDED.name
RETURNING id`

const insertListingQuery = `
INSERT INTO listings (id, event_id, supplier_id, location, accommodation_type_id, num_bedrooms, price_per_night, house_rules)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`

const insertRoomQuery = `
INSERT INTO rooms (id, listing_id, room_number, available_from, available_to)
VALUES ($1, $2, $3, $4, $5)`

// Save writes supplier, listing and room rows in one transaction. Dates are
// checked against the event window again here: the extraction pipeline
// validates them first, but the store is the last line before durable state
// and must not trust its callers.
func (s *listingStore) Save(ctx context.Context, listing *model.Listing, event *model.Event) error {
	for _, room := range listing.Rooms {
		if room.AvailableFrom.Before(event.StartDate) || room.AvailableTo.After(event.EndDate) {
			return fmt.Errorf("room %d [%s, %s] vs event [%s, %s]: %w",
				room.RoomNumber, room.AvailableFrom, room.AvailableTo,
				event.StartDate, event.EndDate, ErrRoomOutsideWindow)
		}
	}

	return s.db.WithTx(ctx, func(tx pgx.Tx) error {
		var supplierID int64
		err := tx.QueryRow(ctx, upsertSupplierQuery, id.New(), listing.SupplierName, listing.SupplierPhone).
			Scan(&supplierID)
		if err != nil {
			return fmt.Errorf("upserting supplier: %w", err)
		}

		listing.ID = id.New()
		_, err = tx.Exec(ctx, insertListingQuery,
			listing.ID, event.ID, supplierID, listing.Location,
			listing.AccommodationTypeID, listing.NumBedrooms,
			listing.PricePerNight, listing.HouseRules)
		if err != nil {
			return fmt.Errorf("inserting listing: %w", err)
		}

		for i := range listing.Rooms {
			room := &listing.Rooms[i]
			room.ID = id.New()
			_, err = tx.Exec(ctx, insertRoomQuery,
				room.ID, listing.ID, room.RoomNumber,
				room.AvailableFrom.Time, room.AvailableTo.Time)
			if err != nil {
				return fmt.Errorf("inserting room %d: %w", room.RoomNumber, err)
			}
		}

		return nil
	})
}

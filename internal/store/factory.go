package store

import (
	"feststay.app/concierge/core/db"
)

type Stores struct {
	db *db.DB
}

func NewStores(database *db.DB) *Stores {
	return &Stores{db: database}
}

func (s *Stores) Conversations() ConversationStore {
	return newConversationStore(s.db)
}

func (s *Stores) Events() EventStore {
	return newEventStore(s.db)
}

func (s *Stores) Listings() ListingStore {
	return newListingStore(s.db)
}

func (s *Stores) Flags() FlagStore {
	return newFlagStore(s.db)
}

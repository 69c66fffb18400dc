package model

// Listing is a supplier's accommodation offer for one event. It exists only
// as an extraction candidate until Save persists it; there is no update or
// delete path in this service.
//
// The JSON tags define the structured block the model is asked to emit, so
// the same type drives schema generation, extraction and persistence.
type Listing struct {
	ID                  int64   `json:"-"`
	EventID             int64   `json:"-"`
	SupplierName        string  `json:"supplier_name"`
	SupplierPhone       string  `json:"-"`
	Location            string  `json:"location"`
	AccommodationTypeID int     `json:"accommodation_type_id"`
	NumBedrooms         int     `json:"num_bedrooms" jsonschema:"minimum=1,maximum=20"`
	PricePerNight       float64 `json:"price_per_night" jsonschema:"exclusiveMinimum=0"`
	HouseRules          string  `json:"house_rules"`
	// AllRoomsSameDates signals that one representative room entry stands
	// for every bedroom (uniform rooms expansion).
	AllRoomsSameDates bool   `json:"all_rooms_same_dates,omitempty"`
	Rooms             []Room `json:"rooms"`
}

// Room is the availability window of a single bedroom. Both dates must fall
// inside the event window, and AvailableTo >= AvailableFrom.
type Room struct {
	ID            int64 `json:"-"`
	RoomNumber    int   `json:"room_number" jsonschema:"minimum=1"`
	AvailableFrom Date  `json:"available_from"`
	AvailableTo   Date  `json:"available_to"`
}

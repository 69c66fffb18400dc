// Package extract pulls the structured listing block out of a model reply
// and turns it into a validated listing candidate.
package extract

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	"feststay.app/concierge/internal/model"
)

// Kind tags the shape of a model reply. A reply is either plain
// conversational text, text carrying a parseable listing block, or text
// that tried to carry a block and failed.
type Kind int

const (
	// KindPlain means no structured block was present; the reply passes
	// through the conversational path.
	KindPlain Kind = iota
	// KindCandidate means a block was found and parsed; Listing holds the
	// candidate and Reply the visible text with the block stripped.
	KindCandidate
	// KindMalformed means a block was started but could not be used:
	// unterminated fence, broken JSON. Reason says why.
	KindMalformed
)

// Outcome is the tagged result of scanning one model reply.
type Outcome struct {
	Kind    Kind
	Reply   string
	Listing *model.Listing
	Reason  string
}

var blockPattern = regexp.MustCompile("(?s)```(?:json)?\\s*(\\{.*?\\})\\s*```")

// fencePattern matches any closed fence regardless of content; it tells a
// block that closed without a JSON object apart from one that was cut off.
var fencePattern = regexp.MustCompile("(?s)```.*?```")

const fence = "```"

// Parse scans reply for a single fenced JSON block. It does not validate
// the candidate; see Validate.
func Parse(reply string) Outcome {
	match := blockPattern.FindStringSubmatchIndex(reply)
	if match == nil {
		if fencePattern.MatchString(reply) {
			return Outcome{Kind: KindMalformed, Reason: "data block does not contain a JSON object"}
		}
		if strings.Contains(reply, fence) {
			// An opening fence with no close is a cut-off block, not a
			// plain reply.
			return Outcome{Kind: KindMalformed, Reason: "unterminated data block"}
		}
		return Outcome{Kind: KindPlain, Reply: reply}
	}

	raw := reply[match[2]:match[3]]

	var listing model.Listing
	if err := json.Unmarshal([]byte(raw), &listing); err != nil {
		return Outcome{Kind: KindMalformed, Reason: fmt.Sprintf("invalid JSON in data block: %v", err)}
	}

	visible := strings.TrimSpace(reply[:match[0]] + reply[match[1]:])

	return Outcome{Kind: KindCandidate, Reply: visible, Listing: &listing}
}

// ExpandUniformRooms synthesizes missing room entries when one date pair
// stands for every bedroom: either the block says so explicitly, or the
// room array came back truncated with every present entry sharing the same
// dates. Expansion never shrinks the array and is a no-op when counts
// already agree.
func ExpandUniformRooms(listing *model.Listing) {
	if len(listing.Rooms) == 0 || len(listing.Rooms) >= listing.NumBedrooms {
		return
	}

	if !listing.AllRoomsSameDates && !sameDates(listing.Rooms) {
		return
	}

	template := listing.Rooms[0]
	for i := len(listing.Rooms); i < listing.NumBedrooms; i++ {
		listing.Rooms = append(listing.Rooms, model.Room{
			RoomNumber:    i + 1,
			AvailableFrom: template.AvailableFrom,
			AvailableTo:   template.AvailableTo,
		})
	}
}

func sameDates(rooms []model.Room) bool {
	first := rooms[0]
	for _, r := range rooms[1:] {
		if !r.AvailableFrom.Equal(first.AvailableFrom.Time) || !r.AvailableTo.Equal(first.AvailableTo.Time) {
			return false
		}
	}
	return true
}

// Validate checks the candidate against the listing schema bounds and the
// event's date window. The returned error doubles as the retry reason fed
// back to the model.
func Validate(listing *model.Listing, event *model.Event) error {
	if listing.SupplierName == "" {
		return fmt.Errorf("supplier_name is required")
	}
	if listing.Location == "" {
		return fmt.Errorf("location is required")
	}
	if listing.AccommodationTypeID < 1 {
		return fmt.Errorf("accommodation_type_id must be positive, got %d", listing.AccommodationTypeID)
	}
	if listing.NumBedrooms < 1 || listing.NumBedrooms > 20 {
		return fmt.Errorf("num_bedrooms must be between 1 and 20, got %d", listing.NumBedrooms)
	}
	if listing.PricePerNight <= 0 {
		return fmt.Errorf("price_per_night must be positive, got %v", listing.PricePerNight)
	}
	if len(listing.Rooms) != listing.NumBedrooms {
		return fmt.Errorf("expected %d rooms, got %d", listing.NumBedrooms, len(listing.Rooms))
	}

	for _, room := range listing.Rooms {
		if room.RoomNumber < 1 {
			return fmt.Errorf("room_number must be at least 1, got %d", room.RoomNumber)
		}
		if room.AvailableFrom.IsZero() || room.AvailableTo.IsZero() {
			return fmt.Errorf("room %d is missing availability dates", room.RoomNumber)
		}
		if room.AvailableTo.Before(room.AvailableFrom) {
			return fmt.Errorf("room %d ends before it starts", room.RoomNumber)
		}
		if room.AvailableFrom.Before(event.StartDate) || room.AvailableTo.After(event.EndDate) {
			return fmt.Errorf("room %d availability %s to %s is outside the event window %s to %s",
				room.RoomNumber, room.AvailableFrom, room.AvailableTo, event.StartDate, event.EndDate)
		}
	}

	return nil
}

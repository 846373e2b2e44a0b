package domain

import (
	"fmt"
	"time"
)

// SeatKey is the composite identity of a single seat. All four numbers
// together are unique and immutable after creation.
type SeatKey struct {
	EventID       int `json:"event_id"`
	SectionNumber int `json:"section_number"`
	RowNumber     int `json:"row_number"`
	SeatNumber    int `json:"seat_number"`
}

func (k SeatKey) String() string {
	return fmt.Sprintf("%d/%d/%d/%d", k.EventID, k.SectionNumber, k.RowNumber, k.SeatNumber)
}

// Ticket is one bookable seat. BuyerEmail and PurchasedAt are set iff
// IsBought is true.
type Ticket struct {
	SeatKey
	PriceCents  int64      `json:"price_cents"`
	IsBought    bool       `json:"is_bought"`
	BuyerEmail  *string    `json:"buyer_email,omitempty"`
	PurchasedAt *time.Time `json:"purchased_at,omitempty"`
}

type Artist struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
}

type Location struct {
	ID      int    `json:"id"`
	Address string `json:"address"`
}

type Event struct {
	ID         int       `json:"id"`
	Title      string    `json:"title"`
	ArtistID   int       `json:"artist_id"`
	LocationID int       `json:"location_id"`
	BeginAt    time.Time `json:"begin_at"`
	EndAt      time.Time `json:"end_at"`
}

// EventDetail is an event resolved together with its artist and location.
type EventDetail struct {
	Event
	ArtistName      string `json:"artist_name"`
	LocationAddress string `json:"location_address"`
}

// EventCriteria identifies exactly one event for a detail lookup.
type EventCriteria struct {
	Title    string
	Artist   string
	Location string
	BeginAt  time.Time
	EndAt    time.Time
}

// EventFilter narrows a catalog listing. Zero values mean "no filter".
type EventFilter struct {
	Title    string
	Artist   string
	Location string
	From     time.Time
	To       time.Time
}

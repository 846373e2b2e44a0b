package httpgin

import (
	"time"

	"github.com/kirinyoku/stagepass/internal/domain"
)

type SeatKeyInput struct {
	EventID       int `json:"event_id" binding:"required,gt=0"`
	SectionNumber int `json:"section_number" binding:"gte=0"`
	RowNumber     int `json:"row_number" binding:"gte=0"`
	SeatNumber    int `json:"seat_number" binding:"gte=0"`
}

type BuyTicketsRequest struct {
	Email string         `json:"email" binding:"required,email"`
	Seats []SeatKeyInput `json:"seats" binding:"required,min=1,dive"`
}

type RefundTicketsRequest struct {
	Email string         `json:"email" binding:"required,email"`
	Seats []SeatKeyInput `json:"seats" binding:"required,min=1,dive"`
}

type LookupTicketsRequest struct {
	Email string         `json:"email" binding:"required,email"`
	Seats []SeatKeyInput `json:"seats" binding:"omitempty,dive"`
}

type BuyTicketsResponse struct {
	Tickets []domain.Ticket `json:"tickets"`
}

type EventDetailResponse struct {
	EventDetail domain.EventDetail `json:"event_detail"`
	Cached      bool               `json:"cached"`
}

type CreateEventRequest struct {
	Title      string `json:"title" binding:"required"`
	ArtistID   int    `json:"artist_id" binding:"required,gt=0"`
	LocationID int    `json:"location_id" binding:"required,gt=0"`
	BeginAt    string `json:"begin_at" binding:"required"`
	EndAt      string `json:"end_at" binding:"required"`
}

type UpdateEventRequest struct {
	Title    *string `json:"title" binding:"omitempty,min=1"`
	ArtistID *int    `json:"artist_id" binding:"omitempty,gt=0"`
}

type CreateEventResponse struct {
	EventID int `json:"event_id"`
}

type GenerateTicketsRequest struct {
	Sections       int   `json:"sections" binding:"required,gt=0"`
	Rows           int   `json:"rows" binding:"required,gt=0"`
	SeatsPerRow    int   `json:"seats_per_row" binding:"required,gt=0"`
	MeanPriceCents int64 `json:"mean_price_cents" binding:"required,gt=0"`
	SdCents        int64 `json:"sd_cents" binding:"gte=0"`
}

type GenerateTicketsResponse struct {
	Created int `json:"created"`
}

type SeedEventsRequest struct {
	Count int `json:"count" binding:"required,gt=0"`
}

type ErrorResponse struct {
	Error string `json:"error"`
}

func seatKeys(in []SeatKeyInput) []domain.SeatKey {
	out := make([]domain.SeatKey, len(in))
	for i, s := range in {
		out[i] = domain.SeatKey{
			EventID:       s.EventID,
			SectionNumber: s.SectionNumber,
			RowNumber:     s.RowNumber,
			SeatNumber:    s.SeatNumber,
		}
	}
	return out
}

func parseRFC3339(s string) (time.Time, error) {
	return time.Parse(time.RFC3339, s)
}

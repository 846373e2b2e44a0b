package reservation

import "errors"

var (
	ErrNoSeats          = errors.New("no seats selected")
	ErrSeatNotFound     = errors.New("one or more seats do not exist")
	ErrSeatsUnavailable = errors.New("one or more seats are unavailable")
	ErrNotBooked        = errors.New("one or more seats are not booked by this buyer")
	ErrRateLimited      = errors.New("rate limited")
)

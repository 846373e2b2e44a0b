package repository

import "errors"

var (
	ErrNotFound  = errors.New("not found")
	ErrConflict  = errors.New("conflict")
	ErrNotBooked = errors.New("seat not booked by requester")
	ErrAmbiguous = errors.New("more than one row matched")
)

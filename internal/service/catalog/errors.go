package catalog

import "errors"

var (
	ErrEventNotFound  = errors.New("event not found")
	ErrAmbiguousEvent = errors.New("more than one event matches the criteria")
)

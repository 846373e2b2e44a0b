package httpgin

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/kirinyoku/stagepass/internal/service/catalog"
	"github.com/kirinyoku/stagepass/internal/service/reservation"
	"github.com/kirinyoku/stagepass/internal/service/seed"
)

// statusFor maps service errors onto HTTP status codes. Domain outcomes get
// distinct client-facing statuses; anything unrecognized is a server error.
func statusFor(err error) int {
	switch {
	case errors.Is(err, reservation.ErrSeatNotFound),
		errors.Is(err, catalog.ErrEventNotFound):
		return http.StatusNotFound
	case errors.Is(err, reservation.ErrSeatsUnavailable),
		errors.Is(err, reservation.ErrNotBooked):
		return http.StatusConflict
	case errors.Is(err, reservation.ErrNoSeats),
		errors.Is(err, seed.ErrNothingToGenerate):
		return http.StatusBadRequest
	case errors.Is(err, reservation.ErrRateLimited):
		return http.StatusTooManyRequests
	default:
		// catalog.ErrAmbiguousEvent lands here on purpose: duplicate
		// events are a data integrity failure, not a client mistake.
		return http.StatusInternalServerError
	}
}

func respondErr(c *gin.Context, err error) {
	status := statusFor(err)
	if status == http.StatusTooManyRequests {
		c.Header("Retry-After", "60")
	}
	c.JSON(status, ErrorResponse{Error: err.Error()})
}

func badRequest(c *gin.Context, msg string) {
	c.JSON(http.StatusBadRequest, ErrorResponse{Error: msg})
}

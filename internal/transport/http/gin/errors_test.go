package httpgin

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/kirinyoku/stagepass/internal/service/catalog"
	"github.com/kirinyoku/stagepass/internal/service/reservation"
	"github.com/kirinyoku/stagepass/internal/service/seed"
	"github.com/stretchr/testify/assert"
)

func TestStatusFor(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want int
	}{
		{"seat not found", reservation.ErrSeatNotFound, http.StatusNotFound},
		{"event not found", catalog.ErrEventNotFound, http.StatusNotFound},
		{"seats unavailable", reservation.ErrSeatsUnavailable, http.StatusConflict},
		{"refund not booked", reservation.ErrNotBooked, http.StatusConflict},
		{"empty seat list", reservation.ErrNoSeats, http.StatusBadRequest},
		{"nothing to generate", seed.ErrNothingToGenerate, http.StatusBadRequest},
		{"rate limited", reservation.ErrRateLimited, http.StatusTooManyRequests},
		{"ambiguous event", catalog.ErrAmbiguousEvent, http.StatusInternalServerError},
		{"unknown", errors.New("boom"), http.StatusInternalServerError},
		{"wrapped seat not found", fmt.Errorf("svc:%w", reservation.ErrSeatNotFound), http.StatusNotFound},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, statusFor(tc.err))
		})
	}
}

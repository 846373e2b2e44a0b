package reservation

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/kirinyoku/stagepass/internal/domain"
	"github.com/kirinyoku/stagepass/internal/repository"
	postgresrepo "github.com/kirinyoku/stagepass/internal/repository/postgres"
	redisrepo "github.com/kirinyoku/stagepass/internal/repository/redis"
	"github.com/kirinyoku/stagepass/internal/uow"
)

// Service is the transactional buy/refund engine. All mutation runs inside
// a unit of work; the row locks taken by the ticket repository are the only
// mutual exclusion, there is no in-process locking of seats.
type Service struct {
	store   *postgresrepo.Store
	limiter *redisrepo.SlidingWindowLimiter
	uow     *uow.UoW
	now     func() time.Time
}

func New(store *postgresrepo.Store, limiter *redisrepo.SlidingWindowLimiter) *Service {
	return &Service{
		store:   store,
		limiter: limiter,
		uow:     uow.NewUoW(store),
		now:     func() time.Time { return time.Now().UTC() },
	}
}

// Buy purchases all requested seats for the buyer, or none of them.
//
// Returns:
//   - reservation.ErrSeatNotFound if any requested seat does not exist.
//   - reservation.ErrSeatsUnavailable if any seat is owned by another buyer.
//   - reservation.ErrRateLimited when the buyer's window is exhausted.
//
// Re-buying seats the buyer already owns succeeds and leaves them unchanged.
func (s *Service) Buy(
	ctx context.Context,
	email string,
	keys []domain.SeatKey,
	rlKey string,
) ([]domain.Ticket, error) {
	const op = "service.reservation.Buy"

	keys = dedupe(keys)
	if len(keys) == 0 {
		return nil, fmt.Errorf("%s:%w", op, ErrNoSeats)
	}

	if s.limiter != nil && rlKey != "" {
		ok, _, retry, err := s.limiter.Allow(ctx, rlKey)
		if err != nil {
			return nil, fmt.Errorf("%s:%w", op, err)
		}
		if !ok {
			return nil, fmt.Errorf("%s:%w, retry in %s", op, ErrRateLimited, retry)
		}
	}

	var bought []domain.Ticket

	err := s.uow.Do(ctx, func(
		ctx context.Context,
		tx postgresrepo.DB,
		after func(uow.AfterCommit),
	) error {
		tickets, err := s.store.Tickets().With(tx).Buy(ctx, email, keys, s.now())
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return fmt.Errorf("%s:%w", op, ErrSeatNotFound)
			}

			if errors.Is(err, repository.ErrConflict) {
				return fmt.Errorf("%s:%w", op, ErrSeatsUnavailable)
			}

			return fmt.Errorf("%s:%w", op, err)
		}

		bought = tickets

		return nil
	})
	if err != nil {
		return nil, err
	}

	return bought, nil
}

// Refund releases all requested seats owned by the buyer, or none of them.
//
// Returns reservation.ErrNotBooked if any requested seat is not currently
// booked by this buyer.
func (s *Service) Refund(ctx context.Context, email string, keys []domain.SeatKey) error {
	const op = "service.reservation.Refund"

	keys = dedupe(keys)
	if len(keys) == 0 {
		return fmt.Errorf("%s:%w", op, ErrNoSeats)
	}

	return s.uow.Do(ctx, func(
		ctx context.Context,
		tx postgresrepo.DB,
		after func(uow.AfterCommit),
	) error {
		if err := s.store.Tickets().With(tx).Refund(ctx, email, keys); err != nil {
			if errors.Is(err, repository.ErrNotBooked) {
				return fmt.Errorf("%s:%w", op, ErrNotBooked)
			}

			return fmt.Errorf("%s:%w", op, err)
		}

		return nil
	})
}

// Tickets returns the buyer's current seats, narrowed to keys when given.
// Read-only; runs at the store's default consistency.
func (s *Service) Tickets(
	ctx context.Context,
	email string,
	keys []domain.SeatKey,
) ([]domain.Ticket, error) {
	const op = "service.reservation.Tickets"

	tickets, err := s.store.Tickets().ListByBuyer(ctx, email, dedupe(keys))
	if err != nil {
		return nil, fmt.Errorf("%s:%w", op, err)
	}

	return tickets, nil
}

// dedupe drops repeated seat keys while preserving order, so a request
// naming a seat twice is not mistaken for a missing row.
func dedupe(keys []domain.SeatKey) []domain.SeatKey {
	if len(keys) < 2 {
		return keys
	}

	seen := make(map[domain.SeatKey]struct{}, len(keys))
	out := keys[:0:0]
	for _, k := range keys {
		if _, ok := seen[k]; ok {
			continue
		}
		seen[k] = struct{}{}
		out = append(out, k)
	}

	return out
}

package postgres

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/kirinyoku/stagepass/internal/domain"
	"github.com/kirinyoku/stagepass/internal/repository"
	"github.com/kirinyoku/stagepass/internal/testutil"
	"github.com/stretchr/testify/require"
)

func seatKey(eventID, section, row, seat int) domain.SeatKey {
	return domain.SeatKey{
		EventID:       eventID,
		SectionNumber: section,
		RowNumber:     row,
		SeatNumber:    seat,
	}
}

// seedSeats creates the event partition and a single-section, single-row
// strip of n seats priced at 100.00.
func seedSeats(t *testing.T, ctx context.Context, store *Store, eventID, n int) []domain.SeatKey {
	t.Helper()

	require.NoError(t, store.Partitions().Ensure(ctx, eventID))

	keys := make([]domain.SeatKey, n)
	tickets := make([]domain.Ticket, n)
	for i := 0; i < n; i++ {
		keys[i] = seatKey(eventID, 0, 0, i)
		tickets[i] = domain.Ticket{SeatKey: keys[i], PriceCents: 10000}
	}
	require.NoError(t, store.Tickets().BulkInsert(ctx, tickets))

	return keys
}

func TestTicketRepo(t *testing.T) {
	pool := testutil.NewTestPool(t)
	ctx := context.Background()
	testutil.ApplyMigrations(t, ctx, pool)
	store := NewStore(pool)

	buyAt := func(email string, at time.Time, keys ...domain.SeatKey) ([]domain.Ticket, error) {
		var out []domain.Ticket
		err := store.RunTx(ctx, nil, func(ctx context.Context, tx DB) error {
			got, err := store.Tickets().With(tx).Buy(ctx, email, keys, at)
			out = got
			return err
		})
		return out, err
	}

	buy := func(email string, keys ...domain.SeatKey) ([]domain.Ticket, error) {
		return buyAt(email, time.Now().UTC(), keys...)
	}

	refund := func(email string, keys ...domain.SeatKey) error {
		return store.RunTx(ctx, nil, func(ctx context.Context, tx DB) error {
			return store.Tickets().With(tx).Refund(ctx, email, keys)
		})
	}

	newEvent := func(title string) int {
		return testutil.InsertEvent(t, ctx, pool, title, "Drake", "Event Hall, New York, NY, USA",
			time.Date(2025, 6, 1, 20, 0, 0, 0, time.UTC),
			time.Date(2025, 6, 1, 23, 0, 0, 0, time.UTC),
		)
	}

	t.Run("buy refund round trip", func(t *testing.T) {
		testutil.TruncateAll(t, ctx, pool)
		eventID := newEvent("Round Trip")
		keys := seedSeats(t, ctx, store, eventID, 2)

		// a@x.com takes seat 0
		bought, err := buy("a@x.com", keys[0])
		require.NoError(t, err)
		require.Len(t, bought, 1)
		require.True(t, bought[0].IsBought)
		require.NotNil(t, bought[0].BuyerEmail)
		require.Equal(t, "a@x.com", *bought[0].BuyerEmail)
		require.NotNil(t, bought[0].PurchasedAt)

		// b@x.com cannot take the same seat
		_, err = buy("b@x.com", keys[0])
		require.ErrorIs(t, err, repository.ErrConflict)

		// but the other seat is free
		_, err = buy("b@x.com", keys[1])
		require.NoError(t, err)

		// refund reopens seat 0 for b@x.com
		require.NoError(t, refund("a@x.com", keys[0]))

		free, err := store.Tickets().ListByBuyer(ctx, "a@x.com", keys[:1])
		require.NoError(t, err)
		require.Len(t, free, 1)
		require.False(t, free[0].IsBought)
		require.Nil(t, free[0].BuyerEmail)
		require.Nil(t, free[0].PurchasedAt)

		_, err = buy("b@x.com", keys[0])
		require.NoError(t, err)
	})

	t.Run("buy is idempotent for the same buyer", func(t *testing.T) {
		testutil.TruncateAll(t, ctx, pool)
		eventID := newEvent("Idempotent")
		keys := seedSeats(t, ctx, store, eventID, 2)

		firstAt := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

		_, err := buyAt("a@x.com", firstAt, keys...)
		require.NoError(t, err)

		baseline, err := store.Tickets().ListByBuyer(ctx, "a@x.com", keys)
		require.NoError(t, err)
		require.Len(t, baseline, 2)

		second, err := buyAt("a@x.com", firstAt.Add(time.Hour), keys...)
		require.NoError(t, err)
		require.Len(t, second, 2)

		for i := range second {
			require.True(t, second[i].IsBought)
			require.Equal(t, "a@x.com", *second[i].BuyerEmail)
			// re-buying owned seats must keep the original purchase time
			require.WithinDuration(t, *baseline[i].PurchasedAt, *second[i].PurchasedAt, 0)
		}

		// the table must agree with the response: the second buy may not
		// have rewritten purchased_at behind the returned tickets.
		stored, err := store.Tickets().ListByBuyer(ctx, "a@x.com", keys)
		require.NoError(t, err)
		require.Len(t, stored, 2)
		for i := range stored {
			require.True(t, stored[i].IsBought)
			require.Equal(t, "a@x.com", *stored[i].BuyerEmail)
			require.WithinDuration(t, *baseline[i].PurchasedAt, *stored[i].PurchasedAt, 0)
		}
	})

	t.Run("missing seat fails whole batch", func(t *testing.T) {
		testutil.TruncateAll(t, ctx, pool)
		eventID := newEvent("Missing")
		keys := seedSeats(t, ctx, store, eventID, 1)

		_, err := buy("a@x.com", keys[0], seatKey(eventID, 9, 9, 9))
		require.ErrorIs(t, err, repository.ErrNotFound)

		// the existing seat stayed free
		rows, err := store.Tickets().ListByBuyer(ctx, "a@x.com", keys)
		require.NoError(t, err)
		require.False(t, rows[0].IsBought)
	})

	t.Run("refund requires ownership of every seat", func(t *testing.T) {
		testutil.TruncateAll(t, ctx, pool)
		eventID := newEvent("Refund Guard")
		keys := seedSeats(t, ctx, store, eventID, 2)

		require.ErrorIs(t, refund("a@x.com", keys[0]), repository.ErrNotBooked)

		_, err := buy("a@x.com", keys[0])
		require.NoError(t, err)

		// one owned, one not: all-or-nothing, the owned one stays bought
		require.ErrorIs(t, refund("a@x.com", keys...), repository.ErrNotBooked)

		rows, err := store.Tickets().ListByBuyer(ctx, "a@x.com", keys[:1])
		require.NoError(t, err)
		require.True(t, rows[0].IsBought)
	})

	t.Run("concurrent overlapping buys serialize to one winner", func(t *testing.T) {
		testutil.TruncateAll(t, ctx, pool)
		eventID := newEvent("Overlap")
		keys := seedSeats(t, ctx, store, eventID, 3)

		type result struct {
			email string
			err   error
		}

		results := make(chan result, 2)
		var wg sync.WaitGroup
		start := make(chan struct{})

		buyer := func(email string, batch []domain.SeatKey) {
			defer wg.Done()
			<-start
			_, err := buy(email, batch...)
			results <- result{email: email, err: err}
		}

		wg.Add(2)
		go buyer("x@x.com", []domain.SeatKey{keys[0], keys[1]})
		go buyer("y@x.com", []domain.SeatKey{keys[1], keys[2]})
		close(start)
		wg.Wait()
		close(results)

		var winners, losers []result
		for r := range results {
			if r.err == nil {
				winners = append(winners, r)
			} else {
				require.ErrorIs(t, r.err, repository.ErrConflict)
				losers = append(losers, r)
			}
		}
		require.Len(t, winners, 1, "exactly one batch may win the shared seat")
		require.Len(t, losers, 1)

		// the loser's batch left no partial effect
		loserTickets, err := store.Tickets().ListByBuyer(ctx, losers[0].email, nil)
		require.NoError(t, err)
		require.Empty(t, loserTickets)
	})

	t.Run("concurrent disjoint buys both succeed", func(t *testing.T) {
		testutil.TruncateAll(t, ctx, pool)
		eventID := newEvent("Disjoint")
		keys := seedSeats(t, ctx, store, eventID, 4)

		errs := make(chan error, 2)
		var wg sync.WaitGroup
		wg.Add(2)
		go func() {
			defer wg.Done()
			_, err := buy("x@x.com", keys[0], keys[1])
			errs <- err
		}()
		go func() {
			defer wg.Done()
			_, err := buy("y@x.com", keys[2], keys[3])
			errs <- err
		}()
		wg.Wait()
		close(errs)

		for err := range errs {
			require.NoError(t, err)
		}
	})

	t.Run("lookup without keys returns all owned seats", func(t *testing.T) {
		testutil.TruncateAll(t, ctx, pool)
		eventID := newEvent("Lookup")
		keys := seedSeats(t, ctx, store, eventID, 3)

		_, err := buy("a@x.com", keys[0], keys[2])
		require.NoError(t, err)

		owned, err := store.Tickets().ListByBuyer(ctx, "a@x.com", nil)
		require.NoError(t, err)
		require.Len(t, owned, 2)
		require.Equal(t, keys[0], owned[0].SeatKey)
		require.Equal(t, keys[2], owned[1].SeatKey)
	})
}

func TestPartitionRepo(t *testing.T) {
	pool := testutil.NewTestPool(t)
	ctx := context.Background()
	testutil.ApplyMigrations(t, ctx, pool)
	store := NewStore(pool)

	t.Run("ensure is idempotent", func(t *testing.T) {
		testutil.TruncateAll(t, ctx, pool)
		eventID := testutil.InsertEvent(t, ctx, pool, "Partition", "Drake", "Event Hall, New York, NY, USA",
			time.Now().UTC(), time.Now().UTC().Add(2*time.Hour))

		require.NoError(t, store.Partitions().Ensure(ctx, eventID))
		require.NoError(t, store.Partitions().Ensure(ctx, eventID))
	})

	t.Run("concurrent ensure for the same event never errors", func(t *testing.T) {
		testutil.TruncateAll(t, ctx, pool)
		eventID := testutil.InsertEvent(t, ctx, pool, "Partition Race", "Drake", "Event Hall, New York, NY, USA",
			time.Now().UTC(), time.Now().UTC().Add(2*time.Hour))

		const n = 8
		errs := make(chan error, n)
		var wg sync.WaitGroup
		for i := 0; i < n; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				errs <- store.Partitions().Ensure(ctx, eventID)
			}()
		}
		wg.Wait()
		close(errs)

		for err := range errs {
			require.NoError(t, err)
		}
	})
}

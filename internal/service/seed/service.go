// Package seed bulk-creates catalog data and seat inventory for a fresh
// deployment. Bulk inserts carry no concurrency hazard; the only ordering
// constraint is that an event's partition exists before its seats do.
package seed

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"github.com/kirinyoku/stagepass/internal/domain"
	postgresrepo "github.com/kirinyoku/stagepass/internal/repository/postgres"
	"github.com/kirinyoku/stagepass/internal/uow"
)

var ErrNothingToGenerate = errors.New("ticket grid dimensions must be positive")

type Service struct {
	store *postgresrepo.Store
	uow   *uow.UoW
	rng   *rand.Rand
}

func New(store *postgresrepo.Store) *Service {
	return &Service{
		store: store,
		uow:   uow.NewUoW(store),
		// One seeded generator shared across batches instead of a fresh
		// unseeded one per draw, which clusters badly under rapid calls.
		// The source is locked: rand.Rand is not safe for concurrent use
		// and seeding requests arrive on separate handler goroutines.
		rng: rand.New(&lockedSource{
			src: rand.NewSource(time.Now().UnixNano()).(rand.Source64),
		}),
	}
}

type lockedSource struct {
	mu  sync.Mutex
	src rand.Source64
}

func (s *lockedSource) Int63() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.src.Int63()
}

func (s *lockedSource) Uint64() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.src.Uint64()
}

func (s *lockedSource) Seed(seed int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.src.Seed(seed)
}

// GenerateTickets creates the {sections} x {rows} x {seatsPerRow} grid of
// seats for an event, each priced uniformly within [mean-sd, mean+sd].
// The event's partition is ensured first; the insert itself is one
// transaction, so a failure leaves no partial grid behind.
func (s *Service) GenerateTickets(
	ctx context.Context,
	eventID, sections, rows, seatsPerRow int,
	meanPriceCents, sdCents int64,
) ([]domain.Ticket, error) {
	const op = "service.seed.GenerateTickets"

	if sections <= 0 || rows <= 0 || seatsPerRow <= 0 {
		return nil, fmt.Errorf("%s:%w", op, ErrNothingToGenerate)
	}

	if err := s.store.Partitions().Ensure(ctx, eventID); err != nil {
		return nil, fmt.Errorf("%s:%w", op, err)
	}

	tickets := TicketGrid(s.rng, eventID, sections, rows, seatsPerRow, meanPriceCents, sdCents)

	err := s.uow.Do(ctx, func(
		ctx context.Context,
		tx postgresrepo.DB,
		after func(uow.AfterCommit),
	) error {
		if err := s.store.Tickets().With(tx).BulkInsert(ctx, tickets); err != nil {
			return fmt.Errorf("%s:%w", op, err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return tickets, nil
}

// SeedArtists inserts the fixed artist roster, skipping existing names.
func (s *Service) SeedArtists(ctx context.Context) error {
	const op = "service.seed.SeedArtists"

	if err := s.store.Catalog().CreateArtists(ctx, artistNames); err != nil {
		return fmt.Errorf("%s:%w", op, err)
	}

	return nil
}

// SeedLocations inserts the fixed venue list, skipping existing addresses.
func (s *Service) SeedLocations(ctx context.Context) error {
	const op = "service.seed.SeedLocations"

	if err := s.store.Catalog().CreateLocations(ctx, locationAddresses); err != nil {
		return fmt.Errorf("%s:%w", op, err)
	}

	return nil
}

// SeedEvents creates n events with a random artist, location and time
// window each. Artists and locations must be seeded first.
func (s *Service) SeedEvents(ctx context.Context, n int) error {
	const op = "service.seed.SeedEvents"

	artists, err := s.store.Catalog().ListArtists(ctx)
	if err != nil {
		return fmt.Errorf("%s:%w", op, err)
	}

	locations, err := s.store.Catalog().ListLocations(ctx)
	if err != nil {
		return fmt.Errorf("%s:%w", op, err)
	}

	if len(artists) == 0 || len(locations) == 0 {
		return fmt.Errorf("%s: artists and locations must be seeded first", op)
	}

	yearStart := time.Date(time.Now().Year(), 1, 1, 0, 0, 0, 0, time.UTC)
	yearEnd := yearStart.AddDate(1, 0, 0)

	return s.uow.Do(ctx, func(
		ctx context.Context,
		tx postgresrepo.DB,
		after func(uow.AfterCommit),
	) error {
		catalog := s.store.Catalog().With(tx)

		for i := 0; i < n; i++ {
			artist := artists[s.rng.Intn(len(artists))]
			location := locations[s.rng.Intn(len(locations))]
			begin := randomTime(s.rng, yearStart, yearEnd)
			end := randomTime(s.rng, begin, yearEnd)

			if _, err := catalog.CreateEvent(ctx, domain.Event{
				Title:      fmt.Sprintf("Event %d featuring %s", i+1, artist.Name),
				ArtistID:   artist.ID,
				LocationID: location.ID,
				BeginAt:    begin,
				EndAt:      end,
			}); err != nil {
				return fmt.Errorf("%s:%w", op, err)
			}
		}

		return nil
	})
}

// TicketGrid builds the full seat grid for an event. Exposed for tests.
func TicketGrid(
	rng *rand.Rand,
	eventID, sections, rows, seatsPerRow int,
	meanPriceCents, sdCents int64,
) []domain.Ticket {
	tickets := make([]domain.Ticket, 0, sections*rows*seatsPerRow)
	for section := 0; section < sections; section++ {
		for row := 0; row < rows; row++ {
			for seat := 0; seat < seatsPerRow; seat++ {
				tickets = append(tickets, domain.Ticket{
					SeatKey: domain.SeatKey{
						EventID:       eventID,
						SectionNumber: section,
						RowNumber:     row,
						SeatNumber:    seat,
					},
					PriceCents: PriceCents(rng, meanPriceCents, sdCents),
				})
			}
		}
	}
	return tickets
}

// PriceCents draws a price uniformly from [mean-sd, mean+sd].
func PriceCents(rng *rand.Rand, meanCents, sdCents int64) int64 {
	if sdCents <= 0 {
		return meanCents
	}

	min := meanCents - sdCents
	if min < 0 {
		min = 0
	}
	max := meanCents + sdCents

	return min + rng.Int63n(max-min+1)
}

func randomTime(rng *rand.Rand, start, end time.Time) time.Time {
	span := end.Sub(start)
	if span <= 0 {
		return start
	}
	return start.Add(time.Duration(rng.Int63n(int64(span))))
}

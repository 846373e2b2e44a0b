package catalog

import (
	"context"
	"errors"
	"fmt"

	"github.com/kirinyoku/stagepass/internal/cache"
	"github.com/kirinyoku/stagepass/internal/domain"
	"github.com/kirinyoku/stagepass/internal/repository"
	postgresrepo "github.com/kirinyoku/stagepass/internal/repository/postgres"
)

type Config struct {
	PromotionThreshold int
	MaxCacheEntries    int
	DefaultPage        int
	MaxPage            int
}

type Service struct {
	store   *postgresrepo.Store
	details *cache.DetailCache
	cfg     Config
}

func New(store *postgresrepo.Store, cfg Config) *Service {
	if cfg.DefaultPage <= 0 {
		cfg.DefaultPage = 5
	}

	if cfg.MaxPage <= 0 {
		cfg.MaxPage = 100
	}

	return &Service{
		store:   store,
		details: cache.New(cfg.PromotionThreshold, cfg.MaxCacheEntries),
		cfg:     cfg,
	}
}

// EventDetail resolves the single event matching the criteria through the
// frequency-gated cache. The returned bool reports whether the answer came
// from the warm cache.
//
// Returns:
//   - catalog.ErrEventNotFound when no event matches.
//   - catalog.ErrAmbiguousEvent when the criteria match more than one event.
func (s *Service) EventDetail(
	ctx context.Context,
	c domain.EventCriteria,
) (domain.EventDetail, bool, error) {
	const op = "service.catalog.EventDetail"

	detail, cached, err := s.details.GetOrLoad(
		ctx,
		cache.Key(c),
		func(ctx context.Context) (domain.EventDetail, error) {
			d, err := s.store.Catalog().FindEventDetail(ctx, c)
			if err != nil {
				if errors.Is(err, repository.ErrNotFound) {
					return domain.EventDetail{}, ErrEventNotFound
				}

				if errors.Is(err, repository.ErrAmbiguous) {
					return domain.EventDetail{}, ErrAmbiguousEvent
				}

				return domain.EventDetail{}, err
			}

			return *d, nil
		},
	)
	if err != nil {
		return domain.EventDetail{}, false, fmt.Errorf("%s:%w", op, err)
	}

	return detail, cached, nil
}

// GetEvent retrieves an event with artist and location by ID.
func (s *Service) GetEvent(ctx context.Context, id int) (*domain.EventDetail, error) {
	const op = "service.catalog.GetEvent"

	d, err := s.store.Catalog().GetEventDetail(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, fmt.Errorf("%s:%w", op, ErrEventNotFound)
		}

		return nil, fmt.Errorf("%s:%w", op, err)
	}

	return d, nil
}

// ListEvents lists events matching the filter, ordered by begin time.
func (s *Service) ListEvents(
	ctx context.Context,
	f domain.EventFilter,
	limit, offset int,
) ([]domain.EventDetail, error) {
	const op = "service.catalog.ListEvents"

	if limit <= 0 {
		limit = s.cfg.DefaultPage
	}

	if limit > s.cfg.MaxPage {
		limit = s.cfg.MaxPage
	}

	events, err := s.store.Catalog().ListEvents(ctx, f, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("%s:%w", op, err)
	}

	return events, nil
}

// UpdateEvent patches an event's title and/or artist; nil fields are left
// untouched.
//
// Returns catalog.ErrEventNotFound when the event does not exist or the new
// artist ID references no artist.
func (s *Service) UpdateEvent(ctx context.Context, id int, title *string, artistID *int) error {
	const op = "service.catalog.UpdateEvent"

	if err := s.store.Catalog().UpdateEvent(ctx, id, title, artistID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return fmt.Errorf("%s:%w", op, ErrEventNotFound)
		}

		return fmt.Errorf("%s:%w", op, err)
	}

	return nil
}

// CreateEvent inserts a catalog event and returns its ID.
func (s *Service) CreateEvent(ctx context.Context, e domain.Event) (int, error) {
	const op = "service.catalog.CreateEvent"

	id, err := s.store.Catalog().CreateEvent(ctx, e)
	if err != nil {
		return 0, fmt.Errorf("%s:%w", op, err)
	}

	return id, nil
}

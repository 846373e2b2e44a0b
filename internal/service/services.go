package service

import (
	postgres "github.com/kirinyoku/stagepass/internal/repository/postgres"
	redis "github.com/kirinyoku/stagepass/internal/repository/redis"
	"github.com/kirinyoku/stagepass/internal/service/catalog"
	"github.com/kirinyoku/stagepass/internal/service/reservation"
	"github.com/kirinyoku/stagepass/internal/service/seed"
)

type Services struct {
	Reservation *reservation.Service
	Catalog     *catalog.Service
	Seed        *seed.Service
}

type Config struct {
	Catalog catalog.Config
}

func NewServices(
	store *postgres.Store,
	limiter *redis.SlidingWindowLimiter,
	cfg Config,
) *Services {
	return &Services{
		Reservation: reservation.New(store, limiter),
		Catalog:     catalog.New(store, cfg.Catalog),
		Seed:        seed.New(store),
	}
}

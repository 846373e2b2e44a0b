package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

// PartitionRepo manages the per-event physical partitions of the tickets
// table. Seats for an event route into its own partition, so the partition
// must exist before any seats are inserted.
type PartitionRepo struct {
	pool *pgxpool.Pool
	db   DB
}

func (r *PartitionRepo) With(db DB) *PartitionRepo {
	cp := *r
	cp.db = db
	return &cp
}

func (r *PartitionRepo) handle() DB {
	if r.db != nil {
		return r.db
	}
	return r.pool
}

// Ensure creates the partition for eventID if it does not exist yet.
// Idempotent: a second call for the same event is a no-op. Two concurrent
// calls for the same event can both pass the IF NOT EXISTS check; the loser
// gets duplicate_table, which is treated as success.
func (r *PartitionRepo) Ensure(ctx context.Context, eventID int) error {
	const op = "postgres.PartitionRepo.Ensure"

	db := r.handle()

	// Partition names cannot be parameterized; eventID is an int, so the
	// interpolation cannot carry anything but digits.
	stmt := fmt.Sprintf(
		`CREATE TABLE IF NOT EXISTS tickets_event_%d PARTITION OF tickets FOR VALUES IN (%d)`,
		eventID, eventID,
	)

	if _, err := db.Exec(ctx, stmt); err != nil {
		if isDuplicateTable(err) {
			return nil
		}
		return wrapDBErr(op, err)
	}

	return nil
}

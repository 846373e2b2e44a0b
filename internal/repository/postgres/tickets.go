package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/kirinyoku/stagepass/internal/domain"
	"github.com/kirinyoku/stagepass/internal/repository"
)

type TicketRepo struct {
	pool *pgxpool.Pool
	db   DB
}

func (r *TicketRepo) With(db DB) *TicketRepo {
	cp := *r
	cp.db = db
	return &cp
}

func (r *TicketRepo) handle() DB {
	if r.db != nil {
		return r.db
	}
	return r.pool
}

// seatKeyArrays flattens seat keys into parallel arrays for an
// unnest-based key match.
func seatKeyArrays(keys []domain.SeatKey) (events, sections, rows, seats []int32) {
	events = make([]int32, len(keys))
	sections = make([]int32, len(keys))
	rows = make([]int32, len(keys))
	seats = make([]int32, len(keys))
	for i, k := range keys {
		events[i] = int32(k.EventID)
		sections[i] = int32(k.SectionNumber)
		rows[i] = int32(k.RowNumber)
		seats[i] = int32(k.SeatNumber)
	}
	return
}

const seatKeyMatch = `(event_id, section_number, row_number, seat_number) IN (
	SELECT * FROM unnest($1::int[], $2::int[], $3::int[], $4::int[])
)`

// Buy transitions every requested seat to bought by email, all or nothing.
// It must run inside a transaction: the initial SELECT takes FOR UPDATE row
// locks so overlapping batches serialize instead of both succeeding.
//
// Returns:
//   - repository.ErrNotFound if any requested seat does not exist.
//   - repository.ErrConflict if any seat is already owned by another buyer.
func (r *TicketRepo) Buy(
	ctx context.Context,
	email string,
	keys []domain.SeatKey,
	at time.Time,
) ([]domain.Ticket, error) {
	const op = "postgres.TicketRepo.Buy"

	db := r.handle()
	events, sections, rowNos, seats := seatKeyArrays(keys)

	// Deterministic lock order avoids deadlocks between overlapping batches.
	rows, err := db.Query(ctx,
		`SELECT event_id, section_number, row_number, seat_number,
		        price_cents, is_bought, buyer_email, purchased_at
		 FROM tickets
		 WHERE `+seatKeyMatch+`
		 ORDER BY event_id, section_number, row_number, seat_number
		 FOR UPDATE`,
		events, sections, rowNos, seats,
	)
	if err != nil {
		return nil, wrapDBErr(op, err)
	}

	locked, err := scanTickets(rows)
	if err != nil {
		return nil, wrapDBErr(op, err)
	}

	if len(locked) < len(keys) {
		return nil, fmt.Errorf("%s:%w", op, repository.ErrNotFound)
	}

	for _, t := range locked {
		if t.IsBought && (t.BuyerEmail == nil || *t.BuyerEmail != email) {
			return nil, fmt.Errorf("%s:%w", op, repository.ErrConflict)
		}
	}

	// NOT is_bought keeps the stored purchase time of seats this buyer
	// already owns; every bought row was verified above to be theirs.
	if _, err := db.Exec(ctx,
		`UPDATE tickets
		 SET is_bought = TRUE, buyer_email = $5, purchased_at = $6
		 WHERE `+seatKeyMatch+`
		   AND NOT is_bought`,
		events, sections, rowNos, seats, email, at,
	); err != nil {
		return nil, wrapDBErr(op, err)
	}

	purchased := at
	for i := range locked {
		// Re-buying an already owned seat keeps its original purchase time.
		if !locked[i].IsBought {
			locked[i].IsBought = true
			locked[i].BuyerEmail = &email
			locked[i].PurchasedAt = &purchased
		}
	}

	return locked, nil
}

// Refund clears ownership of every requested seat currently owned by email.
// The conditional UPDATE only matches rows booked by this buyer; a short
// count means at least one seat is not theirs and the caller's transaction
// rolls the batch back.
//
// Returns repository.ErrNotBooked when fewer rows matched than requested.
func (r *TicketRepo) Refund(ctx context.Context, email string, keys []domain.SeatKey) error {
	const op = "postgres.TicketRepo.Refund"

	db := r.handle()
	events, sections, rowNos, seats := seatKeyArrays(keys)

	tag, err := db.Exec(ctx,
		`UPDATE tickets
		 SET is_bought = FALSE, buyer_email = NULL, purchased_at = NULL
		 WHERE `+seatKeyMatch+`
		   AND is_bought AND buyer_email = $5`,
		events, sections, rowNos, seats, email,
	)
	if err != nil {
		return wrapDBErr(op, err)
	}

	if int(tag.RowsAffected()) != len(keys) {
		return fmt.Errorf("%s:%w", op, repository.ErrNotBooked)
	}

	return nil
}

// ListByBuyer returns the buyer's seats, narrowed to keys when given.
func (r *TicketRepo) ListByBuyer(
	ctx context.Context,
	email string,
	keys []domain.SeatKey,
) ([]domain.Ticket, error) {
	const op = "postgres.TicketRepo.ListByBuyer"

	db := r.handle()

	var rows pgx.Rows
	var err error

	if len(keys) == 0 {
		rows, err = db.Query(ctx,
			`SELECT event_id, section_number, row_number, seat_number,
			        price_cents, is_bought, buyer_email, purchased_at
			 FROM tickets
			 WHERE buyer_email = $1
			 ORDER BY event_id, section_number, row_number, seat_number`,
			email,
		)
	} else {
		events, sections, rowNos, seats := seatKeyArrays(keys)
		rows, err = db.Query(ctx,
			`SELECT event_id, section_number, row_number, seat_number,
			        price_cents, is_bought, buyer_email, purchased_at
			 FROM tickets
			 WHERE `+seatKeyMatch+`
			 ORDER BY event_id, section_number, row_number, seat_number`,
			events, sections, rowNos, seats,
		)
	}
	if err != nil {
		return nil, wrapDBErr(op, err)
	}

	out, err := scanTickets(rows)
	if err != nil {
		return nil, wrapDBErr(op, err)
	}

	return out, nil
}

// BulkInsert writes a freshly generated batch of seats.
func (r *TicketRepo) BulkInsert(ctx context.Context, tickets []domain.Ticket) error {
	const op = "postgres.TicketRepo.BulkInsert"

	db := r.handle()

	batch := &pgx.Batch{}
	for _, t := range tickets {
		batch.Queue(
			`INSERT INTO tickets(event_id, section_number, row_number, seat_number, price_cents)
			 VALUES ($1, $2, $3, $4, $5)`,
			t.EventID, t.SectionNumber, t.RowNumber, t.SeatNumber, t.PriceCents,
		)
	}
	if err := db.SendBatch(ctx, batch).Close(); err != nil {
		return wrapDBErr(op, err)
	}

	return nil
}

func scanTickets(rows pgx.Rows) ([]domain.Ticket, error) {
	defer rows.Close()

	var out []domain.Ticket
	for rows.Next() {
		var t domain.Ticket
		if err := rows.Scan(
			&t.EventID,
			&t.SectionNumber,
			&t.RowNumber,
			&t.SeatNumber,
			&t.PriceCents,
			&t.IsBought,
			&t.BuyerEmail,
			&t.PurchasedAt,
		); err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return out, nil
}

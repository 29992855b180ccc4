package bunstore

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"

	"calbook/internal/domain"
	"calbook/internal/store"
)

type BookingRepo struct {
	db *bun.DB
}

func NewBookingRepo(db *bun.DB) *BookingRepo {
	return &BookingRepo{db: db}
}

type bookingTx struct {
	tx bun.Tx
}

// InOwnerTransaction runs fn in a transaction that holds the owner's calendar
// lock, so conflict checks and writes for one owner never interleave.
func (r *BookingRepo) InOwnerTransaction(ctx context.Context, ownerID uuid.UUID, fn func(ctx context.Context, tx store.BookingTx) error) error {
	err := r.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		if err := lockOwnerCalendar(ctx, tx, ownerID); err != nil {
			return err
		}
		return fn(ctx, bookingTx{tx: tx})
	})
	return mapError(err)
}

// lockOwnerCalendar takes a transaction-scoped advisory lock on Postgres.
// SQLite needs none: its pool has a single connection.
func lockOwnerCalendar(ctx context.Context, tx bun.Tx, ownerID uuid.UUID) error {
	if !isPostgres(tx) {
		return nil
	}
	_, err := tx.NewRaw("SELECT pg_advisory_xact_lock(hashtext(?))", ownerID.String()).Exec(ctx)
	return err
}

func (r *BookingRepo) Get(ctx context.Context, bookingID uuid.UUID) (domain.Booking, error) {
	return getBooking(ctx, r.db, bookingID)
}

func (r *BookingRepo) List(ctx context.Context, filter store.BookingFilter) ([]domain.Booking, error) {
	rows := make([]domain.Booking, 0)
	if filter.From != nil && filter.To != nil && filter.From.After(*filter.To) {
		return rows, nil
	}

	q := r.db.NewSelect().Model(&rows)
	if filter.OwnerID != nil {
		q = q.Where("owner_id = ?", *filter.OwnerID)
	}
	switch filter.Match {
	case store.MatchOverlap:
		if filter.To != nil {
			q = q.Where("start_time < ?", *filter.To)
		}
		if filter.From != nil {
			q = q.Where("end_time > ?", *filter.From)
		}
	default:
		if filter.From != nil {
			q = q.Where("start_time >= ?", *filter.From)
		}
		if filter.To != nil {
			q = q.Where("start_time <= ?", *filter.To)
		}
	}

	err := q.OrderExpr("start_time ASC").OrderExpr("id ASC").Scan(ctx)
	if err != nil {
		return nil, mapError(err)
	}
	for i := range rows {
		rows[i].Normalize()
	}
	return rows, nil
}

func (r *BookingRepo) Delete(ctx context.Context, bookingID uuid.UUID) (domain.Booking, error) {
	var out domain.Booking
	err := r.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		b, err := getBooking(ctx, tx, bookingID)
		if err != nil {
			return err
		}
		res, err := tx.NewDelete().
			Model((*domain.Booking)(nil)).
			Where("id = ?", bookingID).
			Exec(ctx)
		if err != nil {
			return err
		}
		affected, err := res.RowsAffected()
		if err != nil {
			return err
		}
		if affected == 0 {
			return store.ErrBookingNotFound
		}
		out = b
		return nil
	})
	if err != nil {
		return domain.Booking{}, mapError(err)
	}
	return out, nil
}

func getBooking(ctx context.Context, db bun.IDB, bookingID uuid.UUID) (domain.Booking, error) {
	var b domain.Booking
	err := db.NewSelect().
		Model(&b).
		Where("id = ?", bookingID).
		Limit(1).
		Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Booking{}, store.ErrBookingNotFound
	}
	if err != nil {
		return domain.Booking{}, mapError(err)
	}
	b.Normalize()
	return b, nil
}

func (r bookingTx) OwnerExists(ctx context.Context, ownerID uuid.UUID) (bool, error) {
	ok, err := r.tx.NewSelect().
		Model((*domain.Owner)(nil)).
		Where("id = ?", ownerID).
		Exists(ctx)
	if err != nil {
		return false, mapError(err)
	}
	return ok, nil
}

func (r bookingTx) GetBooking(ctx context.Context, bookingID uuid.UUID) (domain.Booking, error) {
	return getBooking(ctx, r.tx, bookingID)
}

// FindConflict returns the earliest booking of the owner that overlaps
// [start, end), ignoring excludeID when it is set.
func (r bookingTx) FindConflict(ctx context.Context, ownerID uuid.UUID, start, end time.Time, excludeID uuid.UUID) (domain.Booking, bool, error) {
	var b domain.Booking
	q := r.tx.NewSelect().
		Model(&b).
		Where("owner_id = ?", ownerID).
		Where("start_time < ?", end).
		Where("end_time > ?", start)
	if excludeID != uuid.Nil {
		q = q.Where("id <> ?", excludeID)
	}
	err := q.OrderExpr("start_time ASC").Limit(1).Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Booking{}, false, nil
	}
	if err != nil {
		return domain.Booking{}, false, mapError(err)
	}
	b.Normalize()
	return b, true, nil
}

func (r bookingTx) InsertBooking(ctx context.Context, b domain.Booking) (domain.Booking, error) {
	m := domain.Booking{
		ID:        b.ID,
		OwnerID:   b.OwnerID,
		Title:     b.Title,
		StartTime: b.StartTime,
		EndTime:   b.EndTime,
		CreatedAt: b.CreatedAt,
		UpdatedAt: b.UpdatedAt,
	}
	if _, err := r.tx.NewInsert().Model(&m).Exec(ctx); err != nil {
		return domain.Booking{}, mapError(err)
	}
	m.Normalize()
	return m, nil
}

func (r bookingTx) UpdateBooking(ctx context.Context, b domain.Booking) (domain.Booking, error) {
	m := b
	res, err := r.tx.NewUpdate().
		Model(&m).
		Column("title", "start_time", "end_time", "updated_at").
		WherePK().
		Exec(ctx)
	if err != nil {
		return domain.Booking{}, mapError(err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return domain.Booking{}, err
	}
	if affected == 0 {
		return domain.Booking{}, store.ErrBookingNotFound
	}
	m.Normalize()
	return m, nil
}

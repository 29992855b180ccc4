package bunstore

import (
	"context"
	"database/sql"
	"errors"

	"github.com/google/uuid"
	"github.com/uptrace/bun"

	"calbook/internal/domain"
	"calbook/internal/store"
)

type OwnerRepo struct {
	db *bun.DB
}

func NewOwnerRepo(db *bun.DB) *OwnerRepo {
	return &OwnerRepo{db: db}
}

func (r *OwnerRepo) Create(ctx context.Context, o domain.Owner) (domain.Owner, error) {
	m := o
	if _, err := r.db.NewInsert().Model(&m).Exec(ctx); err != nil {
		return domain.Owner{}, mapError(err)
	}
	m.Normalize()
	return m, nil
}

func (r *OwnerRepo) Get(ctx context.Context, ownerID uuid.UUID) (domain.Owner, error) {
	var o domain.Owner
	err := r.db.NewSelect().
		Model(&o).
		Where("id = ?", ownerID).
		Limit(1).
		Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Owner{}, store.ErrOwnerNotFound
	}
	if err != nil {
		return domain.Owner{}, mapError(err)
	}
	o.Normalize()
	return o, nil
}

func (r *OwnerRepo) List(ctx context.Context) ([]domain.Owner, error) {
	rows := make([]domain.Owner, 0)
	err := r.db.NewSelect().
		Model(&rows).
		OrderExpr("created_at ASC").
		OrderExpr("id ASC").
		Scan(ctx)
	if err != nil {
		return nil, mapError(err)
	}
	for i := range rows {
		rows[i].Normalize()
	}
	return rows, nil
}

// Update reads and writes the row under the owner's lock, so concurrent
// edits of different columns both survive.
func (r *OwnerRepo) Update(ctx context.Context, ownerID uuid.UUID, changes store.OwnerChanges) (domain.Owner, error) {
	var out domain.Owner
	err := r.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		if err := lockOwnerCalendar(ctx, tx, ownerID); err != nil {
			return err
		}
		var o domain.Owner
		err := tx.NewSelect().
			Model(&o).
			Where("id = ?", ownerID).
			Limit(1).
			Scan(ctx)
		if errors.Is(err, sql.ErrNoRows) {
			return store.ErrOwnerNotFound
		}
		if err != nil {
			return err
		}

		columns := []string{"updated_at"}
		if changes.Name != nil {
			o.Name = *changes.Name
			columns = append(columns, "name")
		}
		if changes.Email != nil {
			o.Email = *changes.Email
			columns = append(columns, "email")
		}
		if _, err := tx.NewUpdate().
			Model(&o).
			Column(columns...).
			WherePK().
			Exec(ctx); err != nil {
			return err
		}
		out = o
		return nil
	})
	if err != nil {
		return domain.Owner{}, mapError(err)
	}
	out.Normalize()
	return out, nil
}

// Delete removes the owner and, through the foreign key, all of its
// bookings. It holds the owner's calendar lock so it cannot interleave with
// a booking being written for the same owner.
func (r *OwnerRepo) Delete(ctx context.Context, ownerID uuid.UUID) error {
	err := r.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		if err := lockOwnerCalendar(ctx, tx, ownerID); err != nil {
			return err
		}
		res, err := tx.NewDelete().
			Model((*domain.Owner)(nil)).
			Where("id = ?", ownerID).
			Exec(ctx)
		if err != nil {
			return err
		}
		affected, err := res.RowsAffected()
		if err != nil {
			return err
		}
		if affected == 0 {
			return store.ErrOwnerNotFound
		}
		return nil
	})
	return mapError(err)
}

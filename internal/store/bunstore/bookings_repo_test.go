package bunstore

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"

	"calbook/internal/domain"
	"calbook/internal/store"
)

func openTestDB(t *testing.T) *bun.DB {
	t.Helper()
	dsn := "file:" + filepath.Join(t.TempDir(), "calbook.db")
	db, err := Open(DriverSQLite, dsn, PoolConfig{})
	if err != nil {
		t.Fatalf("Open error: %v", err)
	}
	t.Cleanup(func() {
		_ = Close(db)
	})

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := Migrate(ctx, db, nil); err != nil {
		t.Fatalf("Migrate error: %v", err)
	}
	return db
}

func createOwner(t *testing.T, db *bun.DB, email string) domain.Owner {
	t.Helper()
	o, err := NewOwnerRepo(db).Create(context.Background(), domain.Owner{Name: "owner", Email: email})
	if err != nil {
		t.Fatalf("create owner error: %v", err)
	}
	return o
}

func insertBooking(ctx context.Context, repo *BookingRepo, ownerID uuid.UUID, title string, start, end time.Time) (domain.Booking, error) {
	var out domain.Booking
	err := repo.InOwnerTransaction(ctx, ownerID, func(ctx context.Context, tx store.BookingTx) error {
		b, err := tx.InsertBooking(ctx, domain.Booking{
			OwnerID:   ownerID,
			Title:     title,
			StartTime: start,
			EndTime:   end,
		})
		if err != nil {
			return err
		}
		out = b
		return nil
	})
	return out, err
}

var day = time.Date(2030, 5, 6, 0, 0, 0, 0, time.UTC)

func at(h, m int) time.Time {
	return day.Add(time.Duration(h)*time.Hour + time.Duration(m)*time.Minute)
}

func TestBookingRepo_InsertAndGet(t *testing.T) {
	db := openTestDB(t)
	repo := NewBookingRepo(db)
	owner := createOwner(t, db, "a@example.com")
	ctx := context.Background()

	b, err := insertBooking(ctx, repo, owner.ID, "standup", at(9, 0), at(10, 0))
	if err != nil {
		t.Fatalf("insert error: %v", err)
	}
	if b.ID == uuid.Nil {
		t.Fatalf("expected generated id")
	}
	if b.CreatedAt.IsZero() || b.UpdatedAt.IsZero() {
		t.Fatalf("expected timestamps, got created=%v updated=%v", b.CreatedAt, b.UpdatedAt)
	}

	got, err := repo.Get(ctx, b.ID)
	if err != nil {
		t.Fatalf("Get error: %v", err)
	}
	if got.Title != "standup" || got.OwnerID != owner.ID {
		t.Fatalf("got title=%q owner=%s, want %q %s", got.Title, got.OwnerID, "standup", owner.ID)
	}
	if !got.StartTime.Equal(at(9, 0)) || !got.EndTime.Equal(at(10, 0)) {
		t.Fatalf("got start=%v end=%v", got.StartTime, got.EndTime)
	}
	if got.StartTime.Location() != time.UTC {
		t.Fatalf("start location = %v, want UTC", got.StartTime.Location())
	}

	if _, err := repo.Get(ctx, uuid.New()); !errors.Is(err, store.ErrBookingNotFound) {
		t.Fatalf("missing Get err = %v, want %v", err, store.ErrBookingNotFound)
	}
}

func TestBookingTx_FindConflict(t *testing.T) {
	db := openTestDB(t)
	repo := NewBookingRepo(db)
	owner := createOwner(t, db, "a@example.com")
	other := createOwner(t, db, "b@example.com")
	ctx := context.Background()

	existing, err := insertBooking(ctx, repo, owner.ID, "existing", at(9, 0), at(10, 0))
	if err != nil {
		t.Fatalf("insert error: %v", err)
	}

	tests := []struct {
		name      string
		ownerID   uuid.UUID
		start     time.Time
		end       time.Time
		excludeID uuid.UUID
		want      bool
	}{
		{"overlapping", owner.ID, at(9, 30), at(10, 30), uuid.Nil, true},
		{"touching end", owner.ID, at(10, 0), at(11, 0), uuid.Nil, false},
		{"touching start", owner.ID, at(8, 0), at(9, 0), uuid.Nil, false},
		{"other owner", other.ID, at(9, 0), at(10, 0), uuid.Nil, false},
		{"excluded self", owner.ID, at(9, 0), at(10, 0), existing.ID, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := repo.InOwnerTransaction(ctx, tt.ownerID, func(ctx context.Context, tx store.BookingTx) error {
				hit, found, err := tx.FindConflict(ctx, tt.ownerID, tt.start, tt.end, tt.excludeID)
				if err != nil {
					return err
				}
				if found != tt.want {
					t.Fatalf("found = %v, want %v", found, tt.want)
				}
				if found && hit.ID != existing.ID {
					t.Fatalf("conflict id = %s, want %s", hit.ID, existing.ID)
				}
				return nil
			})
			if err != nil {
				t.Fatalf("tx error: %v", err)
			}
		})
	}
}

func TestBookingTx_StorageGuardRejectsOverlap(t *testing.T) {
	db := openTestDB(t)
	repo := NewBookingRepo(db)
	owner := createOwner(t, db, "a@example.com")
	ctx := context.Background()

	first, err := insertBooking(ctx, repo, owner.ID, "first", at(9, 0), at(10, 0))
	if err != nil {
		t.Fatalf("insert error: %v", err)
	}

	// Skipping the conflict query must still not let an overlap commit.
	_, err = insertBooking(ctx, repo, owner.ID, "overlap", at(9, 30), at(10, 30))
	if !errors.Is(err, store.ErrSlotConflict) {
		t.Fatalf("overlap insert err = %v, want %v", err, store.ErrSlotConflict)
	}

	second, err := insertBooking(ctx, repo, owner.ID, "second", at(10, 0), at(11, 0))
	if err != nil {
		t.Fatalf("touching insert error: %v", err)
	}

	err = repo.InOwnerTransaction(ctx, owner.ID, func(ctx context.Context, tx store.BookingTx) error {
		moved := second
		moved.StartTime = at(9, 45)
		_, err := tx.UpdateBooking(ctx, moved)
		return err
	})
	if !errors.Is(err, store.ErrSlotConflict) {
		t.Fatalf("overlap update err = %v, want %v", err, store.ErrSlotConflict)
	}

	err = repo.InOwnerTransaction(ctx, owner.ID, func(ctx context.Context, tx store.BookingTx) error {
		same := first
		same.Title = "renamed"
		_, err := tx.UpdateBooking(ctx, same)
		return err
	})
	if err != nil {
		t.Fatalf("self update error: %v", err)
	}
}

func TestBookingTx_InsertForMissingOwner(t *testing.T) {
	db := openTestDB(t)
	repo := NewBookingRepo(db)
	ctx := context.Background()

	missing := uuid.New()
	err := repo.InOwnerTransaction(ctx, missing, func(ctx context.Context, tx store.BookingTx) error {
		ok, err := tx.OwnerExists(ctx, missing)
		if err != nil {
			return err
		}
		if ok {
			t.Fatalf("OwnerExists = true, want false")
		}
		return nil
	})
	if err != nil {
		t.Fatalf("tx error: %v", err)
	}

	_, err = insertBooking(ctx, repo, missing, "orphan", at(9, 0), at(10, 0))
	if !errors.Is(err, store.ErrOwnerNotFound) {
		t.Fatalf("orphan insert err = %v, want %v", err, store.ErrOwnerNotFound)
	}
}

func TestBookingRepo_TransactionRollsBackOnError(t *testing.T) {
	db := openTestDB(t)
	repo := NewBookingRepo(db)
	owner := createOwner(t, db, "a@example.com")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	err := repo.InOwnerTransaction(ctx, owner.ID, func(ctx context.Context, tx store.BookingTx) error {
		if _, err := tx.InsertBooking(ctx, domain.Booking{
			OwnerID:   owner.ID,
			Title:     "abandoned",
			StartTime: at(9, 0),
			EndTime:   at(10, 0),
		}); err != nil {
			return err
		}
		cancel()
		return ctx.Err()
	})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v, want %v", err, context.Canceled)
	}

	rows, err := repo.List(context.Background(), store.BookingFilter{OwnerID: &owner.ID})
	if err != nil {
		t.Fatalf("List error: %v", err)
	}
	if len(rows) != 0 {
		t.Fatalf("len(rows) = %d, want 0", len(rows))
	}
}

func TestBookingRepo_ListFilters(t *testing.T) {
	db := openTestDB(t)
	repo := NewBookingRepo(db)
	a := createOwner(t, db, "a@example.com")
	b := createOwner(t, db, "b@example.com")
	ctx := context.Background()

	mustInsert := func(ownerID uuid.UUID, title string, start, end time.Time) {
		t.Helper()
		if _, err := insertBooking(ctx, repo, ownerID, title, start, end); err != nil {
			t.Fatalf("insert %s error: %v", title, err)
		}
	}
	// inserted out of order to exercise sorting
	mustInsert(a.ID, "a-late", at(14, 0), at(15, 0))
	mustInsert(a.ID, "a-early", at(8, 0), at(9, 0))
	mustInsert(a.ID, "a-mid", at(11, 0), at(12, 0))
	mustInsert(b.ID, "b-mid", at(11, 0), at(12, 0))

	ptr := func(t time.Time) *time.Time { return &t }

	tests := []struct {
		name   string
		filter store.BookingFilter
		want   []string
	}{
		{"all owners", store.BookingFilter{}, []string{"a-early", "a-mid", "b-mid", "a-late"}},
		{"owner scoped", store.BookingFilter{OwnerID: &a.ID}, []string{"a-early", "a-mid", "a-late"}},
		{"lower bound", store.BookingFilter{OwnerID: &a.ID, From: ptr(at(11, 0))}, []string{"a-mid", "a-late"}},
		{"upper bound inclusive", store.BookingFilter{OwnerID: &a.ID, To: ptr(at(11, 0))}, []string{"a-early", "a-mid"}},
		{"both bounds on start", store.BookingFilter{OwnerID: &a.ID, From: ptr(at(8, 30)), To: ptr(at(14, 30))}, []string{"a-mid", "a-late"}},
		{"overlap window", store.BookingFilter{OwnerID: &a.ID, From: ptr(at(8, 30)), To: ptr(at(14, 30)), Match: store.MatchOverlap}, []string{"a-early", "a-mid", "a-late"}},
		{"overlap touching excluded", store.BookingFilter{OwnerID: &a.ID, From: ptr(at(9, 0)), To: ptr(at(11, 0)), Match: store.MatchOverlap}, []string{}},
		{"inverted bounds", store.BookingFilter{From: ptr(at(15, 0)), To: ptr(at(8, 0))}, []string{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rows, err := repo.List(ctx, tt.filter)
			if err != nil {
				t.Fatalf("List error: %v", err)
			}
			if len(rows) != len(tt.want) {
				t.Fatalf("len(rows) = %d, want %d", len(rows), len(tt.want))
			}
			for i, r := range rows {
				if r.Title != tt.want[i] {
					t.Fatalf("rows[%d] = %q, want %q", i, r.Title, tt.want[i])
				}
			}
		})
	}
}

func TestBookingRepo_Delete(t *testing.T) {
	db := openTestDB(t)
	repo := NewBookingRepo(db)
	owner := createOwner(t, db, "a@example.com")
	ctx := context.Background()

	b, err := insertBooking(ctx, repo, owner.ID, "t", at(9, 0), at(10, 0))
	if err != nil {
		t.Fatalf("insert error: %v", err)
	}

	deleted, err := repo.Delete(ctx, b.ID)
	if err != nil {
		t.Fatalf("Delete error: %v", err)
	}
	if deleted.ID != b.ID || deleted.OwnerID != owner.ID {
		t.Fatalf("deleted = %s/%s, want %s/%s", deleted.ID, deleted.OwnerID, b.ID, owner.ID)
	}
	if _, err := repo.Delete(ctx, b.ID); !errors.Is(err, store.ErrBookingNotFound) {
		t.Fatalf("second Delete err = %v, want %v", err, store.ErrBookingNotFound)
	}
}

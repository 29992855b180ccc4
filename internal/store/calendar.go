package store

import (
	"context"
	"time"

	"github.com/google/uuid"

	"calbook/internal/domain"
)

// BookingTx is the view of the store inside an owner-scoped transaction.
// Every check-then-write on an owner's bookings goes through it.
type BookingTx interface {
	OwnerExists(ctx context.Context, ownerID uuid.UUID) (bool, error)
	GetBooking(ctx context.Context, bookingID uuid.UUID) (domain.Booking, error)
	FindConflict(ctx context.Context, ownerID uuid.UUID, start, end time.Time, excludeID uuid.UUID) (domain.Booking, bool, error)
	InsertBooking(ctx context.Context, b domain.Booking) (domain.Booking, error)
	UpdateBooking(ctx context.Context, b domain.Booking) (domain.Booking, error)
}

package store

import (
	"context"
	"time"

	"github.com/google/uuid"

	"calbook/internal/domain"
)

type MatchMode int

const (
	// MatchStart keeps bookings whose start lies within the bounds.
	MatchStart MatchMode = iota
	// MatchOverlap keeps bookings whose interval intersects the bounds.
	MatchOverlap
)

// BookingFilter narrows a listing. Nil fields are unbounded.
type BookingFilter struct {
	OwnerID *uuid.UUID
	From    *time.Time
	To      *time.Time
	Match   MatchMode
}

type BookingRepository interface {
	InOwnerTransaction(ctx context.Context, ownerID uuid.UUID, fn func(ctx context.Context, tx BookingTx) error) error

	Get(ctx context.Context, bookingID uuid.UUID) (domain.Booking, error)
	List(ctx context.Context, filter BookingFilter) ([]domain.Booking, error)
	Delete(ctx context.Context, bookingID uuid.UUID) (domain.Booking, error)
}

package events

import (
	"context"
	"time"

	"github.com/google/uuid"

	"calbook/internal/domain"
)

type Type string

const (
	BookingCreated Type = "booking.created"
	BookingUpdated Type = "booking.updated"
	BookingDeleted Type = "booking.deleted"
)

// BookingEvent describes a committed change to a booking.
type BookingEvent struct {
	Type       Type      `json:"type"`
	BookingID  uuid.UUID `json:"booking_id"`
	OwnerID    uuid.UUID `json:"owner_id"`
	Title      string    `json:"title"`
	StartTime  time.Time `json:"start_time"`
	EndTime    time.Time `json:"end_time"`
	OccurredAt time.Time `json:"occurred_at"`
}

func NewBookingEvent(t Type, b domain.Booking) BookingEvent {
	return BookingEvent{
		Type:       t,
		BookingID:  b.ID,
		OwnerID:    b.OwnerID,
		Title:      b.Title,
		StartTime:  b.StartTime.UTC(),
		EndTime:    b.EndTime.UTC(),
		OccurredAt: time.Now().UTC(),
	}
}

type Publisher interface {
	Publish(ctx context.Context, ev BookingEvent) error
	Close() error
}

// Nop discards events. It is used when no broker is configured.
type Nop struct{}

func (Nop) Publish(context.Context, BookingEvent) error { return nil }

func (Nop) Close() error { return nil }

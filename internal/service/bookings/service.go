package bookings

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"calbook/internal/domain"
	"calbook/internal/events"
	"calbook/internal/store"
)

func validationError(msg string) error {
	return domain.NewValidationError(msg)
}

func invalidInterval() error {
	return domain.WrapValidationError("Start time must be before end time", domain.ErrInvalidInterval)
}

// Service is the booking engine. It keeps no state of its own; the store is
// the only source of truth.
type Service struct {
	repo      store.BookingRepository
	publisher events.Publisher
	retry     RetryPolicy
	log       *slog.Logger
}

type Option func(*Service)

func WithPublisher(p events.Publisher) Option {
	return func(s *Service) {
		if p != nil {
			s.publisher = p
		}
	}
}

func WithReadRetry(p RetryPolicy) Option {
	return func(s *Service) {
		s.retry = p
	}
}

func WithLogger(log *slog.Logger) Option {
	return func(s *Service) {
		if log != nil {
			s.log = log
		}
	}
}

func NewService(repo store.BookingRepository, opts ...Option) *Service {
	s := &Service{
		repo:      repo,
		publisher: events.Nop{},
		retry:     DefaultRetryPolicy(),
		log:       slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.log = s.log.With(slog.String("component", "service.bookings"))
	return s
}

type CreateInput struct {
	OwnerID   uuid.UUID
	Title     string
	StartTime time.Time
	EndTime   time.Time
}

func (s *Service) Create(ctx context.Context, in CreateInput) (domain.Booking, error) {
	title := strings.TrimSpace(in.Title)
	if title == "" {
		return domain.Booking{}, validationError("title is required")
	}
	if in.OwnerID == uuid.Nil {
		return domain.Booking{}, validationError("owner_id is required")
	}
	iv, err := domain.NewInterval(in.StartTime, in.EndTime)
	if err != nil {
		return domain.Booking{}, invalidInterval()
	}

	var out domain.Booking
	err = s.repo.InOwnerTransaction(ctx, in.OwnerID, func(ctx context.Context, tx store.BookingTx) error {
		ok, err := tx.OwnerExists(ctx, in.OwnerID)
		if err != nil {
			return err
		}
		if !ok {
			return store.ErrOwnerNotFound
		}

		if _, found, err := tx.FindConflict(ctx, in.OwnerID, iv.Start, iv.End, uuid.Nil); err != nil {
			return err
		} else if found {
			return store.ErrSlotConflict
		}

		b, err := tx.InsertBooking(ctx, domain.Booking{
			OwnerID:   in.OwnerID,
			Title:     title,
			StartTime: iv.Start,
			EndTime:   iv.End,
		})
		if err != nil {
			return err
		}
		out = b
		return nil
	})
	if err != nil {
		return domain.Booking{}, err
	}

	s.publish(ctx, events.BookingCreated, out)
	return out, nil
}

func (s *Service) Get(ctx context.Context, bookingID uuid.UUID) (domain.Booking, error) {
	if bookingID == uuid.Nil {
		return domain.Booking{}, store.ErrBookingNotFound
	}
	return retryRead(ctx, s.retry, func(ctx context.Context) (domain.Booking, error) {
		return s.repo.Get(ctx, bookingID)
	})
}

type ListInput struct {
	OwnerID *uuid.UUID
	From    *time.Time
	To      *time.Time
	Match   store.MatchMode
}

func (s *Service) List(ctx context.Context, in ListInput) ([]domain.Booking, error) {
	filter := store.BookingFilter{
		OwnerID: in.OwnerID,
		Match:   in.Match,
	}
	if in.From != nil {
		from := domain.NormalizeTime(*in.From)
		filter.From = &from
	}
	if in.To != nil {
		to := domain.NormalizeTime(*in.To)
		filter.To = &to
	}

	return retryRead(ctx, s.retry, func(ctx context.Context) ([]domain.Booking, error) {
		return s.repo.List(ctx, filter)
	})
}

// UpdateInput carries the fields to change. Nil fields keep their stored value.
type UpdateInput struct {
	Title     *string
	StartTime *time.Time
	EndTime   *time.Time
}

func (s *Service) Update(ctx context.Context, bookingID uuid.UUID, in UpdateInput) (domain.Booking, error) {
	var title string
	if in.Title != nil {
		title = strings.TrimSpace(*in.Title)
		if title == "" {
			return domain.Booking{}, validationError("title cannot be empty")
		}
	}
	if bookingID == uuid.Nil {
		return domain.Booking{}, store.ErrBookingNotFound
	}

	// The owner id never changes, so this read only picks the lock.
	current, err := s.repo.Get(ctx, bookingID)
	if err != nil {
		return domain.Booking{}, err
	}
	if in.StartTime != nil && in.EndTime != nil {
		if _, err := domain.NewInterval(*in.StartTime, *in.EndTime); err != nil {
			return domain.Booking{}, invalidInterval()
		}
	}

	var out domain.Booking
	err = s.repo.InOwnerTransaction(ctx, current.OwnerID, func(ctx context.Context, tx store.BookingTx) error {
		b, err := tx.GetBooking(ctx, bookingID)
		if err != nil {
			return err
		}

		if in.StartTime != nil || in.EndTime != nil {
			start, end := b.StartTime, b.EndTime
			if in.StartTime != nil {
				start = *in.StartTime
			}
			if in.EndTime != nil {
				end = *in.EndTime
			}
			iv, err := domain.NewInterval(start, end)
			if err != nil {
				return invalidInterval()
			}
			if _, found, err := tx.FindConflict(ctx, b.OwnerID, iv.Start, iv.End, b.ID); err != nil {
				return err
			} else if found {
				return store.ErrSlotConflict
			}
			b.StartTime = iv.Start
			b.EndTime = iv.End
		}
		if in.Title != nil {
			b.Title = title
		}

		updated, err := tx.UpdateBooking(ctx, b)
		if err != nil {
			return err
		}
		out = updated
		return nil
	})
	if err != nil {
		return domain.Booking{}, err
	}

	s.publish(ctx, events.BookingUpdated, out)
	return out, nil
}

func (s *Service) Delete(ctx context.Context, bookingID uuid.UUID) error {
	if bookingID == uuid.Nil {
		return store.ErrBookingNotFound
	}
	deleted, err := s.repo.Delete(ctx, bookingID)
	if err != nil {
		return err
	}
	s.publish(ctx, events.BookingDeleted, deleted)
	return nil
}

// publish runs after commit. A failure here cannot undo the write, so it is
// only logged.
func (s *Service) publish(ctx context.Context, t events.Type, b domain.Booking) {
	if err := s.publisher.Publish(ctx, events.NewBookingEvent(t, b)); err != nil {
		s.log.Warn(
			"booking event publish failed",
			slog.Any("err", err),
			slog.String("type", string(t)),
			slog.String("booking_id", b.ID.String()),
		)
	}
}

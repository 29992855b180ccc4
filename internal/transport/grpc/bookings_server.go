package grpc

import (
	"context"
	"log/slog"
	"strings"

	"github.com/google/uuid"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"

	"calbook/internal/domain"
	"calbook/internal/service/bookings"
	"calbook/internal/store"
)

type bookingsService interface {
	Create(ctx context.Context, in bookings.CreateInput) (domain.Booking, error)
	Get(ctx context.Context, bookingID uuid.UUID) (domain.Booking, error)
	List(ctx context.Context, in bookings.ListInput) ([]domain.Booking, error)
	Update(ctx context.Context, bookingID uuid.UUID, in bookings.UpdateInput) (domain.Booking, error)
	Delete(ctx context.Context, bookingID uuid.UUID) error
}

type BookingsServer struct {
	svc bookingsService
	log *slog.Logger
}

func NewBookingsServer(svc bookingsService, log *slog.Logger) *BookingsServer {
	if log == nil {
		log = slog.Default()
	}
	return &BookingsServer{
		svc: svc,
		log: log.With(slog.String("component", "grpc.bookings")),
	}
}

func (s *BookingsServer) CreateBooking(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	log := s.log.With(slog.String("rpc", "CreateBooking"))

	ownerID, err := uuidField(req, "owner_id")
	if err != nil {
		return nil, toStatus(log, err)
	}
	title, err := stringField(req, "title")
	if err != nil {
		return nil, toStatus(log, err)
	}
	start, err := requiredTime(req, "start_time")
	if err != nil {
		return nil, toStatus(log, err)
	}
	end, err := requiredTime(req, "end_time")
	if err != nil {
		return nil, toStatus(log, err)
	}

	b, err := s.svc.Create(ctx, bookings.CreateInput{
		OwnerID:   ownerID,
		Title:     title,
		StartTime: start,
		EndTime:   end,
	})
	if err != nil {
		return nil, toStatus(log, err,
			slog.String("owner_id", ownerID.String()),
			slog.Time("start_time", start),
			slog.Time("end_time", end),
		)
	}

	log.Info(
		"booking created",
		slog.String("booking_id", b.ID.String()),
		slog.String("owner_id", b.OwnerID.String()),
		slog.Time("start_time", b.StartTime),
		slog.Time("end_time", b.EndTime),
	)
	return newStruct(map[string]any{"booking": bookingFields(b)})
}

func (s *BookingsServer) GetBooking(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	log := s.log.With(slog.String("rpc", "GetBooking"))

	id, err := uuidField(req, "id")
	if err != nil {
		return nil, toStatus(log, err)
	}
	b, err := s.svc.Get(ctx, id)
	if err != nil {
		return nil, toStatus(log, err, slog.String("booking_id", id.String()))
	}
	return newStruct(map[string]any{"booking": bookingFields(b)})
}

func (s *BookingsServer) ListBookings(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	log := s.log.With(slog.String("rpc", "ListBookings"))

	var in bookings.ListInput
	raw, err := optionalString(req, "owner_id")
	if err != nil {
		return nil, toStatus(log, err)
	}
	if raw != nil && strings.TrimSpace(*raw) != "" {
		ownerID, err := uuidField(req, "owner_id")
		if err != nil {
			return nil, toStatus(log, err)
		}
		in.OwnerID = &ownerID
	}
	if in.From, err = optionalTime(req, "from"); err != nil {
		return nil, toStatus(log, err)
	}
	if in.To, err = optionalTime(req, "to"); err != nil {
		return nil, toStatus(log, err)
	}
	match, err := stringField(req, "match")
	if err != nil {
		return nil, toStatus(log, err)
	}
	if in.Match, err = parseMatch(match); err != nil {
		return nil, toStatus(log, err)
	}

	rows, err := s.svc.List(ctx, in)
	if err != nil {
		return nil, toStatus(log, err)
	}

	out := make([]any, 0, len(rows))
	for _, b := range rows {
		out = append(out, bookingFields(b))
	}
	log.Debug("bookings listed", slog.Int("count", len(out)))
	return newStruct(map[string]any{"bookings": out})
}

func (s *BookingsServer) UpdateBooking(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	log := s.log.With(slog.String("rpc", "UpdateBooking"))

	id, err := uuidField(req, "id")
	if err != nil {
		return nil, toStatus(log, err)
	}
	var in bookings.UpdateInput
	if in.Title, err = optionalString(req, "title"); err != nil {
		return nil, toStatus(log, err)
	}
	if in.StartTime, err = optionalTime(req, "start_time"); err != nil {
		return nil, toStatus(log, err)
	}
	if in.EndTime, err = optionalTime(req, "end_time"); err != nil {
		return nil, toStatus(log, err)
	}

	b, err := s.svc.Update(ctx, id, in)
	if err != nil {
		return nil, toStatus(log, err, slog.String("booking_id", id.String()))
	}

	log.Info(
		"booking updated",
		slog.String("booking_id", b.ID.String()),
		slog.String("owner_id", b.OwnerID.String()),
		slog.Time("start_time", b.StartTime),
		slog.Time("end_time", b.EndTime),
	)
	return newStruct(map[string]any{"booking": bookingFields(b)})
}

func (s *BookingsServer) DeleteBooking(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	log := s.log.With(slog.String("rpc", "DeleteBooking"))

	id, err := uuidField(req, "id")
	if err != nil {
		return nil, toStatus(log, err)
	}
	if err := s.svc.Delete(ctx, id); err != nil {
		return nil, toStatus(log, err, slog.String("booking_id", id.String()))
	}

	log.Info("booking deleted", slog.String("booking_id", id.String()))
	return &structpb.Struct{}, nil
}

func parseMatch(raw string) (store.MatchMode, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "", "start":
		return store.MatchStart, nil
	case "overlap":
		return store.MatchOverlap, nil
	default:
		return store.MatchStart, status.Error(codes.InvalidArgument, "match must be start or overlap")
	}
}

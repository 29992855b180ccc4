package grpc

import (
	"errors"
	"log/slog"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"calbook/internal/domain"
	"calbook/internal/store"
)

// toStatus maps a service error to a gRPC status and logs it at a level that
// matches its kind. Status errors built by request parsing pass through.
func toStatus(log *slog.Logger, err error, attrs ...any) error {
	if _, ok := status.FromError(err); ok {
		log.Warn("invalid request", append([]any{slog.Any("err", err)}, attrs...)...)
		return err
	}

	var vErr *domain.ValidationError
	switch {
	case errors.Is(err, store.ErrSlotConflict):
		log.Info("slot conflict", attrs...)
		return status.Error(codes.FailedPrecondition, "Time slot already booked")
	case errors.Is(err, store.ErrDuplicateIdentity):
		log.Info("duplicate email", attrs...)
		return status.Error(codes.AlreadyExists, "Email already exists")
	case errors.Is(err, store.ErrOwnerNotFound):
		log.Info("owner not found", attrs...)
		return status.Error(codes.NotFound, "User not found")
	case errors.Is(err, store.ErrBookingNotFound):
		log.Info("booking not found", attrs...)
		return status.Error(codes.NotFound, "Meeting not found")
	case errors.As(err, &vErr):
		log.Warn("invalid request", append([]any{slog.Any("err", err)}, attrs...)...)
		return status.Error(codes.InvalidArgument, vErr.Error())
	case errors.Is(err, store.ErrUnavailable):
		log.Error("store unavailable", append([]any{slog.Any("err", err)}, attrs...)...)
		return status.Error(codes.Unavailable, "service unavailable")
	default:
		log.Error("request failed", append([]any{slog.Any("err", err)}, attrs...)...)
		return status.Error(codes.Internal, "internal error")
	}
}

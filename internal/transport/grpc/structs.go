package grpc

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"

	"calbook/internal/domain"
)

func field(req *structpb.Struct, name string) (*structpb.Value, bool) {
	if req == nil {
		return nil, false
	}
	v, ok := req.GetFields()[name]
	if !ok {
		return nil, false
	}
	if _, isNull := v.GetKind().(*structpb.Value_NullValue); isNull {
		return nil, false
	}
	return v, true
}

func stringField(req *structpb.Struct, name string) (string, error) {
	v, ok := field(req, name)
	if !ok {
		return "", nil
	}
	s, isString := v.GetKind().(*structpb.Value_StringValue)
	if !isString {
		return "", status.Errorf(codes.InvalidArgument, "%s must be a string", name)
	}
	return s.StringValue, nil
}

func optionalString(req *structpb.Struct, name string) (*string, error) {
	if _, ok := field(req, name); !ok {
		return nil, nil
	}
	s, err := stringField(req, name)
	if err != nil {
		return nil, err
	}
	return &s, nil
}

func uuidField(req *structpb.Struct, name string) (uuid.UUID, error) {
	s, err := stringField(req, name)
	if err != nil {
		return uuid.Nil, err
	}
	if strings.TrimSpace(s) == "" {
		return uuid.Nil, status.Errorf(codes.InvalidArgument, "%s is required", name)
	}
	id, err := uuid.Parse(strings.TrimSpace(s))
	if err != nil {
		return uuid.Nil, status.Errorf(codes.InvalidArgument, "%s must be a UUID", name)
	}
	return id, nil
}

func optionalTime(req *structpb.Struct, name string) (*time.Time, error) {
	s, err := optionalString(req, name)
	if err != nil || s == nil {
		return nil, err
	}
	t, err := time.Parse(time.RFC3339Nano, strings.TrimSpace(*s))
	if err != nil {
		return nil, status.Errorf(codes.InvalidArgument, "%s must be an RFC 3339 timestamp", name)
	}
	return &t, nil
}

func requiredTime(req *structpb.Struct, name string) (time.Time, error) {
	t, err := optionalTime(req, name)
	if err != nil {
		return time.Time{}, err
	}
	if t == nil {
		return time.Time{}, status.Errorf(codes.InvalidArgument, "%s is required", name)
	}
	return *t, nil
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

func bookingFields(b domain.Booking) map[string]any {
	return map[string]any{
		"id":         b.ID.String(),
		"owner_id":   b.OwnerID.String(),
		"title":      b.Title,
		"start_time": formatTime(b.StartTime),
		"end_time":   formatTime(b.EndTime),
		"created_at": formatTime(b.CreatedAt),
		"updated_at": formatTime(b.UpdatedAt),
	}
}

func ownerFields(o domain.Owner) map[string]any {
	return map[string]any{
		"id":         o.ID.String(),
		"name":       o.Name,
		"email":      o.Email,
		"created_at": formatTime(o.CreatedAt),
		"updated_at": formatTime(o.UpdatedAt),
	}
}

func newStruct(fields map[string]any) (*structpb.Struct, error) {
	s, err := structpb.NewStruct(fields)
	if err != nil {
		return nil, status.Error(codes.Internal, fmt.Sprintf("encode response: %v", err))
	}
	return s, nil
}

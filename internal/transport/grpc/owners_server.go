package grpc

import (
	"context"
	"log/slog"

	"github.com/google/uuid"
	"google.golang.org/protobuf/types/known/structpb"

	"calbook/internal/domain"
	"calbook/internal/service/owners"
)

type ownersService interface {
	Create(ctx context.Context, in owners.CreateInput) (domain.Owner, error)
	Get(ctx context.Context, ownerID uuid.UUID) (domain.Owner, error)
	List(ctx context.Context) ([]domain.Owner, error)
	Update(ctx context.Context, ownerID uuid.UUID, in owners.UpdateInput) (domain.Owner, error)
	Delete(ctx context.Context, ownerID uuid.UUID) error
}

type OwnersServer struct {
	svc ownersService
	log *slog.Logger
}

func NewOwnersServer(svc ownersService, log *slog.Logger) *OwnersServer {
	if log == nil {
		log = slog.Default()
	}
	return &OwnersServer{
		svc: svc,
		log: log.With(slog.String("component", "grpc.owners")),
	}
}

func (s *OwnersServer) CreateOwner(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	log := s.log.With(slog.String("rpc", "CreateOwner"))

	name, err := stringField(req, "name")
	if err != nil {
		return nil, toStatus(log, err)
	}
	email, err := stringField(req, "email")
	if err != nil {
		return nil, toStatus(log, err)
	}
	o, err := s.svc.Create(ctx, owners.CreateInput{Name: name, Email: email})
	if err != nil {
		return nil, toStatus(log, err)
	}
	return newStruct(map[string]any{"owner": ownerFields(o)})
}

func (s *OwnersServer) GetOwner(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	log := s.log.With(slog.String("rpc", "GetOwner"))

	id, err := uuidField(req, "id")
	if err != nil {
		return nil, toStatus(log, err)
	}
	o, err := s.svc.Get(ctx, id)
	if err != nil {
		return nil, toStatus(log, err, slog.String("owner_id", id.String()))
	}
	return newStruct(map[string]any{"owner": ownerFields(o)})
}

func (s *OwnersServer) ListOwners(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	log := s.log.With(slog.String("rpc", "ListOwners"))

	rows, err := s.svc.List(ctx)
	if err != nil {
		return nil, toStatus(log, err)
	}
	out := make([]any, 0, len(rows))
	for _, o := range rows {
		out = append(out, ownerFields(o))
	}
	log.Debug("owners listed", slog.Int("count", len(out)))
	return newStruct(map[string]any{"owners": out})
}

func (s *OwnersServer) UpdateOwner(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	log := s.log.With(slog.String("rpc", "UpdateOwner"))

	id, err := uuidField(req, "id")
	if err != nil {
		return nil, toStatus(log, err)
	}
	var in owners.UpdateInput
	if in.Name, err = optionalString(req, "name"); err != nil {
		return nil, toStatus(log, err)
	}
	if in.Email, err = optionalString(req, "email"); err != nil {
		return nil, toStatus(log, err)
	}
	o, err := s.svc.Update(ctx, id, in)
	if err != nil {
		return nil, toStatus(log, err, slog.String("owner_id", id.String()))
	}
	return newStruct(map[string]any{"owner": ownerFields(o)})
}

func (s *OwnersServer) DeleteOwner(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	log := s.log.With(slog.String("rpc", "DeleteOwner"))

	id, err := uuidField(req, "id")
	if err != nil {
		return nil, toStatus(log, err)
	}
	if err := s.svc.Delete(ctx, id); err != nil {
		return nil, toStatus(log, err, slog.String("owner_id", id.String()))
	}
	return &structpb.Struct{}, nil
}

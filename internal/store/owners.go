package store

import (
	"context"

	"github.com/google/uuid"

	"calbook/internal/domain"
)

// OwnerChanges lists the columns an update touches. Nil fields are left as
// stored.
type OwnerChanges struct {
	Name  *string
	Email *string
}

type OwnerRepository interface {
	Create(ctx context.Context, o domain.Owner) (domain.Owner, error)
	Get(ctx context.Context, ownerID uuid.UUID) (domain.Owner, error)
	List(ctx context.Context) ([]domain.Owner, error)
	Update(ctx context.Context, ownerID uuid.UUID, changes OwnerChanges) (domain.Owner, error)
	Delete(ctx context.Context, ownerID uuid.UUID) error
}

package owners

import (
	"context"
	"log/slog"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"calbook/internal/domain"
	"calbook/internal/store"
)

type Service struct {
	repo     store.OwnerRepository
	validate *validator.Validate
	log      *slog.Logger
}

func NewService(repo store.OwnerRepository, log *slog.Logger) *Service {
	if log == nil {
		log = slog.Default()
	}
	return &Service{
		repo:     repo,
		validate: validator.New(validator.WithRequiredStructEnabled()),
		log:      log.With(slog.String("component", "service.owners")),
	}
}

type CreateInput struct {
	Name  string
	Email string
}

func (s *Service) Create(ctx context.Context, in CreateInput) (domain.Owner, error) {
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return domain.Owner{}, domain.NewValidationError("name is required")
	}
	email, err := s.normalizeEmail(in.Email)
	if err != nil {
		return domain.Owner{}, err
	}

	o, err := s.repo.Create(ctx, domain.Owner{Name: name, Email: email})
	if err != nil {
		return domain.Owner{}, err
	}
	s.log.Info("owner created", slog.String("owner_id", o.ID.String()))
	return o, nil
}

func (s *Service) Get(ctx context.Context, ownerID uuid.UUID) (domain.Owner, error) {
	if ownerID == uuid.Nil {
		return domain.Owner{}, store.ErrOwnerNotFound
	}
	return s.repo.Get(ctx, ownerID)
}

func (s *Service) List(ctx context.Context) ([]domain.Owner, error) {
	return s.repo.List(ctx)
}

// UpdateInput carries the fields to change. Nil fields keep their stored value.
type UpdateInput struct {
	Name  *string
	Email *string
}

func (s *Service) Update(ctx context.Context, ownerID uuid.UUID, in UpdateInput) (domain.Owner, error) {
	if ownerID == uuid.Nil {
		return domain.Owner{}, store.ErrOwnerNotFound
	}
	var (
		name  string
		email string
		err   error
	)
	if in.Name != nil {
		if name = strings.TrimSpace(*in.Name); name == "" {
			return domain.Owner{}, domain.NewValidationError("name cannot be empty")
		}
	}
	if in.Email != nil {
		if email, err = s.normalizeEmail(*in.Email); err != nil {
			return domain.Owner{}, err
		}
	}

	changes := store.OwnerChanges{}
	if in.Name != nil {
		changes.Name = &name
	}
	if in.Email != nil {
		changes.Email = &email
	}
	return s.repo.Update(ctx, ownerID, changes)
}

// Delete removes the owner together with all of its bookings.
func (s *Service) Delete(ctx context.Context, ownerID uuid.UUID) error {
	if ownerID == uuid.Nil {
		return store.ErrOwnerNotFound
	}
	if err := s.repo.Delete(ctx, ownerID); err != nil {
		return err
	}
	s.log.Info("owner deleted", slog.String("owner_id", ownerID.String()))
	return nil
}

// normalizeEmail trims and lowercases so uniqueness is case-insensitive.
func (s *Service) normalizeEmail(raw string) (string, error) {
	email := strings.ToLower(strings.TrimSpace(raw))
	if email == "" {
		return "", domain.NewValidationError("email is required")
	}
	if err := s.validate.Var(email, "email"); err != nil {
		return "", domain.NewValidationError("email is invalid")
	}
	return email, nil
}

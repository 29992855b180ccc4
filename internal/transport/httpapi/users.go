package httpapi

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/julienschmidt/httprouter"

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

type userHandler struct {
	svc      ownersService
	validate *requestValidator
}

func (h *userHandler) create(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	var req createUserRequest
	if msgs := h.validate.decode(r, &req); msgs != nil {
		writeValidation(w, msgs)
		return
	}

	o, err := h.svc.Create(r.Context(), owners.CreateInput{Name: req.Name, Email: req.Email})
	if err != nil {
		writeError(w, r, err)
		return
	}
	loggerFrom(r.Context()).Info("user created", slog.String("owner_id", o.ID.String()))
	writeData(w, http.StatusCreated, "User created successfully", toUserResponse(o))
}

func (h *userHandler) list(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	rows, err := h.svc.List(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	out := make([]userResponse, 0, len(rows))
	for _, o := range rows {
		out = append(out, toUserResponse(o))
	}
	writeData(w, http.StatusOK, "", out)
}

func (h *userHandler) get(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	o, err := h.svc.Get(r.Context(), pathID(ps))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeData(w, http.StatusOK, "", toUserResponse(o))
}

func (h *userHandler) update(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	var req updateUserRequest
	if msgs := h.validate.decode(r, &req); msgs != nil {
		writeValidation(w, msgs)
		return
	}

	o, err := h.svc.Update(r.Context(), pathID(ps), owners.UpdateInput{Name: req.Name, Email: req.Email})
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeData(w, http.StatusOK, "User updated successfully", toUserResponse(o))
}

func (h *userHandler) delete(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	if err := h.svc.Delete(r.Context(), pathID(ps)); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// pathID returns the nil UUID for a malformed id, which the services report
// as not found.
func pathID(ps httprouter.Params) uuid.UUID {
	id, err := uuid.Parse(strings.TrimSpace(ps.ByName("id")))
	if err != nil {
		return uuid.Nil
	}
	return id
}

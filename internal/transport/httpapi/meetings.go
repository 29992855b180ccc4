package httpapi

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/julienschmidt/httprouter"

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

type meetingHandler struct {
	svc      bookingsService
	validate *requestValidator
}

func (h *meetingHandler) create(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	var req createMeetingRequest
	if msgs := h.validate.decode(r, &req); msgs != nil {
		writeValidation(w, msgs)
		return
	}
	// The validator has already checked these.
	ownerID := uuid.MustParse(req.UserID)
	start, _ := parseTimestamp(req.StartTime)
	end, _ := parseTimestamp(req.EndTime)

	b, err := h.svc.Create(r.Context(), bookings.CreateInput{
		OwnerID:   ownerID,
		Title:     req.Title,
		StartTime: start,
		EndTime:   end,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	loggerFrom(r.Context()).Info("meeting created",
		slog.String("booking_id", b.ID.String()),
		slog.String("owner_id", b.OwnerID.String()),
	)
	writeData(w, http.StatusCreated, "Meeting created successfully", toMeetingResponse(b))
}

func (h *meetingHandler) list(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	q := r.URL.Query()
	var (
		in   bookings.ListInput
		errs []string
	)
	if raw := strings.TrimSpace(q.Get("userId")); raw != "" {
		if id, err := uuid.Parse(raw); err == nil {
			in.OwnerID = &id
		} else {
			errs = append(errs, "User ID must be a UUID")
		}
	}
	if raw := q.Get("startDate"); raw != "" {
		if t, err := parseTimestamp(raw); err == nil {
			in.From = &t
		} else {
			errs = append(errs, "Start date must be a valid date")
		}
	}
	if raw := q.Get("endDate"); raw != "" {
		if t, err := parseTimestamp(raw); err == nil {
			in.To = &t
		} else {
			errs = append(errs, "End date must be a valid date")
		}
	}
	switch strings.ToLower(strings.TrimSpace(q.Get("match"))) {
	case "", "start":
		in.Match = store.MatchStart
	case "overlap":
		in.Match = store.MatchOverlap
	default:
		errs = append(errs, "Match must be start or overlap")
	}
	if len(errs) > 0 {
		writeValidation(w, errs)
		return
	}

	rows, err := h.svc.List(r.Context(), in)
	if err != nil {
		writeError(w, r, err)
		return
	}
	out := make([]meetingResponse, 0, len(rows))
	for _, b := range rows {
		out = append(out, toMeetingResponse(b))
	}
	loggerFrom(r.Context()).Debug("meetings listed", slog.Int("count", len(out)))
	writeData(w, http.StatusOK, "", out)
}

func (h *meetingHandler) get(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	b, err := h.svc.Get(r.Context(), pathID(ps))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeData(w, http.StatusOK, "", toMeetingResponse(b))
}

func (h *meetingHandler) update(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	var req updateMeetingRequest
	if msgs := h.validate.decode(r, &req); msgs != nil {
		writeValidation(w, msgs)
		return
	}
	in := bookings.UpdateInput{Title: req.Title}
	var errs []string
	if req.StartTime != nil {
		if t, err := parseTimestamp(*req.StartTime); err == nil {
			in.StartTime = &t
		} else {
			errs = append(errs, messages["startTime.rfc3339"])
		}
	}
	if req.EndTime != nil {
		if t, err := parseTimestamp(*req.EndTime); err == nil {
			in.EndTime = &t
		} else {
			errs = append(errs, messages["endTime.rfc3339"])
		}
	}
	if len(errs) > 0 {
		writeValidation(w, errs)
		return
	}
	// Both bounds supplied and inverted is rejected before any lookup.
	if in.StartTime != nil && in.EndTime != nil && !in.StartTime.Before(*in.EndTime) {
		writeFailure(w, http.StatusBadRequest, "Start time must be before end time")
		return
	}

	b, err := h.svc.Update(r.Context(), pathID(ps), in)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeData(w, http.StatusOK, "Meeting updated successfully", toMeetingResponse(b))
}

func (h *meetingHandler) delete(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	if err := h.svc.Delete(r.Context(), pathID(ps)); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

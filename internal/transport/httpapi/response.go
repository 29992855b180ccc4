package httpapi

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"calbook/internal/domain"
	"calbook/internal/store"
)

// envelope is the body shape of every JSON response.
type envelope struct {
	Success bool     `json:"success"`
	Message string   `json:"message,omitempty"`
	Data    any      `json:"data,omitempty"`
	Errors  []string `json:"errors,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, body envelope) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func writeData(w http.ResponseWriter, status int, message string, data any) {
	writeJSON(w, status, envelope{Success: true, Message: message, Data: data})
}

func writeFailure(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, envelope{Success: false, Message: message})
}

func writeValidation(w http.ResponseWriter, messages []string) {
	writeJSON(w, http.StatusBadRequest, envelope{Success: false, Message: "Validation error", Errors: messages})
}

// writeError maps a service error onto a status code and message.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	log := loggerFrom(r.Context())

	var vErr *domain.ValidationError
	switch {
	case errors.Is(err, store.ErrSlotConflict):
		log.Info("slot conflict")
		writeFailure(w, http.StatusConflict, "Time slot already booked")
	case errors.Is(err, store.ErrDuplicateIdentity):
		log.Info("duplicate email")
		writeFailure(w, http.StatusConflict, "Email already exists")
	case errors.Is(err, store.ErrOwnerNotFound):
		writeFailure(w, http.StatusNotFound, "User not found")
	case errors.Is(err, store.ErrBookingNotFound):
		writeFailure(w, http.StatusNotFound, "Meeting not found")
	case errors.Is(err, domain.ErrInvalidInterval):
		writeFailure(w, http.StatusBadRequest, "Start time must be before end time")
	case errors.As(err, &vErr):
		writeValidation(w, []string{vErr.Error()})
	case errors.Is(err, store.ErrUnavailable):
		log.Error("store unavailable", slog.Any("err", err))
		writeFailure(w, http.StatusServiceUnavailable, "Service temporarily unavailable")
	default:
		log.Error("request failed", slog.Any("err", err))
		writeFailure(w, http.StatusInternalServerError, "Internal server error")
	}
}

package httpapi

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"calbook/internal/domain"
)

type createUserRequest struct {
	Name  string `json:"name" validate:"required,max=255"`
	Email string `json:"email" validate:"required,email"`
}

type updateUserRequest struct {
	Name  *string `json:"name" validate:"omitempty,min=1,max=255"`
	Email *string `json:"email" validate:"omitempty,email"`
}

type createMeetingRequest struct {
	UserID    string `json:"userId" validate:"required,uuid"`
	Title     string `json:"title" validate:"required,max=255"`
	StartTime string `json:"startTime" validate:"required,rfc3339"`
	EndTime   string `json:"endTime" validate:"required,rfc3339"`
}

type updateMeetingRequest struct {
	Title     *string `json:"title" validate:"omitempty,min=1,max=255"`
	StartTime *string `json:"startTime" validate:"omitempty,rfc3339"`
	EndTime   *string `json:"endTime" validate:"omitempty,rfc3339"`
}

type userResponse struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

func toUserResponse(o domain.Owner) userResponse {
	return userResponse{
		ID:        o.ID.String(),
		Name:      o.Name,
		Email:     o.Email,
		CreatedAt: o.CreatedAt.UTC(),
		UpdatedAt: o.UpdatedAt.UTC(),
	}
}

type meetingResponse struct {
	ID        string    `json:"id"`
	UserID    string    `json:"userId"`
	Title     string    `json:"title"`
	StartTime time.Time `json:"startTime"`
	EndTime   time.Time `json:"endTime"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

func toMeetingResponse(b domain.Booking) meetingResponse {
	return meetingResponse{
		ID:        b.ID.String(),
		UserID:    b.OwnerID.String(),
		Title:     b.Title,
		StartTime: b.StartTime.UTC(),
		EndTime:   b.EndTime.UTC(),
		CreatedAt: b.CreatedAt.UTC(),
		UpdatedAt: b.UpdatedAt.UTC(),
	}
}

// messages holds the wording for "<json field>.<tag>" failures.
var messages = map[string]string{
	"name.required":      "Name is required",
	"name.min":           "Name cannot be empty",
	"name.max":           "Name must be at most 255 characters",
	"email.required":     "Email is required",
	"email.email":        "Email must be a valid email",
	"userId.required":    "User ID is required",
	"userId.uuid":        "User ID must be a UUID",
	"title.required":     "Title is required",
	"title.min":          "Title cannot be empty",
	"title.max":          "Title must be at most 255 characters",
	"startTime.required": "Start time is required",
	"startTime.rfc3339":  "Start time must be a valid date",
	"endTime.required":   "End time is required",
	"endTime.rfc3339":    "End time must be a valid date",
}

type requestValidator struct {
	validate *validator.Validate
}

func newRequestValidator() *requestValidator {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	// Registration only fails on an empty tag or nil func.
	_ = v.RegisterValidation("rfc3339", func(fl validator.FieldLevel) bool {
		_, err := parseTimestamp(fl.Field().String())
		return err == nil
	})
	return &requestValidator{validate: v}
}

// decode reads a JSON body into dst and validates it. It returns the
// user-facing messages when the request is rejected.
func (rv *requestValidator) decode(r *http.Request, dst any) []string {
	dec := json.NewDecoder(r.Body)
	if err := dec.Decode(dst); err != nil {
		return []string{decodeMessage(err)}
	}

	err := rv.validate.Struct(dst)
	if err == nil {
		return nil
	}
	var vErrs validator.ValidationErrors
	if !errors.As(err, &vErrs) {
		return []string{err.Error()}
	}
	out := make([]string, 0, len(vErrs))
	for _, fe := range vErrs {
		if msg, ok := messages[fe.Field()+"."+fe.Tag()]; ok {
			out = append(out, msg)
			continue
		}
		out = append(out, fmt.Sprintf("%s failed %s validation", fe.Field(), fe.Tag()))
	}
	return out
}

func decodeMessage(err error) string {
	var typeErr *json.UnmarshalTypeError
	if errors.As(err, &typeErr) && typeErr.Field != "" {
		return fmt.Sprintf("%s has the wrong type", typeErr.Field)
	}
	return "Request body must be a JSON object"
}

// parseTimestamp accepts RFC 3339 instants and bare dates, which are read as
// midnight UTC.
func parseTimestamp(raw string) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	if t, err := time.Parse(time.RFC3339Nano, raw); err == nil {
		return t, nil
	}
	return time.Parse(time.DateOnly, raw)
}

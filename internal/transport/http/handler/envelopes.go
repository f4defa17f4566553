package handler

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/exam-registration/internal/application/challenge"
	"github.com/exam-registration/internal/domain"
	"github.com/exam-registration/internal/transport/http/respond"
)

// MessageEnvelope is the generic response wrapper. Kind is the machine-readable
// outcome so clients can tell "wrong code" from "request a new code".
type MessageEnvelope struct {
	Message   string `json:"message,omitempty"`
	Error     string `json:"error,omitempty"`
	Kind      string `json:"kind,omitempty"`
	Remaining *int   `json:"remaining_attempts,omitempty"`
}

// PendingEnvelope answers begin and resend.
type PendingEnvelope struct {
	Email     string    `json:"email"`
	ExpiresAt time.Time `json:"expires_at"`
	Code      string    `json:"code,omitempty"`
	Message   string    `json:"message,omitempty"`
}

// RegistrationEnvelope answers commit.
type RegistrationEnvelope struct {
	Registration *domain.Registration `json:"registration"`
	Assigned     bool                 `json:"assigned"`
	Message      string               `json:"message,omitempty"`
}

// SlotsEnvelope answers the admin slot listing for one date.
type SlotsEnvelope struct {
	Date     string               `json:"date"`
	Sessions []domain.SlotSession `json:"sessions"`
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	respond.JSON(w, status, v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	respond.Error(w, status, domain.ErrBadRequest, msg)
}

// writeDomainError renders err with the status of its outcome kind. Fatal
// details stay in the log.
func writeDomainError(w http.ResponseWriter, r *http.Request, err error) {
	kind := domain.Kind(err)
	status := statusFor(kind)
	env := MessageEnvelope{Error: err.Error(), Kind: kind}
	if status == http.StatusInternalServerError {
		slog.Error("request failed", "path", r.URL.Path, "err", err)
		env.Error = "internal error"
	}
	var me *challenge.MismatchError
	if errors.As(err, &me) {
		remaining := me.Remaining
		env.Remaining = &remaining
	}
	writeJSON(w, status, env)
}

func statusFor(kind string) int {
	switch kind {
	case "registration_closed", "forbidden":
		return http.StatusForbidden
	case "duplicate_verified_email", "already_verified", "conflict":
		return http.StatusConflict
	case "rate_limited":
		return http.StatusTooManyRequests
	case "expired":
		return http.StatusGone
	case "not_found":
		return http.StatusNotFound
	case "mismatch", "unauthorized":
		return http.StatusUnauthorized
	case "locked":
		return http.StatusLocked
	case "transient_conflict":
		return http.StatusServiceUnavailable
	case "bad_request":
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

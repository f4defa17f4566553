package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/exam-registration/internal/application/registration"
	"github.com/exam-registration/internal/domain"
	"github.com/exam-registration/internal/pkg/validate"
)

const (
	// maxApplicationBytes fits a base64 profile image at its size cap plus
	// the form fields.
	maxApplicationBytes = 3 << 20
	// maxCodeRequestBytes bounds the email and code bodies.
	maxCodeRequestBytes = 4 << 10
)

type emailRequest struct {
	Email string `json:"email" validate:"required,email"`
}

type codeRequest struct {
	Email string `json:"email" validate:"required,email"`
	Code  string `json:"code" validate:"required,max=16"`
}

// RegistrationHandler exposes the verified-registration workflow.
type RegistrationHandler struct {
	svc         registration.Service
	exposeCodes bool
}

// NewRegistrationHandler builds the handler. With exposeCodes the issued code
// is echoed back for non-production tooling.
func NewRegistrationHandler(svc registration.Service, exposeCodes bool) *RegistrationHandler {
	return &RegistrationHandler{svc: svc, exposeCodes: exposeCodes}
}

func (h *RegistrationHandler) Begin(w http.ResponseWriter, r *http.Request) {
	var p domain.ApplicantPayload
	if !decodeBody(w, r, &p, maxApplicationBytes) {
		return
	}
	pending, err := h.svc.Begin(r.Context(), &p)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusAccepted, h.pendingEnvelope(pending, "verification code sent"))
}

func (h *RegistrationHandler) Resend(w http.ResponseWriter, r *http.Request) {
	var req emailRequest
	if !decodeValid(w, r, &req) {
		return
	}
	pending, err := h.svc.Resend(r.Context(), req.Email)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusAccepted, h.pendingEnvelope(pending, "verification code resent"))
}

func (h *RegistrationHandler) Verify(w http.ResponseWriter, r *http.Request) {
	var req codeRequest
	if !decodeValid(w, r, &req) {
		return
	}
	if err := h.svc.Verify(r.Context(), req.Email, req.Code); err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, MessageEnvelope{Message: "code verified"})
}

func (h *RegistrationHandler) Commit(w http.ResponseWriter, r *http.Request) {
	var req codeRequest
	if !decodeValid(w, r, &req) {
		return
	}
	done, err := h.svc.Commit(r.Context(), req.Email, req.Code)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	msg := "registration complete"
	if !done.Assigned {
		msg = "registration complete, an exam seat will be assigned by the admissions office"
	}
	writeJSON(w, http.StatusCreated, RegistrationEnvelope{
		Registration: done.Registration,
		Assigned:     done.Assigned,
		Message:      msg,
	})
}

func (h *RegistrationHandler) pendingEnvelope(p *registration.Pending, msg string) PendingEnvelope {
	env := PendingEnvelope{Email: p.Email, ExpiresAt: p.ExpiresAt, Message: msg}
	if h.exposeCodes {
		env.Code = p.Code
	}
	return env
}

// decodeValid decodes the body into dst and validates it, writing the error
// response itself when either step fails.
func decodeValid(w http.ResponseWriter, r *http.Request, dst interface{}) bool {
	if !decodeBody(w, r, dst, maxCodeRequestBytes) {
		return false
	}
	if err := validate.Struct(dst); err != nil {
		writeDomainError(w, r, err)
		return false
	}
	return true
}

// decodeBody decodes at most limit bytes of the body into dst. Larger bodies
// are rejected with 413 before they are buffered.
func decodeBody(w http.ResponseWriter, r *http.Request, dst interface{}, limit int64) bool {
	r.Body = http.MaxBytesReader(w, r.Body, limit)
	err := json.NewDecoder(r.Body).Decode(dst)
	if err == nil {
		return true
	}
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		writeError(w, http.StatusRequestEntityTooLarge, fmt.Sprintf("request body exceeds %d bytes", tooLarge.Limit))
		return false
	}
	writeError(w, http.StatusBadRequest, "invalid request body")
	return false
}

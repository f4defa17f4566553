package handler

import (
	"context"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/exam-registration/internal/application/registration"
	"github.com/exam-registration/internal/domain"
)

type registrationReader interface {
	Get(ctx context.Context, id string) (*domain.Registration, error)
	ListByAccount(ctx context.Context, accountID string) ([]domain.Registration, error)
}

type imageReader interface {
	Get(ctx context.Context, key string) ([]byte, string, error)
}

// AdminHandler lets the admissions office look up committed registrations.
type AdminHandler struct {
	regs   registrationReader
	images imageReader
}

func NewAdminHandler(regs registrationReader, images imageReader) *AdminHandler {
	return &AdminHandler{regs: regs, images: images}
}

func (h *AdminHandler) GetRegistration(w http.ResponseWriter, r *http.Request) {
	reg, err := h.regs.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, reg)
}

func (h *AdminHandler) ListAccountRegistrations(w http.ResponseWriter, r *http.Request) {
	regs, err := h.regs.ListByAccount(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	if regs == nil {
		regs = []domain.Registration{}
	}
	writeJSON(w, http.StatusOK, regs)
}

func (h *AdminHandler) GetPhoto(w http.ResponseWriter, r *http.Request) {
	data, contentType, err := h.images.Get(r.Context(), registration.ImageKey(chi.URLParam(r, "id")))
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Length", strconv.Itoa(len(data)))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}

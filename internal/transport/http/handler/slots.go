package handler

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/exam-registration/internal/domain"
)

type slotLister interface {
	ListDay(ctx context.Context, date string) ([]domain.SlotSession, error)
}

// SlotHandler lists seat counts for administrators.
type SlotHandler struct {
	svc slotLister
}

func NewSlotHandler(svc slotLister) *SlotHandler { return &SlotHandler{svc: svc} }

func (h *SlotHandler) ListDay(w http.ResponseWriter, r *http.Request) {
	date := chi.URLParam(r, "date")
	rows, err := h.svc.ListDay(r.Context(), date)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	if rows == nil {
		rows = []domain.SlotSession{}
	}
	writeJSON(w, http.StatusOK, SlotsEnvelope{Date: date, Sessions: rows})
}

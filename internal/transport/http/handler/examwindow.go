package handler

import (
	"encoding/json"
	"net/http"

	"github.com/exam-registration/internal/application/examwindow"
)

// ExamWindowHandler serves the public window view and the admin update.
type ExamWindowHandler struct {
	svc examwindow.Service
}

func NewExamWindowHandler(svc examwindow.Service) *ExamWindowHandler {
	return &ExamWindowHandler{svc: svc}
}

func (h *ExamWindowHandler) Get(w http.ResponseWriter, r *http.Request) {
	cfg, err := h.svc.Get(r.Context())
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, cfg)
}

func (h *ExamWindowHandler) Update(w http.ResponseWriter, r *http.Request) {
	var req examwindow.UpdateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	cfg, err := h.svc.Update(r.Context(), req)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, cfg)
}

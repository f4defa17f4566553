package examwindow

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/exam-registration/internal/domain"
	"github.com/exam-registration/internal/pkg/validate"
)

// UpdateRequest replaces the exam window configuration. Empty dates clear a bound.
type UpdateRequest struct {
	StartDate        *string `json:"start_date" validate:"omitempty,datetime=2006-01-02"`
	EndDate          *string `json:"end_date" validate:"omitempty,datetime=2006-01-02"`
	SeatsPerDay      int     `json:"seats_per_day" validate:"required,min=2"`
	Message          string  `json:"message" validate:"max=500"`
	RegistrationOpen bool    `json:"registration_open"`
}

type Service interface {
	// Get returns the current configuration. An unconfigured window reads as closed.
	Get(ctx context.Context) (*domain.ExamWindowConfig, error)
	Update(ctx context.Context, req UpdateRequest) (*domain.ExamWindowConfig, error)
}

type windowStore interface {
	Get(ctx context.Context) (*domain.ExamWindowConfig, error)
	Put(ctx context.Context, cfg *domain.ExamWindowConfig) error
}

type service struct {
	repo windowStore
	now  func() time.Time
}

type ServiceDeps struct {
	WindowRepo windowStore
	Now        func() time.Time
}

func NewService(deps ServiceDeps) Service {
	now := deps.Now
	if now == nil {
		now = time.Now
	}
	return &service{repo: deps.WindowRepo, now: now}
}

func (s *service) Get(ctx context.Context) (*domain.ExamWindowConfig, error) {
	cfg, err := s.repo.Get(ctx)
	if errors.Is(err, domain.ErrNotFound) {
		return &domain.ExamWindowConfig{ConfigID: domain.ExamWindowConfigID}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get exam window: %w: %w", domain.ErrFatal, err)
	}
	return cfg, nil
}

func (s *service) Update(ctx context.Context, req UpdateRequest) (*domain.ExamWindowConfig, error) {
	if err := validate.Struct(req); err != nil {
		return nil, err
	}
	cfg := &domain.ExamWindowConfig{
		ConfigID:         domain.ExamWindowConfigID,
		StartDate:        blankToNil(req.StartDate),
		EndDate:          blankToNil(req.EndDate),
		SeatsPerDay:      req.SeatsPerDay,
		Message:          req.Message,
		RegistrationOpen: req.RegistrationOpen,
		UpdatedAt:        s.now().UTC(),
	}
	if _, err := cfg.Window(); err != nil {
		return nil, err
	}
	if err := s.repo.Put(ctx, cfg); err != nil {
		return nil, fmt.Errorf("save exam window: %w: %w", domain.ErrFatal, err)
	}
	slog.Info("exam window updated",
		"open", cfg.RegistrationOpen,
		"seats_per_day", cfg.SeatsPerDay,
	)
	return cfg, nil
}

func blankToNil(s *string) *string {
	if s == nil || *s == "" {
		return nil
	}
	return s
}

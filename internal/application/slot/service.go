package slot

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/exam-registration/internal/domain"
	"github.com/exam-registration/internal/infrastructure/metrics"
	"github.com/exam-registration/internal/pkg/calendar"
)

// maxDays bounds the forward search when the exam window has no end.
const maxDays = 370

// ClaimFunc applies a seat claim. It returns domain.ErrTransientConflict when the
// slot moved since it was read.
type ClaimFunc func(ctx context.Context, claim domain.SeatClaim) error

// Preference is the applicant's requested sitting, honored when it is bookable.
type Preference struct {
	Date    time.Time
	Session domain.SessionType
}

// Request describes one reservation. From is the commit instant the buffer counts from.
type Request struct {
	From        time.Time
	Window      domain.ExamWindow
	SeatsPerDay int
	Preferred   *Preference
}

type Service interface {
	// ReserveSeat reserves a seat by applying the store's own compare-and-swap.
	ReserveSeat(ctx context.Context, req Request) (*domain.SeatAssignment, error)
	// ReserveSeatWith reserves a seat through claim, letting callers fold the
	// seat increment into a larger atomic write.
	ReserveSeatWith(ctx context.Context, req Request, claim ClaimFunc) (*domain.SeatAssignment, error)
	ListDay(ctx context.Context, date string) ([]domain.SlotSession, error)
}

type slotStore interface {
	Get(ctx context.Context, date string, session domain.SessionType) (*domain.SlotSession, error)
	CreateIfAbsent(ctx context.Context, s *domain.SlotSession) error
	ClaimSeat(ctx context.Context, claim domain.SeatClaim) error
	ListByDate(ctx context.Context, date string) ([]domain.SlotSession, error)
}

type service struct {
	repo    slotStore
	retries int
	now     func() time.Time
}

type ServiceDeps struct {
	SlotRepo slotStore
	// Retries is how many times a lost compare-and-swap is re-read and retried.
	Retries int
	Now     func() time.Time
}

func NewService(deps ServiceDeps) Service {
	now := deps.Now
	if now == nil {
		now = time.Now
	}
	return &service{repo: deps.SlotRepo, retries: deps.Retries, now: now}
}

func (s *service) ReserveSeat(ctx context.Context, req Request) (*domain.SeatAssignment, error) {
	return s.ReserveSeatWith(ctx, req, s.repo.ClaimSeat)
}

func (s *service) ReserveSeatWith(ctx context.Context, req Request, claim ClaimFunc) (*domain.SeatAssignment, error) {
	perSession := req.SeatsPerDay / 2
	if perSession <= 0 {
		return nil, fmt.Errorf("seats per day %d leaves no session capacity: %w", req.SeatsPerDay, domain.ErrNoCapacity)
	}

	var day time.Time
	if p := req.Preferred; p != nil && s.bookable(req, p) {
		got, err := s.tryDay(ctx, domain.FormatDate(p.Date), preferredFirst(p.Session), perSession, claim)
		if err != nil || got != nil {
			return got, err
		}
		day, err = calendar.Eligible(calendar.Day(p.Date).AddDate(0, 0, 1), req.Window)
		if err != nil {
			return nil, err
		}
	} else {
		var err error
		day, err = calendar.NextEligibleDate(req.From, req.Window)
		if err != nil {
			return nil, err
		}
	}
	for i := 0; i < maxDays; i++ {
		got, err := s.tryDay(ctx, domain.FormatDate(day), domain.SessionOrder, perSession, claim)
		if err != nil || got != nil {
			return got, err
		}
		day, err = calendar.Eligible(day.AddDate(0, 0, 1), req.Window)
		if err != nil {
			return nil, err
		}
	}
	return nil, fmt.Errorf("no open session within %d days: %w", maxDays, domain.ErrNoCapacity)
}

func (s *service) ListDay(ctx context.Context, date string) ([]domain.SlotSession, error) {
	if _, err := domain.ParseDate(date); err != nil {
		return nil, err
	}
	return s.repo.ListByDate(ctx, date)
}

// preferredFirst orders the sessions of a day with first at the front.
func preferredFirst(first domain.SessionType) []domain.SessionType {
	out := []domain.SessionType{first}
	for _, s := range domain.SessionOrder {
		if s != first {
			out = append(out, s)
		}
	}
	return out
}

// bookable reports whether the preferred sitting may anchor the search.
func (s *service) bookable(req Request, p *Preference) bool {
	if !p.Session.Valid() || p.Date.IsZero() {
		return false
	}
	day := calendar.Day(p.Date)
	return calendar.IsEligible(day, req.Window) && !day.Before(calendar.Day(req.From))
}

// tryDay claims the first session of date, in order, that has room. Both
// sessions of a date are created together on its first touch.
func (s *service) tryDay(ctx context.Context, date string, sessions []domain.SessionType, perSession int, claim ClaimFunc) (*domain.SeatAssignment, error) {
	for _, session := range domain.SessionOrder {
		if err := s.ensure(ctx, date, session, perSession); err != nil {
			return nil, err
		}
	}
	for _, session := range sessions {
		ok, err := s.claim(ctx, date, session, claim)
		if err != nil {
			return nil, err
		}
		if ok {
			metrics.SeatsReserved.WithLabelValues(string(session)).Inc()
			return &domain.SeatAssignment{ExamDate: date, Session: session}, nil
		}
	}
	return nil, nil
}

// ensure creates the session row unless it already exists.
func (s *service) ensure(ctx context.Context, date string, session domain.SessionType, perSession int) error {
	_, err := s.repo.Get(ctx, date, session)
	if err == nil {
		return nil
	}
	if !errors.Is(err, domain.ErrNotFound) {
		return fmt.Errorf("read slot %s/%s: %w: %w", date, session, domain.ErrFatal, err)
	}
	now := s.now().UTC()
	row := &domain.SlotSession{
		ExamDate:    date,
		Session:     session,
		MaxCapacity: perSession,
		Status:      domain.SlotOpen,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.repo.CreateIfAbsent(ctx, row); err != nil && !errors.Is(err, domain.ErrConflict) {
		return fmt.Errorf("create slot %s/%s: %w: %w", date, session, domain.ErrFatal, err)
	}
	return nil
}

// claim reports false when the session is full. Lost races are retried against
// a fresh read until the retry budget runs out.
func (s *service) claim(ctx context.Context, date string, session domain.SessionType, claim ClaimFunc) (bool, error) {
	for attempt := 0; attempt <= s.retries; attempt++ {
		row, err := s.repo.Get(ctx, date, session)
		if err != nil {
			return false, fmt.Errorf("read slot %s/%s: %w: %w", date, session, domain.ErrFatal, err)
		}
		if !row.HasRoom() {
			return false, nil
		}
		err = claim(ctx, row.Claim())
		if err == nil {
			return true, nil
		}
		if !errors.Is(err, domain.ErrTransientConflict) {
			return false, err
		}
		metrics.SeatClaimConflicts.Inc()
		slog.Debug("seat claim lost race", "slot", row.Claim().String(), "attempt", attempt+1)
	}
	return false, fmt.Errorf("%w: seat claim on %s/%s lost %d races: %w",
		domain.ErrNoCapacity, date, session, s.retries+1, domain.ErrTransientConflict)
}

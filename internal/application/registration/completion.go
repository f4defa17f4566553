package registration

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/exam-registration/internal/application/slot"
	"github.com/exam-registration/internal/domain"
	"github.com/exam-registration/internal/infrastructure/metrics"
	"github.com/exam-registration/internal/pkg/id"
)

// ImageKey is the blob key of an account's profile photo. It is stable so a
// retried commit overwrites the same object.
func ImageKey(accountID string) string {
	return "profiles/" + accountID + "/photo"
}

func (s *service) Commit(ctx context.Context, email, code string) (*Completed, error) {
	start := time.Now()
	email = domain.NormalizeEmail(email)

	st, err := s.challenge.Verify(ctx, email, code)
	if err != nil {
		return nil, err
	}
	acc, err := s.accounts.GetByEmail(ctx, email)
	switch {
	case errors.Is(err, domain.ErrNotFound):
		return nil, fmt.Errorf("no account for pending registration: %w", domain.ErrExpired)
	case err != nil:
		return nil, fmt.Errorf("get account: %w: %w", domain.ErrFatal, err)
	case acc.Verified():
		s.discard(ctx, email)
		return nil, domain.ErrAlreadyVerified
	}

	req, err := s.seatRequest(ctx, &st.Payload)
	if err != nil {
		return nil, err
	}

	p := &st.Payload
	key := ImageKey(acc.AccountID)
	if err := s.images.Put(ctx, key, p.ProfileImage, p.ProfileImageType); err != nil {
		return nil, fmt.Errorf("store profile image: %w: %w", domain.ErrFatal, err)
	}

	now := s.now().UTC()
	req.From = now
	promoted := *acc
	promoted.Username = p.Username
	promoted.PasswordHash = st.PasswordHash
	promoted.EmailVerifiedAt = &now
	promoted.UpdatedAt = now

	profile := &domain.ApplicantProfile{
		ProfileID:        id.New(),
		AccountID:        acc.AccountID,
		FirstName:        p.FirstName,
		MiddleName:       p.MiddleName,
		LastName:         p.LastName,
		Suffix:           p.Suffix,
		Sex:              p.Sex,
		Birthday:         p.Birthday,
		Phone:            p.Phone,
		Address:          p.Address,
		School:           p.School,
		Strand:           p.Strand,
		PreferredCourses: p.PreferredCourses,
		ImageKey:         key,
		ImageContentType: p.ProfileImageType,
		CreatedAt:        now,
	}
	reg := domain.Registration{
		RegistrationID:    id.New(),
		ProfileID:         profile.ProfileID,
		AccountID:         acc.AccountID,
		Status:            domain.StatusRegistered,
		PreferredExamDate: p.PreferredExamDate,
		PreferredSession:  p.PreferredSession,
		CreatedAt:         now,
		UpdatedAt:         now,
	}
	commit := domain.RegistrationCommit{Account: &promoted, Profile: profile}

	claim := func(ctx context.Context, c domain.SeatClaim) error {
		assigned := reg
		assigned.Assign(c.ExamDate, c.Session)
		withSeat := commit
		withSeat.Registration = &assigned
		withSeat.Seat = &c
		return s.uow.CommitRegistration(ctx, withSeat)
	}

	seat, err := s.slots.ReserveSeatWith(ctx, req, claim)
	switch {
	case err == nil:
		reg.Assign(seat.ExamDate, seat.Session)
	case errors.Is(err, domain.ErrNoCapacity):
		slog.Warn("no seat for registration", "registration_id", reg.RegistrationID, "err", err)
		commit.Registration = &reg
		if err := s.uow.CommitRegistration(ctx, commit); err != nil {
			return nil, err
		}
		metrics.UnassignedRegistrations.Inc()
		s.notifyUnassigned(ctx, &reg)
	default:
		return nil, err
	}

	s.discard(ctx, email)
	metrics.CommitDuration.Observe(float64(time.Since(start).Milliseconds()))
	slog.Info("registration committed",
		"registration_id", reg.RegistrationID,
		"email_hash", domain.EmailHash(email),
		"status", reg.Status,
	)
	return &Completed{Registration: &reg, Assigned: seat != nil}, nil
}

// seatRequest reads the exam window. A missing row means no bounds and the
// default seat count.
func (s *service) seatRequest(ctx context.Context, p *domain.ApplicantPayload) (slot.Request, error) {
	req := slot.Request{SeatsPerDay: s.defaultSeats}
	cfg, err := s.windows.Get(ctx)
	switch {
	case errors.Is(err, domain.ErrNotFound):
		cfg = nil
	case err != nil:
		return req, fmt.Errorf("get exam window: %w: %w", domain.ErrFatal, err)
	}
	w, err := cfg.Window()
	if err != nil {
		return req, fmt.Errorf("stored exam window: %w: %w", domain.ErrFatal, err)
	}
	req.Window = w
	if cfg != nil && cfg.SeatsPerDay > 0 {
		req.SeatsPerDay = cfg.SeatsPerDay
	}
	if p.PreferredExamDate != "" && p.PreferredSession != "" {
		if d, err := domain.ParseDate(p.PreferredExamDate); err == nil {
			req.Preferred = &slot.Preference{Date: d, Session: p.PreferredSession}
		}
	}
	return req, nil
}

func (s *service) notifyUnassigned(ctx context.Context, reg *domain.Registration) {
	ev := domain.UnassignedEvent{
		RegistrationID: reg.RegistrationID,
		AccountID:      reg.AccountID,
		PreferredDate:  reg.PreferredExamDate,
	}
	if err := s.notifier.NotifyUnassigned(ctx, ev); err != nil {
		slog.Warn("unassigned notification failed", "registration_id", reg.RegistrationID, "err", err)
	}
}

// discard drops the stage. A leftover stage expires on its own, so failures
// are only logged.
func (s *service) discard(ctx context.Context, email string) {
	if err := s.challenge.Discard(ctx, email); err != nil {
		slog.Warn("discard stage failed", "email_hash", domain.EmailHash(email), "err", err)
	}
}

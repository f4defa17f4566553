package registration

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"golang.org/x/crypto/bcrypt"

	"github.com/exam-registration/internal/domain"
	"github.com/exam-registration/internal/infrastructure/metrics"
	"github.com/exam-registration/internal/pkg/id"
	"github.com/exam-registration/internal/pkg/validate"
)

func (s *service) Begin(ctx context.Context, p *domain.ApplicantPayload) (*Pending, error) {
	if err := validate.Struct(p); err != nil {
		return nil, err
	}
	email := domain.NormalizeEmail(p.Email)
	p.Email = email

	if err := s.requireOpen(ctx); err != nil {
		return nil, err
	}
	existing, err := s.accounts.GetByEmail(ctx, email)
	switch {
	case errors.Is(err, domain.ErrNotFound):
		existing = nil
	case err != nil:
		return nil, fmt.Errorf("get account: %w: %w", domain.ErrFatal, err)
	case existing.Verified():
		return nil, domain.ErrDuplicateVerifiedEmail
	}

	code, err := s.challenge.Issue(ctx, email)
	if err != nil {
		return nil, err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(p.Password), s.bcryptCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w: %w", domain.ErrFatal, err)
	}
	p.Password = ""
	if err := s.upsertShadow(ctx, existing, p, string(hash)); err != nil {
		return nil, err
	}

	st := &domain.StagedRegistration{
		Email:        email,
		Payload:      *p,
		PasswordHash: string(hash),
		Code:         code,
	}
	if err := s.challenge.Stage(ctx, st); err != nil {
		return nil, err
	}
	s.deliver(ctx, email, p.FullName(), code)
	slog.Info("registration staged", "email_hash", domain.EmailHash(email))
	return &Pending{Email: email, ExpiresAt: st.ExpiresAt, Code: code}, nil
}

func (s *service) Resend(ctx context.Context, email string) (*Pending, error) {
	email = domain.NormalizeEmail(email)
	acc, err := s.accounts.GetByEmail(ctx, email)
	switch {
	case errors.Is(err, domain.ErrNotFound):
		return nil, fmt.Errorf("no account for pending registration: %w", domain.ErrExpired)
	case err != nil:
		return nil, fmt.Errorf("get account: %w: %w", domain.ErrFatal, err)
	case acc.Verified():
		return nil, domain.ErrAlreadyVerified
	case acc.Abandoned(s.now(), s.stageTTL):
		return nil, fmt.Errorf("pending account abandoned: %w", domain.ErrExpired)
	}

	st, err := s.challenge.Resend(ctx, email)
	if errors.Is(err, domain.ErrStageNotFound) {
		return nil, fmt.Errorf("pending registration gone: %w", domain.ErrExpired)
	}
	if err != nil {
		return nil, err
	}
	s.deliver(ctx, email, st.Payload.FullName(), st.Code)
	return &Pending{Email: email, ExpiresAt: st.ExpiresAt, Code: st.Code}, nil
}

func (s *service) Verify(ctx context.Context, email, code string) error {
	_, err := s.challenge.Verify(ctx, email, code)
	return err
}

// requireOpen treats a missing configuration row as closed.
func (s *service) requireOpen(ctx context.Context) error {
	cfg, err := s.windows.Get(ctx)
	if errors.Is(err, domain.ErrNotFound) {
		return fmt.Errorf("exam window not configured: %w", domain.ErrRegistrationClosed)
	}
	if err != nil {
		return fmt.Errorf("get exam window: %w: %w", domain.ErrFatal, err)
	}
	if !cfg.RegistrationOpen {
		return domain.ErrRegistrationClosed
	}
	return nil
}

// upsertShadow leaves exactly one unverified account for the email. Abandoned
// accounts are replaced, fresh ones refreshed, and a concurrent begin that
// created the account first is folded into a refresh.
func (s *service) upsertShadow(ctx context.Context, existing *domain.Account, p *domain.ApplicantPayload, hash string) error {
	now := s.now().UTC()
	if existing != nil && existing.Abandoned(now, s.stageTTL) {
		if err := s.accounts.DeleteUnverified(ctx, p.Email); err != nil {
			if errors.Is(err, domain.ErrConflict) {
				return domain.ErrDuplicateVerifiedEmail
			}
			return fmt.Errorf("delete abandoned account: %w: %w", domain.ErrFatal, err)
		}
		slog.Info("abandoned account replaced", "email_hash", domain.EmailHash(p.Email))
		existing = nil
	}

	acc := &domain.Account{
		Email:        p.Email,
		AccountID:    id.New(),
		Username:     p.Username,
		PasswordHash: hash,
		Role:         domain.RoleApplicant,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if existing == nil {
		err := s.accounts.Create(ctx, acc)
		if err == nil {
			return nil
		}
		if !errors.Is(err, domain.ErrConflict) {
			return fmt.Errorf("create account: %w: %w", domain.ErrFatal, err)
		}
	}
	err := s.accounts.Refresh(ctx, acc)
	switch {
	case err == nil:
		return nil
	case errors.Is(err, domain.ErrConflict):
		return domain.ErrDuplicateVerifiedEmail
	default:
		return fmt.Errorf("refresh account: %w: %w", domain.ErrFatal, err)
	}
}

// deliver sends the code. Failures leave the stage valid for manual delivery.
func (s *service) deliver(ctx context.Context, email, name, code string) {
	if err := s.mailer.SendCode(ctx, email, name, code); err != nil {
		metrics.CodeDeliveryFailures.Inc()
		slog.Warn("code delivery failed", "email_hash", domain.EmailHash(email), "err", err)
	}
}

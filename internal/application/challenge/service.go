package challenge

import (
	"context"
	"crypto/rand"
	"crypto/subtle"
	"errors"
	"fmt"
	"log/slog"
	"math/big"
	"time"

	"github.com/exam-registration/internal/domain"
	"github.com/exam-registration/internal/infrastructure/metrics"
	"github.com/exam-registration/internal/pkg/expiring"
)

const stageKeyPrefix = "stage:"

// Config bounds code issuance and verification.
type Config struct {
	StageTTL      time.Duration
	MaxAttempts   int
	SendCeiling   int
	ResendCeiling int
	RateWindow    time.Duration
}

// MismatchError reports a wrong code together with how many more wrong codes are
// tolerated before the stage is locked.
type MismatchError struct {
	Remaining int
}

func (e *MismatchError) Error() string {
	return fmt.Sprintf("code mismatch, %d attempts remaining", e.Remaining)
}

func (e *MismatchError) Unwrap() error { return domain.ErrCodeMismatch }

type Service interface {
	// Issue generates a fresh code for email, counting it against the send ceiling.
	Issue(ctx context.Context, email string) (string, error)
	// Stage stores st under its email for the stage TTL, resetting attempts.
	// Wrong codes are counted under a separate key so concurrent guesses
	// cannot overwrite each other's count.
	Stage(ctx context.Context, st *domain.StagedRegistration) error
	Verify(ctx context.Context, email, code string) (*domain.StagedRegistration, error)
	Resend(ctx context.Context, email string) (*domain.StagedRegistration, error)
	Discard(ctx context.Context, email string) error
}

type service struct {
	store expiring.Store
	cfg   Config
	now   func() time.Time
}

type ServiceDeps struct {
	Store  expiring.Store
	Config Config
	Now    func() time.Time
}

func NewService(deps ServiceDeps) Service {
	now := deps.Now
	if now == nil {
		now = time.Now
	}
	return &service{store: deps.Store, cfg: deps.Config, now: now}
}

func (s *service) Issue(ctx context.Context, email string) (string, error) {
	if err := s.hit(ctx, sendKey(email), s.cfg.SendCeiling); err != nil {
		return "", err
	}
	code, err := NewCode()
	if err != nil {
		return "", err
	}
	metrics.CodesIssued.WithLabelValues("begin").Inc()
	return code, nil
}

func (s *service) Stage(ctx context.Context, st *domain.StagedRegistration) error {
	now := s.now().UTC()
	st.Email = domain.NormalizeEmail(st.Email)
	if st.CreatedAt.IsZero() {
		st.CreatedAt = now
	}
	st.Attempts = 0
	st.ExpiresAt = now.Add(s.cfg.StageTTL)
	if err := s.store.Delete(ctx, attemptsKey(st.Email)); err != nil {
		return fmt.Errorf("reset attempts: %w: %w", domain.ErrFatal, err)
	}
	return s.save(ctx, st, s.cfg.StageTTL)
}

func (s *service) Verify(ctx context.Context, email, code string) (*domain.StagedRegistration, error) {
	st, err := s.load(ctx, email)
	if err != nil {
		metrics.VerifyOutcomes.WithLabelValues(domain.Kind(err)).Inc()
		return nil, err
	}
	if subtle.ConstantTimeCompare([]byte(st.Code), []byte(code)) == 1 {
		metrics.VerifyOutcomes.WithLabelValues("ok").Inc()
		return st, nil
	}

	remaining := st.ExpiresAt.Sub(s.now())
	if remaining <= 0 {
		metrics.VerifyOutcomes.WithLabelValues("not_found").Inc()
		return nil, fmt.Errorf("stage expired: %w", domain.ErrStageNotFound)
	}
	n, err := s.store.Incr(ctx, attemptsKey(st.Email), remaining)
	if err != nil {
		return nil, fmt.Errorf("count attempt: %w: %w", domain.ErrFatal, err)
	}
	st.Attempts = int(n)
	if st.Attempts > s.cfg.MaxAttempts {
		// The counter stays until the stage would have expired, so guesses
		// already in flight also see the lockout.
		if err := s.store.Delete(ctx, stageKey(st.Email)); err != nil {
			return nil, fmt.Errorf("discard locked stage: %w: %w", domain.ErrFatal, err)
		}
		slog.Warn("pending registration locked", "email_hash", domain.EmailHash(st.Email), "attempts", st.Attempts)
		metrics.VerifyOutcomes.WithLabelValues("locked").Inc()
		return nil, fmt.Errorf("%d wrong codes: %w", st.Attempts, domain.ErrLocked)
	}
	metrics.VerifyOutcomes.WithLabelValues("mismatch").Inc()
	return nil, &MismatchError{Remaining: s.cfg.MaxAttempts - st.Attempts}
}

func (s *service) Resend(ctx context.Context, email string) (*domain.StagedRegistration, error) {
	st, err := s.load(ctx, email)
	if err != nil {
		return nil, err
	}
	if err := s.hit(ctx, resendKey(email), s.cfg.ResendCeiling); err != nil {
		return nil, err
	}
	code, err := NewCode()
	if err != nil {
		return nil, err
	}
	st.Code = code
	if err := s.Stage(ctx, st); err != nil {
		return nil, err
	}
	metrics.CodesIssued.WithLabelValues("resend").Inc()
	return st, nil
}

func (s *service) Discard(ctx context.Context, email string) error {
	if err := s.store.Delete(ctx, stageKey(email)); err != nil {
		return err
	}
	return s.store.Delete(ctx, attemptsKey(email))
}

func (s *service) load(ctx context.Context, email string) (*domain.StagedRegistration, error) {
	st, err := expiring.GetJSON[domain.StagedRegistration](ctx, s.store, stageKey(email))
	if errors.Is(err, domain.ErrNotFound) {
		return nil, fmt.Errorf("no stage for email: %w", domain.ErrStageNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("load stage: %w: %w", domain.ErrFatal, err)
	}
	return st, nil
}

func (s *service) save(ctx context.Context, st *domain.StagedRegistration, ttl time.Duration) error {
	if err := expiring.PutJSON(ctx, s.store, stageKey(st.Email), st, ttl); err != nil {
		return fmt.Errorf("save stage: %w: %w", domain.ErrFatal, err)
	}
	return nil
}

// NewCode returns a uniformly random 6-digit code, zero-padded.
func NewCode() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(1_000_000))
	if err != nil {
		return "", fmt.Errorf("generate code: %w", err)
	}
	return fmt.Sprintf("%06d", n.Int64()), nil
}

func stageKey(email string) string {
	return stageKeyPrefix + domain.NormalizeEmail(email)
}

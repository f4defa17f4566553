package challenge

import (
	"context"
	"fmt"

	"github.com/exam-registration/internal/domain"
)

// Counters run on fixed windows: the first hit sets the expiry and later hits
// do not extend it.

func sendKey(email string) string     { return "rate:" + domain.EmailHash(email) }
func resendKey(email string) string   { return "rate:" + domain.EmailHash(email) + ":resend" }
func attemptsKey(email string) string { return "attempts:" + domain.NormalizeEmail(email) }

// hit counts one send against key, failing with ErrRateLimited once ceiling
// sends happened inside the current window.
func (s *service) hit(ctx context.Context, key string, ceiling int) error {
	n, err := s.store.Incr(ctx, key, s.cfg.RateWindow)
	if err != nil {
		return fmt.Errorf("count send: %w: %w", domain.ErrFatal, err)
	}
	if n > int64(ceiling) {
		return fmt.Errorf("%d codes sent inside %s: %w", ceiling, s.cfg.RateWindow, domain.ErrRateLimited)
	}
	return nil
}

package domain

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKind_WrappedSentinels(t *testing.T) {
	assert.Equal(t, "mismatch", Kind(fmt.Errorf("verify: %w", ErrCodeMismatch)))
	assert.Equal(t, "locked", Kind(ErrLocked))
	assert.Equal(t, "not_found", Kind(ErrStageNotFound))
	assert.Equal(t, "fatal", Kind(errors.New("boom")))
	assert.Equal(t, "", Kind(nil))
}

func TestKind_NoCapacityWinsOverTransientConflict(t *testing.T) {
	err := fmt.Errorf("%w: claim kept losing: %w", ErrNoCapacity, ErrTransientConflict)
	assert.Equal(t, "no_capacity", Kind(err))
	assert.True(t, errors.Is(err, ErrTransientConflict))
}

func TestSeatClaim_ClosesAtCapacity(t *testing.T) {
	c := SeatClaim{ExpectedCount: 18, MaxCapacity: 20}
	assert.Equal(t, SlotOpen, c.NextStatus())

	c.ExpectedCount = 19
	assert.Equal(t, 20, c.NextCount())
	assert.Equal(t, SlotFull, c.NextStatus())
}

func TestSlotSession_HasRoom(t *testing.T) {
	s := SlotSession{MaxCapacity: 2, CurrentCount: 1, Status: SlotOpen}
	assert.True(t, s.HasRoom())
	s.CurrentCount = 2
	assert.False(t, s.HasRoom())
	s.CurrentCount = 0
	s.Status = SlotFull
	assert.False(t, s.HasRoom())
}

func TestExamWindowConfig_Window(t *testing.T) {
	start, end := "2025-06-02", "2025-06-13"
	w, err := (&ExamWindowConfig{StartDate: &start, EndDate: &end}).Window()
	require.NoError(t, err)
	require.NotNil(t, w.Start)
	require.NotNil(t, w.End)
	assert.Equal(t, time.Date(2025, 6, 2, 0, 0, 0, 0, time.UTC), *w.Start)
	assert.True(t, w.Contains(time.Date(2025, 6, 13, 0, 0, 0, 0, time.UTC)))
	assert.False(t, w.Contains(time.Date(2025, 6, 14, 0, 0, 0, 0, time.UTC)))
}

func TestExamWindowConfig_WindowRejectsInvertedRange(t *testing.T) {
	start, end := "2025-06-13", "2025-06-02"
	_, err := (&ExamWindowConfig{StartDate: &start, EndDate: &end}).Window()
	assert.True(t, errors.Is(err, ErrBadRequest))
}

func TestExamWindowConfig_NilIsUnbounded(t *testing.T) {
	var c *ExamWindowConfig
	w, err := c.Window()
	require.NoError(t, err)
	assert.Nil(t, w.Start)
	assert.Nil(t, w.End)
}

func TestAccount_Abandoned(t *testing.T) {
	now := time.Date(2025, 6, 2, 12, 0, 0, 0, time.UTC)
	a := &Account{CreatedAt: now.Add(-time.Hour), UpdatedAt: now.Add(-21 * time.Minute)}
	assert.True(t, a.Abandoned(now, 20*time.Minute))

	a.UpdatedAt = now.Add(-19 * time.Minute)
	assert.False(t, a.Abandoned(now, 20*time.Minute))

	a.UpdatedAt = now.Add(-21 * time.Minute)
	assert.True(t, a.Abandoned(now, 20*time.Minute))

	verifiedAt := now
	a.EmailVerifiedAt = &verifiedAt
	assert.False(t, a.Abandoned(now, 20*time.Minute))
}

func TestNormalizeEmail(t *testing.T) {
	assert.Equal(t, "a@x.com", NormalizeEmail("  A@X.com "))
}

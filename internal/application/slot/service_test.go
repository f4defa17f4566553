package slot

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"

	"github.com/exam-registration/internal/domain"
	"github.com/exam-registration/internal/infrastructure/memory"
)

func day(s string) time.Time {
	t, err := domain.ParseDate(s)
	if err != nil {
		panic(err)
	}
	return t
}

func window(start, end string) domain.ExamWindow {
	s, e := day(start), day(end)
	return domain.ExamWindow{Start: &s, End: &e}
}

func newTestService(retries int) (Service, *memory.SlotRepo) {
	repo := memory.New().Slots()
	return NewService(ServiceDeps{SlotRepo: repo, Retries: retries}), repo
}

func juneRequest() Request {
	return Request{
		From:        time.Date(2025, 6, 2, 10, 30, 0, 0, time.UTC),
		Window:      window("2025-06-02", "2025-06-13"),
		SeatsPerDay: 40,
	}
}

func TestReserveSeat_FirstBookableDayMorning(t *testing.T) {
	ctx := context.Background()
	svc, repo := newTestService(3)

	got, err := svc.ReserveSeat(ctx, juneRequest())
	require.NoError(t, err)
	assert.Equal(t, &domain.SeatAssignment{ExamDate: "2025-06-04", Session: domain.SessionMorning}, got)

	rows, err := repo.ListByDate(ctx, "2025-06-04")
	require.NoError(t, err)
	require.Len(t, rows, 2)
	for _, r := range rows {
		assert.Equal(t, 20, r.MaxCapacity)
	}
	assert.Equal(t, 1, rows[0].CurrentCount)
	assert.Equal(t, 0, rows[1].CurrentCount)
}

func TestReserveSeat_MorningFullGoesToAfternoon(t *testing.T) {
	ctx := context.Background()
	svc, repo := newTestService(3)
	req := juneRequest()
	req.Preferred = &Preference{Date: day("2025-06-04"), Session: domain.SessionMorning}

	for i := 0; i < 20; i++ {
		got, err := svc.ReserveSeat(ctx, req)
		require.NoError(t, err)
		require.Equal(t, domain.SessionMorning, got.Session)
	}
	morning, err := repo.Get(ctx, "2025-06-04", domain.SessionMorning)
	require.NoError(t, err)
	assert.Equal(t, 20, morning.CurrentCount)
	assert.Equal(t, domain.SlotFull, morning.Status)

	got, err := svc.ReserveSeat(ctx, req)
	require.NoError(t, err)
	assert.Equal(t, &domain.SeatAssignment{ExamDate: "2025-06-04", Session: domain.SessionAfternoon}, got)
}

func TestReserveSeat_HonorsBookablePreference(t *testing.T) {
	svc, _ := newTestService(3)
	req := juneRequest()
	req.Preferred = &Preference{Date: day("2025-06-10"), Session: domain.SessionAfternoon}

	got, err := svc.ReserveSeat(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, &domain.SeatAssignment{ExamDate: "2025-06-10", Session: domain.SessionAfternoon}, got)
}

func fill(t *testing.T, svc Service, date string, session domain.SessionType, n int) {
	t.Helper()
	req := juneRequest()
	req.Preferred = &Preference{Date: day(date), Session: session}
	for i := 0; i < n; i++ {
		got, err := svc.ReserveSeat(context.Background(), req)
		require.NoError(t, err)
		require.Equal(t, &domain.SeatAssignment{ExamDate: date, Session: session}, got)
	}
}

func TestReserveSeat_FullPreferredSessionFallsToOtherSessionSameDay(t *testing.T) {
	svc, repo := newTestService(3)
	fill(t, svc, "2025-06-10", domain.SessionMorning, 20)

	req := juneRequest()
	req.Preferred = &Preference{Date: day("2025-06-10"), Session: domain.SessionMorning}
	got, err := svc.ReserveSeat(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, &domain.SeatAssignment{ExamDate: "2025-06-10", Session: domain.SessionAfternoon}, got)

	rows, err := repo.ListByDate(context.Background(), "2025-06-04")
	require.NoError(t, err)
	assert.Empty(t, rows)
}

func TestReserveSeat_FullPreferredAfternoonFallsToMorningSameDay(t *testing.T) {
	svc, _ := newTestService(3)
	fill(t, svc, "2025-06-10", domain.SessionAfternoon, 20)

	req := juneRequest()
	req.Preferred = &Preference{Date: day("2025-06-10"), Session: domain.SessionAfternoon}
	got, err := svc.ReserveSeat(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, &domain.SeatAssignment{ExamDate: "2025-06-10", Session: domain.SessionMorning}, got)
}

func TestReserveSeat_FullPreferredDateSearchesForwardFromIt(t *testing.T) {
	svc, repo := newTestService(3)
	fill(t, svc, "2025-06-10", domain.SessionMorning, 20)
	fill(t, svc, "2025-06-10", domain.SessionAfternoon, 20)

	req := juneRequest()
	req.Preferred = &Preference{Date: day("2025-06-10"), Session: domain.SessionMorning}
	got, err := svc.ReserveSeat(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, &domain.SeatAssignment{ExamDate: "2025-06-11", Session: domain.SessionMorning}, got)
	assert.Equal(t, 4, repo.Len())
}

func TestReserveSeat_FullPreferredFridaySkipsWeekend(t *testing.T) {
	svc, _ := newTestService(3)
	fill(t, svc, "2025-06-06", domain.SessionMorning, 20)
	fill(t, svc, "2025-06-06", domain.SessionAfternoon, 20)

	req := juneRequest()
	req.Preferred = &Preference{Date: day("2025-06-06"), Session: domain.SessionAfternoon}
	got, err := svc.ReserveSeat(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, &domain.SeatAssignment{ExamDate: "2025-06-09", Session: domain.SessionMorning}, got)
}

func TestReserveSeat_FullPreferredLastDayExhaustsWindow(t *testing.T) {
	svc, _ := newTestService(3)
	fill(t, svc, "2025-06-13", domain.SessionMorning, 20)
	fill(t, svc, "2025-06-13", domain.SessionAfternoon, 20)

	req := juneRequest()
	req.Preferred = &Preference{Date: day("2025-06-13"), Session: domain.SessionMorning}
	_, err := svc.ReserveSeat(context.Background(), req)
	assert.True(t, errors.Is(err, domain.ErrNoCapacity))
}

func TestReserveSeat_IgnoresUnbookablePreference(t *testing.T) {
	cases := map[string]*Preference{
		"weekend":         {Date: day("2025-06-07"), Session: domain.SessionMorning},
		"outside window":  {Date: day("2025-06-20"), Session: domain.SessionMorning},
		"in the past":     {Date: day("2025-05-30"), Session: domain.SessionMorning},
		"unknown session": {Date: day("2025-06-10"), Session: "evening"},
	}
	for name, pref := range cases {
		t.Run(name, func(t *testing.T) {
			svc, _ := newTestService(3)
			req := juneRequest()
			req.Preferred = pref

			got, err := svc.ReserveSeat(context.Background(), req)
			require.NoError(t, err)
			assert.Equal(t, "2025-06-04", got.ExamDate)
			assert.Equal(t, domain.SessionMorning, got.Session)
		})
	}
}

func TestReserveSeat_WindowExhaustedLeavesNoRowsBeyondEnd(t *testing.T) {
	ctx := context.Background()
	svc, repo := newTestService(3)
	req := Request{
		From:        time.Date(2025, 6, 2, 9, 0, 0, 0, time.UTC),
		Window:      window("2025-06-02", "2025-06-04"),
		SeatsPerDay: 2,
	}

	for i := 0; i < 2; i++ {
		_, err := svc.ReserveSeat(ctx, req)
		require.NoError(t, err)
	}
	_, err := svc.ReserveSeat(ctx, req)
	assert.True(t, errors.Is(err, domain.ErrNoCapacity))
	assert.Equal(t, 2, repo.Len())
	assert.Equal(t, 2, repo.Seated())
}

func TestReserveSeat_ZeroSessionCapacityCreatesNothing(t *testing.T) {
	svc, repo := newTestService(3)
	req := juneRequest()
	req.SeatsPerDay = 1

	_, err := svc.ReserveSeat(context.Background(), req)
	assert.True(t, errors.Is(err, domain.ErrNoCapacity))
	assert.Equal(t, 0, repo.Len())
}

func TestReserveSeatWith_ExhaustedRetriesReportNoCapacity(t *testing.T) {
	svc, _ := newTestService(3)
	var calls int32
	alwaysLose := func(context.Context, domain.SeatClaim) error {
		atomic.AddInt32(&calls, 1)
		return domain.ErrTransientConflict
	}

	_, err := svc.ReserveSeatWith(context.Background(), juneRequest(), alwaysLose)
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrNoCapacity))
	assert.True(t, errors.Is(err, domain.ErrTransientConflict))
	assert.Equal(t, "no_capacity", domain.Kind(err))
	assert.Equal(t, int32(4), atomic.LoadInt32(&calls))
}

func TestReserveSeatWith_ExhaustedRetriesStopTheSearch(t *testing.T) {
	ctx := context.Background()
	svc, repo := newTestService(2)
	var claimed []domain.SeatClaim
	alwaysLose := func(_ context.Context, c domain.SeatClaim) error {
		claimed = append(claimed, c)
		return domain.ErrTransientConflict
	}

	_, err := svc.ReserveSeatWith(ctx, juneRequest(), alwaysLose)
	assert.True(t, errors.Is(err, domain.ErrNoCapacity))

	require.Len(t, claimed, 3)
	for _, c := range claimed {
		assert.Equal(t, "2025-06-04", c.ExamDate)
		assert.Equal(t, domain.SessionMorning, c.Session)
	}
	afternoon, err := repo.Get(ctx, "2025-06-04", domain.SessionAfternoon)
	require.NoError(t, err)
	assert.Equal(t, 0, afternoon.CurrentCount)
	assert.Equal(t, domain.SlotOpen, afternoon.Status)
	assert.Equal(t, 2, repo.Len())
}

func TestReserveSeatWith_PropagatesOtherClaimErrors(t *testing.T) {
	svc, _ := newTestService(3)
	failed := func(context.Context, domain.SeatClaim) error {
		return domain.ErrAlreadyVerified
	}

	_, err := svc.ReserveSeatWith(context.Background(), juneRequest(), failed)
	assert.True(t, errors.Is(err, domain.ErrAlreadyVerified))
}

func TestReserveSeat_ConcurrentCommitsNeverOverbook(t *testing.T) {
	ctx := context.Background()
	// Each session holds 10 seats, so 10 retries always outlast the races on one session.
	svc, repo := newTestService(10)
	req := Request{
		From:        time.Date(2025, 6, 2, 9, 0, 0, 0, time.UTC),
		Window:      window("2025-06-02", "2025-06-05"),
		SeatsPerDay: 20,
	}

	var reserved, rejected int32
	var g errgroup.Group
	for i := 0; i < 50; i++ {
		g.Go(func() error {
			_, err := svc.ReserveSeat(ctx, req)
			switch {
			case err == nil:
				atomic.AddInt32(&reserved, 1)
			case errors.Is(err, domain.ErrNoCapacity):
				atomic.AddInt32(&rejected, 1)
			default:
				return err
			}
			return nil
		})
	}
	require.NoError(t, g.Wait())

	assert.Equal(t, int32(40), reserved)
	assert.Equal(t, int32(10), rejected)
	assert.Equal(t, 40, repo.Seated())
	for _, date := range []string{"2025-06-04", "2025-06-05"} {
		rows, err := repo.ListByDate(ctx, date)
		require.NoError(t, err)
		for _, r := range rows {
			assert.LessOrEqual(t, r.CurrentCount, r.MaxCapacity)
			assert.Equal(t, domain.SlotFull, r.Status)
		}
	}
}

func TestListDay_RejectsMalformedDate(t *testing.T) {
	svc, _ := newTestService(3)
	_, err := svc.ListDay(context.Background(), "June 4")
	assert.True(t, errors.Is(err, domain.ErrBadRequest))
}

package registration

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/exam-registration/internal/application/challenge"
	"github.com/exam-registration/internal/application/slot"
	"github.com/exam-registration/internal/domain"
	"github.com/exam-registration/internal/infrastructure/memory"
	"github.com/exam-registration/internal/pkg/expiring"
)

type fakeClock struct{ t time.Time }

func (c *fakeClock) now() time.Time          { return c.t }
func (c *fakeClock) advance(d time.Duration) { c.t = c.t.Add(d) }

func newClock() *fakeClock {
	return &fakeClock{t: time.Date(2025, 6, 2, 10, 0, 0, 0, time.UTC)}
}

func newChallenge(clk *fakeClock) challenge.Service {
	return challenge.NewService(challenge.ServiceDeps{
		Store: expiring.NewMemoryStore(expiring.WithClock(clk.now)),
		Config: challenge.Config{
			StageTTL:      20 * time.Minute,
			MaxAttempts:   5,
			SendCeiling:   20,
			ResendCeiling: 3,
			RateWindow:    time.Hour,
		},
		Now: clk.now,
	})
}

func validPayload(email string) *domain.ApplicantPayload {
	return &domain.ApplicantPayload{
		Email:            email,
		Username:         "juan",
		Password:         "correct horse",
		FirstName:        "Juan",
		LastName:         "Dela Cruz",
		Sex:              "male",
		Birthday:         "2007-03-14",
		Phone:            "09171234567",
		Address:          domain.Address{City: "Quezon City", Province: "Metro Manila"},
		School:           "Rizal High School",
		PreferredCourses: []string{"BSCS"},
		ProfileImage:     []byte{0x89, 'P', 'N', 'G'},
		ProfileImageType: "image/png",
	}
}

// --- mocks ---

type mockAccountStore struct{ mock.Mock }

func (m *mockAccountStore) GetByEmail(ctx context.Context, email string) (*domain.Account, error) {
	args := m.Called(ctx, email)
	if a, _ := args.Get(0).(*domain.Account); a != nil {
		return a, args.Error(1)
	}
	return nil, args.Error(1)
}
func (m *mockAccountStore) Create(ctx context.Context, a *domain.Account) error {
	return m.Called(ctx, a).Error(0)
}
func (m *mockAccountStore) Refresh(ctx context.Context, a *domain.Account) error {
	return m.Called(ctx, a).Error(0)
}
func (m *mockAccountStore) DeleteUnverified(ctx context.Context, email string) error {
	return m.Called(ctx, email).Error(0)
}

type mockWindowReader struct{ mock.Mock }

func (m *mockWindowReader) Get(ctx context.Context) (*domain.ExamWindowConfig, error) {
	args := m.Called(ctx)
	if c, _ := args.Get(0).(*domain.ExamWindowConfig); c != nil {
		return c, args.Error(1)
	}
	return nil, args.Error(1)
}

type mockMailer struct{ mock.Mock }

func (m *mockMailer) SendCode(ctx context.Context, to, name, code string) error {
	return m.Called(ctx, to, name, code).Error(0)
}

// --- fakes ---

// recordingMailer remembers the last code sent to each address.
type recordingMailer struct {
	mu    sync.Mutex
	codes map[string]string
}

func (m *recordingMailer) SendCode(_ context.Context, to, _, code string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.codes == nil {
		m.codes = make(map[string]string)
	}
	m.codes[to] = code
	return nil
}

type recordingNotifier struct {
	mu     sync.Mutex
	events []domain.UnassignedEvent
}

func (n *recordingNotifier) NotifyUnassigned(_ context.Context, ev domain.UnassignedEvent) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.events = append(n.events, ev)
	return nil
}

func (n *recordingNotifier) count() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.events)
}

// flakyUnitOfWork fails the first failures commits. When applyFirst is set the
// write still lands, as if only the acknowledgement was lost.
type flakyUnitOfWork struct {
	inner      unitOfWork
	mu         sync.Mutex
	failures   int
	applyFirst bool
}

func (u *flakyUnitOfWork) CommitRegistration(ctx context.Context, c domain.RegistrationCommit) error {
	u.mu.Lock()
	fail := u.failures > 0
	if fail {
		u.failures--
	}
	u.mu.Unlock()
	if !fail {
		return u.inner.CommitRegistration(ctx, c)
	}
	if u.applyFirst {
		if err := u.inner.CommitRegistration(ctx, c); err != nil {
			return err
		}
	}
	return domain.ErrFatal
}

// harness wires the workflow over the in-memory backends.
type harness struct {
	svc      Service
	clk      *fakeClock
	store    *memory.Store
	blobs    *memory.BlobStore
	mailer   *recordingMailer
	notifier *recordingNotifier
	uow      *flakyUnitOfWork
}

func newHarness(t *testing.T, cfg *domain.ExamWindowConfig, retries int) *harness {
	t.Helper()
	clk := newClock()
	store := memory.New()
	if cfg != nil {
		require.NoError(t, store.ExamWindow().Put(context.Background(), cfg))
	}
	h := &harness{
		clk:      clk,
		store:    store,
		blobs:    memory.NewBlobStore(),
		mailer:   &recordingMailer{},
		notifier: &recordingNotifier{},
		uow:      &flakyUnitOfWork{inner: store.UnitOfWork()},
	}
	h.svc = NewService(ServiceDeps{
		Challenge:          newChallenge(clk),
		AccountRepo:        store.Accounts(),
		WindowRepo:         store.ExamWindow(),
		UnitOfWork:         h.uow,
		Images:             h.blobs,
		Mailer:             h.mailer,
		Notifier:           h.notifier,
		Slots:              slot.NewService(slot.ServiceDeps{SlotRepo: store.Slots(), Retries: retries, Now: clk.now}),
		StageTTL:           20 * time.Minute,
		DefaultSeatsPerDay: 40,
		BcryptCost:         bcrypt.MinCost,
		Now:                clk.now,
	})
	return h
}

func juneWindow(start, end string, seats int) *domain.ExamWindowConfig {
	return &domain.ExamWindowConfig{
		StartDate:        &start,
		EndDate:          &end,
		SeatsPerDay:      seats,
		RegistrationOpen: true,
	}
}

// begin stages p and returns the delivered code.
func (h *harness) begin(t *testing.T, p *domain.ApplicantPayload) string {
	t.Helper()
	pending, err := h.svc.Begin(context.Background(), p)
	require.NoError(t, err)
	return pending.Code
}

package registration

import (
	"context"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/exam-registration/internal/application/challenge"
	"github.com/exam-registration/internal/application/slot"
	"github.com/exam-registration/internal/domain"
)

// Pending is what begin and resend hand back. Code is only for delivery and
// is never serialised unless the caller opts in.
type Pending struct {
	Email     string    `json:"email"`
	ExpiresAt time.Time `json:"expires_at"`
	Code      string    `json:"-"`
}

// Completed is the outcome of a commit. Assigned is false when no seat was found.
type Completed struct {
	Registration *domain.Registration `json:"registration"`
	Assigned     bool                 `json:"assigned"`
}

type Service interface {
	// Begin stages a submission and returns the code to deliver.
	Begin(ctx context.Context, p *domain.ApplicantPayload) (*Pending, error)
	Resend(ctx context.Context, email string) (*Pending, error)
	// Verify checks a code without committing.
	Verify(ctx context.Context, email, code string) error
	// Commit promotes a verified stage into an account, profile, registration and seat.
	Commit(ctx context.Context, email, code string) (*Completed, error)
}

type accountStore interface {
	GetByEmail(ctx context.Context, email string) (*domain.Account, error)
	Create(ctx context.Context, a *domain.Account) error
	Refresh(ctx context.Context, a *domain.Account) error
	DeleteUnverified(ctx context.Context, email string) error
}

type windowReader interface {
	Get(ctx context.Context) (*domain.ExamWindowConfig, error)
}

type unitOfWork interface {
	CommitRegistration(ctx context.Context, c domain.RegistrationCommit) error
}

type imageStore interface {
	Put(ctx context.Context, key string, data []byte, contentType string) error
}

type mailer interface {
	SendCode(ctx context.Context, to, name, code string) error
}

type notifier interface {
	NotifyUnassigned(ctx context.Context, ev domain.UnassignedEvent) error
}

type seatReserver interface {
	ReserveSeatWith(ctx context.Context, req slot.Request, claim slot.ClaimFunc) (*domain.SeatAssignment, error)
}

type service struct {
	challenge    challenge.Service
	accounts     accountStore
	windows      windowReader
	uow          unitOfWork
	images       imageStore
	mailer       mailer
	notifier     notifier
	slots        seatReserver
	stageTTL     time.Duration
	defaultSeats int
	bcryptCost   int
	now          func() time.Time
}

type ServiceDeps struct {
	Challenge   challenge.Service
	AccountRepo accountStore
	WindowRepo  windowReader
	UnitOfWork  unitOfWork
	Images      imageStore
	Mailer      mailer
	Notifier    notifier
	Slots       seatReserver
	// StageTTL is also the age after which an unverified shadow account is abandoned.
	StageTTL           time.Duration
	DefaultSeatsPerDay int
	BcryptCost         int
	Now                func() time.Time
}

func NewService(deps ServiceDeps) Service {
	now := deps.Now
	if now == nil {
		now = time.Now
	}
	cost := deps.BcryptCost
	if cost == 0 {
		cost = bcrypt.DefaultCost
	}
	return &service{
		challenge:    deps.Challenge,
		accounts:     deps.AccountRepo,
		windows:      deps.WindowRepo,
		uow:          deps.UnitOfWork,
		images:       deps.Images,
		mailer:       deps.Mailer,
		notifier:     deps.Notifier,
		slots:        deps.Slots,
		stageTTL:     deps.StageTTL,
		defaultSeats: deps.DefaultSeatsPerDay,
		bcryptCost:   cost,
		now:          now,
	}
}

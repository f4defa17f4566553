package main

import (
	"context"

	"github.com/exam-registration/internal/domain"
	transporthttp "github.com/exam-registration/internal/transport/http"
)

type accountRepo interface {
	GetByEmail(ctx context.Context, email string) (*domain.Account, error)
	Create(ctx context.Context, a *domain.Account) error
	Refresh(ctx context.Context, a *domain.Account) error
	DeleteUnverified(ctx context.Context, email string) error
}

type windowRepo interface {
	Get(ctx context.Context) (*domain.ExamWindowConfig, error)
	Put(ctx context.Context, cfg *domain.ExamWindowConfig) error
}

type unitOfWork interface {
	CommitRegistration(ctx context.Context, c domain.RegistrationCommit) error
}

type slotRepo interface {
	Get(ctx context.Context, date string, session domain.SessionType) (*domain.SlotSession, error)
	CreateIfAbsent(ctx context.Context, s *domain.SlotSession) error
	ClaimSeat(ctx context.Context, claim domain.SeatClaim) error
	ListByDate(ctx context.Context, date string) ([]domain.SlotSession, error)
}

type imageWriter interface {
	Put(ctx context.Context, key string, data []byte, contentType string) error
}

type unassignedNotifier interface {
	NotifyUnassigned(ctx context.Context, ev domain.UnassignedEvent) error
}

// durable is the set of stores the workflow needs, backed by one engine.
type durable struct {
	accounts      accountRepo
	windows       windowRepo
	uow           unitOfWork
	slots         slotRepo
	registrations transporthttp.RegistrationReader
}

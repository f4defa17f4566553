package http

import (
	"context"

	"github.com/exam-registration/internal/application/examwindow"
	"github.com/exam-registration/internal/application/registration"
	"github.com/exam-registration/internal/domain"
	jwtinfra "github.com/exam-registration/internal/infrastructure/jwt"
)

// SlotLister is the minimal interface the router requires from the slot service.
type SlotLister interface {
	ListDay(ctx context.Context, date string) ([]domain.SlotSession, error)
}

// TokenVerifier checks operator bearer tokens.
type TokenVerifier interface {
	Verify(tokenStr string) (*jwtinfra.Claims, error)
}

// RegistrationReader is the read side of committed registrations.
type RegistrationReader interface {
	Get(ctx context.Context, id string) (*domain.Registration, error)
	ListByAccount(ctx context.Context, accountID string) ([]domain.Registration, error)
}

// ImageReader fetches stored profile photos.
type ImageReader interface {
	Get(ctx context.Context, key string) ([]byte, string, error)
}

// Deps holds the application services the router exposes.
type Deps struct {
	Registration  registration.Service
	ExamWindow    examwindow.Service
	Slots         SlotLister
	Registrations RegistrationReader
	Images        ImageReader
	// Tokens may be nil, in which case admin routes are not mounted.
	Tokens TokenVerifier
}

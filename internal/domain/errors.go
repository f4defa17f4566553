package domain

import "errors"

// Sentinel errors for domain-level error discrimination.
// Services wrap these so handlers can map to HTTP status codes without leaking infrastructure details.
var (
	ErrNotFound     = errors.New("not found")
	ErrConflict     = errors.New("conflict")
	ErrUnauthorized = errors.New("unauthorized")
	ErrForbidden    = errors.New("forbidden")
	ErrBadRequest   = errors.New("bad request")
)

// Registration workflow outcomes. These are expected, user-facing results.
var (
	ErrRegistrationClosed     = errors.New("registration closed")
	ErrDuplicateVerifiedEmail = errors.New("email already registered")
	ErrRateLimited            = errors.New("rate limited")
	ErrExpired                = errors.New("registration expired")
	ErrAlreadyVerified        = errors.New("email already verified")
	ErrStageNotFound          = errors.New("no pending registration")
	ErrCodeMismatch           = errors.New("code mismatch")
	ErrLocked                 = errors.New("too many attempts")
	ErrNoCapacity             = errors.New("no exam capacity")
	ErrTransientConflict      = errors.New("transient conflict")
	ErrFatal                  = errors.New("fatal storage failure")
)

// kinds is ordered so the most specific outcome wins when an error wraps several
// sentinels (e.g. NoCapacity escalated from TransientConflict).
var kinds = []struct {
	err  error
	kind string
}{
	{ErrRegistrationClosed, "registration_closed"},
	{ErrDuplicateVerifiedEmail, "duplicate_verified_email"},
	{ErrRateLimited, "rate_limited"},
	{ErrExpired, "expired"},
	{ErrAlreadyVerified, "already_verified"},
	{ErrStageNotFound, "not_found"},
	{ErrCodeMismatch, "mismatch"},
	{ErrLocked, "locked"},
	{ErrNoCapacity, "no_capacity"},
	{ErrTransientConflict, "transient_conflict"},
	{ErrFatal, "fatal"},
	{ErrBadRequest, "bad_request"},
	{ErrUnauthorized, "unauthorized"},
	{ErrForbidden, "forbidden"},
	{ErrNotFound, "not_found"},
	{ErrConflict, "conflict"},
}

// Kind returns the stable machine-readable name of the outcome wrapped by err.
// Unknown errors report "fatal".
func Kind(err error) string {
	if err == nil {
		return ""
	}
	for _, k := range kinds {
		if errors.Is(err, k.err) {
			return k.kind
		}
	}
	return "fatal"
}

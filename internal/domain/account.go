package domain

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"time"
)

// Account is the login identity. PK: email (lower-cased), which also enforces uniqueness.
// A nil EmailVerifiedAt marks an unverified shadow account created by a pending registration.
type Account struct {
	Email           string     `json:"email" dynamodbav:"email"`
	AccountID       string     `json:"id" dynamodbav:"account_id"`
	Username        string     `json:"username" dynamodbav:"username"`
	PasswordHash    string     `json:"-" dynamodbav:"password_hash"`
	Role            string     `json:"role" dynamodbav:"role"`
	EmailVerifiedAt *time.Time `json:"email_verified_at,omitempty" dynamodbav:"email_verified_at,omitempty"`
	CreatedAt       time.Time  `json:"created" dynamodbav:"created_at"`
	UpdatedAt       time.Time  `json:"updated" dynamodbav:"updated_at"`
}

const (
	RoleApplicant = "applicant"
	RoleAdmin     = "admin"
)

// Verified reports whether the account can be used for login.
func (a *Account) Verified() bool { return a.EmailVerifiedAt != nil }

// Abandoned reports whether an unverified account outlived the staging window.
// Shadow accounts age from their last refresh, which each new begin performs.
func (a *Account) Abandoned(now time.Time, ttl time.Duration) bool {
	return !a.Verified() && now.Sub(a.UpdatedAt) > ttl
}

// NormalizeEmail lower-cases and trims an address so it can be used as a key.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// EmailHash is the hex sha256 of the normalized address, used in keys and logs
// wherever the clear address should not appear.
func EmailHash(email string) string {
	sum := sha256.Sum256([]byte(NormalizeEmail(email)))
	return hex.EncodeToString(sum[:])
}

// Package memory is a process-local durable store. Every write happens under one
// lock, so the registration unit of work is all-or-nothing exactly like the
// DynamoDB transaction it stands in for.
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/exam-registration/internal/domain"
)

type slotKey struct {
	date    string
	session domain.SessionType
}

type Store struct {
	mu            sync.Mutex
	accounts      map[string]domain.Account
	profiles      map[string]domain.ApplicantProfile
	registrations map[string]domain.Registration
	slots         map[slotKey]domain.SlotSession
	window        *domain.ExamWindowConfig
}

func New() *Store {
	return &Store{
		accounts:      make(map[string]domain.Account),
		profiles:      make(map[string]domain.ApplicantProfile),
		registrations: make(map[string]domain.Registration),
		slots:         make(map[slotKey]domain.SlotSession),
	}
}

func (s *Store) Accounts() *AccountRepo           { return &AccountRepo{s} }
func (s *Store) Slots() *SlotRepo                 { return &SlotRepo{s} }
func (s *Store) ExamWindow() *ExamWindowRepo      { return &ExamWindowRepo{s} }
func (s *Store) UnitOfWork() *UnitOfWork          { return &UnitOfWork{s} }
func (s *Store) Registrations() *RegistrationRepo { return &RegistrationRepo{s} }

// --- accounts ---

type AccountRepo struct{ s *Store }

func (r *AccountRepo) GetByEmail(_ context.Context, email string) (*domain.Account, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	a, ok := r.s.accounts[domain.NormalizeEmail(email)]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &a, nil
}

// Create stores a new account, failing with ErrConflict when the email is taken.
func (r *AccountRepo) Create(_ context.Context, a *domain.Account) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	email := domain.NormalizeEmail(a.Email)
	if _, ok := r.s.accounts[email]; ok {
		return fmt.Errorf("account %s: %w", domain.EmailHash(email), domain.ErrConflict)
	}
	cp := *a
	cp.Email = email
	r.s.accounts[email] = cp
	return nil
}

// Refresh overwrites an unverified account's credentials and restarts its age.
func (r *AccountRepo) Refresh(_ context.Context, a *domain.Account) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	email := domain.NormalizeEmail(a.Email)
	cur, ok := r.s.accounts[email]
	if !ok {
		return domain.ErrNotFound
	}
	if cur.Verified() {
		return fmt.Errorf("refresh verified account: %w", domain.ErrConflict)
	}
	cur.Username = a.Username
	cur.PasswordHash = a.PasswordHash
	cur.UpdatedAt = a.UpdatedAt
	r.s.accounts[email] = cur
	a.AccountID = cur.AccountID
	a.CreatedAt = cur.CreatedAt
	return nil
}

// DeleteUnverified removes a shadow account. Verified accounts are never removed.
func (r *AccountRepo) DeleteUnverified(_ context.Context, email string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	email = domain.NormalizeEmail(email)
	cur, ok := r.s.accounts[email]
	if !ok {
		return nil
	}
	if cur.Verified() {
		return fmt.Errorf("delete verified account: %w", domain.ErrConflict)
	}
	delete(r.s.accounts, email)
	return nil
}

// --- registrations ---

type RegistrationRepo struct{ s *Store }

func (r *RegistrationRepo) Get(_ context.Context, id string) (*domain.Registration, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	reg, ok := r.s.registrations[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &reg, nil
}

func (r *RegistrationRepo) ListByAccount(_ context.Context, accountID string) ([]domain.Registration, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []domain.Registration
	for _, reg := range r.s.registrations {
		if reg.AccountID == accountID {
			out = append(out, reg)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].RegistrationID < out[j].RegistrationID })
	return out, nil
}

// Count returns how many registrations are stored.
func (r *RegistrationRepo) Count() int {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	return len(r.s.registrations)
}

// --- slots ---

type SlotRepo struct{ s *Store }

func (r *SlotRepo) Get(_ context.Context, date string, session domain.SessionType) (*domain.SlotSession, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	slot, ok := r.s.slots[slotKey{date, session}]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &slot, nil
}

func (r *SlotRepo) CreateIfAbsent(_ context.Context, slot *domain.SlotSession) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	k := slotKey{slot.ExamDate, slot.Session}
	if _, ok := r.s.slots[k]; ok {
		return fmt.Errorf("slot %s/%s: %w", slot.ExamDate, slot.Session, domain.ErrConflict)
	}
	r.s.slots[k] = *slot
	return nil
}

func (r *SlotRepo) ClaimSeat(_ context.Context, claim domain.SeatClaim) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.checkClaim(claim); err != nil {
		return err
	}
	r.s.applyClaim(claim)
	return nil
}

func (r *SlotRepo) ListByDate(_ context.Context, date string) ([]domain.SlotSession, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []domain.SlotSession
	for _, session := range domain.SessionOrder {
		if slot, ok := r.s.slots[slotKey{date, session}]; ok {
			out = append(out, slot)
		}
	}
	return out, nil
}

// Seated sums CurrentCount across every stored session.
func (r *SlotRepo) Seated() int {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	n := 0
	for _, slot := range r.s.slots {
		n += slot.CurrentCount
	}
	return n
}

// Len returns the number of stored session rows.
func (r *SlotRepo) Len() int {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	return len(r.s.slots)
}

func (s *Store) checkClaim(claim domain.SeatClaim) error {
	slot, ok := s.slots[slotKey{claim.ExamDate, claim.Session}]
	if !ok || slot.CurrentCount != claim.ExpectedCount || slot.Status != domain.SlotOpen {
		return fmt.Errorf("claim %s: %w", claim, domain.ErrTransientConflict)
	}
	return nil
}

func (s *Store) applyClaim(claim domain.SeatClaim) {
	k := slotKey{claim.ExamDate, claim.Session}
	slot := s.slots[k]
	slot.CurrentCount = claim.NextCount()
	slot.Status = claim.NextStatus()
	s.slots[k] = slot
}

// --- exam window ---

type ExamWindowRepo struct{ s *Store }

func (r *ExamWindowRepo) Get(_ context.Context) (*domain.ExamWindowConfig, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if r.s.window == nil {
		return nil, domain.ErrNotFound
	}
	cp := *r.s.window
	return &cp, nil
}

func (r *ExamWindowRepo) Put(_ context.Context, cfg *domain.ExamWindowConfig) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	cp := *cfg
	cp.ConfigID = domain.ExamWindowConfigID
	r.s.window = &cp
	return nil
}

// --- unit of work ---

type UnitOfWork struct{ s *Store }

// CommitRegistration checks every condition before writing anything.
func (u *UnitOfWork) CommitRegistration(_ context.Context, c domain.RegistrationCommit) error {
	s := u.s
	s.mu.Lock()
	defer s.mu.Unlock()

	email := domain.NormalizeEmail(c.Account.Email)
	cur, ok := s.accounts[email]
	if !ok {
		return fmt.Errorf("account for commit: %w", domain.ErrExpired)
	}
	if cur.Verified() {
		return fmt.Errorf("account for commit: %w", domain.ErrAlreadyVerified)
	}
	if _, ok := s.profiles[c.Profile.ProfileID]; ok {
		return fmt.Errorf("profile %s exists: %w", c.Profile.ProfileID, domain.ErrFatal)
	}
	if _, ok := s.registrations[c.Registration.RegistrationID]; ok {
		return fmt.Errorf("registration %s exists: %w", c.Registration.RegistrationID, domain.ErrFatal)
	}
	if c.Seat != nil {
		if err := s.checkClaim(*c.Seat); err != nil {
			return err
		}
	}

	acc := *c.Account
	acc.Email = email
	s.accounts[email] = acc
	s.profiles[c.Profile.ProfileID] = *c.Profile
	s.registrations[c.Registration.RegistrationID] = *c.Registration
	if c.Seat != nil {
		s.applyClaim(*c.Seat)
	}
	return nil
}

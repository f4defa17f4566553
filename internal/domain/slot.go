package domain

import (
	"fmt"
	"time"
)

type SessionType string

const (
	SessionMorning   SessionType = "morning"
	SessionAfternoon SessionType = "afternoon"
)

// SessionOrder is the first-come-first-served preference order within a day.
var SessionOrder = []SessionType{SessionMorning, SessionAfternoon}

// Valid reports whether s is one of the two fixed sessions.
func (s SessionType) Valid() bool {
	return s == SessionMorning || s == SessionAfternoon
}

type SlotStatus string

const (
	SlotOpen SlotStatus = "open"
	SlotFull SlotStatus = "full"
)

// SlotSession is one sitting on one date. PK: exam_date, SK: session.
// CurrentCount never exceeds MaxCapacity and Status is full exactly when they meet.
type SlotSession struct {
	ExamDate     string      `json:"exam_date" dynamodbav:"exam_date"`
	Session      SessionType `json:"session" dynamodbav:"session"`
	MaxCapacity  int         `json:"max_capacity" dynamodbav:"max_capacity"`
	CurrentCount int         `json:"current_count" dynamodbav:"current_count"`
	Status       SlotStatus  `json:"status" dynamodbav:"status"`
	CreatedAt    time.Time   `json:"created" dynamodbav:"created_at"`
	UpdatedAt    time.Time   `json:"updated" dynamodbav:"updated_at"`
}

// HasRoom reports whether one more seat can be reserved.
func (s *SlotSession) HasRoom() bool {
	return s.Status == SlotOpen && s.CurrentCount < s.MaxCapacity
}

// Claim returns the conditional increment that reserves the next seat of s.
func (s *SlotSession) Claim() SeatClaim {
	return SeatClaim{
		ExamDate:      s.ExamDate,
		Session:       s.Session,
		ExpectedCount: s.CurrentCount,
		MaxCapacity:   s.MaxCapacity,
	}
}

// SeatClaim is a compare-and-swap on a SlotSession's CurrentCount. It only applies
// when the stored count still equals ExpectedCount and the session is open.
type SeatClaim struct {
	ExamDate      string
	Session       SessionType
	ExpectedCount int
	MaxCapacity   int
}

// NextCount is the count after the claim applies.
func (c SeatClaim) NextCount() int { return c.ExpectedCount + 1 }

// NextStatus is the status after the claim applies.
func (c SeatClaim) NextStatus() SlotStatus {
	if c.NextCount() >= c.MaxCapacity {
		return SlotFull
	}
	return SlotOpen
}

func (c SeatClaim) String() string {
	return fmt.Sprintf("%s/%s@%d", c.ExamDate, c.Session, c.ExpectedCount)
}

// SeatAssignment is the outcome of a successful reservation.
type SeatAssignment struct {
	ExamDate string      `json:"exam_date"`
	Session  SessionType `json:"session"`
}

// DateLayout is the civil-date format used for exam dates.
const DateLayout = "2006-01-02"

// ParseDate parses a YYYY-MM-DD civil date as UTC midnight.
func ParseDate(s string) (time.Time, error) {
	t, err := time.ParseInLocation(DateLayout, s, time.UTC)
	if err != nil {
		return time.Time{}, fmt.Errorf("date %q must be in YYYY-MM-DD format: %w", s, ErrBadRequest)
	}
	return t, nil
}

// FormatDate renders t as a civil date.
func FormatDate(t time.Time) string { return t.Format(DateLayout) }

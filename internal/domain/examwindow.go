package domain

import (
	"fmt"
	"time"
)

// ExamWindowConfigID is the fixed key of the singleton configuration row.
const ExamWindowConfigID = "current"

// ExamWindowConfig is the administrator-set scheduling configuration.
// Dates are optional civil dates (YYYY-MM-DD).
type ExamWindowConfig struct {
	ConfigID         string    `json:"-" dynamodbav:"config_id"`
	StartDate        *string   `json:"start_date,omitempty" dynamodbav:"start_date,omitempty"`
	EndDate          *string   `json:"end_date,omitempty" dynamodbav:"end_date,omitempty"`
	SeatsPerDay      int       `json:"seats_per_day" dynamodbav:"seats_per_day"`
	Message          string    `json:"message" dynamodbav:"message"`
	RegistrationOpen bool      `json:"registration_open" dynamodbav:"registration_open"`
	UpdatedAt        time.Time `json:"updated" dynamodbav:"updated_at"`
}

// ExamWindow is the parsed [Start, End] bound. Nil ends are unbounded.
type ExamWindow struct {
	Start *time.Time
	End   *time.Time
}

// Window parses the configured dates.
func (c *ExamWindowConfig) Window() (ExamWindow, error) {
	var w ExamWindow
	if c == nil {
		return w, nil
	}
	if c.StartDate != nil && *c.StartDate != "" {
		t, err := ParseDate(*c.StartDate)
		if err != nil {
			return w, fmt.Errorf("start_date: %w", err)
		}
		w.Start = &t
	}
	if c.EndDate != nil && *c.EndDate != "" {
		t, err := ParseDate(*c.EndDate)
		if err != nil {
			return w, fmt.Errorf("end_date: %w", err)
		}
		w.End = &t
	}
	if w.Start != nil && w.End != nil && w.End.Before(*w.Start) {
		return w, fmt.Errorf("end_date before start_date: %w", ErrBadRequest)
	}
	return w, nil
}

// Contains reports whether day falls inside the window.
func (w ExamWindow) Contains(day time.Time) bool {
	if w.Start != nil && day.Before(*w.Start) {
		return false
	}
	if w.End != nil && day.After(*w.End) {
		return false
	}
	return true
}

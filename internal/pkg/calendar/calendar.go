// Package calendar decides which civil dates may host an exam sitting.
//
// All functions are pure: the same inputs always yield the same date, and the
// only notion of "now" is the from argument supplied by the caller.
package calendar

import (
	"fmt"
	"time"

	"github.com/exam-registration/internal/domain"
)

// BufferDays separates a registration from its earliest possible sitting.
const BufferDays = 2

// ErrWindowExhausted means no eligible date remains before the window end.
var ErrWindowExhausted = fmt.Errorf("exam window exhausted: %w", domain.ErrNoCapacity)

// NextEligibleDate returns the first weekday at least BufferDays after from that
// lies inside w.
func NextEligibleDate(from time.Time, w domain.ExamWindow) (time.Time, error) {
	return Eligible(Day(from).AddDate(0, 0, BufferDays), w)
}

// Eligible returns the first eligible date on or after candidate, without any buffer.
func Eligible(candidate time.Time, w domain.ExamWindow) (time.Time, error) {
	day := skipWeekend(Day(candidate))
	if w.Start != nil && day.Before(*w.Start) {
		day = skipWeekend(Day(*w.Start))
	}
	if w.End != nil && day.After(Day(*w.End)) {
		return time.Time{}, ErrWindowExhausted
	}
	return day, nil
}

// IsEligible reports whether day itself may host a sitting.
func IsEligible(day time.Time, w domain.ExamWindow) bool {
	d := Day(day)
	return !IsWeekend(d) && w.Contains(d)
}

// IsWeekend reports whether t falls on a Saturday or Sunday.
func IsWeekend(t time.Time) bool {
	wd := t.Weekday()
	return wd == time.Saturday || wd == time.Sunday
}

// Day truncates t to midnight UTC of its own calendar date.
func Day(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func skipWeekend(day time.Time) time.Time {
	for IsWeekend(day) {
		day = day.AddDate(0, 0, 1)
	}
	return day
}

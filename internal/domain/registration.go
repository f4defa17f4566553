package domain

import "time"

type RegistrationStatus string

const (
	StatusRegistered RegistrationStatus = "registered"
	StatusAssigned   RegistrationStatus = "assigned"
	StatusCompleted  RegistrationStatus = "completed"
)

// Registration is an applicant's exam registration. Once Status is assigned,
// AssignedExamDate and AssignedSession are both set.
type Registration struct {
	RegistrationID    string             `json:"id" dynamodbav:"registration_id"`
	ProfileID         string             `json:"profile_id" dynamodbav:"profile_id"`
	AccountID         string             `json:"account_id" dynamodbav:"account_id"`
	Status            RegistrationStatus `json:"status" dynamodbav:"status"`
	PreferredExamDate string             `json:"preferred_exam_date,omitempty" dynamodbav:"preferred_exam_date"`
	PreferredSession  SessionType        `json:"preferred_session,omitempty" dynamodbav:"preferred_session"`
	AssignedExamDate  *string            `json:"assigned_exam_date,omitempty" dynamodbav:"assigned_exam_date,omitempty"`
	AssignedSession   *SessionType       `json:"assigned_session,omitempty" dynamodbav:"assigned_session,omitempty"`
	CreatedAt         time.Time          `json:"created" dynamodbav:"created_at"`
	UpdatedAt         time.Time          `json:"updated" dynamodbav:"updated_at"`
}

// Assign moves the registration to assigned with the given seat.
func (r *Registration) Assign(date string, session SessionType) {
	r.Status = StatusAssigned
	r.AssignedExamDate = &date
	r.AssignedSession = &session
}

// RegistrationCommit is the set of durable writes that promote a verified stage.
// It applies atomically: the account must still be unverified, and when Seat is
// set its compare-and-swap must hold, or nothing is written.
type RegistrationCommit struct {
	Account      *Account
	Profile      *ApplicantProfile
	Registration *Registration
	Seat         *SeatClaim
}

// UnassignedEvent tells the admin workflow that a committed registration found no seat.
type UnassignedEvent struct {
	RegistrationID string `json:"registrationId"`
	AccountID      string `json:"accountId"`
	PreferredDate  string `json:"preferredDate,omitempty"`
}

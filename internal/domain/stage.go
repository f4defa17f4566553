package domain

import "time"

// ApplicantPayload is everything the applicant submits when registration begins.
type ApplicantPayload struct {
	Email             string      `json:"email" validate:"required,email"`
	Username          string      `json:"username" validate:"required,min=3,max=40"`
	Password          string      `json:"password,omitempty" validate:"required,min=8,max=72"`
	FirstName         string      `json:"first_name" validate:"required"`
	MiddleName        string      `json:"middle_name"`
	LastName          string      `json:"last_name" validate:"required"`
	Suffix            string      `json:"suffix"`
	Sex               string      `json:"sex" validate:"required,oneof=male female"`
	Birthday          string      `json:"birthday" validate:"required,datetime=2006-01-02"`
	Phone             string      `json:"phone" validate:"required"`
	Address           Address     `json:"address"`
	School            string      `json:"school" validate:"required"`
	Strand            string      `json:"strand"`
	PreferredCourses  []string    `json:"preferred_courses" validate:"required,min=1,max=3,dive,required"`
	PreferredExamDate string      `json:"preferred_exam_date" validate:"omitempty,datetime=2006-01-02"`
	PreferredSession  SessionType `json:"preferred_session" validate:"omitempty,oneof=morning afternoon"`
	ProfileImage      []byte      `json:"profile_image" validate:"required,max=2097152"`
	ProfileImageType  string      `json:"profile_image_type" validate:"required,oneof=image/jpeg image/png"`
}

// StagedRegistration is a pending submission held in the expiring store until the
// emailed code is verified. One per lower-cased email.
type StagedRegistration struct {
	Email        string           `json:"email"`
	Payload      ApplicantPayload `json:"payload"`
	PasswordHash string           `json:"password_hash"`
	Code         string           `json:"code"`
	Attempts     int              `json:"attempts"`
	CreatedAt    time.Time        `json:"created_at"`
	ExpiresAt    time.Time        `json:"expires_at"`
}

// FullName joins the applicant's name parts for greetings.
func (p *ApplicantPayload) FullName() string {
	name := p.FirstName
	if p.MiddleName != "" {
		name += " " + p.MiddleName
	}
	name += " " + p.LastName
	if p.Suffix != "" {
		name += " " + p.Suffix
	}
	return name
}

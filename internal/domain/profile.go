package domain

import "time"

// ApplicantProfile holds the demographic fields of a verified applicant. 1:1 with Account.
// The profile image lives in blob storage under ImageKey.
type ApplicantProfile struct {
	ProfileID        string    `json:"id" dynamodbav:"profile_id"`
	AccountID        string    `json:"account_id" dynamodbav:"account_id"`
	FirstName        string    `json:"first_name" dynamodbav:"first_name"`
	MiddleName       string    `json:"middle_name,omitempty" dynamodbav:"middle_name"`
	LastName         string    `json:"last_name" dynamodbav:"last_name"`
	Suffix           string    `json:"suffix,omitempty" dynamodbav:"suffix"`
	Sex              string    `json:"sex" dynamodbav:"sex"`
	Birthday         string    `json:"birthday" dynamodbav:"birthday"`
	Phone            string    `json:"phone" dynamodbav:"phone"`
	Address          Address   `json:"address" dynamodbav:"address"`
	School           string    `json:"school" dynamodbav:"school"`
	Strand           string    `json:"strand,omitempty" dynamodbav:"strand"`
	PreferredCourses []string  `json:"preferred_courses" dynamodbav:"preferred_courses"`
	ImageKey         string    `json:"image_key,omitempty" dynamodbav:"image_key"`
	ImageContentType string    `json:"image_content_type,omitempty" dynamodbav:"image_content_type"`
	CreatedAt        time.Time `json:"created" dynamodbav:"created_at"`
}

type Address struct {
	Street   string `json:"street" dynamodbav:"street"`
	Barangay string `json:"barangay,omitempty" dynamodbav:"barangay"`
	City     string `json:"city" validate:"required" dynamodbav:"city"`
	Province string `json:"province" validate:"required" dynamodbav:"province"`
	ZipCode  string `json:"zip_code" dynamodbav:"zip_code"`
}

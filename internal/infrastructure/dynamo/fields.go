package dynamo

// DynamoDB attribute names used in key, update and condition expressions.
// Using constants prevents silent runtime bugs caused by key typos.
const (
	fieldEmail           = "email"
	fieldUsername        = "username"
	fieldPasswordHash    = "password_hash"
	fieldEmailVerifiedAt = "email_verified_at"
	fieldUpdatedAt       = "updated_at"
	fieldAccountID       = "account_id"
	fieldProfileID       = "profile_id"
	fieldRegistrationID  = "registration_id"
	fieldExamDate        = "exam_date"
	fieldSession         = "session"
	fieldCurrentCount    = "current_count"
	fieldStatus          = "status"
	fieldConfigID        = "config_id"
	fieldKey             = "key"
	fieldValue           = "value"
	fieldExpiresAt       = "expires_at"
	fieldExpiresAtMillis = "expires_at_ms"
	fieldParts           = "parts"
	fieldVersion         = "version"
	fieldCount           = "count"
)

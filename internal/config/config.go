package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all runtime configuration loaded from environment variables.
type Config struct {
	AppPort     string
	AppEnv      string
	ExposeCodes bool // include issued codes in API responses (non-production tooling)

	AWSRegion      string
	AWSEndpointURL string // empty in prod, set to LocalStack URL in dev
	AWSAccessKeyID string
	AWSSecretKey   string
	DynamoTables   DynamoTables
	S3BucketName   string

	DurableStore string // "dynamo" | "memory"
	StageStore   string // "memory" | "redis" | "dynamo"
	Redis        RedisConfig

	JWTPrivateKeyPath string
	JWTPublicKeyPath  string
	JWTExpiry         time.Duration

	SMTPHost     string
	SMTPPort     string
	SMTPFrom     string
	SMTPUsername string
	SMTPPassword string
	SNSTopicARN  string // empty disables admin notifications

	Registration   Registration
	AllowedOrigins []string // CORS allowed origins
}

// DynamoTables holds the DynamoDB table name for each entity.
type DynamoTables struct {
	Accounts      string
	Profiles      string
	Registrations string
	SlotSessions  string
	ExamWindow    string
	Staged        string
}

// RedisConfig configures the Redis-backed staging store.
type RedisConfig struct {
	URL         string
	PoolSize    int
	DialTimeout time.Duration
}

// Registration tunes the verified-registration workflow.
type Registration struct {
	StageTTL           time.Duration
	MaxCodeAttempts    int
	SendCodeCeiling    int
	ResendCodeCeiling  int
	CodeRateWindow     time.Duration
	DefaultSeatsPerDay int
	SeatClaimRetries   int
}

// Load reads all configuration from environment variables.
func Load() *Config {
	env := getEnv("APP_ENV", "development")
	return &Config{
		AppPort:        getEnv("APP_PORT", "3000"),
		AppEnv:         env,
		ExposeCodes:    getEnvBool("EXPOSE_CODES", env != "production"),
		AWSRegion:      getEnv("AWS_REGION", "us-east-1"),
		AWSEndpointURL: getEnv("AWS_ENDPOINT_URL", ""),
		AWSAccessKeyID: getEnv("AWS_ACCESS_KEY_ID", ""),
		AWSSecretKey:   getEnv("AWS_SECRET_ACCESS_KEY", ""),
		DynamoTables: DynamoTables{
			Accounts:      getEnv("DYNAMO_TABLE_ACCOUNTS", "accounts"),
			Profiles:      getEnv("DYNAMO_TABLE_PROFILES", "applicant_profiles"),
			Registrations: getEnv("DYNAMO_TABLE_REGISTRATIONS", "registrations"),
			SlotSessions:  getEnv("DYNAMO_TABLE_SLOT_SESSIONS", "slot_sessions"),
			ExamWindow:    getEnv("DYNAMO_TABLE_EXAM_WINDOW", "exam_window"),
			Staged:        getEnv("DYNAMO_TABLE_STAGED", "staged_registrations"),
		},
		S3BucketName: getEnv("S3_BUCKET_NAME", "exam-registration-images"),
		DurableStore: getEnv("DURABLE_STORE", "dynamo"),
		StageStore:   getEnv("STAGE_STORE", "memory"),
		Redis: RedisConfig{
			URL:         getEnv("REDIS_URL", ""),
			PoolSize:    getEnvInt("REDIS_POOL_SIZE", 10),
			DialTimeout: getEnvDuration("REDIS_DIAL_TIMEOUT", 5*time.Second),
		},
		JWTPrivateKeyPath: getEnv("JWT_PRIVATE_KEY_PATH", "./private_key.pem"),
		JWTPublicKeyPath:  getEnv("JWT_PUBLIC_KEY_PATH", "./public_key.pem"),
		JWTExpiry:         time.Duration(getEnvInt("JWT_EXPIRY_HOURS", 12)) * time.Hour,
		SMTPHost:          getEnv("SMTP_HOST", "localhost"),
		SMTPPort:          getEnv("SMTP_PORT", "1025"),
		SMTPFrom:          getEnv("SMTP_FROM", "noreply@example.com"),
		SMTPUsername:      getEnv("SMTP_USERNAME", ""),
		SMTPPassword:      getEnv("SMTP_PASSWORD", ""),
		SNSTopicARN:       getEnv("SNS_TOPIC_ARN", ""),
		Registration: Registration{
			StageTTL:           time.Duration(getEnvInt("STAGE_TTL_MINUTES", 20)) * time.Minute,
			MaxCodeAttempts:    getEnvInt("MAX_CODE_ATTEMPTS", 5),
			SendCodeCeiling:    getEnvInt("SEND_CODE_CEILING", 20),
			ResendCodeCeiling:  getEnvInt("RESEND_CODE_CEILING", 3),
			CodeRateWindow:     time.Duration(getEnvInt("CODE_RATE_WINDOW_MINUTES", 60)) * time.Minute,
			DefaultSeatsPerDay: getEnvInt("DEFAULT_SEATS_PER_DAY", 40),
			SeatClaimRetries:   getEnvInt("SEAT_CLAIM_RETRIES", 3),
		},
		AllowedOrigins: strings.Split(getEnv("ALLOWED_ORIGINS", "*"), ","),
	}
}

// DefaultRegistration returns the workflow defaults without touching the environment.
func DefaultRegistration() Registration {
	return Registration{
		StageTTL:           20 * time.Minute,
		MaxCodeAttempts:    5,
		SendCodeCeiling:    20,
		ResendCodeCeiling:  3,
		CodeRateWindow:     time.Hour,
		DefaultSeatsPerDay: 40,
		SeatClaimRetries:   3,
	}
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return fallback
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}

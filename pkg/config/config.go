package config

import (
	"os"
	"strconv"
	"time"
)

type Config struct {
	Port                    string
	Env                     string
	FirebaseCredentialsPath string
	PostgresUrl             string
	MongoURI                string
	MongoDatabase           string
	RedisAddr               string
	RedisPassword           string

	SMTPHost  string
	SMTPPort  string
	SMTPUser  string
	SMTPPass  string
	FromEmail string
	FromName  string

	SMSBaseURL  string
	SMSAPIKey   string
	SMSSenderID string

	DispatchInterval    time.Duration
	DispatchBatchSize   int
	StuckTimeoutMinutes int
}

func Load() *Config {
	return &Config{
		Port:                    getEnv("PORT", "8080"),
		Env:                     getEnv("ENV", "development"),
		FirebaseCredentialsPath: getEnv("FIREBASE_CREDENTIALS_PATH", ""),
		PostgresUrl:             getEnv("POSTGRES_CONN_STR", ""),
		MongoURI:                getEnv("MONGO_URI", ""),
		MongoDatabase:           getEnv("MONGO_DATABASE", "matrimony"),
		RedisAddr:               getEnv("REDIS_ADDR", "localhost:6379"),
		RedisPassword:           getEnv("REDIS_PASSWORD", ""),

		SMTPHost:  getEnv("SMTP_HOST", "smtp.gmail.com"),
		SMTPPort:  getEnv("SMTP_PORT", "587"),
		SMTPUser:  getEnv("SMTP_USER", ""),
		SMTPPass:  getEnv("SMTP_PASSWORD", ""),
		FromEmail: getEnv("FROM_EMAIL", "noreply@l3v3l.app"),
		FromName:  getEnv("FROM_NAME", "L3V3L"),

		SMSBaseURL:  getEnv("SMS_BASE_URL", ""),
		SMSAPIKey:   getEnv("SMS_API_KEY", ""),
		SMSSenderID: getEnv("SMS_SENDER_ID", "L3V3L"),

		DispatchInterval:    getEnvDuration("DISPATCH_INTERVAL", time.Minute),
		DispatchBatchSize:   getEnvInt("DISPATCH_BATCH_SIZE", 100),
		StuckTimeoutMinutes: getEnvInt("STUCK_TIMEOUT_MINUTES", 10),
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if n, err := strconv.Atoi(value); err == nil {
			return n
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}

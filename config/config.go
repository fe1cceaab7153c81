package config

import (
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	DatabaseDriver   string
	DatabaseURL      string
	DBLogLevel       string
	JWTSecret        string
	JWTExpiration    time.Duration
	ServerPort       string
	LogLevel         string
	IdentityURL      string
	IdentityTimeout  time.Duration
	ReminderInterval time.Duration
	Notifier         string

	// Bootstrap service account, created at startup when ClientID is set.
	BootstrapClientID     string
	BootstrapClientSecret string
	BootstrapEmployee     string
	BootstrapRoles        []string
}

// Load reads the configuration from the environment. A .env file in the
// working directory, if present, is loaded first and never overrides
// variables that are already set.
func Load() *Config {
	if err := godotenv.Load(); err == nil {
		log.Printf(".env file loaded")
	}

	return &Config{
		DatabaseDriver:   getEnv("DATABASE_DRIVER", "postgres"),
		DatabaseURL:      getEnv("DATABASE_URL", "postgresql://postgres@localhost:5432/timesheet"),
		DBLogLevel:       getEnv("DB_LOG_LEVEL", "warn"),
		JWTSecret:        getEnv("JWT_SECRET", "your-super-secret-key-change-in-production"),
		JWTExpiration:    getDuration("JWT_EXPIRATION", 24*time.Hour),
		ServerPort:       getEnv("SERVER_PORT", "8080"),
		LogLevel:         getEnv("LOG_LEVEL", "info"),
		IdentityURL:      getEnv("IDENTITY_SERVICE_URL", "http://localhost:8091"),
		IdentityTimeout:  getDuration("IDENTITY_TIMEOUT", 5*time.Second),
		ReminderInterval: getDuration("REMINDER_INTERVAL", 0),
		Notifier:         getEnv("NOTIFIER", "log"),

		BootstrapClientID:     getEnv("BOOTSTRAP_CLIENT_ID", ""),
		BootstrapClientSecret: getEnv("BOOTSTRAP_CLIENT_SECRET", ""),
		BootstrapEmployee:     getEnv("BOOTSTRAP_EMPLOYEE_CODE", "ADMIN"),
		BootstrapRoles:        getList("BOOTSTRAP_ROLES", []string{"ADMIN"}),
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getList splits a comma separated value, dropping blanks.
func getList(key string, defaultValue []string) []string {
	var out []string
	for _, v := range strings.Split(os.Getenv(key), ",") {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	if len(out) == 0 {
		return defaultValue
	}
	return out
}

// getDuration accepts Go duration strings ("90s", "168h") or a bare number
// of seconds.
func getDuration(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	if d, err := time.ParseDuration(value); err == nil {
		return d
	}
	if secs, err := strconv.Atoi(value); err == nil {
		return time.Duration(secs) * time.Second
	}
	log.Printf("invalid duration %q for %s, using default %s", value, key, defaultValue)
	return defaultValue
}

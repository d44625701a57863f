package config

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

const (
	BackendMemory    = "memory"
	BackendRTDB      = "rtdb"
	BackendFirestore = "firestore"
)

type Config struct {
	ServerPort  string
	Environment string
	LogLevel    string

	StoreBackend        string
	FirebaseProject     string
	FirebaseDatabaseURL string
	ServiceAccountJSON  string
	ServiceAccountPath  string
	RTDBPollInterval    time.Duration

	NATSURL           string
	NATSSubjectPrefix string
	ExpoPushEnabled   bool

	ChatRatePerSecond float64
	ChatRateBurst     int

	CleanupInterval  time.Duration
	ActivityEndGrace time.Duration
}

func Load() (*Config, error) {
	godotenv.Load()

	config := &Config{
		ServerPort:  getEnv("SERVER_PORT", "8080"),
		Environment: getEnv("ENVIRONMENT", "development"),
		LogLevel:    getEnv("LOG_LEVEL", "info"),

		StoreBackend:        getEnv("STORE_BACKEND", BackendMemory),
		FirebaseProject:     getEnv("FIREBASE_PROJECT_ID", ""),
		FirebaseDatabaseURL: getEnv("FIREBASE_DATABASE_URL", ""),
		ServiceAccountJSON:  getEnv("FIREBASE_SERVICE_ACCOUNT_JSON", ""),
		ServiceAccountPath:  getEnv("FIREBASE_SERVICE_ACCOUNT_PATH", ""),
		RTDBPollInterval:    time.Duration(getEnvAsInt64("RTDB_POLL_INTERVAL", 2)) * time.Second,

		NATSURL:           getEnv("NATS_URL", ""),
		NATSSubjectPrefix: getEnv("NATS_SUBJECT_PREFIX", "meetup.events"),
		ExpoPushEnabled:   getEnvAsBool("EXPO_PUSH_ENABLED", false),

		ChatRatePerSecond: getEnvAsFloat("CHAT_RATE_PER_SECOND", 2),
		ChatRateBurst:     int(getEnvAsInt64("CHAT_RATE_BURST", 10)),

		CleanupInterval:  time.Duration(getEnvAsInt64("CLEANUP_INTERVAL_MINUTES", 10)) * time.Minute,
		ActivityEndGrace: time.Duration(getEnvAsInt64("ACTIVITY_END_GRACE_HOURS", 3)) * time.Hour,
	}

	return config, nil
}

func (c *Config) IsDevelopment() bool {
	return c.Environment == "development"
}

func getEnv(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}

func getEnvAsInt64(key string, defaultValue int64) int64 {
	if value, exists := os.LookupEnv(key); exists {
		intValue, err := strconv.ParseInt(value, 10, 64)
		if err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	if value, exists := os.LookupEnv(key); exists {
		f, err := strconv.ParseFloat(value, 64)
		if err == nil {
			return f
		}
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value, exists := os.LookupEnv(key); exists {
		b, err := strconv.ParseBool(value)
		if err == nil {
			return b
		}
	}
	return defaultValue
}

package config

import (
	"os"
	"time"
)

type Config struct {
	ServerAddress string
	JWTSecret     string
	JWTExpiration time.Duration
	DataDir       string

	// InternalHookToken authenticates the /internal/identity hooks; empty
	// disables them.
	InternalHookToken string

	FirebaseProjectID       string
	FirebaseCredentialsJSON string

	MongoURI    string
	MongoDBName string
}

func Load() *Config {
	return &Config{
		ServerAddress:           getEnv("SERVER_ADDRESS", ":8080"),
		JWTSecret:               getEnv("JWT_SECRET", "your-secret-key-change-in-production"),
		JWTExpiration:           24 * time.Hour,
		DataDir:                 getEnv("DATA_DIR", "./data"),
		InternalHookToken:       getEnv("INTERNAL_HOOK_TOKEN", ""),
		FirebaseProjectID:       getEnv("FIREBASE_PROJECT_ID", ""),
		FirebaseCredentialsJSON: getEnv("FIREBASE_CREDENTIALS_JSON", ""),
		MongoURI:                getEnv("MONGO_URI", ""),
		MongoDBName:             getEnv("MONGO_DB_NAME", "friends"),
	}
}

func getEnv(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}

// Package config loads application configuration from environment variables.
package config

import (
	"log"
	"os"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all runtime configuration for the gateway. It is built once
// at startup and never mutated afterwards.
type Config struct {
	ListenAddr string
	AppEnv     string

	// Metadata backend endpoint (environment-selected: local vs. production).
	BackendBaseURL string

	// S3-compatible object storage. When S3Endpoint is empty the gateway
	// falls back to the filesystem store rooted at StoragePath.
	S3Endpoint  string
	S3AccessKey string
	S3SecretKey string
	S3Region    string
	S3UseSSL    bool
	S3PathStyle bool
	StoragePath string

	// Outbound call bounds.
	FetchTimeout      time.Duration
	MaxFetchBytes     int64
	MaxTransformBytes int64
}

// Load reads configuration from a .env file (if present) and environment
// variables, applying defaults for anything unset.
func Load() *Config {
	if err := godotenv.Load(); err != nil {
		log.Println("no .env file found, reading from environment")
	}

	return &Config{
		ListenAddr:     getEnv("FG_LISTEN_ADDR", ":8080"),
		AppEnv:         getEnv("FG_APP_ENV", "development"),
		BackendBaseURL: getEnv("FG_BACKEND_URL", "http://localhost:3000/graphql"),

		S3Endpoint:  getEnv("FG_S3_ENDPOINT", ""),
		S3AccessKey: getEnv("FG_S3_ACCESS_KEY", ""),
		S3SecretKey: getEnv("FG_S3_SECRET_KEY", ""),
		S3Region:    getEnv("FG_S3_REGION", "us-east-1"),
		S3UseSSL:    getEnv("FG_S3_USE_SSL", "true") == "true",
		S3PathStyle: getEnv("FG_S3_PATH_STYLE", "true") == "true",
		StoragePath: getEnv("FG_STORAGE_PATH", "/data/files"),

		FetchTimeout:      time.Duration(getEnvInt("FG_FETCH_TIMEOUT_SECONDS", 30)) * time.Second,
		MaxFetchBytes:     int64(getEnvInt("FG_MAX_FETCH_MB", 50)) << 20,
		MaxTransformBytes: int64(getEnvInt("FG_MAX_TRANSFORM_MB", 50)) << 20,
	}
}

func getEnv(key, defaultValue string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	v := os.Getenv(key)
	if v == "" {
		return defaultValue
	}
	var result int
	for _, c := range v {
		if c < '0' || c > '9' {
			return defaultValue
		}
		result = result*10 + int(c-'0')
	}
	return result
}

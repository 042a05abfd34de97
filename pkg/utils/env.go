package utils

import (
	"log/slog"
	"os"

	"github.com/joho/godotenv"
)

// LoadEnv reads a .env file if one exists. A missing file is fine; real
// environment variables always win.
func LoadEnv() {
	if err := godotenv.Load(); err != nil {
		slog.Debug("no .env file loaded", "error", err)
	}
}

// GetEnv returns the environment variable or a fallback when unset or empty.
func GetEnv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

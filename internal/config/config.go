// Package config loads server configuration from the environment, with
// optional .env file support. CLI flags in cmd/inventar override these.
package config

import (
	"os"

	"github.com/joho/godotenv"
)

// Config holds the server configuration.
type Config struct {
	Host     string
	Port     string
	CacheDir string
	DBPath   string
	// Store selects the Repository backend: "sqlite" or "json".
	Store   string
	LogPath string
}

// Load reads configuration from environment variables, falling back to
// defaults. A .env file in the working directory is loaded first if
// present.
func Load() *Config {
	godotenv.Load()

	return &Config{
		Host:     getEnv("INVENTAR_HOST", ""),
		Port:     getEnv("INVENTAR_PORT", "8080"),
		CacheDir: getEnv("INVENTAR_CACHE_DIR", "cache"),
		DBPath:   getEnv("INVENTAR_DB", "inventar.sqlite3"),
		Store:    getEnv("INVENTAR_STORE", "sqlite"),
		LogPath:  getEnv("INVENTAR_LOG", ""),
	}
}

// getEnv returns the environment variable's value, or def if unset or
// empty.
func getEnv(key, def string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return def
}

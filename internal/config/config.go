// Package config provides configuration helpers for seawatch commands.
// Values come from the environment, optionally seeded from a .env file.
package config

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"

	"github.com/harborlabs/seawatch/internal/log"
)

// Defaults shared by the seawatch binaries.
const (
	DefaultDetectURL   = "http://localhost:5000"
	DefaultDetectAddr  = ":5000"
	DefaultMonitorAddr = ":8080"
	DefaultStorePath   = "seawatch.db"
)

// LoadDotenv loads a .env file from the working directory if one exists.
// A missing file is not an error.
func LoadDotenv() {
	if err := godotenv.Load(); err != nil {
		if !os.IsNotExist(err) {
			log.Warn("dotenv load failed", "error", err)
		}
	}
}

// Env returns the value of key, or def when unset or empty.
func Env(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

// EnvInt returns the integer value of key, or def when unset or invalid.
func EnvInt(key string, def int) int {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		log.Warn("invalid integer in environment", "key", key, "value", v)
		return def
	}
	return n
}

// EnvDuration returns the duration value of key (Go syntax, e.g. "1500ms"),
// or def when unset or invalid.
func EnvDuration(key string, def time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		log.Warn("invalid duration in environment", "key", key, "value", v)
		return def
	}
	return d
}

// EnvBool returns the boolean value of key, or def when unset or invalid.
func EnvBool(key string, def bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		log.Warn("invalid boolean in environment", "key", key, "value", v)
		return def
	}
	return b
}

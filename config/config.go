// Package config loads process settings from an optional .env file and the
// environment.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Port          int           // PORT
	DumpPath      string        // DUMP_PATH
	LoadOnStart   bool          // LOAD_ON_START
	ProxyProtocol bool          // PROXY_PROTOCOL
	ShutdownGrace time.Duration // SHUTDOWN_GRACE, zero exits right after the interrupt dump
	LogLevel      string        // LOG_LEVEL
	LogFormat     string        // LOG_FORMAT: console or json
}

// Load reads path into the environment when the file exists, without
// overriding variables that are already set, then builds a Config with
// defaults for anything unset or unparsable.
func Load(path string) (*Config, error) {
	if _, err := os.Stat(path); err == nil {
		if err := godotenv.Load(path); err != nil {
			return nil, fmt.Errorf("failed to load config file: %w", err)
		}
	}

	return &Config{
		Port:          getEnvInt("PORT", 6379),
		DumpPath:      getEnvString("DUMP_PATH", "dump.my_rdb"),
		LoadOnStart:   getEnvBool("LOAD_ON_START", true),
		ProxyProtocol: getEnvBool("PROXY_PROTOCOL", false),
		ShutdownGrace: getEnvDuration("SHUTDOWN_GRACE", 0),
		LogLevel:      getEnvString("LOG_LEVEL", "info"),
		LogFormat:     getEnvString("LOG_FORMAT", "console"),
	}, nil
}

func getEnvString(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
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

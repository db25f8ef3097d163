package config

import (
	"os"
	"strconv"
	"time"
)

// Config holds all runtime settings, read from the environment with defaults
type Config struct {
	MongoURI  string
	MongoDB   string
	RedisAddr string
	HTTPPort  string

	LogLevel  string
	LogFormat string

	HostUsername string
	HostPassword string
	JWTSecret    string

	// PresenceDebounce is how long a host must stay absent before a
	// disconnect is treated as genuine rather than a reconnect flicker.
	PresenceDebounce time.Duration

	// LobbyTimeout closes games that never leave the lobby.
	LobbyTimeout time.Duration
}

func Load() *Config {
	return &Config{
		MongoURI:         getEnv("MONGO_URI", "mongodb://localhost:27017"),
		MongoDB:          getEnv("MONGO_DB", "keyclue"),
		RedisAddr:        getEnv("REDIS_ADDR", "localhost:6379"),
		HTTPPort:         getEnv("HTTP_PORT", "8080"),
		LogLevel:         getEnv("LOG_LEVEL", "info"),
		LogFormat:        getEnv("LOG_FORMAT", "text"),
		HostUsername:     getEnv("HOST_USERNAME", "admin"),
		HostPassword:     getEnv("HOST_PASSWORD", "password123"),
		JWTSecret:        getEnv("JWT_SECRET", "super-secret-key-change-in-production"),
		PresenceDebounce: getDuration("PRESENCE_DEBOUNCE", 2*time.Second),
		LobbyTimeout:     getDuration("LOBBY_TIMEOUT", 10*time.Minute),
	}
}

func getEnv(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

func getDuration(key string, defaultVal time.Duration) time.Duration {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal
	}
	if d, err := time.ParseDuration(val); err == nil {
		return d
	}
	// plain integers are seconds
	if secs, err := strconv.Atoi(val); err == nil {
		return time.Duration(secs) * time.Second
	}
	return defaultVal
}

package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config is read once at startup from the environment (and an optional .env).
type Config struct {
	Port             string
	DBPath           string
	SeedPath         string
	LogLevel         string
	ComplianceWindow time.Duration
	ShutdownTimeout  time.Duration
	APIKeys          []APIKey
}

// APIKey binds a static key to a user and the organizations it may act for.
type APIKey struct {
	Key           string
	UserID        string
	Organizations []string
}

func Load() (Config, error) {
	// A missing .env is normal outside local development.
	_ = godotenv.Load()

	keys, err := parseAPIKeys(getenv("API_KEYS", ""))
	if err != nil {
		return Config{}, err
	}

	return Config{
		Port:             getenv("PORT", "8080"),
		DBPath:           getenv("DB_PATH", "practice.db"),
		SeedPath:         getenv("SEED_PATH", "testdata/seed.json"),
		LogLevel:         getenv("LOG_LEVEL", "info"),
		ComplianceWindow: time.Duration(getInt("COMPLIANCE_WINDOW_DAYS", 30)) * 24 * time.Hour,
		ShutdownTimeout:  getDuration("SHUTDOWN_TIMEOUT", 10*time.Second),
		APIKeys:          keys,
	}, nil
}

// parseAPIKeys reads "key=user:org1|org2,key2=user2:org3".
func parseAPIKeys(raw string) ([]APIKey, error) {
	if strings.TrimSpace(raw) == "" {
		return nil, nil
	}

	var keys []APIKey
	for _, item := range strings.Split(raw, ",") {
		item = strings.TrimSpace(item)
		if item == "" {
			continue
		}
		key, rest, ok := strings.Cut(item, "=")
		if !ok {
			return nil, fmt.Errorf("API_KEYS entry %q: missing '='", item)
		}
		user, orgs, ok := strings.Cut(rest, ":")
		if !ok || user == "" || orgs == "" {
			return nil, fmt.Errorf("API_KEYS entry %q: expected user:org[|org]", item)
		}
		keys = append(keys, APIKey{
			Key:           key,
			UserID:        user,
			Organizations: strings.Split(orgs, "|"),
		})
	}
	return keys, nil
}

func getenv(key, def string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return def
}

func getDuration(key string, def time.Duration) time.Duration {
	if v, ok := os.LookupEnv(key); ok {
		if d, err := time.ParseDuration(v); err == nil && d > 0 {
			return d
		}
	}
	return def
}

func getInt(key string, def int) int {
	if v, ok := os.LookupEnv(key); ok {
		if i, err := strconv.Atoi(v); err == nil && i > 0 {
			return i
		}
	}
	return def
}

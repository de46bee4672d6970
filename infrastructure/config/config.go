package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const minSecretLength = 32

type Config struct {
	DatabaseURL string
	RedisURL    string

	JWTSecret       string
	JWTAlgorithm    string
	AccessTokenTTL  time.Duration
	RefreshTokenTTL time.Duration
	TokenIssuer     string
	TokenAudience   []string
	Leeway          time.Duration

	BlacklistEnabled bool
	FailSecure       bool

	BcryptCost int

	AuthMaxAttempts int
	AuthLockout     time.Duration

	RequestLimitMax    int
	RequestLimitWindow time.Duration
	LoginLimitMax      int
	LoginLimitWindow   time.Duration

	ServerHost  string
	ServerPort  string
	Environment string
	LogLevel    string
	LogFormat   string
}

var (
	ErrMissingDatabaseURL  = errors.New("DATABASE_URL is required")
	ErrSecretTooShort      = fmt.Errorf("JWT_SECRET must be at least %d characters", minSecretLength)
	ErrInvalidJWTAlgorithm = errors.New("JWT_ALGORITHM must be one of HS256, HS384, HS512")
	ErrInvalidTTL          = errors.New("invalid token TTL format")
	ErrEmptyAudience       = errors.New("TOKEN_AUDIENCE must not be empty")
)

// Load reads the environment (plus an optional .env file) and refuses to start
// on an unusable security configuration.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		DatabaseURL:      os.Getenv("DATABASE_URL"),
		RedisURL:         getEnvOrDefault("REDIS_URL", "redis://localhost:6379/0"),
		JWTSecret:        os.Getenv("JWT_SECRET"),
		JWTAlgorithm:     getEnvOrDefault("JWT_ALGORITHM", "HS256"),
		TokenIssuer:      getEnvOrDefault("TOKEN_ISSUER", "carelane-auth"),
		TokenAudience:    parseAudience(getEnvOrDefault("TOKEN_AUDIENCE", "carelane:users")),
		BlacklistEnabled: getEnvOrDefaultBool("ENABLE_TOKEN_BLACKLIST", true),
		FailSecure:       getEnvOrDefaultBool("REDIS_FAIL_SECURE", true),
		BcryptCost:       getEnvOrDefaultInt("BCRYPT_COST", 10),
		AuthMaxAttempts:  getEnvOrDefaultInt("AUTH_MAX_ATTEMPTS", 5),
		RequestLimitMax:  getEnvOrDefaultInt("RATE_LIMIT_MAX_REQUESTS", 100),
		LoginLimitMax:    getEnvOrDefaultInt("RATE_LIMIT_LOGIN_MAX", 10),
		ServerHost:       getEnvOrDefault("SERVER_HOST", "0.0.0.0"),
		ServerPort:       getEnvOrDefault("SERVER_PORT", "8080"),
		Environment:      getEnvOrDefault("ENV", "development"),
		LogLevel:         getEnvOrDefault("LOG_LEVEL", "info"),
		LogFormat:        getEnvOrDefault("LOG_FORMAT", "json"),
	}

	if cfg.DatabaseURL == "" {
		return nil, ErrMissingDatabaseURL
	}
	if len(cfg.JWTSecret) < minSecretLength {
		return nil, ErrSecretTooShort
	}
	switch cfg.JWTAlgorithm {
	case "HS256", "HS384", "HS512":
	default:
		return nil, ErrInvalidJWTAlgorithm
	}
	if len(cfg.TokenAudience) == 0 {
		return nil, ErrEmptyAudience
	}

	var err error
	if cfg.AccessTokenTTL, err = parseSeconds(getEnvOrDefault("JWT_ACCESS_TOKEN_TTL", "900")); err != nil {
		return nil, ErrInvalidTTL
	}
	if cfg.RefreshTokenTTL, err = parseSeconds(getEnvOrDefault("JWT_REFRESH_TOKEN_TTL", "604800")); err != nil {
		return nil, ErrInvalidTTL
	}
	if cfg.Leeway, err = parseSeconds(getEnvOrDefault("JWT_LEEWAY_SECONDS", "10")); err != nil {
		return nil, ErrInvalidTTL
	}
	if cfg.AuthLockout, err = parseSeconds(getEnvOrDefault("AUTH_LOCKOUT_SECONDS", "300")); err != nil {
		return nil, ErrInvalidTTL
	}
	if cfg.RequestLimitWindow, err = parseSeconds(getEnvOrDefault("RATE_LIMIT_WINDOW_SECONDS", "60")); err != nil {
		return nil, ErrInvalidTTL
	}
	if cfg.LoginLimitWindow, err = parseSeconds(getEnvOrDefault("RATE_LIMIT_LOGIN_WINDOW_SECONDS", "900")); err != nil {
		return nil, ErrInvalidTTL
	}

	return cfg, nil
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvOrDefaultBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		parsed, err := strconv.ParseBool(value)
		if err != nil {
			return defaultValue
		}
		return parsed
	}
	return defaultValue
}

func getEnvOrDefaultInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		parsed, err := strconv.Atoi(value)
		if err != nil {
			return defaultValue
		}
		return parsed
	}
	return defaultValue
}

func parseSeconds(value string) (time.Duration, error) {
	seconds, err := strconv.Atoi(value)
	if err != nil {
		return 0, err
	}
	return time.Duration(seconds) * time.Second, nil
}

// parseAudience splits a comma-separated audience list into a normalized set.
func parseAudience(value string) []string {
	parts := strings.Split(value, ",")
	out := make([]string, 0, len(parts))
	seen := make(map[string]bool)
	for _, p := range parts {
		trimmed := strings.TrimSpace(p)
		if trimmed != "" && !seen[trimmed] {
			seen[trimmed] = true
			out = append(out, trimmed)
		}
	}
	return out
}

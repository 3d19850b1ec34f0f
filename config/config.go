package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config is the process configuration read from the environment.
type Config struct {
	Port string

	CivilMemoryURL     string
	CivilMemoryPath    string
	CivilMemoryAPIKey  string
	CivilMemoryTimeout time.Duration
	KeyPrefix          string

	JWTSecret string
	TokenTTL  time.Duration

	AIProvider       string
	GeminiKey        string
	GeminiModel      string
	GeminiURL        string
	GeminiAPIVersion string

	AllowedOrigins []string
	LogLevel       string
}

const (
	AIProviderNone   = "none"
	AIProviderMock   = "mock"
	AIProviderGemini = "gemini"
)

// LoadDotEnv loads a .env file if one exists. It reports whether a file was
// found; a missing file is not an error.
func LoadDotEnv(paths ...string) bool {
	return godotenv.Load(paths...) == nil
}

// Load reads the configuration from the environment.
func Load() (*Config, error) {
	cfg := &Config{
		Port:              env("PORT", "8080"),
		CivilMemoryURL:    strings.TrimRight(env("CIVIL_MEMORY_URL", "http://localhost:4000"), "/"),
		CivilMemoryPath:   env("CIVIL_MEMORY_PATH", "/api/data"),
		CivilMemoryAPIKey: env("CIVIL_MEMORY_API_KEY", ""),
		KeyPrefix:         env("KEY_PREFIX", "sparkpad"),
		JWTSecret:         env("JWT_SECRET", ""),
		AIProvider:        strings.ToLower(env("AI_PROVIDER", AIProviderNone)),
		GeminiKey:         env("GEMINI_API_KEY", ""),
		GeminiModel:       env("GEMINI_MODEL", "gemini-1.5-flash"),
		GeminiURL:         strings.TrimRight(env("GEMINI_URL", "https://generativelanguage.googleapis.com"), "/"),
		GeminiAPIVersion:  env("GEMINI_API_VERSION", "v1beta"),
		AllowedOrigins:    splitList(env("ALLOWED_ORIGINS", "*")),
		LogLevel:          env("LOG_LEVEL", "info"),
	}

	var err error
	if cfg.CivilMemoryTimeout, err = duration("CIVIL_MEMORY_TIMEOUT", 10*time.Second); err != nil {
		return nil, err
	}
	if cfg.TokenTTL, err = duration("TOKEN_TTL", 72*time.Hour); err != nil {
		return nil, err
	}

	if cfg.JWTSecret == "" {
		return nil, errors.New("JWT_SECRET environment variable not set")
	}
	switch cfg.AIProvider {
	case AIProviderNone, AIProviderMock:
	case AIProviderGemini:
		if cfg.GeminiKey == "" {
			return nil, errors.New("AI_PROVIDER=gemini requires GEMINI_API_KEY")
		}
	default:
		return nil, fmt.Errorf("unknown AI_PROVIDER %q", cfg.AIProvider)
	}
	return cfg, nil
}

func env(key, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return fallback
}

func duration(key string, fallback time.Duration) (time.Duration, error) {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return d, nil
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}

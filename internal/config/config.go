package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
	_ "time/tzdata"

	"github.com/joho/godotenv"
)

const (
	StorePostgres = "postgres"
	StoreMemory   = "memory"
)

type Config struct {
	Addr               string
	Store              string
	DatabaseURL        string
	CORSAllowedOrigins []string
	Env                string
	Location           *time.Location
	APIMaxBodyBytes    int64
	ImportMaxFileBytes int64
	ImportMaxRows      int
	ImportRateLimit    int
	ReadHeaderTimeout  time.Duration
	ReadTimeout        time.Duration
	WriteTimeout       time.Duration
	IdleTimeout        time.Duration
	RateLimitMaxIPs    int
	OpenAPIValidate    bool

	OrderCodePrefix   string
	OrderCodeAttempts int
	ImportWorkers     int
	StoreCallTimeout  time.Duration

	TelegramToken   string
	TelegramChatIDs []string
	TelegramBaseURL string

	LogLevel  string
	LogFormat string
}

func Load() (Config, error) {
	_ = godotenv.Load()

	cfg := Config{
		Addr:        getEnv("API_ADDR", ":8080"),
		Store:       strings.ToLower(getEnv("ORDER_STORE", StorePostgres)),
		DatabaseURL: os.Getenv("DATABASE_URL"),
		CORSAllowedOrigins: getEnvCSV("CORS_ALLOWED_ORIGINS", []string{
			"http://localhost:3000",
			"http://127.0.0.1:3000",
		}),
		Env:                getEnv("APP_ENV", "dev"),
		APIMaxBodyBytes:    int64(getEnvInt("API_MAX_BODY_MB", 2)) * 1024 * 1024,
		ImportMaxFileBytes: int64(getEnvInt("IMPORT_MAX_FILE_MB", 25)) * 1024 * 1024,
		ImportMaxRows:      getEnvInt("IMPORT_MAX_ROWS", 5000),
		ImportRateLimit:    getEnvInt("IMPORT_RATE_LIMIT_PER_MIN", 20),
		ReadHeaderTimeout:  time.Duration(getEnvInt("API_READ_HEADER_TIMEOUT_SEC", 5)) * time.Second,
		ReadTimeout:        time.Duration(getEnvInt("API_READ_TIMEOUT_SEC", 15)) * time.Second,
		WriteTimeout:       time.Duration(getEnvInt("API_WRITE_TIMEOUT_SEC", 60)) * time.Second,
		IdleTimeout:        time.Duration(getEnvInt("API_IDLE_TIMEOUT_SEC", 60)) * time.Second,
		RateLimitMaxIPs:    getEnvInt("RATE_LIMIT_MAX_IPS", 10000),
		OpenAPIValidate:    getEnvBool("OPENAPI_VALIDATE", true),

		OrderCodePrefix:   strings.ToUpper(getEnv("ORDER_CODE_PREFIX", "ARDEN")),
		OrderCodeAttempts: getEnvInt("ORDER_CODE_ATTEMPTS", 3),
		ImportWorkers:     getEnvInt("IMPORT_WORKERS", 1),
		StoreCallTimeout:  time.Duration(getEnvInt("STORE_CALL_TIMEOUT_SEC", 10)) * time.Second,

		TelegramToken:   os.Getenv("TELEGRAM_TOKEN"),
		TelegramChatIDs: getEnvCSV("TELEGRAM_CHAT_IDS", nil),
		TelegramBaseURL: getEnv("TELEGRAM_API_BASE_URL", "https://api.telegram.org"),

		LogLevel:  getEnv("LOG_LEVEL", "info"),
		LogFormat: getEnv("LOG_FORMAT", "json"),
	}

	loc, err := time.LoadLocation(getEnv("APP_TIMEZONE", "Asia/Ho_Chi_Minh"))
	if err != nil {
		return Config{}, fmt.Errorf("APP_TIMEZONE: %w", err)
	}
	cfg.Location = loc

	switch cfg.Store {
	case StorePostgres:
		if cfg.DatabaseURL == "" {
			return Config{}, fmt.Errorf("DATABASE_URL is required")
		}
	case StoreMemory:
	default:
		return Config{}, fmt.Errorf("ORDER_STORE must be %q or %q, got %q", StorePostgres, StoreMemory, cfg.Store)
	}

	if cfg.OrderCodeAttempts < 1 {
		cfg.OrderCodeAttempts = 1
	}
	if cfg.ImportWorkers < 1 {
		cfg.ImportWorkers = 1
	}

	return cfg, nil
}

// Now returns the current time in the workshop's timezone; calendar-day
// comparisons depend on it.
func (c Config) Now() time.Time {
	if c.Location == nil {
		return time.Now()
	}
	return time.Now().In(c.Location)
}

func getEnv(key, fallback string) string {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	return v
}

func getEnvInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnvBool(key string, fallback bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	parsed, err := strconv.ParseBool(v)
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnvCSV(key string, fallback []string) []string {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback
	}

	parts := strings.Split(v, ",")
	result := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed == "" {
			continue
		}
		result = append(result, trimmed)
	}
	if len(result) == 0 {
		return fallback
	}
	return result
}

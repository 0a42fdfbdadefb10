package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config はアプリケーション全体の設定を保持する。
// 環境変数から起動時に1回読み込み、イミュータブルとして扱う。
type Config struct {
	// Environment
	Environment string

	// Database
	DatabaseURL string

	// Identity Provider（Firebase互換）
	FirebaseProjectID   string
	FirebaseClientEmail string
	FirebasePrivateKey  string
	FirebaseWebAPIKey   string
	IdentityToolkitURL  string
	IdentityTimeout     time.Duration

	// Generative AI
	GenerativeAIAPIKey string
	LLMBaseURL         string
	LLMModel           string
	LLMTimeout         time.Duration
	LLMMaxRetries      int

	// Server
	ServerPort string
	BaseURL    string

	// Cookie
	CookieSecure bool
	CookieDomain string

	// CORS
	CORSAllowedOrigin string
}

// IsProduction は本番環境で稼働しているかを返す。
func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}

// Load は環境変数からConfigを読み込む。
// 必須環境変数が未設定の場合はエラーを返す。
func Load() (*Config, error) {
	cfg := &Config{}

	// Required fields
	var missing []string

	cfg.DatabaseURL = os.Getenv("DATABASE_URL")
	if cfg.DatabaseURL == "" {
		missing = append(missing, "DATABASE_URL")
	}

	cfg.FirebaseProjectID = os.Getenv("FIREBASE_PROJECT_ID")
	if cfg.FirebaseProjectID == "" {
		missing = append(missing, "FIREBASE_PROJECT_ID")
	}

	cfg.FirebaseClientEmail = os.Getenv("FIREBASE_CLIENT_EMAIL")
	if cfg.FirebaseClientEmail == "" {
		missing = append(missing, "FIREBASE_CLIENT_EMAIL")
	}

	cfg.FirebasePrivateKey = os.Getenv("FIREBASE_PRIVATE_KEY")
	if cfg.FirebasePrivateKey == "" {
		missing = append(missing, "FIREBASE_PRIVATE_KEY")
	}

	cfg.GenerativeAIAPIKey = os.Getenv("GOOGLE_GENERATIVE_AI_API_KEY")
	if cfg.GenerativeAIAPIKey == "" {
		missing = append(missing, "GOOGLE_GENERATIVE_AI_API_KEY")
	}

	cfg.BaseURL = os.Getenv("BASE_URL")
	if cfg.BaseURL == "" {
		missing = append(missing, "BASE_URL")
	}

	if len(missing) > 0 {
		return nil, fmt.Errorf("required environment variables are not set: %v", missing)
	}

	// .envや環境変数経由では改行がエスケープされた状態で渡されることが多い
	cfg.FirebasePrivateKey = strings.ReplaceAll(cfg.FirebasePrivateKey, `\n`, "\n")

	// Optional fields with defaults
	cfg.Environment = getEnvString("APP_ENV", "development")
	cfg.FirebaseWebAPIKey = getEnvString("FIREBASE_WEB_API_KEY", "")
	cfg.IdentityToolkitURL = getEnvString("IDENTITY_TOOLKIT_URL", "https://identitytoolkit.googleapis.com")
	cfg.IdentityTimeout = getEnvDuration("IDENTITY_TIMEOUT", 10*time.Second)
	cfg.LLMBaseURL = getEnvString("LLM_BASE_URL", "https://generativelanguage.googleapis.com")
	cfg.LLMModel = getEnvString("LLM_MODEL", "gemini-2.0-flash-001")
	cfg.LLMTimeout = getEnvDuration("LLM_TIMEOUT", 60*time.Second)
	cfg.LLMMaxRetries = getEnvInt("LLM_MAX_RETRIES", 2)
	cfg.ServerPort = getEnvString("SERVER_PORT", "8080")
	cfg.CookieSecure = cfg.IsProduction() || strings.HasPrefix(cfg.BaseURL, "https://")
	cfg.CookieDomain = getEnvString("COOKIE_DOMAIN", "")
	cfg.CORSAllowedOrigin = getEnvString("CORS_ALLOWED_ORIGIN", "http://localhost:3000")

	return cfg, nil
}

func getEnvString(key, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}

func getEnvInt(key string, defaultVal int) int {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 0 {
		return defaultVal
	}
	return n
}

func getEnvDuration(key string, defaultVal time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return defaultVal
	}
	return d
}

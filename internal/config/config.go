package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Config はアプリケーション全体の設定を保持する。
// 環境変数から起動時に1回読み込み、イミュータブルとして扱う。
type Config struct {
	// Database
	DatabaseURL string

	// Server
	ServerPort string

	// CORS
	CORSAllowedOrigin string

	// Rate Limit（req/min/principal）
	RateLimitGeneral  int
	RateLimitNoteSave int

	// Watch（視聴トラッキング）
	WatchTickInterval    time.Duration
	WatchDefaultDuration time.Duration
	WatchCompletionRatio float64

	// Sync
	SyncBaseURL string
	SyncTimeout time.Duration
}

// Load は環境変数からConfigを読み込む。
// 必須環境変数が未設定の場合はエラーを返す。
func Load() (*Config, error) {
	cfg := &Config{}

	var missing []string

	cfg.DatabaseURL = os.Getenv("DATABASE_URL")
	if cfg.DatabaseURL == "" {
		missing = append(missing, "DATABASE_URL")
	}

	if len(missing) > 0 {
		return nil, fmt.Errorf("required environment variables are not set: %v", missing)
	}

	// Optional fields with defaults
	cfg.ServerPort = getEnvString("SERVER_PORT", "8080")
	cfg.CORSAllowedOrigin = getEnvString("CORS_ALLOWED_ORIGIN", "http://localhost:5173")
	cfg.RateLimitGeneral = getEnvInt("RATE_LIMIT_GENERAL", 120)
	cfg.RateLimitNoteSave = getEnvInt("RATE_LIMIT_NOTE_SAVE", 30)
	cfg.WatchTickInterval = getEnvDuration("WATCH_TICK_INTERVAL", 3*time.Second)
	cfg.WatchDefaultDuration = getEnvDuration("WATCH_DEFAULT_DURATION", 30*time.Minute)
	cfg.WatchCompletionRatio = getEnvFloat("WATCH_COMPLETION_RATIO", 0.80)
	cfg.SyncBaseURL = getEnvString("SYNC_BASE_URL", "http://localhost:8080")
	cfg.SyncTimeout = getEnvDuration("SYNC_TIMEOUT", 10*time.Second)

	return cfg, nil
}

// LoadTrack はtrackサブコマンド用にConfigを読み込む。
// クライアント側はDBに接続しないため、DATABASE_URLを要求しない。
func LoadTrack() *Config {
	return &Config{
		WatchTickInterval:    getEnvDuration("WATCH_TICK_INTERVAL", 3*time.Second),
		WatchDefaultDuration: getEnvDuration("WATCH_DEFAULT_DURATION", 30*time.Minute),
		WatchCompletionRatio: getEnvFloat("WATCH_COMPLETION_RATIO", 0.80),
		SyncBaseURL:          getEnvString("SYNC_BASE_URL", "http://localhost:8080"),
		SyncTimeout:          getEnvDuration("SYNC_TIMEOUT", 10*time.Second),
	}
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
	i, err := strconv.Atoi(v)
	if err != nil {
		return defaultVal
	}
	return i
}

func getEnvFloat(key string, defaultVal float64) float64 {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil || f <= 0 || f > 1 {
		return defaultVal
	}
	return f
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

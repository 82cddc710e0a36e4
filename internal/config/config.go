// internal/config/config.go

// Package config 從環境變數載入設定。
// 啟動時先讀取可選的 .env（godotenv，不覆寫已存在的變數），再以 envdecode 解碼。
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/joeshaw/envdecode"
	"github.com/joho/godotenv"
)

// 儲存後端
const (
	StoreMemory   = "memory"
	StoreSQLite   = "sqlite"
	StorePostgres = "postgres"
	StoreRedis    = "redis"
)

// 驗證方式
const (
	AuthNone  = "none"
	AuthToken = "token"
	AuthJWT   = "jwt"
)

// Config 為整個程式的設定；slice 以分號分隔。
type Config struct {
	Addr            string        `env:"TRANSFERD_ADDR,default=:8080"`
	ShutdownTimeout time.Duration `env:"TRANSFERD_SHUTDOWN_TIMEOUT,default=10s"`

	Store        string `env:"TRANSFERD_STORE,default=memory"`
	SnapshotPath string `env:"TRANSFERD_SNAPSHOT,default=data.json"`
	SQLitePath   string `env:"TRANSFERD_SQLITE_PATH,default=transferd.db"`
	PostgresDSN  string `env:"TRANSFERD_POSTGRES_DSN"`
	SeedFile     string `env:"TRANSFERD_SEED_FILE"`

	Redis Redis

	Auth      string        `env:"TRANSFERD_AUTH,default=none"`
	APITokens []string      `env:"TRANSFERD_API_TOKENS"`
	JWTSecret string        `env:"TRANSFERD_JWT_SECRET"`
	JWTIssuer string        `env:"TRANSFERD_JWT_ISSUER"`
	RateLimit float64       `env:"TRANSFERD_RATE_LIMIT,default=10"`
	RateBurst int           `env:"TRANSFERD_RATE_BURST,default=20"`
	IdemTTL   time.Duration `env:"TRANSFERD_IDEMPOTENCY_TTL,default=24h"`
	IdemSize  int           `env:"TRANSFERD_IDEMPOTENCY_SIZE,default=10000"`

	LogLevel  string `env:"TRANSFERD_LOG_LEVEL,default=info"`
	LogFormat string `env:"TRANSFERD_LOG_FORMAT,default=json"`
}

// Redis 連線設定。
type Redis struct {
	Addr     string `env:"TRANSFERD_REDIS_ADDR,default=localhost:6379"`
	Password string `env:"TRANSFERD_REDIS_PASSWORD"`
	DB       int    `env:"TRANSFERD_REDIS_DB,default=0"`
	Prefix   string `env:"TRANSFERD_REDIS_PREFIX,default=transferd:"`
}

// Load 讀取 .env（若存在）與環境變數，並驗證。
func Load() (Config, error) {
	_ = godotenv.Load()
	return FromEnv()
}

// FromEnv 只從目前的環境變數解碼（不讀 .env）。
// 數值或時間格式錯誤一律回傳錯誤，不會退回零值。
func FromEnv() (Config, error) {
	var c Config
	if err := envdecode.StrictDecode(&c); err != nil && !errors.Is(err, envdecode.ErrNoTargetFieldsAreSet) {
		return Config{}, fmt.Errorf("decode config: %w", err)
	}
	c.Store = strings.ToLower(strings.TrimSpace(c.Store))
	c.Auth = strings.ToLower(strings.TrimSpace(c.Auth))
	if err := c.Validate(); err != nil {
		return Config{}, err
	}
	return c, nil
}

// Validate 檢查設定組合是否可用。
func (c Config) Validate() error {
	var errs []error
	switch c.Store {
	case StoreMemory, StoreSQLite, StoreRedis:
	case StorePostgres:
		if c.PostgresDSN == "" {
			errs = append(errs, errors.New("TRANSFERD_POSTGRES_DSN is required for the postgres store"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown TRANSFERD_STORE %q (memory|sqlite|postgres|redis)", c.Store))
	}
	switch c.Auth {
	case AuthNone:
	case AuthToken:
		if len(c.APITokens) == 0 {
			errs = append(errs, errors.New("TRANSFERD_API_TOKENS is required for token auth"))
		}
	case AuthJWT:
		if c.JWTSecret == "" {
			errs = append(errs, errors.New("TRANSFERD_JWT_SECRET is required for jwt auth"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown TRANSFERD_AUTH %q (none|token|jwt)", c.Auth))
	}
	if c.ShutdownTimeout <= 0 {
		errs = append(errs, errors.New("TRANSFERD_SHUTDOWN_TIMEOUT must be > 0"))
	}
	if c.IdemTTL < 0 {
		errs = append(errs, errors.New("TRANSFERD_IDEMPOTENCY_TTL must be >= 0"))
	}
	if c.RateLimit < 0 || c.RateBurst < 0 {
		errs = append(errs, errors.New("rate limit and burst must be >= 0"))
	}
	if c.IdemSize < 0 {
		errs = append(errs, errors.New("TRANSFERD_IDEMPOTENCY_SIZE must be >= 0"))
	}
	return errors.Join(errs...)
}

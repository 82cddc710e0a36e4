// internal/cli/store.go
package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"

	"transferd/internal/auth"
	"transferd/internal/bank"
	"transferd/internal/config"
	"transferd/internal/storage"
)

const connectTimeout = 10 * time.Second

// openStore 依設定開啟後端；記憶體後端另回傳快照持久化鉤子。
func openStore(ctx context.Context, cfg config.Config) (bank.Store, func() error, error) {
	switch cfg.Store {
	case config.StoreMemory:
		m, err := storage.OpenMemory(cfg.SnapshotPath)
		if err != nil {
			return nil, nil, fmt.Errorf("open memory store: %w", err)
		}
		return m, m.Persist, nil
	case config.StoreSQLite:
		s, err := storage.OpenSQLite(cfg.SQLitePath)
		return s, nil, err
	case config.StorePostgres:
		s, err := storage.OpenPostgres(ctx, cfg.PostgresDSN, connectTimeout)
		return s, nil, err
	case config.StoreRedis:
		cctx, cancel := context.WithTimeout(ctx, connectTimeout)
		defer cancel()
		s, err := storage.OpenRedis(cctx, &redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		}, cfg.Redis.Prefix)
		return s, nil, err
	}
	return nil, nil, fmt.Errorf("unknown store %q", cfg.Store)
}

// newAuthenticator 依設定建立驗證器。
func newAuthenticator(cfg config.Config) (auth.Authenticator, error) {
	switch cfg.Auth {
	case config.AuthToken:
		return auth.NewStaticTokens(cfg.APITokens)
	case config.AuthJWT:
		return auth.NewJWT([]byte(cfg.JWTSecret), cfg.JWTIssuer)
	}
	return auth.None{}, nil
}

// internal/cli/serve.go
package cli

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"transferd/internal/bank"
	"transferd/internal/config"
	"transferd/internal/logging"
	"transferd/internal/metrics"
	"transferd/internal/server"
	"transferd/internal/storage"
)

// ServeOptions 覆寫環境設定的旗標。
type ServeOptions struct {
	*RootOptions
	Addr     string
	SeedFile string
}

// NewServeCommand 建立 serve 指令：開啟後端、（可選）載入種子資料、啟動 HTTP 伺服器。
// 收到 SIGINT/SIGTERM 時優雅關閉並寫回快照。
func NewServeCommand(root *RootOptions) *cobra.Command {
	opts := &ServeOptions{RootOptions: root}

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			if opts.Addr != "" {
				cfg.Addr = opts.Addr
			}
			if opts.SeedFile != "" {
				cfg.SeedFile = opts.SeedFile
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return serve(ctx, cfg)
		},
	}

	cmd.Flags().StringVar(&opts.Addr, "addr", "", "listen address (overrides TRANSFERD_ADDR)")
	cmd.Flags().StringVar(&opts.SeedFile, "seed", "", "seed accounts from this YAML file before serving")

	return cmd
}

func serve(ctx context.Context, cfg config.Config) error {
	log, err := logging.New(cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		return err
	}
	defer func() { _ = log.Sync() }()

	store, persist, err := openStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer func() {
		if err := store.Close(); err != nil {
			log.Error("close store", zap.Error(err))
		}
	}()

	if cfg.SeedFile != "" {
		accts, err := storage.LoadSeed(cfg.SeedFile)
		if err != nil {
			return err
		}
		res, err := storage.Seed(ctx, store, accts)
		if err != nil {
			return err
		}
		log.Info("seeded accounts", zap.Strings("created", res.Created), zap.Strings("skipped", res.Skipped))
		if persist != nil {
			if err := persist(); err != nil {
				return fmt.Errorf("persist seed: %w", err)
			}
		}
	}

	authn, err := newAuthenticator(cfg)
	if err != nil {
		return err
	}
	m := metrics.New("transferd")
	coord := bank.NewCoordinator(store,
		bank.WithLogger(log.Named("transfer")),
		bank.WithRecorder(m),
		bank.WithIncidentReporter(m),
	)
	s := server.NewServer(store, coord, persist, server.Options{
		Logger:          log.Named("http"),
		Auth:            authn,
		Metrics:         m,
		RateLimit:       cfg.RateLimit,
		RateBurst:       cfg.RateBurst,
		IdempotencyTTL:  cfg.IdemTTL,
		IdempotencySize: cfg.IdemSize,
	})

	srv := &http.Server{Addr: cfg.Addr, Handler: s.Router()}
	errc := make(chan error, 1)
	go func() {
		log.Info("transferd listening", zap.String("addr", cfg.Addr), zap.String("store", cfg.Store), zap.String("auth", cfg.Auth))
		errc <- srv.ListenAndServe()
	}()

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
	}

	log.Info("shutting down", zap.Duration("timeout", cfg.ShutdownTimeout))
	sctx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(sctx); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}

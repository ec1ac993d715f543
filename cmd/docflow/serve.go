package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"

	"github.com/nhle/docflow/internal/auth"
	"github.com/nhle/docflow/internal/broadcast"
	"github.com/nhle/docflow/internal/logging"
	"github.com/nhle/docflow/internal/model"
	"github.com/nhle/docflow/internal/ratelimit"
	"github.com/nhle/docflow/internal/server"
	"github.com/nhle/docflow/internal/store"
)

func serveCmd() *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the API server and the live feed channel",
		Long: `Run the DocFlow API server.

Examples:
  docflow serve --addr :8080
  DOCFLOW_REDIS_URL=redis://localhost:6379/0 docflow serve`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			if addr != "" {
				cfg.Server.Addr = addr
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return runServe(ctx, cfg, logging.New(cfg.Log))
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "", "listen address (default from config)")
	return cmd
}

func runServe(ctx context.Context, cfg *model.AppConfig, log *slog.Logger) error {
	if cfg.Auth.JWTSecret == "" {
		return fmt.Errorf("auth.jwt_secret is not set; export DOCFLOW_AUTH_JWT_SECRET")
	}
	issuer, err := auth.NewIssuer(cfg.Auth.JWTSecret, cfg.Auth.TokenTTL)
	if err != nil {
		return err
	}

	db, err := store.Open(cfg.DB.Driver, cfg.DB.DSN)
	if err != nil {
		return err
	}
	defer db.Close()

	deps := server.Deps{
		DB:      db,
		Issuer:  issuer,
		Hub:     broadcast.NewHub(broadcast.DefaultBuffer, log),
		Limiter: ratelimit.NewMemoryLimiter(cfg.Server.RateLimit, cfg.Server.RateWindow),
		Logger:  log,
		DevMode: cfg.Server.DevMode,
	}

	if cfg.Redis.URL != "" {
		opts, err := redis.ParseURL(cfg.Redis.URL)
		if err != nil {
			return fmt.Errorf("parsing redis.url: %w", err)
		}
		rdb := redis.NewClient(opts)
		defer rdb.Close()

		bus := broadcast.NewRedisBus(rdb, broadcast.DefaultChannel, deps.Hub, log)
		deps.Publisher = bus
		deps.Limiter = ratelimit.NewRedisLimiter(rdb, "docflow:", cfg.Server.RateLimit, cfg.Server.RateWindow)

		ready := make(chan struct{})
		busErr := make(chan error, 1)
		go func() { busErr <- bus.Run(ctx, ready) }()
		select {
		case <-ready:
			log.Info("broadcast: redis bus subscribed", "channel", broadcast.DefaultChannel)
		case err := <-busErr:
			return fmt.Errorf("starting redis bus: %w", err)
		}
	}

	return server.New(deps).Run(ctx, cfg.Server.Addr)
}

func migrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply pending schema migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			db, err := store.Open(cfg.DB.Driver, cfg.DB.DSN)
			if err != nil {
				return err
			}
			defer db.Close()

			v, err := db.SchemaVersion(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Printf("%s schema at version %d\n", db.Driver(), v)
			return nil
		},
	}
}

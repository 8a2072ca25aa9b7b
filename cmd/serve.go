package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"

	"authgate/internal/api"
	"authgate/internal/auth"
	"authgate/internal/database"
	"authgate/internal/metrics"
)

func newServeCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.serve(cmd.Context())
		},
	}
}

func (a *app) serve(ctx context.Context) error {
	if err := a.cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	// Create a context for initialization.
	initCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	client, err := database.ConnectMongoDB(initCtx, a.cfg.MongoURI, a.log)
	if err != nil {
		return fmt.Errorf("failed to connect to MongoDB: %w", err)
	}
	defer func() {
		if err := client.Disconnect(context.Background()); err != nil {
			a.log.Error("error disconnecting from DB", zap.Error(err))
		}
	}()

	col := database.GetUserCollection(client, a.cfg.MongoDB)
	if err := database.EnsureIndexes(initCtx, col); err != nil {
		return fmt.Errorf("failed to create indexes: %w", err)
	}

	m := metrics.New()
	svc, closeSvc, err := a.buildService(col, m)
	if err != nil {
		return err
	}
	defer closeSvc()

	handler := api.NewRouter(svc, api.RouterConfig{
		Health:      func(ctx context.Context) error { return database.Ping(ctx, client) },
		Metrics:     m.Handler(),
		CORSOrigins: a.cfg.CORSOriginList(),
		Logger:      a.log,
	})

	addr := ":" + strconv.Itoa(a.cfg.Port)
	srv := &http.Server{
		Handler:      handler,
		Addr:         addr,
		WriteTimeout: 15 * time.Second,
		ReadTimeout:  15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		a.log.Info("server running", zap.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	// Wait for interrupt signals for graceful shutdown.
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(quit)
	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	case <-quit:
	}
	a.log.Info("shutting down server")

	ctxShutdown, cancelShutdown := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancelShutdown()
	if err := srv.Shutdown(ctxShutdown); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}
	a.log.Info("server exited gracefully")
	return nil
}

// buildService wires the workflow engine to Mongo, SMTP and, when enabled, the Redis reset ledger.
func (a *app) buildService(col *mongo.Collection, m *metrics.Metrics) (*auth.Service, func(), error) {
	cfg := a.cfg
	tokens, err := auth.NewTokens(auth.TokenConfig{
		SessionSecret: []byte(cfg.JWTSecret),
		SessionTTL:    cfg.SessionTTL,
		ResetSecret:   []byte(cfg.JWTForgetPassword),
		ResetTTL:      cfg.ResetTTL,
	})
	if err != nil {
		return nil, nil, err
	}
	sender, err := auth.NewSMTPSender(auth.SMTPConfig{
		Server:   cfg.SMTPServer,
		User:     cfg.SendEmail,
		Password: cfg.SendEmailPassword,
		From:     cfg.MailFrom,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("mail transport: %w", err)
	}

	opts := []auth.Option{
		auth.WithLogger(a.log),
		auth.WithMetrics(m),
		auth.WithResetURL(cfg.ResetURLBase),
	}
	closer := func() {}
	if cfg.ResetSingleUse {
		rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		opts = append(opts, auth.WithResetLedger(auth.NewRedisLedger(rdb, "")))
		closer = func() {
			if err := rdb.Close(); err != nil {
				a.log.Warn("error closing redis client", zap.Error(err))
			}
		}
		a.log.Info("single-use reset tokens enabled", zap.String("redis", cfg.RedisAddr))
	}

	store := database.NewAccounts(col, cfg.StoreTimeout)
	hasher := auth.NewBcryptHasher(cfg.BcryptCost)
	return auth.NewService(store, hasher, tokens, sender, opts...), closer, nil
}

// Command gateway runs the session broker and rate-limited proxy gateway in
// front of the upstream content platform.
//
// The internal authentication layer sits in front of this process and passes
// the verified user identity in the X-Internal-User-Id header; the gateway
// consumes it without re-validation.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/caarlos0/env/v11"
	"github.com/google/uuid"
	"github.com/joho/godotenv"

	"github.com/WanHui888/wechat-article-exporter-sub001/core/gateway"
	"github.com/WanHui888/wechat-article-exporter-sub001/core/logger"
	"github.com/WanHui888/wechat-article-exporter-sub001/core/server"
	"github.com/WanHui888/wechat-article-exporter-sub001/core/session"
	"github.com/WanHui888/wechat-article-exporter-sub001/integration/database/pg"
	"github.com/WanHui888/wechat-article-exporter-sub001/integration/database/redis"
	"github.com/WanHui888/wechat-article-exporter-sub001/pkg/ratelimiter"
)

// userIDHeader carries the pre-verified internal user id, set by the auth
// layer in front of the gateway.
const userIDHeader = "X-Internal-User-Id"

type config struct {
	Server    server.Config
	Session   session.Config
	Gateway   gateway.Config
	RateLimit ratelimiter.Config
	Redis     redis.Config
	PG        pg.Config

	// SessionStore selects the durable backend: memory, redis, or postgres.
	SessionStore string     `env:"SESSION_STORE" envDefault:"memory"`
	LogLevel     slog.Level `env:"LOG_LEVEL" envDefault:"info"`
}

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run() error {
	// Missing .env is fine; real deployments set the environment directly.
	_ = godotenv.Load()

	var cfg config
	if err := env.Parse(&cfg); err != nil {
		return fmt.Errorf("parse config: %w", err)
	}

	log := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: cfg.LogLevel}))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	store, healthcheck, err := newStore(ctx, cfg, log)
	if err != nil {
		return err
	}

	queue, err := ratelimiter.NewQueueFromConfig(cfg.RateLimit, ratelimiter.WithLogger(log))
	if err != nil {
		return fmt.Errorf("rate limiter: %w", err)
	}

	sessions := session.NewManagerFromConfig(store, cfg.Session, session.WithLogger(log))

	gw, err := gateway.New(sessions, queue, cfg.Gateway, gateway.WithLogger(log))
	if err != nil {
		return fmt.Errorf("gateway: %w", err)
	}

	mux := http.NewServeMux()
	mux.Handle("/api/proxy", withUserID(gateway.NewHandler(gw, queue, log)))
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		if healthcheck != nil {
			if err := healthcheck(r.Context()); err != nil {
				http.Error(w, err.Error(), http.StatusServiceUnavailable)
				return
			}
		}
		w.WriteHeader(http.StatusOK)
	})

	srv, err := server.NewFromConfig(cfg.Server, server.WithLogger(log))
	if err != nil {
		return fmt.Errorf("server: %w", err)
	}

	go func() {
		<-ctx.Done()
		if err := srv.Stop(); err != nil {
			log.Error("server shutdown failed", logger.Error(err))
		}
	}()

	log.Info("gateway starting",
		logger.Component("main"),
		slog.String("store", cfg.SessionStore),
		slog.String("addr", cfg.Server.Addr))

	if err := srv.Start(ctx, mux); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

// newStore wires the configured durable session backend and its healthcheck.
func newStore(ctx context.Context, cfg config, log *slog.Logger) (session.Store, func(context.Context) error, error) {
	switch cfg.SessionStore {
	case "memory":
		return session.NewMemoryStore(), nil, nil
	case "redis":
		client, err := redis.Connect(ctx, cfg.Redis)
		if err != nil {
			return nil, nil, fmt.Errorf("redis: %w", err)
		}
		return redis.NewStore(client), redis.Healthcheck(client), nil
	case "postgres":
		pool, err := pg.Connect(ctx, cfg.PG)
		if err != nil {
			return nil, nil, fmt.Errorf("postgres: %w", err)
		}
		if err := pg.Migrate(ctx, pool, log); err != nil {
			return nil, nil, fmt.Errorf("postgres: %w", err)
		}
		return pg.NewStore(pool), pg.Healthcheck(pool), nil
	default:
		return nil, nil, fmt.Errorf("unknown session store %q", cfg.SessionStore)
	}
}

// withUserID lifts the trusted identity header into the request context.
func withUserID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if raw := r.Header.Get(userIDHeader); raw != "" {
			if id, err := uuid.Parse(raw); err == nil {
				r = r.WithContext(gateway.WithUserID(r.Context(), id))
			}
		}
		next.ServeHTTP(w, r)
	})
}

package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"

	"github.com/manenim/window-rate-limiter/internal/config"
	"github.com/manenim/window-rate-limiter/internal/httpapi"
	"github.com/manenim/window-rate-limiter/internal/logger"
	"github.com/manenim/window-rate-limiter/internal/stats"
	"github.com/manenim/window-rate-limiter/pkg/limiter"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "server: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	log := logger.New(os.Stdout, cfg.Log.Level, cfg.Log.Format)
	rec := stats.New()

	eg, ctx := errgroup.WithContext(ctx)

	store, closeStore, err := openStore(ctx, eg, cfg.Store)
	if err != nil {
		return err
	}
	defer closeStore()

	opts := []limiter.Option{
		limiter.WithPrefix(cfg.Store.KeyPrefix),
		limiter.WithTimeout(cfg.Store.Timeout),
		limiter.WithRecorder(rec),
	}
	if cfg.RateLimiter.PreciseRetryAfter {
		opts = append(opts, limiter.WithPreciseRetryAfter())
	}

	policies := make([]limiter.Policy, 0, len(cfg.RateLimiter.Limits))
	infos := make([]httpapi.LimiterInfo, 0, len(cfg.RateLimiter.Limits))
	for _, rule := range cfg.RateLimiter.Limits {
		p, err := limiter.New(rule.Algorithm, store, rule.Limit, opts...)
		if err != nil {
			return err
		}
		policies = append(policies, p)
		infos = append(infos, httpapi.LimiterInfo{
			Algorithm:     rule.Algorithm,
			Limit:         rule.Limit.Requests,
			WindowSeconds: int64(rule.Limit.Window / time.Second),
		})
		log.Info("limiter configured",
			slog.String("algorithm", string(rule.Algorithm)),
			slog.Int64("limit", rule.Limit.Requests),
			slog.Duration("window", rule.Limit.Window),
		)
	}

	handler := httpapi.NewRouter(httpapi.Config{
		Limiter:    limiter.NewChain(policies...),
		Store:      store,
		Stats:      rec,
		Logger:     log,
		FailOpen:   cfg.RateLimiter.FailOpen,
		TrustProxy: cfg.RateLimiter.TrustProxyHeaders,
		AdminToken: cfg.Server.AdminToken,
		Limiters:   infos,
	})

	srv := newHTTPServer(ctx, cfg.Server.Port, handler)

	eg.Go(func() error {
		log.Info("server listening", slog.String("addr", srv.Addr), slog.String("store", cfg.Store.Type))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("listen: %w", err)
		}
		return nil
	})

	eg.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		log.Info("shutting down")
		return srv.Shutdown(shutdownCtx)
	})

	if err := eg.Wait(); err != nil {
		log.Error("server stopped", logger.Error(err))
		return err
	}
	log.Info("server stopped")
	return nil
}

// newHTTPServer builds the listener. Request contexts keep ctx's values but
// not its cancellation, so requests still in flight when the signal arrives
// drain normally instead of failing their store calls.
func newHTTPServer(ctx context.Context, port string, handler http.Handler) *http.Server {
	base := context.WithoutCancel(ctx)
	return &http.Server{
		Addr:              net.JoinHostPort("", port),
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return base },
	}
}

// openStore builds the configured counter store. The memory store's sweep
// loop runs inside eg.
func openStore(ctx context.Context, eg *errgroup.Group, cfg config.StoreConfig) (limiter.CounterStore, func(), error) {
	switch cfg.Type {
	case "memory":
		mem := limiter.NewMemoryStore()
		eg.Go(func() error { return mem.Run(ctx, cfg.SweepInterval) })
		return mem, func() {}, nil
	default:
		opts := &redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		}
		if cfg.RedisURL != "" {
			parsed, err := redis.ParseURL(cfg.RedisURL)
			if err != nil {
				return nil, nil, fmt.Errorf("parse REDIS_URL: %w", err)
			}
			opts = parsed
		}
		client := redis.NewClient(opts)
		rs, err := limiter.NewRedisStore(client)
		if err != nil {
			_ = client.Close()
			return nil, nil, err
		}
		return rs, func() { _ = client.Close() }, nil
	}
}

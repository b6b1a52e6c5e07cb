package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill-redisstream/pkg/redisstream"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"

	"github.com/stayflow/gatekeeper/adapters/events"
	"github.com/stayflow/gatekeeper/adapters/stellar"
	"github.com/stayflow/gatekeeper/adapters/store"
	"github.com/stayflow/gatekeeper/adapters/tokenizer"
	"github.com/stayflow/gatekeeper/internal/config"
	"github.com/stayflow/gatekeeper/security/csrf"
	"github.com/stayflow/gatekeeper/security/ratelimit"
	"github.com/stayflow/gatekeeper/service"
	transport "github.com/stayflow/gatekeeper/transport/http"
)

func main() {
	// .env is optional; real deployments configure the environment directly.
	_ = godotenv.Load()

	log := slog.New(slog.NewJSONHandler(os.Stdout, nil))

	if err := run(log); err != nil {
		log.Error("gatekeeper exited", slog.Any("error", err))
		os.Exit(1)
	}
}

func run(log *slog.Logger) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	opts, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		return err
	}
	redisClient := redis.NewClient(opts)
	defer redisClient.Close()

	if err := redisClient.Ping(ctx).Err(); err != nil {
		return err
	}

	publisher, err := redisstream.NewPublisher(
		redisstream.PublisherConfig{Client: redisClient},
		watermill.NewSlogLogger(log),
	)
	if err != nil {
		return err
	}

	jwtTokenizer, err := tokenizer.NewJWTTokenizer([]byte(cfg.JWTSecret))
	if err != nil {
		return err
	}

	redisStore := store.NewRedisStore(redisClient, "gatekeeper:")
	eventPub := events.NewWatermillPublisher(publisher)
	verifier := stellar.NewVerifier()

	authService := service.NewAuthService(jwtTokenizer, verifier, eventPub, log)

	// CSRF records share the rate limiter's Redis so tokens survive
	// restarts and multi-instance deployments see the same state.
	csrfManager := csrf.NewManager(redisStore, log)
	go func() {
		if err := csrfManager.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			log.Warn("csrf sweep stopped", slog.Any("error", err))
		}
	}()

	limiterOpts := []ratelimit.Option{ratelimit.WithWhitelist(cfg.WhitelistedIPs)}
	if cfg.AuthRateLimit > 0 && cfg.AuthRateWindow > 0 {
		rules := ratelimit.DefaultRules()
		rules[ratelimit.CategoryAuth] = ratelimit.Rule{
			Window: time.Duration(cfg.AuthRateWindow) * time.Second,
			Limit:  cfg.AuthRateLimit,
		}
		limiterOpts = append(limiterOpts, ratelimit.WithRules(rules))
	}
	limiter := ratelimit.NewLimiter(redisStore, log, limiterOpts...)

	router := transport.NewRouter(transport.RouterConfig{
		AuthService:     authService,
		CSRFManager:     csrfManager,
		Limiter:         limiter,
		AllowedOrigins:  cfg.AllowedOrigins,
		CSRFExemptPaths: cfg.CSRFExemptPaths,
		LoginPath:       cfg.LoginPath,
		Secure:          cfg.Production(),
		Logger:          log,
	})

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("gatekeeper listening", slog.String("addr", srv.Addr), slog.String("environment", cfg.Environment))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	log.Info("shutting down")
	return srv.Shutdown(shutdownCtx)
}

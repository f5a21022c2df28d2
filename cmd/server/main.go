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

	"golang.org/x/sync/errgroup"

	authhandler "famledger/internal/auth/handler"
	authmetrics "famledger/internal/auth/metrics"
	authservice "famledger/internal/auth/service"
	revocationStore "famledger/internal/auth/store/revocation"
	userStore "famledger/internal/auth/store/user"
	"famledger/internal/auth/workers/cleanup"
	"famledger/internal/captcha"
	"famledger/internal/captcha/store/challenges"
	jwttoken "famledger/internal/jwt_token"
	"famledger/internal/platform/config"
	"famledger/internal/platform/database"
	"famledger/internal/platform/logger"
	"famledger/internal/ratelimit/checker"
	ratelimitmetrics "famledger/internal/ratelimit/metrics"
	"famledger/internal/ratelimit/service/lockout"
	"famledger/internal/ratelimit/service/originlimit"
	attemptsStore "famledger/internal/ratelimit/store/attempts"
	httptransport "famledger/internal/transport/http"
)

// main wires dependencies and keeps the server lifecycle small. Business
// logic lives in the internal service packages.
func main() {
	cfg := config.FromEnv()
	log := logger.New()

	if err := run(cfg, log); err != nil {
		log.Error("server exited", "error", err)
		os.Exit(1)
	}
}

func run(cfg config.Server, log *slog.Logger) error {
	pool, err := database.New(database.Config{URL: cfg.DatabaseURL})
	if err != nil {
		return err
	}
	defer pool.Close()

	// Store selection: PostgreSQL when configured, in-memory otherwise.
	var (
		users       authservice.UserStore
		revocations authservice.RevocationStore
		captchas    captcha.Store
		attempts    attemptStore
	)
	if pool != nil {
		db := pool.DB()
		users = userStore.NewPostgres(db)
		revocations = revocationStore.NewPostgres(db)
		captchas = challenges.NewPostgres(db)
		attempts = attemptsStore.NewPostgres(db)
		log.Info("using postgresql stores")
	} else {
		users = userStore.NewInMemoryStore()
		revocations = revocationStore.NewInMemoryStore()
		captchas = challenges.NewInMemoryStore()
		attempts = attemptsStore.New()
		log.Info("using in-memory stores")
	}

	rlMetrics := ratelimitmetrics.New()

	captchaService, err := captcha.New(captchas,
		captcha.WithLogger(log),
		captcha.WithTTL(cfg.CaptchaTTL),
	)
	if err != nil {
		return err
	}

	lockouts, err := lockout.New(attempts,
		lockout.WithLogger(log),
		lockout.WithMetrics(rlMetrics),
	)
	if err != nil {
		return err
	}
	origins, err := originlimit.New(attempts,
		originlimit.WithLogger(log),
		originlimit.WithMetrics(rlMetrics),
	)
	if err != nil {
		return err
	}
	gate, err := checker.New(origins, lockouts)
	if err != nil {
		return err
	}

	jwtService := jwttoken.NewJWTService(cfg.JWTSigningKey, cfg.TokenTTL)

	registry, err := authservice.NewRevocationRegistry(revocations, jwtService, cfg.TokenTTL,
		authservice.WithRegistryLogger(log),
	)
	if err != nil {
		return err
	}

	auth, err := authservice.New(
		users,
		captchaService,
		gate,
		attempts,
		jwtService,
		registry,
		authservice.WithLogger(log),
		authservice.WithMetrics(authmetrics.New()),
		authservice.WithTokenTTL(cfg.TokenTTL),
	)
	if err != nil {
		return err
	}

	sweeper, err := cleanup.New(captchaService, registry, attempts,
		cleanup.WithInterval(cfg.CleanupInterval),
		cleanup.WithAttemptRetention(cfg.AttemptRetention),
		cleanup.WithLogger(log),
	)
	if err != nil {
		return err
	}

	handler := authhandler.New(auth, captchaService, log)
	router := httptransport.NewRouter(
		handler,
		origins,
		jwttoken.NewJWTServiceAdapter(jwtService),
		registry,
		log,
	)

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		log.Info("starting http server", "addr", cfg.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		if err := sweeper.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		<-ctx.Done()
		log.Info("shutting down server gracefully")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		return err
	}
	log.Info("server stopped")
	return nil
}

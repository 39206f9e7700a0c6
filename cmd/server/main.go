package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"adresboek/internal/addressbook"
	bookHandler "adresboek/internal/addressbook/handler"
	"adresboek/internal/audit"
	"adresboek/internal/jwttoken"
	"adresboek/internal/lookup"
	"adresboek/internal/platform/config"
	"adresboek/internal/platform/httpserver"
	"adresboek/internal/platform/logger"
	"adresboek/internal/platform/metrics"
	"adresboek/internal/platform/redis"
	httptransport "adresboek/internal/transport/http"
	"adresboek/internal/workflow"
	workflowHandler "adresboek/internal/workflow/handler"
)

// main wires dependencies and owns the process lifecycle. Business logic
// lives in the internal packages; nothing here should grow branches beyond
// backend selection.
func main() {
	cfg := config.FromEnv()
	log := logger.New(cfg.LogLevel)
	m := metrics.New()

	checkers := map[string]httptransport.HealthChecker{}

	redisClient, err := redis.New(cfg.RedisURL)
	if err != nil {
		log.Error("failed to connect to redis", "error", err)
		os.Exit(1)
	}

	var sessions workflow.SessionStore
	if redisClient != nil {
		sessions = workflow.NewRedisSessionStore(redisClient.Client, cfg.SessionTTL)
		checkers["redis"] = redisClient
		defer redisClient.Close()
		log.Info("using redis session store")
	} else {
		sessions = workflow.NewInMemorySessionStore()
		log.Info("using in-memory session store")
	}

	var auditStore audit.Store
	if cfg.PostgresDSN != "" {
		pgStore, err := audit.NewPostgresStore(cfg.PostgresDSN)
		if err != nil {
			log.Error("failed to connect to postgres", "error", err)
			os.Exit(1)
		}
		auditStore = pgStore
		checkers["postgres"] = pgStore
		defer pgStore.Close()
		log.Info("using postgres audit store")
	} else {
		auditStore = audit.NewInMemoryStore()
		log.Info("using in-memory audit store")
	}

	var gateway lookup.Gateway
	if cfg.LookupBaseURL != "" {
		gateway = lookup.NewHTTPClient(cfg.LookupBaseURL, cfg.LookupTimeout)
		log.Info("using lookup service", "base_url", cfg.LookupBaseURL)
	} else {
		gateway = lookup.MockGateway{Latency: 300 * time.Millisecond}
		log.Warn("LOOKUP_BASE_URL not set, serving mock lookup results")
	}

	publisher := audit.NewPublisher(auditStore, log)
	book := addressbook.NewInMemoryStore()
	tokens := jwttoken.NewJWTService(cfg.JWTSigningKey, "adresboek")
	validator := httptransport.SessionValidator{Tokens: tokens}

	controller := workflow.NewController(sessions, book, gateway, log, m, publisher)

	router := httptransport.NewRouter(log, m, checkers,
		workflowHandler.New(controller, tokens, validator, cfg.SessionTTL, log),
		bookHandler.New(book, validator, publisher, log),
	)
	srv := httpserver.New(cfg.Addr, router)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info("starting adresboek", "addr", cfg.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		err := publisher.Run(ctx)
		if errors.Is(err, context.Canceled) {
			return nil
		}
		return err
	})
	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		log.Error("server exited with error", "error", err)
		os.Exit(1)
	}
	log.Info("server stopped")
}

package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	authhandler "flighttracker/internal/auth/handler"
	"flighttracker/internal/auth/store/revocation"
	"flighttracker/internal/flight/eventlog"
	flighthandler "flighttracker/internal/flight/handler"
	flightmetrics "flighttracker/internal/flight/metrics"
	"flighttracker/internal/flight/schema"
	"flighttracker/internal/flight/service"
	jwttoken "flighttracker/internal/jwt_token"
	"flighttracker/internal/platform/config"
	"flighttracker/internal/platform/httpserver"
	"flighttracker/internal/platform/logger"
	"flighttracker/internal/platform/metrics"
	"flighttracker/internal/platform/redis"
	"flighttracker/internal/storage/blob"
	httptransport "flighttracker/internal/transport/http"
	"flighttracker/pkg/platform/middleware/admin"
	"flighttracker/pkg/platform/middleware/auth"
	"flighttracker/pkg/platform/middleware/ratelimit"
)

const shutdownTimeout = 10 * time.Second

func newServeCmd(v *viper.Viper) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(v)
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return serve(ctx, cfg)
		},
	}
}

func serve(ctx context.Context, cfg config.Server) error {
	log := logger.New(cfg.LogLevel, cfg.LogFormat)
	if cfg.UsesDefaultSigningKey() {
		log.Warn("using the development JWT signing key; set JWT_SIGNING_KEY in production")
	}

	store, err := blob.NewFromConfig(ctx, cfg.Storage)
	if err != nil {
		return fmt.Errorf("init storage: %w", err)
	}

	reg := prometheus.DefaultRegisterer
	flights, err := service.New(store,
		service.WithLogger(log),
		service.WithMetrics(flightmetrics.New(reg)),
		service.WithFetchConcurrency(cfg.Query.FetchConcurrency),
		service.WithDefaultLimit(cfg.Query.DefaultLimit),
	)
	if err != nil {
		return err
	}

	readiness := map[string]httptransport.ReadinessCheck{
		"store": func(ctx context.Context) error {
			_, err := store.List(ctx, eventlog.PartitionPrefix(time.Now()))
			return err
		},
	}

	redisClient, err := redis.New(ctx, cfg.Redis)
	if err != nil {
		return fmt.Errorf("init redis: %w", err)
	}
	var trl revocation.TokenRevocationList
	if redisClient != nil {
		defer redisClient.Close()
		trl = revocation.NewRedisTRL(redisClient.Client)
		readiness["redis"] = redisClient.Health
		log.Info("token revocation list backed by redis")
	} else {
		trl = revocation.NewInMemoryTRL()
		log.Info("token revocation list held in memory")
	}

	jwtService := jwttoken.NewJWTService(cfg.JWTSigningKey, cfg.JWTIssuer, cfg.JWTAudience)
	limiter := ratelimit.New(cfg.RateLimit.AppendRPS, cfg.RateLimit.AppendBurst, log)

	router := httptransport.NewRouter(httptransport.Deps{
		Logger:          log,
		Metrics:         metrics.New(reg),
		Gatherer:        prometheus.DefaultGatherer,
		AuthMiddleware:  auth.RequireAuth(jwttoken.NewJWTServiceAdapter(jwtService), revocation.NewChecker(trl), log),
		AdminMiddleware: admin.RequireAdminToken(cfg.AdminAPIToken, log),
		APIRoutes: []httptransport.Registrar{
			flighthandler.New(flights, schema.MustNew(), log, flighthandler.WithAppendMiddleware(limiter.Middleware)),
		},
		AdminRoutes: []httptransport.Registrar{
			authhandler.New(trl, log),
		},
		Readiness: readiness,
	})

	srv := httpserver.New(cfg.Addr, router)
	errCh := make(chan error, 1)
	go func() {
		log.Info("starting flight tracker",
			"addr", cfg.Addr,
			"storage", cfg.Storage.Type,
		)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("graceful shutdown failed", slog.Any("error", err))
		return err
	}
	return nil
}

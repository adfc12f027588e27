package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	_ "github.com/noah-isme/ccrm-api/api/swagger"
	"github.com/noah-isme/ccrm-api/internal/handler"
	"github.com/noah-isme/ccrm-api/internal/repository"
	"github.com/noah-isme/ccrm-api/internal/service"
	"github.com/noah-isme/ccrm-api/pkg/cache"
	"github.com/noah-isme/ccrm-api/pkg/config"
	"github.com/noah-isme/ccrm-api/pkg/database"
)

const shutdownTimeout = 10 * time.Second

func newServeCmd(a *app) *cobra.Command {
	var seed bool
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return a.serve(ctx, seed)
		},
	}
	cmd.Flags().BoolVar(&seed, "seed", false, "load sample students and courses at startup")
	return cmd
}

func (a *app) serve(ctx context.Context, seed bool) error {
	cfg, logr := a.cfg, a.logger
	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	metrics := service.NewMetricsService()
	tx := service.NewMemoryTx()
	validate := service.NewValidator()
	catalog := service.NewCatalogService(tx, cfg.Records, validate, logr)
	records := service.NewRecordsService(tx, catalog, cfg.Records, validate, metrics, logr)
	files := service.NewFileService(cfg.Storage, metrics, logr)
	transfer := service.NewTransferService(tx, files, records, catalog, logr)

	var cacheRepo service.CacheRepository
	redisClient, err := cache.NewRedis(ctx, cfg.Redis)
	if err != nil {
		logr.Warn("redis unavailable, report cache disabled", zap.Error(err))
	} else if redisClient != nil {
		defer redisClient.Close() //nolint:errcheck
		cacheRepo = repository.NewCacheRepository(redisClient)
	}
	reports := service.NewReportService(records, catalog, service.NewCacheService(cacheRepo, metrics, cfg.Cache.TTL, logr), logr)
	reports.Purge(ctx)

	var mirror *service.MirrorService
	db, err := database.NewPostgres(ctx, cfg.Database)
	if err != nil {
		return fmt.Errorf("connect postgres: %w", err)
	}
	if db != nil {
		defer db.Close() //nolint:errcheck
		mirror = service.NewMirrorService(repository.NewStudentMirrorRepository(db), records, metrics, logr)
		if err := mirror.Prepare(ctx); err != nil {
			return err
		}
		mirror.StartBackground(ctx, cfg.Database.SyncRetries, cfg.Database.SyncRetryDelay)
		defer mirror.StopBackground()
	}

	if seed {
		if err := service.SeedSampleData(ctx, records, catalog); err != nil {
			return fmt.Errorf("seed sample data: %w", err)
		}
		logr.Info("sample data loaded")
	}

	var ready atomic.Bool
	router := handler.NewRouter(handler.Dependencies{
		Records:        records,
		Catalog:        catalog,
		Files:          files,
		Transfer:       transfer,
		Reports:        reports,
		Mirror:         mirror,
		Metrics:        metrics,
		Logger:         logr,
		AllowedOrigins: cfg.CORS.AllowedOrigins,
		EnableDocs:     cfg.Env != config.EnvProduction,
		Ready:          ready.Load,
	})

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logr.Info("server starting", zap.String("addr", srv.Addr), zap.String("env", cfg.Env))
		errCh <- srv.ListenAndServe()
	}()
	ready.Store(true)

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	logr.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}

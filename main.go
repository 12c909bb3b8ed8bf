package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"
	"p9e.in/crusher/config"
	"p9e.in/crusher/middleware"
	"p9e.in/crusher/pkg/catalog"
	"p9e.in/crusher/pkg/crusher"
	"p9e.in/crusher/pkg/locks"
	"p9e.in/crusher/pkg/orders"
	"p9e.in/crusher/pkg/reports"
	"p9e.in/crusher/pkg/storage"
	"p9e.in/crusher/routes"
)

var (
	Version   = "dev"
	BuildTime = ""
)

func main() {

	versionFlag := flag.Bool("version", false, "Print version info and exit")
	flag.Parse()

	if *versionFlag {
		fmt.Printf("Version:   %s\n", Version)
		fmt.Printf("BuildTime: %s\n", BuildTime)
		os.Exit(0)
	}

	cfg := config.Load()
	logger := config.NewLogger(cfg.LogLevel, cfg.LogFormat)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := config.OpenDatabase(cfg)
	if err != nil {
		logger.WithError(err).Fatal("could not open database")
	}
	if err := config.Migrations(db); err != nil {
		logger.WithError(err).Fatal("could not run migrations")
	}

	opts := crusher.Options{Retries: cfg.DispatchRetries, Locker: locks.Noop{}}
	if cfg.RedisAddress != "" {
		rdb, err := config.ConnectRedis(ctx, cfg.RedisAddress)
		if err != nil {
			logger.WithError(err).Warn("redis unavailable, running without distributed run locks")
		} else {
			defer rdb.Close()
			opts.Locker = locks.NewRedisLocker(rdb, 0, 0)
			logger.WithField("addr", cfg.RedisAddress).Info("distributed run locks enabled")
		}
	}

	store, uploadDir, closeStore := openStore(ctx, cfg, logger)
	defer closeStore()

	auth := middleware.NewAuth(cfg.JWTSecret)
	if !auth.Enabled() {
		logger.Warn("JWT_SECRET not set, API authentication is disabled")
	}

	handler := routes.RegisterRoutes(routes.Deps{
		DB:         db,
		Logger:     logger,
		Auth:       auth,
		Materials:  catalog.NewMaterialService(db, logger),
		Parties:    catalog.NewPartyService(db, logger, cfg.PhoneRegion),
		Orders:     orders.NewOrderService(db, logger),
		Runs:       crusher.NewRunService(db, logger, opts),
		Dispatches: crusher.NewDispatchService(db, logger, store, opts),
		Reports:    reports.NewReportService(db),
		UploadDir:  uploadDir,
		Version:    Version,
	})
	handler = middleware.Recoverer(logger)(handler)
	handler = middleware.RequestLogger(logger)(handler)
	handler = middleware.CORS(handler)

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       2 * time.Minute,
		WriteTimeout:      2 * time.Minute,
		IdleTimeout:       2 * time.Minute,
	}

	go func() {
		logger.WithFields(logrus.Fields{"port": cfg.Port, "version": Version}).Info("server starting")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.WithError(err).Fatal("server failed")
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.WithError(err).Error("graceful shutdown failed")
	}
	if sqlDB, err := db.DB(); err == nil {
		sqlDB.Close()
	}
}

// openStore picks the dispatch document backend. The returned directory is
// non-empty only for local storage, which the router then serves.
func openStore(ctx context.Context, cfg config.AppConfig, logger *logrus.Logger) (storage.Store, string, func()) {
	if cfg.StorageBackend == "gcs" {
		gcs, err := storage.NewGCS(ctx, cfg.GCSBucket)
		if err != nil {
			logger.WithError(err).Fatal("could not open GCS bucket")
		}
		logger.WithField("bucket", cfg.GCSBucket).Info("dispatch documents stored in GCS")
		return gcs, "", func() { gcs.Close() }
	}
	local := storage.NewLocal(cfg.UploadDir, "/uploads")
	logger.WithField("dir", local.Dir()).Info("dispatch documents stored locally")
	return local, local.Dir(), func() {}
}

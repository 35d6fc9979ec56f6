package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hearthbank/family_backend/config"
	"github.com/hearthbank/family_backend/handlers"
	"github.com/hearthbank/family_backend/models"
	"github.com/sirupsen/logrus"
)

func main() {
	settings := config.SettingsFromEnv()
	logger := config.GetLogger()

	// SIGTERM drains in-flight requests before exit.
	sigCtx, stopSignals := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stopSignals()

	// Listen before dependencies are up; the readiness gate answers 503 until MarkReady.
	app := &handlers.App{Logger: logger, Settings: settings}
	srv := &http.Server{
		Addr:              ":" + settings.Port,
		Handler:           handlers.NewRouter(app),
		ReadHeaderTimeout: 10 * time.Second,
	}
	serverErrCh := make(chan error, 1)
	go func() {
		serverErrCh <- srv.ListenAndServe()
	}()

	db := config.ConnectDatabaseWithRetry(config.DatabaseSettingsFromEnv())
	defer func() {
		if err := config.CloseDatabase(db); err != nil {
			logger.WithFields(logrus.Fields{"field": "database"}).Error("close failed: " + err.Error())
		}
	}()

	// AutoMigrate can lock tables; large deployments run it as a separate job.
	if !settings.SkipMigrations {
		if err := models.MigrateTable(db); err != nil {
			logger.WithFields(logrus.Fields{"field": "migrations"}).Fatal(err.Error())
		}
	} else {
		logger.WithFields(logrus.Fields{"field": "migrations"}).Warn("SKIP_MIGRATIONS=true; skipping AutoMigrate on startup")
	}

	rdb, err := config.ConnectRedisWithRetry(sigCtx, settings.RedisAddress, 5)
	if err != nil {
		// sessions fall back to the database and payday runs without the distributed lock
		logger.WithFields(logrus.Fields{"field": "redis"}).Warn("redis unavailable: " + err.Error())
		rdb = nil
	}
	defer func() {
		_ = rdb.Close()
	}()

	app.DB = db
	app.Redis = rdb
	app.MarkReady()

	logger.WithFields(logrus.Fields{
		"info": "Connection Established",
	}).Info("listening on :", settings.Port)
	log.Println("Server started successfully")

	select {
	case <-sigCtx.Done():
	case err := <-serverErrCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.WithFields(logrus.Fields{"field": "http"}).Error("server stopped unexpectedly: " + err.Error())
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.WithFields(logrus.Fields{"field": "http"}).Error("graceful shutdown failed: " + err.Error())
	}
}

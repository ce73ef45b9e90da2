package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/robfig/cron/v3"

	"eventsys/internal/config"
	"eventsys/internal/database"
	"eventsys/internal/email"
	"eventsys/internal/logging"
	"eventsys/internal/mailer"
	"eventsys/internal/server"
)

func main() {
	cfgPath := os.Getenv("EVENTSYS_CONFIG")
	if cfgPath == "" {
		cfgPath = "eventsys.yaml"
	}

	cfg, err := config.Load(cfgPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config: %v\n", err)
		os.Exit(1)
	}

	logger := logging.Setup(cfg.LogLevel)

	db, err := database.Open(cfg.DBPath)
	if err != nil {
		logger.Error("open database", "path", cfg.DBPath, "error", err)
		os.Exit(1)
	}
	defer db.Close()

	emailClient := email.NewClient(cfg.Mail.ServerToken, cfg.Mail.FromEmail)
	if !emailClient.Configured() {
		logger.Warn("mail server token not set, outgoing email disabled")
	}

	mailQueue := mailer.NewQueue(emailClient, logger.With("component", "mailer"))
	mailQueue.Start(context.Background())
	defer mailQueue.Stop()

	srv := server.New(db, mailQueue, cfg.BaseURL, logger)

	// Hourly sweeps keep expired sessions, tokens, and limiter entries from
	// piling up.
	sweeper := cron.New()
	sweeper.AddFunc("@hourly", func() {
		if n, err := srv.SessionStore().DeleteExpired(); err != nil {
			logger.Error("sweep sessions", "error", err)
		} else if n > 0 {
			logger.Info("swept expired sessions", "count", n)
		}
		if n, err := srv.TokenStore().ClearExpired(); err != nil {
			logger.Error("sweep tokens", "error", err)
		} else if n > 0 {
			logger.Info("swept expired tokens", "count", n)
		}
		srv.RateLimiter().Cleanup()
	})
	sweeper.Start()
	defer sweeper.Stop()

	httpServer := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      srv.Router(),
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	go func() {
		logger.Info("eventsys listening", "port", cfg.Port)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("shutdown error", "error", err)
	}
}

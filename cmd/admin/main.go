package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"

	"github.com/groupleads/leadbot-admin/internal/api"
	"github.com/groupleads/leadbot-admin/internal/archive"
	"github.com/groupleads/leadbot-admin/internal/config"
	"github.com/groupleads/leadbot-admin/internal/export"
	"github.com/groupleads/leadbot-admin/internal/jobs"
	"github.com/groupleads/leadbot-admin/internal/notifications"
	"github.com/groupleads/leadbot-admin/internal/scheduler"
	"github.com/groupleads/leadbot-admin/internal/storage"
)

func main() {
	// Load environment variables from .env file if it exists
	if err := godotenv.Load(); err != nil {
		logrus.Info("No .env file found, using environment variables")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	logrus.SetLevel(logrus.InfoLevel)
	if cfg.Debug {
		logrus.SetLevel(logrus.DebugLevel)
	}
	logrus.SetFormatter(&logrus.JSONFormatter{})

	logrus.Info("Starting lead bot admin server")

	bots, err := config.LoadBots(cfg.BotsConfigPath)
	if err != nil {
		logrus.Fatalf("Failed to load bot configuration: %v", err)
	}

	db, err := storage.Open(cfg.DatabasePath)
	if err != nil {
		logrus.Fatalf("Failed to open database: %v", err)
	}
	defer db.Close()

	posts := storage.NewPostStore(db)
	groups := storage.NewGroupStore(db)
	messages := storage.NewMessageStore(db)
	jobStore := storage.NewJobStore(db)

	// Jobs left pending or running by a previous process can never finish.
	if n, err := jobStore.CleanupStale(); err != nil {
		logrus.Errorf("Stale job cleanup failed: %v", err)
	} else if n > 0 {
		logrus.Infof("Marked %d stale jobs as failed", n)
	}

	// Register every configured group so the groups view shows targets that
	// have never been scraped yet.
	for i := range bots.Bots {
		bot := &bots.Bots[i]
		for _, groupID := range bot.Groups {
			if err := groups.Ensure(groupID, bot.BotID); err != nil {
				logrus.Errorf("Failed to register group %s for bot %s: %v", groupID, bot.BotID, err)
			}
		}
	}

	notificationService := notifications.NewService(cfg)

	var exporter *export.Service
	if cfg.StorageAccount != "" {
		arc, err := archive.NewAzureArchive(cfg.StorageAccount, cfg.StorageContainer)
		if err != nil {
			logrus.Fatalf("Failed to initialize archive storage: %v", err)
		}
		exporter = export.NewService(posts, arc)
	} else {
		logrus.Info("No storage account configured, CSV export disabled")
	}

	manager := jobs.NewManager(jobStore, bots, jobs.NewScriptRunners(cfg), notificationService)
	defer manager.Close()

	schedulerService := scheduler.NewService(cfg, bots, manager, groups, exporter, notificationService)
	if err := schedulerService.Start(); err != nil {
		logrus.Fatalf("Failed to start scheduler: %v", err)
	}
	defer schedulerService.Stop()

	server := &http.Server{
		Addr:        fmt.Sprintf(":%s", cfg.Port),
		Handler:     api.NewServer(cfg, bots, db, posts, groups, messages, manager, exporter).Router(),
		ReadTimeout: 15 * time.Second,
		// Long timeout so the jobs stream is not cut off mid-connection.
		WriteTimeout: 0,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logrus.Infof("HTTP server starting on port %s", cfg.Port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logrus.Fatalf("HTTP server failed: %v", err)
		}
	}()

	// Wait for interrupt signal to gracefully shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logrus.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		logrus.Errorf("Server forced to shutdown: %v", err)
	}

	logrus.Info("Server exited")
}

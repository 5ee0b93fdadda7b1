package main

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/lib/pq" // PostgreSQL driver

	"github.com/aegisaware/phishtrack/internal/config"
	"github.com/aegisaware/phishtrack/internal/notify"
	"github.com/aegisaware/phishtrack/internal/repository/postgres"
	"github.com/aegisaware/phishtrack/internal/service/target"
	"github.com/aegisaware/phishtrack/internal/tracking"
)

func main() {
	configPath := "config.yaml"
	if len(os.Args) > 1 {
		configPath = os.Args[1]
	}

	cfg, err := config.LoadFromEnv(configPath)
	if err != nil {
		log.Fatalf("[Tracking] Failed to load config: %v", err)
	}

	db, err := sql.Open("postgres", cfg.Database.URL)
	if err != nil {
		log.Fatalf("[Tracking] Database open failed: %v", err)
	}
	defer db.Close()
	db.SetMaxOpenConns(cfg.Database.MaxOpenConns)
	db.SetMaxIdleConns(cfg.Database.MaxIdleConns)

	pingCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		log.Fatalf("[Tracking] Database ping failed: %v", err)
	}

	targetRepo := postgres.NewTargetRepo(db)
	campaignRepo := postgres.NewCampaignRepo(db)
	directoryRepo := postgres.NewDirectoryRepo(db)

	webhookSource := notify.NewRefreshingSource(directoryRepo,
		cfg.Webhooks.GlobalDiscordURL, cfg.Webhooks.RefreshInterval())
	dispatcher := notify.NewDispatcher(webhookSource, cfg.Webhooks.Timeout())

	resolver := tracking.NewResolver(targetRepo, campaignRepo, directoryRepo,
		target.NewRecorder(targetRepo), dispatcher)

	addr := fmt.Sprintf(":%d", cfg.Tracking.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      tracking.NewHandler(resolver).Routes(),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 15 * time.Second,
	}

	go func() {
		log.Printf("[Tracking] Public tracking service listening on %s", addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("[Tracking] Listen failed: %v", err)
		}
	}()

	done := make(chan os.Signal, 1)
	signal.Notify(done, os.Interrupt, syscall.SIGINT, syscall.SIGTERM)
	<-done
	log.Println("[Tracking] Shutting down...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("[Tracking] Shutdown error: %v", err)
	}
	log.Println("[Tracking] Stopped")
}

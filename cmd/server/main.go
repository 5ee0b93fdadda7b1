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

	"github.com/aegisaware/phishtrack/internal/analytics"
	"github.com/aegisaware/phishtrack/internal/api"
	"github.com/aegisaware/phishtrack/internal/config"
	"github.com/aegisaware/phishtrack/internal/repository/postgres"
	"github.com/aegisaware/phishtrack/internal/service/campaign"
	"github.com/aegisaware/phishtrack/internal/service/risk"
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
		log.Fatalf("[Server] Failed to load config: %v", err)
	}

	db, err := openDB(cfg)
	if err != nil {
		log.Fatalf("[Server] Database connection failed: %v", err)
	}
	defer db.Close()

	targetRepo := postgres.NewTargetRepo(db)
	campaignRepo := postgres.NewCampaignRepo(db)
	riskRepo := postgres.NewRiskRepo(db)
	directoryRepo := postgres.NewDirectoryRepo(db)

	campaignSvc := campaign.NewService(campaignRepo)
	analyticsSvc := analytics.NewService(risk.NewAggregator(riskRepo))

	// Preview shares the production resolver; the preview flag keeps the
	// recorder and notifier out of the path.
	resolver := tracking.NewResolver(targetRepo, campaignRepo, directoryRepo, target.NewRecorder(targetRepo), nil)

	handler := api.NewHandler(campaignSvc, analyticsSvc, resolver, cfg.Auth.AdminToken)

	addr := fmt.Sprintf("%s:%d", cfg.Server.GetHost(), cfg.Server.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      handler.Routes(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
	}

	go func() {
		log.Printf("[Server] Admin API listening on %s", addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("[Server] Listen failed: %v", err)
		}
	}()

	waitForSignal()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("[Server] Shutdown error: %v", err)
	}
	log.Println("[Server] Stopped")
}

func openDB(cfg *config.Config) (*sql.DB, error) {
	db, err := sql.Open("postgres", cfg.Database.URL)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(cfg.Database.MaxOpenConns)
	db.SetMaxIdleConns(cfg.Database.MaxIdleConns)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		return nil, err
	}
	return db, nil
}

func waitForSignal() {
	done := make(chan os.Signal, 1)
	signal.Notify(done, os.Interrupt, syscall.SIGINT, syscall.SIGTERM)
	<-done
	log.Println("[Server] Shutting down...")
}

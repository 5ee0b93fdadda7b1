package main

import (
	"context"
	"database/sql"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/lib/pq" // PostgreSQL driver
	"github.com/redis/go-redis/v9"

	"github.com/aegisaware/phishtrack/internal/config"
	"github.com/aegisaware/phishtrack/internal/pkg/distlock"
	"github.com/aegisaware/phishtrack/internal/repository/postgres"
	"github.com/aegisaware/phishtrack/internal/worker"
)

func main() {
	configPath := "config.yaml"
	if len(os.Args) > 1 {
		configPath = os.Args[1]
	}

	cfg, err := config.LoadFromEnv(configPath)
	if err != nil {
		log.Fatalf("[Worker] Failed to load config: %v", err)
	}

	db, err := sql.Open("postgres", cfg.Database.URL)
	if err != nil {
		log.Fatalf("[Worker] Database open failed: %v", err)
	}
	defer db.Close()
	db.SetMaxOpenConns(cfg.Database.MaxOpenConns)
	db.SetMaxIdleConns(cfg.Database.MaxIdleConns)

	pingCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		log.Fatalf("[Worker] Database ping failed: %v", err)
	}

	// Redis is optional: without it the lock factory falls back to PG
	// advisory locks, and the status claim stays the correctness primitive
	// either way.
	var redisClient *redis.Client
	if cfg.Redis.Addr != "" {
		redisClient = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err := redisClient.Ping(pingCtx).Err(); err != nil {
			log.Printf("[Worker] Redis unavailable, using PG advisory locks: %v", err)
			redisClient = nil
		}
	}

	var sender worker.Sender = worker.NoopSender{}
	if cfg.SES.Enabled {
		sesSender, err := worker.NewSESSender(context.Background(), cfg.SES)
		if err != nil {
			log.Fatalf("[Worker] SES sender init failed: %v", err)
		}
		sender = sesSender
		log.Printf("[Worker] SES sender enabled (region %s)", cfg.SES.Region)
	} else {
		log.Println("[Worker] Outbound email disabled; launches create targets only")
	}

	targetRepo := postgres.NewTargetRepo(db)
	campaignRepo := postgres.NewCampaignRepo(db)
	directoryRepo := postgres.NewDirectoryRepo(db)

	launcher := worker.NewLauncher(targetRepo, directoryRepo, sender, cfg.Tracking.BaseURL, cfg.SES.Timeout())
	lockFactory := func(key string, ttl time.Duration) distlock.DistLock {
		return distlock.NewLock(redisClient, db, key, ttl)
	}
	scheduler := worker.NewScheduler(campaignRepo, launcher, lockFactory, cfg.Scheduler.PollInterval())

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go scheduler.Start(ctx)

	<-ctx.Done()
	log.Println("[Worker] Shutting down...")
	scheduler.Stop()
	log.Println("[Worker] Stopped")
}

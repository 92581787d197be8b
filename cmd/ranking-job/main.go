package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/tuanle2204/BookSwap-Group07/internal/ranking"
	"github.com/tuanle2204/BookSwap-Group07/pkg/database"
	"github.com/tuanle2204/BookSwap-Group07/pkg/logger"
)

// ranking-job runs the daily ranking update outside the API server, for
// deployments that prefer a cron-style process over the /admin endpoint.
func main() {
	once := flag.Bool("once", false, "run a single update and exit")
	interval := flag.Duration("interval", 24*time.Hour, "time between updates")
	flag.Parse()

	_ = godotenv.Load()

	logLevel := logger.INFO
	if level := os.Getenv("LOG_LEVEL"); level != "" {
		logLevel = logger.LogLevel(level)
	}
	jsonFormat := os.Getenv("LOG_FORMAT") == "json"
	logger.Init(logLevel, jsonFormat, os.Stdout)

	log := logger.GetLogger().WithContext("component", "ranking_job")

	dbPath := os.Getenv("DB_PATH")
	if dbPath == "" {
		dbPath = "./data/bookswap.db"
	}
	if err := database.InitDatabase(dbPath); err != nil {
		log.Error("failed_to_initialize_database", "error", err.Error(), "path", dbPath)
		os.Exit(1)
	}
	defer database.Close()

	cfg, err := ranking.LoadConfig(os.Getenv("RANKING_CONFIG"))
	if err != nil {
		log.Error("failed_to_load_ranking_config", "error", err.Error())
		os.Exit(1)
	}
	service := ranking.NewService(database.DB, cfg)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	run := func() {
		result := service.DailyRankingUpdate(ctx)
		if result.Success {
			log.Info("ranking_update_finished",
				"users_updated", result.UsersUpdated,
				"users_decayed", result.UsersDecayed)
		} else {
			log.Error("ranking_update_failed", "error", result.Error)
		}
	}

	run()
	if *once {
		return
	}

	ticker := time.NewTicker(*interval)
	defer ticker.Stop()
	log.Info("ranking_job_scheduled", "interval", interval.String())

	for {
		select {
		case <-ctx.Done():
			log.Info("ranking_job_stopped")
			return
		case <-ticker.C:
			run()
		}
	}
}

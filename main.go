package main

import (
	"log/slog"
	"os"

	"github.com/hibiken/asynq"
	"github.com/peertalk/peertalk/api"
	"github.com/peertalk/peertalk/db"
	"github.com/peertalk/peertalk/service/mail"
	"github.com/peertalk/peertalk/service/notify"
	"github.com/peertalk/peertalk/service/worker"
	"github.com/peertalk/peertalk/util"
)

func main() {
	// Initialize logger
	logger := slog.New(slog.NewTextHandler(os.Stdout, nil))

	// Load config from .env
	config := util.LoadConfig(".env")

	// Connect to database
	queries, err := db.NewQueries(config)
	if err != nil {
		logger.Error("Failed to connect to database", "error", err)
		os.Exit(1)
	}

	// Run auto migration
	if err = queries.AutoMigration(); err != nil {
		logger.Error("Failed to run auto migration", "error", err)
		os.Exit(1)
	}

	// Make sure the configured counselor account exists
	if err = queries.SeedCounselor(config); err != nil {
		logger.Error("Failed to seed counselor account", "error", err)
		os.Exit(1)
	}

	// Notification hub shared between the worker and the SSE endpoint
	hub := notify.NewHub()

	// Background task queue over Redis
	redisOpts := asynq.RedisClientOpt{Addr: config.RedisAddr}
	distributor := worker.NewRedisTaskDistributor(redisOpts, logger)
	processor := worker.NewRedisTaskProcessor(redisOpts, queries, mail.NewEmailService(config), hub, logger)
	if err = processor.Start(); err != nil {
		logger.Error("Failed to start the task processor", "error", err)
		os.Exit(1)
	}

	// Create and start server
	server := api.NewServer(queries, config, hub, distributor, logger)
	if err = server.Start(); err != nil {
		logger.Error("Failed to run the server or server shutdown unexpectedly", "error", err)
		os.Exit(1)
	}
}

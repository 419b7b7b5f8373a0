package worker

import (
	"context"
	"log/slog"

	"github.com/hibiken/asynq"
	"github.com/peertalk/peertalk/db"
	"github.com/peertalk/peertalk/service/mail"
	"github.com/peertalk/peertalk/service/notify"
)

// Task processor interface
type TaskProcessor interface {
	Start() error
	ProcessTaskSendWelcomeEmail(ctx context.Context, task *asynq.Task) (err error)
	ProcessTaskNotifyCounselor(ctx context.Context, task *asynq.Task) (err error)
}

// Redis task processor
type RedisTaskProcessor struct {
	server      *asynq.Server
	queries     *db.Queries
	mailService *mail.EmailService
	hub         *notify.Hub
	logger      *slog.Logger
}

// Constructor method for Redis task processor
func NewRedisTaskProcessor(
	redisOpts asynq.RedisClientOpt,
	queries *db.Queries,
	mailService *mail.EmailService,
	hub *notify.Hub,
	logger *slog.Logger,
) TaskProcessor {
	return &RedisTaskProcessor{
		server:      asynq.NewServer(redisOpts, asynq.Config{}),
		queries:     queries,
		mailService: mailService,
		hub:         hub,
		logger:      logger,
	}
}

// Method to start the worker server
func (processor *RedisTaskProcessor) Start() error {
	mux := asynq.NewServeMux()

	mux.HandleFunc(SendWelcomeEmail, processor.ProcessTaskSendWelcomeEmail)
	mux.HandleFunc(NotifyCounselor, processor.ProcessTaskNotifyCounselor)

	return processor.server.Start(mux)
}

package worker

import (
	"context"
	"log/slog"

	"github.com/hibiken/asynq"
)

// Task distributor interface
type TaskDistributor interface {
	DistributeTaskSendWelcomeEmail(ctx context.Context, payload WelcomeEmailPayload, opts ...asynq.Option) (err error)
	DistributeTaskNotifyCounselor(ctx context.Context, payload NotifyCounselorPayload, opts ...asynq.Option) (err error)
}

// Redis task distributor
type RedisTaskDistributor struct {
	client *asynq.Client
	logger *slog.Logger
}

// Constructor method for Redis task distributor
func NewRedisTaskDistributor(redisOpt asynq.RedisClientOpt, logger *slog.Logger) TaskDistributor {
	client := asynq.NewClient(redisOpt)
	return &RedisTaskDistributor{
		client: client,
		logger: logger,
	}
}

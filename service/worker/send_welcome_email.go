package worker

import (
	"context"
	"embed"
	"encoding/json"
	"html/template"
	"strings"

	"github.com/hibiken/asynq"
)

type WelcomeEmailPayload struct {
	Email string `json:"email"`
	Name  string `json:"name"`
}

const SendWelcomeEmail = "send-welcome-email"

//go:embed welcome.html
var welcome embed.FS

func (distributor *RedisTaskDistributor) DistributeTaskSendWelcomeEmail(
	ctx context.Context,
	payload WelcomeEmailPayload,
	opts ...asynq.Option,
) (err error) {
	// Marshal payload
	data, err := json.Marshal(payload)
	if err != nil {
		return err
	}

	// Create new task
	task := asynq.NewTask(SendWelcomeEmail, data, opts...)

	// Send task to Redis queue
	info, err := distributor.client.EnqueueContext(ctx, task)
	if err != nil {
		return err
	}

	// Log task info
	distributor.logger.Info("Task info", "task_name", SendWelcomeEmail, "queue", info.Queue, "max_retry", info.MaxRetry)

	return nil
}

func (processor *RedisTaskProcessor) ProcessTaskSendWelcomeEmail(ctx context.Context, task *asynq.Task) (err error) {
	processor.logger.Info("Start processing task", "task_name", SendWelcomeEmail)

	// Unmarshal payload
	var payload WelcomeEmailPayload
	if err = json.Unmarshal(task.Payload(), &payload); err != nil {
		return err
	}

	// Prepare HTML email body
	tmpl, err := template.ParseFS(welcome, "welcome.html")
	if err != nil {
		return err
	}

	var sb strings.Builder
	err = tmpl.Execute(&sb, payload)
	if err != nil {
		return err
	}

	// Send email
	return processor.mailService.SendEmail(payload.Email, "Welcome to PeerTalk", sb.String())
}

package worker

import (
	"context"
	"encoding/json"

	"github.com/hibiken/asynq"
	"github.com/peertalk/peertalk/db"
)

// Payload struct for the notify counselor job. DestID is the counselor
// assigned to the chat the inbound message landed in.
type NotifyCounselorPayload struct {
	ChatID  uint   `json:"chat_id"`
	DestID  uint   `json:"dest_id"`
	Content string `json:"content"`
}

// Notify counselor key
const NotifyCounselor = "notify-counselor"

// Method to distribute notify counselor task
func (distributor *RedisTaskDistributor) DistributeTaskNotifyCounselor(
	ctx context.Context,
	payload NotifyCounselorPayload,
	opts ...asynq.Option,
) (err error) {
	// Marshal payload
	data, err := json.Marshal(payload)
	if err != nil {
		return err
	}

	// Create new task
	task := asynq.NewTask(NotifyCounselor, data, opts...)

	// Send task to Redis queue
	info, err := distributor.client.EnqueueContext(ctx, task)
	if err != nil {
		return err
	}

	// Log task info
	distributor.logger.Info("Task info", "task_name", NotifyCounselor, "queue", info.Queue, "max_retry", info.MaxRetry)

	return nil
}

// Method to process notify counselor task
func (processor *RedisTaskProcessor) ProcessTaskNotifyCounselor(ctx context.Context, task *asynq.Task) (err error) {
	processor.logger.Info("Start processing task", "task_name", NotifyCounselor)

	// Unmarshal payload
	var payload NotifyCounselorPayload
	if err = json.Unmarshal(task.Payload(), &payload); err != nil {
		return err
	}

	// Insert notification into database first
	var notification = db.Notification{
		ChatID:  payload.ChatID,
		DestID:  payload.DestID,
		Content: payload.Content,
		Status:  db.Unread,
	}
	result := processor.queries.DB.Create(&notification)
	if result.Error != nil {
		return result.Error
	}
	processor.logger.Info("Insert notification successfully", "content", notification.Content)

	// Publish event through hub
	processor.hub.Publish(notification)

	return nil
}

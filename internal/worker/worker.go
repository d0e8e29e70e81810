package worker

import (
	"context"
	"encoding/json"
	"sync/atomic"

	"todo-api/internal/cache"
	"todo-api/internal/models"
	"todo-api/internal/queue"
	"todo-api/pkg/logger"

	"github.com/segmentio/kafka-go"
)

// Run starts the activity consumer: reads todo activity events and drops the
// owner's cached stats so the next overview read recomputes. One consumer per
// process; scale by running more replicas (the group shares partitions).
func Run(ctx context.Context) {
	brokers := queue.Brokers()
	if len(brokers) == 0 {
		logger.Info(ctx, "Activity worker disabled (no Kafka brokers)")
		return
	}
	topic := queue.Topic()

	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:  brokers,
		Topic:    topic,
		GroupID:  "stats-invalidators",
		MinBytes: 1,
		MaxBytes: 10e6,
	})
	defer reader.Close()

	var processed int64
	logger.Info(ctx, "Activity consumer started", "topic", topic)
	for {
		msg, err := reader.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			logger.Error(ctx, "Worker fetch failed", "error", err)
			continue
		}
		if err := handleMessage(ctx, msg.Value); err != nil {
			logger.Error(ctx, "Worker handle failed", "error", err, "payload", string(msg.Value))
			// Commit anyway to avoid a poison pill blocking the partition
			_ = reader.CommitMessages(ctx, msg)
			continue
		}
		if err := reader.CommitMessages(ctx, msg); err != nil {
			logger.Error(ctx, "Worker commit failed", "error", err)
		}
		atomic.AddInt64(&processed, 1)
	}
}

func handleMessage(ctx context.Context, payload []byte) error {
	var ev models.ActivityEvent
	if err := json.Unmarshal(payload, &ev); err != nil {
		return err
	}
	if ev.UserID == "" {
		return nil
	}
	logger.Debug(ctx, "Invalidating stats cache", "user_id", ev.UserID, "action", ev.Action, "todo_id", ev.TodoID)
	cache.InvalidateUser(ctx, ev.UserID)
	return nil
}

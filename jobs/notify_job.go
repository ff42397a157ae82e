package jobs

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/hibiken/asynq"

	"github.com/terrapos/terrapos/internal/notify"
)

// NotifyJob delivers queued outbound messages. Delivery failures are
// returned as errors so Asynq retries them; malformed payloads are
// dropped.
type NotifyJob struct {
	dispatcher notify.Dispatcher
	logger     *slog.Logger
}

// NewNotifyJob constructs the notify:send handler.
func NewNotifyJob(dispatcher notify.Dispatcher, logger *slog.Logger) *NotifyJob {
	return &NotifyJob{dispatcher: dispatcher, logger: logger}
}

// Handle processes TaskNotifySend tasks.
func (j *NotifyJob) Handle(ctx context.Context, t *asynq.Task) error {
	var payload NotifySendPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return asynq.SkipRetry
	}

	var result notify.Result
	switch payload.Kind {
	case NotifyKindBill:
		result = j.dispatcher.SendBill(ctx, payload.Message)
	case NotifyKindAdvance:
		result = j.dispatcher.SendAdvance(ctx, payload.Message)
	case NotifyKindCompletion:
		result = j.dispatcher.SendCompletion(ctx, payload.Message)
	case NotifyKindReminder:
		result = j.dispatcher.SendReminder(ctx, payload.Message)
	default:
		j.logger.Warn("unknown notify kind", slog.String("kind", payload.Kind))
		return asynq.SkipRetry
	}

	if !result.Success {
		return fmt.Errorf("deliver %s message: %s", payload.Kind, result.Err)
	}
	j.logger.Info("notification delivered",
		slog.String("kind", payload.Kind), slog.String("message_id", result.MessageID))
	return nil
}

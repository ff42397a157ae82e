package jobs

import (
	"encoding/json"

	"github.com/hibiken/asynq"

	"github.com/terrapos/terrapos/internal/notify"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// TaskNotifySend is the task type for one outbound customer message.
	TaskNotifySend = "notify:send"
	// TaskAdvanceReminders is the cron task scanning overdue advances.
	TaskAdvanceReminders = "advance:reminders"
)

// Notification kinds carried in a notify:send payload.
const (
	NotifyKindBill       = "bill"
	NotifyKindAdvance    = "advance"
	NotifyKindCompletion = "completion"
	NotifyKindReminder   = "reminder"
)

// NotifySendPayload describes one outbound message.
type NotifySendPayload struct {
	Kind    string         `json:"kind"`
	Message notify.Message `json:"message"`
}

// NewNotifySendTask constructs an Asynq task for one message.
func NewNotifySendTask(payload NotifySendPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskNotifySend, data), nil
}

// NewAdvanceRemindersTask constructs the overdue-reminder scan task.
func NewAdvanceRemindersTask() (*asynq.Task, error) {
	return asynq.NewTask(TaskAdvanceReminders, nil), nil
}

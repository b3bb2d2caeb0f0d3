package tasks

import (
	"github.com/hibiken/asynq"
)

const (
	TypeAuditSubscribers = "subscribers:audit"
)

// QueueMaintenance runs low-priority housekeeping tasks.
const QueueMaintenance = "maintenance"

func NewAuditSubscribersTask() *asynq.Task {
	return asynq.NewTask(TypeAuditSubscribers, nil, asynq.Queue(QueueMaintenance), asynq.MaxRetry(3))
}

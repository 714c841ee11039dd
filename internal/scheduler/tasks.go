package scheduler

import (
	"encoding/json"

	"github.com/hibiken/asynq"
)

// TaskFollowUpSweep scans for open activities past their due date and
// enqueues reminder notifications.
const TaskFollowUpSweep = "activities.followup.due"

// TaskOutboxDispatch drains the notification outbox.
const TaskOutboxDispatch = "notification.outbox.due"

// TaskStalePoolSweep escalates pool leads unclaimed past the SLA.
const TaskStalePoolSweep = "leads.pool.stale"

type FollowUpSweepPayload struct {
	BatchSize int `json:"batchSize"`
}

type StalePoolSweepPayload struct {
	BatchSize int `json:"batchSize"`
}

func NewFollowUpSweepTask(payload FollowUpSweepPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskFollowUpSweep, data), nil
}

func ParseFollowUpSweepPayload(task *asynq.Task) (FollowUpSweepPayload, error) {
	var payload FollowUpSweepPayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		return FollowUpSweepPayload{}, err
	}
	return payload, nil
}

func NewOutboxDispatchTask() *asynq.Task {
	return asynq.NewTask(TaskOutboxDispatch, nil)
}

func NewStalePoolSweepTask(payload StalePoolSweepPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskStalePoolSweep, data), nil
}

func ParseStalePoolSweepPayload(task *asynq.Task) (StalePoolSweepPayload, error) {
	var payload StalePoolSweepPayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		return StalePoolSweepPayload{}, err
	}
	return payload, nil
}

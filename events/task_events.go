package events

import (
	"time"

	"github.com/go-monolith/mono/pkg/helper"
)

// TaskEvent is the payload shared by all task lifecycle events.
type TaskEvent struct {
	TaskID    string    `json:"task_id"`
	OwnerID   string    `json:"owner_id"`
	DisplayID string    `json:"display_id"`
	Status    string    `json:"status"`
	Deadline  string    `json:"deadline,omitempty"`
	At        time.Time `json:"at"`
}

// TaskCreatedV1 is emitted after a task is persisted.
// Subject: events.task.v1.task-created
var TaskCreatedV1 = helper.EventDefinition[TaskEvent](
	"task", "TaskCreated", "v1",
)

// TaskUpdatedV1 is emitted after an owner edits a task.
// Subject: events.task.v1.task-updated
var TaskUpdatedV1 = helper.EventDefinition[TaskEvent](
	"task", "TaskUpdated", "v1",
)

// TaskCompletedV1 is emitted when an edit moves a task into Completed.
// Subject: events.task.v1.task-completed
var TaskCompletedV1 = helper.EventDefinition[TaskEvent](
	"task", "TaskCompleted", "v1",
)

// TaskDeletedV1 is emitted after a task is removed.
// Subject: events.task.v1.task-deleted
var TaskDeletedV1 = helper.EventDefinition[TaskEvent](
	"task", "TaskDeleted", "v1",
)

// TaskExpiredV1 is emitted for every task the sweep marks Expired.
// Subject: events.task.v1.task-expired
var TaskExpiredV1 = helper.EventDefinition[TaskEvent](
	"task", "TaskExpired", "v1",
)

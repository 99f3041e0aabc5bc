package task

import (
	"strings"
	"time"
)

// Status represents the lifecycle state of a task.
type Status string

const (
	StatusPending    Status = "Pending"
	StatusInProgress Status = "In Progress"
	StatusCompleted  Status = "Completed"
	StatusExpired    Status = "Expired"
)

// Active reports whether the status still counts as open work.
func (s Status) Active() bool {
	return s == StatusPending || s == StatusInProgress
}

// Priority represents how urgent a task is.
type Priority string

const (
	PriorityHigh   Priority = "High"
	PriorityMedium Priority = "Medium"
	PriorityLow    Priority = "Low"
)

// Task represents a user-owned unit of work.
type Task struct {
	ID             string     `gorm:"primaryKey;type:text"`
	OwnerID        string     `gorm:"not null;type:text;index;uniqueIndex:idx_owner_seq"`
	Seq            int64      `gorm:"not null;uniqueIndex:idx_owner_seq"`
	Details        string     `gorm:"not null;type:text"`
	Priority       Priority   `gorm:"not null;type:text"`
	Status         Status     `gorm:"not null;type:text;index"`
	Deadline       time.Time  `gorm:"not null;index"`
	StartTime      *time.Time `gorm:"column:start_time"`
	EstimatedHours int        `gorm:"not null"`
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// TableName returns the table name for the Task entity.
func (Task) TableName() string {
	return "tasks"
}

// DisplayID returns the human-readable sequence of the task.
func (t *Task) DisplayID() string {
	return DisplayID(t.Seq)
}

// OwnerSequence holds the last sequence number handed out to an owner.
type OwnerSequence struct {
	OwnerID string `gorm:"primaryKey;type:text"`
	LastSeq int64  `gorm:"not null"`
}

// TableName returns the table name for the OwnerSequence entity.
func (OwnerSequence) TableName() string {
	return "owner_sequences"
}

// ParseStatus parses a wire status value. "InProgress" is accepted as an alias.
func ParseStatus(s string) (Status, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "pending":
		return StatusPending, nil
	case "in progress", "inprogress", "in_progress":
		return StatusInProgress, nil
	case "completed":
		return StatusCompleted, nil
	case "expired":
		return StatusExpired, nil
	}
	return "", &ValidationError{Field: "status", Message: "status must be one of Pending, In Progress, Completed"}
}

// ParsePriority parses a wire priority value.
func ParsePriority(s string) (Priority, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "high":
		return PriorityHigh, nil
	case "medium":
		return PriorityMedium, nil
	case "low":
		return PriorityLow, nil
	}
	return "", &ValidationError{Field: "priority", Message: "priority must be one of High, Medium, Low"}
}

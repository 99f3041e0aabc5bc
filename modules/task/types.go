package task

import (
	"context"
	"time"

	domain "github.com/example/taskflow/domain/task"
)

// CreateTaskRequest is the request for creating a task. Dates are YYYY-MM-DD
// or RFC 3339 strings; empty optional values take their defaults.
type CreateTaskRequest struct {
	OwnerID   string  `json:"owner_id"`
	Details   string  `json:"details"`
	Priority  string  `json:"priority,omitempty"`
	Status    string  `json:"status,omitempty"`
	Deadline  string  `json:"deadline"`
	StartTime *string `json:"start_time,omitempty"`
	Hours     *int    `json:"hours,omitempty"`
}

// GetTaskRequest is the request for getting a task.
type GetTaskRequest struct {
	OwnerID string `json:"owner_id"`
	TaskID  string `json:"task_id"`
}

// UpdateTaskRequest is the request for editing a task. Nil fields are left
// unchanged. ClearStartTime removes the start date.
type UpdateTaskRequest struct {
	OwnerID        string  `json:"owner_id"`
	TaskID         string  `json:"task_id"`
	Details        *string `json:"details,omitempty"`
	Priority       *string `json:"priority,omitempty"`
	Status         *string `json:"status,omitempty"`
	Deadline       *string `json:"deadline,omitempty"`
	StartTime      *string `json:"start_time,omitempty"`
	ClearStartTime bool    `json:"clear_start_time,omitempty"`
	Hours          *int    `json:"hours,omitempty"`
}

// DeleteTaskRequest is the request for deleting a task.
type DeleteTaskRequest struct {
	OwnerID string `json:"owner_id"`
	TaskID  string `json:"task_id"`
}

// DeleteTaskResponse is the response for deleting a task.
type DeleteTaskResponse struct {
	Deleted bool `json:"deleted"`
}

// ListTasksRequest is the request for listing an owner's tasks.
type ListTasksRequest struct {
	OwnerID       string `json:"owner_id"`
	Page          int    `json:"page,omitempty"`
	Limit         int    `json:"limit,omitempty"`
	SortField     string `json:"sort_field,omitempty"`
	SortDirection string `json:"sort_direction,omitempty"`
	Status        string `json:"status,omitempty"`
	Priority      string `json:"priority,omitempty"`
	Search        string `json:"search,omitempty"`
	Date          string `json:"date,omitempty"`
}

// PaginationResponse describes the returned page.
type PaginationResponse struct {
	Total int `json:"total"`
	Page  int `json:"page"`
	Limit int `json:"limit"`
	Pages int `json:"pages"`
}

// SummaryResponse carries list-wide aggregates.
type SummaryResponse struct {
	TodayCount int            `json:"today_count"`
	Deadlines  map[string]int `json:"deadlines"`
}

// ListTasksResponse is the response for listing tasks.
type ListTasksResponse struct {
	Tasks      []TaskResponse     `json:"tasks"`
	Pagination PaginationResponse `json:"pagination"`
	Summary    SummaryResponse    `json:"summary"`
}

// ExpireOverdueRequest triggers an expiry pass. An empty Today means the
// current UTC date.
type ExpireOverdueRequest struct {
	Today string `json:"today,omitempty"`
}

// ExpireOverdueResponse reports an expiry pass.
type ExpireOverdueResponse struct {
	Today   string   `json:"today"`
	Updated int64    `json:"updated"`
	TaskIDs []string `json:"task_ids"`
}

// TaskResponse is a task as shown to its owner. Status is the derived status.
type TaskResponse struct {
	ID        string    `json:"id"`
	OwnerID   string    `json:"owner_id"`
	DisplayID string    `json:"display_id"`
	Details   string    `json:"details"`
	Priority  string    `json:"priority"`
	Status    string    `json:"status"`
	Deadline  string    `json:"deadline"`
	StartTime *string   `json:"start_time"`
	Hours     int       `json:"hours"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// toTaskResponse converts a domain Task to a TaskResponse.
func toTaskResponse(t *domain.Task, status domain.Status) TaskResponse {
	resp := TaskResponse{
		ID:        t.ID,
		OwnerID:   t.OwnerID,
		DisplayID: t.DisplayID(),
		Details:   t.Details,
		Priority:  string(t.Priority),
		Status:    string(status),
		Deadline:  domain.FormatDate(t.Deadline),
		Hours:     t.EstimatedHours,
		CreatedAt: t.CreatedAt,
		UpdatedAt: t.UpdatedAt,
	}
	if t.StartTime != nil {
		s := domain.FormatDate(*t.StartTime)
		resp.StartTime = &s
	}
	return resp
}

// TaskPort defines the task operations other modules depend on.
type TaskPort interface {
	CreateTask(ctx context.Context, req *CreateTaskRequest) (*TaskResponse, error)
	GetTask(ctx context.Context, ownerID, taskID string) (*TaskResponse, error)
	ListTasks(ctx context.Context, req *ListTasksRequest) (*ListTasksResponse, error)
	UpdateTask(ctx context.Context, req *UpdateTaskRequest) (*TaskResponse, error)
	DeleteTask(ctx context.Context, ownerID, taskID string) error
	ExpireOverdue(ctx context.Context, today string) (*ExpireOverdueResponse, error)
}

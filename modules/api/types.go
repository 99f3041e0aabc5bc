package api

import (
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/example/taskflow/modules/task"
)

// ErrorResponse represents an error response.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

// ProfileResponse represents a user profile response.
type ProfileResponse struct {
	ID        string    `json:"id"`
	Username  string    `json:"username"`
	Email     string    `json:"email"`
	CreatedAt time.Time `json:"created_at"`
}

var errInvalidStartTime = errors.New("startTime must be a date string or null")

// TaskInput is the body of a create or update request. Absent fields are
// nil. startTime and start_time are both accepted; an explicit null (or an
// empty string) clears the start date.
type TaskInput struct {
	Details        *string         `json:"details"`
	Priority       *string         `json:"priority"`
	Status         *string         `json:"status"`
	Deadline       *string         `json:"deadline"`
	StartTime      json.RawMessage `json:"startTime"`
	StartTimeSnake json.RawMessage `json:"start_time"`
	Hours          *int            `json:"hours"`
}

// startTime reports the requested start date. set is false when neither
// field was sent; a set result with a nil value clears the date.
func (in *TaskInput) startTime() (value *string, set bool, err error) {
	raw := in.StartTime
	if len(raw) == 0 {
		raw = in.StartTimeSnake
	}
	if len(raw) == 0 {
		return nil, false, nil
	}
	if string(raw) == "null" {
		return nil, true, nil
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return nil, false, errInvalidStartTime
	}
	if strings.TrimSpace(s) == "" {
		return nil, true, nil
	}
	return &s, true, nil
}

func (in *TaskInput) toCreateRequest(ownerID string) (*task.CreateTaskRequest, error) {
	start, _, err := in.startTime()
	if err != nil {
		return nil, err
	}
	req := &task.CreateTaskRequest{
		OwnerID:   ownerID,
		StartTime: start,
		Hours:     in.Hours,
	}
	if in.Details != nil {
		req.Details = *in.Details
	}
	if in.Priority != nil {
		req.Priority = *in.Priority
	}
	if in.Status != nil {
		req.Status = *in.Status
	}
	if in.Deadline != nil {
		req.Deadline = *in.Deadline
	}
	return req, nil
}

func (in *TaskInput) toUpdateRequest(ownerID, taskID string) (*task.UpdateTaskRequest, error) {
	start, set, err := in.startTime()
	if err != nil {
		return nil, err
	}
	return &task.UpdateTaskRequest{
		OwnerID:        ownerID,
		TaskID:         taskID,
		Details:        in.Details,
		Priority:       in.Priority,
		Status:         in.Status,
		Deadline:       in.Deadline,
		StartTime:      start,
		ClearStartTime: set && start == nil,
		Hours:          in.Hours,
	}, nil
}

// TaskJSON is a task as returned to clients. Status is the derived status.
type TaskJSON struct {
	ID        string    `json:"id"`
	DisplayID string    `json:"displayId"`
	Details   string    `json:"details"`
	Priority  string    `json:"priority"`
	Status    string    `json:"status"`
	Deadline  string    `json:"deadline"`
	StartTime *string   `json:"startTime"`
	Hours     int       `json:"hours"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// PaginationJSON describes the returned page.
type PaginationJSON struct {
	Total int `json:"total"`
	Page  int `json:"page"`
	Limit int `json:"limit"`
	Pages int `json:"pages"`
}

// SummaryJSON carries the owner's due-today count and per-day deadline counts.
type SummaryJSON struct {
	TodayCount int            `json:"todayCount"`
	Deadlines  map[string]int `json:"deadlines"`
}

// TaskListJSON is the response for listing tasks.
type TaskListJSON struct {
	Tasks      []TaskJSON     `json:"tasks"`
	Pagination PaginationJSON `json:"pagination"`
	Summary    SummaryJSON    `json:"summary"`
}

// SweepJSON acknowledges a manually triggered expiry pass.
type SweepJSON struct {
	Message string `json:"message"`
	Today   string `json:"today"`
}

func toTaskJSON(t *task.TaskResponse) TaskJSON {
	return TaskJSON{
		ID:        t.ID,
		DisplayID: t.DisplayID,
		Details:   t.Details,
		Priority:  t.Priority,
		Status:    t.Status,
		Deadline:  t.Deadline,
		StartTime: t.StartTime,
		Hours:     t.Hours,
		CreatedAt: t.CreatedAt,
		UpdatedAt: t.UpdatedAt,
	}
}

func toTaskListJSON(resp *task.ListTasksResponse) TaskListJSON {
	out := TaskListJSON{
		Tasks: make([]TaskJSON, 0, len(resp.Tasks)),
		Pagination: PaginationJSON{
			Total: resp.Pagination.Total,
			Page:  resp.Pagination.Page,
			Limit: resp.Pagination.Limit,
			Pages: resp.Pagination.Pages,
		},
		Summary: SummaryJSON{
			TodayCount: resp.Summary.TodayCount,
			Deadlines:  resp.Summary.Deadlines,
		},
	}
	if out.Summary.Deadlines == nil {
		out.Summary.Deadlines = map[string]int{}
	}
	for i := range resp.Tasks {
		out.Tasks = append(out.Tasks, toTaskJSON(&resp.Tasks[i]))
	}
	return out
}

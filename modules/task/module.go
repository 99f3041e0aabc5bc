package task

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/example/taskflow/config"
	"github.com/example/taskflow/database"
	domain "github.com/example/taskflow/domain/task"
	"github.com/example/taskflow/events"
	"github.com/go-monolith/mono"
	"github.com/go-monolith/mono/pkg/helper"
	"gorm.io/gorm"
)

// TaskModule owns the task store and exposes task services.
type TaskModule struct {
	dbConfig config.DatabaseConfig
	db       *gorm.DB
	service  *Service
	eventBus mono.EventBus
}

// Compile-time interface checks.
var _ mono.Module = (*TaskModule)(nil)
var _ mono.ServiceProviderModule = (*TaskModule)(nil)
var _ mono.EventEmitterModule = (*TaskModule)(nil)
var _ mono.HealthCheckableModule = (*TaskModule)(nil)

// NewModule creates a new TaskModule.
func NewModule(dbConfig config.DatabaseConfig) *TaskModule {
	return &TaskModule{dbConfig: dbConfig}
}

// Name returns the module name.
func (m *TaskModule) Name() string {
	return "task"
}

// SetEventBus receives the event bus from the framework.
func (m *TaskModule) SetEventBus(bus mono.EventBus) {
	m.eventBus = bus
}

// EmitEvents declares the events this module publishes.
func (m *TaskModule) EmitEvents() []mono.BaseEventDefinition {
	return []mono.BaseEventDefinition{
		events.TaskCreatedV1.ToBase(),
		events.TaskUpdatedV1.ToBase(),
		events.TaskCompletedV1.ToBase(),
		events.TaskDeletedV1.ToBase(),
		events.TaskExpiredV1.ToBase(),
	}
}

// Start opens the store.
func (m *TaskModule) Start(_ context.Context) error {
	db, err := database.Open(m.dbConfig, Models()...)
	if err != nil {
		return err
	}
	m.db = db
	m.service = NewService(NewRepository(db), m)

	if m.eventBus == nil {
		log.Println("[task] Warning: eventBus not set, events will not be published")
	}
	log.Printf("[task] Module started (database: %s)", database.Describe(m.dbConfig))
	return nil
}

// Stop closes the store.
func (m *TaskModule) Stop(_ context.Context) error {
	database.Close(m.db)
	log.Println("[task] Module stopped")
	return nil
}

// Health reports store connectivity.
func (m *TaskModule) Health(ctx context.Context) mono.HealthStatus {
	if err := database.Ping(ctx, m.db); err != nil {
		return mono.HealthStatus{
			Healthy: false,
			Message: err.Error(),
		}
	}
	return mono.HealthStatus{
		Healthy: true,
		Message: "operational",
		Details: map[string]any{
			"database": database.Describe(m.dbConfig),
		},
	}
}

// RegisterServices registers request-reply services in the service container.
func (m *TaskModule) RegisterServices(container mono.ServiceContainer) error {
	if err := helper.RegisterTypedRequestReplyService(
		container, "create-task", json.Unmarshal, json.Marshal, m.createTask,
	); err != nil {
		return fmt.Errorf("failed to register create-task service: %w", err)
	}

	if err := helper.RegisterTypedRequestReplyService(
		container, "get-task", json.Unmarshal, json.Marshal, m.getTask,
	); err != nil {
		return fmt.Errorf("failed to register get-task service: %w", err)
	}

	if err := helper.RegisterTypedRequestReplyService(
		container, "list-tasks", json.Unmarshal, json.Marshal, m.listTasks,
	); err != nil {
		return fmt.Errorf("failed to register list-tasks service: %w", err)
	}

	if err := helper.RegisterTypedRequestReplyService(
		container, "update-task", json.Unmarshal, json.Marshal, m.updateTask,
	); err != nil {
		return fmt.Errorf("failed to register update-task service: %w", err)
	}

	if err := helper.RegisterTypedRequestReplyService(
		container, "delete-task", json.Unmarshal, json.Marshal, m.deleteTask,
	); err != nil {
		return fmt.Errorf("failed to register delete-task service: %w", err)
	}

	if err := helper.RegisterTypedRequestReplyService(
		container, "expire-overdue", json.Unmarshal, json.Marshal, m.expireOverdue,
	); err != nil {
		return fmt.Errorf("failed to register expire-overdue service: %w", err)
	}

	log.Printf("[task] Registered services: create-task, get-task, list-tasks, update-task, delete-task, expire-overdue")
	return nil
}

func (m *TaskModule) createTask(ctx context.Context, req CreateTaskRequest, _ *mono.Msg) (TaskResponse, error) {
	t, err := m.service.Create(ctx, req)
	if err != nil {
		return TaskResponse{}, err
	}
	return toTaskResponse(t, domain.DerivedStatus(t, m.service.Today())), nil
}

func (m *TaskModule) getTask(ctx context.Context, req GetTaskRequest, _ *mono.Msg) (TaskResponse, error) {
	t, err := m.service.Get(ctx, req.OwnerID, req.TaskID)
	if err != nil {
		return TaskResponse{}, err
	}
	return toTaskResponse(t, domain.DerivedStatus(t, m.service.Today())), nil
}

func (m *TaskModule) listTasks(ctx context.Context, req ListTasksRequest, _ *mono.Msg) (ListTasksResponse, error) {
	result, err := m.service.List(ctx, req)
	if err != nil {
		return ListTasksResponse{}, err
	}
	return toListResponse(result), nil
}

func (m *TaskModule) updateTask(ctx context.Context, req UpdateTaskRequest, _ *mono.Msg) (TaskResponse, error) {
	t, err := m.service.Update(ctx, req)
	if err != nil {
		return TaskResponse{}, err
	}
	return toTaskResponse(t, domain.DerivedStatus(t, m.service.Today())), nil
}

func (m *TaskModule) deleteTask(ctx context.Context, req DeleteTaskRequest, _ *mono.Msg) (DeleteTaskResponse, error) {
	if err := m.service.Delete(ctx, req.OwnerID, req.TaskID); err != nil {
		return DeleteTaskResponse{Deleted: false}, err
	}
	return DeleteTaskResponse{Deleted: true}, nil
}

func (m *TaskModule) expireOverdue(ctx context.Context, req ExpireOverdueRequest, _ *mono.Msg) (ExpireOverdueResponse, error) {
	today := m.service.Today()
	if req.Today != "" {
		d, err := domain.ParseDate(req.Today)
		if err != nil {
			return ExpireOverdueResponse{}, &domain.ValidationError{Field: "today", Message: "today must be in YYYY-MM-DD format"}
		}
		today = d
	}

	result, err := m.service.ExpireOverdue(ctx, today)
	if err != nil {
		return ExpireOverdueResponse{}, err
	}
	return toExpireResponse(today, result), nil
}

// TaskChanged publishes the matching task event. Publishing is best-effort.
func (m *TaskModule) TaskChanged(change Change, t *domain.Task) {
	if m.eventBus == nil {
		return
	}

	event := events.TaskEvent{
		TaskID:    t.ID,
		OwnerID:   t.OwnerID,
		DisplayID: t.DisplayID(),
		Status:    string(t.Status),
		Deadline:  domain.FormatDate(t.Deadline),
		At:        time.Now(),
	}

	var err error
	switch change {
	case ChangeCreated:
		err = events.TaskCreatedV1.Publish(m.eventBus, event, nil)
	case ChangeUpdated:
		err = events.TaskUpdatedV1.Publish(m.eventBus, event, nil)
	case ChangeCompleted:
		err = events.TaskCompletedV1.Publish(m.eventBus, event, nil)
	case ChangeDeleted:
		err = events.TaskDeletedV1.Publish(m.eventBus, event, nil)
	case ChangeExpired:
		err = events.TaskExpiredV1.Publish(m.eventBus, event, nil)
	}
	if err != nil {
		log.Printf("[task] Warning: failed to publish %s event for task %s: %v", change, t.ID, err)
	}
}

func toListResponse(result domain.ListResult) ListTasksResponse {
	resp := ListTasksResponse{
		Tasks: make([]TaskResponse, 0, len(result.Entries)),
		Pagination: PaginationResponse{
			Total: result.Pagination.Total,
			Page:  result.Pagination.Page,
			Limit: result.Pagination.Limit,
			Pages: result.Pagination.Pages,
		},
		Summary: SummaryResponse{
			TodayCount: result.Summary.TodayCount,
			Deadlines:  result.Summary.Deadlines,
		},
	}
	for _, e := range result.Entries {
		resp.Tasks = append(resp.Tasks, toTaskResponse(e.Task, e.Status))
	}
	return resp
}

func toExpireResponse(today time.Time, result *ExpireResult) ExpireOverdueResponse {
	resp := ExpireOverdueResponse{
		Today:   domain.FormatDate(today),
		Updated: result.Updated,
		TaskIDs: make([]string, 0, len(result.Expired)),
	}
	for _, t := range result.Expired {
		resp.TaskIDs = append(resp.TaskIDs, t.ID)
	}
	return resp
}

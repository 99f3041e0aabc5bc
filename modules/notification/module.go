package notification

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/example/taskflow/events"
	"github.com/go-monolith/mono"
	"github.com/go-monolith/mono/pkg/helper"
)

// Notification types pushed to clients.
const (
	TypeTaskCreated   = "task_created"
	TypeTaskUpdated   = "task_updated"
	TypeTaskCompleted = "task_completed"
	TypeTaskDeleted   = "task_deleted"
	TypeTaskExpired   = "task_expired"
)

// Message is the JSON frame sent over the live feed.
type Message struct {
	Type      string    `json:"type"`
	TaskID    string    `json:"task_id"`
	OwnerID   string    `json:"owner_id"`
	DisplayID string    `json:"display_id"`
	Status    string    `json:"status"`
	Deadline  string    `json:"deadline,omitempty"`
	At        time.Time `json:"at"`
}

// NotificationModule consumes task events and pushes them to the owner's live feed.
type NotificationModule struct {
	hub       *Hub
	cancelHub context.CancelFunc
}

// Compile-time interface checks.
var _ mono.Module = (*NotificationModule)(nil)
var _ mono.EventConsumerModule = (*NotificationModule)(nil)
var _ mono.HealthCheckableModule = (*NotificationModule)(nil)

// NewModule creates a new NotificationModule.
func NewModule() *NotificationModule {
	return &NotificationModule{
		hub: NewHub(),
	}
}

// Name returns the module name.
func (m *NotificationModule) Name() string {
	return "notification"
}

// Start runs the hub.
func (m *NotificationModule) Start(_ context.Context) error {
	ctx, cancel := context.WithCancel(context.Background())
	m.cancelHub = cancel
	go m.hub.Run(ctx)
	log.Println("[notification] Module started - live feed hub running")
	return nil
}

// Stop closes every live feed connection.
func (m *NotificationModule) Stop(_ context.Context) error {
	clientCount := m.hub.ClientCount()
	if m.cancelHub != nil {
		m.cancelHub()
		m.hub.Wait()
	}
	log.Printf("[notification] Module stopped - %d clients were connected", clientCount)
	return nil
}

// Health returns the health status.
func (m *NotificationModule) Health(_ context.Context) mono.HealthStatus {
	return mono.HealthStatus{
		Healthy: true,
		Message: "operational",
		Details: map[string]any{
			"connected_clients": m.hub.ClientCount(),
		},
	}
}

// RegisterEventConsumers subscribes to every task event.
func (m *NotificationModule) RegisterEventConsumers(registry mono.EventRegistry) error {
	if err := helper.RegisterTypedEventConsumer(
		registry, events.TaskCreatedV1, m.handler(TypeTaskCreated), m,
	); err != nil {
		return fmt.Errorf("failed to register TaskCreated consumer: %w", err)
	}

	if err := helper.RegisterTypedEventConsumer(
		registry, events.TaskUpdatedV1, m.handler(TypeTaskUpdated), m,
	); err != nil {
		return fmt.Errorf("failed to register TaskUpdated consumer: %w", err)
	}

	if err := helper.RegisterTypedEventConsumer(
		registry, events.TaskCompletedV1, m.handler(TypeTaskCompleted), m,
	); err != nil {
		return fmt.Errorf("failed to register TaskCompleted consumer: %w", err)
	}

	if err := helper.RegisterTypedEventConsumer(
		registry, events.TaskDeletedV1, m.handler(TypeTaskDeleted), m,
	); err != nil {
		return fmt.Errorf("failed to register TaskDeleted consumer: %w", err)
	}

	if err := helper.RegisterTypedEventConsumer(
		registry, events.TaskExpiredV1, m.handler(TypeTaskExpired), m,
	); err != nil {
		return fmt.Errorf("failed to register TaskExpired consumer: %w", err)
	}

	log.Println("[notification] Registered event consumers: TaskCreated, TaskUpdated, TaskCompleted, TaskDeleted, TaskExpired")
	return nil
}

func (m *NotificationModule) handler(kind string) func(context.Context, events.TaskEvent, *mono.Msg) error {
	return func(_ context.Context, event events.TaskEvent, _ *mono.Msg) error {
		m.Notify(kind, event)
		return nil
	}
}

// Notify pushes one task event to its owner's connections.
func (m *NotificationModule) Notify(kind string, event events.TaskEvent) {
	if event.OwnerID == "" {
		return
	}
	m.hub.Publish(event.OwnerID, Message{
		Type:      kind,
		TaskID:    event.TaskID,
		OwnerID:   event.OwnerID,
		DisplayID: event.DisplayID,
		Status:    event.Status,
		Deadline:  event.Deadline,
		At:        event.At,
	})
}

// GetHub returns the hub for the API module's websocket handler.
func (m *NotificationModule) GetHub() *Hub {
	return m.hub
}

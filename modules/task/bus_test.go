package task

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/example/taskflow/config"
	"github.com/go-monolith/mono"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// clientModule depends on the task module and reaches it only through the
// service container, the way the api and sweep modules do.
type clientModule struct {
	tasks TaskPort
}

func (m *clientModule) Name() string { return "task-client" }
func (m *clientModule) Dependencies() []string { return []string{"task"} }
func (m *clientModule) Start(context.Context) error { return nil }
func (m *clientModule) Stop(context.Context) error { return nil }

func (m *clientModule) SetDependencyServiceContainer(dependency string, container mono.ServiceContainer) {
	if dependency == "task" {
		m.tasks = NewTaskAdapter(container)
	}
}

func startTaskApp(t *testing.T) TaskPort {
	t.Helper()

	app, err := mono.NewMonoApplication(
		mono.WithLogLevel(mono.LogLevelError),
		mono.WithLogFormat(mono.LogFormatText),
		mono.WithShutdownTimeout(5*time.Second),
	)
	require.NoError(t, err)

	client := &clientModule{}
	require.NoError(t, app.Register(NewModule(config.DatabaseConfig{
		Driver: "sqlite",
		Path:   filepath.Join(t.TempDir(), "tasks.db"),
	})))
	require.NoError(t, app.Register(client))

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	require.NoError(t, app.Start(ctx))
	t.Cleanup(func() { _ = app.Stop(context.Background()) })

	require.NotNil(t, client.tasks)
	return client.tasks
}

func TestTaskServices_OverBus(t *testing.T) {
	tasks := startTaskApp(t)
	ctx := context.Background()

	created, err := tasks.CreateTask(ctx, &CreateTaskRequest{
		OwnerID:  "owner-1",
		Details:  "write report",
		Priority: "high",
		Deadline: "2999-01-10",
		Hours:    intPtr(3),
	})
	require.NoError(t, err)
	assert.Equal(t, "owner-1", created.OwnerID)
	assert.Equal(t, "high", created.Priority)
	assert.Equal(t, "pending", created.Status)
	assert.Equal(t, "2999-01-10", created.Deadline)
	assert.Equal(t, 3, created.Hours)

	got, err := tasks.GetTask(ctx, "owner-1", created.ID)
	require.NoError(t, err)
	assert.Equal(t, created.ID, got.ID)
	assert.Equal(t, "write report", got.Details)

	_, err = tasks.GetTask(ctx, "owner-2", created.ID)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "task not found")

	list, err := tasks.ListTasks(ctx, &ListTasksRequest{OwnerID: "owner-1"})
	require.NoError(t, err)
	require.Len(t, list.Tasks, 1)
	assert.Equal(t, 1, list.Pagination.Total)

	updated, err := tasks.UpdateTask(ctx, &UpdateTaskRequest{
		OwnerID: "owner-1",
		TaskID:  created.ID,
		Details: strPtr("write final report"),
	})
	require.NoError(t, err)
	assert.Equal(t, "write final report", updated.Details)

	require.NoError(t, tasks.DeleteTask(ctx, "owner-1", created.ID))
	err = tasks.DeleteTask(ctx, "owner-1", created.ID)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "task not found")
}

func TestTaskServices_OverBus_ValidationErrors(t *testing.T) {
	tasks := startTaskApp(t)
	ctx := context.Background()

	_, err := tasks.CreateTask(ctx, &CreateTaskRequest{
		OwnerID:   "owner-1",
		Details:   "bad range",
		Deadline:  "2999-01-10",
		StartTime: strPtr("2999-02-01"),
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "create-task service call failed")
	assert.Contains(t, err.Error(), "validation failed")

	_, err = tasks.ExpireOverdue(ctx, "not-a-date")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "validation failed")
}

func TestTaskServices_OverBus_ExpireOverdue(t *testing.T) {
	tasks := startTaskApp(t)
	ctx := context.Background()

	early, err := tasks.CreateTask(ctx, &CreateTaskRequest{OwnerID: "owner-1", Details: "early", Deadline: "2999-01-10"})
	require.NoError(t, err)
	_, err = tasks.CreateTask(ctx, &CreateTaskRequest{OwnerID: "owner-2", Details: "late", Deadline: "2999-03-10"})
	require.NoError(t, err)

	resp, err := tasks.ExpireOverdue(ctx, "2999-02-01")
	require.NoError(t, err)
	assert.Equal(t, "2999-02-01", resp.Today)
	assert.Equal(t, int64(1), resp.Updated)
	assert.Equal(t, []string{early.ID}, resp.TaskIDs)

	again, err := tasks.ExpireOverdue(ctx, "2999-02-01")
	require.NoError(t, err)
	assert.Equal(t, int64(0), again.Updated)
}

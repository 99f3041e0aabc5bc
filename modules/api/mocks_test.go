package api

import (
	"context"
	"errors"

	domain "github.com/example/taskflow/domain/user"
	"github.com/example/taskflow/modules/auth"
	"github.com/example/taskflow/modules/task"
)

var errNotImplemented = errors.New("not implemented")

// mockAuthPort implements auth.AuthPort for testing
type mockAuthPort struct {
	registerFunc      func(ctx context.Context, req *auth.RegisterRequest) (*auth.RegisterResponse, error)
	loginFunc         func(ctx context.Context, req *auth.LoginRequest) (*auth.LoginResponse, error)
	refreshFunc       func(ctx context.Context, refreshToken string) (*auth.TokenResponse, error)
	validateTokenFunc func(ctx context.Context, token string) (*domain.Claims, error)
	getUserFunc       func(ctx context.Context, userID string) (*domain.User, error)
}

func (m *mockAuthPort) Register(ctx context.Context, req *auth.RegisterRequest) (*auth.RegisterResponse, error) {
	if m.registerFunc != nil {
		return m.registerFunc(ctx, req)
	}
	return nil, errNotImplemented
}

func (m *mockAuthPort) Login(ctx context.Context, req *auth.LoginRequest) (*auth.LoginResponse, error) {
	if m.loginFunc != nil {
		return m.loginFunc(ctx, req)
	}
	return nil, errNotImplemented
}

func (m *mockAuthPort) Refresh(ctx context.Context, refreshToken string) (*auth.TokenResponse, error) {
	if m.refreshFunc != nil {
		return m.refreshFunc(ctx, refreshToken)
	}
	return nil, errNotImplemented
}

func (m *mockAuthPort) ValidateToken(ctx context.Context, token string) (*domain.Claims, error) {
	if m.validateTokenFunc != nil {
		return m.validateTokenFunc(ctx, token)
	}
	return nil, errNotImplemented
}

func (m *mockAuthPort) GetUser(ctx context.Context, userID string) (*domain.User, error) {
	if m.getUserFunc != nil {
		return m.getUserFunc(ctx, userID)
	}
	return nil, errNotImplemented
}

// mockTaskPort implements task.TaskPort for testing
type mockTaskPort struct {
	createFunc func(ctx context.Context, req *task.CreateTaskRequest) (*task.TaskResponse, error)
	getFunc    func(ctx context.Context, ownerID, taskID string) (*task.TaskResponse, error)
	listFunc   func(ctx context.Context, req *task.ListTasksRequest) (*task.ListTasksResponse, error)
	updateFunc func(ctx context.Context, req *task.UpdateTaskRequest) (*task.TaskResponse, error)
	deleteFunc func(ctx context.Context, ownerID, taskID string) error
	expireFunc func(ctx context.Context, today string) (*task.ExpireOverdueResponse, error)
}

func (m *mockTaskPort) CreateTask(ctx context.Context, req *task.CreateTaskRequest) (*task.TaskResponse, error) {
	if m.createFunc != nil {
		return m.createFunc(ctx, req)
	}
	return nil, errNotImplemented
}

func (m *mockTaskPort) GetTask(ctx context.Context, ownerID, taskID string) (*task.TaskResponse, error) {
	if m.getFunc != nil {
		return m.getFunc(ctx, ownerID, taskID)
	}
	return nil, errNotImplemented
}

func (m *mockTaskPort) ListTasks(ctx context.Context, req *task.ListTasksRequest) (*task.ListTasksResponse, error) {
	if m.listFunc != nil {
		return m.listFunc(ctx, req)
	}
	return nil, errNotImplemented
}

func (m *mockTaskPort) UpdateTask(ctx context.Context, req *task.UpdateTaskRequest) (*task.TaskResponse, error) {
	if m.updateFunc != nil {
		return m.updateFunc(ctx, req)
	}
	return nil, errNotImplemented
}

func (m *mockTaskPort) DeleteTask(ctx context.Context, ownerID, taskID string) error {
	if m.deleteFunc != nil {
		return m.deleteFunc(ctx, ownerID, taskID)
	}
	return errNotImplemented
}

func (m *mockTaskPort) ExpireOverdue(ctx context.Context, today string) (*task.ExpireOverdueResponse, error) {
	if m.expireFunc != nil {
		return m.expireFunc(ctx, today)
	}
	return nil, errNotImplemented
}

// tokenAuth accepts the token "valid-token" as user-123.
func tokenAuth() *mockAuthPort {
	return &mockAuthPort{
		validateTokenFunc: func(_ context.Context, token string) (*domain.Claims, error) {
			if token != "valid-token" {
				return nil, errors.New("token validation failed: invalid token")
			}
			return &domain.Claims{UserID: "user-123", Email: "test@example.com", Username: "tester"}, nil
		},
	}
}

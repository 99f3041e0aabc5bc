package auth

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

// clientModule reaches the auth module only through its service container.
type clientModule struct {
	auth *AuthAdapter
}

func (m *clientModule) Name() string { return "auth-client" }
func (m *clientModule) Dependencies() []string { return []string{"auth"} }
func (m *clientModule) Start(context.Context) error { return nil }
func (m *clientModule) Stop(context.Context) error { return nil }

func (m *clientModule) SetDependencyServiceContainer(dependency string, container mono.ServiceContainer) {
	if dependency == "auth" {
		m.auth = NewAuthAdapter(container)
	}
}

func startAuthApp(t *testing.T) *AuthAdapter {
	t.Helper()

	app, err := mono.NewMonoApplication(
		mono.WithLogLevel(mono.LogLevelError),
		mono.WithLogFormat(mono.LogFormatText),
		mono.WithShutdownTimeout(5*time.Second),
	)
	require.NoError(t, err)

	client := &clientModule{}
	require.NoError(t, app.Register(NewModule(
		config.DatabaseConfig{Driver: "sqlite", Path: filepath.Join(t.TempDir(), "auth.db")},
		config.JWTConfig{Secret: "test-secret", Issuer: "taskflow-test", AccessTTL: time.Hour, RefreshTTL: 24 * time.Hour},
	)))
	require.NoError(t, app.Register(client))

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	require.NoError(t, app.Start(ctx))
	t.Cleanup(func() { _ = app.Stop(context.Background()) })

	require.NotNil(t, client.auth)
	return client.auth
}

func TestAuthServices_OverBus(t *testing.T) {
	adapter := startAuthApp(t)
	ctx := context.Background()

	reg, err := adapter.Register(ctx, &RegisterRequest{Username: "alice", Email: "alice@example.com", Password: "password123"})
	require.NoError(t, err)
	assert.Equal(t, "alice", reg.User.Username)
	assert.NotEmpty(t, reg.AccessToken)
	assert.NotEmpty(t, reg.RefreshToken)

	login, err := adapter.Login(ctx, &LoginRequest{Email: "alice@example.com", Password: "password123"})
	require.NoError(t, err)
	assert.Equal(t, reg.User.ID, login.User.ID)

	claims, err := adapter.ValidateToken(ctx, login.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, reg.User.ID, claims.UserID)
	assert.Equal(t, "alice", claims.Username)

	user, err := adapter.GetUser(ctx, reg.User.ID)
	require.NoError(t, err)
	assert.Equal(t, "alice@example.com", user.Email)

	refreshed, err := adapter.Refresh(ctx, login.RefreshToken)
	require.NoError(t, err)
	assert.NotEmpty(t, refreshed.AccessToken)
}

func TestAuthServices_OverBus_Errors(t *testing.T) {
	adapter := startAuthApp(t)
	ctx := context.Background()

	_, err := adapter.Register(ctx, &RegisterRequest{Username: "alice", Email: "alice@example.com", Password: "password123"})
	require.NoError(t, err)

	_, err = adapter.Register(ctx, &RegisterRequest{Username: "alice2", Email: "alice@example.com", Password: "password123"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "user with this email already exists")

	_, err = adapter.Login(ctx, &LoginRequest{Email: "alice@example.com", Password: "wrong-password"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid email or password")

	_, err = adapter.ValidateToken(ctx, "not-a-token")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid token")
}

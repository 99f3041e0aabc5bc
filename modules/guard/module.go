package guard

import (
	"context"
	"fmt"
	"log"

	"github.com/example/taskflow/config"
	"github.com/go-monolith/mono"
	"github.com/redis/go-redis/v9"
)

// Module provides the in-flight guard as a mono module. Without a Redis
// address it falls back to a process-local guard.
type Module struct {
	redisCfg config.RedisConfig
	guardCfg config.GuardConfig
	client   *redis.Client
	guard    Guard
}

// Compile-time interface checks.
var _ mono.Module = (*Module)(nil)
var _ mono.HealthCheckableModule = (*Module)(nil)

// NewModule creates a new guard module.
func NewModule(redisCfg config.RedisConfig, guardCfg config.GuardConfig) *Module {
	return &Module{
		redisCfg: redisCfg,
		guardCfg: guardCfg,
	}
}

// Name returns the module name.
func (m *Module) Name() string {
	return "guard"
}

// Init selects and connects the guard backend.
func (m *Module) Init(_ mono.ServiceContainer) error {
	if m.redisCfg.Addr == "" {
		g, err := NewMemoryGuard()
		if err != nil {
			return err
		}
		m.guard = g
		log.Println("[guard] Using in-memory backend")
		return nil
	}

	m.client = redis.NewClient(&redis.Options{
		Addr:     m.redisCfg.Addr,
		Password: m.redisCfg.Password,
		DB:       m.redisCfg.DB,
	})

	if err := m.client.Ping(context.Background()).Err(); err != nil {
		return fmt.Errorf("failed to connect to Redis: %w", err)
	}

	g, err := NewRedisGuard(m.client)
	if err != nil {
		return err
	}
	m.guard = g
	log.Printf("[guard] Connected to Redis at %s", m.redisCfg.Addr)
	return nil
}

// Start starts the module (no-op for this module).
func (m *Module) Start(_ context.Context) error {
	log.Printf("[guard] Module started (cooldown: %s)", m.guardCfg.Cooldown)
	return nil
}

// Stop closes the Redis connection.
func (m *Module) Stop(_ context.Context) error {
	if m.client != nil {
		if err := m.client.Close(); err != nil {
			log.Printf("[guard] Error closing Redis connection: %v", err)
		}
	}
	log.Println("[guard] Module stopped")
	return nil
}

// Health reports backend reachability.
func (m *Module) Health(ctx context.Context) mono.HealthStatus {
	if m.client == nil {
		return mono.HealthStatus{
			Healthy: m.guard != nil,
			Message: "operational",
			Details: map[string]any{"backend": "memory"},
		}
	}
	if err := m.client.Ping(ctx).Err(); err != nil {
		return mono.HealthStatus{
			Healthy: false,
			Message: fmt.Sprintf("redis ping failed: %v", err),
		}
	}
	return mono.HealthStatus{
		Healthy: true,
		Message: "operational",
		Details: map[string]any{"backend": "redis", "addr": m.redisCfg.Addr},
	}
}

// Middleware builds the HTTP middleware on the selected backend.
func (m *Module) Middleware(owner OwnerFunc) *Middleware {
	return NewMiddleware(m.guard, owner, m.guardCfg.Cooldown)
}

// GetGuard returns the selected backend.
func (m *Module) GetGuard() Guard {
	return m.guard
}

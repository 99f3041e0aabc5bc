package sweep

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/example/taskflow/config"
	"github.com/example/taskflow/modules/task"
	"github.com/go-monolith/mono"
)

// Expirer runs one expiry pass. An empty today means the store's current date.
type Expirer interface {
	ExpireOverdue(ctx context.Context, today string) (*task.ExpireOverdueResponse, error)
}

// SweepModule periodically persists Expired for overdue tasks.
type SweepModule struct {
	cfg     config.SweepConfig
	expirer Expirer

	stopChan chan struct{}
	doneChan chan struct{}
	stopOnce sync.Once

	mu        sync.RWMutex
	runs      int
	lastRun   time.Time
	lastCount int64
	lastErr   error
}

// Compile-time interface checks.
var _ mono.Module = (*SweepModule)(nil)
var _ mono.DependentModule = (*SweepModule)(nil)
var _ mono.HealthCheckableModule = (*SweepModule)(nil)

// NewModule creates a new SweepModule.
func NewModule(cfg config.SweepConfig) *SweepModule {
	return &SweepModule{cfg: cfg}
}

// Name returns the module name.
func (m *SweepModule) Name() string {
	return "sweep"
}

// Dependencies returns the list of module dependencies.
func (m *SweepModule) Dependencies() []string {
	return []string{"task"}
}

// SetDependencyServiceContainer receives service containers from dependencies.
func (m *SweepModule) SetDependencyServiceContainer(dependency string, container mono.ServiceContainer) {
	if dependency == "task" {
		m.expirer = task.NewTaskAdapter(container)
	}
}

// Start launches the ticker loop. The first pass runs immediately.
func (m *SweepModule) Start(_ context.Context) error {
	if m.expirer == nil {
		return fmt.Errorf("task dependency not set")
	}
	if !m.cfg.Enabled {
		log.Println("[sweep] Disabled by configuration")
		return nil
	}

	m.stopChan = make(chan struct{})
	m.doneChan = make(chan struct{})

	go m.run()

	log.Printf("[sweep] Module started (interval: %s)", m.cfg.Interval)
	return nil
}

func (m *SweepModule) run() {
	ticker := time.NewTicker(m.cfg.Interval)
	defer ticker.Stop()
	defer close(m.doneChan)

	m.pass()
	for {
		select {
		case <-m.stopChan:
			return
		case <-ticker.C:
			m.pass()
		}
	}
}

// pass never returns an error; a failed run is retried on the next tick.
func (m *SweepModule) pass() {
	ctx, cancel := context.WithTimeout(context.Background(), m.cfg.Timeout)
	defer cancel()

	// Stop aborts an in-flight pass.
	go func() {
		select {
		case <-m.stopChan:
			cancel()
		case <-ctx.Done():
		}
	}()

	count, err := m.RunOnce(ctx, "")
	if err != nil {
		log.Printf("[sweep] Pass failed: %v", err)
		return
	}
	log.Printf("[sweep] Marked %d overdue task(s) as Expired", count)
}

// RunOnce runs a single expiry pass for today (YYYY-MM-DD, or "" for the
// current date) and records the outcome for Health.
func (m *SweepModule) RunOnce(ctx context.Context, today string) (int64, error) {
	resp, err := m.expirer.ExpireOverdue(ctx, today)

	m.mu.Lock()
	defer m.mu.Unlock()
	m.runs++
	m.lastRun = time.Now()
	m.lastErr = err
	if err != nil {
		return 0, err
	}
	m.lastCount = resp.Updated
	return resp.Updated, nil
}

// Stop signals the loop and waits for the current pass to finish.
func (m *SweepModule) Stop(ctx context.Context) error {
	if m.stopChan == nil {
		return nil
	}

	m.stopOnce.Do(func() {
		close(m.stopChan)
	})

	select {
	case <-m.doneChan:
		log.Println("[sweep] Module stopped")
	case <-ctx.Done():
		log.Println("[sweep] Shutdown timeout exceeded")
		return ctx.Err()
	}
	return nil
}

// Health reports the outcome of the most recent pass. A failed pass does not
// make the module unhealthy.
func (m *SweepModule) Health(_ context.Context) mono.HealthStatus {
	m.mu.RLock()
	defer m.mu.RUnlock()

	details := map[string]any{
		"enabled":    m.cfg.Enabled,
		"interval":   m.cfg.Interval.String(),
		"runs":       m.runs,
		"last_count": m.lastCount,
	}
	if !m.lastRun.IsZero() {
		details["last_run"] = m.lastRun.UTC().Format(time.RFC3339)
	}

	message := "operational"
	if m.lastErr != nil {
		details["last_error"] = m.lastErr.Error()
		message = "last pass failed"
	}

	return mono.HealthStatus{
		Healthy: true,
		Message: message,
		Details: details,
	}
}

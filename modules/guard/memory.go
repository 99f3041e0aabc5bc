package guard

import (
	"context"
	"fmt"
	"sync"
	"time"

	nanoid "github.com/jaevor/go-nanoid"
)

type memoryEntry struct {
	token   string
	expires time.Time
}

// MemoryGuard implements Guard inside a single process.
type MemoryGuard struct {
	mu      sync.Mutex
	entries map[string]memoryEntry
	token   func() string
	now     func() time.Time
}

// NewMemoryGuard creates an empty MemoryGuard.
func NewMemoryGuard() (*MemoryGuard, error) {
	gen, err := nanoid.Standard(21)
	if err != nil {
		return nil, fmt.Errorf("failed to create token generator: %w", err)
	}
	return &MemoryGuard{
		entries: make(map[string]memoryEntry),
		token:   gen,
		now:     time.Now,
	}, nil
}

// Acquire claims key for at most hold.
func (g *MemoryGuard) Acquire(_ context.Context, key string, hold time.Duration) (Lease, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	now := g.now()
	if e, ok := g.entries[key]; ok && now.Before(e.expires) {
		return nil, &BusyError{RetryAfter: e.expires.Sub(now)}
	}

	g.sweepLocked(now)

	token := g.token()
	g.entries[key] = memoryEntry{token: token, expires: now.Add(hold)}
	return &memoryLease{guard: g, key: key, token: token}, nil
}

// Len returns the number of live keys.
func (g *MemoryGuard) Len() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.sweepLocked(g.now())
	return len(g.entries)
}

func (g *MemoryGuard) sweepLocked(now time.Time) {
	for k, e := range g.entries {
		if !now.Before(e.expires) {
			delete(g.entries, k)
		}
	}
}

type memoryLease struct {
	guard *MemoryGuard
	key   string
	token string
}

func (l *memoryLease) Finish(_ context.Context, cooldown time.Duration) error {
	g := l.guard
	g.mu.Lock()
	defer g.mu.Unlock()

	now := g.now()
	e, ok := g.entries[l.key]
	if !ok || e.token != l.token || !now.Before(e.expires) {
		return nil
	}
	if cooldown > 0 {
		e.expires = now.Add(cooldown)
		g.entries[l.key] = e
		return nil
	}
	delete(g.entries, l.key)
	return nil
}

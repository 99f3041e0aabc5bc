package guard

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type failingGuard struct{}

func (failingGuard) Acquire(context.Context, string, time.Duration) (Lease, error) {
	return nil, errors.New("connection refused")
}

func ownerHeader(c *fiber.Ctx) string {
	return c.Get("X-Owner")
}

func newGuardedApp(t *testing.T, g Guard, cooldown time.Duration, handler fiber.Handler) *fiber.App {
	t.Helper()
	mw := NewMiddleware(g, ownerHeader, cooldown)
	app := fiber.New()
	app.Put("/tasks/:id", mw.Cooldown("update"), handler)
	app.Post("/tasks", mw.Cooldown("create"), handler)
	return app
}

func doRequest(t *testing.T, app *fiber.App, method, path, owner string) *http.Response {
	t.Helper()
	req := httptest.NewRequest(method, path, nil)
	if owner != "" {
		req.Header.Set("X-Owner", owner)
	}
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	return resp
}

func TestCooldown_RejectsRepeatWithinWindow(t *testing.T) {
	g, _ := newTestMemoryGuard(t)
	app := newGuardedApp(t, g, time.Minute, func(c *fiber.Ctx) error {
		return c.SendString("ok")
	})

	resp := doRequest(t, app, "PUT", "/tasks/t1", "alice")
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp = doRequest(t, app, "PUT", "/tasks/t1", "alice")
	assert.Equal(t, http.StatusTooManyRequests, resp.StatusCode)
	assert.Equal(t, "60", resp.Header.Get("Retry-After"))
	body, _ := io.ReadAll(resp.Body)
	assert.Contains(t, string(body), `"too_many_requests"`)

	// Other targets, actions and owners are unaffected.
	assert.Equal(t, http.StatusOK, doRequest(t, app, "PUT", "/tasks/t2", "alice").StatusCode)
	assert.Equal(t, http.StatusOK, doRequest(t, app, "POST", "/tasks", "alice").StatusCode)
	assert.Equal(t, http.StatusOK, doRequest(t, app, "PUT", "/tasks/t1", "bob").StatusCode)
}

func TestCooldown_ZeroCooldownOnlyGuardsInFlight(t *testing.T) {
	g, _ := newTestMemoryGuard(t)
	app := newGuardedApp(t, g, 0, func(c *fiber.Ctx) error {
		return c.SendString("ok")
	})

	for i := 0; i < 3; i++ {
		resp := doRequest(t, app, "POST", "/tasks", "alice")
		assert.Equal(t, http.StatusOK, resp.StatusCode, "request %d", i+1)
	}
}

func TestCooldown_ConcurrentDoubleSubmit(t *testing.T) {
	g, err := NewMemoryGuard()
	require.NoError(t, err)

	release := make(chan struct{})
	entered := make(chan struct{}, 2)
	app := newGuardedApp(t, g, 0, func(c *fiber.Ctx) error {
		entered <- struct{}{}
		<-release
		return c.SendString("ok")
	})

	var wg sync.WaitGroup
	first := make(chan int, 1)
	wg.Add(1)
	go func() {
		defer wg.Done()
		first <- doRequest(t, app, "POST", "/tasks", "alice").StatusCode
	}()
	<-entered

	second := doRequest(t, app, "POST", "/tasks", "alice")
	assert.Equal(t, http.StatusTooManyRequests, second.StatusCode)

	close(release)
	wg.Wait()
	assert.Equal(t, http.StatusOK, <-first)
}

func TestCooldown_HandlerErrorStillFinishesLease(t *testing.T) {
	g, clock := newTestMemoryGuard(t)
	app := newGuardedApp(t, g, time.Second, func(c *fiber.Ctx) error {
		return fiber.NewError(fiber.StatusBadRequest, "bad input")
	})

	resp := doRequest(t, app, "PUT", "/tasks/t1", "alice")
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	clock.now = clock.now.Add(time.Second)
	resp = doRequest(t, app, "PUT", "/tasks/t1", "alice")
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode, "cooldown elapsed, so the retry reaches the handler")
}

func TestCooldown_FailsOpenOnBackendError(t *testing.T) {
	calls := 0
	app := newGuardedApp(t, failingGuard{}, time.Minute, func(c *fiber.Ctx) error {
		calls++
		return c.SendString("ok")
	})

	for i := 0; i < 2; i++ {
		assert.Equal(t, http.StatusOK, doRequest(t, app, "PUT", "/tasks/t1", "alice").StatusCode)
	}
	assert.Equal(t, 2, calls)
}

func TestCooldown_AnonymousRequestsKeyedByIP(t *testing.T) {
	g, _ := newTestMemoryGuard(t)
	app := newGuardedApp(t, g, time.Minute, func(c *fiber.Ctx) error {
		return c.SendString("ok")
	})

	assert.Equal(t, http.StatusOK, doRequest(t, app, "POST", "/tasks", "").StatusCode)
	assert.Equal(t, http.StatusTooManyRequests, doRequest(t, app, "POST", "/tasks", "").StatusCode)
	assert.Equal(t, 1, g.Len())
}

package guard

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
)

// DefaultHold bounds how long a key stays locked if a request never finishes.
const DefaultHold = 30 * time.Second

// KeyPrefix namespaces guard keys in the backend.
const KeyPrefix = "guard:"

// OwnerFunc resolves the principal a request acts for.
type OwnerFunc func(c *fiber.Ctx) string

// Middleware applies per-action cooldowns at the HTTP boundary.
type Middleware struct {
	guard    Guard
	owner    OwnerFunc
	cooldown time.Duration
	hold     time.Duration
}

// NewMiddleware creates a Middleware. A nil owner func keys requests by client IP.
func NewMiddleware(g Guard, owner OwnerFunc, cooldown time.Duration) *Middleware {
	if owner == nil {
		owner = func(*fiber.Ctx) string { return "" }
	}
	return &Middleware{
		guard:    g,
		owner:    owner,
		cooldown: cooldown,
		hold:     DefaultHold,
	}
}

// Key builds the guard key for an owner acting on target.
func Key(owner, action, target string) string {
	if target == "" {
		target = "-"
	}
	return fmt.Sprintf("%s%s:%s:%s", KeyPrefix, owner, action, target)
}

// Cooldown rejects a repeat of action on the same target while the first is
// in flight and for the cooldown window after it finishes. Backend errors let
// the request through.
func (m *Middleware) Cooldown(action string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		owner := m.owner(c)
		if owner == "" {
			owner = "ip:" + c.IP()
		}
		key := Key(owner, action, c.Params("id"))

		lease, err := m.guard.Acquire(c.UserContext(), key, m.hold)
		if err != nil {
			if retry, busy := RetryAfter(err); busy {
				return sendBusy(c, retry)
			}
			slog.Default().Warn("guard unavailable, allowing request", "key", key, "error", err)
			return c.Next()
		}

		handlerErr := c.Next()

		// The request context may already be done; finishing must still run.
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		if err := lease.Finish(ctx, m.cooldown); err != nil {
			slog.Default().Warn("failed to finish guard lease", "key", key, "error", err)
		}
		return handlerErr
	}
}

func sendBusy(c *fiber.Ctx, retry time.Duration) error {
	seconds := int(math.Ceil(retry.Seconds()))
	if seconds < 1 {
		seconds = 1
	}
	c.Set("Retry-After", strconv.Itoa(seconds))

	return c.Status(fiber.StatusTooManyRequests).JSON(fiber.Map{
		"error":       "too_many_requests",
		"message":     fmt.Sprintf("This action is already in progress. Please retry after %d seconds.", seconds),
		"retry_after": seconds,
	})
}

package api

import (
	"log/slog"

	domain "github.com/example/taskflow/domain/user"
	"github.com/example/taskflow/modules/auth"
	"github.com/example/taskflow/modules/notification"
	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

// FeedHandlers serves the live task feed.
type FeedHandlers struct {
	hub    *notification.Hub
	logger *slog.Logger
}

// NewFeedHandlers creates a new FeedHandlers instance.
func NewFeedHandlers(hub *notification.Hub) *FeedHandlers {
	return &FeedHandlers{
		hub:    hub,
		logger: slog.Default(),
	}
}

// FeedAuth rejects non-upgrade requests and authenticates the token given as
// the token query parameter or the usual headers, before the upgrade.
func FeedAuth(authAdapter auth.AuthPort) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if !websocket.IsWebSocketUpgrade(c) {
			return fiber.ErrUpgradeRequired
		}

		token := c.Query("token")
		if token == "" {
			var errMsg string
			if token, errMsg = extractToken(c); errMsg != "" {
				return c.Status(fiber.StatusUnauthorized).JSON(ErrorResponse{
					Error:   "unauthorized",
					Message: errMsg,
				})
			}
		}

		claims, err := authAdapter.ValidateToken(c.UserContext(), token)
		if err != nil {
			return c.Status(fiber.StatusUnauthorized).JSON(ErrorResponse{
				Error:   "unauthorized",
				Message: "Invalid or expired token",
			})
		}

		c.Locals(UserContextKey, claims)
		return c.Next()
	}
}

// HandleFeed keeps one connection registered with the hub until the client
// goes away. Incoming frames are ignored.
func (h *FeedHandlers) HandleFeed(c *websocket.Conn) {
	claims, ok := c.Locals(UserContextKey).(*domain.Claims)
	if !ok || claims == nil {
		_ = c.Close()
		return
	}

	client := &notification.Client{
		ID:      uuid.New().String(),
		OwnerID: claims.UserID,
		Conn:    c,
	}
	h.hub.Register(client)

	defer func() {
		h.hub.Unregister(client)
		_ = c.Close()
	}()

	h.logger.Info("Live feed connected", "clientID", client.ID, "userID", claims.UserID)

	for {
		if _, _, err := c.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				h.logger.Error("Live feed error", "clientID", client.ID, "error", err)
			}
			break
		}
	}

	h.logger.Info("Live feed disconnected", "clientID", client.ID)
}

package api

import (
	"strings"

	domain "github.com/example/taskflow/domain/user"
	"github.com/example/taskflow/modules/auth"
	"github.com/gofiber/fiber/v2"
)

const (
	// UserContextKey is the key used to store user claims in the Fiber context.
	UserContextKey = "user"

	// TokenHeader is the alternative header carrying a bare token.
	TokenHeader = "x-auth-token"
)

// AuthMiddleware creates a middleware that validates JWT tokens. The token is
// read from "Authorization: Bearer <token>" or, failing that, x-auth-token.
func AuthMiddleware(authAdapter auth.AuthPort) fiber.Handler {
	return func(c *fiber.Ctx) error {
		token, errMsg := extractToken(c)
		if errMsg != "" {
			return c.Status(fiber.StatusUnauthorized).JSON(ErrorResponse{
				Error:   "unauthorized",
				Message: errMsg,
			})
		}

		claims, err := authAdapter.ValidateToken(c.UserContext(), token)
		if err != nil {
			return c.Status(fiber.StatusUnauthorized).JSON(ErrorResponse{
				Error:   "unauthorized",
				Message: "Invalid or expired token",
			})
		}

		// Store claims in context for use in handlers
		c.Locals(UserContextKey, claims)

		return c.Next()
	}
}

func extractToken(c *fiber.Ctx) (string, string) {
	authHeader := c.Get(fiber.HeaderAuthorization)
	if authHeader == "" {
		if token := strings.TrimSpace(c.Get(TokenHeader)); token != "" {
			return token, ""
		}
		return "", "Authorization header is required"
	}

	if !strings.HasPrefix(authHeader, "Bearer ") {
		return "", "Invalid authorization header format. Use: Bearer <token>"
	}

	token := strings.TrimSpace(strings.TrimPrefix(authHeader, "Bearer "))
	if token == "" {
		return "", "Token is required"
	}
	return token, ""
}

// claimsFromContext returns the claims stored by AuthMiddleware.
func claimsFromContext(c *fiber.Ctx) (*domain.Claims, bool) {
	claims, ok := c.Locals(UserContextKey).(*domain.Claims)
	return claims, ok && claims != nil
}

// ownerFromLocals keys guarded actions by the authenticated user.
func ownerFromLocals(c *fiber.Ctx) string {
	if claims, ok := claimsFromContext(c); ok {
		return claims.UserID
	}
	return ""
}

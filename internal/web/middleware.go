package web

import (
	"strings"

	"recuerdamed/internal/access"
	"recuerdamed/internal/database"

	"github.com/gofiber/fiber/v2"
)

const identityLocalsKey = "identity"

// RequireAuth verifies the bearer token and stores the caller's identity in
// the request locals. Handlers pass that identity explicitly into every
// domain call.
func (h *Handler) RequireAuth() fiber.Handler {
	return func(c *fiber.Ctx) error {
		authHeader := c.Get(fiber.HeaderAuthorization)
		if authHeader == "" || !strings.HasPrefix(authHeader, "Bearer ") {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "Missing or invalid Authorization header",
			})
		}

		identity, err := h.issuer.Verify(strings.TrimPrefix(authHeader, "Bearer "))
		if err != nil {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "Invalid or expired token",
			})
		}

		c.Locals(identityLocalsKey, access.Identity{
			UserID: identity.UserID,
			Role:   database.UserRole(identity.Role),
		})

		return c.Next()
	}
}

func callerIdentity(c *fiber.Ctx) access.Identity {
	identity, _ := c.Locals(identityLocalsKey).(access.Identity)
	return identity
}

package auth

import (
	"strings"

	"stockledger-backend/internal/config"
	"stockledger-backend/internal/logging"

	"github.com/gofiber/fiber/v2"
)

const CtxUserIDKey = "user_id"

func JWTMiddleware(cfg *config.Config) fiber.Handler {
	return func(c *fiber.Ctx) error {
		authHeader := c.Get("Authorization")
		if authHeader == "" {
			return fiber.NewError(fiber.StatusUnauthorized, "missing Authorization header")
		}

		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || strings.ToLower(parts[0]) != "bearer" {
			return fiber.NewError(fiber.StatusUnauthorized, "Authorization must be 'Bearer <token>'")
		}

		claims, err := ParseToken(cfg.JWTSecret, parts[1])
		if err != nil {
			return fiber.NewError(fiber.StatusUnauthorized, "invalid or expired token")
		}

		c.Locals(CtxUserIDKey, claims.UserID)
		c.Locals(logging.ActorLocal, claims.Username)

		return c.Next()
	}
}

// Actor returns the authenticated username, or "" outside JWTMiddleware.
func Actor(c *fiber.Ctx) string {
	actor, _ := c.Locals(logging.ActorLocal).(string)
	return actor
}

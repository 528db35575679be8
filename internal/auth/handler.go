package auth

import (
	"errors"

	"stockledger-backend/internal/audit"
	"stockledger-backend/internal/config"
	"stockledger-backend/internal/logging"
	"stockledger-backend/internal/models"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
)

type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// POST /api/auth/login
func LoginHandler(cfg *config.Config, db *gorm.DB, audits *audit.Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var body LoginRequest
		if err := c.BodyParser(&body); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
		}
		if body.Username == "" || body.Password == "" {
			return fiber.NewError(fiber.StatusBadRequest, "username and password are required")
		}

		user, err := Authenticate(c.UserContext(), db, body.Username, body.Password)
		if errors.Is(err, ErrInvalidCredentials) {
			return fiber.NewError(fiber.StatusUnauthorized, "invalid username or password")
		}
		if err != nil {
			return fiber.NewError(fiber.StatusServiceUnavailable, "could not check credentials")
		}

		token, err := GenerateToken(cfg.JWTSecret, user)
		if err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "could not issue token")
		}

		c.Locals(logging.ActorLocal, user.Username)
		if audits != nil {
			_ = audits.Write(c.UserContext(), audit.Entry{
				UserName:    user.Username,
				EntityType:  audit.EntityUser,
				EntityID:    user.Username,
				Action:      models.AuditActionLogin,
				Description: "Logged in",
			})
		}

		return c.JSON(fiber.Map{
			"token": token,
			"user": fiber.Map{
				"id":           user.ID,
				"username":     user.Username,
				"display_name": user.DisplayName,
			},
		})
	}
}

// GET /api/auth/me
func MeHandler(db *gorm.DB) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var user models.User
		err := db.WithContext(c.UserContext()).Where("username = ?", Actor(c)).First(&user).Error
		if err != nil {
			return fiber.NewError(fiber.StatusNotFound, "user not found")
		}
		return c.JSON(fiber.Map{
			"id":           user.ID,
			"username":     user.Username,
			"display_name": user.DisplayName,
		})
	}
}

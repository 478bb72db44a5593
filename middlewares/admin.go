package middlewares

import (
	"crypto/hmac"

	"lotto/config"

	"github.com/gofiber/fiber/v2"
)

const (
	AdminKeyHeader    = "X-Admin-Key"
	AdminSecretHeader = "X-Admin-Secret"
)

// AdminAuth admits requests carrying the configured operator key and secret.
// The key is stored in locals as "operator".
func AdminAuth(cfg config.AdminConfig) fiber.Handler {
	return func(c *fiber.Ctx) error {
		key := c.Get(AdminKeyHeader)
		secret := c.Get(AdminSecretHeader)

		if key == "" || secret == "" {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"success": false,
				"message": "ADMIN_KEY_AND_SECRET_REQUIRED",
				"data":    nil,
			})
		}
		if cfg.Key == "" || cfg.Secret == "" ||
			!hmac.Equal([]byte(key), []byte(cfg.Key)) ||
			!hmac.Equal([]byte(secret), []byte(cfg.Secret)) {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"success": false,
				"message": "INVALID_ADMIN_CREDENTIALS",
				"data":    nil,
			})
		}

		c.Locals("operator", key)
		return c.Next()
	}
}

// Operator returns the authenticated operator key.
func Operator(c *fiber.Ctx) string {
	if v, ok := c.Locals("operator").(string); ok {
		return v
	}
	return ""
}

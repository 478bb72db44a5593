package logger

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

const RequestIDHeader = "X-Request-ID"

// FiberMiddleware tags each request with an id and logs its completion.
func FiberMiddleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		id := c.Get(RequestIDHeader)
		if id == "" {
			id = uuid.NewString()
		}
		c.Set(RequestIDHeader, id)

		ctx := WithRequestID(c.UserContext(), id)
		c.SetUserContext(ctx)

		start := time.Now()
		err := c.Next()

		ev := Info(ctx)
		if err != nil {
			ev = Warn(ctx).Err(err)
		}
		ev.
			Str("method", c.Method()).
			Str("path", c.Path()).
			Str("ip", c.IP()).
			Int("status", c.Response().StatusCode()).
			Dur("duration", time.Since(start)).
			Msg("request completed")
		return err
	}
}

package helpers

import (
	"lotto/errs"
	"lotto/logger"

	"github.com/gofiber/fiber/v2"
	"github.com/shopspring/decimal"
)

func JSONSuccess(c *fiber.Ctx, message string, data any) error {
	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"success": true,
		"message": message,
		"data":    data,
	})
}

func JSONError(c *fiber.Ctx, message string) error {
	return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
		"success": false,
		"message": message,
		"data":    nil,
	})
}

// JSONFromError writes err with the status of its kind. Rejections carry their
// code and the numbers behind the decision in data.
func JSONFromError(c *fiber.Ctx, err error) error {
	status := StatusOf(err)
	e, ok := errs.As(err)
	if !ok || status == fiber.StatusInternalServerError {
		logger.Error(c.UserContext()).Err(err).Str("path", c.Path()).Msg("request failed")
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"success": false,
			"message": "INTERNAL_ERROR",
			"data":    nil,
		})
	}

	data := fiber.Map{"code": e.Code, "kind": e.Kind.String()}
	for k, v := range e.Fields {
		data[k] = v
	}
	return c.Status(status).JSON(fiber.Map{
		"success": false,
		"message": e.Message,
		"data":    data,
	})
}

func StatusOf(err error) int {
	switch errs.KindOf(err) {
	case errs.KindRejected:
		return fiber.StatusUnprocessableEntity
	case errs.KindNotFound:
		return fiber.StatusNotFound
	case errs.KindValidation:
		return fiber.StatusBadRequest
	case errs.KindConflict:
		return fiber.StatusConflict
	default:
		return fiber.StatusInternalServerError
	}
}

// Percent renders a usage percent with one decimal place.
func Percent(d decimal.Decimal) string {
	return d.StringFixed(1)
}

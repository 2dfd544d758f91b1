package handlers

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"annotation-service/internal/apperrors"
	"annotation-service/internal/middleware"
)

const InvalidUuidError = "invalid UUID"

// respond writes the success envelope.
func respond(c *fiber.Ctx, status int, message string, data interface{}) error {
	body := fiber.Map{"success": true, "message": message}
	if data != nil {
		body["data"] = data
	}
	return c.Status(status).JSON(body)
}

// respondError maps an error onto the error envelope, translating the typed
// taxonomy into HTTP statuses and surfacing structured details when present.
func respondError(c *fiber.Ctx, err error) error {
	status := fiber.StatusInternalServerError
	switch apperrors.CodeOf(err) {
	case apperrors.CodeValidation:
		status = fiber.StatusBadRequest
	case apperrors.CodeNotFound:
		status = fiber.StatusNotFound
	case apperrors.CodeUnauthorized:
		status = fiber.StatusUnauthorized
	case apperrors.CodeForbidden:
		status = fiber.StatusForbidden
	case apperrors.CodeConflict:
		status = fiber.StatusConflict
	default:
		if errors.Is(err, gorm.ErrRecordNotFound) {
			status = fiber.StatusNotFound
		}
	}

	body := fiber.Map{"success": false, "message": err.Error()}
	if details := apperrors.DetailsOf(err); details != nil {
		body["errors"] = details
	}
	return c.Status(status).JSON(body)
}

// callerID returns the authenticated caller's id from the request context.
func callerID(c *fiber.Ctx) (uuid.UUID, error) {
	raw, _ := c.Locals(middleware.UserIDKey).(string)
	return uuid.Parse(raw)
}

// callerEmail returns the authenticated caller's email, if the token had one.
func callerEmail(c *fiber.Ctx) string {
	email, _ := c.Locals(middleware.EmailKey).(string)
	return email
}

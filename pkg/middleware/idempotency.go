package middleware

import (
	"expense-ledger/internal/idempotency"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

const (
	// IdempotencyKeyHeader is required on every create request.
	IdempotencyKeyHeader = "Idempotency-Key"
	// IdempotencyKeyLocal is the fiber locals slot the validated key is
	// stored under.
	IdempotencyKeyLocal = "idempotencyKey"
)

// RequireIdempotencyKey rejects requests lacking a UUID-shaped
// Idempotency-Key header before any store is touched.
func RequireIdempotencyKey(logger *zap.Logger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		key := c.Get(IdempotencyKeyHeader)
		if key == "" {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": "Idempotency-Key header is required",
			})
		}

		if !idempotency.ValidKey(key) {
			logger.Warn("malformed idempotency key", zap.String("key", key))
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": "Idempotency-Key must be a valid UUID",
			})
		}

		c.Locals(IdempotencyKeyLocal, key)
		return c.Next()
	}
}

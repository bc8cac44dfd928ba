package middleware

import (
	"PupilMeter/pkg/utils"
	"github.com/gofiber/fiber/v2"
	"time"
)

const RequestIDKey = "X-Request-ID"

// NewRequestIDMiddleware tags each request with the caller's X-Request-ID or
// a fresh ULID, and echoes it back in the response header.
func NewRequestIDMiddleware() fiber.Handler {
	return newRequestIDHandler(utils.New())
}

func newRequestIDHandler(ids utils.IUtils) fiber.Handler {
	return func(c *fiber.Ctx) error {
		requestID := c.Get(RequestIDKey)

		if requestID == "" {
			id, err := ids.NewULIDFromTimestamp(time.Now())
			if err != nil {
				id = ids.NewUUID()
			}
			requestID = id
		}

		c.Locals(RequestIDKey, requestID)
		c.Set(RequestIDKey, requestID)

		return c.Next()
	}
}

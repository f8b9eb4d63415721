package fiber

import (
	"strings"

	"github.com/gofiber/fiber/v3"

	"github.com/lborres/rota/core"
)

// requireAdmin builds a middleware that rejects requests without a valid
// admin key in the Authorization header.
func requireAdmin(guard core.AdminGuard) fiber.Handler {
	return func(c fiber.Ctx) error {
		key, err := extractBearer(c)
		if err != nil {
			return handleAdminError(c, err)
		}

		if err := guard.VerifyAdminKey(key); err != nil {
			return handleAdminError(c, err)
		}

		return c.Next()
	}
}

// extractBearer returns the token from an "Authorization: Bearer <token>" header.
func extractBearer(c fiber.Ctx) (string, error) {
	header := c.Get(fiber.HeaderAuthorization)
	if header == "" {
		return "", core.ErrMissingAuthHeader
	}

	token, ok := strings.CutPrefix(header, "Bearer ")
	if !ok || strings.TrimSpace(token) == "" {
		return "", core.ErrInvalidAuthHeader
	}
	return strings.TrimSpace(token), nil
}

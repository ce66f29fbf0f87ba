package auth

import (
	"strings"

	"github.com/gofiber/fiber/v2"
)

// RequireAuth admits any valid bearer token and stores the caller's identity
// in request locals.
func RequireAuth(svc *Service) fiber.Handler {
	return requireRole(svc, "")
}

// RequireOwner admits only the journal owner. Trip, tracking and photo
// mutations go through it.
func RequireOwner(svc *Service) fiber.Handler {
	return requireRole(svc, RoleOwner)
}

func requireRole(svc *Service, role string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		token := bearerToken(c.Get(fiber.HeaderAuthorization))
		if token == "" {
			return fiber.NewError(fiber.StatusUnauthorized, "missing bearer token")
		}

		claims, err := svc.ValidateAccessToken(token)
		if err != nil {
			return fiber.NewError(fiber.StatusUnauthorized, err.Error())
		}
		if role != "" && claims.Role != role {
			return fiber.NewError(fiber.StatusForbidden, "owner role required")
		}

		c.Locals("user_id", claims.UserID)
		c.Locals("user_role", claims.Role)
		return c.Next()
	}
}

func bearerToken(header string) string {
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return parts[1]
}

package middleware

import (
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/sublyhq/subly/internal/pkg/token"
	"github.com/sublyhq/subly/internal/pkg/usercontext"
)

// RequireAuth authenticates requests carrying a bearer access token and puts
// the resolved identity on the request context.
func RequireAuth() fiber.Handler {
	return func(c *fiber.Ctx) error {
		tokenString := extractBearerToken(c)
		if tokenString == "" {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "unauthorized", "message": "Missing access token"})
		}

		claims, err := token.Parse(tokenString)
		if err != nil {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "unauthorized", "message": "Invalid or expired access token"})
		}

		userID, err := claims.UserID()
		if err != nil {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "unauthorized", "message": "Invalid access token subject"})
		}

		usercontext.SetUserContext(c, usercontext.UserContext{
			UserID:     userID,
			IsLoggedIn: true,
			IsAdmin:    claims.Role == "admin",
		})

		return c.Next()
	}
}

// RequireAdmin rejects requests whose token does not carry the admin role.
// Must run after RequireAuth.
func RequireAdmin() fiber.Handler {
	return func(c *fiber.Ctx) error {
		userCtx := usercontext.GetUserContext(c)
		if !userCtx.IsLoggedIn {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "unauthorized", "message": "Missing access token"})
		}
		if !userCtx.IsAdmin {
			return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": "forbidden", "message": "You are not authorized to perform this action"})
		}
		return c.Next()
	}
}

func extractBearerToken(c *fiber.Ctx) string {
	auth := strings.TrimSpace(c.Get("Authorization"))
	if strings.HasPrefix(strings.ToLower(auth), "bearer ") {
		return strings.TrimSpace(auth[7:])
	}
	return ""
}

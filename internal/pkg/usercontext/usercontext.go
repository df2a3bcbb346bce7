package usercontext

import (
	"github.com/gofiber/fiber/v2"
)

const KeyUserContext = "USER_CONTEXT"

// UserContext carries the authenticated identity through a request.
type UserContext struct {
	UserID     uint
	Username   string
	IsLoggedIn bool
	IsAdmin    bool
}

// GetUserContext returns the user context set by the auth middleware, or the
// zero value when the request is unauthenticated.
func GetUserContext(c *fiber.Ctx) UserContext {
	if v, ok := c.Locals(KeyUserContext).(UserContext); ok {
		return v
	}
	return UserContext{}
}

// SetUserContext stores the user context on the request.
func SetUserContext(c *fiber.Ctx, ctx UserContext) {
	c.Locals(KeyUserContext, ctx)
}

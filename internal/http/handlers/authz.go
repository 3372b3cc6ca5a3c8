package handlers

import (
	"errors"

	"github.com/gofiber/fiber/v2"

	"vitrina/internal/domain"
	applog "vitrina/internal/log"
	"vitrina/internal/services"
)

// AttachUser puts the logged-in operator into Locals when the sid cookie maps to one.
func AttachUser(auth *services.AuthService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if u, err := auth.Operator(c.Cookies("sid")); err == nil {
			c.Locals("user", u)
		}
		return c.Next()
	}
}

// requireRole lets the request through when the session's operator holds one
// of roles. Anonymous requests go to the login page; other roles get a 403.
func requireRole(auth *services.AuthService, roles ...string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		u, err := auth.Authorize(c.Cookies("sid"), roles...)
		switch {
		case errors.Is(err, services.ErrForbidden):
			c.Locals("user", u)
			applog.Security(c, "access.denied.admin", map[string]any{"role": u.Role})
			return c.Status(fiber.StatusForbidden).Render("notfound", fiber.Map{"Message": "Acceso denegado"})
		case err != nil:
			if !errors.Is(err, services.ErrNoOperator) {
				applog.Error(c, "auth.session", err, nil)
			}
			return c.Redirect("/login")
		}
		c.Locals("user", u)
		return c.Next()
	}
}

func RequireAdmin(auth *services.AuthService) fiber.Handler {
	return requireRole(auth, domain.RoleAdmin)
}

// RequireUser enforces that an operator is logged in; otherwise redirect to login.
func RequireUser(auth *services.AuthService) fiber.Handler {
	return requireRole(auth)
}

func currentUser(c *fiber.Ctx) *domain.User {
	u, _ := c.Locals("user").(*domain.User)
	return u
}

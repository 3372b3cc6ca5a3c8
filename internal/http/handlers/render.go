package handlers

import (
	"encoding/base64"
	"encoding/json"
	"time"

	"github.com/gofiber/fiber/v2"

	"vitrina/internal/domain"
)

const flashCookie = "flash"

// Notice is a one-shot message shown on the next rendered page.
type Notice struct {
	Severity string `json:"severity"` // success | info | warn | error
	Summary  string `json:"summary"`
	Detail   string `json:"detail"`
}

func flash(c *fiber.Ctx, n Notice) {
	b, err := json.Marshal(n)
	if err != nil {
		return
	}
	c.Cookie(&fiber.Cookie{
		Name:     flashCookie,
		Value:    base64.RawURLEncoding.EncodeToString(b),
		Path:     "/",
		HTTPOnly: true,
		SameSite: fiber.CookieSameSiteLaxMode,
		Expires:  time.Now().Add(time.Minute),
	})
}

func takeFlash(c *fiber.Ctx) *Notice {
	raw := c.Cookies(flashCookie)
	if raw == "" {
		return nil
	}
	c.ClearCookie(flashCookie)
	b, err := base64.RawURLEncoding.DecodeString(raw)
	if err != nil {
		return nil
	}
	var n Notice
	if json.Unmarshal(b, &n) != nil {
		return nil
	}
	return &n
}

func render(c *fiber.Ctx, tmpl string, data fiber.Map) error {
	if data == nil {
		data = fiber.Map{}
	}
	// Inject operator if present
	if u, ok := c.Locals("user").(*domain.User); ok && u != nil {
		data["User"] = u
		data["IsAdmin"] = u.IsAdmin()
	}
	if _, set := data["Flash"]; !set {
		if n := takeFlash(c); n != nil {
			data["Flash"] = n
		}
	}
	// Pick up the token the CSRF middleware put into Locals
	tok, _ := c.Locals("CSRFToken").(string)
	if tok == "" {
		tok = c.Cookies("csrf_")
	}
	if tok != "" {
		data["CSRFToken"] = tok
	}
	return c.Render(tmpl, data)
}

func notFound(c *fiber.Ctx, msg string) error {
	return c.Status(fiber.StatusNotFound).Render("notfound", fiber.Map{"Message": msg})
}

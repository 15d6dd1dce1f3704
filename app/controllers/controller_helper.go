package controllers

import (
	"strconv"
	"strings"

	"github.com/gofiber/fiber/v2"
)

// Session keys shared by auth and oauth controllers.
const (
	AUTH_KEY  = "authenticated"
	USER_ID   = "user_id"
	USER_NAME = "username"
	USER_ROLE = "user_role"
)

// csrfToken reads the token the CSRF middleware stored for this request.
func csrfToken(c *fiber.Ctx) string {
	if tok, ok := c.Locals("csrf").(string); ok {
		return tok
	}
	return ""
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return strings.TrimSpace(v)
		}
	}
	return ""
}

// paramUint parses a numeric route parameter; 0 means missing/invalid.
func paramUint(c *fiber.Ctx, name string) uint {
	v, err := strconv.ParseUint(c.Params(name), 10, 32)
	if err != nil {
		return 0
	}
	return uint(v)
}

// parseIDList parses a comma separated list of numeric ids ("3,5,9").
func parseIDList(raw string) []uint {
	parts := strings.Split(raw, ",")
	out := make([]uint, 0, len(parts))
	for _, part := range parts {
		v, err := strconv.ParseUint(strings.TrimSpace(part), 10, 32)
		if err != nil || v == 0 {
			continue
		}
		out = append(out, uint(v))
	}
	return out
}

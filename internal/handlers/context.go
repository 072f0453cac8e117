package handlers

import (
	"github.com/l3v3l-match/backend/internal/models"
	"github.com/labstack/echo/v4"
)

// usernameFromContext extracts the authenticated username set by the JWT
// middleware; empty when unauthenticated.
func usernameFromContext(c echo.Context) string {
	claims, ok := c.Get("user").(*models.JwtCustomClaims)
	if !ok {
		return ""
	}
	return claims.Username
}

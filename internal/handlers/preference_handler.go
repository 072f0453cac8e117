package handlers

import (
	"net/http"

	"github.com/l3v3l-match/backend/internal/models"
	"github.com/l3v3l-match/backend/internal/repositories"
	"github.com/labstack/echo/v4"
)

// PreferenceHandler handles notification preference HTTP requests
type PreferenceHandler struct {
	preferenceRepo repositories.PreferenceRepository
}

// NewPreferenceHandler creates a new PreferenceHandler
func NewPreferenceHandler(preferenceRepo repositories.PreferenceRepository) *PreferenceHandler {
	return &PreferenceHandler{preferenceRepo: preferenceRepo}
}

// RegisterPreferenceRoutes registers preference routes
func (h *PreferenceHandler) RegisterPreferenceRoutes(g *echo.Group) {
	g.GET("/notifications/preferences", h.GetPreferences)
	g.PUT("/notifications/preferences", h.UpdatePreferences)
}

// GetPreferences returns the authenticated user's notification preferences,
// creating defaults on first access.
func (h *PreferenceHandler) GetPreferences(c echo.Context) error {
	username := usernameFromContext(c)
	if username == "" {
		return echo.NewHTTPError(http.StatusUnauthorized, "User not authenticated")
	}

	prefs, err := h.preferenceRepo.Get(c.Request().Context(), username)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "Failed to load preferences")
	}
	return c.JSON(http.StatusOK, prefs)
}

// UpdatePreferences applies a partial patch to the user's preferences
func (h *PreferenceHandler) UpdatePreferences(c echo.Context) error {
	username := usernameFromContext(c)
	if username == "" {
		return echo.NewHTTPError(http.StatusUnauthorized, "User not authenticated")
	}

	patch := new(models.PreferencesUpdate)
	if err := c.Bind(patch); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request payload")
	}
	if patch.QuietHours != nil {
		if err := c.Validate(patch.QuietHours); err != nil {
			return err
		}
	}

	// First access creates defaults, so the patch always has a target.
	if _, err := h.preferenceRepo.Get(c.Request().Context(), username); err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "Failed to load preferences")
	}

	prefs, err := h.preferenceRepo.Update(c.Request().Context(), username, patch)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "Failed to update preferences")
	}
	return c.JSON(http.StatusOK, prefs)
}

package handlers

import (
	"net/http"
	"time"

	"github.com/l3v3l-match/backend/internal/models"
	"github.com/l3v3l-match/backend/internal/repositories"
	"github.com/labstack/echo/v4"
)

// trackingPixel is a transparent 1x1 GIF served by the open-tracking endpoint
var trackingPixel = []byte{
	0x47, 0x49, 0x46, 0x38, 0x39, 0x61, 0x01, 0x00, 0x01, 0x00, 0x80, 0x00,
	0x00, 0x00, 0x00, 0x00, 0xff, 0xff, 0xff, 0x21, 0xf9, 0x04, 0x01, 0x00,
	0x00, 0x00, 0x00, 0x2c, 0x00, 0x00, 0x00, 0x00, 0x01, 0x00, 0x01, 0x00,
	0x00, 0x02, 0x02, 0x44, 0x01, 0x00, 0x3b,
}

// AnalyticsHandler handles delivery-log analytics and engagement tracking
type AnalyticsHandler struct {
	logRepo repositories.DeliveryLogRepository
}

// NewAnalyticsHandler creates a new AnalyticsHandler
func NewAnalyticsHandler(logRepo repositories.DeliveryLogRepository) *AnalyticsHandler {
	return &AnalyticsHandler{logRepo: logRepo}
}

// RegisterAnalyticsRoutes registers the protected analytics route
func (h *AnalyticsHandler) RegisterAnalyticsRoutes(g *echo.Group) {
	g.GET("/notifications/analytics", h.GetAnalytics)
}

// RegisterTrackingRoutes registers the unauthenticated tracking callbacks.
// They are hit by mail clients and link redirects, so no JWT.
func (h *AnalyticsHandler) RegisterTrackingRoutes(e *echo.Echo) {
	e.GET("/track/open/:id", h.TrackOpen)
	e.GET("/track/click/:id", h.TrackClick)
}

// GetAnalytics aggregates delivery-log entries
func (h *AnalyticsHandler) GetAnalytics(c echo.Context) error {
	filter := models.AnalyticsFilter{
		Username: c.QueryParam("username"),
		Trigger:  models.Trigger(c.QueryParam("trigger")),
		Channel:  models.Channel(c.QueryParam("channel")),
	}
	if s := c.QueryParam("start"); s != "" {
		t, err := time.Parse(time.RFC3339, s)
		if err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "Invalid start date, expected RFC3339")
		}
		filter.StartDate = &t
	}
	if s := c.QueryParam("end"); s != "" {
		t, err := time.Parse(time.RFC3339, s)
		if err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "Invalid end date, expected RFC3339")
		}
		filter.EndDate = &t
	}

	summary, err := h.logRepo.Aggregate(c.Request().Context(), filter)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "Failed to aggregate analytics")
	}
	return c.JSON(http.StatusOK, summary)
}

// TrackOpen flips the opened flag on a delivery log entry and serves a pixel
func (h *AnalyticsHandler) TrackOpen(c echo.Context) error {
	// Unknown ids still get the pixel; mail clients retry on errors.
	_ = h.logRepo.TrackOpen(c.Request().Context(), c.Param("id"))
	return c.Blob(http.StatusOK, "image/gif", trackingPixel)
}

// TrackClick flips the clicked flag and redirects to the original link
func (h *AnalyticsHandler) TrackClick(c echo.Context) error {
	_ = h.logRepo.TrackClick(c.Request().Context(), c.Param("id"))

	target := c.QueryParam("url")
	if target == "" {
		return c.NoContent(http.StatusNoContent)
	}
	return c.Redirect(http.StatusFound, target)
}

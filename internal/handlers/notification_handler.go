package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/l3v3l-match/backend/internal/models"
	"github.com/l3v3l-match/backend/internal/repositories"
	"github.com/l3v3l-match/backend/internal/services"
	"github.com/labstack/echo/v4"
)

// NotificationHandler handles notification queue HTTP requests
type NotificationHandler struct {
	enqueueService *services.EnqueueService
	dispatcher     *services.Dispatcher
	events         *services.EventDispatcher
	queueRepo      repositories.QueueRepository
}

// NewNotificationHandler creates a new NotificationHandler
func NewNotificationHandler(
	enqueueService *services.EnqueueService,
	dispatcher *services.Dispatcher,
	events *services.EventDispatcher,
	queueRepo repositories.QueueRepository,
) *NotificationHandler {
	return &NotificationHandler{
		enqueueService: enqueueService,
		dispatcher:     dispatcher,
		events:         events,
		queueRepo:      queueRepo,
	}
}

// RegisterNotificationRoutes registers notification routes
func (h *NotificationHandler) RegisterNotificationRoutes(g *echo.Group) {
	g.POST("/notifications", h.Enqueue)
	g.GET("/notifications/queue", h.ListQueue)
	g.GET("/notifications/queue/:id", h.GetQueueItem)
	g.POST("/notifications/dispatch", h.RunDispatcher)
}

// RegisterEventRoutes registers the producer-facing event route; it is
// grouped separately because mobile producers authenticate with Firebase
// ID tokens rather than session JWTs.
func (h *NotificationHandler) RegisterEventRoutes(g *echo.Group) {
	g.POST("/events", h.DispatchEvent)
}

// Enqueue queues a notification, fanning out one queue item per channel
func (h *NotificationHandler) Enqueue(c echo.Context) error {
	req := new(models.EnqueueRequest)
	if err := c.Bind(req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request payload")
	}
	if err := c.Validate(req); err != nil {
		return err
	}

	items, err := h.enqueueService.Enqueue(c.Request().Context(), req)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrPreferenceDenied):
			return echo.NewHTTPError(http.StatusBadRequest, err.Error())
		case errors.Is(err, services.ErrRateLimited):
			return echo.NewHTTPError(http.StatusTooManyRequests, err.Error())
		default:
			return echo.NewHTTPError(http.StatusInternalServerError, "Failed to enqueue notification")
		}
	}

	ids := make([]string, len(items))
	for i, item := range items {
		ids[i] = item.ID.Hex()
	}
	return c.JSON(http.StatusCreated, map[string]interface{}{
		"queue_item_ids": ids,
		"items":          items,
	})
}

// DispatchEvent accepts a user event, publishes it and queues the mapped notification
func (h *NotificationHandler) DispatchEvent(c echo.Context) error {
	event := new(services.UserEvent)
	if err := c.Bind(event); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid event payload")
	}
	if event.Type == "" || event.Target == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "Event type and target are required")
	}

	if err := h.events.Dispatch(c.Request().Context(), *event); err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "Failed to dispatch event")
	}
	return c.JSON(http.StatusAccepted, map[string]string{"status": "accepted"})
}

// ListQueue returns queue items filtered by lifecycle status
func (h *NotificationHandler) ListQueue(c echo.Context) error {
	status := models.Status(c.QueryParam("status"))
	if status == "" {
		status = models.StatusPending
	}

	limit, _ := strconv.ParseInt(c.QueryParam("limit"), 10, 64)
	if limit <= 0 || limit > 500 {
		limit = 100
	}

	items, err := h.queueRepo.ListByStatus(c.Request().Context(), status, limit)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "Failed to list queue items")
	}
	return c.JSON(http.StatusOK, map[string]interface{}{
		"status": status,
		"count":  len(items),
		"items":  items,
	})
}

// GetQueueItem returns one queue item by ID
func (h *NotificationHandler) GetQueueItem(c echo.Context) error {
	item, err := h.queueRepo.GetByID(c.Request().Context(), c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusNotFound, "Queue item not found")
	}
	return c.JSON(http.StatusOK, item)
}

// RunDispatcher triggers one dispatcher pass; normally the cron worker does
// this, the endpoint exists for operators.
func (h *NotificationHandler) RunDispatcher(c echo.Context) error {
	stats, err := h.dispatcher.Run(c.Request().Context())
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "Dispatcher run failed")
	}
	return c.JSON(http.StatusOK, stats)
}

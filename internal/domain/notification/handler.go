package notification

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/nrc/nrc/internal/platform/auth"
	"github.com/nrc/nrc/internal/platform/record"
	"github.com/nrc/nrc/internal/platform/resource"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	g := api.Group("", auth.AnyRole())
	g.GET("/notifications", h.ListNotifications)
	g.GET("/notifications/role/:role", h.ListRoleNotifications)
	g.GET("/notifications/:id", h.GetNotification)
	g.POST("/notifications", h.CreateNotification)
	g.PUT("/notifications/:id/read", h.MarkRead)
}

func (h *Handler) CreateNotification(c echo.Context) error {
	input, err := resource.Input(c, Schema)
	if err != nil {
		return resource.HTTPError(err, "notification")
	}
	n, err := h.svc.Create(c.Request().Context(), input)
	if err != nil {
		return resource.HTTPError(err, "notification")
	}
	return c.JSON(http.StatusCreated, n)
}

func (h *Handler) GetNotification(c echo.Context) error {
	n, err := h.svc.Get(c.Request().Context(), c.Param("id"))
	if err != nil {
		return resource.HTTPError(err, "notification")
	}
	return c.JSON(http.StatusOK, n)
}

// ListNotifications requires ?userId= and returns a bare array.
func (h *Handler) ListNotifications(c echo.Context) error {
	userID := record.FieldString(resource.Params(c), "user_id")
	items, err := h.svc.ListForUser(c.Request().Context(), userID)
	return h.list(c, items, err)
}

func (h *Handler) ListRoleNotifications(c echo.Context) error {
	userID := record.FieldString(resource.Params(c), "user_id")
	items, err := h.svc.ListForRole(c.Request().Context(), c.Param("role"), userID)
	return h.list(c, items, err)
}

func (h *Handler) list(c echo.Context, items []*Notification, err error) error {
	if err != nil {
		if resource.IsInvalid(err) {
			return resource.HTTPError(err, "notification")
		}
		return resource.ListFailed(c, "notifications")
	}
	if items == nil {
		items = []*Notification{}
	}
	return c.JSON(http.StatusOK, items)
}

func (h *Handler) MarkRead(c echo.Context) error {
	n, err := h.svc.MarkRead(c.Request().Context(), c.Param("id"))
	if err != nil {
		return resource.HTTPError(err, "notification")
	}
	return c.JSON(http.StatusOK, n)
}

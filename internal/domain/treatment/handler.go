package treatment

import (
	"github.com/labstack/echo/v4"

	"github.com/nrc/nrc/internal/platform/auth"
	"github.com/nrc/nrc/internal/platform/resource"
)

type Handler struct {
	trackers *resource.Handler[Tracker]
}

func NewHandler(svc *resource.Service[Tracker]) *Handler {
	return &Handler{trackers: resource.NewHandler(svc, "treatment tracker")}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	read := api.Group("", auth.AnyRole())
	write := api.Group("", auth.RequireRole(auth.RoleHospital))
	h.trackers.Register(read, write, "/treatment-trackers")
}

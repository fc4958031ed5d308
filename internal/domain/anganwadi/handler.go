package anganwadi

import (
	"github.com/labstack/echo/v4"

	"github.com/nrc/nrc/internal/platform/auth"
	"github.com/nrc/nrc/internal/platform/resource"
)

type Handler struct {
	centers *resource.Handler[Anganwadi]
	workers *resource.Handler[Worker]
	tickets *resource.Handler[VisitTicket]
}

func NewHandler(svcs *Services) *Handler {
	return &Handler{
		centers: resource.NewHandler(svcs.Centers, "anganwadi"),
		workers: resource.NewHandler(svcs.Workers, "worker"),
		tickets: resource.NewHandler(svcs.Tickets, "visit ticket"),
	}
}

// RegisterRoutes mounts the three collections. Everyone reads; supervisors
// write.
func (h *Handler) RegisterRoutes(api *echo.Group) {
	read := api.Group("", auth.AnyRole())
	write := api.Group("", auth.RequireRole(auth.RoleSupervisor))

	h.centers.Register(read, write, "/anganwadis")
	h.workers.Register(read, write, "/workers")
	h.tickets.Register(read, write, "/visit-tickets")
}

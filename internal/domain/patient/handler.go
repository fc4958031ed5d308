package patient

import (
	"net/http"
	"strconv"

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
	read := api.Group("", auth.AnyRole())
	read.GET("/patients", h.ListPatients)
	read.GET("/patients/:id", h.GetPatient)

	write := api.Group("", auth.RequireRole(auth.RoleAnganwadiWorker, auth.RoleSupervisor, auth.RoleHospital))
	write.POST("/patients", h.CreatePatient)
	write.PUT("/patients/:id", h.UpdatePatient)
	write.PATCH("/patients/:id", h.UpdatePatient)
}

func (h *Handler) CreatePatient(c echo.Context) error {
	input, err := resource.Input(c, Schema)
	if err != nil {
		return resource.HTTPError(err, "patient")
	}
	p, err := h.svc.Register(c.Request().Context(), input, auth.UserIDFromContext(c.Request().Context()))
	if err != nil {
		return resource.HTTPError(err, "patient")
	}
	return c.JSON(http.StatusCreated, p)
}

func (h *Handler) GetPatient(c echo.Context) error {
	p, err := h.svc.Get(c.Request().Context(), c.Param("id"))
	if err != nil {
		return resource.HTTPError(err, "patient")
	}
	return c.JSON(http.StatusOK, p)
}

// ListPatients returns a bare array. ?isActive=false lists the archive.
func (h *Handler) ListPatients(c echo.Context) error {
	params := resource.Params(c)
	f := Filter{RegisteredBy: record.FieldString(params, "registered_by")}
	if raw := record.FieldString(params, "is_active"); raw != "" {
		active, err := strconv.ParseBool(raw)
		if err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "invalid isActive")
		}
		f.Active = &active
	}

	items, err := h.svc.List(c.Request().Context(), f)
	if err != nil {
		return resource.ListFailed(c, "patients")
	}
	if items == nil {
		items = []*Patient{}
	}
	return c.JSON(http.StatusOK, items)
}

func (h *Handler) UpdatePatient(c echo.Context) error {
	patch, err := resource.Input(c, Schema)
	if err != nil {
		return resource.HTTPError(err, "patient")
	}
	p, err := h.svc.Update(c.Request().Context(), c.Param("id"), patch)
	if err != nil {
		return resource.HTTPError(err, "patient")
	}
	return c.JSON(http.StatusOK, p)
}

package bed

import (
	"errors"
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
	read := api.Group("", auth.AnyRole())
	read.GET("/beds", h.ListBeds)
	read.GET("/beds/occupancy", h.GetOccupancy)
	read.GET("/beds/:id", h.GetBed)

	write := api.Group("", auth.RequireRole(auth.RoleHospital))
	write.POST("/beds", h.CreateBed)
	write.PUT("/beds/:id", h.UpdateBed)
	write.PATCH("/beds/:id", h.UpdateBed)
	write.POST("/beds/:id/available", h.MarkAvailable)
	write.POST("/beds/:id/maintenance", h.MarkMaintenance)
}

func (h *Handler) CreateBed(c echo.Context) error {
	input, err := resource.Input(c, Schema)
	if err != nil {
		return resource.HTTPError(err, "bed")
	}
	b, err := h.svc.Create(c.Request().Context(), input)
	if err != nil {
		return resource.HTTPError(err, "bed")
	}
	return c.JSON(http.StatusCreated, b)
}

func (h *Handler) GetBed(c echo.Context) error {
	b, err := h.svc.Get(c.Request().Context(), c.Param("id"))
	if err != nil {
		return resource.HTTPError(err, "bed")
	}
	return c.JSON(http.StatusOK, b)
}

// ListBeds returns a bare array, optionally filtered by hospitalId, status,
// ward or patientId.
func (h *Handler) ListBeds(c echo.Context) error {
	params := resource.Params(c)
	f := Filter{
		HospitalID: record.FieldString(params, "hospital_id"),
		Status:     record.FieldString(params, "status"),
		PatientID:  record.FieldString(params, "patient_id"),
		Ward:       record.FieldString(params, "ward"),
	}
	items, err := h.svc.List(c.Request().Context(), f)
	if err != nil {
		if resource.IsInvalid(err) {
			return resource.HTTPError(err, "bed")
		}
		return resource.ListFailed(c, "beds")
	}
	if items == nil {
		items = []*Bed{}
	}
	return c.JSON(http.StatusOK, items)
}

func (h *Handler) UpdateBed(c echo.Context) error {
	patch, err := resource.Input(c, Schema)
	if err != nil {
		return resource.HTTPError(err, "bed")
	}
	b, err := h.svc.Update(c.Request().Context(), c.Param("id"), patch)
	if err != nil {
		return resource.HTTPError(err, "bed")
	}
	return c.JSON(http.StatusOK, b)
}

func (h *Handler) MarkAvailable(c echo.Context) error {
	b, err := h.svc.MarkAvailable(c.Request().Context(), c.Param("id"))
	if err != nil {
		return transitionError(err)
	}
	return c.JSON(http.StatusOK, b)
}

func (h *Handler) MarkMaintenance(c echo.Context) error {
	b, err := h.svc.MarkMaintenance(c.Request().Context(), c.Param("id"))
	if err != nil {
		return transitionError(err)
	}
	return c.JSON(http.StatusOK, b)
}

func transitionError(err error) error {
	if errors.Is(err, ErrInvalidTransition) {
		return echo.NewHTTPError(http.StatusConflict, err.Error())
	}
	return resource.HTTPError(err, "bed")
}

func (h *Handler) GetOccupancy(c echo.Context) error {
	o, err := h.svc.Occupancy(c.Request().Context(), record.FieldString(resource.Params(c), "hospital_id"))
	if err != nil {
		return resource.HTTPError(err, "bed")
	}
	return c.JSON(http.StatusOK, o)
}

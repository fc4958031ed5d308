package bedrequest

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/nrc/nrc/internal/platform/auth"
	"github.com/nrc/nrc/internal/platform/record"
	"github.com/nrc/nrc/internal/platform/resource"
	"github.com/nrc/nrc/pkg/pagination"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	read := api.Group("", auth.AnyRole())
	read.GET("/bed-requests", h.ListBedRequests)
	read.GET("/bed-requests/:id", h.GetBedRequest)

	create := api.Group("", auth.RequireRole(auth.RoleAnganwadiWorker, auth.RoleSupervisor))
	create.POST("/bed-requests", h.CreateBedRequest)

	review := api.Group("", auth.RequireRole(auth.RoleHospital))
	review.PUT("/bed-requests/:id", h.ReviewBedRequest)
	review.PATCH("/bed-requests/:id", h.ReviewBedRequest)
}

func (h *Handler) CreateBedRequest(c echo.Context) error {
	input, err := resource.Input(c, Schema)
	if err != nil {
		return resource.HTTPError(err, "bed request")
	}
	br, err := h.svc.Create(c.Request().Context(), input, auth.UserIDFromContext(c.Request().Context()))
	if err != nil {
		return resource.HTTPError(err, "bed request")
	}
	return c.JSON(http.StatusCreated, br)
}

func (h *Handler) GetBedRequest(c echo.Context) error {
	br, err := h.svc.Get(c.Request().Context(), c.Param("id"))
	if err != nil {
		return resource.HTTPError(err, "bed request")
	}
	return c.JSON(http.StatusOK, br)
}

// ListBedRequests answers {data,total,count,...}. Filters: patientId,
// status, urgencyLevel.
func (h *Handler) ListBedRequests(c echo.Context) error {
	params := resource.Params(c)
	pg := pagination.FromContext(c)
	items, total, err := h.svc.List(c.Request().Context(), Filter{
		PatientID:    record.FieldString(params, "patient_id"),
		Status:       record.FieldString(params, "status"),
		UrgencyLevel: record.FieldString(params, "urgency_level"),
		Limit:        pg.Limit,
		Offset:       pg.Offset,
	})
	if err != nil {
		if resource.IsInvalid(err) {
			return resource.HTTPError(err, "bed request")
		}
		return resource.ListFailed(c, "bed requests")
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(items, total, pg))
}

func (h *Handler) ReviewBedRequest(c echo.Context) error {
	patch, err := resource.Input(c, Schema)
	if err != nil {
		return resource.HTTPError(err, "bed request")
	}
	br, err := h.svc.Review(c.Request().Context(), c.Param("id"), patch, auth.UserIDFromContext(c.Request().Context()))
	if err != nil {
		return resource.HTTPError(err, "bed request")
	}
	return c.JSON(http.StatusOK, br)
}

package admission

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/nrc/nrc/internal/platform/auth"
	"github.com/nrc/nrc/internal/platform/record"
	"github.com/nrc/nrc/internal/platform/resource"
	"github.com/nrc/nrc/internal/platform/retryqueue"
	"github.com/nrc/nrc/internal/platform/store"
)

type Handler struct {
	svc   *Service
	retry retryqueue.Config
}

// NewHandler serves the admission workflows. retry configures the drain run
// by POST /admin/reconcile.
func NewHandler(svc *Service, retry retryqueue.Config) *Handler {
	return &Handler{svc: svc, retry: retry}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	hospital := api.Group("", auth.RequireRole(auth.RoleHospital))
	hospital.POST("/patients/:id/discharge", h.Discharge)
	hospital.POST("/patients/:id/reactivate", h.Reactivate)
	hospital.POST("/patients/:id/assign-bed", h.AssignBed)
	hospital.POST("/notifications/:id/release", h.Release)

	field := api.Group("", auth.RequireRole(auth.RoleAnganwadiWorker, auth.RoleSupervisor))
	field.POST("/patients/:id/discharge-request", h.RequestDischarge)

	admin := api.Group("/admin", auth.RequireRole(auth.RoleAdmin))
	admin.GET("/consistency", h.Consistency)
	admin.POST("/reconcile", h.Reconcile)
}

// Discharge takes {bedId, reason}. A bed that could not be released still
// answers 200; the outcome is marked partial and carries a warning.
func (h *Handler) Discharge(c echo.Context) error {
	body, err := resource.Body(c)
	if err != nil {
		return resource.HTTPError(err, "patient")
	}
	out, err := h.svc.Discharge(c.Request().Context(), c.Param("id"),
		record.FieldString(body, "bed_id"), record.FieldString(body, "reason"))
	if err != nil {
		return workflowError(err)
	}
	return c.JSON(http.StatusOK, out)
}

func (h *Handler) Reactivate(c echo.Context) error {
	body, err := resource.Body(c)
	if err != nil {
		return resource.HTTPError(err, "patient")
	}
	out, err := h.svc.Reactivate(c.Request().Context(), c.Param("id"), record.FieldString(body, "bed_id"))
	if errors.Is(err, ErrReactivationIncomplete) {
		return c.JSON(http.StatusInternalServerError, map[string]any{
			"error":   ErrReactivationIncomplete.Error(),
			"outcome": out,
		})
	}
	if err != nil {
		return workflowError(err)
	}
	return c.JSON(http.StatusOK, out)
}

func (h *Handler) AssignBed(c echo.Context) error {
	body, err := resource.Body(c)
	if err != nil {
		return resource.HTTPError(err, "patient")
	}
	out, err := h.svc.AssignBed(c.Request().Context(), c.Param("id"), record.FieldString(body, "bed_id"))
	if err != nil {
		return workflowError(err)
	}
	return c.JSON(http.StatusOK, out)
}

func (h *Handler) RequestDischarge(c echo.Context) error {
	body, err := resource.Body(c)
	if err != nil {
		return resource.HTTPError(err, "patient")
	}
	ctx := c.Request().Context()
	n, err := h.svc.RequestDischarge(ctx, c.Param("id"), record.FieldString(body, "reason"), auth.UserIDFromContext(ctx))
	if err != nil {
		return workflowError(err)
	}
	return c.JSON(http.StatusCreated, n)
}

// Release discharges the patient named by a discharge-request notification.
func (h *Handler) Release(c echo.Context) error {
	body, err := resource.Body(c)
	if err != nil {
		return resource.HTTPError(err, "notification")
	}
	out, err := h.svc.ReleaseFromNotification(c.Request().Context(), c.Param("id"), record.FieldString(body, "reason"))
	if err != nil {
		return workflowError(err)
	}
	return c.JSON(http.StatusOK, out)
}

func (h *Handler) Consistency(c echo.Context) error {
	rep, err := h.svc.Audit(c.Request().Context())
	if err != nil {
		return resource.HTTPError(err, "record")
	}
	return c.JSON(http.StatusOK, rep)
}

func (h *Handler) Reconcile(c echo.Context) error {
	res, err := h.svc.Replay(c.Request().Context(), h.retry)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "reconcile failed").SetInternal(err)
	}
	return c.JSON(http.StatusOK, res)
}

func workflowError(err error) error {
	switch {
	case errors.Is(err, ErrBedUnavailable), errors.Is(err, ErrPatientInactive),
		errors.Is(err, ErrPatientActive), errors.Is(err, ErrPatientHasBed),
		errors.Is(err, ErrRequestHandled):
		return echo.NewHTTPError(http.StatusConflict, err.Error())
	case errors.Is(err, store.ErrNotFound):
		return echo.NewHTTPError(http.StatusNotFound, err.Error())
	}
	return resource.HTTPError(err, "record")
}

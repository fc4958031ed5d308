package resource

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/nrc/nrc/internal/platform/store"
	"github.com/nrc/nrc/pkg/pagination"
)

type Handler[T any] struct {
	svc  *Service[T]
	name string
}

// NewHandler serves svc. name is the entity name used in messages.
func NewHandler[T any](svc *Service[T], name string) *Handler[T] {
	return &Handler[T]{svc: svc, name: name}
}

// Register mounts list and get on read, create and update on write.
func (h *Handler[T]) Register(read, write *echo.Group, path string) {
	read.GET(path, h.List)
	read.GET(path+"/:id", h.Get)
	write.POST(path, h.Create)
	write.PUT(path+"/:id", h.Update)
	write.PATCH(path+"/:id", h.Update)
}

func (h *Handler[T]) List(c echo.Context) error {
	filters, err := Filters(c, h.svc.Schema())
	if err != nil {
		return HTTPError(err, h.name)
	}
	pg := pagination.FromContext(c)
	items, total, err := h.svc.List(c.Request().Context(), store.Query{
		Filters: filters,
		Limit:   pg.Limit,
		Offset:  pg.Offset,
	})
	if err != nil {
		return ListFailed(c, h.name+" records")
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(items, total, pg))
}

func (h *Handler[T]) Get(c echo.Context) error {
	v, err := h.svc.Get(c.Request().Context(), c.Param("id"))
	if err != nil {
		return HTTPError(err, h.name)
	}
	return c.JSON(http.StatusOK, v)
}

func (h *Handler[T]) Create(c echo.Context) error {
	input, err := Input(c, h.svc.Schema())
	if err != nil {
		return HTTPError(err, h.name)
	}
	v, err := h.svc.Create(c.Request().Context(), input)
	if err != nil {
		return HTTPError(err, h.name)
	}
	return c.JSON(http.StatusCreated, v)
}

func (h *Handler[T]) Update(c echo.Context) error {
	patch, err := Input(c, h.svc.Schema())
	if err != nil {
		return HTTPError(err, h.name)
	}
	v, err := h.svc.Update(c.Request().Context(), c.Param("id"), patch)
	if err != nil {
		return HTTPError(err, h.name)
	}
	return c.JSON(http.StatusOK, v)
}

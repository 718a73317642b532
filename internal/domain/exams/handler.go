// Package exams proxies the imaging exam-type catalogue.
package exams

import (
	"github.com/labstack/echo/v4"

	"github.com/cimef/portal/internal/platform/auth"
	"github.com/cimef/portal/internal/upstream"
)

type Handler struct {
	client *upstream.Client
	guard  *auth.Guard
}

func NewHandler(client *upstream.Client, guard *auth.Guard) *Handler {
	return &Handler{client: client, guard: guard}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	g := api.Group("/exams", h.guard.RequireStaff(auth.CapExams))
	g.GET("", h.List)
	g.POST("", h.Create)
	g.GET("/:id", h.Get)
	g.PUT("/:id", h.Update)
	g.DELETE("/:id", h.Delete)
}

func (h *Handler) forward(c echo.Context, path string) error {
	sid := auth.SessionIDFromContext(c.Request().Context())
	if err := h.client.Forward(c, sid, path); err != nil {
		return h.guard.UpstreamError(c, err)
	}
	return nil
}

func (h *Handler) List(c echo.Context) error   { return h.forward(c, "/exams/") }
func (h *Handler) Create(c echo.Context) error { return h.forward(c, "/exams/") }
func (h *Handler) Get(c echo.Context) error    { return h.forward(c, "/exams/"+c.Param("id")+"/") }
func (h *Handler) Update(c echo.Context) error { return h.forward(c, "/exams/"+c.Param("id")+"/") }
func (h *Handler) Delete(c echo.Context) error { return h.forward(c, "/exams/"+c.Param("id")+"/") }

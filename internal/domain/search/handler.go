// Package search proxies the global search endpoints used by the console's
// top bar. Open to any authenticated staff; result filtering by role is the
// backend's job.
package search

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
	g := api.Group("/search", h.guard.RequireStaff(""))
	g.GET("", h.Global)
	g.GET("/patients", h.Patients)
	g.GET("/stats", h.Stats)
}

func (h *Handler) forward(c echo.Context, path string) error {
	sid := auth.SessionIDFromContext(c.Request().Context())
	if err := h.client.Forward(c, sid, path); err != nil {
		return h.guard.UpstreamError(c, err)
	}
	return nil
}

func (h *Handler) Global(c echo.Context) error   { return h.forward(c, "/search/") }
func (h *Handler) Patients(c echo.Context) error { return h.forward(c, "/search/patients/") }
func (h *Handler) Stats(c echo.Context) error    { return h.forward(c, "/search/stats/") }

// Package reports proxies the staff side of medical report management:
// upload (multipart passthrough), listing, activation and deletion. The
// patient-facing download lives in the portal package.
package reports

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
	g := api.Group("/reports", h.guard.RequireStaff(auth.CapReports))
	g.GET("", h.List)
	g.POST("/upload", h.Upload)
	g.POST("/:id/toggle_active", h.ToggleActive)
	g.DELETE("/:id", h.Delete)
}

func (h *Handler) forward(c echo.Context, path string) error {
	sid := auth.SessionIDFromContext(c.Request().Context())
	if err := h.client.Forward(c, sid, path); err != nil {
		return h.guard.UpstreamError(c, err)
	}
	return nil
}

func (h *Handler) List(c echo.Context) error { return h.forward(c, "/reports/admin/") }

// Upload relays the multipart body untouched; the backend owns file storage
// and virus checks. The body-limit middleware bounds the upload size.
func (h *Handler) Upload(c echo.Context) error { return h.forward(c, "/reports/admin/") }

func (h *Handler) ToggleActive(c echo.Context) error {
	return h.forward(c, "/reports/admin/"+c.Param("id")+"/toggle_active/")
}

func (h *Handler) Delete(c echo.Context) error {
	return h.forward(c, "/reports/admin/"+c.Param("id")+"/")
}

// Package patients proxies the patient registry: demographic CRUD plus the
// portal access-credential management endpoints.
package patients

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
	g := api.Group("/patients", h.guard.RequireStaff(auth.CapPatients))
	g.GET("", h.List)
	g.POST("", h.Create)
	g.GET("/access", h.ListAccess)
	g.POST("/access/generate", h.GenerateAccess)
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

func (h *Handler) List(c echo.Context) error   { return h.forward(c, "/patients/") }
func (h *Handler) Create(c echo.Context) error { return h.forward(c, "/patients/") }
func (h *Handler) Get(c echo.Context) error    { return h.forward(c, "/patients/"+c.Param("id")+"/") }
func (h *Handler) Update(c echo.Context) error { return h.forward(c, "/patients/"+c.Param("id")+"/") }
func (h *Handler) Delete(c echo.Context) error { return h.forward(c, "/patients/"+c.Param("id")+"/") }

// ListAccess lists issued portal credentials so the front desk can see which
// patients already hold an access card.
func (h *Handler) ListAccess(c echo.Context) error { return h.forward(c, "/patients/access/") }

// GenerateAccess asks the backend to mint (or re-mint) a portal access
// key/password pair. The target patient travels in the request body
// (patient_id), relayed untouched. The credentials come back once, for
// printing; the gateway never stores them.
func (h *Handler) GenerateAccess(c echo.Context) error {
	return h.forward(c, "/patients/access/generate/")
}

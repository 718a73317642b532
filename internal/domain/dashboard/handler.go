// Package dashboard serves the landing-page statistics. Every staff role
// gets a dashboard, but each role sees a different cut of the numbers, so
// the gateway dispatches to the role-specific backend endpoint.
package dashboard

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/cimef/portal/internal/platform/auth"
	"github.com/cimef/portal/internal/session"
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
	g := api.Group("/dashboard", h.guard.RequireStaff(""))
	g.GET("/stats", h.Stats)
}

// statsPath maps a role to its backend stats endpoint.
func statsPath(role string) string {
	switch role {
	case session.RoleSuperuser, session.RoleAdmin:
		return "/auth/admin-stats/"
	case session.RoleSecretary:
		return "/auth/secretary-stats/"
	case session.RoleDoctor:
		return "/auth/doctor-stats/"
	case session.RoleAccountant:
		return "/auth/accountant-stats/"
	default:
		return ""
	}
}

func (h *Handler) Stats(c echo.Context) error {
	identity := auth.StaffFromContext(c.Request().Context())
	path := statsPath(identity.Role)
	if path == "" {
		return echo.NewHTTPError(http.StatusForbidden, "no dashboard for this role")
	}
	sid := auth.SessionIDFromContext(c.Request().Context())
	if err := h.client.Forward(c, sid, path); err != nil {
		return h.guard.UpstreamError(c, err)
	}
	return nil
}

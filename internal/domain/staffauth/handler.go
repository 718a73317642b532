// Package staffauth owns the staff-facing authentication surface: credential
// exchange against the clinic backend, session establishment, and teardown.
package staffauth

import (
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/cimef/portal/internal/platform/auth"
	"github.com/cimef/portal/internal/platform/metrics"
	"github.com/cimef/portal/internal/session"
	"github.com/cimef/portal/internal/upstream"
)

type Handler struct {
	client  *upstream.Client
	store   session.StaffStore
	guard   *auth.Guard
	cookies auth.CookieConfig
	log     zerolog.Logger
}

func NewHandler(client *upstream.Client, store session.StaffStore, guard *auth.Guard, cookies auth.CookieConfig, log zerolog.Logger) *Handler {
	return &Handler{client: client, store: store, guard: guard, cookies: cookies, log: log}
}

// RegisterRoutes wires the auth surface. loginLimiter throttles credential
// guessing on the login endpoint only.
func (h *Handler) RegisterRoutes(api *echo.Group, loginLimiter echo.MiddlewareFunc) {
	api.POST("/auth/login", h.Login, loginLimiter)
	api.POST("/auth/logout", h.Logout)

	authed := api.Group("", h.guard.RequireStaff(""))
	authed.GET("/auth/me", h.Me)
}

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// Login exchanges staff credentials for a durable gateway session. The
// browser only ever sees the opaque session cookie; the token pair stays
// server-side.
func (h *Handler) Login(c echo.Context) error {
	var req loginRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if req.Username == "" || req.Password == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "username and password are required")
	}

	tokens, identity, err := h.client.Login(c.Request().Context(), req.Username, req.Password)
	if err == upstream.ErrInvalidCredentials {
		metrics.LoginAttempts.WithLabelValues("staff", "rejected").Inc()
		return echo.NewHTTPError(http.StatusUnauthorized, "invalid username or password")
	}
	if err != nil {
		metrics.LoginAttempts.WithLabelValues("staff", "error").Inc()
		h.log.Error().Err(err).Msg("staff login failed against backend")
		return echo.NewHTTPError(http.StatusBadGateway, "authentication service unavailable")
	}

	sid := uuid.NewString()
	if err := h.store.Save(c.Request().Context(), sid, tokens, identity); err != nil {
		h.log.Error().Err(err).Msg("persist staff session")
		return echo.NewHTTPError(http.StatusInternalServerError, "could not establish session")
	}

	metrics.LoginAttempts.WithLabelValues("staff", "success").Inc()
	h.log.Info().Str("username", identity.Username).Str("role", identity.Role).Msg("staff login")
	c.SetCookie(h.cookies.Staff(sid))
	return c.JSON(http.StatusOK, echo.Map{"user": identity})
}

// Logout clears the stored session and drops the cookie. Always succeeds:
// logging out of a dead session is not an error.
func (h *Handler) Logout(c echo.Context) error {
	if cookie, err := c.Cookie(h.cookies.StaffName); err == nil && cookie.Value != "" {
		if err := h.store.Clear(c.Request().Context(), cookie.Value); err != nil {
			h.log.Warn().Err(err).Msg("clear staff session on logout")
		}
	}
	c.SetCookie(h.cookies.ExpireStaff())
	return c.JSON(http.StatusOK, echo.Map{"detail": "logged out"})
}

// Me reports the identity behind the current session, so the frontend can
// restore its view of the signed-in user without holding any token.
func (h *Handler) Me(c echo.Context) error {
	identity := auth.StaffFromContext(c.Request().Context())
	return c.JSON(http.StatusOK, echo.Map{"user": identity})
}

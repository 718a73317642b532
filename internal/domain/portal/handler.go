// Package portal serves the patient-facing surface: access-key login,
// session introspection and gated report downloads. Portal sessions are
// volatile: held in memory and scoped to the browser session.
package portal

import (
	"fmt"
	"net/http"
	"regexp"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/cimef/portal/internal/platform/auth"
	"github.com/cimef/portal/internal/platform/metrics"
	"github.com/cimef/portal/internal/session"
	"github.com/cimef/portal/internal/upstream"
)

// Credential shape is fixed by the clinic's card printer: a 12-character
// uppercase key and an 8-character alphanumeric password. Anything else is
// rejected before the backend is bothered.
var (
	accessKeyPattern = regexp.MustCompile(`^[A-Z0-9]{12}$`)
	passwordPattern  = regexp.MustCompile(`^[A-Za-z0-9]{8}$`)
)

type Handler struct {
	client  *upstream.Client
	store   session.PatientStore
	guard   *auth.Guard
	cookies auth.CookieConfig
	log     zerolog.Logger
}

func NewHandler(client *upstream.Client, store session.PatientStore, guard *auth.Guard, cookies auth.CookieConfig, log zerolog.Logger) *Handler {
	return &Handler{client: client, store: store, guard: guard, cookies: cookies, log: log}
}

func (h *Handler) RegisterRoutes(api *echo.Group, loginLimiter echo.MiddlewareFunc) {
	api.POST("/portal/login", h.Login, loginLimiter)
	api.POST("/portal/logout", h.Logout)

	authed := api.Group("", h.guard.RequirePatient())
	authed.GET("/portal/session", h.Session)
	authed.GET("/portal/reports", h.Reports)
	authed.GET("/portal/reports/:id/download", h.DownloadReport)
}

type loginRequest struct {
	AccessKey string `json:"access_key"`
	Password  string `json:"password"`
}

func (h *Handler) Login(c echo.Context) error {
	var req loginRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	// Keys are printed uppercase but typed by hand.
	key := strings.ToUpper(strings.TrimSpace(req.AccessKey))
	if !accessKeyPattern.MatchString(key) {
		return echo.NewHTTPError(http.StatusBadRequest, "access key must be 12 uppercase letters or digits")
	}
	if !passwordPattern.MatchString(req.Password) {
		return echo.NewHTTPError(http.StatusBadRequest, "password must be 8 letters or digits")
	}

	sess, err := h.client.PatientLogin(c.Request().Context(), key, req.Password)
	if err == upstream.ErrInvalidCredentials {
		metrics.LoginAttempts.WithLabelValues("patient", "rejected").Inc()
		return echo.NewHTTPError(http.StatusUnauthorized, "invalid access key or password")
	}
	if err != nil {
		metrics.LoginAttempts.WithLabelValues("patient", "error").Inc()
		h.log.Error().Err(err).Msg("portal login failed against backend")
		return echo.NewHTTPError(http.StatusBadGateway, "portal service unavailable")
	}

	sid := uuid.NewString()
	if err := h.store.Save(c.Request().Context(), sid, sess); err != nil {
		h.log.Error().Err(err).Msg("persist portal session")
		return echo.NewHTTPError(http.StatusInternalServerError, "could not establish session")
	}

	metrics.LoginAttempts.WithLabelValues("patient", "success").Inc()
	h.log.Info().Int64("patient_id", sess.Patient.ID).Msg("portal login")
	c.SetCookie(h.cookies.Patient(sid))
	return c.JSON(http.StatusOK, sess)
}

func (h *Handler) Logout(c echo.Context) error {
	if cookie, err := c.Cookie(h.cookies.PatientName); err == nil && cookie.Value != "" {
		if err := h.store.Clear(c.Request().Context(), cookie.Value); err != nil {
			h.log.Warn().Err(err).Msg("clear portal session on logout")
		}
	}
	c.SetCookie(h.cookies.ExpirePatient())
	return c.JSON(http.StatusOK, echo.Map{"detail": "logged out"})
}

// Session returns the portal payload captured at login: patient identity,
// access metadata and the report list.
func (h *Handler) Session(c echo.Context) error {
	sess := auth.PatientFromContext(c.Request().Context())
	return c.JSON(http.StatusOK, sess)
}

func (h *Handler) Reports(c echo.Context) error {
	sess := auth.PatientFromContext(c.Request().Context())
	return c.JSON(http.StatusOK, echo.Map{"files": sess.Reports})
}

// DownloadReport streams a report PDF. The session's own report list is the
// authorization boundary: a patient can only fetch ids that appeared in
// their login payload.
func (h *Handler) DownloadReport(c echo.Context) error {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid report id")
	}
	sess := auth.PatientFromContext(c.Request().Context())
	if !sess.HasReport(id) {
		return echo.NewHTTPError(http.StatusNotFound, "report not found")
	}
	if err := h.client.ForwardAnon(c, fmt.Sprintf("/reports/patient-download/%d/", id)); err != nil {
		h.log.Error().Err(err).Int64("report_id", id).Msg("report download failed")
		return echo.NewHTTPError(http.StatusBadGateway, "download unavailable")
	}
	return nil
}

package auth

import (
	"errors"
	"net/http"
	"net/url"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/cimef/portal/internal/platform/metrics"
	"github.com/cimef/portal/internal/session"
	"github.com/cimef/portal/internal/upstream"
)

// Guard gates route groups on the current identity. Each request moves
// through exactly one of three terminal outcomes: unauthenticated (redirect
// to the login screen, original location preserved), forbidden (403 block
// response, no redirect; the caller is authenticated, just not allowed),
// or granted (next handler runs with the identity on the context).
type Guard struct {
	resolver   *session.Resolver
	cookies    CookieConfig
	loginPath  string
	portalPath string
}

func NewGuard(resolver *session.Resolver, cookies CookieConfig, loginPath, portalPath string) *Guard {
	return &Guard{
		resolver:   resolver,
		cookies:    cookies,
		loginPath:  loginPath,
		portalPath: portalPath,
	}
}

// RequireStaff guards a staff route group. An empty capability admits any
// authenticated staff identity. The patient store is never consulted here:
// a valid portal session grants nothing on staff routes.
func (g *Guard) RequireStaff(capability string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			sid := cookieValue(c, g.cookies.StaffName)
			identity := g.resolver.ResolveStaff(c.Request().Context(), sid)
			if identity == nil {
				return g.StaffUnauthenticated(c)
			}
			if capability != "" && !HasCapability(identity, capability) {
				metrics.AuthzDenials.WithLabelValues(capability).Inc()
				return forbidden(c, capability)
			}
			c.SetRequest(c.Request().WithContext(WithStaff(c.Request().Context(), sid, identity)))
			return next(c)
		}
	}
}

// RequirePatient guards portal routes. The staff store is never consulted.
func (g *Guard) RequirePatient() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			sid := cookieValue(c, g.cookies.PatientName)
			sess := g.resolver.ResolvePatient(c.Request().Context(), sid)
			if sess == nil {
				return g.PatientUnauthenticated(c)
			}
			c.SetRequest(c.Request().WithContext(WithPatient(c.Request().Context(), sess)))
			return next(c)
		}
	}
}

// StaffUnauthenticated produces the unauthenticated outcome for a staff
// route: the session cookie is dropped and the caller is sent to the login
// screen with the originally requested location preserved.
func (g *Guard) StaffUnauthenticated(c echo.Context) error {
	return unauthenticated(c, g.loginPath, g.cookies.ExpireStaff())
}

// PatientUnauthenticated is the portal counterpart.
func (g *Guard) PatientUnauthenticated(c echo.Context) error {
	return unauthenticated(c, g.portalPath, g.cookies.ExpirePatient())
}

// UpstreamError translates gateway-client failures into responses. A
// terminal authentication failure becomes the unauthenticated outcome (the
// client has already cleared the stored session; this completes the hard
// reset by dropping the cookie). Anything else is a backend fault the
// screen displays itself without costing the user their session.
func (g *Guard) UpstreamError(c echo.Context, err error) error {
	if errors.Is(err, upstream.ErrUnauthenticated) {
		return g.StaffUnauthenticated(c)
	}
	return c.JSON(http.StatusBadGateway, echo.Map{"error": "backend unavailable"})
}

func unauthenticated(c echo.Context, loginPath string, expire *http.Cookie) error {
	c.SetCookie(expire)
	next := c.Request().RequestURI
	if wantsHTML(c) {
		return c.Redirect(http.StatusFound, loginPath+"?next="+url.QueryEscape(next))
	}
	return c.JSON(http.StatusUnauthorized, echo.Map{
		"error": "authentication required",
		"login": loginPath,
		"next":  next,
	})
}

func forbidden(c echo.Context, capability string) error {
	return c.JSON(http.StatusForbidden, echo.Map{
		"error":      "permission denied",
		"capability": capability,
	})
}

func cookieValue(c echo.Context, name string) string {
	cookie, err := c.Cookie(name)
	if err != nil {
		return ""
	}
	return cookie.Value
}

// wantsHTML distinguishes browser navigations (redirect to login) from API
// calls (401 with the login target in the body).
func wantsHTML(c echo.Context) bool {
	if c.Request().Header.Get("X-Requested-With") == "XMLHttpRequest" {
		return false
	}
	return strings.Contains(c.Request().Header.Get(echo.HeaderAccept), echo.MIMETextHTML)
}

// Package upstream is the single point through which the gateway talks to
// the clinic's REST backend. It owns bearer-token attachment and the
// one-shot refresh-on-401 protocol; nothing else in the codebase ever sees
// a raw token.
package upstream

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"
	"golang.org/x/sync/singleflight"

	"github.com/cimef/portal/internal/platform/metrics"
	"github.com/cimef/portal/internal/session"
)

type Client struct {
	base  *url.URL
	http  *http.Client
	staff session.StaffStore
	log   zerolog.Logger

	// refreshes coalesces concurrent refresh attempts for the same
	// session: simultaneous 401s trigger a single upstream refresh call.
	refreshes singleflight.Group
}

func New(baseURL string, timeout time.Duration, staff session.StaffStore, log zerolog.Logger) (*Client, error) {
	base, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("parse upstream url: %w", err)
	}
	if base.Scheme == "" || base.Host == "" {
		return nil, fmt.Errorf("upstream url %q must be absolute", baseURL)
	}
	return &Client{
		base:  base,
		http:  &http.Client{Timeout: timeout},
		staff: staff,
		log:   log,
	}, nil
}

// Request describes one backend call. Body is held as bytes so the request
// can be replayed after a token refresh.
type Request struct {
	Method      string
	Path        string
	Query       url.Values
	Body        []byte
	ContentType string
}

// Do sends the request with the session's bearer token attached. On a 401
// it attempts exactly one token refresh and one retry; a 401 on the retry
// is terminal and clears the session. Transport failures are returned as
// plain errors and never touch the session.
//
// Callers own the response body.
func (c *Client) Do(ctx context.Context, sid string, req Request) (*http.Response, error) {
	sess, err := c.staff.Load(ctx, sid)
	if err == session.ErrNoSession {
		return nil, ErrUnauthenticated
	}
	if err != nil {
		return nil, fmt.Errorf("load session: %w", err)
	}

	resp, err := c.send(ctx, req, sess.Tokens.Access)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusUnauthorized {
		return resp, nil
	}
	drain(resp)

	if sess.Tokens.Refresh == "" {
		// Cannot happen through the store (partial pairs are rejected),
		// but fail closed if it ever does.
		_ = c.staff.Clear(ctx, sid)
		return nil, ErrUnauthenticated
	}

	access, err := c.refreshAccess(ctx, sid, sess.Tokens.Refresh)
	if err != nil {
		return nil, err
	}

	resp, err = c.send(ctx, req, access)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode == http.StatusUnauthorized {
		// Terminal: the refreshed token was rejected too. Never loop into
		// a second refresh.
		drain(resp)
		_ = c.staff.Clear(ctx, sid)
		c.log.Warn().Str("session_id", sid).Msg("retried request rejected, session cleared")
		return nil, ErrUnauthenticated
	}
	return resp, nil
}

// DoAnon sends an unauthenticated request. Used for the patient portal,
// whose endpoints are gated by the access-key credential, not by bearer
// tokens.
func (c *Client) DoAnon(ctx context.Context, req Request) (*http.Response, error) {
	return c.send(ctx, req, "")
}

// refreshAccess swaps the refresh token for a new access token, persisting
// it in the store. Concurrent callers for the same session share one flight.
func (c *Client) refreshAccess(ctx context.Context, sid, refresh string) (string, error) {
	v, err, _ := c.refreshes.Do(sid, func() (interface{}, error) {
		body, _ := json.Marshal(refreshRequest{Refresh: refresh})
		resp, err := c.send(ctx, Request{
			Method:      http.MethodPost,
			Path:        "/auth/token/refresh/",
			Body:        body,
			ContentType: echo.MIMEApplicationJSON,
		}, "")
		if err != nil {
			metrics.TokenRefreshes.WithLabelValues("transport_error").Inc()
			return nil, err
		}
		defer resp.Body.Close()

		switch {
		case resp.StatusCode >= 200 && resp.StatusCode < 300:
			var out refreshResponse
			if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
				return nil, fmt.Errorf("%w: %v", ErrBadPayload, err)
			}
			if err := out.validate(); err != nil {
				return nil, err
			}
			if err := c.staff.UpdateAccessToken(ctx, sid, out.Access); err != nil {
				return nil, fmt.Errorf("store refreshed token: %w", err)
			}
			metrics.TokenRefreshes.WithLabelValues("success").Inc()
			c.log.Debug().Str("session_id", sid).Msg("access token refreshed")
			return out.Access, nil
		case resp.StatusCode >= 400 && resp.StatusCode < 500:
			// The refresh credential itself was rejected: the session is
			// unrecoverable.
			metrics.TokenRefreshes.WithLabelValues("rejected").Inc()
			_ = c.staff.Clear(ctx, sid)
			return nil, ErrUnauthenticated
		default:
			// A backend 5xx is a server fault, not a credential failure,
			// so the session survives.
			metrics.TokenRefreshes.WithLabelValues("transport_error").Inc()
			return nil, fmt.Errorf("refresh endpoint returned status %d", resp.StatusCode)
		}
	})
	if err != nil {
		return "", err
	}
	return v.(string), nil
}

// Login exchanges staff credentials for a token pair and identity.
func (c *Client) Login(ctx context.Context, username, password string) (session.Tokens, session.StaffIdentity, error) {
	body, _ := json.Marshal(loginRequest{Username: username, Password: password})
	resp, err := c.send(ctx, Request{
		Method:      http.MethodPost,
		Path:        "/auth/token/",
		Body:        body,
		ContentType: echo.MIMEApplicationJSON,
	}, "")
	if err != nil {
		return session.Tokens{}, session.StaffIdentity{}, err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusBadRequest {
		return session.Tokens{}, session.StaffIdentity{}, ErrInvalidCredentials
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return session.Tokens{}, session.StaffIdentity{}, fmt.Errorf("login endpoint returned status %d", resp.StatusCode)
	}

	var out loginResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return session.Tokens{}, session.StaffIdentity{}, fmt.Errorf("%w: %v", ErrBadPayload, err)
	}
	if err := out.validate(); err != nil {
		return session.Tokens{}, session.StaffIdentity{}, err
	}
	return session.Tokens{Access: out.Access, Refresh: out.Refresh}, out.User, nil
}

// PatientLogin exchanges a permanent access-key/password pair for a portal
// session payload.
func (c *Client) PatientLogin(ctx context.Context, accessKey, password string) (session.PatientSession, error) {
	body, _ := json.Marshal(patientLoginRequest{AccessKey: accessKey, Password: password})
	resp, err := c.send(ctx, Request{
		Method:      http.MethodPost,
		Path:        "/patients/portal/login/",
		Body:        body,
		ContentType: echo.MIMEApplicationJSON,
	}, "")
	if err != nil {
		return session.PatientSession{}, err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusUnauthorized {
		return session.PatientSession{}, ErrInvalidCredentials
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return session.PatientSession{}, fmt.Errorf("patient login endpoint returned status %d", resp.StatusCode)
	}

	var out patientLoginResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return session.PatientSession{}, fmt.Errorf("%w: %v", ErrBadPayload, err)
	}
	if err := out.validate(); err != nil {
		return session.PatientSession{}, err
	}
	return out.toSession(), nil
}

func (c *Client) send(ctx context.Context, req Request, bearer string) (*http.Response, error) {
	target := c.base.JoinPath(req.Path)
	if len(req.Query) > 0 {
		target.RawQuery = req.Query.Encode()
	}

	var body io.Reader
	if len(req.Body) > 0 {
		body = bytes.NewReader(req.Body)
	}
	httpReq, err := http.NewRequestWithContext(ctx, req.Method, target.String(), body)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	if req.ContentType != "" {
		httpReq.Header.Set(echo.HeaderContentType, req.ContentType)
	}
	if bearer != "" {
		httpReq.Header.Set(echo.HeaderAuthorization, "Bearer "+bearer)
	}

	start := time.Now()
	resp, err := c.http.Do(httpReq)
	metrics.UpstreamDuration.WithLabelValues(req.Method).Observe(time.Since(start).Seconds())
	if err != nil {
		return nil, fmt.Errorf("reach backend: %w", err)
	}
	return resp, nil
}

func drain(resp *http.Response) {
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
	resp.Body.Close()
}

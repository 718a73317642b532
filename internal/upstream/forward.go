package upstream

import (
	"fmt"
	"io"
	"net/http"

	"github.com/labstack/echo/v4"
)

// passthroughHeaders are the upstream response headers worth relaying to the
// browser. Everything else (cookies, server banners) stays behind the
// gateway.
var passthroughHeaders = []string{
	echo.HeaderContentType,
	echo.HeaderContentDisposition,
	echo.HeaderContentLength,
	"Cache-Control",
}

// Forward proxies the incoming request to the given backend path on behalf
// of the staff session and relays the response verbatim, including non-2xx
// statuses: screen-level errors (validation, not-found, server faults) are
// the calling screen's concern, not the gateway's. Only authentication
// failures are intercepted, surfacing as ErrUnauthenticated.
func (c *Client) Forward(ec echo.Context, sid, path string) error {
	req, err := fromEchoContext(ec, path)
	if err != nil {
		return err
	}
	resp, err := c.Do(ec.Request().Context(), sid, req)
	if err != nil {
		return err
	}
	return relay(ec, resp)
}

// ForwardAnon proxies without a bearer token (patient portal downloads).
func (c *Client) ForwardAnon(ec echo.Context, path string) error {
	req, err := fromEchoContext(ec, path)
	if err != nil {
		return err
	}
	resp, err := c.DoAnon(ec.Request().Context(), req)
	if err != nil {
		return err
	}
	return relay(ec, resp)
}

func fromEchoContext(ec echo.Context, path string) (Request, error) {
	httpReq := ec.Request()
	req := Request{
		Method:      httpReq.Method,
		Path:        path,
		Query:       ec.QueryParams(),
		ContentType: httpReq.Header.Get(echo.HeaderContentType),
	}
	if httpReq.Body != nil && httpReq.Body != http.NoBody {
		// Buffered so the request can be replayed after a token refresh.
		// The body-limit middleware bounds the size before we get here.
		body, err := io.ReadAll(httpReq.Body)
		if err != nil {
			return Request{}, fmt.Errorf("read request body: %w", err)
		}
		req.Body = body
	}
	return req, nil
}

func relay(ec echo.Context, resp *http.Response) error {
	defer resp.Body.Close()

	header := ec.Response().Header()
	for _, name := range passthroughHeaders {
		if v := resp.Header.Get(name); v != "" {
			header.Set(name, v)
		}
	}
	ec.Response().WriteHeader(resp.StatusCode)
	_, err := io.Copy(ec.Response(), resp.Body)
	return err
}

package upstream

import "errors"

var (
	// ErrUnauthenticated reports a terminal authentication failure: the
	// backend rejected the credentials and the one-shot refresh protocol
	// could not recover. The staff session has already been cleared by the
	// time callers see this error; the only correct reaction is to drop
	// the cookie and send the user back to login.
	ErrUnauthenticated = errors.New("upstream: unauthenticated")

	// ErrInvalidCredentials reports a rejected login attempt. Unlike
	// ErrUnauthenticated it carries no session side effects.
	ErrInvalidCredentials = errors.New("upstream: invalid credentials")

	// ErrBadPayload reports a backend response that did not match its
	// declared schema. Malformed payloads are rejected at this boundary
	// rather than propagated as partially-filled values.
	ErrBadPayload = errors.New("upstream: malformed response payload")
)

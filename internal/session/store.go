package session

import (
	"context"
	"errors"
)

// ErrNoSession is returned by stores and the resolver when no usable session
// exists for the given id. Malformed stored state is reported the same way:
// the caller can never distinguish "absent" from "corrupt", and corrupt
// state is cleared before this error is returned (fail closed).
var ErrNoSession = errors.New("session: no session")

// errPartialTokens rejects writes that would leave a half-usable session.
var errPartialTokens = errors.New("session: access and refresh token must both be present")

// StaffStore persists staff gateway sessions. Implementations must guarantee
// that Save is atomic from a reader's point of view: a concurrent Load sees
// either the complete previous session or the complete new one, never a
// mixture of tokens and identity from different writes.
type StaffStore interface {
	// Save writes the token pair and identity under id, replacing any
	// previous session with that id. Partial token pairs are rejected.
	Save(ctx context.Context, id string, t Tokens, identity StaffIdentity) error

	// Load returns the session stored under id, or ErrNoSession. A stored
	// session whose identity blob cannot be decoded is cleared and
	// reported as ErrNoSession.
	Load(ctx context.Context, id string) (*StaffSession, error)

	// UpdateAccessToken replaces only the access token after a successful
	// refresh. The refresh token and identity are untouched.
	UpdateAccessToken(ctx context.Context, id, access string) error

	// Clear removes the session. Clearing an absent session is not an error.
	Clear(ctx context.Context, id string) error
}

// PatientStore holds volatile portal sessions. Implementations are expected
// to be process-local; patient sessions intentionally do not survive a
// restart.
type PatientStore interface {
	Save(ctx context.Context, id string, s PatientSession) error
	Load(ctx context.Context, id string) (*PatientSession, error)
	Clear(ctx context.Context, id string) error
}

package auth

import (
	"context"

	"github.com/cimef/portal/internal/session"
)

type contextKey string

const (
	staffIdentityKey  contextKey = "staff_identity"
	staffSessionIDKey contextKey = "staff_session_id"
	patientSessionKey contextKey = "patient_session"
)

// WithStaff returns a context carrying the resolved staff identity and its
// gateway session id.
func WithStaff(ctx context.Context, sid string, identity *session.StaffIdentity) context.Context {
	ctx = context.WithValue(ctx, staffSessionIDKey, sid)
	return context.WithValue(ctx, staffIdentityKey, identity)
}

// WithPatient returns a context carrying the resolved portal session.
func WithPatient(ctx context.Context, sess *session.PatientSession) context.Context {
	return context.WithValue(ctx, patientSessionKey, sess)
}

func StaffFromContext(ctx context.Context) *session.StaffIdentity {
	identity, _ := ctx.Value(staffIdentityKey).(*session.StaffIdentity)
	return identity
}

func SessionIDFromContext(ctx context.Context) string {
	sid, _ := ctx.Value(staffSessionIDKey).(string)
	return sid
}

func PatientFromContext(ctx context.Context) *session.PatientSession {
	sess, _ := ctx.Value(patientSessionKey).(*session.PatientSession)
	return sess
}

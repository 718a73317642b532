package session

import "context"

// Resolver reconstructs the current identity from stored state. Resolution
// is a pure local read: no network call is ever made here, so a stale or
// revoked token still resolves; the first upstream request is what
// invalidates it.
type Resolver struct {
	staff    StaffStore
	patients PatientStore
}

func NewResolver(staff StaffStore, patients PatientStore) *Resolver {
	return &Resolver{staff: staff, patients: patients}
}

// ResolveStaff returns the cached identity for the given session id, or nil
// when no complete session (both tokens plus a decodable identity) exists.
func (r *Resolver) ResolveStaff(ctx context.Context, id string) *StaffIdentity {
	if id == "" {
		return nil
	}
	sess, err := r.staff.Load(ctx, id)
	if err != nil {
		return nil
	}
	identity := sess.Identity
	return &identity
}

// ResolvePatient returns the portal session for the given id, or nil.
func (r *Resolver) ResolvePatient(ctx context.Context, id string) *PatientSession {
	if id == "" {
		return nil
	}
	sess, err := r.patients.Load(ctx, id)
	if err != nil {
		return nil
	}
	return sess
}

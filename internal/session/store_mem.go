package session

import (
	"context"
	"sync"
	"time"
)

// MemStaffStore is an in-memory StaffStore used in tests and in dev mode
// when no database is configured.
type MemStaffStore struct {
	mu       sync.RWMutex
	sessions map[string]StaffSession
}

func NewMemStaffStore() *MemStaffStore {
	return &MemStaffStore{sessions: make(map[string]StaffSession)}
}

func (s *MemStaffStore) Save(_ context.Context, id string, t Tokens, identity StaffIdentity) error {
	if !t.Valid() {
		return errPartialTokens
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	now := time.Now()
	created := now
	if prev, ok := s.sessions[id]; ok {
		created = prev.CreatedAt
	}
	s.sessions[id] = StaffSession{ID: id, Tokens: t, Identity: identity, CreatedAt: created, UpdatedAt: now}
	return nil
}

func (s *MemStaffStore) Load(_ context.Context, id string) (*StaffSession, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sess, ok := s.sessions[id]
	if !ok {
		return nil, ErrNoSession
	}
	out := sess
	return &out, nil
}

func (s *MemStaffStore) UpdateAccessToken(_ context.Context, id, access string) error {
	if access == "" {
		return errPartialTokens
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.sessions[id]
	if !ok {
		return ErrNoSession
	}
	sess.Tokens.Access = access
	sess.UpdatedAt = time.Now()
	s.sessions[id] = sess
	return nil
}

func (s *MemStaffStore) Clear(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, id)
	return nil
}

// MemPatientStore holds portal sessions in memory with a sliding TTL.
// Patient sessions are deliberately volatile: a gateway restart logs every
// patient out, which is acceptable for a read-only results portal.
type MemPatientStore struct {
	mu       sync.RWMutex
	ttl      time.Duration
	sessions map[string]patientEntry
}

type patientEntry struct {
	session  PatientSession
	deadline time.Time
}

func NewMemPatientStore(ttl time.Duration) *MemPatientStore {
	return &MemPatientStore{ttl: ttl, sessions: make(map[string]patientEntry)}
}

func (s *MemPatientStore) Save(_ context.Context, id string, sess PatientSession) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess.ID = id
	if sess.CreatedAt.IsZero() {
		sess.CreatedAt = time.Now()
	}
	s.sessions[id] = patientEntry{session: sess, deadline: time.Now().Add(s.ttl)}
	return nil
}

func (s *MemPatientStore) Load(_ context.Context, id string) (*PatientSession, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	entry, ok := s.sessions[id]
	if !ok {
		return nil, ErrNoSession
	}
	if time.Now().After(entry.deadline) {
		delete(s.sessions, id)
		return nil, ErrNoSession
	}
	// Sliding expiry: active patients stay logged in.
	entry.deadline = time.Now().Add(s.ttl)
	s.sessions[id] = entry
	out := entry.session
	return &out, nil
}

func (s *MemPatientStore) Clear(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, id)
	return nil
}

// PurgeExpired drops sessions past their deadline and returns the count.
func (s *MemPatientStore) PurgeExpired() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := time.Now()
	n := 0
	for id, entry := range s.sessions {
		if now.After(entry.deadline) {
			delete(s.sessions, id)
			n++
		}
	}
	return n
}

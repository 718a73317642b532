package session

import (
	"strings"
	"time"
)

// Staff roles as issued by the backend. Any role outside this set is kept
// verbatim but carries no capabilities.
const (
	RoleSuperuser  = "superuser"
	RoleAdmin      = "admin"
	RoleDoctor     = "doctor"
	RoleSecretary  = "secretary"
	RoleAccountant = "accountant"
)

// StaffIdentity is the backend user object cached alongside the token pair.
// It mirrors the payload returned by the staff login endpoint.
type StaffIdentity struct {
	ID         int64  `json:"id"`
	Username   string `json:"username"`
	Email      string `json:"email,omitempty"`
	FirstName  string `json:"first_name,omitempty"`
	LastName   string `json:"last_name,omitempty"`
	Role       string `json:"role"`
	Department string `json:"department,omitempty"`
	Active     bool   `json:"is_active"`
}

// DisplayName returns the user's full name, falling back to the username.
func (i *StaffIdentity) DisplayName() string {
	name := strings.TrimSpace(i.FirstName + " " + i.LastName)
	if name == "" {
		return i.Username
	}
	return name
}

// IsAdmin reports whether the identity holds one of the two unrestricted roles.
func (i *StaffIdentity) IsAdmin() bool {
	return i.Role == RoleSuperuser || i.Role == RoleAdmin
}

// Tokens is the access/refresh pair issued by the backend. A pair is only
// valid when both halves are present; a partial pair must never be stored.
type Tokens struct {
	Access  string `json:"access"`
	Refresh string `json:"refresh"`
}

// Valid reports whether both tokens are present.
func (t Tokens) Valid() bool {
	return t.Access != "" && t.Refresh != ""
}

// StaffSession is a durable gateway session for a clinic staff member.
type StaffSession struct {
	ID        string
	Tokens    Tokens
	Identity  StaffIdentity
	CreatedAt time.Time
	UpdatedAt time.Time
}

// PatientIdentity identifies the patient behind a portal session.
type PatientIdentity struct {
	ID          int64  `json:"id"`
	FullName    string `json:"full_name"`
	PhoneNumber string `json:"phone_number,omitempty"`
}

// AccessInfo carries usage metadata about the patient's permanent credential.
type AccessInfo struct {
	AccessKey    string     `json:"access_key"`
	IsPermanent  bool       `json:"is_permanent"`
	AccessCount  int        `json:"access_count"`
	LastAccessed *time.Time `json:"last_accessed,omitempty"`
}

// ReportDescriptor describes one downloadable medical report.
type ReportDescriptor struct {
	ID        int64     `json:"id"`
	Filename  string    `json:"filename"`
	CreatedAt time.Time `json:"created_at"`
	IsActive  bool      `json:"is_active"`
}

// PatientSession is a volatile portal session. Unlike StaffSession it is
// never persisted: it lives only as long as the process and the browser's
// session cookie.
type PatientSession struct {
	ID        string             `json:"-"`
	Patient   PatientIdentity    `json:"patient"`
	Access    AccessInfo         `json:"access_info"`
	Reports   []ReportDescriptor `json:"files"`
	CreatedAt time.Time          `json:"-"`
}

// HasReport reports whether the session grants access to the given report.
func (s *PatientSession) HasReport(id int64) bool {
	for _, r := range s.Reports {
		if r.ID == id {
			return true
		}
	}
	return false
}

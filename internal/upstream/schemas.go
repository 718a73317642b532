package upstream

import (
	"fmt"
	"time"

	"github.com/cimef/portal/internal/session"
)

// Response schemas for the handful of backend endpoints the gateway calls
// itself (everything else is proxied byte-for-byte). Payloads are validated
// here so that malformed responses never become half-filled sessions.

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type loginResponse struct {
	Access  string                `json:"access"`
	Refresh string                `json:"refresh"`
	User    session.StaffIdentity `json:"user"`
}

func (r *loginResponse) validate() error {
	if r.Access == "" || r.Refresh == "" {
		return fmt.Errorf("%w: token pair incomplete", ErrBadPayload)
	}
	if r.User.ID <= 0 || r.User.Username == "" {
		return fmt.Errorf("%w: user object incomplete", ErrBadPayload)
	}
	if r.User.Role == "" {
		return fmt.Errorf("%w: user has no role", ErrBadPayload)
	}
	return nil
}

type refreshRequest struct {
	Refresh string `json:"refresh"`
}

type refreshResponse struct {
	Access string `json:"access"`
}

func (r *refreshResponse) validate() error {
	if r.Access == "" {
		return fmt.Errorf("%w: refresh response has no access token", ErrBadPayload)
	}
	return nil
}

type patientLoginRequest struct {
	AccessKey string `json:"access_key"`
	Password  string `json:"password"`
}

type patientLoginResponse struct {
	Success bool `json:"success"`
	Patient struct {
		ID          int64  `json:"id"`
		FullName    string `json:"full_name"`
		PhoneNumber string `json:"phone_number"`
	} `json:"patient"`
	AccessInfo struct {
		AccessKey    string     `json:"access_key"`
		IsPermanent  bool       `json:"is_permanent"`
		AccessCount  int        `json:"access_count"`
		LastAccessed *time.Time `json:"last_accessed"`
	} `json:"access_info"`
	Files []struct {
		ID        int64     `json:"id"`
		Filename  string    `json:"filename"`
		CreatedAt time.Time `json:"created_at"`
		IsActive  bool      `json:"is_active"`
	} `json:"files"`
}

func (r *patientLoginResponse) validate() error {
	if !r.Success {
		return fmt.Errorf("%w: success flag not set", ErrBadPayload)
	}
	if r.Patient.ID <= 0 || r.Patient.FullName == "" {
		return fmt.Errorf("%w: patient object incomplete", ErrBadPayload)
	}
	return nil
}

func (r *patientLoginResponse) toSession() session.PatientSession {
	s := session.PatientSession{
		Patient: session.PatientIdentity{
			ID:          r.Patient.ID,
			FullName:    r.Patient.FullName,
			PhoneNumber: r.Patient.PhoneNumber,
		},
		Access: session.AccessInfo{
			AccessKey:    r.AccessInfo.AccessKey,
			IsPermanent:  r.AccessInfo.IsPermanent,
			AccessCount:  r.AccessInfo.AccessCount,
			LastAccessed: r.AccessInfo.LastAccessed,
		},
	}
	for _, f := range r.Files {
		s.Reports = append(s.Reports, session.ReportDescriptor{
			ID:        f.ID,
			Filename:  f.Filename,
			CreatedAt: f.CreatedAt,
			IsActive:  f.IsActive,
		})
	}
	return s
}

package auth

import (
	"net/http"
	"time"
)

// CookieConfig describes the two session cookies. The staff cookie is
// persistent so a staff session survives a browser restart; the patient
// cookie deliberately carries no Max-Age, scoping the portal session to the
// browser session.
type CookieConfig struct {
	StaffName   string
	PatientName string
	StaffMaxAge time.Duration
	Secure      bool
}

func (cc CookieConfig) Staff(sid string) *http.Cookie {
	return &http.Cookie{
		Name:     cc.StaffName,
		Value:    sid,
		Path:     "/",
		MaxAge:   int(cc.StaffMaxAge.Seconds()),
		HttpOnly: true,
		Secure:   cc.Secure,
		SameSite: http.SameSiteLaxMode,
	}
}

func (cc CookieConfig) Patient(sid string) *http.Cookie {
	return &http.Cookie{
		Name:     cc.PatientName,
		Value:    sid,
		Path:     "/",
		HttpOnly: true,
		Secure:   cc.Secure,
		SameSite: http.SameSiteLaxMode,
	}
}

func (cc CookieConfig) ExpireStaff() *http.Cookie {
	return expired(cc.StaffName, cc.Secure)
}

func (cc CookieConfig) ExpirePatient() *http.Cookie {
	return expired(cc.PatientName, cc.Secure)
}

func expired(name string, secure bool) *http.Cookie {
	return &http.Cookie{
		Name:     name,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteLaxMode,
	}
}

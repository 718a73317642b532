package auth

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/cimef/portal/internal/session"
)

func testGuard(t *testing.T) (*Guard, *session.MemStaffStore, *session.MemPatientStore) {
	t.Helper()
	staff := session.NewMemStaffStore()
	patients := session.NewMemPatientStore(time.Hour)
	resolver := session.NewResolver(staff, patients)
	cookies := CookieConfig{
		StaffName:   "staff_session",
		PatientName: "patient_session",
		StaffMaxAge: 24 * time.Hour,
	}
	return NewGuard(resolver, cookies, "/login", "/patient"), staff, patients
}

func seedStaff(t *testing.T, store *session.MemStaffStore, sid, role string) {
	t.Helper()
	err := store.Save(context.Background(), sid,
		session.Tokens{Access: "a", Refresh: "r"},
		session.StaffIdentity{ID: 7, Username: "marie", Role: role, Active: true})
	if err != nil {
		t.Fatalf("seed staff session: %v", err)
	}
}

func newGuardContext(method, target string, cookies ...*http.Cookie) (echo.Context, *httptest.ResponseRecorder) {
	e := echo.New()
	req := httptest.NewRequest(method, target, nil)
	req.Header.Set(echo.HeaderAccept, echo.MIMETextHTML)
	for _, ck := range cookies {
		req.AddCookie(ck)
	}
	rec := httptest.NewRecorder()
	return e.NewContext(req, rec), rec
}

func okHandler(c echo.Context) error {
	return c.String(http.StatusOK, "ok")
}

func TestRequireStaff_Granted(t *testing.T) {
	guard, staff, _ := testGuard(t)
	seedStaff(t, staff, "sid-1", session.RoleSecretary)

	var seen *session.StaffIdentity
	handler := func(c echo.Context) error {
		seen = StaffFromContext(c.Request().Context())
		if SessionIDFromContext(c.Request().Context()) != "sid-1" {
			t.Error("session id missing from context")
		}
		return okHandler(c)
	}

	c, rec := newGuardContext(http.MethodGet, "/invoices", &http.Cookie{Name: "staff_session", Value: "sid-1"})
	if err := guard.RequireStaff(CapInvoices)(handler)(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", rec.Code)
	}
	if seen == nil || seen.Username != "marie" {
		t.Errorf("identity not propagated, got %+v", seen)
	}
}

func TestRequireStaff_Forbidden_NoRedirect(t *testing.T) {
	guard, staff, _ := testGuard(t)
	seedStaff(t, staff, "sid-1", session.RoleSecretary)

	c, rec := newGuardContext(http.MethodGet, "/invoices/full", &http.Cookie{Name: "staff_session", Value: "sid-1"})
	if err := guard.RequireStaff(CapInvoicesFull)(okHandler)(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.Code != http.StatusForbidden {
		t.Errorf("expected 403, got %d", rec.Code)
	}
	if loc := rec.Header().Get(echo.HeaderLocation); loc != "" {
		t.Errorf("forbidden must not redirect, got Location %q", loc)
	}
	if !strings.Contains(rec.Body.String(), CapInvoicesFull) {
		t.Errorf("forbidden body should name the capability: %s", rec.Body.String())
	}
}

func TestRequireStaff_Unauthenticated_RedirectPreservesNext(t *testing.T) {
	guard, _, _ := testGuard(t)

	c, rec := newGuardContext(http.MethodGet, "/patients?page=2")
	if err := guard.RequireStaff(CapPatients)(okHandler)(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.Code != http.StatusFound {
		t.Fatalf("expected 302, got %d", rec.Code)
	}
	loc, err := url.Parse(rec.Header().Get(echo.HeaderLocation))
	if err != nil {
		t.Fatalf("parse redirect location: %v", err)
	}
	if loc.Path != "/login" {
		t.Errorf("expected redirect to /login, got %s", loc.Path)
	}
	if next := loc.Query().Get("next"); next != "/patients?page=2" {
		t.Errorf("original location not preserved, next=%q", next)
	}
}

func TestRequireStaff_Unauthenticated_JSONForAPIClients(t *testing.T) {
	guard, _, _ := testGuard(t)

	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/patients", nil)
	req.Header.Set(echo.HeaderAccept, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	if err := guard.RequireStaff(CapPatients)(okHandler)(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("expected 401, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "/login") {
		t.Errorf("401 body should carry the login target: %s", rec.Body.String())
	}
}

func TestRequireStaff_MalformedCookieClearsIt(t *testing.T) {
	guard, _, _ := testGuard(t)

	c, rec := newGuardContext(http.MethodGet, "/patients", &http.Cookie{Name: "staff_session", Value: "no-such-session"})
	if err := guard.RequireStaff(CapPatients)(okHandler)(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	found := false
	for _, ck := range rec.Result().Cookies() {
		if ck.Name == "staff_session" && ck.MaxAge < 0 {
			found = true
		}
	}
	if !found {
		t.Error("stale staff cookie should be expired on the unauthenticated outcome")
	}
}

func TestGuard_IdentityKindsAreIsolated(t *testing.T) {
	guard, staff, patients := testGuard(t)
	seedStaff(t, staff, "sid-1", session.RoleAdmin)
	err := patients.Save(context.Background(), "pid-1", session.PatientSession{
		Patient: session.PatientIdentity{ID: 3, FullName: "Awa Diop"},
	})
	if err != nil {
		t.Fatalf("seed patient session: %v", err)
	}

	// A portal session grants nothing on staff routes.
	c, rec := newGuardContext(http.MethodGet, "/patients", &http.Cookie{Name: "patient_session", Value: "pid-1"})
	if err := guard.RequireStaff(CapPatients)(okHandler)(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.Code != http.StatusFound {
		t.Errorf("patient cookie on staff route: expected 302 to login, got %d", rec.Code)
	}

	// A staff session grants nothing on portal routes.
	c, rec = newGuardContext(http.MethodGet, "/portal/reports", &http.Cookie{Name: "staff_session", Value: "sid-1"})
	if err := guard.RequirePatient()(okHandler)(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.Code != http.StatusFound {
		t.Errorf("staff cookie on portal route: expected 302 to portal login, got %d", rec.Code)
	}
}

func TestRequirePatient_Granted(t *testing.T) {
	guard, _, patients := testGuard(t)
	err := patients.Save(context.Background(), "pid-1", session.PatientSession{
		Patient: session.PatientIdentity{ID: 3, FullName: "Awa Diop"},
		Reports: []session.ReportDescriptor{{ID: 11, Filename: "scan.pdf"}},
	})
	if err != nil {
		t.Fatalf("seed patient session: %v", err)
	}

	handler := func(c echo.Context) error {
		sess := PatientFromContext(c.Request().Context())
		if sess == nil || sess.Patient.FullName != "Awa Diop" {
			t.Errorf("patient session not propagated: %+v", sess)
		}
		return okHandler(c)
	}

	c, rec := newGuardContext(http.MethodGet, "/portal/session", &http.Cookie{Name: "patient_session", Value: "pid-1"})
	if err := guard.RequirePatient()(handler)(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", rec.Code)
	}
}

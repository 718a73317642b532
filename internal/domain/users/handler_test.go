package users

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/cimef/portal/internal/platform/auth"
	"github.com/cimef/portal/internal/session"
	"github.com/cimef/portal/internal/upstream"
)

func newTestServer(t *testing.T) (*echo.Echo, *session.MemStaffStore) {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]string{"path": r.URL.Path, "method": r.Method})
	})
	backend := httptest.NewServer(mux)
	t.Cleanup(backend.Close)

	staff := session.NewMemStaffStore()
	client, err := upstream.New(backend.URL, 5*time.Second, staff, zerolog.Nop())
	if err != nil {
		t.Fatalf("new client: %v", err)
	}
	cookies := auth.CookieConfig{StaffName: "staff_session", PatientName: "patient_session", StaffMaxAge: time.Hour}
	guard := auth.NewGuard(session.NewResolver(staff, session.NewMemPatientStore(time.Minute)), cookies, "/login", "/patient")

	e := echo.New()
	NewHandler(client, guard).RegisterRoutes(e.Group("/api"))
	return e, staff
}

func seedStaff(t *testing.T, store *session.MemStaffStore, sid, role string) {
	t.Helper()
	err := store.Save(context.Background(), sid,
		session.Tokens{Access: "a", Refresh: "r"},
		session.StaffIdentity{ID: 1, Username: "u", Role: role})
	if err != nil {
		t.Fatalf("seed staff: %v", err)
	}
}

func doReq(e *echo.Echo, method, target, sid string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, nil)
	if sid != "" {
		req.AddCookie(&http.Cookie{Name: "staff_session", Value: sid})
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func TestAdmin_ManagesStaffAccounts(t *testing.T) {
	e, store := newTestServer(t)
	seedStaff(t, store, "sid", session.RoleAdmin)

	// Staff accounts live under the backend's auth app, not a users app.
	for _, tc := range []struct{ method, target, wantPath string }{
		{http.MethodGet, "/api/users", "/auth/users/"},
		{http.MethodPost, "/api/users", "/auth/users/"},
		{http.MethodPut, "/api/users/9", "/auth/users/9/"},
		{http.MethodDelete, "/api/users/9", "/auth/users/9/"},
	} {
		rec := doReq(e, tc.method, tc.target, "sid")
		if rec.Code != http.StatusOK {
			t.Errorf("%s %s: expected 200, got %d", tc.method, tc.target, rec.Code)
			continue
		}
		var body map[string]string
		json.Unmarshal(rec.Body.Bytes(), &body)
		if body["path"] != tc.wantPath {
			t.Errorf("%s %s: backend saw %v, want %s", tc.method, tc.target, body, tc.wantPath)
		}
	}
}

func TestSecretary_NoAccountAdministration(t *testing.T) {
	e, store := newTestServer(t)
	seedStaff(t, store, "sid", session.RoleSecretary)

	rec := doReq(e, http.MethodGet, "/api/users", "sid")
	if rec.Code != http.StatusForbidden {
		t.Fatalf("secretary must not manage accounts, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), auth.CapUsers) {
		t.Errorf("denial must name the missing capability: %s", rec.Body.String())
	}
}

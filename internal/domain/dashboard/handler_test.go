package dashboard

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

func TestStatsPath(t *testing.T) {
	cases := []struct {
		role string
		want string
	}{
		{session.RoleSuperuser, "/auth/admin-stats/"},
		{session.RoleAdmin, "/auth/admin-stats/"},
		{session.RoleSecretary, "/auth/secretary-stats/"},
		{session.RoleDoctor, "/auth/doctor-stats/"},
		{session.RoleAccountant, "/auth/accountant-stats/"},
		{"intern", ""},
		{"", ""},
	}
	for _, tc := range cases {
		if got := statsPath(tc.role); got != tc.want {
			t.Errorf("statsPath(%q) = %q, want %q", tc.role, got, tc.want)
		}
	}
}

func TestStats_DispatchesByRole(t *testing.T) {
	var hits []string
	mux := http.NewServeMux()
	mux.HandleFunc("/auth/", func(w http.ResponseWriter, r *http.Request) {
		hits = append(hits, r.URL.Path)
		json.NewEncoder(w).Encode(map[string]int{"patients_today": 12})
	})
	backend := httptest.NewServer(mux)
	defer backend.Close()

	staff := session.NewMemStaffStore()
	staff.Save(context.Background(), "sid",
		session.Tokens{Access: "a", Refresh: "r"},
		session.StaffIdentity{ID: 1, Username: "u", Role: session.RoleSecretary})
	client, err := upstream.New(backend.URL, 5*time.Second, staff, zerolog.Nop())
	if err != nil {
		t.Fatalf("new client: %v", err)
	}
	cookies := auth.CookieConfig{StaffName: "staff_session", PatientName: "patient_session", StaffMaxAge: time.Hour}
	guard := auth.NewGuard(session.NewResolver(staff, session.NewMemPatientStore(time.Minute)), cookies, "/login", "/patient")
	h := NewHandler(client, guard)

	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/api/dashboard/stats", nil)
	identity := &session.StaffIdentity{ID: 1, Username: "u", Role: session.RoleSecretary}
	req = req.WithContext(auth.WithStaff(req.Context(), "sid", identity))
	rec := httptest.NewRecorder()

	if err := h.Stats(e.NewContext(req, rec)); err != nil {
		t.Fatalf("stats: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if len(hits) != 1 || hits[0] != "/auth/secretary-stats/" {
		t.Errorf("expected the secretary endpoint, backend saw %v", hits)
	}
	if !strings.Contains(rec.Body.String(), "patients_today") {
		t.Errorf("stats payload not relayed: %s", rec.Body.String())
	}
}

func TestStats_UnknownRole(t *testing.T) {
	staff := session.NewMemStaffStore()
	client, err := upstream.New("http://backend.invalid", 5*time.Second, staff, zerolog.Nop())
	if err != nil {
		t.Fatalf("new client: %v", err)
	}
	cookies := auth.CookieConfig{StaffName: "staff_session", PatientName: "patient_session", StaffMaxAge: time.Hour}
	guard := auth.NewGuard(session.NewResolver(staff, session.NewMemPatientStore(time.Minute)), cookies, "/login", "/patient")
	h := NewHandler(client, guard)

	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/api/dashboard/stats", nil)
	identity := &session.StaffIdentity{ID: 1, Username: "u", Role: "intern"}
	req = req.WithContext(auth.WithStaff(req.Context(), "sid", identity))
	rec := httptest.NewRecorder()

	errStats := h.Stats(e.NewContext(req, rec))
	httpErr, ok := errStats.(*echo.HTTPError)
	if !ok || httpErr.Code != http.StatusForbidden {
		t.Fatalf("expected a 403 error, got %v", errStats)
	}
}

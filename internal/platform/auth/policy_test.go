package auth

import (
	"testing"

	"github.com/cimef/portal/internal/session"
)

func staff(role string) *session.StaffIdentity {
	return &session.StaffIdentity{ID: 1, Username: "u", Role: role, Active: true}
}

func TestHasCapability_Table(t *testing.T) {
	tests := []struct {
		role       string
		capability string
		want       bool
	}{
		{session.RoleDoctor, CapPatients, true},
		{session.RoleDoctor, CapExams, true},
		{session.RoleDoctor, CapReports, true},
		{session.RoleDoctor, CapUsers, false},
		{session.RoleDoctor, CapInvoices, false},
		{session.RoleDoctor, CapPayments, false},
		{session.RoleSecretary, CapPatients, true},
		{session.RoleSecretary, CapAppointments, true},
		{session.RoleSecretary, CapInvoices, true},
		{session.RoleSecretary, CapInvoicesFull, false},
		{session.RoleSecretary, CapPayments, false},
		{session.RoleSecretary, CapUsers, false},
		{session.RoleAccountant, CapInvoices, true},
		{session.RoleAccountant, CapInvoicesFull, true},
		{session.RoleAccountant, CapPayments, true},
		{session.RoleAccountant, CapPatients, false},
		{session.RoleAccountant, CapReports, false},
	}

	for _, tt := range tests {
		got := HasCapability(staff(tt.role), tt.capability)
		if got != tt.want {
			t.Errorf("HasCapability(%s, %s) = %v, want %v", tt.role, tt.capability, got, tt.want)
		}
	}
}

func TestHasCapability_AdminBypass(t *testing.T) {
	caps := []string{CapPatients, CapInvoicesFull, CapUsers, "made_up_capability", ""}
	for _, role := range []string{session.RoleSuperuser, session.RoleAdmin} {
		for _, capability := range caps {
			if !HasCapability(staff(role), capability) {
				t.Errorf("HasCapability(%s, %q) = false, want unconditional true", role, capability)
			}
		}
	}
}

func TestHasCapability_UnknownRoleAndNil(t *testing.T) {
	if HasCapability(staff("intern"), CapPatients) {
		t.Error("unknown role must have no capabilities")
	}
	if HasCapability(staff(""), CapPatients) {
		t.Error("empty role must have no capabilities")
	}
	if HasCapability(nil, CapPatients) {
		t.Error("nil identity must have no capabilities")
	}
}

func TestHasCapability_Deterministic(t *testing.T) {
	identity := staff(session.RoleDoctor)
	first := HasCapability(identity, CapPatients)
	for i := 0; i < 100; i++ {
		if HasCapability(identity, CapPatients) != first {
			t.Fatal("HasCapability must return the same result on every call")
		}
	}
	if identity.Role != session.RoleDoctor {
		t.Error("HasCapability must not mutate the identity")
	}
}

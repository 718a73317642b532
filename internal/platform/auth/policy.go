// Package auth holds the gateway's authorization policy and route guard.
// The policy is a pure lookup with no I/O; the guard composes it with the
// session resolver to gate route groups.
package auth

import "github.com/cimef/portal/internal/session"

// Capabilities declared by guarded route groups. A group that declares no
// capability is open to any authenticated staff identity.
const (
	CapPatients     = "patients"
	CapAppointments = "appointments"
	CapInvoices     = "invoices"
	CapInvoicesFull = "invoices_full"
	CapPayments     = "payments"
	CapExams        = "exams"
	CapReports      = "reports"
	CapUsers        = "users"
)

// roleCapabilities is the fixed role → capability table. Superuser and
// admin are handled before the lookup and never appear here; a role missing
// from the table has no capabilities at all.
var roleCapabilities = map[string]map[string]bool{
	session.RoleDoctor: {
		CapPatients: true,
		CapExams:    true,
		CapReports:  true,
	},
	session.RoleSecretary: {
		CapPatients:     true,
		CapAppointments: true,
		CapInvoices:     true,
		CapExams:        true,
		CapReports:      true,
	},
	session.RoleAccountant: {
		CapInvoices:     true,
		CapInvoicesFull: true,
		CapPayments:     true,
	},
}

// HasCapability reports whether the identity may exercise the capability.
// Superuser and admin pass unconditionally, including for capability names
// that exist nowhere in the table. A nil identity or unknown role always
// fails.
func HasCapability(identity *session.StaffIdentity, capability string) bool {
	if identity == nil {
		return false
	}
	if identity.IsAdmin() {
		return true
	}
	return roleCapabilities[identity.Role][capability]
}

package policy

import "github.com/LPredmore/lh-ehr/pkg/types"

// Principal is the resolved identity every policy decision is made against.
// It is always passed explicitly - no policy function reads caller identity
// from ambient state. UserID is set when the caller matches a User row;
// PatientID when the caller matches a Patient row. A portal-only patient has
// a PatientID and no UserID.
type Principal struct {
	UserID    string
	PatientID string
	Role      types.UserRole
}

// Authenticated reports whether the principal resolved to any identity row.
func (p Principal) Authenticated() bool {
	return p.UserID != "" || p.PatientID != ""
}

// IsAdmin reports whether the principal holds the admin role.
func (p Principal) IsAdmin() bool {
	return p.UserID != "" && p.Role == types.RoleAdmin
}

// IsProvider reports whether the principal holds the provider role.
func (p Principal) IsProvider() bool {
	return p.UserID != "" && p.Role == types.RoleProvider
}

// IsStaff reports whether the principal holds the staff role.
func (p Principal) IsStaff() bool {
	return p.UserID != "" && p.Role == types.RoleStaff
}

// IsPatient reports whether the principal acts with patient capability.
func (p Principal) IsPatient() bool {
	return p.Role == types.RolePatient && p.PatientID != ""
}

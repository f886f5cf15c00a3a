package types

import "time"

// UserRole represents the different user roles in the system
type UserRole string

const (
	RoleAdmin    UserRole = "admin"
	RoleProvider UserRole = "provider"
	RoleStaff    UserRole = "staff"
	RolePatient  UserRole = "patient"
)

// ValidRoles lists every role the system recognizes
var ValidRoles = []UserRole{RoleAdmin, RoleProvider, RoleStaff, RolePatient}

// IsValid reports whether the role is one of the recognized roles
func (r UserRole) IsValid() bool {
	switch r {
	case RoleAdmin, RoleProvider, RoleStaff, RolePatient:
		return true
	}
	return false
}

// User represents a system user. AuthRef is the stable identifier issued by
// the external identity provider; it is unique per user. Role is immutable
// after creation - there is no role-change operation in this model.
type User struct {
	ID            string    `json:"id" db:"id"`
	AuthRef       string    `json:"auth_ref" db:"auth_ref"`
	Role          UserRole  `json:"role" db:"role"`
	FirstName     string    `json:"first_name" db:"first_name"`
	LastName      string    `json:"last_name" db:"last_name"`
	Email         string    `json:"email" db:"email"`
	Phone         string    `json:"phone" db:"phone"`
	Specialty     string    `json:"specialty,omitempty" db:"specialty"`
	LicenseNumber string    `json:"license_number,omitempty" db:"license_number"`
	IsActive      bool      `json:"is_active" db:"is_active"`
	CreatedAt     time.Time `json:"created_at" db:"created_at"`
	UpdatedAt     time.Time `json:"updated_at" db:"updated_at"`
}

// UserUpdates represents updates to user information. Role is carried so that
// an attempted role change can be rejected explicitly rather than silently
// dropped.
type UserUpdates struct {
	FirstName *string   `json:"first_name,omitempty"`
	LastName  *string   `json:"last_name,omitempty"`
	Email     *string   `json:"email,omitempty"`
	Phone     *string   `json:"phone,omitempty"`
	Specialty *string   `json:"specialty,omitempty"`
	IsActive  *bool     `json:"is_active,omitempty"`
	Role      *UserRole `json:"role,omitempty"`
}

// AuditFields returns the persistable fields of the user for audit diffing.
func (u *User) AuditFields() map[string]interface{} {
	return map[string]interface{}{
		"auth_ref":       u.AuthRef,
		"role":           string(u.Role),
		"first_name":     u.FirstName,
		"last_name":      u.LastName,
		"email":          u.Email,
		"phone":          u.Phone,
		"specialty":      u.Specialty,
		"license_number": u.LicenseNumber,
		"is_active":      u.IsActive,
		"created_at":     u.CreatedAt,
		"updated_at":     u.UpdatedAt,
	}
}

package types

import "time"

// Patient represents a patient record. AuthRef is empty until portal access
// is granted - a patient record may exist without a login. PrimaryProviderID
// references the User (role=provider) that owns the patient's care; it
// determines provider ownership for all clinical sub-resources unless a
// sub-resource carries its own provider_id.
type Patient struct {
	ID                    string    `json:"id" db:"id"`
	MRN                   string    `json:"mrn" db:"mrn"`
	AuthRef               string    `json:"auth_ref,omitempty" db:"auth_ref"`
	PrimaryProviderID     string    `json:"primary_provider_id" db:"primary_provider_id"`
	FirstName             string    `json:"first_name" db:"first_name"`
	LastName              string    `json:"last_name" db:"last_name"`
	DateOfBirth           time.Time `json:"date_of_birth" db:"date_of_birth"`
	Gender                string    `json:"gender" db:"gender"`
	Phone                 string    `json:"phone" db:"phone"`
	Email                 string    `json:"email" db:"email"`
	Street                string    `json:"street" db:"street"`
	City                  string    `json:"city" db:"city"`
	State                 string    `json:"state" db:"state"`
	PostalCode            string    `json:"postal_code" db:"postal_code"`
	EmergencyContactName  string    `json:"emergency_contact_name" db:"emergency_contact_name"`
	EmergencyContactPhone string    `json:"emergency_contact_phone" db:"emergency_contact_phone"`
	InsuranceProvider     string    `json:"insurance_provider" db:"insurance_provider"`
	InsurancePolicyNumber string    `json:"insurance_policy_number" db:"insurance_policy_number"`
	ReferralSource        string    `json:"referral_source" db:"referral_source"`
	IntakeNotes           string    `json:"intake_notes" db:"intake_notes"`
	IsActive              bool      `json:"is_active" db:"is_active"`
	CreatedAt             time.Time `json:"created_at" db:"created_at"`
	UpdatedAt             time.Time `json:"updated_at" db:"updated_at"`
}

// PatientUpdates represents updates to patient information.
type PatientUpdates struct {
	PrimaryProviderID     *string    `json:"primary_provider_id,omitempty"`
	FirstName             *string    `json:"first_name,omitempty"`
	LastName              *string    `json:"last_name,omitempty"`
	DateOfBirth           *time.Time `json:"date_of_birth,omitempty"`
	Gender                *string    `json:"gender,omitempty"`
	Phone                 *string    `json:"phone,omitempty"`
	Email                 *string    `json:"email,omitempty"`
	Street                *string    `json:"street,omitempty"`
	City                  *string    `json:"city,omitempty"`
	State                 *string    `json:"state,omitempty"`
	PostalCode            *string    `json:"postal_code,omitempty"`
	EmergencyContactName  *string    `json:"emergency_contact_name,omitempty"`
	EmergencyContactPhone *string    `json:"emergency_contact_phone,omitempty"`
	InsuranceProvider     *string    `json:"insurance_provider,omitempty"`
	InsurancePolicyNumber *string    `json:"insurance_policy_number,omitempty"`
	ReferralSource        *string    `json:"referral_source,omitempty"`
	IntakeNotes           *string    `json:"intake_notes,omitempty"`
	IsActive              *bool      `json:"is_active,omitempty"`
}

// TouchedFields returns the set of column names this update carries a value
// for. Used to enforce per-field write restrictions before applying the update.
func (u *PatientUpdates) TouchedFields() map[string]bool {
	touched := make(map[string]bool)
	mark := func(field string, set bool) {
		if set {
			touched[field] = true
		}
	}
	mark("primary_provider_id", u.PrimaryProviderID != nil)
	mark("first_name", u.FirstName != nil)
	mark("last_name", u.LastName != nil)
	mark("date_of_birth", u.DateOfBirth != nil)
	mark("gender", u.Gender != nil)
	mark("phone", u.Phone != nil)
	mark("email", u.Email != nil)
	mark("street", u.Street != nil)
	mark("city", u.City != nil)
	mark("state", u.State != nil)
	mark("postal_code", u.PostalCode != nil)
	mark("emergency_contact_name", u.EmergencyContactName != nil)
	mark("emergency_contact_phone", u.EmergencyContactPhone != nil)
	mark("insurance_provider", u.InsuranceProvider != nil)
	mark("insurance_policy_number", u.InsurancePolicyNumber != nil)
	mark("referral_source", u.ReferralSource != nil)
	mark("intake_notes", u.IntakeNotes != nil)
	mark("is_active", u.IsActive != nil)
	return touched
}

// AuditFields returns the persistable fields of the patient for audit diffing.
func (p *Patient) AuditFields() map[string]interface{} {
	return map[string]interface{}{
		"mrn":                     p.MRN,
		"auth_ref":                p.AuthRef,
		"primary_provider_id":     p.PrimaryProviderID,
		"first_name":              p.FirstName,
		"last_name":               p.LastName,
		"date_of_birth":           p.DateOfBirth,
		"gender":                  p.Gender,
		"phone":                   p.Phone,
		"email":                   p.Email,
		"street":                  p.Street,
		"city":                    p.City,
		"state":                   p.State,
		"postal_code":             p.PostalCode,
		"emergency_contact_name":  p.EmergencyContactName,
		"emergency_contact_phone": p.EmergencyContactPhone,
		"insurance_provider":      p.InsuranceProvider,
		"insurance_policy_number": p.InsurancePolicyNumber,
		"referral_source":         p.ReferralSource,
		"intake_notes":            p.IntakeNotes,
		"is_active":               p.IsActive,
		"created_at":              p.CreatedAt,
		"updated_at":              p.UpdatedAt,
	}
}

// PatientSummary is a read-only aggregation over a patient's chart, consumed
// by caseload displays. It is assembled only after the caller has been
// authorized to read the patient.
type PatientSummary struct {
	Patient           *Patient      `json:"patient"`
	LastAppointment   *Appointment  `json:"last_appointment,omitempty"`
	NextAppointment   *Appointment  `json:"next_appointment,omitempty"`
	ActiveMedications []*Medication `json:"active_medications"`
	RecentAssessments []*Assessment `json:"recent_assessments"`
	LatestCarePlan    *CarePlan     `json:"latest_care_plan,omitempty"`
}

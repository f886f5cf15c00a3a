package policy

import "github.com/LPredmore/lh-ehr/pkg/types"

// Operation is a CRUD operation the engine decides on.
type Operation string

const (
	OpCreate Operation = "create"
	OpRead   Operation = "read"
	OpUpdate Operation = "update"
	OpDelete Operation = "delete"
)

// ResourceType identifies the kind of row a decision concerns.
type ResourceType string

const (
	ResourceUser         ResourceType = "users"
	ResourcePatient      ResourceType = "patients"
	ResourceAppointment  ResourceType = "appointments"
	ResourceClinicalNote ResourceType = "clinical_notes"
	ResourceCarePlan     ResourceType = "care_plans"
	ResourceMedication   ResourceType = "medications"
	ResourceAssessment   ResourceType = "assessments"
	ResourceAuditRecord  ResourceType = "audit_records"
)

// Snapshot is the row state a decision is evaluated against: the existing row
// for read/update/delete, the proposed row for create. The caller resolves
// the relational facts (primary provider, shared-care linkage) inside the
// same transaction as the guarded write, so the engine itself stays pure.
type Snapshot struct {
	Type ResourceType
	ID   string

	// Ownership references carried by clinical rows.
	PatientID  string
	ProviderID string

	// PrimaryProviderID is the assigned provider of the row's patient,
	// resolved by the caller. Empty when unknown or not applicable.
	PrimaryProviderID string

	// SharedWithProvider is true when the acting provider shares any
	// appointment, note, plan, medication or assessment with the row's
	// patient. Only meaningful for provider principals.
	SharedWithProvider bool

	// Target identity for user rows.
	TargetUserID string
	TargetRole   types.UserRole

	// Clinical note state bits.
	IsSigned bool
	IsLocked bool
}

// Decision is the outcome of a policy evaluation. Conflict marks a denial
// caused by a state invariant (locked note) rather than an authorization gap.
type Decision struct {
	Allowed  bool
	Reason   string
	Conflict bool
}

func allow(reason string) *Decision {
	return &Decision{Allowed: true, Reason: reason}
}

func deny(reason string) *Decision {
	return &Decision{Allowed: false, Reason: reason}
}

func conflict(reason string) *Decision {
	return &Decision{Allowed: false, Reason: reason, Conflict: true}
}

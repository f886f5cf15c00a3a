package records

import (
	"context"
	"time"

	"github.com/LPredmore/lh-ehr/pkg/types"
)

// Store is the persistence boundary of the records service. All guarded
// mutations run through Transact so row loads, policy snapshots, writes and
// audit entries share one transaction. The standalone methods serve callers
// that live outside a request transaction: the identity resolver and the note
// lock sweep.
type Store interface {
	// Transact runs fn inside a transaction, committing when fn returns nil
	// and rolling back otherwise.
	Transact(ctx context.Context, fn func(tx Tx) error) error

	// FindUserByAuthRef and FindPatientByAuthRef back the identity resolver.
	// Both return (nil, nil) when no row matches.
	FindUserByAuthRef(ctx context.Context, authRef string) (*types.User, error)
	FindPatientByAuthRef(ctx context.Context, authRef string) (*types.Patient, error)

	// LockOverdueNotes backs the scheduled lock sweep. It locks every signed,
	// unlocked note whose signed_at is before the cutoff and writes a
	// system-attributed audit record per locked note, all in one transaction.
	LockOverdueNotes(ctx context.Context, signedBefore time.Time) (int, error)
}

// Tx exposes the row operations available inside a transaction. Get methods
// return (nil, nil) when the row is absent so the service can collapse
// absence and policy denial into the same not-found answer.
type Tx interface {
	// Users
	InsertUser(ctx context.Context, user *types.User) error
	GetUser(ctx context.Context, id string) (*types.User, error)
	ListUsers(ctx context.Context, roles []types.UserRole) ([]*types.User, error)
	UpdateUser(ctx context.Context, user *types.User) error
	DeleteUser(ctx context.Context, id string) error

	// Patients
	InsertPatient(ctx context.Context, patient *types.Patient) error
	GetPatient(ctx context.Context, id string) (*types.Patient, error)
	ListPatients(ctx context.Context) ([]*types.Patient, error)
	ListPatientsForProvider(ctx context.Context, providerID string) ([]*types.Patient, error)
	UpdatePatient(ctx context.Context, patient *types.Patient) error
	DeletePatient(ctx context.Context, id string) error

	// HasSharedCare reports whether the provider shares any clinical record
	// (appointment, note, care plan, medication or assessment) with the
	// patient. With primary assignment this defines the caseload.
	HasSharedCare(ctx context.Context, providerID, patientID string) (bool, error)

	// Appointments
	InsertAppointment(ctx context.Context, appt *types.Appointment) error
	GetAppointment(ctx context.Context, id string) (*types.Appointment, error)
	ListAppointments(ctx context.Context, filters *types.AppointmentFilters) ([]*types.Appointment, error)
	UpdateAppointment(ctx context.Context, appt *types.Appointment) error
	DeleteAppointment(ctx context.Context, id string) error

	// Clinical notes
	InsertClinicalNote(ctx context.Context, note *types.ClinicalNote) error
	GetClinicalNote(ctx context.Context, id string) (*types.ClinicalNote, error)
	ListClinicalNotes(ctx context.Context, patientID string) ([]*types.ClinicalNote, error)
	UpdateClinicalNote(ctx context.Context, note *types.ClinicalNote) error
	DeleteClinicalNote(ctx context.Context, id string) error
	HasNoteForAppointment(ctx context.Context, appointmentID string) (bool, error)

	// Care plans
	InsertCarePlan(ctx context.Context, plan *types.CarePlan) error
	GetCarePlan(ctx context.Context, id string) (*types.CarePlan, error)
	ListCarePlans(ctx context.Context, patientID string) ([]*types.CarePlan, error)
	UpdateCarePlan(ctx context.Context, plan *types.CarePlan) error
	DeleteCarePlan(ctx context.Context, id string) error

	// Medications
	InsertMedication(ctx context.Context, med *types.Medication) error
	GetMedication(ctx context.Context, id string) (*types.Medication, error)
	ListMedications(ctx context.Context, patientID string) ([]*types.Medication, error)
	UpdateMedication(ctx context.Context, med *types.Medication) error
	DeleteMedication(ctx context.Context, id string) error

	// Assessments
	InsertAssessment(ctx context.Context, a *types.Assessment) error
	GetAssessment(ctx context.Context, id string) (*types.Assessment, error)
	ListAssessments(ctx context.Context, patientID string) ([]*types.Assessment, error)
	UpdateAssessment(ctx context.Context, a *types.Assessment) error
	DeleteAssessment(ctx context.Context, id string) error

	// Audit trail
	InsertAuditRecord(ctx context.Context, rec *types.AuditRecord) error
	ListAuditRecords(ctx context.Context, filter *types.AuditFilter) ([]*types.AuditRecord, error)
	ListAuditRecordsForPatient(ctx context.Context, patientID string, filter *types.AuditFilter) ([]*types.AuditRecord, error)

	// Patient summary fragments
	LastAppointment(ctx context.Context, patientID string, before time.Time) (*types.Appointment, error)
	NextAppointment(ctx context.Context, patientID string, after time.Time) (*types.Appointment, error)
	ActiveMedications(ctx context.Context, patientID string) ([]*types.Medication, error)
	RecentAssessments(ctx context.Context, patientID string, limit int) ([]*types.Assessment, error)
	LatestCarePlan(ctx context.Context, patientID string) (*types.CarePlan, error)
}

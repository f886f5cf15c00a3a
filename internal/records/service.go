package records

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/LPredmore/lh-ehr/internal/audit"
	"github.com/LPredmore/lh-ehr/internal/identity"
	"github.com/LPredmore/lh-ehr/internal/policy"
	"github.com/LPredmore/lh-ehr/internal/reactions"
	"github.com/LPredmore/lh-ehr/pkg/logger"
	"github.com/LPredmore/lh-ehr/pkg/types"
)

// Service is the guarded surface of the records store. Every operation takes
// the acting principal explicitly, authorizes against the row state inside the
// mutation's own transaction, and writes the audit entry before commit.
type Service struct {
	store    Store
	engine   *policy.Engine
	recorder *audit.Recorder
	notifier *reactions.Notifier
	logger   *logger.Logger
}

// NewService wires the service.
func NewService(store Store, engine *policy.Engine, recorder *audit.Recorder, notifier *reactions.Notifier, log *logger.Logger) *Service {
	return &Service{
		store:    store,
		engine:   engine,
		recorder: recorder,
		notifier: notifier,
		logger:   log,
	}
}

// actorFrom builds audit attribution from the principal and the request
// metadata captured at the edge.
func actorFrom(ctx context.Context, p policy.Principal) audit.Actor {
	meta := identity.RequestMetaFrom(ctx)
	actor := audit.Actor{IPAddress: meta.IPAddress, UserAgent: meta.UserAgent}
	if p.UserID != "" {
		actor.ID = p.UserID
	} else {
		actor.ID = p.PatientID
	}
	return actor
}

// resolvePatientFacts fills the snapshot's relational facts: the patient's
// primary provider, and for provider principals whether any clinical record
// is shared. Resolved inside the caller's transaction so the decision and the
// guarded write see the same state.
func resolvePatientFacts(ctx context.Context, tx Tx, p policy.Principal, patientID string, s *policy.Snapshot) error {
	if patientID == "" {
		return nil
	}
	patient, err := tx.GetPatient(ctx, patientID)
	if err != nil {
		return err
	}
	if patient != nil {
		s.PrimaryProviderID = patient.PrimaryProviderID
	}
	if p.IsProvider() && !policy.OwnsAsProvider(p, *s) {
		shared, err := tx.HasSharedCare(ctx, p.UserID, patientID)
		if err != nil {
			return err
		}
		s.SharedWithProvider = shared
	}
	return nil
}

// authorizeRead collapses a read denial into not-found: a caller who may not
// see a row learns nothing about whether it exists.
func (s *Service) authorizeRead(p policy.Principal, snap policy.Snapshot) error {
	if d := s.engine.Authorize(p, policy.OpRead, snap); !d.Allowed {
		return types.NewNotFoundError(notFoundMessage(snap.Type))
	}
	return nil
}

// authorizeWrite surfaces a conflict denial distinctly; plain denials are
// forbidden. Callers check readability first so a forbidden answer already
// confirms the row exists.
func (s *Service) authorizeWrite(p policy.Principal, op policy.Operation, snap policy.Snapshot) error {
	d := s.engine.Authorize(p, op, snap)
	if d.Allowed {
		return nil
	}
	if d.Conflict {
		return types.NewConflictError(d.Reason)
	}
	return types.NewForbiddenError(d.Reason)
}

func notFoundMessage(t policy.ResourceType) string {
	singular := strings.TrimSuffix(strings.ReplaceAll(string(t), "_", " "), "s")
	return singular + " not found"
}

// Users

// CreateUser registers a user. Admin only.
func (s *Service) CreateUser(ctx context.Context, p policy.Principal, user *types.User) (*types.User, error) {
	if err := validateUser(user); err != nil {
		return nil, err
	}

	snap := policy.Snapshot{Type: policy.ResourceUser, TargetRole: user.Role}
	if err := s.authorizeWrite(p, policy.OpCreate, snap); err != nil {
		return nil, err
	}

	err := s.store.Transact(ctx, func(tx Tx) error {
		if err := tx.InsertUser(ctx, user); err != nil {
			return err
		}
		rec := s.recorder.ForInsert("users", user.ID, user.AuditFields(), actorFrom(ctx, p))
		return s.recorder.Record(ctx, tx, rec)
	})
	if err != nil {
		return nil, err
	}
	return user, nil
}

// GetUser returns a user row subject to the directory visibility rules.
func (s *Service) GetUser(ctx context.Context, p policy.Principal, id string) (*types.User, error) {
	var user *types.User
	err := s.store.Transact(ctx, func(tx Tx) error {
		row, err := tx.GetUser(ctx, id)
		if err != nil {
			return err
		}
		if row == nil {
			return types.NewNotFoundError("user not found")
		}
		snap := policy.Snapshot{
			Type:         policy.ResourceUser,
			ID:           row.ID,
			TargetUserID: row.ID,
			TargetRole:   row.Role,
		}
		if err := s.authorizeRead(p, snap); err != nil {
			return err
		}
		user = row
		return nil
	})
	if err != nil {
		return nil, err
	}
	return user, nil
}

// ListUsers returns the directory slice the principal may see.
func (s *Service) ListUsers(ctx context.Context, p policy.Principal) ([]*types.User, error) {
	if !p.Authenticated() {
		return nil, types.NewUnauthenticatedError("no principal")
	}

	var users []*types.User
	err := s.store.Transact(ctx, func(tx Tx) error {
		var err error
		switch {
		case p.IsAdmin():
			users, err = tx.ListUsers(ctx, nil)
		case p.IsProvider():
			users, err = tx.ListUsers(ctx, []types.UserRole{types.RoleProvider, types.RoleStaff})
		case p.IsStaff():
			users, err = tx.ListUsers(ctx, []types.UserRole{types.RoleProvider})
			if err == nil {
				// Staff also see their own row.
				self, selfErr := tx.GetUser(ctx, p.UserID)
				if selfErr != nil {
					return selfErr
				}
				if self != nil {
					users = append(users, self)
				}
			}
		case p.IsPatient():
			users, err = tx.ListUsers(ctx, []types.UserRole{types.RoleProvider})
		default:
			return types.NewForbiddenError("user listing not permitted")
		}
		return err
	})
	if err != nil {
		return nil, err
	}
	return users, nil
}

// UpdateUser applies profile updates. Role changes are rejected for everyone;
// role is immutable after creation.
func (s *Service) UpdateUser(ctx context.Context, p policy.Principal, id string, updates *types.UserUpdates) (*types.User, error) {
	if updates.Role != nil {
		return nil, types.NewValidationError("role cannot be changed", map[string]interface{}{
			"restricted_fields": []string{"role"},
		})
	}

	var user *types.User
	err := s.store.Transact(ctx, func(tx Tx) error {
		row, err := tx.GetUser(ctx, id)
		if err != nil {
			return err
		}
		if row == nil {
			return types.NewNotFoundError("user not found")
		}
		snap := policy.Snapshot{
			Type:         policy.ResourceUser,
			ID:           row.ID,
			TargetUserID: row.ID,
			TargetRole:   row.Role,
		}
		if err := s.authorizeRead(p, snap); err != nil {
			return err
		}
		if err := s.authorizeWrite(p, policy.OpUpdate, snap); err != nil {
			return err
		}

		prev := row.AuditFields()
		applyUserUpdates(row, updates)
		if err := tx.UpdateUser(ctx, row); err != nil {
			return err
		}

		rec := s.recorder.ForUpdate("users", row.ID, prev, row.AuditFields(), actorFrom(ctx, p))
		if err := s.recorder.Record(ctx, tx, rec); err != nil {
			return err
		}
		user = row
		return nil
	})
	if err != nil {
		return nil, err
	}
	return user, nil
}

// DeleteUser removes a user. Admin only.
func (s *Service) DeleteUser(ctx context.Context, p policy.Principal, id string) error {
	return s.store.Transact(ctx, func(tx Tx) error {
		row, err := tx.GetUser(ctx, id)
		if err != nil {
			return err
		}
		if row == nil {
			return types.NewNotFoundError("user not found")
		}
		snap := policy.Snapshot{
			Type:         policy.ResourceUser,
			ID:           row.ID,
			TargetUserID: row.ID,
			TargetRole:   row.Role,
		}
		if err := s.authorizeRead(p, snap); err != nil {
			return err
		}
		if err := s.authorizeWrite(p, policy.OpDelete, snap); err != nil {
			return err
		}
		if err := tx.DeleteUser(ctx, id); err != nil {
			return err
		}
		rec := s.recorder.ForDelete("users", row.ID, row.AuditFields(), actorFrom(ctx, p))
		return s.recorder.Record(ctx, tx, rec)
	})
}

func validateUser(user *types.User) error {
	details := map[string]interface{}{}
	if !user.Role.IsValid() {
		details["role"] = "must be one of admin, provider, staff, patient"
	}
	if user.AuthRef == "" {
		details["auth_ref"] = "required"
	}
	if user.FirstName == "" {
		details["first_name"] = "required"
	}
	if user.LastName == "" {
		details["last_name"] = "required"
	}
	if user.Email == "" {
		details["email"] = "required"
	}
	if len(details) > 0 {
		return types.NewValidationError("invalid user", details)
	}
	return nil
}

func applyUserUpdates(user *types.User, updates *types.UserUpdates) {
	if updates.FirstName != nil {
		user.FirstName = *updates.FirstName
	}
	if updates.LastName != nil {
		user.LastName = *updates.LastName
	}
	if updates.Email != nil {
		user.Email = *updates.Email
	}
	if updates.Phone != nil {
		user.Phone = *updates.Phone
	}
	if updates.Specialty != nil {
		user.Specialty = *updates.Specialty
	}
	if updates.IsActive != nil {
		user.IsActive = *updates.IsActive
	}
}

// Patients

// CreatePatient registers a patient record. Admin may assign any primary
// provider; a provider may only register onto their own caseload.
func (s *Service) CreatePatient(ctx context.Context, p policy.Principal, patient *types.Patient) (*types.Patient, error) {
	if err := validatePatient(patient); err != nil {
		return nil, err
	}
	if patient.MRN == "" {
		patient.MRN = generateMRN()
	}
	if !patient.IsActive {
		patient.IsActive = true
	}

	snap := policy.Snapshot{
		Type:              policy.ResourcePatient,
		PrimaryProviderID: patient.PrimaryProviderID,
	}
	if err := s.authorizeWrite(p, policy.OpCreate, snap); err != nil {
		return nil, err
	}

	err := s.store.Transact(ctx, func(tx Tx) error {
		if err := tx.InsertPatient(ctx, patient); err != nil {
			return err
		}
		rec := s.recorder.ForInsert("patients", patient.ID, patient.AuditFields(), actorFrom(ctx, p))
		return s.recorder.Record(ctx, tx, rec)
	})
	if err != nil {
		return nil, err
	}
	return patient, nil
}

// GetPatient returns a patient record subject to row-level access.
func (s *Service) GetPatient(ctx context.Context, p policy.Principal, id string) (*types.Patient, error) {
	var patient *types.Patient
	err := s.store.Transact(ctx, func(tx Tx) error {
		row, snap, err := s.loadPatient(ctx, tx, p, id)
		if err != nil {
			return err
		}
		if err := s.authorizeRead(p, snap); err != nil {
			return err
		}
		patient = row
		return nil
	})
	if err != nil {
		return nil, err
	}
	return patient, nil
}

// loadPatient loads the row and builds its snapshot with resolved facts.
func (s *Service) loadPatient(ctx context.Context, tx Tx, p policy.Principal, id string) (*types.Patient, policy.Snapshot, error) {
	row, err := tx.GetPatient(ctx, id)
	if err != nil {
		return nil, policy.Snapshot{}, err
	}
	if row == nil {
		return nil, policy.Snapshot{}, types.NewNotFoundError("patient not found")
	}
	snap := policy.Snapshot{
		Type:              policy.ResourcePatient,
		ID:                row.ID,
		PrimaryProviderID: row.PrimaryProviderID,
	}
	if p.IsProvider() && !policy.OwnsAsProvider(p, snap) {
		shared, err := tx.HasSharedCare(ctx, p.UserID, row.ID)
		if err != nil {
			return nil, policy.Snapshot{}, err
		}
		snap.SharedWithProvider = shared
	}
	return row, snap, nil
}

// ListPatients returns the patients the principal may see: everything for
// admin and staff, the caseload for providers, the own record for patients.
func (s *Service) ListPatients(ctx context.Context, p policy.Principal) ([]*types.Patient, error) {
	if !p.Authenticated() {
		return nil, types.NewUnauthenticatedError("no principal")
	}

	var patients []*types.Patient
	err := s.store.Transact(ctx, func(tx Tx) error {
		var err error
		switch {
		case p.IsAdmin(), p.IsStaff():
			patients, err = tx.ListPatients(ctx)
		case p.IsProvider():
			patients, err = tx.ListPatientsForProvider(ctx, p.UserID)
		case p.IsPatient():
			row, getErr := tx.GetPatient(ctx, p.PatientID)
			if getErr != nil {
				return getErr
			}
			if row != nil {
				patients = []*types.Patient{row}
			}
		default:
			return types.NewForbiddenError("patient listing not permitted")
		}
		return err
	})
	if err != nil {
		return nil, err
	}
	return patients, nil
}

// UpdatePatient applies updates subject to row access and, for the patient's
// own portal updates, the contact-field allowlist.
func (s *Service) UpdatePatient(ctx context.Context, p policy.Principal, id string, updates *types.PatientUpdates) (*types.Patient, error) {
	var patient *types.Patient
	err := s.store.Transact(ctx, func(tx Tx) error {
		row, snap, err := s.loadPatient(ctx, tx, p, id)
		if err != nil {
			return err
		}
		if err := s.authorizeRead(p, snap); err != nil {
			return err
		}
		if p.IsPatient() {
			if err := policy.ValidatePatientSelfUpdate(updates); err != nil {
				return err
			}
		}
		if err := s.authorizeWrite(p, policy.OpUpdate, snap); err != nil {
			return err
		}

		prev := row.AuditFields()
		applyPatientUpdates(row, updates)
		if err := tx.UpdatePatient(ctx, row); err != nil {
			return err
		}

		rec := s.recorder.ForUpdate("patients", row.ID, prev, row.AuditFields(), actorFrom(ctx, p))
		if err := s.recorder.Record(ctx, tx, rec); err != nil {
			return err
		}
		patient = row
		return nil
	})
	if err != nil {
		return nil, err
	}
	return patient, nil
}

// DeletePatient removes a patient record. Admin only.
func (s *Service) DeletePatient(ctx context.Context, p policy.Principal, id string) error {
	return s.store.Transact(ctx, func(tx Tx) error {
		row, snap, err := s.loadPatient(ctx, tx, p, id)
		if err != nil {
			return err
		}
		if err := s.authorizeRead(p, snap); err != nil {
			return err
		}
		if err := s.authorizeWrite(p, policy.OpDelete, snap); err != nil {
			return err
		}
		if err := tx.DeletePatient(ctx, id); err != nil {
			return err
		}
		rec := s.recorder.ForDelete("patients", row.ID, row.AuditFields(), actorFrom(ctx, p))
		return s.recorder.Record(ctx, tx, rec)
	})
}

// GetPatientSummary assembles the chart overview. It is authorized once
// against the patient row; the fragments inherit that decision.
func (s *Service) GetPatientSummary(ctx context.Context, p policy.Principal, id string) (*types.PatientSummary, error) {
	var summary *types.PatientSummary
	err := s.store.Transact(ctx, func(tx Tx) error {
		row, snap, err := s.loadPatient(ctx, tx, p, id)
		if err != nil {
			return err
		}
		if err := s.authorizeRead(p, snap); err != nil {
			return err
		}

		now := time.Now()
		last, err := tx.LastAppointment(ctx, id, now)
		if err != nil {
			return err
		}
		next, err := tx.NextAppointment(ctx, id, now)
		if err != nil {
			return err
		}
		meds, err := tx.ActiveMedications(ctx, id)
		if err != nil {
			return err
		}
		assessments, err := tx.RecentAssessments(ctx, id, 5)
		if err != nil {
			return err
		}
		plan, err := tx.LatestCarePlan(ctx, id)
		if err != nil {
			return err
		}

		summary = &types.PatientSummary{
			Patient:           row,
			LastAppointment:   last,
			NextAppointment:   next,
			ActiveMedications: meds,
			RecentAssessments: assessments,
			LatestCarePlan:    plan,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return summary, nil
}

func validatePatient(patient *types.Patient) error {
	details := map[string]interface{}{}
	if patient.FirstName == "" {
		details["first_name"] = "required"
	}
	if patient.LastName == "" {
		details["last_name"] = "required"
	}
	if patient.DateOfBirth.IsZero() {
		details["date_of_birth"] = "required"
	}
	if len(details) > 0 {
		return types.NewValidationError("invalid patient", details)
	}
	return nil
}

func generateMRN() string {
	return fmt.Sprintf("MRN-%s", strings.ToUpper(uuid.New().String()[:8]))
}

func applyPatientUpdates(patient *types.Patient, updates *types.PatientUpdates) {
	if updates.PrimaryProviderID != nil {
		patient.PrimaryProviderID = *updates.PrimaryProviderID
	}
	if updates.FirstName != nil {
		patient.FirstName = *updates.FirstName
	}
	if updates.LastName != nil {
		patient.LastName = *updates.LastName
	}
	if updates.DateOfBirth != nil {
		patient.DateOfBirth = *updates.DateOfBirth
	}
	if updates.Gender != nil {
		patient.Gender = *updates.Gender
	}
	if updates.Phone != nil {
		patient.Phone = *updates.Phone
	}
	if updates.Email != nil {
		patient.Email = *updates.Email
	}
	if updates.Street != nil {
		patient.Street = *updates.Street
	}
	if updates.City != nil {
		patient.City = *updates.City
	}
	if updates.State != nil {
		patient.State = *updates.State
	}
	if updates.PostalCode != nil {
		patient.PostalCode = *updates.PostalCode
	}
	if updates.EmergencyContactName != nil {
		patient.EmergencyContactName = *updates.EmergencyContactName
	}
	if updates.EmergencyContactPhone != nil {
		patient.EmergencyContactPhone = *updates.EmergencyContactPhone
	}
	if updates.InsuranceProvider != nil {
		patient.InsuranceProvider = *updates.InsuranceProvider
	}
	if updates.InsurancePolicyNumber != nil {
		patient.InsurancePolicyNumber = *updates.InsurancePolicyNumber
	}
	if updates.ReferralSource != nil {
		patient.ReferralSource = *updates.ReferralSource
	}
	if updates.IntakeNotes != nil {
		patient.IntakeNotes = *updates.IntakeNotes
	}
	if updates.IsActive != nil {
		patient.IsActive = *updates.IsActive
	}
}

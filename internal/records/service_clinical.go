package records

import (
	"context"
	"time"

	"github.com/LPredmore/lh-ehr/internal/policy"
	"github.com/LPredmore/lh-ehr/internal/reactions"
	"github.com/LPredmore/lh-ehr/pkg/types"
)

// Clinical notes

// CreateClinicalNote authors a note. Providers may only author under their
// own name.
func (s *Service) CreateClinicalNote(ctx context.Context, p policy.Principal, note *types.ClinicalNote) (*types.ClinicalNote, error) {
	if err := validateClinicalNote(note); err != nil {
		return nil, err
	}

	err := s.store.Transact(ctx, func(tx Tx) error {
		snap := policy.Snapshot{
			Type:       policy.ResourceClinicalNote,
			PatientID:  note.PatientID,
			ProviderID: note.ProviderID,
		}
		if err := resolvePatientFacts(ctx, tx, p, note.PatientID, &snap); err != nil {
			return err
		}
		if err := s.authorizeWrite(p, policy.OpCreate, snap); err != nil {
			return err
		}
		if err := tx.InsertClinicalNote(ctx, note); err != nil {
			return err
		}
		rec := s.recorder.ForInsert("clinical_notes", note.ID, note.AuditFields(), actorFrom(ctx, p))
		return s.recorder.Record(ctx, tx, rec)
	})
	if err != nil {
		return nil, err
	}
	return note, nil
}

// GetClinicalNote returns a note subject to row-level access. Patients only
// see their own signed notes; an unsigned note is invisible to them.
func (s *Service) GetClinicalNote(ctx context.Context, p policy.Principal, id string) (*types.ClinicalNote, error) {
	var note *types.ClinicalNote
	err := s.store.Transact(ctx, func(tx Tx) error {
		row, snap, err := s.loadClinicalNote(ctx, tx, p, id)
		if err != nil {
			return err
		}
		if err := s.authorizeRead(p, snap); err != nil {
			return err
		}
		note = row
		return nil
	})
	if err != nil {
		return nil, err
	}
	return note, nil
}

func (s *Service) loadClinicalNote(ctx context.Context, tx Tx, p policy.Principal, id string) (*types.ClinicalNote, policy.Snapshot, error) {
	row, err := tx.GetClinicalNote(ctx, id)
	if err != nil {
		return nil, policy.Snapshot{}, err
	}
	if row == nil {
		return nil, policy.Snapshot{}, types.NewNotFoundError("clinical note not found")
	}
	snap := policy.Snapshot{
		Type:       policy.ResourceClinicalNote,
		ID:         row.ID,
		PatientID:  row.PatientID,
		ProviderID: row.ProviderID,
		IsSigned:   row.IsSigned,
		IsLocked:   row.IsLocked,
	}
	if err := resolvePatientFacts(ctx, tx, p, row.PatientID, &snap); err != nil {
		return nil, policy.Snapshot{}, err
	}
	return row, snap, nil
}

// ListClinicalNotes returns a patient's notes. Access follows the patient
// row; patient principals additionally see only signed notes.
func (s *Service) ListClinicalNotes(ctx context.Context, p policy.Principal, patientID string) ([]*types.ClinicalNote, error) {
	var notes []*types.ClinicalNote
	err := s.store.Transact(ctx, func(tx Tx) error {
		_, snap, err := s.loadPatient(ctx, tx, p, patientID)
		if err != nil {
			return err
		}
		if err := s.authorizeRead(p, snap); err != nil {
			return err
		}

		all, err := tx.ListClinicalNotes(ctx, patientID)
		if err != nil {
			return err
		}
		if p.IsPatient() {
			for _, n := range all {
				if n.IsSigned {
					notes = append(notes, n)
				}
			}
			return nil
		}
		notes = all
		return nil
	})
	if err != nil {
		return nil, err
	}
	return notes, nil
}

// UpdateClinicalNote edits an unlocked note. A locked note conflicts for
// every role, admin included.
func (s *Service) UpdateClinicalNote(ctx context.Context, p policy.Principal, id string, updates *types.ClinicalNoteUpdates) (*types.ClinicalNote, error) {
	var note *types.ClinicalNote
	err := s.store.Transact(ctx, func(tx Tx) error {
		row, snap, err := s.loadClinicalNote(ctx, tx, p, id)
		if err != nil {
			return err
		}
		if err := s.authorizeRead(p, snap); err != nil {
			return err
		}
		if err := s.authorizeWrite(p, policy.OpUpdate, snap); err != nil {
			return err
		}

		prev := row.AuditFields()
		applyClinicalNoteUpdates(row, updates)
		if err := tx.UpdateClinicalNote(ctx, row); err != nil {
			return err
		}
		rec := s.recorder.ForUpdate("clinical_notes", row.ID, prev, row.AuditFields(), actorFrom(ctx, p))
		if err := s.recorder.Record(ctx, tx, rec); err != nil {
			return err
		}
		note = row
		return nil
	})
	if err != nil {
		return nil, err
	}
	return note, nil
}

// SignClinicalNote marks the note signed, starting the seven-day clock until
// the lock sweep freezes it. Signing an already-signed note conflicts.
func (s *Service) SignClinicalNote(ctx context.Context, p policy.Principal, id string) (*types.ClinicalNote, error) {
	var note *types.ClinicalNote
	err := s.store.Transact(ctx, func(tx Tx) error {
		row, snap, err := s.loadClinicalNote(ctx, tx, p, id)
		if err != nil {
			return err
		}
		if err := s.authorizeRead(p, snap); err != nil {
			return err
		}
		if err := s.authorizeWrite(p, policy.OpUpdate, snap); err != nil {
			return err
		}
		if row.IsSigned {
			return types.NewConflictError("note is already signed")
		}

		prev := row.AuditFields()
		now := time.Now().UTC()
		row.IsSigned = true
		row.SignedAt = &now
		if err := tx.UpdateClinicalNote(ctx, row); err != nil {
			return err
		}
		rec := s.recorder.ForUpdate("clinical_notes", row.ID, prev, row.AuditFields(), actorFrom(ctx, p))
		if err := s.recorder.Record(ctx, tx, rec); err != nil {
			return err
		}
		note = row
		return nil
	})
	if err != nil {
		return nil, err
	}
	return note, nil
}

// DeleteClinicalNote removes a note. Admin only.
func (s *Service) DeleteClinicalNote(ctx context.Context, p policy.Principal, id string) error {
	return s.store.Transact(ctx, func(tx Tx) error {
		row, snap, err := s.loadClinicalNote(ctx, tx, p, id)
		if err != nil {
			return err
		}
		if err := s.authorizeRead(p, snap); err != nil {
			return err
		}
		if err := s.authorizeWrite(p, policy.OpDelete, snap); err != nil {
			return err
		}
		if err := tx.DeleteClinicalNote(ctx, id); err != nil {
			return err
		}
		rec := s.recorder.ForDelete("clinical_notes", row.ID, row.AuditFields(), actorFrom(ctx, p))
		return s.recorder.Record(ctx, tx, rec)
	})
}

func validateClinicalNote(note *types.ClinicalNote) error {
	details := map[string]interface{}{}
	if note.PatientID == "" {
		details["patient_id"] = "required"
	}
	if note.ProviderID == "" {
		details["provider_id"] = "required"
	}
	if note.NoteType == "" {
		details["note_type"] = "required"
	}
	if len(details) > 0 {
		return types.NewValidationError("invalid clinical note", details)
	}
	return nil
}

func applyClinicalNoteUpdates(note *types.ClinicalNote, updates *types.ClinicalNoteUpdates) {
	if updates.NoteType != nil {
		note.NoteType = *updates.NoteType
	}
	if updates.Subjective != nil {
		note.Subjective = *updates.Subjective
	}
	if updates.Objective != nil {
		note.Objective = *updates.Objective
	}
	if updates.Assessment != nil {
		note.Assessment = *updates.Assessment
	}
	if updates.Plan != nil {
		note.Plan = *updates.Plan
	}
	if updates.DiagnosisCodes != nil {
		note.DiagnosisCodes = *updates.DiagnosisCodes
	}
}

// Care plans

// CreateCarePlan creates a treatment plan.
func (s *Service) CreateCarePlan(ctx context.Context, p policy.Principal, plan *types.CarePlan) (*types.CarePlan, error) {
	if plan.PatientID == "" || plan.ProviderID == "" || plan.Title == "" {
		return nil, types.NewValidationError("invalid care plan", map[string]interface{}{
			"required": []string{"patient_id", "provider_id", "title"},
		})
	}
	if plan.Status == "" {
		plan.Status = types.CarePlanActive
	}
	if plan.StartDate.IsZero() {
		plan.StartDate = time.Now().UTC()
	}

	err := s.store.Transact(ctx, func(tx Tx) error {
		snap := policy.Snapshot{
			Type:       policy.ResourceCarePlan,
			PatientID:  plan.PatientID,
			ProviderID: plan.ProviderID,
		}
		if err := resolvePatientFacts(ctx, tx, p, plan.PatientID, &snap); err != nil {
			return err
		}
		if err := s.authorizeWrite(p, policy.OpCreate, snap); err != nil {
			return err
		}
		if err := tx.InsertCarePlan(ctx, plan); err != nil {
			return err
		}
		rec := s.recorder.ForInsert("care_plans", plan.ID, plan.AuditFields(), actorFrom(ctx, p))
		return s.recorder.Record(ctx, tx, rec)
	})
	if err != nil {
		return nil, err
	}
	return plan, nil
}

// GetCarePlan returns a care plan subject to row-level access.
func (s *Service) GetCarePlan(ctx context.Context, p policy.Principal, id string) (*types.CarePlan, error) {
	var plan *types.CarePlan
	err := s.store.Transact(ctx, func(tx Tx) error {
		row, err := tx.GetCarePlan(ctx, id)
		if err != nil {
			return err
		}
		if row == nil {
			return types.NewNotFoundError("care plan not found")
		}
		snap := policy.Snapshot{
			Type:       policy.ResourceCarePlan,
			ID:         row.ID,
			PatientID:  row.PatientID,
			ProviderID: row.ProviderID,
		}
		if err := resolvePatientFacts(ctx, tx, p, row.PatientID, &snap); err != nil {
			return err
		}
		if err := s.authorizeRead(p, snap); err != nil {
			return err
		}
		plan = row
		return nil
	})
	if err != nil {
		return nil, err
	}
	return plan, nil
}

// ListCarePlans returns a patient's care plans, gated by the patient row.
func (s *Service) ListCarePlans(ctx context.Context, p policy.Principal, patientID string) ([]*types.CarePlan, error) {
	var plans []*types.CarePlan
	err := s.store.Transact(ctx, func(tx Tx) error {
		_, snap, err := s.loadPatient(ctx, tx, p, patientID)
		if err != nil {
			return err
		}
		if err := s.authorizeRead(p, snap); err != nil {
			return err
		}
		plans, err = tx.ListCarePlans(ctx, patientID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return plans, nil
}

// UpdateCarePlan edits a plan; only its owning provider or admin may.
func (s *Service) UpdateCarePlan(ctx context.Context, p policy.Principal, id string, updates *types.CarePlanUpdates) (*types.CarePlan, error) {
	var plan *types.CarePlan
	err := s.store.Transact(ctx, func(tx Tx) error {
		row, err := tx.GetCarePlan(ctx, id)
		if err != nil {
			return err
		}
		if row == nil {
			return types.NewNotFoundError("care plan not found")
		}
		snap := policy.Snapshot{
			Type:       policy.ResourceCarePlan,
			ID:         row.ID,
			PatientID:  row.PatientID,
			ProviderID: row.ProviderID,
		}
		if err := resolvePatientFacts(ctx, tx, p, row.PatientID, &snap); err != nil {
			return err
		}
		if err := s.authorizeRead(p, snap); err != nil {
			return err
		}
		if err := s.authorizeWrite(p, policy.OpUpdate, snap); err != nil {
			return err
		}

		prev := row.AuditFields()
		applyCarePlanUpdates(row, updates)
		if err := tx.UpdateCarePlan(ctx, row); err != nil {
			return err
		}
		rec := s.recorder.ForUpdate("care_plans", row.ID, prev, row.AuditFields(), actorFrom(ctx, p))
		if err := s.recorder.Record(ctx, tx, rec); err != nil {
			return err
		}
		plan = row
		return nil
	})
	if err != nil {
		return nil, err
	}
	return plan, nil
}

// DeleteCarePlan removes a plan; owning provider or admin.
func (s *Service) DeleteCarePlan(ctx context.Context, p policy.Principal, id string) error {
	return s.store.Transact(ctx, func(tx Tx) error {
		row, err := tx.GetCarePlan(ctx, id)
		if err != nil {
			return err
		}
		if row == nil {
			return types.NewNotFoundError("care plan not found")
		}
		snap := policy.Snapshot{
			Type:       policy.ResourceCarePlan,
			ID:         row.ID,
			PatientID:  row.PatientID,
			ProviderID: row.ProviderID,
		}
		if err := resolvePatientFacts(ctx, tx, p, row.PatientID, &snap); err != nil {
			return err
		}
		if err := s.authorizeRead(p, snap); err != nil {
			return err
		}
		if err := s.authorizeWrite(p, policy.OpDelete, snap); err != nil {
			return err
		}
		if err := tx.DeleteCarePlan(ctx, id); err != nil {
			return err
		}
		rec := s.recorder.ForDelete("care_plans", row.ID, row.AuditFields(), actorFrom(ctx, p))
		return s.recorder.Record(ctx, tx, rec)
	})
}

func applyCarePlanUpdates(plan *types.CarePlan, updates *types.CarePlanUpdates) {
	if updates.Title != nil {
		plan.Title = *updates.Title
	}
	if updates.Goals != nil {
		plan.Goals = *updates.Goals
	}
	if updates.Interventions != nil {
		plan.Interventions = *updates.Interventions
	}
	if updates.Status != nil {
		plan.Status = *updates.Status
	}
	if updates.ReviewDate != nil {
		plan.ReviewDate = updates.ReviewDate
	}
}

// Medications

// CreateMedication prescribes a medication.
func (s *Service) CreateMedication(ctx context.Context, p policy.Principal, med *types.Medication) (*types.Medication, error) {
	if med.PatientID == "" || med.ProviderID == "" || med.Name == "" {
		return nil, types.NewValidationError("invalid medication", map[string]interface{}{
			"required": []string{"patient_id", "provider_id", "name"},
		})
	}
	if med.Status == "" {
		med.Status = types.MedicationActive
	}

	err := s.store.Transact(ctx, func(tx Tx) error {
		snap := policy.Snapshot{
			Type:       policy.ResourceMedication,
			PatientID:  med.PatientID,
			ProviderID: med.ProviderID,
		}
		if err := resolvePatientFacts(ctx, tx, p, med.PatientID, &snap); err != nil {
			return err
		}
		if err := s.authorizeWrite(p, policy.OpCreate, snap); err != nil {
			return err
		}
		if err := tx.InsertMedication(ctx, med); err != nil {
			return err
		}
		rec := s.recorder.ForInsert("medications", med.ID, med.AuditFields(), actorFrom(ctx, p))
		return s.recorder.Record(ctx, tx, rec)
	})
	if err != nil {
		return nil, err
	}
	return med, nil
}

// GetMedication returns a medication subject to row-level access.
func (s *Service) GetMedication(ctx context.Context, p policy.Principal, id string) (*types.Medication, error) {
	var med *types.Medication
	err := s.store.Transact(ctx, func(tx Tx) error {
		row, err := tx.GetMedication(ctx, id)
		if err != nil {
			return err
		}
		if row == nil {
			return types.NewNotFoundError("medication not found")
		}
		snap := policy.Snapshot{
			Type:       policy.ResourceMedication,
			ID:         row.ID,
			PatientID:  row.PatientID,
			ProviderID: row.ProviderID,
		}
		if err := resolvePatientFacts(ctx, tx, p, row.PatientID, &snap); err != nil {
			return err
		}
		if err := s.authorizeRead(p, snap); err != nil {
			return err
		}
		med = row
		return nil
	})
	if err != nil {
		return nil, err
	}
	return med, nil
}

// ListMedications returns a patient's medications, gated by the patient row.
func (s *Service) ListMedications(ctx context.Context, p policy.Principal, patientID string) ([]*types.Medication, error) {
	var meds []*types.Medication
	err := s.store.Transact(ctx, func(tx Tx) error {
		_, snap, err := s.loadPatient(ctx, tx, p, patientID)
		if err != nil {
			return err
		}
		if err := s.authorizeRead(p, snap); err != nil {
			return err
		}
		meds, err = tx.ListMedications(ctx, patientID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return meds, nil
}

// UpdateMedication edits a prescription; owning provider or admin.
func (s *Service) UpdateMedication(ctx context.Context, p policy.Principal, id string, updates *types.MedicationUpdates) (*types.Medication, error) {
	var med *types.Medication
	err := s.store.Transact(ctx, func(tx Tx) error {
		row, err := tx.GetMedication(ctx, id)
		if err != nil {
			return err
		}
		if row == nil {
			return types.NewNotFoundError("medication not found")
		}
		snap := policy.Snapshot{
			Type:       policy.ResourceMedication,
			ID:         row.ID,
			PatientID:  row.PatientID,
			ProviderID: row.ProviderID,
		}
		if err := resolvePatientFacts(ctx, tx, p, row.PatientID, &snap); err != nil {
			return err
		}
		if err := s.authorizeRead(p, snap); err != nil {
			return err
		}
		if err := s.authorizeWrite(p, policy.OpUpdate, snap); err != nil {
			return err
		}

		prev := row.AuditFields()
		applyMedicationUpdates(row, updates)
		if err := tx.UpdateMedication(ctx, row); err != nil {
			return err
		}
		rec := s.recorder.ForUpdate("medications", row.ID, prev, row.AuditFields(), actorFrom(ctx, p))
		if err := s.recorder.Record(ctx, tx, rec); err != nil {
			return err
		}
		med = row
		return nil
	})
	if err != nil {
		return nil, err
	}
	return med, nil
}

// DeleteMedication removes a prescription; owning provider or admin.
func (s *Service) DeleteMedication(ctx context.Context, p policy.Principal, id string) error {
	return s.store.Transact(ctx, func(tx Tx) error {
		row, err := tx.GetMedication(ctx, id)
		if err != nil {
			return err
		}
		if row == nil {
			return types.NewNotFoundError("medication not found")
		}
		snap := policy.Snapshot{
			Type:       policy.ResourceMedication,
			ID:         row.ID,
			PatientID:  row.PatientID,
			ProviderID: row.ProviderID,
		}
		if err := resolvePatientFacts(ctx, tx, p, row.PatientID, &snap); err != nil {
			return err
		}
		if err := s.authorizeRead(p, snap); err != nil {
			return err
		}
		if err := s.authorizeWrite(p, policy.OpDelete, snap); err != nil {
			return err
		}
		if err := tx.DeleteMedication(ctx, id); err != nil {
			return err
		}
		rec := s.recorder.ForDelete("medications", row.ID, row.AuditFields(), actorFrom(ctx, p))
		return s.recorder.Record(ctx, tx, rec)
	})
}

func applyMedicationUpdates(med *types.Medication, updates *types.MedicationUpdates) {
	if updates.Dosage != nil {
		med.Dosage = *updates.Dosage
	}
	if updates.Frequency != nil {
		med.Frequency = *updates.Frequency
	}
	if updates.Status != nil {
		med.Status = *updates.Status
	}
	if updates.DiscontinuedAt != nil {
		med.DiscontinuedAt = updates.DiscontinuedAt
	}
	if updates.Notes != nil {
		med.Notes = *updates.Notes
	}
}

// Assessments

// CreateAssessment records an administered assessment. Staff may administer;
// providers record their own. A PHQ-9 or GAD-7 score at or above the
// threshold emits a high-risk alert after the transaction commits.
func (s *Service) CreateAssessment(ctx context.Context, p policy.Principal, a *types.Assessment) (*types.Assessment, error) {
	if err := validateAssessment(a); err != nil {
		return nil, err
	}

	var providerContact string
	err := s.store.Transact(ctx, func(tx Tx) error {
		snap := policy.Snapshot{
			Type:       policy.ResourceAssessment,
			PatientID:  a.PatientID,
			ProviderID: a.ProviderID,
		}
		if err := resolvePatientFacts(ctx, tx, p, a.PatientID, &snap); err != nil {
			return err
		}
		if err := s.authorizeWrite(p, policy.OpCreate, snap); err != nil {
			return err
		}
		if err := tx.InsertAssessment(ctx, a); err != nil {
			return err
		}
		rec := s.recorder.ForInsert("assessments", a.ID, a.AuditFields(), actorFrom(ctx, p))
		if err := s.recorder.Record(ctx, tx, rec); err != nil {
			return err
		}

		// Resolve the assigned provider's contact now so the alert after
		// commit needs no second transaction.
		if reactions.IsHighRisk(a) && snap.PrimaryProviderID != "" {
			provider, err := tx.GetUser(ctx, snap.PrimaryProviderID)
			if err != nil {
				return err
			}
			if provider != nil {
				providerContact = provider.Email
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if reactions.IsHighRisk(a) {
		s.notifier.EmitHighRisk(a, providerContact)
	}
	return a, nil
}

// GetAssessment returns an assessment subject to row-level access.
func (s *Service) GetAssessment(ctx context.Context, p policy.Principal, id string) (*types.Assessment, error) {
	var assessment *types.Assessment
	err := s.store.Transact(ctx, func(tx Tx) error {
		row, err := tx.GetAssessment(ctx, id)
		if err != nil {
			return err
		}
		if row == nil {
			return types.NewNotFoundError("assessment not found")
		}
		snap := policy.Snapshot{
			Type:       policy.ResourceAssessment,
			ID:         row.ID,
			PatientID:  row.PatientID,
			ProviderID: row.ProviderID,
		}
		if err := resolvePatientFacts(ctx, tx, p, row.PatientID, &snap); err != nil {
			return err
		}
		if err := s.authorizeRead(p, snap); err != nil {
			return err
		}
		assessment = row
		return nil
	})
	if err != nil {
		return nil, err
	}
	return assessment, nil
}

// ListAssessments returns a patient's assessments, gated by the patient row.
func (s *Service) ListAssessments(ctx context.Context, p policy.Principal, patientID string) ([]*types.Assessment, error) {
	var assessments []*types.Assessment
	err := s.store.Transact(ctx, func(tx Tx) error {
		_, snap, err := s.loadPatient(ctx, tx, p, patientID)
		if err != nil {
			return err
		}
		if err := s.authorizeRead(p, snap); err != nil {
			return err
		}
		assessments, err = tx.ListAssessments(ctx, patientID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return assessments, nil
}

// UpdateAssessment corrects a recorded assessment; owning provider or admin.
// Score corrections do not re-trigger the high-risk alert.
func (s *Service) UpdateAssessment(ctx context.Context, p policy.Principal, id string, updates *types.AssessmentUpdates) (*types.Assessment, error) {
	if updates.Score != nil && *updates.Score < 0 {
		return nil, types.NewValidationError("score must be non-negative", nil)
	}

	var assessment *types.Assessment
	err := s.store.Transact(ctx, func(tx Tx) error {
		row, err := tx.GetAssessment(ctx, id)
		if err != nil {
			return err
		}
		if row == nil {
			return types.NewNotFoundError("assessment not found")
		}
		snap := policy.Snapshot{
			Type:       policy.ResourceAssessment,
			ID:         row.ID,
			PatientID:  row.PatientID,
			ProviderID: row.ProviderID,
		}
		if err := resolvePatientFacts(ctx, tx, p, row.PatientID, &snap); err != nil {
			return err
		}
		if err := s.authorizeRead(p, snap); err != nil {
			return err
		}
		if err := s.authorizeWrite(p, policy.OpUpdate, snap); err != nil {
			return err
		}

		prev := row.AuditFields()
		if updates.Score != nil {
			row.Score = *updates.Score
		}
		if updates.Interpretation != nil {
			row.Interpretation = *updates.Interpretation
		}
		if err := tx.UpdateAssessment(ctx, row); err != nil {
			return err
		}
		rec := s.recorder.ForUpdate("assessments", row.ID, prev, row.AuditFields(), actorFrom(ctx, p))
		if err := s.recorder.Record(ctx, tx, rec); err != nil {
			return err
		}
		assessment = row
		return nil
	})
	if err != nil {
		return nil, err
	}
	return assessment, nil
}

// DeleteAssessment removes an assessment; owning provider or admin.
func (s *Service) DeleteAssessment(ctx context.Context, p policy.Principal, id string) error {
	return s.store.Transact(ctx, func(tx Tx) error {
		row, err := tx.GetAssessment(ctx, id)
		if err != nil {
			return err
		}
		if row == nil {
			return types.NewNotFoundError("assessment not found")
		}
		snap := policy.Snapshot{
			Type:       policy.ResourceAssessment,
			ID:         row.ID,
			PatientID:  row.PatientID,
			ProviderID: row.ProviderID,
		}
		if err := resolvePatientFacts(ctx, tx, p, row.PatientID, &snap); err != nil {
			return err
		}
		if err := s.authorizeRead(p, snap); err != nil {
			return err
		}
		if err := s.authorizeWrite(p, policy.OpDelete, snap); err != nil {
			return err
		}
		if err := tx.DeleteAssessment(ctx, id); err != nil {
			return err
		}
		rec := s.recorder.ForDelete("assessments", row.ID, row.AuditFields(), actorFrom(ctx, p))
		return s.recorder.Record(ctx, tx, rec)
	})
}

func validateAssessment(a *types.Assessment) error {
	details := map[string]interface{}{}
	if a.PatientID == "" {
		details["patient_id"] = "required"
	}
	if a.ProviderID == "" {
		details["provider_id"] = "required"
	}
	if a.AssessmentType == "" {
		details["assessment_type"] = "required"
	}
	if a.Score < 0 {
		details["score"] = "must be non-negative"
	}
	if len(details) > 0 {
		return types.NewValidationError("invalid assessment", details)
	}
	return nil
}

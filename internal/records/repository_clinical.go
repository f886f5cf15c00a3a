package records

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/LPredmore/lh-ehr/pkg/types"
)

// Clinical notes

const selectClinicalNote = `
	SELECT id, patient_id, appointment_id, provider_id, note_type,
	       subjective, objective, assessment, plan, diagnosis_codes,
	       is_signed, signed_at, is_locked, locked_at, locked_by,
	       created_at, updated_at
	FROM clinical_notes`

func scanClinicalNote(row rowScanner) (*types.ClinicalNote, error) {
	var n types.ClinicalNote
	var appointmentID, lockedBy sql.NullString
	var signedAt, lockedAt sql.NullTime
	err := row.Scan(&n.ID, &n.PatientID, &appointmentID, &n.ProviderID,
		&n.NoteType, &n.Subjective, &n.Objective, &n.Assessment, &n.Plan,
		pq.Array(&n.DiagnosisCodes), &n.IsSigned, &signedAt, &n.IsLocked,
		&lockedAt, &lockedBy, &n.CreatedAt, &n.UpdatedAt)
	if err != nil {
		return nil, err
	}
	n.AppointmentID = appointmentID.String
	n.LockedBy = lockedBy.String
	if signedAt.Valid {
		n.SignedAt = &signedAt.Time
	}
	if lockedAt.Valid {
		n.LockedAt = &lockedAt.Time
	}
	return &n, nil
}

func (t *pgTx) InsertClinicalNote(ctx context.Context, note *types.ClinicalNote) error {
	if note.ID == "" {
		note.ID = uuid.New().String()
	}
	if note.DiagnosisCodes == nil {
		note.DiagnosisCodes = []string{}
	}
	now := time.Now().UTC()
	note.CreatedAt = now
	note.UpdatedAt = now

	_, err := t.tx.ExecContext(ctx, `
		INSERT INTO clinical_notes (id, patient_id, appointment_id,
			provider_id, note_type, subjective, objective, assessment, plan,
			diagnosis_codes, is_signed, signed_at, is_locked, locked_at,
			locked_by, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14,
			$15, $16, $17)`,
		note.ID, note.PatientID, nullString(note.AppointmentID),
		note.ProviderID, note.NoteType, note.Subjective, note.Objective,
		note.Assessment, note.Plan, pq.Array(note.DiagnosisCodes),
		note.IsSigned, nullTime(note.SignedAt), note.IsLocked,
		nullTime(note.LockedAt), nullString(note.LockedBy), note.CreatedAt,
		note.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert clinical note: %w", err)
	}
	return nil
}

func (t *pgTx) GetClinicalNote(ctx context.Context, id string) (*types.ClinicalNote, error) {
	row := t.tx.QueryRowContext(ctx, selectClinicalNote+` WHERE id = $1`, id)
	note, err := scanClinicalNote(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query clinical note: %w", err)
	}
	return note, nil
}

func (t *pgTx) ListClinicalNotes(ctx context.Context, patientID string) ([]*types.ClinicalNote, error) {
	rows, err := t.tx.QueryContext(ctx,
		selectClinicalNote+` WHERE patient_id = $1 ORDER BY created_at DESC`,
		patientID)
	if err != nil {
		return nil, fmt.Errorf("failed to list clinical notes: %w", err)
	}
	defer rows.Close()

	var notes []*types.ClinicalNote
	for rows.Next() {
		note, err := scanClinicalNote(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan clinical note: %w", err)
		}
		notes = append(notes, note)
	}
	return notes, rows.Err()
}

func (t *pgTx) UpdateClinicalNote(ctx context.Context, note *types.ClinicalNote) error {
	note.UpdatedAt = time.Now().UTC()
	result, err := t.tx.ExecContext(ctx, `
		UPDATE clinical_notes
		SET note_type = $2, subjective = $3, objective = $4, assessment = $5,
		    plan = $6, diagnosis_codes = $7, is_signed = $8, signed_at = $9,
		    is_locked = $10, locked_at = $11, locked_by = $12, updated_at = $13
		WHERE id = $1`,
		note.ID, note.NoteType, note.Subjective, note.Objective,
		note.Assessment, note.Plan, pq.Array(note.DiagnosisCodes),
		note.IsSigned, nullTime(note.SignedAt), note.IsLocked,
		nullTime(note.LockedAt), nullString(note.LockedBy), note.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to update clinical note: %w", err)
	}
	return requireRowAffected(result, "clinical note")
}

func (t *pgTx) DeleteClinicalNote(ctx context.Context, id string) error {
	result, err := t.tx.ExecContext(ctx, `DELETE FROM clinical_notes WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete clinical note: %w", err)
	}
	return requireRowAffected(result, "clinical note")
}

// HasNoteForAppointment keeps the completion trigger idempotent: at most one
// note stub per appointment.
func (t *pgTx) HasNoteForAppointment(ctx context.Context, appointmentID string) (bool, error) {
	var exists bool
	err := t.tx.QueryRowContext(ctx,
		`SELECT EXISTS (SELECT 1 FROM clinical_notes WHERE appointment_id = $1)`,
		appointmentID).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check note for appointment: %w", err)
	}
	return exists, nil
}

// Care plans

const selectCarePlan = `
	SELECT id, patient_id, provider_id, title, goals, interventions, status,
	       start_date, review_date, created_at, updated_at
	FROM care_plans`

func scanCarePlan(row rowScanner) (*types.CarePlan, error) {
	var c types.CarePlan
	var reviewDate sql.NullTime
	err := row.Scan(&c.ID, &c.PatientID, &c.ProviderID, &c.Title, &c.Goals,
		&c.Interventions, &c.Status, &c.StartDate, &reviewDate, &c.CreatedAt,
		&c.UpdatedAt)
	if err != nil {
		return nil, err
	}
	if reviewDate.Valid {
		c.ReviewDate = &reviewDate.Time
	}
	return &c, nil
}

func (t *pgTx) InsertCarePlan(ctx context.Context, plan *types.CarePlan) error {
	if plan.ID == "" {
		plan.ID = uuid.New().String()
	}
	now := time.Now().UTC()
	plan.CreatedAt = now
	plan.UpdatedAt = now

	_, err := t.tx.ExecContext(ctx, `
		INSERT INTO care_plans (id, patient_id, provider_id, title, goals,
			interventions, status, start_date, review_date, created_at,
			updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
		plan.ID, plan.PatientID, plan.ProviderID, plan.Title, plan.Goals,
		plan.Interventions, plan.Status, plan.StartDate,
		nullTime(plan.ReviewDate), plan.CreatedAt, plan.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert care plan: %w", err)
	}
	return nil
}

func (t *pgTx) GetCarePlan(ctx context.Context, id string) (*types.CarePlan, error) {
	row := t.tx.QueryRowContext(ctx, selectCarePlan+` WHERE id = $1`, id)
	plan, err := scanCarePlan(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query care plan: %w", err)
	}
	return plan, nil
}

func (t *pgTx) ListCarePlans(ctx context.Context, patientID string) ([]*types.CarePlan, error) {
	rows, err := t.tx.QueryContext(ctx,
		selectCarePlan+` WHERE patient_id = $1 ORDER BY created_at DESC`,
		patientID)
	if err != nil {
		return nil, fmt.Errorf("failed to list care plans: %w", err)
	}
	defer rows.Close()

	var plans []*types.CarePlan
	for rows.Next() {
		plan, err := scanCarePlan(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan care plan: %w", err)
		}
		plans = append(plans, plan)
	}
	return plans, rows.Err()
}

func (t *pgTx) UpdateCarePlan(ctx context.Context, plan *types.CarePlan) error {
	plan.UpdatedAt = time.Now().UTC()
	result, err := t.tx.ExecContext(ctx, `
		UPDATE care_plans
		SET title = $2, goals = $3, interventions = $4, status = $5,
		    review_date = $6, updated_at = $7
		WHERE id = $1`,
		plan.ID, plan.Title, plan.Goals, plan.Interventions, plan.Status,
		nullTime(plan.ReviewDate), plan.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to update care plan: %w", err)
	}
	return requireRowAffected(result, "care plan")
}

func (t *pgTx) DeleteCarePlan(ctx context.Context, id string) error {
	result, err := t.tx.ExecContext(ctx, `DELETE FROM care_plans WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete care plan: %w", err)
	}
	return requireRowAffected(result, "care plan")
}

// Medications

const selectMedication = `
	SELECT id, patient_id, provider_id, name, dosage, frequency, status,
	       prescribed_at, discontinued_at, notes, created_at, updated_at
	FROM medications`

func scanMedication(row rowScanner) (*types.Medication, error) {
	var m types.Medication
	var discontinuedAt sql.NullTime
	err := row.Scan(&m.ID, &m.PatientID, &m.ProviderID, &m.Name, &m.Dosage,
		&m.Frequency, &m.Status, &m.PrescribedAt, &discontinuedAt, &m.Notes,
		&m.CreatedAt, &m.UpdatedAt)
	if err != nil {
		return nil, err
	}
	if discontinuedAt.Valid {
		m.DiscontinuedAt = &discontinuedAt.Time
	}
	return &m, nil
}

func (t *pgTx) InsertMedication(ctx context.Context, med *types.Medication) error {
	if med.ID == "" {
		med.ID = uuid.New().String()
	}
	now := time.Now().UTC()
	med.CreatedAt = now
	med.UpdatedAt = now
	if med.PrescribedAt.IsZero() {
		med.PrescribedAt = now
	}

	_, err := t.tx.ExecContext(ctx, `
		INSERT INTO medications (id, patient_id, provider_id, name, dosage,
			frequency, status, prescribed_at, discontinued_at, notes,
			created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`,
		med.ID, med.PatientID, med.ProviderID, med.Name, med.Dosage,
		med.Frequency, med.Status, med.PrescribedAt,
		nullTime(med.DiscontinuedAt), med.Notes, med.CreatedAt, med.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert medication: %w", err)
	}
	return nil
}

func (t *pgTx) GetMedication(ctx context.Context, id string) (*types.Medication, error) {
	row := t.tx.QueryRowContext(ctx, selectMedication+` WHERE id = $1`, id)
	med, err := scanMedication(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query medication: %w", err)
	}
	return med, nil
}

func (t *pgTx) ListMedications(ctx context.Context, patientID string) ([]*types.Medication, error) {
	rows, err := t.tx.QueryContext(ctx,
		selectMedication+` WHERE patient_id = $1 ORDER BY prescribed_at DESC`,
		patientID)
	if err != nil {
		return nil, fmt.Errorf("failed to list medications: %w", err)
	}
	defer rows.Close()

	var meds []*types.Medication
	for rows.Next() {
		med, err := scanMedication(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan medication: %w", err)
		}
		meds = append(meds, med)
	}
	return meds, rows.Err()
}

func (t *pgTx) UpdateMedication(ctx context.Context, med *types.Medication) error {
	med.UpdatedAt = time.Now().UTC()
	result, err := t.tx.ExecContext(ctx, `
		UPDATE medications
		SET dosage = $2, frequency = $3, status = $4, discontinued_at = $5,
		    notes = $6, updated_at = $7
		WHERE id = $1`,
		med.ID, med.Dosage, med.Frequency, med.Status,
		nullTime(med.DiscontinuedAt), med.Notes, med.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to update medication: %w", err)
	}
	return requireRowAffected(result, "medication")
}

func (t *pgTx) DeleteMedication(ctx context.Context, id string) error {
	result, err := t.tx.ExecContext(ctx, `DELETE FROM medications WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete medication: %w", err)
	}
	return requireRowAffected(result, "medication")
}

// Assessments

const selectAssessment = `
	SELECT id, patient_id, provider_id, assessment_type, score,
	       interpretation, administered_at, created_at, updated_at
	FROM assessments`

func scanAssessment(row rowScanner) (*types.Assessment, error) {
	var a types.Assessment
	err := row.Scan(&a.ID, &a.PatientID, &a.ProviderID, &a.AssessmentType,
		&a.Score, &a.Interpretation, &a.AdministeredAt, &a.CreatedAt,
		&a.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &a, nil
}

func (t *pgTx) InsertAssessment(ctx context.Context, a *types.Assessment) error {
	if a.ID == "" {
		a.ID = uuid.New().String()
	}
	now := time.Now().UTC()
	a.CreatedAt = now
	a.UpdatedAt = now
	if a.AdministeredAt.IsZero() {
		a.AdministeredAt = now
	}

	_, err := t.tx.ExecContext(ctx, `
		INSERT INTO assessments (id, patient_id, provider_id,
			assessment_type, score, interpretation, administered_at,
			created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		a.ID, a.PatientID, a.ProviderID, a.AssessmentType, a.Score,
		a.Interpretation, a.AdministeredAt, a.CreatedAt, a.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert assessment: %w", err)
	}
	return nil
}

func (t *pgTx) GetAssessment(ctx context.Context, id string) (*types.Assessment, error) {
	row := t.tx.QueryRowContext(ctx, selectAssessment+` WHERE id = $1`, id)
	a, err := scanAssessment(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query assessment: %w", err)
	}
	return a, nil
}

func (t *pgTx) ListAssessments(ctx context.Context, patientID string) ([]*types.Assessment, error) {
	rows, err := t.tx.QueryContext(ctx,
		selectAssessment+` WHERE patient_id = $1 ORDER BY administered_at DESC`,
		patientID)
	if err != nil {
		return nil, fmt.Errorf("failed to list assessments: %w", err)
	}
	defer rows.Close()

	var assessments []*types.Assessment
	for rows.Next() {
		a, err := scanAssessment(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan assessment: %w", err)
		}
		assessments = append(assessments, a)
	}
	return assessments, rows.Err()
}

func (t *pgTx) UpdateAssessment(ctx context.Context, a *types.Assessment) error {
	a.UpdatedAt = time.Now().UTC()
	result, err := t.tx.ExecContext(ctx, `
		UPDATE assessments
		SET score = $2, interpretation = $3, updated_at = $4
		WHERE id = $1`,
		a.ID, a.Score, a.Interpretation, a.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to update assessment: %w", err)
	}
	return requireRowAffected(result, "assessment")
}

func (t *pgTx) DeleteAssessment(ctx context.Context, id string) error {
	result, err := t.tx.ExecContext(ctx, `DELETE FROM assessments WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete assessment: %w", err)
	}
	return requireRowAffected(result, "assessment")
}

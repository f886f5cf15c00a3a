package records

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/LPredmore/lh-ehr/pkg/types"
)

// Appointments

const selectAppointment = `
	SELECT id, patient_id, provider_id, start_time, end_time, type, status,
	       is_telehealth, billing_status, location, notes, created_at,
	       updated_at
	FROM appointments`

func scanAppointment(row rowScanner) (*types.Appointment, error) {
	var a types.Appointment
	err := row.Scan(&a.ID, &a.PatientID, &a.ProviderID, &a.StartTime,
		&a.EndTime, &a.Type, &a.Status, &a.IsTelehealth, &a.BillingStatus,
		&a.Location, &a.Notes, &a.CreatedAt, &a.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &a, nil
}

func (t *pgTx) InsertAppointment(ctx context.Context, appt *types.Appointment) error {
	if appt.ID == "" {
		appt.ID = uuid.New().String()
	}
	if appt.Status == "" {
		appt.Status = types.StatusScheduled
	}
	now := time.Now().UTC()
	appt.CreatedAt = now
	appt.UpdatedAt = now

	_, err := t.tx.ExecContext(ctx, `
		INSERT INTO appointments (id, patient_id, provider_id, start_time,
			end_time, type, status, is_telehealth, billing_status, location,
			notes, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`,
		appt.ID, appt.PatientID, appt.ProviderID, appt.StartTime,
		appt.EndTime, appt.Type, appt.Status, appt.IsTelehealth,
		appt.BillingStatus, appt.Location, appt.Notes, appt.CreatedAt,
		appt.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert appointment: %w", err)
	}
	return nil
}

func (t *pgTx) GetAppointment(ctx context.Context, id string) (*types.Appointment, error) {
	row := t.tx.QueryRowContext(ctx, selectAppointment+` WHERE id = $1`, id)
	appt, err := scanAppointment(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query appointment: %w", err)
	}
	return appt, nil
}

func (t *pgTx) ListAppointments(ctx context.Context, filters *types.AppointmentFilters) ([]*types.Appointment, error) {
	query := selectAppointment + ` WHERE 1=1`
	var args []interface{}
	argIdx := 1

	if filters.PatientID != "" {
		query += fmt.Sprintf(` AND patient_id = $%d`, argIdx)
		args = append(args, filters.PatientID)
		argIdx++
	}
	if filters.ProviderID != "" {
		query += fmt.Sprintf(` AND provider_id = $%d`, argIdx)
		args = append(args, filters.ProviderID)
		argIdx++
	}
	if filters.Status != "" {
		query += fmt.Sprintf(` AND status = $%d`, argIdx)
		args = append(args, filters.Status)
		argIdx++
	}
	if !filters.FromDate.IsZero() {
		query += fmt.Sprintf(` AND start_time >= $%d`, argIdx)
		args = append(args, filters.FromDate)
		argIdx++
	}
	if !filters.ToDate.IsZero() {
		query += fmt.Sprintf(` AND start_time <= $%d`, argIdx)
		args = append(args, filters.ToDate)
		argIdx++
	}

	query += ` ORDER BY start_time`
	if filters.Limit > 0 {
		query += fmt.Sprintf(` LIMIT $%d`, argIdx)
		args = append(args, filters.Limit)
		argIdx++
	}
	if filters.Offset > 0 {
		query += fmt.Sprintf(` OFFSET $%d`, argIdx)
		args = append(args, filters.Offset)
	}

	rows, err := t.tx.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list appointments: %w", err)
	}
	defer rows.Close()

	var appts []*types.Appointment
	for rows.Next() {
		appt, err := scanAppointment(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan appointment: %w", err)
		}
		appts = append(appts, appt)
	}
	return appts, rows.Err()
}

func (t *pgTx) UpdateAppointment(ctx context.Context, appt *types.Appointment) error {
	appt.UpdatedAt = time.Now().UTC()
	result, err := t.tx.ExecContext(ctx, `
		UPDATE appointments
		SET start_time = $2, end_time = $3, type = $4, status = $5,
		    is_telehealth = $6, billing_status = $7, location = $8,
		    notes = $9, updated_at = $10
		WHERE id = $1`,
		appt.ID, appt.StartTime, appt.EndTime, appt.Type, appt.Status,
		appt.IsTelehealth, appt.BillingStatus, appt.Location, appt.Notes,
		appt.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to update appointment: %w", err)
	}
	return requireRowAffected(result, "appointment")
}

func (t *pgTx) DeleteAppointment(ctx context.Context, id string) error {
	result, err := t.tx.ExecContext(ctx, `DELETE FROM appointments WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete appointment: %w", err)
	}
	return requireRowAffected(result, "appointment")
}

// Audit records

func (t *pgTx) InsertAuditRecord(ctx context.Context, rec *types.AuditRecord) error {
	if rec.ID == "" {
		rec.ID = uuid.New().String()
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now().UTC()
	}

	changed, err := marshalFields(rec.ChangedFields)
	if err != nil {
		return fmt.Errorf("failed to marshal changed fields: %w", err)
	}
	previous, err := marshalFields(rec.PreviousFields)
	if err != nil {
		return fmt.Errorf("failed to marshal previous fields: %w", err)
	}

	_, err = t.tx.ExecContext(ctx, `
		INSERT INTO audit_records (id, table_name, record_id, action,
			changed_fields, previous_fields, actor_id, ip_address,
			user_agent, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		rec.ID, rec.TableName, rec.RecordID, rec.Action, changed, previous,
		nullString(rec.ActorID), rec.IPAddress, rec.UserAgent, rec.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert audit record: %w", err)
	}
	return nil
}

func (t *pgTx) ListAuditRecords(ctx context.Context, filter *types.AuditFilter) ([]*types.AuditRecord, error) {
	query := `
		SELECT id, table_name, record_id, action, changed_fields,
		       previous_fields, actor_id, ip_address, user_agent, created_at
		FROM audit_records WHERE 1=1`
	var args []interface{}
	argIdx := 1

	if filter.TableName != "" {
		query += fmt.Sprintf(` AND table_name = $%d`, argIdx)
		args = append(args, filter.TableName)
		argIdx++
	}
	if filter.RecordID != "" {
		query += fmt.Sprintf(` AND record_id = $%d`, argIdx)
		args = append(args, filter.RecordID)
		argIdx++
	}
	if filter.ActorID != "" {
		query += fmt.Sprintf(` AND actor_id = $%d`, argIdx)
		args = append(args, filter.ActorID)
		argIdx++
	}
	if filter.Action != "" {
		query += fmt.Sprintf(` AND action = $%d`, argIdx)
		args = append(args, filter.Action)
		argIdx++
	}
	if !filter.CreatedAfter.IsZero() {
		query += fmt.Sprintf(` AND created_at >= $%d`, argIdx)
		args = append(args, filter.CreatedAfter)
		argIdx++
	}
	if !filter.CreatedBefore.IsZero() {
		query += fmt.Sprintf(` AND created_at <= $%d`, argIdx)
		args = append(args, filter.CreatedBefore)
		argIdx++
	}

	query += ` ORDER BY created_at DESC`
	if filter.Limit > 0 {
		query += fmt.Sprintf(` LIMIT $%d`, argIdx)
		args = append(args, filter.Limit)
		argIdx++
	}
	if filter.Offset > 0 {
		query += fmt.Sprintf(` OFFSET $%d`, argIdx)
		args = append(args, filter.Offset)
	}

	rows, err := t.tx.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list audit records: %w", err)
	}
	defer rows.Close()

	var records []*types.AuditRecord
	for rows.Next() {
		rec, err := scanAuditRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan audit record: %w", err)
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

// ListAuditRecordsForPatient returns the audit entries touching the patient's
// chart: the patient row itself plus every clinical row referencing it.
func (t *pgTx) ListAuditRecordsForPatient(ctx context.Context, patientID string, filter *types.AuditFilter) ([]*types.AuditRecord, error) {
	query := `
		SELECT id, table_name, record_id, action, changed_fields,
		       previous_fields, actor_id, ip_address, user_agent, created_at
		FROM audit_records
		WHERE (record_id = $1::text
		   OR record_id IN (SELECT id::text FROM appointments WHERE patient_id = $1)
		   OR record_id IN (SELECT id::text FROM clinical_notes WHERE patient_id = $1)
		   OR record_id IN (SELECT id::text FROM care_plans WHERE patient_id = $1)
		   OR record_id IN (SELECT id::text FROM medications WHERE patient_id = $1)
		   OR record_id IN (SELECT id::text FROM assessments WHERE patient_id = $1))`
	args := []interface{}{patientID}
	argIdx := 2

	if filter.TableName != "" {
		query += fmt.Sprintf(` AND table_name = $%d`, argIdx)
		args = append(args, filter.TableName)
		argIdx++
	}
	if filter.Action != "" {
		query += fmt.Sprintf(` AND action = $%d`, argIdx)
		args = append(args, filter.Action)
		argIdx++
	}
	if !filter.CreatedAfter.IsZero() {
		query += fmt.Sprintf(` AND created_at >= $%d`, argIdx)
		args = append(args, filter.CreatedAfter)
		argIdx++
	}
	if !filter.CreatedBefore.IsZero() {
		query += fmt.Sprintf(` AND created_at <= $%d`, argIdx)
		args = append(args, filter.CreatedBefore)
		argIdx++
	}

	query += ` ORDER BY created_at DESC`
	if filter.Limit > 0 {
		query += fmt.Sprintf(` LIMIT $%d`, argIdx)
		args = append(args, filter.Limit)
	}

	rows, err := t.tx.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list patient audit records: %w", err)
	}
	defer rows.Close()

	var records []*types.AuditRecord
	for rows.Next() {
		rec, err := scanAuditRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan audit record: %w", err)
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

func scanAuditRecord(row rowScanner) (*types.AuditRecord, error) {
	var rec types.AuditRecord
	var changed, previous []byte
	var actorID sql.NullString
	err := row.Scan(&rec.ID, &rec.TableName, &rec.RecordID, &rec.Action,
		&changed, &previous, &actorID, &rec.IPAddress, &rec.UserAgent,
		&rec.CreatedAt)
	if err != nil {
		return nil, err
	}
	rec.ActorID = actorID.String
	if len(changed) > 0 {
		if err := json.Unmarshal(changed, &rec.ChangedFields); err != nil {
			return nil, err
		}
	}
	if len(previous) > 0 {
		if err := json.Unmarshal(previous, &rec.PreviousFields); err != nil {
			return nil, err
		}
	}
	return &rec, nil
}

func marshalFields(fields map[string]interface{}) (interface{}, error) {
	if fields == nil {
		return nil, nil
	}
	return json.Marshal(fields)
}

// Patient summary fragments

func (t *pgTx) LastAppointment(ctx context.Context, patientID string, before time.Time) (*types.Appointment, error) {
	row := t.tx.QueryRowContext(ctx, selectAppointment+`
		WHERE patient_id = $1 AND start_time < $2
		ORDER BY start_time DESC LIMIT 1`, patientID, before)
	appt, err := scanAppointment(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query last appointment: %w", err)
	}
	return appt, nil
}

func (t *pgTx) NextAppointment(ctx context.Context, patientID string, after time.Time) (*types.Appointment, error) {
	row := t.tx.QueryRowContext(ctx, selectAppointment+`
		WHERE patient_id = $1 AND start_time >= $2
		  AND status IN ('scheduled', 'confirmed')
		ORDER BY start_time LIMIT 1`, patientID, after)
	appt, err := scanAppointment(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query next appointment: %w", err)
	}
	return appt, nil
}

func (t *pgTx) ActiveMedications(ctx context.Context, patientID string) ([]*types.Medication, error) {
	rows, err := t.tx.QueryContext(ctx, selectMedication+`
		WHERE patient_id = $1 AND status = 'active'
		ORDER BY prescribed_at DESC`, patientID)
	if err != nil {
		return nil, fmt.Errorf("failed to list active medications: %w", err)
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

func (t *pgTx) RecentAssessments(ctx context.Context, patientID string, limit int) ([]*types.Assessment, error) {
	rows, err := t.tx.QueryContext(ctx, selectAssessment+`
		WHERE patient_id = $1
		ORDER BY administered_at DESC LIMIT $2`, patientID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list recent assessments: %w", err)
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

func (t *pgTx) LatestCarePlan(ctx context.Context, patientID string) (*types.CarePlan, error) {
	row := t.tx.QueryRowContext(ctx, selectCarePlan+`
		WHERE patient_id = $1
		ORDER BY created_at DESC LIMIT 1`, patientID)
	plan, err := scanCarePlan(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query latest care plan: %w", err)
	}
	return plan, nil
}

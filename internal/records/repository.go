package records

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/LPredmore/lh-ehr/pkg/database"
	"github.com/LPredmore/lh-ehr/pkg/logger"
	"github.com/LPredmore/lh-ehr/pkg/types"
)

// pgStore implements Store on PostgreSQL.
type pgStore struct {
	db     *database.DB
	logger *logger.Logger
}

// NewStore creates the PostgreSQL-backed records store.
func NewStore(db *database.DB, log *logger.Logger) Store {
	return &pgStore{db: db, logger: log}
}

// Transact runs fn in a transaction with rollback on error or panic.
func (s *pgStore) Transact(ctx context.Context, fn func(tx Tx) error) error {
	sqlTx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	defer func() {
		if p := recover(); p != nil {
			sqlTx.Rollback()
			panic(p)
		}
	}()

	if err := fn(&pgTx{tx: sqlTx}); err != nil {
		if rbErr := sqlTx.Rollback(); rbErr != nil {
			s.logger.WithError(rbErr).Error("Transaction rollback failed")
		}
		return err
	}

	if err := sqlTx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// FindUserByAuthRef returns the user matching the auth_ref, or (nil, nil).
func (s *pgStore) FindUserByAuthRef(ctx context.Context, authRef string) (*types.User, error) {
	row := s.db.QueryRowContext(ctx, selectUser+` WHERE auth_ref = $1`, authRef)
	user, err := scanUser(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query user by auth_ref: %w", err)
	}
	return user, nil
}

// FindPatientByAuthRef returns the patient matching the auth_ref, or (nil, nil).
func (s *pgStore) FindPatientByAuthRef(ctx context.Context, authRef string) (*types.Patient, error) {
	row := s.db.QueryRowContext(ctx, selectPatient+` WHERE auth_ref = $1`, authRef)
	patient, err := scanPatient(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query patient by auth_ref: %w", err)
	}
	return patient, nil
}

// LockOverdueNotes locks signed notes past the cutoff and writes one
// system-attributed audit record per note, all in a single transaction.
func (s *pgStore) LockOverdueNotes(ctx context.Context, signedBefore time.Time) (int, error) {
	locked := 0
	err := s.Transact(ctx, func(tx Tx) error {
		pgtx := tx.(*pgTx)
		now := time.Now().UTC()

		rows, err := pgtx.tx.QueryContext(ctx, `
			UPDATE clinical_notes
			SET is_locked = true, locked_at = $1, locked_by = provider_id, updated_at = $1
			WHERE is_signed = true AND is_locked = false AND signed_at < $2
			RETURNING id`, now, signedBefore)
		if err != nil {
			return fmt.Errorf("failed to lock overdue notes: %w", err)
		}

		var ids []string
		for rows.Next() {
			var id string
			if err := rows.Scan(&id); err != nil {
				rows.Close()
				return fmt.Errorf("failed to scan locked note id: %w", err)
			}
			ids = append(ids, id)
		}
		rows.Close()
		if err := rows.Err(); err != nil {
			return fmt.Errorf("failed to read locked note ids: %w", err)
		}

		for _, id := range ids {
			rec := &types.AuditRecord{
				TableName: "clinical_notes",
				RecordID:  id,
				Action:    types.AuditUpdate,
				ChangedFields: map[string]interface{}{
					"is_locked": true,
					"locked_at": now,
				},
				PreviousFields: map[string]interface{}{
					"is_locked": false,
					"locked_at": nil,
				},
				CreatedAt: now,
			}
			if err := tx.InsertAuditRecord(ctx, rec); err != nil {
				return err
			}
		}

		locked = len(ids)
		return nil
	})
	return locked, err
}

// pgTx implements Tx over *sql.Tx.
type pgTx struct {
	tx *sql.Tx
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func nullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: *t, Valid: true}
}

// Users

const selectUser = `
	SELECT id, auth_ref, role, first_name, last_name, email, phone,
	       specialty, license_number, is_active, created_at, updated_at
	FROM users`

func scanUser(row rowScanner) (*types.User, error) {
	var u types.User
	err := row.Scan(&u.ID, &u.AuthRef, &u.Role, &u.FirstName, &u.LastName,
		&u.Email, &u.Phone, &u.Specialty, &u.LicenseNumber, &u.IsActive,
		&u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &u, nil
}

func (t *pgTx) InsertUser(ctx context.Context, user *types.User) error {
	if user.ID == "" {
		user.ID = uuid.New().String()
	}
	now := time.Now().UTC()
	user.CreatedAt = now
	user.UpdatedAt = now

	_, err := t.tx.ExecContext(ctx, `
		INSERT INTO users (id, auth_ref, role, first_name, last_name, email,
			phone, specialty, license_number, is_active, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`,
		user.ID, user.AuthRef, user.Role, user.FirstName, user.LastName,
		user.Email, user.Phone, user.Specialty, user.LicenseNumber,
		user.IsActive, user.CreatedAt, user.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert user: %w", err)
	}
	return nil
}

func (t *pgTx) GetUser(ctx context.Context, id string) (*types.User, error) {
	row := t.tx.QueryRowContext(ctx, selectUser+` WHERE id = $1`, id)
	user, err := scanUser(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query user: %w", err)
	}
	return user, nil
}

func (t *pgTx) ListUsers(ctx context.Context, roles []types.UserRole) ([]*types.User, error) {
	query := selectUser
	var args []interface{}
	if len(roles) > 0 {
		roleStrings := make([]string, len(roles))
		for i, r := range roles {
			roleStrings[i] = string(r)
		}
		query += ` WHERE role = ANY($1)`
		args = append(args, pq.Array(roleStrings))
	}
	query += ` ORDER BY last_name, first_name`

	rows, err := t.tx.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}
	defer rows.Close()

	var users []*types.User
	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan user: %w", err)
		}
		users = append(users, user)
	}
	return users, rows.Err()
}

func (t *pgTx) UpdateUser(ctx context.Context, user *types.User) error {
	user.UpdatedAt = time.Now().UTC()
	result, err := t.tx.ExecContext(ctx, `
		UPDATE users
		SET first_name = $2, last_name = $3, email = $4, phone = $5,
		    specialty = $6, license_number = $7, is_active = $8, updated_at = $9
		WHERE id = $1`,
		user.ID, user.FirstName, user.LastName, user.Email, user.Phone,
		user.Specialty, user.LicenseNumber, user.IsActive, user.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to update user: %w", err)
	}
	return requireRowAffected(result, "user")
}

func (t *pgTx) DeleteUser(ctx context.Context, id string) error {
	result, err := t.tx.ExecContext(ctx, `DELETE FROM users WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete user: %w", err)
	}
	return requireRowAffected(result, "user")
}

// Patients

const selectPatient = `
	SELECT id, mrn, auth_ref, primary_provider_id, first_name, last_name,
	       date_of_birth, gender, phone, email, street, city, state,
	       postal_code, emergency_contact_name, emergency_contact_phone,
	       insurance_provider, insurance_policy_number, referral_source,
	       intake_notes, is_active, created_at, updated_at
	FROM patients`

func scanPatient(row rowScanner) (*types.Patient, error) {
	var p types.Patient
	var authRef, primaryProvider sql.NullString
	err := row.Scan(&p.ID, &p.MRN, &authRef, &primaryProvider, &p.FirstName,
		&p.LastName, &p.DateOfBirth, &p.Gender, &p.Phone, &p.Email,
		&p.Street, &p.City, &p.State, &p.PostalCode,
		&p.EmergencyContactName, &p.EmergencyContactPhone,
		&p.InsuranceProvider, &p.InsurancePolicyNumber, &p.ReferralSource,
		&p.IntakeNotes, &p.IsActive, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return nil, err
	}
	p.AuthRef = authRef.String
	p.PrimaryProviderID = primaryProvider.String
	return &p, nil
}

func (t *pgTx) InsertPatient(ctx context.Context, patient *types.Patient) error {
	if patient.ID == "" {
		patient.ID = uuid.New().String()
	}
	now := time.Now().UTC()
	patient.CreatedAt = now
	patient.UpdatedAt = now

	_, err := t.tx.ExecContext(ctx, `
		INSERT INTO patients (id, mrn, auth_ref, primary_provider_id,
			first_name, last_name, date_of_birth, gender, phone, email,
			street, city, state, postal_code, emergency_contact_name,
			emergency_contact_phone, insurance_provider,
			insurance_policy_number, referral_source, intake_notes,
			is_active, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14,
			$15, $16, $17, $18, $19, $20, $21, $22, $23)`,
		patient.ID, patient.MRN, nullString(patient.AuthRef),
		nullString(patient.PrimaryProviderID), patient.FirstName,
		patient.LastName, patient.DateOfBirth, patient.Gender, patient.Phone,
		patient.Email, patient.Street, patient.City, patient.State,
		patient.PostalCode, patient.EmergencyContactName,
		patient.EmergencyContactPhone, patient.InsuranceProvider,
		patient.InsurancePolicyNumber, patient.ReferralSource,
		patient.IntakeNotes, patient.IsActive, patient.CreatedAt,
		patient.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert patient: %w", err)
	}
	return nil
}

func (t *pgTx) GetPatient(ctx context.Context, id string) (*types.Patient, error) {
	row := t.tx.QueryRowContext(ctx, selectPatient+` WHERE id = $1`, id)
	patient, err := scanPatient(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query patient: %w", err)
	}
	return patient, nil
}

func (t *pgTx) ListPatients(ctx context.Context) ([]*types.Patient, error) {
	return t.queryPatients(ctx, selectPatient+` ORDER BY last_name, first_name`)
}

// ListPatientsForProvider returns the provider's caseload: patients assigned
// as primary plus patients sharing any clinical record with the provider.
func (t *pgTx) ListPatientsForProvider(ctx context.Context, providerID string) ([]*types.Patient, error) {
	return t.queryPatients(ctx, selectPatient+`
		WHERE primary_provider_id = $1
		   OR id IN (SELECT patient_id FROM appointments WHERE provider_id = $1)
		   OR id IN (SELECT patient_id FROM clinical_notes WHERE provider_id = $1)
		   OR id IN (SELECT patient_id FROM care_plans WHERE provider_id = $1)
		   OR id IN (SELECT patient_id FROM medications WHERE provider_id = $1)
		   OR id IN (SELECT patient_id FROM assessments WHERE provider_id = $1)
		ORDER BY last_name, first_name`, providerID)
}

func (t *pgTx) queryPatients(ctx context.Context, query string, args ...interface{}) ([]*types.Patient, error) {
	rows, err := t.tx.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list patients: %w", err)
	}
	defer rows.Close()

	var patients []*types.Patient
	for rows.Next() {
		patient, err := scanPatient(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan patient: %w", err)
		}
		patients = append(patients, patient)
	}
	return patients, rows.Err()
}

func (t *pgTx) UpdatePatient(ctx context.Context, patient *types.Patient) error {
	patient.UpdatedAt = time.Now().UTC()
	result, err := t.tx.ExecContext(ctx, `
		UPDATE patients
		SET primary_provider_id = $2, first_name = $3, last_name = $4,
		    date_of_birth = $5, gender = $6, phone = $7, email = $8,
		    street = $9, city = $10, state = $11, postal_code = $12,
		    emergency_contact_name = $13, emergency_contact_phone = $14,
		    insurance_provider = $15, insurance_policy_number = $16,
		    referral_source = $17, intake_notes = $18, is_active = $19,
		    updated_at = $20
		WHERE id = $1`,
		patient.ID, nullString(patient.PrimaryProviderID), patient.FirstName,
		patient.LastName, patient.DateOfBirth, patient.Gender, patient.Phone,
		patient.Email, patient.Street, patient.City, patient.State,
		patient.PostalCode, patient.EmergencyContactName,
		patient.EmergencyContactPhone, patient.InsuranceProvider,
		patient.InsurancePolicyNumber, patient.ReferralSource,
		patient.IntakeNotes, patient.IsActive, patient.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to update patient: %w", err)
	}
	return requireRowAffected(result, "patient")
}

func (t *pgTx) DeletePatient(ctx context.Context, id string) error {
	result, err := t.tx.ExecContext(ctx, `DELETE FROM patients WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete patient: %w", err)
	}
	return requireRowAffected(result, "patient")
}

// HasSharedCare checks the shared clinical record linkage that extends a
// provider's caseload beyond primary assignment.
func (t *pgTx) HasSharedCare(ctx context.Context, providerID, patientID string) (bool, error) {
	var exists bool
	err := t.tx.QueryRowContext(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM appointments WHERE provider_id = $1 AND patient_id = $2
			UNION ALL
			SELECT 1 FROM clinical_notes WHERE provider_id = $1 AND patient_id = $2
			UNION ALL
			SELECT 1 FROM care_plans WHERE provider_id = $1 AND patient_id = $2
			UNION ALL
			SELECT 1 FROM medications WHERE provider_id = $1 AND patient_id = $2
			UNION ALL
			SELECT 1 FROM assessments WHERE provider_id = $1 AND patient_id = $2
		)`, providerID, patientID).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check shared care: %w", err)
	}
	return exists, nil
}

func requireRowAffected(result sql.Result, entity string) error {
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read affected rows: %w", err)
	}
	if affected == 0 {
		return types.NewNotFoundError(entity + " not found")
	}
	return nil
}

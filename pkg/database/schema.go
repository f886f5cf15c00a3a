package database

import (
	"context"
	"fmt"
)

// CreateSchema creates the database schema for the records store
func (db *DB) CreateSchema(ctx context.Context) error {
	db.logger.Info("Creating database schema...")

	if _, err := db.ExecContext(ctx, `CREATE EXTENSION IF NOT EXISTS "uuid-ossp";`); err != nil {
		return fmt.Errorf("failed to create extension: %w", err)
	}

	tables := []string{
		createUsersTable,
		createPatientsTable,
		createAppointmentsTable,
		createClinicalNotesTable,
		createCarePlansTable,
		createMedicationsTable,
		createAssessmentsTable,
		createAuditRecordsTable,
	}

	for _, table := range tables {
		if _, err := db.ExecContext(ctx, table); err != nil {
			return fmt.Errorf("failed to create table: %w", err)
		}
	}

	indexes := []string{
		createUsersIndexes,
		createPatientsIndexes,
		createAppointmentsIndexes,
		createClinicalNotesIndexes,
		createCarePlansIndexes,
		createMedicationsIndexes,
		createAssessmentsIndexes,
		createAuditRecordsIndexes,
	}

	for _, index := range indexes {
		if _, err := db.ExecContext(ctx, index); err != nil {
			return fmt.Errorf("failed to create indexes: %w", err)
		}
	}

	db.logger.Info("Database schema created successfully")
	return nil
}

const createUsersTable = `
CREATE TABLE IF NOT EXISTS users (
	id UUID PRIMARY KEY DEFAULT uuid_generate_v4(),
	auth_ref VARCHAR(255) UNIQUE NOT NULL,
	role VARCHAR(20) NOT NULL CHECK (role IN ('admin', 'provider', 'staff', 'patient')),
	first_name VARCHAR(100) NOT NULL,
	last_name VARCHAR(100) NOT NULL,
	email VARCHAR(255) NOT NULL,
	phone VARCHAR(30) NOT NULL DEFAULT '',
	specialty VARCHAR(100) NOT NULL DEFAULT '',
	license_number VARCHAR(50) NOT NULL DEFAULT '',
	is_active BOOLEAN NOT NULL DEFAULT true,
	created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);`

const createPatientsTable = `
CREATE TABLE IF NOT EXISTS patients (
	id UUID PRIMARY KEY DEFAULT uuid_generate_v4(),
	mrn VARCHAR(50) UNIQUE NOT NULL,
	auth_ref VARCHAR(255) UNIQUE,
	primary_provider_id UUID REFERENCES users(id),
	first_name VARCHAR(100) NOT NULL,
	last_name VARCHAR(100) NOT NULL,
	date_of_birth DATE NOT NULL,
	gender VARCHAR(30) NOT NULL DEFAULT '',
	phone VARCHAR(30) NOT NULL DEFAULT '',
	email VARCHAR(255) NOT NULL DEFAULT '',
	street VARCHAR(255) NOT NULL DEFAULT '',
	city VARCHAR(100) NOT NULL DEFAULT '',
	state VARCHAR(50) NOT NULL DEFAULT '',
	postal_code VARCHAR(20) NOT NULL DEFAULT '',
	emergency_contact_name VARCHAR(200) NOT NULL DEFAULT '',
	emergency_contact_phone VARCHAR(30) NOT NULL DEFAULT '',
	insurance_provider VARCHAR(200) NOT NULL DEFAULT '',
	insurance_policy_number VARCHAR(100) NOT NULL DEFAULT '',
	referral_source VARCHAR(200) NOT NULL DEFAULT '',
	intake_notes TEXT NOT NULL DEFAULT '',
	is_active BOOLEAN NOT NULL DEFAULT true,
	created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);`

const createAppointmentsTable = `
CREATE TABLE IF NOT EXISTS appointments (
	id UUID PRIMARY KEY DEFAULT uuid_generate_v4(),
	patient_id UUID NOT NULL REFERENCES patients(id),
	provider_id UUID NOT NULL REFERENCES users(id),
	start_time TIMESTAMPTZ NOT NULL,
	end_time TIMESTAMPTZ NOT NULL,
	type VARCHAR(50) NOT NULL,
	status VARCHAR(20) NOT NULL DEFAULT 'scheduled'
		CHECK (status IN ('scheduled', 'confirmed', 'completed', 'cancelled', 'no_show')),
	is_telehealth BOOLEAN NOT NULL DEFAULT false,
	billing_status VARCHAR(30) NOT NULL DEFAULT '',
	location VARCHAR(200) NOT NULL DEFAULT '',
	notes TEXT NOT NULL DEFAULT '',
	created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);`

const createClinicalNotesTable = `
CREATE TABLE IF NOT EXISTS clinical_notes (
	id UUID PRIMARY KEY DEFAULT uuid_generate_v4(),
	patient_id UUID NOT NULL REFERENCES patients(id),
	appointment_id UUID REFERENCES appointments(id),
	provider_id UUID NOT NULL REFERENCES users(id),
	note_type VARCHAR(50) NOT NULL,
	subjective TEXT NOT NULL DEFAULT '',
	objective TEXT NOT NULL DEFAULT '',
	assessment TEXT NOT NULL DEFAULT '',
	plan TEXT NOT NULL DEFAULT '',
	diagnosis_codes TEXT[] NOT NULL DEFAULT '{}',
	is_signed BOOLEAN NOT NULL DEFAULT false,
	signed_at TIMESTAMPTZ,
	is_locked BOOLEAN NOT NULL DEFAULT false,
	locked_at TIMESTAMPTZ,
	locked_by UUID,
	created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);`

const createCarePlansTable = `
CREATE TABLE IF NOT EXISTS care_plans (
	id UUID PRIMARY KEY DEFAULT uuid_generate_v4(),
	patient_id UUID NOT NULL REFERENCES patients(id),
	provider_id UUID NOT NULL REFERENCES users(id),
	title VARCHAR(255) NOT NULL,
	goals TEXT NOT NULL DEFAULT '',
	interventions TEXT NOT NULL DEFAULT '',
	status VARCHAR(20) NOT NULL DEFAULT 'active'
		CHECK (status IN ('active', 'completed', 'discontinued')),
	start_date DATE NOT NULL,
	review_date DATE,
	created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);`

const createMedicationsTable = `
CREATE TABLE IF NOT EXISTS medications (
	id UUID PRIMARY KEY DEFAULT uuid_generate_v4(),
	patient_id UUID NOT NULL REFERENCES patients(id),
	provider_id UUID NOT NULL REFERENCES users(id),
	name VARCHAR(255) NOT NULL,
	dosage VARCHAR(100) NOT NULL DEFAULT '',
	frequency VARCHAR(100) NOT NULL DEFAULT '',
	status VARCHAR(20) NOT NULL DEFAULT 'active'
		CHECK (status IN ('active', 'discontinued')),
	prescribed_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	discontinued_at TIMESTAMPTZ,
	notes TEXT NOT NULL DEFAULT '',
	created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);`

const createAssessmentsTable = `
CREATE TABLE IF NOT EXISTS assessments (
	id UUID PRIMARY KEY DEFAULT uuid_generate_v4(),
	patient_id UUID NOT NULL REFERENCES patients(id),
	provider_id UUID NOT NULL REFERENCES users(id),
	assessment_type VARCHAR(50) NOT NULL,
	score INTEGER NOT NULL,
	interpretation VARCHAR(255) NOT NULL DEFAULT '',
	administered_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);`

const createAuditRecordsTable = `
CREATE TABLE IF NOT EXISTS audit_records (
	id UUID PRIMARY KEY DEFAULT uuid_generate_v4(),
	table_name VARCHAR(100) NOT NULL,
	record_id VARCHAR(64) NOT NULL,
	action VARCHAR(10) NOT NULL CHECK (action IN ('INSERT', 'UPDATE', 'DELETE')),
	changed_fields JSONB,
	previous_fields JSONB,
	actor_id UUID,
	ip_address VARCHAR(45) NOT NULL DEFAULT '',
	user_agent VARCHAR(500) NOT NULL DEFAULT '',
	created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);`

const createUsersIndexes = `
CREATE INDEX IF NOT EXISTS idx_users_auth_ref ON users(auth_ref);
CREATE INDEX IF NOT EXISTS idx_users_role ON users(role);`

const createPatientsIndexes = `
CREATE INDEX IF NOT EXISTS idx_patients_auth_ref ON patients(auth_ref);
CREATE INDEX IF NOT EXISTS idx_patients_primary_provider ON patients(primary_provider_id);
CREATE INDEX IF NOT EXISTS idx_patients_mrn ON patients(mrn);`

const createAppointmentsIndexes = `
CREATE INDEX IF NOT EXISTS idx_appointments_patient ON appointments(patient_id);
CREATE INDEX IF NOT EXISTS idx_appointments_provider ON appointments(provider_id);
CREATE INDEX IF NOT EXISTS idx_appointments_start_time ON appointments(start_time);
CREATE INDEX IF NOT EXISTS idx_appointments_status ON appointments(status);`

const createClinicalNotesIndexes = `
CREATE INDEX IF NOT EXISTS idx_clinical_notes_patient ON clinical_notes(patient_id);
CREATE INDEX IF NOT EXISTS idx_clinical_notes_provider ON clinical_notes(provider_id);
CREATE INDEX IF NOT EXISTS idx_clinical_notes_appointment ON clinical_notes(appointment_id);
CREATE INDEX IF NOT EXISTS idx_clinical_notes_lockable ON clinical_notes(signed_at)
	WHERE is_signed = true AND is_locked = false;`

const createCarePlansIndexes = `
CREATE INDEX IF NOT EXISTS idx_care_plans_patient ON care_plans(patient_id);
CREATE INDEX IF NOT EXISTS idx_care_plans_provider ON care_plans(provider_id);`

const createMedicationsIndexes = `
CREATE INDEX IF NOT EXISTS idx_medications_patient ON medications(patient_id);
CREATE INDEX IF NOT EXISTS idx_medications_provider ON medications(provider_id);
CREATE INDEX IF NOT EXISTS idx_medications_status ON medications(status);`

const createAssessmentsIndexes = `
CREATE INDEX IF NOT EXISTS idx_assessments_patient ON assessments(patient_id);
CREATE INDEX IF NOT EXISTS idx_assessments_provider ON assessments(provider_id);
CREATE INDEX IF NOT EXISTS idx_assessments_type ON assessments(assessment_type);`

const createAuditRecordsIndexes = `
CREATE INDEX IF NOT EXISTS idx_audit_records_table_record ON audit_records(table_name, record_id);
CREATE INDEX IF NOT EXISTS idx_audit_records_actor ON audit_records(actor_id);
CREATE INDEX IF NOT EXISTS idx_audit_records_created ON audit_records(created_at);`

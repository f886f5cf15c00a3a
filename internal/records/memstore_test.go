package records

import (
	"context"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/LPredmore/lh-ehr/pkg/types"
)

// memStore is an in-memory Store and Tx for service tests. Transact hands the
// store itself to fn; commit/rollback semantics are not modeled since the
// tests assert on end state, not on partial failure recovery.
type memStore struct {
	users        map[string]*types.User
	patients     map[string]*types.Patient
	appointments map[string]*types.Appointment
	notes        map[string]*types.ClinicalNote
	carePlans    map[string]*types.CarePlan
	medications  map[string]*types.Medication
	assessments  map[string]*types.Assessment
	auditRecords []*types.AuditRecord
}

func newMemStore() *memStore {
	return &memStore{
		users:        make(map[string]*types.User),
		patients:     make(map[string]*types.Patient),
		appointments: make(map[string]*types.Appointment),
		notes:        make(map[string]*types.ClinicalNote),
		carePlans:    make(map[string]*types.CarePlan),
		medications:  make(map[string]*types.Medication),
		assessments:  make(map[string]*types.Assessment),
	}
}

func (m *memStore) Transact(ctx context.Context, fn func(tx Tx) error) error {
	return fn(m)
}

func (m *memStore) FindUserByAuthRef(ctx context.Context, authRef string) (*types.User, error) {
	for _, u := range m.users {
		if u.AuthRef == authRef {
			return u, nil
		}
	}
	return nil, nil
}

func (m *memStore) FindPatientByAuthRef(ctx context.Context, authRef string) (*types.Patient, error) {
	for _, p := range m.patients {
		if p.AuthRef != "" && p.AuthRef == authRef {
			return p, nil
		}
	}
	return nil, nil
}

func (m *memStore) LockOverdueNotes(ctx context.Context, signedBefore time.Time) (int, error) {
	now := time.Now().UTC()
	count := 0
	for _, n := range m.notes {
		if n.IsSigned && !n.IsLocked && n.SignedAt != nil && n.SignedAt.Before(signedBefore) {
			n.IsLocked = true
			n.LockedAt = &now
			n.LockedBy = n.ProviderID
			m.auditRecords = append(m.auditRecords, &types.AuditRecord{
				TableName: "clinical_notes",
				RecordID:  n.ID,
				Action:    types.AuditUpdate,
				CreatedAt: now,
			})
			count++
		}
	}
	return count, nil
}

// Users

func (m *memStore) InsertUser(ctx context.Context, user *types.User) error {
	if user.ID == "" {
		user.ID = uuid.New().String()
	}
	m.users[user.ID] = user
	return nil
}

func (m *memStore) GetUser(ctx context.Context, id string) (*types.User, error) {
	return m.users[id], nil
}

func (m *memStore) ListUsers(ctx context.Context, roles []types.UserRole) ([]*types.User, error) {
	var out []*types.User
	for _, u := range m.users {
		if len(roles) == 0 {
			out = append(out, u)
			continue
		}
		for _, r := range roles {
			if u.Role == r {
				out = append(out, u)
				break
			}
		}
	}
	return out, nil
}

func (m *memStore) UpdateUser(ctx context.Context, user *types.User) error {
	m.users[user.ID] = user
	return nil
}

func (m *memStore) DeleteUser(ctx context.Context, id string) error {
	delete(m.users, id)
	return nil
}

// Patients

func (m *memStore) InsertPatient(ctx context.Context, patient *types.Patient) error {
	if patient.ID == "" {
		patient.ID = uuid.New().String()
	}
	m.patients[patient.ID] = patient
	return nil
}

func (m *memStore) GetPatient(ctx context.Context, id string) (*types.Patient, error) {
	return m.patients[id], nil
}

func (m *memStore) ListPatients(ctx context.Context) ([]*types.Patient, error) {
	var out []*types.Patient
	for _, p := range m.patients {
		out = append(out, p)
	}
	return out, nil
}

func (m *memStore) ListPatientsForProvider(ctx context.Context, providerID string) ([]*types.Patient, error) {
	var out []*types.Patient
	for _, p := range m.patients {
		if p.PrimaryProviderID == providerID {
			out = append(out, p)
			continue
		}
		shared, _ := m.HasSharedCare(ctx, providerID, p.ID)
		if shared {
			out = append(out, p)
		}
	}
	return out, nil
}

func (m *memStore) UpdatePatient(ctx context.Context, patient *types.Patient) error {
	m.patients[patient.ID] = patient
	return nil
}

func (m *memStore) DeletePatient(ctx context.Context, id string) error {
	delete(m.patients, id)
	return nil
}

func (m *memStore) HasSharedCare(ctx context.Context, providerID, patientID string) (bool, error) {
	for _, a := range m.appointments {
		if a.ProviderID == providerID && a.PatientID == patientID {
			return true, nil
		}
	}
	for _, n := range m.notes {
		if n.ProviderID == providerID && n.PatientID == patientID {
			return true, nil
		}
	}
	for _, c := range m.carePlans {
		if c.ProviderID == providerID && c.PatientID == patientID {
			return true, nil
		}
	}
	for _, med := range m.medications {
		if med.ProviderID == providerID && med.PatientID == patientID {
			return true, nil
		}
	}
	for _, a := range m.assessments {
		if a.ProviderID == providerID && a.PatientID == patientID {
			return true, nil
		}
	}
	return false, nil
}

// Appointments

func (m *memStore) InsertAppointment(ctx context.Context, appt *types.Appointment) error {
	if appt.ID == "" {
		appt.ID = uuid.New().String()
	}
	m.appointments[appt.ID] = appt
	return nil
}

func (m *memStore) GetAppointment(ctx context.Context, id string) (*types.Appointment, error) {
	return m.appointments[id], nil
}

func (m *memStore) ListAppointments(ctx context.Context, filters *types.AppointmentFilters) ([]*types.Appointment, error) {
	var out []*types.Appointment
	for _, a := range m.appointments {
		if filters.PatientID != "" && a.PatientID != filters.PatientID {
			continue
		}
		if filters.ProviderID != "" && a.ProviderID != filters.ProviderID {
			continue
		}
		if filters.Status != "" && a.Status != filters.Status {
			continue
		}
		out = append(out, a)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].StartTime.Before(out[j].StartTime) })
	return out, nil
}

func (m *memStore) UpdateAppointment(ctx context.Context, appt *types.Appointment) error {
	m.appointments[appt.ID] = appt
	return nil
}

func (m *memStore) DeleteAppointment(ctx context.Context, id string) error {
	delete(m.appointments, id)
	return nil
}

// Clinical notes

func (m *memStore) InsertClinicalNote(ctx context.Context, note *types.ClinicalNote) error {
	if note.ID == "" {
		note.ID = uuid.New().String()
	}
	m.notes[note.ID] = note
	return nil
}

func (m *memStore) GetClinicalNote(ctx context.Context, id string) (*types.ClinicalNote, error) {
	return m.notes[id], nil
}

func (m *memStore) ListClinicalNotes(ctx context.Context, patientID string) ([]*types.ClinicalNote, error) {
	var out []*types.ClinicalNote
	for _, n := range m.notes {
		if n.PatientID == patientID {
			out = append(out, n)
		}
	}
	return out, nil
}

func (m *memStore) UpdateClinicalNote(ctx context.Context, note *types.ClinicalNote) error {
	m.notes[note.ID] = note
	return nil
}

func (m *memStore) DeleteClinicalNote(ctx context.Context, id string) error {
	delete(m.notes, id)
	return nil
}

func (m *memStore) HasNoteForAppointment(ctx context.Context, appointmentID string) (bool, error) {
	for _, n := range m.notes {
		if n.AppointmentID == appointmentID {
			return true, nil
		}
	}
	return false, nil
}

// Care plans

func (m *memStore) InsertCarePlan(ctx context.Context, plan *types.CarePlan) error {
	if plan.ID == "" {
		plan.ID = uuid.New().String()
	}
	m.carePlans[plan.ID] = plan
	return nil
}

func (m *memStore) GetCarePlan(ctx context.Context, id string) (*types.CarePlan, error) {
	return m.carePlans[id], nil
}

func (m *memStore) ListCarePlans(ctx context.Context, patientID string) ([]*types.CarePlan, error) {
	var out []*types.CarePlan
	for _, c := range m.carePlans {
		if c.PatientID == patientID {
			out = append(out, c)
		}
	}
	return out, nil
}

func (m *memStore) UpdateCarePlan(ctx context.Context, plan *types.CarePlan) error {
	m.carePlans[plan.ID] = plan
	return nil
}

func (m *memStore) DeleteCarePlan(ctx context.Context, id string) error {
	delete(m.carePlans, id)
	return nil
}

// Medications

func (m *memStore) InsertMedication(ctx context.Context, med *types.Medication) error {
	if med.ID == "" {
		med.ID = uuid.New().String()
	}
	m.medications[med.ID] = med
	return nil
}

func (m *memStore) GetMedication(ctx context.Context, id string) (*types.Medication, error) {
	return m.medications[id], nil
}

func (m *memStore) ListMedications(ctx context.Context, patientID string) ([]*types.Medication, error) {
	var out []*types.Medication
	for _, med := range m.medications {
		if med.PatientID == patientID {
			out = append(out, med)
		}
	}
	return out, nil
}

func (m *memStore) UpdateMedication(ctx context.Context, med *types.Medication) error {
	m.medications[med.ID] = med
	return nil
}

func (m *memStore) DeleteMedication(ctx context.Context, id string) error {
	delete(m.medications, id)
	return nil
}

// Assessments

func (m *memStore) InsertAssessment(ctx context.Context, a *types.Assessment) error {
	if a.ID == "" {
		a.ID = uuid.New().String()
	}
	m.assessments[a.ID] = a
	return nil
}

func (m *memStore) GetAssessment(ctx context.Context, id string) (*types.Assessment, error) {
	return m.assessments[id], nil
}

func (m *memStore) ListAssessments(ctx context.Context, patientID string) ([]*types.Assessment, error) {
	var out []*types.Assessment
	for _, a := range m.assessments {
		if a.PatientID == patientID {
			out = append(out, a)
		}
	}
	return out, nil
}

func (m *memStore) UpdateAssessment(ctx context.Context, a *types.Assessment) error {
	m.assessments[a.ID] = a
	return nil
}

func (m *memStore) DeleteAssessment(ctx context.Context, id string) error {
	delete(m.assessments, id)
	return nil
}

// Audit trail

func (m *memStore) InsertAuditRecord(ctx context.Context, rec *types.AuditRecord) error {
	if rec.ID == "" {
		rec.ID = uuid.New().String()
	}
	m.auditRecords = append(m.auditRecords, rec)
	return nil
}

func (m *memStore) ListAuditRecords(ctx context.Context, filter *types.AuditFilter) ([]*types.AuditRecord, error) {
	var out []*types.AuditRecord
	for _, rec := range m.auditRecords {
		if filter.TableName != "" && rec.TableName != filter.TableName {
			continue
		}
		if filter.Action != "" && rec.Action != filter.Action {
			continue
		}
		out = append(out, rec)
	}
	return out, nil
}

func (m *memStore) ListAuditRecordsForPatient(ctx context.Context, patientID string, filter *types.AuditFilter) ([]*types.AuditRecord, error) {
	ids := map[string]bool{patientID: true}
	for _, a := range m.appointments {
		if a.PatientID == patientID {
			ids[a.ID] = true
		}
	}
	for _, n := range m.notes {
		if n.PatientID == patientID {
			ids[n.ID] = true
		}
	}
	for _, c := range m.carePlans {
		if c.PatientID == patientID {
			ids[c.ID] = true
		}
	}
	for _, med := range m.medications {
		if med.PatientID == patientID {
			ids[med.ID] = true
		}
	}
	for _, a := range m.assessments {
		if a.PatientID == patientID {
			ids[a.ID] = true
		}
	}

	var out []*types.AuditRecord
	for _, rec := range m.auditRecords {
		if !ids[rec.RecordID] {
			continue
		}
		if filter.TableName != "" && rec.TableName != filter.TableName {
			continue
		}
		out = append(out, rec)
	}
	return out, nil
}

// Patient summary fragments

func (m *memStore) LastAppointment(ctx context.Context, patientID string, before time.Time) (*types.Appointment, error) {
	var last *types.Appointment
	for _, a := range m.appointments {
		if a.PatientID != patientID || !a.StartTime.Before(before) {
			continue
		}
		if last == nil || a.StartTime.After(last.StartTime) {
			last = a
		}
	}
	return last, nil
}

func (m *memStore) NextAppointment(ctx context.Context, patientID string, after time.Time) (*types.Appointment, error) {
	var next *types.Appointment
	for _, a := range m.appointments {
		if a.PatientID != patientID || !a.StartTime.After(after) {
			continue
		}
		if a.Status != types.StatusScheduled && a.Status != types.StatusConfirmed {
			continue
		}
		if next == nil || a.StartTime.Before(next.StartTime) {
			next = a
		}
	}
	return next, nil
}

func (m *memStore) ActiveMedications(ctx context.Context, patientID string) ([]*types.Medication, error) {
	var out []*types.Medication
	for _, med := range m.medications {
		if med.PatientID == patientID && med.Status == types.MedicationActive {
			out = append(out, med)
		}
	}
	return out, nil
}

func (m *memStore) RecentAssessments(ctx context.Context, patientID string, limit int) ([]*types.Assessment, error) {
	var out []*types.Assessment
	for _, a := range m.assessments {
		if a.PatientID == patientID {
			out = append(out, a)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].AdministeredAt.After(out[j].AdministeredAt) })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (m *memStore) LatestCarePlan(ctx context.Context, patientID string) (*types.CarePlan, error) {
	var latest *types.CarePlan
	for _, c := range m.carePlans {
		if c.PatientID != patientID {
			continue
		}
		if latest == nil || c.StartDate.After(latest.StartDate) {
			latest = c
		}
	}
	return latest, nil
}

package types

import "time"

// Clinical note types
const (
	NoteTypeIntake       = "intake"
	NoteTypeProgress     = "progress_note"
	NoteTypeDischarge    = "discharge_summary"
	NoteTypeConsultation = "consultation"
)

// ClinicalNote represents a SOAP-format clinical note. Once IsLocked is set
// no field may change through the normal update path, for any role. Notes
// lock automatically seven days after signing (see the lock sweep).
type ClinicalNote struct {
	ID             string     `json:"id" db:"id"`
	PatientID      string     `json:"patient_id" db:"patient_id"`
	AppointmentID  string     `json:"appointment_id,omitempty" db:"appointment_id"`
	ProviderID     string     `json:"provider_id" db:"provider_id"`
	NoteType       string     `json:"note_type" db:"note_type"`
	Subjective     string     `json:"subjective" db:"subjective"`
	Objective      string     `json:"objective" db:"objective"`
	Assessment     string     `json:"assessment" db:"assessment"`
	Plan           string     `json:"plan" db:"plan"`
	DiagnosisCodes []string   `json:"diagnosis_codes" db:"diagnosis_codes"`
	IsSigned       bool       `json:"is_signed" db:"is_signed"`
	SignedAt       *time.Time `json:"signed_at,omitempty" db:"signed_at"`
	IsLocked       bool       `json:"is_locked" db:"is_locked"`
	LockedAt       *time.Time `json:"locked_at,omitempty" db:"locked_at"`
	LockedBy       string     `json:"locked_by,omitempty" db:"locked_by"`
	CreatedAt      time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at" db:"updated_at"`
}

// ClinicalNoteUpdates represents updates to an unlocked clinical note.
type ClinicalNoteUpdates struct {
	NoteType       *string   `json:"note_type,omitempty"`
	Subjective     *string   `json:"subjective,omitempty"`
	Objective      *string   `json:"objective,omitempty"`
	Assessment     *string   `json:"assessment,omitempty"`
	Plan           *string   `json:"plan,omitempty"`
	DiagnosisCodes *[]string `json:"diagnosis_codes,omitempty"`
}

// AuditFields returns the persistable fields of the note for audit diffing.
func (n *ClinicalNote) AuditFields() map[string]interface{} {
	return map[string]interface{}{
		"patient_id":      n.PatientID,
		"appointment_id":  n.AppointmentID,
		"provider_id":     n.ProviderID,
		"note_type":       n.NoteType,
		"subjective":      n.Subjective,
		"objective":       n.Objective,
		"assessment":      n.Assessment,
		"plan":            n.Plan,
		"diagnosis_codes": n.DiagnosisCodes,
		"is_signed":       n.IsSigned,
		"signed_at":       n.SignedAt,
		"is_locked":       n.IsLocked,
		"locked_at":       n.LockedAt,
		"locked_by":       n.LockedBy,
		"created_at":      n.CreatedAt,
		"updated_at":      n.UpdatedAt,
	}
}

// Care plan status values
const (
	CarePlanActive       = "active"
	CarePlanCompleted    = "completed"
	CarePlanDiscontinued = "discontinued"
)

// CarePlan represents a treatment plan owned by the creating provider and
// visible to the patient's care team.
type CarePlan struct {
	ID            string     `json:"id" db:"id"`
	PatientID     string     `json:"patient_id" db:"patient_id"`
	ProviderID    string     `json:"provider_id" db:"provider_id"`
	Title         string     `json:"title" db:"title"`
	Goals         string     `json:"goals" db:"goals"`
	Interventions string     `json:"interventions" db:"interventions"`
	Status        string     `json:"status" db:"status"`
	StartDate     time.Time  `json:"start_date" db:"start_date"`
	ReviewDate    *time.Time `json:"review_date,omitempty" db:"review_date"`
	CreatedAt     time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at" db:"updated_at"`
}

// CarePlanUpdates represents updates to a care plan.
type CarePlanUpdates struct {
	Title         *string    `json:"title,omitempty"`
	Goals         *string    `json:"goals,omitempty"`
	Interventions *string    `json:"interventions,omitempty"`
	Status        *string    `json:"status,omitempty"`
	ReviewDate    *time.Time `json:"review_date,omitempty"`
}

// AuditFields returns the persistable fields of the care plan for audit diffing.
func (c *CarePlan) AuditFields() map[string]interface{} {
	return map[string]interface{}{
		"patient_id":    c.PatientID,
		"provider_id":   c.ProviderID,
		"title":         c.Title,
		"goals":         c.Goals,
		"interventions": c.Interventions,
		"status":        c.Status,
		"start_date":    c.StartDate,
		"review_date":   c.ReviewDate,
		"created_at":    c.CreatedAt,
		"updated_at":    c.UpdatedAt,
	}
}

// Medication status values
const (
	MedicationActive       = "active"
	MedicationDiscontinued = "discontinued"
)

// Medication represents a prescribed medication.
type Medication struct {
	ID             string     `json:"id" db:"id"`
	PatientID      string     `json:"patient_id" db:"patient_id"`
	ProviderID     string     `json:"provider_id" db:"provider_id"`
	Name           string     `json:"name" db:"name"`
	Dosage         string     `json:"dosage" db:"dosage"`
	Frequency      string     `json:"frequency" db:"frequency"`
	Status         string     `json:"status" db:"status"`
	PrescribedAt   time.Time  `json:"prescribed_at" db:"prescribed_at"`
	DiscontinuedAt *time.Time `json:"discontinued_at,omitempty" db:"discontinued_at"`
	Notes          string     `json:"notes" db:"notes"`
	CreatedAt      time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at" db:"updated_at"`
}

// MedicationUpdates represents updates to a medication.
type MedicationUpdates struct {
	Dosage         *string    `json:"dosage,omitempty"`
	Frequency      *string    `json:"frequency,omitempty"`
	Status         *string    `json:"status,omitempty"`
	DiscontinuedAt *time.Time `json:"discontinued_at,omitempty"`
	Notes          *string    `json:"notes,omitempty"`
}

// AuditFields returns the persistable fields of the medication for audit diffing.
func (m *Medication) AuditFields() map[string]interface{} {
	return map[string]interface{}{
		"patient_id":      m.PatientID,
		"provider_id":     m.ProviderID,
		"name":            m.Name,
		"dosage":          m.Dosage,
		"frequency":       m.Frequency,
		"status":          m.Status,
		"prescribed_at":   m.PrescribedAt,
		"discontinued_at": m.DiscontinuedAt,
		"notes":           m.Notes,
		"created_at":      m.CreatedAt,
		"updated_at":      m.UpdatedAt,
	}
}

// Standardized assessment instruments
const (
	AssessmentPHQ9 = "PHQ-9"
	AssessmentGAD7 = "GAD-7"
)

// HighRiskScoreThreshold is the score at or above which a PHQ-9 or GAD-7
// assessment triggers a high-risk notification to the assigned provider.
const HighRiskScoreThreshold = 15

// Assessment represents an administered standardized assessment.
type Assessment struct {
	ID             string    `json:"id" db:"id"`
	PatientID      string    `json:"patient_id" db:"patient_id"`
	ProviderID     string    `json:"provider_id" db:"provider_id"`
	AssessmentType string    `json:"assessment_type" db:"assessment_type"`
	Score          int       `json:"score" db:"score"`
	Interpretation string    `json:"interpretation" db:"interpretation"`
	AdministeredAt time.Time `json:"administered_at" db:"administered_at"`
	CreatedAt      time.Time `json:"created_at" db:"created_at"`
	UpdatedAt      time.Time `json:"updated_at" db:"updated_at"`
}

// AssessmentUpdates represents updates to an assessment.
type AssessmentUpdates struct {
	Score          *int    `json:"score,omitempty"`
	Interpretation *string `json:"interpretation,omitempty"`
}

// AuditFields returns the persistable fields of the assessment for audit diffing.
func (a *Assessment) AuditFields() map[string]interface{} {
	return map[string]interface{}{
		"patient_id":      a.PatientID,
		"provider_id":     a.ProviderID,
		"assessment_type": a.AssessmentType,
		"score":           a.Score,
		"interpretation":  a.Interpretation,
		"administered_at": a.AdministeredAt,
		"created_at":      a.CreatedAt,
		"updated_at":      a.UpdatedAt,
	}
}

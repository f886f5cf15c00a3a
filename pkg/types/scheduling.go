package types

import "time"

// AppointmentStatus represents appointment status values
type AppointmentStatus string

const (
	StatusScheduled AppointmentStatus = "scheduled"
	StatusConfirmed AppointmentStatus = "confirmed"
	StatusCompleted AppointmentStatus = "completed"
	StatusCancelled AppointmentStatus = "cancelled"
	StatusNoShow    AppointmentStatus = "no_show"
)

// IsValid reports whether the status is one of the recognized values.
func (s AppointmentStatus) IsValid() bool {
	switch s {
	case StatusScheduled, StatusConfirmed, StatusCompleted, StatusCancelled, StatusNoShow:
		return true
	}
	return false
}

// Appointment types
const (
	AppointmentConsultation = "consultation"
	AppointmentFollowUp     = "follow_up"
	AppointmentIntake       = "intake"
	AppointmentTherapy      = "therapy"
)

// DefaultFollowUpDays is the default offset for a cloned follow-up appointment.
const DefaultFollowUpDays = 14

// Appointment represents a scheduled appointment. Transition into the
// completed status creates the visit's clinical note stub.
type Appointment struct {
	ID            string            `json:"id" db:"id"`
	PatientID     string            `json:"patient_id" db:"patient_id"`
	ProviderID    string            `json:"provider_id" db:"provider_id"`
	StartTime     time.Time         `json:"start_time" db:"start_time"`
	EndTime       time.Time         `json:"end_time" db:"end_time"`
	Type          string            `json:"type" db:"type"`
	Status        AppointmentStatus `json:"status" db:"status"`
	IsTelehealth  bool              `json:"is_telehealth" db:"is_telehealth"`
	BillingStatus string            `json:"billing_status" db:"billing_status"`
	Location      string            `json:"location" db:"location"`
	Notes         string            `json:"notes" db:"notes"`
	CreatedAt     time.Time         `json:"created_at" db:"created_at"`
	UpdatedAt     time.Time         `json:"updated_at" db:"updated_at"`
}

// AppointmentUpdates represents updates to an appointment.
type AppointmentUpdates struct {
	StartTime     *time.Time         `json:"start_time,omitempty"`
	EndTime       *time.Time         `json:"end_time,omitempty"`
	Type          *string            `json:"type,omitempty"`
	Status        *AppointmentStatus `json:"status,omitempty"`
	IsTelehealth  *bool              `json:"is_telehealth,omitempty"`
	BillingStatus *string            `json:"billing_status,omitempty"`
	Location      *string            `json:"location,omitempty"`
	Notes         *string            `json:"notes,omitempty"`
}

// AppointmentFilters represents filters for appointment queries.
type AppointmentFilters struct {
	PatientID  string            `json:"patient_id,omitempty"`
	ProviderID string            `json:"provider_id,omitempty"`
	Status     AppointmentStatus `json:"status,omitempty"`
	FromDate   time.Time         `json:"from_date,omitempty"`
	ToDate     time.Time         `json:"to_date,omitempty"`
	Limit      int               `json:"limit,omitempty"`
	Offset     int               `json:"offset,omitempty"`
}

// AuditFields returns the persistable fields of the appointment for audit diffing.
func (a *Appointment) AuditFields() map[string]interface{} {
	return map[string]interface{}{
		"patient_id":     a.PatientID,
		"provider_id":    a.ProviderID,
		"start_time":     a.StartTime,
		"end_time":       a.EndTime,
		"type":           a.Type,
		"status":         string(a.Status),
		"is_telehealth":  a.IsTelehealth,
		"billing_status": a.BillingStatus,
		"location":       a.Location,
		"notes":          a.Notes,
		"created_at":     a.CreatedAt,
		"updated_at":     a.UpdatedAt,
	}
}

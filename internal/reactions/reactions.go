package reactions

import (
	"time"

	"github.com/LPredmore/lh-ehr/pkg/types"
)

// CompletionCreatesNoteStub reports whether a status change is the transition
// into completed. Only the actual transition fires the stub; re-saving an
// already-completed appointment does not.
func CompletionCreatesNoteStub(prev, next types.AppointmentStatus) bool {
	return prev != types.StatusCompleted && next == types.StatusCompleted
}

// NoteStubForAppointment builds the draft progress note created when an
// appointment completes. The stub carries the visit's patient, provider and
// appointment references and empty SOAP sections for the provider to fill in.
func NoteStubForAppointment(appt *types.Appointment) *types.ClinicalNote {
	return &types.ClinicalNote{
		PatientID:      appt.PatientID,
		AppointmentID:  appt.ID,
		ProviderID:     appt.ProviderID,
		NoteType:       types.NoteTypeProgress,
		DiagnosisCodes: []string{},
	}
}

// FollowUpAppointment builds a follow-up visit cloned from the source
// appointment, shifted forward by days and reset to scheduled. Duration, type
// flags and location carry over.
func FollowUpAppointment(src *types.Appointment, days int) *types.Appointment {
	if days <= 0 {
		days = types.DefaultFollowUpDays
	}
	offset := time.Duration(days) * 24 * time.Hour
	return &types.Appointment{
		PatientID:    src.PatientID,
		ProviderID:   src.ProviderID,
		StartTime:    src.StartTime.Add(offset),
		EndTime:      src.EndTime.Add(offset),
		Type:         types.AppointmentFollowUp,
		Status:       types.StatusScheduled,
		IsTelehealth: src.IsTelehealth,
		Location:     src.Location,
	}
}

package records

import (
	"context"

	"github.com/LPredmore/lh-ehr/internal/policy"
	"github.com/LPredmore/lh-ehr/internal/reactions"
	"github.com/LPredmore/lh-ehr/pkg/monitoring"
	"github.com/LPredmore/lh-ehr/pkg/types"
)

// CreateAppointment schedules a visit. A provider may only book themselves;
// staff and admin may book any provider.
func (s *Service) CreateAppointment(ctx context.Context, p policy.Principal, appt *types.Appointment) (*types.Appointment, error) {
	if err := validateAppointment(appt); err != nil {
		return nil, err
	}

	err := s.store.Transact(ctx, func(tx Tx) error {
		snap := policy.Snapshot{
			Type:       policy.ResourceAppointment,
			PatientID:  appt.PatientID,
			ProviderID: appt.ProviderID,
		}
		if err := resolvePatientFacts(ctx, tx, p, appt.PatientID, &snap); err != nil {
			return err
		}
		if err := s.authorizeWrite(p, policy.OpCreate, snap); err != nil {
			return err
		}
		if err := tx.InsertAppointment(ctx, appt); err != nil {
			return err
		}
		rec := s.recorder.ForInsert("appointments", appt.ID, appt.AuditFields(), actorFrom(ctx, p))
		if err := s.recorder.Record(ctx, tx, rec); err != nil {
			return err
		}

		// An appointment born completed still owes the visit its note stub.
		if appt.Status == types.StatusCompleted {
			return s.createNoteStub(ctx, tx, p, appt)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return appt, nil
}

// GetAppointment returns an appointment subject to row-level access.
func (s *Service) GetAppointment(ctx context.Context, p policy.Principal, id string) (*types.Appointment, error) {
	var appt *types.Appointment
	err := s.store.Transact(ctx, func(tx Tx) error {
		row, snap, err := s.loadAppointment(ctx, tx, p, id)
		if err != nil {
			return err
		}
		if err := s.authorizeRead(p, snap); err != nil {
			return err
		}
		appt = row
		return nil
	})
	if err != nil {
		return nil, err
	}
	return appt, nil
}

func (s *Service) loadAppointment(ctx context.Context, tx Tx, p policy.Principal, id string) (*types.Appointment, policy.Snapshot, error) {
	row, err := tx.GetAppointment(ctx, id)
	if err != nil {
		return nil, policy.Snapshot{}, err
	}
	if row == nil {
		return nil, policy.Snapshot{}, types.NewNotFoundError("appointment not found")
	}
	snap := policy.Snapshot{
		Type:       policy.ResourceAppointment,
		ID:         row.ID,
		PatientID:  row.PatientID,
		ProviderID: row.ProviderID,
	}
	if err := resolvePatientFacts(ctx, tx, p, row.PatientID, &snap); err != nil {
		return nil, policy.Snapshot{}, err
	}
	return row, snap, nil
}

// ListAppointments returns appointments scoped to the principal: providers
// see their own schedule, patients their own visits, staff and admin may
// filter freely.
func (s *Service) ListAppointments(ctx context.Context, p policy.Principal, filters *types.AppointmentFilters) ([]*types.Appointment, error) {
	if !p.Authenticated() {
		return nil, types.NewUnauthenticatedError("no principal")
	}
	if filters == nil {
		filters = &types.AppointmentFilters{}
	}

	switch {
	case p.IsAdmin(), p.IsStaff():
		// unrestricted filters
	case p.IsProvider():
		filters.ProviderID = p.UserID
	case p.IsPatient():
		filters.PatientID = p.PatientID
	default:
		return nil, types.NewForbiddenError("appointment listing not permitted")
	}

	var appts []*types.Appointment
	err := s.store.Transact(ctx, func(tx Tx) error {
		var err error
		appts, err = tx.ListAppointments(ctx, filters)
		return err
	})
	if err != nil {
		return nil, err
	}
	return appts, nil
}

// UpdateAppointment applies updates. A transition into completed creates the
// visit's clinical note stub in the same transaction, exactly once.
func (s *Service) UpdateAppointment(ctx context.Context, p policy.Principal, id string, updates *types.AppointmentUpdates) (*types.Appointment, error) {
	if updates.Status != nil && !updates.Status.IsValid() {
		return nil, types.NewValidationError("invalid appointment status", map[string]interface{}{
			"status": string(*updates.Status),
		})
	}

	var appt *types.Appointment
	err := s.store.Transact(ctx, func(tx Tx) error {
		row, snap, err := s.loadAppointment(ctx, tx, p, id)
		if err != nil {
			return err
		}
		if err := s.authorizeRead(p, snap); err != nil {
			return err
		}
		if err := s.authorizeWrite(p, policy.OpUpdate, snap); err != nil {
			return err
		}

		prevStatus := row.Status
		prev := row.AuditFields()
		applyAppointmentUpdates(row, updates)
		if err := tx.UpdateAppointment(ctx, row); err != nil {
			return err
		}

		rec := s.recorder.ForUpdate("appointments", row.ID, prev, row.AuditFields(), actorFrom(ctx, p))
		if err := s.recorder.Record(ctx, tx, rec); err != nil {
			return err
		}

		if reactions.CompletionCreatesNoteStub(prevStatus, row.Status) {
			if err := s.createNoteStub(ctx, tx, p, row); err != nil {
				return err
			}
		}
		appt = row
		return nil
	})
	if err != nil {
		return nil, err
	}
	return appt, nil
}

// createNoteStub inserts the draft note for a completed appointment unless
// one already exists. Runs inside the completing transaction.
func (s *Service) createNoteStub(ctx context.Context, tx Tx, p policy.Principal, appt *types.Appointment) error {
	exists, err := tx.HasNoteForAppointment(ctx, appt.ID)
	if err != nil {
		return err
	}
	if exists {
		return nil
	}

	stub := reactions.NoteStubForAppointment(appt)
	if err := tx.InsertClinicalNote(ctx, stub); err != nil {
		return err
	}
	rec := s.recorder.ForInsert("clinical_notes", stub.ID, stub.AuditFields(), actorFrom(ctx, p))
	if err := s.recorder.Record(ctx, tx, rec); err != nil {
		return err
	}
	monitoring.RecordNoteStubCreated()
	return nil
}

// DeleteAppointment removes an appointment subject to row access.
func (s *Service) DeleteAppointment(ctx context.Context, p policy.Principal, id string) error {
	return s.store.Transact(ctx, func(tx Tx) error {
		row, snap, err := s.loadAppointment(ctx, tx, p, id)
		if err != nil {
			return err
		}
		if err := s.authorizeRead(p, snap); err != nil {
			return err
		}
		if err := s.authorizeWrite(p, policy.OpDelete, snap); err != nil {
			return err
		}
		if err := tx.DeleteAppointment(ctx, id); err != nil {
			return err
		}
		rec := s.recorder.ForDelete("appointments", row.ID, row.AuditFields(), actorFrom(ctx, p))
		return s.recorder.Record(ctx, tx, rec)
	})
}

// CreateFollowUpAppointment clones the source visit into a scheduled
// follow-up shifted forward by days (default fourteen).
func (s *Service) CreateFollowUpAppointment(ctx context.Context, p policy.Principal, sourceID string, days int) (*types.Appointment, error) {
	var followUp *types.Appointment
	err := s.store.Transact(ctx, func(tx Tx) error {
		src, snap, err := s.loadAppointment(ctx, tx, p, sourceID)
		if err != nil {
			return err
		}
		if err := s.authorizeRead(p, snap); err != nil {
			return err
		}

		next := reactions.FollowUpAppointment(src, days)
		createSnap := policy.Snapshot{
			Type:               policy.ResourceAppointment,
			PatientID:          next.PatientID,
			ProviderID:         next.ProviderID,
			PrimaryProviderID:  snap.PrimaryProviderID,
			SharedWithProvider: snap.SharedWithProvider,
		}
		if err := s.authorizeWrite(p, policy.OpCreate, createSnap); err != nil {
			return err
		}
		if err := tx.InsertAppointment(ctx, next); err != nil {
			return err
		}
		rec := s.recorder.ForInsert("appointments", next.ID, next.AuditFields(), actorFrom(ctx, p))
		if err := s.recorder.Record(ctx, tx, rec); err != nil {
			return err
		}
		followUp = next
		return nil
	})
	if err != nil {
		return nil, err
	}
	return followUp, nil
}

func validateAppointment(appt *types.Appointment) error {
	details := map[string]interface{}{}
	if appt.PatientID == "" {
		details["patient_id"] = "required"
	}
	if appt.ProviderID == "" {
		details["provider_id"] = "required"
	}
	if appt.StartTime.IsZero() {
		details["start_time"] = "required"
	}
	if !appt.EndTime.After(appt.StartTime) {
		details["end_time"] = "must be after start_time"
	}
	if appt.Status != "" && !appt.Status.IsValid() {
		details["status"] = "invalid status"
	}
	if len(details) > 0 {
		return types.NewValidationError("invalid appointment", details)
	}
	return nil
}

func applyAppointmentUpdates(appt *types.Appointment, updates *types.AppointmentUpdates) {
	if updates.StartTime != nil {
		appt.StartTime = *updates.StartTime
	}
	if updates.EndTime != nil {
		appt.EndTime = *updates.EndTime
	}
	if updates.Type != nil {
		appt.Type = *updates.Type
	}
	if updates.Status != nil {
		appt.Status = *updates.Status
	}
	if updates.IsTelehealth != nil {
		appt.IsTelehealth = *updates.IsTelehealth
	}
	if updates.BillingStatus != nil {
		appt.BillingStatus = *updates.BillingStatus
	}
	if updates.Location != nil {
		appt.Location = *updates.Location
	}
	if updates.Notes != nil {
		appt.Notes = *updates.Notes
	}
}

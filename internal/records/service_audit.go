package records

import (
	"context"

	"github.com/LPredmore/lh-ehr/internal/policy"
	"github.com/LPredmore/lh-ehr/pkg/types"
)

// ListAuditRecords returns the trail across all tables. Only admin sees the
// unscoped trail; everyone else is forbidden outright since the listing names
// no particular row.
func (s *Service) ListAuditRecords(ctx context.Context, p policy.Principal, filter *types.AuditFilter) ([]*types.AuditRecord, error) {
	if !p.Authenticated() {
		return nil, types.NewUnauthenticatedError("no principal")
	}
	snap := policy.Snapshot{Type: policy.ResourceAuditRecord}
	if d := s.engine.Authorize(p, policy.OpRead, snap); !d.Allowed {
		return nil, types.NewForbiddenError(d.Reason)
	}
	if filter == nil {
		filter = &types.AuditFilter{}
	}

	var recs []*types.AuditRecord
	err := s.store.Transact(ctx, func(tx Tx) error {
		var err error
		recs, err = tx.ListAuditRecords(ctx, filter)
		return err
	})
	if err != nil {
		return nil, err
	}
	return recs, nil
}

// ListAuditRecordsForPatient returns the trail touching one patient's chart:
// the patient row itself plus every clinical row referencing the patient.
// Admin sees any patient's trail; a provider only a caseload patient's. A
// provider outside the caseload gets not-found, same as for the chart itself.
func (s *Service) ListAuditRecordsForPatient(ctx context.Context, p policy.Principal, patientID string, filter *types.AuditFilter) ([]*types.AuditRecord, error) {
	if filter == nil {
		filter = &types.AuditFilter{}
	}

	var recs []*types.AuditRecord
	err := s.store.Transact(ctx, func(tx Tx) error {
		patient, err := tx.GetPatient(ctx, patientID)
		if err != nil {
			return err
		}
		if patient == nil {
			return types.NewNotFoundError("patient not found")
		}
		snap := policy.Snapshot{
			Type:      policy.ResourceAuditRecord,
			PatientID: patient.ID,
		}
		if err := resolvePatientFacts(ctx, tx, p, patient.ID, &snap); err != nil {
			return err
		}
		if d := s.engine.Authorize(p, policy.OpRead, snap); !d.Allowed {
			return types.NewNotFoundError("patient not found")
		}
		recs, err = tx.ListAuditRecordsForPatient(ctx, patientID, filter)
		return err
	})
	if err != nil {
		return nil, err
	}
	return recs, nil
}

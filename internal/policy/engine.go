package policy

import (
	"fmt"

	"github.com/LPredmore/lh-ehr/pkg/logger"
	"github.com/LPredmore/lh-ehr/pkg/monitoring"
	"github.com/LPredmore/lh-ehr/pkg/types"
)

// Engine evaluates the per-resource, per-operation, per-role decision table.
// A request is permitted if any role clause matches; absence of a matching
// clause is an implicit deny. There is no explicit-deny override.
type Engine struct {
	logger *logger.Logger
}

// NewEngine creates a new policy engine
func NewEngine(log *logger.Logger) *Engine {
	return &Engine{logger: log}
}

// Authorize decides whether the principal may perform op against the row
// described by the snapshot. It is side-effect-free apart from logging and
// metrics, and safe to call concurrently.
func (e *Engine) Authorize(p Principal, op Operation, s Snapshot) *Decision {
	decision := e.evaluate(p, op, s)

	if e.logger != nil {
		e.logger.Decision(actorID(p), string(s.Type), string(op), decision.Allowed, decision.Reason)
	}
	monitoring.RecordAuthzDecision(string(s.Type), string(op), decision.Allowed)

	return decision
}

func (e *Engine) evaluate(p Principal, op Operation, s Snapshot) *Decision {
	if !p.Authenticated() {
		return deny("no resolvable principal")
	}

	switch s.Type {
	case ResourceUser:
		return e.decideUser(p, op, s)
	case ResourcePatient:
		return e.decidePatient(p, op, s)
	case ResourceAppointment:
		return e.decideAppointment(p, op, s)
	case ResourceClinicalNote:
		return e.decideClinicalNote(p, op, s)
	case ResourceCarePlan, ResourceMedication, ResourceAssessment:
		return e.decideClinicalSubResource(p, op, s)
	case ResourceAuditRecord:
		return e.decideAuditRecord(p, op, s)
	default:
		return deny(fmt.Sprintf("unknown resource type %q", s.Type))
	}
}

func (e *Engine) decideUser(p Principal, op Operation, s Snapshot) *Decision {
	switch op {
	case OpRead:
		switch {
		case p.IsAdmin():
			return allow("admin reads any user")
		case p.IsProvider():
			if IsSelf(p, s) || s.TargetRole == types.RoleProvider || s.TargetRole == types.RoleStaff {
				return allow("provider reads self, providers and staff")
			}
		case p.IsStaff():
			if IsSelf(p, s) || s.TargetRole == types.RoleProvider {
				return allow("staff reads self and providers")
			}
		case p.IsPatient():
			if s.TargetRole == types.RoleProvider {
				return allow("patient reads providers")
			}
		}
		return deny("user read not permitted for role")

	case OpCreate:
		if p.IsAdmin() {
			return allow("admin creates users")
		}
		return deny("only admin creates users")

	case OpUpdate:
		if p.IsAdmin() {
			return allow("admin updates any user")
		}
		if IsSelf(p, s) {
			return allow("user updates own row")
		}
		return deny("user update limited to admin or self")

	case OpDelete:
		if p.IsAdmin() {
			return allow("admin deletes users")
		}
		return deny("only admin deletes users")
	}
	return deny("unknown operation")
}

func (e *Engine) decidePatient(p Principal, op Operation, s Snapshot) *Decision {
	switch op {
	case OpRead:
		switch {
		case p.IsAdmin():
			return allow("admin reads any patient")
		case p.IsProvider():
			if InCaseload(p, s) {
				return allow("provider reads caseload patient")
			}
		case p.IsStaff():
			return allow("staff reads patients")
		case p.IsPatient():
			if OwnsAsPatient(p, s) {
				return allow("patient reads own record")
			}
		}
		return deny("patient read not permitted")

	case OpCreate:
		switch {
		case p.IsAdmin():
			return allow("admin creates patients")
		case p.IsProvider():
			// Providers may only register patients onto their own caseload.
			if s.PrimaryProviderID == p.UserID {
				return allow("provider creates self-assigned patient")
			}
			return deny("provider may only create self-assigned patients")
		}
		return deny("patient create limited to admin and provider")

	case OpUpdate:
		switch {
		case p.IsAdmin():
			return allow("admin updates any patient")
		case p.IsProvider():
			if InCaseload(p, s) {
				return allow("provider updates caseload patient")
			}
		case p.IsStaff():
			return allow("staff updates patients")
		case p.IsPatient():
			// Row-level only; the field allowlist is enforced separately.
			if OwnsAsPatient(p, s) {
				return allow("patient updates own record")
			}
		}
		return deny("patient update not permitted")

	case OpDelete:
		if p.IsAdmin() {
			return allow("admin deletes patients")
		}
		return deny("only admin deletes patients")
	}
	return deny("unknown operation")
}

func (e *Engine) decideAppointment(p Principal, op Operation, s Snapshot) *Decision {
	switch op {
	case OpRead:
		switch {
		case p.IsAdmin():
			return allow("admin reads any appointment")
		case p.IsProvider():
			if InCaseload(p, s) {
				return allow("provider reads own and caseload appointments")
			}
		case p.IsStaff():
			return allow("staff reads appointments")
		case p.IsPatient():
			if OwnsAsPatient(p, s) {
				return allow("patient reads own appointments")
			}
		}
		return deny("appointment read not permitted")

	case OpCreate:
		switch {
		case p.IsAdmin():
			return allow("admin creates appointments")
		case p.IsProvider():
			if s.ProviderID == p.UserID {
				return allow("provider creates own appointments")
			}
			return deny("provider may only create own appointments")
		case p.IsStaff():
			return allow("staff creates appointments")
		}
		return deny("appointment create not permitted")

	case OpUpdate:
		switch {
		case p.IsAdmin():
			return allow("admin updates any appointment")
		case p.IsProvider():
			if s.ProviderID == p.UserID {
				return allow("provider updates own appointments")
			}
		case p.IsStaff():
			return allow("staff updates appointments")
		}
		return deny("appointment update not permitted")

	case OpDelete:
		switch {
		case p.IsAdmin():
			return allow("admin deletes appointments")
		case p.IsProvider():
			if s.ProviderID == p.UserID {
				return allow("provider deletes own appointments")
			}
		case p.IsStaff():
			return allow("staff deletes appointments")
		}
		return deny("appointment delete not permitted")
	}
	return deny("unknown operation")
}

func (e *Engine) decideClinicalNote(p Principal, op Operation, s Snapshot) *Decision {
	switch op {
	case OpRead:
		switch {
		case p.IsAdmin():
			return allow("admin reads any note")
		case p.IsProvider():
			if InCaseload(p, s) {
				return allow("provider reads own and caseload notes")
			}
		case p.IsStaff():
			return allow("staff reads notes")
		case p.IsPatient():
			if OwnsAsPatient(p, s) {
				if s.IsSigned {
					return allow("patient reads own signed note")
				}
				return deny("unsigned notes are not released to patients")
			}
		}
		return deny("note read not permitted")

	case OpCreate:
		switch {
		case p.IsAdmin():
			return allow("admin creates notes")
		case p.IsProvider():
			if s.ProviderID == p.UserID {
				return allow("provider creates own notes")
			}
			return deny("provider may only author own notes")
		}
		return deny("note create limited to admin and provider")

	case OpUpdate:
		// A locked note is immutable for every role, admin included. There
		// is no unlock path in this model.
		if s.IsLocked {
			return conflict("note is locked")
		}
		switch {
		case p.IsAdmin():
			return allow("admin updates unlocked notes")
		case p.IsProvider():
			if s.ProviderID == p.UserID {
				return allow("provider updates own unlocked notes")
			}
		}
		return deny("note update not permitted")

	case OpDelete:
		if p.IsAdmin() {
			return allow("admin deletes notes")
		}
		return deny("only admin deletes notes")
	}
	return deny("unknown operation")
}

func (e *Engine) decideClinicalSubResource(p Principal, op Operation, s Snapshot) *Decision {
	switch op {
	case OpRead:
		switch {
		case p.IsAdmin():
			return allow("admin reads any record")
		case p.IsProvider():
			if InCaseload(p, s) {
				return allow("provider reads own and caseload records")
			}
		case p.IsStaff():
			return allow("staff reads records")
		case p.IsPatient():
			if OwnsAsPatient(p, s) {
				return allow("patient reads own records")
			}
		}
		return deny("read not permitted")

	case OpCreate:
		switch {
		case p.IsAdmin():
			return allow("admin creates records")
		case p.IsProvider():
			if s.ProviderID == p.UserID {
				return allow("provider creates own records")
			}
			return deny("provider may only create own records")
		case p.IsStaff():
			if s.Type == ResourceAssessment {
				return allow("staff administers assessments")
			}
		}
		return deny("create not permitted")

	case OpUpdate:
		switch {
		case p.IsAdmin():
			return allow("admin updates any record")
		case p.IsProvider():
			if s.ProviderID == p.UserID {
				return allow("provider updates own records")
			}
		}
		return deny("update not permitted")

	case OpDelete:
		switch {
		case p.IsAdmin():
			return allow("admin deletes records")
		case p.IsProvider():
			if s.ProviderID == p.UserID {
				return allow("provider deletes own records")
			}
		}
		return deny("delete not permitted")
	}
	return deny("unknown operation")
}

func (e *Engine) decideAuditRecord(p Principal, op Operation, s Snapshot) *Decision {
	// The audit trail is append-only. Reads are admin-wide or caseload-scoped
	// for providers; no role carries a write or delete permission, so the
	// trail stays tamper-resistant even against admins.
	if op != OpRead {
		return deny("audit records are append-only")
	}
	switch {
	case p.IsAdmin():
		return allow("admin reads audit trail")
	case p.IsProvider():
		if InCaseload(p, s) {
			return allow("provider reads caseload audit records")
		}
	}
	return deny("audit read not permitted")
}

func actorID(p Principal) string {
	if p.UserID != "" {
		return p.UserID
	}
	return p.PatientID
}

package policy

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/LPredmore/lh-ehr/pkg/types"
)

var (
	admin    = Principal{UserID: "u-admin", Role: types.RoleAdmin}
	provider = Principal{UserID: "u-prov", Role: types.RoleProvider}
	otherDoc = Principal{UserID: "u-prov2", Role: types.RoleProvider}
	staff    = Principal{UserID: "u-staff", Role: types.RoleStaff}
	patient  = Principal{PatientID: "pat-1", Role: types.RolePatient}
)

func newTestEngine() *Engine {
	return NewEngine(nil)
}

func TestAuthorizeUnauthenticated(t *testing.T) {
	e := newTestEngine()
	d := e.Authorize(Principal{}, OpRead, Snapshot{Type: ResourcePatient, ID: "pat-1"})
	assert.False(t, d.Allowed)
}

func TestAuthorizeUnknownResource(t *testing.T) {
	e := newTestEngine()
	d := e.Authorize(admin, OpRead, Snapshot{Type: ResourceType("widgets")})
	assert.False(t, d.Allowed)
}

func TestUserDecisions(t *testing.T) {
	e := newTestEngine()

	providerRow := Snapshot{Type: ResourceUser, TargetUserID: "u-x", TargetRole: types.RoleProvider}
	staffRow := Snapshot{Type: ResourceUser, TargetUserID: "u-y", TargetRole: types.RoleStaff}
	adminRow := Snapshot{Type: ResourceUser, TargetUserID: "u-z", TargetRole: types.RoleAdmin}
	ownRow := Snapshot{Type: ResourceUser, TargetUserID: staff.UserID, TargetRole: types.RoleStaff}

	tests := []struct {
		name    string
		p       Principal
		op      Operation
		s       Snapshot
		allowed bool
	}{
		{"admin reads any user", admin, OpRead, adminRow, true},
		{"provider reads provider", provider, OpRead, providerRow, true},
		{"provider reads staff", provider, OpRead, staffRow, true},
		{"provider denied admin row", provider, OpRead, adminRow, false},
		{"staff reads provider", staff, OpRead, providerRow, true},
		{"staff reads own row", staff, OpRead, ownRow, true},
		{"staff denied other staff", staff, OpRead, staffRow, false},
		{"patient reads provider directory", patient, OpRead, providerRow, true},
		{"patient denied staff row", patient, OpRead, staffRow, false},
		{"admin creates users", admin, OpCreate, providerRow, true},
		{"provider denied user create", provider, OpCreate, providerRow, false},
		{"staff denied user create", staff, OpCreate, providerRow, false},
		{"admin updates any user", admin, OpUpdate, staffRow, true},
		{"staff updates own row", staff, OpUpdate, ownRow, true},
		{"staff denied other row update", staff, OpUpdate, providerRow, false},
		{"patient denied user update", patient, OpUpdate, providerRow, false},
		{"admin deletes users", admin, OpDelete, staffRow, true},
		{"provider denied user delete", provider, OpDelete, staffRow, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := e.Authorize(tt.p, tt.op, tt.s)
			assert.Equal(t, tt.allowed, d.Allowed, d.Reason)
		})
	}
}

func TestPatientDecisions(t *testing.T) {
	e := newTestEngine()

	ownPatient := Snapshot{Type: ResourcePatient, ID: "pat-1", PrimaryProviderID: provider.UserID}
	sharedPatient := Snapshot{Type: ResourcePatient, ID: "pat-2", PrimaryProviderID: otherDoc.UserID, SharedWithProvider: true}
	strangerPatient := Snapshot{Type: ResourcePatient, ID: "pat-3", PrimaryProviderID: otherDoc.UserID}

	tests := []struct {
		name    string
		p       Principal
		op      Operation
		s       Snapshot
		allowed bool
	}{
		{"admin reads any patient", admin, OpRead, strangerPatient, true},
		{"provider reads primary patient", provider, OpRead, ownPatient, true},
		{"provider reads shared-care patient", provider, OpRead, sharedPatient, true},
		{"provider denied stranger", provider, OpRead, strangerPatient, false},
		{"staff reads any patient", staff, OpRead, strangerPatient, true},
		{"patient reads own record", patient, OpRead, ownPatient, true},
		{"patient denied other record", patient, OpRead, strangerPatient, false},
		{"admin creates patients", admin, OpCreate, strangerPatient, true},
		{"provider creates self-assigned patient", provider, OpCreate, ownPatient, true},
		{"provider denied other-assigned create", provider, OpCreate, strangerPatient, false},
		{"staff denied patient create", staff, OpCreate, ownPatient, false},
		{"provider updates caseload patient", provider, OpUpdate, sharedPatient, true},
		{"provider denied stranger update", provider, OpUpdate, strangerPatient, false},
		{"staff updates patients", staff, OpUpdate, strangerPatient, true},
		{"patient updates own record", patient, OpUpdate, ownPatient, true},
		{"admin deletes patients", admin, OpDelete, ownPatient, true},
		{"provider denied patient delete", provider, OpDelete, ownPatient, false},
		{"staff denied patient delete", staff, OpDelete, ownPatient, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := e.Authorize(tt.p, tt.op, tt.s)
			assert.Equal(t, tt.allowed, d.Allowed, d.Reason)
		})
	}
}

func TestAppointmentDecisions(t *testing.T) {
	e := newTestEngine()

	ownAppt := Snapshot{Type: ResourceAppointment, PatientID: "pat-1", ProviderID: provider.UserID}
	caseloadAppt := Snapshot{Type: ResourceAppointment, PatientID: "pat-1", ProviderID: otherDoc.UserID, PrimaryProviderID: provider.UserID}
	strangerAppt := Snapshot{Type: ResourceAppointment, PatientID: "pat-9", ProviderID: otherDoc.UserID, PrimaryProviderID: otherDoc.UserID}

	tests := []struct {
		name    string
		p       Principal
		op      Operation
		s       Snapshot
		allowed bool
	}{
		{"provider reads own appointment", provider, OpRead, ownAppt, true},
		{"provider reads caseload appointment", provider, OpRead, caseloadAppt, true},
		{"provider denied stranger appointment", provider, OpRead, strangerAppt, false},
		{"staff reads appointments", staff, OpRead, strangerAppt, true},
		{"patient reads own appointment", patient, OpRead, ownAppt, true},
		{"patient denied other appointment", patient, OpRead, strangerAppt, false},
		{"provider creates own appointment", provider, OpCreate, ownAppt, true},
		{"provider denied create for colleague", provider, OpCreate, strangerAppt, false},
		{"staff creates appointments", staff, OpCreate, strangerAppt, true},
		{"patient denied appointment create", patient, OpCreate, ownAppt, false},
		{"provider updates own appointment", provider, OpUpdate, ownAppt, true},
		{"provider denied caseload appointment update", provider, OpUpdate, caseloadAppt, false},
		{"staff updates appointments", staff, OpUpdate, strangerAppt, true},
		{"provider deletes own appointment", provider, OpDelete, ownAppt, true},
		{"provider denied stranger delete", provider, OpDelete, strangerAppt, false},
		{"staff deletes appointments", staff, OpDelete, strangerAppt, true},
		{"patient denied appointment delete", patient, OpDelete, ownAppt, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := e.Authorize(tt.p, tt.op, tt.s)
			assert.Equal(t, tt.allowed, d.Allowed, d.Reason)
		})
	}
}

func TestClinicalNoteDecisions(t *testing.T) {
	e := newTestEngine()

	ownNote := Snapshot{Type: ResourceClinicalNote, PatientID: "pat-1", ProviderID: provider.UserID}
	signedNote := Snapshot{Type: ResourceClinicalNote, PatientID: "pat-1", ProviderID: provider.UserID, IsSigned: true}
	caseloadNote := Snapshot{Type: ResourceClinicalNote, PatientID: "pat-1", ProviderID: otherDoc.UserID, SharedWithProvider: true}

	tests := []struct {
		name    string
		p       Principal
		op      Operation
		s       Snapshot
		allowed bool
	}{
		{"provider reads own note", provider, OpRead, ownNote, true},
		{"provider reads caseload note", provider, OpRead, caseloadNote, true},
		{"staff reads notes", staff, OpRead, ownNote, true},
		{"patient reads own signed note", patient, OpRead, signedNote, true},
		{"patient denied unsigned note", patient, OpRead, ownNote, false},
		{"provider creates own note", provider, OpCreate, ownNote, true},
		{"provider denied note for colleague", provider, OpCreate, caseloadNote, false},
		{"staff denied note create", staff, OpCreate, ownNote, false},
		{"provider updates own unlocked note", provider, OpUpdate, signedNote, true},
		{"provider denied caseload note update", provider, OpUpdate, caseloadNote, false},
		{"admin deletes notes", admin, OpDelete, ownNote, true},
		{"provider denied note delete", provider, OpDelete, ownNote, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := e.Authorize(tt.p, tt.op, tt.s)
			assert.Equal(t, tt.allowed, d.Allowed, d.Reason)
		})
	}
}

func TestLockedNoteIsImmutableForEveryRole(t *testing.T) {
	e := newTestEngine()
	locked := Snapshot{Type: ResourceClinicalNote, PatientID: "pat-1", ProviderID: provider.UserID, IsSigned: true, IsLocked: true}

	for _, p := range []Principal{admin, provider, staff, patient} {
		d := e.Authorize(p, OpUpdate, locked)
		assert.False(t, d.Allowed, "role %s must not update a locked note", p.Role)
		assert.True(t, d.Conflict, "lock denial for role %s must surface as conflict", p.Role)
	}
}

func TestClinicalSubResourceDecisions(t *testing.T) {
	e := newTestEngine()

	ownMed := Snapshot{Type: ResourceMedication, PatientID: "pat-1", ProviderID: provider.UserID}
	otherMed := Snapshot{Type: ResourceMedication, PatientID: "pat-9", ProviderID: otherDoc.UserID}
	ownAssessment := Snapshot{Type: ResourceAssessment, PatientID: "pat-1", ProviderID: provider.UserID}
	staffAssessment := Snapshot{Type: ResourceAssessment, PatientID: "pat-9", ProviderID: staff.UserID}

	tests := []struct {
		name    string
		p       Principal
		op      Operation
		s       Snapshot
		allowed bool
	}{
		{"provider reads own medication", provider, OpRead, ownMed, true},
		{"provider denied stranger medication", provider, OpRead, otherMed, false},
		{"staff reads medications", staff, OpRead, otherMed, true},
		{"patient reads own medication", patient, OpRead, ownMed, true},
		{"provider creates own medication", provider, OpCreate, ownMed, true},
		{"staff denied medication create", staff, OpCreate, otherMed, false},
		{"staff administers assessments", staff, OpCreate, staffAssessment, true},
		{"provider updates own assessment", provider, OpUpdate, ownAssessment, true},
		{"staff denied assessment update", staff, OpUpdate, staffAssessment, false},
		{"provider deletes own medication", provider, OpDelete, ownMed, true},
		{"provider denied stranger delete", provider, OpDelete, otherMed, false},
		{"patient denied medication delete", patient, OpDelete, ownMed, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := e.Authorize(tt.p, tt.op, tt.s)
			assert.Equal(t, tt.allowed, d.Allowed, d.Reason)
		})
	}
}

func TestAuditRecordDecisions(t *testing.T) {
	e := newTestEngine()

	caseloadAudit := Snapshot{Type: ResourceAuditRecord, PatientID: "pat-1", PrimaryProviderID: provider.UserID}
	strangerAudit := Snapshot{Type: ResourceAuditRecord, PatientID: "pat-9", PrimaryProviderID: otherDoc.UserID}

	assert.True(t, e.Authorize(admin, OpRead, strangerAudit).Allowed)
	assert.True(t, e.Authorize(provider, OpRead, caseloadAudit).Allowed)
	assert.False(t, e.Authorize(provider, OpRead, strangerAudit).Allowed)
	assert.False(t, e.Authorize(staff, OpRead, caseloadAudit).Allowed)
	assert.False(t, e.Authorize(patient, OpRead, caseloadAudit).Allowed)

	// Append-only for everyone, admin included.
	for _, p := range []Principal{admin, provider, staff, patient} {
		for _, op := range []Operation{OpCreate, OpUpdate, OpDelete} {
			d := e.Authorize(p, op, caseloadAudit)
			assert.False(t, d.Allowed, "role %s op %s must be denied on audit records", p.Role, op)
		}
	}
}

package policy

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/LPredmore/lh-ehr/pkg/types"
)

func TestOwnsAsProvider(t *testing.T) {
	p := Principal{UserID: "u-prov", Role: types.RoleProvider}

	assert.True(t, OwnsAsProvider(p, Snapshot{ProviderID: "u-prov"}))
	assert.True(t, OwnsAsProvider(p, Snapshot{PrimaryProviderID: "u-prov"}))
	assert.False(t, OwnsAsProvider(p, Snapshot{ProviderID: "u-other"}))
	assert.False(t, OwnsAsProvider(p, Snapshot{}))

	// Role gates the predicate regardless of matching ids.
	staff := Principal{UserID: "u-prov", Role: types.RoleStaff}
	assert.False(t, OwnsAsProvider(staff, Snapshot{ProviderID: "u-prov"}))
}

func TestInCaseload(t *testing.T) {
	p := Principal{UserID: "u-prov", Role: types.RoleProvider}

	assert.True(t, InCaseload(p, Snapshot{PrimaryProviderID: "u-prov"}))
	assert.True(t, InCaseload(p, Snapshot{SharedWithProvider: true}))
	assert.False(t, InCaseload(p, Snapshot{PrimaryProviderID: "u-other"}))

	patient := Principal{PatientID: "pat-1", Role: types.RolePatient}
	assert.False(t, InCaseload(patient, Snapshot{SharedWithProvider: true}))
}

func TestOwnsAsPatient(t *testing.T) {
	p := Principal{PatientID: "pat-1", Role: types.RolePatient}

	assert.True(t, OwnsAsPatient(p, Snapshot{Type: ResourcePatient, ID: "pat-1"}))
	assert.False(t, OwnsAsPatient(p, Snapshot{Type: ResourcePatient, ID: "pat-2"}))
	assert.True(t, OwnsAsPatient(p, Snapshot{Type: ResourceClinicalNote, PatientID: "pat-1"}))
	assert.False(t, OwnsAsPatient(p, Snapshot{Type: ResourceClinicalNote, PatientID: "pat-2"}))
	assert.False(t, OwnsAsPatient(p, Snapshot{Type: ResourceClinicalNote}))

	provider := Principal{UserID: "u-prov", Role: types.RoleProvider}
	assert.False(t, OwnsAsPatient(provider, Snapshot{Type: ResourcePatient, ID: "pat-1"}))
}

func TestIsSelf(t *testing.T) {
	p := Principal{UserID: "u-1", Role: types.RoleStaff}

	assert.True(t, IsSelf(p, Snapshot{TargetUserID: "u-1"}))
	assert.False(t, IsSelf(p, Snapshot{TargetUserID: "u-2"}))
	assert.False(t, IsSelf(p, Snapshot{}))
	assert.False(t, IsSelf(Principal{}, Snapshot{TargetUserID: ""}))
}

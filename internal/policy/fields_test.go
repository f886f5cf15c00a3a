package policy

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/LPredmore/lh-ehr/pkg/types"
)

func strPtr(s string) *string { return &s }

func TestValidatePatientSelfUpdateAllowsContactFields(t *testing.T) {
	updates := &types.PatientUpdates{
		Phone:                 strPtr("555-0100"),
		Email:                 strPtr("new@example.com"),
		Street:                strPtr("12 Oak St"),
		InsuranceProvider:     strPtr("Acme Health"),
		EmergencyContactPhone: strPtr("555-0101"),
	}
	assert.NoError(t, ValidatePatientSelfUpdate(updates))
}

func TestValidatePatientSelfUpdateRejectsRestrictedFields(t *testing.T) {
	updates := &types.PatientUpdates{
		Phone:             strPtr("555-0100"),
		FirstName:         strPtr("New"),
		PrimaryProviderID: strPtr("u-other"),
	}

	err := ValidatePatientSelfUpdate(updates)
	require.Error(t, err)
	assert.True(t, types.IsKind(err, types.ErrorKindValidation))
	assert.Contains(t, err.Error(), "first_name")
	assert.Contains(t, err.Error(), "primary_provider_id")
	assert.NotContains(t, err.Error(), "phone")
}

func TestValidatePatientSelfUpdateEmpty(t *testing.T) {
	assert.NoError(t, ValidatePatientSelfUpdate(&types.PatientUpdates{}))
}

func TestValidateUserSelfUpdateRejectsRoleChange(t *testing.T) {
	role := types.RoleAdmin
	err := ValidateUserSelfUpdate(&types.UserUpdates{Role: &role})
	require.Error(t, err)
	assert.True(t, types.IsKind(err, types.ErrorKindValidation))
}

func TestValidateUserSelfUpdateAllowsProfileFields(t *testing.T) {
	assert.NoError(t, ValidateUserSelfUpdate(&types.UserUpdates{
		Email: strPtr("me@example.com"),
		Phone: strPtr("555-0100"),
	}))
}

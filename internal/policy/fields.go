package policy

import (
	"fmt"
	"sort"
	"strings"

	"github.com/LPredmore/lh-ehr/pkg/types"
)

// patientSelfWritable lists the demographic and contact fields a patient may
// change on their own record through the portal. Everything clinical or
// administrative stays out of reach.
var patientSelfWritable = map[string]bool{
	"phone":                   true,
	"email":                   true,
	"street":                  true,
	"city":                    true,
	"state":                   true,
	"postal_code":             true,
	"emergency_contact_name":  true,
	"emergency_contact_phone": true,
	"insurance_provider":      true,
	"insurance_policy_number": true,
}

// ValidatePatientSelfUpdate rejects a patient's self-update when it touches
// any field outside the allowlist. The whole request fails rather than being
// silently narrowed, so the caller learns exactly which fields were refused.
func ValidatePatientSelfUpdate(updates *types.PatientUpdates) error {
	var restricted []string
	for field := range updates.TouchedFields() {
		if !patientSelfWritable[field] {
			restricted = append(restricted, field)
		}
	}
	if len(restricted) == 0 {
		return nil
	}
	sort.Strings(restricted)
	return types.NewValidationError(
		fmt.Sprintf("fields not updatable by patients: %s", strings.Join(restricted, ", ")),
		map[string]interface{}{"restricted_fields": restricted},
	)
}

// ValidateUserSelfUpdate rejects a user's self-update when it attempts a role
// change. Role assignment is an admin-only operation.
func ValidateUserSelfUpdate(updates *types.UserUpdates) error {
	if updates.Role != nil {
		return types.NewValidationError(
			"role cannot be changed on a self-update",
			map[string]interface{}{"restricted_fields": []string{"role"}},
		)
	}
	return nil
}

package policy

// Ownership predicates. All are pure functions over the principal and the
// resolved snapshot; they perform no I/O and are safe to evaluate repeatedly.

// OwnsAsProvider reports whether the provider principal owns the row: either
// the row carries the provider's id directly, or the row's patient is
// assigned to the provider as primary.
func OwnsAsProvider(p Principal, s Snapshot) bool {
	if !p.IsProvider() {
		return false
	}
	if s.ProviderID != "" && s.ProviderID == p.UserID {
		return true
	}
	return s.PrimaryProviderID != "" && s.PrimaryProviderID == p.UserID
}

// InCaseload reports whether the row's patient belongs to the provider's
// caseload: primary assignment, direct row ownership, or any shared clinical
// record with the patient. The caseload is deliberately broader than primary
// assignment.
func InCaseload(p Principal, s Snapshot) bool {
	if OwnsAsProvider(p, s) {
		return true
	}
	return p.IsProvider() && s.SharedWithProvider
}

// OwnsAsPatient reports whether the patient principal owns the row. For the
// patient entity itself the row id is compared; every sub-resource compares
// its patient reference.
func OwnsAsPatient(p Principal, s Snapshot) bool {
	if !p.IsPatient() {
		return false
	}
	if s.Type == ResourcePatient {
		return s.ID != "" && s.ID == p.PatientID
	}
	return s.PatientID != "" && s.PatientID == p.PatientID
}

// IsSelf reports whether a user row is the principal's own row.
func IsSelf(p Principal, s Snapshot) bool {
	return p.UserID != "" && s.TargetUserID != "" && s.TargetUserID == p.UserID
}

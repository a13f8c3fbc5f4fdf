package leave

// =============================================================================
// CONFLICT CHECKER - No double-booking of approved leave
// =============================================================================

// FindOverlap returns the first Approved record of empID in existing whose
// range shares a day with candidate. Pending and Rejected records never
// conflict.
func FindOverlap(empID string, candidate DateRange, existing []Record) (Record, bool) {
	for _, r := range existing {
		if r.EmpID != empID || r.Status != StatusApproved {
			continue
		}
		if candidate.Overlaps(r.Range()) {
			return r, true
		}
	}
	return Record{}, false
}

// CheckOverlap reports whether candidate conflicts with approved leave.
func CheckOverlap(empID string, candidate DateRange, existing []Record) bool {
	_, found := FindOverlap(empID, candidate, existing)
	return found
}

package leave

import "github.com/shopspring/decimal"

// =============================================================================
// BALANCE CALCULATOR
// =============================================================================

// Balance is an employee's allowance for the current cycle, in days.
type Balance struct {
	EmpID     string
	Allocated decimal.Decimal
	Used      decimal.Decimal
	Remaining decimal.Decimal
}

// ComputeBalance sums the inclusive day spans of empID's Approved records.
// Hours on single-day leave are not converted to fractional days.
// Remaining never goes below zero.
func ComputeBalance(empID string, records []Record, allocated int) Balance {
	used := 0
	for _, r := range records {
		if r.EmpID != empID || r.Status != StatusApproved {
			continue
		}
		used += r.Range().Days()
	}

	alloc := decimal.NewFromInt(int64(allocated))
	usedDays := decimal.NewFromInt(int64(used))
	remaining := alloc.Sub(usedDays)
	if remaining.IsNegative() {
		remaining = decimal.Zero
	}

	return Balance{
		EmpID:     empID,
		Allocated: alloc,
		Used:      usedDays,
		Remaining: remaining,
	}
}

package leave_test

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"

	"github.com/warp/leave-service/leave"
)

func TestComputeBalance_SumsInclusiveApprovedDays(t *testing.T) {
	// GIVEN: 45 allocated, approved 3-day and 1-day leaves
	records := []leave.Record{
		rec(1, "ABC0123", "2025-01-01", "2025-01-03", leave.StatusApproved),
		rec(2, "ABC0123", "2025-02-01", "2025-02-01", leave.StatusApproved),
	}

	b := leave.ComputeBalance("ABC0123", records, 45)

	// THEN: 4 used, 41 remaining
	assert.True(t, b.Allocated.Equal(decimal.NewFromInt(45)))
	assert.True(t, b.Used.Equal(decimal.NewFromInt(4)))
	assert.True(t, b.Remaining.Equal(decimal.NewFromInt(41)), "remaining = %s", b.Remaining)
}

func TestComputeBalance_FloorsAtZero(t *testing.T) {
	records := []leave.Record{
		rec(1, "ABC0123", "2025-01-01", "2025-01-31", leave.StatusApproved),
		rec(2, "ABC0123", "2025-03-01", "2025-03-31", leave.StatusApproved),
	}

	b := leave.ComputeBalance("ABC0123", records, 30)

	assert.True(t, b.Used.Equal(decimal.NewFromInt(62)))
	assert.True(t, b.Remaining.IsZero())
	assert.False(t, b.Remaining.IsNegative())
}

func TestComputeBalance_OnlyApprovedOfSameEmployee(t *testing.T) {
	records := []leave.Record{
		rec(1, "ABC0123", "2025-01-01", "2025-01-05", leave.StatusPending),
		rec(2, "ABC0123", "2025-01-10", "2025-01-15", leave.StatusRejected),
		rec(3, "XYZ0999", "2025-01-01", "2025-01-10", leave.StatusApproved),
	}

	b := leave.ComputeBalance("ABC0123", records, 45)

	assert.True(t, b.Used.IsZero())
	assert.True(t, b.Remaining.Equal(decimal.NewFromInt(45)))
}

func TestComputeBalance_HoursDoNotReduceDayCount(t *testing.T) {
	// Half-day leave still counts as one day
	from, _ := leave.ParseClock("09:00")
	to, _ := leave.ParseClock("13:00")
	r := rec(1, "ABC0123", "2025-02-10", "2025-02-10", leave.StatusApproved)
	r.FromHour, r.ToHour = &from, &to

	b := leave.ComputeBalance("ABC0123", []leave.Record{r}, 45)

	assert.True(t, b.Used.Equal(decimal.NewFromInt(1)))
}

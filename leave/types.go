package leave

import (
	"time"
)

// =============================================================================
// LEAVE TYPE
// =============================================================================

type LeaveType string

const (
	TypeSick      LeaveType = "sick"
	TypeCasual    LeaveType = "casual"
	TypeEarned    LeaveType = "earned"
	TypePaternity LeaveType = "paternity"
	TypeMaternity LeaveType = "maternity"
	TypeMarriage  LeaveType = "marriage"
)

// DefaultLeaveTypes is the allowed set when none is configured.
var DefaultLeaveTypes = []LeaveType{
	TypeSick, TypeCasual, TypeEarned, TypePaternity, TypeMaternity, TypeMarriage,
}

// =============================================================================
// STATUS
// =============================================================================

type Status string

const (
	StatusPending  Status = "Pending"
	StatusApproved Status = "Approved"
	StatusRejected Status = "Rejected"
)

// ParseStatus returns the Status named by s, or false if s is not one.
func ParseStatus(s string) (Status, bool) {
	switch Status(s) {
	case StatusPending, StatusApproved, StatusRejected:
		return Status(s), true
	}
	return "", false
}

// IsTerminal reports whether no further transition is defined from s.
func (s Status) IsTerminal() bool {
	return s == StatusApproved || s == StatusRejected
}

// =============================================================================
// RECORD - The persisted leave request
// =============================================================================

// Record is one employee's leave request and its approval state.
type Record struct {
	ID        int64
	EmpID     string
	Name      string
	Email     string
	LeaveType LeaveType
	From      Date
	To        Date
	FromHour  *Clock
	ToHour    *Clock
	Reason    string
	Status    Status
	CreatedAt time.Time
}

// Range returns the inclusive date range covered by the record.
func (r Record) Range() DateRange {
	return DateRange{From: r.From, To: r.To}
}

// Submission is the raw, unvalidated input for a new leave request.
type Submission struct {
	EmpID     string `validate:"required"`
	Name      string `validate:"required"`
	Email     string `validate:"required"`
	LeaveType string `validate:"required"`
	FromDate  string `validate:"required"`
	ToDate    string `validate:"required"`
	FromHour  string
	ToHour    string
	Reason    string `validate:"required"`
}

// Filter narrows a repository query. Zero fields match everything.
type Filter struct {
	EmpID  string
	Status Status
}

// =============================================================================
// POLICY
// =============================================================================

// DefaultAllocatedLeaves is the per-cycle day allowance.
const DefaultAllocatedLeaves = 45

// Policy holds the configurable business constants.
type Policy struct {
	AllocatedLeaves int

	// EmailDomain restricts emails to one organization domain.
	// Empty means any domain of the form name.tld.
	EmailDomain string

	LeaveTypes []LeaveType
}

// DefaultPolicy returns the policy used when nothing is configured.
func DefaultPolicy() Policy {
	return Policy{
		AllocatedLeaves: DefaultAllocatedLeaves,
		LeaveTypes:      append([]LeaveType(nil), DefaultLeaveTypes...),
	}
}

/*
dto.go - Data Transfer Objects for API requests and responses

PURPOSE:
  Defines the JSON structures for API communication. These types keep
  the leave domain model (leave.Record, leave.Balance) out of the wire
  contract. JSON fields are snake_case, except LeaveStatsDTO which
  keeps the camelCase names of its path.

NAMING CONVENTION:
  - *DTO: Response types returned to clients
  - *Request: Request body types from clients

VALIDATION:
  Validation is done by leave.Validator, not in DTOs. DTOs are pure
  data carriers.

SEE ALSO:
  - handlers.go: Uses these types
*/
package api

import (
	"encoding/json"
	"time"

	"github.com/warp/leave-service/leave"
)

// =============================================================================
// REQUEST TYPES
// =============================================================================

// SubmitLeaveRequest is the body of POST /api/leaves.
type SubmitLeaveRequest struct {
	EmpID     string `json:"emp_id"`
	Name      string `json:"name"`
	Email     string `json:"email"`
	LeaveType string `json:"leave_type"`
	FromDate  string `json:"from_date"`
	ToDate    string `json:"to_date"`
	FromHour  string `json:"from_hour"`
	ToHour    string `json:"to_hour"`
	Reason    string `json:"reason"`
}

func (r SubmitLeaveRequest) toSubmission() leave.Submission {
	return leave.Submission{
		EmpID:     r.EmpID,
		Name:      r.Name,
		Email:     r.Email,
		LeaveType: r.LeaveType,
		FromDate:  r.FromDate,
		ToDate:    r.ToDate,
		FromHour:  r.FromHour,
		ToHour:    r.ToHour,
		Reason:    r.Reason,
	}
}

// UpdateStatusRequest is the body of PUT /api/leaves/{id}.
type UpdateStatusRequest struct {
	Status string `json:"status"`
}

// =============================================================================
// RESPONSE TYPES
// =============================================================================

// LeaveDTO represents a leave record in API responses.
type LeaveDTO struct {
	ID        int64     `json:"id"`
	EmpID     string    `json:"emp_id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	LeaveType string    `json:"leave_type"`
	FromDate  string    `json:"from_date"`
	ToDate    string    `json:"to_date"`
	FromHour  *string   `json:"from_hour"`
	ToHour    *string   `json:"to_hour"`
	Days      int       `json:"days"`
	Reason    string    `json:"reason"`
	Status    string    `json:"status"`
	CreatedAt time.Time `json:"created_at"`
}

// BalanceDTO is the response of the balance endpoints.
type BalanceDTO struct {
	EmpID           string      `json:"emp_id"`
	AllocatedLeaves json.Number `json:"allocated_leaves"`
	UsedLeaves      json.Number `json:"used_leaves"`
	RemainingLeaves json.Number `json:"remaining_leaves"`
}

// LeaveStatsDTO is the response of GET /api/leave-stats/{empID}. Field
// names are camelCase on this path only.
type LeaveStatsDTO struct {
	AllocatedLeaves json.Number `json:"allocatedLeaves"`
	RemainingLeaves json.Number `json:"remainingLeaves"`
}

// HealthDTO is the response of GET /health.
type HealthDTO struct {
	Status    string    `json:"status"`
	Store     string    `json:"store"`
	CheckedAt time.Time `json:"checked_at"`
	Error     string    `json:"error,omitempty"`
}

// ErrorResponse is the standard error response.
type ErrorResponse struct {
	Error string `json:"error"`
	Kind  string `json:"kind"`
	Rule  string `json:"rule,omitempty"`
}

// =============================================================================
// MAPPERS
// =============================================================================

func toLeaveDTO(r leave.Record) LeaveDTO {
	return LeaveDTO{
		ID:        r.ID,
		EmpID:     r.EmpID,
		Name:      r.Name,
		Email:     r.Email,
		LeaveType: string(r.LeaveType),
		FromDate:  r.From.String(),
		ToDate:    r.To.String(),
		FromHour:  clockString(r.FromHour),
		ToHour:    clockString(r.ToHour),
		Days:      r.Range().Days(),
		Reason:    r.Reason,
		Status:    string(r.Status),
		CreatedAt: r.CreatedAt,
	}
}

func toLeaveDTOs(records []leave.Record) []LeaveDTO {
	dtos := make([]LeaveDTO, len(records))
	for i, r := range records {
		dtos[i] = toLeaveDTO(r)
	}
	return dtos
}

func toBalanceDTO(b leave.Balance) BalanceDTO {
	return BalanceDTO{
		EmpID:           b.EmpID,
		AllocatedLeaves: json.Number(b.Allocated.String()),
		UsedLeaves:      json.Number(b.Used.String()),
		RemainingLeaves: json.Number(b.Remaining.String()),
	}
}

func toLeaveStatsDTO(b leave.Balance) LeaveStatsDTO {
	return LeaveStatsDTO{
		AllocatedLeaves: json.Number(b.Allocated.String()),
		RemainingLeaves: json.Number(b.Remaining.String()),
	}
}

func clockString(c *leave.Clock) *string {
	if c == nil {
		return nil
	}
	s := c.String()
	return &s
}

/*
handlers.go - HTTP API handlers for the leave service

PURPOSE:
  Exposes leave.Service via REST. Handles HTTP request/response and JSON
  serialization; every business decision is delegated to the service.

ENDPOINTS:
  Leaves:
    POST   /api/leaves                 Submit a leave request
    GET    /api/leaves?status=         List (optional status filter)
    GET    /api/leaves/export          XLSX download (status, emp_id filters)
    GET    /api/leaves/{id}            Get one record
    GET    /api/leaves/{empID}         Employee's records (ABC0123 shape)
    PUT    /api/leaves/{id}            Transition, body {"status": ...}
    POST   /api/leaves/{id}/approve    Transition to Approved
    POST   /api/leaves/{id}/reject     Transition to Rejected

  Employees:
    GET    /api/employees/{empID}/leaves   Employee's records
    GET    /api/employees/{empID}/balance  Allocated / used / remaining
    GET    /api/leave-stats/{empID}        {allocatedLeaves, remainingLeaves}

ERROR HANDLING:
  Errors are returned as {"error", "kind"} with a status per kind:
  - 400: validation
  - 404: not_found
  - 409: conflict
  - 429: rate_limited
  - 500: store and anything unclassified (message is opaque)

SECURITY NOTE:
  No authentication or authorization. Identity (emp_id) is asserted by
  the caller.

SEE ALSO:
  - dto.go: Request/response data structures
  - server.go: Router setup and middleware
*/
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/warp/leave-service/leave"
	"github.com/warp/leave-service/report"
)

const (
	msgInternal   = "Internal server error"
	msgBadBody    = "Invalid request body"
	msgBadLeaveID = "Invalid leave id"
)

const kindRateLimited leave.Kind = "rate_limited"

// LeaveService is the subset of *leave.Service the handlers use.
type LeaveService interface {
	Submit(ctx context.Context, in leave.Submission) (leave.Record, error)
	List(ctx context.Context, status string) ([]leave.Record, error)
	ListByEmployee(ctx context.Context, empID string) ([]leave.Record, error)
	Get(ctx context.Context, id int64) (leave.Record, error)
	Transition(ctx context.Context, id int64, status string) (leave.Record, error)
	Balance(ctx context.Context, empID string) (leave.Balance, error)
}

// =============================================================================
// HANDLER CONTEXT
// =============================================================================

// Handler holds all dependencies for HTTP handlers.
type Handler struct {
	Service LeaveService
	Health  *HealthMonitor
	logger  *zap.Logger
}

// NewHandler creates a handler. health may be nil, in which case /health
// always reports ok.
func NewHandler(svc LeaveService, health *HealthMonitor, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.L()
	}
	return &Handler{Service: svc, Health: health, logger: logger.Named("api")}
}

// =============================================================================
// LEAVE HANDLERS
// =============================================================================

// SubmitLeave creates a Pending leave request.
// POST /api/leaves
func (h *Handler) SubmitLeave(w http.ResponseWriter, r *http.Request) {
	var req SubmitLeaveRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, msgBadBody, leave.KindValidation)
		return
	}

	rec, err := h.Service.Submit(r.Context(), req.toSubmission())
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, toLeaveDTO(rec))
}

// ListLeaves returns all leave records, newest first.
// GET /api/leaves?status=Pending
func (h *Handler) ListLeaves(w http.ResponseWriter, r *http.Request) {
	records, err := h.Service.List(r.Context(), r.URL.Query().Get("status"))
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toLeaveDTOs(records))
}

// GetLeave returns one leave record. An employee-id-shaped segment
// lists that employee's records instead.
// GET /api/leaves/{id}, GET /api/leaves/{empID}
func (h *Handler) GetLeave(w http.ResponseWriter, r *http.Request) {
	if empID := chi.URLParam(r, "id"); leave.ValidEmpID(empID) {
		h.listEmployee(w, r, empID)
		return
	}
	id, ok := leaveID(w, r)
	if !ok {
		return
	}
	rec, err := h.Service.Get(r.Context(), id)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toLeaveDTO(rec))
}

// UpdateLeaveStatus transitions a record to the status in the body.
// PUT /api/leaves/{id}
func (h *Handler) UpdateLeaveStatus(w http.ResponseWriter, r *http.Request) {
	id, ok := leaveID(w, r)
	if !ok {
		return
	}
	var req UpdateStatusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, msgBadBody, leave.KindValidation)
		return
	}
	h.transition(w, r, id, req.Status)
}

// ApproveLeave is PUT /api/leaves/{id} with status Approved.
// POST /api/leaves/{id}/approve
func (h *Handler) ApproveLeave(w http.ResponseWriter, r *http.Request) {
	if id, ok := leaveID(w, r); ok {
		h.transition(w, r, id, string(leave.StatusApproved))
	}
}

// RejectLeave is PUT /api/leaves/{id} with status Rejected.
// POST /api/leaves/{id}/reject
func (h *Handler) RejectLeave(w http.ResponseWriter, r *http.Request) {
	if id, ok := leaveID(w, r); ok {
		h.transition(w, r, id, string(leave.StatusRejected))
	}
}

func (h *Handler) transition(w http.ResponseWriter, r *http.Request, id int64, status string) {
	rec, err := h.Service.Transition(r.Context(), id, status)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toLeaveDTO(rec))
}

// ExportLeaves streams the (filtered) listing as an XLSX workbook.
// GET /api/leaves/export?status=Approved&emp_id=ABC0123
func (h *Handler) ExportLeaves(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	status, empID := q.Get("status"), q.Get("emp_id")

	var (
		records []leave.Record
		err     error
	)
	if empID == "" {
		records, err = h.Service.List(r.Context(), status)
	} else {
		records, err = h.employeeRecords(r.Context(), empID, status)
	}
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}

	var buf bytes.Buffer
	if err := report.WriteLeaves(&buf, records); err != nil {
		h.logger.Error("export leaves failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, msgInternal, leave.KindUnknown)
		return
	}

	w.Header().Set("Content-Type", report.ContentTypeXLSX)
	w.Header().Set("Content-Disposition", `attachment; filename="leaves.xlsx"`)
	w.WriteHeader(http.StatusOK)
	w.Write(buf.Bytes())
}

func (h *Handler) employeeRecords(ctx context.Context, empID, status string) ([]leave.Record, error) {
	var want leave.Status
	if status != "" {
		st, ok := leave.ParseStatus(status)
		if !ok {
			return nil, &leave.ValidationError{Rule: "status", Message: leave.MsgInvalidStatus}
		}
		want = st
	}

	records, err := h.Service.ListByEmployee(ctx, empID)
	if err != nil || want == "" {
		return records, err
	}
	filtered := records[:0]
	for _, rec := range records {
		if rec.Status == want {
			filtered = append(filtered, rec)
		}
	}
	return filtered, nil
}

// =============================================================================
// EMPLOYEE HANDLERS
// =============================================================================

// ListEmployeeLeaves returns one employee's records, newest first.
// GET /api/employees/{empID}/leaves
func (h *Handler) ListEmployeeLeaves(w http.ResponseWriter, r *http.Request) {
	h.listEmployee(w, r, chi.URLParam(r, "empID"))
}

func (h *Handler) listEmployee(w http.ResponseWriter, r *http.Request, empID string) {
	records, err := h.Service.ListByEmployee(r.Context(), empID)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toLeaveDTOs(records))
}

// GetBalance returns allocated, used and remaining days.
// GET /api/employees/{empID}/balance
func (h *Handler) GetBalance(w http.ResponseWriter, r *http.Request) {
	b, err := h.Service.Balance(r.Context(), chi.URLParam(r, "empID"))
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toBalanceDTO(b))
}

// GetLeaveStats is the balance in the camelCase shape existing clients
// of this path read.
// GET /api/leave-stats/{empID}
func (h *Handler) GetLeaveStats(w http.ResponseWriter, r *http.Request) {
	b, err := h.Service.Balance(r.Context(), chi.URLParam(r, "empID"))
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toLeaveStatsDTO(b))
}

// =============================================================================
// HEALTH
// =============================================================================

// HealthCheck reports store reachability from the last monitor check.
// GET /health
func (h *Handler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	if h.Health == nil {
		writeJSON(w, http.StatusOK, HealthDTO{Status: "ok", Store: "unknown"})
		return
	}

	st := h.Health.Status()
	dto := HealthDTO{Status: "ok", Store: "up", CheckedAt: st.CheckedAt}
	code := http.StatusOK
	if st.Err != nil {
		dto.Status, dto.Store, dto.Error = "degraded", "down", st.Err.Error()
		code = http.StatusServiceUnavailable
	}
	writeJSON(w, code, dto)
}

// =============================================================================
// HELPERS
// =============================================================================

func leaveID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		writeError(w, http.StatusBadRequest, msgBadLeaveID, leave.KindValidation)
		return 0, false
	}
	return id, true
}

// writeServiceError maps a service error to its status code. Store and
// unclassified errors are logged and reported opaquely.
func (h *Handler) writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	kind := leave.KindOf(err)
	resp := ErrorResponse{Error: err.Error(), Kind: string(kind)}

	var verr *leave.ValidationError
	if errors.As(err, &verr) {
		resp.Rule = verr.Rule
	}

	status := http.StatusInternalServerError
	switch kind {
	case leave.KindValidation:
		status = http.StatusBadRequest
	case leave.KindNotFound:
		status = http.StatusNotFound
	case leave.KindConflict:
		status = http.StatusConflict
	default:
		h.logger.Error("request failed",
			zap.String("request_id", middleware.GetReqID(r.Context())),
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Error(err),
		)
		resp.Error = msgInternal
	}
	writeJSON(w, status, resp)
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string, kind leave.Kind) {
	writeJSON(w, status, ErrorResponse{Error: message, Kind: string(kind)})
}

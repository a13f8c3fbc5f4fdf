/*
service.go - Leave request lifecycle

PURPOSE:
  The single entry point for leave operations. Combines the validator,
  the conflict checker and the balance calculator over an injected
  TxRepository.

OPERATIONS:
  Submit          validate -> (lock emp) overlap check -> insert Pending
  List            all records, optional status filter, newest first
  ListByEmployee  one employee's records, newest first
  Get             one record by id
  Transition      Pending -> Approved | Rejected
  Balance         allocated / used / remaining days

CONCURRENCY:
  The overlap check and the write that depends on it run inside
  WithEmployeeLock, so two concurrent submissions or approvals for the
  same employee cannot both pass the check against a stale read.
  Approval re-checks overlap: two overlapping Pending requests can be
  submitted, but only one of them can be approved.

STATE MACHINE:
  Pending is the only source state. Re-applying the current status is
  a no-op that returns the record unchanged. Any other move out of
  Approved or Rejected is a ConflictError.

STORE FAILURES:
  Every repository call runs under the store timeout. Failures are
  wrapped in StoreError and returned immediately, never retried.
*/
package leave

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
)

// DefaultStoreTimeout bounds each operation's repository work.
const DefaultStoreTimeout = 5 * time.Second

const ruleStatus = "status"

// Service implements the leave request lifecycle.
type Service struct {
	repo      TxRepository
	policy    Policy
	validator *Validator
	timeout   time.Duration
	now       func() time.Time
	logger    *zap.Logger
}

// Option configures a Service.
type Option func(*Service)

// WithClock overrides time.Now for date-window checks.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// WithStoreTimeout sets the per-operation repository timeout.
// Zero disables it.
func WithStoreTimeout(d time.Duration) Option {
	return func(s *Service) { s.timeout = d }
}

func WithLogger(l *zap.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l.Named("leave.service")
		}
	}
}

// NewService creates a service over repo.
func NewService(repo TxRepository, policy Policy, opts ...Option) *Service {
	if policy.AllocatedLeaves == 0 {
		policy.AllocatedLeaves = DefaultAllocatedLeaves
	}
	s := &Service{
		repo:    repo,
		policy:  policy,
		timeout: DefaultStoreTimeout,
		now:     time.Now,
		logger:  zap.L().Named("leave.service"),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.validator = NewValidator(policy, s.now)
	return s
}

// Policy returns the policy the service enforces.
func (s *Service) Policy() Policy { return s.policy }

// Validator exposes the rule table, mostly for introspection.
func (s *Service) Validator() *Validator { return s.validator }

// =============================================================================
// SUBMIT
// =============================================================================

// Submit validates in and stores it as a Pending record.
func (s *Service) Submit(ctx context.Context, in Submission) (Record, error) {
	s.logger.Debug("submit leave requested",
		zap.String("emp_id", in.EmpID),
		zap.String("leave_type", in.LeaveType),
		zap.String("from_date", in.FromDate),
		zap.String("to_date", in.ToDate),
	)

	draft, err := s.validator.Validate(in)
	if err != nil {
		s.logger.Warn("submit leave validation failed", zap.String("emp_id", in.EmpID), zap.Error(err))
		return Record{}, err
	}

	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	var created Record
	err = s.repo.WithEmployeeLock(ctx, draft.EmpID, func(tx Repository) error {
		approved, err := tx.Query(ctx, Filter{EmpID: draft.EmpID, Status: StatusApproved})
		if err != nil {
			return s.storeErr("query approved", err)
		}
		if existing, ok := FindOverlap(draft.EmpID, draft.Range(), approved); ok {
			return overlapError(draft.EmpID, existing)
		}

		created, err = tx.Insert(ctx, draft)
		if err != nil {
			return s.storeErr("insert", err)
		}
		return nil
	})
	if err != nil {
		s.logFailure("submit leave failed", err, zap.String("emp_id", draft.EmpID))
		return Record{}, s.storeErr("submit", err)
	}

	s.logger.Info("submit leave success",
		zap.Int64("leave_id", created.ID),
		zap.String("emp_id", created.EmpID),
		zap.Stringer("range", created.Range()),
	)
	return created, nil
}

// =============================================================================
// QUERIES
// =============================================================================

// List returns every record, optionally narrowed to one status.
func (s *Service) List(ctx context.Context, status string) ([]Record, error) {
	f := Filter{}
	if status != "" {
		st, ok := ParseStatus(status)
		if !ok {
			return nil, invalid(ruleStatus, MsgInvalidStatus)
		}
		f.Status = st
	}

	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	records, err := s.repo.Query(ctx, f)
	if err != nil {
		s.logger.Error("list leaves failed", zap.Error(err))
		return nil, s.storeErr("query", err)
	}
	return records, nil
}

// ListByEmployee returns one employee's records, newest first.
func (s *Service) ListByEmployee(ctx context.Context, empID string) ([]Record, error) {
	if !ValidEmpID(empID) {
		return nil, invalid(RuleEmpIDFormat, MsgEmpIDLookup)
	}

	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	records, err := s.repo.Query(ctx, Filter{EmpID: empID})
	if err != nil {
		s.logger.Error("list employee leaves failed", zap.String("emp_id", empID), zap.Error(err))
		return nil, s.storeErr("query", err)
	}
	return records, nil
}

// Get returns one record.
func (s *Service) Get(ctx context.Context, id int64) (Record, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	r, err := s.repo.Get(ctx, id)
	if errors.Is(err, ErrNotFound) {
		return Record{}, &NotFoundError{ID: id}
	}
	if err != nil {
		s.logger.Error("get leave failed", zap.Int64("leave_id", id), zap.Error(err))
		return Record{}, s.storeErr("get", err)
	}
	return r, nil
}

// =============================================================================
// TRANSITION
// =============================================================================

// Transition moves record id to status, which must be Approved or
// Rejected. The status is checked before any store access.
func (s *Service) Transition(ctx context.Context, id int64, status string) (Record, error) {
	target := Status(status)
	if target != StatusApproved && target != StatusRejected {
		s.logger.Warn("transition rejected", zap.Int64("leave_id", id), zap.String("status", status))
		return Record{}, invalid(ruleStatus, MsgInvalidStatus)
	}

	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	current, err := s.repo.Get(ctx, id)
	if errors.Is(err, ErrNotFound) {
		return Record{}, &NotFoundError{ID: id}
	}
	if err != nil {
		s.logger.Error("transition lookup failed", zap.Int64("leave_id", id), zap.Error(err))
		return Record{}, s.storeErr("get", err)
	}

	var updated Record
	err = s.repo.WithEmployeeLock(ctx, current.EmpID, func(tx Repository) error {
		// Re-read under the lock; another transition may have landed.
		rec, err := tx.Get(ctx, id)
		if errors.Is(err, ErrNotFound) {
			return &NotFoundError{ID: id}
		}
		if err != nil {
			return s.storeErr("get", err)
		}

		if rec.Status == target {
			updated = rec
			return nil
		}
		if rec.Status.IsTerminal() {
			return &ConflictError{
				EmpID:      rec.EmpID,
				ExistingID: rec.ID,
				Message:    fmt.Sprintf("Leave is already %s", rec.Status),
			}
		}

		if target == StatusApproved {
			approved, err := tx.Query(ctx, Filter{EmpID: rec.EmpID, Status: StatusApproved})
			if err != nil {
				return s.storeErr("query approved", err)
			}
			if existing, ok := FindOverlap(rec.EmpID, rec.Range(), approved); ok {
				return overlapError(rec.EmpID, existing)
			}
		}

		updated, err = tx.UpdateStatus(ctx, id, target)
		if errors.Is(err, ErrNotFound) {
			return &NotFoundError{ID: id}
		}
		if err != nil {
			return s.storeErr("update status", err)
		}
		return nil
	})
	if err != nil {
		s.logFailure("transition failed", err, zap.Int64("leave_id", id), zap.String("status", status))
		return Record{}, s.storeErr("transition", err)
	}

	s.logger.Info("transition success",
		zap.Int64("leave_id", id),
		zap.String("emp_id", updated.EmpID),
		zap.String("status", string(updated.Status)),
	)
	return updated, nil
}

// =============================================================================
// BALANCE
// =============================================================================

// Balance computes empID's remaining allowance from Approved records.
func (s *Service) Balance(ctx context.Context, empID string) (Balance, error) {
	if !ValidEmpID(empID) {
		return Balance{}, invalid(RuleEmpIDFormat, MsgEmpIDLookup)
	}

	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	approved, err := s.repo.Query(ctx, Filter{EmpID: empID, Status: StatusApproved})
	if err != nil {
		s.logger.Error("balance query failed", zap.String("emp_id", empID), zap.Error(err))
		return Balance{}, s.storeErr("query approved", err)
	}
	return ComputeBalance(empID, approved, s.policy.AllocatedLeaves), nil
}

// =============================================================================
// HELPERS
// =============================================================================

func (s *Service) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, s.timeout)
}

// storeErr wraps err as a StoreError unless it already carries a kind.
func (s *Service) storeErr(op string, err error) error {
	if err == nil || KindOf(err) != KindUnknown {
		return err
	}
	return &StoreError{Op: op, Err: err}
}

func (s *Service) logFailure(msg string, err error, fields ...zap.Field) {
	fields = append(fields, zap.Error(err))
	if IsClientError(err) {
		s.logger.Warn(msg, fields...)
		return
	}
	s.logger.Error(msg, fields...)
}

func overlapError(empID string, existing Record) *ConflictError {
	return &ConflictError{
		EmpID:      empID,
		ExistingID: existing.ID,
		Message: fmt.Sprintf("Leave overlaps with approved leave %d from %s to %s",
			existing.ID, existing.From, existing.To),
	}
}

// Package memory provides an in-memory leave.TxRepository.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/warp/leave-service/leave"
)

// =============================================================================
// MEMORY STORE - In-memory implementation (for testing/dev)
// =============================================================================

type Store struct {
	mu      sync.RWMutex
	records []leave.Record
	nextID  int64
	now     func() time.Time
}

func New() *Store {
	return &Store{nextID: 1, now: time.Now}
}

// NewWithClock lets tests control CreatedAt.
func NewWithClock(now func() time.Time) *Store {
	s := New()
	s.now = now
	return s
}

func (s *Store) Insert(_ context.Context, r leave.Record) (leave.Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.insertLocked(r), nil
}

func (s *Store) Query(_ context.Context, f leave.Filter) ([]leave.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.queryLocked(f), nil
}

func (s *Store) Get(_ context.Context, id int64) (leave.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.getLocked(id)
}

func (s *Store) UpdateStatus(_ context.Context, id int64, status leave.Status) (leave.Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.updateLocked(id, status)
}

func (s *Store) Ping(_ context.Context) error { return nil }
func (s *Store) Close() error                 { return nil }

func (s *Store) insertLocked(r leave.Record) leave.Record {
	r.ID = s.nextID
	s.nextID++
	r.CreatedAt = s.now().UTC()
	if r.Status == "" {
		r.Status = leave.StatusPending
	}
	s.records = append(s.records, cloneRecord(r))
	return r
}

func (s *Store) queryLocked(f leave.Filter) []leave.Record {
	result := make([]leave.Record, 0)
	for _, r := range s.records {
		if f.EmpID != "" && r.EmpID != f.EmpID {
			continue
		}
		if f.Status != "" && r.Status != f.Status {
			continue
		}
		result = append(result, cloneRecord(r))
	}
	sort.SliceStable(result, func(i, j int) bool {
		if !result[i].CreatedAt.Equal(result[j].CreatedAt) {
			return result[i].CreatedAt.After(result[j].CreatedAt)
		}
		return result[i].ID > result[j].ID
	})
	return result
}

func (s *Store) getLocked(id int64) (leave.Record, error) {
	for _, r := range s.records {
		if r.ID == id {
			return cloneRecord(r), nil
		}
	}
	return leave.Record{}, leave.ErrNotFound
}

func (s *Store) updateLocked(id int64, status leave.Status) (leave.Record, error) {
	for i := range s.records {
		if s.records[i].ID == id {
			s.records[i].Status = status
			return cloneRecord(s.records[i]), nil
		}
	}
	return leave.Record{}, leave.ErrNotFound
}

// =============================================================================
// TRANSACTIONS
// =============================================================================

// WithEmployeeLock runs fn holding the store lock. Writes made through
// the passed repository are rolled back from a snapshot if fn fails.
// The lock is store-wide, which also serializes per employee.
func (s *Store) WithEmployeeLock(ctx context.Context, _ string, fn func(leave.Repository) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	snap := s.snapshot()
	if err := fn(&txView{parent: s}); err != nil {
		s.restore(snap)
		return err
	}
	return nil
}

type memorySnapshot struct {
	records []leave.Record
	nextID  int64
}

func (s *Store) snapshot() memorySnapshot {
	records := make([]leave.Record, len(s.records))
	for i, r := range s.records {
		records[i] = cloneRecord(r)
	}
	return memorySnapshot{records: records, nextID: s.nextID}
}

func (s *Store) restore(snap memorySnapshot) {
	s.records = snap.records
	s.nextID = snap.nextID
}

// txView is the lock-free view handed to WithEmployeeLock callbacks.
type txView struct {
	parent *Store
}

func (v *txView) Insert(_ context.Context, r leave.Record) (leave.Record, error) {
	return v.parent.insertLocked(r), nil
}

func (v *txView) Query(_ context.Context, f leave.Filter) ([]leave.Record, error) {
	return v.parent.queryLocked(f), nil
}

func (v *txView) Get(_ context.Context, id int64) (leave.Record, error) {
	return v.parent.getLocked(id)
}

func (v *txView) UpdateStatus(_ context.Context, id int64, status leave.Status) (leave.Record, error) {
	return v.parent.updateLocked(id, status)
}

func cloneRecord(r leave.Record) leave.Record {
	if r.FromHour != nil {
		h := *r.FromHour
		r.FromHour = &h
	}
	if r.ToHour != nil {
		h := *r.ToHour
		r.ToHour = &h
	}
	return r
}

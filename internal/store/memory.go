package store

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/quantfold/backtest/internal/core"
)

// MemoryStore is an in-memory ResultStore with bounded capacity.
// Runs and results are stored by value semantics: callers always get
// copies, never pointers into the store.
type MemoryStore struct {
	runs    map[string]*core.Run
	results map[string]*core.Result
	order   []string // Track insertion order for eviction
	maxSize int
	mu      sync.RWMutex
}

// NewMemoryStore creates a new in-memory store with max capacity.
func NewMemoryStore(maxSize int) *MemoryStore {
	return &MemoryStore{
		runs:    make(map[string]*core.Run),
		results: make(map[string]*core.Result),
		order:   make([]string, 0, maxSize),
		maxSize: maxSize,
	}
}

// CreateRun registers a new run in PENDING state.
func (m *MemoryStore) CreateRun(ctx context.Context, cfg core.BacktestConfig) (*core.Run, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := time.Now()
	run := &core.Run{
		ID:        uuid.NewString(),
		Config:    cfg,
		Status:    core.StatusPending,
		CreatedAt: now,
		UpdatedAt: now,
	}

	// Evict oldest if at capacity
	if len(m.runs) >= m.maxSize && len(m.order) > 0 {
		oldest := m.order[0]
		delete(m.runs, oldest)
		delete(m.results, oldest)
		m.order = m.order[1:]
	}

	m.runs[run.ID] = run
	m.order = append(m.order, run.ID)

	runCopy := *run
	return &runCopy, nil
}

// GetRun retrieves a run by ID.
func (m *MemoryStore) GetRun(ctx context.Context, id string) (*core.Run, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	run, ok := m.runs[id]
	if !ok {
		return nil, core.ErrRunNotFound
	}

	runCopy := *run
	return &runCopy, nil
}

// ListRuns returns all known runs in insertion order.
func (m *MemoryStore) ListRuns(ctx context.Context) ([]core.Run, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	result := make([]core.Run, 0, len(m.runs))
	for _, id := range m.order {
		if run, ok := m.runs[id]; ok {
			result = append(result, *run)
		}
	}
	return result, nil
}

// UpdateStatus moves a run forward through its lifecycle. RUNNING stamps
// the start time, terminal states stamp the end time.
func (m *MemoryStore) UpdateStatus(ctx context.Context, id string, status core.Status, errMsg string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	run, ok := m.runs[id]
	if !ok {
		return core.ErrRunNotFound
	}

	if !run.Status.CanTransition(status) {
		if run.Status.IsTerminal() {
			return core.WrapError(core.ErrRunTerminal,
				fmt.Errorf("run %s is %s", id, run.Status))
		}
		return core.WrapError(core.ErrValidationFailed,
			fmt.Errorf("illegal transition %s -> %s for run %s", run.Status, status, id))
	}

	now := time.Now()
	run.Status = status
	run.UpdatedAt = now
	run.ErrorMessage = errMsg
	switch {
	case status == core.StatusRunning:
		run.StartTime = &now
	case status.IsTerminal():
		run.EndTime = &now
	}
	return nil
}

// SaveResult stores the result of a completed run. The result is treated
// as immutable after saving.
func (m *MemoryStore) SaveResult(ctx context.Context, result *core.Result) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.runs[result.RunID]; !ok {
		return core.ErrRunNotFound
	}

	resultCopy := *result
	m.results[result.RunID] = &resultCopy
	return nil
}

// GetResult retrieves the result of a run by run ID.
func (m *MemoryStore) GetResult(ctx context.Context, id string) (*core.Result, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	result, ok := m.results[id]
	if !ok {
		return nil, core.ErrRunNotFound
	}

	resultCopy := *result
	return &resultCopy, nil
}

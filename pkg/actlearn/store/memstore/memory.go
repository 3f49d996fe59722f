// Package memstore is the in-memory Store used by tests and short runs.
package memstore

import (
	"context"
	"sort"
	"sync"

	"github.com/cognicore/actlearn/pkg/actlearn/store"
)

// Memory implements store.Store in memory.
type Memory struct {
	mu        sync.Mutex
	runs      map[string]store.Run
	steps     map[string][]store.StepStats
	snapshots map[string][]store.Snapshot
}

// New creates an empty in-memory store.
func New() *Memory {
	return &Memory{
		runs:      map[string]store.Run{},
		steps:     map[string][]store.StepStats{},
		snapshots: map[string][]store.Snapshot{},
	}
}

// Close is a no-op.
func (m *Memory) Close() error {
	return nil
}

// CreateRun records a run.
func (m *Memory) CreateRun(_ context.Context, r store.Run) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.runs[r.ID] = r
	return nil
}

// GetRun looks a run up.
func (m *Memory) GetRun(_ context.Context, id string) (store.Run, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.runs[id]
	return r, ok, nil
}

// ListRuns returns every run ordered by start time.
func (m *Memory) ListRuns(_ context.Context) ([]store.Run, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]store.Run, 0, len(m.runs))
	for _, r := range m.runs {
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].StartedAt.Before(out[j].StartedAt) })
	return out, nil
}

// AppendStep records one step of a run.
func (m *Memory) AppendStep(_ context.Context, s store.StepStats) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.steps[s.RunID] = append(m.steps[s.RunID], s)
	return nil
}

// StepsForRun returns the steps of a run in order.
func (m *Memory) StepsForRun(_ context.Context, runID string) ([]store.StepStats, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := append([]store.StepStats{}, m.steps[runID]...)
	sort.Slice(out, func(i, j int) bool { return out[i].Step < out[j].Step })
	return out, nil
}

// SaveSnapshot records a rule-set snapshot.
func (m *Memory) SaveSnapshot(_ context.Context, s store.Snapshot) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.snapshots[s.RunID] = append(m.snapshots[s.RunID], s)
	return nil
}

// SnapshotsForRun returns the snapshots of a run in step order.
func (m *Memory) SnapshotsForRun(_ context.Context, runID string) ([]store.Snapshot, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := append([]store.Snapshot{}, m.snapshots[runID]...)
	sort.Slice(out, func(i, j int) bool { return out[i].Step < out[j].Step })
	return out, nil
}

package engine

import (
	"context"
	"fmt"
	"sync"

	"github.com/relaylabs/leadmatch/internal/judge"
	"github.com/relaylabs/leadmatch/internal/model"
	"github.com/relaylabs/leadmatch/internal/strategy"
)

// MockOracle is a configurable judgment oracle for testing.
type MockOracle struct {
	// JudgeFunc, when set, handles every call.
	JudgeFunc func(ctx context.Context, intent *model.Intent, profile *model.Profile) (judge.Result, error)
	// Result and Err are returned when JudgeFunc is nil.
	Result judge.Result
	Err    error
	// Unavailable makes Available report false.
	Unavailable bool

	mu         sync.Mutex
	calls      int
	inFlight   int
	maxFlight  int
	calledWith []string
}

// Judge returns the configured result, tracking call concurrency.
func (m *MockOracle) Judge(ctx context.Context, intent *model.Intent, profile *model.Profile) (judge.Result, error) {
	m.mu.Lock()
	m.calls++
	m.inFlight++
	if m.inFlight > m.maxFlight {
		m.maxFlight = m.inFlight
	}
	m.calledWith = append(m.calledWith, profile.ID)
	m.mu.Unlock()

	defer func() {
		m.mu.Lock()
		m.inFlight--
		m.mu.Unlock()
	}()

	if m.JudgeFunc != nil {
		return m.JudgeFunc(ctx, intent, profile)
	}
	if m.Err != nil {
		return judge.Result{}, m.Err
	}
	return m.Result, nil
}

// Available reports whether the mock accepts calls.
func (m *MockOracle) Available() bool {
	return !m.Unavailable
}

// Calls returns how many judgments were requested.
func (m *MockOracle) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

// MaxConcurrent returns the peak number of simultaneous judgments.
func (m *MockOracle) MaxConcurrent() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.maxFlight
}

// MockStore is an in-memory match store for testing.
type MockStore struct {
	mu      sync.Mutex
	records map[string]*model.MatchRecord
	// FailFor makes upserts for this profile ID fail.
	FailFor string
}

// NewMockStore creates an empty in-memory store.
func NewMockStore() *MockStore {
	return &MockStore{records: make(map[string]*model.MatchRecord)}
}

// UpsertMatch stores the record keyed by pair. The first insert
// notifies; updates are silent.
func (m *MockStore) UpsertMatch(_ context.Context, record *model.MatchRecord) (*model.MatchRecord, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.FailFor != "" && record.ProfileID == m.FailFor {
		return nil, false, fmt.Errorf("storage failure for %s", record.ProfileID)
	}

	key := record.IntentID + "\x00" + record.ProfileID
	_, existed := m.records[key]
	stored := *record
	if !existed {
		stored.Status = model.StatusPending
	}
	m.records[key] = &stored
	return &stored, !existed, nil
}

// Len returns the number of stored records.
func (m *MockStore) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.records)
}

// fixedSelector always returns the same mode and params.
type fixedSelector struct {
	mode   strategy.Mode
	params strategy.Params
}

func (s fixedSelector) Select(_ *model.Intent, _ int, _ model.Tier, judgmentAvailable bool) (strategy.Mode, strategy.Params) {
	params := s.params
	if !judgmentAvailable && params.UseJudgment {
		params.UseJudgment = false
		params.JudgmentWeight = 0
		params.HeuristicWeight = 1.0
	}
	return s.mode, params
}

package resultstore

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"github.com/askiada/content-pipeline/pkg/pipeline/model"
)

// Memory keeps stage outputs in a map. It is safe for concurrent use.
type Memory struct {
	mu      sync.RWMutex
	outputs map[uuid.UUID]map[model.Stage]map[string]any
}

func NewMemory() *Memory {
	return &Memory{
		outputs: make(map[uuid.UUID]map[model.Stage]map[string]any),
	}
}

func (m *Memory) Save(_ context.Context, runID uuid.UUID, stage model.Stage, output map[string]any) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.outputs[runID] == nil {
		m.outputs[runID] = make(map[model.Stage]map[string]any)
	}

	m.outputs[runID][stage] = output

	return nil
}

func (m *Memory) Load(_ context.Context, runID uuid.UUID, stage model.Stage) (map[string]any, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	output, ok := m.outputs[runID][stage]

	return output, ok, nil
}

// Stages returns the stages with a stored output for runID, sorted by name.
func (m *Memory) Stages(_ context.Context, runID uuid.UUID) ([]model.Stage, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	res := make([]model.Stage, 0, len(m.outputs[runID]))
	for stage := range m.outputs[runID] {
		res = append(res, stage)
	}

	sortStages(res)

	return res, nil
}

// Delete drops every output of runID.
func (m *Memory) Delete(_ context.Context, runID uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.outputs, runID)

	return nil
}

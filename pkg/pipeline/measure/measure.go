package measure

import (
	"sync"

	"github.com/askiada/content-pipeline/pkg/pipeline/model"
)

// DefaultMeasure keeps one metric per stage in memory. Metrics accumulate across runs.
type DefaultMeasure struct {
	mu     sync.RWMutex
	Stages map[model.Stage]Metric
}

func NewDefaultMeasure() *DefaultMeasure {
	return &DefaultMeasure{
		Stages: make(map[model.Stage]Metric),
	}
}

// AddMetric returns the metric of stage, creating it on first use.
func (m *DefaultMeasure) AddMetric(stage model.Stage) Metric {
	m.mu.Lock()
	defer m.mu.Unlock()

	if mt, ok := m.Stages[stage]; ok {
		return mt
	}

	mt := &DefaultMetric{
		waits:    make(map[model.Stage]*WaitInfo),
		statuses: make(map[model.StageStatus]int),
	}
	m.Stages[stage] = mt

	return mt
}

func (m *DefaultMeasure) GetMetric(stage model.Stage) Metric {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return m.Stages[stage]
}

func (m *DefaultMeasure) AllMetrics() map[model.Stage]Metric {
	m.mu.RLock()
	defer m.mu.RUnlock()

	res := make(map[model.Stage]Metric, len(m.Stages))
	for stage, mt := range m.Stages {
		res[stage] = mt
	}

	return res
}

var _ Measure = (*DefaultMeasure)(nil)

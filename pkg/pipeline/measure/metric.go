package measure

import (
	"sync"
	"time"

	"github.com/askiada/content-pipeline/pkg/pipeline/model"
)

// WaitInfo accumulates the time a stage waited on the output of one of its parents.
type WaitInfo struct {
	Elapsed time.Duration
	total   int64
}

type DefaultMetric struct {
	mu          sync.Mutex
	waits       map[model.Stage]*WaitInfo
	statuses    map[model.StageStatus]int
	EndDuration time.Duration
	elapsed     time.Duration
	total       int64
}

func (mt *DefaultMetric) AddDuration(elapsed time.Duration) {
	mt.mu.Lock()
	defer mt.mu.Unlock()
	mt.total++
	mt.elapsed += elapsed
}

func (mt *DefaultMetric) SetTotalDuration(endDuration time.Duration) {
	mt.mu.Lock()
	defer mt.mu.Unlock()
	mt.EndDuration = endDuration
}

func (mt *DefaultMetric) GetTotalDuration() time.Duration {
	mt.mu.Lock()
	defer mt.mu.Unlock()

	return mt.EndDuration
}

func (mt *DefaultMetric) AddWaitDuration(parent model.Stage, elapsed time.Duration) {
	mt.mu.Lock()
	defer mt.mu.Unlock()

	if mt.waits[parent] == nil {
		mt.waits[parent] = &WaitInfo{}
	}

	wait := mt.waits[parent]
	wait.Elapsed += elapsed
	wait.total++
}

func (mt *DefaultMetric) AddStatus(status model.StageStatus) {
	mt.mu.Lock()
	defer mt.mu.Unlock()
	mt.statuses[status]++
}

func (mt *DefaultMetric) Count(status model.StageStatus) int {
	mt.mu.Lock()
	defer mt.mu.Unlock()

	return mt.statuses[status]
}

func (mt *DefaultMetric) AVGDuration() time.Duration {
	mt.mu.Lock()
	defer mt.mu.Unlock()

	if mt.total == 0 {
		return time.Duration(0)
	}

	return round(time.Duration(float64(mt.elapsed) / float64(mt.total)))
}

// AVGWaitDuration returns the average wait per parent stage.
func (mt *DefaultMetric) AVGWaitDuration() map[model.Stage]time.Duration {
	mt.mu.Lock()
	defer mt.mu.Unlock()

	res := make(map[model.Stage]time.Duration, len(mt.waits))

	for parent, wait := range mt.waits {
		if wait.total == 0 {
			continue
		}

		res[parent] = round(time.Duration(float64(wait.Elapsed) / float64(wait.total)))
	}

	return res
}

func round(d time.Duration) time.Duration {
	switch {
	case d > time.Hour:
		d = d.Round(time.Minute)
	case d > time.Second:
		d = d.Round(time.Second)
	case d > time.Millisecond:
		d = d.Round(time.Millisecond)
	case d > time.Microsecond:
		d = d.Round(time.Microsecond)
	}

	return d
}

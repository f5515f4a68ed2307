package measure

import (
	"time"

	"github.com/askiada/content-pipeline/pkg/pipeline/model"
)

type Measure interface {
	AddMetric(stage model.Stage) Metric
	GetMetric(stage model.Stage) Metric
	AllMetrics() map[model.Stage]Metric
}

type Metric interface {
	AddDuration(elapsed time.Duration)
	AddWaitDuration(parent model.Stage, elapsed time.Duration)
	AddStatus(status model.StageStatus)
	AVGDuration() time.Duration
	AVGWaitDuration() map[model.Stage]time.Duration
	Count(status model.StageStatus) int
	SetTotalDuration(endDuration time.Duration)
	GetTotalDuration() time.Duration
}

package measure

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/askiada/content-pipeline/pkg/pipeline/model"
)

// PrometheusMeasure exports stage and run metrics to a Prometheus registerer.
type PrometheusMeasure struct {
	stageDuration *prometheus.HistogramVec
	stageWait     *prometheus.HistogramVec
	stageTotal    *prometheus.CounterVec
	runDuration   *prometheus.HistogramVec
}

// NewPrometheusMeasure registers the metrics in reg under namespace.
//
// Metrics:
//
//	<namespace>_stage_duration_seconds{stage}
//	<namespace>_stage_wait_seconds{stage,parent}
//	<namespace>_stage_total{stage,status}
//	<namespace>_run_duration_seconds{outcome}
func NewPrometheusMeasure(reg prometheus.Registerer, namespace string) *PrometheusMeasure {
	factory := promauto.With(reg)

	return &PrometheusMeasure{
		stageDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "stage_duration_seconds",
			Help:      "Execution time of the stages that succeeded",
			Buckets:   []float64{0.1, 0.5, 1, 2, 5, 10, 20, 30, 60, 120},
		}, []string{"stage"}),
		stageWait: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "stage_wait_seconds",
			Help:      "Time between the end of a parent stage and the start of a stage",
			Buckets:   prometheus.DefBuckets,
		}, []string{"stage", "parent"}),
		stageTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "stage_total",
			Help:      "Stages by final status",
		}, []string{"stage", "status"}),
		runDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "run_duration_seconds",
			Help:      "Duration of pipeline runs",
			Buckets:   []float64{1, 5, 10, 30, 60, 120, 300, 600},
		}, []string{"outcome"}),
	}
}

func (pm *PrometheusMeasure) New() error {
	return nil
}

func (pm *PrometheusMeasure) OnLevelStart(model.ExecutionLevel) error {
	return nil
}

func (pm *PrometheusMeasure) PrepareStage([]*model.StageInfo, *model.StageInfo) error {
	return nil
}

func (pm *PrometheusMeasure) OnStageOutput(_ []*model.StageInfo, stage *model.StageInfo, waitDuration map[model.Stage]time.Duration, computationDuration time.Duration) error {
	if stage.Status != model.StatusSucceeded {
		return nil
	}

	pm.stageDuration.WithLabelValues(stage.Stage.String()).Observe(computationDuration.Seconds())

	for parent, elapsed := range waitDuration {
		pm.stageWait.WithLabelValues(stage.Stage.String(), parent.String()).Observe(elapsed.Seconds())
	}

	return nil
}

func (pm *PrometheusMeasure) Finish(summary *model.RunSummary) error {
	for stage, info := range summary.Stages {
		pm.stageTotal.WithLabelValues(stage.String(), string(info.Status)).Inc()
	}

	outcome := "success"
	if summary.Err != nil {
		outcome = "failure"
	}

	pm.runDuration.WithLabelValues(outcome).Observe(summary.Duration.Seconds())

	return nil
}

var _ model.PipelineOption = (*PrometheusMeasure)(nil)

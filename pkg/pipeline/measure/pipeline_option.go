package measure

import (
	"time"

	"github.com/askiada/content-pipeline/pkg/pipeline/model"
)

type pipelineMeasure struct {
	Measure
}

func (pm *pipelineMeasure) New() error {
	pm.AddMetric(model.StartStage.Stage)
	pm.AddMetric(model.EndStage.Stage)

	return nil
}

func (pm *pipelineMeasure) OnLevelStart(model.ExecutionLevel) error {
	return nil
}

func (pm *pipelineMeasure) PrepareStage(_ []*model.StageInfo, stage *model.StageInfo) error {
	pm.AddMetric(stage.Stage)

	return nil
}

func (pm *pipelineMeasure) OnStageOutput(_ []*model.StageInfo, stage *model.StageInfo, waitDuration map[model.Stage]time.Duration, computationDuration time.Duration) error {
	mt := pm.AddMetric(stage.Stage)
	mt.AddStatus(stage.Status)

	if stage.Status != model.StatusSucceeded {
		return nil
	}

	mt.AddDuration(computationDuration)

	for parent, elapsed := range waitDuration {
		mt.AddWaitDuration(parent, elapsed)
	}

	return nil
}

func (pm *pipelineMeasure) Finish(summary *model.RunSummary) error {
	pm.AddMetric(model.EndStage.Stage).SetTotalDuration(summary.Duration)

	// Failed stages have no output.
	for stage, info := range summary.Stages {
		if info.Status == model.StatusFailed {
			pm.AddMetric(stage).AddStatus(info.Status)
		}
	}

	return nil
}

// PipelineMeasure records the duration of every stage in measure.
func PipelineMeasure(measure Measure) model.PipelineOption {
	return &pipelineMeasure{measure}
}

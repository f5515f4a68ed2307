package drawer

import (
	"time"

	"github.com/pkg/errors"

	"github.com/askiada/content-pipeline/pkg/pipeline/measure"
	"github.com/askiada/content-pipeline/pkg/pipeline/model"
)

type pipelineDrawer struct {
	Drawer
	m measure.Measure
}

func (pd *pipelineDrawer) New() error {
	err := pd.AddStage(model.StartStage.Stage, model.StartStage.Label)
	if err != nil {
		return errors.Wrap(err, "unable to add start stage to drawer")
	}

	err = pd.AddStage(model.EndStage.Stage, model.EndStage.Label)
	if err != nil {
		return errors.Wrap(err, "unable to add end stage to drawer")
	}

	return nil
}

func (pd *pipelineDrawer) OnLevelStart(model.ExecutionLevel) error {
	return nil
}

func (pd *pipelineDrawer) PrepareStage(parentStages []*model.StageInfo, stage *model.StageInfo) error {
	err := pd.AddStage(stage.Stage, stage.Label)
	if err != nil {
		return err
	}

	for _, parent := range parentStages {
		err = pd.AddLink(parent.Stage, stage.Stage)
		if err != nil {
			return err
		}
	}

	return nil
}

func (pd *pipelineDrawer) OnStageOutput(_ []*model.StageInfo, stage *model.StageInfo, _ map[model.Stage]time.Duration, _ time.Duration) error {
	return pd.SetStatus(stage.Stage, stage.Status)
}

func (pd *pipelineDrawer) Finish(summary *model.RunSummary) error {
	parents := map[model.Stage]struct{}{}

	for _, info := range summary.Stages {
		for _, dep := range info.DependsOn {
			parents[dep] = struct{}{}
		}
	}

	for _, level := range summary.Levels {
		for _, stage := range level.Stages {
			if _, ok := parents[stage]; !ok {
				err := pd.AddLink(stage, model.EndStage.Stage)
				if err != nil {
					return err
				}
			}

			if info, ok := summary.Stages[stage]; ok {
				err := pd.SetStatus(stage, info.Status)
				if err != nil {
					return err
				}
			}
		}
	}

	err := pd.SetTotalTime(model.EndStage.Stage, summary.Duration)
	if err != nil {
		return errors.Wrap(err, "unable to set total time")
	}

	if pd.m != nil {
		err = pd.AddMeasure(pd.m)
		if err != nil {
			return errors.Wrap(err, "unable to add measure")
		}
	}

	err = pd.Draw()
	if err != nil {
		return errors.Wrap(err, "unable to draw pipeline")
	}

	return nil
}

// PipelineDrawer draws every run with drawer. When measure is set, stages and links are annotated with its metrics.
func PipelineDrawer(drawer Drawer, measure measure.Measure) model.PipelineOption {
	return &pipelineDrawer{drawer, measure}
}

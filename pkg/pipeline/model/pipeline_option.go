package model

import "time"

// PipelineOption defines the interface for pipeline options.
type PipelineOption interface {
	// New initialises the pipeline option.
	New() error

	pipelineLevelOption
	pipelineStageOption

	// Finish runs after every run, successful or not.
	Finish(summary *RunSummary) error
}

// pipelineLevelOption defines the interface for level options at the pipeline level.
type pipelineLevelOption interface {
	// OnLevelStart runs before the stages of a level are started.
	OnLevelStart(level ExecutionLevel) error
}

// pipelineStageOption defines the interface for stage options at the pipeline level.
type pipelineStageOption interface {
	// PrepareStage runs once per scheduled stage before the first level starts.
	PrepareStage(parentStages []*StageInfo, stage *StageInfo) error
	// OnStageOutput runs when a stage is over. waitDuration is the time spent between the completion of
	// each parent stage and the start of the stage; computationDuration is the time spent executing it.
	OnStageOutput(parentStages []*StageInfo, stage *StageInfo, waitDuration map[Stage]time.Duration, computationDuration time.Duration) error
}

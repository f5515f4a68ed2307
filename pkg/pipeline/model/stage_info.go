package model

import (
	"time"

	"github.com/google/uuid"
)

// StageStatus is the state of a stage within a single run.
type StageStatus string

const (
	StatusPending   StageStatus = "pending"
	StatusRunning   StageStatus = "running"
	StatusSucceeded StageStatus = "succeeded"
	StatusFailed    StageStatus = "failed"
	StatusSkipped   StageStatus = "skipped"
	StatusReused    StageStatus = "reused"
)

// Done reports whether the stage has a usable output.
func (s StageStatus) Done() bool {
	return s == StatusSucceeded || s == StatusReused
}

// StageInfo describes a stage as it is scheduled in a run.
type StageInfo struct {
	Stage     Stage
	Label     string
	Level     int
	DependsOn []Stage
	Status    StageStatus
	Duration  time.Duration
	Err       error
}

var (
	StartStage = &StageInfo{Stage: "start", Label: "start", Level: -1}
	EndStage   = &StageInfo{Stage: "end", Label: "end", Level: -1}
)

// RunSummary is handed to pipeline options once a run is over.
type RunSummary struct {
	RunID    uuid.UUID
	Target   Stage
	Levels   []ExecutionLevel
	Stages   map[Stage]*StageInfo
	Duration time.Duration
	Err      error
}

package pipeline

import (
	"time"

	"github.com/askiada/content-pipeline/pkg/pipeline/model"
)

// PathStep is a stage on the critical path of a run.
type PathStep struct {
	Stage model.Stage
	// Duration is the time spent executing the stage.
	Duration time.Duration
	// Cumulative is the time spent on the path up to and including the stage.
	Cumulative time.Duration
}

// CriticalPath returns the chain of dependent stages with the largest total execution time in a run result.
// Reused and skipped stages count as zero. The path is ordered from the first stage to the last.
func (r *Registry) CriticalPath(result *RunResult) []PathStep {
	if result == nil {
		return nil
	}

	cumulative := make(map[model.Stage]time.Duration)
	previous := make(map[model.Stage]model.Stage)

	var (
		last model.Stage
		best time.Duration = -1
	)

	for _, level := range result.Levels {
		for _, stage := range level.Stages {
			var (
				upstream time.Duration
				from     model.Stage
			)

			for _, dep := range r.dependsOn(stage) {
				total, ok := cumulative[dep]
				if ok && (from == "" || total > upstream) {
					upstream = total
					from = dep
				}
			}

			cumulative[stage] = upstream + stageDuration(result, stage)
			if from != "" {
				previous[stage] = from
			}

			if cumulative[stage] > best {
				best = cumulative[stage]
				last = stage
			}
		}
	}

	if last == "" {
		return nil
	}

	path := []PathStep{}
	for stage := last; stage != ""; stage = previous[stage] {
		path = append([]PathStep{{
			Stage:      stage,
			Duration:   stageDuration(result, stage),
			Cumulative: cumulative[stage],
		}}, path...)
	}

	return path
}

func stageDuration(result *RunResult, stage model.Stage) time.Duration {
	info, ok := result.Stages[stage]
	if !ok || info.Status != model.StatusSucceeded {
		return 0
	}

	return info.Duration
}

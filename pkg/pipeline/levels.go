package pipeline

import "github.com/askiada/content-pipeline/pkg/pipeline/model"

// BuildExecutionLevels groups the stages into levels: every stage of a level only depends on stages of earlier
// levels, so the stages of a level can run concurrently. Within a level stages keep their declaration order.
//
// When includeOptional is false the optional stage of the registry is left out.
func (r *Registry) BuildExecutionLevels(includeOptional bool) []model.ExecutionLevel {
	stages := make([]model.Stage, 0, len(r.order))

	for _, stage := range r.order {
		if !includeOptional && r.optional != "" && stage == r.optional {
			continue
		}

		stages = append(stages, stage)
	}

	assigned := make(map[model.Stage]struct{}, len(stages))
	levels := []model.ExecutionLevel{}

	for len(assigned) < len(stages) {
		levelStages := []model.Stage{}

		for _, stage := range stages {
			if _, ok := assigned[stage]; ok {
				continue
			}

			if r.dependenciesAssigned(stage, assigned) {
				levelStages = append(levelStages, stage)
			}
		}

		// NewRegistry rejects cycles, this only guards against an endless loop.
		if len(levelStages) == 0 {
			break
		}

		for _, stage := range levelStages {
			assigned[stage] = struct{}{}
		}

		levels = append(levels, model.ExecutionLevel{
			Level:  len(levels),
			Stages: levelStages,
		})
	}

	return levels
}

func (r *Registry) dependenciesAssigned(stage model.Stage, assigned map[model.Stage]struct{}) bool {
	for _, dep := range r.dependsOn(stage) {
		if _, ok := assigned[dep]; !ok {
			return false
		}
	}

	return true
}

// StageLevels maps every stage of levels to the index of its level.
func StageLevels(levels []model.ExecutionLevel) map[model.Stage]int {
	res := make(map[model.Stage]int)

	for _, level := range levels {
		for _, stage := range level.Stages {
			res[stage] = level.Level
		}
	}

	return res
}

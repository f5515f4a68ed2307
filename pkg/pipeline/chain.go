package pipeline

import "github.com/askiada/content-pipeline/pkg/pipeline/model"

// UpstreamChain returns the smallest ordered subset of the execution levels needed to produce target.
// Stages that target does not need, even if they share a dependency with it, are left out.
// Levels are renumbered from 0 and the last one only holds target.
//
// The optional stage is never part of a chain; asking for it directly returns a single level.
func (r *Registry) UpstreamChain(target model.Stage) ([]model.ExecutionLevel, error) {
	if !r.Has(target) {
		return nil, unknownStage(target)
	}

	if r.optional != "" && target == r.optional {
		return []model.ExecutionLevel{{Level: 0, Stages: []model.Stage{target}}}, nil
	}

	required := r.upstreamStages(target)
	res := []model.ExecutionLevel{}

	for _, level := range r.BuildExecutionLevels(false) {
		stages := []model.Stage{}

		for _, stage := range level.Stages {
			if _, ok := required[stage]; ok {
				stages = append(stages, stage)
			}
		}

		if len(stages) == 0 {
			continue
		}

		res = append(res, model.ExecutionLevel{
			Level:  len(res),
			Stages: stages,
		})
	}

	return res, nil
}

// upstreamStages returns target and every stage it transitively depends on.
func (r *Registry) upstreamStages(target model.Stage) map[model.Stage]struct{} {
	required := map[model.Stage]struct{}{target: {}}
	queue := []model.Stage{target}

	for len(queue) > 0 {
		current := queue[0]
		queue = queue[1:]

		for _, dep := range r.dependsOn(current) {
			if _, ok := required[dep]; ok {
				continue
			}

			required[dep] = struct{}{}
			queue = append(queue, dep)
		}
	}

	return required
}

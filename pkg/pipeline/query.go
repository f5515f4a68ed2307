package pipeline

import (
	"strings"

	"github.com/askiada/content-pipeline/pkg/pipeline/model"
)

// DependencyInfo describes the dependencies of a stage with their labels.
func (r *Registry) DependencyInfo(stage model.Stage) (model.DependencyInfo, error) {
	if !r.Has(stage) {
		return model.DependencyInfo{}, unknownStage(stage)
	}

	deps := r.dependsOn(stage)
	names := make([]string, len(deps))

	for i, dep := range deps {
		names[i] = r.Label(dep)
	}

	return model.DependencyInfo{
		HasDependencies: len(deps) > 0,
		DependencyNames: names,
		Description:     describeDependencies(names),
	}, nil
}

func describeDependencies(names []string) string {
	switch len(names) {
	case 0:
		return "No dependencies (independent stage)"
	case 1:
		return "Requires " + names[0] + " result"
	default:
		last := len(names) - 1

		return "Requires " + strings.Join(names[:last], ", ") + " and " + names[last] + " results"
	}
}

// CheckDependenciesReady reports which dependencies of stage have a completed result in available.
// Missing and Available keep the declaration order of the dependencies.
func (r *Registry) CheckDependenciesReady(stage model.Stage, available map[model.Stage]bool) (model.Readiness, error) {
	if !r.Has(stage) {
		return model.Readiness{}, unknownStage(stage)
	}

	res := model.Readiness{
		Missing:   []model.Stage{},
		Available: []model.Stage{},
	}

	for _, dep := range r.dependsOn(stage) {
		if available[dep] {
			res.Available = append(res.Available, dep)

			continue
		}

		res.Missing = append(res.Missing, dep)
	}

	res.Ready = len(res.Missing) == 0

	return res, nil
}

// DownstreamStages returns every stage depending on stage, directly or transitively,
// in breadth first discovery order.
func (r *Registry) DownstreamStages(stage model.Stage) ([]model.Stage, error) {
	if !r.Has(stage) {
		return nil, unknownStage(stage)
	}

	res := []model.Stage{}
	seen := map[model.Stage]struct{}{stage: {}}
	queue := []model.Stage{stage}

	for len(queue) > 0 {
		current := queue[0]
		queue = queue[1:]

		for _, dependent := range r.store.Dependents(current) {
			if _, ok := seen[dependent]; ok {
				continue
			}

			seen[dependent] = struct{}{}
			res = append(res, dependent)
			queue = append(queue, dependent)
		}
	}

	return res, nil
}

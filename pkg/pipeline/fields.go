package pipeline

import (
	"github.com/askiada/content-pipeline/pkg/pipeline/model"
)

// ExtractFieldsForNextStage picks the fields of the output of source that target consumes and shapes them as
// target expects its input. Only the mappings tagged with source as origin are applied, so a stage with several
// dependencies builds its input with one call per dependency, in any order.
//
// An empty map is returned when source is not a dependency of target. A missing output field is skipped while a
// nil value is copied.
func (r *Registry) ExtractFieldsForNextStage(source, target model.Stage, output map[string]any) map[string]any {
	extracted := map[string]any{}

	cfg, ok := r.configs[target]
	if !ok || !cfg.DependsOnStage(source) {
		return extracted
	}

	// owned holds the parents created here. A parent taken from output is copied before a child is added.
	owned := map[string]bool{}

	for _, mapping := range cfg.FieldMapping {
		if mapping.Origin != source {
			continue
		}

		value, ok := output[mapping.OutputField]
		if !ok {
			continue
		}

		if !mapping.Input.Nested() {
			extracted[mapping.Input.Parent] = value
			delete(owned, mapping.Input.Parent)

			continue
		}

		parent, ok := extracted[mapping.Input.Parent].(map[string]any)

		switch {
		case !ok:
			parent = map[string]any{}
		case !owned[mapping.Input.Parent]:
			parent = copyMap(parent)
		}

		parent[mapping.Input.Child] = value
		extracted[mapping.Input.Parent] = parent
		owned[mapping.Input.Parent] = true
	}

	return extracted
}

// MergeStageInput copies src into dst. Nested objects built by field mappings are merged key by key,
// so that two dependencies filling the same parent do not overwrite each other.
func MergeStageInput(dst, src map[string]any) map[string]any {
	if dst == nil {
		dst = make(map[string]any, len(src))
	}

	for key, value := range src {
		srcChild, srcNested := value.(map[string]any)
		dstChild, dstNested := dst[key].(map[string]any)

		if srcNested && dstNested {
			merged := copyMap(dstChild)
			for k, v := range srcChild {
				merged[k] = v
			}

			dst[key] = merged

			continue
		}

		dst[key] = value
	}

	return dst
}

// BuildStageInput assembles the input of stage from a base input shared by every stage and the outputs of the
// dependencies already completed. Dependencies without an output are ignored.
func (r *Registry) BuildStageInput(stage model.Stage, base map[string]any, outputs map[model.Stage]map[string]any) (map[string]any, error) {
	if !r.Has(stage) {
		return nil, unknownStage(stage)
	}

	input := MergeStageInput(nil, base)

	for _, dep := range r.dependsOn(stage) {
		output, ok := outputs[dep]
		if !ok {
			continue
		}

		input = MergeStageInput(input, r.ExtractFieldsForNextStage(dep, stage, output))
	}

	return input, nil
}

// ValidateStageInput checks that every required field of stage is present in input.
func (r *Registry) ValidateStageInput(stage model.Stage, input map[string]any) error {
	cfg, ok := r.configs[stage]
	if !ok {
		return unknownStage(stage)
	}

	missing := []string{}

	for _, field := range cfg.RequiredFields {
		if _, ok := input[field]; !ok {
			missing = append(missing, field)
		}
	}

	if len(missing) > 0 {
		return &MissingStageInputError{Stage: stage, Missing: missing}
	}

	return nil
}

func copyMap(src map[string]any) map[string]any {
	res := make(map[string]any, len(src))
	for k, v := range src {
		res[k] = v
	}

	return res
}

package pipeline_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/askiada/content-pipeline/pkg/pipeline"
	"github.com/askiada/content-pipeline/pkg/pipeline/model"
)

func TestBuildExecutionLevels(t *testing.T) {
	t.Parallel()

	reg := pipeline.DefaultRegistry()

	tcs := map[string]struct {
		includeOptional bool
		expected        []model.ExecutionLevel
	}{
		"with optional stage": {
			includeOptional: true,
			expected: []model.ExecutionLevel{
				{Level: 0, Stages: []model.Stage{pipeline.StageGrounding, pipeline.StageChapters}},
				{Level: 1, Stages: []model.Stage{pipeline.StageDescription}},
				{Level: 2, Stages: []model.Stage{pipeline.StageUSP}},
				{Level: 3, Stages: []model.Stage{pipeline.StageFAQ, pipeline.StageCaseStudies, pipeline.StageKeywords}},
				{Level: 4, Stages: []model.Stage{pipeline.StageHashtags}},
			},
		},
		"without optional stage": {
			expected: []model.ExecutionLevel{
				{Level: 0, Stages: []model.Stage{pipeline.StageGrounding}},
				{Level: 1, Stages: []model.Stage{pipeline.StageDescription}},
				{Level: 2, Stages: []model.Stage{pipeline.StageUSP}},
				{Level: 3, Stages: []model.Stage{pipeline.StageFAQ, pipeline.StageCaseStudies, pipeline.StageKeywords}},
				{Level: 4, Stages: []model.Stage{pipeline.StageHashtags}},
			},
		},
	}

	for name, tc := range tcs {
		tc := tc

		t.Run(name, func(t *testing.T) {
			t.Parallel()

			assert.Equal(t, tc.expected, reg.BuildExecutionLevels(tc.includeOptional))
		})
	}
}

func TestBuildExecutionLevelsOrdering(t *testing.T) {
	t.Parallel()

	reg := pipeline.DefaultRegistry()
	levels := reg.BuildExecutionLevels(true)
	stageLevels := pipeline.StageLevels(levels)

	for _, stage := range reg.Stages() {
		cfg, err := reg.Config(stage)
		require.NoError(t, err)

		for _, dep := range cfg.DependsOn {
			assert.Less(t, stageLevels[dep], stageLevels[stage], "%s must run after %s", stage, dep)
		}
	}
}

func TestBuildExecutionLevelsCompleteness(t *testing.T) {
	t.Parallel()

	reg := pipeline.DefaultRegistry()

	seen := map[model.Stage]int{}
	for _, level := range reg.BuildExecutionLevels(true) {
		for _, stage := range level.Stages {
			seen[stage]++
		}
	}

	require.Len(t, seen, len(reg.Stages()))

	for _, stage := range reg.Stages() {
		assert.Equal(t, 1, seen[stage], stage)
	}

	withoutOptional := pipeline.StageLevels(reg.BuildExecutionLevels(false))
	assert.Len(t, withoutOptional, len(reg.Stages())-1)
	assert.NotContains(t, withoutOptional, pipeline.StageChapters)
}

func TestBuildExecutionLevelsDeterminism(t *testing.T) {
	t.Parallel()

	reg := pipeline.DefaultRegistry()
	first := reg.BuildExecutionLevels(true)

	for i := 0; i < 20; i++ {
		assert.Equal(t, first, reg.BuildExecutionLevels(true))
	}
}

func TestBuildExecutionLevelsDeclarationOrder(t *testing.T) {
	t.Parallel()

	reg, err := pipeline.NewRegistry([]model.StageDependencyConfig{
		stage("z", "root"),
		stage("root"),
		stage("a", "root"),
		stage("m"),
	})
	require.NoError(t, err)

	assert.Equal(t, []model.ExecutionLevel{
		{Level: 0, Stages: []model.Stage{"root", "m"}},
		{Level: 1, Stages: []model.Stage{"z", "a"}},
	}, reg.BuildExecutionLevels(true))
}

func TestStageLevels(t *testing.T) {
	t.Parallel()

	got := pipeline.StageLevels([]model.ExecutionLevel{
		{Level: 0, Stages: []model.Stage{"a", "b"}},
		{Level: 1, Stages: []model.Stage{"c"}},
	})
	assert.Equal(t, map[model.Stage]int{"a": 0, "b": 0, "c": 1}, got)
	assert.Empty(t, pipeline.StageLevels(nil))
}

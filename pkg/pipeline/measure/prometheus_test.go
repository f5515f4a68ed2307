package measure_test

import (
	"context"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/askiada/content-pipeline/pkg/pipeline"
	"github.com/askiada/content-pipeline/pkg/pipeline/measure"
	"github.com/askiada/content-pipeline/pkg/pipeline/model"
)

func TestPrometheusMeasure(t *testing.T) {
	t.Parallel()

	reg := prometheus.NewRegistry()
	pm := measure.NewPrometheusMeasure(reg, "content_pipeline")

	pipe, err := pipeline.New(pipeline.DefaultRegistry(), echoExecutor(map[model.Stage]error{pipeline.StageKeywords: assert.AnError}),
		pipeline.WithHooks(pm), pipeline.WithFailurePolicy(pipeline.ContinuePartial))
	require.NoError(t, err)

	_, err = pipe.Run(context.Background(), pipeline.RunRequest{})
	require.Error(t, err)

	count, err := testutil.GatherAndCount(reg, "content_pipeline_stage_duration_seconds")
	require.NoError(t, err)
	assert.Equal(t, 5, count)

	count, err = testutil.GatherAndCount(reg, "content_pipeline_stage_total")
	require.NoError(t, err)
	assert.Equal(t, 7, count)

	count, err = testutil.GatherAndCount(reg, "content_pipeline_run_duration_seconds")
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestPrometheusMeasureRunOutcome(t *testing.T) {
	t.Parallel()

	reg := prometheus.NewRegistry()
	pm := measure.NewPrometheusMeasure(reg, "test")

	require.NoError(t, pm.Finish(&model.RunSummary{
		Stages: map[model.Stage]*model.StageInfo{
			"a": {Stage: "a", Status: model.StatusSucceeded},
			"b": {Stage: "b", Status: model.StatusFailed},
		},
		Err: assert.AnError,
	}))

	count, err := testutil.GatherAndCount(reg, "test_run_duration_seconds")
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	count, err = testutil.GatherAndCount(reg, "test_stage_total")
	require.NoError(t, err)
	assert.Equal(t, 2, count)
}

package drawer_test

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/askiada/content-pipeline/pkg/pipeline"
	"github.com/askiada/content-pipeline/pkg/pipeline/drawer"
	"github.com/askiada/content-pipeline/pkg/pipeline/measure"
	"github.com/askiada/content-pipeline/pkg/pipeline/model"
)

func TestDOTDrawerAddConfigs(t *testing.T) {
	t.Parallel()

	reg, err := pipeline.NewRegistry([]model.StageDependencyConfig{
		{Stage: "a", Label: "A"},
		{Stage: "b", Label: "B", DependsOn: []model.Stage{"a"}},
	})
	require.NoError(t, err)

	buf := &bytes.Buffer{}
	d := drawer.NewDOTDrawer(buf)
	require.NoError(t, drawer.AddConfigs(d, reg.Label, reg.Configs().Stages))
	require.NoError(t, drawer.AddConfigs(d, reg.Label, reg.Configs().Stages))
	require.NoError(t, d.Draw())

	expected := "strict digraph {\n" +
		"\trankdir=\"LR\";\n" +
		"\t\"a\" [ label=\"A\", weight=0 ];\n" +
		"\t\"a\" -> \"b\" [ weight=0 ];\n" +
		"\t\"b\" [ label=\"B\", weight=0 ];\n" +
		"}\n"
	assert.Equal(t, expected, buf.String())
}

func TestDOTDrawerDeterministic(t *testing.T) {
	t.Parallel()

	reg := pipeline.DefaultRegistry()

	draw := func() string {
		buf := &bytes.Buffer{}
		d := drawer.NewDOTDrawer(buf)
		require.NoError(t, drawer.AddConfigs(d, reg.Label, reg.Configs().Stages))
		require.NoError(t, d.Draw())

		return buf.String()
	}

	first := draw()
	for i := 0; i < 10; i++ {
		assert.Equal(t, first, draw())
	}

	assert.Contains(t, first, `"usp" -> "faq"`)
	assert.Contains(t, first, `"keywords" -> "hashtags"`)
	assert.Contains(t, first, `label="Case Studies"`)
}

func TestDOTDrawerSetStatus(t *testing.T) {
	t.Parallel()

	buf := &bytes.Buffer{}
	d := drawer.NewDOTDrawer(buf)
	require.NoError(t, d.AddStage("a", "A"))
	require.NoError(t, d.SetStatus("a", model.StatusFailed))
	require.NoError(t, d.SetTotalTime("a", time.Second))
	require.Error(t, d.SetStatus("missing", model.StatusFailed))
	require.NoError(t, d.Draw())

	assert.Contains(t, buf.String(), `style="filled"`)
	assert.Contains(t, buf.String(), `fillcolor="#`)
	assert.Contains(t, buf.String(), `label=<A <BR /> <FONT POINT-SIZE="12">1s</FONT>>`)
}

func TestPipelineDrawer(t *testing.T) {
	t.Parallel()

	executor := pipeline.ExecutorFunc(func(_ context.Context, _ model.Stage, _ map[string]any) (map[string]any, error) {
		return map[string]any{
			"grounding_keywords":  []string{"k"},
			"grounding_questions": []string{"q"},
			"description":         "d",
			"usps":                []string{"u"},
		}, nil
	})

	m := measure.NewDefaultMeasure()
	fileName := filepath.Join(t.TempDir(), "graph.gv")

	pipe, err := pipeline.New(pipeline.DefaultRegistry(), executor,
		pipeline.WithHooks(measure.PipelineMeasure(m), drawer.PipelineDrawer(drawer.NewFileDrawer(fileName), m)))
	require.NoError(t, err)

	_, err = pipe.Run(context.Background(), pipeline.RunRequest{Target: pipeline.StageFAQ})
	require.NoError(t, err)

	content, err := os.ReadFile(fileName)
	require.NoError(t, err)

	got := string(content)
	assert.Contains(t, got, `"start" -> "grounding"`)
	assert.Contains(t, got, `"grounding" -> "description"`)
	assert.Contains(t, got, `"usp" -> "faq"`)
	assert.Contains(t, got, `"grounding" -> "faq"`)
	assert.Contains(t, got, `"faq" -> "end"`)
	assert.NotContains(t, got, `"usp" -> "end"`)
	assert.NotContains(t, got, `"hashtags"`)
	assert.Contains(t, got, `fontcolor="blue"`)
}

package progress_test

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/askiada/content-pipeline/pkg/pipeline"
	"github.com/askiada/content-pipeline/pkg/pipeline/model"
	"github.com/askiada/content-pipeline/pkg/pipeline/progress"
)

type frame struct {
	id    string
	event string
	data  string
}

func parseFrames(t *testing.T, content string) []frame {
	t.Helper()

	frames := []frame{}
	current := frame{}
	scanner := bufio.NewScanner(strings.NewReader(content))

	for scanner.Scan() {
		line := scanner.Text()

		switch {
		case line == "":
			frames = append(frames, current)
			current = frame{}
		case strings.HasPrefix(line, "id: "):
			current.id = strings.TrimPrefix(line, "id: ")
		case strings.HasPrefix(line, "event: "):
			current.event = strings.TrimPrefix(line, "event: ")
		case strings.HasPrefix(line, "data: "):
			current.data = strings.TrimPrefix(line, "data: ")
		}
	}

	require.NoError(t, scanner.Err())

	return frames
}

func TestReporter(t *testing.T) {
	t.Parallel()

	buf := &bytes.Buffer{}
	executor := pipeline.ExecutorFunc(func(_ context.Context, stage model.Stage, _ map[string]any) (map[string]any, error) {
		if stage == pipeline.StageUSP {
			return nil, assert.AnError
		}

		return map[string]any{"grounding_keywords": []string{"k"}, "description": "d"}, nil
	})

	pipe, err := pipeline.New(pipeline.DefaultRegistry(), executor, pipeline.WithHooks(progress.NewReporter(buf)))
	require.NoError(t, err)

	_, err = pipe.Run(context.Background(), pipeline.RunRequest{Target: pipeline.StageFAQ})
	require.Error(t, err)

	frames := parseFrames(t, buf.String())
	events := make([]string, len(frames))

	for i, f := range frames {
		events[i] = f.event
		assert.NotEmpty(t, f.id)
	}

	assert.Equal(t, []string{
		progress.EventLevelStarted, progress.EventStageFinished,
		progress.EventLevelStarted, progress.EventStageFinished,
		progress.EventLevelStarted,
		progress.EventRunFinished,
	}, events)

	var stage progress.StageEvent
	require.NoError(t, json.Unmarshal([]byte(frames[1].data), &stage))
	assert.Equal(t, pipeline.StageGrounding, stage.Stage)
	assert.Equal(t, model.StatusSucceeded, stage.Status)

	var run progress.RunEvent
	require.NoError(t, json.Unmarshal([]byte(frames[len(frames)-1].data), &run))
	assert.Equal(t, pipeline.StageFAQ, run.Target)
	assert.NotEmpty(t, run.Error)
	require.Len(t, run.Stages, 4)
	assert.Equal(t, pipeline.StageUSP, run.Stages[2].Stage)
	assert.Equal(t, model.StatusFailed, run.Stages[2].Status)
	assert.NotEmpty(t, run.Stages[2].Error)
	assert.Equal(t, model.StatusPending, run.Stages[3].Status)
}

func TestReporterHTTP(t *testing.T) {
	t.Parallel()

	rec := httptest.NewRecorder()
	progress.SetHeaders(rec)

	reporter := progress.NewReporter(rec)
	require.NoError(t, reporter.OnLevelStart(model.ExecutionLevel{Level: 0, Stages: []model.Stage{"a"}}))

	assert.Equal(t, "text/event-stream", rec.Header().Get("Content-Type"))
	assert.True(t, rec.Flushed)
	assert.Equal(t, "id: 1\nevent: level_started\ndata: {\"level\":0,\"stages\":[\"a\"]}\n\n", rec.Body.String())
}

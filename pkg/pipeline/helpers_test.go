package pipeline_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/askiada/content-pipeline/pkg/pipeline"
	"github.com/askiada/content-pipeline/pkg/pipeline/model"
)

func defaultOutputs() map[model.Stage]map[string]any {
	return map[model.Stage]map[string]any{
		pipeline.StageGrounding: {
			"grounding_keywords":  []string{"serum", "vitamin c"},
			"grounding_questions": []string{"is it vegan?"},
			"grounding_sources":   []string{"https://example.com"},
		},
		pipeline.StageDescription: {"description": "A brightening serum."},
		pipeline.StageUSP:         {"usps": []string{"vegan", "fast absorbing"}},
		pipeline.StageFAQ:         {"faqs": []string{"yes, it is vegan"}},
		pipeline.StageChapters:    {"chapters": []string{"00:00 intro"}},
		pipeline.StageCaseStudies: {"case_studies": []string{"before/after"}},
		pipeline.StageKeywords:    {"keywords": []string{"glow", "serum"}},
		pipeline.StageHashtags:    {"hashtags": []string{"#glow"}},
	}
}

type fakeExecutor struct {
	mu      sync.Mutex
	calls   []model.Stage
	inputs  map[model.Stage]map[string]any
	starts  map[model.Stage]time.Time
	ends    map[model.Stage]time.Time
	outputs map[model.Stage]map[string]any
	fail    map[model.Stage]error
	delay   time.Duration
}

func newFakeExecutor(t *testing.T) *fakeExecutor {
	t.Helper()

	return &fakeExecutor{
		inputs:  make(map[model.Stage]map[string]any),
		starts:  make(map[model.Stage]time.Time),
		ends:    make(map[model.Stage]time.Time),
		outputs: defaultOutputs(),
		fail:    make(map[model.Stage]error),
	}
}

func (fe *fakeExecutor) Execute(ctx context.Context, stage model.Stage, input map[string]any) (map[string]any, error) {
	fe.mu.Lock()
	fe.calls = append(fe.calls, stage)
	fe.inputs[stage] = input
	fe.starts[stage] = time.Now()
	err := fe.fail[stage]
	output := fe.outputs[stage]
	fe.mu.Unlock()

	if fe.delay > 0 {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(fe.delay):
		}
	}

	fe.mu.Lock()
	fe.ends[stage] = time.Now()
	fe.mu.Unlock()

	if err != nil {
		return nil, err
	}

	return output, nil
}

func (fe *fakeExecutor) called() []model.Stage {
	fe.mu.Lock()
	defer fe.mu.Unlock()

	res := make([]model.Stage, len(fe.calls))
	copy(res, fe.calls)

	return res
}

type memoryStore struct {
	mu      sync.Mutex
	outputs map[uuid.UUID]map[model.Stage]map[string]any
}

func newMemoryStore(t *testing.T) *memoryStore {
	t.Helper()

	return &memoryStore{outputs: make(map[uuid.UUID]map[model.Stage]map[string]any)}
}

func (ms *memoryStore) Save(_ context.Context, runID uuid.UUID, stage model.Stage, output map[string]any) error {
	ms.mu.Lock()
	defer ms.mu.Unlock()

	if ms.outputs[runID] == nil {
		ms.outputs[runID] = make(map[model.Stage]map[string]any)
	}

	ms.outputs[runID][stage] = output

	return nil
}

func (ms *memoryStore) Load(_ context.Context, runID uuid.UUID, stage model.Stage) (map[string]any, bool, error) {
	ms.mu.Lock()
	defer ms.mu.Unlock()

	output, ok := ms.outputs[runID][stage]

	return output, ok, nil
}

type recordingHook struct {
	mu       sync.Mutex
	news     int
	prepared []model.Stage
	levels   []int
	outputs  map[model.Stage]model.StageStatus
	summary  *model.RunSummary
}

func newRecordingHook(t *testing.T) *recordingHook {
	t.Helper()

	return &recordingHook{outputs: make(map[model.Stage]model.StageStatus)}
}

func (rh *recordingHook) New() error {
	rh.news++

	return nil
}

func (rh *recordingHook) OnLevelStart(level model.ExecutionLevel) error {
	rh.mu.Lock()
	defer rh.mu.Unlock()
	rh.levels = append(rh.levels, level.Level)

	return nil
}

func (rh *recordingHook) PrepareStage(_ []*model.StageInfo, stage *model.StageInfo) error {
	rh.mu.Lock()
	defer rh.mu.Unlock()
	rh.prepared = append(rh.prepared, stage.Stage)

	return nil
}

func (rh *recordingHook) OnStageOutput(_ []*model.StageInfo, stage *model.StageInfo, _ map[model.Stage]time.Duration, _ time.Duration) error {
	rh.mu.Lock()
	defer rh.mu.Unlock()
	rh.outputs[stage.Stage] = stage.Status

	return nil
}

func (rh *recordingHook) Finish(summary *model.RunSummary) error {
	rh.mu.Lock()
	defer rh.mu.Unlock()
	rh.summary = summary

	return nil
}

var _ model.PipelineOption = (*recordingHook)(nil)

// Package progress streams the progress of pipeline runs as server-sent events.
package progress

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sort"
	"sync"
	"time"

	"github.com/pkg/errors"

	"github.com/askiada/content-pipeline/pkg/pipeline/model"
)

const (
	EventLevelStarted  = "level_started"
	EventStageFinished = "stage_finished"
	EventRunFinished   = "run_finished"
)

type LevelEvent struct {
	Level  int           `json:"level"`
	Stages []model.Stage `json:"stages"`
}

type StageEvent struct {
	Stage      model.Stage       `json:"stage"`
	Label      string            `json:"label"`
	Level      int               `json:"level"`
	Status     model.StageStatus `json:"status"`
	DurationMS int64             `json:"duration_ms"`
	Error      string            `json:"error,omitempty"`
}

type RunEvent struct {
	RunID      string       `json:"run_id"`
	Target     model.Stage  `json:"target,omitempty"`
	DurationMS int64        `json:"duration_ms"`
	Error      string       `json:"error,omitempty"`
	Stages     []StageEvent `json:"stages"`
}

// Reporter writes one event per level start, stage output and run end to a writer:
//
//	id: 3
//	event: stage_finished
//	data: {"stage":"usp","label":"USP","level":2,"status":"succeeded","duration_ms":1200}
//
// Writers implementing http.Flusher are flushed after every event.
type Reporter struct {
	mu     sync.Mutex
	wrt    io.Writer
	nextID int
}

func NewReporter(wrt io.Writer) *Reporter {
	return &Reporter{wrt: wrt}
}

func (r *Reporter) write(event string, data any) error {
	raw, err := json.Marshal(data)
	if err != nil {
		return errors.Wrapf(err, "unable to encode %s event", event)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	r.nextID++

	_, err = fmt.Fprintf(r.wrt, "id: %d\nevent: %s\ndata: %s\n\n", r.nextID, event, raw)
	if err != nil {
		return errors.Wrapf(err, "unable to write %s event", event)
	}

	if flusher, ok := r.wrt.(http.Flusher); ok {
		flusher.Flush()
	}

	return nil
}

func (r *Reporter) New() error {
	return nil
}

func (r *Reporter) OnLevelStart(level model.ExecutionLevel) error {
	return r.write(EventLevelStarted, LevelEvent{Level: level.Level, Stages: level.Stages})
}

func (r *Reporter) PrepareStage([]*model.StageInfo, *model.StageInfo) error {
	return nil
}

func (r *Reporter) OnStageOutput(_ []*model.StageInfo, stage *model.StageInfo, _ map[model.Stage]time.Duration, _ time.Duration) error {
	return r.write(EventStageFinished, stageEvent(stage))
}

// Finish reports the run with every stage, failed ones included, ordered by level then name.
func (r *Reporter) Finish(summary *model.RunSummary) error {
	event := RunEvent{
		RunID:      summary.RunID.String(),
		Target:     summary.Target,
		DurationMS: summary.Duration.Milliseconds(),
		Stages:     make([]StageEvent, 0, len(summary.Stages)),
	}

	if summary.Err != nil {
		event.Error = summary.Err.Error()
	}

	for _, info := range summary.Stages {
		event.Stages = append(event.Stages, stageEvent(info))
	}

	sort.Slice(event.Stages, func(i, j int) bool {
		if event.Stages[i].Level != event.Stages[j].Level {
			return event.Stages[i].Level < event.Stages[j].Level
		}

		return event.Stages[i].Stage < event.Stages[j].Stage
	})

	return r.write(EventRunFinished, event)
}

func stageEvent(info *model.StageInfo) StageEvent {
	event := StageEvent{
		Stage:      info.Stage,
		Label:      info.Label,
		Level:      info.Level,
		Status:     info.Status,
		DurationMS: info.Duration.Milliseconds(),
	}

	if info.Err != nil {
		event.Error = info.Err.Error()
	}

	return event
}

// SetHeaders prepares an HTTP response for an event stream.
func SetHeaders(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
}

var _ model.PipelineOption = (*Reporter)(nil)

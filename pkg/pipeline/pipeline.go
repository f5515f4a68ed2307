package pipeline

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/askiada/content-pipeline/pkg/pipeline/model"
)

const tracerName = "github.com/askiada/content-pipeline/pkg/pipeline"

// Executor produces the output of a stage from its input.
type Executor interface {
	Execute(ctx context.Context, stage model.Stage, input map[string]any) (map[string]any, error)
}

// ExecutorFunc adapts a function to the Executor interface.
type ExecutorFunc func(ctx context.Context, stage model.Stage, input map[string]any) (map[string]any, error)

func (f ExecutorFunc) Execute(ctx context.Context, stage model.Stage, input map[string]any) (map[string]any, error) {
	return f(ctx, stage, input)
}

// ResultStore persists stage outputs by run.
type ResultStore interface {
	Save(ctx context.Context, runID uuid.UUID, stage model.Stage, output map[string]any) error
	// Load returns false when no output was saved for the stage.
	Load(ctx context.Context, runID uuid.UUID, stage model.Stage) (map[string]any, bool, error)
}

// Pipeline runs the stages of a registry level by level.
type Pipeline struct {
	registry    *Registry
	executor    Executor
	store       ResultStore
	logger      *zap.Logger
	tracer      trace.Tracer
	opts        []model.PipelineOption
	concurrency int
	policy      FailurePolicy
	reuse       bool
}

// New creates a new pipeline.
func New(registry *Registry, executor Executor, opts ...Option) (*Pipeline, error) {
	if registry == nil {
		return nil, ErrRegistryMustBeSet
	}

	if executor == nil {
		return nil, ErrExecutorMustBeSet
	}

	pipe := &Pipeline{
		registry: registry,
		executor: executor,
		logger:   zap.NewNop(),
		tracer:   otel.Tracer(tracerName),
	}
	for _, opt := range opts {
		opt(pipe)
	}

	if pipe.concurrency < 0 {
		return nil, ErrConcurrency
	}

	for _, opt := range pipe.opts {
		err := opt.New()
		if err != nil {
			return nil, errors.Wrap(err, "unable to apply pipeline option")
		}
	}

	return pipe, nil
}

// RunRequest describes a run.
type RunRequest struct {
	// RunID identifies the run in the result store. A new one is generated when empty.
	RunID uuid.UUID
	// Target restricts the run to the upstream chain of a stage. Every stage runs when empty.
	Target model.Stage
	// IncludeOptional adds the optional stage to a run without target.
	IncludeOptional bool
	// Input is merged into the input of every stage.
	Input map[string]any
}

// RunResult is the outcome of a run. It is returned even when the run fails.
type RunResult struct {
	RunID    uuid.UUID
	Levels   []model.ExecutionLevel
	Outputs  map[model.Stage]map[string]any
	Stages   map[model.Stage]*model.StageInfo
	Duration time.Duration
}

type runState struct {
	req      RunRequest
	mu       sync.RWMutex
	outputs  map[model.Stage]map[string]any
	finished map[model.Stage]time.Time
	infos    map[model.Stage]*model.StageInfo
	errs     *stageErrors
}

func (rs *runState) setOutput(stage model.Stage, output map[string]any) {
	rs.mu.Lock()
	defer rs.mu.Unlock()
	rs.outputs[stage] = output
	rs.finished[stage] = time.Now()
}

func (rs *runState) snapshot() map[model.Stage]map[string]any {
	rs.mu.RLock()
	defer rs.mu.RUnlock()

	res := make(map[model.Stage]map[string]any, len(rs.outputs))
	for stage, output := range rs.outputs {
		res[stage] = output
	}

	return res
}

func (rs *runState) available() map[model.Stage]bool {
	rs.mu.RLock()
	defer rs.mu.RUnlock()

	res := make(map[model.Stage]bool, len(rs.outputs))
	for stage := range rs.outputs {
		res[stage] = true
	}

	return res
}

func (rs *runState) waitDurations(parents []model.Stage, start time.Time) map[model.Stage]time.Duration {
	rs.mu.RLock()
	defer rs.mu.RUnlock()

	res := make(map[model.Stage]time.Duration, len(parents))

	for _, parent := range parents {
		if end, ok := rs.finished[parent]; ok {
			res[parent] = start.Sub(end)
		}
	}

	return res
}

func (rs *runState) parents(stage *model.StageInfo) []*model.StageInfo {
	res := make([]*model.StageInfo, 0, len(stage.DependsOn))

	for _, dep := range stage.DependsOn {
		if info, ok := rs.infos[dep]; ok {
			res = append(res, info)
		}
	}

	if len(res) == 0 {
		res = append(res, model.StartStage)
	}

	return res
}

// Plan returns the levels a request would run.
func (p *Pipeline) Plan(req RunRequest) ([]model.ExecutionLevel, error) {
	if req.Target == "" {
		return p.registry.BuildExecutionLevels(req.IncludeOptional), nil
	}

	levels, err := p.registry.UpstreamChain(req.Target)
	if err != nil {
		return nil, errors.Wrap(err, "unable to resolve upstream chain")
	}

	return levels, nil
}

// Run executes the stages of the request level by level. Stages of a level run concurrently and a level only
// starts once every stage of the previous one is over.
func (p *Pipeline) Run(ctx context.Context, req RunRequest) (*RunResult, error) {
	levels, err := p.Plan(req)
	if err != nil {
		return nil, err
	}

	if req.RunID == uuid.Nil {
		req.RunID = uuid.New()
	}

	startTime := time.Now()
	logger := p.logger.With(zap.Stringer("run_id", req.RunID), zap.String("target", string(req.Target)))

	ctx, span := p.tracer.Start(ctx, "pipeline.run", trace.WithAttributes(
		attribute.String("run_id", req.RunID.String()),
		attribute.String("target", string(req.Target)),
		attribute.Int("levels", len(levels)),
	))
	defer span.End()

	state := &runState{
		req:      req,
		outputs:  make(map[model.Stage]map[string]any),
		finished: make(map[model.Stage]time.Time),
		infos:    make(map[model.Stage]*model.StageInfo),
		errs:     &stageErrors{},
	}

	err = p.prepareRun(state, levels)
	if err == nil {
		logger.Info("pipeline run started", zap.Int("levels", len(levels)))
		err = p.runLevels(ctx, state, levels, logger)
	}

	result := &RunResult{
		RunID:    req.RunID,
		Levels:   levels,
		Outputs:  state.snapshot(),
		Stages:   state.infos,
		Duration: time.Since(startTime),
	}

	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		logger.Error("pipeline run failed", zap.Error(err), zap.Duration("duration", result.Duration))
	} else {
		logger.Info("pipeline run finished", zap.Duration("duration", result.Duration))
	}

	finishErr := p.finishRun(&model.RunSummary{
		RunID:    req.RunID,
		Target:   req.Target,
		Levels:   levels,
		Stages:   state.infos,
		Duration: result.Duration,
		Err:      err,
	})
	if err == nil {
		err = finishErr
	}

	return result, err
}

func (p *Pipeline) prepareRun(state *runState, levels []model.ExecutionLevel) error {
	for _, level := range levels {
		for _, stage := range level.Stages {
			state.infos[stage] = &model.StageInfo{
				Stage:     stage,
				Label:     p.registry.Label(stage),
				Level:     level.Level,
				DependsOn: p.registry.dependsOn(stage),
				Status:    model.StatusPending,
			}
		}
	}

	for _, level := range levels {
		for _, stage := range level.Stages {
			info := state.infos[stage]
			for _, opt := range p.opts {
				err := opt.PrepareStage(state.parents(info), info)
				if err != nil {
					return errors.Wrapf(err, "unable to prepare stage %s", stage)
				}
			}
		}
	}

	return nil
}

func (p *Pipeline) runLevels(ctx context.Context, state *runState, levels []model.ExecutionLevel, logger *zap.Logger) error {
	for _, level := range levels {
		if err := ctx.Err(); err != nil {
			return errors.Wrapf(err, "level %d", level.Level)
		}

		for _, opt := range p.opts {
			err := opt.OnLevelStart(level)
			if err != nil {
				return errors.Wrapf(err, "unable to start level %d", level.Level)
			}
		}

		logger.Debug("level started", zap.Int("level", level.Level), zap.Int("stages", len(level.Stages)))

		err := p.runLevel(ctx, state, level, logger)
		if err != nil {
			return errors.Wrapf(err, "level %d", level.Level)
		}
	}

	return state.errs.combined()
}

func (p *Pipeline) runLevel(ctx context.Context, state *runState, level model.ExecutionLevel, logger *zap.Logger) error {
	errGrp := &errgroup.Group{}
	dCtx := ctx

	if p.policy == FailFast {
		errGrp, dCtx = errgroup.WithContext(ctx)
	}

	if p.concurrency > 0 {
		errGrp.SetLimit(p.concurrency)
	}

	for _, stage := range level.Stages {
		localStage := stage

		errGrp.Go(func() error {
			info := state.infos[localStage]

			// Stages queued behind the concurrency limit do not start once the level is cancelled.
			if err := dCtx.Err(); err != nil {
				info.Status = model.StatusSkipped
				info.Err = errors.Wrap(err, "level cancelled before the stage started")
				logger.Warn("stage skipped", zap.String("stage", string(localStage)), zap.Error(info.Err))

				return p.onStageOutput(state, info, nil, 0)
			}

			err := p.runStage(dCtx, state, info, logger)
			if err == nil {
				return nil
			}

			state.errs.add(localStage, err)

			if p.policy == FailFast {
				return newStageError(localStage, err)
			}

			return nil
		})
	}

	err := errGrp.Wait()
	if err != nil {
		return err
	}

	return ctx.Err()
}

func (p *Pipeline) runStage(ctx context.Context, state *runState, info *model.StageInfo, logger *zap.Logger) error {
	logger = logger.With(zap.String("stage", string(info.Stage)), zap.Int("level", info.Level))

	if p.policy == ContinuePartial {
		readiness, err := p.registry.CheckDependenciesReady(info.Stage, state.available())
		if err != nil {
			return err
		}

		if !readiness.Ready {
			info.Status = model.StatusSkipped
			info.Err = errors.Wrapf(ErrDependencyNotReady, "missing %v", readiness.Missing)
			logger.Warn("stage skipped", zap.Error(info.Err))

			return p.onStageOutput(state, info, nil, 0)
		}
	}

	reused, err := p.reuseOutput(ctx, state, info)
	if err != nil || reused {
		return err
	}

	input, err := p.registry.BuildStageInput(info.Stage, state.req.Input, state.snapshot())
	if err != nil {
		return err
	}

	err = p.registry.ValidateStageInput(info.Stage, input)
	if err != nil {
		info.Status = model.StatusFailed
		info.Err = err

		return err
	}

	ctx, span := p.tracer.Start(ctx, "pipeline.stage", trace.WithAttributes(
		attribute.String("stage", string(info.Stage)),
		attribute.Int("level", info.Level),
	))
	defer span.End()

	info.Status = model.StatusRunning
	start := time.Now()
	waits := state.waitDurations(info.DependsOn, start)

	output, err := p.executor.Execute(ctx, info.Stage, input)
	info.Duration = time.Since(start)

	if err != nil {
		info.Status = model.StatusFailed
		info.Err = err

		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		logger.Error("stage failed", zap.Error(err), zap.Duration("duration", info.Duration))

		return errors.Wrap(err, "unable to execute stage")
	}

	if output == nil {
		output = map[string]any{}
	}

	if p.store != nil {
		err = p.store.Save(ctx, state.req.RunID, info.Stage, output)
		if err != nil {
			info.Status = model.StatusFailed
			info.Err = err

			return errors.Wrap(err, "unable to save stage output")
		}
	}

	state.setOutput(info.Stage, output)
	info.Status = model.StatusSucceeded

	logger.Debug("stage succeeded", zap.Duration("duration", info.Duration))

	return p.onStageOutput(state, info, waits, info.Duration)
}

func (p *Pipeline) reuseOutput(ctx context.Context, state *runState, info *model.StageInfo) (bool, error) {
	if !p.reuse || p.store == nil || info.Stage == state.req.Target {
		return false, nil
	}

	output, ok, err := p.store.Load(ctx, state.req.RunID, info.Stage)
	if err != nil {
		return false, errors.Wrap(err, "unable to load stage output")
	}

	if !ok {
		return false, nil
	}

	state.setOutput(info.Stage, output)
	info.Status = model.StatusReused

	return true, p.onStageOutput(state, info, nil, 0)
}

func (p *Pipeline) onStageOutput(state *runState, info *model.StageInfo, waits map[model.Stage]time.Duration, computation time.Duration) error {
	parents := state.parents(info)

	for _, opt := range p.opts {
		err := opt.OnStageOutput(parents, info, waits, computation)
		if err != nil {
			return errors.Wrap(err, "unable to run stage output option")
		}
	}

	return nil
}

func (p *Pipeline) finishRun(summary *model.RunSummary) error {
	for _, opt := range p.opts {
		err := opt.Finish(summary)
		if err != nil {
			return errors.Wrap(err, "unable to finish pipeline option")
		}
	}

	return nil
}

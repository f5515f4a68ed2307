package main

import (
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/askiada/content-pipeline/internal/llmexec"
	"github.com/askiada/content-pipeline/internal/resultstore"
	"github.com/askiada/content-pipeline/pkg/pipeline"
	"github.com/askiada/content-pipeline/pkg/pipeline/drawer"
	"github.com/askiada/content-pipeline/pkg/pipeline/measure"
	"github.com/askiada/content-pipeline/pkg/pipeline/model"
	"github.com/askiada/content-pipeline/pkg/pipeline/progress"
)

type runOptions struct {
	target          string
	includeOptional bool
	inputPath       string
	executor        string
	fixtures        string
	store           string
	storePath       string
	runID           string
	reuse           bool
	policy          string
	concurrency     int
	graphPath       string
	metricsPath     string
	eventsPath      string
}

type stageSummary struct {
	Stage    model.Stage       `json:"stage" yaml:"stage"`
	Level    int               `json:"level" yaml:"level"`
	Status   model.StageStatus `json:"status" yaml:"status"`
	Duration string            `json:"duration" yaml:"duration"`
	Error    string            `json:"error,omitempty" yaml:"error,omitempty"`
}

type pathSummary struct {
	Stage      model.Stage `json:"stage" yaml:"stage"`
	Duration   string      `json:"duration" yaml:"duration"`
	Cumulative string      `json:"cumulative" yaml:"cumulative"`
}

type runSummary struct {
	RunID        string                         `json:"run_id" yaml:"run_id"`
	Target       model.Stage                    `json:"target,omitempty" yaml:"target,omitempty"`
	Duration     string                         `json:"duration" yaml:"duration"`
	Error        string                         `json:"error,omitempty" yaml:"error,omitempty"`
	Levels       []model.ExecutionLevel         `json:"levels" yaml:"levels"`
	Stages       []stageSummary                 `json:"stages" yaml:"stages"`
	CriticalPath []pathSummary                  `json:"critical_path" yaml:"critical_path"`
	Outputs      map[model.Stage]map[string]any `json:"outputs" yaml:"outputs"`
}

func newRunCmd(opts *rootOptions) *cobra.Command {
	runOpts := &runOptions{}

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run the stages of the registry, or the upstream chain of a target",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runOpts.run(cmd, opts)
		},
	}

	flags := cmd.Flags()
	flags.StringVar(&runOpts.target, "target", "", "only run the stages needed by this stage")
	flags.BoolVar(&runOpts.includeOptional, "include-optional", false, "run the optional stage when there is no target")
	flags.StringVar(&runOpts.inputPath, "input", "", "JSON file merged into the input of every stage")
	flags.StringVar(&runOpts.executor, "executor", "fixtures", "stage executor: fixtures or llm")
	flags.StringVar(&runOpts.fixtures, "fixtures", "", "directory holding <stage>.json outputs for the fixtures executor")
	flags.StringVar(&runOpts.store, "store", "memory", "result store: memory or badger")
	flags.StringVar(&runOpts.storePath, "store-path", "", "badger directory, in memory when empty")
	flags.StringVar(&runOpts.runID, "run-id", "", "run identifier, generated when empty")
	flags.BoolVar(&runOpts.reuse, "reuse", false, "reuse the stored outputs of the run for every stage but the target")
	flags.StringVar(&runOpts.policy, "policy", pipeline.FailFast.String(), "failure policy: fail-fast or continue-partial")
	flags.IntVar(&runOpts.concurrency, "concurrency", 0, "maximum stages running at once in a level, 0 for no limit")
	flags.StringVar(&runOpts.graphPath, "graph", "", "write the run graph in the DOT language to this file")
	flags.StringVar(&runOpts.metricsPath, "metrics", "", "write Prometheus metrics of the run to this file")
	flags.StringVar(&runOpts.eventsPath, "events", "", "write progress events of the run to this file as server-sent events")

	return cmd
}

func (ro *runOptions) run(cmd *cobra.Command, opts *rootOptions) error {
	req, err := ro.request()
	if err != nil {
		return err
	}

	executor, err := ro.newExecutor(opts.logger)
	if err != nil {
		return err
	}

	store, closeStore, err := ro.newStore(opts.logger)
	if err != nil {
		return err
	}
	defer closeStore()

	policy, err := parsePolicy(ro.policy)
	if err != nil {
		return err
	}

	metrics := prometheus.NewRegistry()
	m := measure.NewDefaultMeasure()
	hooks := []model.PipelineOption{
		measure.PipelineMeasure(m),
		measure.NewPrometheusMeasure(metrics, "content_pipeline"),
	}

	if ro.graphPath != "" {
		hooks = append(hooks, drawer.PipelineDrawer(drawer.NewFileDrawer(ro.graphPath), m))
	}

	if ro.eventsPath != "" {
		events, err := os.Create(ro.eventsPath)
		if err != nil {
			return errors.Wrapf(err, "unable to create %s", ro.eventsPath)
		}
		defer events.Close()

		hooks = append(hooks, progress.NewReporter(events))
	}

	pipe, err := pipeline.New(opts.registry, executor,
		pipeline.WithLogger(opts.logger),
		pipeline.WithStore(store),
		pipeline.WithReuse(ro.reuse),
		pipeline.WithFailurePolicy(policy),
		pipeline.WithConcurrency(ro.concurrency),
		pipeline.WithHooks(hooks...),
	)
	if err != nil {
		return err
	}

	result, runErr := pipe.Run(cmd.Context(), req)
	if result == nil {
		return runErr
	}

	if ro.metricsPath != "" {
		err = prometheus.WriteToTextfile(ro.metricsPath, metrics)
		if err != nil {
			return errors.Wrap(err, "unable to write metrics")
		}
	}

	err = opts.print(cmd.OutOrStdout(), summarize(opts.registry, req, result, runErr))
	if err != nil {
		return err
	}

	return runErr
}

func (ro *runOptions) request() (pipeline.RunRequest, error) {
	req := pipeline.RunRequest{
		Target:          model.Stage(ro.target),
		IncludeOptional: ro.includeOptional,
	}

	if ro.runID != "" {
		runID, err := uuid.Parse(ro.runID)
		if err != nil {
			return req, errors.Wrap(err, "invalid run id")
		}

		req.RunID = runID
	}

	if ro.inputPath != "" {
		input, err := readJSONFile(ro.inputPath)
		if err != nil {
			return req, err
		}

		req.Input = input
	}

	return req, nil
}

func (ro *runOptions) newExecutor(logger *zap.Logger) (pipeline.Executor, error) {
	switch ro.executor {
	case "fixtures":
		if ro.fixtures == "" {
			return nil, errors.New("--fixtures is required by the fixtures executor")
		}

		return &fixtureExecutor{dir: ro.fixtures}, nil
	case "llm":
		exec, err := llmexec.New(llmexec.ConfigFromEnv(), llmexec.WithLogger(logger.Named("llm")))
		if err != nil {
			return nil, err
		}

		return exec, nil
	default:
		return nil, errors.Errorf("unknown executor %q", ro.executor)
	}
}

func (ro *runOptions) newStore(logger *zap.Logger) (pipeline.ResultStore, func(), error) {
	switch ro.store {
	case "memory":
		return resultstore.NewMemory(), func() {}, nil
	case "badger":
		db, err := resultstore.OpenBadger(resultstore.BadgerConfig{
			Path:     ro.storePath,
			InMemory: ro.storePath == "",
			Logger:   logger,
		})
		if err != nil {
			return nil, nil, err
		}

		return db, func() {
			if err := db.Close(); err != nil {
				logger.Warn("unable to close result store", zap.Error(err))
			}
		}, nil
	default:
		return nil, nil, errors.Errorf("unknown store %q", ro.store)
	}
}

func parsePolicy(policy string) (pipeline.FailurePolicy, error) {
	for _, p := range []pipeline.FailurePolicy{pipeline.FailFast, pipeline.ContinuePartial} {
		if p.String() == policy {
			return p, nil
		}
	}

	return pipeline.FailFast, errors.Errorf("unknown failure policy %q", policy)
}

func summarize(reg *pipeline.Registry, req pipeline.RunRequest, result *pipeline.RunResult, runErr error) runSummary {
	summary := runSummary{
		RunID:        result.RunID.String(),
		Target:       req.Target,
		Duration:     result.Duration.Round(time.Millisecond).String(),
		Levels:       result.Levels,
		Stages:       []stageSummary{},
		CriticalPath: []pathSummary{},
		Outputs:      result.Outputs,
	}

	if runErr != nil {
		summary.Error = runErr.Error()
	}

	for _, level := range result.Levels {
		for _, stage := range level.Stages {
			info := result.Stages[stage]

			s := stageSummary{
				Stage:    stage,
				Level:    level.Level,
				Status:   info.Status,
				Duration: info.Duration.Round(time.Millisecond).String(),
			}
			if info.Err != nil {
				s.Error = info.Err.Error()
			}

			summary.Stages = append(summary.Stages, s)
		}
	}

	for _, step := range reg.CriticalPath(result) {
		summary.CriticalPath = append(summary.CriticalPath, pathSummary{
			Stage:      step.Stage,
			Duration:   step.Duration.Round(time.Millisecond).String(),
			Cumulative: step.Cumulative.Round(time.Millisecond).String(),
		})
	}

	return summary
}

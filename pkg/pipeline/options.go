package pipeline

import (
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/askiada/content-pipeline/pkg/pipeline/model"
)

// FailurePolicy decides what happens to a run when a stage fails.
type FailurePolicy int

const (
	// FailFast cancels the stages still running in the level of the failure and stops the run.
	FailFast FailurePolicy = iota
	// ContinuePartial keeps running every stage whose dependencies all succeeded and skips the others.
	ContinuePartial
)

func (fp FailurePolicy) String() string {
	switch fp {
	case FailFast:
		return "fail-fast"
	case ContinuePartial:
		return "continue-partial"
	default:
		return "unknown"
	}
}

// Option configures a pipeline.
type Option func(p *Pipeline)

// WithStore persists the output of every stage, and allows WithReuse to load them back.
func WithStore(store ResultStore) Option {
	return func(p *Pipeline) {
		p.store = store
	}
}

func WithLogger(logger *zap.Logger) Option {
	return func(p *Pipeline) {
		p.logger = logger
	}
}

func WithTracer(tracer trace.Tracer) Option {
	return func(p *Pipeline) {
		p.tracer = tracer
	}
}

// WithConcurrency caps the number of stages of a level running at the same time. 0 means no limit.
func WithConcurrency(concurrent int) Option {
	return func(p *Pipeline) {
		p.concurrency = concurrent
	}
}

func WithFailurePolicy(policy FailurePolicy) Option {
	return func(p *Pipeline) {
		p.policy = policy
	}
}

// WithReuse loads the stored output of a stage instead of executing it again. The target of a run is always executed.
func WithReuse(reuse bool) Option {
	return func(p *Pipeline) {
		p.reuse = reuse
	}
}

// WithHooks registers pipeline options notified along every run.
func WithHooks(hooks ...model.PipelineOption) Option {
	return func(p *Pipeline) {
		p.opts = append(p.opts, hooks...)
	}
}

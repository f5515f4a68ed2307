package pipeline

import (
	"strings"

	"github.com/dominikbraun/graph"
	"github.com/pkg/errors"

	"github.com/askiada/content-pipeline/internal/store"
	"github.com/askiada/content-pipeline/pkg/pipeline/model"
)

// Registry is the immutable set of stages of a pipeline and of their dependencies.
// It is safe for concurrent use.
type Registry struct {
	order    []model.Stage
	configs  map[model.Stage]model.StageDependencyConfig
	optional model.Stage
	store    *store.StageStore
}

// RegistryOption configures a registry.
type RegistryOption func(r *Registry)

// WithOptionalStage marks a stage without dependencies as optional: it can be left out of the execution levels
// and it is never part of an upstream chain.
func WithOptionalStage(stage model.Stage) RegistryOption {
	return func(r *Registry) {
		r.optional = stage
	}
}

func stageHash(c model.StageDependencyConfig) model.Stage {
	return c.Stage
}

// NewRegistry validates the stage configurations and builds a registry. Stages keep their declaration order.
func NewRegistry(configs []model.StageDependencyConfig, opts ...RegistryOption) (*Registry, error) {
	reg := &Registry{
		order:   make([]model.Stage, 0, len(configs)),
		configs: make(map[model.Stage]model.StageDependencyConfig, len(configs)),
		store:   store.NewStageStore(),
	}
	for _, opt := range opts {
		opt(reg)
	}

	stageGraph := graph.NewWithStore(stageHash, graph.Store[model.Stage, model.StageDependencyConfig](reg.store),
		graph.Directed(), graph.PreventCycles())

	for _, cfg := range configs {
		if strings.TrimSpace(string(cfg.Stage)) == "" {
			return nil, ErrEmptyStageName
		}

		cfg = copyConfig(cfg)
		if cfg.Label == "" {
			cfg.Label = defaultLabel(cfg.Stage)
		}

		err := stageGraph.AddVertex(cfg)
		if errors.Is(err, graph.ErrVertexAlreadyExists) {
			return nil, errors.Wrapf(ErrDuplicateStage, "%q", cfg.Stage)
		}

		if err != nil {
			return nil, errors.Wrapf(err, "unable to add stage %q", cfg.Stage)
		}

		reg.order = append(reg.order, cfg.Stage)
		reg.configs[cfg.Stage] = cfg
	}

	for _, stage := range reg.order {
		err := reg.addDependencies(stageGraph, reg.configs[stage])
		if err != nil {
			return nil, err
		}
	}

	err := reg.validateOptionalStage()
	if err != nil {
		return nil, err
	}

	return reg, nil
}

func (r *Registry) addDependencies(stageGraph graph.Graph[model.Stage, model.StageDependencyConfig], cfg model.StageDependencyConfig) error {
	for _, dep := range cfg.DependsOn {
		if _, ok := r.configs[dep]; !ok {
			return errors.Wrapf(ErrUnknownStage, "stage %q depends on %q", cfg.Stage, dep)
		}

		err := stageGraph.AddEdge(dep, cfg.Stage)

		switch {
		case errors.Is(err, graph.ErrEdgeCreatesCycle):
			return &CyclicDependencyError{Stage: cfg.Stage, Dependency: dep}
		case errors.Is(err, graph.ErrEdgeAlreadyExists):
			return errors.Wrapf(ErrDuplicateDependency, "stage %q lists %q twice", cfg.Stage, dep)
		case err != nil:
			return errors.Wrapf(err, "unable to add dependency %q of stage %q", dep, cfg.Stage)
		}
	}

	for i, mapping := range cfg.FieldMapping {
		switch {
		case mapping.OutputField == "":
			return errors.Wrapf(ErrInvalidFieldMapping, "stage %q mapping %d: output field must be set", cfg.Stage, i)
		case mapping.Input.Parent == "":
			return errors.Wrapf(ErrInvalidFieldMapping, "stage %q mapping %d: input path must be set", cfg.Stage, i)
		case !cfg.DependsOnStage(mapping.Origin):
			return errors.Wrapf(ErrInvalidFieldMapping, "stage %q mapping %d: origin %q is not a dependency", cfg.Stage, i, mapping.Origin)
		}
	}

	return nil
}

func (r *Registry) validateOptionalStage() error {
	if r.optional == "" {
		return nil
	}

	cfg, ok := r.configs[r.optional]
	if !ok {
		return errors.Wrapf(ErrInvalidOptionalStage, "%q is not registered", r.optional)
	}

	if len(cfg.DependsOn) > 0 {
		return errors.Wrapf(ErrInvalidOptionalStage, "%q has dependencies", r.optional)
	}

	if dependents := r.store.Dependents(r.optional); len(dependents) > 0 {
		return errors.Wrapf(ErrInvalidOptionalStage, "%q is a dependency of %q", r.optional, dependents[0])
	}

	return nil
}

// Stages returns every stage in declaration order.
func (r *Registry) Stages() []model.Stage {
	res := make([]model.Stage, len(r.order))
	copy(res, r.order)

	return res
}

// Has reports whether the stage is registered.
func (r *Registry) Has(stage model.Stage) bool {
	_, ok := r.configs[stage]

	return ok
}

// Config returns a copy of the configuration of a stage.
func (r *Registry) Config(stage model.Stage) (model.StageDependencyConfig, error) {
	cfg, ok := r.configs[stage]
	if !ok {
		return model.StageDependencyConfig{}, unknownStage(stage)
	}

	return copyConfig(cfg), nil
}

// Label returns the display name of a stage, or the stage itself when it is not registered.
func (r *Registry) Label(stage model.Stage) string {
	cfg, ok := r.configs[stage]
	if !ok {
		return string(stage)
	}

	return cfg.Label
}

// OptionalStage returns the optional stage, if any.
func (r *Registry) OptionalStage() (model.Stage, bool) {
	return r.optional, r.optional != ""
}

func (r *Registry) dependsOn(stage model.Stage) []model.Stage {
	return r.configs[stage].DependsOn
}

func copyConfig(cfg model.StageDependencyConfig) model.StageDependencyConfig {
	cfg.DependsOn = append([]model.Stage(nil), cfg.DependsOn...)
	cfg.RequiredFields = append([]string(nil), cfg.RequiredFields...)
	cfg.FieldMapping = append([]model.FieldMapping(nil), cfg.FieldMapping...)

	return cfg
}

// defaultLabel turns case_studies into Case Studies.
func defaultLabel(stage model.Stage) string {
	words := strings.FieldsFunc(string(stage), func(r rune) bool {
		return r == '_' || r == '-' || r == ' '
	})
	for i, word := range words {
		words[i] = strings.ToUpper(word[:1]) + word[1:]
	}

	return strings.Join(words, " ")
}

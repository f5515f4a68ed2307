package pipeline

import (
	"io"
	"os"

	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"

	"github.com/askiada/content-pipeline/pkg/pipeline/model"
)

// RegistryConfig is the file representation of a registry.
//
//	optional_stage: chapters
//	stages:
//	  - name: grounding
//	  - name: description
//	    depends_on: [grounding]
//	    required_fields: [groundingData]
//	    field_mapping:
//	      - origin: grounding
//	        output: grounding_keywords
//	        input: groundingData.keywords
type RegistryConfig struct {
	OptionalStage model.Stage                   `yaml:"optional_stage,omitempty"`
	Stages        []model.StageDependencyConfig `yaml:"stages" validate:"required,min=1,dive"`
}

var configValidator = validator.New()

// LoadRegistry decodes a YAML registry configuration and builds the registry.
func LoadRegistry(r io.Reader) (*Registry, error) {
	var cfg RegistryConfig

	decoder := yaml.NewDecoder(r)
	decoder.KnownFields(true)

	err := decoder.Decode(&cfg)
	if err != nil {
		return nil, errors.Wrap(err, "unable to decode registry configuration")
	}

	err = configValidator.Struct(cfg)
	if err != nil {
		return nil, errors.Wrap(err, "invalid registry configuration")
	}

	opts := []RegistryOption{}
	if cfg.OptionalStage != "" {
		opts = append(opts, WithOptionalStage(cfg.OptionalStage))
	}

	reg, err := NewRegistry(cfg.Stages, opts...)
	if err != nil {
		return nil, errors.Wrap(err, "unable to build registry")
	}

	return reg, nil
}

// LoadRegistryFile loads a registry from a YAML file.
func LoadRegistryFile(path string) (*Registry, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrapf(err, "unable to open %s", path)
	}
	defer file.Close()

	return LoadRegistry(file)
}

// Configs returns the configuration of every stage, in declaration order.
func (r *Registry) Configs() RegistryConfig {
	cfg := RegistryConfig{
		OptionalStage: r.optional,
		Stages:        make([]model.StageDependencyConfig, 0, len(r.order)),
	}

	for _, stage := range r.order {
		cfg.Stages = append(cfg.Stages, copyConfig(r.configs[stage]))
	}

	return cfg
}

package model

import (
	"strings"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

// Stage identifies a unit of content generation work.
type Stage string

func (s Stage) String() string {
	return string(s)
}

// InputPath is the destination of a mapped field in the input of a stage.
// When Child is empty the value is stored under Parent, otherwise under input[Parent][Child].
type InputPath struct {
	Parent string `yaml:"parent" json:"parent" validate:"required"`
	Child  string `yaml:"child,omitempty" json:"child,omitempty"`
}

// ParseInputPath splits a "parent.child" path on its first dot only.
func ParseInputPath(path string) InputPath {
	parent, child, _ := strings.Cut(path, ".")

	return InputPath{Parent: parent, Child: child}
}

// Nested reports whether the path builds a nested object.
func (p InputPath) Nested() bool {
	return p.Child != ""
}

func (p InputPath) String() string {
	if p.Nested() {
		return p.Parent + "." + p.Child
	}

	return p.Parent
}

// UnmarshalYAML accepts both the "parent.child" shorthand and the mapping form.
func (p *InputPath) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind == yaml.ScalarNode {
		*p = ParseInputPath(node.Value)

		return nil
	}

	type plain InputPath

	var raw plain

	err := node.Decode(&raw)
	if err != nil {
		return errors.Wrap(err, "unable to decode input path")
	}

	*p = InputPath(raw)

	return nil
}

// FieldMapping copies OutputField from the output of Origin into Input of the dependent stage.
type FieldMapping struct {
	Origin      Stage     `yaml:"origin" json:"origin" validate:"required"`
	OutputField string    `yaml:"output" json:"output" validate:"required"`
	Input       InputPath `yaml:"input" json:"input"`
}

// StageDependencyConfig declares what a stage needs before it can run.
type StageDependencyConfig struct {
	Stage          Stage          `yaml:"name" json:"name" validate:"required"`
	Label          string         `yaml:"label,omitempty" json:"label,omitempty"`
	DependsOn      []Stage        `yaml:"depends_on,omitempty" json:"depends_on,omitempty"`
	RequiredFields []string       `yaml:"required_fields,omitempty" json:"required_fields,omitempty"`
	FieldMapping   []FieldMapping `yaml:"field_mapping,omitempty" json:"field_mapping,omitempty" validate:"dive"`
}

// DependsOnStage reports whether dep is a direct dependency.
func (c StageDependencyConfig) DependsOnStage(dep Stage) bool {
	for _, d := range c.DependsOn {
		if d == dep {
			return true
		}
	}

	return false
}

// ExecutionLevel groups stages that can run concurrently.
type ExecutionLevel struct {
	Level  int     `json:"level" yaml:"level"`
	Stages []Stage `json:"stages" yaml:"stages"`
}

// DependencyInfo is a human readable summary of the dependencies of a stage.
type DependencyInfo struct {
	HasDependencies bool     `json:"has_dependencies" yaml:"has_dependencies"`
	DependencyNames []string `json:"dependency_names" yaml:"dependency_names"`
	Description     string   `json:"description" yaml:"description"`
}

// Readiness partitions the dependencies of a stage by availability.
type Readiness struct {
	Ready     bool    `json:"ready" yaml:"ready"`
	Missing   []Stage `json:"missing" yaml:"missing"`
	Available []Stage `json:"available" yaml:"available"`
}

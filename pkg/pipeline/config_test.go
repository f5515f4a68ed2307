package pipeline_test

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/askiada/content-pipeline/pkg/pipeline"
	"github.com/askiada/content-pipeline/pkg/pipeline/model"
)

const registryYAML = `
optional_stage: notes
stages:
  - name: grounding
  - name: description
    label: Product Description
    depends_on: [grounding]
    required_fields: [groundingData]
    field_mapping:
      - origin: grounding
        output: grounding_keywords
        input: groundingData.keywords
      - origin: grounding
        output: grounding_sources
        input:
          parent: groundingData
          child: sources
  - name: notes
`

func TestLoadRegistry(t *testing.T) {
	t.Parallel()

	reg, err := pipeline.LoadRegistry(strings.NewReader(registryYAML))
	require.NoError(t, err)

	assert.Equal(t, []model.Stage{"grounding", "description", "notes"}, reg.Stages())
	assert.Equal(t, "Product Description", reg.Label("description"))
	assert.Equal(t, "Grounding", reg.Label("grounding"))

	optional, ok := reg.OptionalStage()
	assert.True(t, ok)
	assert.Equal(t, model.Stage("notes"), optional)

	cfg, err := reg.Config("description")
	require.NoError(t, err)
	assert.Equal(t, []model.FieldMapping{
		{Origin: "grounding", OutputField: "grounding_keywords", Input: model.InputPath{Parent: "groundingData", Child: "keywords"}},
		{Origin: "grounding", OutputField: "grounding_sources", Input: model.InputPath{Parent: "groundingData", Child: "sources"}},
	}, cfg.FieldMapping)

	assert.Equal(t, []model.ExecutionLevel{
		{Level: 0, Stages: []model.Stage{"grounding"}},
		{Level: 1, Stages: []model.Stage{"description"}},
	}, reg.BuildExecutionLevels(false))
}

func TestLoadRegistryErrors(t *testing.T) {
	t.Parallel()

	tcs := map[string]struct {
		content     string
		expectedErr error
	}{
		"unknown field": {
			content: "stages:\n  - name: a\n    needs: [b]\n",
		},
		"no stage": {
			content: "stages: []\n",
		},
		"stage without name": {
			content: "stages:\n  - label: A\n",
		},
		"mapping without origin": {
			content: "stages:\n  - name: a\n  - name: b\n    depends_on: [a]\n    field_mapping:\n      - output: x\n        input: y\n",
		},
		"cycle": {
			content:     "stages:\n  - name: a\n    depends_on: [b]\n  - name: b\n    depends_on: [a]\n",
			expectedErr: pipeline.ErrCyclicDependency,
		},
		"unknown dependency": {
			content:     "stages:\n  - name: a\n    depends_on: [b]\n",
			expectedErr: pipeline.ErrUnknownStage,
		},
	}

	for name, tc := range tcs {
		tc := tc

		t.Run(name, func(t *testing.T) {
			t.Parallel()

			_, err := pipeline.LoadRegistry(strings.NewReader(tc.content))
			require.Error(t, err)

			if tc.expectedErr != nil {
				require.ErrorIs(t, err, tc.expectedErr)
			}
		})
	}
}

func TestLoadRegistryFile(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "registry.yaml")
	require.NoError(t, os.WriteFile(path, []byte(registryYAML), 0o600))

	reg, err := pipeline.LoadRegistryFile(path)
	require.NoError(t, err)
	assert.Len(t, reg.Stages(), 3)

	_, err = pipeline.LoadRegistryFile(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
}

func TestRegistryConfigsRoundTrip(t *testing.T) {
	t.Parallel()

	reg := pipeline.DefaultRegistry()

	buf := &bytes.Buffer{}
	require.NoError(t, yaml.NewEncoder(buf).Encode(reg.Configs()))

	loaded, err := pipeline.LoadRegistry(buf)
	require.NoError(t, err)

	assert.Equal(t, reg.Stages(), loaded.Stages())
	assert.Equal(t, reg.BuildExecutionLevels(true), loaded.BuildExecutionLevels(true))
	assert.Equal(t, reg.Configs(), loaded.Configs())
}

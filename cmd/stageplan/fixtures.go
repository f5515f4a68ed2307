package main

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"

	"github.com/pkg/errors"

	"github.com/askiada/content-pipeline/pkg/pipeline/model"
)

// fixtureExecutor answers every stage with the JSON object stored in <dir>/<stage>.json.
type fixtureExecutor struct {
	dir string
}

func (fe *fixtureExecutor) Execute(ctx context.Context, stage model.Stage, _ map[string]any) (map[string]any, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	return readJSONFile(filepath.Join(fe.dir, string(stage)+".json"))
}

func readJSONFile(path string) (map[string]any, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "unable to read %s", path)
	}

	var res map[string]any

	err = json.Unmarshal(raw, &res)
	if err != nil {
		return nil, errors.Wrapf(err, "unable to decode %s", path)
	}

	return res, nil
}

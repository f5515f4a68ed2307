package pipeline

import (
	"fmt"
	"strings"
	"sync"

	"github.com/pkg/errors"
	"go.uber.org/multierr"

	"github.com/askiada/content-pipeline/pkg/pipeline/model"
)

var (
	ErrRegistryMustBeSet    = errors.New("registry must be set")
	ErrExecutorMustBeSet    = errors.New("executor must be set")
	ErrEmptyStageName       = errors.New("stage name must be set")
	ErrUnknownStage         = errors.New("unknown stage")
	ErrDuplicateStage       = errors.New("duplicate stage")
	ErrDuplicateDependency  = errors.New("duplicate dependency")
	ErrCyclicDependency     = errors.New("cyclic dependency")
	ErrInvalidFieldMapping  = errors.New("invalid field mapping")
	ErrInvalidOptionalStage = errors.New("invalid optional stage")
	ErrMissingStageInput    = errors.New("missing stage input")
	ErrDependencyNotReady   = errors.New("dependency not ready")
	ErrConcurrency          = errors.New("concurrency must be greater than 0")
)

// CyclicDependencyError is returned when declaring Stage as depending on Dependency closes a loop.
type CyclicDependencyError struct {
	Stage      model.Stage
	Dependency model.Stage
}

func (e *CyclicDependencyError) Error() string {
	if e.Stage == e.Dependency {
		return fmt.Sprintf("%s: stage %q depends on itself", ErrCyclicDependency, e.Stage)
	}

	return fmt.Sprintf("%s: %q -> %q", ErrCyclicDependency, e.Dependency, e.Stage)
}

func (e *CyclicDependencyError) Unwrap() error { return ErrCyclicDependency }

// MissingStageInputError lists the required fields absent from the input of a stage.
type MissingStageInputError struct {
	Stage   model.Stage
	Missing []string
}

func (e *MissingStageInputError) Error() string {
	return fmt.Sprintf("%s: stage %q needs %s", ErrMissingStageInput, e.Stage, strings.Join(e.Missing, ", "))
}

func (e *MissingStageInputError) Unwrap() error { return ErrMissingStageInput }

func unknownStage(stage model.Stage) error {
	return errors.Wrapf(ErrUnknownStage, "%q", stage)
}

// stageErrors collects the failures of the stages of a run.
type stageErrors struct {
	mu   sync.Mutex
	list []*stageError
}

func (se *stageErrors) add(stage model.Stage, err error) {
	se.mu.Lock()
	defer se.mu.Unlock()
	se.list = append(se.list, newStageError(stage, err))
}

func (se *stageErrors) has(stage model.Stage) bool {
	se.mu.Lock()
	defer se.mu.Unlock()

	for _, e := range se.list {
		if e.stage == stage {
			return true
		}
	}

	return false
}

// combined merges every collected error, in the order they were reported.
func (se *stageErrors) combined() error {
	se.mu.Lock()
	defer se.mu.Unlock()

	var err error
	for _, e := range se.list {
		err = multierr.Append(err, e)
	}

	return err
}

type stageError struct {
	err   error
	stage model.Stage
}

func newStageError(stage model.Stage, err error) *stageError {
	return &stageError{
		err:   err,
		stage: stage,
	}
}

func (e *stageError) Error() string {
	return fmt.Sprintf("stage %s: %v", e.stage, e.err)
}

func (e *stageError) Unwrap() error { return e.err }

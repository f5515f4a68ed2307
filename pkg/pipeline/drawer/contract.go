package drawer

import (
	"time"

	"github.com/askiada/content-pipeline/pkg/pipeline/measure"
	"github.com/askiada/content-pipeline/pkg/pipeline/model"
)

// Drawer is an interface that defines the methods for drawing a stage graph.
type Drawer interface {
	// AddStage adds a stage to the drawing. Adding a stage twice is a no-op.
	AddStage(stage model.Stage, label string) error
	// AddLink adds a link from a dependency to a dependent stage. Adding a link twice is a no-op.
	AddLink(parent, child model.Stage) error
	// SetStatus colours a stage by its status.
	SetStatus(stage model.Stage, status model.StageStatus) error
	// SetTotalTime sets the total time for the stage.
	SetTotalTime(stage model.Stage, total time.Duration) error
	// AddMeasure adds a measure to the drawing.
	AddMeasure(measure measure.Measure) error
	// Draw writes the graph.
	Draw() error
}

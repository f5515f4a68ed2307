package drawer

import (
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
	"sync"
	"text/template"
	"time"

	"github.com/dominikbraun/graph"
	"github.com/pkg/errors"
	"gopkg.in/go-playground/colors.v1" //nolint

	"github.com/askiada/content-pipeline/pkg/pipeline/measure"
	"github.com/askiada/content-pipeline/pkg/pipeline/model"
)

// DOTDrawer renders the stage graph in the Graphviz DOT language.
type DOTDrawer struct {
	mu     sync.Mutex
	graph  graph.Graph[model.Stage, model.Stage]
	order  map[model.Stage]int
	output func() (io.WriteCloser, error)
}

type nopCloser struct {
	io.Writer
}

func (nopCloser) Close() error { return nil }

func stageHash(s model.Stage) model.Stage { return s }

func newDOTDrawer(output func() (io.WriteCloser, error)) *DOTDrawer {
	return &DOTDrawer{
		graph:  graph.New(stageHash, graph.Directed()),
		order:  make(map[model.Stage]int),
		output: output,
	}
}

// NewDOTDrawer creates a drawer writing to wrt.
func NewDOTDrawer(wrt io.Writer) *DOTDrawer {
	return newDOTDrawer(func() (io.WriteCloser, error) {
		return nopCloser{wrt}, nil
	})
}

// NewFileDrawer creates a drawer writing to fileName. The file is created on Draw.
func NewFileDrawer(fileName string) *DOTDrawer {
	return newDOTDrawer(func() (io.WriteCloser, error) {
		file, err := os.Create(fileName)
		if err != nil {
			return nil, errors.Wrapf(err, "unable to create file %s", fileName)
		}

		return file, nil
	})
}

// AddStage adds a stage to the graph.
func (d *DOTDrawer) AddStage(stage model.Stage, label string) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	err := d.graph.AddVertex(stage, graph.VertexAttribute("label", label))
	if errors.Is(err, graph.ErrVertexAlreadyExists) {
		return nil
	}

	if err != nil {
		return errors.Wrapf(err, "unable to add vertex %s", stage)
	}

	d.order[stage] = len(d.order)

	return nil
}

// AddLink adds a link between a dependency and a dependent stage.
func (d *DOTDrawer) AddLink(parent, child model.Stage) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	err := d.graph.AddEdge(parent, child)
	if errors.Is(err, graph.ErrEdgeAlreadyExists) {
		return nil
	}

	if err != nil {
		return errors.Wrapf(err, "unable to add edge from %s to %s", parent, child)
	}

	return nil
}

var statusColors = map[model.StageStatus][3]uint8{
	model.StatusSucceeded: {155, 232, 155},
	model.StatusReused:    {173, 216, 230},
	model.StatusFailed:    {240, 128, 128},
	model.StatusSkipped:   {211, 211, 211},
}

// SetStatus fills the stage with the colour of its status. Pending and running stages are left blank.
func (d *DOTDrawer) SetStatus(stage model.Stage, status model.StageStatus) error {
	rgb, ok := statusColors[status]
	if !ok {
		return nil
	}

	colour, err := colors.RGB(rgb[0], rgb[1], rgb[2]) //nolint
	if err != nil {
		return errors.Wrap(err, "unable to get colour")
	}

	return d.setAttributes(stage, map[string]string{
		"style":     "filled",
		"fillcolor": colour.ToHEX().String(),
	})
}

// SetTotalTime sets the total time for the stage.
func (d *DOTDrawer) SetTotalTime(stage model.Stage, total time.Duration) error {
	return d.setAttributes(stage, map[string]string{"xlabel": total.String()})
}

func (d *DOTDrawer) setAttributes(stage model.Stage, attributes map[string]string) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	_, properties, err := d.graph.VertexWithProperties(stage)
	if err != nil {
		return errors.Wrapf(err, "unable to get vertex %s properties", stage)
	}

	for k, v := range attributes {
		properties.Attributes[k] = v
	}

	return nil
}

const maxRGB = 240

// AddMeasure labels every stage with its average duration and colours every link by the average time the
// dependent stage waited on it, from blue for the shortest to red for the longest.
func (d *DOTDrawer) AddMeasure(msr measure.Measure) error {
	waits := []time.Duration{}

	for _, mt := range msr.AllMetrics() {
		for _, elapsed := range mt.AVGWaitDuration() {
			waits = append(waits, elapsed)
		}
	}

	sort.Slice(waits, func(i, j int) bool { return waits[i] < waits[j] })

	d.mu.Lock()
	defer d.mu.Unlock()

	for stage, mt := range msr.AllMetrics() {
		_, properties, err := d.graph.VertexWithProperties(stage)
		if errors.Is(err, graph.ErrVertexNotFound) {
			continue
		}

		if err != nil {
			return errors.Wrap(err, "unable to get vertex properties")
		}

		xlabel := []string{}
		if avg := mt.AVGDuration(); avg != 0 {
			xlabel = append(xlabel, avg.String())
		}

		if total := mt.GetTotalDuration(); total > 0 {
			xlabel = append(xlabel, "end: "+total.String())
		}

		if len(xlabel) > 0 {
			properties.Attributes["xlabel"] = strings.Join(xlabel, ", ")
		}

		for parent, elapsed := range mt.AVGWaitDuration() {
			colour, err := waitColour(elapsed, waits)
			if err != nil {
				return err
			}

			err = d.graph.UpdateEdge(parent, stage,
				graph.EdgeAttribute("label", elapsed.String()),
				graph.EdgeAttribute("fontcolor", "blue"),
				graph.EdgeAttribute("color", colour),
			)
			if errors.Is(err, graph.ErrEdgeNotFound) {
				continue
			}

			if err != nil {
				return errors.Wrap(err, "unable to update edge")
			}
		}
	}

	return nil
}

func waitColour(elapsed time.Duration, sorted []time.Duration) (string, error) {
	fraction := 1.0

	if len(sorted) > 0 {
		minValue, maxValue := sorted[0], sorted[len(sorted)-1]
		if maxValue > minValue {
			fraction = float64(elapsed-minValue) / float64(maxValue-minValue)
		}
	}

	red := maxRGB * fraction
	blue := maxRGB - red

	colour, err := colors.RGB(uint8(red), 0, uint8(blue)) //nolint
	if err != nil {
		return "", errors.Wrap(err, "unable to get colour")
	}

	return colour.ToHEX().String(), nil
}

// Draw writes the graph. Stages and links are written in insertion order.
func (d *DOTDrawer) Draw() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	wrt, err := d.output()
	if err != nil {
		return err
	}

	err = d.dot(wrt)
	if err != nil {
		_ = wrt.Close()

		return errors.Wrap(err, "unable to write dot graph")
	}

	return errors.Wrap(wrt.Close(), "unable to close dot output")
}

//nolint:lll //this is a template
const dotTemplate = `strict digraph {
{{- range $k, $v := .Attributes}}
	{{$k}}="{{$v}}";
{{- end}}
{{- range .Statements}}
	"{{.Source}}"{{if .Target}} -> "{{.Target}}" [ {{range $k, $v := .EdgeAttributes}}{{$k}}="{{$v}}", {{end}}weight={{.EdgeWeight}} ]{{else}} [ {{range $k, $v := .HTMLAttributes}}{{$k}}={{$v}}, {{end}}{{range $k, $v := .SourceAttributes}}{{$k}}="{{$v}}", {{end}}weight={{.SourceWeight}} ]{{end}};
{{- end}}
}
`

type description struct {
	Attributes map[string]string
	Statements []statement
}

type statement struct {
	Source           model.Stage
	Target           model.Stage
	SourceAttributes map[string]string
	HTMLAttributes   map[string]string
	EdgeAttributes   map[string]string
	SourceWeight     int
	EdgeWeight       int
}

func (d *DOTDrawer) dot(wrt io.Writer) error {
	desc, err := d.generateDOT()
	if err != nil {
		return errors.Wrap(err, "failed to generate DOT description")
	}

	tpl, err := template.New("dotTemplate").Parse(dotTemplate)
	if err != nil {
		return errors.Wrap(err, "failed to parse template")
	}

	err = tpl.Execute(wrt, desc)
	if err != nil {
		return errors.Wrap(err, "unable to execute template")
	}

	return nil
}

func (d *DOTDrawer) generateDOT() (description, error) {
	desc := description{
		Attributes: map[string]string{"rankdir": "LR"},
		Statements: make([]statement, 0),
	}

	less := func(a, b model.Stage) bool { return d.order[a] < d.order[b] }

	vertices, err := graph.StableTopologicalSort(d.graph, less)
	if err != nil {
		return desc, errors.Wrap(err, "unable to sort vertices")
	}

	adjacencyMap, err := d.graph.AdjacencyMap()
	if err != nil {
		return desc, errors.Wrap(err, "unable to get adjacency map")
	}

	for _, vertex := range vertices {
		_, properties, err := d.graph.VertexWithProperties(vertex)
		if err != nil {
			return desc, errors.Wrap(err, "unable to get vertex properties")
		}

		sourceAttributes := make(map[string]string, len(properties.Attributes))
		htmlAttributes := make(map[string]string)

		for k, v := range properties.Attributes {
			sourceAttributes[k] = v
		}

		if xlabel, ok := sourceAttributes["xlabel"]; ok {
			label := sourceAttributes["label"]
			if label == "" {
				label = string(vertex)
			}

			htmlAttributes["label"] = fmt.Sprintf(`<%s <BR /> <FONT POINT-SIZE="12">%s</FONT>>`, label, xlabel)

			delete(sourceAttributes, "xlabel")
			delete(sourceAttributes, "label")
		}

		desc.Statements = append(desc.Statements, statement{
			Source:           vertex,
			SourceWeight:     properties.Weight,
			SourceAttributes: sourceAttributes,
			HTMLAttributes:   htmlAttributes,
		})

		targets := make([]model.Stage, 0, len(adjacencyMap[vertex]))
		for target := range adjacencyMap[vertex] {
			targets = append(targets, target)
		}

		sort.Slice(targets, func(i, j int) bool { return less(targets[i], targets[j]) })

		for _, target := range targets {
			edge := adjacencyMap[vertex][target]
			desc.Statements = append(desc.Statements, statement{
				Source:         vertex,
				Target:         target,
				EdgeWeight:     edge.Properties.Weight,
				EdgeAttributes: edge.Properties.Attributes,
			})
		}
	}

	return desc, nil
}

// AddConfigs adds every stage of configs and a link for each of their dependencies.
func AddConfigs(d Drawer, labels func(model.Stage) string, configs []model.StageDependencyConfig) error {
	for _, cfg := range configs {
		err := d.AddStage(cfg.Stage, labels(cfg.Stage))
		if err != nil {
			return err
		}
	}

	for _, cfg := range configs {
		for _, dep := range cfg.DependsOn {
			err := d.AddLink(dep, cfg.Stage)
			if err != nil {
				return err
			}
		}
	}

	return nil
}

var _ Drawer = (*DOTDrawer)(nil)

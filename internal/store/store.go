// Package store provides the graph storage backing the stage registry.
package store

import (
	"fmt"
	"sync"

	"github.com/dominikbraun/graph"

	"github.com/askiada/content-pipeline/pkg/pipeline/model"
)

// StageStore is a graph.Store keyed by stage that remembers insertion order,
// so that every listing it returns is deterministic.
type StageStore struct {
	lock             sync.RWMutex
	order            []model.Stage
	vertices         map[model.Stage]model.StageDependencyConfig
	vertexProperties map[model.Stage]*graph.VertexProperties

	// outEdges go from a dependency to its dependents, inEdges from a stage to its dependencies.
	outEdges map[model.Stage]map[model.Stage]graph.Edge[model.Stage]
	inEdges  map[model.Stage]map[model.Stage]graph.Edge[model.Stage]
	// outOrder keeps the dependents of each stage in the order their edges were added.
	outOrder map[model.Stage][]model.Stage
}

// NewStageStore creates an empty store.
func NewStageStore() *StageStore {
	return &StageStore{
		vertices:         make(map[model.Stage]model.StageDependencyConfig),
		vertexProperties: make(map[model.Stage]*graph.VertexProperties),
		outEdges:         make(map[model.Stage]map[model.Stage]graph.Edge[model.Stage]),
		inEdges:          make(map[model.Stage]map[model.Stage]graph.Edge[model.Stage]),
		outOrder:         make(map[model.Stage][]model.Stage),
	}
}

// AddVertex adds a stage.
func (s *StageStore) AddVertex(k model.Stage, t model.StageDependencyConfig, p graph.VertexProperties) error {
	s.lock.Lock()
	defer s.lock.Unlock()

	if _, ok := s.vertices[k]; ok {
		return graph.ErrVertexAlreadyExists
	}

	s.vertices[k] = t
	s.vertexProperties[k] = &p
	s.order = append(s.order, k)

	return nil
}

// ListVertices returns the stages in insertion order.
func (s *StageStore) ListVertices() ([]model.Stage, error) {
	s.lock.RLock()
	defer s.lock.RUnlock()

	hashes := make([]model.Stage, len(s.order))
	copy(hashes, s.order)

	return hashes, nil
}

// VertexCount returns the number of stages.
func (s *StageStore) VertexCount() (int, error) {
	s.lock.RLock()
	defer s.lock.RUnlock()

	return len(s.vertices), nil
}

// Vertex returns a stage configuration and its properties.
func (s *StageStore) Vertex(k model.Stage) (model.StageDependencyConfig, graph.VertexProperties, error) {
	s.lock.RLock()
	defer s.lock.RUnlock()

	v, ok := s.vertices[k]
	if !ok {
		return v, graph.VertexProperties{}, graph.ErrVertexNotFound
	}

	return v, *s.vertexProperties[k], nil
}

// RemoveVertex removes a stage without edges.
func (s *StageStore) RemoveVertex(k model.Stage) error {
	s.lock.Lock()
	defer s.lock.Unlock()

	if _, ok := s.vertices[k]; !ok {
		return graph.ErrVertexNotFound
	}

	if len(s.inEdges[k]) > 0 || len(s.outEdges[k]) > 0 {
		return graph.ErrVertexHasEdges
	}

	delete(s.inEdges, k)
	delete(s.outEdges, k)
	delete(s.outOrder, k)
	delete(s.vertices, k)
	delete(s.vertexProperties, k)

	for i, stage := range s.order {
		if stage == k {
			s.order = append(s.order[:i], s.order[i+1:]...)

			break
		}
	}

	return nil
}

// AddEdge adds a dependency edge from sourceHash to targetHash.
func (s *StageStore) AddEdge(sourceHash, targetHash model.Stage, edge graph.Edge[model.Stage]) error {
	s.lock.Lock()
	defer s.lock.Unlock()

	if _, ok := s.outEdges[sourceHash]; !ok {
		s.outEdges[sourceHash] = make(map[model.Stage]graph.Edge[model.Stage])
	}

	if _, ok := s.outEdges[sourceHash][targetHash]; !ok {
		s.outOrder[sourceHash] = append(s.outOrder[sourceHash], targetHash)
	}

	s.outEdges[sourceHash][targetHash] = edge

	if _, ok := s.inEdges[targetHash]; !ok {
		s.inEdges[targetHash] = make(map[model.Stage]graph.Edge[model.Stage])
	}

	s.inEdges[targetHash][sourceHash] = edge

	return nil
}

// UpdateEdge replaces an existing edge.
func (s *StageStore) UpdateEdge(sourceHash, targetHash model.Stage, edge graph.Edge[model.Stage]) error {
	if _, err := s.Edge(sourceHash, targetHash); err != nil {
		return err
	}

	s.lock.Lock()
	defer s.lock.Unlock()

	s.outEdges[sourceHash][targetHash] = edge
	s.inEdges[targetHash][sourceHash] = edge

	return nil
}

// RemoveEdge removes an edge.
func (s *StageStore) RemoveEdge(sourceHash, targetHash model.Stage) error {
	s.lock.Lock()
	defer s.lock.Unlock()

	delete(s.inEdges[targetHash], sourceHash)
	delete(s.outEdges[sourceHash], targetHash)

	targets := s.outOrder[sourceHash]
	for i, target := range targets {
		if target == targetHash {
			s.outOrder[sourceHash] = append(targets[:i], targets[i+1:]...)

			break
		}
	}

	return nil
}

// Edge returns the edge between two stages.
func (s *StageStore) Edge(sourceHash, targetHash model.Stage) (graph.Edge[model.Stage], error) {
	s.lock.RLock()
	defer s.lock.RUnlock()

	edge, ok := s.outEdges[sourceHash][targetHash]
	if !ok {
		return graph.Edge[model.Stage]{}, graph.ErrEdgeNotFound
	}

	return edge, nil
}

// ListEdges returns every edge, grouped by source stage in insertion order.
func (s *StageStore) ListEdges() ([]graph.Edge[model.Stage], error) {
	s.lock.RLock()
	defer s.lock.RUnlock()

	res := make([]graph.Edge[model.Stage], 0)

	for _, source := range s.order {
		for _, target := range s.outOrder[source] {
			res = append(res, s.outEdges[source][target])
		}
	}

	return res, nil
}

// Dependents returns the stages with an edge coming from k, in insertion order.
func (s *StageStore) Dependents(k model.Stage) []model.Stage {
	s.lock.RLock()
	defer s.lock.RUnlock()

	res := make([]model.Stage, len(s.outOrder[k]))
	copy(res, s.outOrder[k])

	return res
}

// CreatesCycle is a fastpath version of [graph.CreatesCycle] that walks inEdges
// instead of building a predecessor map.
func (s *StageStore) CreatesCycle(source, target model.Stage) (bool, error) {
	if _, _, err := s.Vertex(source); err != nil {
		return false, fmt.Errorf("could not get vertex with hash %v: %w", source, err)
	}

	if _, _, err := s.Vertex(target); err != nil {
		return false, fmt.Errorf("could not get vertex with hash %v: %w", target, err)
	}

	if source == target {
		return true, nil
	}

	s.lock.RLock()
	defer s.lock.RUnlock()

	stack := []model.Stage{source}
	visited := make(map[model.Stage]struct{})

	for len(stack) > 0 {
		current := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		if _, ok := visited[current]; ok {
			continue
		}

		// Reaching target through the dependencies of source means target already
		// depends on source: the new edge would close a loop.
		if current == target {
			return true, nil
		}

		visited[current] = struct{}{}

		for dep := range s.inEdges[current] {
			stack = append(stack, dep)
		}
	}

	return false, nil
}

var _ graph.Store[model.Stage, model.StageDependencyConfig] = (*StageStore)(nil)

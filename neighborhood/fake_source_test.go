package neighborhood

import (
	"context"
	"fmt"

	"github.com/saulfrancisco-ruizacevedo/go-socialgraph/models"
)

// memorySource is an in-memory Source with the same semantics as the Neo4j queries.
type memorySource struct {
	people map[string]string
	edges  []*models.Edge

	calls   []string
	failOn  string
	failErr error
}

func newMemorySource() *memorySource {
	return &memorySource{people: make(map[string]string)}
}

func (s *memorySource) person(id string) *memorySource {
	s.people[id] = id
	return s
}

func (s *memorySource) connect(from, to string, strength float64) *memorySource {
	s.person(from).person(to)
	props := map[string]interface{}{}
	if strength > 0 {
		props["strength"] = strength
	}
	s.edges = append(s.edges, &models.Edge{
		ID:         fmt.Sprintf("r%d", len(s.edges)),
		Source:     from,
		Target:     to,
		Type:       "CONNECTED_TO",
		Properties: props,
	})
	return s
}

func (s *memorySource) node(id string) *models.GraphNode {
	return &models.GraphNode{
		ID:         id,
		Labels:     []string{"Person"},
		Properties: map[string]interface{}{"name": s.people[id]},
	}
}

func (s *memorySource) fail(op string) error {
	s.calls = append(s.calls, op)
	if s.failOn == op {
		return s.failErr
	}
	return nil
}

func (s *memorySource) FindPerson(_ context.Context, id string) (*models.GraphNode, error) {
	if err := s.fail("FindPerson"); err != nil {
		return nil, err
	}
	if _, ok := s.people[id]; !ok {
		return nil, fmt.Errorf("person %q: %w", id, models.ErrNotFound)
	}
	return s.node(id), nil
}

func (s *memorySource) Neighbors(_ context.Context, ids []string) (*models.GraphResult, error) {
	if err := s.fail("Neighbors"); err != nil {
		return nil, err
	}
	in := toSet(ids)
	res := &models.GraphResult{}
	seen := map[string]bool{}
	for _, e := range s.edges {
		if !in[e.Source] && !in[e.Target] {
			continue
		}
		for _, id := range []string{e.Source, e.Target} {
			if !seen[id] {
				seen[id] = true
				res.Nodes = append(res.Nodes, s.node(id))
			}
		}
		res.Edges = append(res.Edges, e)
	}
	return res, nil
}

func (s *memorySource) EdgesAmong(_ context.Context, ids []string) (*models.GraphResult, error) {
	if err := s.fail("EdgesAmong"); err != nil {
		return nil, err
	}
	in := toSet(ids)
	res := &models.GraphResult{}
	for _, e := range s.edges {
		if in[e.Source] && in[e.Target] {
			res.Edges = append(res.Edges, e)
		}
	}
	return res, nil
}

func (s *memorySource) AllPeople(_ context.Context) (*models.GraphResult, error) {
	if err := s.fail("AllPeople"); err != nil {
		return nil, err
	}
	res := &models.GraphResult{Edges: s.edges}
	for id := range s.people {
		res.Nodes = append(res.Nodes, s.node(id))
	}
	return res, nil
}

func toSet(ids []string) map[string]bool {
	set := make(map[string]bool, len(ids))
	for _, id := range ids {
		set[id] = true
	}
	return set
}

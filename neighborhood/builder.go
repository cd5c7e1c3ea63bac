package neighborhood

import "github.com/saulfrancisco-ruizacevedo/go-socialgraph/models"

// builder accumulates a deduplicated node set and edge set. Nodes are keyed by identity
// and keep the degree they were first inserted with; edges are keyed by their unordered
// endpoint pair and keep the direction they were first seen with.
type builder struct {
	focal    string
	nodes    []*models.Person
	index    map[string]*models.Person
	links    []*models.Connection
	linkKeys map[string]bool
}

func newBuilder(focal string) *builder {
	return &builder{
		focal:    focal,
		index:    make(map[string]*models.Person),
		linkKeys: make(map[string]bool),
	}
}

func (b *builder) has(id string) bool {
	_, ok := b.index[id]
	return ok
}

func (b *builder) addNode(p *models.Person, degree *int) {
	if b.has(p.ID) {
		return
	}
	p.Degree = degree
	b.nodes = append(b.nodes, p)
	b.index[p.ID] = p
}

func (b *builder) addEdge(e *models.Edge) {
	c := e.Connection()
	key := c.Key()
	if b.linkKeys[key] {
		return
	}
	b.linkKeys[key] = true
	b.links = append(b.links, c)
}

func (b *builder) ids() []string {
	ids := make([]string, 0, len(b.nodes))
	for _, n := range b.nodes {
		ids = append(ids, n.ID)
	}
	return ids
}

func (b *builder) graph() *models.Graph {
	if b.links == nil {
		b.links = make([]*models.Connection, 0)
	}
	return models.NewGraph(b.focal, b.nodes, b.links)
}

package models

import "sort"

// DefaultStrength is the strength stored on a connection when none is supplied.
const DefaultStrength = 1.0

// Person represents a person in the social graph.
// The `crud` struct tags map this struct to a `:Person` node in Neo4j; the name is the
// natural key used by connection operations, while ID carries the store's element id.
type Person struct {
	// ID is the opaque, stable identity assigned by the store (the node's ElementId).
	ID string `json:"id" crud:"elementId"`

	// Name is the display name and natural key of the person.
	Name string `json:"name" crud:"pk,property:name"`

	// Bio is an optional free-text description.
	Bio string `json:"bio,omitempty" crud:"property:bio"`

	// Degree is the hop distance from the focal person. It is nil when the graph was
	// aggregated without a focal person.
	Degree *int `json:"degree,omitempty"`

	// Connections is the number of aggregated connections incident to this person.
	Connections int `json:"connections"`
}

// Connection is a relationship between two people. It is directed in storage but treated
// as undirected for layout and adjacency questions.
type Connection struct {
	SourceID string  `json:"source"`
	TargetID string  `json:"target"`
	Strength float64 `json:"strength"`
	Type     string  `json:"type,omitempty"`
}

// Key returns the unordered endpoint-pair key of the connection.
func (c *Connection) Key() string {
	return PairKey(c.SourceID, c.TargetID)
}

// Other returns the endpoint opposite to id, or "" when id is not an endpoint.
func (c *Connection) Other(id string) string {
	switch id {
	case c.SourceID:
		return c.TargetID
	case c.TargetID:
		return c.SourceID
	default:
		return ""
	}
}

// PairKey canonicalizes an unordered pair of identities. The ordering is internal to the key
// and never changes the source/target recorded on a Connection.
func PairKey(a, b string) string {
	if b < a {
		a, b = b, a
	}
	return a + "\x00" + b
}

// Position is a 2D coordinate in drawing-area space.
type Position struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Graph is an aggregated neighborhood: a deduplicated set of people and connections.
// A Graph is rebuilt wholesale and treated as read-only once returned by the aggregator.
type Graph struct {
	// Focal is the identity the graph is centered on, or "" for the unfiltered graph.
	Focal string        `json:"focal,omitempty"`
	Nodes []*Person     `json:"nodes"`
	Links []*Connection `json:"links"`

	index map[string]*Person
}

// NewGraph builds a graph from already-deduplicated nodes and links and recomputes the
// connection counts.
func NewGraph(focal string, nodes []*Person, links []*Connection) *Graph {
	g := &Graph{Focal: focal, Nodes: nodes, Links: links}
	g.reindex()
	g.RecountConnections()
	return g
}

func (g *Graph) reindex() {
	g.index = make(map[string]*Person, len(g.Nodes))
	for _, n := range g.Nodes {
		g.index[n.ID] = n
	}
}

// Person returns the person with the given identity.
func (g *Graph) Person(id string) (*Person, bool) {
	if g == nil {
		return nil, false
	}
	if g.index == nil {
		g.reindex()
	}
	p, ok := g.index[id]
	return p, ok
}

// Has reports whether the identity is part of the graph.
func (g *Graph) Has(id string) bool {
	_, ok := g.Person(id)
	return ok
}

// RecountConnections sets every person's Connections to the number of links incident to it.
func (g *Graph) RecountConnections() {
	counts := make(map[string]int, len(g.Nodes))
	for _, l := range g.Links {
		counts[l.SourceID]++
		counts[l.TargetID]++
	}
	for _, n := range g.Nodes {
		n.Connections = counts[n.ID]
	}
}

// Connected reports whether a link joins a and b directly, in either direction.
func (g *Graph) Connected(a, b string) bool {
	if g == nil || a == "" || b == "" {
		return false
	}
	key := PairKey(a, b)
	for _, l := range g.Links {
		if l.Key() == key {
			return true
		}
	}
	return false
}

// Neighbors returns the people directly connected to id, sorted by name.
func (g *Graph) Neighbors(id string) []*Person {
	if g == nil {
		return nil
	}
	seen := make(map[string]bool)
	var out []*Person
	for _, l := range g.Links {
		other := l.Other(id)
		if other == "" || other == id || seen[other] {
			continue
		}
		if p, ok := g.Person(other); ok {
			seen[other] = true
			out = append(out, p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// IDs returns the identities of all people in the graph.
func (g *Graph) IDs() []string {
	if g == nil {
		return nil
	}
	ids := make([]string, 0, len(g.Nodes))
	for _, n := range g.Nodes {
		ids = append(ids, n.ID)
	}
	return ids
}

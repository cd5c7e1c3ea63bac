// Package models contains the domain entities and data transfer objects for the social graph.
// The structs in this file are the raw, store-shaped rows returned by the graph repository
// adapter. They are domain-agnostic on purpose: the aggregator turns them into people and
// connections, and they serialize cleanly to JSON for debugging or frontend clients.
package models

import "fmt"

// GraphNode represents a generic node from a Neo4j graph.
// It captures the essential components of any node: its unique element ID, its labels,
// and its properties.
type GraphNode struct {
	// ID is the unique internal identifier assigned by Neo4j to the node (ElementId).
	ID string `json:"id"`

	// Labels is a slice of strings containing all the labels attached to the node (e.g., ["Person"]).
	Labels []string `json:"labels"`

	// Properties is a map containing the key-value properties of the node.
	Properties map[string]interface{} `json:"properties"`
}

// Edge represents a generic relationship between two nodes in a Neo4j graph.
// It includes the relationship's unique ID, its type, its properties, and the unique
// ElementIds of the source and target nodes it connects.
type Edge struct {
	// ID is the unique internal identifier assigned by Neo4j to the relationship (ElementId).
	ID string `json:"id"`

	// Source is the ElementId of the node where the relationship starts.
	Source string `json:"source"`

	// Target is the ElementId of the node where the relationship ends.
	Target string `json:"target"`

	// Type is the relationship's storage type (e.g., "CONNECTED_TO").
	Type string `json:"type"`

	// Properties is a map containing the key-value properties of the relationship.
	Properties map[string]interface{} `json:"properties"`
}

// GraphResult is a top-level container for a raw graph query result.
type GraphResult struct {
	// Nodes contains all the unique nodes retrieved by the query.
	Nodes []*GraphNode `json:"nodes"`

	// Edges contains all the unique relationships retrieved by the query.
	Edges []*Edge `json:"edges"`
}

// Person converts the raw node into a Person. Only the identity, name and bio are copied;
// degree and connections are derived later by the aggregator.
func (n *GraphNode) Person() *Person {
	return &Person{
		ID:   n.ID,
		Name: stringProp(n.Properties, "name"),
		Bio:  stringProp(n.Properties, "bio"),
	}
}

// Connection converts the raw relationship into a Connection, applying the storage default
// strength of 1 when the property is absent or not numeric.
func (e *Edge) Connection() *Connection {
	strength := DefaultStrength
	if v, ok := numberProp(e.Properties, "strength"); ok {
		strength = v
	}
	return &Connection{
		SourceID: e.Source,
		TargetID: e.Target,
		Strength: strength,
		Type:     stringProp(e.Properties, "type"),
	}
}

func stringProp(props map[string]interface{}, key string) string {
	v, ok := props[key]
	if !ok || v == nil {
		return ""
	}
	if s, ok := v.(string); ok {
		return s
	}
	return fmt.Sprint(v)
}

func numberProp(props map[string]interface{}, key string) (float64, bool) {
	switch v := props[key].(type) {
	case float64:
		return v, true
	case float32:
		return float64(v), true
	case int64:
		return float64(v), true
	case int:
		return float64(v), true
	default:
		return 0, false
	}
}

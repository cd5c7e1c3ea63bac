package socialgraph

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/saulfrancisco-ruizacevedo/gocypher"

	"github.com/saulfrancisco-ruizacevedo/go-socialgraph/models"
)

const (
	// PersonLabel is the node label people are stored under.
	PersonLabel = "Person"
	// ConnectionType is the relationship type connections are stored under.
	ConnectionType = "CONNECTED_TO"
)

var validate = validator.New()

// personRequest is the validated input of CreatePerson.
type personRequest struct {
	Name string `validate:"required,max=200"`
	Bio  string `validate:"max=2000"`
}

// connectionRequest is the validated input of CreateOrMergeConnection.
type connectionRequest struct {
	From     string  `validate:"required,max=200"`
	To       string  `validate:"required,max=200"`
	Strength float64 `validate:"gt=0"`
	Type     string  `validate:"max=50"`
}

func invalid(err error) error {
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		fe := verrs[0]
		return fmt.Errorf("%w: %s failed on '%s'", models.ErrInvalidInput, fe.Field(), fe.Tag())
	}
	return fmt.Errorf("%w: %v", models.ErrInvalidInput, err)
}

const (
	findPersonQuery = `MATCH (p:Person) WHERE elementId(p) = $id RETURN p`

	neighborsQuery = `MATCH (p:Person)-[r:CONNECTED_TO]-(m:Person)
WHERE elementId(p) IN $ids
RETURN p, r, m`

	edgesAmongQuery = `MATCH (a:Person)-[r:CONNECTED_TO]->(b:Person)
WHERE elementId(a) IN $ids AND elementId(b) IN $ids
RETURN a, r, b`

	mergeConnectionQuery = `MATCH (source:Person)
WHERE elementId(source) = $from OR toLower(source.name) = toLower($from)
MATCH (target:Person)
WHERE toLower(target.name) = toLower($to) AND elementId(target) <> elementId(source)
WITH source, target LIMIT 1
MERGE (source)-[r:CONNECTED_TO]-(target)
SET r.strength = $strength, r.type = $type
RETURN source, target, r`

	selfConnectionQuery = `MATCH (p:Person)
WHERE elementId(p) = $from AND toLower(p.name) = toLower($to)
RETURN p`
)

// FindPerson returns the raw Person node with the given element id.
//
// Returns:
//
//	The node, or ErrNotFound when no Person carries that identity.
func (pm *PersistenceManager) FindPerson(ctx context.Context, id string) (*models.GraphNode, error) {
	graph, err := pm.runGraph(ctx, "find_person", findPersonQuery, map[string]interface{}{"id": id})
	if err != nil {
		return nil, err
	}
	if len(graph.Nodes) == 0 {
		return nil, fmt.Errorf("person %q: %w", id, ErrNotFound)
	}
	return graph.Nodes[0], nil
}

// PersonByName looks a person up by natural key.
func (pm *PersistenceManager) PersonByName(ctx context.Context, name string) (*models.Person, error) {
	repo, err := pm.peopleRepo()
	if err != nil {
		return nil, err
	}
	p, err := repo.FindByID(ctx, strings.TrimSpace(name))
	if err != nil {
		return nil, fmt.Errorf("person %q: %w", name, err)
	}
	return p, nil
}

// Neighbors expands one hop from every given identity, following connections in both
// directions. The result holds the given people, their direct neighbors and the
// connecting relationships.
func (pm *PersistenceManager) Neighbors(ctx context.Context, ids []string) (*models.GraphResult, error) {
	if len(ids) == 0 {
		return &models.GraphResult{}, nil
	}
	return pm.runGraph(ctx, "neighbors", neighborsQuery, map[string]interface{}{"ids": ids})
}

// EdgesAmong returns the relationships whose endpoints are both in ids. It never
// introduces a person outside ids.
func (pm *PersistenceManager) EdgesAmong(ctx context.Context, ids []string) (*models.GraphResult, error) {
	if len(ids) < 2 {
		return &models.GraphResult{}, nil
	}
	return pm.runGraph(ctx, "edges_among", edgesAmongQuery, map[string]interface{}{"ids": ids})
}

// AllPeople returns every person and every connection in the store. Isolated people are
// included.
func (pm *PersistenceManager) AllPeople(ctx context.Context) (*models.GraphResult, error) {
	// 1. Every Person node, connected or not.
	nodes, err := pm.FindGraph(ctx, gocypher.NewQueryBuilder().
		Match(gocypher.N("n", PersonLabel)).
		Return("n"))
	if errors.Is(err, ErrNotFound) {
		return &models.GraphResult{}, nil
	}
	if err != nil {
		return nil, err
	}

	// 2. Every relationship between two people.
	edges, err := pm.FindGraph(ctx, gocypher.NewQueryBuilder().
		Match(
			gocypher.N("a", PersonLabel),
			gocypher.R("r", ConnectionType).To(),
			gocypher.N("b", PersonLabel),
		).
		Return("a", "r", "b"))
	if errors.Is(err, ErrNotFound) {
		return nodes, nil
	}
	if err != nil {
		return nil, err
	}

	nodes.Edges = edges.Edges
	return nodes, nil
}

// CreatePerson stores a person keyed by name. Saving an existing name updates its bio.
//
// Parameters:
//   - ctx: The context for the query execution.
//   - name: The display name and natural key; must not be blank.
//   - bio: Optional description.
//
// Returns:
//
//	The stored person with its identity, ErrInvalidInput for a blank name, or a
//	storage error.
func (pm *PersistenceManager) CreatePerson(ctx context.Context, name, bio string) (*models.Person, error) {
	req := personRequest{Name: strings.TrimSpace(name), Bio: strings.TrimSpace(bio)}
	if err := validate.Struct(req); err != nil {
		return nil, invalid(err)
	}

	repo, err := pm.peopleRepo()
	if err != nil {
		return nil, err
	}
	person := &models.Person{Name: req.Name, Bio: req.Bio}
	if err := repo.Save(ctx, person); err != nil {
		return nil, fmt.Errorf("saving person %q: %w", req.Name, err)
	}
	pm.logger.Debug("person saved", slog.String("id", person.ID), slog.String("name", person.Name))
	return person, nil
}

// CreateOrMergeConnection connects two people. The source is matched by identity or
// case-insensitive name, the target by case-insensitive name. When the two people are
// already connected in either direction that relationship is reused and its strength and
// type are updated, so a pair is never connected twice.
//
// Parameters:
//   - ctx: The context for the query execution.
//   - from: Identity or name of the source person.
//   - to: Name of the target person.
//   - strength: Relationship strength; 0 means the default of 1, negative is rejected.
//   - relType: Optional category such as "friend" or "family".
//
// Returns:
//
//	The stored connection, ErrInvalidInput for malformed input or when both ends are the
//	same person, ErrNotFound when either person does not exist, or a storage error.
func (pm *PersistenceManager) CreateOrMergeConnection(ctx context.Context, from, to string, strength float64, relType string) (*models.Connection, error) {
	if strength == 0 {
		strength = models.DefaultStrength
	}
	req := connectionRequest{
		From:     strings.TrimSpace(from),
		To:       strings.TrimSpace(to),
		Strength: strength,
		Type:     strings.TrimSpace(relType),
	}
	if err := validate.Struct(req); err != nil {
		return nil, invalid(err)
	}
	if strings.EqualFold(req.From, req.To) {
		return nil, fmt.Errorf("%w: a person cannot be connected to themselves", models.ErrInvalidInput)
	}

	var typeParam interface{}
	if req.Type != "" {
		typeParam = req.Type
	}
	graph, err := pm.runGraph(ctx, "merge_connection", mergeConnectionQuery, map[string]interface{}{
		"from":     req.From,
		"to":       req.To,
		"strength": req.Strength,
		"type":     typeParam,
	})
	if err != nil {
		return nil, err
	}
	if len(graph.Edges) == 0 {
		// The source may have been given by identity while the target names the same person.
		self, err := pm.runGraph(ctx, "self_connection", selfConnectionQuery, map[string]interface{}{
			"from": req.From,
			"to":   req.To,
		})
		if err != nil {
			return nil, err
		}
		if len(self.Nodes) > 0 {
			return nil, fmt.Errorf("%w: a person cannot be connected to themselves", models.ErrInvalidInput)
		}
		return nil, fmt.Errorf("connection %s -> %s: %w", req.From, req.To, ErrNotFound)
	}
	return graph.Edges[0].Connection(), nil
}

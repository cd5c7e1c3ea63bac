package socialgraph

import (
	"context"
	"fmt"
	"log/slog"
	"reflect"
	"sync"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
	"github.com/saulfrancisco-ruizacevedo/gocypher"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/saulfrancisco-ruizacevedo/go-socialgraph/models"
)

var tracer = otel.Tracer("socialgraph.persistence")

// PersistenceManager is the central orchestrator for the persistence layer.
// It owns the query runner and provides access to repositories and cross-entity
// operations like creating relationships and fetching neighborhoods.
type PersistenceManager struct {
	runner DBRunner
	logger *slog.Logger
	// metaCache stores parsed entityMetadata to avoid costly reflection on every call.
	metaCache sync.Map

	peopleOnce sync.Once
	people     *Repository[models.Person]
	peopleErr  error
}

// ManagerOption configures a PersistenceManager.
type ManagerOption func(*PersistenceManager)

// WithLogger sets the logger used for query diagnostics.
func WithLogger(logger *slog.Logger) ManagerOption {
	return func(pm *PersistenceManager) {
		if logger != nil {
			pm.logger = logger
		}
	}
}

// NewPersistenceManager creates a new instance of the PersistenceManager.
func NewPersistenceManager(runner DBRunner, opts ...ManagerOption) *PersistenceManager {
	pm := &PersistenceManager{runner: runner, logger: slog.Default()}
	for _, opt := range opts {
		opt(pm)
	}
	return pm
}

// RepositoryFor is a generic function that creates and returns a repository
// for a specific struct type T, managed by the given PersistenceManager.
func RepositoryFor[T any](pm *PersistenceManager) (*Repository[T], error) {
	return NewRepository[T](pm.runner)
}

// peopleRepo lazily builds the Person repository shared by the person operations.
func (pm *PersistenceManager) peopleRepo() (*Repository[models.Person], error) {
	pm.peopleOnce.Do(func() {
		pm.people, pm.peopleErr = RepositoryFor[models.Person](pm)
	})
	return pm.people, pm.peopleErr
}

// CreateRelation creates a directed relationship between two existing entities in the database.
// It uses reflection to find the entities' primary keys and labels to build the query.
func (pm *PersistenceManager) CreateRelation(ctx context.Context, fromEntity any, toEntity any, relType string, relProps map[string]interface{}) error {
	fromMeta, fromPKVal, err := pm.getEntityMetaAndPK(fromEntity)
	if err != nil {
		return err
	}
	toMeta, toPKVal, err := pm.getEntityMetaAndPK(toEntity)
	if err != nil {
		return err
	}

	qb := gocypher.NewQueryBuilder().
		Match(gocypher.N("a", fromMeta.Label).WithProperties(map[string]interface{}{fromMeta.PKProp: fromPKVal})).
		Match(gocypher.N("b", toMeta.Label).WithProperties(map[string]interface{}{toMeta.PKProp: toPKVal})).
		Create(
			gocypher.N("a", ""), // Reference the 'a' alias without its label
			gocypher.R("r", relType).To().WithProperties(relProps),
			gocypher.N("b", ""),
		)

	query, params, err := qb.Build()
	if err != nil {
		return err
	}

	_, err = pm.runner.Run(ctx, query, params)
	return err
}

// getEntityMetaAndPK retrieves an entity's metadata and primary key value, caching the
// metadata per type.
func (pm *PersistenceManager) getEntityMetaAndPK(entity any) (*entityMetadata, any, error) {
	val := reflect.ValueOf(entity)
	if val.Kind() != reflect.Ptr || val.IsNil() {
		return nil, nil, fmt.Errorf("entity must be a non-nil pointer")
	}

	typ := val.Elem().Type()

	if cached, ok := pm.metaCache.Load(typ); ok {
		meta := cached.(*entityMetadata)
		pkValue := val.Elem().FieldByName(meta.PKField).Interface()
		return meta, pkValue, nil
	}

	meta, err := parseTagsFromType(typ)
	if err != nil {
		return nil, nil, err
	}
	pm.metaCache.Store(typ, meta)

	pkValue := val.Elem().FieldByName(meta.PKField).Interface()
	return meta, pkValue, nil
}

// FindGraph executes a graph query defined by a gocypher.QueryBuilder and maps the result
// into a generic graph structure composed of nodes and edges.
//
// The caller is responsible for constructing a valid query, including a RETURN clause that
// specifies which nodes and relationships should be included (for example `RETURN a, r, b`).
// Nodes and relationships returned in several rows appear once in the result.
//
// Parameters:
//   - ctx: The context for the query execution.
//   - qb: A configured gocypher.QueryBuilder that defines the graph to retrieve.
//
// Returns:
//   - The de-duplicated nodes and edges from the query.
//   - ErrNotFound if the query executes successfully but returns zero records.
//   - Any other error encountered during query building or execution.
func (pm *PersistenceManager) FindGraph(ctx context.Context, qb *gocypher.QueryBuilder) (*models.GraphResult, error) {
	query, params, err := qb.Build()
	if err != nil {
		return nil, fmt.Errorf("could not build query: %w", err)
	}

	graph, err := pm.runGraph(ctx, "find_graph", query, params)
	if err != nil {
		return nil, err
	}
	if len(graph.Nodes) == 0 && len(graph.Edges) == 0 {
		return nil, ErrNotFound
	}
	return graph, nil
}

// runGraph executes a query and decodes every node and relationship value in the result.
// An empty result is not an error here; callers decide what emptiness means.
func (pm *PersistenceManager) runGraph(ctx context.Context, op, query string, params map[string]interface{}) (*models.GraphResult, error) {
	ctx, span := tracer.Start(ctx, "PersistenceManager."+op)
	defer span.End()

	eagerResult, err := pm.runner.Run(ctx, query, params)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	graph := decodeGraph(eagerResult)
	span.SetAttributes(
		attribute.Int("records", len(eagerResult.Records)),
		attribute.Int("nodes", len(graph.Nodes)),
		attribute.Int("edges", len(graph.Edges)),
	)
	pm.logger.Debug("graph query executed",
		slog.String("op", op),
		slog.Int("records", len(eagerResult.Records)),
		slog.Int("nodes", len(graph.Nodes)),
		slog.Int("edges", len(graph.Edges)),
	)
	return graph, nil
}

// decodeGraph walks the records and values of a result, keeping the first occurrence of
// every node and relationship by ElementId.
func decodeGraph(eagerResult *neo4j.EagerResult) *models.GraphResult {
	graph := &models.GraphResult{
		Nodes: make([]*models.GraphNode, 0),
		Edges: make([]*models.Edge, 0),
	}
	seenNodeIDs := make(map[string]bool)
	seenEdgeIDs := make(map[string]bool)

	for _, record := range eagerResult.Records {
		for _, value := range record.Values {
			switch v := value.(type) {
			case neo4j.Node:
				if !seenNodeIDs[v.ElementId] {
					graph.Nodes = append(graph.Nodes, &models.GraphNode{
						ID:         v.ElementId,
						Labels:     v.Labels,
						Properties: v.Props,
					})
					seenNodeIDs[v.ElementId] = true
				}

			case neo4j.Relationship:
				if !seenEdgeIDs[v.ElementId] {
					graph.Edges = append(graph.Edges, &models.Edge{
						ID:         v.ElementId,
						Source:     v.StartElementId,
						Target:     v.EndElementId,
						Type:       v.Type,
						Properties: v.Props,
					})
					seenEdgeIDs[v.ElementId] = true
				}
			}
		}
	}
	return graph
}

// Package neighborhood aggregates a bounded neighborhood of the social graph around a
// focal person.
//
// Aggregation walks the store breadth-first, one hop per query, and produces a
// deduplicated set of people and connections:
//
//   - every person appears once, keyed by identity, carrying the hop at which it was
//     first discovered (its degree);
//   - every unordered pair of people is connected at most once, whichever direction or
//     path discovered it;
//   - people at the outer hop are never expanded, so connections leading from them to
//     people outside the neighborhood are never seen, while connections among people
//     already inside it are added by a final closure query.
//
// Aggregation is atomic: on any error no graph is returned.
package neighborhood

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/saulfrancisco-ruizacevedo/go-socialgraph/models"
)

// MaxHops is the largest supported hop bound.
const MaxHops = 2

var tracer = otel.Tracer("socialgraph.neighborhood")

// Source is the graph repository contract the aggregator consumes. The root
// socialgraph.PersistenceManager implements it against Neo4j.
type Source interface {
	// FindPerson returns the person with the given identity or models.ErrNotFound.
	FindPerson(ctx context.Context, id string) (*models.GraphNode, error)
	// Neighbors returns the given people, their direct neighbors in both directions and
	// the connecting relationships.
	Neighbors(ctx context.Context, ids []string) (*models.GraphResult, error)
	// EdgesAmong returns the relationships whose endpoints are both in ids.
	EdgesAmong(ctx context.Context, ids []string) (*models.GraphResult, error)
	// AllPeople returns every person and every relationship.
	AllPeople(ctx context.Context) (*models.GraphResult, error)
}

// Aggregator builds neighborhoods from a Source.
type Aggregator struct {
	source Source
	logger *slog.Logger
}

// NewAggregator creates an aggregator. A nil logger means slog.Default().
func NewAggregator(source Source, logger *slog.Logger) *Aggregator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Aggregator{source: source, logger: logger}
}

// Aggregate returns the neighborhood of focal bounded to maxHops undirected hops.
//
// Errors:
//
//	models.ErrUnauthorized when focal is empty,
//	models.ErrInvalidInput when maxHops is outside [0, MaxHops],
//	models.ErrNotFound when focal does not exist,
//	models.ErrAggregationFailed wrapping any storage failure.
func (a *Aggregator) Aggregate(ctx context.Context, focal string, maxHops int) (*models.Graph, error) {
	if focal == "" {
		return nil, models.ErrUnauthorized
	}
	if maxHops < 0 || maxHops > MaxHops {
		return nil, fmt.Errorf("%w: hop bound %d outside [0, %d]", models.ErrInvalidInput, maxHops, MaxHops)
	}

	start := time.Now()
	ctx, span := tracer.Start(ctx, "Aggregator.Aggregate", trace.WithAttributes(
		attribute.String("focal", focal),
		attribute.Int("max_hops", maxHops),
	))
	defer span.End()

	g, err := a.expand(ctx, focal, maxHops)
	a.observe(span, modeFocal, start, g, err)
	if err != nil {
		return nil, err
	}

	a.logger.Debug("neighborhood aggregated",
		slog.String("focal", focal),
		slog.Int("max_hops", maxHops),
		slog.Int("nodes", len(g.Nodes)),
		slog.Int("links", len(g.Links)),
		slog.Duration("elapsed", time.Since(start)),
	)
	return g, nil
}

func (a *Aggregator) expand(ctx context.Context, focal string, maxHops int) (*models.Graph, error) {
	root, err := a.source.FindPerson(ctx, focal)
	if errors.Is(err, models.ErrNotFound) {
		return nil, fmt.Errorf("focal person %q: %w", focal, models.ErrNotFound)
	}
	if err != nil {
		return nil, failed("looking up focal person", err)
	}

	b := newBuilder(focal)
	b.addNode(root.Person(), intPtr(0))

	frontier := []string{focal}
	for hop := 1; hop <= maxHops && len(frontier) > 0; hop++ {
		if err := ctx.Err(); err != nil {
			return nil, failed("expansion cancelled", err)
		}

		res, err := a.source.Neighbors(ctx, frontier)
		if err != nil {
			return nil, failed(fmt.Sprintf("expanding hop %d", hop), err)
		}

		inFrontier := make(map[string]bool, len(frontier))
		for _, id := range frontier {
			inFrontier[id] = true
		}
		discovered := make(map[string]*models.GraphNode, len(res.Nodes))
		for _, n := range res.Nodes {
			discovered[n.ID] = n
		}

		var next []string
		for _, e := range sortedEdges(res.Edges) {
			var from, to string
			switch {
			case inFrontier[e.Source]:
				from, to = e.Source, e.Target
			case inFrontier[e.Target]:
				from, to = e.Target, e.Source
			default:
				continue
			}
			if from == to {
				// Self-loops are never aggregated.
				continue
			}
			if !b.has(to) {
				n, ok := discovered[to]
				if !ok {
					continue
				}
				b.addNode(n.Person(), intPtr(hop))
				next = append(next, to)
			}
			b.addEdge(e)
		}
		frontier = next
	}

	if maxHops > 0 {
		// Connections among people already inside the neighborhood, e.g. between two
		// people at the outer hop. No new person can be introduced here.
		res, err := a.source.EdgesAmong(ctx, b.ids())
		if err != nil {
			return nil, failed("closing neighborhood", err)
		}
		for _, e := range sortedEdges(res.Edges) {
			if e.Source != e.Target && b.has(e.Source) && b.has(e.Target) {
				b.addEdge(e)
			}
		}
	}

	return b.graph(), nil
}

// AggregateAll returns the unfiltered graph: every person and every connection, with no
// degrees assigned.
func (a *Aggregator) AggregateAll(ctx context.Context) (*models.Graph, error) {
	start := time.Now()
	ctx, span := tracer.Start(ctx, "Aggregator.AggregateAll")
	defer span.End()

	g, err := a.all(ctx)
	a.observe(span, modeAll, start, g, err)
	if err != nil {
		return nil, err
	}

	a.logger.Debug("full graph aggregated",
		slog.Int("nodes", len(g.Nodes)),
		slog.Int("links", len(g.Links)),
	)
	return g, nil
}

func (a *Aggregator) all(ctx context.Context) (*models.Graph, error) {
	res, err := a.source.AllPeople(ctx)
	if err != nil {
		return nil, failed("loading all people", err)
	}

	b := newBuilder("")
	for _, n := range res.Nodes {
		if !b.has(n.ID) {
			b.addNode(n.Person(), nil)
		}
	}
	for _, e := range sortedEdges(res.Edges) {
		if e.Source != e.Target && b.has(e.Source) && b.has(e.Target) {
			b.addEdge(e)
		}
	}
	return b.graph(), nil
}

func (a *Aggregator) observe(span trace.Span, mode string, start time.Time, g *models.Graph, err error) {
	result := resultOK
	switch {
	case errors.Is(err, models.ErrNotFound):
		result = resultNotFound
	case errors.Is(err, models.ErrUnauthorized), errors.Is(err, models.ErrInvalidInput):
		result = resultRejected
	case err != nil:
		result = resultFailed
	}
	aggregationsTotal.WithLabelValues(mode, result).Inc()
	aggregationDuration.WithLabelValues(mode).Observe(time.Since(start).Seconds())

	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return
	}
	aggregatedNodes.Observe(float64(len(g.Nodes)))
	aggregatedLinks.Observe(float64(len(g.Links)))
	span.SetAttributes(
		attribute.Int("nodes", len(g.Nodes)),
		attribute.Int("links", len(g.Links)),
	)
}

func failed(what string, err error) error {
	return fmt.Errorf("%w: %s: %w", models.ErrAggregationFailed, what, err)
}

func sortedEdges(edges []*models.Edge) []*models.Edge {
	out := make([]*models.Edge, len(edges))
	copy(out, edges)
	sort.SliceStable(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func intPtr(v int) *int { return &v }

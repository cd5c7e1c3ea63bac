// Package session ties the aggregator, the layout simulation and the interaction machine
// together for one viewer.
//
// A Session is driven by two kinds of callers. The frame loop calls Advance once per
// rendering frame and forwards pointer events. Rebuild requests (Refocus, SetFocal,
// ShowAll, Refresh, AddPerson, Connect) fetch a new graph asynchronously; while a rebuild
// is in flight the previous graph keeps simulating. Completed rebuilds are staged and
// swapped in at the start of the next Advance, so a frame never mixes two graphs.
//
// Rebuilds are last-write-wins by issue order: issuing a request cancels the one in
// flight, and a result that arrives after a newer request was issued is discarded with
// models.ErrSuperseded.
package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/google/uuid"
	"golang.org/x/sync/singleflight"

	"github.com/saulfrancisco-ruizacevedo/go-socialgraph/interaction"
	"github.com/saulfrancisco-ruizacevedo/go-socialgraph/layout"
	"github.com/saulfrancisco-ruizacevedo/go-socialgraph/models"
)

// Aggregator builds graphs. *neighborhood.Aggregator implements it.
type Aggregator interface {
	Aggregate(ctx context.Context, focal string, maxHops int) (*models.Graph, error)
	AggregateAll(ctx context.Context) (*models.Graph, error)
}

// Mutator creates people and connections. *socialgraph.PersistenceManager implements it.
type Mutator interface {
	CreatePerson(ctx context.Context, name, bio string) (*models.Person, error)
	CreateOrMergeConnection(ctx context.Context, from, to string, strength float64, relType string) (*models.Connection, error)
}

// Renderer receives every frame produced by Advance.
type Renderer interface {
	Render(Frame)
}

// RendererFunc adapts a function to Renderer.
type RendererFunc func(Frame)

// Render calls f.
func (f RendererFunc) Render(fr Frame) { f(fr) }

// Config holds the tunables of a session.
type Config struct {
	MaxHops     int
	Layout      layout.Config
	ClickPolicy interaction.ClickPolicy
}

// Option configures a Session.
type Option func(*Session)

// WithLogger sets the session logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Session) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithRenderer delivers every frame to r.
func WithRenderer(r Renderer) Option {
	return func(s *Session) { s.renderer = r }
}

// WithMutator enables AddPerson and Connect.
func WithMutator(m Mutator) Option {
	return func(s *Session) { s.mutator = m }
}

// staged is a completed rebuild waiting for the next Advance.
type staged struct {
	seq   uint64
	focal string
	graph *models.Graph
}

// Session is the viewer-scoped state of the people view.
type Session struct {
	id       string
	agg      Aggregator
	mutator  Mutator
	renderer Renderer
	logger   *slog.Logger
	maxHops  int

	flights singleflight.Group

	mu        sync.Mutex
	sim       *layout.Simulation
	machine   *interaction.Machine
	graph     *models.Graph
	focal     string
	requested string
	// generation counts successful writes through this session. Fetches of different
	// generations are never coalesced.
	generation uint64
	seq        uint64
	cancel    context.CancelFunc
	pending   *staged
	frames    uint64
}

// New creates a session with an empty graph. Call Refocus or ShowAll to load one.
func New(agg Aggregator, cfg Config, opts ...Option) *Session {
	sim := layout.New(cfg.Layout)
	s := &Session{
		id:      uuid.NewString(),
		agg:     agg,
		logger:  slog.Default(),
		maxHops: cfg.MaxHops,
		sim:     sim,
		machine: interaction.NewMachine(sim, interaction.WithClickPolicy(cfg.ClickPolicy)),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = s.logger.With(slog.String("session", s.id))
	return s
}

// ID returns the session identifier used in logs.
func (s *Session) ID() string { return s.id }

// Refocus rebuilds the graph around focal. The returned channel yields exactly one
// value: nil once the graph is staged, models.ErrSuperseded if a newer request overtook
// it, or the aggregation error.
func (s *Session) Refocus(ctx context.Context, focal string) <-chan error {
	s.mu.Lock()
	s.requested = focal
	s.mu.Unlock()
	return s.rebuild(ctx, focal)
}

// ShowAll rebuilds the unfiltered graph.
func (s *Session) ShowAll(ctx context.Context) <-chan error {
	return s.Refocus(ctx, "")
}

// SetFocal makes id the focal person and clears the relationship slot. Choosing the
// current focal person again switches back to the unfiltered graph.
func (s *Session) SetFocal(ctx context.Context, id string) <-chan error {
	s.mu.Lock()
	target := id
	if id == s.requested {
		target = ""
	}
	s.requested = target
	s.machine.ClearRelationship()
	s.mu.Unlock()
	return s.rebuild(ctx, target)
}

// Refresh reloads the graph for the most recently requested focal person.
func (s *Session) Refresh(ctx context.Context) <-chan error {
	s.mu.Lock()
	focal := s.requested
	s.mu.Unlock()
	return s.rebuild(ctx, focal)
}

func (s *Session) rebuild(ctx context.Context, focal string) <-chan error {
	ctx, cancel := context.WithCancel(ctx)

	s.mu.Lock()
	s.seq++
	seq := s.seq
	gen := s.generation
	if s.cancel != nil {
		s.cancel()
	}
	s.cancel = cancel
	s.mu.Unlock()

	done := make(chan error, 1)
	go func() {
		defer cancel()
		g, err := s.fetch(ctx, focal, gen)
		done <- s.deliver(seq, focal, g, err)
		close(done)
	}()
	return done
}

// fetch coalesces identical concurrent requests of the same write generation. The shared
// fetch is not bound to any single caller's context, so cancelling one request does not
// fail the others.
func (s *Session) fetch(ctx context.Context, focal string, gen uint64) (*models.Graph, error) {
	key := "all"
	if focal != "" {
		key = "focal:" + focal
	}
	key = fmt.Sprintf("%s@%d", key, gen)
	ch := s.flights.DoChan(key, func() (interface{}, error) {
		detached := context.WithoutCancel(ctx)
		if focal == "" {
			return s.agg.AggregateAll(detached)
		}
		return s.agg.Aggregate(detached, focal, s.maxHops)
	})

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.(*models.Graph), nil
	}
}

func (s *Session) deliver(seq uint64, focal string, g *models.Graph, err error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if seq < s.seq {
		rebuildsTotal.WithLabelValues(rebuildSuperseded).Inc()
		s.logger.Debug("stale rebuild discarded",
			slog.Uint64("seq", seq),
			slog.Uint64("latest", s.seq),
			slog.String("focal", focal),
		)
		return models.ErrSuperseded
	}
	if err != nil {
		// The newest request failed, so the focal person it asked for never became current.
		s.requested = s.focal
		if s.pending != nil {
			s.requested = s.pending.focal
		}
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			rebuildsTotal.WithLabelValues(rebuildSuperseded).Inc()
			s.logger.Debug("rebuild cancelled",
				slog.Uint64("seq", seq),
				slog.String("focal", focal),
			)
			return err
		}
		rebuildsTotal.WithLabelValues(rebuildFailed).Inc()
		s.logger.Warn("rebuild failed, keeping previous graph",
			slog.String("focal", focal),
			slog.Any("error", err),
		)
		return err
	}

	if s.pending != nil {
		// Never reached a frame.
		rebuildsTotal.WithLabelValues(rebuildSuperseded).Inc()
	}
	s.pending = &staged{seq: seq, focal: focal, graph: g}
	return nil
}

// Advance swaps in a staged rebuild, if any, steps the simulation once and returns the
// resulting frame. The frame is also delivered to the renderer.
func (s *Session) Advance() Frame {
	s.mu.Lock()
	if p := s.pending; p != nil {
		s.pending = nil
		s.apply(p)
	}
	s.sim.Step()
	s.frames++
	frame := s.frameLocked()
	s.mu.Unlock()

	if s.renderer != nil {
		s.renderer.Render(frame)
	}
	return frame
}

func (s *Session) apply(p *staged) {
	s.graph = p.graph
	s.focal = p.focal
	s.sim.SetGraph(p.graph)
	s.machine.SetGraph(p.graph)
	rebuildsTotal.WithLabelValues(rebuildApplied).Inc()
	s.logger.Debug("graph swapped in",
		slog.Uint64("seq", p.seq),
		slog.String("focal", p.focal),
		slog.Int("nodes", len(p.graph.Nodes)),
		slog.Int("links", len(p.graph.Links)),
	)
}

// Snapshot returns the current frame without stepping the simulation.
func (s *Session) Snapshot() Frame {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.frameLocked()
}

func (s *Session) frameLocked() Frame {
	positions := s.sim.Positions()
	sel := s.machine.Selection()
	f := Frame{
		Number:    s.frames,
		Session:   s.id,
		Focal:     s.focal,
		Graph:     s.graph,
		Positions: positions,
		Alpha:     s.sim.Alpha(),
		Running:   s.sim.Running(),
		Selection: sel,
	}
	if h, ok := interaction.PathHighlight(s.graph, sel, positions); ok {
		f.Highlight = &h
	}
	return f
}

// Graph returns the graph currently being simulated.
func (s *Session) Graph() *models.Graph {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.graph
}

// Click forwards a click on a person.
func (s *Session) Click(id string) interaction.Selection {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.machine.Click(id)
}

// SetRelationship fills the relationship slot directly.
func (s *Session) SetRelationship(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.machine.SetRelationship(id)
}

// ClearRelationship empties the relationship slot.
func (s *Session) ClearRelationship() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.machine.ClearRelationship()
}

// DragStart forwards the start of a drag.
func (s *Session) DragStart(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.machine.DragStart(id)
}

// DragMove forwards pointer movement during a drag.
func (s *Session) DragMove(id string, x, y float64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.machine.DragMove(id, x, y)
}

// DragEnd forwards the end of a drag.
func (s *Session) DragEnd(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.machine.DragEnd(id)
}

// Resize changes the drawing area.
func (s *Session) Resize(width, height float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sim.Resize(width, height)
}

// ErrReadOnly is returned by AddPerson and Connect when the session has no Mutator.
var ErrReadOnly = errors.New("session is read-only")

// AddPerson stores a new person and refreshes the graph. The returned channel reports
// the outcome of the refresh.
func (s *Session) AddPerson(ctx context.Context, name, bio string) (*models.Person, <-chan error, error) {
	if s.mutator == nil {
		return nil, nil, ErrReadOnly
	}
	p, err := s.mutator.CreatePerson(ctx, name, bio)
	if err != nil {
		return nil, nil, fmt.Errorf("adding person: %w", err)
	}
	s.logger.Info("person added", slog.String("id", p.ID), slog.String("name", p.Name))
	s.written()
	return p, s.Refresh(ctx), nil
}

// Connect connects two people and refreshes the graph. The returned channel reports the
// outcome of the refresh.
func (s *Session) Connect(ctx context.Context, from, to string, strength float64, relType string) (*models.Connection, <-chan error, error) {
	if s.mutator == nil {
		return nil, nil, ErrReadOnly
	}
	c, err := s.mutator.CreateOrMergeConnection(ctx, from, to, strength, relType)
	if err != nil {
		return nil, nil, fmt.Errorf("connecting %s to %s: %w", from, to, err)
	}
	s.logger.Info("people connected",
		slog.String("source", c.SourceID),
		slog.String("target", c.TargetID),
		slog.Float64("strength", c.Strength),
	)
	s.written()
	return c, s.Refresh(ctx), nil
}

// written starts a new write generation so the following refresh reads the store afresh
// instead of joining a fetch that began before the write.
func (s *Session) written() {
	s.mu.Lock()
	s.generation++
	s.mu.Unlock()
}

// Close cancels any rebuild in flight.
func (s *Session) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cancel != nil {
		s.cancel()
		s.cancel = nil
	}
}

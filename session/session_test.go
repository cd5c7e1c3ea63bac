package session

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/saulfrancisco-ruizacevedo/go-socialgraph/interaction"
	"github.com/saulfrancisco-ruizacevedo/go-socialgraph/layout"
	"github.com/saulfrancisco-ruizacevedo/go-socialgraph/models"
)

// fakeAggregator serves graphs keyed by focal id ("" for the unfiltered graph). The graph
// is read as soon as a call arrives; a gated key then holds the answer back until its
// channel is closed.
type fakeAggregator struct {
	mu     sync.Mutex
	graphs map[string]func() *models.Graph
	errs   map[string]error
	gates  map[string]chan struct{}
	calls  []string
}

func newFakeAggregator() *fakeAggregator {
	return &fakeAggregator{
		graphs: map[string]func() *models.Graph{},
		errs:   map[string]error{},
		gates:  map[string]chan struct{}{},
	}
}

func (a *fakeAggregator) serve(focal string, ids []string, links ...[2]string) {
	a.graphs[focal] = func() *models.Graph { return graphOf(focal, ids, links...) }
}

func (a *fakeAggregator) gate(focal string) chan struct{} {
	ch := make(chan struct{})
	a.mu.Lock()
	a.gates[focal] = ch
	a.mu.Unlock()
	return ch
}

func (a *fakeAggregator) get(focal string) (*models.Graph, error) {
	a.mu.Lock()
	a.calls = append(a.calls, focal)
	gate := a.gates[focal]
	g, err := a.read(focal)
	a.mu.Unlock()

	if gate != nil {
		<-gate
	}
	return g, err
}

func (a *fakeAggregator) read(focal string) (*models.Graph, error) {
	if err := a.errs[focal]; err != nil {
		return nil, err
	}
	build, ok := a.graphs[focal]
	if !ok {
		return nil, models.ErrNotFound
	}
	return build(), nil
}

func (a *fakeAggregator) callCount(focal string) int {
	a.mu.Lock()
	defer a.mu.Unlock()
	n := 0
	for _, c := range a.calls {
		if c == focal {
			n++
		}
	}
	return n
}

func (a *fakeAggregator) Aggregate(_ context.Context, focal string, _ int) (*models.Graph, error) {
	return a.get(focal)
}

func (a *fakeAggregator) AggregateAll(_ context.Context) (*models.Graph, error) {
	return a.get("")
}

type fakeMutator struct {
	mu     sync.Mutex
	people []string
	links  [][2]string
	err    error
}

func (m *fakeMutator) stored() [][2]string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([][2]string(nil), m.links...)
}

func (m *fakeMutator) CreatePerson(_ context.Context, name, _ string) (*models.Person, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	m.people = append(m.people, name)
	return &models.Person{ID: name, Name: name}, nil
}

func (m *fakeMutator) CreateOrMergeConnection(_ context.Context, from, to string, strength float64, _ string) (*models.Connection, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	m.links = append(m.links, [2]string{from, to})
	return &models.Connection{SourceID: from, TargetID: to, Strength: strength}, nil
}

func graphOf(focal string, ids []string, links ...[2]string) *models.Graph {
	nodes := make([]*models.Person, 0, len(ids))
	for _, id := range ids {
		nodes = append(nodes, &models.Person{ID: id, Name: "name-" + id})
	}
	conns := make([]*models.Connection, 0, len(links))
	for _, l := range links {
		conns = append(conns, &models.Connection{SourceID: l[0], TargetID: l[1], Strength: 1})
	}
	return models.NewGraph(focal, nodes, conns)
}

func wait(t *testing.T, ch <-chan error) error {
	t.Helper()
	select {
	case err := <-ch:
		return err
	case <-time.After(2 * time.Second):
		t.Fatal("rebuild did not complete")
		return nil
	}
}

func newTestSession(agg *fakeAggregator, opts ...Option) *Session {
	return New(agg, Config{MaxHops: 2, Layout: layout.DefaultConfig()}, opts...)
}

func TestRefocus_SwapsOnNextAdvance(t *testing.T) {
	agg := newFakeAggregator()
	agg.serve("A", []string{"A", "B"}, [2]string{"A", "B"})
	s := newTestSession(agg)

	require.NoError(t, wait(t, s.Refocus(context.Background(), "A")))
	assert.Nil(t, s.Graph(), "staged graph is not visible before the next frame")

	frame := s.Advance()
	assert.Equal(t, "A", frame.Focal)
	assert.Equal(t, 2, frame.NodeCount())
	assert.Equal(t, 1, frame.LinkCount())
	assert.Len(t, frame.Positions, 2)
	assert.Equal(t, uint64(1), frame.Number)
	assert.Equal(t, s.ID(), frame.Session)
}

func TestRefocus_LastIssuedWins(t *testing.T) {
	agg := newFakeAggregator()
	agg.serve("A", []string{"A"})
	agg.serve("B", []string{"B"})
	release := agg.gate("A")
	defer close(release)
	s := newTestSession(agg)

	first := s.Refocus(context.Background(), "A")
	second := s.Refocus(context.Background(), "B")

	require.NoError(t, wait(t, second))
	assert.ErrorIs(t, wait(t, first), models.ErrSuperseded)

	frame := s.Advance()
	assert.Equal(t, "B", frame.Focal)
	assert.True(t, frame.Graph.Has("B"))
}

func TestRefocus_StaleResultAfterNewerIsDiscarded(t *testing.T) {
	agg := newFakeAggregator()
	agg.serve("A", []string{"A"})
	agg.serve("B", []string{"B"})
	s := newTestSession(agg)

	require.NoError(t, wait(t, s.Refocus(context.Background(), "A")))

	// A result for an older sequence arriving late is rejected on delivery.
	s.mu.Lock()
	s.seq++
	s.mu.Unlock()
	err := s.deliver(1, "A", graphOf("A", []string{"A"}), nil)
	assert.ErrorIs(t, err, models.ErrSuperseded)
}

func TestRebuildFailure_KeepsPreviousGraph(t *testing.T) {
	agg := newFakeAggregator()
	agg.serve("A", []string{"A", "B"}, [2]string{"A", "B"})
	boom := errors.New("store unavailable")
	agg.errs["B"] = boom
	s := newTestSession(agg)

	require.NoError(t, wait(t, s.Refocus(context.Background(), "A")))
	before := s.Advance().Graph

	assert.ErrorIs(t, wait(t, s.Refocus(context.Background(), "ghost")), models.ErrNotFound)
	assert.ErrorIs(t, wait(t, s.Refocus(context.Background(), "B")), boom)

	frame := s.Advance()
	assert.Same(t, before, frame.Graph)
	assert.Equal(t, "A", frame.Focal)
}

func TestSetFocal_Toggles(t *testing.T) {
	agg := newFakeAggregator()
	agg.serve("", []string{"A", "B", "C"}, [2]string{"A", "B"})
	agg.serve("A", []string{"A", "B"}, [2]string{"A", "B"})
	s := newTestSession(agg)

	require.NoError(t, wait(t, s.SetFocal(context.Background(), "A")))
	assert.Equal(t, "A", s.Advance().Focal)

	require.NoError(t, wait(t, s.SetFocal(context.Background(), "A")))
	frame := s.Advance()
	assert.Empty(t, frame.Focal, "choosing the focal person again shows everyone")
	assert.Equal(t, 3, frame.NodeCount())
	for _, p := range frame.Graph.Nodes {
		assert.Nil(t, p.Degree)
	}
	assert.Equal(t, 1, agg.callCount(""))
}

func TestSetFocal_ClearsRelationship(t *testing.T) {
	agg := newFakeAggregator()
	agg.serve("", []string{"A", "B", "C"}, [2]string{"A", "B"})
	agg.serve("C", []string{"A", "B", "C"}, [2]string{"A", "B"})
	s := newTestSession(agg)

	require.NoError(t, wait(t, s.ShowAll(context.Background())))
	s.Advance()
	s.Click("A")
	require.Equal(t, interaction.Selection{Selected: "A", Relationship: "B"}, s.Click("B"))

	ch := s.SetFocal(context.Background(), "C")
	assert.Equal(t, interaction.Selection{Selected: "A"}, s.Snapshot().Selection)
	require.NoError(t, wait(t, ch))
}

func TestSelection_RetainedByIdentity(t *testing.T) {
	agg := newFakeAggregator()
	agg.serve("", []string{"A", "B", "C"}, [2]string{"A", "B"})
	agg.serve("C", []string{"C", "A"}, [2]string{"C", "A"})
	s := newTestSession(agg)

	require.NoError(t, wait(t, s.ShowAll(context.Background())))
	s.Advance()
	s.Click("A")
	s.Click("B")

	require.NoError(t, wait(t, s.Refocus(context.Background(), "C")))
	assert.Equal(t, interaction.Selection{Selected: "A", Relationship: "B"}, s.Snapshot().Selection,
		"selection is untouched until the swap")

	frame := s.Advance()
	assert.Equal(t, interaction.Selection{Selected: "A"}, frame.Selection)
}

func TestAdvance_RendersHighlight(t *testing.T) {
	agg := newFakeAggregator()
	agg.serve("A", []string{"A", "B", "C"}, [2]string{"A", "B"}, [2]string{"B", "C"})

	var frames []Frame
	s := newTestSession(agg, WithRenderer(RendererFunc(func(f Frame) { frames = append(frames, f) })))

	require.NoError(t, wait(t, s.Refocus(context.Background(), "A")))
	s.Advance()
	assert.Equal(t, "3 people, 2 connections", frames[0].Caption())

	s.Click("A")
	s.Click("C")
	s.Advance()
	require.Len(t, frames, 2)
	h := frames[1].Highlight
	require.NotNil(t, h)
	assert.False(t, h.Direct)
	assert.Equal(t, frames[1].Positions["A"], h.FromPos)
	assert.Equal(t, frames[1].Positions["C"], h.ToPos)
	assert.Equal(t, "showing path: name-A -> name-C (indirect)", frames[1].Caption())

	s.ClearRelationship()
	assert.Nil(t, s.Advance().Highlight)
	require.True(t, s.SetRelationship("B"))
	assert.True(t, s.Advance().Highlight.Direct)
}

func TestDrag_PinsThroughSimulation(t *testing.T) {
	agg := newFakeAggregator()
	agg.serve("A", []string{"A", "B"}, [2]string{"A", "B"})
	s := newTestSession(agg)
	require.NoError(t, wait(t, s.Refocus(context.Background(), "A")))
	s.Advance()

	assert.False(t, s.DragStart("ghost"))
	require.True(t, s.DragStart("B"))
	require.True(t, s.DragMove("B", 300, 200))
	for i := 0; i < 10; i++ {
		s.Advance()
	}
	frame := s.Advance()
	assert.Equal(t, models.Position{X: 300, Y: 200}, frame.Positions["B"])
	assert.True(t, frame.Running)

	require.True(t, s.DragEnd("B"))
	assert.False(t, s.DragEnd("B"))
}

func TestAddPersonAndConnect(t *testing.T) {
	agg := newFakeAggregator()
	agg.serve("", []string{"A"})
	s := newTestSession(agg)

	_, _, err := s.AddPerson(context.Background(), "Dana", "")
	assert.ErrorIs(t, err, ErrReadOnly)

	mut := &fakeMutator{}
	s = newTestSession(agg, WithMutator(mut))

	p, refreshed, err := s.AddPerson(context.Background(), "Dana", "")
	require.NoError(t, err)
	assert.Equal(t, "Dana", p.Name)
	require.NoError(t, wait(t, refreshed))

	c, refreshed, err := s.Connect(context.Background(), "A", "Dana", 0.5, "friend")
	require.NoError(t, err)
	assert.Equal(t, 0.5, c.Strength)
	require.NoError(t, wait(t, refreshed))
	assert.Equal(t, [][2]string{{"A", "Dana"}}, mut.stored())

	mut.err = models.ErrInvalidInput
	_, _, err = s.AddPerson(context.Background(), "", "")
	assert.ErrorIs(t, err, models.ErrInvalidInput)
}

func TestClose_CancelsInFlight(t *testing.T) {
	agg := newFakeAggregator()
	agg.serve("A", []string{"A"})
	release := agg.gate("A")
	defer close(release)
	s := newTestSession(agg)

	failedBefore := testutil.ToFloat64(rebuildsTotal.WithLabelValues(rebuildFailed))
	ch := s.Refocus(context.Background(), "A")
	s.Close()
	assert.ErrorIs(t, wait(t, ch), context.Canceled)
	assert.Nil(t, s.Advance().Graph)
	assert.Equal(t, failedBefore, testutil.ToFloat64(rebuildsTotal.WithLabelValues(rebuildFailed)),
		"a cancelled rebuild is not a failure")
}

func TestConnect_RefreshReadsAfterWrite(t *testing.T) {
	agg := newFakeAggregator()
	mut := &fakeMutator{}
	agg.graphs["A"] = func() *models.Graph { return graphOf("A", []string{"A", "B"}, mut.stored()...) }
	release := agg.gate("A")
	s := newTestSession(agg, WithMutator(mut))

	// A rebuild that has already read the store, before the connection exists.
	first := s.Refocus(context.Background(), "A")
	require.Eventually(t, func() bool { return agg.callCount("A") == 1 }, 2*time.Second, time.Millisecond)

	_, refreshed, err := s.Connect(context.Background(), "A", "B", 1, "")
	require.NoError(t, err)
	require.Eventually(t, func() bool { return agg.callCount("A") == 2 }, 2*time.Second, time.Millisecond,
		"the refresh issues its own read")
	close(release)

	assert.ErrorIs(t, wait(t, first), models.ErrSuperseded)
	require.NoError(t, wait(t, refreshed))

	frame := s.Advance()
	assert.Equal(t, 1, frame.LinkCount())
	assert.True(t, frame.Graph.Connected("A", "B"))
}

func TestRefresh_CoalescesWithinGeneration(t *testing.T) {
	agg := newFakeAggregator()
	agg.serve("A", []string{"A"})
	release := agg.gate("A")
	s := newTestSession(agg)

	first := s.Refocus(context.Background(), "A")
	require.Eventually(t, func() bool { return agg.callCount("A") == 1 }, 2*time.Second, time.Millisecond)
	second := s.Refresh(context.Background())
	close(release)

	assert.ErrorIs(t, wait(t, first), models.ErrSuperseded)
	require.NoError(t, wait(t, second))
	assert.Equal(t, 1, agg.callCount("A"))
}

func TestSetFocal_FailedRefocusDoesNotToggle(t *testing.T) {
	agg := newFakeAggregator()
	agg.serve("", []string{"A", "B"})
	s := newTestSession(agg)

	assert.ErrorIs(t, wait(t, s.SetFocal(context.Background(), "ghost")), models.ErrNotFound)
	assert.ErrorIs(t, wait(t, s.SetFocal(context.Background(), "ghost")), models.ErrNotFound,
		"the person never became focal, so choosing them again retries")
	assert.Equal(t, 2, agg.callCount("ghost"))
	assert.Zero(t, agg.callCount(""))

	require.NoError(t, wait(t, s.Refresh(context.Background())))
	assert.Equal(t, 1, agg.callCount(""), "refresh falls back to the graph actually shown")
}

// Package interaction implements the pointer state machine of the people view: node
// dragging, which pins a person outside simulation control, and the two-slot selection
// (a primary person and a relationship person) that drives the path highlight.
package interaction

import (
	"github.com/saulfrancisco-ruizacevedo/go-socialgraph/models"
)

// Pinner is the part of the layout simulation the machine drives while dragging.
type Pinner interface {
	Position(id string) (models.Position, bool)
	Pin(id string, x, y float64) bool
	Unpin(id string)
	// Reheat raises the simulation energy to its active level and holds it there.
	Reheat()
	// Cool lets the energy decay normally again.
	Cool()
}

// State is the drag state of the machine.
type State int

const (
	Idle State = iota
	Dragging
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Dragging:
		return "dragging"
	default:
		return "unknown"
	}
}

// Selection is the two-slot selection. Empty strings mean unset.
type Selection struct {
	Selected     string `json:"selected,omitempty"`
	Relationship string `json:"relationship,omitempty"`
}

// ClickPolicy decides how a click moves the selection.
type ClickPolicy int

const (
	// SelectionPairs treats clicks as building a pair: the first click picks the primary
	// person, the next click on someone else fills the relationship slot, clicking the
	// relationship person promotes it to primary, and clicking a third person while a
	// pair is shown starts a new pair from that person.
	SelectionPairs ClickPolicy = iota

	// SelectionFollowsClick resolves the relationship slot first and then always moves
	// the primary selection to the clicked person.
	SelectionFollowsClick
)

// Option configures a Machine.
type Option func(*Machine)

// WithClickPolicy selects the click policy. The default is SelectionPairs.
func WithClickPolicy(p ClickPolicy) Option {
	return func(m *Machine) { m.policy = p }
}

// Machine is the interaction state machine. It is owned by a single session and is not
// safe for concurrent use.
type Machine struct {
	pinner Pinner
	policy ClickPolicy
	graph  *models.Graph

	sel Selection
	// armed is set when the primary selection came from a click that leaves the
	// relationship slot open for the next distinct click.
	armed bool

	state    State
	dragging string
}

// NewMachine creates an idle machine with an empty selection.
func NewMachine(pinner Pinner, opts ...Option) *Machine {
	m := &Machine{pinner: pinner}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// SetGraph installs a rebuilt graph. Selected people missing from it are reset to unset,
// and a drag of a person who is gone ends.
func (m *Machine) SetGraph(g *models.Graph) {
	m.graph = g
	if !m.known(m.sel.Selected) {
		m.sel.Selected = ""
		m.armed = false
	}
	if !m.known(m.sel.Relationship) {
		m.sel.Relationship = ""
	}
	if m.sel.Relationship == m.sel.Selected {
		m.sel.Relationship = ""
	}
	if m.state == Dragging && !m.known(m.dragging) {
		m.state, m.dragging = Idle, ""
		m.pinner.Cool()
	}
}

// Selection returns the current selection.
func (m *Machine) Selection() Selection { return m.sel }

// State returns the drag state and the dragged person, if any.
func (m *Machine) State() (State, string) { return m.state, m.dragging }

// Click applies a click on person d and returns the new selection. Clicks on people
// outside the current graph are ignored.
func (m *Machine) Click(d string) Selection {
	if !m.known(d) {
		return m.sel
	}
	if m.policy == SelectionFollowsClick {
		m.clickFollow(d)
	} else {
		m.clickPairs(d)
	}
	return m.sel
}

func (m *Machine) clickPairs(d string) {
	switch {
	case d == m.sel.Selected:
		m.sel.Relationship = ""
		m.armed = true
	case d == m.sel.Relationship:
		m.sel = Selection{Selected: d}
		m.armed = false
	case m.sel.Selected == "" || !m.armed:
		m.sel = Selection{Selected: d}
		m.armed = true
	case m.sel.Relationship == "":
		m.sel.Relationship = d
	default:
		m.sel = Selection{Selected: d}
		m.armed = true
	}
}

func (m *Machine) clickFollow(d string) {
	switch {
	case d == m.sel.Selected, d == m.sel.Relationship:
		m.sel.Relationship = ""
	case m.sel.Relationship == "":
		m.sel.Relationship = d
	default:
		m.sel.Relationship = ""
	}
	m.sel.Selected = d
}

// Select makes id the primary selection and clears the relationship slot.
func (m *Machine) Select(id string) bool {
	if !m.known(id) {
		return false
	}
	m.sel = Selection{Selected: id}
	m.armed = true
	return true
}

// SetRelationship fills the relationship slot directly, as when a person is picked from
// the list of connected people. It is ignored for unknown people or the primary person.
func (m *Machine) SetRelationship(id string) bool {
	if !m.known(id) || id == m.sel.Selected || m.sel.Selected == "" {
		return false
	}
	m.sel.Relationship = id
	return true
}

// ClearRelationship empties the relationship slot and keeps the primary selection.
func (m *Machine) ClearRelationship() {
	m.sel.Relationship = ""
	m.armed = m.sel.Selected != ""
}

// ClearSelection empties both slots.
func (m *Machine) ClearSelection() {
	m.sel = Selection{}
	m.armed = false
}

// DragStart pins person id at its current simulated position and raises the simulation
// energy. It is a no-op for unknown people or while another drag is in progress.
func (m *Machine) DragStart(id string) bool {
	if m.state == Dragging || !m.known(id) {
		return false
	}
	pos, ok := m.pinner.Position(id)
	if !ok || !m.pinner.Pin(id, pos.X, pos.Y) {
		return false
	}
	m.state, m.dragging = Dragging, id
	m.pinner.Reheat()
	return true
}

// DragMove moves the pin of the dragged person to the pointer location.
func (m *Machine) DragMove(id string, x, y float64) bool {
	if m.state != Dragging || id != m.dragging {
		return false
	}
	return m.pinner.Pin(id, x, y)
}

// DragEnd releases the pin and lets the energy decay. Selection is unchanged.
func (m *Machine) DragEnd(id string) bool {
	if m.state != Dragging || id != m.dragging {
		return false
	}
	m.pinner.Unpin(id)
	m.pinner.Cool()
	m.state, m.dragging = Idle, ""
	return true
}

func (m *Machine) known(id string) bool {
	return id != "" && m.graph.Has(id)
}

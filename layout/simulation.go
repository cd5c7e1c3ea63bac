package layout

import (
	"math"
	"math/rand/v2"
	"sort"

	"github.com/saulfrancisco-ruizacevedo/go-socialgraph/models"
)

const (
	// initialRadius and initialAngle place new nodes on a phyllotaxis spiral so no two
	// start at the same point.
	initialRadius = 10.0
	// minDistance bounds the charge force near zero separation.
	minDistance = 1.0
	// fallbackStrength is the layout strength of a connection without a usable strength.
	fallbackStrength = 0.5
)

var initialAngle = math.Pi * (3 - math.Sqrt(5))

// body is the simulation state of one person, indexed by identity.
type body struct {
	id     string
	x, y   float64
	vx, vy float64

	pinned bool
	px, py float64
}

// spring is one connection between two bodies.
type spring struct {
	source, target int
	distance       float64
	stiffness      float64
	// bias is the share of the correction applied to the target.
	bias float64
}

// Simulation is a force-directed layout over one graph. It is not safe for concurrent
// use; the owner advances it one Step per frame.
type Simulation struct {
	cfg Config

	bodies  []*body
	index   map[string]int
	springs []spring

	alpha       float64
	alphaTarget float64
	rng         *rand.Rand
}

// New creates an empty simulation.
func New(cfg Config) *Simulation {
	cfg = cfg.withDefaults()
	return &Simulation{
		cfg:   cfg,
		index: make(map[string]int),
		rng:   rand.New(rand.NewPCG(cfg.Seed, cfg.Seed^0x9e3779b97f4a7c15)),
	}
}

// Config returns the active parameters.
func (s *Simulation) Config() Config { return s.cfg }

// SetGraph replaces the simulated graph. People present in the previous graph keep their
// last position; new people are placed around the center of the area. Pins of people
// that are gone are dropped. The simulation is reheated to alpha 1.
func (s *Simulation) SetGraph(g *models.Graph) {
	prev := make(map[string]*body, len(s.bodies))
	for _, b := range s.bodies {
		prev[b.id] = b
	}

	var nodes []*models.Person
	var links []*models.Connection
	if g != nil {
		nodes, links = g.Nodes, g.Links
	}

	s.bodies = make([]*body, 0, len(nodes))
	s.index = make(map[string]int, len(nodes))
	cx, cy := s.cfg.Width/2, s.cfg.Height/2
	for i, n := range nodes {
		if _, dup := s.index[n.ID]; dup {
			continue
		}
		b, ok := prev[n.ID]
		if ok {
			b.vx, b.vy = 0, 0
		} else {
			r := initialRadius * math.Sqrt(0.5+float64(i))
			a := float64(i) * initialAngle
			b = &body{
				id: n.ID,
				x:  cx + r*math.Cos(a) + s.jiggle(),
				y:  cy + r*math.Sin(a) + s.jiggle(),
			}
		}
		s.index[n.ID] = len(s.bodies)
		s.bodies = append(s.bodies, b)
	}

	s.springs = s.springs[:0]
	count := make([]int, len(s.bodies))
	for _, l := range links {
		si, ok1 := s.index[l.SourceID]
		ti, ok2 := s.index[l.TargetID]
		if !ok1 || !ok2 || si == ti {
			continue
		}
		strength := l.Strength
		if strength <= 0 || math.IsNaN(strength) {
			strength = fallbackStrength
		}
		s.springs = append(s.springs, spring{
			source:   si,
			target:   ti,
			distance: s.cfg.LinkDistance / strength,
		})
		count[si]++
		count[ti]++
	}
	for i := range s.springs {
		sp := &s.springs[i]
		cs, ct := count[sp.source], count[sp.target]
		sp.stiffness = 1 / float64(min(cs, ct))
		sp.bias = float64(cs) / float64(cs+ct)
	}

	s.alpha = 1
	for _, b := range s.bodies {
		s.clamp(b)
	}
}

// Len returns the number of simulated people.
func (s *Simulation) Len() int { return len(s.bodies) }

// Alpha returns the current energy of the simulation.
func (s *Simulation) Alpha() float64 { return s.alpha }

// Running reports whether a Step would still move anything: alpha has not decayed below
// AlphaMin, or an interaction holds the target above it.
func (s *Simulation) Running() bool {
	return s.alpha >= s.cfg.AlphaMin || s.alphaTarget >= s.cfg.AlphaMin
}

// Step advances the simulation by one tick and reports whether it is still running.
// Once cooled, Step is a no-op until Reheat or SetGraph.
func (s *Simulation) Step() bool {
	if !s.Running() {
		return false
	}
	s.alpha += (s.alphaTarget - s.alpha) * s.cfg.AlphaDecay

	s.applyLinks()
	s.applyCharge()
	s.applyCenter()
	s.applyCollision()

	keep := 1 - s.cfg.VelocityDecay
	for _, b := range s.bodies {
		if b.pinned {
			b.x, b.y = b.px, b.py
			b.vx, b.vy = 0, 0
		} else {
			b.vx *= keep
			b.vy *= keep
			b.x += b.vx
			b.y += b.vy
		}
		s.clamp(b)
	}
	stepsTotal.Inc()
	return s.Running()
}

// Reheat raises the energy to the active level and holds it there until Cool, so the
// layout keeps resettling while a person is dragged.
func (s *Simulation) Reheat() {
	s.alphaTarget = s.cfg.ActiveAlpha
	if s.alpha < s.cfg.ActiveAlpha {
		s.alpha = s.cfg.ActiveAlpha
	}
}

// Cool releases the active energy level; alpha decays normally from where it is.
func (s *Simulation) Cool() {
	s.alphaTarget = 0
}

// Pin fixes a person at (x, y), clamped to the area. Unknown identities are ignored and
// report false.
func (s *Simulation) Pin(id string, x, y float64) bool {
	b := s.body(id)
	if b == nil || math.IsNaN(x) || math.IsNaN(y) {
		return false
	}
	b.pinned = true
	b.px, b.py = s.clampX(x), s.clampY(y)
	b.x, b.y = b.px, b.py
	b.vx, b.vy = 0, 0
	return true
}

// Unpin returns a person to simulation control.
func (s *Simulation) Unpin(id string) {
	if b := s.body(id); b != nil {
		b.pinned = false
	}
}

// Pinned reports whether the person is pinned.
func (s *Simulation) Pinned(id string) bool {
	b := s.body(id)
	return b != nil && b.pinned
}

// Position returns the current position of a person.
func (s *Simulation) Position(id string) (models.Position, bool) {
	b := s.body(id)
	if b == nil {
		return models.Position{}, false
	}
	return models.Position{X: b.x, Y: b.y}, true
}

// Positions returns a copy of every position keyed by identity.
func (s *Simulation) Positions() map[string]models.Position {
	out := make(map[string]models.Position, len(s.bodies))
	for _, b := range s.bodies {
		out[b.id] = models.Position{X: b.x, Y: b.y}
	}
	return out
}

// IDs returns the simulated identities in sorted order.
func (s *Simulation) IDs() []string {
	ids := make([]string, 0, len(s.bodies))
	for _, b := range s.bodies {
		ids = append(ids, b.id)
	}
	sort.Strings(ids)
	return ids
}

// KineticEnergy returns half the sum of squared velocities of the unpinned bodies.
func (s *Simulation) KineticEnergy() float64 {
	var e float64
	for _, b := range s.bodies {
		if !b.pinned {
			e += b.vx*b.vx + b.vy*b.vy
		}
	}
	return e / 2
}

// Resize changes the drawing area and re-clamps every position.
func (s *Simulation) Resize(width, height float64) {
	if width <= 0 || height <= 0 {
		return
	}
	s.cfg.Width, s.cfg.Height = width, height
	for _, b := range s.bodies {
		if b.pinned {
			b.px, b.py = s.clampX(b.px), s.clampY(b.py)
		}
		s.clamp(b)
	}
}

func (s *Simulation) body(id string) *body {
	i, ok := s.index[id]
	if !ok {
		return nil
	}
	return s.bodies[i]
}

func (s *Simulation) clamp(b *body) {
	b.x, b.y = s.clampX(b.x), s.clampY(b.y)
}

func (s *Simulation) clampX(x float64) float64 {
	return clampRange(x, s.cfg.NodeRadius, s.cfg.Width-s.cfg.NodeRadius)
}

func (s *Simulation) clampY(y float64) float64 {
	return clampRange(y, s.cfg.NodeRadius, s.cfg.Height-s.cfg.NodeRadius)
}

// clampRange limits v to [lo, hi]; an empty range collapses to its midpoint.
func clampRange(v, lo, hi float64) float64 {
	if lo > hi {
		return (lo + hi) / 2
	}
	return math.Max(lo, math.Min(hi, v))
}

// jiggle returns a tiny non-zero random offset used to break exact coincidences.
func (s *Simulation) jiggle() float64 {
	if v := (s.rng.Float64() - 0.5) * 1e-6; v != 0 {
		return v
	}
	return 1e-7
}

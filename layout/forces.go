package layout

import "math"

// applyLinks pulls connected bodies toward their spring rest distance. The correction is
// split between the endpoints by degree so hubs move less than leaves.
func (s *Simulation) applyLinks() {
	for _, sp := range s.springs {
		src, tgt := s.bodies[sp.source], s.bodies[sp.target]
		x := tgt.x + tgt.vx - src.x - src.vx
		y := tgt.y + tgt.vy - src.y - src.vy
		if x == 0 {
			x = s.jiggle()
		}
		if y == 0 {
			y = s.jiggle()
		}
		l := math.Sqrt(x*x + y*y)
		l = (l - sp.distance) / l * s.alpha * sp.stiffness
		x *= l
		y *= l
		tgt.vx -= x * sp.bias
		tgt.vy -= y * sp.bias
		src.vx += x * (1 - sp.bias)
		src.vy += y * (1 - sp.bias)
	}
}

// applyCharge applies pairwise repulsion with strength Charge * alpha / d^2 along the
// separation vector. Pinned bodies still push others.
func (s *Simulation) applyCharge() {
	if s.cfg.Charge == 0 {
		return
	}
	minD2 := minDistance * minDistance
	for i, a := range s.bodies {
		for _, b := range s.bodies[i+1:] {
			x := b.x - a.x
			y := b.y - a.y
			if x == 0 {
				x = s.jiggle()
			}
			if y == 0 {
				y = s.jiggle()
			}
			l := x*x + y*y
			if l < minD2 {
				l = math.Sqrt(minD2 * l)
			}
			w := s.cfg.Charge * s.alpha / l
			a.vx += x * w
			a.vy += y * w
			b.vx -= x * w
			b.vy -= y * w
		}
	}
}

// applyCenter translates every body so the centroid sits on the center of the area.
func (s *Simulation) applyCenter() {
	n := len(s.bodies)
	if n == 0 {
		return
	}
	var sx, sy float64
	for _, b := range s.bodies {
		sx += b.x
		sy += b.y
	}
	dx := sx/float64(n) - s.cfg.Width/2
	dy := sy/float64(n) - s.cfg.Height/2
	for _, b := range s.bodies {
		b.x -= dx
		b.y -= dy
	}
}

// applyCollision separates bodies whose collision circles overlap, using positions
// predicted from the current velocities.
func (s *Simulation) applyCollision() {
	r := s.cfg.CollisionRadius
	if r <= 0 {
		return
	}
	reach := 2 * r
	for i, a := range s.bodies {
		ax, ay := a.x+a.vx, a.y+a.vy
		for _, b := range s.bodies[i+1:] {
			x := ax - b.x - b.vx
			y := ay - b.y - b.vy
			l := x*x + y*y
			if l >= reach*reach {
				continue
			}
			if x == 0 {
				x = s.jiggle()
				l += x * x
			}
			if y == 0 {
				y = s.jiggle()
				l += y * y
			}
			l = math.Sqrt(l)
			l = (reach - l) / l
			x *= l
			y *= l
			// Equal radii split the correction evenly.
			a.vx += x / 2
			a.vy += y / 2
			b.vx -= x / 2
			b.vy -= y / 2
		}
	}
}

// Package layout implements the force-directed layout simulation that assigns and
// continuously updates a 2D position for every person in an aggregated graph.
package layout

import "math"

// Config holds the physical parameters of the simulation.
type Config struct {
	// Width and Height are the size of the drawing area.
	Width  float64 `yaml:"width" toml:"width" validate:"gt=0"`
	Height float64 `yaml:"height" toml:"height" validate:"gt=0"`

	// NodeRadius is the rendered radius of a person; positions are clamped so the whole
	// circle stays inside the drawing area.
	NodeRadius float64 `yaml:"node_radius" toml:"node_radius" validate:"gte=0"`

	// CollisionRadius is the radius used for overlap separation.
	CollisionRadius float64 `yaml:"collision_radius" toml:"collision_radius" validate:"gte=0"`

	// LinkDistance is the spring rest length of a connection with strength 1.
	LinkDistance float64 `yaml:"link_distance" toml:"link_distance" validate:"gt=0"`

	// Charge is the pairwise repulsion coefficient. Negative values repel.
	Charge float64 `yaml:"charge" toml:"charge" validate:"lte=0"`

	// VelocityDecay is the fraction of velocity removed every step.
	VelocityDecay float64 `yaml:"velocity_decay" toml:"velocity_decay" validate:"gt=0,lte=1"`

	AlphaMin    float64 `yaml:"alpha_min" toml:"alpha_min" validate:"gt=0,lt=1"`
	AlphaDecay  float64 `yaml:"alpha_decay" toml:"alpha_decay" validate:"gt=0,lt=1"`
	ActiveAlpha float64 `yaml:"active_alpha" toml:"active_alpha" validate:"gt=0,lte=1"`

	// Seed drives initial placement jitter.
	Seed uint64 `yaml:"seed" toml:"seed"`
}

// DefaultConfig returns the parameters of the interactive people view: a 960x640 area,
// 40px nodes, 60px collision circles, 100px springs and a -350 charge. The simulation
// cools from alpha 1 to AlphaMin in 300 steps.
func DefaultConfig() Config {
	const alphaMin = 0.001
	return Config{
		Width:           960,
		Height:          640,
		NodeRadius:      40,
		CollisionRadius: 60,
		LinkDistance:    100,
		Charge:          -350,
		VelocityDecay:   0.4,
		AlphaMin:        alphaMin,
		AlphaDecay:      DecayFor(alphaMin, 300),
		ActiveAlpha:     0.3,
		Seed:            1,
	}
}

// DecayFor returns the per-step decay that takes alpha from 1 to alphaMin in steps.
func DecayFor(alphaMin float64, steps int) float64 {
	return 1 - math.Pow(alphaMin, 1/float64(steps))
}

// withDefaults fills unusable fields from DefaultConfig. A zero Config means the defaults.
func (c Config) withDefaults() Config {
	d := DefaultConfig()
	if c == (Config{}) {
		return d
	}
	if c.Width <= 0 {
		c.Width = d.Width
	}
	if c.Height <= 0 {
		c.Height = d.Height
	}
	if c.NodeRadius < 0 {
		c.NodeRadius = d.NodeRadius
	}
	if c.LinkDistance <= 0 {
		c.LinkDistance = d.LinkDistance
	}
	if c.VelocityDecay <= 0 || c.VelocityDecay > 1 {
		c.VelocityDecay = d.VelocityDecay
	}
	if c.AlphaMin <= 0 || c.AlphaMin >= 1 {
		c.AlphaMin = d.AlphaMin
	}
	if c.AlphaDecay <= 0 || c.AlphaDecay >= 1 {
		c.AlphaDecay = DecayFor(c.AlphaMin, 300)
	}
	if c.ActiveAlpha <= 0 {
		c.ActiveAlpha = d.ActiveAlpha
	}
	return c
}

package session

import (
	"fmt"

	"github.com/saulfrancisco-ruizacevedo/go-socialgraph/interaction"
	"github.com/saulfrancisco-ruizacevedo/go-socialgraph/models"
)

// Frame is the snapshot handed to the renderer after every simulation step.
type Frame struct {
	Number  uint64 `json:"number"`
	Session string `json:"session"`
	// Focal is the person the graph is centered on, or "" for the unfiltered graph.
	Focal string        `json:"focal,omitempty"`
	Graph *models.Graph `json:"graph"`

	Positions map[string]models.Position `json:"positions"`
	Alpha     float64                    `json:"alpha"`
	Running   bool                       `json:"running"`

	Selection interaction.Selection  `json:"selection"`
	Highlight *interaction.Highlight `json:"highlight,omitempty"`
}

// NodeCount returns the number of people in the frame.
func (f Frame) NodeCount() int {
	if f.Graph == nil {
		return 0
	}
	return len(f.Graph.Nodes)
}

// LinkCount returns the number of connections in the frame.
func (f Frame) LinkCount() int {
	if f.Graph == nil {
		return 0
	}
	return len(f.Graph.Links)
}

// Caption returns the header line of the view, e.g. "5 people, 6 connections" or
// "showing path: Alice -> Carol (indirect)".
func (f Frame) Caption() string {
	if f.Highlight != nil {
		kind := "direct"
		if !f.Highlight.Direct {
			kind = "indirect"
		}
		return fmt.Sprintf("showing path: %s -> %s (%s)", f.name(f.Highlight.From), f.name(f.Highlight.To), kind)
	}
	return fmt.Sprintf("%d people, %d connections", f.NodeCount(), f.LinkCount())
}

func (f Frame) name(id string) string {
	if p, ok := f.Graph.Person(id); ok && p.Name != "" {
		return p.Name
	}
	return id
}

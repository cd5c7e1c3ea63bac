package interaction

import (
	"github.com/saulfrancisco-ruizacevedo/go-socialgraph/models"
)

// Highlight is the overlay drawn between the primary and relationship people. It is
// derived from state on every frame and never stored.
type Highlight struct {
	From    string          `json:"from"`
	To      string          `json:"to"`
	FromPos models.Position `json:"fromPos"`
	ToPos   models.Position `json:"toPos"`
	// Direct reports whether an aggregated connection joins the two people.
	Direct bool `json:"isDirect"`
}

// PathHighlight derives the highlight for sel. It reports false unless both slots are
// set, distinct, and positioned.
func PathHighlight(g *models.Graph, sel Selection, positions map[string]models.Position) (Highlight, bool) {
	if sel.Selected == "" || sel.Relationship == "" || sel.Selected == sel.Relationship {
		return Highlight{}, false
	}
	from, ok := positions[sel.Selected]
	if !ok {
		return Highlight{}, false
	}
	to, ok := positions[sel.Relationship]
	if !ok {
		return Highlight{}, false
	}
	return Highlight{
		From:    sel.Selected,
		To:      sel.Relationship,
		FromPos: from,
		ToPos:   to,
		Direct:  g.Connected(sel.Selected, sel.Relationship),
	}, true
}

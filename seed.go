package socialgraph

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/saulfrancisco-ruizacevedo/gocypher"

	"github.com/saulfrancisco-ruizacevedo/go-socialgraph/models"
)

// SeedConnection is one relationship of the sample network.
type SeedConnection struct {
	Source   string
	Target   string
	Strength float64
}

// SamplePeople is the five-person sample network loaded by Seed.
var SamplePeople = []models.Person{
	{Name: "Alice", Bio: "Developer & Designer"},
	{Name: "Bob", Bio: "Product Manager"},
	{Name: "Carol", Bio: "Data Scientist"},
	{Name: "David", Bio: "DevOps Engineer"},
	{Name: "Eve", Bio: "UX Researcher"},
}

// SampleConnections are the relationships between SamplePeople.
var SampleConnections = []SeedConnection{
	{Source: "Alice", Target: "Bob", Strength: 1},
	{Source: "Alice", Target: "Carol", Strength: 1},
	{Source: "Bob", Target: "Carol", Strength: 0.8},
	{Source: "Bob", Target: "David", Strength: 0.6},
	{Source: "Carol", Target: "Eve", Strength: 1},
	{Source: "Alice", Target: "Eve", Strength: 0.7},
}

// Seed clears the database and loads the sample network. It is destructive: every node
// in the target database is removed first.
func (pm *PersistenceManager) Seed(ctx context.Context) ([]*models.Person, error) {
	query, params, err := gocypher.NewQueryBuilder().
		Match(gocypher.N("n", "")).
		DetachDelete("n").
		Build()
	if err != nil {
		return nil, err
	}
	if _, err := pm.runner.Run(ctx, query, params); err != nil {
		return nil, fmt.Errorf("clearing database: %w", err)
	}

	people := make([]*models.Person, 0, len(SamplePeople))
	byName := make(map[string]*models.Person, len(SamplePeople))
	for _, p := range SamplePeople {
		saved, err := pm.CreatePerson(ctx, p.Name, p.Bio)
		if err != nil {
			return nil, err
		}
		people = append(people, saved)
		byName[saved.Name] = saved
	}

	for _, c := range SampleConnections {
		props := map[string]interface{}{"strength": c.Strength}
		if err := pm.CreateRelation(ctx, byName[c.Source], byName[c.Target], ConnectionType, props); err != nil {
			return nil, fmt.Errorf("connecting %s to %s: %w", c.Source, c.Target, err)
		}
	}

	pm.logger.Info("sample network seeded",
		slog.Int("people", len(people)),
		slog.Int("connections", len(SampleConnections)),
	)
	return people, nil
}

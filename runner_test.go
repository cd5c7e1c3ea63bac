package socialgraph

import (
	"context"
	"sync"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
)

type runCall struct {
	query  string
	params map[string]interface{}
}

// fakeRunner is a DBRunner that records every query and answers from a queue of
// scripted results. When the queue is empty it answers with an empty result.
type fakeRunner struct {
	mu      sync.Mutex
	calls   []runCall
	results []*neo4j.EagerResult
	err     error
}

func (f *fakeRunner) Run(_ context.Context, query string, params map[string]interface{}) (*neo4j.EagerResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, runCall{query: query, params: params})
	if f.err != nil {
		return nil, f.err
	}
	if len(f.results) == 0 {
		return &neo4j.EagerResult{}, nil
	}
	res := f.results[0]
	f.results = f.results[1:]
	return res, nil
}

func (f *fakeRunner) queue(results ...*neo4j.EagerResult) *fakeRunner {
	f.results = append(f.results, results...)
	return f
}

func (f *fakeRunner) last() runCall {
	return f.calls[len(f.calls)-1]
}

func personNode(id, name string) neo4j.Node {
	return neo4j.Node{
		ElementId: id,
		Labels:    []string{PersonLabel},
		Props:     map[string]any{"name": name, "bio": name + " bio"},
	}
}

func connectedTo(id, start, end string, strength any) neo4j.Relationship {
	props := map[string]any{}
	if strength != nil {
		props["strength"] = strength
	}
	return neo4j.Relationship{
		ElementId:      id,
		StartElementId: start,
		EndElementId:   end,
		Type:           ConnectionType,
		Props:          props,
	}
}

// eager builds a result whose records all share keys.
func eager(keys []string, rows ...[]any) *neo4j.EagerResult {
	res := &neo4j.EagerResult{Keys: keys}
	for _, row := range rows {
		res.Records = append(res.Records, &neo4j.Record{Keys: keys, Values: row})
	}
	return res
}

func neo4jRel(id, start, end string, strength float64, kind string) neo4j.Relationship {
	r := connectedTo(id, start, end, strength)
	r.Props["type"] = kind
	return r
}

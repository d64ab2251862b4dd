package aggregate

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/leadgen-cli/internal/model"
	"github.com/sells-group/leadgen-cli/internal/planner"
	"github.com/sells-group/leadgen-cli/internal/provider"
)

// fakeProvider returns canned leads per full query, or an error.
type fakeProvider struct {
	name    string
	results map[string][]model.Lead
	err     error

	mu    sync.Mutex
	calls []string
}

func (f *fakeProvider) Name() string { return f.name }

func (f *fakeProvider) Search(ctx context.Context, keyword, location string, limit int) ([]model.Lead, error) {
	f.mu.Lock()
	f.calls = append(f.calls, keyword+" in "+location)
	f.mu.Unlock()

	if f.err != nil {
		return nil, f.err
	}
	leads := f.results[keyword+" in "+location]
	if len(leads) > limit {
		leads = leads[:limit]
	}
	out := make([]model.Lead, len(leads))
	copy(out, leads)
	return out, nil
}

type fakeRegistry struct {
	providers []provider.Provider
}

func (r *fakeRegistry) Select(names []string) []provider.Provider {
	if len(names) == 0 {
		return r.providers
	}
	var out []provider.Provider
	for _, p := range r.providers {
		for _, want := range names {
			if p.Name() == want {
				out = append(out, p)
			}
		}
	}
	return out
}

func leadsNamed(prefix string, n int) []model.Lead {
	out := make([]model.Lead, n)
	for i := range out {
		out[i] = model.Lead{
			Name:    fmt.Sprintf("%s-%d", prefix, i),
			Address: fmt.Sprintf("%d %s St", i, prefix),
		}
	}
	return out
}

func TestRun_PerQueryLimitNotAggregateLimit(t *testing.T) {
	p := &fakeProvider{
		name: "src",
		results: map[string][]model.Lead{
			"plumbers in Austin": leadsNamed("plumber", 5),
			"bakeries in Austin": leadsNamed("bakery", 5),
		},
	}
	agg := New(&fakeRegistry{providers: []provider.Provider{p}})

	queries := []planner.Query{
		{Keyword: "plumbers", Location: "Austin"},
		{Keyword: "bakeries", Location: "Austin"},
	}
	result, err := agg.Run(context.Background(), queries, nil, 5, nil)
	require.NoError(t, err)

	// Each query is capped at 5, the aggregate is not.
	assert.Len(t, result.Leads, 10)
	assert.Empty(t, result.Failures)
}

func TestRun_CapsPerQueryResults(t *testing.T) {
	p := &fakeProvider{
		name: "src",
		results: map[string][]model.Lead{
			"plumbers in Austin": leadsNamed("plumber", 20),
		},
	}
	agg := New(&fakeRegistry{providers: []provider.Provider{p}})

	result, err := agg.Run(context.Background(),
		[]planner.Query{{Keyword: "plumbers", Location: "Austin"}}, nil, 3, nil)
	require.NoError(t, err)
	assert.Len(t, result.Leads, 3)
}

func TestRun_DedupAcrossProvidersKeepsFirstSeen(t *testing.T) {
	shared := model.Lead{Name: "Austin Plumbing Co", Address: "500 Congress Ave"}
	first := &fakeProvider{
		name: "alpha",
		results: map[string][]model.Lead{
			"plumbers in Austin": {shared, {Name: "Alpha Only", Address: "1 A St"}},
		},
	}
	second := &fakeProvider{
		name: "beta",
		results: map[string][]model.Lead{
			"plumbers in Austin": {shared, {Name: "Beta Only", Address: "2 B St"}},
		},
	}
	agg := New(&fakeRegistry{providers: []provider.Provider{first, second}})

	result, err := agg.Run(context.Background(),
		[]planner.Query{{Keyword: "plumbers", Location: "Austin"}}, nil, 10, nil)
	require.NoError(t, err)
	require.Len(t, result.Leads, 3)

	// The shared lead is attributed to the first provider in registration
	// order, regardless of which goroutine finished first.
	assert.Equal(t, "Austin Plumbing Co", result.Leads[0].Name)
	assert.Equal(t, "alpha", result.Leads[0].Source)
}

func TestRun_ProvenanceAnnotation(t *testing.T) {
	p := &fakeProvider{
		name: "src",
		results: map[string][]model.Lead{
			"dentists in Miami": leadsNamed("dentist", 1),
		},
	}
	agg := New(&fakeRegistry{providers: []provider.Provider{p}})

	result, err := agg.Run(context.Background(),
		[]planner.Query{{Keyword: "dentists", Location: "Miami"}}, nil, 5, nil)
	require.NoError(t, err)
	require.Len(t, result.Leads, 1)

	lead := result.Leads[0]
	assert.Equal(t, "src", lead.Source)
	assert.Equal(t, "dentists", lead.SearchKeyword)
	assert.Equal(t, "Miami", lead.SearchLocation)
	assert.Equal(t, "dentists in Miami", lead.FullQuery)
}

func TestRun_PartialFailureIsSoft(t *testing.T) {
	healthy := &fakeProvider{
		name: "healthy",
		results: map[string][]model.Lead{
			"plumbers in Austin": leadsNamed("plumber", 2),
		},
	}
	broken := &fakeProvider{name: "broken", err: errors.New("upstream down")}
	agg := New(&fakeRegistry{providers: []provider.Provider{healthy, broken}})

	result, err := agg.Run(context.Background(),
		[]planner.Query{{Keyword: "plumbers", Location: "Austin"}}, nil, 5, nil)
	require.NoError(t, err)

	assert.Len(t, result.Leads, 2)
	require.Len(t, result.Failures, 1)
	assert.Equal(t, "broken", result.Failures[0].Provider)
	assert.Equal(t, "plumbers in Austin", result.Failures[0].Query)
}

func TestRun_AllPairsFailed(t *testing.T) {
	a := &fakeProvider{name: "a", err: errors.New("down")}
	b := &fakeProvider{name: "b", err: errors.New("also down")}
	agg := New(&fakeRegistry{providers: []provider.Provider{a, b}})

	queries := []planner.Query{
		{Keyword: "plumbers", Location: "Austin"},
		{Keyword: "bakeries", Location: "Austin"},
	}
	_, err := agg.Run(context.Background(), queries, nil, 5, nil)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrAllProvidersFailed))
}

func TestRun_NoResultsIsNotAFailure(t *testing.T) {
	empty := &fakeProvider{name: "empty", err: provider.ErrNoResults}
	broken := &fakeProvider{name: "broken", err: errors.New("down")}
	agg := New(&fakeRegistry{providers: []provider.Provider{empty, broken}})

	result, err := agg.Run(context.Background(),
		[]planner.Query{{Keyword: "plumbers", Location: "Austin"}}, nil, 5, nil)

	// One pair produced an empty-but-successful batch, so the run is not a
	// total failure.
	require.NoError(t, err)
	assert.Empty(t, result.Leads)
	assert.Len(t, result.Failures, 1)
}

func TestRun_NoProvidersConfigured(t *testing.T) {
	agg := New(&fakeRegistry{})
	_, err := agg.Run(context.Background(),
		[]planner.Query{{Keyword: "plumbers", Location: "Austin"}}, nil, 5, nil)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrAllProvidersFailed))
}

func TestRun_BatchProgressCallback(t *testing.T) {
	p1 := &fakeProvider{name: "a", results: map[string][]model.Lead{}}
	p2 := &fakeProvider{name: "b", results: map[string][]model.Lead{}}
	agg := New(&fakeRegistry{providers: []provider.Provider{p1, p2}})

	var (
		mu    sync.Mutex
		calls []int
	)
	queries := []planner.Query{
		{Keyword: "plumbers", Location: "Austin"},
		{Keyword: "bakeries", Location: "Austin"},
	}
	_, err := agg.Run(context.Background(), queries, nil, 5, func(done, total int) {
		mu.Lock()
		defer mu.Unlock()
		assert.Equal(t, 4, total)
		calls = append(calls, done)
	})
	require.NoError(t, err)

	require.Len(t, calls, 4)
	assert.Contains(t, calls, 4)
}

func TestRun_ProviderAllowList(t *testing.T) {
	wanted := &fakeProvider{
		name: "wanted",
		results: map[string][]model.Lead{
			"plumbers in Austin": leadsNamed("plumber", 1),
		},
	}
	excluded := &fakeProvider{name: "excluded", err: errors.New("should not be called")}
	agg := New(&fakeRegistry{providers: []provider.Provider{wanted, excluded}})

	result, err := agg.Run(context.Background(),
		[]planner.Query{{Keyword: "plumbers", Location: "Austin"}},
		[]string{"wanted"}, 5, nil)
	require.NoError(t, err)

	assert.Len(t, result.Leads, 1)
	assert.Empty(t, excluded.calls)
}

func TestDedup_Idempotent(t *testing.T) {
	leads := []model.Lead{
		{Name: "Cafe Brazil", Address: "123 Main St"},
		{Name: "cafe brazil", Address: "123 main st"},
		{Name: "Other Place", Address: "456 Oak Ave"},
	}

	once := Dedup(leads)
	require.Len(t, once, 2)

	twice := Dedup(once)
	assert.Equal(t, once, twice)
}

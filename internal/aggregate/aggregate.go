// Package aggregate fans planned queries out across every configured
// provider, merges the results, and deduplicates them while preserving
// first-seen order.
package aggregate

import (
	"context"
	"errors"
	"sync"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/sells-group/leadgen-cli/internal/model"
	"github.com/sells-group/leadgen-cli/internal/planner"
	"github.com/sells-group/leadgen-cli/internal/provider"
)

// ErrAllProvidersFailed is returned only when every (query, provider) pair
// failed. Any partial success degrades to soft failures instead.
var ErrAllProvidersFailed = errors.New("aggregate: all providers failed")

// SoftFailure records one non-fatal (query, provider) failure for
// observability.
type SoftFailure struct {
	Provider string `json:"provider"`
	Query    string `json:"query"`
	Err      string `json:"error"`
}

// Result is the merged outcome of one aggregation run.
type Result struct {
	Leads    []model.Lead  `json:"leads"`
	Failures []SoftFailure `json:"failures,omitempty"`
}

// BatchFunc is invoked after each completed (query, provider) batch, with
// the number of pairs finished so far out of the total. The orchestrator
// uses it to advance job progress.
type BatchFunc func(done, total int)

// Aggregator runs planned queries against a provider set.
type Aggregator struct {
	registry Registry
}

// Registry is the subset of the provider registry the aggregator needs.
type Registry interface {
	Select(names []string) []provider.Provider
}

// New creates an aggregator over the given provider registry.
func New(reg Registry) *Aggregator {
	return &Aggregator{registry: reg}
}

type batchResult struct {
	order int
	leads []model.Lead
}

// Run executes every (query × provider) pair concurrently. Per-query results
// are capped at limit; the aggregate never is, so K queries may legitimately
// produce up to K×limit leads. Fan-out is bounded by the provider count:
// providers are few, and each one already paces itself.
func (a *Aggregator) Run(ctx context.Context, queries []planner.Query, providerNames []string, limit int, onBatch BatchFunc) (*Result, error) {
	log := zap.L().With(zap.String("component", "aggregate"))

	providers := a.registry.Select(providerNames)
	if len(providers) == 0 {
		return nil, eris.Wrap(ErrAllProvidersFailed, "aggregate: no providers configured")
	}

	total := len(queries) * len(providers)
	batches := make([]batchResult, 0, total)

	var (
		mu       sync.Mutex
		failures []SoftFailure
		done     int
	)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(len(providers))

	// Batch order is provider-major within a query so that, after sorting,
	// dedup keeps the first provider's record for a query before falling
	// through to later providers and later queries.
	for qi, q := range queries {
		for pi, p := range providers {
			order := qi*len(providers) + pi
			g.Go(func() error {
				leads, err := p.Search(gctx, q.Keyword, q.Location, limit)

				mu.Lock()
				defer mu.Unlock()
				done++
				finished := done

				if err != nil && !errors.Is(err, provider.ErrNoResults) {
					log.Warn("provider search failed",
						zap.String("provider", p.Name()),
						zap.String("query", q.Full()),
						zap.Error(err),
					)
					failures = append(failures, SoftFailure{
						Provider: p.Name(),
						Query:    q.Full(),
						Err:      err.Error(),
					})
				} else {
					if len(leads) > limit {
						leads = leads[:limit]
					}
					for i := range leads {
						leads[i].Source = p.Name()
						leads[i].SearchKeyword = q.Keyword
						leads[i].SearchLocation = q.Location
						leads[i].FullQuery = q.Full()
					}
					batches = append(batches, batchResult{order: order, leads: leads})
				}

				if onBatch != nil {
					onBatch(finished, total)
				}
				return nil
			})
		}
	}

	if err := g.Wait(); err != nil {
		return nil, eris.Wrap(err, "aggregate: fan-out")
	}

	if len(batches) == 0 && len(failures) == total {
		return nil, eris.Wrapf(ErrAllProvidersFailed, "aggregate: %d/%d pairs failed", len(failures), total)
	}

	merged := mergeOrdered(batches)
	log.Info("aggregation complete",
		zap.Int("queries", len(queries)),
		zap.Int("providers", len(providers)),
		zap.Int("leads", len(merged)),
		zap.Int("soft_failures", len(failures)),
	)

	return &Result{Leads: merged, Failures: failures}, nil
}

// mergeOrdered flattens batches in submission order and applies first-seen
// dedup on the lead identity key.
func mergeOrdered(batches []batchResult) []model.Lead {
	// Insertion sort by order; batch counts are small (queries × providers).
	for i := 1; i < len(batches); i++ {
		for j := i; j > 0 && batches[j-1].order > batches[j].order; j-- {
			batches[j-1], batches[j] = batches[j], batches[j-1]
		}
	}

	var flat []model.Lead
	for _, b := range batches {
		flat = append(flat, b.leads...)
	}
	return Dedup(flat)
}

// Dedup retains the first-seen lead for each identity key, preserving order.
// It is idempotent: running it on its own output returns an equal sequence.
func Dedup(leads []model.Lead) []model.Lead {
	seen := make(map[string]struct{}, len(leads))
	out := make([]model.Lead, 0, len(leads))
	for _, l := range leads {
		key := l.IdentityKey()
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, l)
	}
	return out
}

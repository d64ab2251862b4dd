// Package planner expands a generation request into fully-qualified search
// queries. Upstream callers have a history of regressing to bare keywords
// ("restaurants" instead of "restaurants in Austin"), which silently collapses
// a search to an unlocated, near-empty result set. The planner is the single
// place that repair happens.
package planner

import (
	"errors"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/sells-group/leadgen-cli/internal/model"
)

// ErrInvalidQuery is returned when a query's location cannot be resolved.
// Surfaced to the caller at submission time; no job is created.
var ErrInvalidQuery = errors.New("planner: query has no resolvable location")

// Query is one fully-qualified unit of search work.
type Query struct {
	Keyword  string
	Location string
}

// Full returns the composed "<keyword> in <location>" string.
func (q Query) Full() string {
	if q.Location == "" {
		return q.Keyword
	}
	return q.Keyword + " in " + q.Location
}

// Parse splits a raw query into keyword and location. The canonical form is
// "<keyword> in <location>"; for queries without the " in " separator it falls
// back to treating the trailing words as a location, mirroring how operators
// actually type queries ("dentists miami fl").
func Parse(raw string) Query {
	raw = strings.TrimSpace(raw)
	if kw, loc, ok := strings.Cut(raw, " in "); ok {
		return Query{Keyword: strings.TrimSpace(kw), Location: strings.TrimSpace(loc)}
	}

	words := strings.Fields(raw)
	switch {
	case len(words) >= 3:
		return Query{
			Keyword:  strings.Join(words[:len(words)-2], " "),
			Location: strings.Join(words[len(words)-2:], " "),
		}
	case len(words) == 2:
		return Query{Keyword: words[0], Location: words[1]}
	default:
		return Query{Keyword: raw}
	}
}

// hasExplicitLocation reports whether the raw query carries the canonical
// "<keyword> in <location>" pattern. Heuristic splits are not treated as
// explicit; only the separator form is trusted to pass through unchanged.
func hasExplicitLocation(raw string) bool {
	_, loc, ok := strings.Cut(raw, " in ")
	return ok && strings.TrimSpace(loc) != ""
}

// Plan produces the ordered, fully-qualified query sequence for a request.
// With no individual queries, the primary query is the sole unit of work.
// Each individual query missing location context inherits the location
// extracted from the primary query; if the primary has none either, the plan
// fails with ErrInvalidQuery.
func Plan(req model.GenerationRequest) ([]Query, error) {
	primary := Parse(req.Query)

	if len(req.Queries) == 0 {
		if req.Query == "" {
			return nil, eris.Wrap(ErrInvalidQuery, "planner: empty request")
		}
		return []Query{primary}, nil
	}

	planned := make([]Query, 0, len(req.Queries))
	for _, raw := range req.Queries {
		if hasExplicitLocation(raw) {
			planned = append(planned, Parse(raw))
			continue
		}
		if primary.Location == "" {
			return nil, eris.Wrapf(ErrInvalidQuery, "planner: %q has no location and the primary query %q provides none", raw, req.Query)
		}
		planned = append(planned, Query{
			Keyword:  strings.TrimSpace(raw),
			Location: primary.Location,
		})
	}
	return planned, nil
}

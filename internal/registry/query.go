package registry

import (
	"context"
	"sort"

	"github.com/vmelnikov/statadmin/model"
)

// StatusWildcard in a filter matches any status.
const StatusWildcard model.Status = "*"

// Filter selects counters by name pattern, status, type and datapoints.
// An empty Type and a nil Datapoints slice mean "unbound".
type Filter struct {
	Pattern    []string     `json:"pattern"`
	Status     model.Status `json:"status"`
	Type       string       `json:"type,omitempty"`
	Datapoints []string     `json:"datapoints,omitempty"`
}

// Match is one query result. Which fields are populated depends on which
// filters were bound: Type only when the type or datapoint filter is bound,
// Datapoints only when the datapoint filter is bound.
type Match struct {
	Name       string       `json:"name"`
	Status     model.Status `json:"status"`
	Type       string       `json:"type,omitempty"`
	Datapoints []string     `json:"datapoints,omitempty"`
}

// projector shapes one counter into a Match. Keyed by
// [datapointsBound, typeBound] so the four documented output shapes cannot
// drift apart.
var projectors = map[[2]bool]func(c *model.Counter, resolved []string) Match{
	{false, false}: func(c *model.Counter, _ []string) Match {
		return Match{Name: model.JoinName(c.Name), Status: c.Status}
	},
	{false, true}: func(c *model.Counter, _ []string) Match {
		return Match{Name: model.JoinName(c.Name), Status: c.Status, Type: c.Type}
	},
	{true, false}: func(c *model.Counter, resolved []string) Match {
		return Match{Name: model.JoinName(c.Name), Status: c.Status, Type: c.Type, Datapoints: resolved}
	},
	{true, true}: func(c *model.Counter, resolved []string) Match {
		return Match{Name: model.JoinName(c.Name), Status: c.Status, Type: c.Type, Datapoints: resolved}
	},
}

// Query folds once over this node's counter records and applies the
// predicate/projector pair selected by which filters are bound.
func (r *Registry) Query(ctx context.Context, f Filter) ([]Match, error) {
	dpsBound := len(f.Datapoints) > 0
	typeBound := f.Type != "" && f.Type != "_" && f.Type != "*"
	project := projectors[[2]bool{dpsBound, typeBound}]

	var res []Match
	err := r.foldCounters(ctx, f.Pattern, func(c *model.Counter) error {
		if !statusMatches(f.Status, c.Status) {
			return nil
		}
		if typeBound && c.Type != f.Type {
			return nil
		}
		var resolved []string
		if dpsBound {
			resolved = resolveDatapoints(c, f.Datapoints)
			if len(resolved) == 0 {
				return nil
			}
		}
		res = append(res, project(c, resolved))
		return nil
	})
	if err != nil {
		return nil, err
	}

	sort.Slice(res, func(i, j int) bool { return res[i].Name < res[j].Name })
	return res, nil
}

func statusMatches(want, have model.Status) bool {
	return want == "" || want == StatusWildcard || want == have
}

// resolveDatapoints returns the alias references for the requested datapoints
// the counter actually exports, in request order.
func resolveDatapoints(c *model.Counter, datapoints []string) []string {
	var resolved []string
	for _, dp := range datapoints {
		if ref, ok := c.Aliases[dp]; ok {
			resolved = append(resolved, ref)
		}
	}
	return resolved
}

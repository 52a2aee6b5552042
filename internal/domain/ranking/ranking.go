// Package ranking turns findings into a short, ordered list of
// recommendations tailored to a player's role and elo band.
package ranking

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/riftcoach/insight/internal/domain/model"
	"github.com/riftcoach/insight/internal/domain/types"
)

// Default ranking configuration constants.
const (
	DefaultMaxRecommendations = 5
	DefaultOverlap            = 0.5
)

// Weights combine the priority terms.
type Weights struct {
	Severity   float64
	Frequency  float64
	Confidence float64
}

// DefaultWeights returns 0.5 severity, 0.3 frequency and 0.2 confidence.
func DefaultWeights() Weights {
	return Weights{Severity: 0.5, Frequency: 0.3, Confidence: 0.2}
}

// Group is the set of mistake findings sharing a category and code, after
// near-duplicates have been collapsed.
type Group struct {
	Category types.Category
	Code     string
	// Findings are the surviving representatives in deterministic order.
	Findings []model.Finding
	// Collapsed lists every finding id folded into the group, representatives included.
	Collapsed []string
	Matches   int
	Priority  float64
	Earliest  time.Duration
}

// Result is the outcome of ranking.
type Result struct {
	Recommendations []model.Recommendation
	// Unsurfaced groups had no applicable template.
	Unsurfaced []Group
	// Dropped groups had a template but fell below the cap.
	Dropped int
}

// UnsurfacedCategories lists the distinct categories of unsurfaced groups.
func (r Result) UnsurfacedCategories() []types.Category {
	seen := map[types.Category]bool{}
	var out []types.Category
	for _, g := range r.Unsurfaced {
		if !seen[g.Category] {
			seen[g.Category] = true
			out = append(out, g.Category)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// Ranker is stateless after construction and safe for concurrent use.
type Ranker struct {
	max      int
	overlap  float64
	weights  Weights
	severity types.SeverityWeights
	catalog  *Catalog
}

// New creates a Ranker with the default catalog and weights.
func New(opts ...Option) *Ranker {
	r := &Ranker{
		max:      DefaultMaxRecommendations,
		overlap:  DefaultOverlap,
		weights:  DefaultWeights(),
		severity: types.DefaultSeverityWeights(),
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.catalog == nil {
		r.catalog = DefaultCatalog()
	}
	return r
}

// Rank groups, deduplicates, scores and renders findings for one player.
// Findings may come from several matches; strengths are ignored.
func (r *Ranker) Rank(findings []model.Finding, role types.Role, band types.EloBand) Result {
	groups := r.Groups(findings)

	var res Result
	type surfaced struct {
		g Group
		t Template
	}
	var ranked []surfaced
	for _, g := range groups {
		t, ok := r.catalog.Match(g.Category, g.Code, role, band)
		if !ok {
			res.Unsurfaced = append(res.Unsurfaced, g)
			continue
		}
		ranked = append(ranked, surfaced{g: g, t: t})
	}

	sort.SliceStable(ranked, func(i, j int) bool {
		a, b := ranked[i].g, ranked[j].g
		if a.Priority != b.Priority {
			return a.Priority > b.Priority
		}
		if a.Category != b.Category {
			return a.Category < b.Category
		}
		if a.Earliest != b.Earliest {
			return a.Earliest < b.Earliest
		}
		return a.Code < b.Code
	})
	if len(ranked) > r.max {
		res.Dropped = len(ranked) - r.max
		ranked = ranked[:r.max]
	}

	for i, s := range ranked {
		params := params(s.g, role, band)
		res.Recommendations = append(res.Recommendations, model.Recommendation{
			ID:         fmt.Sprintf("%s:%s", s.g.Category, s.g.Code),
			TemplateID: s.t.ID,
			Rank:       i + 1,
			Category:   s.g.Category,
			Code:       s.g.Code,
			Priority:   s.g.Priority,
			Text:       render(s.t.Text, params),
			Params:     params,
			Scope:      model.Scope{Role: role, Band: band},
			FindingIDs: append([]string(nil), s.g.Collapsed...),
			MatchCount: s.g.Matches,
			Earliest:   s.g.Earliest,
		})
	}
	return res
}

type groupKey struct {
	category types.Category
	code     string
}

// Groups collapses mistake findings into scored groups, ordered by key.
func (r *Ranker) Groups(findings []model.Finding) []Group {
	allMatches := map[string]bool{}
	byKey := map[groupKey][]model.Finding{}
	for _, f := range findings {
		allMatches[f.MatchID] = true
		if f.Polarity == types.Strength {
			continue
		}
		k := groupKey{f.Category, f.Code}
		byKey[k] = append(byKey[k], f)
	}

	keys := make([]groupKey, 0, len(byKey))
	for k := range byKey {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].category != keys[j].category {
			return keys[i].category < keys[j].category
		}
		return keys[i].code < keys[j].code
	})

	out := make([]Group, 0, len(keys))
	for _, k := range keys {
		g := r.collapse(k, byKey[k])
		r.score(&g, len(allMatches))
		out = append(out, g)
	}
	return out
}

func (r *Ranker) collapse(k groupKey, fs []model.Finding) Group {
	sort.SliceStable(fs, func(i, j int) bool {
		a, b := fs[i], fs[j]
		if a.MatchID != b.MatchID {
			return a.MatchID < b.MatchID
		}
		if a.Evidence.From != b.Evidence.From {
			return a.Evidence.From < b.Evidence.From
		}
		if a.Evidence.To != b.Evidence.To {
			return a.Evidence.To < b.Evidence.To
		}
		return a.ID < b.ID
	})

	g := Group{Category: k.category, Code: k.code}
	for _, f := range fs {
		g.Collapsed = append(g.Collapsed, f.ID)
		dup := false
		for _, kept := range g.Findings {
			if kept.MatchID == f.MatchID && Overlap(kept.Evidence, f.Evidence) > r.overlap {
				dup = true
				break
			}
		}
		if !dup {
			g.Findings = append(g.Findings, f)
		}
	}
	return g
}

func (r *Ranker) score(g *Group, totalMatches int) {
	matches := map[string]bool{}
	sev, conf := 0.0, 0.0
	g.Earliest = g.Findings[0].Evidence.From
	for _, f := range g.Findings {
		matches[f.MatchID] = true
		sev += r.severity.Weight(f.Severity)
		conf += f.Confidence
		if f.Evidence.From < g.Earliest {
			g.Earliest = f.Evidence.From
		}
	}
	n := float64(len(g.Findings))
	g.Matches = len(matches)

	severity := 0.0
	if m := r.severity.Max(); m > 0 {
		severity = sev / n / m
	}
	frequency := 0.0
	if totalMatches > 0 {
		frequency = float64(g.Matches) / float64(totalMatches)
	}
	g.Priority = r.weights.Severity*severity + r.weights.Frequency*frequency + r.weights.Confidence*(conf/n)
}

// Overlap measures how much two pieces of evidence coincide. Event
// references are compared when both sides have them, otherwise the time
// intervals are. The result is relative to the smaller side.
func Overlap(a, b model.Evidence) float64 {
	if len(a.Events) > 0 && len(b.Events) > 0 {
		set := make(map[int]bool, len(a.Events))
		for _, s := range a.Events {
			set[s] = true
		}
		shared := 0
		for _, s := range b.Events {
			if set[s] {
				shared++
				delete(set, s)
			}
		}
		return float64(shared) / float64(min(len(a.Events), len(b.Events)))
	}

	shorter := min(a.To-a.From, b.To-b.From)
	if shorter <= 0 {
		// an instant overlaps only if it falls inside the other interval
		if a.From >= b.From && a.From <= b.To || b.From >= a.From && b.From <= a.To {
			return 1
		}
		return 0
	}
	inter := min(a.To, b.To) - max(a.From, b.From)
	if inter <= 0 {
		return 0
	}
	return float64(inter) / float64(shorter)
}

func params(g Group, role types.Role, band types.EloBand) map[string]string {
	first := g.Findings[0]
	for _, f := range g.Findings[1:] {
		if f.Evidence.From < first.Evidence.From {
			first = f
		}
	}
	return map[string]string{
		"count":    strconv.Itoa(len(g.Findings)),
		"matches":  strconv.Itoa(g.Matches),
		"first_at": clock(first.Evidence.From),
		"window":   clock(first.Evidence.From) + "-" + clock(first.Evidence.To),
		"role":     strings.ToLower(string(role)),
		"band":     string(band),
	}
}

func render(text string, params map[string]string) string {
	pairs := make([]string, 0, 2*len(params))
	for k, v := range params {
		pairs = append(pairs, "{"+k+"}", v)
	}
	return strings.NewReplacer(pairs...).Replace(text)
}

func clock(d time.Duration) string {
	d = d.Round(time.Second)
	return fmt.Sprintf("%d:%02d", int(d.Minutes()), int(d.Seconds())%60)
}

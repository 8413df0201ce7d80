package matcher

import (
	"sort"

	"github.com/xrash/smetrics"
)

// Tier labels the confidence band a similarity score falls into.
type Tier string

const (
	// TierExcellent marks scores >= 0.90.
	TierExcellent Tier = "excellent"
	// TierGood marks scores in [0.70, 0.90).
	TierGood Tier = "good"
	// TierQuestionable marks scores in [0.50, 0.70).
	TierQuestionable Tier = "questionable"
	// TierUntrusted marks scores below 0.50. Untrusted candidates are
	// hidden from primary search results.
	TierUntrusted Tier = "untrusted"
)

const (
	excellentFloor = 0.90
	goodFloor      = 0.70
	trustedFloor   = 0.50

	// fallbackFloor is the more permissive visibility floor used by the
	// reduced fallback query, which carries less identity information.
	fallbackFloor = 0.40

	// Jaro-Winkler parameters: standard 0.1 prefix boost over the first
	// four characters.
	jwBoost      = 0.1
	jwPrefixSize = 4
)

// TierFor maps a similarity score to its confidence tier.
// It is monotone: a higher score never yields a lower tier.
func TierFor(score float64) Tier {
	switch {
	case score >= excellentFloor:
		return TierExcellent
	case score >= goodFloor:
		return TierGood
	case score >= trustedFloor:
		return TierQuestionable
	default:
		return TierUntrusted
	}
}

// Similarity computes the Jaro-Winkler similarity of two names after
// normalization. The result is in [0, 1], 1 meaning identical.
func Similarity(a, b string) float64 {
	na, nb := Normalize(a), Normalize(b)
	if na == "" || nb == "" {
		return 0
	}
	return smetrics.JaroWinkler(na, nb, jwBoost, jwPrefixSize)
}

// Item is one candidate row from a store snapshot.
type Item struct {
	// ID is the persisted identifier of the candidate.
	ID uint
	// Value is the name the query is compared against.
	Value string
	// Discriminant is an optional secondary discriminant (e.g. gender)
	// used to filter fallback results.
	Discriminant string
}

// Candidate is one ranked match.
type Candidate struct {
	ID    uint    `json:"id"`
	Value string  `json:"value"`
	Score float64 `json:"score"`
	Tier  Tier    `json:"tier"`
}

// Query describes a fuzzy search. Primary is the full-identity string;
// Reduced is the lower-information fallback (typically the surname alone),
// optionally filtered by Discriminant to suppress false positives.
type Query struct {
	Primary      string
	Reduced      string
	Discriminant string
}

// Result is the outcome of a Search.
type Result struct {
	// Candidates are the visible matches, ranked by descending score.
	Candidates []Candidate `json:"candidates,omitempty"`
	// Best is the top candidate, nil when nothing was visible.
	Best *Candidate `json:"best,omitempty"`
	// AutoAccept reports whether Best cleared the applicable cutoff.
	AutoAccept bool `json:"auto_accept"`
	// Fallback reports whether the reduced query produced the result.
	Fallback bool `json:"fallback"`
}

// Matcher ranks store snapshot items against queries. It holds no state
// beyond its configuration and performs no I/O: callers pass the snapshot in.
type Matcher struct {
	cfg Config
}

// New creates a Matcher with the given cutoff configuration.
func New(cfg Config) *Matcher {
	return &Matcher{cfg: cfg}
}

// Config returns the cutoff configuration the matcher was built with.
func (m *Matcher) Config() Config {
	return m.cfg
}

// Rank scores every item against the query and returns the visible
// candidates in descending score order. Candidates below the trusted floor
// are hidden.
func (m *Matcher) Rank(query string, items []Item) []Candidate {
	return rank(query, items, trustedFloor, 0, "")
}

// Search runs the primary query and, when it yields no visible candidate,
// retries with the reduced query at the permissive floor, filtered by the
// secondary discriminant and capped to the configured fallback limit.
// cutoff and fallbackCutoff are the auto-accept thresholds for the two modes.
func (m *Matcher) Search(q Query, items []Item, cutoff, fallbackCutoff float64) Result {
	candidates := rank(q.Primary, items, trustedFloor, 0, "")
	if len(candidates) > 0 {
		return buildResult(candidates, cutoff, false)
	}

	if q.Reduced == "" {
		return Result{}
	}

	limit := m.cfg.FallbackLimit
	if limit <= 0 {
		limit = 5
	}
	candidates = rank(q.Reduced, items, fallbackFloor, limit, q.Discriminant)
	if len(candidates) == 0 {
		return Result{Fallback: true}
	}
	return buildResult(candidates, fallbackCutoff, true)
}

func rank(query string, items []Item, floor float64, limit int, discriminant string) []Candidate {
	var out []Candidate
	for _, it := range items {
		if discriminant != "" && it.Discriminant != "" && it.Discriminant != discriminant {
			continue
		}
		score := Similarity(query, it.Value)
		if score < floor {
			continue
		}
		out = append(out, Candidate{
			ID:    it.ID,
			Value: it.Value,
			Score: score,
			Tier:  TierFor(score),
		})
	}

	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Score > out[j].Score
	})

	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}

func buildResult(candidates []Candidate, cutoff float64, fallback bool) Result {
	best := candidates[0]
	return Result{
		Candidates: candidates,
		Best:       &best,
		AutoAccept: best.Score >= cutoff,
		Fallback:   fallback,
	}
}

// Package matcher implements approximate-name matching against store
// snapshots using Jaro-Winkler similarity.
//
// Matching is a pure function: callers load a snapshot of candidate rows and
// pass it in as a slice of Item values. The matcher never touches the store
// and has no side effects, which keeps every solver phase replayable.
//
// # Normalization
//
// Both query and candidate names are normalized before comparison:
// uppercased, accent-stripped (NFD decomposition + combining mark removal)
// and whitespace-collapsed.
//
// # Confidence tiers
//
//   - excellent: score >= 0.90
//   - good: 0.70 - 0.89
//   - questionable: 0.50 - 0.69
//   - untrusted: below 0.50, hidden from primary results
//
// # Cutoffs
//
// Auto-accept cutoffs are per entity type and live in Config; they are bound
// to environment configuration because the values are under active empirical
// adjustment (the team cutoff alone has been run anywhere between 0.60 and
// 0.90 against real documents).
//
// # Fallback
//
// When the primary full-identity query yields nothing visible, Search retries
// with a reduced query (surname only) at a more permissive visibility floor,
// optionally filtered by a secondary discriminant such as gender, capped to a
// small top-N.
package matcher

package phase

import (
	"meet-importer/core/matcher"
)

// Entry is the common envelope every artifact entry carries: a natural key,
// a nullable resolved persisted ID, the best-match confidence score, the
// ranked candidate list and any per-entry errors recorded while solving.
//
// The nullable ID distinguishes "matched" from "unmatched but retained":
// entries that fail a lookup keep a nil ID and stay in the artifact for later
// manual resolution instead of being dropped.
type Entry struct {
	// Key is the deterministic natural key of the entry.
	Key string `json:"key"`
	// ID is the resolved persisted ID, nil when unmatched.
	ID *uint `json:"id"`
	// Score is the similarity score of the accepted match, zero otherwise.
	Score float64 `json:"score,omitempty"`
	// Candidates is the ranked fuzzy-match candidate list.
	Candidates []matcher.Candidate `json:"candidates,omitempty"`
	// Errors collects non-fatal per-entry errors recorded while solving.
	Errors []string `json:"errors,omitempty"`
}

// Resolved reports whether the entry carries a non-null persisted ID.
// The commit orchestrator performs zero writes for resolved entries.
func (e *Entry) Resolved() bool {
	return e.ID != nil && *e.ID != 0
}

// Assign sets the resolved ID and the score of the accepted match.
func (e *Entry) Assign(id uint, score float64) {
	e.ID = &id
	e.Score = score
}

// Record appends a non-fatal error to the entry. Nil errors are ignored so
// callers can pass through guard-clause results unconditionally.
func (e *Entry) Record(err error) {
	if err == nil {
		return
	}
	e.Errors = append(e.Errors, err.Error())
}

// Apply copies the outcome of a matcher search onto the entry: candidates
// always, the resolved ID only when the match cleared its auto-accept cutoff.
func (e *Entry) Apply(res matcher.Result) {
	e.Candidates = res.Candidates
	if res.AutoAccept && res.Best != nil {
		e.Assign(res.Best.ID, res.Best.Score)
	}
}

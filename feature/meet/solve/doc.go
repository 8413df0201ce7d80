// Package solve implements the five resolution phases that turn a canonical
// document tree into committed-ready artifacts: venues and sessions (1),
// teams (2), swimmers and badges (3), events (4) and results (5).
//
// Each solver consumes the tree plus the artifacts of its prerequisite
// phases, fuzzy-matches its entity cluster against the store and emits a
// checksummed artifact as its last step; phase 5 additionally stages the
// result rows. Failed lookups are recorded on the affected entry and the
// entry is retained with a null resolved ID, so one bad reference never
// discards a document.
package solve

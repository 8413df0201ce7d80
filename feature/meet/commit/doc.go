// Package commit implements the final phase of an import: it consumes the
// phase 1-4 artifacts and the staged result rows and writes every entity the
// solvers could not match, in dependency order, inside one transaction.
//
// Cities lead pools, pools lead sessions, teams lead badges and results,
// events lead programs. Pre-matched entries skip their write; meetings,
// sessions and results diff against the matched record and update only on
// change. Each insert or update appends an audit row in the same
// transaction, so a validation failure rolls data and trail back together.
// Consumed staging rows are purged afterwards; rows whose program chain
// stayed open are retained for manual linking.
package commit

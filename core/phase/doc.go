// Package phase provides the shared machinery of the resolution pipeline:
// the phase artifact envelope, the checksummed artifact store, the common
// entry shape and the error taxonomy.
//
// # Artifacts
//
// Every solver phase (1-5) emits one artifact: an envelope (generator,
// creation time, source reference, parent checksum, schema version) plus a
// JSON payload. Artifacts are versioned per (source reference, phase) and
// read-only after creation; re-running a solver inserts a new version.
// Payloads are SHA-256 checksummed on save and verified on load.
//
// Writing the artifact is the last step of a solve. A solver either
// completes and saves, or fails entirely; no partial artifact is ever
// persisted.
//
// # Entries
//
// Artifact entries embed Entry: natural key, nullable resolved ID, match
// score, candidate list, recorded errors. A nil ID means "unmatched but
// retained" so that partial progress stays reviewable.
//
// # Errors
//
// The taxonomy separates fatal from recorded failures:
//   - MalformedSourceError: fatal, aborts phase 1 for the document
//   - UnresolvedReferenceError: non-fatal, recorded on the entry
//   - AmbiguousParseError: relay-title stroke classification failure
//   - PersistenceValidationError: fatal to the whole commit transaction
package phase

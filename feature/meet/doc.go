// Package meet exposes the swim-meet import pipeline as an application
// feature: parse a raw result document, resolve its entities against the
// store in five phases, then commit the whole document atomically.
//
// The package itself is thin glue. Parsing lives in ingest, the entity
// models and timing codecs in models, the phase solvers in solve, the
// intermediate result rows in staging and the transactional commit in
// commit. Service wires them over one database handle; Handler maps them
// onto HTTP routes.
package meet

// Package staging holds the tabular intermediate rows the result solver
// produces and the commit orchestrator consumes. Result data is too
// voluminous for the per-phase JSON artifacts, so rows live in their own
// uniquely-keyed table: the deterministic import key makes re-solving a
// document an in-place upsert instead of an accumulation.
package staging

// Package models defines the persistent domain entities of the meet store
// and their shared domain vocabulary: stroke and gender codes, event code
// construction, swimmer natural keys and timing conversion, plus the
// season-scoped category lookup service.
//
// # Entities
//
// The entity graph follows the commit dependency order: City -> SwimmingPool
// -> Meeting -> MeetingSession, Team -> TeamAffiliation, Swimmer -> Badge,
// EventType -> MeetingEvent -> MeetingProgram -> results -> laps. Junction
// entities (affiliation, badge, meeting event, program) are unique on their
// declared key tuples and the uniqueness constraints act as the concurrency
// arbiter between independent import invocations.
//
// # Natural keys
//
// Swimmers are identified by the deterministic key [G|]LAST|FIRST|YEAR where
// the gender qualifier is present only when known. IdentityOf strips the
// qualifier so differently-qualified keys for the same person can be
// collapsed.
package models

package phase

import "fmt"

// MalformedSourceError reports a source document missing mandatory structural
// markers. It is fatal: phase 1 aborts for the document.
type MalformedSourceError struct {
	// Reason describes the missing or broken structure.
	Reason string
}

func (e *MalformedSourceError) Error() string {
	return fmt.Sprintf("malformed source document: %s", e.Reason)
}

// UnresolvedReferenceError reports a failed lookup or match. It is non-fatal:
// the entry is retained with a null resolved ID and the error is recorded on
// the entry for later manual resolution.
type UnresolvedReferenceError struct {
	// Entity is the entity type the lookup targeted.
	Entity string
	// Key is the natural key of the entry being resolved.
	Key string
	// Reason describes what failed.
	Reason string
}

func (e *UnresolvedReferenceError) Error() string {
	return fmt.Sprintf("unresolved %s reference %q: %s", e.Entity, e.Key, e.Reason)
}

// AmbiguousParseError reports natural-language parsing that could not
// classify its input, typically an unrecognized stroke keyword inside a relay
// section title.
type AmbiguousParseError struct {
	// Input is the text that failed to classify.
	Input string
	// Reason describes the ambiguity.
	Reason string
}

func (e *AmbiguousParseError) Error() string {
	return fmt.Sprintf("ambiguous parse of %q: %s", e.Input, e.Reason)
}

// PersistenceValidationError reports a store constraint violation during
// commit. It is fatal to the whole commit transaction and triggers a full
// rollback.
type PersistenceValidationError struct {
	// Entity is the entity type that failed validation.
	Entity string
	// Key is the natural key of the offending record.
	Key string
	// Message describes the violated constraint.
	Message string
	// Err is the underlying store error, if any.
	Err error
}

func (e *PersistenceValidationError) Error() string {
	return fmt.Sprintf("persistence validation failed for %s %q: %s", e.Entity, e.Key, e.Message)
}

func (e *PersistenceValidationError) Unwrap() error {
	return e.Err
}

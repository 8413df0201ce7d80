// Package ingest normalizes source meet documents into one canonical
// session -> event -> result tree.
//
// Two incompatible source layouts exist. Layout 1 is the pre-structured
// "program" layout with separate header, team dictionary, swimmer
// declarations and coded events; layout 2 is the crawled "sections" layout
// where every ranking is a section with a natural-language title and flat
// row maps. The document self-declares its layout through the explicit
// "layout" discriminant field; structural key sniffing is deliberately not
// used here because it misclassified real documents.
//
// # Relay titles
//
// Relay sections carry titles like "4x50 m Misti - M80". ParseEventTitle
// extracts the leg count and leg distance, classifies the stroke from the
// keyword table, and builds the domain event code with the same-gender "S"
// or mixed "M" prefix. An unrecognized stroke keyword is handled per the
// configured fallback policy: error (record an AmbiguousParseError) or
// freestyle.
//
// # Failure model
//
// Missing mandatory structure (name, dates, sections/schedule) aborts
// parsing with a MalformedSourceError. Everything per-row (bad timing
// labels, unparseable swimmer references) is recorded on the row and parsing
// continues, so a best-effort tree always comes out of a structurally sound
// document.
package ingest

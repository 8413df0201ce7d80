package ingest

import (
	"strings"
	"time"

	"meet-importer/feature/meet/models"
)

// Document is the canonical session -> event -> result tree both source
// layouts normalize into. Everything downstream of the normalizer consumes
// this shape only.
type Document struct {
	// Code is the source reference: the meeting code, derived from the
	// header when the source does not declare one.
	Code string `json:"code"`
	// Name is the meeting display name.
	Name string `json:"name"`
	// Dates are the distinct scheduled dates, ascending.
	Dates []time.Time `json:"dates"`

	VenueName  string `json:"venue_name,omitempty"`
	PoolName   string `json:"pool_name,omitempty"`
	CityName   string `json:"city_name,omitempty"`
	PoolLength int    `json:"pool_length,omitempty"`

	Sessions []Session `json:"sessions"`

	// TeamNames are the team names declared in a dictionary structure,
	// when the layout carries one. Phase 2 falls back to a row scan when
	// this is empty.
	TeamNames []string `json:"team_names,omitempty"`
	// Swimmers are the swimmer declarations, when the layout carries them.
	// Phase 3 falls back to a row scan when this is empty.
	Swimmers []SwimmerSpec `json:"swimmers,omitempty"`
}

// Session is one derived session of the document.
type Session struct {
	Order   int       `json:"order"`
	Date    time.Time `json:"date"`
	DayPart string    `json:"day_part,omitempty"`
	Events  []Event   `json:"events"`
}

// Event is one raced event inside a session.
type Event struct {
	Code     string `json:"code"`
	Distance int    `json:"distance"`
	Stroke   string `json:"stroke"`

	Relay       bool `json:"relay,omitempty"`
	Mixed       bool `json:"mixed,omitempty"`
	LegCount    int  `json:"leg_count,omitempty"`
	LegDistance int  `json:"leg_distance,omitempty"`

	// Gender and Category come from the section header; individual rows
	// may override the gender.
	Gender   string `json:"gender,omitempty"`
	Category string `json:"category,omitempty"`

	Rows []Row `json:"rows"`

	// ParseErrors collects non-fatal problems found while normalizing
	// this event (e.g. an ambiguous relay stroke keyword).
	ParseErrors []string `json:"parse_errors,omitempty"`
}

// Row is one result row: a swimmer's result for individual events, a team
// entry with leg sub-records for relays.
type Row struct {
	LastName    string `json:"last_name,omitempty"`
	FirstName   string `json:"first_name,omitempty"`
	FullName    string `json:"full_name,omitempty"`
	YearOfBirth int    `json:"year_of_birth,omitempty"`
	Gender      string `json:"gender,omitempty"`
	Team        string `json:"team,omitempty"`
	Category    string `json:"category,omitempty"`

	Rank         int    `json:"rank,omitempty"`
	StatusCode   string `json:"status_code,omitempty"` // DSQ, DNS, DNF
	Disqualified bool   `json:"disqualified,omitempty"`

	// Hundredths is the parsed final time; Timing keeps the source label.
	Timing     string `json:"timing,omitempty"`
	Hundredths int    `json:"hundredths,omitempty"`

	Laps []Split `json:"laps,omitempty"`
	Legs []Leg   `json:"legs,omitempty"`

	// Errors collects non-fatal per-row parse problems.
	Errors []string `json:"errors,omitempty"`
}

// Split is one recorded split. Sources deliver cumulative from-start times;
// the delta is reconstructed in phase 5 and zero until then, unless the
// source carried an explicit delta field.
type Split struct {
	Distance   int `json:"distance"`
	Cumulative int `json:"cumulative"`
	Delta      int `json:"delta,omitempty"`
}

// Leg is one embedded relay-leg sub-record.
type Leg struct {
	Order       int     `json:"order"`
	LastName    string  `json:"last_name,omitempty"`
	FirstName   string  `json:"first_name,omitempty"`
	FullName    string  `json:"full_name,omitempty"`
	YearOfBirth int     `json:"year_of_birth,omitempty"`
	Gender      string  `json:"gender,omitempty"`
	Hundredths  int     `json:"hundredths,omitempty"`
	Laps        []Split `json:"laps,omitempty"`
}

// SwimmerSpec is a swimmer declaration from a layout that lists swimmers
// separately from result rows.
type SwimmerSpec struct {
	Key         string `json:"key"`
	LastName    string `json:"last_name"`
	FirstName   string `json:"first_name"`
	YearOfBirth int    `json:"year_of_birth"`
	Gender      string `json:"gender,omitempty"`
	TeamKey     string `json:"team_key,omitempty"`
}

// SwimmerKey returns the row's swimmer natural key.
func (r *Row) SwimmerKey() string {
	return models.SwimmerKey(r.Gender, r.LastName, r.FirstName, r.YearOfBirth)
}

// SwimmerKey returns the leg swimmer's natural key.
func (l *Leg) SwimmerKey() string {
	return models.SwimmerKey(l.Gender, l.LastName, l.FirstName, l.YearOfBirth)
}

// RelayOnly reports whether every event of the document is a relay. Such
// documents (relay-championship heat sheets) are coalesced into a single
// session by the event solver to avoid one session per heat.
func (d *Document) RelayOnly() bool {
	any := false
	for _, s := range d.Sessions {
		for _, e := range s.Events {
			if !e.Relay {
				return false
			}
			any = true
		}
	}
	return any
}

// SplitFullName separates a result-row full name into last and first name.
// Result lists put the surname first; everything after the first token is
// treated as the first name.
func SplitFullName(full string) (last, first string) {
	fields := strings.Fields(full)
	if len(fields) == 0 {
		return "", ""
	}
	if len(fields) == 1 {
		return fields[0], ""
	}
	return fields[0], strings.Join(fields[1:], " ")
}

package staging

import (
	"fmt"
	"time"
)

// Row kinds.
const (
	KindIndividual = "individual"
	KindRelay      = "relay"
)

// Row is one staged result pending commit. Phase 5 produces rows, the
// commit orchestrator consumes and purges them. Result volume (thousands of
// rows with laps) is what keeps these out of the document artifacts.
//
// Resolved references are nullable: a row with a nil ProgramID persists
// anyway and is skipped at commit, retained for later manual linking.
type Row struct {
	ID        uint   `gorm:"column:id;primaryKey;autoIncrement"`
	SourceRef string `gorm:"column:source_ref;size:128;index"`
	// ImportKey is the deterministic composite key; globally unique, so a
	// re-solve overwrites its previous rows instead of duplicating them.
	ImportKey string `gorm:"column:import_key;size:255;uniqueIndex"`
	Kind      string `gorm:"column:kind;size:12"`

	SessionOrder int    `gorm:"column:session_order"`
	EventCode    string `gorm:"column:event_code;size:16"`
	CategoryCode string `gorm:"column:category_code;size:10"`
	Gender       string `gorm:"column:gender;size:1"`
	SwimmerKey   string `gorm:"column:swimmer_key;size:200"`
	TeamKey      string `gorm:"column:team_key;size:150"`

	ProgramID        *uint `gorm:"column:program_id"`
	SwimmerID        *uint `gorm:"column:swimmer_id"`
	TeamID           *uint `gorm:"column:team_id"`
	BadgeID          *uint `gorm:"column:badge_id"`
	ExistingResultID *uint `gorm:"column:existing_result_id"`

	Rank         int    `gorm:"column:rank"`
	Hundredths   int    `gorm:"column:hundredths"`
	StatusCode   string `gorm:"column:status_code;size:4"`
	Disqualified bool   `gorm:"column:disqualified"`

	// Laps and Legs hold the JSON-serialized split and leg payloads.
	Laps []byte `gorm:"column:laps"`
	Legs []byte `gorm:"column:legs"`

	Errors    string    `gorm:"column:errors;size:1000"`
	CreatedAt time.Time `gorm:"column:created_at"`
}

// TableName overrides the table name.
func (Row) TableName() string { return "staging_rows" }

// LapSpec is one split inside a row payload, delta and cumulative both in
// hundredths.
type LapSpec struct {
	Order      int `json:"order"`
	Distance   int `json:"distance"`
	Delta      int `json:"delta"`
	Cumulative int `json:"cumulative"`
}

// LegSpec is one relay-leg sub-record inside a relay row payload.
type LegSpec struct {
	Order       int       `json:"order"`
	ImportKey   string    `json:"import_key"`
	SwimmerKey  string    `json:"swimmer_key,omitempty"`
	SwimmerID   *uint     `json:"swimmer_id,omitempty"`
	LastName    string    `json:"last_name,omitempty"`
	FirstName   string    `json:"first_name,omitempty"`
	YearOfBirth int       `json:"year_of_birth,omitempty"`
	Gender      string    `json:"gender,omitempty"`
	Stroke      string    `json:"stroke,omitempty"`
	Hundredths  int       `json:"hundredths,omitempty"`
	Laps        []LapSpec `json:"laps,omitempty"`
}

// IndividualKey builds the import key of an individual result row:
// meeting code, session order, event code and the swimmer identity key.
func IndividualKey(meetingCode string, sessionOrder int, eventCode, identityKey string) string {
	return fmt.Sprintf("%s-%d-%s-%s", meetingCode, sessionOrder, eventCode, identityKey)
}

// RelayKey builds the import key of a relay result row. The gender suffix
// keeps same-coded relays of different program genders apart.
func RelayKey(meetingCode string, sessionOrder int, eventCode, teamKey, gender string) string {
	return fmt.Sprintf("%s-%d-%s-%s-%s", meetingCode, sessionOrder, eventCode, teamKey, gender)
}

// LegKey builds the import key of one relay leg, derived from its parent
// relay row key plus the leg order.
func LegKey(relayKey string, legOrder int) string {
	return fmt.Sprintf("%s-%d", relayKey, legOrder)
}

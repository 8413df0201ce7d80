package models

import (
	"time"

	"gorm.io/gorm"
)

// City is a venue city.
type City struct {
	ID   uint   `gorm:"column:id;primaryKey;autoIncrement"`
	Name string `gorm:"column:name;size:100;uniqueIndex"`
	Area string `gorm:"column:area;size:100"`
}

// TableName overrides the table name.
func (City) TableName() string { return "cities" }

// SwimmingPool is a venue pool, nested in a city.
type SwimmingPool struct {
	ID         uint   `gorm:"column:id;primaryKey;autoIncrement"`
	Name       string `gorm:"column:name;size:120"`
	CityID     *uint  `gorm:"column:city_id;index"`
	LaneLength int    `gorm:"column:lane_length"` // meters, 25 or 50
}

// TableName overrides the table name.
func (SwimmingPool) TableName() string { return "swimming_pools" }

// Meeting is the top-level meet record. Created or matched in phase 1 and
// mutated by phase 1 only.
type Meeting struct {
	ID        uint       `gorm:"column:id;primaryKey;autoIncrement"`
	SeasonID  uint       `gorm:"column:season_id;index"`
	Code      string     `gorm:"column:code;size:128;uniqueIndex"`
	Name      string     `gorm:"column:name;size:200"`
	VenueName string     `gorm:"column:venue_name;size:200"`
	StartDate *time.Time `gorm:"column:start_date"`
	EndDate   *time.Time `gorm:"column:end_date"`
}

// TableName overrides the table name.
func (Meeting) TableName() string { return "meetings" }

// MeetingSession is one session of a meeting, scheduled on a date and a
// day-part, swum in one pool.
type MeetingSession struct {
	ID            uint       `gorm:"column:id;primaryKey;autoIncrement"`
	MeetingID     uint       `gorm:"column:meeting_id;uniqueIndex:idx_sessions_meeting_order,priority:1"`
	SessionOrder  int        `gorm:"column:session_order;uniqueIndex:idx_sessions_meeting_order,priority:2"`
	ScheduledDate *time.Time `gorm:"column:scheduled_date"`
	DayPart       string     `gorm:"column:day_part;size:1"` // M(orning), A(fternoon), E(vening)
	PoolID        *uint      `gorm:"column:pool_id"`
}

// TableName overrides the table name.
func (MeetingSession) TableName() string { return "meeting_sessions" }

// Team is a club registry entry with its display variants.
type Team struct {
	ID             uint   `gorm:"column:id;primaryKey;autoIncrement"`
	Name           string `gorm:"column:name;size:150;index"`
	EditableName   string `gorm:"column:editable_name;size:150"`
	NameVariations string `gorm:"column:name_variations;size:510"`
}

// TableName overrides the table name.
func (Team) TableName() string { return "teams" }

// TeamAffiliation links a team to a season, unique per (season, team).
type TeamAffiliation struct {
	ID       uint   `gorm:"column:id;primaryKey;autoIncrement"`
	SeasonID uint   `gorm:"column:season_id;uniqueIndex:idx_affiliations_season_team,priority:1"`
	TeamID   uint   `gorm:"column:team_id;uniqueIndex:idx_affiliations_season_team,priority:2"`
	Name     string `gorm:"column:name;size:150"`
}

// TableName overrides the table name.
func (TeamAffiliation) TableName() string { return "team_affiliations" }

// Swimmer is an athlete identity: last/first name, birth year, gender.
type Swimmer struct {
	ID          uint   `gorm:"column:id;primaryKey;autoIncrement"`
	LastName    string `gorm:"column:last_name;size:100;index"`
	FirstName   string `gorm:"column:first_name;size:100"`
	YearOfBirth int    `gorm:"column:year_of_birth"`
	Gender      string `gorm:"column:gender;size:1"`
	// CompleteName is the display form used for fuzzy matching.
	CompleteName string `gorm:"column:complete_name;size:200;index"`
}

// TableName overrides the table name.
func (Swimmer) TableName() string { return "swimmers" }

// NaturalKey returns the swimmer's deterministic identity key.
func (s Swimmer) NaturalKey() string {
	return SwimmerKey(s.Gender, s.LastName, s.FirstName, s.YearOfBirth)
}

// Badge is a swimmer's season membership at a team, unique per
// (season, swimmer, team). It carries the computed age-bracket category.
type Badge struct {
	ID           uint   `gorm:"column:id;primaryKey;autoIncrement"`
	SeasonID     uint   `gorm:"column:season_id;uniqueIndex:idx_badges_season_swimmer_team,priority:1"`
	SwimmerID    uint   `gorm:"column:swimmer_id;uniqueIndex:idx_badges_season_swimmer_team,priority:2"`
	TeamID       uint   `gorm:"column:team_id;uniqueIndex:idx_badges_season_swimmer_team,priority:3"`
	CategoryCode string `gorm:"column:category_code;size:10"`
}

// TableName overrides the table name.
func (Badge) TableName() string { return "badges" }

// EventType is a domain event definition: distance+stroke for individual
// events, leg-count+leg-distance+stroke+mix-flag for relays.
type EventType struct {
	ID          uint   `gorm:"column:id;primaryKey;autoIncrement"`
	Code        string `gorm:"column:code;size:16;uniqueIndex"`
	Distance    int    `gorm:"column:distance"` // total distance in meters
	Stroke      string `gorm:"column:stroke;size:2"`
	Relay       bool   `gorm:"column:relay"`
	Mixed       bool   `gorm:"column:mixed"`
	LegCount    int    `gorm:"column:leg_count"`
	LegDistance int    `gorm:"column:leg_distance"`
}

// TableName overrides the table name.
func (EventType) TableName() string { return "event_types" }

// MeetingEvent schedules an event type inside a session, unique per
// (session, event type).
type MeetingEvent struct {
	ID          uint `gorm:"column:id;primaryKey;autoIncrement"`
	SessionID   uint `gorm:"column:session_id;uniqueIndex:idx_events_session_type,priority:1"`
	EventTypeID uint `gorm:"column:event_type_id;uniqueIndex:idx_events_session_type,priority:2"`
	EventOrder  int  `gorm:"column:event_order"`
}

// TableName overrides the table name.
func (MeetingEvent) TableName() string { return "meeting_events" }

// MeetingProgram is one raced program: a meeting event restricted to a
// category and gender, unique per (event, category, gender).
type MeetingProgram struct {
	ID             uint   `gorm:"column:id;primaryKey;autoIncrement"`
	MeetingEventID uint   `gorm:"column:meeting_event_id;uniqueIndex:idx_programs_event_cat_gender,priority:1"`
	CategoryCode   string `gorm:"column:category_code;size:10;uniqueIndex:idx_programs_event_cat_gender,priority:2"`
	Gender         string `gorm:"column:gender;size:1;uniqueIndex:idx_programs_event_cat_gender,priority:3"`
}

// TableName overrides the table name.
func (MeetingProgram) TableName() string { return "meeting_programs" }

// IndividualResult is one swimmer's result inside a program.
type IndividualResult struct {
	ID           uint   `gorm:"column:id;primaryKey;autoIncrement"`
	ProgramID    uint   `gorm:"column:program_id;uniqueIndex:idx_results_program_swimmer_team,priority:1"`
	SwimmerID    uint   `gorm:"column:swimmer_id;uniqueIndex:idx_results_program_swimmer_team,priority:2"`
	TeamID       uint   `gorm:"column:team_id;uniqueIndex:idx_results_program_swimmer_team,priority:3"`
	BadgeID      *uint  `gorm:"column:badge_id"`
	Rank         int    `gorm:"column:rank"`
	Hundredths   int    `gorm:"column:hundredths"`
	Disqualified bool   `gorm:"column:disqualified"`
	StatusCode   string `gorm:"column:status_code;size:4"` // DSQ, DNS, DNF, empty when ranked
}

// TableName overrides the table name.
func (IndividualResult) TableName() string { return "individual_results" }

// RelayResult is one team's relay result inside a program.
type RelayResult struct {
	ID           uint   `gorm:"column:id;primaryKey;autoIncrement"`
	ProgramID    uint   `gorm:"column:program_id;uniqueIndex:idx_relay_results_program_team,priority:1"`
	TeamID       uint   `gorm:"column:team_id;uniqueIndex:idx_relay_results_program_team,priority:2"`
	EventCode    string `gorm:"column:event_code;size:16"`
	Rank         int    `gorm:"column:rank"`
	Hundredths   int    `gorm:"column:hundredths"`
	Disqualified bool   `gorm:"column:disqualified"`
	StatusCode   string `gorm:"column:status_code;size:4"`
}

// TableName overrides the table name.
func (RelayResult) TableName() string { return "relay_results" }

// RelayLeg is one swimmer's segment of a relay result, ordered 1..N.
type RelayLeg struct {
	ID            uint   `gorm:"column:id;primaryKey;autoIncrement"`
	RelayResultID uint   `gorm:"column:relay_result_id;uniqueIndex:idx_relay_legs_result_order,priority:1"`
	LegOrder      int    `gorm:"column:leg_order;uniqueIndex:idx_relay_legs_result_order,priority:2"`
	SwimmerID     *uint  `gorm:"column:swimmer_id"`
	LastName      string `gorm:"column:last_name;size:100"`
	FirstName     string `gorm:"column:first_name;size:100"`
	YearOfBirth   int    `gorm:"column:year_of_birth"`
	Gender        string `gorm:"column:gender;size:1"`
	Stroke        string `gorm:"column:stroke;size:2"`
	Hundredths    int    `gorm:"column:hundredths"`
}

// TableName overrides the table name.
func (RelayLeg) TableName() string { return "relay_legs" }

// Lap is one split of an individual result or a relay leg; exactly one of
// the two parent references is set. It retains both the delta time (the
// official lap time) and the cumulative from-start time for verification.
type Lap struct {
	ID                   uint  `gorm:"column:id;primaryKey;autoIncrement"`
	IndividualResultID   *uint `gorm:"column:individual_result_id;index"`
	RelayLegID           *uint `gorm:"column:relay_leg_id;index"`
	LapOrder             int   `gorm:"column:lap_order"`
	Distance             int   `gorm:"column:distance"` // cumulative meters at this split
	DeltaHundredths      int   `gorm:"column:delta_hundredths"`
	CumulativeHundredths int   `gorm:"column:cumulative_hundredths"`
}

// TableName overrides the table name.
func (Lap) TableName() string { return "laps" }

// SeasonCategory is one row of the season-scoped category lookup: an age
// bracket with its domain code (e.g. "M45" for masters 45-49).
type SeasonCategory struct {
	ID       uint   `gorm:"column:id;primaryKey;autoIncrement"`
	SeasonID uint   `gorm:"column:season_id;uniqueIndex:idx_categories_season_code,priority:1"`
	Code     string `gorm:"column:code;size:10;uniqueIndex:idx_categories_season_code,priority:2"`
	AgeBegin int    `gorm:"column:age_begin"`
	AgeEnd   int    `gorm:"column:age_end"`
	Relay    bool   `gorm:"column:relay"`
}

// TableName overrides the table name.
func (SeasonCategory) TableName() string { return "season_categories" }

// AuditLogEntry is one committed insert or update, append-only, produced
// only by the commit orchestrator. The attribute snapshot is sufficient to
// replay the change set elsewhere.
type AuditLogEntry struct {
	ID         uint      `gorm:"column:id;primaryKey;autoIncrement"`
	BatchID    string    `gorm:"column:batch_id;size:36;index"`
	Seq        int       `gorm:"column:seq"`
	Entity     string    `gorm:"column:entity;size:40"`
	NaturalKey string    `gorm:"column:natural_key;size:255"`
	Operation  string    `gorm:"column:operation;size:8"` // insert or update
	Attributes []byte    `gorm:"column:attributes"`
	CreatedAt  time.Time `gorm:"column:created_at"`
}

// TableName overrides the table name.
func (AuditLogEntry) TableName() string { return "audit_log_entries" }

// Migrate creates or updates the domain tables.
func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&City{},
		&SwimmingPool{},
		&Meeting{},
		&MeetingSession{},
		&Team{},
		&TeamAffiliation{},
		&Swimmer{},
		&Badge{},
		&EventType{},
		&MeetingEvent{},
		&MeetingProgram{},
		&IndividualResult{},
		&RelayResult{},
		&RelayLeg{},
		&Lap{},
		&SeasonCategory{},
		&AuditLogEntry{},
	)
}

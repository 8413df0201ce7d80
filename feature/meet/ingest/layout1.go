package ingest

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"meet-importer/core/phase"
	"meet-importer/feature/meet/models"
)

// Layout 1 is the pre-structured "program" layout: the header, the team
// dictionary, the swimmer declarations, the session/event schedule and the
// per-event result lists are all separate top-level structures, with events
// referenced by coded identifiers.

type layout1Doc struct {
	Layout      int                        `json:"layout"`
	Name        string                     `json:"name"`
	MeetingCode string                     `json:"meeting_code"`
	Dates       []string                   `json:"dates"`
	Venue       string                     `json:"venue"`
	Pool        string                     `json:"pool"`
	PoolLength  int                        `json:"pool_length"`
	City        string                     `json:"city"`
	Teams       map[string]layout1Team     `json:"teams"`
	Swimmers    json.RawMessage            `json:"swimmers"`
	Sessions    []layout1Session           `json:"sessions"`
	Events      []layout1Event             `json:"events"`
	Results     map[string][]layout1Result `json:"results"`
}

type layout1Team struct {
	Name string `json:"name"`
}

type layout1Session struct {
	Order   int      `json:"order"`
	Date    string   `json:"date"`
	DayPart string   `json:"day_part"`
	Events  []string `json:"events"`
}

type layout1Event struct {
	Code        string `json:"code"`
	Title       string `json:"title"`
	Distance    int    `json:"distance"`
	Stroke      string `json:"stroke"`
	Relay       bool   `json:"relay"`
	Mixed       bool   `json:"mixed"`
	LegCount    int    `json:"leg_count"`
	LegDistance int    `json:"leg_distance"`
}

type layout1Result struct {
	Swimmer  string       `json:"swimmer"`
	Team     string       `json:"team"`
	Gender   string       `json:"gender"`
	Category string       `json:"category"`
	Rank     int          `json:"rank"`
	Status   string       `json:"status"`
	Timing   string       `json:"timing"`
	Laps     []layout1Lap `json:"laps"`
	Legs     []layout1Leg `json:"legs"`
}

type layout1Lap struct {
	Distance int    `json:"distance"`
	Timing   string `json:"timing"` // cumulative from start
}

type layout1Leg struct {
	Order   int          `json:"order"`
	Swimmer string       `json:"swimmer"`
	Gender  string       `json:"gender"`
	Timing  string       `json:"timing"`
	Laps    []layout1Lap `json:"laps"`
}

// layout1SwimmerDetail is the dictionary shape of the swimmers structure.
type layout1SwimmerDetail struct {
	LastName    string `json:"last_name"`
	FirstName   string `json:"first_name"`
	YearOfBirth int    `json:"year_of_birth"`
	Gender      string `json:"gender"`
	Team        string `json:"team"`
}

func parseLayout1(data []byte, cfg Config) (*Document, error) {
	var src layout1Doc
	if err := json.Unmarshal(data, &src); err != nil {
		return nil, &phase.MalformedSourceError{Reason: fmt.Sprintf("layout 1 decode failed: %v", err)}
	}

	if strings.TrimSpace(src.Name) == "" {
		return nil, &phase.MalformedSourceError{Reason: "missing meeting name"}
	}
	if len(src.Dates) == 0 {
		return nil, &phase.MalformedSourceError{Reason: "missing meeting dates"}
	}
	if len(src.Sessions) == 0 || len(src.Events) == 0 {
		return nil, &phase.MalformedSourceError{Reason: "missing session or event schedule"}
	}

	dates, err := parseDates(src.Dates)
	if err != nil {
		return nil, &phase.MalformedSourceError{Reason: err.Error()}
	}

	doc := &Document{
		Code:       src.MeetingCode,
		Name:       strings.TrimSpace(src.Name),
		Dates:      dates,
		VenueName:  src.Venue,
		PoolName:   src.Pool,
		CityName:   src.City,
		PoolLength: src.PoolLength,
	}
	if doc.Code == "" {
		doc.Code = slugCode(doc.Name, dates[0])
	}

	teamIndex := make(map[string]string, len(src.Teams))
	for key, team := range src.Teams {
		name := team.Name
		if name == "" {
			name = key
		}
		teamIndex[key] = name
		doc.TeamNames = append(doc.TeamNames, name)
	}
	sortStrings(doc.TeamNames)

	doc.Swimmers, err = parseLayout1Swimmers(src.Swimmers)
	if err != nil {
		return nil, err
	}
	// Swimmer declarations reference teams by dictionary key; downstream
	// only knows team names.
	for i := range doc.Swimmers {
		if name, ok := teamIndex[doc.Swimmers[i].TeamKey]; ok {
			doc.Swimmers[i].TeamKey = name
		}
	}

	// Index event definitions by code, resolving titled relay events.
	eventDefs := make(map[string]Event, len(src.Events))
	for _, e := range src.Events {
		event, err := buildLayout1Event(e, cfg)
		if err != nil {
			return nil, err
		}
		eventDefs[event.Code] = *event
	}

	for i, s := range src.Sessions {
		date, err := parseDates([]string{s.Date})
		if err != nil || len(date) == 0 {
			return nil, &phase.MalformedSourceError{Reason: fmt.Sprintf("session %d has no valid date", i+1)}
		}
		order := s.Order
		if order == 0 {
			order = i + 1
		}
		session := Session{Order: order, Date: date[0], DayPart: s.DayPart}

		for _, code := range s.Events {
			def, ok := eventDefs[code]
			if !ok {
				return nil, &phase.MalformedSourceError{Reason: fmt.Sprintf("session references unknown event %q", code)}
			}
			event := def
			for _, r := range src.Results[code] {
				event.Rows = append(event.Rows, buildLayout1Row(r, event.Relay))
			}
			session.Events = append(session.Events, event)
		}
		doc.Sessions = append(doc.Sessions, session)
	}

	return doc, nil
}

// buildLayout1Event resolves an event definition: coded individual events
// carry distance and stroke directly, relay events carry either a full code
// or a natural-language title.
func buildLayout1Event(e layout1Event, cfg Config) (*Event, error) {
	if e.Relay && e.Code == "" && e.Title != "" {
		gender := ""
		if e.Mixed {
			gender = models.GenderMixed
		}
		title, err := ParseEventTitle(e.Title, gender, cfg.RelayStrokeFallback)
		if err != nil {
			return nil, err
		}
		return &Event{
			Code:        title.Code,
			Distance:    title.Distance,
			Stroke:      title.Stroke,
			Relay:       true,
			Mixed:       title.Mixed,
			LegCount:    title.LegCount,
			LegDistance: title.LegDistance,
			Category:    title.Category,
		}, nil
	}

	event := &Event{
		Code:        e.Code,
		Distance:    e.Distance,
		Stroke:      e.Stroke,
		Relay:       e.Relay,
		Mixed:       e.Mixed,
		LegCount:    e.LegCount,
		LegDistance: e.LegDistance,
	}
	if event.Code == "" {
		if e.Distance == 0 || !models.ValidStroke(e.Stroke) {
			return nil, &phase.MalformedSourceError{Reason: "event without code, distance or stroke"}
		}
		event.Code = models.IndividualEventCode(e.Distance, e.Stroke)
	}
	if event.Relay && event.Distance == 0 {
		event.Distance = event.LegCount * event.LegDistance
	}
	return event, nil
}

func buildLayout1Row(r layout1Result, relay bool) Row {
	row := Row{
		Team:     r.Team,
		Gender:   r.Gender,
		Category: r.Category,
		Rank:     r.Rank,
		Timing:   r.Timing,
	}
	applyStatus(&row, r.Status)

	if h, err := models.ParseTiming(r.Timing); err != nil {
		row.Errors = append(row.Errors, err.Error())
	} else {
		row.Hundredths = h
	}

	if !relay && r.Swimmer != "" {
		if gender, last, first, year, ok := parseSwimmerRef(r.Swimmer); ok {
			row.LastName, row.FirstName, row.YearOfBirth = last, first, year
			if row.Gender == "" {
				row.Gender = gender
			}
			row.FullName = strings.TrimSpace(last + " " + first)
		} else {
			row.Errors = append(row.Errors, fmt.Sprintf("unparseable swimmer reference %q", r.Swimmer))
		}
	}

	for _, lap := range r.Laps {
		row.Laps = append(row.Laps, buildSplit(lap, &row))
	}

	for _, leg := range r.Legs {
		l := Leg{Order: leg.Order, Gender: leg.Gender}
		if gender, last, first, year, ok := parseSwimmerRef(leg.Swimmer); ok {
			l.LastName, l.FirstName, l.YearOfBirth = last, first, year
			l.FullName = strings.TrimSpace(last + " " + first)
			if l.Gender == "" {
				l.Gender = gender
			}
		}
		if h, err := models.ParseTiming(leg.Timing); err != nil {
			row.Errors = append(row.Errors, err.Error())
		} else {
			l.Hundredths = h
		}
		for _, lap := range leg.Laps {
			l.Laps = append(l.Laps, buildSplit(lap, &row))
		}
		row.Legs = append(row.Legs, l)
	}

	return row
}

func buildSplit(lap layout1Lap, row *Row) Split {
	split := Split{Distance: lap.Distance}
	if h, err := models.ParseTiming(lap.Timing); err != nil {
		row.Errors = append(row.Errors, err.Error())
	} else {
		split.Cumulative = h
	}
	return split
}

// parseLayout1Swimmers accepts the two shapes of the swimmers structure: an
// array of composite pipe-delimited strings (LAST|FIRST|YEAR|GENDER|TEAM) or
// a dictionary of detail objects keyed by natural key.
func parseLayout1Swimmers(raw json.RawMessage) ([]SwimmerSpec, error) {
	if len(raw) == 0 {
		return nil, nil
	}

	var composites []string
	if err := json.Unmarshal(raw, &composites); err == nil {
		var out []SwimmerSpec
		for _, c := range composites {
			parts := strings.Split(c, "|")
			if len(parts) < 3 {
				return nil, &phase.MalformedSourceError{Reason: fmt.Sprintf("composite swimmer entry %q too short", c)}
			}
			year, _ := strconv.Atoi(parts[2])
			spec := SwimmerSpec{LastName: parts[0], FirstName: parts[1], YearOfBirth: year}
			if len(parts) > 3 {
				spec.Gender = parts[3]
			}
			if len(parts) > 4 {
				spec.TeamKey = parts[4]
			}
			spec.Key = models.SwimmerKey(spec.Gender, spec.LastName, spec.FirstName, spec.YearOfBirth)
			out = append(out, spec)
		}
		return out, nil
	}

	var details map[string]layout1SwimmerDetail
	if err := json.Unmarshal(raw, &details); err != nil {
		return nil, &phase.MalformedSourceError{Reason: "swimmers structure is neither array nor dictionary"}
	}
	var out []SwimmerSpec
	for _, d := range details {
		spec := SwimmerSpec{
			LastName:    d.LastName,
			FirstName:   d.FirstName,
			YearOfBirth: d.YearOfBirth,
			Gender:      d.Gender,
			TeamKey:     d.Team,
		}
		spec.Key = models.SwimmerKey(spec.Gender, spec.LastName, spec.FirstName, spec.YearOfBirth)
		out = append(out, spec)
	}
	sortSwimmerSpecs(out)
	return out, nil
}

// parseSwimmerRef parses a pipe-delimited swimmer reference, with or without
// the gender qualifier prefix.
func parseSwimmerRef(ref string) (gender, last, first string, year int, ok bool) {
	parts := strings.Split(ref, "|")
	if len(parts) == 4 && (parts[0] == models.GenderMale || parts[0] == models.GenderFemale || parts[0] == "") {
		gender, parts = parts[0], parts[1:]
	}
	if len(parts) != 3 {
		return "", "", "", 0, false
	}
	year, err := strconv.Atoi(parts[2])
	if err != nil {
		return "", "", "", 0, false
	}
	return gender, parts[0], parts[1], year, true
}

func applyStatus(row *Row, status string) {
	status = strings.ToUpper(strings.TrimSpace(status))
	if status == "" {
		return
	}
	row.StatusCode = status
	if status == "DSQ" {
		row.Disqualified = true
	}
}

package ingest

import (
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"

	"meet-importer/core/phase"
	"meet-importer/core/utils"
	"meet-importer/feature/meet/models"
)

// Layout 2 is the "sections" layout produced by crawled result lists: one
// section per ranking, the event described by a natural-language title, and
// rows as flat field maps with numbered relay-leg sub-fields and lap<dist>/
// delta<dist> split fields.

// maxRelayLegs caps the numbered swimmer sub-fields scanned on a relay row.
const maxRelayLegs = 8

type layout2Doc struct {
	Layout      int              `json:"layout"`
	Name        string           `json:"name"`
	MeetingCode string           `json:"meeting_code"`
	Dates       string           `json:"dates"` // semicolon separated
	Address     string           `json:"address"`
	PoolName    string           `json:"pool_name"`
	CityName    string           `json:"city_name"`
	PoolLength  any              `json:"pool_length"`
	Sections    []layout2Section `json:"sections"`
}

type layout2Section struct {
	Title       string           `json:"title"`
	FinGender   string           `json:"fin_gender"`
	FinCategory string           `json:"fin_category"`
	Date        string           `json:"date"`
	DayPart     string           `json:"day_part"`
	Rows        []map[string]any `json:"rows"`
}

func parseLayout2(data []byte, cfg Config) (*Document, error) {
	var src layout2Doc
	if err := json.Unmarshal(data, &src); err != nil {
		return nil, &phase.MalformedSourceError{Reason: fmt.Sprintf("layout 2 decode failed: %v", err)}
	}

	if strings.TrimSpace(src.Name) == "" {
		return nil, &phase.MalformedSourceError{Reason: "missing meeting name"}
	}
	if len(src.Sections) == 0 {
		return nil, &phase.MalformedSourceError{Reason: "document has no sections"}
	}

	dates, err := parseDates(strings.Split(src.Dates, ";"))
	if err != nil {
		return nil, &phase.MalformedSourceError{Reason: err.Error()}
	}
	if len(dates) == 0 {
		return nil, &phase.MalformedSourceError{Reason: "missing meeting dates"}
	}

	doc := &Document{
		Code:       src.MeetingCode,
		Name:       strings.TrimSpace(src.Name),
		Dates:      dates,
		VenueName:  src.Address,
		PoolName:   src.PoolName,
		CityName:   src.CityName,
		PoolLength: utils.ToInt(src.PoolLength),
	}
	if doc.Code == "" {
		doc.Code = slugCode(doc.Name, dates[0])
	}

	// Sections fold into one session per distinct date. Sections without
	// their own date belong to the first meeting date.
	type sessionKey struct {
		date    string
		dayPart string
	}
	sessions := make(map[sessionKey]*Session)

	for _, sec := range src.Sections {
		date := dates[0]
		if sec.Date != "" {
			parsed, err := parseDates([]string{sec.Date})
			if err != nil || len(parsed) == 0 {
				return nil, &phase.MalformedSourceError{Reason: fmt.Sprintf("section %q has invalid date %q", sec.Title, sec.Date)}
			}
			date = parsed[0]
		}

		event, err := buildLayout2Event(sec, cfg)
		if err != nil {
			return nil, err
		}

		key := sessionKey{date: date.Format(dateFormat), dayPart: sec.DayPart}
		session, ok := sessions[key]
		if !ok {
			session = &Session{Date: date, DayPart: sec.DayPart}
			sessions[key] = session
		}
		session.Events = append(session.Events, *event)
	}

	ordered := make([]*Session, 0, len(sessions))
	for _, s := range sessions {
		ordered = append(ordered, s)
	}
	sort.Slice(ordered, func(i, j int) bool {
		if !ordered[i].Date.Equal(ordered[j].Date) {
			return ordered[i].Date.Before(ordered[j].Date)
		}
		return ordered[i].DayPart < ordered[j].DayPart
	})
	for i, s := range ordered {
		s.Order = i + 1
		doc.Sessions = append(doc.Sessions, *s)
	}

	return doc, nil
}

func buildLayout2Event(sec layout2Section, cfg Config) (*Event, error) {
	title, err := ParseEventTitle(sec.Title, sec.FinGender, cfg.RelayStrokeFallback)

	event := &Event{Gender: sec.FinGender, Category: sec.FinCategory}
	if err != nil {
		// An ambiguous relay stroke keeps the section, flagged, so the
		// rest of the document still solves.
		var ambiguous *phase.AmbiguousParseError
		if errors.As(err, &ambiguous) {
			event.ParseErrors = append(event.ParseErrors, ambiguous.Error())
		} else {
			return nil, err
		}
	} else {
		event.Code = title.Code
		event.Distance = title.Distance
		event.Stroke = title.Stroke
		event.Relay = title.Relay
		event.Mixed = title.Mixed
		event.LegCount = title.LegCount
		event.LegDistance = title.LegDistance
		if event.Category == "" {
			event.Category = title.Category
		}
	}

	for _, raw := range sec.Rows {
		event.Rows = append(event.Rows, buildLayout2Row(raw, event))
	}
	return event, nil
}

func buildLayout2Row(raw map[string]any, event *Event) Row {
	row := Row{
		FullName: strings.TrimSpace(utils.ToString(raw["name"])),
		Team:     strings.TrimSpace(utils.ToString(raw["team"])),
		Gender:   strings.TrimSpace(utils.ToString(raw["gender"])),
		Category: event.Category,
		Rank:     utils.ToInt(raw["rank"]),
		Timing:   strings.TrimSpace(utils.ToString(raw["timing"])),
	}
	if row.Gender == "" && event.Gender != models.GenderMixed {
		row.Gender = event.Gender
	}
	row.LastName, row.FirstName = SplitFullName(row.FullName)
	row.YearOfBirth = utils.ToInt(raw["year_of_birth"])
	applyStatus(&row, utils.ToString(raw["status"]))

	if h, err := models.ParseTiming(row.Timing); err != nil {
		row.Errors = append(row.Errors, err.Error())
	} else {
		row.Hundredths = h
	}

	row.Laps = extractSplits(raw, &row)

	if event.Relay {
		for n := 1; n <= maxRelayLegs; n++ {
			name := strings.TrimSpace(utils.ToString(raw[fmt.Sprintf("swimmer%d", n)]))
			if name == "" {
				continue
			}
			leg := Leg{Order: n, FullName: name}
			leg.LastName, leg.FirstName = SplitFullName(name)
			leg.YearOfBirth = utils.ToInt(raw[fmt.Sprintf("year_of_birth%d", n)])
			leg.Gender = strings.TrimSpace(utils.ToString(raw[fmt.Sprintf("gender%d", n)]))
			if t := utils.ToString(raw[fmt.Sprintf("timing%d", n)]); t != "" {
				if h, err := models.ParseTiming(t); err != nil {
					row.Errors = append(row.Errors, err.Error())
				} else {
					leg.Hundredths = h
				}
			}
			row.Legs = append(row.Legs, leg)
		}
	}

	return row
}

// extractSplits collects lap<dist> (cumulative) and delta<dist> (explicit
// delta) fields from a flat row map, ordered by distance.
func extractSplits(raw map[string]any, row *Row) []Split {
	byDistance := make(map[int]*Split)

	for key, val := range raw {
		var kind string
		switch {
		case strings.HasPrefix(key, "lap"):
			kind = "lap"
		case strings.HasPrefix(key, "delta"):
			kind = "delta"
		default:
			continue
		}
		distance := utils.ToInt(strings.TrimPrefix(key, kind))
		if distance <= 0 {
			continue
		}

		label := strings.TrimSpace(utils.ToString(val))
		if label == "" {
			continue
		}
		h, err := models.ParseTiming(label)
		if err != nil {
			row.Errors = append(row.Errors, fmt.Sprintf("split %s: %v", key, err))
			continue
		}

		split, ok := byDistance[distance]
		if !ok {
			split = &Split{Distance: distance}
			byDistance[distance] = split
		}
		if kind == "lap" {
			split.Cumulative = h
		} else {
			split.Delta = h
		}
	}

	if len(byDistance) == 0 {
		return nil
	}
	out := make([]Split, 0, len(byDistance))
	for _, s := range byDistance {
		out = append(out, *s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Distance < out[j].Distance })
	return out
}

package solve

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"meet-importer/core/logger"
	"meet-importer/core/matcher"
	"meet-importer/core/phase"
	"meet-importer/feature/meet/ingest"
	"meet-importer/feature/meet/models"
)

// VenuePayload is the phase 1 artifact: the meeting header plus one entry
// per derived session with its independently matched pool and city.
type VenuePayload struct {
	Meeting  MeetingEntry   `json:"meeting"`
	Sessions []SessionEntry `json:"sessions"`
}

// MeetingEntry resolves the meeting header against the season's meetings.
type MeetingEntry struct {
	phase.Entry
	Name      string     `json:"name"`
	VenueName string     `json:"venue_name,omitempty"`
	StartDate *time.Time `json:"start_date,omitempty"`
	EndDate   *time.Time `json:"end_date,omitempty"`
}

// SessionEntry is one derived session with its venue sub-entries.
type SessionEntry struct {
	phase.Entry
	Order   int       `json:"order"`
	Date    time.Time `json:"date"`
	DayPart string    `json:"day_part,omitempty"`
	Pool    PoolEntry `json:"pool"`
	City    CityEntry `json:"city"`
}

// PoolEntry resolves a pool name.
type PoolEntry struct {
	phase.Entry
	Name       string `json:"name,omitempty"`
	LaneLength int    `json:"lane_length,omitempty"`
}

// CityEntry resolves a city name.
type CityEntry struct {
	phase.Entry
	Name string `json:"name,omitempty"`
}

// SessionByOrder returns the session entry with the given order, nil when
// absent.
func (p *VenuePayload) SessionByOrder(order int) *SessionEntry {
	for i := range p.Sessions {
		if p.Sessions[i].Order == order {
			return &p.Sessions[i]
		}
	}
	return nil
}

// SolveVenues runs phase 1: it extracts the meeting header, derives at least
// one session per distinct date and fuzzy-matches meeting, pool and city
// independently against the store. The artifact insert is the last step.
func (s *Solver) SolveVenues(ctx context.Context, doc *ingest.Document) (*VenuePayload, *phase.Artifact, error) {
	if len(doc.Dates) == 0 {
		return nil, nil, &phase.MalformedSourceError{Reason: "document has no dates"}
	}

	payload := &VenuePayload{
		Meeting: MeetingEntry{
			Entry:     phase.Entry{Key: doc.Code},
			Name:      doc.Name,
			VenueName: doc.VenueName,
		},
	}
	start, end := doc.Dates[0], doc.Dates[len(doc.Dates)-1]
	payload.Meeting.StartDate = &start
	payload.Meeting.EndDate = &end

	if err := s.matchMeeting(ctx, doc, &payload.Meeting); err != nil {
		return nil, nil, err
	}

	poolItems, cityItems, err := s.venueSnapshots(ctx)
	if err != nil {
		return nil, nil, err
	}

	for _, session := range doc.Sessions {
		entry := SessionEntry{
			Entry:   phase.Entry{Key: fmt.Sprintf("%s-S%d", doc.Code, session.Order)},
			Order:   session.Order,
			Date:    session.Date,
			DayPart: session.DayPart,
			Pool:    PoolEntry{Name: doc.PoolName, LaneLength: doc.PoolLength},
			City:    CityEntry{Name: doc.CityName},
		}
		entry.Pool.Key = matcher.Normalize(doc.PoolName)
		entry.City.Key = matcher.Normalize(doc.CityName)

		if payload.Meeting.Resolved() {
			var existing models.MeetingSession
			err := s.DB.WithContext(ctx).
				Where("meeting_id = ? AND session_order = ?", *payload.Meeting.ID, session.Order).
				First(&existing).Error
			switch {
			case err == nil:
				entry.Assign(existing.ID, 1)
			case err != gorm.ErrRecordNotFound:
				return nil, nil, fmt.Errorf("failed to look up session: %w", err)
			}
		}

		if doc.CityName != "" {
			res := s.Matcher.Search(matcher.Query{Primary: doc.CityName}, cityItems, s.Matcher.Config().City, 0)
			entry.City.Apply(res)
		}
		if doc.PoolName != "" {
			res := s.Matcher.Search(matcher.Query{Primary: doc.PoolName}, poolItems, s.Matcher.Config().Pool, 0)
			entry.Pool.Apply(res)
		}

		payload.Sessions = append(payload.Sessions, entry)
	}

	artifact, err := s.Artifacts.Save(ctx, doc.Code, phase.PhaseVenue, "venue-solver", "", payload)
	if err != nil {
		return nil, nil, err
	}

	logger.WithSource(s.Log, doc.Code).Info("venue phase solved",
		zap.Bool("meeting_matched", payload.Meeting.Resolved()),
		zap.Int("sessions", len(payload.Sessions)))
	return payload, artifact, nil
}

// matchMeeting fuzzy-matches the meeting header against the season's
// meetings, pre-filtered by a partial name match to keep the candidate set
// small.
func (s *Solver) matchMeeting(ctx context.Context, doc *ingest.Document, entry *MeetingEntry) error {
	var exact models.Meeting
	err := s.DB.WithContext(ctx).Where("code = ?", doc.Code).First(&exact).Error
	switch {
	case err == nil:
		entry.Assign(exact.ID, 1)
		return nil
	case err != gorm.ErrRecordNotFound:
		return fmt.Errorf("failed to look up meeting code: %w", err)
	}

	query := s.DB.WithContext(ctx).Model(&models.Meeting{}).
		Where("season_id = ?", s.Config.SeasonID)
	if token := firstToken(doc.Name); token != "" {
		query = query.Where("name LIKE ?", "%"+token+"%")
	}

	var rows []snapshotRow
	if err := query.Select("id, name AS value").Scan(&rows).Error; err != nil {
		return fmt.Errorf("failed to snapshot meetings: %w", err)
	}

	res := s.Matcher.Search(matcher.Query{Primary: doc.Name}, toItems(rows), s.Matcher.Config().Meeting, 0)
	entry.Apply(res)
	return nil
}

func (s *Solver) venueSnapshots(ctx context.Context) (pools, cities []matcher.Item, err error) {
	var poolRows []snapshotRow
	err = s.DB.WithContext(ctx).Model(&models.SwimmingPool{}).
		Select("id, name AS value").Scan(&poolRows).Error
	if err != nil {
		return nil, nil, fmt.Errorf("failed to snapshot pools: %w", err)
	}

	var cityRows []snapshotRow
	err = s.DB.WithContext(ctx).Model(&models.City{}).
		Select("id, name AS value").Scan(&cityRows).Error
	if err != nil {
		return nil, nil, fmt.Errorf("failed to snapshot cities: %w", err)
	}

	return toItems(poolRows), toItems(cityRows), nil
}

// firstToken returns the first meaningful word of a meeting name, skipping
// short filler words so the LIKE pre-filter keeps its selectivity.
func firstToken(name string) string {
	for _, f := range strings.Fields(matcher.Normalize(name)) {
		if len(f) > 3 {
			return f
		}
	}
	return ""
}

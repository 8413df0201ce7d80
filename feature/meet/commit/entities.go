package commit

import (
	"fmt"
	"time"

	"gorm.io/gorm"

	"meet-importer/core/matcher"
	"meet-importer/feature/meet/models"
	"meet-importer/feature/meet/solve"
)

// txRun is the state of one commit transaction: the loaded payloads, the
// identifier maps filled as entities are matched or created, and the staging
// rows consumed so far.
type txRun struct {
	o         *Orchestrator
	tx        *gorm.DB
	audit     *auditWriter
	sourceRef string
	summary   *Summary

	venues   *solve.VenuePayload
	teams    *solve.TeamPayload
	swimmers *solve.SwimmerPayload
	events   *solve.EventPayload

	cityIDs         map[string]uint
	poolIDs         map[string]uint
	meetingID       uint
	sessionIDs      map[int]uint
	teamIDs         map[string]uint
	swimmerIDs      map[string]uint
	badgeIDs        map[string]uint
	eventTypeIDs    map[string]uint
	meetingEventIDs map[string]uint

	consumed []uint
}

// commitVenues commits the venue cluster in dependency order: cities, then
// pools, the meeting, and its sessions.
func (r *txRun) commitVenues() error {
	for i := range r.venues.Sessions {
		if err := r.commitCity(&r.venues.Sessions[i].City); err != nil {
			return err
		}
		if err := r.commitPool(&r.venues.Sessions[i]); err != nil {
			return err
		}
	}
	if err := r.commitMeeting(); err != nil {
		return err
	}
	for i := range r.venues.Sessions {
		if err := r.commitSession(&r.venues.Sessions[i]); err != nil {
			return err
		}
	}
	return nil
}

func (r *txRun) commitCity(entry *solve.CityEntry) error {
	if entry.Key == "" {
		return nil
	}
	if _, done := r.cityIDs[entry.Key]; done {
		return nil
	}
	if entry.Resolved() {
		r.cityIDs[entry.Key] = *entry.ID
		r.summary.skipped("city")
		return nil
	}

	city := models.City{Name: entry.Name}
	if err := r.tx.Create(&city).Error; err != nil {
		return persistErr("city", entry.Key, err)
	}
	if err := r.audit.insert("city", entry.Key, map[string]any{"name": city.Name}); err != nil {
		return err
	}
	r.cityIDs[entry.Key] = city.ID
	r.summary.created("city")
	return nil
}

func (r *txRun) commitPool(session *solve.SessionEntry) error {
	entry := &session.Pool
	if entry.Key == "" {
		return nil
	}
	if _, done := r.poolIDs[entry.Key]; done {
		return nil
	}
	if entry.Resolved() {
		r.poolIDs[entry.Key] = *entry.ID
		r.summary.skipped("pool")
		return nil
	}

	pool := models.SwimmingPool{Name: entry.Name, LaneLength: entry.LaneLength}
	if id, ok := r.cityIDs[session.City.Key]; ok {
		pool.CityID = &id
	}
	if err := r.tx.Create(&pool).Error; err != nil {
		return persistErr("pool", entry.Key, err)
	}
	err := r.audit.insert("pool", entry.Key, map[string]any{
		"name": pool.Name, "city_id": pool.CityID, "lane_length": pool.LaneLength,
	})
	if err != nil {
		return err
	}
	r.poolIDs[entry.Key] = pool.ID
	r.summary.created("pool")
	return nil
}

// commitMeeting creates the meeting or, since meetings can legitimately
// change between imports, diffs the header against the matched record and
// updates only on change.
func (r *txRun) commitMeeting() error {
	entry := &r.venues.Meeting

	if !entry.Resolved() {
		meeting := models.Meeting{
			SeasonID:  r.o.Config.SeasonID,
			Code:      entry.Key,
			Name:      entry.Name,
			VenueName: entry.VenueName,
			StartDate: entry.StartDate,
			EndDate:   entry.EndDate,
		}
		if err := r.tx.Create(&meeting).Error; err != nil {
			return persistErr("meeting", entry.Key, err)
		}
		err := r.audit.insert("meeting", entry.Key, map[string]any{
			"season_id": meeting.SeasonID, "code": meeting.Code, "name": meeting.Name,
			"venue_name": meeting.VenueName,
			"start_date": meeting.StartDate, "end_date": meeting.EndDate,
		})
		if err != nil {
			return err
		}
		r.meetingID = meeting.ID
		r.summary.created("meeting")
		return nil
	}

	r.meetingID = *entry.ID
	var existing models.Meeting
	if err := r.tx.First(&existing, r.meetingID).Error; err != nil {
		return persistErr("meeting", entry.Key, err)
	}

	changes := map[string]any{}
	if entry.Name != "" && entry.Name != existing.Name {
		changes["name"] = entry.Name
	}
	if entry.VenueName != "" && entry.VenueName != existing.VenueName {
		changes["venue_name"] = entry.VenueName
	}
	if entry.StartDate != nil && !timesEqual(existing.StartDate, entry.StartDate) {
		changes["start_date"] = entry.StartDate
	}
	if entry.EndDate != nil && !timesEqual(existing.EndDate, entry.EndDate) {
		changes["end_date"] = entry.EndDate
	}
	if len(changes) == 0 {
		r.summary.skipped("meeting")
		return nil
	}

	if err := r.tx.Model(&existing).Updates(changes).Error; err != nil {
		return persistErr("meeting", entry.Key, err)
	}
	if err := r.audit.update("meeting", entry.Key, changes); err != nil {
		return err
	}
	r.summary.updated("meeting")
	return nil
}

func (r *txRun) commitSession(entry *solve.SessionEntry) error {
	poolID := entry.Pool.ID
	if poolID == nil {
		if id, ok := r.poolIDs[entry.Pool.Key]; ok {
			poolID = &id
		}
	}

	if !entry.Resolved() {
		session := models.MeetingSession{
			MeetingID:     r.meetingID,
			SessionOrder:  entry.Order,
			ScheduledDate: &entry.Date,
			DayPart:       entry.DayPart,
			PoolID:        poolID,
		}
		if err := r.tx.Create(&session).Error; err != nil {
			return persistErr("session", entry.Key, err)
		}
		err := r.audit.insert("session", entry.Key, map[string]any{
			"meeting_id": session.MeetingID, "session_order": session.SessionOrder,
			"scheduled_date": session.ScheduledDate, "day_part": session.DayPart,
			"pool_id": session.PoolID,
		})
		if err != nil {
			return err
		}
		r.sessionIDs[entry.Order] = session.ID
		r.summary.created("session")
		return nil
	}

	r.sessionIDs[entry.Order] = *entry.ID
	var existing models.MeetingSession
	if err := r.tx.First(&existing, *entry.ID).Error; err != nil {
		return persistErr("session", entry.Key, err)
	}

	changes := map[string]any{}
	if !timesEqual(existing.ScheduledDate, &entry.Date) {
		changes["scheduled_date"] = entry.Date
	}
	if entry.DayPart != "" && entry.DayPart != existing.DayPart {
		changes["day_part"] = entry.DayPart
	}
	if poolID != nil && (existing.PoolID == nil || *existing.PoolID != *poolID) {
		changes["pool_id"] = *poolID
	}
	if len(changes) == 0 {
		r.summary.skipped("session")
		return nil
	}

	if err := r.tx.Model(&existing).Updates(changes).Error; err != nil {
		return persistErr("session", entry.Key, err)
	}
	if err := r.audit.update("session", entry.Key, changes); err != nil {
		return err
	}
	r.summary.updated("session")
	return nil
}

// commitTeams commits the club registry entries and their season
// affiliations. Affiliations resolved in phase 2 were already written there.
func (r *txRun) commitTeams() error {
	for i := range r.teams.Teams {
		entry := &r.teams.Teams[i]

		if entry.Resolved() {
			r.teamIDs[entry.Key] = *entry.ID
			r.summary.skipped("team")
		} else {
			team := models.Team{Name: entry.Name, EditableName: entry.Name}
			if err := r.tx.Create(&team).Error; err != nil {
				return persistErr("team", entry.Key, err)
			}
			if err := r.audit.insert("team", entry.Key, map[string]any{"name": team.Name}); err != nil {
				return err
			}
			r.teamIDs[entry.Key] = team.ID
			r.summary.created("team")
		}

		if entry.AffiliationID != nil {
			r.summary.skipped("team_affiliation")
			continue
		}
		affiliation := models.TeamAffiliation{
			SeasonID: r.o.Config.SeasonID,
			TeamID:   r.teamIDs[entry.Key],
			Name:     entry.Name,
		}
		if err := r.tx.Create(&affiliation).Error; err != nil {
			return persistErr("team_affiliation", entry.Key, err)
		}
		err := r.audit.insert("team_affiliation", entry.Key, map[string]any{
			"season_id": affiliation.SeasonID, "team_id": affiliation.TeamID, "name": affiliation.Name,
		})
		if err != nil {
			return err
		}
		r.summary.created("team_affiliation")
	}
	return nil
}

// commitSwimmers commits unmatched athlete identities and their season
// badges. Partial badges (unresolved swimmer or team side) are skipped and
// survive in the artifact for manual resolution.
func (r *txRun) commitSwimmers() error {
	for i := range r.swimmers.Swimmers {
		entry := &r.swimmers.Swimmers[i]
		identity := models.IdentityOf(entry.Key)

		if entry.Resolved() {
			r.swimmerIDs[identity] = *entry.ID
			r.summary.skipped("swimmer")
		} else {
			swimmer := models.Swimmer{
				LastName:     entry.LastName,
				FirstName:    entry.FirstName,
				YearOfBirth:  entry.YearOfBirth,
				Gender:       entry.Gender,
				CompleteName: fmt.Sprintf("%s %s %d", entry.LastName, entry.FirstName, entry.YearOfBirth),
			}
			if err := r.tx.Create(&swimmer).Error; err != nil {
				return persistErr("swimmer", entry.Key, err)
			}
			err := r.audit.insert("swimmer", entry.Key, map[string]any{
				"last_name": swimmer.LastName, "first_name": swimmer.FirstName,
				"year_of_birth": swimmer.YearOfBirth, "gender": swimmer.Gender,
			})
			if err != nil {
				return err
			}
			r.swimmerIDs[identity] = swimmer.ID
			r.summary.created("swimmer")
		}

		if err := r.commitBadge(entry, identity); err != nil {
			return err
		}
	}
	return nil
}

func (r *txRun) commitBadge(entry *solve.SwimmerEntry, identity string) error {
	badge := &entry.Badge
	if badge.Resolved() {
		r.badgeIDs[identity] = *badge.ID
		r.summary.skipped("badge")
		return nil
	}

	swimmerID := badge.SwimmerID
	if swimmerID == nil {
		if id, ok := r.swimmerIDs[identity]; ok {
			swimmerID = &id
		}
	}
	teamID := badge.TeamID
	if teamID == nil {
		if id, ok := r.teamIDs[matcher.Normalize(entry.TeamName)]; ok {
			teamID = &id
		}
	}
	if swimmerID == nil || teamID == nil {
		r.summary.skipped("badge")
		return nil
	}

	record := models.Badge{
		SeasonID:     r.o.Config.SeasonID,
		SwimmerID:    *swimmerID,
		TeamID:       *teamID,
		CategoryCode: badge.CategoryCode,
	}
	if err := r.tx.Create(&record).Error; err != nil {
		return persistErr("badge", badge.Key, err)
	}
	err := r.audit.insert("badge", badge.Key, map[string]any{
		"season_id": record.SeasonID, "swimmer_id": record.SwimmerID,
		"team_id": record.TeamID, "category_code": record.CategoryCode,
	})
	if err != nil {
		return err
	}
	r.badgeIDs[identity] = record.ID
	r.summary.created("badge")
	return nil
}

// commitEvents commits event types (find-or-create by code) and the
// MeetingEvent schedule entries.
func (r *txRun) commitEvents() error {
	for i := range r.events.Events {
		entry := &r.events.Events[i]

		if entry.EventTypeID != nil {
			r.eventTypeIDs[entry.Code] = *entry.EventTypeID
			r.summary.skipped("event_type")
		} else if _, done := r.eventTypeIDs[entry.Code]; !done {
			eventType := models.EventType{
				Code:        entry.Code,
				Distance:    entry.Distance,
				Stroke:      entry.Stroke,
				Relay:       entry.Relay,
				Mixed:       entry.Mixed,
				LegCount:    entry.LegCount,
				LegDistance: entry.LegDistance,
			}
			if err := r.tx.Create(&eventType).Error; err != nil {
				return persistErr("event_type", entry.Code, err)
			}
			err := r.audit.insert("event_type", entry.Code, map[string]any{
				"code": eventType.Code, "distance": eventType.Distance,
				"stroke": eventType.Stroke, "relay": eventType.Relay,
				"mixed": eventType.Mixed, "leg_count": eventType.LegCount,
				"leg_distance": eventType.LegDistance,
			})
			if err != nil {
				return err
			}
			r.eventTypeIDs[entry.Code] = eventType.ID
			r.summary.created("event_type")
		}

		if entry.Resolved() {
			r.meetingEventIDs[entry.Key] = *entry.ID
			r.summary.skipped("meeting_event")
			continue
		}

		sessionID, ok := r.sessionIDs[entry.SessionOrder]
		if !ok {
			return persistErr("meeting_event", entry.Key,
				fmt.Errorf("no session with order %d", entry.SessionOrder))
		}
		scheduled := models.MeetingEvent{
			SessionID:   sessionID,
			EventTypeID: r.eventTypeIDs[entry.Code],
		}
		if err := r.tx.Create(&scheduled).Error; err != nil {
			return persistErr("meeting_event", entry.Key, err)
		}
		err := r.audit.insert("meeting_event", entry.Key, map[string]any{
			"session_id": scheduled.SessionID, "event_type_id": scheduled.EventTypeID,
		})
		if err != nil {
			return err
		}
		r.meetingEventIDs[entry.Key] = scheduled.ID
		r.summary.created("meeting_event")
	}
	return nil
}

func timesEqual(a, b *time.Time) bool {
	if a == nil || b == nil {
		return a == b
	}
	return a.Equal(*b)
}

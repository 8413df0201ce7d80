package solve

import (
	"context"
	"fmt"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"meet-importer/core/logger"
	"meet-importer/core/phase"
	"meet-importer/feature/meet/ingest"
	"meet-importer/feature/meet/models"
)

// EventPayload is the phase 4 artifact: one entry per distinct event per
// session. The entry ID is the pre-matched MeetingEvent; the event type
// reference is carried separately because both resolve independently.
type EventPayload struct {
	// Coalesced marks a relay-only document whose sections were folded
	// into a single session.
	Coalesced bool         `json:"coalesced,omitempty"`
	Events    []EventEntry `json:"events"`
}

// EventEntry is one scheduled event.
type EventEntry struct {
	phase.Entry
	SessionOrder int    `json:"session_order"`
	Code         string `json:"code"`
	Distance     int    `json:"distance"`
	Stroke       string `json:"stroke"`
	Relay        bool   `json:"relay,omitempty"`
	Mixed        bool   `json:"mixed,omitempty"`
	LegCount     int    `json:"leg_count,omitempty"`
	LegDistance  int    `json:"leg_distance,omitempty"`
	Gender       string `json:"gender,omitempty"`
	EventTypeID  *uint  `json:"event_type_id,omitempty"`
}

// Find returns the entry for an event occurrence. On coalesced payloads the
// session order is ignored: every section maps onto the single derived
// session.
func (p *EventPayload) Find(sessionOrder int, code, gender string) *EventEntry {
	for i := range p.Events {
		e := &p.Events[i]
		if e.Code != code {
			continue
		}
		if !p.Coalesced && e.SessionOrder != sessionOrder {
			continue
		}
		if e.Relay && e.Gender != "" && gender != "" && e.Gender != gender {
			continue
		}
		return e
	}
	return nil
}

// SolveEvents runs phase 4: it deduplicates the raced events per session
// (individual events by distance and stroke, relays by code and gender),
// resolves each against the event-type registry and pre-matches the
// session's MeetingEvent schedule entry. Relay-only documents, typically
// relay-championship heat sheets with one section per heat, coalesce into a
// single session instead of one session per heat.
func (s *Solver) SolveEvents(ctx context.Context, doc *ingest.Document) (*EventPayload, *phase.Artifact, error) {
	var venues VenuePayload
	parent, err := s.Artifacts.Load(ctx, doc.Code, phase.PhaseVenue, &venues)
	if err != nil {
		return nil, nil, err
	}

	payload := &EventPayload{Coalesced: doc.RelayOnly() && len(doc.Sessions) > 1}

	seen := make(map[string]bool)
	for _, session := range doc.Sessions {
		order := session.Order
		if payload.Coalesced {
			order = doc.Sessions[0].Order
		}
		for _, event := range session.Events {
			if event.Code == "" {
				// Sections that failed title classification carry no
				// event identity to schedule.
				continue
			}
			entry := buildEventEntry(order, event)
			if seen[entry.Key] {
				continue
			}
			seen[entry.Key] = true

			if err := s.resolveEventEntry(ctx, &entry, &venues); err != nil {
				return nil, nil, err
			}
			payload.Events = append(payload.Events, entry)
		}
	}

	artifact, err := s.Artifacts.Save(ctx, doc.Code, phase.PhaseEvent, "event-solver", parent.Checksum, payload)
	if err != nil {
		return nil, nil, err
	}

	logger.WithSource(s.Log, doc.Code).Info("event phase solved",
		zap.Bool("coalesced", payload.Coalesced),
		zap.Int("events", len(payload.Events)))
	return payload, artifact, nil
}

func buildEventEntry(sessionOrder int, event ingest.Event) EventEntry {
	entry := EventEntry{
		SessionOrder: sessionOrder,
		Code:         event.Code,
		Distance:     event.Distance,
		Stroke:       event.Stroke,
		Relay:        event.Relay,
		Mixed:        event.Mixed,
		LegCount:     event.LegCount,
		LegDistance:  event.LegDistance,
	}
	if event.Relay {
		// Same-coded relays of different program genders stay distinct.
		entry.Gender = event.Gender
		entry.Key = fmt.Sprintf("S%d-%s-%s", sessionOrder, event.Code, event.Gender)
	} else {
		entry.Key = fmt.Sprintf("S%d-%s", sessionOrder, event.Code)
	}
	return entry
}

// resolveEventEntry looks up the event type by its exact code and, when both
// the session and the type are known, pre-matches the MeetingEvent schedule
// row. An unknown event type is not an error: the commit orchestrator
// creates it.
func (s *Solver) resolveEventEntry(ctx context.Context, entry *EventEntry, venues *VenuePayload) error {
	var eventType models.EventType
	err := s.DB.WithContext(ctx).Where("code = ?", entry.Code).First(&eventType).Error
	switch {
	case err == nil:
		entry.EventTypeID = &eventType.ID
	case err == gorm.ErrRecordNotFound:
		return nil
	default:
		return fmt.Errorf("failed to look up event type %q: %w", entry.Code, err)
	}

	session := venues.SessionByOrder(entry.SessionOrder)
	if session == nil || !session.Resolved() {
		return nil
	}

	var existing models.MeetingEvent
	err = s.DB.WithContext(ctx).
		Where("session_id = ? AND event_type_id = ?", *session.ID, eventType.ID).
		First(&existing).Error
	switch {
	case err == nil:
		entry.Assign(existing.ID, 1)
	case err != gorm.ErrRecordNotFound:
		return fmt.Errorf("failed to look up meeting event: %w", err)
	}
	return nil
}

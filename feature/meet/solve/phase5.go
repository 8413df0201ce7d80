package solve

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"meet-importer/core/logger"
	"meet-importer/core/matcher"
	"meet-importer/core/phase"
	"meet-importer/feature/meet/ingest"
	"meet-importer/feature/meet/models"
	"meet-importer/feature/meet/staging"
)

// ResultSummary is the phase 5 artifact. Result rows themselves go to the
// staging table; the artifact only carries the per-program counts and
// totals, so its size stays flat regardless of meet volume.
type ResultSummary struct {
	Counts []ResultCount `json:"counts"`
	// Rows is the number of staged result rows.
	Rows int `json:"rows"`
	// Laps is the number of splits staged across all rows and legs.
	Laps int `json:"laps"`
	// Unlinked counts rows staged without a program reference.
	Unlinked int `json:"unlinked,omitempty"`
	// Skipped counts rows of sections that carried no event identity.
	Skipped int `json:"skipped,omitempty"`
}

// ResultCount is one (event, category, gender) bucket.
type ResultCount struct {
	EventCode    string `json:"event_code"`
	CategoryCode string `json:"category_code,omitempty"`
	Gender       string `json:"gender,omitempty"`
	Results      int    `json:"results"`
}

// SolveResults runs phase 5: it walks every result row, resolves the
// program chain (event type, category, gender), derives delta times from
// cumulative splits, assigns relay-leg strokes and stages the rows keyed by
// import key. A row whose program lookup fails is staged anyway with a null
// program reference for later manual linking.
func (s *Solver) SolveResults(ctx context.Context, doc *ingest.Document) (*ResultSummary, *phase.Artifact, error) {
	var venues VenuePayload
	if _, err := s.Artifacts.Load(ctx, doc.Code, phase.PhaseVenue, &venues); err != nil {
		return nil, nil, err
	}
	var teams TeamPayload
	if _, err := s.Artifacts.Load(ctx, doc.Code, phase.PhaseTeam, &teams); err != nil {
		return nil, nil, err
	}
	var swimmers SwimmerPayload
	if _, err := s.Artifacts.Load(ctx, doc.Code, phase.PhaseSwimmer, &swimmers); err != nil {
		return nil, nil, err
	}
	var events EventPayload
	parent, err := s.Artifacts.Load(ctx, doc.Code, phase.PhaseEvent, &events)
	if err != nil {
		return nil, nil, err
	}

	run := &resultRun{
		solver:   s,
		doc:      doc,
		venues:   &venues,
		teams:    &teams,
		swimmers: &swimmers,
		events:   &events,
		summary:  &ResultSummary{},
		buckets:  make(map[string]*ResultCount),
	}

	for _, session := range doc.Sessions {
		for _, event := range session.Events {
			if event.Code == "" {
				run.summary.Skipped += len(event.Rows)
				continue
			}
			for _, row := range event.Rows {
				if err := run.stageRow(ctx, session, event, row); err != nil {
					return nil, nil, err
				}
			}
		}
	}
	run.finalize()

	if err := s.Staging.SaveBatch(ctx, run.rows); err != nil {
		return nil, nil, err
	}

	artifact, err := s.Artifacts.Save(ctx, doc.Code, phase.PhaseResult, "result-solver", parent.Checksum, run.summary)
	if err != nil {
		return nil, nil, err
	}

	logger.WithSource(s.Log, doc.Code).Info("result phase solved",
		zap.Int("rows", run.summary.Rows),
		zap.Int("laps", run.summary.Laps),
		zap.Int("unlinked", run.summary.Unlinked))
	return run.summary, artifact, nil
}

// resultRun carries the per-document state of one phase 5 execution.
type resultRun struct {
	solver   *Solver
	doc      *ingest.Document
	venues   *VenuePayload
	teams    *TeamPayload
	swimmers *SwimmerPayload
	events   *EventPayload
	rows     []staging.Row
	summary  *ResultSummary
	buckets  map[string]*ResultCount
}

func (r *resultRun) stageRow(ctx context.Context, session ingest.Session, event ingest.Event, row ingest.Row) error {
	if event.Relay {
		return r.stageRelayRow(ctx, session, event, row)
	}
	return r.stageIndividualRow(ctx, session, event, row)
}

func (r *resultRun) stageIndividualRow(ctx context.Context, session ingest.Session, event ingest.Event, row ingest.Row) error {
	rowErrors := append([]string(nil), row.Errors...)

	gender := row.Gender
	entry := r.swimmers.Find(row.SwimmerKey())
	if entry != nil && gender == "" {
		gender = entry.Gender
	}

	category, err := r.resolveCategory(ctx, row.Category, entry)
	if err != nil {
		rowErrors = append(rowErrors, err.Error())
	}

	staged := staging.Row{
		SourceRef:    r.doc.Code,
		Kind:         staging.KindIndividual,
		SessionOrder: session.Order,
		EventCode:    event.Code,
		CategoryCode: category,
		Gender:       gender,
		TeamKey:      matcher.Normalize(row.Team),
		Rank:         row.Rank,
		Hundredths:   row.Hundredths,
		StatusCode:   row.StatusCode,
		Disqualified: row.Disqualified,
	}

	identity := models.IdentityOf(row.SwimmerKey())
	if entry != nil {
		staged.SwimmerKey = entry.Key
		identity = models.IdentityOf(entry.Key)
		if entry.Resolved() {
			staged.SwimmerID = entry.ID
		}
		if entry.Badge.Resolved() {
			staged.BadgeID = entry.Badge.ID
		}
	} else {
		staged.SwimmerKey = row.SwimmerKey()
		rowErrors = append(rowErrors, (&phase.UnresolvedReferenceError{
			Entity: "swimmer", Key: row.SwimmerKey(), Reason: "identity missing from swimmer artifact",
		}).Error())
	}
	staged.ImportKey = staging.IndividualKey(r.doc.Code, session.Order, event.Code, identity)

	if team := r.teams.Find(row.Team); team != nil && team.Resolved() {
		staged.TeamID = team.ID
	}

	programID, err := r.lookupProgram(ctx, session.Order, event, category, gender)
	if err != nil {
		return err
	}
	staged.ProgramID = programID
	if programID == nil {
		r.summary.Unlinked++
		rowErrors = append(rowErrors, (&phase.UnresolvedReferenceError{
			Entity: "program", Key: staged.ImportKey, Reason: "no program for event/category/gender triple",
		}).Error())
	}

	if staged.ProgramID != nil && staged.SwimmerID != nil && staged.TeamID != nil {
		var existing models.IndividualResult
		err := r.solver.DB.WithContext(ctx).
			Where("program_id = ? AND swimmer_id = ? AND team_id = ?",
				*staged.ProgramID, *staged.SwimmerID, *staged.TeamID).
			First(&existing).Error
		switch {
		case err == nil:
			staged.ExistingResultID = &existing.ID
		case err != gorm.ErrRecordNotFound:
			return fmt.Errorf("failed to pre-check individual result: %w", err)
		}
	}

	laps := deriveLaps(row.Laps)
	r.summary.Laps += len(laps)
	if staged.Laps, err = marshalPayload(laps); err != nil {
		return err
	}

	staged.Errors = strings.Join(rowErrors, "; ")
	r.append(staged)
	return nil
}

func (r *resultRun) stageRelayRow(ctx context.Context, session ingest.Session, event ingest.Event, row ingest.Row) error {
	rowErrors := append([]string(nil), row.Errors...)

	gender := event.Gender
	if event.Mixed {
		gender = models.GenderMixed
	}
	teamKey := matcher.Normalize(row.Team)
	importKey := staging.RelayKey(r.doc.Code, session.Order, event.Code, teamKey, gender)

	staged := staging.Row{
		SourceRef:    r.doc.Code,
		ImportKey:    importKey,
		Kind:         staging.KindRelay,
		SessionOrder: session.Order,
		EventCode:    event.Code,
		Gender:       gender,
		TeamKey:      teamKey,
		Rank:         row.Rank,
		Hundredths:   row.Hundredths,
		StatusCode:   row.StatusCode,
		Disqualified: row.Disqualified,
	}

	if team := r.teams.Find(row.Team); team != nil && team.Resolved() {
		staged.TeamID = team.ID
	}

	category, err := r.resolveRelayCategory(ctx, row)
	if err != nil {
		rowErrors = append(rowErrors, err.Error())
	}
	staged.CategoryCode = category

	legs, legLaps := r.buildLegs(event, row, importKey)
	r.summary.Laps += legLaps
	if staged.Legs, err = marshalPayload(legs); err != nil {
		return err
	}

	// Splits attach to individual results or relay legs, never to the relay
	// row itself, so row-level splits are not staged.

	programID, err := r.lookupProgram(ctx, session.Order, event, category, gender)
	if err != nil {
		return err
	}
	staged.ProgramID = programID
	if programID == nil {
		r.summary.Unlinked++
		rowErrors = append(rowErrors, (&phase.UnresolvedReferenceError{
			Entity: "program", Key: importKey, Reason: "no program for event/category/gender triple",
		}).Error())
	}

	if staged.ProgramID != nil && staged.TeamID != nil {
		var existing models.RelayResult
		err := r.solver.DB.WithContext(ctx).
			Where("program_id = ? AND team_id = ? AND event_code = ?",
				*staged.ProgramID, *staged.TeamID, event.Code).
			First(&existing).Error
		switch {
		case err == nil:
			staged.ExistingResultID = &existing.ID
		case err != gorm.ErrRecordNotFound:
			return fmt.Errorf("failed to pre-check relay result: %w", err)
		}
	}

	staged.Errors = strings.Join(rowErrors, "; ")
	r.append(staged)
	return nil
}

// buildLegs converts the relay-leg sub-records: medley relays assign strokes
// by the fixed leg order, uniform relays repeat the event stroke.
func (r *resultRun) buildLegs(event ingest.Event, row ingest.Row, relayKey string) ([]staging.LegSpec, int) {
	var legs []staging.LegSpec
	lapCount := 0
	for _, leg := range row.Legs {
		spec := staging.LegSpec{
			Order:       leg.Order,
			ImportKey:   staging.LegKey(relayKey, leg.Order),
			LastName:    leg.LastName,
			FirstName:   leg.FirstName,
			YearOfBirth: leg.YearOfBirth,
			Gender:      leg.Gender,
			Hundredths:  leg.Hundredths,
		}
		if event.Stroke == models.StrokeMedley {
			spec.Stroke = models.MedleyLegOrder[(leg.Order-1)%len(models.MedleyLegOrder)]
		} else {
			spec.Stroke = event.Stroke
		}

		if leg.LastName != "" {
			if entry := r.swimmers.Find(leg.SwimmerKey()); entry != nil {
				spec.SwimmerKey = entry.Key
				if entry.Resolved() {
					spec.SwimmerID = entry.ID
				}
				if spec.Gender == "" {
					spec.Gender = entry.Gender
				}
			} else {
				spec.SwimmerKey = leg.SwimmerKey()
			}
		}

		spec.Laps = deriveLaps(leg.Laps)
		lapCount += len(spec.Laps)
		legs = append(legs, spec)
	}
	return legs, lapCount
}

// resolveCategory picks the row category: the source code when the season
// lookup knows it, otherwise the category computed for the swimmer in
// phase 3.
func (r *resultRun) resolveCategory(ctx context.Context, sourceCode string, entry *SwimmerEntry) (string, error) {
	if sourceCode != "" {
		known, err := r.solver.Categories.KnownCode(ctx, r.solver.Config.SeasonID, sourceCode)
		if err != nil {
			return "", err
		}
		if known {
			return sourceCode, nil
		}
	}
	if entry != nil && entry.CategoryCode != "" {
		return entry.CategoryCode, nil
	}
	return "", &phase.UnresolvedReferenceError{
		Entity: "category", Key: sourceCode, Reason: "no known or computable category",
	}
}

// resolveRelayCategory picks the relay category: the source code when known,
// otherwise the bracket covering the summed age of the legs.
func (r *resultRun) resolveRelayCategory(ctx context.Context, row ingest.Row) (string, error) {
	if row.Category != "" {
		known, err := r.solver.Categories.KnownCode(ctx, r.solver.Config.SeasonID, row.Category)
		if err != nil {
			return "", err
		}
		if known {
			return row.Category, nil
		}
	}

	if len(row.Legs) == 0 {
		return "", &phase.UnresolvedReferenceError{
			Entity: "category", Key: row.Category, Reason: "no known category and no legs to sum",
		}
	}
	meetingYear := r.doc.Dates[0].Year()
	summed := 0
	for _, leg := range row.Legs {
		if leg.YearOfBirth <= 0 {
			return "", &phase.UnresolvedReferenceError{
				Entity: "category", Key: row.Category, Reason: "leg without birth year, cannot sum ages",
			}
		}
		summed += meetingYear - leg.YearOfBirth
	}
	return r.solver.Categories.RelayCategoryFor(ctx, r.solver.Config.SeasonID, summed)
}

// lookupProgram resolves the program chain: the scheduled meeting event from
// phase 4, then the program by (event, category, gender). Any broken link
// returns nil, never an error: unlinked rows persist for manual linking.
func (r *resultRun) lookupProgram(ctx context.Context, sessionOrder int, event ingest.Event, category, gender string) (*uint, error) {
	if category == "" || gender == "" {
		return nil, nil
	}
	entry := r.events.Find(sessionOrder, event.Code, event.Gender)
	if entry == nil || !entry.Resolved() {
		return nil, nil
	}

	var program models.MeetingProgram
	err := r.solver.DB.WithContext(ctx).
		Where("meeting_event_id = ? AND category_code = ? AND gender = ?",
			*entry.ID, category, gender).
		First(&program).Error
	switch {
	case err == nil:
		return &program.ID, nil
	case err == gorm.ErrRecordNotFound:
		return nil, nil
	default:
		return nil, fmt.Errorf("failed to look up program: %w", err)
	}
}

func (r *resultRun) append(row staging.Row) {
	r.rows = append(r.rows, row)
	r.summary.Rows++

	key := row.EventCode + "|" + row.CategoryCode + "|" + row.Gender
	bucket, ok := r.buckets[key]
	if !ok {
		bucket = &ResultCount{EventCode: row.EventCode, CategoryCode: row.CategoryCode, Gender: row.Gender}
		r.buckets[key] = bucket
	}
	bucket.Results++
}

func (r *resultRun) finalize() {
	for _, bucket := range r.buckets {
		r.summary.Counts = append(r.summary.Counts, *bucket)
	}
	sort.Slice(r.summary.Counts, func(i, j int) bool {
		a, b := r.summary.Counts[i], r.summary.Counts[j]
		if a.EventCode != b.EventCode {
			return a.EventCode < b.EventCode
		}
		if a.CategoryCode != b.CategoryCode {
			return a.CategoryCode < b.CategoryCode
		}
		return a.Gender < b.Gender
	})
}

// deriveLaps fills the missing half of each split: sources deliver either
// cumulative from-start times or explicit deltas, downstream needs both. The
// first delta equals its cumulative time.
func deriveLaps(splits []ingest.Split) []staging.LapSpec {
	if len(splits) == 0 {
		return nil
	}
	out := make([]staging.LapSpec, 0, len(splits))
	prevCumulative := 0
	for i, split := range splits {
		lap := staging.LapSpec{
			Order:      i + 1,
			Distance:   split.Distance,
			Delta:      split.Delta,
			Cumulative: split.Cumulative,
		}
		if lap.Cumulative == 0 && lap.Delta > 0 {
			lap.Cumulative = prevCumulative + lap.Delta
		}
		if lap.Delta == 0 && lap.Cumulative > 0 {
			lap.Delta = lap.Cumulative - prevCumulative
		}
		prevCumulative = lap.Cumulative
		out = append(out, lap)
	}
	return out
}

func marshalPayload(v any) ([]byte, error) {
	if v == nil {
		return nil, nil
	}
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("failed to serialize staging payload: %w", err)
	}
	return raw, nil
}

package commit

import (
	"encoding/json"
	"fmt"

	"gorm.io/gorm"

	"meet-importer/feature/meet/models"
	"meet-importer/feature/meet/staging"
)

// commitResults consumes the staged result rows: program find-or-create,
// result insert-or-update, legs and laps. Rows whose program chain still
// cannot be closed are left in staging for manual linking.
func (r *txRun) commitResults(rows []staging.Row) error {
	for i := range rows {
		row := &rows[i]

		programID, err := r.ensureProgram(row)
		if err != nil {
			return err
		}
		if programID == nil {
			r.summary.skipped("result")
			continue
		}

		teamID := row.TeamID
		if teamID == nil {
			if id, ok := r.teamIDs[row.TeamKey]; ok {
				teamID = &id
			}
		}
		if teamID == nil {
			r.summary.skipped("result")
			continue
		}

		switch row.Kind {
		case staging.KindRelay:
			err = r.commitRelayRow(row, *programID, *teamID)
		default:
			err = r.commitIndividualRow(row, *programID, *teamID)
		}
		if err != nil {
			return err
		}
		r.consumed = append(r.consumed, row.ID)
	}
	return nil
}

// ensureProgram closes the program chain for a row: the pre-matched program
// when phase 5 found one, otherwise a find-or-create on the (meeting event,
// category, gender) triple now that missing meeting events exist.
func (r *txRun) ensureProgram(row *staging.Row) (*uint, error) {
	if row.ProgramID != nil {
		return row.ProgramID, nil
	}
	if row.CategoryCode == "" || row.Gender == "" {
		return nil, nil
	}

	entry := r.events.Find(row.SessionOrder, row.EventCode, row.Gender)
	if entry == nil {
		return nil, nil
	}
	meetingEventID, ok := r.meetingEventIDs[entry.Key]
	if !ok {
		return nil, nil
	}

	var program models.MeetingProgram
	err := r.tx.
		Where("meeting_event_id = ? AND category_code = ? AND gender = ?",
			meetingEventID, row.CategoryCode, row.Gender).
		First(&program).Error
	switch {
	case err == nil:
		return &program.ID, nil
	case err != gorm.ErrRecordNotFound:
		return nil, persistErr("program", row.ImportKey, err)
	}

	program = models.MeetingProgram{
		MeetingEventID: meetingEventID,
		CategoryCode:   row.CategoryCode,
		Gender:         row.Gender,
	}
	if err := r.tx.Create(&program).Error; err != nil {
		return nil, persistErr("program", row.ImportKey, err)
	}
	auditErr := r.audit.insert("program", row.ImportKey, map[string]any{
		"meeting_event_id": program.MeetingEventID,
		"category_code":    program.CategoryCode,
		"gender":           program.Gender,
	})
	if auditErr != nil {
		return nil, auditErr
	}
	r.summary.created("program")
	return &program.ID, nil
}

func (r *txRun) commitIndividualRow(row *staging.Row, programID, teamID uint) error {
	identity := models.IdentityOf(row.SwimmerKey)
	swimmerID := row.SwimmerID
	if swimmerID == nil {
		if id, ok := r.swimmerIDs[identity]; ok {
			swimmerID = &id
		}
	}
	if swimmerID == nil {
		return persistErr("result", row.ImportKey,
			fmt.Errorf("swimmer %q neither matched nor created", row.SwimmerKey))
	}

	badgeID := row.BadgeID
	if badgeID == nil {
		if id, ok := r.badgeIDs[identity]; ok {
			badgeID = &id
		}
	}

	var laps []staging.LapSpec
	if err := decodePayload(row.Laps, &laps, row.ImportKey); err != nil {
		return err
	}

	if row.ExistingResultID != nil {
		return r.updateIndividualResult(row, *row.ExistingResultID, badgeID, laps)
	}

	result := models.IndividualResult{
		ProgramID:    programID,
		SwimmerID:    *swimmerID,
		TeamID:       teamID,
		BadgeID:      badgeID,
		Rank:         row.Rank,
		Hundredths:   row.Hundredths,
		Disqualified: row.Disqualified,
		StatusCode:   row.StatusCode,
	}
	if err := r.tx.Create(&result).Error; err != nil {
		return persistErr("result", row.ImportKey, err)
	}
	err := r.audit.insert("result", row.ImportKey, map[string]any{
		"program_id": result.ProgramID, "swimmer_id": result.SwimmerID,
		"team_id": result.TeamID, "badge_id": result.BadgeID,
		"rank": result.Rank, "hundredths": result.Hundredths,
		"disqualified": result.Disqualified, "status_code": result.StatusCode,
	})
	if err != nil {
		return err
	}
	r.summary.created("result")

	return r.insertLaps(row.ImportKey, laps, &result.ID, nil)
}

func (r *txRun) updateIndividualResult(row *staging.Row, resultID uint, badgeID *uint, laps []staging.LapSpec) error {
	var existing models.IndividualResult
	if err := r.tx.First(&existing, resultID).Error; err != nil {
		return persistErr("result", row.ImportKey, err)
	}

	changes := map[string]any{}
	if existing.Rank != row.Rank {
		changes["rank"] = row.Rank
	}
	if existing.Hundredths != row.Hundredths {
		changes["hundredths"] = row.Hundredths
	}
	if existing.Disqualified != row.Disqualified {
		changes["disqualified"] = row.Disqualified
	}
	if existing.StatusCode != row.StatusCode {
		changes["status_code"] = row.StatusCode
	}
	if badgeID != nil && (existing.BadgeID == nil || *existing.BadgeID != *badgeID) {
		changes["badge_id"] = *badgeID
	}
	if len(changes) == 0 {
		r.summary.skipped("result")
		return nil
	}

	if err := r.tx.Model(&existing).Updates(changes).Error; err != nil {
		return persistErr("result", row.ImportKey, err)
	}
	if err := r.audit.update("result", row.ImportKey, changes); err != nil {
		return err
	}
	r.summary.updated("result")

	// Laps are replaced wholesale on update.
	err := r.tx.Where("individual_result_id = ?", resultID).Delete(&models.Lap{}).Error
	if err != nil {
		return persistErr("lap", row.ImportKey, err)
	}
	return r.insertLaps(row.ImportKey, laps, &resultID, nil)
}

func (r *txRun) commitRelayRow(row *staging.Row, programID, teamID uint) error {
	var legs []staging.LegSpec
	if err := decodePayload(row.Legs, &legs, row.ImportKey); err != nil {
		return err
	}

	var resultID uint
	if row.ExistingResultID != nil {
		resultID = *row.ExistingResultID
		changed, err := r.updateRelayResult(row, resultID)
		if err != nil {
			return err
		}
		if !changed {
			return nil
		}
		// Replace the leg tree wholesale.
		if err := r.deleteRelayLegs(row.ImportKey, resultID); err != nil {
			return err
		}
	} else {
		result := models.RelayResult{
			ProgramID:    programID,
			TeamID:       teamID,
			EventCode:    row.EventCode,
			Rank:         row.Rank,
			Hundredths:   row.Hundredths,
			Disqualified: row.Disqualified,
			StatusCode:   row.StatusCode,
		}
		if err := r.tx.Create(&result).Error; err != nil {
			return persistErr("relay_result", row.ImportKey, err)
		}
		err := r.audit.insert("relay_result", row.ImportKey, map[string]any{
			"program_id": result.ProgramID, "team_id": result.TeamID,
			"event_code": result.EventCode, "rank": result.Rank,
			"hundredths": result.Hundredths,
			"disqualified": result.Disqualified, "status_code": result.StatusCode,
		})
		if err != nil {
			return err
		}
		r.summary.created("relay_result")
		resultID = result.ID
	}

	for _, spec := range legs {
		swimmerID := spec.SwimmerID
		if swimmerID == nil && spec.SwimmerKey != "" {
			if id, ok := r.swimmerIDs[models.IdentityOf(spec.SwimmerKey)]; ok {
				swimmerID = &id
			}
		}
		leg := models.RelayLeg{
			RelayResultID: resultID,
			LegOrder:      spec.Order,
			SwimmerID:     swimmerID,
			LastName:      spec.LastName,
			FirstName:     spec.FirstName,
			YearOfBirth:   spec.YearOfBirth,
			Gender:        spec.Gender,
			Stroke:        spec.Stroke,
			Hundredths:    spec.Hundredths,
		}
		if err := r.tx.Create(&leg).Error; err != nil {
			return persistErr("relay_leg", spec.ImportKey, err)
		}
		err := r.audit.insert("relay_leg", spec.ImportKey, map[string]any{
			"relay_result_id": leg.RelayResultID, "leg_order": leg.LegOrder,
			"swimmer_id": leg.SwimmerID, "stroke": leg.Stroke,
			"hundredths": leg.Hundredths,
		})
		if err != nil {
			return err
		}
		r.summary.created("relay_leg")

		if err := r.insertLaps(spec.ImportKey, spec.Laps, nil, &leg.ID); err != nil {
			return err
		}
	}

	return nil
}

func (r *txRun) updateRelayResult(row *staging.Row, resultID uint) (bool, error) {
	var existing models.RelayResult
	if err := r.tx.First(&existing, resultID).Error; err != nil {
		return false, persistErr("relay_result", row.ImportKey, err)
	}

	changes := map[string]any{}
	if existing.Rank != row.Rank {
		changes["rank"] = row.Rank
	}
	if existing.Hundredths != row.Hundredths {
		changes["hundredths"] = row.Hundredths
	}
	if existing.Disqualified != row.Disqualified {
		changes["disqualified"] = row.Disqualified
	}
	if existing.StatusCode != row.StatusCode {
		changes["status_code"] = row.StatusCode
	}
	if len(changes) == 0 {
		r.summary.skipped("relay_result")
		return false, nil
	}

	if err := r.tx.Model(&existing).Updates(changes).Error; err != nil {
		return false, persistErr("relay_result", row.ImportKey, err)
	}
	if err := r.audit.update("relay_result", row.ImportKey, changes); err != nil {
		return false, err
	}
	r.summary.updated("relay_result")
	return true, nil
}

func (r *txRun) deleteRelayLegs(importKey string, resultID uint) error {
	var legIDs []uint
	err := r.tx.Model(&models.RelayLeg{}).
		Where("relay_result_id = ?", resultID).
		Pluck("id", &legIDs).Error
	if err != nil {
		return persistErr("relay_leg", importKey, err)
	}
	if len(legIDs) == 0 {
		return nil
	}

	if err := r.tx.Where("relay_leg_id IN ?", legIDs).Delete(&models.Lap{}).Error; err != nil {
		return persistErr("lap", importKey, err)
	}
	if err := r.tx.Where("id IN ?", legIDs).Delete(&models.RelayLeg{}).Error; err != nil {
		return persistErr("relay_leg", importKey, err)
	}
	return nil
}

// insertLaps persists the splits of an individual result or a relay leg.
func (r *txRun) insertLaps(importKey string, laps []staging.LapSpec, resultID, legID *uint) error {
	for _, spec := range laps {
		lap := models.Lap{
			IndividualResultID:   resultID,
			RelayLegID:           legID,
			LapOrder:             spec.Order,
			Distance:             spec.Distance,
			DeltaHundredths:      spec.Delta,
			CumulativeHundredths: spec.Cumulative,
		}
		key := fmt.Sprintf("%s#%d", importKey, spec.Order)
		if err := r.tx.Create(&lap).Error; err != nil {
			return persistErr("lap", key, err)
		}
		err := r.audit.insert("lap", key, map[string]any{
			"individual_result_id": lap.IndividualResultID, "relay_leg_id": lap.RelayLegID,
			"lap_order": lap.LapOrder, "distance": lap.Distance,
			"delta_hundredths": lap.DeltaHundredths, "cumulative_hundredths": lap.CumulativeHundredths,
		})
		if err != nil {
			return err
		}
		r.summary.created("lap")
	}
	return nil
}

func decodePayload(raw []byte, out any, importKey string) error {
	if len(raw) == 0 {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return persistErr("staging_row", importKey, fmt.Errorf("corrupt staged payload: %w", err))
	}
	return nil
}

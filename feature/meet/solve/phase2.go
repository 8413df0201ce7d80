package solve

import (
	"context"
	"fmt"
	"sort"

	"go.uber.org/zap"

	"meet-importer/core/logger"
	"meet-importer/core/matcher"
	"meet-importer/core/phase"
	"meet-importer/feature/meet/ingest"
	"meet-importer/feature/meet/models"
)

// TeamPayload is the phase 2 artifact: one entry per distinct team name.
type TeamPayload struct {
	Teams []TeamEntry `json:"teams"`
}

// TeamEntry resolves one team name. AffiliationID is the season affiliation
// pre-created during solving, nil when the team itself stayed unresolved.
type TeamEntry struct {
	phase.Entry
	Name          string `json:"name"`
	AffiliationID *uint  `json:"affiliation_id,omitempty"`
}

// Find returns the entry whose normalized name matches, nil when absent.
func (p *TeamPayload) Find(name string) *TeamEntry {
	key := matcher.Normalize(name)
	for i := range p.Teams {
		if p.Teams[i].Key == key {
			return &p.Teams[i]
		}
	}
	return nil
}

// SolveTeams runs phase 2: it collects the distinct team names (from the
// team dictionary when the layout carries one, otherwise by scanning result
// rows), fuzzy-matches each against the club registry and pre-creates the
// season affiliation for every resolved team. The affiliation find-or-create
// is the single controlled write performed during solving and is idempotent.
func (s *Solver) SolveTeams(ctx context.Context, doc *ingest.Document) (*TeamPayload, *phase.Artifact, error) {
	parent, err := s.Artifacts.Load(ctx, doc.Code, phase.PhaseVenue, nil)
	if err != nil {
		return nil, nil, err
	}

	var rows []snapshotRow
	err = s.DB.WithContext(ctx).Model(&models.Team{}).
		Select("id, name AS value").Scan(&rows).Error
	if err != nil {
		return nil, nil, fmt.Errorf("failed to snapshot teams: %w", err)
	}
	items := toItems(rows)

	payload := &TeamPayload{}
	cutoff := s.Matcher.Config().Team
	for _, name := range collectTeamNames(doc) {
		entry := TeamEntry{
			Entry: phase.Entry{Key: matcher.Normalize(name)},
			Name:  name,
		}
		entry.Apply(s.Matcher.Search(matcher.Query{Primary: name}, items, cutoff, 0))

		if entry.Resolved() {
			affiliation := models.TeamAffiliation{
				SeasonID: s.Config.SeasonID,
				TeamID:   *entry.ID,
			}
			err := s.DB.WithContext(ctx).
				Where("season_id = ? AND team_id = ?", affiliation.SeasonID, affiliation.TeamID).
				Attrs(models.TeamAffiliation{Name: name}).
				FirstOrCreate(&affiliation).Error
			if err != nil {
				return nil, nil, fmt.Errorf("failed to ensure affiliation for team %d: %w", *entry.ID, err)
			}
			entry.AffiliationID = &affiliation.ID
		}

		payload.Teams = append(payload.Teams, entry)
	}

	artifact, err := s.Artifacts.Save(ctx, doc.Code, phase.PhaseTeam, "team-solver", parent.Checksum, payload)
	if err != nil {
		return nil, nil, err
	}

	logger.WithSource(s.Log, doc.Code).Info("team phase solved",
		zap.Int("teams", len(payload.Teams)))
	return payload, artifact, nil
}

// collectTeamNames returns the distinct team names of a document, preferring
// the declared dictionary and falling back to a scan of result rows.
func collectTeamNames(doc *ingest.Document) []string {
	if len(doc.TeamNames) > 0 {
		return dedupeNames(doc.TeamNames)
	}

	var names []string
	for _, session := range doc.Sessions {
		for _, event := range session.Events {
			for _, row := range event.Rows {
				if row.Team != "" {
					names = append(names, row.Team)
				}
			}
		}
	}
	return dedupeNames(names)
}

func dedupeNames(names []string) []string {
	seen := make(map[string]struct{}, len(names))
	var out []string
	for _, n := range names {
		key := matcher.Normalize(n)
		if key == "" {
			continue
		}
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, n)
	}
	sort.Strings(out)
	return out
}

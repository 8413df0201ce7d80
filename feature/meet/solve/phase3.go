package solve

import (
	"context"
	"fmt"
	"sort"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"meet-importer/core/logger"
	"meet-importer/core/matcher"
	"meet-importer/core/phase"
	"meet-importer/feature/meet/ingest"
	"meet-importer/feature/meet/models"
)

// SwimmerPayload is the phase 3 artifact: one entry per distinct swimmer
// identity, each with its season badge pre-match.
type SwimmerPayload struct {
	Swimmers []SwimmerEntry `json:"swimmers"`
}

// SwimmerEntry resolves one swimmer identity.
type SwimmerEntry struct {
	phase.Entry
	LastName    string `json:"last_name"`
	FirstName   string `json:"first_name"`
	YearOfBirth int    `json:"year_of_birth"`
	Gender      string `json:"gender,omitempty"`
	// GenderInferred marks a gender adopted from a high-confidence fuzzy
	// match instead of the source document.
	GenderInferred bool       `json:"gender_inferred,omitempty"`
	CategoryCode   string     `json:"category_code,omitempty"`
	TeamName       string     `json:"team_name,omitempty"`
	Badge          BadgeEntry `json:"badge"`
}

// BadgeEntry pre-matches the swimmer's season badge. A partial badge (nil
// swimmer or team reference) is retained, never dropped: the commit
// orchestrator completes what it can and skips the rest.
type BadgeEntry struct {
	phase.Entry
	SwimmerID    *uint  `json:"swimmer_id,omitempty"`
	TeamID       *uint  `json:"team_id,omitempty"`
	CategoryCode string `json:"category_code,omitempty"`
}

// Find returns the entry for a swimmer natural key: an exact key match
// first, then a match on the gender-stripped identity so qualified and
// unqualified spellings of the same person converge.
func (p *SwimmerPayload) Find(key string) *SwimmerEntry {
	for i := range p.Swimmers {
		if p.Swimmers[i].Key == key {
			return &p.Swimmers[i]
		}
	}
	identity := models.IdentityOf(key)
	for i := range p.Swimmers {
		if models.IdentityOf(p.Swimmers[i].Key) == identity {
			return &p.Swimmers[i]
		}
	}
	return nil
}

// SolveSwimmers runs phase 3: it collects the distinct swimmer identities
// from whichever shape the document carries, fuzzy-matches each against the
// athlete registry with a surname fallback, infers missing genders only from
// high-confidence matches, computes age-bracket categories and pre-matches
// season badges.
func (s *Solver) SolveSwimmers(ctx context.Context, doc *ingest.Document) (*SwimmerPayload, *phase.Artifact, error) {
	var teams TeamPayload
	parent, err := s.Artifacts.Load(ctx, doc.Code, phase.PhaseTeam, &teams)
	if err != nil {
		return nil, nil, err
	}

	var rows []snapshotRow
	err = s.DB.WithContext(ctx).Model(&models.Swimmer{}).
		Select("id, complete_name AS value, gender AS discriminant").
		Scan(&rows).Error
	if err != nil {
		return nil, nil, fmt.Errorf("failed to snapshot swimmers: %w", err)
	}
	items := toItems(rows)

	cfg := s.Matcher.Config()
	meetingDate := doc.Dates[0]

	payload := &SwimmerPayload{}
	for _, spec := range collectSwimmers(doc) {
		entry := SwimmerEntry{
			Entry:       phase.Entry{Key: spec.Key},
			LastName:    spec.LastName,
			FirstName:   spec.FirstName,
			YearOfBirth: spec.YearOfBirth,
			Gender:      spec.Gender,
			TeamName:    spec.TeamKey,
		}

		full := fmt.Sprintf("%s %s %d", spec.LastName, spec.FirstName, spec.YearOfBirth)
		res := s.Matcher.Search(matcher.Query{
			Primary:      full,
			Reduced:      spec.LastName,
			Discriminant: spec.Gender,
		}, items, cfg.Swimmer, cfg.SwimmerFallback)
		entry.Apply(res)

		if entry.Gender == "" && res.Best != nil && res.Best.Score >= cfg.GenderInference {
			if err := s.inferGender(ctx, &entry, res.Best.ID); err != nil {
				return nil, nil, err
			}
		}

		if code, err := s.Categories.CategoryFor(ctx, s.Config.SeasonID, entry.YearOfBirth, entry.Gender, meetingDate); err != nil {
			entry.Record(&phase.UnresolvedReferenceError{
				Entity: "category", Key: entry.Key, Reason: err.Error(),
			})
		} else {
			entry.CategoryCode = code
		}

		if err := s.matchBadge(ctx, &entry, &teams); err != nil {
			return nil, nil, err
		}

		payload.Swimmers = append(payload.Swimmers, entry)
	}

	artifact, err := s.Artifacts.Save(ctx, doc.Code, phase.PhaseSwimmer, "swimmer-solver", parent.Checksum, payload)
	if err != nil {
		return nil, nil, err
	}

	logger.WithSource(s.Log, doc.Code).Info("swimmer phase solved",
		zap.Int("swimmers", len(payload.Swimmers)))
	return payload, artifact, nil
}

// inferGender adopts the gender of a high-confidence match and re-keys the
// entry to its gender-qualified form.
func (s *Solver) inferGender(ctx context.Context, entry *SwimmerEntry, matchID uint) error {
	var matched models.Swimmer
	if err := s.DB.WithContext(ctx).First(&matched, matchID).Error; err != nil {
		return fmt.Errorf("failed to load matched swimmer %d: %w", matchID, err)
	}
	if matched.Gender == "" {
		return nil
	}
	entry.Gender = matched.Gender
	entry.GenderInferred = true
	entry.Key = models.SwimmerKey(entry.Gender, entry.LastName, entry.FirstName, entry.YearOfBirth)
	return nil
}

// matchBadge pre-matches the season badge by (season, swimmer, team). Guard
// clauses keep partial badges when either reference is still unresolved.
func (s *Solver) matchBadge(ctx context.Context, entry *SwimmerEntry, teams *TeamPayload) error {
	badge := BadgeEntry{
		Entry:        phase.Entry{Key: fmt.Sprintf("%d|%s|%s", s.Config.SeasonID, models.IdentityOf(entry.Key), matcher.Normalize(entry.TeamName))},
		CategoryCode: entry.CategoryCode,
	}
	defer func() { entry.Badge = badge }()

	if entry.Resolved() {
		badge.SwimmerID = entry.ID
	}
	if entry.TeamName != "" {
		if team := teams.Find(entry.TeamName); team != nil && team.Resolved() {
			badge.TeamID = team.ID
		}
	}

	if badge.SwimmerID == nil || badge.TeamID == nil {
		return nil
	}

	var existing models.Badge
	err := s.DB.WithContext(ctx).
		Where("season_id = ? AND swimmer_id = ? AND team_id = ?",
			s.Config.SeasonID, *badge.SwimmerID, *badge.TeamID).
		First(&existing).Error
	switch {
	case err == nil:
		badge.Assign(existing.ID, 1)
	case err != gorm.ErrRecordNotFound:
		return fmt.Errorf("failed to look up badge: %w", err)
	}
	return nil
}

// collectSwimmers returns the distinct swimmer identities of a document:
// the declared swimmer structure when present, otherwise a scan of result
// rows and relay-leg sub-records. Duplicate identities merge, preferring the
// spelling that carries more identity information.
func collectSwimmers(doc *ingest.Document) []ingest.SwimmerSpec {
	var specs []ingest.SwimmerSpec
	if len(doc.Swimmers) > 0 {
		specs = doc.Swimmers
	} else {
		for _, session := range doc.Sessions {
			for _, event := range session.Events {
				for _, row := range event.Rows {
					if row.LastName != "" && !event.Relay {
						specs = append(specs, ingest.SwimmerSpec{
							Key:         row.SwimmerKey(),
							LastName:    row.LastName,
							FirstName:   row.FirstName,
							YearOfBirth: row.YearOfBirth,
							Gender:      row.Gender,
							TeamKey:     row.Team,
						})
					}
					for _, leg := range row.Legs {
						if leg.LastName == "" {
							continue
						}
						specs = append(specs, ingest.SwimmerSpec{
							Key:         leg.SwimmerKey(),
							LastName:    leg.LastName,
							FirstName:   leg.FirstName,
							YearOfBirth: leg.YearOfBirth,
							Gender:      leg.Gender,
							TeamKey:     row.Team,
						})
					}
				}
			}
		}
	}

	merged := make(map[string]ingest.SwimmerSpec, len(specs))
	for _, spec := range specs {
		identity := models.IdentityOf(spec.Key)
		kept, ok := merged[identity]
		if !ok {
			merged[identity] = spec
			continue
		}
		merged[identity] = mergeSpecs(kept, spec)
	}

	out := make([]ingest.SwimmerSpec, 0, len(merged))
	for _, spec := range merged {
		out = append(out, spec)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out
}

// mergeSpecs merges two spellings of the same identity, keeping the one with
// the higher information score and filling its blanks from the other.
func mergeSpecs(a, b ingest.SwimmerSpec) ingest.SwimmerSpec {
	if specScore(b) > specScore(a) {
		a, b = b, a
	}
	if a.Gender == "" {
		a.Gender = b.Gender
		a.Key = models.SwimmerKey(a.Gender, a.LastName, a.FirstName, a.YearOfBirth)
	}
	if a.TeamKey == "" {
		a.TeamKey = b.TeamKey
	}
	return a
}

func specScore(spec ingest.SwimmerSpec) int {
	score := 0
	if spec.Gender != "" {
		score += 4
	}
	if spec.TeamKey != "" {
		score += 2
	}
	if spec.YearOfBirth > 0 {
		score++
	}
	return score
}

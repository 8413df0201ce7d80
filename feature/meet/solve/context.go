package solve

import (
	"context"
	"fmt"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"meet-importer/core/matcher"
	"meet-importer/core/phase"
	"meet-importer/feature/meet/ingest"
	"meet-importer/feature/meet/models"
	"meet-importer/feature/meet/staging"
)

// Solver carries everything the phase solvers need: store access, the fuzzy
// matcher, the category lookup and the artifact and staging stores. It is
// passed explicitly; solvers hold no ambient state.
type Solver struct {
	DB         *gorm.DB
	Log        *zap.Logger
	Matcher    *matcher.Matcher
	Categories *models.CategoryService
	Artifacts  *phase.Store
	Staging    *staging.Store
	Config     ingest.Config
}

// Run executes phases 1 through 5 for a document in order and returns the
// artifacts produced. Each solver re-reads its prerequisite artifacts from
// the store, so a partially solved document can resume from any phase.
func (s *Solver) Run(ctx context.Context, doc *ingest.Document) ([]*phase.Artifact, error) {
	var artifacts []*phase.Artifact

	_, a1, err := s.SolveVenues(ctx, doc)
	if err != nil {
		return nil, fmt.Errorf("phase %d: %w", phase.PhaseVenue, err)
	}
	artifacts = append(artifacts, a1)

	_, a2, err := s.SolveTeams(ctx, doc)
	if err != nil {
		return nil, fmt.Errorf("phase %d: %w", phase.PhaseTeam, err)
	}
	artifacts = append(artifacts, a2)

	_, a3, err := s.SolveSwimmers(ctx, doc)
	if err != nil {
		return nil, fmt.Errorf("phase %d: %w", phase.PhaseSwimmer, err)
	}
	artifacts = append(artifacts, a3)

	_, a4, err := s.SolveEvents(ctx, doc)
	if err != nil {
		return nil, fmt.Errorf("phase %d: %w", phase.PhaseEvent, err)
	}
	artifacts = append(artifacts, a4)

	_, a5, err := s.SolveResults(ctx, doc)
	if err != nil {
		return nil, fmt.Errorf("phase %d: %w", phase.PhaseResult, err)
	}
	artifacts = append(artifacts, a5)

	return artifacts, nil
}

// items converts a (id, value, discriminant) snapshot row set into matcher
// items.
type snapshotRow struct {
	ID           uint
	Value        string
	Discriminant string
}

func toItems(rows []snapshotRow) []matcher.Item {
	items := make([]matcher.Item, 0, len(rows))
	for _, r := range rows {
		items = append(items, matcher.Item{ID: r.ID, Value: r.Value, Discriminant: r.Discriminant})
	}
	return items
}

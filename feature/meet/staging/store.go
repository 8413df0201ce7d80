package staging

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Store persists staging rows keyed by import key.
type Store struct {
	db *gorm.DB
}

// NewStore creates a staging store on the given database handle.
func NewStore(db *gorm.DB) *Store {
	return &Store{db: db}
}

// SaveBatch upserts rows on their import key. Re-solving a document
// replaces its previous rows in place, so phase 5 stays idempotent without a
// separate purge step.
func (s *Store) SaveBatch(ctx context.Context, rows []Row) error {
	if len(rows) == 0 {
		return nil
	}
	now := time.Now().UTC()
	for i := range rows {
		if rows[i].CreatedAt.IsZero() {
			rows[i].CreatedAt = now
		}
	}

	err := s.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "import_key"}},
			DoUpdates: clause.AssignmentColumns([]string{
				"kind", "session_order", "event_code", "category_code",
				"gender", "swimmer_key", "team_key",
				"program_id", "swimmer_id", "team_id", "badge_id",
				"existing_result_id",
				"rank", "hundredths", "status_code", "disqualified",
				"laps", "legs", "errors",
			}),
		}).
		CreateInBatches(rows, 200).Error
	if err != nil {
		return fmt.Errorf("failed to save staging rows: %w", err)
	}
	return nil
}

// ListBySource returns every staged row of a source document, ordered by
// session, event and import key so commits are deterministic.
func (s *Store) ListBySource(ctx context.Context, sourceRef string) ([]Row, error) {
	var rows []Row
	err := s.db.WithContext(ctx).
		Where("source_ref = ?", sourceRef).
		Order("session_order, event_code, import_key").
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list staging rows: %w", err)
	}
	return rows, nil
}

// CountBySource returns the number of staged rows for a source document.
func (s *Store) CountBySource(ctx context.Context, sourceRef string) (int64, error) {
	var count int64
	err := s.db.WithContext(ctx).
		Model(&Row{}).
		Where("source_ref = ?", sourceRef).
		Count(&count).Error
	if err != nil {
		return 0, fmt.Errorf("failed to count staging rows: %w", err)
	}
	return count, nil
}

// Purge deletes the given consumed rows after a successful commit. Rows the
// orchestrator skipped for a null program reference are not in the list and
// survive for manual linking.
func (s *Store) Purge(ctx context.Context, ids []uint) error {
	if len(ids) == 0 {
		return nil
	}
	err := s.db.WithContext(ctx).
		Where("id IN ?", ids).
		Delete(&Row{}).Error
	if err != nil {
		return fmt.Errorf("failed to purge staging rows: %w", err)
	}
	return nil
}

// PurgeBySource deletes every staged row of a source document regardless of
// consumption state.
func (s *Store) PurgeBySource(ctx context.Context, sourceRef string) error {
	err := s.db.WithContext(ctx).
		Where("source_ref = ?", sourceRef).
		Delete(&Row{}).Error
	if err != nil {
		return fmt.Errorf("failed to purge staging rows for %q: %w", sourceRef, err)
	}
	return nil
}

// Migrate creates or updates the staging table.
func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(&Row{})
}

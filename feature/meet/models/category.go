package models

import (
	"context"
	"fmt"
	"sync"
	"time"

	"gorm.io/gorm"
)

// CategoryService resolves age-bracket categories from the season-scoped
// lookup table. Rows are loaded once per season and cached: the lookup is
// read-only and consulted for every swimmer of every document.
type CategoryService struct {
	db *gorm.DB

	mu    sync.Mutex
	cache map[uint][]SeasonCategory
}

// NewCategoryService creates a category service on the given database handle.
func NewCategoryService(db *gorm.DB) *CategoryService {
	return &CategoryService{
		db:    db,
		cache: make(map[uint][]SeasonCategory),
	}
}

// load fetches and caches the category rows for a season.
func (s *CategoryService) load(ctx context.Context, seasonID uint) ([]SeasonCategory, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if rows, ok := s.cache[seasonID]; ok {
		return rows, nil
	}

	var rows []SeasonCategory
	err := s.db.WithContext(ctx).
		Where("season_id = ?", seasonID).
		Order("age_begin").
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("failed to load categories for season %d: %w", seasonID, err)
	}

	s.cache[seasonID] = rows
	return rows, nil
}

// CategoryFor computes the category code for a swimmer from birth year,
// gender and meeting date. Gender currently only guards against computing a
// bracket for an unknown identity: brackets themselves are gender-neutral.
func (s *CategoryService) CategoryFor(ctx context.Context, seasonID uint, yearOfBirth int, gender string, meetingDate time.Time) (string, error) {
	if yearOfBirth <= 0 || meetingDate.IsZero() {
		return "", fmt.Errorf("cannot compute category without birth year and meeting date")
	}

	rows, err := s.load(ctx, seasonID)
	if err != nil {
		return "", err
	}

	age := meetingDate.Year() - yearOfBirth
	for _, row := range rows {
		if row.Relay {
			continue
		}
		if age >= row.AgeBegin && age <= row.AgeEnd {
			return row.Code, nil
		}
	}
	return "", fmt.Errorf("no category covers age %d in season %d", age, seasonID)
}

// RelayCategoryFor resolves a relay category code from the summed age of the
// relay legs.
func (s *CategoryService) RelayCategoryFor(ctx context.Context, seasonID uint, summedAge int) (string, error) {
	rows, err := s.load(ctx, seasonID)
	if err != nil {
		return "", err
	}

	for _, row := range rows {
		if !row.Relay {
			continue
		}
		if summedAge >= row.AgeBegin && summedAge <= row.AgeEnd {
			return row.Code, nil
		}
	}
	return "", fmt.Errorf("no relay category covers summed age %d in season %d", summedAge, seasonID)
}

// KnownCode reports whether code exists in the season's lookup. Used by
// phase 5 to validate category codes arriving from the source document.
func (s *CategoryService) KnownCode(ctx context.Context, seasonID uint, code string) (bool, error) {
	rows, err := s.load(ctx, seasonID)
	if err != nil {
		return false, err
	}
	for _, row := range rows {
		if row.Code == code {
			return true, nil
		}
	}
	return false, nil
}

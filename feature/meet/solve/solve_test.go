package solve

import (
	"fmt"
	"testing"
	"time"

	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"meet-importer/core/matcher"
	"meet-importer/core/phase"
	"meet-importer/feature/meet/ingest"
	"meet-importer/feature/meet/models"
	"meet-importer/feature/meet/staging"
)

// newTestSolver builds a solver on an in-memory SQLite DB with all tables
// migrated and the season category lookup seeded.
func newTestSolver(t *testing.T, dbName string) *Solver {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", dbName)
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("failed to connect database: %v", err)
	}
	if err := models.Migrate(db); err != nil {
		t.Fatalf("failed to migrate models: %v", err)
	}
	if err := staging.Migrate(db); err != nil {
		t.Fatalf("failed to migrate staging: %v", err)
	}
	if err := db.AutoMigrate(&phase.Artifact{}); err != nil {
		t.Fatalf("failed to migrate artifacts: %v", err)
	}

	seedCategories(t, db)

	return &Solver{
		DB:  db,
		Log: zap.NewNop(),
		Matcher: matcher.New(matcher.Config{
			Meeting:         0.80,
			Team:            0.80,
			Pool:            0.80,
			City:            0.80,
			Swimmer:         0.60,
			SwimmerFallback: 0.74,
			GenderInference: 0.90,
			FallbackLimit:   5,
		}),
		Categories: models.NewCategoryService(db),
		Artifacts:  phase.NewStore(db),
		Staging:    staging.NewStore(db),
		Config:     ingest.Config{SeasonID: 1, RelayStrokeFallback: ingest.FallbackError},
	}
}

func seedCategories(t *testing.T, db *gorm.DB) {
	t.Helper()
	rows := []models.SeasonCategory{
		{SeasonID: 1, Code: "M25", AgeBegin: 25, AgeEnd: 29},
		{SeasonID: 1, Code: "M30", AgeBegin: 30, AgeEnd: 34},
		{SeasonID: 1, Code: "M45", AgeBegin: 45, AgeEnd: 49},
		{SeasonID: 1, Code: "M50", AgeBegin: 50, AgeEnd: 54},
		{SeasonID: 1, Code: "M80", AgeBegin: 80, AgeEnd: 99, Relay: true},
		{SeasonID: 1, Code: "M100", AgeBegin: 100, AgeEnd: 119, Relay: true},
	}
	if err := db.Create(&rows).Error; err != nil {
		t.Fatalf("failed to seed categories: %v", err)
	}
}

func date(s string) time.Time {
	d, _ := time.Parse("2006-01-02", s)
	return d
}

// testDocument builds a two-row individual document plus one relay section.
func testDocument() *ingest.Document {
	return &ingest.Document{
		Code:       "24RIC01",
		Name:       "Trofeo Citta di Riccione",
		Dates:      []time.Time{date("2024-06-15")},
		VenueName:  "Stadio del Nuoto",
		PoolName:   "Piscina Comunale",
		CityName:   "Riccione",
		PoolLength: 50,
		Sessions: []ingest.Session{
			{
				Order: 1,
				Date:  date("2024-06-15"),
				Events: []ingest.Event{
					{
						Code: "200SL", Distance: 200, Stroke: "SL", Gender: "M", Category: "M45",
						Rows: []ingest.Row{
							{
								LastName: "ROSSI", FirstName: "MARIO", YearOfBirth: 1978,
								Gender: "M", Team: "CSS Verona", Category: "M45",
								Rank: 1, Hundredths: 13830,
								Laps: []ingest.Split{
									{Distance: 50, Cumulative: 3120},
									{Distance: 100, Cumulative: 6610},
								},
							},
							{
								LastName: "BIANCHI", FirstName: "ANNA", YearOfBirth: 1995,
								Gender: "F", Team: "Nuoto Club Bologna",
								Rank: 2, Hundredths: 14210,
							},
						},
					},
					{
						Code: "S4X50MI", Distance: 200, Stroke: "MI",
						Relay: true, LegCount: 4, LegDistance: 50,
						Gender: "F", Category: "M100",
						Rows: []ingest.Row{
							{
								Team: "CSS Verona", Rank: 1, Hundredths: 12545, Category: "M100",
								Legs: []ingest.Leg{
									{Order: 1, LastName: "VERDI", FirstName: "LUCIA", YearOfBirth: 1975, Gender: "F", Hundredths: 3210},
									{Order: 2, LastName: "NERI", FirstName: "PAOLA", YearOfBirth: 1970, Gender: "F", Hundredths: 3105,
										Laps: []ingest.Split{{Distance: 25, Cumulative: 1500}, {Distance: 50, Cumulative: 3105}}},
								},
							},
						},
					},
				},
			},
		},
	}
}

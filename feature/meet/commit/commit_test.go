package commit

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"meet-importer/core/matcher"
	"meet-importer/core/phase"
	storagemocks "meet-importer/core/storage/mocks"
	"meet-importer/feature/meet/ingest"
	"meet-importer/feature/meet/models"
	"meet-importer/feature/meet/solve"
	"meet-importer/feature/meet/staging"
)

// newTestPipeline builds the solver and the orchestrator on one in-memory
// SQLite DB, with all tables migrated and the season categories seeded.
func newTestPipeline(t *testing.T, dbName string) (*solve.Solver, *Orchestrator, *gorm.DB) {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", dbName)
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, models.Migrate(db))
	require.NoError(t, staging.Migrate(db))
	require.NoError(t, db.AutoMigrate(&phase.Artifact{}))

	categories := []models.SeasonCategory{
		{SeasonID: 1, Code: "M25", AgeBegin: 25, AgeEnd: 29},
		{SeasonID: 1, Code: "M45", AgeBegin: 45, AgeEnd: 49},
		{SeasonID: 1, Code: "M50", AgeBegin: 50, AgeEnd: 54},
		{SeasonID: 1, Code: "M100", AgeBegin: 100, AgeEnd: 119, Relay: true},
	}
	require.NoError(t, db.Create(&categories).Error)

	cfg := ingest.Config{SeasonID: 1, RelayStrokeFallback: ingest.FallbackError}
	solver := &solve.Solver{
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
		Config:     cfg,
	}
	orchestrator := &Orchestrator{
		DB:        db,
		Log:       zap.NewNop(),
		Artifacts: phase.NewStore(db),
		Staging:   staging.NewStore(db),
		Config:    cfg,
	}
	return solver, orchestrator, db
}

func date(s string) time.Time {
	d, _ := time.Parse("2006-01-02", s)
	return d
}

// commitDocument is the standard fixture: one session with an individual
// 200 freestyle and a women's 4x50 medley relay.
func commitDocument() *ingest.Document {
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

func solveDocument(t *testing.T, solver *solve.Solver, doc *ingest.Document) {
	t.Helper()
	_, err := solver.Run(context.Background(), doc)
	require.NoError(t, err)
}

func countRows(t *testing.T, db *gorm.DB, model any) int64 {
	t.Helper()
	var n int64
	require.NoError(t, db.Model(model).Count(&n).Error)
	return n
}

func TestCommitEmptyStoreCreatesEverything(t *testing.T) {
	solver, orch, db := newTestPipeline(t, "commit_fresh")
	solveDocument(t, solver, commitDocument())

	summary, err := orch.Commit(context.Background(), "24RIC01")
	require.NoError(t, err)

	assert.Equal(t, 1, summary.Created["city"])
	assert.Equal(t, 1, summary.Created["pool"])
	assert.Equal(t, 1, summary.Created["meeting"])
	assert.Equal(t, 1, summary.Created["session"])
	assert.Equal(t, 2, summary.Created["team"])
	assert.Equal(t, 2, summary.Created["team_affiliation"])
	assert.Equal(t, 4, summary.Created["swimmer"])
	assert.Equal(t, 4, summary.Created["badge"])
	assert.Equal(t, 2, summary.Created["event_type"])
	assert.Equal(t, 2, summary.Created["meeting_event"])
	assert.Equal(t, 3, summary.Created["program"])
	assert.Equal(t, 2, summary.Created["result"])
	assert.Equal(t, 1, summary.Created["relay_result"])
	assert.Equal(t, 2, summary.Created["relay_leg"])
	assert.Equal(t, 4, summary.Created["lap"])
	assert.Zero(t, summary.Retained)

	assert.EqualValues(t, 1, countRows(t, db, &models.Meeting{}))
	assert.EqualValues(t, 4, countRows(t, db, &models.Swimmer{}))
	assert.EqualValues(t, 2, countRows(t, db, &models.IndividualResult{}))
	assert.EqualValues(t, 1, countRows(t, db, &models.RelayResult{}))
	assert.EqualValues(t, 2, countRows(t, db, &models.RelayLeg{}))
	assert.EqualValues(t, 4, countRows(t, db, &models.Lap{}))

	// Every insert left one audit row, all under the batch of this run.
	total := 0
	for _, n := range summary.Created {
		total += n
	}
	var audited int64
	require.NoError(t, db.Model(&models.AuditLogEntry{}).
		Where("batch_id = ? AND operation = ?", summary.BatchID, "insert").
		Count(&audited).Error)
	assert.EqualValues(t, total, audited)

	// Consumed staging rows are gone.
	left, err := orch.Staging.CountBySource(context.Background(), "24RIC01")
	require.NoError(t, err)
	assert.Zero(t, left)
}

func TestCommitSecondRunIsNoOp(t *testing.T) {
	solver, orch, db := newTestPipeline(t, "commit_rerun")
	solveDocument(t, solver, commitDocument())
	_, err := orch.Commit(context.Background(), "24RIC01")
	require.NoError(t, err)

	// Re-solving against the populated store pre-matches everything.
	solveDocument(t, solver, commitDocument())
	summary, err := orch.Commit(context.Background(), "24RIC01")
	require.NoError(t, err)

	assert.Empty(t, summary.Created)
	assert.Empty(t, summary.Updated)
	assert.Zero(t, summary.Retained)
	assert.Positive(t, summary.Skipped["result"])

	assert.EqualValues(t, 4, countRows(t, db, &models.Swimmer{}))
	assert.EqualValues(t, 2, countRows(t, db, &models.IndividualResult{}))
	assert.EqualValues(t, 2, countRows(t, db, &models.RelayLeg{}))
	assert.EqualValues(t, 4, countRows(t, db, &models.Lap{}))

	left, err := orch.Staging.CountBySource(context.Background(), "24RIC01")
	require.NoError(t, err)
	assert.Zero(t, left)
}

func TestCommitRollsBackOnCorruptRow(t *testing.T) {
	solver, orch, db := newTestPipeline(t, "commit_rollback")
	solveDocument(t, solver, commitDocument())

	// A staged payload that cannot be decoded fails mid-transaction, after
	// the entity clusters have already been written inside it.
	err := db.Model(&staging.Row{}).
		Where("kind = ?", staging.KindRelay).
		Update("legs", []byte("{broken")).Error
	require.NoError(t, err)

	_, err = orch.Commit(context.Background(), "24RIC01")
	require.Error(t, err)
	var validation *phase.PersistenceValidationError
	require.ErrorAs(t, err, &validation)

	// Nothing survives the rollback, the audit trail included.
	assert.Zero(t, countRows(t, db, &models.City{}))
	assert.Zero(t, countRows(t, db, &models.Meeting{}))
	assert.Zero(t, countRows(t, db, &models.Swimmer{}))
	assert.Zero(t, countRows(t, db, &models.IndividualResult{}))
	assert.Zero(t, countRows(t, db, &models.AuditLogEntry{}))

	// Staging keeps the rows for the retry.
	left, err := orch.Staging.CountBySource(context.Background(), "24RIC01")
	require.NoError(t, err)
	assert.EqualValues(t, 3, left)
}

func TestCommitRetainsUnlinkableRows(t *testing.T) {
	solver, orch, _ := newTestPipeline(t, "commit_retained")
	solveDocument(t, solver, commitDocument())

	// A row referencing an event absent from the event artifact can never
	// close its program chain.
	orphan := staging.Row{
		SourceRef:    "24RIC01",
		ImportKey:    "24RIC01-9-999XX-GHOST|CASPER|1980",
		Kind:         staging.KindIndividual,
		SessionOrder: 9,
		EventCode:    "999XX",
		CategoryCode: "M45",
		Gender:       "M",
		SwimmerKey:   "GHOST|CASPER|1980",
		Rank:         1,
		Hundredths:   10000,
	}
	require.NoError(t, orch.Staging.SaveBatch(context.Background(), []staging.Row{orphan}))

	summary, err := orch.Commit(context.Background(), "24RIC01")
	require.NoError(t, err)

	assert.Equal(t, 1, summary.Retained)
	assert.Equal(t, 1, summary.Skipped["result"])

	left, err := orch.Staging.CountBySource(context.Background(), "24RIC01")
	require.NoError(t, err)
	assert.EqualValues(t, 1, left)
}

func TestCommitPreconditionsMissingArtifacts(t *testing.T) {
	_, orch, _ := newTestPipeline(t, "commit_preconditions")

	missing, err := orch.Preconditions(context.Background(), "24RIC01")
	require.NoError(t, err)
	assert.Equal(t, []int{phase.PhaseVenue, phase.PhaseTeam, phase.PhaseSwimmer, phase.PhaseEvent}, missing)

	_, err = orch.Commit(context.Background(), "24RIC01")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "missing phase artifacts")
}

func TestCommitArchivesArtifacts(t *testing.T) {
	solver, orch, db := newTestPipeline(t, "commit_archive")
	solveDocument(t, solver, commitDocument())

	client := new(storagemocks.Client)
	client.On("PutObject", mock.Anything, "archive", mock.Anything, mock.Anything, mock.Anything, mock.Anything).
		Return(minio.UploadInfo{}, nil)
	orch.Storage = client
	orch.Bucket = "archive"

	_, err := orch.Commit(context.Background(), "24RIC01")
	require.NoError(t, err)

	// One object per solved phase.
	client.AssertNumberOfCalls(t, "PutObject", 5)

	var stamped int64
	require.NoError(t, db.Model(&phase.Artifact{}).
		Where("archived_at IS NOT NULL").
		Count(&stamped).Error)
	assert.EqualValues(t, 5, stamped)
}

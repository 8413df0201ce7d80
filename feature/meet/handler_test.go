package meet_test

import (
	"encoding/json"
	"fmt"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"meet-importer/core/matcher"
	"meet-importer/feature/meet"
	"meet-importer/feature/meet/ingest"
	"meet-importer/feature/meet/models"
)

func newTestApp(t *testing.T, dbName string) *fiber.App {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", dbName)
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, meet.Migrate(db))

	categories := []models.SeasonCategory{
		{SeasonID: 1, Code: "M25", AgeBegin: 25, AgeEnd: 29},
		{SeasonID: 1, Code: "M45", AgeBegin: 45, AgeEnd: 49},
	}
	require.NoError(t, db.Create(&categories).Error)

	feature := meet.NewFeature(db, zap.NewNop(), nil, "",
		matcher.Config{
			Meeting:         0.80,
			Team:            0.80,
			Pool:            0.80,
			City:            0.80,
			Swimmer:         0.60,
			SwimmerFallback: 0.74,
			GenderInference: 0.90,
			FallbackLimit:   5,
		},
		ingest.Config{SeasonID: 1, RelayStrokeFallback: ingest.FallbackError})

	app := fiber.New()
	require.NoError(t, feature.Register(app))
	return app
}

const handlerDocument = `{
	"layout": 1,
	"name": "Campionato Regionale Master",
	"meeting_code": "REG24",
	"dates": ["2024-06-15"],
	"venue": "Stadio del Nuoto",
	"pool": "Vasca Coperta",
	"pool_length": 50,
	"city": "Bologna",
	"teams": {
		"CSSVR": {"name": "CSS Verona"}
	},
	"swimmers": [
		"ROSSI|MARIO|1978|M|CSSVR"
	],
	"sessions": [
		{"order": 1, "date": "2024-06-15", "day_part": "M", "events": ["200SL"]}
	],
	"events": [
		{"code": "200SL", "distance": 200, "stroke": "SL"}
	],
	"results": {
		"200SL": [
			{
				"swimmer": "M|ROSSI|MARIO|1978",
				"team": "CSS Verona",
				"category": "M45",
				"rank": 1,
				"timing": "2'18.30"
			}
		]
	}
}`

func TestHandleImportAndCommit(t *testing.T) {
	app := newTestApp(t, "handler_flow")

	req := httptest.NewRequest("POST", "/meets/import", strings.NewReader(handlerDocument))
	req.Header.Set("Content-Type", "application/json")
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	var report meet.ImportReport
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&report))
	assert.Equal(t, "REG24", report.Code)
	assert.Len(t, report.Artifacts, 5)
	assert.EqualValues(t, 1, report.StagedRows)

	resp, err = app.Test(httptest.NewRequest("GET", "/meets/REG24/status", nil), -1)
	require.NoError(t, err)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	var status meet.StatusReport
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&status))
	assert.True(t, status.Committable)
	assert.Empty(t, status.MissingPhases)

	resp, err = app.Test(httptest.NewRequest("POST", "/meets/REG24/commit", nil), -1)
	require.NoError(t, err)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	var summary struct {
		Created map[string]int `json:"created"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&summary))
	assert.Equal(t, 1, summary.Created["meeting"])
	assert.Equal(t, 1, summary.Created["swimmer"])
	assert.Equal(t, 1, summary.Created["result"])

	resp, err = app.Test(httptest.NewRequest("GET", "/meets/REG24/artifacts", nil), -1)
	require.NoError(t, err)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	var artifacts []meet.ArtifactInfo
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&artifacts))
	require.Len(t, artifacts, 5)
	assert.Equal(t, "venue-solver", artifacts[0].Generator)
	assert.NotEmpty(t, artifacts[0].Checksum)
}

func TestHandleImportMalformedDocument(t *testing.T) {
	app := newTestApp(t, "handler_malformed")

	req := httptest.NewRequest("POST", "/meets/import", strings.NewReader(`{"name": "no discriminant"}`))
	req.Header.Set("Content-Type", "application/json")
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusUnprocessableEntity, resp.StatusCode)
}

func TestHandleCommitWithoutArtifacts(t *testing.T) {
	app := newTestApp(t, "handler_precondition")

	resp, err := app.Test(httptest.NewRequest("POST", "/meets/NOPE/commit", nil), -1)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusConflict, resp.StatusCode)
}

package solve

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"meet-importer/feature/meet/models"
)

func TestSolveTeams_RequiresVenueArtifact(t *testing.T) {
	s := newTestSolver(t, "solve_teams_prereq")
	ctx := context.Background()

	_, _, err := s.SolveTeams(ctx, testDocument())
	assert.Error(t, err)
}

func TestSolveTeams_RowScanAndAffiliation(t *testing.T) {
	s := newTestSolver(t, "solve_teams_scan")
	ctx := context.Background()
	doc := testDocument()

	team := models.Team{Name: "CSS Verona"}
	require.NoError(t, s.DB.Create(&team).Error)

	_, _, err := s.SolveVenues(ctx, doc)
	require.NoError(t, err)

	payload, artifact, err := s.SolveTeams(ctx, doc)
	require.NoError(t, err)
	assert.NotEmpty(t, artifact.ParentChecksum)

	// Two distinct names from the row scan, alphabetical.
	require.Len(t, payload.Teams, 2)
	resolved := payload.Find("CSS Verona")
	require.NotNil(t, resolved)
	require.True(t, resolved.Resolved())
	assert.Equal(t, team.ID, *resolved.ID)
	require.NotNil(t, resolved.AffiliationID)

	unknown := payload.Find("Nuoto Club Bologna")
	require.NotNil(t, unknown)
	assert.False(t, unknown.Resolved())
	assert.Nil(t, unknown.AffiliationID)

	// The affiliation pre-creation is idempotent across re-solves.
	payload, _, err = s.SolveTeams(ctx, doc)
	require.NoError(t, err)
	require.NotNil(t, payload.Find("CSS Verona").AffiliationID)

	var count int64
	require.NoError(t, s.DB.Model(&models.TeamAffiliation{}).Count(&count).Error)
	assert.Equal(t, int64(1), count)
}

func TestSolveTeams_PrefersDeclaredDictionary(t *testing.T) {
	s := newTestSolver(t, "solve_teams_dict")
	ctx := context.Background()
	doc := testDocument()
	doc.TeamNames = []string{"CSS Verona"}

	_, _, err := s.SolveVenues(ctx, doc)
	require.NoError(t, err)

	payload, _, err := s.SolveTeams(ctx, doc)
	require.NoError(t, err)
	require.Len(t, payload.Teams, 1)
	assert.Equal(t, "CSS Verona", payload.Teams[0].Name)
}

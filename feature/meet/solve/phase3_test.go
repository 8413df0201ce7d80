package solve

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"meet-importer/feature/meet/models"
)

func TestSolveSwimmers_RowScanIdentities(t *testing.T) {
	s := newTestSolver(t, "solve_swimmers_scan")
	ctx := context.Background()
	doc := testDocument()

	_, _, err := s.SolveVenues(ctx, doc)
	require.NoError(t, err)
	_, _, err = s.SolveTeams(ctx, doc)
	require.NoError(t, err)

	payload, artifact, err := s.SolveSwimmers(ctx, doc)
	require.NoError(t, err)
	assert.NotEmpty(t, artifact.ParentChecksum)

	// Two individual rows plus two relay legs.
	require.Len(t, payload.Swimmers, 4)

	rossi := payload.Find("M|ROSSI|MARIO|1978")
	require.NotNil(t, rossi)
	assert.False(t, rossi.Resolved())
	assert.Equal(t, "M45", rossi.CategoryCode)
	assert.Equal(t, "CSS Verona", rossi.TeamName)

	bianchi := payload.Find("F|BIANCHI|ANNA|1995")
	require.NotNil(t, bianchi)
	assert.Equal(t, "M25", bianchi.CategoryCode)

	// Relay legs inherit the relay row's team.
	verdi := payload.Find("F|VERDI|LUCIA|1975")
	require.NotNil(t, verdi)
	assert.Equal(t, "CSS Verona", verdi.TeamName)
	assert.Equal(t, "M45", verdi.CategoryCode)
}

func TestSolveSwimmers_MatchAndBadge(t *testing.T) {
	s := newTestSolver(t, "solve_swimmers_badge")
	ctx := context.Background()
	doc := testDocument()

	team := models.Team{Name: "CSS Verona"}
	require.NoError(t, s.DB.Create(&team).Error)
	swimmer := models.Swimmer{
		LastName: "ROSSI", FirstName: "MARIO", YearOfBirth: 1978,
		Gender: "M", CompleteName: "ROSSI MARIO 1978",
	}
	require.NoError(t, s.DB.Create(&swimmer).Error)
	badge := models.Badge{SeasonID: 1, SwimmerID: swimmer.ID, TeamID: team.ID, CategoryCode: "M45"}
	require.NoError(t, s.DB.Create(&badge).Error)

	_, _, err := s.SolveVenues(ctx, doc)
	require.NoError(t, err)
	_, _, err = s.SolveTeams(ctx, doc)
	require.NoError(t, err)

	payload, _, err := s.SolveSwimmers(ctx, doc)
	require.NoError(t, err)

	rossi := payload.Find("M|ROSSI|MARIO|1978")
	require.NotNil(t, rossi)
	require.True(t, rossi.Resolved())
	assert.Equal(t, swimmer.ID, *rossi.ID)

	require.True(t, rossi.Badge.Resolved())
	assert.Equal(t, badge.ID, *rossi.Badge.ID)
	assert.Equal(t, swimmer.ID, *rossi.Badge.SwimmerID)
	assert.Equal(t, team.ID, *rossi.Badge.TeamID)

	// Unmatched swimmers keep a partial badge: team side resolved, swimmer
	// side open.
	bianchi := payload.Find("F|BIANCHI|ANNA|1995")
	require.NotNil(t, bianchi)
	assert.False(t, bianchi.Badge.Resolved())
	assert.Nil(t, bianchi.Badge.SwimmerID)
}

func TestSolveSwimmers_GenderInference(t *testing.T) {
	s := newTestSolver(t, "solve_swimmers_gender")
	ctx := context.Background()
	doc := testDocument()
	// Strip the source gender of the first row.
	doc.Sessions[0].Events[0].Rows[0].Gender = ""

	swimmer := models.Swimmer{
		LastName: "ROSSI", FirstName: "MARIO", YearOfBirth: 1978,
		Gender: "M", CompleteName: "ROSSI MARIO 1978",
	}
	require.NoError(t, s.DB.Create(&swimmer).Error)

	_, _, err := s.SolveVenues(ctx, doc)
	require.NoError(t, err)
	_, _, err = s.SolveTeams(ctx, doc)
	require.NoError(t, err)

	payload, _, err := s.SolveSwimmers(ctx, doc)
	require.NoError(t, err)

	// The identity match clears the inference cutoff, so the entry adopts
	// the registry gender and re-keys to the qualified form.
	rossi := payload.Find("M|ROSSI|MARIO|1978")
	require.NotNil(t, rossi)
	assert.Equal(t, "M|ROSSI|MARIO|1978", rossi.Key)
	assert.Equal(t, "M", rossi.Gender)
	assert.True(t, rossi.GenderInferred)
	assert.Equal(t, "M45", rossi.CategoryCode)
}

func TestSolveSwimmers_MergesQualifiedAndUnqualifiedKeys(t *testing.T) {
	s := newTestSolver(t, "solve_swimmers_merge")
	ctx := context.Background()
	doc := testDocument()
	// The same identity appears twice: once with gender, once without.
	duplicate := doc.Sessions[0].Events[0].Rows[0]
	duplicate.Gender = ""
	duplicate.Team = ""
	doc.Sessions[0].Events[0].Rows = append(doc.Sessions[0].Events[0].Rows, duplicate)

	_, _, err := s.SolveVenues(ctx, doc)
	require.NoError(t, err)
	_, _, err = s.SolveTeams(ctx, doc)
	require.NoError(t, err)

	payload, _, err := s.SolveSwimmers(ctx, doc)
	require.NoError(t, err)

	// Both spellings converge on the gender-qualified entry.
	var matches int
	for _, entry := range payload.Swimmers {
		if entry.LastName == "ROSSI" {
			matches++
			assert.Equal(t, "M|ROSSI|MARIO|1978", entry.Key)
			assert.Equal(t, "CSS Verona", entry.TeamName)
		}
	}
	assert.Equal(t, 1, matches)
}

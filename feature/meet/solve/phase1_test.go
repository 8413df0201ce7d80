package solve

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"meet-importer/core/phase"
	"meet-importer/feature/meet/models"
)

func TestSolveVenues_EmptyStore(t *testing.T) {
	s := newTestSolver(t, "solve_venues_empty")
	ctx := context.Background()

	payload, artifact, err := s.SolveVenues(ctx, testDocument())
	require.NoError(t, err)

	assert.False(t, payload.Meeting.Resolved())
	assert.Equal(t, "24RIC01", payload.Meeting.Key)
	assert.Equal(t, "Trofeo Citta di Riccione", payload.Meeting.Name)
	require.NotNil(t, payload.Meeting.StartDate)
	assert.Equal(t, "2024-06-15", payload.Meeting.StartDate.Format("2006-01-02"))

	require.Len(t, payload.Sessions, 1)
	session := payload.Sessions[0]
	assert.Equal(t, 1, session.Order)
	assert.False(t, session.Resolved())
	assert.False(t, session.Pool.Resolved())
	assert.False(t, session.City.Resolved())
	assert.Equal(t, "Riccione", session.City.Name)

	assert.Equal(t, phase.PhaseVenue, artifact.Phase)
	assert.Equal(t, 1, artifact.Version)
	assert.Empty(t, artifact.ParentChecksum)
}

func TestSolveVenues_MatchesExistingEntities(t *testing.T) {
	s := newTestSolver(t, "solve_venues_match")
	ctx := context.Background()

	city := models.City{Name: "Riccione"}
	require.NoError(t, s.DB.Create(&city).Error)
	pool := models.SwimmingPool{Name: "Piscina Comunale", CityID: &city.ID, LaneLength: 50}
	require.NoError(t, s.DB.Create(&pool).Error)
	meeting := models.Meeting{SeasonID: 1, Code: "24RIC01", Name: "Trofeo Citta di Riccione"}
	require.NoError(t, s.DB.Create(&meeting).Error)
	session := models.MeetingSession{MeetingID: meeting.ID, SessionOrder: 1}
	require.NoError(t, s.DB.Create(&session).Error)

	payload, _, err := s.SolveVenues(ctx, testDocument())
	require.NoError(t, err)

	// An exact code match wins before any fuzzy search.
	require.True(t, payload.Meeting.Resolved())
	assert.Equal(t, meeting.ID, *payload.Meeting.ID)

	entry := payload.Sessions[0]
	require.True(t, entry.Resolved())
	assert.Equal(t, session.ID, *entry.ID)
	require.True(t, entry.City.Resolved())
	assert.Equal(t, city.ID, *entry.City.ID)
	require.True(t, entry.Pool.Resolved())
	assert.Equal(t, pool.ID, *entry.Pool.ID)
}

func TestSolveVenues_FuzzyMeetingMatch(t *testing.T) {
	s := newTestSolver(t, "solve_venues_fuzzy")
	ctx := context.Background()

	meeting := models.Meeting{SeasonID: 1, Code: "OLD-CODE", Name: "Trofeo Citta di Riccione 2023"}
	require.NoError(t, s.DB.Create(&meeting).Error)

	payload, _, err := s.SolveVenues(ctx, testDocument())
	require.NoError(t, err)

	require.True(t, payload.Meeting.Resolved())
	assert.Equal(t, meeting.ID, *payload.Meeting.ID)
	assert.NotEmpty(t, payload.Meeting.Candidates)
}

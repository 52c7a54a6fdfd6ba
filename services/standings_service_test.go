package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Dosada05/tcg-arena/models"
)

func TestGetStandingsUnknownTournament(t *testing.T) {
	env := newTestEnv(t)
	_, err := env.standings.GetStandings(context.Background(), 404)
	require.ErrorIs(t, err, ErrTournamentNotFound)
}

func TestGetStandingsCountsOnlyVerified(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	created := env.createTournament(t, models.FormatSwiss, organizerID, 4)
	_, err := env.tournaments.Start(ctx, created.ID, organizerID)
	require.NoError(t, err)

	// До первого результата у всех ноль очков, порядок по посеву.
	standings, err := env.standings.GetStandings(ctx, created.ID)
	require.NoError(t, err)
	require.Len(t, standings, 4)
	for i, s := range standings {
		assert.Equal(t, i+1, s.Seed)
		assert.Zero(t, s.MatchPoints)
	}

	match := env.activeMatches(t, created.ID)[0]
	reportWin(t, env, match, env.reporterFor(t, match), match.P1ID)

	standings, err = env.standings.GetStandings(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, match.P1ID, standings[0].ParticipantID)
	assert.Equal(t, 3, standings[0].MatchPoints)
}

func TestGetBracketIncludesProgression(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	created := env.createTournament(t, models.FormatSingleElimination, organizerID, 4)
	_, err := env.tournaments.Start(ctx, created.ID, organizerID)
	require.NoError(t, err)

	round1 := env.activeMatches(t, created.ID)
	require.Len(t, round1, 2)
	for _, match := range round1 {
		reportWin(t, env, match, env.reporterFor(t, match), match.P1ID)
	}

	view, err := env.standings.GetBracket(ctx, created.ID)
	require.NoError(t, err)
	require.NotNil(t, view.Tournament)
	require.Len(t, view.Rounds, 2)
	require.Len(t, view.Rounds[0].Matches, 2)
	require.Len(t, view.Rounds[1].Matches, 1)

	finalID := view.Rounds[1].Matches[0].ID
	require.Len(t, view.Edges, 2)
	for _, edge := range view.Edges {
		assert.Equal(t, finalID, edge.ToMatchID)
	}
	assert.Equal(t, round1[0].ID, view.Edges[0].FromMatchID)
	assert.Equal(t, round1[1].ID, view.Edges[1].FromMatchID)
}

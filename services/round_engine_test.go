package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Dosada05/tcg-arena/events"
	"github.com/Dosada05/tcg-arena/models"
)

const organizerID = 500

// reportWin plays out a full match decision: the reporter's claim plus,
// for participant reports, the opponent's confirmation.
func reportWin(t *testing.T, env *testEnv, match *models.Match, reporterUserID, winnerID int) *models.Match {
	t.Helper()
	claimed, err := env.results.ReportResult(context.Background(), ReportResultParams{
		MatchID:    match.ID,
		ReporterID: reporterUserID,
		WinnerID:   &winnerID,
		Version:    match.Version,
	})
	require.NoError(t, err)
	if claimed.Verification == models.MatchVerified {
		return claimed
	}
	confirmed, err := env.results.ReportResult(context.Background(), ReportResultParams{
		MatchID:    match.ID,
		ReporterID: env.opponentUserFor(t, match, reporterUserID),
		WinnerID:   &winnerID,
		Version:    claimed.Version,
	})
	require.NoError(t, err)
	return confirmed
}

func TestSingleEliminationLifecycle(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	created := env.createTournament(t, models.FormatSingleElimination, organizerID, 4)
	assert.Equal(t, models.TournamentDraft, created.Status)
	assert.Zero(t, created.RoundCount)
	require.Len(t, created.Participants, 4)
	assert.Equal(t, 1, created.Participants[0].Seed)

	started, err := env.tournaments.Start(ctx, created.ID, organizerID)
	require.NoError(t, err)
	assert.Equal(t, models.TournamentActive, started.Status)
	assert.Equal(t, 1, started.CurrentRound)

	round1 := env.activeMatches(t, created.ID)
	require.Len(t, round1, 2)
	assert.Equal(t, 1, round1[0].Version)

	// Оба матча первого раунда: побеждает первый слот.
	reportWin(t, env, round1[0], env.reporterFor(t, round1[0]), round1[0].P1ID)
	assert.Equal(t, models.TournamentActive, env.tournament(t, created.ID).Status)

	reportWin(t, env, round1[1], env.reporterFor(t, round1[1]), round1[1].P1ID)

	// Второй раунд открыт автоматически после последнего результата.
	final := env.activeMatches(t, created.ID)
	require.Len(t, final, 1)
	assert.Equal(t, round1[0].P1ID, final[0].P1ID)
	require.NotNil(t, final[0].P2ID)
	assert.Equal(t, round1[1].P1ID, *final[0].P2ID)

	reportWin(t, env, final[0], env.reporterFor(t, final[0]), final[0].P1ID)

	completed := env.tournament(t, created.ID)
	assert.Equal(t, models.TournamentCompleted, completed.Status)
	assert.Equal(t, 2, completed.CurrentRound)
	assert.False(t, completed.ResolvedEarly)

	require.Equal(t, 1, env.broadcaster.countOf(events.TypeTournamentCompleted))
	done, ok := env.broadcaster.last(events.TypeTournamentCompleted).(events.TournamentCompleted)
	require.True(t, ok)
	require.NotNil(t, done.WinnerID)
	assert.Equal(t, final[0].P1ID, *done.WinnerID)
	// Каждый матч даёт два события: заявка и подтверждение соперника.
	assert.Equal(t, 6, env.broadcaster.countOf(events.TypeMatchResultReported))
	assert.Equal(t, 2, env.broadcaster.countOf(events.TypeRoundStarted))
	assert.Equal(t, 2, env.broadcaster.countOf(events.TypeRoundCompleted))

	standings, err := env.standings.GetStandings(ctx, created.ID)
	require.NoError(t, err)
	require.Len(t, standings, 4)
	assert.Equal(t, final[0].P1ID, standings[0].ParticipantID)
	assert.Equal(t, 1, standings[0].Rank)

	// Завершённый турнир не принимает ни результатов, ни продвижения.
	_, err = env.results.ReportResult(ctx, ReportResultParams{MatchID: final[0].ID, ReporterID: organizerID, WinnerID: &final[0].P1ID, Version: 2})
	require.ErrorIs(t, err, ErrTournamentClosed)
	_, err = env.engine.Advance(ctx, created.ID)
	require.ErrorIs(t, err, ErrTournamentClosed)
}

func TestRoundRobinPreGeneratesSchedule(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	created := env.createTournament(t, models.FormatRoundRobin, organizerID, 4)
	assert.Equal(t, 3, created.RoundCount)

	_, err := env.tournaments.Start(ctx, created.ID, organizerID)
	require.NoError(t, err)

	full, err := env.tournaments.GetByID(ctx, created.ID)
	require.NoError(t, err)
	require.Len(t, full.Rounds, 3)
	assert.Equal(t, models.RoundActive, full.Rounds[0].Status)
	assert.Equal(t, models.RoundPending, full.Rounds[1].Status)
	assert.Equal(t, models.RoundPending, full.Rounds[2].Status)

	// Закрытие первого раунда активирует второй, не генерируя новый.
	for _, match := range env.activeMatches(t, created.ID) {
		reportWin(t, env, match, env.reporterFor(t, match), match.P1ID)
	}

	full, err = env.tournaments.GetByID(ctx, created.ID)
	require.NoError(t, err)
	require.Len(t, full.Rounds, 3)
	assert.Equal(t, models.RoundCompleted, full.Rounds[0].Status)
	assert.Equal(t, models.RoundActive, full.Rounds[1].Status)
	assert.Equal(t, 2, env.tournament(t, created.ID).CurrentRound)
}

func TestRoundRobinByeIsSkipped(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	created := env.createTournament(t, models.FormatRoundRobin, organizerID, 3)
	assert.Equal(t, 3, created.RoundCount)

	_, err := env.tournaments.Start(ctx, created.ID, organizerID)
	require.NoError(t, err)

	full, err := env.tournaments.GetByID(ctx, created.ID)
	require.NoError(t, err)
	require.Len(t, full.Rounds, 3)

	byes := 0
	for _, match := range full.Rounds[0].Matches {
		if match.P2ID == nil {
			byes++
			assert.Nil(t, match.WinnerID, "round robin bye is skipped, not won")
			assert.Equal(t, models.MatchVerified, match.Verification)
		}
	}
	assert.Equal(t, 1, byes)
}

func TestSwissResolvedEarlyOnEmptyField(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	created := env.createTournament(t, models.FormatSwiss, organizerID, 4)
	assert.Equal(t, 2, created.RoundCount)

	_, err := env.tournaments.Start(ctx, created.ID, organizerID)
	require.NoError(t, err)

	round1 := env.activeMatches(t, created.ID)
	require.Len(t, round1, 2)

	// Трое снимаются до закрытия раунда; пары для второго не собрать.
	winnerID := round1[0].P1ID
	env.store.mu.Lock()
	for _, p := range env.store.participants {
		if p.TournamentID == created.ID && p.ID != winnerID {
			p.Active = false
		}
	}
	env.store.mu.Unlock()

	reportWin(t, env, round1[0], env.reporterFor(t, round1[0]), round1[0].P1ID)
	reportWin(t, env, round1[1], env.reporterFor(t, round1[1]), round1[1].P1ID)

	completed := env.tournament(t, created.ID)
	assert.Equal(t, models.TournamentCompleted, completed.Status)
	assert.True(t, completed.ResolvedEarly)

	done, ok := env.broadcaster.last(events.TypeTournamentCompleted).(events.TournamentCompleted)
	require.True(t, ok)
	assert.True(t, done.ResolvedEarly)
	require.NotNil(t, done.WinnerID)
	assert.Equal(t, winnerID, *done.WinnerID)
}

func TestManualAdvanceRequiresDecidedRound(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	created := env.createTournament(t, models.FormatSingleElimination, organizerID, 4)
	_, err := env.tournaments.Start(ctx, created.ID, organizerID)
	require.NoError(t, err)

	_, err = env.tournaments.AdvanceRound(ctx, created.ID, organizerID)
	require.ErrorIs(t, err, ErrRoundNotComplete)

	_, err = env.tournaments.AdvanceRound(ctx, created.ID, organizerID+1)
	require.ErrorIs(t, err, ErrOrganizerOnly)
}

func TestStartGuards(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	created := env.createTournament(t, models.FormatSingleElimination, organizerID, 2)

	_, err := env.tournaments.Start(ctx, created.ID, organizerID+1)
	require.ErrorIs(t, err, ErrOrganizerOnly)

	_, err = env.tournaments.Start(ctx, created.ID, organizerID)
	require.NoError(t, err)

	_, err = env.tournaments.Start(ctx, created.ID, organizerID)
	require.ErrorIs(t, err, ErrTournamentAlreadyStarted)
}

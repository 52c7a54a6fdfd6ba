package brackets

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Dosada05/tcg-arena/models"
)

func doubleElimParams(participants []*models.Participant) GenerateParams {
	return GenerateParams{
		Tournament: &models.Tournament{
			ID:     1,
			Format: models.FormatDoubleElimination,
			Status: models.TournamentActive,
		},
		Participants: participants,
		History:      NewPairingSet(),
	}
}

// playRound генерирует и доигрывает следующий раунд, выбывших деактивирует.
func playRound(t *testing.T, gen *DoubleEliminationGenerator, params *GenerateParams, pick func(*models.Match) int) *models.Round {
	t.Helper()
	plan, err := gen.NextRound(*params)
	require.NoError(t, err)

	roundID := len(params.Rounds) + 1
	round := materialize(plan, roundID, 1+roundID*100)
	decideAll(round, pick)
	params.Rounds = append(params.Rounds, round)
	deactivate(params.Participants, gen.Eliminated(*params, round))
	return round
}

func TestDoubleEliminationFourPlayerSequence(t *testing.T) {
	gen := &DoubleEliminationGenerator{}
	assert.False(t, gen.FullSchedule())
	assert.Equal(t, "DoubleElimination", gen.Name())

	params := doubleElimParams(testField(4))

	w1 := playRound(t, gen, &params, lowestIDWins)
	assert.Equal(t, models.BracketWinners, w1.Bracket)
	require.Len(t, w1.Matches, 2)
	requirePairing(t, Pairing{P1ID: w1.Matches[0].P1ID, P2ID: w1.Matches[0].P2ID}, 101, 104)
	requirePairing(t, Pairing{P1ID: w1.Matches[1].P1ID, P2ID: w1.Matches[1].P2ID}, 102, 103)

	l1 := playRound(t, gen, &params, lowestIDWins)
	assert.Equal(t, models.BracketLosers, l1.Bracket)
	require.Len(t, l1.Matches, 1)
	requirePairing(t, Pairing{P1ID: l1.Matches[0].P1ID, P2ID: l1.Matches[0].P2ID}, 104, 103)

	w2 := playRound(t, gen, &params, lowestIDWins)
	assert.Equal(t, models.BracketWinners, w2.Bracket)
	require.Len(t, w2.Matches, 1)
	requirePairing(t, Pairing{P1ID: w2.Matches[0].P1ID, P2ID: w2.Matches[0].P2ID}, 101, 102)

	// Мажорный раунд: проигравший финала верхней сетки против выжившего.
	l2 := playRound(t, gen, &params, lowestIDWins)
	assert.Equal(t, models.BracketLosers, l2.Bracket)
	require.Len(t, l2.Matches, 1)
	requirePairing(t, Pairing{P1ID: l2.Matches[0].P1ID, P2ID: l2.Matches[0].P2ID}, 102, 103)

	_, decided := gen.Champion(params)
	require.False(t, decided)

	gf := playRound(t, gen, &params, lowestIDWins)
	assert.Equal(t, models.BracketGrandFinal, gf.Bracket)
	require.Len(t, gf.Matches, 1)
	requirePairing(t, Pairing{P1ID: gf.Matches[0].P1ID, P2ID: gf.Matches[0].P2ID}, 101, 102)

	winner, decided := gen.Champion(params)
	require.True(t, decided)
	require.NotNil(t, winner)
	assert.Equal(t, 101, *winner)
	assert.Equal(t, []int{102}, gen.Eliminated(params, gf))
}

func TestDoubleEliminationBracketReset(t *testing.T) {
	gen := &DoubleEliminationGenerator{}
	params := doubleElimParams(testField(2))

	highestWins := func(m *models.Match) int {
		if m.P2ID != nil && *m.P2ID > m.P1ID {
			return *m.P2ID
		}
		return m.P1ID
	}

	// 102 выбивает фаворита из верхней сетки.
	w1 := playRound(t, gen, &params, highestWins)
	assert.Equal(t, models.BracketWinners, w1.Bracket)

	// Гранд-финал: чемпион верхней сетки против единственного проигравшего.
	gf1 := playRound(t, gen, &params, lowestIDWins)
	assert.Equal(t, models.BracketGrandFinal, gf1.Bracket)
	requirePairing(t, Pairing{P1ID: gf1.Matches[0].P1ID, P2ID: gf1.Matches[0].P2ID}, 102, 101)

	// Победил игрок из нижней сетки: никто не выбывает, сетка сбрасывается.
	assert.Empty(t, gen.Eliminated(params, gf1))
	_, decided := gen.Champion(params)
	require.False(t, decided, "reset match still pending")

	gf2 := playRound(t, gen, &params, lowestIDWins)
	assert.Equal(t, models.BracketGrandFinal, gf2.Bracket)
	requirePairing(t, Pairing{P1ID: gf2.Matches[0].P1ID, P2ID: gf2.Matches[0].P2ID}, 102, 101)

	winner, decided := gen.Champion(params)
	require.True(t, decided)
	require.NotNil(t, winner)
	assert.Equal(t, 101, *winner)
	assert.Equal(t, []int{102}, gen.Eliminated(params, gf2))

	_, err := gen.NextRound(params)
	require.ErrorIs(t, err, ErrInvalidFormatState)
}

func TestDoubleEliminationFullRunInvariants(t *testing.T) {
	for _, n := range []int{4, 6, 8} {
		gen := &DoubleEliminationGenerator{}
		params := doubleElimParams(testField(n))
		totalW := winnerRoundCount(n)

		var champion int
		for roundNum := 1; ; roundNum++ {
			require.Less(t, roundNum, 16, "n=%d failed to resolve", n)
			playRound(t, gen, &params, lowestIDWins)
			if winner, decided := gen.Champion(params); decided {
				require.NotNil(t, winner)
				champion = *winner
				break
			}
		}
		assert.Equal(t, 101, champion, "n=%d", n)

		wRounds, lRounds, gfRounds := splitBrackets(params.Rounds)
		assert.Len(t, wRounds, totalW, "n=%d winners rounds", n)
		assert.Len(t, lRounds, 2*(totalW-1), "n=%d losers rounds", n)
		assert.Len(t, gfRounds, 1, "n=%d grand finals", n)

		// Каждый, кроме чемпиона, проигрывает ровно дважды.
		losses := make(map[int]int)
		for _, round := range params.Rounds {
			for i := range round.Matches {
				m := &round.Matches[i]
				if m.Bye() || m.WinnerID == nil {
					continue
				}
				loser := m.Opponent(*m.WinnerID)
				require.NotNil(t, loser)
				losses[*loser]++
			}
		}
		assert.Zero(t, losses[champion], "n=%d champion losses", n)
		for _, p := range params.Participants {
			if p.ID == champion {
				continue
			}
			assert.Equal(t, 2, losses[p.ID], "n=%d participant %d losses", n, p.ID)
		}
	}
}

func TestDoubleEliminationSequenceBrokenState(t *testing.T) {
	gen := &DoubleEliminationGenerator{}
	params := doubleElimParams(testField(4))
	// Один раунд верхней сетки и два нижней не соответствуют ни одному
	// шагу последовательности.
	params.Rounds = []*models.Round{
		{ID: 1, Number: 1, Bracket: models.BracketWinners, Status: models.RoundCompleted},
		{ID: 2, Number: 2, Bracket: models.BracketLosers, Status: models.RoundCompleted},
		{ID: 3, Number: 3, Bracket: models.BracketLosers, Status: models.RoundCompleted},
	}
	_, err := gen.NextRound(params)
	require.ErrorIs(t, err, ErrInvalidFormatState)
}

package brackets

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/Dosada05/tcg-arena/models"
)

// testField builds n active participants with ids 101..100+n seeded in
// order.
func testField(n int) []*models.Participant {
	participants := make([]*models.Participant, 0, n)
	for i := 1; i <= n; i++ {
		participants = append(participants, &models.Participant{
			ID:           100 + i,
			TournamentID: 1,
			UserID:       i,
			DisplayName:  fmt.Sprintf("player-%d", i),
			Seed:         i,
			Active:       true,
		})
	}
	return participants
}

// materialize turns a plan into a stored round the way the engine would:
// byes are pre-verified, auto-wins unless the plan skips them.
func materialize(plan *RoundPlan, roundID, firstMatchID int) *models.Round {
	round := &models.Round{
		ID:           roundID,
		TournamentID: 1,
		Number:       plan.Number,
		Bracket:      plan.Bracket,
		Status:       models.RoundActive,
	}
	for i, pairing := range plan.Pairings {
		match := models.Match{
			ID:           firstMatchID + i,
			RoundID:      roundID,
			TournamentID: 1,
			OrderInRound: i + 1,
			P1ID:         pairing.P1ID,
			P2ID:         pairing.P2ID,
			Verification: models.MatchUnverified,
			Version:      1,
		}
		if pairing.Bye() {
			match.Verification = models.MatchVerified
			if !plan.SkipByes {
				winner := pairing.P1ID
				match.WinnerID = &winner
			}
		}
		round.Matches = append(round.Matches, match)
	}
	return round
}

// decideAll верифицирует все матчи раунда: победителя выбирает pick.
func decideAll(round *models.Round, pick func(m *models.Match) int) {
	for i := range round.Matches {
		m := &round.Matches[i]
		if m.Bye() {
			continue
		}
		winner := pick(m)
		m.WinnerID = &winner
		m.Verification = models.MatchVerified
		m.Version++
	}
	round.Status = models.RoundCompleted
}

func lowestIDWins(m *models.Match) int {
	if m.P2ID != nil && *m.P2ID < m.P1ID {
		return *m.P2ID
	}
	return m.P1ID
}

func deactivate(participants []*models.Participant, ids []int) {
	for _, id := range ids {
		for _, p := range participants {
			if p.ID == id {
				p.Active = false
			}
		}
	}
}

func pairingIDs(p Pairing) (int, int) {
	if p.P2ID == nil {
		return p.P1ID, 0
	}
	return p.P1ID, *p.P2ID
}

func requirePairing(t *testing.T, p Pairing, p1, p2 int) {
	t.Helper()
	a, b := pairingIDs(p)
	require.Equal(t, p1, a, "unexpected first slot")
	require.Equal(t, p2, b, "unexpected second slot")
}

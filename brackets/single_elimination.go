package brackets

import (
	"fmt"
	"math"
	"sort"

	"github.com/Dosada05/tcg-arena/models"
)

type SingleEliminationGenerator struct{}

func (g *SingleEliminationGenerator) Name() string { return "SingleElimination" }

func (g *SingleEliminationGenerator) FullSchedule() bool { return false }

// NextRound pairs round 1 by standard bracket seeding (1 vs N, 2 vs N-1,
// mirrored so the top seeds cannot meet before the final) and subsequent
// rounds by bracket-position order of the previous round's winners.
func (g *SingleEliminationGenerator) NextRound(params GenerateParams) (*RoundPlan, error) {
	active := activeParticipants(params.Participants)
	if len(active) < 2 {
		return nil, fmt.Errorf("%w: single elimination requires 2, found %d", ErrInsufficientParticipants, len(active))
	}

	number := len(params.Rounds) + 1
	if number == 1 {
		return g.firstRound(active), nil
	}

	prev := params.Rounds[len(params.Rounds)-1]
	winners, err := roundWinners(prev)
	if err != nil {
		return nil, err
	}
	if len(winners) < 2 {
		return nil, fmt.Errorf("%w: %d winners advanced from round %d", ErrInsufficientParticipants, len(winners), prev.Number)
	}

	plan := &RoundPlan{Number: number}
	for i := 0; i+1 < len(winners); i += 2 {
		plan.Pairings = append(plan.Pairings, Pairing{P1ID: winners[i], P2ID: intPtr(winners[i+1])})
		plan.NewPairs = append(plan.NewPairs, models.NewPairKey(winners[i], winners[i+1]))
	}
	if len(winners)%2 != 0 {
		plan.Pairings = append(plan.Pairings, Pairing{P1ID: winners[len(winners)-1]})
	}
	return plan, nil
}

func (g *SingleEliminationGenerator) firstRound(active []*models.Participant) *RoundPlan {
	seeded := sortBySeed(active)
	size := bracketSize(len(seeded))
	order := seedOrder(size)

	plan := &RoundPlan{Number: 1}
	for i := 0; i < size; i += 2 {
		a, b := order[i], order[i+1]
		switch {
		case a < len(seeded) && b < len(seeded):
			plan.Pairings = append(plan.Pairings, Pairing{P1ID: seeded[a].ID, P2ID: intPtr(seeded[b].ID)})
			plan.NewPairs = append(plan.NewPairs, models.NewPairKey(seeded[a].ID, seeded[b].ID))
		case a < len(seeded):
			// Missing opponent slot: the higher seed takes the bye.
			plan.Pairings = append(plan.Pairings, Pairing{P1ID: seeded[a].ID})
		case b < len(seeded):
			plan.Pairings = append(plan.Pairings, Pairing{P1ID: seeded[b].ID})
		}
	}
	return plan
}

func (g *SingleEliminationGenerator) Eliminated(_ GenerateParams, round *models.Round) []int {
	return matchLosers(round.Matches)
}

func (g *SingleEliminationGenerator) Champion(params GenerateParams) (*int, bool) {
	active := activeParticipants(params.Participants)
	if len(params.Rounds) > 0 && len(active) == 1 {
		return intPtr(active[0].ID), true
	}
	return nil, false
}

// seedOrder returns the bracket slot order for a power-of-two bracket, so
// that consecutive pairs form the first-round matches and seeds 1 and 2
// land in opposite halves. Zero-based.
func seedOrder(size int) []int {
	order := []int{0}
	for len(order) < size {
		next := make([]int, 0, len(order)*2)
		for _, s := range order {
			next = append(next, s, len(order)*2-1-s)
		}
		order = next
	}
	return order
}

// bracketSize rounds up to the nearest power of two.
func bracketSize(count int) int {
	if count <= 1 {
		return count
	}
	return 1 << uint(math.Ceil(math.Log2(float64(count))))
}

func sortBySeed(participants []*models.Participant) []*models.Participant {
	seeded := make([]*models.Participant, len(participants))
	copy(seeded, participants)
	sort.SliceStable(seeded, func(i, j int) bool { return seeded[i].Seed < seeded[j].Seed })
	return seeded
}

// roundWinners returns the winners of a completed round in
// bracket-position order, byes included.
func roundWinners(round *models.Round) ([]int, error) {
	matches := make([]*models.Match, len(round.Matches))
	for i := range round.Matches {
		matches[i] = &round.Matches[i]
	}
	sort.SliceStable(matches, func(i, j int) bool { return matches[i].OrderInRound < matches[j].OrderInRound })

	winners := make([]int, 0, len(matches))
	for _, m := range matches {
		if m.WinnerID == nil {
			return nil, fmt.Errorf("%w: round %d match %d has no winner", ErrInvalidFormatState, round.Number, m.ID)
		}
		winners = append(winners, *m.WinnerID)
	}
	return winners, nil
}

// matchLosers collects the losing slot of every decided non-bye match.
func matchLosers(matches []models.Match) []int {
	losers := make([]int, 0, len(matches))
	for i := range matches {
		m := &matches[i]
		if m.Bye() || m.WinnerID == nil {
			continue
		}
		if *m.WinnerID == m.P1ID {
			losers = append(losers, *m.P2ID)
		} else {
			losers = append(losers, m.P1ID)
		}
	}
	return losers
}

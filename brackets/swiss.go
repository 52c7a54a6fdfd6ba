package brackets

import (
	"fmt"

	"github.com/Dosada05/tcg-arena/models"
)

type SwissGenerator struct{}

func (g *SwissGenerator) Name() string { return "Swiss" }

func (g *SwissGenerator) FullSchedule() bool { return false }

// NextRound pairs participants of closest standing, top to bottom:
// standings are computed from all completed matches, then each unpaired
// participant is matched with the highest unpaired candidate below them
// that they have not yet played. The scan runs over the full standings
// order, so a participant who cannot be paired inside their point bucket
// falls through to the next bucket instead of failing. A repeat pairing is
// produced only when every remaining candidate has already been played.
// With an odd field the last unpaired participant takes the bye.
func (g *SwissGenerator) NextRound(params GenerateParams) (*RoundPlan, error) {
	active := activeParticipants(params.Participants)
	if len(active) < 2 {
		return nil, fmt.Errorf("%w: swiss requires 2, found %d", ErrInsufficientParticipants, len(active))
	}
	if params.History == nil {
		return nil, fmt.Errorf("%w: swiss pairing requires the pairing history", ErrInvalidFormatState)
	}

	order := standingsOrder(active, params.Rounds)
	paired := make(map[int]bool, len(order))
	plan := &RoundPlan{Number: len(params.Rounds) + 1}

	for i, p := range order {
		if paired[p] {
			continue
		}
		opponent := -1
		for j := i + 1; j < len(order); j++ {
			q := order[j]
			if paired[q] || params.History.Played(p, q) {
				continue
			}
			opponent = q
			break
		}
		if opponent == -1 {
			// Structurally forced: fall back to the nearest unpaired
			// candidate even though they have met before.
			for j := i + 1; j < len(order); j++ {
				if !paired[order[j]] {
					opponent = order[j]
					break
				}
			}
		}
		if opponent == -1 {
			// Odd field: the lowest-standing unpaired participant is the
			// last one left and receives the bye.
			plan.Pairings = append(plan.Pairings, Pairing{P1ID: p})
			paired[p] = true
			continue
		}

		paired[p] = true
		paired[opponent] = true
		params.History.Add(p, opponent)
		plan.Pairings = append(plan.Pairings, Pairing{P1ID: p, P2ID: intPtr(opponent)})
		plan.NewPairs = append(plan.NewPairs, models.NewPairKey(p, opponent))
	}

	return plan, nil
}

// Swiss never eliminates; the engine runs the configured round count.
func (g *SwissGenerator) Eliminated(GenerateParams, *models.Round) []int { return nil }

func (g *SwissGenerator) Champion(params GenerateParams) (*int, bool) {
	if params.Tournament.RoundCount == 0 || completedRoundCount(params.Rounds) < params.Tournament.RoundCount {
		return nil, false
	}
	order := standingsOrder(activeParticipants(params.Participants), params.Rounds)
	if len(order) == 0 {
		return nil, false
	}
	return intPtr(order[0]), true
}

// standingsOrder returns participant ids in standings order. Before the
// first round every record is zero and the tiebreak chain falls through
// to the seeds.
func standingsOrder(active []*models.Participant, rounds []*models.Round) []int {
	matches := completedMatches(rounds)
	standings := ComputeStandings(active, matches)
	order := make([]int, len(standings))
	for i, s := range standings {
		order[i] = s.ParticipantID
	}
	return order
}

func completedMatches(rounds []*models.Round) []*models.Match {
	var matches []*models.Match
	for _, r := range rounds {
		for i := range r.Matches {
			if r.Matches[i].Completed() {
				matches = append(matches, &r.Matches[i])
			}
		}
	}
	return matches
}

// SwissRoundCount is the default round count for a field of the given
// size: ceil(log2(n)).
func SwissRoundCount(participants int) int {
	count := 0
	for n := 1; n < participants; n *= 2 {
		count++
	}
	return count
}

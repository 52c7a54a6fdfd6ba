package brackets

import (
	"fmt"

	"github.com/Dosada05/tcg-arena/models"
)

// byeSlot is the synthetic participant added to an odd rotation. A match
// against it is recorded skipped: no points, no pairing-history entry.
const byeSlot = -1

type RoundRobinGenerator struct{}

func (g *RoundRobinGenerator) Name() string { return "RoundRobin" }

// FullSchedule is true: the circle method fixes every pairing in advance,
// so all rounds are written out when the tournament starts.
func (g *RoundRobinGenerator) FullSchedule() bool { return true }

// NextRound applies the circle scheduling method: slot 0 stays fixed and
// the rest rotate one position per round, so the whole schedule for round
// N is a pure function of the seed order and N. The caller generates all
// rounds in one pass at tournament start.
func (g *RoundRobinGenerator) NextRound(params GenerateParams) (*RoundPlan, error) {
	active := activeParticipants(params.Participants)
	if len(active) < 2 {
		return nil, fmt.Errorf("%w: round robin requires 2, found %d", ErrInsufficientParticipants, len(active))
	}

	seeded := sortBySeed(active)
	slots := make([]int, 0, len(seeded)+1)
	for _, p := range seeded {
		slots = append(slots, p.ID)
	}
	if len(slots)%2 != 0 {
		slots = append(slots, byeSlot)
	}

	number := len(params.Rounds) + 1
	if number > len(slots)-1 {
		return nil, fmt.Errorf("%w: round robin schedule has %d rounds, round %d requested",
			ErrInvalidFormatState, len(slots)-1, number)
	}

	plan := &RoundPlan{Number: number, SkipByes: true}
	rotation := number - 1
	for i := 0; i < len(slots)/2; i++ {
		a := slots[circleIndex(i, len(slots), rotation)]
		b := slots[circleIndex(len(slots)-1-i, len(slots), rotation)]
		switch {
		case a == byeSlot:
			plan.Pairings = append(plan.Pairings, Pairing{P1ID: b})
		case b == byeSlot:
			plan.Pairings = append(plan.Pairings, Pairing{P1ID: a})
		default:
			plan.Pairings = append(plan.Pairings, Pairing{P1ID: a, P2ID: intPtr(b)})
			plan.NewPairs = append(plan.NewPairs, models.NewPairKey(a, b))
		}
	}
	return plan, nil
}

func (g *RoundRobinGenerator) Eliminated(GenerateParams, *models.Round) []int { return nil }

func (g *RoundRobinGenerator) Champion(params GenerateParams) (*int, bool) {
	if params.Tournament.RoundCount == 0 || completedRoundCount(params.Rounds) < params.Tournament.RoundCount {
		return nil, false
	}
	order := standingsOrder(activeParticipants(params.Participants), params.Rounds)
	if len(order) == 0 {
		return nil, false
	}
	return intPtr(order[0]), true
}

// circleIndex rotates a slot index around the circle while index 0 stays
// fixed (https://en.wikipedia.org/wiki/Round-robin_tournament#Circle_method).
func circleIndex(index, length, rotation int) int {
	if index == 0 {
		return 0
	}
	index -= 1
	index -= rotation
	index += length - 1
	index %= length - 1
	return index + 1
}

// RoundRobinRoundCount is N-1 rounds for an even field and N for an odd
// one, the extra round covering the rotating bye.
func RoundRobinRoundCount(participants int) int {
	if participants%2 == 0 {
		return participants - 1
	}
	return participants
}

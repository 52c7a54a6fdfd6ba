package brackets

import (
	"fmt"

	"github.com/Dosada05/tcg-arena/models"
)

// DoubleEliminationGenerator runs two parallel bracket lines. A winner
// bracket loss drops the participant into the loser bracket; a second loss
// eliminates. Rounds are numbered globally and alternate between the
// lines:
//
//	W1, L1 (minor), then for every further winners round Wk:
//	Wk, L-major (Wk losers vs. loser-bracket survivors), L-minor,
//	ending with the winners final, the losers final (major) and the
//	grand final. If the loser-bracket champion takes the grand final a
//	bracket-reset match follows: the winner-bracket champion has to lose
//	twice to lose the tournament.
//
// The loser bracket therefore holds 2*(winnerRounds-1) rounds. With a
// bye-adjusted field a planned loser round can come up short; it is still
// generated, padded with byes that resolve immediately, so the sequence
// stays aligned with the plan instead of trusting a power-of-two formula.
type DoubleEliminationGenerator struct{}

func (g *DoubleEliminationGenerator) Name() string { return "DoubleElimination" }

func (g *DoubleEliminationGenerator) FullSchedule() bool { return false }

func (g *DoubleEliminationGenerator) NextRound(params GenerateParams) (*RoundPlan, error) {
	if len(params.Participants) < 2 {
		return nil, fmt.Errorf("%w: double elimination requires 2, found %d", ErrInsufficientParticipants, len(params.Participants))
	}

	wRounds, lRounds, gfRounds := splitBrackets(params.Rounds)
	w, l := len(wRounds), len(lRounds)
	totalW := winnerRoundCount(len(params.Participants))
	number := len(params.Rounds) + 1

	if w == 0 {
		se := &SingleEliminationGenerator{}
		plan := se.firstRound(activeParticipants(params.Participants))
		plan.Number = number
		plan.Bracket = models.BracketWinners
		return plan, nil
	}

	// Grand final stage once both lines are exhausted.
	if w == totalW && l == 2*(totalW-1) {
		return g.grandFinal(params, wRounds, lRounds, gfRounds, number)
	}

	switch {
	case w == 1 && l == 0 && totalW > 1:
		// First minor round: winners-round-1 losers pair among themselves.
		return pairAdjacent(matchLosers(wRounds[0].Matches), number, models.BracketLosers), nil

	case w < totalW && l == 2*w-1:
		winners, err := roundWinners(wRounds[w-1])
		if err != nil {
			return nil, err
		}
		return pairAdjacent(winners, number, models.BracketWinners), nil

	case w >= 2 && l == 2*(w-1)-1:
		// Major round: the latest winners-round losers meet the
		// loser-bracket survivors.
		drops := matchLosers(wRounds[w-1].Matches)
		survivors, err := roundWinners(lRounds[l-1])
		if err != nil {
			return nil, err
		}
		// Alternate majors reverse the dropped half so bracket neighbours
		// cannot meet again straight away.
		if ((l+1)/2)%2 == 1 {
			reverseInts(drops)
		}
		return pairAcross(drops, survivors, number), nil

	case l > 0 && l == 2*(w-1) && w < totalW:
		survivors, err := roundWinners(lRounds[l-1])
		if err != nil {
			return nil, err
		}
		return pairAdjacent(survivors, number, models.BracketLosers), nil
	}

	return nil, fmt.Errorf("%w: double elimination sequence broken at %d winners / %d losers rounds", ErrInvalidFormatState, w, l)
}

func (g *DoubleEliminationGenerator) grandFinal(
	params GenerateParams,
	wRounds, lRounds, gfRounds []*models.Round,
	number int,
) (*RoundPlan, error) {
	wbChampion, lbChampion, err := finalists(wRounds, lRounds)
	if err != nil {
		return nil, err
	}

	switch len(gfRounds) {
	case 0:
		return &RoundPlan{
			Number:   number,
			Bracket:  models.BracketGrandFinal,
			Pairings: []Pairing{{P1ID: wbChampion, P2ID: intPtr(lbChampion)}},
			NewPairs: []models.PairKey{models.NewPairKey(wbChampion, lbChampion)},
		}, nil
	case 1:
		winner := decidedWinner(gfRounds[0])
		if winner == nil {
			return nil, fmt.Errorf("%w: grand final has no winner", ErrInvalidFormatState)
		}
		if *winner == wbChampion {
			return nil, fmt.Errorf("%w: grand final already decided", ErrInvalidFormatState)
		}
		// Bracket reset: the loser-bracket champion took the first grand
		// final, so both sides now stand at one loss.
		return &RoundPlan{
			Number:   number,
			Bracket:  models.BracketGrandFinal,
			Pairings: []Pairing{{P1ID: wbChampion, P2ID: intPtr(lbChampion)}},
			NewPairs: []models.PairKey{models.NewPairKey(wbChampion, lbChampion)},
		}, nil
	default:
		return nil, fmt.Errorf("%w: grand final already decided", ErrInvalidFormatState)
	}
}

// Eliminated knocks out losers of loser-bracket rounds and the loser of a
// deciding grand final. Winner-bracket losers only drop down.
func (g *DoubleEliminationGenerator) Eliminated(params GenerateParams, round *models.Round) []int {
	switch round.Bracket {
	case models.BracketLosers:
		return matchLosers(round.Matches)
	case models.BracketGrandFinal:
		wRounds, lRounds, gfRounds := splitBrackets(params.Rounds)
		wbChampion, _, err := finalists(wRounds, lRounds)
		if err != nil {
			return nil
		}
		winner := decidedWinner(round)
		if winner == nil {
			return nil
		}
		if *winner == wbChampion || isSecondGrandFinal(gfRounds, round) {
			return matchLosers(round.Matches)
		}
		// First grand final lost by the winner-bracket champion: the
		// bracket resets, nobody is out yet.
		return nil
	default:
		return nil
	}
}

func (g *DoubleEliminationGenerator) Champion(params GenerateParams) (*int, bool) {
	wRounds, lRounds, gfRounds := splitBrackets(params.Rounds)
	if len(gfRounds) == 0 {
		return nil, false
	}
	wbChampion, _, err := finalists(wRounds, lRounds)
	if err != nil {
		return nil, false
	}
	last := gfRounds[len(gfRounds)-1]
	winner := decidedWinner(last)
	if winner == nil {
		return nil, false
	}
	if len(gfRounds) == 2 || *winner == wbChampion {
		return winner, true
	}
	return nil, false
}

func splitBrackets(rounds []*models.Round) (winners, losers, grandFinals []*models.Round) {
	for _, r := range rounds {
		switch r.Bracket {
		case models.BracketLosers:
			losers = append(losers, r)
		case models.BracketGrandFinal:
			grandFinals = append(grandFinals, r)
		default:
			winners = append(winners, r)
		}
	}
	return winners, losers, grandFinals
}

// finalists resolves the two grand finalists. With a two-player field the
// loser bracket is empty and the first-round loser is the loser-bracket
// champion.
func finalists(wRounds, lRounds []*models.Round) (wbChampion, lbChampion int, err error) {
	if len(wRounds) == 0 {
		return 0, 0, fmt.Errorf("%w: no winners rounds", ErrInvalidFormatState)
	}
	wWinners, err := roundWinners(wRounds[len(wRounds)-1])
	if err != nil || len(wWinners) != 1 {
		return 0, 0, fmt.Errorf("%w: winners final undecided", ErrInvalidFormatState)
	}
	wbChampion = wWinners[0]

	if len(lRounds) == 0 {
		losers := matchLosers(wRounds[0].Matches)
		if len(losers) != 1 {
			return 0, 0, fmt.Errorf("%w: losers final undecided", ErrInvalidFormatState)
		}
		return wbChampion, losers[0], nil
	}
	lWinners, err := roundWinners(lRounds[len(lRounds)-1])
	if err != nil || len(lWinners) != 1 {
		return 0, 0, fmt.Errorf("%w: losers final undecided", ErrInvalidFormatState)
	}
	return wbChampion, lWinners[0], nil
}

func decidedWinner(round *models.Round) *int {
	if len(round.Matches) != 1 {
		return nil
	}
	return round.Matches[0].WinnerID
}

func isSecondGrandFinal(gfRounds []*models.Round, round *models.Round) bool {
	return len(gfRounds) == 2 && gfRounds[1].ID == round.ID
}

func winnerRoundCount(participants int) int {
	count := 0
	for n := 1; n < participants; n *= 2 {
		count++
	}
	return count
}

func pairAdjacent(ids []int, number int, section models.BracketSection) *RoundPlan {
	plan := &RoundPlan{Number: number, Bracket: section}
	for i := 0; i+1 < len(ids); i += 2 {
		plan.Pairings = append(plan.Pairings, Pairing{P1ID: ids[i], P2ID: intPtr(ids[i+1])})
		plan.NewPairs = append(plan.NewPairs, models.NewPairKey(ids[i], ids[i+1]))
	}
	if len(ids)%2 != 0 {
		plan.Pairings = append(plan.Pairings, Pairing{P1ID: ids[len(ids)-1]})
	}
	return plan
}

// pairAcross zips two participant columns; the longer column's leftovers
// take byes so a bye-adjusted field cannot stall the sequence.
func pairAcross(left, right []int, number int) *RoundPlan {
	plan := &RoundPlan{Number: number, Bracket: models.BracketLosers}
	n := len(left)
	if len(right) > n {
		n = len(right)
	}
	for i := 0; i < n; i++ {
		switch {
		case i < len(left) && i < len(right):
			plan.Pairings = append(plan.Pairings, Pairing{P1ID: left[i], P2ID: intPtr(right[i])})
			plan.NewPairs = append(plan.NewPairs, models.NewPairKey(left[i], right[i]))
		case i < len(left):
			plan.Pairings = append(plan.Pairings, Pairing{P1ID: left[i]})
		default:
			plan.Pairings = append(plan.Pairings, Pairing{P1ID: right[i]})
		}
	}
	return plan
}

func reverseInts(ids []int) {
	for i, j := 0, len(ids)-1; i < j; i, j = i+1, j-1 {
		ids[i], ids[j] = ids[j], ids[i]
	}
}

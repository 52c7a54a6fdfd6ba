package brackets

import (
	"sort"

	"github.com/Dosada05/tcg-arena/models"
)

const (
	winPoints  = 3
	drawPoints = 1
)

type record struct {
	participant *models.Participant
	wins        int
	losses      int
	draws       int
	byes        int
	gamesWon    int
	gamesTotal  int
	opponents   []int
}

func (r *record) matchesPlayed() int {
	return r.wins + r.losses + r.draws + r.byes
}

func (r *record) matchPoints() int {
	return winPoints*(r.wins+r.byes) + drawPoints*r.draws
}

// matchWinPct is match points over the maximum attainable. Byes count as
// wins here; they are only excluded from the opponent averages.
func (r *record) matchWinPct() float64 {
	played := r.matchesPlayed()
	if played == 0 {
		return 0
	}
	return float64(r.matchPoints()) / float64(winPoints*played)
}

func (r *record) gameWinPct() float64 {
	if r.gamesTotal > 0 {
		return float64(r.gamesWon) / float64(r.gamesTotal)
	}
	return r.matchWinPct()
}

// ComputeStandings derives the standings from completed matches. The sort
// is fully deterministic: match points desc, opponent-match-win-% desc,
// game-win-% desc, then seed asc. Repeated invocations over the same
// inputs return the identical ordering.
func ComputeStandings(participants []*models.Participant, matches []*models.Match) []models.Standing {
	records := make(map[int]*record, len(participants))
	for _, p := range participants {
		records[p.ID] = &record{participant: p}
	}

	for _, m := range matches {
		if !m.Completed() {
			continue
		}
		p1 := records[m.P1ID]
		if m.Bye() {
			// Elimination and swiss byes carry a winner and score as a
			// win. A round-robin bye is recorded skipped (no winner, no
			// points) and contributes nothing.
			if p1 != nil && m.WinnerID != nil && *m.WinnerID == m.P1ID {
				p1.byes++
			}
			continue
		}
		p2 := records[*m.P2ID]
		if p1 != nil {
			p1.opponents = append(p1.opponents, *m.P2ID)
			p1.gamesWon += m.P1Games
			p1.gamesTotal += m.P1Games + m.P2Games
		}
		if p2 != nil {
			p2.opponents = append(p2.opponents, m.P1ID)
			p2.gamesWon += m.P2Games
			p2.gamesTotal += m.P1Games + m.P2Games
		}
		switch {
		case m.Draw:
			if p1 != nil {
				p1.draws++
			}
			if p2 != nil {
				p2.draws++
			}
		case m.WinnerID != nil && *m.WinnerID == m.P1ID:
			if p1 != nil {
				p1.wins++
			}
			if p2 != nil {
				p2.losses++
			}
		case m.WinnerID != nil && p2 != nil && *m.WinnerID == *m.P2ID:
			p2.wins++
			if p1 != nil {
				p1.losses++
			}
		}
	}

	standings := make([]models.Standing, 0, len(participants))
	for _, p := range participants {
		r := records[p.ID]
		standings = append(standings, models.Standing{
			ParticipantID:       p.ID,
			DisplayName:         p.DisplayName,
			Seed:                p.Seed,
			MatchPoints:         r.matchPoints(),
			Wins:                r.wins,
			Losses:              r.losses,
			Draws:               r.draws,
			Byes:                r.byes,
			OpponentMatchWinPct: opponentMatchWinPct(r, records),
			GameWinPct:          r.gameWinPct(),
		})
	}

	sort.SliceStable(standings, func(i, j int) bool {
		a, b := standings[i], standings[j]
		if a.MatchPoints != b.MatchPoints {
			return a.MatchPoints > b.MatchPoints
		}
		if a.OpponentMatchWinPct != b.OpponentMatchWinPct {
			return a.OpponentMatchWinPct > b.OpponentMatchWinPct
		}
		if a.GameWinPct != b.GameWinPct {
			return a.GameWinPct > b.GameWinPct
		}
		return a.Seed < b.Seed
	})
	for i := range standings {
		standings[i].Rank = i + 1
	}
	return standings
}

// opponentMatchWinPct averages the match-win-% of every real opponent
// faced. Bye rounds contribute no opponent.
func opponentMatchWinPct(r *record, records map[int]*record) float64 {
	if len(r.opponents) == 0 {
		return 0
	}
	var sum float64
	var counted int
	for _, id := range r.opponents {
		opp, ok := records[id]
		if !ok {
			continue
		}
		sum += opp.matchWinPct()
		counted++
	}
	if counted == 0 {
		return 0
	}
	return sum / float64(counted)
}

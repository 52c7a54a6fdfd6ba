package brackets

import (
	"errors"
	"fmt"

	"github.com/Dosada05/tcg-arena/models"
)

var (
	// ErrInsufficientParticipants is structural: fewer than two active
	// participants remain for the requested round.
	ErrInsufficientParticipants = errors.New("not enough active participants to generate a round")
	// ErrInvalidFormatState is structural: the tournament format has no
	// registered generator or its round history is inconsistent.
	ErrInvalidFormatState = errors.New("invalid tournament format state")
)

// Pairing assigns two participants (or one plus a bye) to a match slot.
type Pairing struct {
	P1ID int
	P2ID *int // nil = bye
}

func (p Pairing) Bye() bool { return p.P2ID == nil }

// RoundPlan is the pure output of a generator: the pairing set for one
// round plus its metadata. Nothing is persisted here.
type RoundPlan struct {
	Number   int
	Bracket  models.BracketSection
	Pairings []Pairing
	// NewPairs are the unordered pairs this round introduces, for the
	// pairing history. Byes never appear here.
	NewPairs []models.PairKey
	// SkipByes marks bye pairings as skipped (no winner, no points)
	// instead of auto-wins. Only the round robin schedule sets it.
	SkipByes bool
}

// GenerateParams carries everything a generator may consult. Participants
// are seed-ordered; Rounds are prior rounds, ascending by number, with
// their matches populated.
type GenerateParams struct {
	Tournament   *models.Tournament
	Participants []*models.Participant
	Rounds       []*models.Round
	History      *PairingSet
}

// Generator plans rounds for one tournament format. Implementations are
// pure: no I/O, no clocks, deterministic for identical inputs.
type Generator interface {
	Name() string

	// FullSchedule reports whether every round is known up front and
	// should be generated when the tournament starts.
	FullSchedule() bool

	// NextRound plans the round numbered len(params.Rounds)+1.
	NextRound(params GenerateParams) (*RoundPlan, error)

	// Eliminated returns the participants knocked out by the given
	// completed round. Empty for non-elimination formats.
	Eliminated(params GenerateParams, round *models.Round) []int

	// Champion reports whether the tournament is decided and by whom.
	// Called after eliminations from the latest round have been applied.
	Champion(params GenerateParams) (winnerID *int, decided bool)
}

// ForFormat returns the generator registered for the format. The format
// tag is chosen once at tournament creation; no other code inspects it.
func ForFormat(format models.TournamentFormat) (Generator, error) {
	switch format {
	case models.FormatSingleElimination:
		return &SingleEliminationGenerator{}, nil
	case models.FormatDoubleElimination:
		return &DoubleEliminationGenerator{}, nil
	case models.FormatSwiss:
		return &SwissGenerator{}, nil
	case models.FormatRoundRobin:
		return &RoundRobinGenerator{}, nil
	default:
		return nil, fmt.Errorf("%w: unregistered format %q", ErrInvalidFormatState, format)
	}
}

func activeParticipants(participants []*models.Participant) []*models.Participant {
	active := make([]*models.Participant, 0, len(participants))
	for _, p := range participants {
		if p.Active {
			active = append(active, p)
		}
	}
	return active
}

// completedRoundCount counts finished rounds only: with a pre-generated
// schedule the round list is longer than what has actually been played.
func completedRoundCount(rounds []*models.Round) int {
	count := 0
	for _, r := range rounds {
		if r.Status == models.RoundCompleted {
			count++
		}
	}
	return count
}

func intPtr(v int) *int { return &v }

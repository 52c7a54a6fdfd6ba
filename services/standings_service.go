package services

import (
	"context"

	"golang.org/x/sync/errgroup"

	"github.com/Dosada05/tcg-arena/brackets"
	"github.com/Dosada05/tcg-arena/models"
	"github.com/Dosada05/tcg-arena/repositories"
)

// BracketView is the read model for bracket overview pages: every round
// with its matches plus the match progression edges (which match feeds
// which), so clients can draw the bracket without replaying the rules.
type BracketView struct {
	Tournament *models.Tournament         `json:"tournament"`
	Rounds     []*models.Round            `json:"rounds"`
	Edges      []brackets.ProgressionEdge `json:"edges,omitempty"`
}

type StandingsService interface {
	GetStandings(ctx context.Context, tournamentID int) ([]models.Standing, error)
	GetBracket(ctx context.Context, tournamentID int) (*BracketView, error)
}

type standingsService struct {
	tournamentRepo  repositories.TournamentRepository
	participantRepo repositories.ParticipantRepository
	roundRepo       repositories.RoundRepository
	matchRepo       repositories.MatchRepository
}

func NewStandingsService(
	tournamentRepo repositories.TournamentRepository,
	participantRepo repositories.ParticipantRepository,
	roundRepo repositories.RoundRepository,
	matchRepo repositories.MatchRepository,
) StandingsService {
	return &standingsService{
		tournamentRepo:  tournamentRepo,
		participantRepo: participantRepo,
		roundRepo:       roundRepo,
		matchRepo:       matchRepo,
	}
}

// GetStandings never takes the tournament lock: reads see the last
// committed state, which is always internally consistent.
func (s *standingsService) GetStandings(ctx context.Context, tournamentID int) ([]models.Standing, error) {
	var (
		participants []*models.Participant
		matches      []*models.Match
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		_, err := s.tournamentRepo.GetByID(gctx, tournamentID)
		return err
	})
	g.Go(func() error {
		list, err := s.participantRepo.ListByTournament(gctx, tournamentID, false)
		if err != nil {
			return err
		}
		participants = list
		return nil
	})
	g.Go(func() error {
		list, err := s.matchRepo.ListByTournament(gctx, tournamentID)
		if err != nil {
			return err
		}
		matches = list
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	completed := make([]*models.Match, 0, len(matches))
	for _, match := range matches {
		if match.Completed() {
			completed = append(completed, match)
		}
	}
	return brackets.ComputeStandings(participants, completed), nil
}

func (s *standingsService) GetBracket(ctx context.Context, tournamentID int) (*BracketView, error) {
	var (
		tournament *models.Tournament
		rounds     []*models.Round
		matches    []*models.Match
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		t, err := s.tournamentRepo.GetByID(gctx, tournamentID)
		if err != nil {
			return err
		}
		tournament = t
		return nil
	})
	g.Go(func() error {
		list, err := s.roundRepo.ListByTournament(gctx, tournamentID)
		if err != nil {
			return err
		}
		rounds = list
		return nil
	})
	g.Go(func() error {
		list, err := s.matchRepo.ListByTournament(gctx, tournamentID)
		if err != nil {
			return err
		}
		matches = list
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	byRound := make(map[int][]*models.Match, len(rounds))
	for _, match := range matches {
		byRound[match.RoundID] = append(byRound[match.RoundID], match)
	}
	for _, round := range rounds {
		for _, match := range byRound[round.ID] {
			round.Matches = append(round.Matches, *match)
		}
	}

	edges, err := brackets.ProgressionEdges(rounds)
	if err != nil {
		return nil, err
	}
	return &BracketView{Tournament: tournament, Rounds: rounds, Edges: edges}, nil
}

package services

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/Dosada05/tcg-arena/brackets"
	"github.com/Dosada05/tcg-arena/models"
	"github.com/Dosada05/tcg-arena/repositories"
)

// ParticipantEntry is one enrolled player at creation time. Seeds follow
// the slice order: the first entry is seed 1.
type ParticipantEntry struct {
	UserID      int
	DisplayName string
}

type CreateTournamentParams struct {
	Name         string
	Format       models.TournamentFormat
	OrganizerID  int
	Participants []ParticipantEntry
}

type TournamentService interface {
	Create(ctx context.Context, params CreateTournamentParams) (*models.Tournament, error)
	GetByID(ctx context.Context, tournamentID int) (*models.Tournament, error)
	List(ctx context.Context, status *models.TournamentStatus, limit, offset int) ([]models.Tournament, error)
	Start(ctx context.Context, tournamentID, actorUserID int) (*models.Tournament, error)
	AdvanceRound(ctx context.Context, tournamentID, actorUserID int) (*models.Tournament, error)
	Cancel(ctx context.Context, tournamentID, actorUserID int) error
}

type tournamentService struct {
	db              *sql.DB
	tournamentRepo  repositories.TournamentRepository
	participantRepo repositories.ParticipantRepository
	roundRepo       repositories.RoundRepository
	matchRepo       repositories.MatchRepository
	engine          *RoundEngine
	locks           *LockRegistry
	logger          *slog.Logger
}

func NewTournamentService(
	db *sql.DB,
	tournamentRepo repositories.TournamentRepository,
	participantRepo repositories.ParticipantRepository,
	roundRepo repositories.RoundRepository,
	matchRepo repositories.MatchRepository,
	engine *RoundEngine,
	locks *LockRegistry,
	logger *slog.Logger,
) TournamentService {
	return &tournamentService{
		db:              db,
		tournamentRepo:  tournamentRepo,
		participantRepo: participantRepo,
		roundRepo:       roundRepo,
		matchRepo:       matchRepo,
		engine:          engine,
		locks:           locks,
		logger:          logger,
	}
}

// Допустимые переходы статуса. Переход active -> completed делает только
// RoundEngine, но карта описывает его целиком.
var validStatusTransitions = map[models.TournamentStatus][]models.TournamentStatus{
	models.TournamentDraft:  {models.TournamentActive, models.TournamentCancelled},
	models.TournamentActive: {models.TournamentCompleted, models.TournamentCancelled},
}

func isValidStatusTransition(from, to models.TournamentStatus) bool {
	for _, allowed := range validStatusTransitions[from] {
		if allowed == to {
			return true
		}
	}
	return false
}

func (s *tournamentService) Create(ctx context.Context, params CreateTournamentParams) (*models.Tournament, error) {
	name := strings.TrimSpace(params.Name)
	if name == "" {
		return nil, ErrTournamentNameRequired
	}
	if !params.Format.Valid() {
		return nil, fmt.Errorf("%w: %q", ErrInvalidFormat, params.Format)
	}
	if len(params.Participants) < 2 {
		return nil, fmt.Errorf("%w: have %d", ErrNotEnoughParticipants, len(params.Participants))
	}
	for _, entry := range params.Participants {
		if strings.TrimSpace(entry.DisplayName) == "" {
			return nil, fmt.Errorf("%w: participant display name required", ErrValidationFailed)
		}
	}

	tournament := &models.Tournament{
		Name:        name,
		Format:      params.Format,
		OrganizerID: params.OrganizerID,
		Status:      models.TournamentDraft,
		RoundCount:  fixedRoundCount(params.Format, len(params.Participants)),
	}

	err := inTx(ctx, s.db, func(tx *sql.Tx) error {
		if txErr := s.tournamentRepo.Create(ctx, tx, tournament); txErr != nil {
			return txErr
		}
		for i, entry := range params.Participants {
			participant := &models.Participant{
				TournamentID: tournament.ID,
				UserID:       entry.UserID,
				DisplayName:  strings.TrimSpace(entry.DisplayName),
				Seed:         i + 1,
				Active:       true,
			}
			if txErr := s.participantRepo.Create(ctx, tx, participant); txErr != nil {
				return txErr
			}
			tournament.Participants = append(tournament.Participants, *participant)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("tournament created",
		"tournament_id", tournament.ID,
		"format", tournament.Format,
		"participants", len(tournament.Participants),
		"round_count", tournament.RoundCount,
	)
	return tournament, nil
}

// fixedRoundCount is zero for elimination formats, which run until one
// active participant remains.
func fixedRoundCount(format models.TournamentFormat, participants int) int {
	switch format {
	case models.FormatSwiss:
		return brackets.SwissRoundCount(participants)
	case models.FormatRoundRobin:
		return brackets.RoundRobinRoundCount(participants)
	default:
		return 0
	}
}

func (s *tournamentService) GetByID(ctx context.Context, tournamentID int) (*models.Tournament, error) {
	var (
		tournament   *models.Tournament
		participants []*models.Participant
		rounds       []*models.Round
		matches      []*models.Match
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
		list, err := s.participantRepo.ListByTournament(gctx, tournamentID, false)
		if err != nil {
			return err
		}
		participants = list
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
	for _, participant := range participants {
		tournament.Participants = append(tournament.Participants, *participant)
	}
	for _, round := range rounds {
		for _, match := range byRound[round.ID] {
			round.Matches = append(round.Matches, *match)
		}
		tournament.Rounds = append(tournament.Rounds, *round)
	}
	return tournament, nil
}

func (s *tournamentService) List(ctx context.Context, status *models.TournamentStatus, limit, offset int) ([]models.Tournament, error) {
	return s.tournamentRepo.List(ctx, status, limit, offset)
}

func (s *tournamentService) Start(ctx context.Context, tournamentID, actorUserID int) (*models.Tournament, error) {
	if err := s.requireOrganizer(ctx, tournamentID, actorUserID); err != nil {
		return nil, err
	}
	return s.engine.Start(ctx, tournamentID)
}

func (s *tournamentService) AdvanceRound(ctx context.Context, tournamentID, actorUserID int) (*models.Tournament, error) {
	if err := s.requireOrganizer(ctx, tournamentID, actorUserID); err != nil {
		return nil, err
	}
	return s.engine.Advance(ctx, tournamentID)
}

func (s *tournamentService) Cancel(ctx context.Context, tournamentID, actorUserID int) error {
	release, err := s.locks.Acquire(ctx, tournamentID)
	if err != nil {
		return err
	}
	defer release()

	tournament, err := s.tournamentRepo.GetByID(ctx, tournamentID)
	if err != nil {
		return err
	}
	if tournament.OrganizerID != actorUserID {
		return ErrOrganizerOnly
	}
	if !isValidStatusTransition(tournament.Status, models.TournamentCancelled) {
		if tournament.Terminal() {
			return ErrTournamentClosed
		}
		return fmt.Errorf("%w: %s -> %s", ErrInvalidStatusTransition, tournament.Status, models.TournamentCancelled)
	}

	err = s.tournamentRepo.UpdateState(ctx, nil, tournamentID, models.TournamentCancelled, tournament.CurrentRound, tournament.ResolvedEarly)
	if err != nil {
		return err
	}
	s.locks.Forget(tournamentID)
	s.logger.Info("tournament cancelled", "tournament_id", tournamentID, "organizer_id", actorUserID)
	return nil
}

func (s *tournamentService) requireOrganizer(ctx context.Context, tournamentID, actorUserID int) error {
	tournament, err := s.tournamentRepo.GetByID(ctx, tournamentID)
	if err != nil {
		return err
	}
	if tournament.OrganizerID != actorUserID {
		return ErrOrganizerOnly
	}
	return nil
}

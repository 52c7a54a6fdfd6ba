package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/Dosada05/tcg-arena/events"
	"github.com/Dosada05/tcg-arena/models"
	"github.com/Dosada05/tcg-arena/repositories"
)

// ReportResultParams is one result report. Version is the match version
// the reporter last read; a stale version means someone wrote in between
// and the report is rejected with ErrConcurrentModification.
type ReportResultParams struct {
	MatchID    int
	ReporterID int // user id of the caller
	WinnerID   *int
	Draw       bool
	P1Games    int
	P2Games    int
	Version    int
}

type ResultService interface {
	// ReportResult records a match outcome. A participant's report stays
	// unverified until the opponent confirms the same outcome or the
	// organizer reports; organizer reports verify immediately. A
	// conflicting report from the other participant flips the match to
	// disputed instead of overwriting; the organizer's report always
	// wins and closes any open dispute.
	ReportResult(ctx context.Context, params ReportResultParams) (*models.Match, error)
	ResolveDispute(ctx context.Context, disputeID, actorUserID, winnerID int) (*models.Match, error)
	ListOpenDisputes(ctx context.Context, tournamentID int) ([]*models.Dispute, error)
}

type resultService struct {
	db              *sql.DB
	tournamentRepo  repositories.TournamentRepository
	participantRepo repositories.ParticipantRepository
	roundRepo       repositories.RoundRepository
	matchRepo       repositories.MatchRepository
	disputeRepo     repositories.DisputeRepository
	engine          *RoundEngine
	broadcaster     events.Broadcaster
	logger          *slog.Logger
}

func NewResultService(
	db *sql.DB,
	tournamentRepo repositories.TournamentRepository,
	participantRepo repositories.ParticipantRepository,
	roundRepo repositories.RoundRepository,
	matchRepo repositories.MatchRepository,
	disputeRepo repositories.DisputeRepository,
	engine *RoundEngine,
	broadcaster events.Broadcaster,
	logger *slog.Logger,
) ResultService {
	return &resultService{
		db:              db,
		tournamentRepo:  tournamentRepo,
		participantRepo: participantRepo,
		roundRepo:       roundRepo,
		matchRepo:       matchRepo,
		disputeRepo:     disputeRepo,
		engine:          engine,
		broadcaster:     broadcaster,
		logger:          logger,
	}
}

func (s *resultService) ReportResult(ctx context.Context, params ReportResultParams) (*models.Match, error) {
	match, err := s.matchRepo.GetByID(ctx, params.MatchID)
	if err != nil {
		return nil, err
	}
	tournament, err := s.tournamentRepo.GetByID(ctx, match.TournamentID)
	if err != nil {
		return nil, err
	}
	if tournament.Terminal() {
		return nil, ErrTournamentClosed
	}
	if tournament.Status != models.TournamentActive {
		return nil, ErrTournamentNotStarted
	}
	round, err := s.roundRepo.GetByID(ctx, match.RoundID)
	if err != nil {
		return nil, err
	}
	if round.Status != models.RoundActive {
		return nil, fmt.Errorf("%w: round %d is %s", ErrRoundNotActive, round.Number, round.Status)
	}
	if match.Bye() {
		return nil, ErrByeNotReportable
	}

	organizer := tournament.OrganizerID == params.ReporterID
	if !organizer {
		reporter, lookupErr := s.matchParticipantByUser(ctx, match, params.ReporterID)
		if lookupErr != nil {
			return nil, lookupErr
		}
		if reporter == nil {
			return nil, ErrNotAuthorized
		}
	}

	if err := validateOutcome(tournament, match, params); err != nil {
		return nil, err
	}

	switch match.Verification {
	case models.MatchUnverified:
		if organizer || match.ReportedBy == nil || *match.ReportedBy == params.ReporterID {
			return s.writeResult(ctx, tournament, round, match, params, organizer)
		}
		// Соперник отвечает на неподтверждённую заявку.
		if sameOutcome(match, params) {
			return s.confirmResult(ctx, tournament, round, match, params)
		}
		return s.raiseDispute(ctx, tournament, match, params)

	case models.MatchVerified:
		if organizer {
			return s.overrideResult(ctx, tournament, round, match, params)
		}
		if sameOutcome(match, params) {
			// Повторное подтверждение того же исхода: ничего не меняем.
			return match, nil
		}
		return s.raiseDispute(ctx, tournament, match, params)

	case models.MatchDisputed:
		if organizer {
			return s.overrideResult(ctx, tournament, round, match, params)
		}
		return nil, fmt.Errorf("%w: match %d is disputed, awaiting organizer ruling", ErrValidationFailed, match.ID)
	}
	return nil, fmt.Errorf("%w: unknown verification state %q", ErrValidationFailed, match.Verification)
}

// writeResult is the optimistic claim write: succeeds only when nobody
// touched the match since the reporter read it. Organizer reports are
// verified immediately; a participant's claim awaits the opponent.
func (s *resultService) writeResult(ctx context.Context, tournament *models.Tournament, round *models.Round, match *models.Match, params ReportResultParams, organizer bool) (*models.Match, error) {
	reporter := params.ReporterID
	verification := models.MatchUnverified
	if organizer {
		verification = models.MatchVerified
	}
	update := repositories.MatchResultUpdate{
		WinnerID:     params.WinnerID,
		Draw:         params.Draw,
		P1Games:      params.P1Games,
		P2Games:      params.P2Games,
		Verification: verification,
		ReportedBy:   &reporter,
	}
	if err := s.matchRepo.UpdateResult(ctx, nil, match.ID, update, params.Version); err != nil {
		if errors.Is(err, repositories.ErrMatchVersionConflict) {
			return nil, fmt.Errorf("match %d: %w", match.ID, ErrConcurrentModification)
		}
		return nil, err
	}

	updated, err := s.matchRepo.GetByID(ctx, match.ID)
	if err != nil {
		return nil, err
	}
	s.emitReported(tournament.ID, round.Number, updated)
	if updated.Verification == models.MatchVerified {
		s.tryAdvance(ctx, tournament.ID)
	}
	return updated, nil
}

// confirmResult is the opponent agreeing with a pending claim. The first
// report stays canonical; only the verification flips.
func (s *resultService) confirmResult(ctx context.Context, tournament *models.Tournament, round *models.Round, match *models.Match, params ReportResultParams) (*models.Match, error) {
	update := repositories.MatchResultUpdate{
		WinnerID:     match.WinnerID,
		Draw:         match.Draw,
		P1Games:      match.P1Games,
		P2Games:      match.P2Games,
		Verification: models.MatchVerified,
		ReportedBy:   match.ReportedBy,
	}
	if err := s.matchRepo.UpdateResult(ctx, nil, match.ID, update, params.Version); err != nil {
		if errors.Is(err, repositories.ErrMatchVersionConflict) {
			return nil, fmt.Errorf("match %d: %w", match.ID, ErrConcurrentModification)
		}
		return nil, err
	}

	updated, err := s.matchRepo.GetByID(ctx, match.ID)
	if err != nil {
		return nil, err
	}
	s.emitReported(tournament.ID, round.Number, updated)
	s.tryAdvance(ctx, tournament.ID)
	return updated, nil
}

// overrideResult is the organizer ruling: it replaces whatever is stored
// and closes an open dispute in the same transaction.
func (s *resultService) overrideResult(ctx context.Context, tournament *models.Tournament, round *models.Round, match *models.Match, params ReportResultParams) (*models.Match, error) {
	reporter := params.ReporterID
	update := repositories.MatchResultUpdate{
		WinnerID:     params.WinnerID,
		Draw:         params.Draw,
		P1Games:      params.P1Games,
		P2Games:      params.P2Games,
		Verification: models.MatchVerified,
		ReportedBy:   &reporter,
	}

	err := inTx(ctx, s.db, func(tx *sql.Tx) error {
		if txErr := s.matchRepo.UpdateResult(ctx, tx, match.ID, update, params.Version); txErr != nil {
			return txErr
		}
		open, txErr := s.disputeRepo.GetOpenByMatch(ctx, match.ID)
		if txErr != nil {
			if errors.Is(txErr, repositories.ErrDisputeNotFound) {
				return nil
			}
			return txErr
		}
		winner := 0
		if params.WinnerID != nil {
			winner = *params.WinnerID
		}
		return s.disputeRepo.Resolve(ctx, tx, open.ID, winner, time.Now())
	})
	if err != nil {
		if errors.Is(err, repositories.ErrMatchVersionConflict) {
			return nil, fmt.Errorf("match %d: %w", match.ID, ErrConcurrentModification)
		}
		return nil, err
	}

	updated, err := s.matchRepo.GetByID(ctx, match.ID)
	if err != nil {
		return nil, err
	}
	s.logger.Info("organizer overrode match result",
		"tournament_id", tournament.ID,
		"match_id", match.ID,
		"organizer_id", params.ReporterID,
	)
	s.emitReported(tournament.ID, round.Number, updated)
	s.tryAdvance(ctx, tournament.ID)
	return updated, nil
}

// raiseDispute records two contradicting reports. The stored
// result stays as claim one; the match stops counting as decided until
// the organizer rules.
func (s *resultService) raiseDispute(ctx context.Context, tournament *models.Tournament, match *models.Match, params ReportResultParams) (*models.Match, error) {
	firstReporter := 0
	if match.ReportedBy != nil {
		firstReporter = *match.ReportedBy
	}
	// Нулевой winner означает заявленную ничью.
	firstWinner := 0
	if match.WinnerID != nil {
		firstWinner = *match.WinnerID
	}
	secondWinner := 0
	if params.WinnerID != nil {
		secondWinner = *params.WinnerID
	}

	dispute := &models.Dispute{
		MatchID:          match.ID,
		TournamentID:     tournament.ID,
		FirstReporterID:  firstReporter,
		FirstWinnerID:    firstWinner,
		SecondReporterID: params.ReporterID,
		SecondWinnerID:   secondWinner,
		Status:           models.DisputeOpen,
	}

	err := inTx(ctx, s.db, func(tx *sql.Tx) error {
		if txErr := s.matchRepo.SetVerification(ctx, tx, match.ID, models.MatchDisputed); txErr != nil {
			return txErr
		}
		return s.disputeRepo.Create(ctx, tx, dispute)
	})
	if err != nil {
		return nil, err
	}

	updated, getErr := s.matchRepo.GetByID(ctx, match.ID)
	if getErr != nil {
		return nil, getErr
	}
	s.logger.Warn("match result disputed",
		"tournament_id", tournament.ID,
		"match_id", match.ID,
		"dispute_id", dispute.ID,
	)
	s.broadcaster.Emit(tournament.ID, events.DisputeRaised{
		TournamentID:   tournament.ID,
		MatchID:        match.ID,
		DisputeID:      dispute.ID,
		FirstWinnerID:  firstWinner,
		SecondWinnerID: secondWinner,
	})
	return updated, nil
}

func (s *resultService) ResolveDispute(ctx context.Context, disputeID, actorUserID, winnerID int) (*models.Match, error) {
	dispute, err := s.disputeRepo.GetByID(ctx, disputeID)
	if err != nil {
		return nil, err
	}
	if dispute.Status != models.DisputeOpen {
		return nil, fmt.Errorf("%w: dispute %d is already resolved", ErrValidationFailed, disputeID)
	}
	tournament, err := s.tournamentRepo.GetByID(ctx, dispute.TournamentID)
	if err != nil {
		return nil, err
	}
	if tournament.OrganizerID != actorUserID {
		return nil, ErrOrganizerOnly
	}
	match, err := s.matchRepo.GetByID(ctx, dispute.MatchID)
	if err != nil {
		return nil, err
	}
	if !match.HasParticipant(winnerID) {
		return nil, fmt.Errorf("%w: participant %d", ErrUnknownParticipant, winnerID)
	}
	round, err := s.roundRepo.GetByID(ctx, match.RoundID)
	if err != nil {
		return nil, err
	}

	ruling := ReportResultParams{
		MatchID:    match.ID,
		ReporterID: actorUserID,
		WinnerID:   &winnerID,
		P1Games:    match.P1Games,
		P2Games:    match.P2Games,
		Version:    match.Version,
	}
	return s.overrideResult(ctx, tournament, round, match, ruling)
}

func (s *resultService) ListOpenDisputes(ctx context.Context, tournamentID int) ([]*models.Dispute, error) {
	return s.disputeRepo.ListOpenByTournament(ctx, tournamentID)
}

// matchParticipantByUser maps a user id to their participant entry when
// that participant occupies one of the match slots.
func (s *resultService) matchParticipantByUser(ctx context.Context, match *models.Match, userID int) (*models.Participant, error) {
	participants, err := s.participantRepo.ListByTournament(ctx, match.TournamentID, false)
	if err != nil {
		return nil, err
	}
	for _, p := range participants {
		if p.UserID == userID && match.HasParticipant(p.ID) {
			return p, nil
		}
	}
	return nil, nil
}

func validateOutcome(tournament *models.Tournament, match *models.Match, params ReportResultParams) error {
	if params.Draw && params.WinnerID != nil {
		return fmt.Errorf("%w: a draw cannot name a winner", ErrValidationFailed)
	}
	if !params.Draw && params.WinnerID == nil {
		return fmt.Errorf("%w: a winner is required unless the match is a draw", ErrValidationFailed)
	}
	if params.Draw && tournament.Format.Elimination() {
		return ErrDrawNotAllowed
	}
	if params.WinnerID != nil && !match.HasParticipant(*params.WinnerID) {
		return fmt.Errorf("%w: participant %d", ErrUnknownParticipant, *params.WinnerID)
	}
	if params.P1Games < 0 || params.P2Games < 0 {
		return fmt.Errorf("%w: game counts cannot be negative", ErrValidationFailed)
	}
	return nil
}

func sameOutcome(match *models.Match, params ReportResultParams) bool {
	if match.Draw != params.Draw {
		return false
	}
	if (match.WinnerID == nil) != (params.WinnerID == nil) {
		return false
	}
	if match.WinnerID != nil && *match.WinnerID != *params.WinnerID {
		return false
	}
	return true
}

func (s *resultService) emitReported(tournamentID, roundNumber int, match *models.Match) {
	s.broadcaster.Emit(tournamentID, events.MatchResultReported{
		TournamentID: tournamentID,
		MatchID:      match.ID,
		RoundNumber:  roundNumber,
		WinnerID:     match.WinnerID,
		Draw:         match.Draw,
		Verification: string(match.Verification),
	})
}

// tryAdvance runs the round check after a verified write. The report
// already committed, so advancement failures are logged, not returned.
func (s *resultService) tryAdvance(ctx context.Context, tournamentID int) {
	if err := s.engine.AdvanceIfComplete(ctx, tournamentID); err != nil {
		s.logger.Error("round advancement failed after result", "tournament_id", tournamentID, "error", err)
	}
}

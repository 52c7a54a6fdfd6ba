package services

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/Dosada05/tcg-arena/brackets"
	"github.com/Dosada05/tcg-arena/events"
	"github.com/Dosada05/tcg-arena/models"
	"github.com/Dosada05/tcg-arena/repositories"
	"github.com/Dosada05/tcg-arena/storage"
)

// RoundEngine владеет жизненным циклом раундов: запуск турнира, закрытие
// решённых раундов, выбывания и генерация следующего раунда. Все мутации
// идут под турнирной блокировкой и в одной транзакции.
type RoundEngine struct {
	db              *sql.DB
	tournamentRepo  repositories.TournamentRepository
	participantRepo repositories.ParticipantRepository
	roundRepo       repositories.RoundRepository
	matchRepo       repositories.MatchRepository
	historyRepo     repositories.PairingHistoryRepository
	locks           *LockRegistry
	broadcaster     events.Broadcaster
	archiver        storage.SnapshotArchiver
	logger          *slog.Logger
}

func NewRoundEngine(
	db *sql.DB,
	tournamentRepo repositories.TournamentRepository,
	participantRepo repositories.ParticipantRepository,
	roundRepo repositories.RoundRepository,
	matchRepo repositories.MatchRepository,
	historyRepo repositories.PairingHistoryRepository,
	locks *LockRegistry,
	broadcaster events.Broadcaster,
	archiver storage.SnapshotArchiver,
	logger *slog.Logger,
) *RoundEngine {
	return &RoundEngine{
		db:              db,
		tournamentRepo:  tournamentRepo,
		participantRepo: participantRepo,
		roundRepo:       roundRepo,
		matchRepo:       matchRepo,
		historyRepo:     historyRepo,
		locks:           locks,
		broadcaster:     broadcaster,
		archiver:        archiver,
		logger:          logger,
	}
}

// tournamentState is the full in-memory picture of one tournament, loaded
// under the lock so generators see a consistent snapshot.
type tournamentState struct {
	tournament   *models.Tournament
	participants []*models.Participant
	rounds       []*models.Round
	matches      []*models.Match
	history      *brackets.PairingSet
	generator    brackets.Generator
}

func (s *tournamentState) params() brackets.GenerateParams {
	return brackets.GenerateParams{
		Tournament:   s.tournament,
		Participants: s.participants,
		Rounds:       s.rounds,
		History:      s.history,
	}
}

func (s *tournamentState) activeRound() *models.Round {
	for _, round := range s.rounds {
		if round.Status == models.RoundActive {
			return round
		}
	}
	return nil
}

func (s *tournamentState) pendingRound(number int) *models.Round {
	for _, round := range s.rounds {
		if round.Status == models.RoundPending && round.Number == number {
			return round
		}
	}
	return nil
}

func (s *tournamentState) deactivate(participantID int) {
	for _, p := range s.participants {
		if p.ID == participantID {
			p.Active = false
			return
		}
	}
}

// soleActive returns the single remaining active participant, nil when
// zero or more than one remain.
func (s *tournamentState) soleActive() *int {
	var found *int
	for _, p := range s.participants {
		if !p.Active {
			continue
		}
		if found != nil {
			return nil
		}
		id := p.ID
		found = &id
	}
	return found
}

func roundDecided(round *models.Round) bool {
	if len(round.Matches) == 0 {
		return false
	}
	for i := range round.Matches {
		if !round.Matches[i].Completed() {
			return false
		}
	}
	return true
}

// Start moves a draft tournament to active and generates its opening
// round (the whole schedule for round robin).
func (e *RoundEngine) Start(ctx context.Context, tournamentID int) (*models.Tournament, error) {
	release, err := e.locks.Acquire(ctx, tournamentID)
	if err != nil {
		return nil, err
	}
	defer release()

	st, err := e.loadState(ctx, tournamentID)
	if err != nil {
		return nil, err
	}
	t := st.tournament

	switch t.Status {
	case models.TournamentDraft:
	case models.TournamentActive:
		return nil, ErrTournamentAlreadyStarted
	default:
		return nil, ErrTournamentClosed
	}
	if len(st.participants) < 2 {
		return nil, fmt.Errorf("%w: have %d", ErrNotEnoughParticipants, len(st.participants))
	}

	var first *models.Round
	err = inTx(ctx, e.db, func(tx *sql.Tx) error {
		plan, genErr := st.generator.NextRound(st.params())
		if genErr != nil {
			return genErr
		}
		first, genErr = e.insertRound(ctx, tx, st, plan, models.RoundActive)
		if genErr != nil {
			return genErr
		}
		if st.generator.FullSchedule() {
			for number := 2; number <= t.RoundCount; number++ {
				plan, genErr = st.generator.NextRound(st.params())
				if genErr != nil {
					return genErr
				}
				if _, genErr = e.insertRound(ctx, tx, st, plan, models.RoundPending); genErr != nil {
					return genErr
				}
			}
		}
		t.Status = models.TournamentActive
		t.CurrentRound = 1
		return e.tournamentRepo.UpdateState(ctx, tx, t.ID, models.TournamentActive, 1, false)
	})
	if err != nil {
		return nil, err
	}

	e.logger.Info("tournament started",
		"tournament_id", t.ID,
		"format", t.Format,
		"participants", len(st.participants),
	)
	e.broadcaster.Emit(t.ID, events.RoundStarted{
		TournamentID: t.ID,
		RoundID:      first.ID,
		RoundNumber:  first.Number,
		Bracket:      string(first.Bracket),
		MatchCount:   len(first.Matches),
	})
	e.broadcaster.Emit(t.ID, events.BracketUpdated{TournamentID: t.ID, RoundNumber: first.Number})
	return t, nil
}

// Advance completes the active round by explicit request. ErrRoundNotComplete
// when any match is still unverified or disputed.
func (e *RoundEngine) Advance(ctx context.Context, tournamentID int) (*models.Tournament, error) {
	return e.advance(ctx, tournamentID, true)
}

// AdvanceIfComplete runs the advancement check after a verified result.
// A still-open round is not an error here.
func (e *RoundEngine) AdvanceIfComplete(ctx context.Context, tournamentID int) error {
	_, err := e.advance(ctx, tournamentID, false)
	return err
}

func (e *RoundEngine) advance(ctx context.Context, tournamentID int, manual bool) (*models.Tournament, error) {
	release, err := e.locks.Acquire(ctx, tournamentID)
	if err != nil {
		return nil, err
	}
	defer release()

	st, err := e.loadState(ctx, tournamentID)
	if err != nil {
		return nil, err
	}
	if st.tournament.Terminal() {
		return nil, ErrTournamentClosed
	}
	if st.tournament.Status != models.TournamentActive {
		return nil, ErrTournamentNotStarted
	}

	for {
		current := st.activeRound()
		if current == nil {
			return nil, fmt.Errorf("%w: tournament %d has no active round", brackets.ErrInvalidFormatState, tournamentID)
		}
		if !roundDecided(current) {
			if manual {
				return nil, ErrRoundNotComplete
			}
			return st.tournament, nil
		}

		next, finished, err := e.completeRound(ctx, st, current)
		if err != nil {
			return nil, err
		}
		if finished {
			return st.tournament, nil
		}
		// Раунд из одних bye-матчей закрывается сразу, без ожидания отчётов.
		if next == nil || !roundDecided(next) {
			return st.tournament, nil
		}
	}
}

// completeRound closes one decided round: eliminations, champion check,
// then either tournament completion or the next round, in one transaction.
func (e *RoundEngine) completeRound(ctx context.Context, st *tournamentState, current *models.Round) (*models.Round, bool, error) {
	now := time.Now()
	t := st.tournament
	gen := st.generator

	eliminated := gen.Eliminated(st.params(), current)

	current.Status = models.RoundCompleted
	current.CompletedAt = &now
	for _, id := range eliminated {
		st.deactivate(id)
	}
	t.CurrentRound = current.Number

	winnerID, decided := gen.Champion(st.params())

	var started *models.Round
	var plan *brackets.RoundPlan
	if !decided {
		if pending := st.pendingRound(current.Number + 1); pending != nil {
			started = pending
		} else {
			p, genErr := gen.NextRound(st.params())
			switch {
			case genErr == nil:
				plan = p
			case errors.Is(genErr, brackets.ErrInsufficientParticipants):
				// Поле опустело раньше положенного: фиксируем досрочное
				// завершение вместо пустого раунда.
				decided = true
				t.ResolvedEarly = true
				winnerID = st.soleActive()
			default:
				return nil, false, genErr
			}
		}
	}

	err := inTx(ctx, e.db, func(tx *sql.Tx) error {
		if txErr := e.roundRepo.UpdateStatus(ctx, tx, current.ID, models.RoundCompleted, &now); txErr != nil {
			return txErr
		}
		for _, id := range eliminated {
			if txErr := e.participantRepo.SetActive(ctx, tx, id, false); txErr != nil {
				return txErr
			}
		}
		if decided {
			t.Status = models.TournamentCompleted
			return e.tournamentRepo.UpdateState(ctx, tx, t.ID, models.TournamentCompleted, t.CurrentRound, t.ResolvedEarly)
		}
		if plan != nil {
			created, txErr := e.insertRound(ctx, tx, st, plan, models.RoundActive)
			if txErr != nil {
				return txErr
			}
			started = created
		} else if started != nil {
			if txErr := e.roundRepo.UpdateStatus(ctx, tx, started.ID, models.RoundActive, nil); txErr != nil {
				return txErr
			}
			started.Status = models.RoundActive
		}
		t.CurrentRound = started.Number
		return e.tournamentRepo.UpdateState(ctx, tx, t.ID, t.Status, t.CurrentRound, t.ResolvedEarly)
	})
	if err != nil {
		return nil, false, err
	}

	e.broadcaster.Emit(t.ID, events.RoundCompleted{
		TournamentID: t.ID,
		RoundID:      current.ID,
		RoundNumber:  current.Number,
	})

	if decided {
		e.logger.Info("tournament completed",
			"tournament_id", t.ID,
			"final_round", t.CurrentRound,
			"resolved_early", t.ResolvedEarly,
		)
		e.broadcaster.Emit(t.ID, events.TournamentCompleted{
			TournamentID:  t.ID,
			WinnerID:      winnerID,
			FinalRound:    t.CurrentRound,
			ResolvedEarly: t.ResolvedEarly,
		})
		e.archiveSnapshot(ctx, st, winnerID)
		e.locks.Forget(t.ID)
		return nil, true, nil
	}

	e.logger.Info("round started",
		"tournament_id", t.ID,
		"round", started.Number,
		"bracket", started.Bracket,
		"matches", len(started.Matches),
	)
	e.broadcaster.Emit(t.ID, events.RoundStarted{
		TournamentID: t.ID,
		RoundID:      started.ID,
		RoundNumber:  started.Number,
		Bracket:      string(started.Bracket),
		MatchCount:   len(started.Matches),
	})
	e.broadcaster.Emit(t.ID, events.BracketUpdated{TournamentID: t.ID, RoundNumber: started.Number})
	return started, false, nil
}

// insertRound persists a planned round with its matches and pairing
// history, and mirrors everything into the in-memory state. Byes are
// stored pre-verified: auto-win for elimination and swiss, skipped (no
// winner) for round robin.
func (e *RoundEngine) insertRound(ctx context.Context, tx *sql.Tx, st *tournamentState, plan *brackets.RoundPlan, status models.RoundStatus) (*models.Round, error) {
	round := &models.Round{
		TournamentID: st.tournament.ID,
		Number:       plan.Number,
		Bracket:      plan.Bracket,
		Status:       status,
	}
	if err := e.roundRepo.Create(ctx, tx, round); err != nil {
		return nil, err
	}

	for i, pairing := range plan.Pairings {
		match := &models.Match{
			RoundID:      round.ID,
			TournamentID: st.tournament.ID,
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
		if err := e.matchRepo.Create(ctx, tx, match); err != nil {
			return nil, err
		}
		round.Matches = append(round.Matches, *match)
		st.matches = append(st.matches, match)
	}

	if len(plan.NewPairs) > 0 {
		if err := e.historyRepo.Append(ctx, tx, st.tournament.ID, plan.NewPairs); err != nil {
			return nil, err
		}
		for _, pair := range plan.NewPairs {
			st.history.Add(pair.LowID, pair.HighID)
		}
	}

	st.rounds = append(st.rounds, round)
	return round, nil
}

func (e *RoundEngine) loadState(ctx context.Context, tournamentID int) (*tournamentState, error) {
	st := &tournamentState{}
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		t, err := e.tournamentRepo.GetByID(gctx, tournamentID)
		if err != nil {
			return err
		}
		st.tournament = t
		return nil
	})
	g.Go(func() error {
		participants, err := e.participantRepo.ListByTournament(gctx, tournamentID, false)
		if err != nil {
			return err
		}
		st.participants = participants
		return nil
	})
	g.Go(func() error {
		rounds, err := e.roundRepo.ListByTournament(gctx, tournamentID)
		if err != nil {
			return err
		}
		st.rounds = rounds
		return nil
	})
	g.Go(func() error {
		matches, err := e.matchRepo.ListByTournament(gctx, tournamentID)
		if err != nil {
			return err
		}
		st.matches = matches
		return nil
	})
	g.Go(func() error {
		pairs, err := e.historyRepo.ListByTournament(gctx, tournamentID)
		if err != nil {
			return err
		}
		st.history = brackets.NewPairingSet(pairs...)
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	byRound := make(map[int][]*models.Match, len(st.rounds))
	for _, match := range st.matches {
		byRound[match.RoundID] = append(byRound[match.RoundID], match)
	}
	for _, round := range st.rounds {
		for _, match := range byRound[round.ID] {
			round.Matches = append(round.Matches, *match)
		}
	}

	generator, err := brackets.ForFormat(st.tournament.Format)
	if err != nil {
		return nil, err
	}
	st.generator = generator
	return st, nil
}

// finalSnapshot is the JSON document archived to object storage when a
// tournament completes.
type finalSnapshot struct {
	Tournament *models.Tournament `json:"tournament"`
	WinnerID   *int               `json:"winner_id,omitempty"`
	Standings  []models.Standing  `json:"standings"`
	Rounds     []*models.Round    `json:"rounds"`
	ArchivedAt time.Time          `json:"archived_at"`
}

// archiveSnapshot is best effort: a storage failure never rolls back a
// completed tournament.
func (e *RoundEngine) archiveSnapshot(ctx context.Context, st *tournamentState, winnerID *int) {
	snapshot := finalSnapshot{
		Tournament: st.tournament,
		WinnerID:   winnerID,
		Standings:  brackets.ComputeStandings(st.participants, st.matches),
		Rounds:     st.rounds,
		ArchivedAt: time.Now(),
	}
	body, err := json.Marshal(snapshot)
	if err != nil {
		e.logger.Error("failed to encode tournament snapshot", "tournament_id", st.tournament.ID, "error", err)
		return
	}

	key := fmt.Sprintf("tournaments/%d/final.json", st.tournament.ID)
	if _, err := e.archiver.Archive(ctx, key, "application/json", bytes.NewReader(body)); err != nil {
		e.logger.Error("failed to archive tournament snapshot", "tournament_id", st.tournament.ID, "key", key, "error", err)
		return
	}
	e.logger.Info("tournament snapshot archived", "tournament_id", st.tournament.ID, "key", key)
}

func inTx(ctx context.Context, db *sql.DB, fn func(tx *sql.Tx) error) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	if err := fn(tx); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			return fmt.Errorf("%w (rollback failed: %v)", err, rbErr)
		}
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

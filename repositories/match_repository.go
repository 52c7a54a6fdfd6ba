package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/Dosada05/tcg-arena/models"
	"github.com/lib/pq"
)

var (
	ErrMatchNotFound = errors.New("match not found")
	// ErrMatchVersionConflict: строка существует, но версия изменилась.
	// Вызывающий перечитывает матч и повторяет запись.
	ErrMatchVersionConflict    = errors.New("match version conflict")
	ErrMatchParticipantInvalid = errors.New("match participant conflict or invalid")
)

// MatchResultUpdate is the single mutation shape for match outcomes.
type MatchResultUpdate struct {
	WinnerID     *int
	Draw         bool
	P1Games      int
	P2Games      int
	Verification models.MatchVerification
	ReportedBy   *int
}

type MatchRepository interface {
	Create(ctx context.Context, exec SQLExecutor, match *models.Match) error
	GetByID(ctx context.Context, id int) (*models.Match, error)
	ListByRound(ctx context.Context, roundID int) ([]*models.Match, error)
	ListByTournament(ctx context.Context, tournamentID int) ([]*models.Match, error)
	// UpdateResult is the optimistic write: it succeeds only when the
	// stored version equals expectedVersion and increments the version by
	// one. A version mismatch surfaces as ErrMatchVersionConflict, never
	// as a silent overwrite.
	UpdateResult(ctx context.Context, exec SQLExecutor, matchID int, update MatchResultUpdate, expectedVersion int) error
	SetVerification(ctx context.Context, exec SQLExecutor, matchID int, verification models.MatchVerification) error
}

type postgresMatchRepository struct {
	db *sql.DB
}

func NewPostgresMatchRepository(db *sql.DB) MatchRepository {
	return &postgresMatchRepository{db: db}
}

func (r *postgresMatchRepository) getExecutor(exec SQLExecutor) SQLExecutor {
	if exec != nil {
		return exec
	}
	return r.db
}

const matchColumns = `
	id, round_id, tournament_id, order_in_round, p1_id, p2_id,
	winner_id, draw, p1_games, p2_games, verification, reported_by, version, created_at`

func (r *postgresMatchRepository) Create(ctx context.Context, exec SQLExecutor, m *models.Match) error {
	query := `
		INSERT INTO matches
			(round_id, tournament_id, order_in_round, p1_id, p2_id,
			 winner_id, draw, p1_games, p2_games, verification, reported_by, version)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		RETURNING id, created_at`

	err := r.getExecutor(exec).QueryRowContext(ctx, query,
		m.RoundID,
		m.TournamentID,
		m.OrderInRound,
		m.P1ID,
		m.P2ID,
		m.WinnerID,
		m.Draw,
		m.P1Games,
		m.P2Games,
		m.Verification,
		m.ReportedBy,
		m.Version,
	).Scan(&m.ID, &m.CreatedAt)

	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) {
			switch pqErr.Constraint {
			case "matches_p1_id_fkey", "matches_p2_id_fkey", "matches_winner_id_fkey":
				return ErrMatchParticipantInvalid
			}
		}
		return fmt.Errorf("failed to insert match: %w", err)
	}
	return nil
}

func (r *postgresMatchRepository) GetByID(ctx context.Context, id int) (*models.Match, error) {
	query := `SELECT` + matchColumns + ` FROM matches WHERE id = $1`

	m := &models.Match{}
	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&m.ID, &m.RoundID, &m.TournamentID, &m.OrderInRound, &m.P1ID, &m.P2ID,
		&m.WinnerID, &m.Draw, &m.P1Games, &m.P2Games, &m.Verification, &m.ReportedBy, &m.Version, &m.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrMatchNotFound
		}
		return nil, fmt.Errorf("failed to scan match %d: %w", id, err)
	}
	return m, nil
}

func (r *postgresMatchRepository) ListByRound(ctx context.Context, roundID int) ([]*models.Match, error) {
	query := `SELECT` + matchColumns + ` FROM matches WHERE round_id = $1 ORDER BY order_in_round ASC`
	return r.list(ctx, query, roundID)
}

func (r *postgresMatchRepository) ListByTournament(ctx context.Context, tournamentID int) ([]*models.Match, error) {
	query := `SELECT` + matchColumns + ` FROM matches WHERE tournament_id = $1 ORDER BY round_id ASC, order_in_round ASC`
	return r.list(ctx, query, tournamentID)
}

func (r *postgresMatchRepository) list(ctx context.Context, query string, arg interface{}) ([]*models.Match, error) {
	rows, err := r.db.QueryContext(ctx, query, arg)
	if err != nil {
		return nil, fmt.Errorf("failed to query matches: %w", err)
	}
	defer rows.Close()

	matches := make([]*models.Match, 0)
	for rows.Next() {
		var m models.Match
		if scanErr := rows.Scan(
			&m.ID, &m.RoundID, &m.TournamentID, &m.OrderInRound, &m.P1ID, &m.P2ID,
			&m.WinnerID, &m.Draw, &m.P1Games, &m.P2Games, &m.Verification, &m.ReportedBy, &m.Version, &m.CreatedAt,
		); scanErr != nil {
			return nil, fmt.Errorf("failed to scan match row: %w", scanErr)
		}
		matches = append(matches, &m)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error during match rows iteration: %w", err)
	}
	return matches, nil
}

func (r *postgresMatchRepository) UpdateResult(ctx context.Context, exec SQLExecutor, matchID int, update MatchResultUpdate, expectedVersion int) error {
	query := `
		UPDATE matches
		SET winner_id = $1, draw = $2, p1_games = $3, p2_games = $4,
		    verification = $5, reported_by = $6, version = version + 1
		WHERE id = $7 AND version = $8`

	executor := r.getExecutor(exec)
	result, err := executor.ExecContext(ctx, query,
		update.WinnerID,
		update.Draw,
		update.P1Games,
		update.P2Games,
		update.Verification,
		update.ReportedBy,
		matchID,
		expectedVersion,
	)
	if err != nil {
		return fmt.Errorf("failed to update match %d result: %w", matchID, err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check affected rows: %w", err)
	}
	if rowsAffected > 0 {
		return nil
	}

	// Distinguish a stale version from a missing row.
	var currentVersion int
	err = executor.QueryRowContext(ctx, `SELECT version FROM matches WHERE id = $1`, matchID).Scan(&currentVersion)
	if errors.Is(err, sql.ErrNoRows) {
		return ErrMatchNotFound
	}
	if err != nil {
		return fmt.Errorf("failed to re-read match %d version: %w", matchID, err)
	}
	return ErrMatchVersionConflict
}

func (r *postgresMatchRepository) SetVerification(ctx context.Context, exec SQLExecutor, matchID int, verification models.MatchVerification) error {
	query := `UPDATE matches SET verification = $1, version = version + 1 WHERE id = $2`
	result, err := r.getExecutor(exec).ExecContext(ctx, query, verification, matchID)
	if err != nil {
		return fmt.Errorf("failed to update match %d verification: %w", matchID, err)
	}
	return checkAffectedRows(result, ErrMatchNotFound)
}

package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/Dosada05/tcg-arena/models"
)

var ErrDisputeNotFound = errors.New("dispute not found")

type DisputeRepository interface {
	Create(ctx context.Context, exec SQLExecutor, dispute *models.Dispute) error
	GetByID(ctx context.Context, id int) (*models.Dispute, error)
	GetOpenByMatch(ctx context.Context, matchID int) (*models.Dispute, error)
	Resolve(ctx context.Context, exec SQLExecutor, disputeID int, winnerID int, resolvedAt time.Time) error
	ListOpenByTournament(ctx context.Context, tournamentID int) ([]*models.Dispute, error)
}

type postgresDisputeRepository struct {
	db *sql.DB
}

func NewPostgresDisputeRepository(db *sql.DB) DisputeRepository {
	return &postgresDisputeRepository{db: db}
}

func (r *postgresDisputeRepository) getExecutor(exec SQLExecutor) SQLExecutor {
	if exec != nil {
		return exec
	}
	return r.db
}

const disputeColumns = `
	id, match_id, tournament_id, first_reporter_id, first_winner_id,
	second_reporter_id, second_winner_id, status, resolved_winner_id, created_at, resolved_at`

func (r *postgresDisputeRepository) Create(ctx context.Context, exec SQLExecutor, d *models.Dispute) error {
	query := `
		INSERT INTO disputes
			(match_id, tournament_id, first_reporter_id, first_winner_id,
			 second_reporter_id, second_winner_id, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id, created_at`

	err := r.getExecutor(exec).QueryRowContext(ctx, query,
		d.MatchID,
		d.TournamentID,
		d.FirstReporterID,
		d.FirstWinnerID,
		d.SecondReporterID,
		d.SecondWinnerID,
		d.Status,
	).Scan(&d.ID, &d.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert dispute for match %d: %w", d.MatchID, err)
	}
	return nil
}

func (r *postgresDisputeRepository) GetByID(ctx context.Context, id int) (*models.Dispute, error) {
	query := `SELECT` + disputeColumns + ` FROM disputes WHERE id = $1`
	return r.scanOne(r.db.QueryRowContext(ctx, query, id))
}

func (r *postgresDisputeRepository) GetOpenByMatch(ctx context.Context, matchID int) (*models.Dispute, error) {
	query := `SELECT` + disputeColumns + ` FROM disputes WHERE match_id = $1 AND status = 'open' ORDER BY id ASC LIMIT 1`
	return r.scanOne(r.db.QueryRowContext(ctx, query, matchID))
}

func (r *postgresDisputeRepository) scanOne(row *sql.Row) (*models.Dispute, error) {
	d := &models.Dispute{}
	err := row.Scan(
		&d.ID, &d.MatchID, &d.TournamentID, &d.FirstReporterID, &d.FirstWinnerID,
		&d.SecondReporterID, &d.SecondWinnerID, &d.Status, &d.ResolvedWinnerID, &d.CreatedAt, &d.ResolvedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrDisputeNotFound
		}
		return nil, fmt.Errorf("failed to scan dispute: %w", err)
	}
	return d, nil
}

func (r *postgresDisputeRepository) Resolve(ctx context.Context, exec SQLExecutor, disputeID int, winnerID int, resolvedAt time.Time) error {
	query := `
		UPDATE disputes
		SET status = 'resolved', resolved_winner_id = $1, resolved_at = $2
		WHERE id = $3 AND status = 'open'`

	result, err := r.getExecutor(exec).ExecContext(ctx, query, winnerID, resolvedAt, disputeID)
	if err != nil {
		return fmt.Errorf("failed to resolve dispute %d: %w", disputeID, err)
	}
	return checkAffectedRows(result, ErrDisputeNotFound)
}

func (r *postgresDisputeRepository) ListOpenByTournament(ctx context.Context, tournamentID int) ([]*models.Dispute, error) {
	query := `SELECT` + disputeColumns + ` FROM disputes WHERE tournament_id = $1 AND status = 'open' ORDER BY id ASC`

	rows, err := r.db.QueryContext(ctx, query, tournamentID)
	if err != nil {
		return nil, fmt.Errorf("failed to query disputes for tournament %d: %w", tournamentID, err)
	}
	defer rows.Close()

	disputes := make([]*models.Dispute, 0)
	for rows.Next() {
		d := &models.Dispute{}
		if scanErr := rows.Scan(
			&d.ID, &d.MatchID, &d.TournamentID, &d.FirstReporterID, &d.FirstWinnerID,
			&d.SecondReporterID, &d.SecondWinnerID, &d.Status, &d.ResolvedWinnerID, &d.CreatedAt, &d.ResolvedAt,
		); scanErr != nil {
			return nil, fmt.Errorf("failed to scan dispute row: %w", scanErr)
		}
		disputes = append(disputes, d)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error during dispute rows iteration: %w", err)
	}
	return disputes, nil
}

package repositories

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/Dosada05/tcg-arena/models"
)

type PairingHistoryRepository interface {
	// Append records played pairs. Idempotent: re-appending a known pair
	// is a no-op, the relation only ever grows.
	Append(ctx context.Context, exec SQLExecutor, tournamentID int, pairs []models.PairKey) error
	ListByTournament(ctx context.Context, tournamentID int) ([]models.PairKey, error)
}

type postgresPairingHistoryRepository struct {
	db *sql.DB
}

func NewPostgresPairingHistoryRepository(db *sql.DB) PairingHistoryRepository {
	return &postgresPairingHistoryRepository{db: db}
}

func (r *postgresPairingHistoryRepository) getExecutor(exec SQLExecutor) SQLExecutor {
	if exec != nil {
		return exec
	}
	return r.db
}

func (r *postgresPairingHistoryRepository) Append(ctx context.Context, exec SQLExecutor, tournamentID int, pairs []models.PairKey) error {
	if len(pairs) == 0 {
		return nil
	}
	query := `
		INSERT INTO pairing_history (tournament_id, low_id, high_id)
		VALUES ($1, $2, $3)
		ON CONFLICT (tournament_id, low_id, high_id) DO NOTHING`

	executor := r.getExecutor(exec)
	for _, pair := range pairs {
		if _, err := executor.ExecContext(ctx, query, tournamentID, pair.LowID, pair.HighID); err != nil {
			return fmt.Errorf("failed to append pairing (%d,%d) for tournament %d: %w", pair.LowID, pair.HighID, tournamentID, err)
		}
	}
	return nil
}

func (r *postgresPairingHistoryRepository) ListByTournament(ctx context.Context, tournamentID int) ([]models.PairKey, error) {
	query := `
		SELECT low_id, high_id
		FROM pairing_history
		WHERE tournament_id = $1
		ORDER BY low_id ASC, high_id ASC`

	rows, err := r.db.QueryContext(ctx, query, tournamentID)
	if err != nil {
		return nil, fmt.Errorf("failed to query pairing history for tournament %d: %w", tournamentID, err)
	}
	defer rows.Close()

	pairs := make([]models.PairKey, 0)
	for rows.Next() {
		var pair models.PairKey
		if scanErr := rows.Scan(&pair.LowID, &pair.HighID); scanErr != nil {
			return nil, fmt.Errorf("failed to scan pairing history row: %w", scanErr)
		}
		pairs = append(pairs, pair)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error during pairing history rows iteration: %w", err)
	}
	return pairs, nil
}

package models

import "time"

type DisputeStatus string

const (
	DisputeOpen     DisputeStatus = "open"
	DisputeResolved DisputeStatus = "resolved"
)

// Dispute записывает два противоречащих подтверждённых репорта по одному
// матчу. Победитель матча не меняется, пока организатор не разрешит спор.
type Dispute struct {
	ID           int `json:"id" db:"id"`
	MatchID      int `json:"match_id" db:"match_id"`
	TournamentID int `json:"tournament_id" db:"tournament_id"`

	FirstReporterID  int `json:"first_reporter_id" db:"first_reporter_id"`
	FirstWinnerID    int `json:"first_winner_id" db:"first_winner_id"`
	SecondReporterID int `json:"second_reporter_id" db:"second_reporter_id"`
	SecondWinnerID   int `json:"second_winner_id" db:"second_winner_id"`

	Status           DisputeStatus `json:"status" db:"status"`
	ResolvedWinnerID *int          `json:"resolved_winner_id,omitempty" db:"resolved_winner_id"`
	CreatedAt        time.Time     `json:"created_at" db:"created_at"`
	ResolvedAt       *time.Time    `json:"resolved_at,omitempty" db:"resolved_at"`
}

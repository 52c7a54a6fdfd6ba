package models

import "time"

type RoundStatus string

const (
	RoundPending   RoundStatus = "pending"
	RoundActive    RoundStatus = "active"
	RoundCompleted RoundStatus = "completed"
)

// BracketSection tags which bracket line a round belongs to. Empty for
// single elimination, swiss and round robin.
type BracketSection string

const (
	BracketNone       BracketSection = ""
	BracketWinners    BracketSection = "winners"
	BracketLosers     BracketSection = "losers"
	BracketGrandFinal BracketSection = "grand_final"
)

// Round номеруется с 1 и монотонно растёт внутри турнира. Матчи раунда
// создаются вместе с ним; завершённый раунд неизменяем.
type Round struct {
	ID           int            `json:"id" db:"id"`
	TournamentID int            `json:"tournament_id" db:"tournament_id"`
	Number       int            `json:"number" db:"number"`
	Bracket      BracketSection `json:"bracket,omitempty" db:"bracket"`
	Status       RoundStatus    `json:"status" db:"status"`
	CreatedAt    time.Time      `json:"created_at" db:"created_at"`
	CompletedAt  *time.Time     `json:"completed_at,omitempty" db:"completed_at"`

	Matches []Match `json:"matches,omitempty" db:"-"`
}

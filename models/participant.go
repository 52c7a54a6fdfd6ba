package models

import "time"

// Participant belongs to exactly one tournament. Seed ranks the initial
// ordering and decides bye placement; Active drops to false once a
// participant is eliminated in a format where elimination applies.
type Participant struct {
	ID           int       `json:"id" db:"id"`
	TournamentID int       `json:"tournament_id" db:"tournament_id"`
	UserID       int       `json:"user_id" db:"user_id"`
	DisplayName  string    `json:"display_name" db:"display_name"`
	Seed         int       `json:"seed" db:"seed"`
	Active       bool      `json:"active" db:"active"`
	CreatedAt    time.Time `json:"created_at" db:"created_at"`
}

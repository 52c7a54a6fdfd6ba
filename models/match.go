package models

import "time"

type MatchVerification string

const (
	MatchUnverified MatchVerification = "unverified"
	MatchVerified   MatchVerification = "verified"
	MatchDisputed   MatchVerification = "disputed"
)

// Match is one pairing inside a round. P2ID == nil marks a bye slot.
// Version is the optimistic-concurrency primitive: every successful
// mutation increments it, and writers must present the version they read.
type Match struct {
	ID           int  `json:"id" db:"id"`
	RoundID      int  `json:"round_id" db:"round_id"`
	TournamentID int  `json:"tournament_id" db:"tournament_id"`
	OrderInRound int  `json:"order_in_round" db:"order_in_round"`
	P1ID         int  `json:"p1_id" db:"p1_id"`
	P2ID         *int `json:"p2_id,omitempty" db:"p2_id"`

	WinnerID *int `json:"winner_id,omitempty" db:"winner_id"`
	Draw     bool `json:"draw" db:"draw"`
	// Game counts within the match, when the clients report them.
	// Zero/zero means no sub-game data and game-win-% falls back to the
	// match level.
	P1Games int `json:"p1_games" db:"p1_games"`
	P2Games int `json:"p2_games" db:"p2_games"`

	Verification MatchVerification `json:"verification" db:"verification"`
	ReportedBy   *int              `json:"reported_by,omitempty" db:"reported_by"`
	Version      int               `json:"version" db:"version"`
	CreatedAt    time.Time         `json:"created_at" db:"created_at"`
}

// Bye reports whether the match has an empty second slot.
func (m *Match) Bye() bool {
	return m.P2ID == nil
}

// Completed reports whether a verified outcome exists. A round-robin bye
// is verified with no winner and no draw: skipped, no points.
func (m *Match) Completed() bool {
	return m.Verification == MatchVerified && (m.WinnerID != nil || m.Draw || m.Bye())
}

// HasParticipant reports whether id occupies one of the two slots.
func (m *Match) HasParticipant(id int) bool {
	if m.P1ID == id {
		return true
	}
	return m.P2ID != nil && *m.P2ID == id
}

// Opponent returns the other slot relative to id, nil for a bye.
func (m *Match) Opponent(id int) *int {
	if m.P1ID == id {
		return m.P2ID
	}
	if m.P2ID != nil && *m.P2ID == id {
		p1 := m.P1ID
		return &p1
	}
	return nil
}

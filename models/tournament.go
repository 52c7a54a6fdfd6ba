package models

import "time"

// TournamentStatus представляет статусы турнира, соответствующие ENUM в БД.
type TournamentStatus string

const (
	TournamentDraft     TournamentStatus = "draft"
	TournamentActive    TournamentStatus = "active"
	TournamentCompleted TournamentStatus = "completed"
	TournamentCancelled TournamentStatus = "cancelled"
)

// TournamentFormat selects the bracket generator once at creation time.
type TournamentFormat string

const (
	FormatSingleElimination TournamentFormat = "single_elimination"
	FormatDoubleElimination TournamentFormat = "double_elimination"
	FormatSwiss             TournamentFormat = "swiss"
	FormatRoundRobin        TournamentFormat = "round_robin"
)

func (f TournamentFormat) Valid() bool {
	switch f {
	case FormatSingleElimination, FormatDoubleElimination, FormatSwiss, FormatRoundRobin:
		return true
	}
	return false
}

// Elimination reports whether the format knocks participants out.
func (f TournamentFormat) Elimination() bool {
	return f == FormatSingleElimination || f == FormatDoubleElimination
}

// Tournament представляет турнир. Статусом владеет исключительно
// services.TournamentService.
type Tournament struct {
	ID           int              `json:"id" db:"id"`
	Name         string           `json:"name" db:"name"`
	Format       TournamentFormat `json:"format" db:"format"`
	OrganizerID  int              `json:"organizer_id" db:"organizer_id"`
	Status       TournamentStatus `json:"status" db:"status"`
	CurrentRound int              `json:"current_round" db:"current_round"`
	// RoundCount is fixed at start for swiss and round robin and zero for
	// elimination formats, which run until one active participant remains.
	RoundCount    int       `json:"round_count" db:"round_count"`
	ResolvedEarly bool      `json:"resolved_early" db:"resolved_early"`
	CreatedAt     time.Time `json:"created_at" db:"created_at"`

	// Опциональные связанные сущности (не мапятся напрямую)
	Participants []Participant `json:"participants,omitempty" db:"-"`
	Rounds       []Round       `json:"rounds,omitempty" db:"-"`
}

func (t *Tournament) Terminal() bool {
	return t.Status == TournamentCompleted || t.Status == TournamentCancelled
}

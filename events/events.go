// Package events defines the state-change events the engine emits and the
// broadcaster boundary that fans them out to real-time observers. Payloads
// are data-only; framing and transport belong to the implementation.
package events

import "github.com/google/uuid"

type Type string

const (
	TypeRoundStarted        Type = "round_started"
	TypeMatchResultReported Type = "match_result_reported"
	TypeRoundCompleted      Type = "round_completed"
	TypeBracketUpdated      Type = "bracket_updated"
	TypeTournamentCompleted Type = "tournament_completed"
	TypeDisputeRaised       Type = "dispute_raised"
)

// Event is implemented by every payload struct below. One struct per event
// type keeps the shapes checkable at compile time instead of passing
// free-form maps to the transport.
type Event interface {
	EventType() Type
}

type RoundStarted struct {
	TournamentID int    `json:"tournament_id"`
	RoundID      int    `json:"round_id"`
	RoundNumber  int    `json:"round_number"`
	Bracket      string `json:"bracket,omitempty"`
	MatchCount   int    `json:"match_count"`
}

func (RoundStarted) EventType() Type { return TypeRoundStarted }

type MatchResultReported struct {
	TournamentID int    `json:"tournament_id"`
	MatchID      int    `json:"match_id"`
	RoundNumber  int    `json:"round_number"`
	WinnerID     *int   `json:"winner_id,omitempty"`
	Draw         bool   `json:"draw,omitempty"`
	Verification string `json:"verification"`
}

func (MatchResultReported) EventType() Type { return TypeMatchResultReported }

type RoundCompleted struct {
	TournamentID int `json:"tournament_id"`
	RoundID      int `json:"round_id"`
	RoundNumber  int `json:"round_number"`
}

func (RoundCompleted) EventType() Type { return TypeRoundCompleted }

type BracketUpdated struct {
	TournamentID int `json:"tournament_id"`
	RoundNumber  int `json:"round_number"`
}

func (BracketUpdated) EventType() Type { return TypeBracketUpdated }

type TournamentCompleted struct {
	TournamentID  int  `json:"tournament_id"`
	WinnerID      *int `json:"winner_id,omitempty"`
	FinalRound    int  `json:"final_round"`
	ResolvedEarly bool `json:"resolved_early,omitempty"`
}

func (TournamentCompleted) EventType() Type { return TypeTournamentCompleted }

type DisputeRaised struct {
	TournamentID   int `json:"tournament_id"`
	MatchID        int `json:"match_id"`
	DisputeID      int `json:"dispute_id"`
	FirstWinnerID  int `json:"first_winner_id"`
	SecondWinnerID int `json:"second_winner_id"`
}

func (DisputeRaised) EventType() Type { return TypeDisputeRaised }

// Envelope is the serialized form handed to transports.
type Envelope struct {
	ID           string `json:"id"`
	Type         Type   `json:"type"`
	TournamentID int    `json:"tournament_id"`
	Payload      Event  `json:"payload"`
}

func Wrap(tournamentID int, event Event) Envelope {
	return Envelope{
		ID:           uuid.NewString(),
		Type:         event.EventType(),
		TournamentID: tournamentID,
		Payload:      event,
	}
}

// Broadcaster receives state-change events to fan out to observers.
// Implementations must not block the calling mutation.
type Broadcaster interface {
	Emit(tournamentID int, event Event)
}

// Noop discards every event. Used when no realtime transport is wired.
type Noop struct{}

func (Noop) Emit(int, Event) {}

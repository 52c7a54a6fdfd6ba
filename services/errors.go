package services

import (
	"errors"

	"github.com/Dosada05/tcg-arena/repositories"
)

// Общие ошибки движка. Хендлеры мапят их на HTTP-статусы; ядро никогда
// не паникует и не глотает ошибку молча.
var (
	// Validation errors: nothing was mutated, the caller's input is bad.
	ErrValidationFailed       = errors.New("validation failed")
	ErrTournamentNameRequired = errors.New("tournament name is required")
	ErrInvalidFormat          = errors.New("invalid tournament format")
	ErrNotEnoughParticipants  = errors.New("at least 2 participants are required")
	ErrUnknownParticipant     = errors.New("participant does not belong to this match")
	ErrDrawNotAllowed         = errors.New("draws are not allowed in elimination formats")
	ErrByeNotReportable       = errors.New("bye matches resolve automatically and cannot be reported")
	ErrRoundNotComplete       = errors.New("current round still has undecided matches")
	ErrRoundNotActive         = errors.New("round is not accepting results")

	// Authorization.
	ErrNotAuthorized = errors.New("reporter is neither a match participant nor the organizer")
	ErrOrganizerOnly = errors.New("operation is restricted to the tournament organizer")

	// Conflicts: recoverable, the caller reloads and retries.
	ErrConcurrentModification = errors.New("match was modified concurrently, retry with the refreshed version")

	// Lock acquisition timed out: retryable with backoff, distinct from a
	// permanent failure.
	ErrLockTimeout = errors.New("tournament lock acquisition timed out")

	// Terminal states.
	ErrTournamentClosed         = errors.New("tournament is completed or cancelled")
	ErrTournamentNotStarted     = errors.New("tournament has not been started")
	ErrInvalidStatusTransition  = errors.New("invalid tournament status transition")
	ErrTournamentAlreadyStarted = errors.New("tournament has already been started")

	// Not found (переэкспортируем пользователям сервисного слоя).
	ErrTournamentNotFound = repositories.ErrTournamentNotFound
	ErrMatchNotFound      = repositories.ErrMatchNotFound
	ErrDisputeNotFound    = repositories.ErrDisputeNotFound
)

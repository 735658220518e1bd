package tournament

import "errors"

var (
	ErrTournamentNotFound  = errors.New("tournament not found")
	ErrTournamentNotActive = errors.New("tournament is not active")
	ErrTournamentNotEnded  = errors.New("tournament has not ended")
	ErrTournamentFull      = errors.New("tournament is full")
	ErrInvalidTransition   = errors.New("invalid tournament state transition")
)

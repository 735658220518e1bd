package shared

import (
	"errors"
	"strings"
)

// ID types keep domain entities distinct while remaining simple strings at runtime.
type (
	TournamentID string
	UserID       string
	Symbol       string
)

// Validate ensures IDs are not blank and normalized.
func (id TournamentID) Validate() error {
	if strings.TrimSpace(string(id)) == "" {
		return errors.New("tournament id is required")
	}
	return nil
}

func (id UserID) Validate() error {
	if strings.TrimSpace(string(id)) == "" {
		return errors.New("user id is required")
	}
	return nil
}

func (s Symbol) Validate() error {
	if strings.TrimSpace(string(s)) == "" {
		return errors.New("symbol is required")
	}
	return nil
}

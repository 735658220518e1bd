package tournament

import (
	"errors"
	"time"

	"github.com/shopspring/decimal"

	"github.com/WyattLin001/invest-tournament-engine/src/domain/shared"
)

// Type classifies a tournament by cadence.
type Type string

const (
	TypeDaily     Type = "daily"
	TypeWeekly    Type = "weekly"
	TypeMonthly   Type = "monthly"
	TypeQuarterly Type = "quarterly"
	TypeYearly    Type = "yearly"
	TypeSpecial   Type = "special"
)

// Status represents the lifecycle state.
type Status string

const (
	StatusUpcoming  Status = "upcoming"
	StatusActive    Status = "active"
	StatusEnded     Status = "ended"
	StatusSettled   Status = "settled"
	StatusCancelled Status = "cancelled"
)

// Tournament aggregate represents one simulated-trading competition.
type Tournament struct {
	ID                  shared.TournamentID
	Name                string
	Description         string
	Type                Type
	Status              Status
	StartTime           time.Time
	EndTime             time.Time
	InitialBalance      decimal.Decimal
	MaxParticipants     int
	CurrentParticipants int
	EntryFee            decimal.Decimal
	PrizePool           decimal.Decimal
	RiskLimitPct        decimal.Decimal
	MinHoldingRate      decimal.Decimal
	MaxSingleStockRate  decimal.Decimal
	Rules               string
	CreatedAt           time.Time
	UpdatedAt           time.Time
}

// NewTournament creates a new tournament aggregate in the upcoming state.
func NewTournament(
	id shared.TournamentID,
	name, description string,
	tournamentType Type,
	startTime, endTime time.Time,
	initialBalance decimal.Decimal,
	maxParticipants int,
	now time.Time,
) (*Tournament, error) {
	if err := id.Validate(); err != nil {
		return nil, err
	}
	if name == "" {
		return nil, errors.New("name is required")
	}
	if initialBalance.Sign() <= 0 {
		return nil, errors.New("initial balance must be positive")
	}
	if maxParticipants <= 0 {
		return nil, errors.New("max participants must be positive")
	}
	if startTime.IsZero() || endTime.IsZero() {
		return nil, errors.New("start and end times are required")
	}
	if !startTime.Before(endTime) {
		return nil, errors.New("start time must be before end time")
	}

	return &Tournament{
		ID:                 id,
		Name:               name,
		Description:        description,
		Type:               tournamentType,
		Status:             StatusUpcoming,
		StartTime:          startTime,
		EndTime:            endTime,
		InitialBalance:     initialBalance,
		MaxParticipants:    maxParticipants,
		MaxSingleStockRate: decimal.NewFromInt(1),
		CreatedAt:          now,
		UpdatedAt:          now,
	}, nil
}

// Activate moves an upcoming tournament into trading.
func (t *Tournament) Activate(now time.Time) error {
	if t.Status != StatusUpcoming {
		return ErrInvalidTransition
	}
	t.Status = StatusActive
	t.UpdatedAt = now
	return nil
}

// End closes trading. Only an active tournament can end.
func (t *Tournament) End(now time.Time) error {
	if t.Status != StatusActive {
		return ErrInvalidTransition
	}
	t.Status = StatusEnded
	t.UpdatedAt = now
	return nil
}

// Cancel aborts a tournament before it finishes. Ended and settled
// tournaments cannot be cancelled.
func (t *Tournament) Cancel(now time.Time) error {
	if t.Status != StatusUpcoming && t.Status != StatusActive {
		return ErrInvalidTransition
	}
	t.Status = StatusCancelled
	t.UpdatedAt = now
	return nil
}

// MarkSettled records that final results and rewards have been distributed.
func (t *Tournament) MarkSettled(now time.Time) error {
	if t.Status != StatusEnded {
		return ErrInvalidTransition
	}
	t.Status = StatusSettled
	t.UpdatedAt = now
	return nil
}

// Clone returns a copy of the aggregate for handing across repository
// boundaries.
func (t *Tournament) Clone() *Tournament {
	cp := *t
	return &cp
}

// IsActive reports whether trading is currently allowed.
func (t *Tournament) IsActive() bool {
	return t.Status == StatusActive
}

// HasEnded reports whether the tournament reached a terminal trading state.
func (t *Tournament) HasEnded() bool {
	return t.Status == StatusEnded || t.Status == StatusSettled
}

// IsFull reports whether no join slots remain.
func (t *Tournament) IsFull() bool {
	return t.CurrentParticipants >= t.MaxParticipants
}

// Validate ensures the tournament is well-formed.
func (t *Tournament) Validate() error {
	if err := t.ID.Validate(); err != nil {
		return err
	}
	if t.Name == "" {
		return errors.New("name is required")
	}
	if !t.StartTime.Before(t.EndTime) {
		return errors.New("start time must be before end time")
	}
	if t.CurrentParticipants > t.MaxParticipants {
		return errors.New("participants exceed capacity")
	}
	return nil
}

package tournaments

import (
	"context"
	"time"

	"github.com/gofrs/uuid/v5"
	"github.com/shopspring/decimal"

	"github.com/WyattLin001/invest-tournament-engine/src/domain/shared"
	"github.com/WyattLin001/invest-tournament-engine/src/domain/tournament"
)

// Service coordinates tournament metadata and lifecycle transitions.
type Service struct {
	Repo  tournament.Repository
	Clock func() time.Time
}

// NewService creates a new tournament service.
func NewService(repo tournament.Repository) *Service {
	return &Service{
		Repo:  repo,
		Clock: func() time.Time { return time.Now().UTC() },
	}
}

// CreateTournamentCommand contains parameters for creating a tournament.
type CreateTournamentCommand struct {
	ID                 shared.TournamentID
	Name               string
	Description        string
	Type               tournament.Type
	StartTime          time.Time
	EndTime            time.Time
	InitialBalance     decimal.Decimal
	MaxParticipants    int
	EntryFee           decimal.Decimal
	PrizePool          decimal.Decimal
	RiskLimitPct       decimal.Decimal
	MinHoldingRate     decimal.Decimal
	MaxSingleStockRate decimal.Decimal
	Rules              string
}

// CreateTournament validates and stores a new tournament in the upcoming
// state. An ID is generated when the command does not carry one.
func (s *Service) CreateTournament(ctx context.Context, cmd CreateTournamentCommand) (*tournament.Tournament, error) {
	id := cmd.ID
	if id == "" {
		id = shared.TournamentID(uuid.Must(uuid.NewV4()).String())
	}

	now := s.Clock()
	tour, err := tournament.NewTournament(
		id,
		cmd.Name,
		cmd.Description,
		cmd.Type,
		cmd.StartTime,
		cmd.EndTime,
		cmd.InitialBalance,
		cmd.MaxParticipants,
		now,
	)
	if err != nil {
		return nil, err
	}

	tour.EntryFee = cmd.EntryFee
	tour.PrizePool = cmd.PrizePool
	tour.RiskLimitPct = cmd.RiskLimitPct
	tour.MinHoldingRate = cmd.MinHoldingRate
	if cmd.MaxSingleStockRate.Sign() > 0 {
		tour.MaxSingleStockRate = cmd.MaxSingleStockRate
	}
	tour.Rules = cmd.Rules

	if err := s.Repo.Save(ctx, tour); err != nil {
		return nil, err
	}
	return tour, nil
}

// GetTournament retrieves a tournament by ID.
func (s *Service) GetTournament(ctx context.Context, id shared.TournamentID) (*tournament.Tournament, error) {
	if err := id.Validate(); err != nil {
		return nil, err
	}
	return s.Repo.Get(ctx, id)
}

// ListTournamentsQuery contains pagination parameters.
type ListTournamentsQuery struct {
	Limit  int
	Offset int
}

// ListTournaments retrieves a paginated list of tournaments.
func (s *Service) ListTournaments(ctx context.Context, query ListTournamentsQuery) ([]*tournament.Tournament, error) {
	if query.Limit <= 0 {
		query.Limit = 10
	}
	if query.Offset < 0 {
		query.Offset = 0
	}
	return s.Repo.List(ctx, query.Limit, query.Offset)
}

// DeleteTournament removes a tournament.
func (s *Service) DeleteTournament(ctx context.Context, id shared.TournamentID) error {
	if err := id.Validate(); err != nil {
		return err
	}
	return s.Repo.Delete(ctx, id)
}

// Transition names a lifecycle action.
type Transition string

const (
	TransitionActivate Transition = "activate"
	TransitionEnd      Transition = "end"
	TransitionCancel   Transition = "cancel"
)

// ApplyTransition drives the lifecycle state machine. The current status
// is always re-read from the repository; callers cannot supply one.
func (s *Service) ApplyTransition(ctx context.Context, id shared.TournamentID, transition Transition) (*tournament.Tournament, error) {
	tour, err := s.Repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	now := s.Clock()
	switch transition {
	case TransitionActivate:
		err = tour.Activate(now)
	case TransitionEnd:
		err = tour.End(now)
	case TransitionCancel:
		err = tour.Cancel(now)
	default:
		err = tournament.ErrInvalidTransition
	}
	if err != nil {
		return nil, err
	}

	if err := s.Repo.Save(ctx, tour); err != nil {
		return nil, err
	}
	return tour, nil
}

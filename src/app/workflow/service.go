package workflow

import (
	"context"
	"errors"
	"fmt"

	"github.com/WyattLin001/invest-tournament-engine/src/app/business"
	"github.com/WyattLin001/invest-tournament-engine/src/app/rankings"
	"github.com/WyattLin001/invest-tournament-engine/src/app/tournaments"
	"github.com/WyattLin001/invest-tournament-engine/src/app/trading"
	"github.com/WyattLin001/invest-tournament-engine/src/app/wallets"
	"github.com/WyattLin001/invest-tournament-engine/src/domain/ranking"
	"github.com/WyattLin001/invest-tournament-engine/src/domain/shared"
	"github.com/WyattLin001/invest-tournament-engine/src/domain/tournament"
	"github.com/WyattLin001/invest-tournament-engine/src/domain/wallet"
)

// ErrInvalidParameters rejects malformed input before any state change.
var ErrInvalidParameters = errors.New("invalid parameters")

// Service is the externally exposed orchestrator. Every operation
// re-validates the tournament lifecycle state before acting and adds
// operation context to lower-level errors without swallowing them.
type Service struct {
	Tournaments *tournaments.Service
	Business    *business.Service
	Trading     *trading.Service
	Rankings    *rankings.Service
	Wallets     *wallets.Service
}

// NewService wires the orchestrator from its collaborating services.
func NewService(
	tournamentSvc *tournaments.Service,
	businessSvc *business.Service,
	tradingSvc *trading.Service,
	rankingSvc *rankings.Service,
	walletSvc *wallets.Service,
) *Service {
	return &Service{
		Tournaments: tournamentSvc,
		Business:    businessSvc,
		Trading:     tradingSvc,
		Rankings:    rankingSvc,
		Wallets:     walletSvc,
	}
}

// CreateTournament validates creation parameters and stores the tournament
// in the upcoming state.
func (s *Service) CreateTournament(ctx context.Context, cmd tournaments.CreateTournamentCommand) (*tournament.Tournament, error) {
	if cmd.Name == "" || cmd.InitialBalance.Sign() <= 0 || cmd.MaxParticipants <= 0 ||
		cmd.StartTime.IsZero() || cmd.EndTime.IsZero() || !cmd.StartTime.Before(cmd.EndTime) {
		return nil, ErrInvalidParameters
	}

	tour, err := s.Tournaments.CreateTournament(ctx, cmd)
	if err != nil {
		return nil, fmt.Errorf("create tournament: %w", err)
	}
	return tour, nil
}

// JoinTournament enrolls a user into a joinable tournament.
func (s *Service) JoinTournament(ctx context.Context, tournamentID shared.TournamentID, userID shared.UserID) error {
	if err := tournamentID.Validate(); err != nil {
		return ErrInvalidParameters
	}
	if err := userID.Validate(); err != nil {
		return ErrInvalidParameters
	}
	if err := s.Business.JoinTournament(ctx, tournamentID, userID); err != nil {
		return fmt.Errorf("join tournament %s: %w", tournamentID, err)
	}
	return nil
}

// ExecuteTournamentTrade validates and executes one simulated order.
func (s *Service) ExecuteTournamentTrade(ctx context.Context, cmd trading.ExecuteTradeCommand) (*wallet.Trade, error) {
	if err := cmd.TournamentID.Validate(); err != nil {
		return nil, ErrInvalidParameters
	}
	trade, err := s.Trading.ExecuteTrade(ctx, cmd)
	if err != nil {
		// Malformed orders surface as invalid parameters at this layer
		// while keeping the trading sentinel matchable.
		if errors.Is(err, wallet.ErrInvalidTrade) {
			return nil, fmt.Errorf("execute trade in tournament %s: %w: %w", cmd.TournamentID, ErrInvalidParameters, err)
		}
		return nil, fmt.Errorf("execute trade in tournament %s: %w", cmd.TournamentID, err)
	}
	return trade, nil
}

// UpdateLiveRankings recomputes the tournament leaderboard.
func (s *Service) UpdateLiveRankings(ctx context.Context, tournamentID shared.TournamentID) ([]ranking.Ranking, error) {
	if err := tournamentID.Validate(); err != nil {
		return nil, ErrInvalidParameters
	}
	result, err := s.Rankings.UpdateLiveRankings(ctx, tournamentID)
	if err != nil {
		return nil, fmt.Errorf("update rankings for tournament %s: %w", tournamentID, err)
	}
	return result, nil
}

// SettleTournament finalizes an ended tournament; safe to retry.
func (s *Service) SettleTournament(ctx context.Context, tournamentID shared.TournamentID) ([]ranking.Result, error) {
	if err := tournamentID.Validate(); err != nil {
		return nil, ErrInvalidParameters
	}
	results, err := s.Business.SettleTournament(ctx, tournamentID)
	if err != nil {
		return nil, fmt.Errorf("settle tournament %s: %w", tournamentID, err)
	}
	return results, nil
}

// RefreshPrices marks every held position of a tournament to market using
// the price feed. Symbols the feed cannot quote are skipped.
func (s *Service) RefreshPrices(ctx context.Context, tournamentID shared.TournamentID) error {
	if err := tournamentID.Validate(); err != nil {
		return ErrInvalidParameters
	}

	walletList, err := s.Rankings.Wallets.ListByTournament(ctx, tournamentID)
	if err != nil {
		return fmt.Errorf("refresh prices for tournament %s: %w", tournamentID, err)
	}

	for _, w := range walletList {
		for symbol := range w.Positions {
			// Unquotable symbols are skipped; the last known price stands.
			_ = s.Wallets.UpdateHoldingPrice(ctx, wallets.UpdateHoldingPriceCommand{
				TournamentID: tournamentID,
				UserID:       w.UserID,
				Symbol:       symbol,
			})
		}
	}
	return nil
}

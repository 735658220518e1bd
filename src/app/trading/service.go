package trading

import (
	"context"
	"errors"
	"time"

	"github.com/gofrs/uuid/v5"
	"github.com/shopspring/decimal"

	"github.com/WyattLin001/invest-tournament-engine/src/app/wallets"
	"github.com/WyattLin001/invest-tournament-engine/src/domain/fees"
	"github.com/WyattLin001/invest-tournament-engine/src/domain/notification"
	"github.com/WyattLin001/invest-tournament-engine/src/domain/shared"
	"github.com/WyattLin001/invest-tournament-engine/src/domain/tournament"
	"github.com/WyattLin001/invest-tournament-engine/src/domain/wallet"
)

// ErrRiskLimitExceeded rejects trades that would break the tournament's
// concentration or holding-rate rules.
var ErrRiskLimitExceeded = errors.New("risk limit exceeded")

// WalletExecutor applies a validated trade to a wallet under its lock.
type WalletExecutor interface {
	ApplyTrade(ctx context.Context, trade *wallet.Trade, guard wallets.Guard) (decimal.Decimal, error)
}

// Service validates and executes orders against tournament trading rules.
type Service struct {
	Tournaments tournament.Repository
	Wallets     WalletExecutor
	Calculator  fees.Calculator
	Notifier    notification.Notifier
	Clock       func() time.Time
}

// NewService creates a new trade service with the default fee schedule.
func NewService(tournaments tournament.Repository, walletExecutor WalletExecutor, notifier notification.Notifier) *Service {
	return &Service{
		Tournaments: tournaments,
		Wallets:     walletExecutor,
		Calculator:  fees.DefaultCalculator(),
		Notifier:    notifier,
		Clock:       func() time.Time { return time.Now().UTC() },
	}
}

// ExecuteTradeCommand describes one order.
type ExecuteTradeCommand struct {
	TournamentID shared.TournamentID
	UserID       shared.UserID
	Symbol       shared.Symbol
	Side         fees.Side
	Quantity     int64
	Price        decimal.Decimal
}

// ExecuteTrade runs the validation chain and applies the order. Each
// failure short-circuits: tournament state, parameter validity, risk
// rules, then fund/position sufficiency inside the wallet service. A
// rejected order has zero effect on the wallet.
func (s *Service) ExecuteTrade(ctx context.Context, cmd ExecuteTradeCommand) (*wallet.Trade, error) {
	tour, err := s.Tournaments.Get(ctx, cmd.TournamentID)
	if err != nil {
		return nil, err
	}
	if !tour.IsActive() {
		return nil, tournament.ErrTournamentNotActive
	}

	if err := cmd.Symbol.Validate(); err != nil {
		return nil, wallet.ErrInvalidTrade
	}
	if err := cmd.UserID.Validate(); err != nil {
		return nil, wallet.ErrInvalidTrade
	}
	if cmd.Quantity <= 0 || cmd.Price.Sign() <= 0 {
		return nil, wallet.ErrInvalidTrade
	}
	if cmd.Side != fees.SideBuy && cmd.Side != fees.SideSell {
		return nil, wallet.ErrInvalidTrade
	}

	gross := cmd.Price.Mul(decimal.NewFromInt(cmd.Quantity))
	breakdown, err := s.Calculator.Calculate(gross, cmd.Side)
	if err != nil {
		return nil, wallet.ErrInvalidTrade
	}

	now := s.Clock()
	trade := &wallet.Trade{
		ID:           uuid.Must(uuid.NewV4()).String(),
		TournamentID: cmd.TournamentID,
		UserID:       cmd.UserID,
		Symbol:       cmd.Symbol,
		Side:         cmd.Side,
		Quantity:     cmd.Quantity,
		Price:        cmd.Price,
		Fees:         breakdown,
		NetAmount:    breakdown.NetAmount,
		ExecutedAt:   now,
	}

	guard := func(w *wallet.Wallet) error {
		return checkRiskLimits(tour, w, cmd, breakdown)
	}

	if _, err := s.Wallets.ApplyTrade(ctx, trade, guard); err != nil {
		return nil, err
	}

	s.notifyTradeExecuted(ctx, trade)
	return trade, nil
}

// checkRiskLimits projects the post-trade portfolio and rejects the order
// when it would exceed the single-stock concentration ceiling or fall
// below the minimum invested fraction. Runs under the wallet lock.
func checkRiskLimits(tour *tournament.Tournament, w *wallet.Wallet, cmd ExecuteTradeCommand, cost fees.Breakdown) error {
	qty := decimal.NewFromInt(cmd.Quantity)
	gross := cmd.Price.Mul(qty)

	var heldQty int64
	heldValue := decimal.Zero
	if pos, ok := w.Positions[cmd.Symbol]; ok {
		heldQty = pos.Quantity
		heldValue = pos.MarketValue()
	}

	total := w.TotalValue()
	if total.Sign() <= 0 {
		return nil
	}

	if cmd.Side == fees.SideBuy && tour.MaxSingleStockRate.Sign() > 0 {
		projectedSymbol := cmd.Price.Mul(decimal.NewFromInt(heldQty + cmd.Quantity))
		// Post-trade total: cash net of the debit, other positions at
		// last known prices, the bought symbol re-marked at the trade
		// price. The ratio is measured against the portfolio the trade
		// would produce, not the one it started from.
		projectedTotal := w.Cash.Sub(cost.NetAmount).Add(w.MarketValue()).Sub(heldValue).Add(projectedSymbol)
		if projectedTotal.Sign() > 0 && projectedSymbol.Div(projectedTotal).Cmp(tour.MaxSingleStockRate) > 0 {
			return ErrRiskLimitExceeded
		}
	}

	if cmd.Side == fees.SideSell && tour.MinHoldingRate.Sign() > 0 {
		projectedInvested := w.MarketValue().Sub(gross)
		if projectedInvested.Sign() < 0 {
			projectedInvested = decimal.Zero
		}
		if projectedInvested.Div(total).Cmp(tour.MinHoldingRate) < 0 {
			return ErrRiskLimitExceeded
		}
	}

	return nil
}

func (s *Service) notifyTradeExecuted(ctx context.Context, trade *wallet.Trade) {
	if s.Notifier == nil {
		return
	}
	event := notification.Event{
		Recipient:    trade.UserID,
		TournamentID: trade.TournamentID,
		Type:         notification.EventTradeExecuted,
		Data: map[string]any{
			"trade_id": trade.ID,
			"symbol":   string(trade.Symbol),
			"side":     string(trade.Side),
			"quantity": trade.Quantity,
			"price":    trade.Price.String(),
		},
		OccurredAt: trade.ExecutedAt,
	}
	// Delivery is fire-and-forget; a notification failure never fails a
	// filled trade.
	_ = s.Notifier.Publish(ctx, []notification.Event{event})
}

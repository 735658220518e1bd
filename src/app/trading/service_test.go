package trading_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/WyattLin001/invest-tournament-engine/src/app/trading"
	"github.com/WyattLin001/invest-tournament-engine/src/app/wallets"
	"github.com/WyattLin001/invest-tournament-engine/src/domain/fees"
	"github.com/WyattLin001/invest-tournament-engine/src/domain/shared"
	"github.com/WyattLin001/invest-tournament-engine/src/domain/tournament"
	"github.com/WyattLin001/invest-tournament-engine/src/domain/wallet"
	notificationinfra "github.com/WyattLin001/invest-tournament-engine/src/infra/notification"
	pricinginfra "github.com/WyattLin001/invest-tournament-engine/src/infra/pricing"
	tournamentinfra "github.com/WyattLin001/invest-tournament-engine/src/infra/tournament"
	walletinfra "github.com/WyattLin001/invest-tournament-engine/src/infra/wallet"
)

type mockExecutor struct {
	applyFunc func(ctx context.Context, trade *wallet.Trade, guard wallets.Guard) (decimal.Decimal, error)
	calls     int
}

func (m *mockExecutor) ApplyTrade(ctx context.Context, trade *wallet.Trade, guard wallets.Guard) (decimal.Decimal, error) {
	m.calls++
	if m.applyFunc != nil {
		return m.applyFunc(ctx, trade, guard)
	}
	return decimal.Zero, nil
}

func activeTournament(t *testing.T, now time.Time) *tournament.Tournament {
	t.Helper()
	tour, err := tournament.NewTournament(
		"t1", "Test", "", tournament.TypeWeekly,
		now.Add(-time.Hour), now.Add(24*time.Hour),
		decimal.NewFromInt(1000000), 100, now,
	)
	if err != nil {
		t.Fatalf("NewTournament() error = %v", err)
	}
	tour.Status = tournament.StatusActive
	return tour
}

func validCommand() trading.ExecuteTradeCommand {
	return trading.ExecuteTradeCommand{
		TournamentID: "t1",
		UserID:       "u1",
		Symbol:       "2330",
		Side:         fees.SideBuy,
		Quantity:     100,
		Price:        decimal.NewFromInt(580),
	}
}

func TestService_ExecuteTrade_ValidationChain(t *testing.T) {
	ctx := context.Background()
	now := time.Now().UTC()

	tests := []struct {
		name    string
		status  tournament.Status
		mutate  func(cmd *trading.ExecuteTradeCommand)
		wantErr error
	}{
		{
			name:    "upcoming tournament rejects trades",
			status:  tournament.StatusUpcoming,
			mutate:  func(cmd *trading.ExecuteTradeCommand) {},
			wantErr: tournament.ErrTournamentNotActive,
		},
		{
			name:    "ended tournament rejects trades",
			status:  tournament.StatusEnded,
			mutate:  func(cmd *trading.ExecuteTradeCommand) {},
			wantErr: tournament.ErrTournamentNotActive,
		},
		{
			name:   "empty symbol",
			status: tournament.StatusActive,
			mutate: func(cmd *trading.ExecuteTradeCommand) {
				cmd.Symbol = " "
			},
			wantErr: wallet.ErrInvalidTrade,
		},
		{
			name:   "zero quantity",
			status: tournament.StatusActive,
			mutate: func(cmd *trading.ExecuteTradeCommand) {
				cmd.Quantity = 0
			},
			wantErr: wallet.ErrInvalidTrade,
		},
		{
			name:   "negative price",
			status: tournament.StatusActive,
			mutate: func(cmd *trading.ExecuteTradeCommand) {
				cmd.Price = decimal.NewFromInt(-1)
			},
			wantErr: wallet.ErrInvalidTrade,
		},
		{
			name:   "unknown side",
			status: tournament.StatusActive,
			mutate: func(cmd *trading.ExecuteTradeCommand) {
				cmd.Side = "short"
			},
			wantErr: wallet.ErrInvalidTrade,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tour := activeTournament(t, now)
			tour.Status = tt.status

			repo := tournamentinfra.NewMemoryRepository()
			if err := repo.Save(ctx, tour); err != nil {
				t.Fatalf("Save() error = %v", err)
			}

			executor := &mockExecutor{}
			svc := trading.NewService(repo, executor, nil)

			cmd := validCommand()
			tt.mutate(&cmd)

			_, err := svc.ExecuteTrade(ctx, cmd)
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("ExecuteTrade() error = %v, want %v", err, tt.wantErr)
			}
			if executor.calls != 0 {
				t.Errorf("executor called %d times, want 0", executor.calls)
			}
		})
	}
}

// newTradingFixture wires trading against real wallet state so risk rules
// see actual positions.
func newTradingFixture(t *testing.T, tour *tournament.Tournament, initialBalance decimal.Decimal) (*trading.Service, *wallets.Service, *notificationinfra.MemoryNotifier) {
	t.Helper()
	ctx := context.Background()

	repo := tournamentinfra.NewMemoryRepository()
	if err := repo.Save(ctx, tour); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	feed := pricinginfra.NewStaticFeed(nil)
	walletSvc := wallets.NewService(walletinfra.NewMemoryRepository(), feed)
	if _, err := walletSvc.CreateWallet(ctx, wallets.CreateWalletCommand{
		TournamentID:   tour.ID,
		UserID:         "u1",
		InitialBalance: initialBalance,
	}); err != nil {
		t.Fatalf("CreateWallet() error = %v", err)
	}

	notifier := notificationinfra.NewMemoryNotifier()
	return trading.NewService(repo, walletSvc, notifier), walletSvc, notifier
}

func TestService_ExecuteTrade_BuyConcentrationLimit(t *testing.T) {
	ctx := context.Background()
	now := time.Now().UTC()

	tour := activeTournament(t, now)
	tour.MaxSingleStockRate = decimal.RequireFromString("0.3")

	svc, _, _ := newTradingFixture(t, tour, decimal.NewFromInt(1000000))

	// 600 shares at 580 is 348000, which is 34.8% of the million and over
	// the 30% ceiling.
	cmd := validCommand()
	cmd.Quantity = 600
	_, err := svc.ExecuteTrade(ctx, cmd)
	if !errors.Is(err, trading.ErrRiskLimitExceeded) {
		t.Fatalf("ExecuteTrade() error = %v, want ErrRiskLimitExceeded", err)
	}

	// 500 shares is 29% and passes.
	cmd.Quantity = 500
	trade, err := svc.ExecuteTrade(ctx, cmd)
	if err != nil {
		t.Fatalf("ExecuteTrade() error = %v", err)
	}
	if trade.Status != wallet.TradeStatusFilled {
		t.Errorf("status = %v, want filled", trade.Status)
	}
}

func TestService_ExecuteTrade_ConcentrationUsesPostTradeTotal(t *testing.T) {
	ctx := context.Background()
	now := time.Now().UTC()

	tour := activeTournament(t, now)
	tour.MaxSingleStockRate = decimal.RequireFromString("0.3")

	svc, _, _ := newTradingFixture(t, tour, decimal.NewFromInt(1000000))

	// 500 shares at 600 is exactly 30% of the starting million, but fees
	// shrink the post-trade portfolio to 999572.5 and push the position to
	// 30.01% of it. Measuring against the pre-trade total would let this
	// order through.
	cmd := validCommand()
	cmd.Quantity = 500
	cmd.Price = decimal.NewFromInt(600)
	_, err := svc.ExecuteTrade(ctx, cmd)
	if !errors.Is(err, trading.ErrRiskLimitExceeded) {
		t.Fatalf("ExecuteTrade() error = %v, want ErrRiskLimitExceeded", err)
	}
}

func TestService_ExecuteTrade_SellMinHoldingLimit(t *testing.T) {
	ctx := context.Background()
	now := time.Now().UTC()

	tour := activeTournament(t, now)
	tour.MinHoldingRate = decimal.RequireFromString("0.2")

	svc, _, _ := newTradingFixture(t, tour, decimal.NewFromInt(1000000))

	buy := validCommand()
	buy.Quantity = 500
	if _, err := svc.ExecuteTrade(ctx, buy); err != nil {
		t.Fatalf("buy error = %v", err)
	}

	// Selling the whole position drops invested value to zero, below the
	// 20% floor.
	sell := validCommand()
	sell.Side = fees.SideSell
	sell.Quantity = 500
	_, err := svc.ExecuteTrade(ctx, sell)
	if !errors.Is(err, trading.ErrRiskLimitExceeded) {
		t.Fatalf("full sell error = %v, want ErrRiskLimitExceeded", err)
	}

	// A partial sell keeping ~23% invested passes.
	sell.Quantity = 100
	trade, err := svc.ExecuteTrade(ctx, sell)
	if err != nil {
		t.Fatalf("partial sell error = %v", err)
	}
	if trade.RealizedPnL.IsZero() {
		// Sold at the same price bought, so the realized loss is the fees.
		t.Errorf("realized PnL = %v, want non-zero (fees)", trade.RealizedPnL)
	}
}

func TestService_ExecuteTrade_RejectedTradeLeavesWalletUnchanged(t *testing.T) {
	ctx := context.Background()
	now := time.Now().UTC()

	tour := activeTournament(t, now)
	svc, walletSvc, _ := newTradingFixture(t, tour, decimal.NewFromInt(10000))

	cmd := validCommand()
	_, err := svc.ExecuteTrade(ctx, cmd)
	if !errors.Is(err, wallet.ErrInsufficientFunds) {
		t.Fatalf("ExecuteTrade() error = %v, want ErrInsufficientFunds", err)
	}

	w, err := walletSvc.GetWallet(ctx, tour.ID, "u1")
	if err != nil {
		t.Fatalf("GetWallet() error = %v", err)
	}
	if !w.Cash.Equal(decimal.NewFromInt(10000)) {
		t.Errorf("cash = %v, want untouched 10000", w.Cash)
	}
	if w.TradeCount() != 0 {
		t.Errorf("trade count = %d, want 0", w.TradeCount())
	}
}

func TestService_ExecuteTrade_EmitsNotification(t *testing.T) {
	ctx := context.Background()
	now := time.Now().UTC()

	tour := activeTournament(t, now)
	svc, _, notifier := newTradingFixture(t, tour, decimal.NewFromInt(1000000))

	if _, err := svc.ExecuteTrade(ctx, validCommand()); err != nil {
		t.Fatalf("ExecuteTrade() error = %v", err)
	}

	events := notifier.Events()
	if len(events) != 1 {
		t.Fatalf("events = %d, want 1", len(events))
	}
	if events[0].Recipient != shared.UserID("u1") {
		t.Errorf("recipient = %v, want u1", events[0].Recipient)
	}
	if events[0].Data["symbol"] != "2330" {
		t.Errorf("symbol = %v, want 2330", events[0].Data["symbol"])
	}
}

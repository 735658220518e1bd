package wallets_test

import (
	"context"
	"errors"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/WyattLin001/invest-tournament-engine/src/app/wallets"
	"github.com/WyattLin001/invest-tournament-engine/src/domain/fees"
	"github.com/WyattLin001/invest-tournament-engine/src/domain/pricing"
	"github.com/WyattLin001/invest-tournament-engine/src/domain/shared"
	"github.com/WyattLin001/invest-tournament-engine/src/domain/wallet"
	pricinginfra "github.com/WyattLin001/invest-tournament-engine/src/infra/pricing"
	walletinfra "github.com/WyattLin001/invest-tournament-engine/src/infra/wallet"
)

func newTestService() *wallets.Service {
	feed := pricinginfra.NewStaticFeed(map[shared.Symbol]decimal.Decimal{
		"2330": decimal.NewFromInt(600),
	})
	return wallets.NewService(walletinfra.NewMemoryRepository(), feed)
}

func buyTrade(qty int64, price int64) *wallet.Trade {
	calc := fees.DefaultCalculator()
	gross := decimal.NewFromInt(price).Mul(decimal.NewFromInt(qty))
	breakdown, _ := calc.Calculate(gross, fees.SideBuy)
	return &wallet.Trade{
		ID:           "trade-1",
		TournamentID: "t1",
		UserID:       "u1",
		Symbol:       "2330",
		Side:         fees.SideBuy,
		Quantity:     qty,
		Price:        decimal.NewFromInt(price),
		Fees:         breakdown,
		NetAmount:    breakdown.NetAmount,
		ExecutedAt:   time.Now().UTC(),
	}
}

func TestService_CreateWallet_Duplicate(t *testing.T) {
	ctx := context.Background()
	svc := newTestService()

	cmd := wallets.CreateWalletCommand{
		TournamentID:   "t1",
		UserID:         "u1",
		InitialBalance: decimal.NewFromInt(1000000),
	}
	if _, err := svc.CreateWallet(ctx, cmd); err != nil {
		t.Fatalf("CreateWallet() error = %v", err)
	}
	_, err := svc.CreateWallet(ctx, cmd)
	if !errors.Is(err, wallet.ErrDuplicateWallet) {
		t.Fatalf("second CreateWallet() error = %v, want ErrDuplicateWallet", err)
	}
}

func TestService_ApplyTrade_GuardRejectionLeavesStateUnchanged(t *testing.T) {
	ctx := context.Background()
	svc := newTestService()

	_, err := svc.CreateWallet(ctx, wallets.CreateWalletCommand{
		TournamentID:   "t1",
		UserID:         "u1",
		InitialBalance: decimal.NewFromInt(1000000),
	})
	if err != nil {
		t.Fatalf("CreateWallet() error = %v", err)
	}

	guardErr := errors.New("rule broken")
	guard := func(w *wallet.Wallet) error { return guardErr }

	_, err = svc.ApplyTrade(ctx, buyTrade(100, 600), guard)
	if !errors.Is(err, guardErr) {
		t.Fatalf("ApplyTrade() error = %v, want guard error", err)
	}

	w, err := svc.GetWallet(ctx, "t1", "u1")
	if err != nil {
		t.Fatalf("GetWallet() error = %v", err)
	}
	if !w.Cash.Equal(decimal.NewFromInt(1000000)) {
		t.Errorf("cash = %v, want untouched 1000000", w.Cash)
	}
	if len(w.Positions) != 0 {
		t.Errorf("positions = %d, want 0", len(w.Positions))
	}
	if w.TradeCount() != 0 {
		t.Errorf("trade count = %d, want 0", w.TradeCount())
	}
}

func TestService_ApplyTrade_InsufficientFunds(t *testing.T) {
	ctx := context.Background()
	svc := newTestService()

	_, err := svc.CreateWallet(ctx, wallets.CreateWalletCommand{
		TournamentID:   "t1",
		UserID:         "u1",
		InitialBalance: decimal.NewFromInt(1000),
	})
	if err != nil {
		t.Fatalf("CreateWallet() error = %v", err)
	}

	_, err = svc.ApplyTrade(ctx, buyTrade(100, 600), nil)
	if !errors.Is(err, wallet.ErrInsufficientFunds) {
		t.Fatalf("ApplyTrade() error = %v, want ErrInsufficientFunds", err)
	}
}

func TestService_ApplyTrade_ConcurrentSameWalletSerializes(t *testing.T) {
	ctx := context.Background()
	svc := newTestService()

	initial := decimal.NewFromInt(10000000)
	_, err := svc.CreateWallet(ctx, wallets.CreateWalletCommand{
		TournamentID:   "t1",
		UserID:         "u1",
		InitialBalance: initial,
	})
	if err != nil {
		t.Fatalf("CreateWallet() error = %v", err)
	}

	const workers = 20
	var wg sync.WaitGroup
	wg.Add(workers)
	for i := 0; i < workers; i++ {
		go func(n int) {
			defer wg.Done()
			trade := buyTrade(10, 600)
			trade.ID = "trade-" + strconv.Itoa(n)
			_, _ = svc.ApplyTrade(ctx, trade, nil)
		}(i)
	}
	wg.Wait()

	w, err := svc.GetWallet(ctx, "t1", "u1")
	if err != nil {
		t.Fatalf("GetWallet() error = %v", err)
	}

	// Every buy must have been applied exactly once: cash out equals the
	// sum of the recorded trades' net amounts.
	spent := decimal.Zero
	for _, trade := range w.Trades {
		spent = spent.Add(trade.NetAmount)
	}
	if !initial.Sub(spent).Equal(w.Cash) {
		t.Errorf("cash = %v, want %v", w.Cash, initial.Sub(spent))
	}
	if w.TradeCount() != workers {
		t.Errorf("trade count = %d, want %d", w.TradeCount(), workers)
	}
	if pos := w.Positions["2330"]; pos == nil || pos.Quantity != workers*10 {
		t.Errorf("position quantity = %v, want %d", pos, workers*10)
	}
}

func TestService_UpdateHoldingPrice_FromFeed(t *testing.T) {
	ctx := context.Background()
	svc := newTestService()

	_, err := svc.CreateWallet(ctx, wallets.CreateWalletCommand{
		TournamentID:   "t1",
		UserID:         "u1",
		InitialBalance: decimal.NewFromInt(1000000),
	})
	if err != nil {
		t.Fatalf("CreateWallet() error = %v", err)
	}
	if _, err := svc.ApplyTrade(ctx, buyTrade(100, 580), nil); err != nil {
		t.Fatalf("ApplyTrade() error = %v", err)
	}

	// Zero price pulls the quote from the feed.
	err = svc.UpdateHoldingPrice(ctx, wallets.UpdateHoldingPriceCommand{
		TournamentID: "t1",
		UserID:       "u1",
		Symbol:       "2330",
	})
	if err != nil {
		t.Fatalf("UpdateHoldingPrice() error = %v", err)
	}

	w, _ := svc.GetWallet(ctx, "t1", "u1")
	pos := w.Positions["2330"]
	if !pos.LastPrice.Equal(decimal.NewFromInt(600)) {
		t.Errorf("last price = %v, want 600", pos.LastPrice)
	}
	if !pos.AvgPrice.Equal(decimal.NewFromInt(580)) {
		t.Errorf("avg price = %v, want unchanged 580", pos.AvgPrice)
	}

	// Unknown symbols surface the feed error.
	err = svc.UpdateHoldingPrice(ctx, wallets.UpdateHoldingPriceCommand{
		TournamentID: "t1",
		UserID:       "u1",
		Symbol:       "0050",
	})
	if !errors.Is(err, pricing.ErrQuoteUnavailable) {
		t.Errorf("UpdateHoldingPrice() error = %v, want ErrQuoteUnavailable", err)
	}
}

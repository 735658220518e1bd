package wallets

import (
	"context"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/WyattLin001/invest-tournament-engine/src/domain/fees"
	"github.com/WyattLin001/invest-tournament-engine/src/domain/pricing"
	"github.com/WyattLin001/invest-tournament-engine/src/domain/shared"
	"github.com/WyattLin001/invest-tournament-engine/src/domain/wallet"
)

// Guard runs under the wallet lock before a trade is applied, so rule
// checks and the fund mutation observe the same wallet state.
type Guard func(w *wallet.Wallet) error

// Service owns the per-(tournament,user) cash and position ledger. Every
// mutation of one wallet is serialized behind a per-wallet mutex; distinct
// wallets proceed in parallel.
type Service struct {
	Wallets wallet.Repository
	Feed    pricing.PriceFeed
	Clock   func() time.Time

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// NewService creates a new wallet service.
func NewService(wallets wallet.Repository, feed pricing.PriceFeed) *Service {
	return &Service{
		Wallets: wallets,
		Feed:    feed,
		Clock:   func() time.Time { return time.Now().UTC() },
		locks:   make(map[string]*sync.Mutex),
	}
}

func (s *Service) lockFor(tournamentID shared.TournamentID, userID shared.UserID) *sync.Mutex {
	key := string(tournamentID) + ":" + string(userID)

	s.mu.Lock()
	defer s.mu.Unlock()
	lock, ok := s.locks[key]
	if !ok {
		lock = &sync.Mutex{}
		s.locks[key] = lock
	}
	return lock
}

// CreateWalletCommand contains parameters for funding a new wallet.
type CreateWalletCommand struct {
	TournamentID   shared.TournamentID
	UserID         shared.UserID
	InitialBalance decimal.Decimal
}

// CreateWallet funds a wallet for the pair, rejecting duplicates with
// wallet.ErrDuplicateWallet.
func (s *Service) CreateWallet(ctx context.Context, cmd CreateWalletCommand) (*wallet.Wallet, error) {
	w, err := wallet.NewWallet(cmd.TournamentID, cmd.UserID, cmd.InitialBalance, s.Clock())
	if err != nil {
		return nil, err
	}
	if err := s.Wallets.Create(ctx, w); err != nil {
		return nil, err
	}
	return w, nil
}

// GetWallet retrieves a wallet; absence surfaces as wallet.ErrWalletNotFound.
func (s *Service) GetWallet(ctx context.Context, tournamentID shared.TournamentID, userID shared.UserID) (*wallet.Wallet, error) {
	return s.Wallets.Get(ctx, tournamentID, userID)
}

// ApplyTrade is the only fund/position mutation entrypoint. The guard, the
// balance check and the mutation run as one critical section per wallet;
// a failed guard or validation leaves no partial state. The realized gain
// or loss is written back onto the trade for sells.
func (s *Service) ApplyTrade(ctx context.Context, trade *wallet.Trade, guard Guard) (decimal.Decimal, error) {
	lock := s.lockFor(trade.TournamentID, trade.UserID)
	lock.Lock()
	defer lock.Unlock()

	w, err := s.Wallets.Get(ctx, trade.TournamentID, trade.UserID)
	if err != nil {
		return decimal.Zero, err
	}

	if guard != nil {
		if err := guard(w); err != nil {
			return decimal.Zero, err
		}
	}

	realized := decimal.Zero
	switch trade.Side {
	case fees.SideBuy:
		err = w.ApplyBuy(trade.Symbol, trade.Quantity, trade.Price, trade.Fees, trade.ExecutedAt)
	case fees.SideSell:
		realized, err = w.ApplySell(trade.Symbol, trade.Quantity, trade.Price, trade.Fees, trade.ExecutedAt)
	default:
		err = wallet.ErrInvalidTrade
	}
	if err != nil {
		return decimal.Zero, err
	}

	trade.RealizedPnL = realized
	trade.Status = wallet.TradeStatusFilled
	w.RecordTrade(trade)

	if err := s.Wallets.Save(ctx, w); err != nil {
		return decimal.Zero, err
	}
	return realized, nil
}

// UpdateHoldingPriceCommand refreshes the last price of one holding. When
// Price is zero the current quote is pulled from the price feed.
type UpdateHoldingPriceCommand struct {
	TournamentID shared.TournamentID
	UserID       shared.UserID
	Symbol       shared.Symbol
	Price        decimal.Decimal
}

// UpdateHoldingPrice marks a held position to market. Unheld symbols are a
// no-op, matching the price feed's fire-and-forget contract.
func (s *Service) UpdateHoldingPrice(ctx context.Context, cmd UpdateHoldingPriceCommand) error {
	if err := cmd.Symbol.Validate(); err != nil {
		return err
	}

	price := cmd.Price
	if price.Sign() <= 0 {
		if s.Feed == nil {
			return pricing.ErrQuoteUnavailable
		}
		quoted, err := s.Feed.Quote(ctx, cmd.Symbol)
		if err != nil {
			return err
		}
		price = quoted
	}

	lock := s.lockFor(cmd.TournamentID, cmd.UserID)
	lock.Lock()
	defer lock.Unlock()

	w, err := s.Wallets.Get(ctx, cmd.TournamentID, cmd.UserID)
	if err != nil {
		return err
	}
	w.MarkPrice(cmd.Symbol, price, s.Clock())
	return s.Wallets.Save(ctx, w)
}

// CleanupWallet removes a wallet at tournament teardown.
func (s *Service) CleanupWallet(ctx context.Context, tournamentID shared.TournamentID, userID shared.UserID) error {
	lock := s.lockFor(tournamentID, userID)
	lock.Lock()
	defer lock.Unlock()

	return s.Wallets.Delete(ctx, tournamentID, userID)
}

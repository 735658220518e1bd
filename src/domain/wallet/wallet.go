package wallet

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/WyattLin001/invest-tournament-engine/src/domain/fees"
	"github.com/WyattLin001/invest-tournament-engine/src/domain/shared"
)

// Position is a held quantity of one symbol with its cost basis and the
// last known market price.
type Position struct {
	Symbol    shared.Symbol
	Quantity  int64
	AvgPrice  decimal.Decimal
	LastPrice decimal.Decimal
	UpdatedAt time.Time
}

// MarketValue is quantity times the last known price.
func (p *Position) MarketValue() decimal.Decimal {
	return p.LastPrice.Mul(decimal.NewFromInt(p.Quantity))
}

// UnrealizedPnL is the gain or loss against the average cost basis.
func (p *Position) UnrealizedPnL() decimal.Decimal {
	return p.LastPrice.Sub(p.AvgPrice).Mul(decimal.NewFromInt(p.Quantity))
}

// Wallet is the per-tournament, per-user ledger of cash and positions.
// All mutation goes through ApplyBuy, ApplySell and MarkPrice; each method
// validates before touching state so a rejected operation leaves the
// wallet unchanged.
type Wallet struct {
	TournamentID shared.TournamentID
	UserID       shared.UserID
	Cash         decimal.Decimal
	Positions    map[shared.Symbol]*Position
	Trades       []*Trade
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// NewWallet creates a wallet funded with the tournament's initial balance.
func NewWallet(tournamentID shared.TournamentID, userID shared.UserID, initialBalance decimal.Decimal, now time.Time) (*Wallet, error) {
	if err := tournamentID.Validate(); err != nil {
		return nil, err
	}
	if err := userID.Validate(); err != nil {
		return nil, err
	}
	if initialBalance.Sign() <= 0 {
		return nil, ErrInvalidBalance
	}
	return &Wallet{
		TournamentID: tournamentID,
		UserID:       userID,
		Cash:         initialBalance,
		Positions:    make(map[shared.Symbol]*Position),
		CreatedAt:    now,
		UpdatedAt:    now,
	}, nil
}

// ApplyBuy debits cash by the gross amount plus fees and merges the bought
// quantity into the position at a quantity-weighted average price.
func (w *Wallet) ApplyBuy(symbol shared.Symbol, quantity int64, price decimal.Decimal, cost fees.Breakdown, now time.Time) error {
	if quantity <= 0 || price.Sign() <= 0 {
		return ErrInvalidTrade
	}
	if w.Cash.Cmp(cost.NetAmount) < 0 {
		return ErrInsufficientFunds
	}

	w.Cash = w.Cash.Sub(cost.NetAmount)

	qty := decimal.NewFromInt(quantity)
	if pos, ok := w.Positions[symbol]; ok {
		oldQty := decimal.NewFromInt(pos.Quantity)
		newQty := pos.Quantity + quantity
		// newAvg = (oldQty*oldAvg + qty*price) / (oldQty+qty)
		pos.AvgPrice = oldQty.Mul(pos.AvgPrice).Add(qty.Mul(price)).Div(decimal.NewFromInt(newQty))
		pos.Quantity = newQty
		pos.LastPrice = price
		pos.UpdatedAt = now
	} else {
		w.Positions[symbol] = &Position{
			Symbol:    symbol,
			Quantity:  quantity,
			AvgPrice:  price,
			LastPrice: price,
			UpdatedAt: now,
		}
	}

	w.UpdatedAt = now
	return nil
}

// ApplySell credits cash with the net proceeds, decrements the position and
// removes it at zero. It returns the realized gain or loss net of fees.
func (w *Wallet) ApplySell(symbol shared.Symbol, quantity int64, price decimal.Decimal, cost fees.Breakdown, now time.Time) (decimal.Decimal, error) {
	if quantity <= 0 || price.Sign() <= 0 {
		return decimal.Zero, ErrInvalidTrade
	}
	pos, ok := w.Positions[symbol]
	if !ok || pos.Quantity < quantity {
		return decimal.Zero, ErrInsufficientShares
	}

	w.Cash = w.Cash.Add(cost.NetAmount)

	qty := decimal.NewFromInt(quantity)
	realized := price.Sub(pos.AvgPrice).Mul(qty).Sub(cost.TotalFees)

	pos.Quantity -= quantity
	pos.LastPrice = price
	pos.UpdatedAt = now
	if pos.Quantity == 0 {
		delete(w.Positions, symbol)
	}

	w.UpdatedAt = now
	return realized, nil
}

// MarkPrice refreshes the last known price of a held symbol. Unheld
// symbols are ignored.
func (w *Wallet) MarkPrice(symbol shared.Symbol, price decimal.Decimal, now time.Time) {
	pos, ok := w.Positions[symbol]
	if !ok || price.Sign() <= 0 {
		return
	}
	pos.LastPrice = price
	pos.UpdatedAt = now
	w.UpdatedAt = now
}

// RecordTrade appends an executed trade to the wallet's history.
func (w *Wallet) RecordTrade(trade *Trade) {
	w.Trades = append(w.Trades, trade)
}

// Clone returns a deep copy of the wallet. Trade records are immutable
// once recorded, so the history shares the underlying records.
func (w *Wallet) Clone() *Wallet {
	cp := *w
	cp.Positions = make(map[shared.Symbol]*Position, len(w.Positions))
	for symbol, pos := range w.Positions {
		p := *pos
		cp.Positions[symbol] = &p
	}
	cp.Trades = make([]*Trade, len(w.Trades))
	copy(cp.Trades, w.Trades)
	return &cp
}

// MarketValue is the combined value of all positions at last known prices.
func (w *Wallet) MarketValue() decimal.Decimal {
	total := decimal.Zero
	for _, pos := range w.Positions {
		total = total.Add(pos.MarketValue())
	}
	return total
}

// TotalValue is cash plus market value of all positions.
func (w *Wallet) TotalValue() decimal.Decimal {
	return w.Cash.Add(w.MarketValue())
}

// ReturnPercent is the total return against the tournament's initial
// balance, as a percentage.
func (w *Wallet) ReturnPercent(initialBalance decimal.Decimal) decimal.Decimal {
	if initialBalance.Sign() <= 0 {
		return decimal.Zero
	}
	return w.TotalValue().Sub(initialBalance).Div(initialBalance).Mul(decimal.NewFromInt(100))
}

// TradeCount is the number of filled trades in the wallet's history.
func (w *Wallet) TradeCount() int {
	return len(w.Trades)
}

// WinRate is the fraction of closed (sell) trades with a positive realized
// gain, in [0,1]. Wallets without sells report zero.
func (w *Wallet) WinRate() decimal.Decimal {
	var sells, wins int64
	for _, trade := range w.Trades {
		if trade.Side != fees.SideSell {
			continue
		}
		sells++
		if trade.RealizedPnL.Sign() > 0 {
			wins++
		}
	}
	if sells == 0 {
		return decimal.Zero
	}
	return decimal.NewFromInt(wins).Div(decimal.NewFromInt(sells))
}

package wallet

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/WyattLin001/invest-tournament-engine/src/domain/fees"
	"github.com/WyattLin001/invest-tournament-engine/src/domain/shared"
)

// TradeStatus marks the outcome of an order. Rejected orders are never
// recorded; only fills enter the wallet history.
type TradeStatus string

const TradeStatusFilled TradeStatus = "filled"

// Trade is an immutable record of one executed order. RealizedPnL is only
// meaningful for sells.
type Trade struct {
	ID           string
	TournamentID shared.TournamentID
	UserID       shared.UserID
	Symbol       shared.Symbol
	Side         fees.Side
	Quantity     int64
	Price        decimal.Decimal
	Fees         fees.Breakdown
	NetAmount    decimal.Decimal
	RealizedPnL  decimal.Decimal
	ExecutedAt   time.Time
	Status       TradeStatus
}

// GrossAmount is quantity times price before fees.
func (t *Trade) GrossAmount() decimal.Decimal {
	return t.Price.Mul(decimal.NewFromInt(t.Quantity))
}

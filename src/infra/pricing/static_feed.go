package pricing

import (
	"context"
	"sync"

	"github.com/shopspring/decimal"

	"github.com/WyattLin001/invest-tournament-engine/src/domain/pricing"
	"github.com/WyattLin001/invest-tournament-engine/src/domain/shared"
)

// StaticFeed implements pricing.PriceFeed from an in-memory quote table.
// Used in tests and local runs without a market data endpoint.
type StaticFeed struct {
	mu     sync.RWMutex
	quotes map[shared.Symbol]decimal.Decimal
}

// NewStaticFeed creates a feed seeded with the given quotes.
func NewStaticFeed(quotes map[shared.Symbol]decimal.Decimal) *StaticFeed {
	seeded := make(map[shared.Symbol]decimal.Decimal, len(quotes))
	for symbol, price := range quotes {
		seeded[symbol] = price
	}
	return &StaticFeed{quotes: seeded}
}

// SetQuote updates the quote for a symbol.
func (f *StaticFeed) SetQuote(symbol shared.Symbol, price decimal.Decimal) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.quotes[symbol] = price
}

// Quote returns the current quote for a symbol.
func (f *StaticFeed) Quote(ctx context.Context, symbol shared.Symbol) (decimal.Decimal, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()

	price, ok := f.quotes[symbol]
	if !ok {
		return decimal.Zero, pricing.ErrQuoteUnavailable
	}
	return price, nil
}

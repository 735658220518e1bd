package pricing

import (
	"context"
	"errors"

	"github.com/shopspring/decimal"

	"github.com/WyattLin001/invest-tournament-engine/src/domain/shared"
)

var ErrQuoteUnavailable = errors.New("quote unavailable")

// PriceFeed supplies the current market price for a symbol. The engine
// treats it as an opaque, pull-based feed with no freshness guarantee.
type PriceFeed interface {
	Quote(ctx context.Context, symbol shared.Symbol) (decimal.Decimal, error)
}

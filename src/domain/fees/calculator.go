package fees

import (
	"errors"

	"github.com/shopspring/decimal"
)

// Side identifies the direction of a trade.
type Side string

const (
	SideBuy  Side = "buy"
	SideSell Side = "sell"
)

var ErrInvalidAmount = errors.New("trade amount must be positive")

// Calculator computes trading costs from a fee-rate configuration.
// Rates are configuration, not constants; DefaultCalculator documents
// the production defaults.
type Calculator struct {
	BrokerRate   decimal.Decimal
	TaxRate      decimal.Decimal
	MinBrokerFee decimal.Decimal
	MinTax       decimal.Decimal
}

// DefaultCalculator returns the standard fee schedule:
// broker 0.1425%, transaction tax 0.3%, minimum broker fee 20, minimum tax 1.
func DefaultCalculator() Calculator {
	return Calculator{
		BrokerRate:   decimal.RequireFromString("0.001425"),
		TaxRate:      decimal.RequireFromString("0.003"),
		MinBrokerFee: decimal.NewFromInt(20),
		MinTax:       decimal.NewFromInt(1),
	}
}

// Breakdown itemizes the cost of a single trade.
type Breakdown struct {
	BrokerFee      decimal.Decimal
	TransactionTax decimal.Decimal
	TotalFees      decimal.Decimal
	NetAmount      decimal.Decimal
}

// Calculate computes the fee breakdown for a trade of the given gross amount.
// The broker fee applies to both sides; the transaction tax applies to sells
// only. NetAmount is the cash movement: amount plus fees for a buy, amount
// minus fees for a sell.
func (c Calculator) Calculate(amount decimal.Decimal, side Side) (Breakdown, error) {
	if amount.Sign() <= 0 {
		return Breakdown{}, ErrInvalidAmount
	}

	brokerFee := decimal.Max(amount.Mul(c.BrokerRate), c.MinBrokerFee)

	tax := decimal.Zero
	if side == SideSell {
		tax = decimal.Max(amount.Mul(c.TaxRate), c.MinTax)
	}

	total := brokerFee.Add(tax)

	net := amount.Add(total)
	if side == SideSell {
		net = amount.Sub(total)
	}

	return Breakdown{
		BrokerFee:      brokerFee,
		TransactionTax: tax,
		TotalFees:      total,
		NetAmount:      net,
	}, nil
}

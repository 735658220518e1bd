package fees_test

import (
	"testing"

	"github.com/shopspring/decimal"

	"github.com/WyattLin001/invest-tournament-engine/src/domain/fees"
)

func TestCalculator_Calculate(t *testing.T) {
	calc := fees.DefaultCalculator()

	tests := []struct {
		name          string
		amount        decimal.Decimal
		side          fees.Side
		wantBrokerFee string
		wantTax       string
		wantNet       string
		wantErr       bool
	}{
		{
			name:          "buy above minimum fee",
			amount:        decimal.NewFromInt(580000),
			side:          fees.SideBuy,
			wantBrokerFee: "826.5",
			wantTax:       "0",
			wantNet:       "580826.5",
		},
		{
			name:          "sell charges broker fee and tax",
			amount:        decimal.NewFromInt(300000),
			side:          fees.SideSell,
			wantBrokerFee: "427.5",
			wantTax:       "900",
			wantNet:       "298672.5",
		},
		{
			name:          "small buy hits minimum broker fee",
			amount:        decimal.NewFromInt(1000),
			side:          fees.SideBuy,
			wantBrokerFee: "20",
			wantTax:       "0",
			wantNet:       "1020",
		},
		{
			name:          "small sell hits both minimums",
			amount:        decimal.NewFromInt(100),
			side:          fees.SideSell,
			wantBrokerFee: "20",
			wantTax:       "1",
			wantNet:       "79",
		},
		{
			name:    "zero amount",
			amount:  decimal.Zero,
			side:    fees.SideBuy,
			wantErr: true,
		},
		{
			name:    "negative amount",
			amount:  decimal.NewFromInt(-500),
			side:    fees.SideSell,
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := calc.Calculate(tt.amount, tt.side)

			if (err != nil) != tt.wantErr {
				t.Errorf("Calculate() error = %v, wantErr %v", err, tt.wantErr)
				return
			}
			if tt.wantErr {
				return
			}

			if got.BrokerFee.String() != tt.wantBrokerFee {
				t.Errorf("BrokerFee = %s, want %s", got.BrokerFee, tt.wantBrokerFee)
			}
			if got.TransactionTax.String() != tt.wantTax {
				t.Errorf("TransactionTax = %s, want %s", got.TransactionTax, tt.wantTax)
			}
			if got.NetAmount.String() != tt.wantNet {
				t.Errorf("NetAmount = %s, want %s", got.NetAmount, tt.wantNet)
			}
			if !got.TotalFees.Equal(got.BrokerFee.Add(got.TransactionTax)) {
				t.Errorf("TotalFees = %s, want broker + tax", got.TotalFees)
			}
		})
	}
}

func TestCalculator_Monotonicity(t *testing.T) {
	calc := fees.DefaultCalculator()
	amounts := []int64{1, 100, 5000, 1000000, 58000000}

	for _, a := range amounts {
		amount := decimal.NewFromInt(a)

		buy, err := calc.Calculate(amount, fees.SideBuy)
		if err != nil {
			t.Fatalf("buy Calculate(%d) error = %v", a, err)
		}
		if buy.TotalFees.Sign() < 0 {
			t.Errorf("buy TotalFees(%d) = %s, want >= 0", a, buy.TotalFees)
		}
		if buy.NetAmount.Cmp(amount) <= 0 {
			t.Errorf("buy NetAmount(%d) = %s, want > amount", a, buy.NetAmount)
		}

		sell, err := calc.Calculate(amount, fees.SideSell)
		if err != nil {
			t.Fatalf("sell Calculate(%d) error = %v", a, err)
		}
		if sell.TotalFees.Sign() < 0 {
			t.Errorf("sell TotalFees(%d) = %s, want >= 0", a, sell.TotalFees)
		}
		if sell.NetAmount.Cmp(amount) >= 0 {
			t.Errorf("sell NetAmount(%d) = %s, want < amount", a, sell.NetAmount)
		}
	}
}

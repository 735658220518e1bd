package pricing

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"time"

	"github.com/shopspring/decimal"

	"github.com/WyattLin001/invest-tournament-engine/src/domain/pricing"
	"github.com/WyattLin001/invest-tournament-engine/src/domain/shared"
)

// HTTPFeed implements pricing.PriceFeed against a JSON quote endpoint of
// the form GET {base}/quotes/{symbol} -> {"symbol": "...", "price": "..."}.
type HTTPFeed struct {
	BaseURL    string
	HTTPClient *http.Client
}

// NewHTTPFeed creates a new HTTP price feed.
func NewHTTPFeed(baseURL string) *HTTPFeed {
	return &HTTPFeed{
		BaseURL: baseURL,
		HTTPClient: &http.Client{
			Timeout: 5 * time.Second,
		},
	}
}

// WithHTTPClient sets a custom HTTP client.
func (f *HTTPFeed) WithHTTPClient(client *http.Client) *HTTPFeed {
	f.HTTPClient = client
	return f
}

type quoteResponse struct {
	Symbol string `json:"symbol"`
	Price  string `json:"price"`
}

// Quote fetches the current quote for a symbol.
func (f *HTTPFeed) Quote(ctx context.Context, symbol shared.Symbol) (decimal.Decimal, error) {
	endpoint := f.BaseURL + "/quotes/" + url.PathEscape(string(symbol))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return decimal.Zero, err
	}

	resp, err := f.HTTPClient.Do(req)
	if err != nil {
		return decimal.Zero, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return decimal.Zero, pricing.ErrQuoteUnavailable
	}

	var payload quoteResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return decimal.Zero, err
	}

	price, err := decimal.NewFromString(payload.Price)
	if err != nil || price.Sign() <= 0 {
		return decimal.Zero, pricing.ErrQuoteUnavailable
	}
	return price, nil
}

package broker

import (
	"context"
	"fmt"
	"strings"
)

// CryptoHoldings returns all crypto holdings from the Nummus host,
// following next cursors until exhausted.
func (c *Client) CryptoHoldings(ctx context.Context, token string) ([]CryptoHoldingRecord, error) {
	return collectPages[CryptoHoldingRecord](ctx, c, c.nummusURL+"/holdings/", token)
}

// CurrencyPairs returns all tradable crypto pairs from the Nummus host.
func (c *Client) CurrencyPairs(ctx context.Context, token string) ([]CurrencyPair, error) {
	return collectPages[CurrencyPair](ctx, c, c.nummusURL+"/currency_pairs/", token)
}

// CryptoPairID resolves a currency code (e.g. "BTC") to its trading-pair
// id. Quotes require the pair id; the currency id silently returns nothing.
func (c *Client) CryptoPairID(ctx context.Context, token, code string) (string, error) {
	pairs, err := c.CurrencyPairs(ctx, token)
	if err != nil {
		return "", err
	}
	for _, p := range pairs {
		if strings.EqualFold(p.AssetCurrency.Code, code) {
			return p.ID, nil
		}
	}
	return "", fmt.Errorf("no trading pair for currency %q", code)
}

// CryptoQuote fetches the market quote for a trading-pair id. The forex
// market-data endpoint lives on the main API host, not Nummus.
func (c *Client) CryptoQuote(ctx context.Context, token, pairID string) (*CryptoQuote, error) {
	u := fmt.Sprintf("%s/marketdata/forex/quotes/%s/", c.apiURL, pairID)

	var q CryptoQuote
	if err := c.getJSON(ctx, u, token, &q); err != nil {
		return nil, err
	}
	return &q, nil
}

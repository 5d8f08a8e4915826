package broker

import (
	"context"
	"fmt"
	"net/url"
)

// FirstAccount returns the user's first brokerage account. The unofficial
// API lists accounts but retail users have exactly one.
func (c *Client) FirstAccount(ctx context.Context, token string) (*Account, error) {
	accounts, err := collectPages[Account](ctx, c, c.apiURL+"/accounts/", token)
	if err != nil {
		return nil, err
	}
	if len(accounts) == 0 {
		return nil, fmt.Errorf("no brokerage accounts")
	}
	return &accounts[0], nil
}

// Positions returns all nonzero equity positions, following next cursors
// until exhausted.
func (c *Client) Positions(ctx context.Context, token string) ([]PositionRecord, error) {
	return collectPages[PositionRecord](ctx, c, c.apiURL+"/positions/?nonzero=true", token)
}

// InstrumentByURL resolves an instrument reference returned inside a
// position record.
func (c *Client) InstrumentByURL(ctx context.Context, token, instrumentURL string) (*Instrument, error) {
	var inst Instrument
	if err := c.getJSON(ctx, instrumentURL, token, &inst); err != nil {
		return nil, err
	}
	return &inst, nil
}

// Quote fetches the quote for a symbol. The endpoint works without a
// bearer token, so token may be empty.
func (c *Client) Quote(ctx context.Context, token, symbol string) (*QuoteRecord, error) {
	u := fmt.Sprintf("%s/quotes/%s/", c.apiURL, url.PathEscape(symbol))

	var q QuoteRecord
	if err := c.getJSON(ctx, u, token, &q); err != nil {
		return nil, err
	}
	return &q, nil
}

package broker

import (
	"context"
	"fmt"
)

// OptionPositions returns all nonzero option positions, following next
// cursors until exhausted.
func (c *Client) OptionPositions(ctx context.Context, token string) ([]OptionPositionRecord, error) {
	return collectPages[OptionPositionRecord](ctx, c, c.apiURL+"/options/positions/?nonzero=True", token)
}

// OptionInstrumentByURL resolves an option instrument reference returned
// inside an option position or order leg.
func (c *Client) OptionInstrumentByURL(ctx context.Context, token, optionURL string) (*OptionInstrument, error) {
	var inst OptionInstrument
	if err := c.getJSON(ctx, optionURL, token, &inst); err != nil {
		return nil, err
	}
	return &inst, nil
}

// OptionMarketData fetches the current market data for one option
// instrument id.
func (c *Client) OptionMarketData(ctx context.Context, token, optionID string) (*OptionMarketData, error) {
	u := fmt.Sprintf("%s/marketdata/options/%s/", c.apiURL, optionID)

	var md OptionMarketData
	if err := c.getJSON(ctx, u, token, &md); err != nil {
		return nil, err
	}
	return &md, nil
}

// VisitOptionOrders streams option orders in the server's
// reverse-chronological order, following next cursors. Returning false from
// visit stops pagination early, which callers use to cut off once orders
// age past the window they care about.
func (c *Client) VisitOptionOrders(ctx context.Context, token string, visit func(OptionOrder) bool) error {
	return visitPages(ctx, c, c.apiURL+"/options/orders/", token, visit)
}

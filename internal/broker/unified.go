package broker

import "context"

// UnifiedAccount fetches the Phoenix already-aggregated portfolio view.
// Errors here are a signal to fall back to manual aggregation, not to fail
// the portfolio request.
func (c *Client) UnifiedAccount(ctx context.Context, token string) (*UnifiedAccount, error) {
	var ua UnifiedAccount
	if err := c.getJSON(ctx, c.phoenixURL+"/accounts/unified", token, &ua); err != nil {
		return nil, err
	}
	return &ua, nil
}

// Package broker is a thin client for the brokerage's unofficial REST API.
// It covers three hosts: the main API (auth, equities, options), Nummus
// (crypto), and Phoenix (the unified account view). Every operation is a
// stateless request/response; the caller owns tokens and retries.
package broker

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"hoodview/internal/util"
)

// Options configures a Client.
type Options struct {
	APIURL     string
	NummusURL  string
	PhoenixURL string
	ClientID   string
	Timeout    time.Duration
	// RateLimitPerMin throttles all outbound calls when > 0. The unofficial
	// API bans aggressively on bursts.
	RateLimitPerMin int
}

// Client talks to the broker's REST surface.
type Client struct {
	apiURL     string
	nummusURL  string
	phoenixURL string
	clientID   string

	httpClient *http.Client
	limiter    *util.RateLimiter
}

// NewClient creates a Client with the given options.
func NewClient(opts Options) *Client {
	timeout := opts.Timeout
	if timeout == 0 {
		timeout = 15 * time.Second
	}

	c := &Client{
		apiURL:     opts.APIURL,
		nummusURL:  opts.NummusURL,
		phoenixURL: opts.PhoenixURL,
		clientID:   opts.ClientID,
		httpClient: &http.Client{Timeout: timeout},
	}
	if opts.RateLimitPerMin > 0 {
		c.limiter = util.NewRateLimiter(opts.RateLimitPerMin)
	}
	return c
}

// apiError is a non-2xx response from the broker carrying whatever error
// fields the endpoint chose to populate.
type apiError struct {
	StatusCode  int
	Description string `json:"error_description"`
	Detail      string `json:"detail"`
	ErrorField  string `json:"error"`
}

// Error returns the most specific message available: description, then
// detail, then the generic error field, then the bare status.
func (e *apiError) Error() string {
	switch {
	case e.Description != "":
		return e.Description
	case e.Detail != "":
		return e.Detail
	case e.ErrorField != "":
		return e.ErrorField
	default:
		return fmt.Sprintf("broker returned status %d", e.StatusCode)
	}
}

// IsUpstreamError reports whether err is a non-2xx broker response.
func IsUpstreamError(err error) bool {
	var ae *apiError
	return asAPIError(err, &ae)
}

func asAPIError(err error, target **apiError) bool {
	for err != nil {
		if ae, ok := err.(*apiError); ok {
			*target = ae
			return true
		}
		u, ok := err.(interface{ Unwrap() error })
		if !ok {
			return false
		}
		err = u.Unwrap()
	}
	return false
}

// do performs one JSON request. A non-nil body is marshalled as JSON. The
// bearer token is attached when non-empty; quote endpoints work without one.
// On a non-2xx status the response body is still returned alongside an
// *apiError so callers that treat 4xx payloads as protocol (the token
// endpoint does) can decode them.
func (c *Client) do(ctx context.Context, method, rawURL, token string, body any, headers map[string]string) ([]byte, error) {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, err
		}
	}

	var reqBody io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("encoding request body: %w", err)
		}
		reqBody = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, rawURL, reqBody)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading response body: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		ae := &apiError{StatusCode: resp.StatusCode}
		_ = json.Unmarshal(data, ae) // best effort; fields stay empty on junk
		return data, ae
	}
	return data, nil
}

// getJSON fetches rawURL and decodes the response into out.
func (c *Client) getJSON(ctx context.Context, rawURL, token string, out any) error {
	data, err := c.do(ctx, http.MethodGet, rawURL, token, nil, nil)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("decoding %s: %w", rawURL, err)
	}
	return nil
}

// postJSON posts body to rawURL and decodes the response into out (when out
// is non-nil).
func (c *Client) postJSON(ctx context.Context, rawURL, token string, body, out any) error {
	data, err := c.do(ctx, http.MethodPost, rawURL, token, body, nil)
	if err != nil {
		return err
	}
	if out != nil {
		if err := json.Unmarshal(data, out); err != nil {
			return fmt.Errorf("decoding %s: %w", rawURL, err)
		}
	}
	return nil
}

// ---------------------------------------------------------------------------
// Pagination
// ---------------------------------------------------------------------------

// page is the broker's cursor-paginated envelope.
type page[T any] struct {
	Results []T    `json:"results"`
	Next    string `json:"next"`
}

// collectPages follows next links from rawURL until exhausted and returns
// the concatenation of all result pages.
func collectPages[T any](ctx context.Context, c *Client, rawURL, token string) ([]T, error) {
	var all []T
	err := visitPages(ctx, c, rawURL, token, func(item T) bool {
		all = append(all, item)
		return true
	})
	return all, err
}

// visitPages follows next links from rawURL, invoking visit per item in
// server order. Returning false from visit stops pagination early; results
// already visited are kept.
func visitPages[T any](ctx context.Context, c *Client, rawURL, token string, visit func(T) bool) error {
	next := rawURL
	for next != "" {
		var p page[T]
		if err := c.getJSON(ctx, next, token, &p); err != nil {
			return err
		}
		for _, item := range p.Results {
			if !visit(item) {
				return nil
			}
		}
		next = p.Next
	}
	return nil
}

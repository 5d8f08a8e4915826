// Package domain defines the core types shared across the hoodview service:
// credentials, sessions, challenges, positions, and portfolio snapshots.
package domain

import "time"

// ---------------------------------------------------------------------------
// Authentication
// ---------------------------------------------------------------------------

// Credentials carries one login attempt's inputs. It is transient: never
// persisted, never logged, alive only for the duration of the call.
type Credentials struct {
	Email       string
	Password    string
	MFACode     string // optional, set when answering a code challenge
	ChallengeID string // optional, reuses a previously issued challenge
}

// ChallengeKind identifies how a broker challenge must be resolved.
type ChallengeKind string

// Challenge kinds. The first three are code challenges answered by the user
// typing a one-time code; Prompt is an out-of-band device approval.
const (
	ChallengeSMS    ChallengeKind = "sms"
	ChallengeEmail  ChallengeKind = "email"
	ChallengeApp    ChallengeKind = "app"
	ChallengePrompt ChallengeKind = "prompt"
)

// IsCode reports whether the challenge is resolved by submitting a code.
func (k ChallengeKind) IsCode() bool {
	return k == ChallengeSMS || k == ChallengeEmail || k == ChallengeApp
}

// Challenge is a broker-issued obstacle standing between a login attempt and
// a session. Decoded once at the API boundary; internal logic never
// re-inspects raw response shape.
type Challenge struct {
	ID                string
	Kind              ChallengeKind
	RemainingAttempts int
}

// Session is the authenticated session record. Exactly one exists per user;
// setting a new one overwrites the old.
type Session struct {
	AccessToken  string    `json:"access_token"`
	RefreshToken string    `json:"refresh_token,omitempty"`
	ExpiresAt    time.Time `json:"expires_at"`
	AccountID    string    `json:"account_id,omitempty"`
	AccountURL   string    `json:"account_url,omitempty"`
}

// ValidAt reports whether the session is still usable at the given instant.
func (s Session) ValidAt(now time.Time) bool {
	return s.AccessToken != "" && s.ExpiresAt.After(now)
}

// ConnectionStatus is the externally visible session state for a user.
type ConnectionStatus struct {
	Connected bool       `json:"connected"`
	ExpiresAt *time.Time `json:"expires_at,omitempty"`
}

// LoginStatus enumerates the outcomes of a login call.
type LoginStatus string

// Login outcomes. MFARequired and DeviceVerification are control-flow
// branches the caller must handle, not errors. ShouldRetry means a device
// approval was just validated and resubmitting the same credentials will
// yield tokens.
const (
	LoginSuccess            LoginStatus = "success"
	LoginMFARequired        LoginStatus = "mfa_required"
	LoginDeviceVerification LoginStatus = "device_verification"
	LoginShouldRetry        LoginStatus = "should_retry"
	LoginFailed             LoginStatus = "failed"
)

// LoginResult is the outcome of one login call.
type LoginResult struct {
	Status    LoginStatus
	Message   string
	Challenge *Challenge // set for MFARequired and DeviceVerification
}

// ---------------------------------------------------------------------------
// Portfolio
// ---------------------------------------------------------------------------

// Position is one equity position valued at the current price.
type Position struct {
	Symbol               string  `json:"symbol"`
	Name                 string  `json:"name"`
	Quantity             float64 `json:"quantity"`
	AverageCost          float64 `json:"average_cost"`
	CurrentPrice         float64 `json:"current_price"`
	MarketValue          float64 `json:"market_value"`
	TotalGainLoss        float64 `json:"total_gain_loss"`
	TotalGainLossPercent float64 `json:"total_gain_loss_percent"`
}

// OptionType is the contract type of an option instrument.
type OptionType string

// Option contract types.
const (
	OptionCall OptionType = "call"
	OptionPut  OptionType = "put"
)

// PositionType is the direction of an option position. The gain/loss sign
// flips for short positions: a short loses money as the price rises.
type PositionType string

// Option position directions.
const (
	PositionLong  PositionType = "long"
	PositionShort PositionType = "short"
)

// OptionPosition is one option position valued at the current mark.
type OptionPosition struct {
	Symbol               string       `json:"symbol"`
	OptionType           OptionType   `json:"option_type"`
	StrikePrice          float64      `json:"strike_price"`
	ExpirationDate       string       `json:"expiration_date"`
	PositionType         PositionType `json:"position_type"`
	Quantity             float64      `json:"quantity"`
	AverageCost          float64      `json:"average_cost"`
	CurrentPrice         float64      `json:"current_price"`
	MarketValue          float64      `json:"market_value"`
	TotalGainLoss        float64      `json:"total_gain_loss"`
	TotalGainLossPercent float64      `json:"total_gain_loss_percent"`
}

// CryptoHolding is one crypto holding with a weighted average cost across
// its cost-basis lots.
type CryptoHolding struct {
	Symbol               string  `json:"symbol"`
	Name                 string  `json:"name"`
	Quantity             float64 `json:"quantity"`
	AverageCost          float64 `json:"average_cost"`
	CurrentPrice         float64 `json:"current_price"`
	MarketValue          float64 `json:"market_value"`
	TotalGainLoss        float64 `json:"total_gain_loss"`
	TotalGainLossPercent float64 `json:"total_gain_loss_percent"`
}

// PortfolioSnapshot is the aggregated account view. Per-asset fields are
// pointers because the broker omits them for some accounts; absent means
// "not reported", not zero. Snapshots are derived fresh per request and
// never cached.
type PortfolioSnapshot struct {
	TotalValue       float64 `json:"total_value"`
	Equity           float64 `json:"equity"`
	Cash             float64 `json:"cash"`
	BuyingPower      float64 `json:"buying_power"`
	DayChange        float64 `json:"day_change"`
	DayChangePercent float64 `json:"day_change_percent"`

	StocksEquity  *float64 `json:"stocks_equity,omitempty"`
	CryptoEquity  *float64 `json:"crypto_equity,omitempty"`
	OptionsEquity *float64 `json:"options_equity,omitempty"`

	CryptoBuyingPower  *float64 `json:"crypto_buying_power,omitempty"`
	OptionsBuyingPower *float64 `json:"options_buying_power,omitempty"`
}

// Quote is a price quote for one symbol. ExtendedHoursPrice is zero when the
// broker reports no extended-hours trade.
type Quote struct {
	Symbol             string  `json:"symbol"`
	LastTradePrice     float64 `json:"last_trade_price"`
	ExtendedHoursPrice float64 `json:"extended_hours_price,omitempty"`
	PreviousClose      float64 `json:"previous_close"`
}

// Price returns the preferred current price: the extended-hours trade price
// when present, otherwise the last trade price.
func (q Quote) Price() float64 {
	if q.ExtendedHoursPrice > 0 {
		return q.ExtendedHoursPrice
	}
	return q.LastTradePrice
}

// OptionTrade is one executed option order leg, flattened for the
// today's-trades view.
type OptionTrade struct {
	OrderID        string     `json:"order_id"`
	LegID          string     `json:"leg_id"`
	Symbol         string     `json:"symbol"`
	Side           string     `json:"side"` // buy or sell
	PositionEffect string     `json:"position_effect"`
	OptionType     OptionType `json:"option_type"`
	StrikePrice    float64    `json:"strike_price"`
	ExpirationDate string     `json:"expiration_date"`
	Quantity       float64    `json:"quantity"`
	Price          float64    `json:"price"`
	ExecutedAt     time.Time  `json:"executed_at"`
}

package broker

import (
	"bytes"
	"time"

	"github.com/shopspring/decimal"
)

// Num is a decimal value as the broker serializes it: usually a quoted
// decimal string, sometimes a bare number, sometimes null or "". Null and
// empty decode to zero rather than erroring, because the broker uses them
// interchangeably for "not applicable".
type Num struct {
	decimal.Decimal
}

// UnmarshalJSON decodes quoted strings, bare numbers, null, and "".
func (n *Num) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) || bytes.Equal(data, []byte(`""`)) {
		n.Decimal = decimal.Zero
		return nil
	}
	return n.Decimal.UnmarshalJSON(data)
}

// Float returns the value as a float64, losing precision only at the final
// reporting edge.
func (n Num) Float() float64 {
	f, _ := n.Decimal.Float64()
	return f
}

// ---------------------------------------------------------------------------
// Auth wire types
// ---------------------------------------------------------------------------

// TokenResponse is the token endpoint's response. The endpoint multiplexes
// four outcomes through one shape: tokens, an MFA demand, an inline
// challenge, or a verification workflow. Fields are checked in the priority
// order the login orchestrator defines.
type TokenResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	ExpiresIn    int64  `json:"expires_in"`

	MFARequired bool   `json:"mfa_required"`
	MFAType     string `json:"mfa_type"`

	Challenge            *WireChallenge `json:"challenge"`
	VerificationWorkflow *struct {
		ID     string `json:"id"`
		Status string `json:"workflow_status"`
	} `json:"verification_workflow"`

	ErrorField  string `json:"error"`
	Description string `json:"error_description"`
	Detail      string `json:"detail"`
}

// ErrorMessage returns the most specific error text in the response, or ""
// when none of the error fields are set.
func (r *TokenResponse) ErrorMessage() string {
	switch {
	case r.Description != "":
		return r.Description
	case r.Detail != "":
		return r.Detail
	case r.ErrorField != "":
		return r.ErrorField
	default:
		return ""
	}
}

// WireChallenge is the broker's challenge descriptor.
type WireChallenge struct {
	ID                string `json:"id"`
	Type              string `json:"type"`
	Status            string `json:"status"`
	RemainingAttempts int    `json:"remaining_attempts"`
}

// ChallengeResponse is the challenge-respond endpoint's response. On an
// invalid code the broker nests a fresh descriptor (same id, decremented
// remaining_attempts) under challenge.
type ChallengeResponse struct {
	ID        string         `json:"id"`
	Status    string         `json:"status"`
	Challenge *WireChallenge `json:"challenge"`
}

// PromptStatus is the push-prompt status endpoint's response.
type PromptStatus struct {
	ChallengeStatus string `json:"challenge_status"`
}

// ---------------------------------------------------------------------------
// Account / equity wire types
// ---------------------------------------------------------------------------

// Account is one brokerage account record.
type Account struct {
	AccountNumber string `json:"account_number"`
	URL           string `json:"url"`
	BuyingPower   Num    `json:"buying_power"`
	Cash          Num    `json:"cash"`
	PortfolioCash Num    `json:"portfolio_cash"`
}

// PositionRecord is one raw equity position. Instrument is a URL reference
// that must be resolved to learn the symbol.
type PositionRecord struct {
	URL             string `json:"url"`
	Instrument      string `json:"instrument"`
	Quantity        Num    `json:"quantity"`
	AverageBuyPrice Num    `json:"average_buy_price"`
}

// Instrument is the metadata for one tradable security.
type Instrument struct {
	Symbol     string `json:"symbol"`
	SimpleName string `json:"simple_name"`
	Name       string `json:"name"`
}

// DisplayName prefers the short name over the full legal name.
func (i *Instrument) DisplayName() string {
	if i.SimpleName != "" {
		return i.SimpleName
	}
	return i.Name
}

// QuoteRecord is one symbol quote.
type QuoteRecord struct {
	Symbol                      string `json:"symbol"`
	LastTradePrice              Num    `json:"last_trade_price"`
	LastExtendedHoursTradePrice Num    `json:"last_extended_hours_trade_price"`
	PreviousClose               Num    `json:"previous_close"`
	AdjustedPreviousClose       Num    `json:"adjusted_previous_close"`
}

// ---------------------------------------------------------------------------
// Options wire types
// ---------------------------------------------------------------------------

// OptionPositionRecord is one raw option position. Option is a URL
// reference to the option instrument.
type OptionPositionRecord struct {
	ChainSymbol          string `json:"chain_symbol"`
	Option               string `json:"option"`
	OptionID             string `json:"option_id"`
	Type                 string `json:"type"` // long or short
	Quantity             Num    `json:"quantity"`
	AveragePrice         Num    `json:"average_price"`
	TradeValueMultiplier Num    `json:"trade_value_multiplier"`
}

// OptionInstrument is one option contract's metadata.
type OptionInstrument struct {
	ID             string `json:"id"`
	ChainSymbol    string `json:"chain_symbol"`
	StrikePrice    Num    `json:"strike_price"`
	ExpirationDate string `json:"expiration_date"`
	Type           string `json:"type"` // call or put
}

// OptionMarketData is the current market data for one option contract.
type OptionMarketData struct {
	AdjustedMarkPrice Num `json:"adjusted_mark_price"`
	MarkPrice         Num `json:"mark_price"`
}

// Mark returns the usable mark price, preferring the adjusted one.
func (m *OptionMarketData) Mark() Num {
	if !m.AdjustedMarkPrice.IsZero() {
		return m.AdjustedMarkPrice
	}
	return m.MarkPrice
}

// OptionOrder is one option order with its legs. The orders endpoint
// returns these in reverse-chronological order.
type OptionOrder struct {
	ID                string      `json:"id"`
	ChainSymbol       string      `json:"chain_symbol"`
	State             string      `json:"state"`
	Direction         string      `json:"direction"`
	Price             Num         `json:"price"`
	Quantity          Num         `json:"quantity"`
	ProcessedQuantity Num         `json:"processed_quantity"`
	CreatedAt         time.Time   `json:"created_at"`
	UpdatedAt         time.Time   `json:"updated_at"`
	Legs              []OptionLeg `json:"legs"`
}

// OptionLeg is one leg of an option order.
type OptionLeg struct {
	ID             string      `json:"id"`
	Side           string      `json:"side"`
	PositionEffect string      `json:"position_effect"`
	Option         string      `json:"option"`
	Executions     []Execution `json:"executions"`
}

// Execution is one fill of an order leg.
type Execution struct {
	Price     Num       `json:"price"`
	Quantity  Num       `json:"quantity"`
	Timestamp time.Time `json:"timestamp"`
}

// ---------------------------------------------------------------------------
// Crypto wire types (Nummus host)
// ---------------------------------------------------------------------------

// CryptoHoldingRecord is one crypto holding with its cost-basis lots.
type CryptoHoldingRecord struct {
	Currency struct {
		ID   string `json:"id"`
		Code string `json:"code"`
		Name string `json:"name"`
	} `json:"currency"`
	Quantity  Num            `json:"quantity"`
	CostBases []CostBasisLot `json:"cost_bases"`
}

// CostBasisLot is one historical acquisition batch of a crypto holding.
type CostBasisLot struct {
	DirectCostBasis Num `json:"direct_cost_basis"`
	DirectQuantity  Num `json:"direct_quantity"`
}

// CurrencyPair maps a crypto currency to its tradable pair. Quotes are
// keyed by the pair id, not the currency id; confusing the two yields
// silent zero prices.
type CurrencyPair struct {
	ID            string `json:"id"`
	Symbol        string `json:"symbol"`
	AssetCurrency struct {
		Code string `json:"code"`
	} `json:"asset_currency"`
}

// CryptoQuote is the market quote for one trading pair.
type CryptoQuote struct {
	Symbol    string `json:"symbol"`
	MarkPrice Num    `json:"mark_price"`
}

// ---------------------------------------------------------------------------
// Unified account wire types (Phoenix host)
// ---------------------------------------------------------------------------

// EquitySection is a Phoenix sub-account block. Pointer fields distinguish
// "not reported for this account" from zero.
type EquitySection struct {
	Equity        *Num `json:"equity"`
	PreviousClose *Num `json:"previous_close"`
}

// UnifiedAccount is the Phoenix already-aggregated portfolio view.
type UnifiedAccount struct {
	TotalEquity        Num  `json:"total_equity"`
	TotalPreviousClose *Num `json:"total_previous_close"`
	PreviousClose      *Num `json:"previous_close"`

	PortfolioEquity        Num `json:"portfolio_equity"`
	PortfolioPreviousClose Num `json:"portfolio_previous_close"`

	AccountBuyingPower Num `json:"account_buying_power"`
	UninvestedCash     Num `json:"uninvested_cash"`

	Equities *EquitySection `json:"equities"`
	Crypto   *EquitySection `json:"crypto"`
	Options  *EquitySection `json:"options"`

	CryptoBuyingPower  *Num `json:"crypto_buying_power"`
	OptionsBuyingPower *Num `json:"options_buying_power"`
}

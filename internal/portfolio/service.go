// Package portfolio composes broker data into consistent snapshots: the
// unified account view when the broker serves it, and a manual multi-asset
// aggregation when it does not.
package portfolio

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"hoodview/internal/auth"
	"hoodview/internal/broker"
	"hoodview/internal/domain"
	"hoodview/internal/store"
	"hoodview/internal/util"
)

var hundred = decimal.NewFromInt(100)

// Service aggregates portfolio data for authenticated users. Snapshots are
// derived fresh per call and never cached; only option instrument metadata
// (immutable per contract) is memoized.
type Service struct {
	client   *broker.Client
	sessions *auth.Sessions
	journal  *store.TradeJournal // nil disables trade archival
	clock    util.Clock
	log      *slog.Logger

	optMu             sync.RWMutex
	optionInstruments map[string]*broker.OptionInstrument // keyed by instrument URL
}

// NewService creates the portfolio service. journal may be nil.
func NewService(client *broker.Client, sessions *auth.Sessions, journal *store.TradeJournal, clock util.Clock) *Service {
	return &Service{
		client:            client,
		sessions:          sessions,
		journal:           journal,
		clock:             clock,
		log:               slog.Default().With("component", "portfolio"),
		optionInstruments: make(map[string]*broker.OptionInstrument),
	}
}

// Now exposes the service clock, so callers label derived data ("today's
// trades") with the same instant the service used.
func (s *Service) Now() time.Time { return s.clock.Now() }

// token returns the user's bearer token or ErrNotConnected.
func (s *Service) token(userID string) (string, error) {
	sess, ok, err := s.sessions.Get(userID)
	if err != nil {
		return "", err
	}
	if !ok {
		return "", auth.ErrNotConnected
	}
	return sess.AccessToken, nil
}

// Snapshot returns the user's aggregated portfolio. The unified endpoint is
// the primary source; when it is unavailable or erroring the snapshot is
// rebuilt manually from positions, holdings, and quotes instead of failing.
func (s *Service) Snapshot(ctx context.Context, userID string) (domain.PortfolioSnapshot, error) {
	token, err := s.token(userID)
	if err != nil {
		return domain.PortfolioSnapshot{}, err
	}

	ua, err := s.client.UnifiedAccount(ctx, token)
	if err == nil && !ua.TotalEquity.IsZero() {
		return s.snapshotFromUnified(ua), nil
	}
	if err != nil {
		s.log.Info("unified account unavailable, using manual aggregation", "err", err)
	}
	return s.fallbackSnapshot(ctx, token)
}

// snapshotFromUnified maps the Phoenix payload onto a snapshot. The
// previous-close baseline follows an ordered fallback chain: total-account,
// then generic, then stocks-only.
func (s *Service) snapshotFromUnified(ua *broker.UnifiedAccount) domain.PortfolioSnapshot {
	totalEquity := ua.TotalEquity.Decimal

	var prevClose decimal.Decimal
	switch {
	case ua.TotalPreviousClose != nil:
		prevClose = ua.TotalPreviousClose.Decimal
	case ua.PreviousClose != nil:
		prevClose = ua.PreviousClose.Decimal
	case ua.Equities != nil && ua.Equities.PreviousClose != nil:
		prevClose = ua.Equities.PreviousClose.Decimal
	}

	dayChange := totalEquity.Sub(prevClose)
	var dayChangePct decimal.Decimal
	if prevClose.IsPositive() {
		dayChangePct = dayChange.Div(prevClose).Mul(hundred)
	}

	equity := ua.PortfolioEquity.Decimal
	if equity.IsZero() {
		equity = totalEquity
	}

	snap := domain.PortfolioSnapshot{
		TotalValue:       toFloat(totalEquity),
		Equity:           toFloat(equity),
		Cash:             ua.UninvestedCash.Float(),
		BuyingPower:      ua.AccountBuyingPower.Float(),
		DayChange:        toFloat(dayChange),
		DayChangePercent: toFloat(dayChangePct),
	}

	if ua.Equities != nil && ua.Equities.Equity != nil {
		snap.StocksEquity = floatPtr(ua.Equities.Equity.Float())
	}
	if ua.Crypto != nil && ua.Crypto.Equity != nil {
		snap.CryptoEquity = floatPtr(ua.Crypto.Equity.Float())
	}
	if ua.Options != nil && ua.Options.Equity != nil {
		snap.OptionsEquity = floatPtr(ua.Options.Equity.Float())
	}
	if ua.CryptoBuyingPower != nil {
		snap.CryptoBuyingPower = floatPtr(ua.CryptoBuyingPower.Float())
	}
	if ua.OptionsBuyingPower != nil {
		snap.OptionsBuyingPower = floatPtr(ua.OptionsBuyingPower.Float())
	}
	return snap
}

// fallbackSnapshot rebuilds the aggregate from scratch: cash from the
// account record plus per-asset totals from positions and quotes.
//
// Known limitation: crypto and options do not contribute to the
// previous-close baseline here, so day change in fallback mode is a
// stocks+cash-only approximation.
func (s *Service) fallbackSnapshot(ctx context.Context, token string) (domain.PortfolioSnapshot, error) {
	var cash, buyingPower decimal.Decimal
	if acct, err := s.client.FirstAccount(ctx, token); err != nil {
		s.log.Warn("account fetch failed in fallback, cash defaults to zero", "err", err)
	} else {
		cash = acct.PortfolioCash.Decimal
		if cash.IsZero() {
			cash = acct.Cash.Decimal
		}
		buyingPower = acct.BuyingPower.Decimal
	}

	stocksValue, stocksPrevClose, err := s.stockTotals(ctx, token)
	if err != nil {
		return domain.PortfolioSnapshot{}, err
	}
	cryptoValue, err := s.cryptoTotal(ctx, token)
	if err != nil {
		return domain.PortfolioSnapshot{}, err
	}
	optionsValue, err := s.optionsTotal(ctx, token)
	if err != nil {
		return domain.PortfolioSnapshot{}, err
	}

	totalEquity := cash.Add(stocksValue).Add(cryptoValue).Add(optionsValue)
	baseline := cash.Add(stocksPrevClose)

	dayChange := totalEquity.Sub(baseline)
	var dayChangePct decimal.Decimal
	if baseline.IsPositive() {
		dayChangePct = dayChange.Div(baseline).Mul(hundred)
	}

	return domain.PortfolioSnapshot{
		TotalValue:       toFloat(totalEquity),
		Equity:           toFloat(totalEquity),
		Cash:             toFloat(cash),
		BuyingPower:      toFloat(buyingPower),
		DayChange:        toFloat(dayChange),
		DayChangePercent: toFloat(dayChangePct),
		StocksEquity:     floatPtr(toFloat(stocksValue)),
		CryptoEquity:     floatPtr(toFloat(cryptoValue)),
		OptionsEquity:    floatPtr(toFloat(optionsValue)),
	}, nil
}

// Quote returns the quote for a symbol. The user id is optional; when the
// user has a session the call is authenticated, otherwise it goes out bare.
func (s *Service) Quote(ctx context.Context, symbol, userID string) (domain.Quote, error) {
	var token string
	if userID != "" {
		if sess, ok, err := s.sessions.Get(userID); err == nil && ok {
			token = sess.AccessToken
		}
	}

	q, err := s.client.Quote(ctx, token, symbol)
	if err != nil {
		return domain.Quote{}, err
	}
	return domain.Quote{
		Symbol:             q.Symbol,
		LastTradePrice:     q.LastTradePrice.Float(),
		ExtendedHoursPrice: q.LastExtendedHoursTradePrice.Float(),
		PreviousClose:      q.PreviousClose.Float(),
	}, nil
}

func toFloat(d decimal.Decimal) float64 {
	f, _ := d.Float64()
	return f
}

func floatPtr(f float64) *float64 { return &f }

package portfolio

import (
	"context"
	"sync"

	"github.com/shopspring/decimal"

	"hoodview/internal/broker"
	"hoodview/internal/domain"
)

// maxConcurrentFetches bounds the fan-out of instrument and quote lookups
// per listing call, keeping us inside the broker's throttle budget.
const maxConcurrentFetches = 4

// Positions returns the user's equity positions valued at current quotes.
// Instrument and quote lookups run concurrently per position; results keep
// the broker's ordering regardless of completion order.
func (s *Service) Positions(ctx context.Context, userID string) ([]domain.Position, error) {
	token, err := s.token(userID)
	if err != nil {
		return nil, err
	}
	return s.resolvePositions(ctx, token)
}

func (s *Service) resolvePositions(ctx context.Context, token string) ([]domain.Position, error) {
	records, err := s.client.Positions(ctx, token)
	if err != nil {
		return nil, err
	}

	results := make([]domain.Position, len(records))
	sem := make(chan struct{}, maxConcurrentFetches)
	var wg sync.WaitGroup

	for i, rec := range records {
		wg.Add(1)
		go func(i int, rec broker.PositionRecord) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()
			results[i] = s.resolvePosition(ctx, token, rec)
		}(i, rec)
	}
	wg.Wait()

	out := results[:0]
	for _, p := range results {
		if p.Symbol != "" {
			out = append(out, p)
		}
	}
	return out, nil
}

// resolvePosition values one raw position record. Lookup failures degrade
// rather than fail the listing: a failed instrument lookup drops the
// position (no symbol to show), a failed quote leaves the price at zero.
func (s *Service) resolvePosition(ctx context.Context, token string, rec broker.PositionRecord) domain.Position {
	inst, err := s.client.InstrumentByURL(ctx, token, rec.Instrument)
	if err != nil {
		s.log.Warn("instrument lookup failed, skipping position", "instrument", rec.Instrument, "err", err)
		return domain.Position{}
	}

	var price decimal.Decimal
	if q, err := s.client.Quote(ctx, token, inst.Symbol); err != nil {
		s.log.Warn("quote lookup failed, price defaults to zero", "symbol", inst.Symbol, "err", err)
	} else {
		price = preferredPrice(q)
	}

	qty := rec.Quantity.Decimal
	avgCost := rec.AverageBuyPrice.Decimal
	marketValue := qty.Mul(price)
	cost := qty.Mul(avgCost)
	gain := marketValue.Sub(cost)

	var gainPct decimal.Decimal
	if cost.IsPositive() {
		gainPct = gain.Div(cost).Mul(hundred)
	}

	return domain.Position{
		Symbol:               inst.Symbol,
		Name:                 inst.DisplayName(),
		Quantity:             toFloat(qty),
		AverageCost:          toFloat(avgCost),
		CurrentPrice:         toFloat(price),
		MarketValue:          toFloat(marketValue),
		TotalGainLoss:        toFloat(gain),
		TotalGainLossPercent: toFloat(gainPct),
	}
}

// preferredPrice picks the current price from a quote, preferring the
// extended-hours trade when one exists.
func preferredPrice(q *broker.QuoteRecord) decimal.Decimal {
	if q.LastExtendedHoursTradePrice.IsPositive() {
		return q.LastExtendedHoursTradePrice.Decimal
	}
	return q.LastTradePrice.Decimal
}

// stockTotals returns the summed market value and summed previous-close
// value of all equity positions, for the fallback snapshot.
func (s *Service) stockTotals(ctx context.Context, token string) (value, prevClose decimal.Decimal, err error) {
	records, recErr := s.client.Positions(ctx, token)
	if recErr != nil {
		return decimal.Zero, decimal.Zero, recErr
	}

	type totals struct{ value, prev decimal.Decimal }
	results := make([]totals, len(records))
	sem := make(chan struct{}, maxConcurrentFetches)
	var wg sync.WaitGroup

	for i, rec := range records {
		wg.Add(1)
		go func(i int, rec broker.PositionRecord) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()

			inst, err := s.client.InstrumentByURL(ctx, token, rec.Instrument)
			if err != nil {
				s.log.Warn("instrument lookup failed in totals", "instrument", rec.Instrument, "err", err)
				return
			}
			q, err := s.client.Quote(ctx, token, inst.Symbol)
			if err != nil {
				s.log.Warn("quote lookup failed in totals", "symbol", inst.Symbol, "err", err)
				return
			}

			qty := rec.Quantity.Decimal
			prev := q.AdjustedPreviousClose.Decimal
			if prev.IsZero() {
				prev = q.PreviousClose.Decimal
			}
			results[i] = totals{
				value: qty.Mul(preferredPrice(q)),
				prev:  qty.Mul(prev),
			}
		}(i, rec)
	}
	wg.Wait()

	for _, t := range results {
		value = value.Add(t.value)
		prevClose = prevClose.Add(t.prev)
	}
	return value, prevClose, nil
}

// ---------------------------------------------------------------------------
// Options
// ---------------------------------------------------------------------------

// OptionPositions returns the user's option positions valued at the current
// mark.
func (s *Service) OptionPositions(ctx context.Context, userID string) ([]domain.OptionPosition, error) {
	token, err := s.token(userID)
	if err != nil {
		return nil, err
	}
	return s.resolveOptionPositions(ctx, token)
}

func (s *Service) resolveOptionPositions(ctx context.Context, token string) ([]domain.OptionPosition, error) {
	records, err := s.client.OptionPositions(ctx, token)
	if err != nil {
		return nil, err
	}

	results := make([]domain.OptionPosition, len(records))
	sem := make(chan struct{}, maxConcurrentFetches)
	var wg sync.WaitGroup

	for i, rec := range records {
		wg.Add(1)
		go func(i int, rec broker.OptionPositionRecord) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()
			results[i] = s.resolveOptionPosition(ctx, token, rec)
		}(i, rec)
	}
	wg.Wait()

	out := results[:0]
	for _, p := range results {
		if p.Symbol != "" {
			out = append(out, p)
		}
	}
	return out, nil
}

func (s *Service) resolveOptionPosition(ctx context.Context, token string, rec broker.OptionPositionRecord) domain.OptionPosition {
	inst, err := s.optionInstrument(ctx, token, rec.Option)
	if err != nil {
		s.log.Warn("option instrument lookup failed, skipping position", "option", rec.Option, "err", err)
		return domain.OptionPosition{}
	}

	var price decimal.Decimal
	if md, err := s.client.OptionMarketData(ctx, token, inst.ID); err != nil {
		s.log.Warn("option market data failed, price defaults to zero", "option_id", inst.ID, "err", err)
	} else {
		price = md.Mark().Decimal
	}

	qty := rec.Quantity.Decimal
	mult := rec.TradeValueMultiplier.Decimal
	if mult.IsZero() {
		mult = hundred
	}

	// average_price is per underlying share and may carry the broker's
	// direction sign; cost is always the absolute premium paid or received.
	avgCost := rec.AveragePrice.Decimal.Abs()
	cost := qty.Mul(avgCost).Mul(mult)
	marketValue := qty.Mul(price).Mul(mult)

	// A short position gains as the contract cheapens.
	gain := marketValue.Sub(cost)
	if rec.Type == "short" {
		gain = cost.Sub(marketValue)
	}
	var gainPct decimal.Decimal
	if cost.IsPositive() {
		gainPct = gain.Div(cost).Mul(hundred)
	}

	return domain.OptionPosition{
		Symbol:               rec.ChainSymbol,
		OptionType:           domain.OptionType(inst.Type),
		StrikePrice:          inst.StrikePrice.Float(),
		ExpirationDate:       inst.ExpirationDate,
		PositionType:         domain.PositionType(rec.Type),
		Quantity:             toFloat(qty),
		AverageCost:          toFloat(avgCost),
		CurrentPrice:         toFloat(price),
		MarketValue:          toFloat(marketValue),
		TotalGainLoss:        toFloat(gain),
		TotalGainLossPercent: toFloat(gainPct),
	}
}

// optionsTotal returns the summed market value of all option positions for
// the fallback snapshot.
func (s *Service) optionsTotal(ctx context.Context, token string) (decimal.Decimal, error) {
	positions, err := s.resolveOptionPositions(ctx, token)
	if err != nil {
		return decimal.Zero, err
	}

	total := decimal.Zero
	for _, p := range positions {
		total = total.Add(decimal.NewFromFloat(p.MarketValue))
	}
	return total, nil
}

// optionInstrument resolves an option instrument URL through the process
// cache. Contract metadata is immutable, so entries never expire.
func (s *Service) optionInstrument(ctx context.Context, token, optionURL string) (*broker.OptionInstrument, error) {
	s.optMu.RLock()
	inst, ok := s.optionInstruments[optionURL]
	s.optMu.RUnlock()
	if ok {
		return inst, nil
	}

	inst, err := s.client.OptionInstrumentByURL(ctx, token, optionURL)
	if err != nil {
		return nil, err
	}

	s.optMu.Lock()
	s.optionInstruments[optionURL] = inst
	s.optMu.Unlock()
	return inst, nil
}

// ---------------------------------------------------------------------------
// Crypto
// ---------------------------------------------------------------------------

// CryptoHoldings returns the user's crypto holdings with weighted average
// costs and current mark prices.
func (s *Service) CryptoHoldings(ctx context.Context, userID string) ([]domain.CryptoHolding, error) {
	token, err := s.token(userID)
	if err != nil {
		return nil, err
	}
	return s.resolveCryptoHoldings(ctx, token)
}

func (s *Service) resolveCryptoHoldings(ctx context.Context, token string) ([]domain.CryptoHolding, error) {
	records, err := s.client.CryptoHoldings(ctx, token)
	if err != nil {
		return nil, err
	}

	out := make([]domain.CryptoHolding, 0, len(records))
	for _, rec := range records {
		qty := rec.Quantity.Decimal
		if qty.IsZero() {
			continue
		}

		// Weighted average across lots: total direct cost over total direct
		// quantity, not an average of per-lot prices.
		totalCost := decimal.Zero
		totalQty := decimal.Zero
		for _, lot := range rec.CostBases {
			totalCost = totalCost.Add(lot.DirectCostBasis.Decimal)
			totalQty = totalQty.Add(lot.DirectQuantity.Decimal)
		}
		var avgCost decimal.Decimal
		if totalQty.IsPositive() {
			avgCost = totalCost.Div(totalQty)
		}

		// A missing pair or quote prices the holding at zero rather than
		// failing the whole listing.
		var price decimal.Decimal
		if pairID, err := s.client.CryptoPairID(ctx, token, rec.Currency.Code); err != nil {
			s.log.Warn("crypto pair lookup failed, price defaults to zero", "code", rec.Currency.Code, "err", err)
		} else if q, err := s.client.CryptoQuote(ctx, token, pairID); err != nil {
			s.log.Warn("crypto quote failed, price defaults to zero", "code", rec.Currency.Code, "err", err)
		} else {
			price = q.MarkPrice.Decimal
		}

		marketValue := qty.Mul(price)
		cost := qty.Mul(avgCost)
		gain := marketValue.Sub(cost)
		var gainPct decimal.Decimal
		if cost.IsPositive() {
			gainPct = gain.Div(cost).Mul(hundred)
		}

		out = append(out, domain.CryptoHolding{
			Symbol:               rec.Currency.Code,
			Name:                 rec.Currency.Name,
			Quantity:             toFloat(qty),
			AverageCost:          toFloat(avgCost),
			CurrentPrice:         toFloat(price),
			MarketValue:          toFloat(marketValue),
			TotalGainLoss:        toFloat(gain),
			TotalGainLossPercent: toFloat(gainPct),
		})
	}
	return out, nil
}

// cryptoTotal returns the summed market value of all crypto holdings for the
// fallback snapshot.
func (s *Service) cryptoTotal(ctx context.Context, token string) (decimal.Decimal, error) {
	holdings, err := s.resolveCryptoHoldings(ctx, token)
	if err != nil {
		return decimal.Zero, err
	}

	total := decimal.Zero
	for _, h := range holdings {
		total = total.Add(decimal.NewFromFloat(h.MarketValue))
	}
	return total, nil
}

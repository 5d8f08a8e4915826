package portfolio

import (
	"context"
	"sort"
	"time"

	"hoodview/internal/broker"
	"hoodview/internal/domain"
	"hoodview/internal/util"
)

// TodaysOptionTrades returns the option order legs executed today, newest
// first. "Today" is the market's calendar date, not the server's. The orders
// feed is reverse-chronological, so pagination stops at the first order that
// aged past today instead of walking the full history.
func (s *Service) TodaysOptionTrades(ctx context.Context, userID string) ([]domain.OptionTrade, error) {
	token, err := s.token(userID)
	if err != nil {
		return nil, err
	}

	now := s.clock.Now()
	dayStart := util.StartOfMarketDay(now)

	var trades []domain.OptionTrade
	err = s.client.VisitOptionOrders(ctx, token, func(o broker.OptionOrder) bool {
		if o.UpdatedAt.Before(dayStart) {
			return false
		}
		if o.State != "filled" {
			return true
		}
		trades = append(trades, s.flattenOrder(ctx, token, o, now)...)
		return true
	})
	if err != nil {
		return nil, err
	}

	sort.Slice(trades, func(i, k int) bool {
		return trades[i].ExecutedAt.After(trades[k].ExecutedAt)
	})

	if s.journal != nil && len(trades) > 0 {
		if err := s.journal.WriteTrades(util.MarketDate(now), trades); err != nil {
			s.log.Warn("archiving trades failed", "err", err)
		}
	}
	return trades, nil
}

// flattenOrder turns a filled order into one trade per leg, keeping only
// legs whose execution falls on today's market date.
func (s *Service) flattenOrder(ctx context.Context, token string, o broker.OptionOrder, now time.Time) []domain.OptionTrade {
	out := make([]domain.OptionTrade, 0, len(o.Legs))
	for _, leg := range o.Legs {
		executedAt, price, qty := legFill(o, leg)
		if !util.SameMarketDay(executedAt, now) {
			continue
		}

		trade := domain.OptionTrade{
			OrderID:        o.ID,
			LegID:          leg.ID,
			Symbol:         o.ChainSymbol,
			Side:           leg.Side,
			PositionEffect: leg.PositionEffect,
			Quantity:       qty.Float(),
			Price:          price.Float(),
			ExecutedAt:     executedAt,
		}

		// Strike, type, and expiry come from the contract; a failed lookup
		// keeps the trade with just the order-level fields.
		if inst, err := s.optionInstrument(ctx, token, leg.Option); err != nil {
			s.log.Warn("option instrument lookup failed for trade", "option", leg.Option, "err", err)
		} else {
			trade.OptionType = domain.OptionType(inst.Type)
			trade.StrikePrice = inst.StrikePrice.Float()
			trade.ExpirationDate = inst.ExpirationDate
		}

		out = append(out, trade)
	}
	return out
}

// legFill extracts the fill time, price, and quantity for a leg. Executions
// are the authority; legs without execution detail fall back to the
// order-level price, processed quantity, and update time.
func legFill(o broker.OptionOrder, leg broker.OptionLeg) (time.Time, broker.Num, broker.Num) {
	if len(leg.Executions) == 0 {
		return o.UpdatedAt, o.Price, o.ProcessedQuantity
	}

	last := leg.Executions[0]
	qty := leg.Executions[0].Quantity
	for _, ex := range leg.Executions[1:] {
		qty.Decimal = qty.Add(ex.Quantity.Decimal)
		if ex.Timestamp.After(last.Timestamp) {
			last = ex
		}
	}
	return last.Timestamp, last.Price, qty
}

package util

import "time"

// marketTZ is the exchange's local time zone. All "today" boundaries for
// trade queries are evaluated in this zone, not in server-local time.
const marketTZ = "America/New_York"

// MarketLocation returns the exchange's local time zone. If the zoneinfo
// database is unavailable it falls back to a fixed UTC-5 zone rather than
// failing, since a slightly wrong boundary beats no boundary.
func MarketLocation() *time.Location {
	loc, err := time.LoadLocation(marketTZ)
	if err != nil {
		return time.FixedZone("EST", -5*60*60)
	}
	return loc
}

// MarketDate returns t's calendar date in the market's local zone, formatted
// as 2006-01-02.
func MarketDate(t time.Time) string {
	return t.In(MarketLocation()).Format("2006-01-02")
}

// SameMarketDay reports whether a and b fall on the same calendar date in
// the market's local zone.
func SameMarketDay(a, b time.Time) bool {
	return MarketDate(a) == MarketDate(b)
}

// StartOfMarketDay returns midnight of t's calendar date in the market's
// local zone.
func StartOfMarketDay(t time.Time) time.Time {
	loc := MarketLocation()
	lt := t.In(loc)
	return time.Date(lt.Year(), lt.Month(), lt.Day(), 0, 0, 0, 0, loc)
}

package types

import (
	"time"

	"github.com/rxtech-lab/argo-equity/pkg/errors"
)

// Market identifies an exchange session used to filter replay timestamps.
type Market string

const (
	MarketNYSE Market = "NYSE"
	MarketLSE  Market = "LSE"
	MarketTSE  Market = "TSE"
)

// AllMarkets lists the supported markets, used for config schema enums.
var AllMarkets = []any{string(MarketNYSE), string(MarketLSE), string(MarketTSE)}

type marketHours struct {
	zone        string
	openHour    int
	openMinute  int
	closeHour   int
	closeMinute int
}

var marketSessions = map[Market]marketHours{
	MarketNYSE: {zone: "America/New_York", openHour: 9, openMinute: 30, closeHour: 16, closeMinute: 0},
	MarketLSE:  {zone: "Europe/London", openHour: 8, openMinute: 0, closeHour: 16, closeMinute: 30},
	MarketTSE:  {zone: "Asia/Tokyo", openHour: 9, openMinute: 0, closeHour: 15, closeMinute: 30},
}

// Location resolves the market's IANA timezone.
func (m Market) Location() (*time.Location, error) {
	hours, ok := marketSessions[m]
	if !ok {
		return nil, errors.Newf(errors.ErrCodeInvalidParameter, "unknown market: %s", m)
	}

	loc, err := time.LoadLocation(hours.zone)
	if err != nil {
		return nil, errors.Wrapf(errors.ErrCodeInvalidConfiguration, err, "failed to load timezone %s", hours.zone)
	}

	return loc, nil
}

// IsWeekend reports whether t falls on Saturday or Sunday in the market's zone.
func (m Market) IsWeekend(t time.Time, loc *time.Location) bool {
	day := t.In(loc).Weekday()

	return day == time.Saturday || day == time.Sunday
}

// IsOpenAt reports whether t is a regular session timestamp: a weekday with
// the local time inside [open, close]. The close minute itself is included.
func (m Market) IsOpenAt(t time.Time, loc *time.Location) bool {
	if m.IsWeekend(t, loc) {
		return false
	}

	hours, ok := marketSessions[m]
	if !ok {
		return false
	}

	local := t.In(loc)
	minuteOfDay := local.Hour()*60 + local.Minute()
	open := hours.openHour*60 + hours.openMinute
	closeM := hours.closeHour*60 + hours.closeMinute

	return minuteOfDay >= open && minuteOfDay <= closeM
}

// Valid reports whether m is one of the supported markets.
func (m Market) Valid() bool {
	_, ok := marketSessions[m]

	return ok
}

package types

import (
	"math"
	"time"

	"github.com/rxtech-lab/argo-equity/pkg/errors"
)

// Bar is a single OHLCV bar for one symbol at minute precision.
type Bar struct {
	Symbol string    `yaml:"symbol" json:"symbol" csv:"symbol"`
	Time   time.Time `yaml:"time" json:"time" csv:"time"`
	Open   float64   `yaml:"open" json:"open" csv:"open"`
	High   float64   `yaml:"high" json:"high" csv:"high"`
	Low    float64   `yaml:"low" json:"low" csv:"low"`
	Close  float64   `yaml:"close" json:"close" csv:"close"`
	Volume float64   `yaml:"volume" json:"volume" csv:"volume"`
}

// Validate checks OHLC sanity: low ≤ open,close ≤ high, all values finite,
// volume non-negative, symbol and timestamp set.
func (b Bar) Validate() error {
	if b.Symbol == "" {
		return errors.New(errors.ErrCodeInvalidBar, "bar has no symbol")
	}

	if b.Time.IsZero() {
		return errors.Newf(errors.ErrCodeInvalidBar, "bar for %s has no timestamp", b.Symbol)
	}

	for _, v := range []float64{b.Open, b.High, b.Low, b.Close, b.Volume} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return errors.Newf(errors.ErrCodeInvalidBar, "bar for %s at %s contains a non-finite value", b.Symbol, b.Time)
		}
	}

	if b.Low > b.Open || b.Low > b.Close || b.Open > b.High || b.Close > b.High {
		return errors.Newf(errors.ErrCodeInvalidBar, "bar for %s at %s violates low <= open,close <= high", b.Symbol, b.Time)
	}

	if b.Volume < 0 {
		return errors.Newf(errors.ErrCodeInvalidBar, "bar for %s at %s has negative volume", b.Symbol, b.Time)
	}

	return nil
}

// MinuteTime returns the bar timestamp truncated to the minute. Timeline
// construction keys every bar by this value.
func (b Bar) MinuteTime() time.Time {
	return b.Time.Truncate(time.Minute)
}

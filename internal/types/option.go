package types

import (
	"math"
	"time"
)

type OptionType string

const (
	OptionTypeCall OptionType = "CALL"
	OptionTypePut  OptionType = "PUT"
)

// OptionContract is a held options position. Each contract covers 100 shares.
type OptionContract struct {
	Symbol     string     `yaml:"symbol" json:"symbol" csv:"symbol"`
	Type       OptionType `yaml:"type" json:"type" csv:"type"`
	Strike     float64    `yaml:"strike" json:"strike" csv:"strike"`
	Expiration time.Time  `yaml:"expiration" json:"expiration" csv:"expiration"`
	Contracts  int        `yaml:"contracts" json:"contracts" csv:"contracts"`
	Premium    float64    `yaml:"premium" json:"premium" csv:"premium"`
}

// Value marks the contract against the given spot price as of the supplied
// replay timestamp. Worth zero strictly after expiration; otherwise intrinsic
// value minus paid premium, scaled by contracts and the 100-share multiplier.
// The result can be negative when the premium exceeds intrinsic value.
func (o OptionContract) Value(spot float64, asOf time.Time) float64 {
	if asOf.After(o.Expiration) {
		return 0
	}

	var intrinsic float64

	switch o.Type {
	case OptionTypeCall:
		intrinsic = math.Max(0, spot-o.Strike)
	case OptionTypePut:
		intrinsic = math.Max(0, o.Strike-spot)
	}

	return (intrinsic - o.Premium) * float64(o.Contracts) * 100
}

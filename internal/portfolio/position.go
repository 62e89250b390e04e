package portfolio

import (
	"time"

	"github.com/shopspring/decimal"
)

// Position tracks an open long position for a single symbol. Quantity is
// whole shares; CostBasis is the total amount paid for the shares still held.
type Position struct {
	Symbol     string    `yaml:"symbol" json:"symbol"`
	Quantity   int       `yaml:"quantity" json:"quantity"`
	CostBasis  float64   `yaml:"cost_basis" json:"cost_basis"`
	LastUpdate time.Time `yaml:"last_update" json:"last_update"`
}

// AverageCost returns the average cost per share, zero when flat.
func (p *Position) AverageCost() float64 {
	if p.Quantity == 0 {
		return 0
	}

	return p.CostBasis / float64(p.Quantity)
}

// addShares augments the position with shares bought at price. The cost basis
// grows by the full cost of the new lot so that AverageCost reflects all lots.
func (p *Position) addShares(quantity int, price float64, now time.Time) {
	lotDec := decimal.NewFromInt(int64(quantity)).Mul(decimal.NewFromFloat(price))
	p.CostBasis, _ = decimal.NewFromFloat(p.CostBasis).Add(lotDec).Float64()
	p.Quantity += quantity
	p.LastUpdate = now
}

// removeShares reduces the position, keeping the average cost of the
// remaining shares unchanged. The cost basis resets to exactly zero when the
// position goes flat.
func (p *Position) removeShares(quantity int, now time.Time) {
	averageCost := p.AverageCost()
	p.Quantity -= quantity

	if p.Quantity == 0 {
		p.CostBasis = 0
	} else {
		removedDec := decimal.NewFromInt(int64(quantity)).Mul(decimal.NewFromFloat(averageCost))
		p.CostBasis, _ = decimal.NewFromFloat(p.CostBasis).Sub(removedDec).Float64()
	}

	p.LastUpdate = now
}

// ShortPosition tracks shares sold short for a single symbol. Quantity is the
// number of shares owed. EntryPrice is the weighted average across all opens
// still outstanding.
type ShortPosition struct {
	Symbol     string    `yaml:"symbol" json:"symbol"`
	Quantity   int       `yaml:"quantity" json:"quantity"`
	EntryPrice float64   `yaml:"entry_price" json:"entry_price"`
	LastUpdate time.Time `yaml:"last_update" json:"last_update"`
}

// addShares increases the short by shares opened at price, re-weighting the
// entry price across old and new lots.
func (s *ShortPosition) addShares(quantity int, price float64, now time.Time) {
	oldDec := decimal.NewFromInt(int64(s.Quantity)).Mul(decimal.NewFromFloat(s.EntryPrice))
	newDec := decimal.NewFromInt(int64(quantity)).Mul(decimal.NewFromFloat(price))
	total := s.Quantity + quantity

	s.EntryPrice, _ = oldDec.Add(newDec).Div(decimal.NewFromInt(int64(total))).Float64()
	s.Quantity = total
	s.LastUpdate = now
}

// removeShares reduces the shares owed. The entry price is left untouched so
// margin released on cover matches what was taken on open.
func (s *ShortPosition) removeShares(quantity int, now time.Time) {
	s.Quantity -= quantity
	s.LastUpdate = now
}

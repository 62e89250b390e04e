// Package portfolio implements cash, margin, long/short position, option and
// stop order accounting for a single strategy during a backtest.
package portfolio

import (
	"sync"
	"time"

	"github.com/rxtech-lab/argo-equity/internal/types"
	"github.com/rxtech-lab/argo-equity/pkg/errors"
	"github.com/shopspring/decimal"
)

// MarginRequirement is the fraction of a short position's notional value that
// must be backed by margin.
const MarginRequirement = 0.5

// Portfolio tracks cash, margin and open positions for one strategy. A
// portfolio is owned by a single strategy, but mutators still serialize
// through a lock because the liquidation pass may run after strategy code on
// the same tick. Every operation either succeeds fully or fails with a typed
// error leaving state untouched.
type Portfolio struct {
	mu              sync.RWMutex
	cash            float64
	marginAvailable float64
	totalPositions  int
	positions       map[string]*Position
	shorts          map[string]*ShortPosition
	options         map[string][]types.OptionContract
	stopOrders      map[string][]types.StopOrder
	// realized P&L outlives its position: flat positions are dropped from the
	// maps above, so the accumulators live here.
	realizedLong  map[string]float64
	realizedShort map[string]float64
	// last close seen per symbol, used to value positions on ticks where the
	// symbol has no bar.
	lastSeenClose map[string]float64
}

// NewPortfolio creates a portfolio with the given starting cash. Margin
// available starts at twice the initial cash (2x leverage).
func NewPortfolio(initialCash float64) *Portfolio {
	return &Portfolio{
		cash:            initialCash,
		marginAvailable: initialCash * 2,
		positions:       make(map[string]*Position),
		shorts:          make(map[string]*ShortPosition),
		options:         make(map[string][]types.OptionContract),
		stopOrders:      make(map[string][]types.StopOrder),
		realizedLong:    make(map[string]float64),
		realizedShort:   make(map[string]float64),
		lastSeenClose:   make(map[string]float64),
	}
}

// BuyStock opens or augments a long position at the given price, debiting
// cash by quantity*price.
func (p *Portfolio) BuyStock(symbol string, quantity int, price float64) error {
	if quantity <= 0 || price <= 0 {
		return errors.Newf(errors.ErrCodeInvalidParameter, "buy %s: quantity and price must be positive", symbol)
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	totalCost := float64(quantity) * price
	if totalCost > p.cash {
		return errors.Newf(errors.ErrCodeInsufficientFunds,
			"insufficient funds to buy %d %s at %.2f: need %.2f, have %.2f",
			quantity, symbol, price, totalCost, p.cash)
	}

	position, ok := p.positions[symbol]
	if !ok {
		position = &Position{Symbol: symbol}
		p.positions[symbol] = position
	}

	position.addShares(quantity, price, time.Now())
	p.cash -= totalCost
	p.totalPositions++

	return nil
}

// SellStock closes part or all of a long position at the given price,
// crediting cash by quantity*price and booking realized P&L against the
// average cost. A position sold down to zero is removed from the portfolio.
func (p *Portfolio) SellStock(symbol string, quantity int, price float64) error {
	if quantity <= 0 || price <= 0 {
		return errors.Newf(errors.ErrCodeInvalidParameter, "sell %s: quantity and price must be positive", symbol)
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	position, ok := p.positions[symbol]
	if !ok {
		return errors.Newf(errors.ErrCodePositionNotFound, "no position in %s to sell", symbol)
	}

	if position.Quantity < quantity {
		return errors.Newf(errors.ErrCodeInsufficientShares,
			"insufficient shares of %s: have %d, selling %d", symbol, position.Quantity, quantity)
	}

	pnlDec := decimal.NewFromFloat(price).
		Sub(decimal.NewFromFloat(position.AverageCost())).
		Mul(decimal.NewFromInt(int64(quantity)))
	p.realizedLong[symbol], _ = decimal.NewFromFloat(p.realizedLong[symbol]).Add(pnlDec).Float64()

	position.removeShares(quantity, time.Now())
	if position.Quantity == 0 {
		delete(p.positions, symbol)
	}

	p.cash += float64(quantity) * price
	p.totalPositions++

	return nil
}

// ShortStock opens or augments a short position at the given price. Proceeds
// are credited to cash; margin available is reduced by half the notional.
func (p *Portfolio) ShortStock(symbol string, quantity int, price float64) error {
	if quantity <= 0 || price <= 0 {
		return errors.Newf(errors.ErrCodeInvalidParameter, "short %s: quantity and price must be positive", symbol)
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	marginRequired := float64(quantity) * price * MarginRequirement
	if marginRequired > p.marginAvailable {
		return errors.Newf(errors.ErrCodeInsufficientMargin,
			"insufficient margin to short %d %s at %.2f: need %.2f, have %.2f",
			quantity, symbol, price, marginRequired, p.marginAvailable)
	}

	short, ok := p.shorts[symbol]
	if !ok {
		short = &ShortPosition{Symbol: symbol}
		p.shorts[symbol] = short
	}

	short.addShares(quantity, price, time.Now())
	p.cash += float64(quantity) * price
	p.marginAvailable -= marginRequired
	p.totalPositions++

	return nil
}

// CoverShort buys back part or all of a short position at the given price.
// Cash is debited by quantity*price; margin is released against the entry
// price, not the cover price. A short covered down to zero is removed.
func (p *Portfolio) CoverShort(symbol string, quantity int, price float64) error {
	if quantity <= 0 || price <= 0 {
		return errors.Newf(errors.ErrCodeInvalidParameter, "cover %s: quantity and price must be positive", symbol)
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	short, ok := p.shorts[symbol]
	if !ok {
		return errors.Newf(errors.ErrCodeShortNotFound, "no short position in %s to cover", symbol)
	}

	if short.Quantity < quantity {
		return errors.Newf(errors.ErrCodeInsufficientShares,
			"insufficient short shares of %s: owe %d, covering %d", symbol, short.Quantity, quantity)
	}

	totalCost := float64(quantity) * price
	if totalCost > p.cash {
		return errors.Newf(errors.ErrCodeInsufficientFunds,
			"insufficient funds to cover %d %s at %.2f: need %.2f, have %.2f",
			quantity, symbol, price, totalCost, p.cash)
	}

	pnlDec := decimal.NewFromFloat(short.EntryPrice).
		Sub(decimal.NewFromFloat(price)).
		Mul(decimal.NewFromInt(int64(quantity)))
	p.realizedShort[symbol], _ = decimal.NewFromFloat(p.realizedShort[symbol]).Add(pnlDec).Float64()

	marginReleased := float64(quantity) * short.EntryPrice * MarginRequirement

	short.removeShares(quantity, time.Now())
	if short.Quantity == 0 {
		delete(p.shorts, symbol)
	}

	p.cash -= totalCost
	p.marginAvailable += marginReleased
	p.totalPositions++

	return nil
}

// BuyOption purchases an options contract, debiting cash by
// contracts*premium*100.
func (p *Portfolio) BuyOption(contract types.OptionContract) error {
	if contract.Contracts <= 0 || contract.Premium <= 0 {
		return errors.Newf(errors.ErrCodeInvalidParameter, "buy option %s: contracts and premium must be positive", contract.Symbol)
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	totalCost := float64(contract.Contracts) * contract.Premium * 100
	if totalCost > p.cash {
		return errors.Newf(errors.ErrCodeInsufficientFunds,
			"insufficient funds to buy %d %s contracts: need %.2f, have %.2f",
			contract.Contracts, contract.Symbol, totalCost, p.cash)
	}

	p.options[contract.Symbol] = append(p.options[contract.Symbol], contract)
	p.cash -= totalCost
	p.totalPositions++

	return nil
}

// SetStopLoss records a stop-loss level for the symbol. Stop orders are
// stored as hints for strategies to read back; nothing triggers them.
func (p *Portfolio) SetStopLoss(symbol string, stopPrice float64, quantity int) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.stopOrders[symbol] = append(p.stopOrders[symbol], types.StopOrder{
		Symbol:       symbol,
		TriggerPrice: stopPrice,
		Quantity:     quantity,
		Type:         types.StopOrderTypeStopLoss,
	})
	p.totalPositions++
}

// SetTakeProfit records a take-profit level for the symbol.
func (p *Portfolio) SetTakeProfit(symbol string, targetPrice float64, quantity int) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.stopOrders[symbol] = append(p.stopOrders[symbol], types.StopOrder{
		Symbol:       symbol,
		TriggerPrice: targetPrice,
		Quantity:     quantity,
		Type:         types.StopOrderTypeTakeProfit,
	})
	p.totalPositions++
}

// GetTotalValue marks the whole portfolio against the supplied bars as of the
// given replay timestamp: cash, plus long value, minus short value, plus
// option value. Symbols missing from currentPrices are valued at the last
// close this portfolio has seen for them; a symbol never seen contributes
// zero.
func (p *Portfolio) GetTotalValue(currentPrices map[string]types.Bar, asOf time.Time) float64 {
	p.mu.Lock()
	defer p.mu.Unlock()

	for symbol, bar := range currentPrices {
		p.lastSeenClose[symbol] = bar.Close
	}

	// lastSeenClose now covers everything currentPrices does, so all lookups
	// below go through it.
	total := decimal.NewFromFloat(p.cash)

	for symbol, position := range p.positions {
		closePrice, ok := p.lastSeenClose[symbol]
		if !ok {
			continue
		}

		total = total.Add(decimal.NewFromInt(int64(position.Quantity)).Mul(decimal.NewFromFloat(closePrice)))
	}

	for symbol, short := range p.shorts {
		closePrice, ok := p.lastSeenClose[symbol]
		if !ok {
			continue
		}

		total = total.Sub(decimal.NewFromInt(int64(short.Quantity)).Mul(decimal.NewFromFloat(closePrice)))
	}

	for symbol, contracts := range p.options {
		closePrice, ok := p.lastSeenClose[symbol]
		if !ok {
			continue
		}

		for _, contract := range contracts {
			total = total.Add(decimal.NewFromFloat(contract.Value(closePrice, asOf)))
		}
	}

	result, _ := total.Float64()

	return result
}

// GetCash returns the current cash balance.
func (p *Portfolio) GetCash() float64 {
	p.mu.RLock()
	defer p.mu.RUnlock()

	return p.cash
}

// GetMarginAvailable returns the margin currently available for shorting.
func (p *Portfolio) GetMarginAvailable() float64 {
	p.mu.RLock()
	defer p.mu.RUnlock()

	return p.marginAvailable
}

// GetTotalPositions returns the count of successful portfolio operations.
func (p *Portfolio) GetTotalPositions() int {
	p.mu.RLock()
	defer p.mu.RUnlock()

	return p.totalPositions
}

// GetPosition returns a copy of the open long position for the symbol.
func (p *Portfolio) GetPosition(symbol string) (Position, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	position, ok := p.positions[symbol]
	if !ok {
		return Position{}, false
	}

	return *position, true
}

// GetShortPosition returns a copy of the open short position for the symbol.
func (p *Portfolio) GetShortPosition(symbol string) (ShortPosition, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	short, ok := p.shorts[symbol]
	if !ok {
		return ShortPosition{}, false
	}

	return *short, true
}

// GetAllPositions returns a snapshot of all open long positions.
func (p *Portfolio) GetAllPositions() map[string]Position {
	p.mu.RLock()
	defer p.mu.RUnlock()

	snapshot := make(map[string]Position, len(p.positions))
	for symbol, position := range p.positions {
		snapshot[symbol] = *position
	}

	return snapshot
}

// GetAllShortPositions returns a snapshot of all open short positions.
func (p *Portfolio) GetAllShortPositions() map[string]ShortPosition {
	p.mu.RLock()
	defer p.mu.RUnlock()

	snapshot := make(map[string]ShortPosition, len(p.shorts))
	for symbol, short := range p.shorts {
		snapshot[symbol] = *short
	}

	return snapshot
}

// GetOptions returns a copy of the option contracts held for the symbol.
func (p *Portfolio) GetOptions(symbol string) []types.OptionContract {
	p.mu.RLock()
	defer p.mu.RUnlock()

	contracts := make([]types.OptionContract, len(p.options[symbol]))
	copy(contracts, p.options[symbol])

	return contracts
}

// GetStopOrders returns a copy of the stop orders recorded for the symbol.
func (p *Portfolio) GetStopOrders(symbol string) []types.StopOrder {
	p.mu.RLock()
	defer p.mu.RUnlock()

	orders := make([]types.StopOrder, len(p.stopOrders[symbol]))
	copy(orders, p.stopOrders[symbol])

	return orders
}

// GetRealizedPnL returns the realized profit or loss booked by long sales of
// the symbol, including positions since closed.
func (p *Portfolio) GetRealizedPnL(symbol string) float64 {
	p.mu.RLock()
	defer p.mu.RUnlock()

	return p.realizedLong[symbol]
}

// GetShortRealizedPnL returns the realized profit or loss booked by covers of
// the symbol, including shorts since closed.
func (p *Portfolio) GetShortRealizedPnL(symbol string) float64 {
	p.mu.RLock()
	defer p.mu.RUnlock()

	return p.realizedShort[symbol]
}

// GetPositionValue returns the market value of the long position at the
// bar's close, zero when flat.
func (p *Portfolio) GetPositionValue(symbol string, bar types.Bar) float64 {
	p.mu.RLock()
	defer p.mu.RUnlock()

	position, ok := p.positions[symbol]
	if !ok {
		return 0
	}

	return float64(position.Quantity) * bar.Close
}

// GetUnrealizedPnL returns the unrealized profit or loss of the long position
// at the bar's close, zero when flat.
func (p *Portfolio) GetUnrealizedPnL(symbol string, bar types.Bar) float64 {
	p.mu.RLock()
	defer p.mu.RUnlock()

	position, ok := p.positions[symbol]
	if !ok {
		return 0
	}

	pnl, _ := decimal.NewFromFloat(bar.Close).
		Sub(decimal.NewFromFloat(position.AverageCost())).
		Mul(decimal.NewFromInt(int64(position.Quantity))).
		Float64()

	return pnl
}

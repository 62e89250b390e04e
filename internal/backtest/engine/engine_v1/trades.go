package engine

import (
	"sort"
	"time"

	"github.com/rxtech-lab/argo-equity/internal/portfolio"
	"github.com/rxtech-lab/argo-equity/internal/types"
)

// positionSnapshot captures a long position before a strategy tick runs.
type positionSnapshot struct {
	quantity    int
	averageCost float64
}

// shortSnapshot captures a short position before a strategy tick runs.
type shortSnapshot struct {
	quantity   int
	entryPrice float64
}

func snapshotPositions(pf *portfolio.Portfolio) map[string]positionSnapshot {
	positions := pf.GetAllPositions()

	out := make(map[string]positionSnapshot, len(positions))
	for symbol, pos := range positions {
		out[symbol] = positionSnapshot{
			quantity:    pos.Quantity,
			averageCost: pos.AverageCost(),
		}
	}

	return out
}

func snapshotShorts(pf *portfolio.Portfolio) map[string]shortSnapshot {
	shorts := pf.GetAllShortPositions()

	out := make(map[string]shortSnapshot, len(shorts))
	for symbol, pos := range shorts {
		out[symbol] = shortSnapshot{
			quantity:   pos.Quantity,
			entryPrice: pos.EntryPrice,
		}
	}

	return out
}

// detectTrades diffs the portfolio against its pre-tick snapshots and emits
// one synthetic trade per changed position. Opens and adds are priced at the
// position's basis (average cost, short entry); reductions and closes at the
// tick's close. A reduction with no bar this minute falls back to the basis
// price. Output order is deterministic: current longs, closed longs, current
// shorts, closed shorts, each sorted by symbol.
func detectTrades(
	longsBefore map[string]positionSnapshot,
	shortsBefore map[string]shortSnapshot,
	pf *portfolio.Portfolio,
	currentBars map[string]types.Bar,
	valueBefore float64,
	timestamp time.Time,
) []types.TradeRecord {
	var trades []types.TradeRecord

	record := func(symbol string, action types.TradeAction, quantity int, price float64) {
		trades = append(trades, types.TradeRecord{
			Timestamp:            timestamp,
			Symbol:               symbol,
			Action:               action,
			Quantity:             quantity,
			Price:                price,
			PortfolioValueBefore: valueBefore,
		})
	}

	closePrice := func(symbol string, fallback float64) float64 {
		bar, ok := currentBars[symbol]
		if !ok {
			return fallback
		}

		return bar.Close
	}

	longs := pf.GetAllPositions()
	for _, symbol := range sortedSymbols(longs) {
		current := longs[symbol]

		previous, held := longsBefore[symbol]
		if !held {
			record(symbol, types.TradeActionBuy, current.Quantity, current.AverageCost())

			continue
		}

		diff := current.Quantity - previous.quantity
		switch {
		case diff > 0:
			record(symbol, types.TradeActionBuy, diff, current.AverageCost())
		case diff < 0:
			record(symbol, types.TradeActionSell, -diff, closePrice(symbol, previous.averageCost))
		}
	}

	for _, symbol := range sortedSymbols(longsBefore) {
		if _, stillHeld := longs[symbol]; stillHeld {
			continue
		}

		previous := longsBefore[symbol]
		record(symbol, types.TradeActionSell, previous.quantity, closePrice(symbol, previous.averageCost))
	}

	shorts := pf.GetAllShortPositions()
	for _, symbol := range sortedSymbols(shorts) {
		current := shorts[symbol]

		previous, held := shortsBefore[symbol]
		if !held {
			record(symbol, types.TradeActionShort, current.Quantity, current.EntryPrice)

			continue
		}

		diff := current.Quantity - previous.quantity
		switch {
		case diff > 0:
			record(symbol, types.TradeActionShort, diff, current.EntryPrice)
		case diff < 0:
			record(symbol, types.TradeActionCover, -diff, closePrice(symbol, previous.entryPrice))
		}
	}

	for _, symbol := range sortedSymbols(shortsBefore) {
		if _, stillHeld := shorts[symbol]; stillHeld {
			continue
		}

		previous := shortsBefore[symbol]
		record(symbol, types.TradeActionCover, previous.quantity, closePrice(symbol, previous.entryPrice))
	}

	return trades
}

func sortedSymbols[V any](m map[string]V) []string {
	out := make([]string, 0, len(m))
	for symbol := range m {
		out = append(out, symbol)
	}

	sort.Strings(out)

	return out
}

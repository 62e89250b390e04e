// Package strategy defines the contract backtest strategies implement and
// ships the built-in reference strategies.
package strategy

import (
	"time"

	"github.com/rxtech-lab/argo-equity/internal/portfolio"
	"github.com/rxtech-lab/argo-equity/internal/types"
)

// Algorithm is the contract every backtest strategy implements. The engine
// calls OnMarketOpen once with the first tick's bars, OnUpdate on every
// admitted tick, and OnMarketClose once with the last tick's bars.
//
// OnUpdate may mutate the portfolio freely. Portfolio operation failures
// (insufficient funds, missing position) surface to the strategy, which can
// swallow them and move on; an error returned from OnUpdate itself aborts
// the whole backtest.
type Algorithm interface {
	// OnMarketOpen is called once before the replay starts.
	OnMarketOpen(initialBars map[string]types.Bar)

	// OnUpdate is called on every processed tick with the bars visible at
	// that minute. Not every ticker has a bar at every tick.
	OnUpdate(currentBars map[string]types.Bar, timestamp time.Time, pf *portfolio.Portfolio) error

	// OnMarketClose is called once after the replay finishes.
	OnMarketClose(finalBars map[string]types.Bar)

	// AlgorithmID identifies the strategy. IDs must be unique per engine run.
	AlgorithmID() string
}

package engine

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/rxtech-lab/argo-equity/internal/backtest/engine/engine_v1/stats"
	"github.com/rxtech-lab/argo-equity/internal/market"
	"github.com/rxtech-lab/argo-equity/internal/portfolio"
	"github.com/rxtech-lab/argo-equity/internal/strategy"
)

// Lifecycle callback types for backtest phases
// Callback errors are logged and swallowed; they never abort the replay

// OnBacktestStartCallback is called once the timeline is built, before the first tick.
type OnBacktestStartCallback func(totalTicks int, totalStrategies int) error

// OnTickCallback is called after each admitted timestamp is handled, whether
// it was processed or skipped by interval decimation.
type OnTickCallback func(current int, total int, timestamp time.Time) error

// OnBacktestEndCallback is called when the backtest completes (always called via defer).
type OnBacktestEndCallback func(err error)

// LifecycleCallbacks holds all lifecycle callback functions for the backtest engine.
// All fields are pointers - nil means no callback will be invoked.
type LifecycleCallbacks struct {
	OnBacktestStart *OnBacktestStartCallback
	OnTick          *OnTickCallback
	OnBacktestEnd   *OnBacktestEndCallback
}

// Results carries the outcome of one backtest run, keyed by algorithm id.
type Results struct {
	Statistics map[string]*stats.AlgorithmStatistics
	StartTime  time.Time
	EndTime    time.Time
	Portfolios map[string]*portfolio.Portfolio
}

// String renders the full run report: the replay window followed by each
// algorithm's statistics in id order.
func (r *Results) String() string {
	var sb strings.Builder

	sb.WriteString("Backtest Results\n")
	sb.WriteString("================\n")
	fmt.Fprintf(&sb, "Period: %s to %s\n", r.StartTime.Format(time.RFC3339), r.EndTime.Format(time.RFC3339))
	sb.WriteString("----------------\n")

	ids := make([]string, 0, len(r.Statistics))
	for id := range r.Statistics {
		ids = append(ids, id)
	}

	sort.Strings(ids)

	for _, id := range ids {
		sb.WriteString(r.Statistics[id].Report())
		sb.WriteString("----------------\n")
	}

	return sb.String()
}

// Engine replays historical market data through registered strategies and
// collects per-strategy performance.
type Engine interface {
	// Initialize the engine with the given configuration content.
	Initialize(config string) error
	// SetMarketService sets the historical data service the replay fetches bars from.
	SetMarketService(service *market.Service) error
	// AddAlgorithm registers a strategy endowed with initial capital. Could be called
	// multiple times to run multiple strategies against the same data.
	AddAlgorithm(algorithm strategy.Algorithm, initialCapital float64) error
	// Run replays the configured window and executes the registered strategies.
	// The context can be used to cancel the backtest operation.
	// Use LifecycleCallbacks to receive notifications at different phases of the backtest.
	Run(ctx context.Context, callbacks LifecycleCallbacks) (*Results, error)
	// GetConfigSchema returns the schema of the engine configuration
	GetConfigSchema() (string, error)
}

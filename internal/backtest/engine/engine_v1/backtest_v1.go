package engine

import (
	"context"
	"time"

	"github.com/schollz/progressbar/v3"
	"go.uber.org/zap"
	"gopkg.in/yaml.v2"

	"github.com/rxtech-lab/argo-equity/internal/backtest/engine"
	"github.com/rxtech-lab/argo-equity/internal/backtest/engine/engine_v1/stats"
	"github.com/rxtech-lab/argo-equity/internal/logger"
	"github.com/rxtech-lab/argo-equity/internal/market"
	"github.com/rxtech-lab/argo-equity/internal/portfolio"
	"github.com/rxtech-lab/argo-equity/internal/strategy"
	"github.com/rxtech-lab/argo-equity/internal/types"
	"github.com/rxtech-lab/argo-equity/pkg/errors"
)

// riskFreeRate is the annual risk-free rate backing the Sharpe calculation.
// Statistics receive it divided down to a daily rate.
const riskFreeRate = 0.02

type BacktestEngineV1 struct {
	config        BacktestEngineV1Config
	marketService *market.Service
	algorithms    []strategy.Algorithm
	portfolios    map[string]*portfolio.Portfolio
	statistics    map[string]*stats.AlgorithmStatistics
	log           *logger.Logger
}

func NewBacktestEngineV1() engine.Engine {
	return &BacktestEngineV1{
		config:        EmptyConfig(),
		marketService: nil,
		algorithms:    nil,
		portfolios:    make(map[string]*portfolio.Portfolio),
		statistics:    make(map[string]*stats.AlgorithmStatistics),
		log:           nil,
	}
}

// Initialize the engine with the given configuration content.
func (b *BacktestEngineV1) Initialize(config string) error {
	if err := yaml.Unmarshal([]byte(config), &b.config); err != nil {
		return errors.Wrap(errors.ErrCodeInvalidConfiguration, "failed to parse backtest config", err)
	}

	logger, err := logger.NewLogger()
	if err != nil {
		return errors.Wrap(errors.ErrCodeInvalidConfiguration, "failed to initialize logger", err)
	}

	b.log = logger

	b.config.applyDefaults()

	if err := b.config.Validate(); err != nil {
		return err
	}

	b.log.Debug("Backtest engine initialized",
		zap.Any("config", b.config),
	)

	return nil
}

// SetMarketService sets the historical data service the replay fetches bars from.
func (b *BacktestEngineV1) SetMarketService(service *market.Service) error {
	if service == nil {
		return errors.New(errors.ErrCodeMissingProvider, "market service is nil")
	}

	b.marketService = service

	return nil
}

// AddAlgorithm registers a strategy endowed with initial capital. Each
// algorithm runs against its own portfolio and statistics.
func (b *BacktestEngineV1) AddAlgorithm(algorithm strategy.Algorithm, initialCapital float64) error {
	if b.log == nil {
		return errors.New(errors.ErrCodeNotInitialized, "engine not initialized, call Initialize first")
	}

	if algorithm == nil {
		return errors.New(errors.ErrCodeInvalidParameter, "algorithm is nil")
	}

	id := algorithm.AlgorithmID()
	if id == "" {
		return errors.New(errors.ErrCodeInvalidParameter, "algorithm has an empty id")
	}

	if initialCapital <= 0 {
		return errors.Newf(errors.ErrCodeInvalidParameter, "initial capital must be positive, got %.2f", initialCapital)
	}

	if _, exists := b.portfolios[id]; exists {
		return errors.Newf(errors.ErrCodeDuplicateStrategy, "algorithm %s is already registered", id)
	}

	b.algorithms = append(b.algorithms, algorithm)
	b.portfolios[id] = portfolio.NewPortfolio(initialCapital)
	b.statistics[id] = stats.NewAlgorithmStatistics(id, initialCapital, time.Now())

	b.log.Info("Algorithm registered",
		zap.String("id", id),
		zap.Float64("initial_capital", initialCapital),
	)

	return nil
}

// GetConfigSchema returns the schema of the engine configuration
func (b *BacktestEngineV1) GetConfigSchema() (string, error) {
	return b.config.GenerateSchemaJSON()
}

func (b *BacktestEngineV1) preRunCheck() error {
	if b.log == nil {
		return errors.New(errors.ErrCodeNotInitialized, "engine not initialized, call Initialize first")
	}

	if b.marketService == nil {
		b.log.Error("No market service set")

		return errors.New(errors.ErrCodeMissingProvider, "no market service set")
	}

	if len(b.algorithms) == 0 {
		b.log.Error("No algorithms registered")

		return errors.New(errors.ErrCodeNoStrategies, "at least one algorithm must be registered")
	}

	return nil
}

// Run replays the configured window through every registered algorithm and
// returns per-algorithm results. The replay walks session-admitted minutes in
// order, skipping minutes closer than the configured interval to the last
// processed one.
func (b *BacktestEngineV1) Run(ctx context.Context, callbacks engine.LifecycleCallbacks) (results *engine.Results, err error) {
	if err = b.preRunCheck(); err != nil {
		return nil, err
	}

	defer func() {
		if callbacks.OnBacktestEnd != nil {
			(*callbacks.OnBacktestEnd)(err)
		}
	}()

	loc, err := b.config.Market.Location()
	if err != nil {
		return nil, err
	}

	start, end := b.config.Window(time.Now())

	if !b.marketService.Initialized() {
		lookback := b.config.PreviousDays
		if b.config.StartTime.IsSome() {
			lookback = int(time.Since(start).Hours()/24) + 1
		}

		if err = b.marketService.Initialize(ctx, b.config.Tickers, lookback, b.config.Market); err != nil {
			return nil, err
		}
	}

	data, err := b.marketService.FetchHistoricalData(ctx, b.config.Tickers, start, end)
	if err != nil {
		return nil, err
	}

	timeline, err := newTimeline(data)
	if err != nil {
		return nil, err
	}

	admitted := timeline.sessionTimestamps(b.config.Market, loc, b.config.RunOnMarketClosed)
	if len(admitted) == 0 {
		return nil, errors.New(errors.ErrCodeEmptyTimeline, "no timestamps fall within market hours")
	}

	b.log.Info("Starting backtest",
		zap.Int("timeline_points", timeline.Len()),
		zap.Int("admitted_points", len(admitted)),
		zap.Int("algorithms", len(b.algorithms)),
		zap.Time("start", start),
		zap.Time("end", end),
	)

	if callbacks.OnBacktestStart != nil {
		if cbErr := (*callbacks.OnBacktestStart)(len(admitted), len(b.algorithms)); cbErr != nil {
			b.log.Warn("OnBacktestStart callback failed", zap.Error(cbErr))
		}
	}

	_, firstBars := timeline.First()
	for _, algo := range b.algorithms {
		algo.OnMarketOpen(firstBars)
	}

	var bar *progressbar.ProgressBar
	if b.config.ShouldPrint {
		bar = progressbar.Default(int64(len(admitted)), "backtesting")
	}

	interval := b.config.Interval()

	var (
		lastProcessed time.Time
		processedAny  bool
		processed     int
	)

	for i, ts := range admitted {
		if ctx.Err() != nil {
			err = errors.Wrap(errors.ErrCodeBacktestInterrupted, "backtest canceled", ctx.Err())

			return nil, err
		}

		if bar != nil {
			_ = bar.Add(1)
		}

		if !processedAny || ts.Sub(lastProcessed) >= interval {
			if err = b.processTick(ts, timeline.BarsAt(ts)); err != nil {
				return nil, err
			}

			lastProcessed = ts
			processedAny = true
			processed++
		}

		if callbacks.OnTick != nil {
			if cbErr := (*callbacks.OnTick)(i+1, len(admitted), ts); cbErr != nil {
				b.log.Warn("OnTick callback failed", zap.Error(cbErr))
			}
		}
	}

	// Liquidation reuses the last processed minute so it runs even when
	// decimation skipped the final admitted timestamps.
	if b.config.AutoLiquidateOnFinish && processedAny {
		b.liquidateAll(lastProcessed, timeline.BarsAt(lastProcessed))
	}

	_, lastBars := timeline.Last()
	for _, algo := range b.algorithms {
		algo.OnMarketClose(lastBars)
	}

	firstTs, _ := timeline.First()
	lastTs, _ := timeline.Last()

	results = &engine.Results{
		Statistics: b.statistics,
		StartTime:  firstTs,
		EndTime:    lastTs,
		Portfolios: b.portfolios,
	}

	b.log.Info("Backtest complete",
		zap.Int("processed_points", processed),
		zap.Int("admitted_points", len(admitted)),
	)

	return results, nil
}

// processTick runs every algorithm against one minute of bars: snapshot the
// portfolio, let the algorithm trade, diff the result into trade records, then
// fold the new valuation into statistics.
func (b *BacktestEngineV1) processTick(timestamp time.Time, currentBars map[string]types.Bar) error {
	for _, algo := range b.algorithms {
		id := algo.AlgorithmID()
		pf := b.portfolios[id]
		statistics := b.statistics[id]

		longsBefore := snapshotPositions(pf)
		shortsBefore := snapshotShorts(pf)
		valueBefore := pf.GetTotalValue(currentBars, timestamp)

		if err := algo.OnUpdate(currentBars, timestamp, pf); err != nil {
			b.log.Error("Strategy failed",
				zap.String("id", id),
				zap.Time("timestamp", timestamp),
				zap.Error(err),
			)

			return errors.Wrapf(errors.ErrCodeStrategyFailed, err, "strategy %s failed at %s", id, timestamp.Format(time.RFC3339))
		}

		trades := detectTrades(longsBefore, shortsBefore, pf, currentBars, valueBefore, timestamp)
		for _, trade := range trades {
			statistics.RecordTrade(trade)
		}

		statistics.UpdateStatistics(pf.GetTotalValue(currentBars, timestamp), riskFreeRate/252)
	}

	return nil
}

// liquidateAll closes every open position at the given minute's close prices:
// the trade is recorded first, then executed, and statistics take a final
// valuation afterwards. A position whose symbol has no bar this minute stays
// open. Execution failures are logged and skipped.
func (b *BacktestEngineV1) liquidateAll(timestamp time.Time, currentBars map[string]types.Bar) {
	for _, algo := range b.algorithms {
		id := algo.AlgorithmID()
		pf := b.portfolios[id]
		statistics := b.statistics[id]

		valueBefore := pf.GetTotalValue(currentBars, timestamp)

		b.log.Info("Liquidating open positions",
			zap.String("id", id),
			zap.Time("timestamp", timestamp),
		)

		longs := pf.GetAllPositions()
		for _, symbol := range sortedSymbols(longs) {
			position := longs[symbol]

			bar, ok := currentBars[symbol]
			if !ok || position.Quantity <= 0 {
				continue
			}

			statistics.RecordTrade(types.TradeRecord{
				Timestamp:            timestamp,
				Symbol:               symbol,
				Action:               types.TradeActionSell,
				Quantity:             position.Quantity,
				Price:                bar.Close,
				PortfolioValueBefore: valueBefore,
			})

			if err := pf.SellStock(symbol, position.Quantity, bar.Close); err != nil {
				b.log.Error("Failed to sell position",
					zap.String("id", id),
					zap.String("symbol", symbol),
					zap.Error(err),
				)
			}
		}

		shorts := pf.GetAllShortPositions()
		for _, symbol := range sortedSymbols(shorts) {
			position := shorts[symbol]

			bar, ok := currentBars[symbol]
			if !ok || position.Quantity <= 0 {
				continue
			}

			statistics.RecordTrade(types.TradeRecord{
				Timestamp:            timestamp,
				Symbol:               symbol,
				Action:               types.TradeActionCover,
				Quantity:             position.Quantity,
				Price:                bar.Close,
				PortfolioValueBefore: valueBefore,
			})

			if err := pf.CoverShort(symbol, position.Quantity, bar.Close); err != nil {
				b.log.Error("Failed to cover short position",
					zap.String("id", id),
					zap.String("symbol", symbol),
					zap.Error(err),
				)
			}
		}

		statistics.UpdateStatistics(pf.GetTotalValue(currentBars, timestamp), riskFreeRate/252)
	}
}

package engine

import (
	"context"
	"time"

	"github.com/moznion/go-optional"

	"github.com/rxtech-lab/argo-equity/internal/backtest/engine"
	"github.com/rxtech-lab/argo-equity/internal/backtest/engine/engine_v1/stats"
	"github.com/rxtech-lab/argo-equity/internal/logger"
	"github.com/rxtech-lab/argo-equity/internal/market"
	"github.com/rxtech-lab/argo-equity/internal/portfolio"
	"github.com/rxtech-lab/argo-equity/internal/strategy"
	"github.com/rxtech-lab/argo-equity/internal/types"
	"github.com/rxtech-lab/argo-equity/pkg/errors"
	"github.com/rxtech-lab/argo-equity/pkg/marketdata/provider"
)

// defaultMaxRetries bounds provider fetch attempts when the builder
// constructs the market service itself.
const defaultMaxRetries = 1

type algorithmRegistration struct {
	algorithm      strategy.Algorithm
	initialCapital float64
}

// BacktestBuilder assembles a backtest run fluently: tickers, window, market
// session, interval, data source and algorithms, then Build or Run.
type BacktestBuilder struct {
	config     BacktestEngineV1Config
	provider   provider.Provider
	service    *market.Service
	maxRetries int
	interval   time.Duration
	algorithms []algorithmRegistration
}

// NewBacktestBuilder returns a builder with the standard defaults: NYSE
// session, a 30 day lookback, progress printing on, and liquidation of open
// positions when the replay finishes. An interval must be set explicitly.
func NewBacktestBuilder() *BacktestBuilder {
	config := EmptyConfig()
	config.PreviousDays = defaultPreviousDays
	config.Market = types.MarketNYSE

	return &BacktestBuilder{
		config:     config,
		provider:   nil,
		service:    nil,
		maxRetries: defaultMaxRetries,
		interval:   0,
		algorithms: nil,
	}
}

// WithStocks sets the tickers to replay.
func (b *BacktestBuilder) WithStocks(tickers ...string) *BacktestBuilder {
	b.config.Tickers = tickers

	return b
}

// WithPreviousDays sets the lookback window in calendar days.
func (b *BacktestBuilder) WithPreviousDays(days int) *BacktestBuilder {
	b.config.PreviousDays = days

	return b
}

// WithMarket sets the exchange session used to filter replay timestamps.
func (b *BacktestBuilder) WithMarket(market types.Market) *BacktestBuilder {
	b.config.Market = market

	return b
}

// WithInterval sets the resampling interval. It must be a whole number of
// minutes, one minute or more.
func (b *BacktestBuilder) WithInterval(interval time.Duration) *BacktestBuilder {
	b.interval = interval

	return b
}

// WithRunOnMarketClosed admits weekday timestamps outside regular session
// hours. Weekends stay excluded.
func (b *BacktestBuilder) WithRunOnMarketClosed(run bool) *BacktestBuilder {
	b.config.RunOnMarketClosed = run

	return b
}

// WithAutoLiquidateOnFinish controls whether open positions are closed at the
// final processed tick.
func (b *BacktestBuilder) WithAutoLiquidateOnFinish(liquidate bool) *BacktestBuilder {
	b.config.AutoLiquidateOnFinish = liquidate

	return b
}

// WithShouldPrint controls the progress bar.
func (b *BacktestBuilder) WithShouldPrint(print bool) *BacktestBuilder {
	b.config.ShouldPrint = print

	return b
}

// WithProvider sets the market data provider. Build wraps it in a market
// service unless WithMarketService supplied one.
func (b *BacktestBuilder) WithProvider(p provider.Provider) *BacktestBuilder {
	b.provider = p

	return b
}

// WithMarketService sets a prepared market service, taking precedence over
// WithProvider.
func (b *BacktestBuilder) WithMarketService(service *market.Service) *BacktestBuilder {
	b.service = service

	return b
}

// WithCacheDirectory sets the disk cache directory for the market service.
func (b *BacktestBuilder) WithCacheDirectory(dir string) *BacktestBuilder {
	b.config.CacheDirectory = dir

	return b
}

// WithMaxRetries sets how often a failed provider fetch is retried.
func (b *BacktestBuilder) WithMaxRetries(retries int) *BacktestBuilder {
	b.maxRetries = retries

	return b
}

// WithAlgorithm registers a strategy endowed with initial capital. May be
// called multiple times.
func (b *BacktestBuilder) WithAlgorithm(algorithm strategy.Algorithm, initialCapital float64) *BacktestBuilder {
	b.algorithms = append(b.algorithms, algorithmRegistration{
		algorithm:      algorithm,
		initialCapital: initialCapital,
	})

	return b
}

// WithStartTime pins the replay window start, overriding the lookback.
func (b *BacktestBuilder) WithStartTime(t time.Time) *BacktestBuilder {
	b.config.StartTime = optional.Some(t)

	return b
}

// WithEndTime pins the replay window end instead of now.
func (b *BacktestBuilder) WithEndTime(t time.Time) *BacktestBuilder {
	b.config.EndTime = optional.Some(t)

	return b
}

func (b *BacktestBuilder) validate() error {
	if len(b.config.Tickers) == 0 {
		return errors.New(errors.ErrCodeNoTickers, "at least one stock ticker must be specified")
	}

	if b.provider == nil && b.service == nil {
		return errors.New(errors.ErrCodeMissingProvider, "the data provider must be specified")
	}

	if len(b.algorithms) == 0 {
		return errors.New(errors.ErrCodeNoStrategies, "at least one algorithm must be specified")
	}

	if b.config.PreviousDays <= 0 {
		return errors.Newf(errors.ErrCodeInvalidLookback, "previous days must be positive, got %d", b.config.PreviousDays)
	}

	if b.interval <= 0 {
		return errors.New(errors.ErrCodeInvalidInterval, "an interval must be specified")
	}

	if b.interval < time.Minute || b.interval%time.Minute != 0 {
		return errors.Newf(errors.ErrCodeInvalidInterval, "interval must be a whole number of minutes, got %s", b.interval)
	}

	return nil
}

// Build validates the assembled configuration and constructs a ready engine.
// Duplicate algorithm ids and non-positive capital are rejected during
// registration.
func (b *BacktestBuilder) Build() (engine.Engine, error) {
	if err := b.validate(); err != nil {
		return nil, err
	}

	log, err := logger.NewLogger()
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidConfiguration, "failed to initialize logger", err)
	}

	config := b.config
	config.IntervalMinutes = int(b.interval / time.Minute)
	config.applyDefaults()

	if err := config.Validate(); err != nil {
		return nil, err
	}

	service := b.service
	if service == nil {
		service, err = market.NewService(b.provider, b.maxRetries, config.CacheDirectory, log)
		if err != nil {
			return nil, err
		}
	}

	eng := &BacktestEngineV1{
		config:        config,
		marketService: service,
		algorithms:    nil,
		portfolios:    make(map[string]*portfolio.Portfolio),
		statistics:    make(map[string]*stats.AlgorithmStatistics),
		log:           log,
	}

	for _, registration := range b.algorithms {
		if err := eng.AddAlgorithm(registration.algorithm, registration.initialCapital); err != nil {
			return nil, err
		}
	}

	return eng, nil
}

// Run builds the engine and replays immediately without lifecycle callbacks.
func (b *BacktestBuilder) Run(ctx context.Context) (*engine.Results, error) {
	eng, err := b.Build()
	if err != nil {
		return nil, err
	}

	return eng.Run(ctx, engine.LifecycleCallbacks{
		OnBacktestStart: nil,
		OnTick:          nil,
		OnBacktestEnd:   nil,
	})
}

// Package market provides the historical data service feeding the engine:
// a provider-backed prefetch with retry and rate-limit pacing, an in-memory
// hot cache for reads during a run, and an optional Parquet disk cache that
// lets later runs start offline.
package market

import (
	"context"
	"runtime"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/rxtech-lab/argo-equity/internal/logger"
	"github.com/rxtech-lab/argo-equity/internal/types"
	"github.com/rxtech-lab/argo-equity/pkg/errors"
	"github.com/rxtech-lab/argo-equity/pkg/marketdata/provider"
)

const (
	// retryBackoff scales linearly with the attempt number after a failed
	// upstream call.
	retryBackoff = 5 * time.Second

	// closeTimeout bounds how long Close waits for in-flight work.
	closeTimeout = 30 * time.Second
)

// Service owns all market data access for a run. Initialize prefetches each
// ticker's lookback window exactly once, serialized and paced to the
// provider's rate limit; after that, reads come from the hot cache (or the
// disk cache for windows warmed by an earlier run) and never touch the
// network.
type Service struct {
	provider   provider.Provider
	cache      *DiskCache
	logger     *logger.Logger
	maxRetries int
	backoff    time.Duration

	mu  sync.RWMutex
	hot map[string]*types.HistoricalData

	windows *SegmentIndex

	initMu sync.Mutex
	ready  atomic.Bool

	inflight sync.WaitGroup
	closed   atomic.Bool
}

// NewService creates a market data service over the given provider. cacheDir
// may be empty to disable the disk cache. A nil log falls back to the
// production logger.
func NewService(p provider.Provider, maxRetries int, cacheDir string, log *logger.Logger) (*Service, error) {
	if p == nil {
		return nil, errors.New(errors.ErrCodeMissingProvider, "provider is required")
	}

	if maxRetries < 1 {
		return nil, errors.Newf(errors.ErrCodeInvalidParameter, "maxRetries must be at least 1, got %d", maxRetries)
	}

	if log == nil {
		var err error

		log, err = logger.NewLogger()
		if err != nil {
			return nil, errors.Wrap(errors.ErrCodeInvalidConfiguration, "failed to create logger", err)
		}
	}

	var cache *DiskCache

	if cacheDir != "" {
		var err error

		cache, err = NewDiskCache(cacheDir, log)
		if err != nil {
			return nil, err
		}
	}

	return &Service{
		provider:   p,
		cache:      cache,
		logger:     log,
		maxRetries: maxRetries,
		backoff:    retryBackoff,
		mu:         sync.RWMutex{},
		hot:        make(map[string]*types.HistoricalData),
		windows:    NewSegmentIndex(),
		initMu:     sync.Mutex{},
		ready:      atomic.Bool{},
		inflight:   sync.WaitGroup{},
		closed:     atomic.Bool{},
	}, nil
}

// Initialize prefetches the trailing lookbackDays window for every ticker.
// It is idempotent: the first successful call wins and later calls return
// immediately. A failure on any ticker aborts initialization, so a partially
// warmed service is never reported ready.
func (s *Service) Initialize(ctx context.Context, tickers []string, lookbackDays int, market types.Market) error {
	if s.closed.Load() {
		return errors.New(errors.ErrCodeServiceShutdown, "market service is closed")
	}

	if len(tickers) == 0 {
		return errors.New(errors.ErrCodeNoTickers, "at least one ticker is required")
	}

	if lookbackDays <= 0 {
		return errors.Newf(errors.ErrCodeInvalidLookback, "lookback days must be positive, got %d", lookbackDays)
	}

	if s.ready.Load() {
		return nil
	}

	s.inflight.Add(1)
	defer s.inflight.Done()

	s.initMu.Lock()
	defer s.initMu.Unlock()

	if s.ready.Load() {
		return nil
	}

	end := time.Now().UTC()
	start := end.AddDate(0, 0, -lookbackDays)

	// Deterministic walk order keeps pacing and logs stable across runs.
	sorted := make([]string, len(tickers))
	copy(sorted, tickers)
	sort.Strings(sorted)

	s.logger.Info("fetching historical data",
		zap.Int("tickers", len(sorted)),
		zap.Int("lookbackDays", lookbackDays))

	for i, ticker := range sorted {
		if err := ctx.Err(); err != nil {
			return errors.Wrap(errors.ErrCodeBacktestInterrupted, "initialization canceled", err)
		}

		if data := s.loadCached(ticker, start, end); data != nil {
			s.store(ticker, data, start, end)

			continue
		}

		data, err := s.fetchWithRetry(ctx, ticker, start, end, market)
		if err != nil {
			return errors.Wrapf(errors.ErrCodeMarketDataFetchFailed, err, "failed to fetch data for %s", ticker)
		}

		s.store(ticker, data, start, end)
		s.saveCached(data, start, end)

		// Pace the next upstream call to stay inside the provider's rate
		// limit.
		if i < len(sorted)-1 {
			if err := sleepCtx(ctx, rateLimitCooldown(s.provider.RateLimit())); err != nil {
				return errors.Wrap(errors.ErrCodeBacktestInterrupted, "initialization canceled", err)
			}
		}
	}

	s.ready.Store(true)

	return nil
}

// fetchWithRetry wraps one upstream fetch in the retry policy: up to
// maxRetries attempts with a linearly growing backoff. Failures the provider
// flags non-retryable fail immediately.
func (s *Service) fetchWithRetry(ctx context.Context, ticker string, start, end time.Time, market types.Market) (*types.HistoricalData, error) {
	var lastErr error

	for attempt := 1; attempt <= s.maxRetries; attempt++ {
		if !s.provider.IsAvailable(ctx) {
			lastErr = errors.Newf(errors.ErrCodeProviderUnavailable, "provider is not available for %s", ticker)
		} else {
			data, err := s.provider.FetchHistoricalData(ctx, []string{ticker}, start, end, market)
			if err == nil {
				return data, nil
			}

			var dataErr *provider.DataError
			if errors.As(err, &dataErr) && !dataErr.Retryable {
				return nil, err
			}

			lastErr = err
		}

		s.logger.Warn("historical fetch failed",
			zap.String("ticker", ticker),
			zap.Int("attempt", attempt),
			zap.Int("maxRetries", s.maxRetries),
			zap.Error(lastErr))

		if attempt < s.maxRetries {
			if err := sleepCtx(ctx, time.Duration(attempt)*s.backoff); err != nil {
				return nil, errors.Wrap(errors.ErrCodeBacktestInterrupted, "retry canceled", err)
			}
		}
	}

	return nil, errors.Wrapf(errors.ErrCodeRetriesExhausted, lastErr, "%s failed after %d attempts", ticker, s.maxRetries)
}

// FetchHistoricalData returns each ticker's bars inside [start, end] from
// the hot cache, falling back to the disk cache for windows warmed by an
// earlier run. A ticker with no cached data at all produces a typed failure
// instead of silently missing from the result.
func (s *Service) FetchHistoricalData(ctx context.Context, tickers []string, start, end time.Time) (map[string][]types.Bar, error) {
	if s.closed.Load() {
		return nil, errors.New(errors.ErrCodeServiceShutdown, "market service is closed")
	}

	if !s.ready.Load() {
		return nil, errors.New(errors.ErrCodeNotInitialized, "market service not initialized, call Initialize first")
	}

	if err := ctx.Err(); err != nil {
		return nil, errors.Wrap(errors.ErrCodeBacktestInterrupted, "fetch canceled", err)
	}

	s.inflight.Add(1)
	defer s.inflight.Done()

	var (
		wg       sync.WaitGroup
		resultMu sync.Mutex
		firstErr error
	)

	result := make(map[string][]types.Bar, len(tickers))

	// Reads fan out over a bounded pool: every branch is memory or disk, so
	// parallelism is capped at the CPU count rather than a rate limit.
	sem := make(chan struct{}, runtime.NumCPU())

	for _, ticker := range tickers {
		wg.Add(1)

		go func(ticker string) {
			defer wg.Done()

			sem <- struct{}{}
			defer func() { <-sem }()

			bars, err := s.tickerBars(ticker, start, end)

			resultMu.Lock()
			defer resultMu.Unlock()

			if err != nil {
				if firstErr == nil {
					firstErr = err
				}

				return
			}

			result[ticker] = bars
		}(ticker)
	}

	wg.Wait()

	if firstErr != nil {
		return nil, firstErr
	}

	return result, nil
}

// tickerBars resolves one ticker's bars, hot cache first, then disk.
func (s *Service) tickerBars(ticker string, start, end time.Time) ([]types.Bar, error) {
	s.mu.RLock()
	data, ok := s.hot[ticker]
	s.mu.RUnlock()

	if !ok {
		data = s.diskFallback(ticker, start, end)
		if data == nil {
			return nil, errors.Newf(errors.ErrCodeMissingTickerData, "no cached data available for ticker: %s", ticker)
		}
	}

	if gaps := s.windows.Gaps(ticker, Segment{Start: start, End: end}); len(gaps) > 0 {
		s.logger.Warn("requested window not fully covered by cached data",
			zap.String("ticker", ticker),
			zap.Int("gaps", len(gaps)),
			zap.Time("start", start),
			zap.Time("end", end))
	}

	return data.Range(start, end), nil
}

// diskFallback promotes a disk-cached window for the exact requested key
// into the hot cache.
func (s *Service) diskFallback(ticker string, start, end time.Time) *types.HistoricalData {
	data := s.loadCached(ticker, start, end)
	if data == nil {
		return nil
	}

	s.store(ticker, data, start, end)

	return data
}

func (s *Service) loadCached(ticker string, start, end time.Time) *types.HistoricalData {
	if s.cache == nil {
		return nil
	}

	data, err := s.cache.Load(ticker, start, end)
	if err != nil {
		s.logger.Warn("cache load failed",
			zap.String("ticker", ticker),
			zap.Error(err))

		return nil
	}

	if data == nil {
		return nil
	}

	s.logger.Info("loaded cached data",
		zap.String("ticker", ticker),
		zap.Int("bars", data.Len()))

	return data
}

// saveCached mirrors a fetched window to disk. Cache writes are best effort:
// a failed write costs a refetch on the next run, never the current one.
func (s *Service) saveCached(data *types.HistoricalData, start, end time.Time) {
	if s.cache == nil {
		return
	}

	if err := s.cache.Save(data, start, end); err != nil {
		s.logger.Warn("cache save failed",
			zap.String("ticker", data.Symbol()),
			zap.Error(err))
	}
}

func (s *Service) store(ticker string, data *types.HistoricalData, start, end time.Time) {
	s.mu.Lock()
	s.hot[ticker] = data
	s.mu.Unlock()

	s.windows.Add(ticker, Segment{Start: start, End: end})
}

// ClearCache removes all cache files from disk. The hot cache is untouched:
// an initialized service keeps serving, only later runs refetch.
func (s *Service) ClearCache() error {
	if s.cache == nil {
		return nil
	}

	return s.cache.Clear()
}

// Initialized reports whether the initial prefetch has completed.
func (s *Service) Initialized() bool {
	return s.ready.Load()
}

// Provider exposes the underlying provider for callers that need realtime
// quotes.
func (s *Service) Provider() provider.Provider {
	return s.provider
}

// Close rejects new work and waits for in-flight operations, bounded by
// closeTimeout. It is safe to call more than once.
func (s *Service) Close() error {
	if s.closed.Swap(true) {
		return nil
	}

	done := make(chan struct{})

	go func() {
		s.inflight.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-time.After(closeTimeout):
		return errors.Newf(errors.ErrCodeServiceShutdown, "market service close timed out after %s", closeTimeout)
	}
}

// rateLimitCooldown converts a provider's calls-per-minute budget into the
// pause between two consecutive upstream calls.
func rateLimitCooldown(callsPerMinute int) time.Duration {
	if callsPerMinute <= 0 {
		return 0
	}

	return time.Minute / time.Duration(callsPerMinute)
}

// sleepCtx sleeps for d unless the context is canceled first.
func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}

	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

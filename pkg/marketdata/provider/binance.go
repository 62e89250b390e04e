package provider

import (
	"context"
	"strconv"
	"time"

	binance "github.com/adshao/go-binance/v2"
	"github.com/google/uuid"

	"github.com/rxtech-lab/argo-equity/internal/types"
	"github.com/rxtech-lab/argo-equity/pkg/errors"
	"github.com/rxtech-lab/argo-equity/pkg/marketdata/ratelimit"
)

// binanceRateLimit is the calls-per-minute budget of the public spot API.
const binanceRateLimit = 1200

const (
	// binancePageSize is the maximum klines returned per request.
	binancePageSize     = 500
	binanceInterval     = "1m"
	binanceProbeSymbol  = "BTCUSDT"
	binanceProbeTimeout = 5 * time.Second
)

// BinanceKlinesService is the builder slice of the binance klines call,
// extracted so tests can substitute a fake.
type BinanceKlinesService interface {
	Symbol(symbol string) BinanceKlinesService
	Interval(interval string) BinanceKlinesService
	StartTime(startTime int64) BinanceKlinesService
	EndTime(endTime int64) BinanceKlinesService
	Do(ctx context.Context) ([]*binance.Kline, error)
}

// BinanceAPIClient is the slice of the binance SDK used by the provider.
type BinanceAPIClient interface {
	NewKlinesService() BinanceKlinesService
}

type binanceAPIAdapter struct {
	client *binance.Client
}

func (a *binanceAPIAdapter) NewKlinesService() BinanceKlinesService {
	return &binanceKlinesAdapter{svc: a.client.NewKlinesService()}
}

type binanceKlinesAdapter struct {
	svc *binance.KlinesService
}

func (k *binanceKlinesAdapter) Symbol(symbol string) BinanceKlinesService {
	k.svc = k.svc.Symbol(symbol)

	return k
}

func (k *binanceKlinesAdapter) Interval(interval string) BinanceKlinesService {
	k.svc = k.svc.Interval(interval)

	return k
}

func (k *binanceKlinesAdapter) StartTime(startTime int64) BinanceKlinesService {
	k.svc = k.svc.StartTime(startTime)

	return k
}

func (k *binanceKlinesAdapter) EndTime(endTime int64) BinanceKlinesService {
	k.svc = k.svc.EndTime(endTime)

	return k
}

func (k *binanceKlinesAdapter) Do(ctx context.Context) ([]*binance.Kline, error) {
	return k.svc.Do(ctx)
}

// BinanceProvider serves crypto minute klines from the public binance spot
// API. Crypto trades around the clock, so no session filtering is applied.
type BinanceProvider struct {
	api     BinanceAPIClient
	limiter *ratelimit.RateLimiter
}

// NewBinanceProvider creates a provider against the public spot API. No
// credentials are needed for market data endpoints.
func NewBinanceProvider() (Provider, error) {
	limiter, err := ratelimit.New(float64(binanceRateLimit) / 60.0)
	if err != nil {
		return nil, err
	}

	return &BinanceProvider{
		api:     &binanceAPIAdapter{client: binance.NewClient("", "")},
		limiter: limiter,
	}, nil
}

// BinanceEndpointConfig points the provider at an alternate REST endpoint.
type BinanceEndpointConfig struct {
	RestBaseURL string
}

// NewBinanceProviderWithEndpoints creates a provider against a custom
// endpoint. Integration tests point this at a local mock exchange.
func NewBinanceProviderWithEndpoints(config BinanceEndpointConfig) (*BinanceProvider, error) {
	limiter, err := ratelimit.New(float64(binanceRateLimit) / 60.0)
	if err != nil {
		return nil, err
	}

	client := binance.NewClient("", "")
	if config.RestBaseURL != "" {
		client.BaseURL = config.RestBaseURL
	}

	return &BinanceProvider{
		api:     &binanceAPIAdapter{client: client},
		limiter: limiter,
	}, nil
}

// NewBinanceProviderWithAPI creates a provider against an injected SDK slice.
// Used by tests.
func NewBinanceProviderWithAPI(api BinanceAPIClient) *BinanceProvider {
	limiter, _ := ratelimit.New(float64(binanceRateLimit) / 60.0)

	return &BinanceProvider{
		api:     api,
		limiter: limiter,
	}
}

// FetchHistoricalData implements Provider. Klines are paged 500 rows at a
// time; the next page starts one millisecond after the previous close time.
func (b *BinanceProvider) FetchHistoricalData(ctx context.Context, tickers []string, start time.Time, end time.Time, _ types.Market) (*types.HistoricalData, error) {
	ticker, err := requireSingleTicker(tickers)
	if err != nil {
		return nil, err
	}

	data := types.NewHistoricalData(ticker)
	currentStartTime := start.UnixMilli()
	endTimeMillis := end.UnixMilli()

	for {
		if err := b.limiter.Acquire(ctx, 1); err != nil {
			return nil, err
		}

		klines, err := b.api.NewKlinesService().
			Symbol(ticker).
			Interval(binanceInterval).
			StartTime(currentStartTime).
			EndTime(endTimeMillis).
			Do(ctx)
		if err != nil {
			return nil, NewDataErrorf(ProviderBinance, true, err, "failed to fetch klines for %s", ticker)
		}

		for _, k := range klines {
			bar, ok := convertKline(ticker, k)
			if !ok {
				continue
			}

			if err := data.Add(bar); err != nil {
				return nil, err
			}
		}

		// Less than a full page means the range is exhausted.
		if len(klines) < binancePageSize {
			break
		}

		// Start the next page one millisecond after the last close to avoid
		// refetching the boundary kline.
		currentStartTime = klines[len(klines)-1].CloseTime + 1
		if currentStartTime >= endTimeMillis {
			break
		}
	}

	return data, nil
}

// convertKline maps a binance kline onto a Bar. Klines that fail OHLC sanity
// are reported as not ok and dropped by the caller.
func convertKline(ticker string, k *binance.Kline) (types.Bar, bool) {
	open, _ := strconv.ParseFloat(k.Open, 64)
	high, _ := strconv.ParseFloat(k.High, 64)
	low, _ := strconv.ParseFloat(k.Low, 64)
	closePrice, _ := strconv.ParseFloat(k.Close, 64)
	volume, _ := strconv.ParseFloat(k.Volume, 64)

	bar := types.Bar{
		Symbol: ticker,
		Time:   time.UnixMilli(k.OpenTime),
		Open:   open,
		High:   high,
		Low:    low,
		Close:  closePrice,
		Volume: volume,
	}

	if err := bar.Validate(); err != nil {
		return types.Bar{}, false
	}

	return bar, true
}

// FetchRealTimeData implements Provider by taking the latest minute kline per
// requested ticker.
func (b *BinanceProvider) FetchRealTimeData(ctx context.Context, tickers []string) (types.ProviderResponse, error) {
	if len(tickers) == 0 {
		return types.ProviderResponse{}, errors.New(errors.ErrCodeInvalidParameter, "realtime fetch requires at least one ticker")
	}

	requestedAt := time.Now()
	quotes := make(map[string]types.Bar, len(tickers))

	for _, ticker := range tickers {
		if err := b.limiter.Acquire(ctx, 1); err != nil {
			return types.ProviderResponse{}, err
		}

		klines, err := b.api.NewKlinesService().
			Symbol(ticker).
			Interval(binanceInterval).
			StartTime(requestedAt.Add(-2 * time.Minute).UnixMilli()).
			EndTime(requestedAt.UnixMilli()).
			Do(ctx)
		if err != nil {
			return types.ProviderResponse{}, NewDataErrorf(ProviderBinance, true, err, "failed to fetch latest kline for %s", ticker)
		}

		if len(klines) == 0 {
			continue
		}

		bar, ok := convertKline(ticker, klines[len(klines)-1])
		if ok {
			quotes[ticker] = bar
		}
	}

	return types.ProviderResponse{
		Quotes: quotes,
		Metadata: types.ResponseMetadata{
			Provider:    string(ProviderBinance),
			RequestedAt: requestedAt,
			Duration:    time.Since(requestedAt),
			RequestID:   uuid.New().String(),
		},
	}, nil
}

// IsAvailable probes the spot API with a one-kline request.
func (b *BinanceProvider) IsAvailable(ctx context.Context) bool {
	ctx, cancel := context.WithTimeout(ctx, binanceProbeTimeout)
	defer cancel()

	now := time.Now()

	_, err := b.api.NewKlinesService().
		Symbol(binanceProbeSymbol).
		Interval(binanceInterval).
		StartTime(now.Add(-2 * time.Minute).UnixMilli()).
		EndTime(now.UnixMilli()).
		Do(ctx)

	return err == nil
}

// RateLimit implements Provider.
func (b *BinanceProvider) RateLimit() int {
	return binanceRateLimit
}

// Capabilities implements Provider.
func (b *BinanceProvider) Capabilities() Capabilities {
	return Capabilities{
		SupportsHistorical: true,
		SupportsRealTime:   true,
		Granularity:        time.Minute,
	}
}

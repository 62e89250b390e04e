package provider

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"strings"
	"time"

	polygon "github.com/polygon-io/client-go/rest"
	"github.com/polygon-io/client-go/rest/models"

	"github.com/rxtech-lab/argo-equity/internal/types"
	"github.com/rxtech-lab/argo-equity/pkg/errors"
	"github.com/rxtech-lab/argo-equity/pkg/marketdata/ratelimit"
)

// polygonRateLimit is the calls-per-minute budget of the polygon free tier.
const polygonRateLimit = 5

const (
	polygonBaseURL      = "https://api.polygon.io"
	polygonProbeTimeout = 5 * time.Second
	polygonHTTPTimeout  = 10 * time.Second
)

// AggsIter is the slice of the polygon aggregates iterator the provider
// consumes, extracted so tests can substitute a fake.
type AggsIter interface {
	Next() bool
	Item() models.Agg
	Err() error
}

// PolygonAPIClient is the slice of the polygon SDK used by the provider.
type PolygonAPIClient interface {
	ListAggs(ctx context.Context, params *models.ListAggsParams, options ...models.RequestOption) AggsIter
}

type polygonAPIAdapter struct {
	client *polygon.Client
}

func (a *polygonAPIAdapter) ListAggs(ctx context.Context, params *models.ListAggsParams, options ...models.RequestOption) AggsIter {
	return a.client.ListAggs(ctx, params, options...)
}

// PolygonProvider serves minute aggregates from polygon.io, prefiltered to
// the requested market session. Aggregates go through the official SDK; the
// liveness probe and realtime snapshot hit the documented REST endpoints
// directly.
type PolygonProvider struct {
	api        PolygonAPIClient
	httpClient *http.Client
	limiter    *ratelimit.RateLimiter
	apiKey     string
	baseURL    string
}

// NewPolygonProvider creates a polygon provider authenticated with the given
// API key. Pacing is wired for the free tier.
func NewPolygonProvider(apiKey string) (Provider, error) {
	if apiKey == "" {
		return nil, errors.New(errors.ErrCodeInvalidProvider, "polygon provider requires an API key")
	}

	limiter, err := ratelimit.New(float64(polygonRateLimit) / 60.0)
	if err != nil {
		return nil, err
	}

	return &PolygonProvider{
		api:        &polygonAPIAdapter{client: polygon.New(apiKey)},
		httpClient: &http.Client{Timeout: polygonHTTPTimeout},
		limiter:    limiter,
		apiKey:     apiKey,
		baseURL:    polygonBaseURL,
	}, nil
}

// NewPolygonProviderWithAPI creates a provider against an injected SDK slice
// and base URL. Used by tests.
func NewPolygonProviderWithAPI(apiKey string, api PolygonAPIClient, baseURL string) *PolygonProvider {
	limiter, _ := ratelimit.New(float64(polygonRateLimit) / 60.0)

	return &PolygonProvider{
		api:        api,
		httpClient: &http.Client{Timeout: polygonHTTPTimeout},
		limiter:    limiter,
		apiKey:     apiKey,
		baseURL:    baseURL,
	}
}

// FetchHistoricalData implements Provider. Bars outside the market session
// and bars failing OHLC sanity are dropped.
func (p *PolygonProvider) FetchHistoricalData(ctx context.Context, tickers []string, start time.Time, end time.Time, market types.Market) (*types.HistoricalData, error) {
	ticker, err := requireSingleTicker(tickers)
	if err != nil {
		return nil, err
	}

	loc, err := market.Location()
	if err != nil {
		return nil, err
	}

	if err := p.limiter.Acquire(ctx, 1); err != nil {
		return nil, err
	}

	//nolint:exhaustruct // third-party struct with many optional fields
	params := models.ListAggsParams{
		Ticker:     ticker,
		Multiplier: 1,
		Timespan:   models.Minute,
		From:       models.Millis(start),
		To:         models.Millis(end),
	}.WithLimit(50000)

	it := p.api.ListAggs(ctx, params)

	data := types.NewHistoricalData(ticker)
	totalPoints := 0
	keptPoints := 0

	for it.Next() {
		agg := it.Item()
		totalPoints++

		bar := types.Bar{
			Symbol: ticker,
			Time:   time.Time(agg.Timestamp),
			Open:   agg.Open,
			High:   agg.High,
			Low:    agg.Low,
			Close:  agg.Close,
			Volume: agg.Volume,
		}

		if !market.IsOpenAt(bar.Time, loc) {
			continue
		}

		if err := bar.Validate(); err != nil {
			log.Printf("polygon: dropping invalid bar for %s at %s: %v", ticker, bar.Time, err)

			continue
		}

		if err := data.Add(bar); err != nil {
			return nil, err
		}

		keptPoints++
	}

	if err := it.Err(); err != nil {
		return nil, NewDataErrorf(ProviderPolygon, true, err, "failed to fetch aggregates for %s", ticker)
	}

	log.Printf("polygon: fetched %d points for %s, kept %d inside the %s session", totalPoints, ticker, keptPoints, market)

	return data, nil
}

type polygonSnapshotResponse struct {
	Status    string `json:"status"`
	RequestID string `json:"request_id"`
	Tickers   []struct {
		Ticker string `json:"ticker"`
		Day    struct {
			Open   float64 `json:"o"`
			High   float64 `json:"h"`
			Low    float64 `json:"l"`
			Close  float64 `json:"c"`
			Volume float64 `json:"v"`
		} `json:"day"`
	} `json:"tickers"`
}

// FetchRealTimeData implements Provider using the stocks snapshot endpoint.
func (p *PolygonProvider) FetchRealTimeData(ctx context.Context, tickers []string) (types.ProviderResponse, error) {
	if len(tickers) == 0 {
		return types.ProviderResponse{}, errors.New(errors.ErrCodeInvalidParameter, "realtime fetch requires at least one ticker")
	}

	if err := p.limiter.Acquire(ctx, 1); err != nil {
		return types.ProviderResponse{}, err
	}

	requestedAt := time.Now()
	url := fmt.Sprintf("%s/v2/snapshot/locale/us/markets/stocks/tickers?tickers=%s&apiKey=%s",
		p.baseURL, strings.Join(tickers, ","), p.apiKey)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return types.ProviderResponse{}, NewDataError(ProviderPolygon, false, err, "failed to build snapshot request")
	}

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return types.ProviderResponse{}, NewDataError(ProviderPolygon, true, err, "failed to fetch realtime snapshot")
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return types.ProviderResponse{}, NewDataErrorf(ProviderPolygon, true, nil, "snapshot request returned status %d", resp.StatusCode)
	}

	var snapshot polygonSnapshotResponse
	if err := json.NewDecoder(resp.Body).Decode(&snapshot); err != nil {
		return types.ProviderResponse{}, NewDataError(ProviderPolygon, true, err, "failed to parse snapshot response")
	}

	quotes := make(map[string]types.Bar, len(snapshot.Tickers))

	for _, t := range snapshot.Tickers {
		quotes[t.Ticker] = types.Bar{
			Symbol: t.Ticker,
			Time:   requestedAt,
			Open:   t.Day.Open,
			High:   t.Day.High,
			Low:    t.Day.Low,
			Close:  t.Day.Close,
			Volume: t.Day.Volume,
		}
	}

	return types.ProviderResponse{
		Quotes: quotes,
		Metadata: types.ResponseMetadata{
			Provider:    string(ProviderPolygon),
			RequestedAt: requestedAt,
			Duration:    time.Since(requestedAt),
			RequestID:   snapshot.RequestID,
		},
	}, nil
}

// IsAvailable probes the market status endpoint.
func (p *PolygonProvider) IsAvailable(ctx context.Context) bool {
	ctx, cancel := context.WithTimeout(ctx, polygonProbeTimeout)
	defer cancel()

	url := fmt.Sprintf("%s/v1/marketstatus/now?apiKey=%s", p.baseURL, p.apiKey)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return false
	}

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return false
	}
	defer resp.Body.Close()

	return resp.StatusCode == http.StatusOK
}

// RateLimit implements Provider.
func (p *PolygonProvider) RateLimit() int {
	return polygonRateLimit
}

// Capabilities implements Provider.
func (p *PolygonProvider) Capabilities() Capabilities {
	return Capabilities{
		SupportsHistorical: true,
		SupportsRealTime:   true,
		Granularity:        time.Minute,
	}
}

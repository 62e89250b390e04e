package provider

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/polygon-io/client-go/rest/models"
	"github.com/stretchr/testify/suite"

	"github.com/rxtech-lab/argo-equity/internal/types"
	"github.com/rxtech-lab/argo-equity/pkg/errors"
)

// fakeAggsIter implements AggsIter over a fixed slice.
type fakeAggsIter struct {
	items []models.Agg
	err   error
	idx   int
}

func (f *fakeAggsIter) Next() bool {
	if f.err != nil {
		return false
	}

	if f.idx >= len(f.items) {
		return false
	}

	f.idx++

	return true
}

func (f *fakeAggsIter) Item() models.Agg {
	return f.items[f.idx-1]
}

func (f *fakeAggsIter) Err() error {
	return f.err
}

// fakePolygonAPI implements PolygonAPIClient and records the last params.
type fakePolygonAPI struct {
	iter      *fakeAggsIter
	gotParams *models.ListAggsParams
}

func (f *fakePolygonAPI) ListAggs(_ context.Context, params *models.ListAggsParams, _ ...models.RequestOption) AggsIter {
	f.gotParams = params

	return f.iter
}

func agg(t time.Time, open, high, low, closePrice, volume float64) models.Agg {
	return models.Agg{
		Timestamp: models.Millis(t),
		Open:      open,
		High:      high,
		Low:       low,
		Close:     closePrice,
		Volume:    volume,
	}
}

type PolygonProviderTestSuite struct {
	suite.Suite
	nyc *time.Location
}

func TestPolygonProviderSuite(t *testing.T) {
	suite.Run(t, new(PolygonProviderTestSuite))
}

func (suite *PolygonProviderTestSuite) SetupSuite() {
	nyc, err := time.LoadLocation("America/New_York")
	suite.Require().NoError(err)
	suite.nyc = nyc
}

func (suite *PolygonProviderTestSuite) TestNewPolygonProviderRequiresKey() {
	_, err := NewPolygonProvider("")
	suite.Error(err)
	suite.True(errors.HasCode(err, errors.ErrCodeInvalidProvider))

	p, err := NewPolygonProvider("test-api-key")
	suite.NoError(err)
	suite.NotNil(p)
}

func (suite *PolygonProviderTestSuite) TestFetchHistoricalDataSingleTickerRule() {
	p := NewPolygonProviderWithAPI("key", &fakePolygonAPI{iter: &fakeAggsIter{}}, "http://unused")

	start := time.Date(2024, 3, 4, 0, 0, 0, 0, time.UTC)
	end := time.Date(2024, 3, 5, 0, 0, 0, 0, time.UTC)

	_, err := p.FetchHistoricalData(context.Background(), nil, start, end, types.MarketNYSE)
	suite.Error(err)
	suite.True(errors.HasCode(err, errors.ErrCodeSingleTickerRequired))

	_, err = p.FetchHistoricalData(context.Background(), []string{"AAPL", "MSFT"}, start, end, types.MarketNYSE)
	suite.Error(err)
	suite.True(errors.HasCode(err, errors.ErrCodeSingleTickerRequired))
}

func (suite *PolygonProviderTestSuite) TestFetchHistoricalDataSessionFilter() {
	// Tuesday 2024-03-05 is a regular trading day.
	inSession := time.Date(2024, 3, 5, 10, 0, 0, 0, suite.nyc)
	atClose := time.Date(2024, 3, 5, 16, 0, 0, 0, suite.nyc)
	preMarket := time.Date(2024, 3, 5, 8, 0, 0, 0, suite.nyc)
	afterHours := time.Date(2024, 3, 5, 16, 1, 0, 0, suite.nyc)
	saturday := time.Date(2024, 3, 9, 10, 0, 0, 0, suite.nyc)

	api := &fakePolygonAPI{iter: &fakeAggsIter{items: []models.Agg{
		agg(preMarket, 100, 101, 99, 100.5, 1000),
		agg(inSession, 101, 102, 100, 101.5, 2000),
		agg(atClose, 102, 103, 101, 102.5, 3000),
		agg(afterHours, 103, 104, 102, 103.5, 4000),
		agg(saturday, 104, 105, 103, 104.5, 5000),
	}}}

	p := NewPolygonProviderWithAPI("key", api, "http://unused")

	data, err := p.FetchHistoricalData(context.Background(), []string{"AAPL"},
		time.Date(2024, 3, 4, 0, 0, 0, 0, time.UTC), time.Date(2024, 3, 10, 0, 0, 0, 0, time.UTC), types.MarketNYSE)
	suite.Require().NoError(err)

	suite.Equal(2, data.Len())

	bars := data.Bars()
	suite.True(bars[0].Time.Equal(inSession))
	suite.Equal(101.5, bars[0].Close)
	suite.True(bars[1].Time.Equal(atClose))
	suite.Equal("AAPL", bars[1].Symbol)
}

func (suite *PolygonProviderTestSuite) TestFetchHistoricalDataDropsInvalidBars() {
	valid := time.Date(2024, 3, 5, 10, 0, 0, 0, suite.nyc)
	invalid := time.Date(2024, 3, 5, 10, 1, 0, 0, suite.nyc)

	api := &fakePolygonAPI{iter: &fakeAggsIter{items: []models.Agg{
		agg(valid, 100, 101, 99, 100.5, 1000),
		// high below low fails OHLC sanity
		agg(invalid, 100, 98, 99, 100.5, 1000),
	}}}

	p := NewPolygonProviderWithAPI("key", api, "http://unused")

	data, err := p.FetchHistoricalData(context.Background(), []string{"AAPL"},
		time.Date(2024, 3, 4, 0, 0, 0, 0, time.UTC), time.Date(2024, 3, 6, 0, 0, 0, 0, time.UTC), types.MarketNYSE)
	suite.Require().NoError(err)
	suite.Equal(1, data.Len())
}

func (suite *PolygonProviderTestSuite) TestFetchHistoricalDataIterError() {
	api := &fakePolygonAPI{iter: &fakeAggsIter{err: fmt.Errorf("upstream 500")}}
	p := NewPolygonProviderWithAPI("key", api, "http://unused")

	_, err := p.FetchHistoricalData(context.Background(), []string{"AAPL"},
		time.Date(2024, 3, 4, 0, 0, 0, 0, time.UTC), time.Date(2024, 3, 6, 0, 0, 0, 0, time.UTC), types.MarketNYSE)
	suite.Error(err)
	suite.True(IsRetryable(err))

	var dataErr *DataError
	suite.True(errors.As(err, &dataErr))
	suite.Equal(ProviderPolygon, dataErr.Provider)
}

func (suite *PolygonProviderTestSuite) TestFetchHistoricalDataParams() {
	api := &fakePolygonAPI{iter: &fakeAggsIter{}}
	p := NewPolygonProviderWithAPI("key", api, "http://unused")

	start := time.Date(2024, 3, 4, 0, 0, 0, 0, time.UTC)
	end := time.Date(2024, 3, 6, 0, 0, 0, 0, time.UTC)

	_, err := p.FetchHistoricalData(context.Background(), []string{"TSLA"}, start, end, types.MarketNYSE)
	suite.Require().NoError(err)

	suite.Require().NotNil(api.gotParams)
	suite.Equal("TSLA", api.gotParams.Ticker)
	suite.Equal(1, api.gotParams.Multiplier)
	suite.Equal(models.Minute, api.gotParams.Timespan)
	suite.True(time.Time(api.gotParams.From).Equal(start))
	suite.True(time.Time(api.gotParams.To).Equal(end))
}

func (suite *PolygonProviderTestSuite) TestIsAvailable() {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		suite.Equal("/v1/marketstatus/now", r.URL.Path)
		suite.Equal("key", r.URL.Query().Get("apiKey"))
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	p := NewPolygonProviderWithAPI("key", &fakePolygonAPI{iter: &fakeAggsIter{}}, server.URL)
	suite.True(p.IsAvailable(context.Background()))

	down := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer down.Close()

	p = NewPolygonProviderWithAPI("key", &fakePolygonAPI{iter: &fakeAggsIter{}}, down.URL)
	suite.False(p.IsAvailable(context.Background()))
}

func (suite *PolygonProviderTestSuite) TestFetchRealTimeData() {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		suite.Equal("/v2/snapshot/locale/us/markets/stocks/tickers", r.URL.Path)
		suite.Equal("AAPL,MSFT", r.URL.Query().Get("tickers"))

		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{
			"status": "OK",
			"request_id": "req-123",
			"tickers": [
				{"ticker": "AAPL", "day": {"o": 150.0, "h": 155.0, "l": 148.0, "c": 152.0, "v": 1000000}},
				{"ticker": "MSFT", "day": {"o": 410.0, "h": 415.0, "l": 408.0, "c": 412.0, "v": 2000000}}
			]
		}`)
	}))
	defer server.Close()

	p := NewPolygonProviderWithAPI("key", &fakePolygonAPI{iter: &fakeAggsIter{}}, server.URL)

	resp, err := p.FetchRealTimeData(context.Background(), []string{"AAPL", "MSFT"})
	suite.Require().NoError(err)

	suite.Len(resp.Quotes, 2)
	suite.Equal(152.0, resp.Quotes["AAPL"].Close)
	suite.Equal(410.0, resp.Quotes["MSFT"].Open)
	suite.Equal("polygon", resp.Metadata.Provider)
	suite.Equal("req-123", resp.Metadata.RequestID)
}

func (suite *PolygonProviderTestSuite) TestFetchRealTimeDataHTTPError() {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer server.Close()

	p := NewPolygonProviderWithAPI("key", &fakePolygonAPI{iter: &fakeAggsIter{}}, server.URL)

	_, err := p.FetchRealTimeData(context.Background(), []string{"AAPL"})
	suite.Error(err)
	suite.True(IsRetryable(err))
}

func (suite *PolygonProviderTestSuite) TestFetchRealTimeDataRequiresTickers() {
	p := NewPolygonProviderWithAPI("key", &fakePolygonAPI{iter: &fakeAggsIter{}}, "http://unused")

	_, err := p.FetchRealTimeData(context.Background(), nil)
	suite.Error(err)
	suite.True(errors.HasCode(err, errors.ErrCodeInvalidParameter))
}
